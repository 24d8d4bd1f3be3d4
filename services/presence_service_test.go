package services

import (
	"chat-presence/contract"
	"chat-presence/domain"
	"chat-presence/errors"
	"chat-presence/mocks"
	"chat-presence/repositories"
	"context"
	stderrors "errors"
	"log/slog"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/mama165/sdk-go/logs"
	"github.com/samber/lo"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

var start = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

type fixture struct {
	participants *repositories.MemoryParticipantRepository
	messages     *repositories.MemoryMessageRepository
	clock        *domain.ManualClock
	presence     *PresenceService
	chat         *MessageService
}

func newFixture(includeSent bool) fixture {
	log := logs.GetLoggerFromLevel(slog.LevelDebug)
	participants := repositories.NewMemoryParticipantRepository()
	messages := repositories.NewMemoryMessageRepository()
	roster := NewRoster()
	clock := domain.NewManualClock(start)
	return fixture{
		participants: participants,
		messages:     messages,
		clock:        clock,
		presence:     NewPresenceService(participants, messages, roster, clock, log),
		chat:         NewMessageService(participants, messages, roster, clock, includeSent, log),
	}
}

func (f fixture) allMessages(t *testing.T) []domain.Message {
	messages, err := f.messages.Find(context.Background(), contract.MessageFilter{})
	require.NoError(t, err)
	return messages
}

func TestPresenceService_Join(t *testing.T) {
	ctx := context.Background()

	t.Run("registers the participant and announces it", func(t *testing.T) {
		req := require.New(t)
		f := newFixture(false)

		// When
		participant, err := f.presence.Join(ctx, domain.JoinCommand{Name: "alice"})

		// Then
		req.NoError(err)
		req.Equal("alice", participant.Name)
		req.Equal(start.UnixMilli(), participant.LastStatus())
		participants, err := f.presence.ListParticipants(ctx)
		req.NoError(err)
		req.Equal([]domain.Participant{participant}, participants)
		messages := f.allMessages(t)
		req.Len(messages, 1)
		req.Equal("alice", messages[0].From)
		req.Equal(domain.Broadcast, messages[0].To)
		req.Equal(domain.JoinNoticeText, messages[0].Text)
		req.Equal(domain.StatusMessage, messages[0].Type)
		req.Equal("12:00:00", messages[0].Time)
	})

	t.Run("rejects an empty name", func(t *testing.T) {
		req := require.New(t)
		f := newFixture(false)

		// When
		_, err := f.presence.Join(ctx, domain.JoinCommand{Name: ""})

		// Then
		req.ErrorIs(err, errors.ErrInvalidInput)
		var validationErr *errors.ValidationError
		req.True(stderrors.As(err, &validationErr))
		req.Equal("name", validationErr.Fields[0].Field)
		req.Empty(f.allMessages(t))
	})

	t.Run("rejects a taken name without a second notice", func(t *testing.T) {
		req := require.New(t)
		f := newFixture(false)
		_, err := f.presence.Join(ctx, domain.JoinCommand{Name: "alice"})
		req.NoError(err)

		// When
		f.clock.Advance(time.Second)
		_, err = f.presence.Join(ctx, domain.JoinCommand{Name: "alice"})

		// Then
		req.ErrorIs(err, errors.ErrConflict)
		req.Len(f.allMessages(t), 1)
		participants, err := f.presence.ListParticipants(ctx)
		req.NoError(err)
		req.Equal(start.UnixMilli(), participants[0].LastStatus())
	})

	t.Run("names are case sensitive", func(t *testing.T) {
		req := require.New(t)
		f := newFixture(false)

		_, err := f.presence.Join(ctx, domain.JoinCommand{Name: "alice"})
		req.NoError(err)
		_, err = f.presence.Join(ctx, domain.JoinCommand{Name: "Alice"})
		req.NoError(err)

		participants, err := f.presence.ListParticipants(ctx)
		req.NoError(err)
		req.Equal([]string{"Alice", "alice"}, names(participants))
		req.Len(f.allMessages(t), 2)
	})

	t.Run("concurrent joins of one name have a single winner", func(t *testing.T) {
		req := require.New(t)
		f := newFixture(false)
		var successes, conflicts atomic.Int32
		var wg sync.WaitGroup

		// When
		for i := 0; i < 20; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				_, err := f.presence.Join(ctx, domain.JoinCommand{Name: "bob"})
				switch {
				case err == nil:
					successes.Add(1)
				case stderrors.Is(err, errors.ErrConflict):
					conflicts.Add(1)
				}
			}()
		}
		wg.Wait()

		// Then
		req.Equal(int32(1), successes.Load())
		req.Equal(int32(19), conflicts.Load())
		req.Len(f.allMessages(t), 1)
	})
}

func TestPresenceService_Join_StorageFailures(t *testing.T) {
	ctx := context.Background()
	log := logs.GetLoggerFromLevel(slog.LevelDebug)
	clock := domain.NewManualClock(start)

	t.Run("insert failure is opaque", func(t *testing.T) {
		req := require.New(t)
		ctrl := gomock.NewController(t)
		participantRepo := mocks.NewMockIParticipantRepository(ctrl)
		messageRepo := mocks.NewMockIMessageRepository(ctrl)
		service := NewPresenceService(participantRepo, messageRepo, NewRoster(), clock, log)

		participantRepo.EXPECT().InsertIfAbsent(gomock.Any(), gomock.Any()).Return(false, stderrors.New("disk on fire"))

		_, err := service.Join(ctx, domain.JoinCommand{Name: "alice"})

		req.ErrorIs(err, errors.ErrStorageUnavailable)
		req.NotContains(err.Error(), "disk on fire")
	})

	t.Run("notice failure rolls the participant back", func(t *testing.T) {
		req := require.New(t)
		ctrl := gomock.NewController(t)
		participantRepo := mocks.NewMockIParticipantRepository(ctrl)
		messageRepo := mocks.NewMockIMessageRepository(ctrl)
		service := NewPresenceService(participantRepo, messageRepo, NewRoster(), clock, log)

		gomock.InOrder(
			participantRepo.EXPECT().InsertIfAbsent(gomock.Any(), domain.NewParticipant("alice", start)).Return(true, nil),
			messageRepo.EXPECT().Append(gomock.Any(), gomock.Any()).Return(stderrors.New("log full")),
			participantRepo.EXPECT().Delete(gomock.Any(), "alice").Return(nil),
		)

		_, err := service.Join(ctx, domain.JoinCommand{Name: "alice"})

		req.ErrorIs(err, errors.ErrStorageUnavailable)
	})
}

func TestPresenceService_Heartbeat(t *testing.T) {
	ctx := context.Background()

	t.Run("refreshes the last signal without emitting a message", func(t *testing.T) {
		req := require.New(t)
		f := newFixture(false)
		_, err := f.presence.Join(ctx, domain.JoinCommand{Name: "alice"})
		req.NoError(err)

		// When
		f.clock.Advance(7 * time.Second)
		err = f.presence.Heartbeat(ctx, domain.HeartbeatCommand{Name: "alice"})

		// Then
		req.NoError(err)
		participants, err := f.presence.ListParticipants(ctx)
		req.NoError(err)
		req.Equal(start.Add(7*time.Second).UnixMilli(), participants[0].LastStatus())
		req.Len(f.allMessages(t), 1)
	})

	t.Run("unknown participant", func(t *testing.T) {
		req := require.New(t)
		f := newFixture(false)

		err := f.presence.Heartbeat(ctx, domain.HeartbeatCommand{Name: "ghost"})

		req.ErrorIs(err, errors.ErrNotFound)
	})

	t.Run("waits for a join in progress", func(t *testing.T) {
		req := require.New(t)
		ctrl := gomock.NewController(t)
		participantRepo := mocks.NewMockIParticipantRepository(ctrl)
		messageRepo := mocks.NewMockIMessageRepository(ctrl)
		service := NewPresenceService(participantRepo, messageRepo, NewRoster(), domain.NewManualClock(start), logs.GetLoggerFromLevel(slog.LevelDebug))

		inserting := make(chan struct{})
		release := make(chan struct{})
		var joinDone, touchedAfterJoin atomic.Bool
		participantRepo.EXPECT().InsertIfAbsent(gomock.Any(), gomock.Any()).
			DoAndReturn(func(context.Context, domain.Participant) (bool, error) {
				close(inserting)
				<-release
				return true, nil
			})
		messageRepo.EXPECT().Append(gomock.Any(), gomock.Any()).
			DoAndReturn(func(context.Context, domain.Message) error {
				joinDone.Store(true)
				return nil
			})
		participantRepo.EXPECT().Touch(gomock.Any(), "alice", start).
			DoAndReturn(func(context.Context, string, time.Time) (bool, error) {
				touchedAfterJoin.Store(joinDone.Load())
				return true, nil
			})

		// Given a join blocked between the insert and its notice
		joined := make(chan error, 1)
		go func() {
			_, err := service.Join(ctx, domain.JoinCommand{Name: "alice"})
			joined <- err
		}()
		<-inserting

		// When a heartbeat for the same name arrives
		beat := make(chan error, 1)
		go func() { beat <- service.Heartbeat(ctx, domain.HeartbeatCommand{Name: "alice"}) }()
		select {
		case <-beat:
			req.Fail("Heartbeat should wait for the join to finish")
		case <-time.After(50 * time.Millisecond):
		}
		close(release)

		// Then the refresh only ran once the join notice existed
		req.NoError(<-joined)
		req.NoError(<-beat)
		req.True(touchedAfterJoin.Load())
	})

	t.Run("missing name", func(t *testing.T) {
		req := require.New(t)
		f := newFixture(false)

		err := f.presence.Heartbeat(ctx, domain.HeartbeatCommand{})

		req.ErrorIs(err, errors.ErrInvalidInput)
	})
}

func TestPresenceService_Evict(t *testing.T) {
	ctx := context.Background()

	t.Run("stale participant leaves with a notice", func(t *testing.T) {
		req := require.New(t)
		f := newFixture(false)
		_, err := f.presence.Join(ctx, domain.JoinCommand{Name: "alice"})
		req.NoError(err)
		f.clock.Advance(11 * time.Second)

		// When
		evicted, err := f.presence.Evict(ctx, "alice", domain.InactivityCutoff(f.clock.Now(), 10*time.Second))

		// Then
		req.NoError(err)
		req.True(evicted)
		participants, err := f.presence.ListParticipants(ctx)
		req.NoError(err)
		req.Empty(participants)
		messages := f.allMessages(t)
		req.Len(messages, 2)
		req.Equal(domain.LeaveNoticeText, messages[1].Text)
		req.Equal(domain.StatusMessage, messages[1].Type)
		req.Equal("12:00:11", messages[1].Time)
	})

	t.Run("heartbeat after the snapshot keeps the participant", func(t *testing.T) {
		req := require.New(t)
		f := newFixture(false)
		_, err := f.presence.Join(ctx, domain.JoinCommand{Name: "alice"})
		req.NoError(err)
		f.clock.Advance(11 * time.Second)
		cutoff := domain.InactivityCutoff(f.clock.Now(), 10*time.Second)
		req.NoError(f.presence.Heartbeat(ctx, domain.HeartbeatCommand{Name: "alice"}))

		// When
		evicted, err := f.presence.Evict(ctx, "alice", cutoff)

		// Then
		req.NoError(err)
		req.False(evicted)
		req.Len(f.allMessages(t), 1)
	})

	t.Run("already gone is a silent no-op", func(t *testing.T) {
		req := require.New(t)
		f := newFixture(false)

		evicted, err := f.presence.Evict(ctx, "ghost", start)

		req.NoError(err)
		req.False(evicted)
		req.Empty(f.allMessages(t))
	})

	t.Run("eviction stands when the notice cannot be written", func(t *testing.T) {
		req := require.New(t)
		ctrl := gomock.NewController(t)
		participantRepo := mocks.NewMockIParticipantRepository(ctrl)
		messageRepo := mocks.NewMockIMessageRepository(ctrl)
		service := NewPresenceService(participantRepo, messageRepo, NewRoster(), domain.NewManualClock(start), logs.GetLoggerFromLevel(slog.LevelDebug))

		participantRepo.EXPECT().DeleteIfInactive(gomock.Any(), "alice", start).Return(true, nil)
		messageRepo.EXPECT().Append(gomock.Any(), gomock.Any()).Return(stderrors.New("log full"))

		evicted, err := service.Evict(ctx, "alice", start)

		req.ErrorIs(err, errors.ErrLeaveNoticeLost)
		req.NotErrorIs(err, errors.ErrStorageUnavailable)
		req.True(evicted)
	})

	t.Run("delete failure is reported", func(t *testing.T) {
		req := require.New(t)
		ctrl := gomock.NewController(t)
		participantRepo := mocks.NewMockIParticipantRepository(ctrl)
		messageRepo := mocks.NewMockIMessageRepository(ctrl)
		service := NewPresenceService(participantRepo, messageRepo, NewRoster(), domain.NewManualClock(start), logs.GetLoggerFromLevel(slog.LevelDebug))

		participantRepo.EXPECT().DeleteIfInactive(gomock.Any(), "alice", start).Return(false, stderrors.New("io"))

		evicted, err := service.Evict(ctx, "alice", start)

		req.ErrorIs(err, errors.ErrStorageUnavailable)
		req.False(evicted)
	})
}

func names(participants []domain.Participant) []string {
	return lo.Map(participants, func(p domain.Participant, _ int) string { return p.Name })
}
