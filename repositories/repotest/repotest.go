// Package repotest holds the behaviour every repository backend must share.
// Each backend test calls the Run functions with a constructor for a fresh store.
package repotest

import (
	"chat-presence/contract"
	"chat-presence/domain"
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/samber/lo"
	"github.com/stretchr/testify/require"
)

var epoch = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

func RunParticipantRepository(t *testing.T, newRepo func(t *testing.T) contract.IParticipantRepository) {
	ctx := context.Background()

	t.Run("insert if absent refuses a taken name", func(t *testing.T) {
		req := require.New(t)
		repo := newRepo(t)

		// When
		first, err := repo.InsertIfAbsent(ctx, domain.NewParticipant("alice", epoch))
		req.NoError(err)
		second, err := repo.InsertIfAbsent(ctx, domain.NewParticipant("alice", epoch.Add(time.Second)))
		req.NoError(err)

		// Then
		req.True(first)
		req.False(second)
		participants, err := repo.List(ctx)
		req.NoError(err)
		req.Len(participants, 1)
		req.Equal(epoch.UnixMilli(), participants[0].LastStatus())
	})

	t.Run("concurrent inserts of one name have a single winner", func(t *testing.T) {
		req := require.New(t)
		repo := newRepo(t)
		var winners atomic.Int32
		var wg sync.WaitGroup

		// When
		for i := 0; i < 16; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				ok, err := repo.InsertIfAbsent(ctx, domain.NewParticipant("bob", epoch))
				if err == nil && ok {
					winners.Add(1)
				}
			}()
		}
		wg.Wait()

		// Then
		req.Equal(int32(1), winners.Load())
		participants, err := repo.List(ctx)
		req.NoError(err)
		req.Len(participants, 1)
	})

	t.Run("touch refreshes only existing participants", func(t *testing.T) {
		req := require.New(t)
		repo := newRepo(t)
		_, err := repo.InsertIfAbsent(ctx, domain.NewParticipant("carol", epoch))
		req.NoError(err)

		// When
		found, err := repo.Touch(ctx, "carol", epoch.Add(5*time.Second))
		req.NoError(err)
		missing, err := repo.Touch(ctx, "ghost", epoch)
		req.NoError(err)

		// Then
		req.True(found)
		req.False(missing)
		participants, err := repo.List(ctx)
		req.NoError(err)
		req.Len(participants, 1)
		req.Equal(epoch.Add(5*time.Second).UnixMilli(), participants[0].LastStatus())
		exists, err := repo.Exists(ctx, "ghost")
		req.NoError(err)
		req.False(exists)
	})

	t.Run("concurrent touches of one name all succeed", func(t *testing.T) {
		req := require.New(t)
		repo := newRepo(t)
		_, err := repo.InsertIfAbsent(ctx, domain.NewParticipant("dave", epoch))
		req.NoError(err)
		var touched, failed atomic.Int32
		var wg sync.WaitGroup

		// When 64 heartbeats land at once, mixed with sweeps that must leave dave alone
		for i := 1; i <= 64; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				found, err := repo.Touch(ctx, "dave", epoch.Add(time.Duration(i)*time.Second))
				switch {
				case err != nil:
					failed.Add(1)
				case found:
					touched.Add(1)
				}
				if i%8 == 0 {
					if _, err := repo.DeleteIfInactive(ctx, "dave", epoch); err != nil {
						failed.Add(1)
					}
				}
			}()
		}
		wg.Wait()

		// Then
		req.Zero(failed.Load())
		req.Equal(int32(64), touched.Load())
		participants, err := repo.List(ctx)
		req.NoError(err)
		req.Len(participants, 1)
		req.True(participants[0].LastSeen.After(epoch))
	})

	t.Run("delete if inactive respects the cutoff", func(t *testing.T) {
		req := require.New(t)
		repo := newRepo(t)
		_, err := repo.InsertIfAbsent(ctx, domain.NewParticipant("stale", epoch))
		req.NoError(err)
		_, err = repo.InsertIfAbsent(ctx, domain.NewParticipant("fresh", epoch.Add(10*time.Second)))
		req.NoError(err)
		cutoff := epoch.Add(10 * time.Second)

		// When
		staleDeleted, err := repo.DeleteIfInactive(ctx, "stale", cutoff)
		req.NoError(err)
		freshDeleted, err := repo.DeleteIfInactive(ctx, "fresh", cutoff)
		req.NoError(err)
		againDeleted, err := repo.DeleteIfInactive(ctx, "stale", cutoff)
		req.NoError(err)

		// Then
		req.True(staleDeleted)
		req.False(freshDeleted)
		req.False(againDeleted)
		names := participantNames(t, repo)
		req.Equal([]string{"fresh"}, names)
	})

	t.Run("list is sorted by name and delete is idempotent", func(t *testing.T) {
		req := require.New(t)
		repo := newRepo(t)
		for _, name := range []string{"zoe", "adam", "mia"} {
			_, err := repo.InsertIfAbsent(ctx, domain.NewParticipant(name, epoch))
			req.NoError(err)
		}

		// When
		req.NoError(repo.Delete(ctx, "mia"))
		req.NoError(repo.Delete(ctx, "mia"))

		// Then
		req.Equal([]string{"adam", "zoe"}, participantNames(t, repo))
	})

	t.Run("empty store lists nothing", func(t *testing.T) {
		req := require.New(t)
		participants, err := newRepo(t).List(ctx)
		req.NoError(err)
		req.Empty(participants)
	})
}

func RunMessageRepository(t *testing.T, newRepo func(t *testing.T) contract.IMessageRepository) {
	ctx := context.Background()

	seed := func(t *testing.T, repo contract.IMessageRepository) []domain.Message {
		messages := []domain.Message{
			message("alice", domain.Broadcast, "hello", domain.PublicMessage),
			message("bob", "alice", "psst", domain.PrivateMessage),
			message("alice", "carol", "for carol", domain.PrivateMessage),
			message("carol", domain.Broadcast, "hi all", domain.PublicMessage),
			message("bob", "carol", "carol only", domain.PrivateMessage),
		}
		for _, m := range messages {
			require.NoError(t, repo.Append(ctx, m))
		}
		return messages
	}

	t.Run("find without viewer returns the log in order", func(t *testing.T) {
		req := require.New(t)
		repo := newRepo(t)
		messages := seed(t, repo)

		// When
		found, err := repo.Find(ctx, contract.MessageFilter{})

		// Then
		req.NoError(err)
		req.Equal(messages, found)
	})

	t.Run("viewer reads broadcasts and messages addressed to them", func(t *testing.T) {
		req := require.New(t)
		repo := newRepo(t)
		seed(t, repo)

		// When
		found, err := repo.Find(ctx, contract.MessageFilter{Viewer: "alice"})

		// Then
		req.NoError(err)
		req.Equal([]string{"hello", "psst", "hi all"}, texts(found))
	})

	t.Run("sent messages are included on demand", func(t *testing.T) {
		req := require.New(t)
		repo := newRepo(t)
		seed(t, repo)

		// When
		found, err := repo.Find(ctx, contract.MessageFilter{Viewer: "alice", IncludeSent: true})

		// Then
		req.NoError(err)
		req.Equal([]string{"hello", "psst", "for carol", "hi all"}, texts(found))
	})

	t.Run("last keeps the most recent matches in order", func(t *testing.T) {
		req := require.New(t)
		repo := newRepo(t)
		seed(t, repo)

		// When
		lastTwo, err := repo.Find(ctx, contract.MessageFilter{Viewer: "carol", Last: lo.ToPtr(2)})
		req.NoError(err)
		lastHundred, err := repo.Find(ctx, contract.MessageFilter{Viewer: "carol", Last: lo.ToPtr(100)})
		req.NoError(err)
		none, err := repo.Find(ctx, contract.MessageFilter{Viewer: "carol", Last: lo.ToPtr(0)})
		req.NoError(err)

		// Then
		req.Equal([]string{"hi all", "carol only"}, texts(lastTwo))
		req.Equal([]string{"hello", "for carol", "hi all", "carol only"}, texts(lastHundred))
		req.Empty(none)
	})

	t.Run("empty log finds nothing", func(t *testing.T) {
		req := require.New(t)
		found, err := newRepo(t).Find(ctx, contract.MessageFilter{Viewer: "alice", Last: lo.ToPtr(10)})
		req.NoError(err)
		req.Empty(found)
	})
}

func message(from, to, text string, messageType domain.MessageType) domain.Message {
	return domain.Message{
		ID:   uuid.New(),
		From: from,
		To:   to,
		Text: text,
		Type: messageType,
		Time: domain.FormatTime(epoch),
	}
}

func texts(messages []domain.Message) []string {
	return lo.Map(messages, func(m domain.Message, _ int) string { return m.Text })
}

func participantNames(t *testing.T, repo contract.IParticipantRepository) []string {
	participants, err := repo.List(context.Background())
	require.NoError(t, err)
	return lo.Map(participants, func(p domain.Participant, _ int) string { return p.Name })
}
