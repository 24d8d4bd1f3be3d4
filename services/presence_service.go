//go:generate go run go.uber.org/mock/mockgen -source=presence_service.go -destination=../mocks/mock_presence_service.go -package=mocks
package services

import (
	"chat-presence/contract"
	"chat-presence/domain"
	"chat-presence/errors"
	"chat-presence/validation"
	"context"
	"fmt"
	"log/slog"
	"time"
)

type IPresenceService interface {
	Join(ctx context.Context, cmd domain.JoinCommand) (domain.Participant, error)
	Heartbeat(ctx context.Context, cmd domain.HeartbeatCommand) error
	ListParticipants(ctx context.Context) ([]domain.Participant, error)
	Evict(ctx context.Context, name string, cutoff time.Time) (bool, error)
}

type PresenceService struct {
	participants contract.IParticipantRepository
	messages     contract.IMessageRepository
	roster       *Roster
	clock        domain.Clock
	log          *slog.Logger
}

func NewPresenceService(
	participants contract.IParticipantRepository,
	messages contract.IMessageRepository,
	roster *Roster,
	clock domain.Clock,
	log *slog.Logger,
) *PresenceService {
	return &PresenceService{
		participants: participants,
		messages:     messages,
		roster:       roster,
		clock:        clock,
		log:          log,
	}
}

func (s *PresenceService) Join(ctx context.Context, cmd domain.JoinCommand) (domain.Participant, error) {
	if err := validation.Struct(cmd); err != nil {
		return domain.Participant{}, err
	}
	var participant domain.Participant
	err := s.roster.Write(func() error {
		now := s.clock.Now()
		participant = domain.NewParticipant(cmd.Name, now)

		// 1. Claim the name, the repository guarantees a single winner
		inserted, err := s.participants.InsertIfAbsent(ctx, participant)
		if err != nil {
			return s.storageFailure("Unable to register participant", cmd.Name, err)
		}
		if !inserted {
			return fmt.Errorf("%w: %s", errors.ErrConflict, cmd.Name)
		}

		// 2. Announce the arrival; without the notice the participant must not exist
		if err = s.messages.Append(ctx, domain.NewJoinNotice(cmd.Name, s.clock)); err != nil {
			if delErr := s.participants.Delete(ctx, cmd.Name); delErr != nil {
				s.log.Error("Unable to roll back participant", "name", cmd.Name, "error", delErr)
			}
			return s.storageFailure("Unable to append join notice", cmd.Name, err)
		}
		return nil
	})
	if err != nil {
		return domain.Participant{}, err
	}
	s.log.Info("Participant joined", "name", participant.Name)
	return participant, nil
}

func (s *PresenceService) Heartbeat(ctx context.Context, cmd domain.HeartbeatCommand) error {
	if err := validation.Struct(cmd); err != nil {
		return err
	}
	var found bool
	err := s.roster.Read(func() error {
		var err error
		found, err = s.participants.Touch(ctx, cmd.Name, s.clock.Now())
		return err
	})
	if err != nil {
		return s.storageFailure("Unable to refresh participant", cmd.Name, err)
	}
	if !found {
		return fmt.Errorf("%w: %s", errors.ErrNotFound, cmd.Name)
	}
	s.log.Debug("Heartbeat received", "name", cmd.Name)
	return nil
}

func (s *PresenceService) ListParticipants(ctx context.Context) ([]domain.Participant, error) {
	var participants []domain.Participant
	err := s.roster.Read(func() error {
		var err error
		participants, err = s.participants.List(ctx)
		return err
	})
	if err != nil {
		return nil, s.storageFailure("Unable to list participants", "", err)
	}
	return participants, nil
}

// Evict removes name if its last signal is still older than cutoff and announces the departure.
// A participant that sent a heartbeat since the caller's snapshot is left alone and false is returned.
// Once the participant is gone the eviction stands even if the leave notice cannot be written,
// in which case true is returned together with ErrLeaveNoticeLost.
func (s *PresenceService) Evict(ctx context.Context, name string, cutoff time.Time) (bool, error) {
	var evicted bool
	err := s.roster.Write(func() error {
		deleted, err := s.participants.DeleteIfInactive(ctx, name, cutoff)
		if err != nil {
			return s.storageFailure("Unable to evict participant", name, err)
		}
		if !deleted {
			return nil
		}
		evicted = true
		if err = s.messages.Append(ctx, domain.NewLeaveNotice(name, s.clock)); err != nil {
			s.log.Error("Participant evicted without leave notice", "name", name, "error", err)
			return fmt.Errorf("%w: %s", errors.ErrLeaveNoticeLost, name)
		}
		return nil
	})
	if evicted {
		s.log.Info("Participant evicted", "name", name)
	}
	return evicted, err
}

// storageFailure logs the cause and hides it behind ErrStorageUnavailable.
func (s *PresenceService) storageFailure(msg, name string, err error) error {
	s.log.Error(msg, "name", name, "error", err)
	return errors.ErrStorageUnavailable
}
