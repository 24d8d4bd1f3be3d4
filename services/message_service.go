//go:generate go run go.uber.org/mock/mockgen -source=message_service.go -destination=../mocks/mock_message_service.go -package=mocks
package services

import (
	"chat-presence/contract"
	"chat-presence/domain"
	"chat-presence/errors"
	"chat-presence/validation"
	"context"
	"fmt"
	"log/slog"
	"strconv"

	"github.com/google/uuid"
)

type IMessageService interface {
	PostMessage(ctx context.Context, cmd domain.PostMessageCommand) (domain.Message, error)
	ListMessages(ctx context.Context, cmd domain.ListMessagesCommand) ([]domain.Message, error)
}

type MessageService struct {
	participants contract.IParticipantRepository
	messages     contract.IMessageRepository
	roster       *Roster
	clock        domain.Clock
	includeSent  bool
	log          *slog.Logger
}

func NewMessageService(
	participants contract.IParticipantRepository,
	messages contract.IMessageRepository,
	roster *Roster,
	clock domain.Clock,
	includeSent bool,
	log *slog.Logger,
) *MessageService {
	return &MessageService{
		participants: participants,
		messages:     messages,
		roster:       roster,
		clock:        clock,
		includeSent:  includeSent,
		log:          log,
	}
}

func (s *MessageService) PostMessage(ctx context.Context, cmd domain.PostMessageCommand) (domain.Message, error) {
	if err := validation.Struct(cmd); err != nil {
		return domain.Message{}, err
	}
	var message domain.Message
	// Holding the read side keeps an eviction from landing between the check and the append
	err := s.roster.Read(func() error {
		exists, err := s.participants.Exists(ctx, cmd.From)
		if err != nil {
			s.log.Error("Unable to check sender", "name", cmd.From, "error", err)
			return errors.ErrStorageUnavailable
		}
		if !exists {
			return fmt.Errorf("%w: %s", errors.ErrUnauthorized, cmd.From)
		}
		message = domain.Message{
			ID:   uuid.New(),
			From: cmd.From,
			To:   cmd.To,
			Text: cmd.Text,
			Type: cmd.Type,
			Time: domain.FormatTime(s.clock.Now()),
		}
		if err = s.messages.Append(ctx, message); err != nil {
			s.log.Error("Unable to append message", "name", cmd.From, "error", err)
			return errors.ErrStorageUnavailable
		}
		return nil
	})
	if err != nil {
		return domain.Message{}, err
	}
	return message, nil
}

// ListMessages returns what cmd.Viewer may read, keeping only the last cmd.Limit entries when set.
func (s *MessageService) ListMessages(ctx context.Context, cmd domain.ListMessagesCommand) ([]domain.Message, error) {
	if err := validation.Struct(cmd); err != nil {
		return nil, err
	}
	filter := contract.MessageFilter{Viewer: cmd.Viewer, IncludeSent: s.includeSent}
	if cmd.Limit != nil {
		limit, err := strconv.Atoi(*cmd.Limit)
		if err != nil || limit < 0 {
			return nil, errors.NewValidationError(errors.FieldError{
				Field:   "limit",
				Rule:    "number",
				Message: "limit must be a non-negative integer",
			})
		}
		filter.Last = &limit
	}
	var messages []domain.Message
	err := s.roster.Read(func() error {
		var err error
		messages, err = s.messages.Find(ctx, filter)
		return err
	})
	if err != nil {
		s.log.Error("Unable to read messages", "name", cmd.Viewer, "error", err)
		return nil, errors.ErrStorageUnavailable
	}
	return messages, nil
}
