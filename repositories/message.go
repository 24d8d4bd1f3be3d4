package repositories

import (
	"chat-presence/contract"
	"chat-presence/domain"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/dgraph-io/badger/v4"
	"github.com/google/uuid"
	"github.com/samber/lo"
)

const (
	messagePrefix    = "message:"
	messageSeqKey    = "seq:message"
	messageSeqLeased = 100
)

type MessageRepository struct {
	db  *badger.DB
	seq *badger.Sequence
	log *slog.Logger
}

// NewMessageRepository leases a monotonic sequence used to order the log.
// Call Close before closing the database to hand back unused leases.
func NewMessageRepository(db *badger.DB, log *slog.Logger) (*MessageRepository, error) {
	seq, err := db.GetSequence([]byte(messageSeqKey), messageSeqLeased)
	if err != nil {
		return nil, fmt.Errorf("unable to lease message sequence: %w", err)
	}
	return &MessageRepository{db: db, seq: seq, log: log}, nil
}

type DiskMessage struct {
	ID   string `json:"id"`
	From string `json:"from"`
	To   string `json:"to"`
	Text string `json:"text"`
	Type string `json:"type"`
	Time string `json:"time"`
}

func messageKey(position uint64) []byte {
	return []byte(fmt.Sprintf("%s%020d", messagePrefix, position))
}

// Append persists a message under "message:{position}".
// The 20-digit zero padding keeps lexicographical order equal to append order.
func (m *MessageRepository) Append(_ context.Context, message domain.Message) error {
	position, err := m.seq.Next()
	if err != nil {
		return err
	}
	bytes, err := json.Marshal(fromMessage(message))
	if err != nil {
		return err
	}
	return m.db.Update(func(txn *badger.Txn) error {
		return txn.Set(messageKey(position), bytes)
	})
}

// Find scans the log forward, or backward from the newest key when filter.Last is set,
// so that a bounded read stops as soon as enough matches are collected.
func (m *MessageRepository) Find(_ context.Context, filter contract.MessageFilter) ([]domain.Message, error) {
	if filter.Last != nil && *filter.Last <= 0 {
		return []domain.Message{}, nil
	}
	messages := make([]domain.Message, 0)
	err := m.db.View(func(txn *badger.Txn) error {
		prefix := []byte(messagePrefix)
		options := badger.DefaultIteratorOptions
		options.Reverse = filter.Last != nil
		it := txn.NewIterator(options)
		defer it.Close()

		seekKey := prefix
		if options.Reverse {
			// Past every padded position: message:~ sorts after any digit
			seekKey = append([]byte(messagePrefix), '~')
		}

		for it.Seek(seekKey); it.ValidForPrefix(prefix); it.Next() {
			if filter.Last != nil && len(messages) == *filter.Last {
				m.log.Debug(fmt.Sprintf("Maximum of %d message reached", *filter.Last))
				break
			}
			var dm DiskMessage
			err := it.Item().Value(func(val []byte) error {
				return json.Unmarshal(val, &dm)
			})
			if err != nil {
				return err
			}
			message, err := toMessage(dm)
			if err != nil {
				return err
			}
			if filter.Match(message) {
				messages = append(messages, message)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	if filter.Last != nil {
		return lo.Reverse(messages), nil
	}
	return messages, nil
}

func (m *MessageRepository) Close() error {
	return m.seq.Release()
}

func fromMessage(message domain.Message) DiskMessage {
	return DiskMessage{
		ID:   message.ID.String(),
		From: message.From,
		To:   message.To,
		Text: message.Text,
		Type: string(message.Type),
		Time: message.Time,
	}
}

func toMessage(dm DiskMessage) (domain.Message, error) {
	parsedID, err := uuid.Parse(dm.ID)
	if err != nil {
		return domain.Message{}, err
	}
	return domain.Message{
		ID:   parsedID,
		From: dm.From,
		To:   dm.To,
		Text: dm.Text,
		Type: domain.MessageType(dm.Type),
		Time: dm.Time,
	}, nil
}
