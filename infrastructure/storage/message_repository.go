package storage

import (
	"chat-presence/contract"
	"chat-presence/domain"
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/samber/lo"
	"gorm.io/gorm"
)

type MessageRepository struct {
	db *gorm.DB
}

func NewMessageRepository(db *gorm.DB) *MessageRepository {
	return &MessageRepository{db: db}
}

func (r *MessageRepository) Append(ctx context.Context, message domain.Message) error {
	row := fromMessage(message)
	if err := r.db.WithContext(ctx).Create(&row).Error; err != nil {
		return fmt.Errorf("failed to append message: %w", err)
	}
	return nil
}

// Find pushes the visibility rule into SQL. With filter.Last the newest rows are
// read first and flipped back into log order.
func (r *MessageRepository) Find(ctx context.Context, filter contract.MessageFilter) ([]domain.Message, error) {
	if filter.Last != nil && *filter.Last <= 0 {
		return []domain.Message{}, nil
	}
	query := r.db.WithContext(ctx).Model(&MessageModel{})
	if filter.Viewer != "" {
		visible := r.db.Where("recipient = ?", filter.Viewer).Or("recipient = ?", domain.Broadcast)
		if filter.IncludeSent {
			visible = visible.Or("sender = ?", filter.Viewer)
		}
		query = query.Where(visible)
	}
	if filter.Last != nil {
		query = query.Order("position desc").Limit(*filter.Last)
	} else {
		query = query.Order("position")
	}

	var rows []MessageModel
	if err := query.Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to find messages: %w", err)
	}
	if filter.Last != nil {
		rows = lo.Reverse(rows)
	}
	messages := make([]domain.Message, 0, len(rows))
	for _, row := range rows {
		message, err := toMessage(row)
		if err != nil {
			return nil, err
		}
		messages = append(messages, message)
	}
	return messages, nil
}

func fromMessage(message domain.Message) MessageModel {
	return MessageModel{
		ID:        message.ID.String(),
		Sender:    message.From,
		Recipient: message.To,
		Text:      message.Text,
		Type:      string(message.Type),
		Time:      message.Time,
	}
}

func toMessage(row MessageModel) (domain.Message, error) {
	parsedID, err := uuid.Parse(row.ID)
	if err != nil {
		return domain.Message{}, err
	}
	return domain.Message{
		ID:   parsedID,
		From: row.Sender,
		To:   row.Recipient,
		Text: row.Text,
		Type: domain.MessageType(row.Type),
		Time: row.Time,
	}, nil
}
