package storage

import (
	"chat-presence/domain"
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type ParticipantRepository struct {
	db *gorm.DB
}

func NewParticipantRepository(db *gorm.DB) *ParticipantRepository {
	return &ParticipantRepository{db: db}
}

// InsertIfAbsent relies on the primary key: a conflicting insert affects no row.
func (r *ParticipantRepository) InsertIfAbsent(ctx context.Context, participant domain.Participant) (bool, error) {
	row := ParticipantModel{Name: participant.Name, LastStatus: participant.LastStatus()}
	result := r.db.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(&row)
	if err := result.Error; err != nil {
		return false, fmt.Errorf("failed to insert participant: %w", err)
	}
	return result.RowsAffected == 1, nil
}

func (r *ParticipantRepository) Touch(ctx context.Context, name string, at time.Time) (bool, error) {
	result := r.db.WithContext(ctx).Model(&ParticipantModel{}).
		Where("name = ?", name).
		Update("last_status", at.UnixMilli())
	if err := result.Error; err != nil {
		return false, fmt.Errorf("failed to touch participant: %w", err)
	}
	return result.RowsAffected > 0, nil
}

func (r *ParticipantRepository) Exists(ctx context.Context, name string) (bool, error) {
	var count int64
	if err := r.db.WithContext(ctx).Model(&ParticipantModel{}).Where("name = ?", name).Count(&count).Error; err != nil {
		return false, fmt.Errorf("failed to check participant: %w", err)
	}
	return count > 0, nil
}

func (r *ParticipantRepository) List(ctx context.Context) ([]domain.Participant, error) {
	var rows []ParticipantModel
	if err := r.db.WithContext(ctx).Order("name").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to list participants: %w", err)
	}
	participants := make([]domain.Participant, 0, len(rows))
	for _, row := range rows {
		participants = append(participants, domain.NewParticipant(row.Name, time.UnixMilli(row.LastStatus)))
	}
	return participants, nil
}

// DeleteIfInactive puts the cutoff in the WHERE clause so a concurrent heartbeat wins.
func (r *ParticipantRepository) DeleteIfInactive(ctx context.Context, name string, cutoff time.Time) (bool, error) {
	result := r.db.WithContext(ctx).
		Where("name = ? AND last_status < ?", name, cutoff.UnixMilli()).
		Delete(&ParticipantModel{})
	if err := result.Error; err != nil {
		return false, fmt.Errorf("failed to evict participant: %w", err)
	}
	return result.RowsAffected == 1, nil
}

func (r *ParticipantRepository) Delete(ctx context.Context, name string) error {
	if err := r.db.WithContext(ctx).Where("name = ?", name).Delete(&ParticipantModel{}).Error; err != nil {
		return fmt.Errorf("failed to delete participant: %w", err)
	}
	return nil
}
