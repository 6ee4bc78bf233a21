package outbox

import (
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/danielvega/portfolio-backend/pkg/db/models"
)

type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

func (r *Repository) InsertTx(tx *gorm.DB, message models.OutboxMessage) error {
	if tx == nil {
		return errors.New("transaction required")
	}
	return tx.Create(&message).Error
}

// ClaimPending locks up to limit unprocessed rows for the calling
// transaction. Rows already locked by a concurrent dispatcher are
// skipped, so two dispatchers never claim the same message.
func (r *Repository) ClaimPending(tx *gorm.DB, limit int) ([]models.OutboxMessage, error) {
	if tx == nil {
		return nil, errors.New("transaction required")
	}
	var rows []models.OutboxMessage
	err := tx.Clauses(clause.Locking{Strength: "UPDATE", Options: "SKIP LOCKED"}).
		Where("processed_on_utc IS NULL").
		Order("occurred_on_utc ASC").
		Order("id ASC").
		Limit(limit).
		Find(&rows).Error
	return rows, err
}

// MarkProcessedTx stamps the row as processed. A non-nil dispatchErr is
// recorded alongside the stamp; the row is never picked up again either
// way.
func (r *Repository) MarkProcessedTx(tx *gorm.DB, id uuid.UUID, dispatchErr error) error {
	if tx == nil {
		return errors.New("transaction required")
	}
	updates := map[string]any{
		"processed_on_utc": time.Now().UTC(),
	}
	if dispatchErr != nil {
		updates["error"] = dispatchErr.Error()
	}
	return tx.Model(&models.OutboxMessage{}).
		Where("id = ?", id).
		Updates(updates).Error
}

// DeleteProcessedBefore removes processed rows older than the cutoff and
// returns how many were deleted.
func (r *Repository) DeleteProcessedBefore(cutoff time.Time) (int64, error) {
	res := r.db.
		Where("processed_on_utc IS NOT NULL AND processed_on_utc < ?", cutoff).
		Delete(&models.OutboxMessage{})
	return res.RowsAffected, res.Error
}

// CountPending reports the number of rows awaiting dispatch.
func (r *Repository) CountPending() (int64, error) {
	var count int64
	err := r.db.Model(&models.OutboxMessage{}).
		Where("processed_on_utc IS NULL").
		Count(&count).Error
	return count, err
}
