package outbox

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/danielvega/portfolio-backend/pkg/db/models"
	"github.com/danielvega/portfolio-backend/pkg/events"
	"github.com/danielvega/portfolio-backend/pkg/logger"
)

// Writer converts events buffered on aggregates into outbox rows inside
// the caller's transaction. The rows commit or roll back together with
// the state change that raised them.
type Writer struct {
	repo *Repository
	logg *logger.Logger
}

func NewWriter(repo *Repository, logg *logger.Logger) *Writer {
	return &Writer{repo: repo, logg: logg}
}

// Persist drains the pending events of each source, serializes them into
// outbox rows in the supplied transaction, and clears the buffers. Buffers
// are cleared even when a source had no events; a failed insert leaves the
// transaction for the caller to roll back.
func (w *Writer) Persist(ctx context.Context, tx *gorm.DB, sources ...events.Source) error {
	if tx == nil {
		return errors.New("transaction required")
	}
	if ctx == nil {
		ctx = context.Background()
	}
	for _, source := range sources {
		if source == nil {
			continue
		}
		for _, event := range source.PendingEvents() {
			content, err := json.Marshal(event)
			if err != nil {
				return fmt.Errorf("marshal %s: %w", event.EventType(), err)
			}
			row := models.OutboxMessage{
				ID:            uuid.New(),
				OccurredOnUTC: time.Now().UTC(),
				EventType:     event.EventType(),
				Content:       json.RawMessage(content),
			}
			if err := w.repo.InsertTx(tx, row); err != nil {
				return fmt.Errorf("insert outbox row %s: %w", event.EventType(), err)
			}
			if w.logg != nil {
				fields := map[string]any{
					"outbox_id":  row.ID.String(),
					"event_type": row.EventType,
				}
				w.logg.Info(w.logg.WithFields(ctx, fields), "outbox message queued")
			}
		}
		source.ClearEvents()
	}
	return nil
}
