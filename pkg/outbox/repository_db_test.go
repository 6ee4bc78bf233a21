//go:build db
// +build db

package outbox

import (
	"encoding/json"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/danielvega/portfolio-backend/pkg/db/models"
	"github.com/danielvega/portfolio-backend/pkg/events"
)

func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := os.Getenv("PORTFOLIO_DB_DSN")
	if dsn == "" {
		t.Skip("PORTFOLIO_DB_DSN is not set")
	}

	conn, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("failed to open test db: %v", err)
	}
	return conn
}

func seedPendingAt(t *testing.T, tx *gorm.DB, occurred time.Time) models.OutboxMessage {
	t.Helper()
	row := models.OutboxMessage{
		ID:            uuid.New(),
		OccurredOnUTC: occurred,
		EventType:     events.TypeTagCreated,
		Content:       json.RawMessage(`{"tagId":"` + uuid.NewString() + `","name":"db-test"}`),
	}
	if err := tx.Create(&row).Error; err != nil {
		t.Fatalf("seed row: %v", err)
	}
	return row
}

func TestClaimPending_OrderAndLimit(t *testing.T) {
	conn := openTestDB(t)
	tx := conn.Begin()
	if tx.Error != nil {
		t.Fatalf("begin tx: %v", tx.Error)
	}
	t.Cleanup(func() {
		_ = tx.Rollback()
	})

	// Park any leftover pending rows so only this test's seeds are claimable.
	if err := tx.Model(&models.OutboxMessage{}).
		Where("processed_on_utc IS NULL").
		Update("processed_on_utc", time.Now().UTC()).Error; err != nil {
		t.Fatalf("park pending rows: %v", err)
	}

	repo := NewRepository(tx)
	base := time.Now().UTC()
	third := seedPendingAt(t, tx, base.Add(2*time.Second))
	first := seedPendingAt(t, tx, base)
	second := seedPendingAt(t, tx, base.Add(time.Second))

	claimed, err := repo.ClaimPending(tx, 2)
	if err != nil {
		t.Fatalf("claim: %v", err)
	}
	if len(claimed) != 2 {
		t.Fatalf("expected 2 claimed rows, got %d", len(claimed))
	}
	if claimed[0].ID != first.ID || claimed[1].ID != second.ID {
		t.Fatalf("expected oldest-first claim, got %s then %s", claimed[0].ID, claimed[1].ID)
	}
	_ = third
}

func TestClaimPending_SkipsRowsLockedElsewhere(t *testing.T) {
	conn := openTestDB(t)

	setup := conn.Begin()
	if setup.Error != nil {
		t.Fatalf("begin setup tx: %v", setup.Error)
	}
	row := seedPendingAt(t, setup, time.Now().UTC())
	if err := setup.Commit().Error; err != nil {
		t.Fatalf("commit setup: %v", err)
	}
	t.Cleanup(func() {
		conn.Where("id = ?", row.ID).Delete(&models.OutboxMessage{})
	})

	holder := conn.Begin()
	if holder.Error != nil {
		t.Fatalf("begin holder tx: %v", holder.Error)
	}
	t.Cleanup(func() {
		_ = holder.Rollback()
	})
	holderRepo := NewRepository(holder)
	held, err := holderRepo.ClaimPending(holder, 100)
	if err != nil {
		t.Fatalf("holder claim: %v", err)
	}
	var holderHasRow bool
	for _, got := range held {
		if got.ID == row.ID {
			holderHasRow = true
		}
	}
	if !holderHasRow {
		t.Fatal("holder should claim the seeded row")
	}

	competitor := conn.Begin()
	if competitor.Error != nil {
		t.Fatalf("begin competitor tx: %v", competitor.Error)
	}
	t.Cleanup(func() {
		_ = competitor.Rollback()
	})
	competitorRepo := NewRepository(competitor)
	claimed, err := competitorRepo.ClaimPending(competitor, 10)
	if err != nil {
		t.Fatalf("competitor claim: %v", err)
	}
	for _, got := range claimed {
		if got.ID == row.ID {
			t.Fatal("locked row must be skipped by a second claimer")
		}
	}
}
