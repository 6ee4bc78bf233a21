package main

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/danielvega/portfolio-backend/pkg/config"
	"github.com/danielvega/portfolio-backend/pkg/db/models"
	"github.com/danielvega/portfolio-backend/pkg/events"
	"github.com/danielvega/portfolio-backend/pkg/logger"
)

type fakeDB struct {
	pingErr error
	txErr   error
}

func (f *fakeDB) Ping(context.Context) error { return f.pingErr }

func (f *fakeDB) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	if f.txErr != nil {
		return f.txErr
	}
	return fn(&gorm.DB{})
}

type markCall struct {
	id  uuid.UUID
	err error
}

type fakeRepo struct {
	rows     []models.OutboxMessage
	claimErr error
	markErr  error
	marks    []markCall
	pending  int64
}

func (f *fakeRepo) ClaimPending(tx *gorm.DB, limit int) ([]models.OutboxMessage, error) {
	if f.claimErr != nil {
		return nil, f.claimErr
	}
	if limit < len(f.rows) {
		return f.rows[:limit], nil
	}
	return f.rows, nil
}

func (f *fakeRepo) MarkProcessedTx(tx *gorm.DB, id uuid.UUID, dispatchErr error) error {
	if f.markErr != nil {
		return f.markErr
	}
	f.marks = append(f.marks, markCall{id: id, err: dispatchErr})
	return nil
}

func (f *fakeRepo) CountPending() (int64, error) { return f.pending, nil }

type fakeDecoder struct {
	failFor map[string]error
}

func (f *fakeDecoder) Decode(eventType string, content json.RawMessage) (events.Event, error) {
	if err, ok := f.failFor[eventType]; ok {
		return nil, err
	}
	return events.TagCreated{TagID: uuid.New(), Name: eventType}, nil
}

type fakePublisher struct {
	failFor   map[string]error
	published []events.Event
}

func (f *fakePublisher) Publish(ctx context.Context, event events.Event) error {
	if err, ok := f.failFor[event.EventType()]; ok {
		return err
	}
	f.published = append(f.published, event)
	return nil
}

func dispatcherTestLogger() *logger.Logger {
	return logger.New(logger.Options{ServiceName: "test", Output: io.Discard})
}

func newDispatcherService(t *testing.T, repo outboxRepository, decoder eventDecoder, pub eventPublisher) *Service {
	t.Helper()
	cfg := &config.Config{}
	cfg.Outbox.IntervalInSeconds = 1
	cfg.Outbox.BatchSize = 10

	service, err := NewService(ServiceParams{
		Config:     cfg,
		Logger:     dispatcherTestLogger(),
		DB:         &fakeDB{},
		Repository: repo,
		Registry:   decoder,
		Publisher:  pub,
	})
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	return service
}

func pendingRow(eventType string, occurred time.Time) models.OutboxMessage {
	return models.OutboxMessage{
		ID:            uuid.New(),
		OccurredOnUTC: occurred,
		EventType:     eventType,
		Content:       json.RawMessage(`{}`),
	}
}

func TestRunOnceDispatchesAndMarksEveryRow(t *testing.T) {
	base := time.Date(2026, 8, 20, 12, 0, 0, 0, time.UTC)
	repo := &fakeRepo{rows: []models.OutboxMessage{
		pendingRow("tag.created", base),
		pendingRow("tag.created", base.Add(time.Second)),
	}}
	pub := &fakePublisher{}
	service := newDispatcherService(t, repo, &fakeDecoder{}, pub)

	if err := service.runOnce(context.Background()); err != nil {
		t.Fatalf("run once: %v", err)
	}
	if len(pub.published) != 2 {
		t.Fatalf("expected 2 published events, got %d", len(pub.published))
	}
	if len(repo.marks) != 2 {
		t.Fatalf("expected 2 processed marks, got %d", len(repo.marks))
	}
	for i, mark := range repo.marks {
		if mark.id != repo.rows[i].ID {
			t.Fatalf("mark %d stamped wrong row", i)
		}
		if mark.err != nil {
			t.Fatalf("mark %d recorded unexpected error: %v", i, mark.err)
		}
	}
}

func TestRunOnceMarksHandlerFailureProcessed(t *testing.T) {
	base := time.Date(2026, 8, 20, 12, 0, 0, 0, time.UTC)
	failing := pendingRow("blog.published", base)
	healthy := pendingRow("tag.created", base.Add(time.Second))
	repo := &fakeRepo{rows: []models.OutboxMessage{failing, healthy}}
	pub := &fakePublisher{failFor: map[string]error{
		"tag.created": errors.New("handler exploded"),
	}}
	decoder := &fakeDecoder{}
	service := newDispatcherService(t, repo, decoder, pub)

	if err := service.runOnce(context.Background()); err != nil {
		t.Fatalf("run once: %v", err)
	}
	if len(repo.marks) != 2 {
		t.Fatalf("expected both rows marked, got %d", len(repo.marks))
	}
	// fakeDecoder decodes everything as TagCreated, so both publishes
	// hit the failing handler; each row still gets stamped with the
	// failure recorded.
	for _, mark := range repo.marks {
		if mark.err == nil {
			t.Fatal("expected dispatch error recorded on mark")
		}
		if !strings.Contains(mark.err.Error(), "handler exploded") {
			t.Fatalf("unexpected recorded error: %v", mark.err)
		}
	}
	if len(pub.published) != 0 {
		t.Fatalf("expected no successful publishes, got %d", len(pub.published))
	}
}

func TestRunOnceMarksDecodeFailureProcessed(t *testing.T) {
	base := time.Date(2026, 8, 20, 12, 0, 0, 0, time.UTC)
	bad := pendingRow("unknown.event", base)
	good := pendingRow("tag.created", base.Add(time.Second))
	repo := &fakeRepo{rows: []models.OutboxMessage{bad, good}}
	pub := &fakePublisher{}
	decoder := &fakeDecoder{failFor: map[string]error{
		"unknown.event": errors.New("no decoder registered"),
	}}
	service := newDispatcherService(t, repo, decoder, pub)

	if err := service.runOnce(context.Background()); err != nil {
		t.Fatalf("run once: %v", err)
	}
	if len(repo.marks) != 2 {
		t.Fatalf("expected both rows marked, got %d", len(repo.marks))
	}
	if repo.marks[0].err == nil || !strings.Contains(repo.marks[0].err.Error(), "no decoder registered") {
		t.Fatalf("decode failure not recorded: %v", repo.marks[0].err)
	}
	if repo.marks[1].err != nil {
		t.Fatalf("healthy row recorded error: %v", repo.marks[1].err)
	}
	if len(pub.published) != 1 {
		t.Fatalf("expected the healthy row published, got %d", len(pub.published))
	}
}

func TestRunOnceAbortsWhenMarkFails(t *testing.T) {
	repo := &fakeRepo{
		rows:    []models.OutboxMessage{pendingRow("tag.created", time.Now().UTC())},
		markErr: errors.New("stamp failed"),
	}
	service := newDispatcherService(t, repo, &fakeDecoder{}, &fakePublisher{})

	err := service.runOnce(context.Background())
	if err == nil || !strings.Contains(err.Error(), "stamp failed") {
		t.Fatalf("expected mark failure to surface, got %v", err)
	}
}

func TestRunStopsOnContextCancel(t *testing.T) {
	repo := &fakeRepo{}
	service := newDispatcherService(t, repo, &fakeDecoder{}, &fakePublisher{})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := service.Run(ctx)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func TestRunFailsWhenDatabaseUnreachable(t *testing.T) {
	cfg := &config.Config{}
	service, err := NewService(ServiceParams{
		Config:     cfg,
		Logger:     dispatcherTestLogger(),
		DB:         &fakeDB{pingErr: errors.New("refused")},
		Repository: &fakeRepo{},
		Registry:   &fakeDecoder{},
		Publisher:  &fakePublisher{},
	})
	if err != nil {
		t.Fatalf("new service: %v", err)
	}

	if err := service.Run(context.Background()); err == nil {
		t.Fatal("expected readiness failure")
	}
}

func TestNewServiceRequiresDependencies(t *testing.T) {
	cfg := &config.Config{}
	logg := dispatcherTestLogger()

	if _, err := NewService(ServiceParams{Logger: logg}); err == nil {
		t.Fatal("expected missing config error")
	}
	if _, err := NewService(ServiceParams{Config: cfg, Logger: logg, DB: &fakeDB{}}); err == nil {
		t.Fatal("expected missing repository error")
	}
	if _, err := NewService(ServiceParams{
		Config:     cfg,
		Logger:     logg,
		DB:         &fakeDB{},
		Repository: &fakeRepo{},
		Registry:   &fakeDecoder{},
	}); err == nil {
		t.Fatal("expected missing publisher error")
	}
}
