package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/danielvega/portfolio-backend/pkg/config"
	"github.com/danielvega/portfolio-backend/pkg/db/models"
	"github.com/danielvega/portfolio-backend/pkg/events"
	"github.com/danielvega/portfolio-backend/pkg/logger"
	"github.com/danielvega/portfolio-backend/pkg/metrics"
)

const (
	defaultBatchSize = 20
	defaultInterval  = 10 * time.Second

	outcomeDispatched  = "dispatched"
	outcomeDecodeError = "decode_error"
	outcomeHandlerErr  = "handler_error"
)

type dbClient interface {
	Ping(context.Context) error
	WithTx(context.Context, func(tx *gorm.DB) error) error
}

type outboxRepository interface {
	ClaimPending(tx *gorm.DB, limit int) ([]models.OutboxMessage, error)
	MarkProcessedTx(tx *gorm.DB, id uuid.UUID, dispatchErr error) error
	CountPending() (int64, error)
}

type eventDecoder interface {
	Decode(eventType string, content json.RawMessage) (events.Event, error)
}

type eventPublisher interface {
	Publish(ctx context.Context, event events.Event) error
}

type ServiceParams struct {
	Config     *config.Config
	Logger     *logger.Logger
	DB         dbClient
	Repository outboxRepository
	Registry   eventDecoder
	Publisher  eventPublisher
	Metrics    *metrics.OutboxMetrics
}

// Service drains the outbox on a fixed cadence. Each run claims one
// batch inside a single transaction, dispatches the rows oldest first,
// and stamps every claimed row processed before committing. Dispatch
// failures are recorded on the row and never retried.
type Service struct {
	cfg       *config.Config
	logg      *logger.Logger
	db        dbClient
	repo      outboxRepository
	registry  eventDecoder
	publisher eventPublisher
	metrics   *metrics.OutboxMetrics
	batchSize int
	interval  time.Duration
}

func NewService(params ServiceParams) (*Service, error) {
	if params.Config == nil {
		return nil, errors.New("config is required")
	}
	if params.Logger == nil {
		return nil, errors.New("logger is required")
	}
	if params.DB == nil {
		return nil, errors.New("database client is required")
	}
	if params.Repository == nil {
		return nil, errors.New("outbox repository is required")
	}
	if params.Registry == nil {
		return nil, errors.New("event registry is required")
	}
	if params.Publisher == nil {
		return nil, errors.New("event publisher is required")
	}

	batch := params.Config.Outbox.BatchSize
	if batch <= 0 {
		batch = defaultBatchSize
	}
	interval := params.Config.Outbox.Interval()
	if interval <= 0 {
		interval = defaultInterval
	}

	return &Service{
		cfg:       params.Config,
		logg:      params.Logger,
		db:        params.DB,
		repo:      params.Repository,
		registry:  params.Registry,
		publisher: params.Publisher,
		metrics:   params.Metrics,
		batchSize: batch,
		interval:  interval,
	}, nil
}

func (s *Service) ensureReadiness(ctx context.Context) error {
	if err := s.db.Ping(ctx); err != nil {
		s.logg.Error(ctx, "database ping failed", err)
		return fmt.Errorf("database ping failed: %w", err)
	}
	return nil
}

func (s *Service) Run(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}

	if err := s.ensureReadiness(ctx); err != nil {
		return err
	}

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	if err := s.runOnce(ctx); err != nil {
		s.logg.Error(ctx, "outbox dispatch run failed", err)
	}

	for {
		select {
		case <-ctx.Done():
			s.logg.Info(ctx, "outbox dispatcher context canceled")
			return ctx.Err()
		case <-ticker.C:
			if err := s.runOnce(ctx); err != nil {
				s.logg.Error(ctx, "outbox dispatch run failed", err)
			}
		}
	}
}

// runOnce claims and dispatches a single batch. The claim, the handler
// calls, and the processed stamps share one transaction, so a crash
// mid-batch rolls everything back and the next run claims the same rows
// again. Handlers must tolerate replays.
func (s *Service) runOnce(ctx context.Context) error {
	start := time.Now()
	dispatched := 0

	err := s.db.WithTx(ctx, func(tx *gorm.DB) error {
		rows, err := s.repo.ClaimPending(tx, s.batchSize)
		if err != nil {
			return fmt.Errorf("claim pending: %w", err)
		}

		for _, row := range rows {
			dispatchErr := s.dispatch(ctx, row)
			if markErr := s.repo.MarkProcessedTx(tx, row.ID, dispatchErr); markErr != nil {
				return fmt.Errorf("mark processed %s: %w", row.ID, markErr)
			}
			dispatched++
		}
		return nil
	})
	if err != nil {
		return err
	}

	s.metrics.ObserveBatch(time.Since(start))
	if dispatched > 0 {
		logCtx := s.logg.WithFields(ctx, map[string]any{
			"batch_size": s.batchSize,
			"dispatched": dispatched,
		})
		s.logg.Info(logCtx, "outbox batch dispatched")
	}

	pending, err := s.repo.CountPending()
	if err != nil {
		s.logg.Warn(s.logg.WithField(ctx, "error", err.Error()), "counting pending outbox rows failed")
		return nil
	}
	s.metrics.SetPending(pending)
	return nil
}

// dispatch decodes and publishes one row. Any returned error becomes the
// row's recorded failure; the row is stamped processed either way.
func (s *Service) dispatch(ctx context.Context, row models.OutboxMessage) error {
	event, err := s.registry.Decode(row.EventType, row.Content)
	if err != nil {
		s.warnRow(ctx, row, "outbox message could not be decoded", err)
		s.metrics.IncProcessed(outcomeDecodeError)
		return fmt.Errorf("decode %s: %w", row.EventType, err)
	}

	if err := s.publisher.Publish(ctx, event); err != nil {
		s.warnRow(ctx, row, "outbox message handler failed", err)
		s.metrics.IncProcessed(outcomeHandlerErr)
		return err
	}

	s.metrics.IncProcessed(outcomeDispatched)
	return nil
}

func (s *Service) warnRow(ctx context.Context, row models.OutboxMessage, msg string, err error) {
	logCtx := s.logg.WithFields(ctx, map[string]any{
		"outbox_id":   row.ID.String(),
		"event_type":  row.EventType,
		"occurred_on": row.OccurredOnUTC.Format(time.RFC3339Nano),
		"error":       err.Error(),
	})
	s.logg.Warn(logCtx, msg)
}
