package store

import (
	"context"
	"time"

	"tripplanner/internal/domain"
	"tripplanner/internal/metrics"
	"tripplanner/internal/models"

	"github.com/rs/zerolog"
)

// Instrumented wraps a RecordStore with metrics and debug logging.
type Instrumented struct {
	next   domain.RecordStore
	logger *zerolog.Logger
}

func NewInstrumented(next domain.RecordStore, logger *zerolog.Logger) *Instrumented {
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	return &Instrumented{next: next, logger: logger}
}

func (s *Instrumented) Fetch(ctx context.Context, collection string, filter domain.Filter, out any) error {
	started := time.Now()
	err := s.next.Fetch(ctx, collection, filter, out)
	s.observe(collection, "fetch", started, err)
	return err
}

func (s *Instrumented) Create(ctx context.Context, collection string, record any, out any) error {
	started := time.Now()
	err := s.next.Create(ctx, collection, record, out)
	s.observe(collection, "create", started, err)
	return err
}

func (s *Instrumented) Update(ctx context.Context, collection string, id models.ID, patch any, out any) error {
	started := time.Now()
	err := s.next.Update(ctx, collection, id, patch, out)
	s.observe(collection, "update", started, err)
	return err
}

func (s *Instrumented) Delete(ctx context.Context, collection string, id models.ID) error {
	started := time.Now()
	err := s.next.Delete(ctx, collection, id)
	s.observe(collection, "delete", started, err)
	return err
}

func (s *Instrumented) observe(collection, op string, started time.Time, err error) {
	metrics.ObserveStore(collection, op, started, err)
	event := s.logger.Debug()
	if err != nil {
		event = s.logger.Warn().Err(err)
	}
	event.Str("collection", collection).Str("op", op).Dur("took", time.Since(started)).Msg("store call")
}
