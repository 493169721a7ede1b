package ingest

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"
)

// ErrRateLimited is returned when a device exceeds its ingestion rate.
var ErrRateLimited = errors.New("ingest: device rate limit exceeded")

// Result reports the outcome of accepting one message. Accepted means staged
// in the buffer, not persisted.
type Result struct {
	Accepted  bool `json:"accepted"`
	Duplicate bool `json:"duplicate,omitempty"`
}

// Service validates envelopes and dispatches readings to the per-class
// buffer. Limiter and deduper are optional.
type Service struct {
	pipeline *Pipeline
	limiter  *DeviceLimiter
	deduper  *Deduper
	logger   *zap.Logger
}

// NewService returns the dispatch service. Pass nil for limiter or deduper
// to disable them.
func NewService(pipeline *Pipeline, limiter *DeviceLimiter, deduper *Deduper, logger *zap.Logger) *Service {
	return &Service{
		pipeline: pipeline,
		limiter:  limiter,
		deduper:  deduper,
		logger:   logger,
	}
}

// Accept validates one envelope and stages the reading. Validation failures
// return *ValidationError; rate-limit rejections return ErrRateLimited.
func (s *Service) Accept(ctx context.Context, env *Envelope) (Result, error) {
	switch env.Type {
	case ClassVehicle:
		reading, fieldErrs := parseVehicle(env.Payload)
		if len(fieldErrs) > 0 {
			return Result{}, &ValidationError{Fields: fieldErrs}
		}
		if s.limiter != nil && !s.limiter.Allow(reading.VehicleID) {
			return Result{}, ErrRateLimited
		}
		if dup := s.isDuplicate(ctx, env.IdempotencyKey); dup {
			return Result{Accepted: true, Duplicate: true}, nil
		}
		s.pipeline.PushVehicle(reading)
		return Result{Accepted: true}, nil

	case ClassMeter:
		reading, fieldErrs := parseMeter(env.Payload)
		if len(fieldErrs) > 0 {
			return Result{}, &ValidationError{Fields: fieldErrs}
		}
		if s.limiter != nil && !s.limiter.Allow(reading.MeterID) {
			return Result{}, ErrRateLimited
		}
		if dup := s.isDuplicate(ctx, env.IdempotencyKey); dup {
			return Result{Accepted: true, Duplicate: true}, nil
		}
		s.pipeline.PushMeter(reading)
		return Result{Accepted: true}, nil

	default:
		return Result{}, &ValidationError{Fields: []FieldError{{
			Field:   "type",
			Message: fmt.Sprintf("must be %s or %s", ClassMeter, ClassVehicle),
		}}}
	}
}

// isDuplicate consults the idempotency store. Store failures fail open: a
// retried delivery becomes a duplicate history row, which the staleness
// guard already tolerates.
func (s *Service) isDuplicate(ctx context.Context, token string) bool {
	if s.deduper == nil || token == "" {
		return false
	}
	first, err := s.deduper.FirstSeen(ctx, token)
	if err != nil {
		s.logger.Warn("idempotency store unavailable", zap.Error(err))
		return false
	}
	return !first
}
