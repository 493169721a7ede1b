package ingest

import (
	"context"
	"time"

	"go.uber.org/zap"

	"gridpulse/internal/buffer"
	"gridpulse/internal/models"
)

const drainTimeout = 10 * time.Second

// Pipeline owns the per-class buffers and the shared flush timer.
type Pipeline struct {
	vehicles *buffer.Buffer[models.VehicleReading]
	meters   *buffer.Buffer[models.MeterReading]
	interval time.Duration
	logger   *zap.Logger
}

// NewPipeline wires both class buffers to their repository sinks.
func NewPipeline(
	vehicleSink buffer.Sink[models.VehicleReading],
	meterSink buffer.Sink[models.MeterReading],
	flushSize int,
	interval time.Duration,
	logger *zap.Logger,
) *Pipeline {
	return &Pipeline{
		vehicles: buffer.New("vehicles", flushSize, vehicleSink, logger),
		meters:   buffer.New("meters", flushSize, meterSink, logger),
		interval: interval,
		logger:   logger,
	}
}

// PushVehicle stages a validated vehicle reading.
func (p *Pipeline) PushVehicle(r models.VehicleReading) { p.vehicles.Push(r) }

// PushMeter stages a validated meter reading.
func (p *Pipeline) PushMeter(r models.MeterReading) { p.meters.Push(r) }

// Depths reports staged record counts per class.
func (p *Pipeline) Depths() (vehicles, meters int) {
	return p.vehicles.Depth(), p.meters.Depth()
}

// Run flushes both classes on every tick until the context is cancelled,
// then performs a final best-effort drain.
func (p *Pipeline) Run(ctx context.Context) error {
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			p.flushBoth(ctx)
		case <-ctx.Done():
			ticker.Stop()
			p.drain()
			return ctx.Err()
		}
	}
}

func (p *Pipeline) flushBoth(ctx context.Context) {
	if err := p.vehicles.Flush(ctx); err != nil {
		p.logger.Error("vehicle flush failed", zap.Error(err), zap.Int("depth", p.vehicles.Depth()))
	}
	if err := p.meters.Flush(ctx); err != nil {
		p.logger.Error("meter flush failed", zap.Error(err), zap.Int("depth", p.meters.Depth()))
	}
}

// drain attempts one final flush of both classes. Records that fail here are
// lost; acceptance is at-most-once.
func (p *Pipeline) drain() {
	ctx, cancel := context.WithTimeout(context.Background(), drainTimeout)
	defer cancel()

	if err := p.vehicles.Flush(ctx); err != nil {
		p.logger.Warn("discarding vehicle records on shutdown",
			zap.Int("lost", p.vehicles.Depth()), zap.Error(err))
	}
	if err := p.meters.Flush(ctx); err != nil {
		p.logger.Warn("discarding meter records on shutdown",
			zap.Int("lost", p.meters.Depth()), zap.Error(err))
	}
}
