package ingest

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"gridpulse/internal/models"
)

func testVehicleReading(id string, recordedAt time.Time) models.VehicleReading {
	return models.VehicleReading{VehicleID: id, RecordedAt: recordedAt}
}

func TestPipelineTimerFlushPersistsStagedRecords(t *testing.T) {
	sinks := &captureSinks{}
	p := NewPipeline(sinks.vehicleSink, sinks.meterSink, 1000, 50*time.Millisecond, zap.NewNop())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- p.Run(ctx) }()

	p.PushVehicle(testVehicleReading("V001", time.Now().UTC()))

	assert.Eventually(t, func() bool {
		sinks.mu.Lock()
		defer sinks.mu.Unlock()
		return len(sinks.vehicles) == 1
	}, 2*time.Second, 10*time.Millisecond)

	cancel()
	err := <-done
	assert.ErrorIs(t, err, context.Canceled)
}

func TestPipelineDrainsBothClassesOnShutdown(t *testing.T) {
	sinks := &captureSinks{}
	// Interval far beyond the test duration: only the shutdown drain can
	// deliver these records.
	p := NewPipeline(sinks.vehicleSink, sinks.meterSink, 1000, time.Hour, zap.NewNop())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- p.Run(ctx) }()

	p.PushVehicle(testVehicleReading("V001", time.Now().UTC()))
	p.PushMeter(models.MeterReading{MeterID: "M001", RecordedAt: time.Now().UTC()})

	cancel()
	<-done

	sinks.mu.Lock()
	defer sinks.mu.Unlock()
	assert.Len(t, sinks.vehicles, 1)
	assert.Len(t, sinks.meters, 1)
}

func TestPipelineRetainsBatchAcrossFailedTicks(t *testing.T) {
	var mu sync.Mutex
	failures := 1
	var delivered []models.VehicleReading

	vehicleSink := func(_ context.Context, batch []models.VehicleReading) error {
		mu.Lock()
		defer mu.Unlock()
		if failures > 0 {
			failures--
			return errors.New("connection refused")
		}
		delivered = append(delivered, batch...)
		return nil
	}
	meterSink := func(_ context.Context, _ []models.MeterReading) error { return nil }

	p := NewPipeline(vehicleSink, meterSink, 1000, 20*time.Millisecond, zap.NewNop())

	for i := 0; i < 100; i++ {
		p.PushVehicle(testVehicleReading("V001", time.Now().UTC()))
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- p.Run(ctx) }()

	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(delivered) == 100
	}, 2*time.Second, 10*time.Millisecond)

	cancel()
	<-done

	// Exactly once after recovery: no duplicates, no gaps.
	vehicles, _ := p.Depths()
	assert.Equal(t, 0, vehicles)
	mu.Lock()
	assert.Len(t, delivered, 100)
	mu.Unlock()
}

func TestPipelineDepths(t *testing.T) {
	sinks := &captureSinks{}
	p := NewPipeline(sinks.vehicleSink, sinks.meterSink, 1000, time.Hour, zap.NewNop())

	for i := 0; i < 3; i++ {
		p.PushVehicle(testVehicleReading("V001", time.Now().UTC()))
	}
	p.PushMeter(models.MeterReading{MeterID: "M001", RecordedAt: time.Now().UTC()})

	vehicles, meters := p.Depths()
	assert.Equal(t, 3, vehicles)
	assert.Equal(t, 1, meters)
}
