package ingest

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"gridpulse/internal/models"
)

type captureSinks struct {
	mu       sync.Mutex
	vehicles []models.VehicleReading
	meters   []models.MeterReading
}

func (c *captureSinks) vehicleSink(_ context.Context, batch []models.VehicleReading) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.vehicles = append(c.vehicles, batch...)
	return nil
}

func (c *captureSinks) meterSink(_ context.Context, batch []models.MeterReading) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.meters = append(c.meters, batch...)
	return nil
}

func newTestService(t *testing.T, limiter *DeviceLimiter) (*Service, *Pipeline, *captureSinks) {
	t.Helper()
	sinks := &captureSinks{}
	pipeline := NewPipeline(sinks.vehicleSink, sinks.meterSink, 1000, time.Hour, zap.NewNop())
	return NewService(pipeline, limiter, nil, zap.NewNop()), pipeline, sinks
}

func envelope(t *testing.T, class string, payload map[string]interface{}) *Envelope {
	t.Helper()
	raw, err := json.Marshal(payload)
	require.NoError(t, err)
	return &Envelope{Type: class, Payload: raw}
}

func validVehiclePayload(id string) map[string]interface{} {
	return map[string]interface{}{
		"vehicle_id":       id,
		"soc":              50,
		"kwh_delivered_dc": 0.5,
		"battery_temp":     21.5,
		"recorded_at":      "2026-08-06T10:00:00Z",
	}
}

func TestAcceptRoutesVehicleToVehicleBuffer(t *testing.T) {
	svc, pipeline, _ := newTestService(t, nil)

	result, err := svc.Accept(context.Background(), envelope(t, ClassVehicle, validVehiclePayload("V001")))
	require.NoError(t, err)
	assert.True(t, result.Accepted)

	vehicles, meters := pipeline.Depths()
	assert.Equal(t, 1, vehicles)
	assert.Equal(t, 0, meters)
}

func TestAcceptRoutesMeterToMeterBuffer(t *testing.T) {
	svc, pipeline, _ := newTestService(t, nil)

	result, err := svc.Accept(context.Background(), envelope(t, ClassMeter, map[string]interface{}{
		"meter_id":        "M001",
		"kwh_consumed_ac": 0.6,
		"voltage":         230,
		"recorded_at":     "2026-08-06T10:00:00Z",
	}))
	require.NoError(t, err)
	assert.True(t, result.Accepted)

	vehicles, meters := pipeline.Depths()
	assert.Equal(t, 0, vehicles)
	assert.Equal(t, 1, meters)
}

func TestAcceptRejectsUnknownDiscriminator(t *testing.T) {
	svc, _, _ := newTestService(t, nil)

	_, err := svc.Accept(context.Background(), &Envelope{Type: "THERMOSTAT", Payload: json.RawMessage(`{}`)})
	var vErr *ValidationError
	require.ErrorAs(t, err, &vErr)
	require.Len(t, vErr.Fields, 1)
	assert.Equal(t, "type", vErr.Fields[0].Field)
}

func TestAcceptRejectsInvalidPayloadWithoutStaging(t *testing.T) {
	svc, pipeline, _ := newTestService(t, nil)

	payload := validVehiclePayload("V001")
	payload["soc"] = 101
	_, err := svc.Accept(context.Background(), envelope(t, ClassVehicle, payload))

	var vErr *ValidationError
	require.ErrorAs(t, err, &vErr)
	vehicles, _ := pipeline.Depths()
	assert.Equal(t, 0, vehicles)
}

func TestAcceptAppliesDeviceRateLimit(t *testing.T) {
	limiter := NewDeviceLimiter(1, 1)
	svc, _, _ := newTestService(t, limiter)

	_, err := svc.Accept(context.Background(), envelope(t, ClassVehicle, validVehiclePayload("V001")))
	require.NoError(t, err)

	_, err = svc.Accept(context.Background(), envelope(t, ClassVehicle, validVehiclePayload("V001")))
	assert.ErrorIs(t, err, ErrRateLimited)

	// A different device is unaffected.
	_, err = svc.Accept(context.Background(), envelope(t, ClassVehicle, validVehiclePayload("V002")))
	assert.NoError(t, err)
}

func TestAcceptManyDevicesConcurrently(t *testing.T) {
	svc, pipeline, _ := newTestService(t, nil)

	var wg sync.WaitGroup
	for i := 0; i < 40; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := svc.Accept(context.Background(),
				envelope(t, ClassVehicle, validVehiclePayload(fmt.Sprintf("V%03d", i))))
			assert.NoError(t, err)
		}(i)
	}
	wg.Wait()

	vehicles, _ := pipeline.Depths()
	assert.Equal(t, 40, vehicles)
}
