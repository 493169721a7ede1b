package repository

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gridpulse/internal/models"
)

func TestValuesClause(t *testing.T) {
	assert.Equal(t, "($1)", valuesClause(1, 1))
	assert.Equal(t, "($1, $2, $3)", valuesClause(1, 3))
	assert.Equal(t, "($1, $2), ($3, $4)", valuesClause(2, 2))
	assert.Equal(t, "($1, $2, $3, $4, $5), ($6, $7, $8, $9, $10)", valuesClause(2, 5))
}

func vehicleAt(id string, ts time.Time) models.VehicleReading {
	return models.VehicleReading{VehicleID: id, RecordedAt: ts}
}

func TestLatestPerDeviceKeepsGreatestRecordedAt(t *testing.T) {
	base := time.Date(2026, 8, 6, 10, 0, 0, 0, time.UTC)
	batch := []models.VehicleReading{
		vehicleAt("V001", base),
		vehicleAt("V002", base.Add(time.Minute)),
		vehicleAt("V001", base.Add(30*time.Second)),
		vehicleAt("V001", base.Add(10*time.Second)),
	}

	latest := latestPerDevice(batch,
		func(r models.VehicleReading) string { return r.VehicleID },
		func(r models.VehicleReading) time.Time { return r.RecordedAt })

	require.Len(t, latest, 2)
	assert.Equal(t, "V001", latest[0].VehicleID)
	assert.Equal(t, base.Add(30*time.Second), latest[0].RecordedAt)
	assert.Equal(t, "V002", latest[1].VehicleID)
}

func TestLatestPerDeviceIdenticalTimestampsKeepFirst(t *testing.T) {
	base := time.Date(2026, 8, 6, 10, 0, 0, 0, time.UTC)
	first := models.VehicleReading{VehicleID: "V001", RecordedAt: base, ID: 1}
	second := models.VehicleReading{VehicleID: "V001", RecordedAt: base, ID: 2}

	latest := latestPerDevice([]models.VehicleReading{first, second},
		func(r models.VehicleReading) string { return r.VehicleID },
		func(r models.VehicleReading) time.Time { return r.RecordedAt })

	require.Len(t, latest, 1)
	assert.Equal(t, int64(1), latest[0].ID)
}

func TestLatestPerDeviceEmptyBatch(t *testing.T) {
	latest := latestPerDevice(nil,
		func(r models.VehicleReading) string { return r.VehicleID },
		func(r models.VehicleReading) time.Time { return r.RecordedAt })
	assert.Empty(t, latest)
}

func TestLatestPerDeviceSingleDeviceManyReadings(t *testing.T) {
	base := time.Date(2026, 8, 6, 0, 0, 0, 0, time.UTC)
	var batch []models.VehicleReading
	for i := 0; i < 500; i++ {
		batch = append(batch, vehicleAt("V001", base.Add(time.Duration(i)*time.Minute)))
	}

	latest := latestPerDevice(batch,
		func(r models.VehicleReading) string { return r.VehicleID },
		func(r models.VehicleReading) time.Time { return r.RecordedAt })

	require.Len(t, latest, 1)
	assert.Equal(t, base.Add(499*time.Minute), latest[0].RecordedAt)
}
