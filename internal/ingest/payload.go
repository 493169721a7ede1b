// Package ingest validates incoming telemetry and stages it for the write
// path.
package ingest

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/shopspring/decimal"

	"gridpulse/internal/models"
)

// Device classes carried in the envelope discriminator.
const (
	ClassMeter   = "METER"
	ClassVehicle = "VEHICLE"
)

const maxDeviceIDLen = 64

// FieldError describes one invalid payload field.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// ValidationError carries the full field-level error list for a rejected
// message.
type ValidationError struct {
	Fields []FieldError
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid telemetry payload (%d field errors)", len(e.Fields))
}

// Envelope is the polymorphic ingestion message: a discriminator plus the
// matching payload. IdempotencyKey is optional and lets senders suppress
// delivery retries.
type Envelope struct {
	Type           string          `json:"type"`
	Payload        json.RawMessage `json:"payload"`
	IdempotencyKey string          `json:"idempotency_key,omitempty"`
}

// DecodeEnvelope reads one envelope from the request body. Unknown top-level
// fields are rejected. Transport-level read errors pass through unwrapped so
// the handler can distinguish an oversized body from malformed JSON.
func DecodeEnvelope(r io.Reader) (*Envelope, error) {
	var env Envelope
	if err := decodeStrict(r, &env); err != nil {
		return nil, err
	}
	return &env, nil
}

// Payload fields are pointers so that absent and zero are distinguishable.
type vehiclePayload struct {
	VehicleID      *string          `json:"vehicle_id"`
	Soc            *decimal.Decimal `json:"soc"`
	KwhDeliveredDc *decimal.Decimal `json:"kwh_delivered_dc"`
	BatteryTemp    *decimal.Decimal `json:"battery_temp"`
	RecordedAt     *time.Time       `json:"recorded_at"`
}

type meterPayload struct {
	MeterID       *string          `json:"meter_id"`
	KwhConsumedAc *decimal.Decimal `json:"kwh_consumed_ac"`
	Voltage       *decimal.Decimal `json:"voltage"`
	RecordedAt    *time.Time       `json:"recorded_at"`
}

var soc100 = decimal.NewFromInt(100)

func parseVehicle(raw json.RawMessage) (models.VehicleReading, []FieldError) {
	var p vehiclePayload
	if err := decodeStrict(bytes.NewReader(raw), &p); err != nil {
		return models.VehicleReading{}, []FieldError{{Field: "payload", Message: err.Error()}}
	}

	var errs []FieldError
	errs = appendDeviceIDErrors(errs, "vehicle_id", p.VehicleID)
	if p.Soc == nil {
		errs = append(errs, FieldError{Field: "soc", Message: "is required"})
	} else if p.Soc.IsNegative() || p.Soc.GreaterThan(soc100) {
		errs = append(errs, FieldError{Field: "soc", Message: "must be between 0 and 100"})
	}
	if p.KwhDeliveredDc == nil {
		errs = append(errs, FieldError{Field: "kwh_delivered_dc", Message: "is required"})
	} else if p.KwhDeliveredDc.IsNegative() {
		errs = append(errs, FieldError{Field: "kwh_delivered_dc", Message: "must not be negative"})
	}
	if p.BatteryTemp == nil {
		errs = append(errs, FieldError{Field: "battery_temp", Message: "is required"})
	}
	errs = appendTimestampErrors(errs, p.RecordedAt)
	if len(errs) > 0 {
		return models.VehicleReading{}, errs
	}

	return models.VehicleReading{
		VehicleID:      *p.VehicleID,
		Soc:            *p.Soc,
		KwhDeliveredDc: *p.KwhDeliveredDc,
		BatteryTemp:    *p.BatteryTemp,
		RecordedAt:     p.RecordedAt.UTC(),
	}, nil
}

func parseMeter(raw json.RawMessage) (models.MeterReading, []FieldError) {
	var p meterPayload
	if err := decodeStrict(bytes.NewReader(raw), &p); err != nil {
		return models.MeterReading{}, []FieldError{{Field: "payload", Message: err.Error()}}
	}

	var errs []FieldError
	errs = appendDeviceIDErrors(errs, "meter_id", p.MeterID)
	if p.KwhConsumedAc == nil {
		errs = append(errs, FieldError{Field: "kwh_consumed_ac", Message: "is required"})
	} else if p.KwhConsumedAc.IsNegative() {
		errs = append(errs, FieldError{Field: "kwh_consumed_ac", Message: "must not be negative"})
	}
	if p.Voltage == nil {
		errs = append(errs, FieldError{Field: "voltage", Message: "is required"})
	} else if p.Voltage.IsNegative() {
		errs = append(errs, FieldError{Field: "voltage", Message: "must not be negative"})
	}
	errs = appendTimestampErrors(errs, p.RecordedAt)
	if len(errs) > 0 {
		return models.MeterReading{}, errs
	}

	return models.MeterReading{
		MeterID:       *p.MeterID,
		KwhConsumedAc: *p.KwhConsumedAc,
		Voltage:       *p.Voltage,
		RecordedAt:    p.RecordedAt.UTC(),
	}, nil
}

func appendDeviceIDErrors(errs []FieldError, field string, id *string) []FieldError {
	switch {
	case id == nil || *id == "":
		errs = append(errs, FieldError{Field: field, Message: "is required"})
	case len(*id) > maxDeviceIDLen:
		errs = append(errs, FieldError{Field: field, Message: fmt.Sprintf("must be at most %d characters", maxDeviceIDLen)})
	}
	return errs
}

func appendTimestampErrors(errs []FieldError, ts *time.Time) []FieldError {
	if ts == nil || ts.IsZero() {
		errs = append(errs, FieldError{Field: "recorded_at", Message: "must be an RFC 3339 instant"})
	}
	return errs
}

// decodeStrict rejects unknown fields and trailing content.
func decodeStrict(r io.Reader, target interface{}) error {
	dec := json.NewDecoder(r)
	dec.DisallowUnknownFields()
	if err := dec.Decode(target); err != nil {
		return err
	}
	if dec.More() {
		return fmt.Errorf("unexpected trailing content")
	}
	return nil
}
