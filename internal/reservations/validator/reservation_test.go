package validator

import (
	"testing"
	"time"

	"trimline/pkg/logger"
	"trimline/pkg/model"
)

func testLogger() *logger.Logger {
	return logger.New(logger.Config{
		Level:     "error",
		Format:    logger.JSON,
		AddSource: false,
		Service:   "test",
	})
}

func validRequest() *model.ReservationRequest {
	return &model.ReservationRequest{
		ClientID:    "client-1",
		ProviderID:  "prov-1",
		ServiceID:   "svc-cut",
		Date:        "2027-03-15",
		TimeOfDay:   "10:30",
		Timezone:    "America/New_York",
		DurationMin: 30,
	}
}

func TestValidateRequest(t *testing.T) {
	v := NewReservationValidator(testLogger())

	tests := []struct {
		name    string
		mutate  func(req *model.ReservationRequest)
		wantErr bool
	}{
		{"valid request", func(req *model.ReservationRequest) {}, false},
		{"missing client id", func(req *model.ReservationRequest) { req.ClientID = "" }, true},
		{"missing service id", func(req *model.ReservationRequest) { req.ServiceID = "" }, true},
		{"empty provider id allowed", func(req *model.ReservationRequest) { req.ProviderID = "" }, false},
		{"bad date format", func(req *model.ReservationRequest) { req.Date = "15/03/2027" }, true},
		{"bad time format", func(req *model.ReservationRequest) { req.TimeOfDay = "10:30:00" }, true},
		{"bad timezone", func(req *model.ReservationRequest) { req.Timezone = "Mars/Olympus" }, true},
		{"zero duration allowed for defaulting", func(req *model.ReservationRequest) { req.DurationMin = 0 }, false},
		{"negative buffer", func(req *model.ReservationRequest) { req.BufferBeforeMin = -1 }, true},
		{"excessive duration", func(req *model.ReservationRequest) { req.DurationMin = 600 }, true},
		{"short idempotency key", func(req *model.ReservationRequest) { req.IdempotencyKey = "abc" }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := validRequest()
			tt.mutate(req)
			err := v.ValidateRequest(req)
			if tt.wantErr && err == nil {
				t.Error("expected validation error, got nil")
			}
			if !tt.wantErr && err != nil {
				t.Errorf("unexpected validation error: %v", err)
			}
		})
	}
}

func TestValidateUpdate(t *testing.T) {
	v := NewReservationValidator(testLogger())

	badStatus := &model.ReservationUpdate{Status: "rescheduled"}
	if err := v.ValidateUpdate(badStatus); err == nil {
		t.Error("expected error for unknown status")
	}

	zeroVersion := &model.ReservationUpdate{ExpectedVersion: 0}
	if err := v.ValidateUpdate(zeroVersion); err != nil {
		t.Errorf("expected_version omitted should validate, got %v", err)
	}

	negDuration := -5
	bad := &model.ReservationUpdate{DurationMin: &negDuration}
	if err := v.ValidateUpdate(bad); err == nil {
		t.Error("expected error for negative duration")
	}
}

func TestValidateStartTime(t *testing.T) {
	v := NewReservationValidator(testLogger())

	if err := v.ValidateStartTime(time.Now().Add(time.Hour)); err != nil {
		t.Errorf("future start should validate, got %v", err)
	}
	if err := v.ValidateStartTime(time.Now().Add(-time.Hour)); err == nil {
		t.Error("expected error for past start time")
	}
}
