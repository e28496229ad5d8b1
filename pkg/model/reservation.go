package model

import (
	"time"
)

// Reservation statuses. A cancelled or no_show reservation frees its slot
// and is excluded from conflict checks.
const (
	StatusScheduled = "scheduled"
	StatusCompleted = "completed"
	StatusCancelled = "cancelled"
	StatusNoShow    = "no_show"
)

// BlockingStatuses are the statuses whose effective intervals must never
// overlap for the same provider.
var BlockingStatuses = []string{StatusScheduled, StatusCompleted}

type Reservation struct {
	ID              string    `json:"id,omitempty" bson:"_id,omitempty" validate:"omitempty,mongodb"`
	ProviderID      string    `json:"provider_id" bson:"provider_id" validate:"required,min=1,max=64"`
	ClientID        string    `json:"client_id" bson:"client_id" validate:"required,min=1,max=64"`
	ServiceID       string    `json:"service_id" bson:"service_id" validate:"required,min=1,max=64"`
	StartTime       time.Time `json:"start_time" bson:"start_time" validate:"required"`
	DurationMin     int       `json:"duration_min" bson:"duration_min" validate:"required,min=1,max=480"`
	BufferBeforeMin int       `json:"buffer_before_min" bson:"buffer_before_min" validate:"min=0,max=120"`
	BufferAfterMin  int       `json:"buffer_after_min" bson:"buffer_after_min" validate:"min=0,max=120"`
	// EffectiveStart/EffectiveEnd are denormalized from the fields above so
	// overlap queries can hit an index. Recomputed on every write.
	EffectiveStart time.Time `json:"effective_start" bson:"effective_start"`
	EffectiveEnd   time.Time `json:"effective_end" bson:"effective_end"`
	Status         string    `json:"status" bson:"status" validate:"required,oneof=scheduled completed cancelled no_show"`
	Version        int64     `json:"version" bson:"version" validate:"min=0"`
	Notes          string    `json:"notes,omitempty" bson:"notes,omitempty" validate:"omitempty,max=2000"`
	CreatedAt      time.Time `json:"created_at" bson:"created_at" validate:"omitempty"`
}

// ComputeEffectiveInterval stamps EffectiveStart/EffectiveEnd from the
// start time, duration and buffers. Must be called before every persist.
func (r *Reservation) ComputeEffectiveInterval() {
	r.EffectiveStart = r.StartTime.Add(-time.Duration(r.BufferBeforeMin) * time.Minute)
	r.EffectiveEnd = r.StartTime.
		Add(time.Duration(r.DurationMin) * time.Minute).
		Add(time.Duration(r.BufferAfterMin) * time.Minute)
}

// Blocks reports whether this reservation occupies its provider's calendar.
func (r *Reservation) Blocks() bool {
	return r.Status != StatusCancelled && r.Status != StatusNoShow
}

// EffectiveInterval is a buffer-expanded half-open time range [Start, End).
type EffectiveInterval struct {
	Start time.Time
	End   time.Time
}

// NewEffectiveInterval expands a raw slot by its pre/post buffers.
func NewEffectiveInterval(start time.Time, durationMin, bufferBeforeMin, bufferAfterMin int) EffectiveInterval {
	return EffectiveInterval{
		Start: start.Add(-time.Duration(bufferBeforeMin) * time.Minute),
		End: start.
			Add(time.Duration(durationMin) * time.Minute).
			Add(time.Duration(bufferAfterMin) * time.Minute),
	}
}

// Overlaps uses half-open semantics: back-to-back intervals with zero
// buffer share an endpoint and do not conflict.
func (i EffectiveInterval) Overlaps(other EffectiveInterval) bool {
	return i.Start.Before(other.End) && other.Start.Before(i.End)
}

// ReservationRequest is the inbound payload for creating a reservation.
// ProviderID empty means "auto-assign from the availability source".
// Date/TimeOfDay/Timezone resolve to a UTC instant in the engine.
type ReservationRequest struct {
	ClientID        string `json:"client_id" validate:"required,min=1,max=64"`
	ProviderID      string `json:"provider_id,omitempty" validate:"omitempty,min=1,max=64"`
	ServiceID       string `json:"service_id" validate:"required,min=1,max=64"`
	Date            string `json:"date" validate:"required,datetime=2006-01-02"`
	TimeOfDay       string `json:"time" validate:"required,datetime=15:04"`
	Timezone        string `json:"timezone" validate:"required,timezone"`
	DurationMin     int    `json:"duration_min,omitempty" validate:"omitempty,min=1,max=480"`
	BufferBeforeMin int    `json:"buffer_before_min,omitempty" validate:"omitempty,min=0,max=120"`
	BufferAfterMin  int    `json:"buffer_after_min,omitempty" validate:"omitempty,min=0,max=120"`
	Notes           string `json:"notes,omitempty" validate:"omitempty,max=2000"`
	IdempotencyKey  string `json:"idempotency_key,omitempty" validate:"omitempty,min=8,max=128"`
}

// StartTimeUTC resolves date + time-of-day in the request's timezone to a
// UTC instant.
func (r *ReservationRequest) StartTimeUTC() (time.Time, error) {
	loc, err := time.LoadLocation(r.Timezone)
	if err != nil {
		return time.Time{}, err
	}
	t, err := time.ParseInLocation("2006-01-02 15:04", r.Date+" "+r.TimeOfDay, loc)
	if err != nil {
		return time.Time{}, err
	}
	return t.UTC(), nil
}

// ReservationUpdate carries a partial update. ExpectedVersion zero means
// the caller did not supply one and the update is unconditional.
type ReservationUpdate struct {
	ProviderID      string     `json:"provider_id,omitempty" validate:"omitempty,min=1,max=64"`
	StartTime       *time.Time `json:"start_time,omitempty"`
	DurationMin     *int       `json:"duration_min,omitempty" validate:"omitempty,min=1,max=480"`
	BufferBeforeMin *int       `json:"buffer_before_min,omitempty" validate:"omitempty,min=0,max=120"`
	BufferAfterMin  *int       `json:"buffer_after_min,omitempty" validate:"omitempty,min=0,max=120"`
	Status          string     `json:"status,omitempty" validate:"omitempty,oneof=scheduled completed cancelled no_show"`
	Notes           *string    `json:"notes,omitempty"`
	ExpectedVersion int64      `json:"expected_version,omitempty" validate:"omitempty,min=1"`
}

// AltersSchedule reports whether the update touches fields that change the
// reservation's effective interval or provider, requiring a fresh conflict
// check under the provider lock.
func (u *ReservationUpdate) AltersSchedule() bool {
	return u.ProviderID != "" ||
		u.StartTime != nil ||
		u.DurationMin != nil ||
		u.BufferBeforeMin != nil ||
		u.BufferAfterMin != nil
}
