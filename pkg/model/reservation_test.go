package model

import (
	"testing"
	"time"
)

func at(hhmm string) time.Time {
	t, err := time.Parse(time.RFC3339, "2026-09-01T"+hhmm+":00Z")
	if err != nil {
		panic(err)
	}
	return t
}

func TestEffectiveInterval_BuffersExpandBothSides(t *testing.T) {
	iv := NewEffectiveInterval(at("10:00"), 30, 10, 5)

	if !iv.Start.Equal(at("09:50")) {
		t.Errorf("expected start 09:50, got %v", iv.Start)
	}
	if !iv.End.Equal(at("10:35")) {
		t.Errorf("expected end 10:35, got %v", iv.End)
	}
}

func TestEffectiveInterval_Overlaps(t *testing.T) {
	tests := []struct {
		name string
		a, b EffectiveInterval
		want bool
	}{
		{
			name: "disjoint",
			a:    NewEffectiveInterval(at("09:00"), 30, 0, 0),
			b:    NewEffectiveInterval(at("11:00"), 30, 0, 0),
			want: false,
		},
		{
			name: "partial overlap",
			a:    NewEffectiveInterval(at("10:00"), 30, 0, 0),
			b:    NewEffectiveInterval(at("10:15"), 30, 0, 0),
			want: true,
		},
		{
			name: "contained",
			a:    NewEffectiveInterval(at("10:00"), 60, 0, 0),
			b:    NewEffectiveInterval(at("10:15"), 15, 0, 0),
			want: true,
		},
		{
			name: "back to back zero buffer is free",
			a:    NewEffectiveInterval(at("10:00"), 30, 0, 0),
			b:    NewEffectiveInterval(at("10:30"), 30, 0, 0),
			want: false,
		},
		{
			name: "back to back collides once buffers expand",
			a:    NewEffectiveInterval(at("10:00"), 30, 0, 10),
			b:    NewEffectiveInterval(at("10:30"), 30, 0, 0),
			want: true,
		},
		{
			name: "buffer on candidate side also collides",
			a:    NewEffectiveInterval(at("10:00"), 30, 0, 0),
			b:    NewEffectiveInterval(at("10:30"), 30, 5, 0),
			want: true,
		},
		{
			name: "identical slot",
			a:    NewEffectiveInterval(at("09:00"), 30, 0, 0),
			b:    NewEffectiveInterval(at("09:00"), 30, 0, 0),
			want: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.a.Overlaps(tt.b); got != tt.want {
				t.Errorf("Overlaps() = %v, want %v", got, tt.want)
			}
			// Overlap is symmetric.
			if got := tt.b.Overlaps(tt.a); got != tt.want {
				t.Errorf("Overlaps() reversed = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestReservation_ComputeEffectiveInterval(t *testing.T) {
	r := &Reservation{
		StartTime:       at("14:00"),
		DurationMin:     45,
		BufferBeforeMin: 15,
		BufferAfterMin:  10,
	}
	r.ComputeEffectiveInterval()

	if !r.EffectiveStart.Equal(at("13:45")) {
		t.Errorf("expected effective start 13:45, got %v", r.EffectiveStart)
	}
	if !r.EffectiveEnd.Equal(at("14:55")) {
		t.Errorf("expected effective end 14:55, got %v", r.EffectiveEnd)
	}
}

func TestReservation_Blocks(t *testing.T) {
	tests := []struct {
		status string
		want   bool
	}{
		{StatusScheduled, true},
		{StatusCompleted, true},
		{StatusCancelled, false},
		{StatusNoShow, false},
	}

	for _, tt := range tests {
		t.Run(tt.status, func(t *testing.T) {
			r := &Reservation{Status: tt.status}
			if got := r.Blocks(); got != tt.want {
				t.Errorf("Blocks() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestReservationRequest_StartTimeUTC(t *testing.T) {
	req := &ReservationRequest{
		Date:      "2026-09-01",
		TimeOfDay: "10:00",
		Timezone:  "America/New_York",
	}

	got, err := req.StartTimeUTC()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	// 10:00 EDT == 14:00 UTC.
	if !got.Equal(at("14:00")) {
		t.Errorf("expected 14:00 UTC, got %v", got)
	}
	if got.Location() != time.UTC {
		t.Errorf("expected UTC location, got %v", got.Location())
	}
}

func TestReservationRequest_StartTimeUTC_BadTimezone(t *testing.T) {
	req := &ReservationRequest{
		Date:      "2026-09-01",
		TimeOfDay: "10:00",
		Timezone:  "Mars/Olympus_Mons",
	}

	if _, err := req.StartTimeUTC(); err == nil {
		t.Fatal("expected error for unknown timezone")
	}
}

func TestReservationUpdate_AltersSchedule(t *testing.T) {
	start := at("10:00")
	duration := 45
	notes := "fade, beard trim"

	tests := []struct {
		name   string
		update ReservationUpdate
		want   bool
	}{
		{"empty", ReservationUpdate{}, false},
		{"notes only", ReservationUpdate{Notes: &notes}, false},
		{"status only", ReservationUpdate{Status: StatusCancelled}, false},
		{"new start time", ReservationUpdate{StartTime: &start}, true},
		{"new duration", ReservationUpdate{DurationMin: &duration}, true},
		{"new provider", ReservationUpdate{ProviderID: "barber-2"}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.update.AltersSchedule(); got != tt.want {
				t.Errorf("AltersSchedule() = %v, want %v", got, tt.want)
			}
		})
	}
}
