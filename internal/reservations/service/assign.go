package service

import (
	"context"
	"time"

	apperrors "trimline/pkg/errors"
	"trimline/pkg/model"
)

// AvailabilitySource ranks candidate providers for a service and time
// window. The engine trusts the ordering and never reorders or filters it;
// candidates are attempted first to last until one accepts the slot.
type AvailabilitySource interface {
	ListCandidateProviders(ctx context.Context, serviceID string, date string, windowStart, windowEnd time.Time) ([]string, error)
}

// candidateProviders resolves which providers to attempt. An explicit
// provider id is a single-candidate list; otherwise the availability
// source supplies the ordered candidates.
func (s *reservationEngine) candidateProviders(ctx context.Context, req *model.ReservationRequest, start time.Time) ([]string, error) {
	if req.ProviderID != "" {
		return []string{req.ProviderID}, nil
	}

	if s.availability == nil {
		return nil, apperrors.InvalidInput("provider_id is required when auto-assignment is not configured")
	}

	window := model.NewEffectiveInterval(start, req.DurationMin, req.BufferBeforeMin, req.BufferAfterMin)
	candidates, err := s.availability.ListCandidateProviders(ctx, req.ServiceID, req.Date, window.Start, window.End)
	if err != nil {
		s.cfg.Log.Error("Failed to list candidate providers",
			"service_id", req.ServiceID,
			"date", req.Date,
			"error", err,
		)
		return nil, apperrors.Unavailable("availability service")
	}

	if len(candidates) == 0 {
		return nil, apperrors.NoProviderAvailable()
	}

	return candidates, nil
}
