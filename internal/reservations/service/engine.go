package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	reserrors "trimline/internal/reservations/errors"
	"trimline/internal/reservations/repository"
	"trimline/internal/reservations/validator"
	"trimline/pkg/config"
	apperrors "trimline/pkg/errors"
	"trimline/pkg/lock"
	"trimline/pkg/model"
	"trimline/pkg/notify"
	"trimline/pkg/retry"
	"trimline/pkg/sanitizer"

	"go.mongodb.org/mongo-driver/mongo"
)

// ReservationEngine owns every reservation write path: conflict detection
// under the provider lock, the optimistic version guard, idempotent
// replay, and transient-failure retries.
type ReservationEngine interface {
	Create(ctx context.Context, req *model.ReservationRequest) (*model.Reservation, error)
	Update(ctx context.Context, id string, updates *model.ReservationUpdate, idempotencyKey string) (*model.Reservation, error)
	Cancel(ctx context.Context, id string, expectedVersion int64) (*model.Reservation, error)
	GetByID(ctx context.Context, id string) (*model.Reservation, error)
	GetAll(ctx context.Context, limit int, offset int64) ([]*model.Reservation, int64, error)
	Calendar(ctx context.Context, providerID string, from, to *time.Time, limit int, offset int64) ([]*model.Reservation, int64, error)
}

type reservationEngine struct {
	repo         repository.ReservationRepository
	idemRepo     repository.IdempotencyRepository
	locks        lock.Manager
	availability AvailabilitySource
	validator    *validator.ReservationValidator
	notifier     notify.Gateway
	cfg          *config.Config
}

func NewReservationEngine(
	repo repository.ReservationRepository,
	idemRepo repository.IdempotencyRepository,
	locks lock.Manager,
	availability AvailabilitySource,
	validator *validator.ReservationValidator,
	notifier notify.Gateway,
	cfg *config.Config,
) ReservationEngine {
	return &reservationEngine{
		repo:         repo,
		idemRepo:     idemRepo,
		locks:        locks,
		availability: availability,
		validator:    validator,
		notifier:     notifier,
		cfg:          cfg,
	}
}

func (s *reservationEngine) Create(ctx context.Context, req *model.ReservationRequest) (*model.Reservation, error) {
	s.sanitizeRequest(req)
	s.applyRequestDefaults(req)

	if err := s.validator.ValidateRequest(req); err != nil {
		s.cfg.Log.Warn("Reservation request validation failed", "error", err)
		return nil, apperrors.Validation("Reservation validation failed", map[string]any{"error": err.Error()})
	}

	start, err := req.StartTimeUTC()
	if err != nil {
		return nil, apperrors.InvalidInput(fmt.Sprintf("cannot resolve start time: %v", err))
	}
	if err := s.validator.ValidateStartTime(start); err != nil {
		return nil, apperrors.Validation("Reservation validation failed", map[string]any{"error": err.Error()})
	}

	fingerprint := requestFingerprint(req)

	var created *model.Reservation
	replayed := false

	err = retry.Run(ctx, s.retryPolicy(), func(ctx context.Context) error {
		// Replay check runs every attempt: a concurrent duplicate may have
		// committed between this attempt and the last.
		if req.IdempotencyKey != "" {
			existing, err := s.replayFromKey(ctx, req.IdempotencyKey, model.OpCreateReservation, fingerprint)
			if err != nil {
				return err
			}
			if existing != nil {
				created = existing
				replayed = true
				return nil
			}
		}

		candidates, err := s.candidateProviders(ctx, req, start)
		if err != nil {
			return retry.Permanent(err)
		}

		res, err := s.tryCandidates(ctx, req, start, fingerprint, candidates)
		if err != nil {
			return err
		}
		created = res
		return nil
	})
	if err != nil {
		s.cfg.Log.Error("Failed to create reservation",
			"client_id", req.ClientID,
			"provider_id", req.ProviderID,
			"error", err,
		)
		return nil, err
	}

	if replayed {
		s.cfg.Log.Info("Reservation creation replayed from idempotency key",
			"id", created.ID,
			"idempotency_key", req.IdempotencyKey,
		)
		return created, nil
	}

	s.cfg.Log.Info("Reservation created successfully",
		"id", created.ID,
		"provider_id", created.ProviderID,
		"client_id", created.ClientID,
		"start_time", created.StartTime,
	)
	s.notifier.ReservationCreated(ctx, created)
	return created, nil
}

// tryCandidates walks the ordered candidate list and commits on the first
// provider whose calendar accepts the slot. Only a genuine slot conflict
// advances to the next candidate; any other failure aborts the walk.
func (s *reservationEngine) tryCandidates(ctx context.Context, req *model.ReservationRequest, start time.Time, fingerprint string, candidates []string) (*model.Reservation, error) {
	var lastConflict error

	for _, providerID := range candidates {
		res := s.buildReservation(req, providerID, start)

		err := s.createOnProvider(ctx, res, req.IdempotencyKey, fingerprint)
		if err == nil {
			return res, nil
		}
		if apperrors.HasCode(err, apperrors.CodeSlotConflict) {
			lastConflict = err
			continue
		}
		return nil, err
	}

	if req.ProviderID != "" {
		return nil, lastConflict
	}
	// Every candidate's calendar was taken.
	return nil, apperrors.NoProviderAvailable()
}

// createOnProvider runs the creation critical section: provider lock, then
// conflict check and insert in one transaction. The idempotency record
// commits atomically with the reservation so a replayable key can never
// reference an uncommitted result.
func (s *reservationEngine) createOnProvider(ctx context.Context, res *model.Reservation, idempotencyKey, fingerprint string) error {
	return s.locks.WithProviderLock(ctx, res.ProviderID, s.cfg.LockTimeout, func(ctx context.Context) error {
		return s.repo.ExecuteTransaction(ctx, func(sessCtx mongo.SessionContext) error {
			// Re-check the key inside the lock: a concurrent duplicate that
			// committed after our replay check would otherwise surface as a
			// slot conflict instead of a replay.
			if idempotencyKey != "" {
				_, err := s.idemRepo.Find(sessCtx, idempotencyKey, model.OpCreateReservation)
				if err == nil {
					return apperrors.StorageContention("idempotency record committed concurrently", nil)
				}
				if !errors.Is(err, reserrors.ErrNoIdempotencyRecord) {
					return apperrors.Internal("Failed to look up idempotency key", err)
				}
			}
			if err := s.verifyNoConflict(sessCtx, res, ""); err != nil {
				return err
			}
			if err := s.repo.Create(sessCtx, res); err != nil {
				return apperrors.Internal("Failed to create reservation", err)
			}
			if idempotencyKey != "" {
				record := &model.IdempotencyRecord{
					Key:           idempotencyKey,
					OperationType: model.OpCreateReservation,
					Fingerprint:   fingerprint,
					ResultID:      res.ID,
				}
				if err := s.idemRepo.Insert(sessCtx, record); err != nil {
					if errors.Is(err, reserrors.ErrIdempotencyRecordExists) {
						// A concurrent duplicate won the key. Abort this
						// transaction; the next attempt replays the winner.
						return apperrors.StorageContention("idempotency record committed concurrently", err)
					}
					return apperrors.Internal("Failed to record idempotency key", err)
				}
			}
			return nil
		})
	})
}

func (s *reservationEngine) Update(ctx context.Context, id string, updates *model.ReservationUpdate, idempotencyKey string) (*model.Reservation, error) {
	if id == "" {
		return nil, apperrors.InvalidInput("Reservation ID cannot be empty")
	}
	idempotencyKey = sanitizer.NormalizeIdempotencyKey(idempotencyKey)

	if err := s.validator.ValidateUpdate(updates); err != nil {
		s.cfg.Log.Warn("Reservation update validation failed", "id", id, "error", err)
		return nil, apperrors.Validation("Invalid update input", map[string]any{"error": err.Error()})
	}

	fingerprint := updateFingerprint(id, updates)
	clientGuard := updates.ExpectedVersion > 0

	var updated *model.Reservation
	replayed := false

	err := retry.Run(ctx, s.retryPolicy(), func(ctx context.Context) error {
		if idempotencyKey != "" {
			existing, err := s.replayFromKey(ctx, idempotencyKey, model.OpUpdateReservation, fingerprint)
			if err != nil {
				return err
			}
			if existing != nil {
				updated = existing
				replayed = true
				return nil
			}
		}

		existing, err := s.findForWrite(ctx, id)
		if err != nil {
			return retry.Permanent(err)
		}

		// A caller-pinned version that is already stale stays stale no
		// matter how often we retry.
		if clientGuard && existing.Version != updates.ExpectedVersion {
			return retry.Permanent(apperrors.VersionConflict("Reservation", id, updates.ExpectedVersion, existing.Version))
		}

		merged := s.mergeUpdates(existing, updates)
		merged.Notes = sanitizer.NormalizeNotes(merged.Notes)
		if err := s.validator.ValidateReservation(merged); err != nil {
			return retry.Permanent(apperrors.Validation("Reservation validation failed", map[string]any{"error": err.Error()}))
		}
		if updates.AltersSchedule() {
			if err := s.validator.ValidateStartTime(merged.StartTime); err != nil {
				return retry.Permanent(apperrors.Validation("Reservation validation failed", map[string]any{"error": err.Error()}))
			}
		}

		// A status flip from cancelled/no_show back to a blocking status
		// puts the interval back on the calendar, so it takes the same
		// lock-and-check path as a reschedule.
		altersCalendar := updates.AltersSchedule() || (!existing.Blocks() && merged.Blocks())

		commit := func(ctx context.Context) error {
			return s.repo.ExecuteTransaction(ctx, func(sessCtx mongo.SessionContext) error {
				if altersCalendar && merged.Blocks() {
					if err := s.verifyNoConflict(sessCtx, merged, id); err != nil {
						return err
					}
				}

				matched, err := s.repo.UpdateWithVersion(sessCtx, id, existing.Version, merged)
				if err != nil {
					return apperrors.Internal("Failed to update reservation", err)
				}
				if !matched {
					return s.versionMoved(sessCtx, id, existing.Version, clientGuard)
				}

				if idempotencyKey != "" {
					record := &model.IdempotencyRecord{
						Key:           idempotencyKey,
						OperationType: model.OpUpdateReservation,
						Fingerprint:   fingerprint,
						ResultID:      id,
					}
					if err := s.idemRepo.Insert(sessCtx, record); err != nil {
						if errors.Is(err, reserrors.ErrIdempotencyRecordExists) {
							return apperrors.StorageContention("idempotency record committed concurrently", err)
						}
						return apperrors.Internal("Failed to record idempotency key", err)
					}
				}
				return nil
			})
		}

		// Updates that add an interval to the target provider's calendar
		// (reschedules and re-activations) run under its lock. Everything
		// else is guarded by the version CAS alone.
		if altersCalendar {
			err = s.locks.WithProviderLock(ctx, merged.ProviderID, s.cfg.LockTimeout, commit)
		} else {
			err = commit(ctx)
		}
		if err != nil {
			return err
		}

		merged.Version = existing.Version + 1
		updated = merged
		return nil
	})
	if err != nil {
		s.cfg.Log.Error("Failed to update reservation", "id", id, "error", err)
		return nil, err
	}

	if replayed {
		s.cfg.Log.Info("Reservation update replayed from idempotency key",
			"id", id,
			"idempotency_key", idempotencyKey,
		)
		return updated, nil
	}

	s.cfg.Log.Info("Reservation updated successfully", "id", id, "version", updated.Version)
	s.notifier.ReservationUpdated(ctx, updated)
	return updated, nil
}

func (s *reservationEngine) Cancel(ctx context.Context, id string, expectedVersion int64) (*model.Reservation, error) {
	if id == "" {
		return nil, apperrors.InvalidInput("Reservation ID cannot be empty")
	}

	clientGuard := expectedVersion > 0
	var cancelled *model.Reservation
	alreadyCancelled := false

	err := retry.Run(ctx, s.retryPolicy(), func(ctx context.Context) error {
		existing, err := s.findForWrite(ctx, id)
		if err != nil {
			return retry.Permanent(err)
		}

		if existing.Status == model.StatusCancelled {
			// Cancelling twice is a no-op, not an error.
			cancelled = existing
			alreadyCancelled = true
			return nil
		}
		if existing.Status == model.StatusCompleted {
			return retry.Permanent(apperrors.Conflict("Reservation is already completed and cannot be cancelled"))
		}
		if clientGuard && existing.Version != expectedVersion {
			return retry.Permanent(apperrors.VersionConflict("Reservation", id, expectedVersion, existing.Version))
		}

		merged := *existing
		merged.Status = model.StatusCancelled

		// Cancellation only frees calendar space, so no provider lock or
		// conflict check; the version CAS alone keeps it race-safe.
		err = s.repo.ExecuteTransaction(ctx, func(sessCtx mongo.SessionContext) error {
			matched, err := s.repo.UpdateWithVersion(sessCtx, id, existing.Version, &merged)
			if err != nil {
				return apperrors.Internal("Failed to cancel reservation", err)
			}
			if !matched {
				return s.versionMoved(sessCtx, id, existing.Version, clientGuard)
			}
			return nil
		})
		if err != nil {
			return err
		}

		merged.Version = existing.Version + 1
		cancelled = &merged
		return nil
	})
	if err != nil {
		s.cfg.Log.Error("Failed to cancel reservation", "id", id, "error", err)
		return nil, err
	}

	if alreadyCancelled {
		return cancelled, nil
	}

	s.cfg.Log.Info("Reservation cancelled successfully", "id", id, "version", cancelled.Version)
	s.notifier.ReservationCancelled(ctx, cancelled)
	return cancelled, nil
}

func (s *reservationEngine) GetByID(ctx context.Context, id string) (*model.Reservation, error) {
	if id == "" {
		return nil, apperrors.InvalidInput("Reservation ID cannot be empty")
	}
	return s.findForWrite(ctx, id)
}

func (s *reservationEngine) GetAll(ctx context.Context, limit int, offset int64) ([]*model.Reservation, int64, error) {
	var count int64
	var reservations []*model.Reservation
	var errCount, errFind error
	var wg sync.WaitGroup
	wg.Add(2)

	go func() {
		defer wg.Done()
		count, errCount = s.repo.Count(ctx)
		if errCount != nil {
			s.cfg.Log.Error("Failed to count reservations", "error", errCount)
			errCount = apperrors.Internal("Failed to count reservations", errCount)
		}
	}()

	go func() {
		defer wg.Done()
		reservations, errFind = s.repo.FindAll(ctx, limit, offset)
		if errFind != nil {
			s.cfg.Log.Error("Failed to list reservations", "error", errFind)
			errFind = apperrors.Internal("Failed to retrieve reservations", errFind)
		}
	}()

	wg.Wait()
	if errCount != nil {
		return nil, 0, errCount
	}
	if errFind != nil {
		return nil, 0, errFind
	}

	return reservations, count, nil
}

func (s *reservationEngine) Calendar(ctx context.Context, providerID string, from, to *time.Time, limit int, offset int64) ([]*model.Reservation, int64, error) {
	if providerID == "" {
		return nil, 0, apperrors.InvalidInput("Provider ID cannot be empty")
	}

	var count int64
	var reservations []*model.Reservation
	var errCount, errFind error
	var wg sync.WaitGroup
	wg.Add(2)

	go func() {
		defer wg.Done()
		var err error
		count, err = s.repo.CountByProvider(ctx, providerID, from, to)
		if err != nil {
			s.cfg.Log.Error("Failed to count provider reservations",
				"provider_id", providerID,
				"error", err,
			)
			errCount = apperrors.Internal("Failed to count reservations", err)
		}
	}()

	go func() {
		defer wg.Done()
		var err error
		reservations, err = s.repo.FindByProvider(ctx, providerID, from, to, limit, offset)
		if err != nil {
			s.cfg.Log.Error("Failed to load provider calendar",
				"provider_id", providerID,
				"error", err,
			)
			errFind = apperrors.Internal("Failed to retrieve reservations", err)
		}
	}()

	wg.Wait()

	if errCount != nil {
		return nil, 0, errCount
	}
	if errFind != nil {
		return nil, 0, errFind
	}

	return reservations, count, nil
}

// --- Helpers ---

func (s *reservationEngine) retryPolicy() retry.Policy {
	return retry.Policy{
		MaxAttempts: s.cfg.RetryMaxAttempts,
		BaseDelay:   s.cfg.RetryBaseDelay,
		MaxDelay:    s.cfg.RetryMaxDelay,
	}
}

func (s *reservationEngine) sanitizeRequest(req *model.ReservationRequest) {
	req.ClientID = sanitizer.NormalizeID(req.ClientID)
	req.ProviderID = sanitizer.NormalizeID(req.ProviderID)
	req.ServiceID = sanitizer.NormalizeID(req.ServiceID)
	req.Notes = sanitizer.NormalizeNotes(req.Notes)
	req.IdempotencyKey = sanitizer.NormalizeIdempotencyKey(req.IdempotencyKey)
}

func (s *reservationEngine) applyRequestDefaults(req *model.ReservationRequest) {
	if req.DurationMin == 0 {
		req.DurationMin = s.cfg.DefaultDurationMin
	}
	if req.BufferBeforeMin == 0 {
		req.BufferBeforeMin = s.cfg.DefaultBufferBeforeMin
	}
	if req.BufferAfterMin == 0 {
		req.BufferAfterMin = s.cfg.DefaultBufferAfterMin
	}
}

func (s *reservationEngine) buildReservation(req *model.ReservationRequest, providerID string, start time.Time) *model.Reservation {
	res := &model.Reservation{
		ProviderID:      providerID,
		ClientID:        req.ClientID,
		ServiceID:       req.ServiceID,
		StartTime:       start,
		DurationMin:     req.DurationMin,
		BufferBeforeMin: req.BufferBeforeMin,
		BufferAfterMin:  req.BufferAfterMin,
		Status:          model.StatusScheduled,
		Version:         1,
		Notes:           req.Notes,
	}
	res.ComputeEffectiveInterval()
	return res
}

func (s *reservationEngine) mergeUpdates(existing *model.Reservation, updates *model.ReservationUpdate) *model.Reservation {
	merged := *existing

	if updates.ProviderID != "" {
		merged.ProviderID = updates.ProviderID
	}
	if updates.StartTime != nil {
		merged.StartTime = updates.StartTime.UTC()
	}
	if updates.DurationMin != nil {
		merged.DurationMin = *updates.DurationMin
	}
	if updates.BufferBeforeMin != nil {
		merged.BufferBeforeMin = *updates.BufferBeforeMin
	}
	if updates.BufferAfterMin != nil {
		merged.BufferAfterMin = *updates.BufferAfterMin
	}
	if updates.Status != "" {
		merged.Status = updates.Status
	}
	if updates.Notes != nil {
		merged.Notes = *updates.Notes
	}

	merged.ComputeEffectiveInterval()
	return &merged
}

// verifyNoConflict rejects the write if any blocking reservation's
// effective interval overlaps the candidate's. Runs inside the provider
// lock and transaction so the check holds until commit.
func (s *reservationEngine) verifyNoConflict(ctx context.Context, res *model.Reservation, excludeID string) error {
	blocking, err := s.repo.FindBlockingInRange(ctx, res.ProviderID, res.EffectiveStart, res.EffectiveEnd)
	if err != nil {
		return apperrors.Internal("Failed to check existing reservations", err)
	}

	interval := model.EffectiveInterval{Start: res.EffectiveStart, End: res.EffectiveEnd}
	for _, b := range blocking {
		if excludeID != "" && b.ID == excludeID {
			continue
		}
		other := model.EffectiveInterval{Start: b.EffectiveStart, End: b.EffectiveEnd}
		if interval.Overlaps(other) {
			return apperrors.SlotConflict(fmt.Sprintf(
				"Requested slot overlaps an existing reservation (%s - %s)",
				b.EffectiveStart.Format(time.RFC3339),
				b.EffectiveEnd.Format(time.RFC3339),
			))
		}
	}
	return nil
}

// versionMoved builds the error for a CAS miss: the document's version
// changed after our read. With a caller-pinned version the conflict is
// final; otherwise the next attempt re-reads and tries again.
func (s *reservationEngine) versionMoved(ctx context.Context, id string, readVersion int64, clientGuard bool) error {
	actual := int64(-1)
	if current, err := s.repo.FindByID(ctx, id); err == nil {
		actual = current.Version
	}

	verr := apperrors.VersionConflict("Reservation", id, readVersion, actual)
	if clientGuard {
		return retry.Permanent(verr)
	}
	return verr
}

// replayFromKey returns the prior result for an idempotency key, nil when
// the key is unused, or IDEMPOTENCY_KEY_REUSE when the payload differs.
func (s *reservationEngine) replayFromKey(ctx context.Context, key, operationType, fingerprint string) (*model.Reservation, error) {
	record, err := s.idemRepo.Find(ctx, key, operationType)
	if err != nil {
		if errors.Is(err, reserrors.ErrNoIdempotencyRecord) {
			return nil, nil
		}
		return nil, apperrors.Internal("Failed to look up idempotency key", err)
	}

	if record.Fingerprint != fingerprint {
		return nil, apperrors.IdempotencyKeyReuse(key)
	}

	res, err := s.repo.FindByID(ctx, record.ResultID)
	if err != nil {
		return nil, apperrors.Internal("Failed to load reservation for idempotent replay", err)
	}
	return res, nil
}

func (s *reservationEngine) findForWrite(ctx context.Context, id string) (*model.Reservation, error) {
	res, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, reserrors.ErrNotFound) {
			return nil, apperrors.NotFoundWithID("Reservation", id)
		}
		if errors.Is(err, reserrors.ErrInvalidID) {
			return nil, apperrors.InvalidInput("Invalid reservation ID format")
		}
		return nil, apperrors.Internal("Failed to retrieve reservation", err)
	}
	return res, nil
}
