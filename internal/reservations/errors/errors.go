package errors

import "errors"

var (
	ErrNotFound = errors.New("reservation not found")

	ErrInvalidID = errors.New("invalid reservation ID format")

	ErrNoIdempotencyRecord = errors.New("idempotency record not found")

	ErrIdempotencyRecordExists = errors.New("idempotency record already exists")
)
