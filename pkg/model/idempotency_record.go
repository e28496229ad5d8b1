package model

import "time"

// Operation types recorded in the idempotency ledger.
const (
	OpCreateReservation = "create_reservation"
	OpUpdateReservation = "update_reservation"
)

// IdempotencyRecord maps a client-supplied key to the result it produced.
// A (key, operation_type) pair is unique for the life of the record; the
// fingerprint detects key reuse with a different payload.
type IdempotencyRecord struct {
	Key           string    `bson:"key" json:"key"`
	OperationType string    `bson:"operation_type" json:"operation_type"`
	Fingerprint   string    `bson:"fingerprint" json:"fingerprint"`
	ResultID      string    `bson:"result_id" json:"result_id"`
	ExpiresAt     time.Time `bson:"expires_at" json:"expires_at"`
	CreatedAt     time.Time `bson:"created_at" json:"created_at"`
}

// Expired reports whether the record is past its expiry and may be
// treated as absent. The TTL index lags actual expiry by up to a minute.
func (r *IdempotencyRecord) Expired(now time.Time) bool {
	return now.After(r.ExpiresAt)
}
