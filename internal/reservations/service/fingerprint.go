package service

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"

	"trimline/pkg/model"
)

// requestFingerprint hashes the semantic fields of a creation request.
// Two requests with the same fingerprint are the same intent; the same
// idempotency key with a different fingerprint is key reuse. The key
// itself is excluded so the fingerprint identifies the payload.
func requestFingerprint(req *model.ReservationRequest) string {
	canonical := struct {
		ClientID        string `json:"client_id"`
		ProviderID      string `json:"provider_id"`
		ServiceID       string `json:"service_id"`
		Date            string `json:"date"`
		TimeOfDay       string `json:"time"`
		Timezone        string `json:"timezone"`
		DurationMin     int    `json:"duration_min"`
		BufferBeforeMin int    `json:"buffer_before_min"`
		BufferAfterMin  int    `json:"buffer_after_min"`
		Notes           string `json:"notes"`
	}{
		ClientID:        req.ClientID,
		ProviderID:      req.ProviderID,
		ServiceID:       req.ServiceID,
		Date:            req.Date,
		TimeOfDay:       req.TimeOfDay,
		Timezone:        req.Timezone,
		DurationMin:     req.DurationMin,
		BufferBeforeMin: req.BufferBeforeMin,
		BufferAfterMin:  req.BufferAfterMin,
		Notes:           req.Notes,
	}

	data, _ := json.Marshal(canonical)
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// updateFingerprint binds an update payload to its target reservation so
// replaying a key against a different reservation is detected.
func updateFingerprint(id string, updates *model.ReservationUpdate) string {
	canonical := struct {
		ID      string                   `json:"id"`
		Updates *model.ReservationUpdate `json:"updates"`
	}{
		ID:      id,
		Updates: updates,
	}

	data, _ := json.Marshal(canonical)
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}
