package model

import "time"

// ProviderLock is an advisory lock document keyed by provider, held for
// the duration of one reservation critical section. The unique _id makes
// insertion the acquire operation; ExpiresAt bounds leaked locks from
// crashed holders.
type ProviderLock struct {
	ID        string    `bson:"_id" json:"id"`
	ExpiresAt time.Time `bson:"expires_at" json:"expires_at"`
	CreatedAt time.Time `bson:"created_at" json:"created_at"`
}
