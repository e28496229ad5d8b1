package config

import "time"

const (
	DefaultMongoURI          = "mongodb://localhost:27017"
	DefaultMongoDatabaseName = "trimline"
	DefaultMongoConnTimeout  = 10 * time.Second

	DefaultPort = "8080"

	DefaultRequestTimeout = 30 * time.Second
	DefaultMaxRequestSize = 1 * 1024 * 1024 // 1MB

	DefaultReadTimeout     = 15 * time.Second
	DefaultWriteTimeout    = 15 * time.Second
	DefaultIdleTimeout     = 60 * time.Second
	DefaultShutdownTimeout = 30 * time.Second

	DefaultIdempotencyTTL = 24 * time.Hour

	// LockBackendMemory serializes providers inside this process;
	// LockBackendMongo uses the advisory-lock collection and works across
	// replicas.
	LockBackendMemory = "memory"
	LockBackendMongo  = "mongo"

	DefaultLockBackend = LockBackendMemory
	DefaultLockTimeout = 5 * time.Second

	// DefaultLockTTL must outlast the longest critical section, which is
	// bounded by the request timeout; otherwise another instance can reap
	// a live lock mid-flight.
	DefaultLockTTL = 60 * time.Second

	DefaultRetryMaxAttempts = 3
	DefaultRetryBaseDelay   = 50 * time.Millisecond
	DefaultRetryMaxDelay    = 1 * time.Second

	DefaultDefaultDurationMin     = 30
	DefaultDefaultBufferBeforeMin = 0
	DefaultDefaultBufferAfterMin  = 0

	DefaultNotificationsTopic = "reservations.events"

	DefaultPaginationLimit = 100
)
