package config

const (
	EnvMongoURI          = "MONGO_URI"
	EnvMongoDatabaseName = "MONGO_DATABASE_NAME"
	EnvMongoConnTimeout  = "MONGO_CONN_TIMEOUT"

	EnvPort     = "PORT"
	EnvLogLevel = "LOG_LEVEL"

	EnvRequestTimeout = "REQUEST_TIMEOUT"
	EnvMaxRequestSize = "MAX_REQUEST_SIZE"

	EnvReadTimeout     = "READ_TIMEOUT"
	EnvWriteTimeout    = "WRITE_TIMEOUT"
	EnvIdleTimeout     = "IDLE_TIMEOUT"
	EnvShutdownTimeout = "SHUTDOWN_TIMEOUT"

	EnvIdempotencyTTL = "IDEMPOTENCY_TTL"

	EnvLockBackend = "LOCK_BACKEND"
	EnvLockTimeout = "LOCK_TIMEOUT"
	EnvLockTTL     = "LOCK_TTL"

	EnvRetryMaxAttempts = "RETRY_MAX_ATTEMPTS"
	EnvRetryBaseDelay   = "RETRY_BASE_DELAY"
	EnvRetryMaxDelay    = "RETRY_MAX_DELAY"

	EnvDefaultDurationMin     = "DEFAULT_DURATION_MIN"
	EnvDefaultBufferBeforeMin = "DEFAULT_BUFFER_BEFORE_MIN"
	EnvDefaultBufferAfterMin  = "DEFAULT_BUFFER_AFTER_MIN"

	EnvAvailabilityBaseURL = "AVAILABILITY_BASE_URL"

	EnvNotificationsEnabled = "NOTIFICATIONS_ENABLED"
	EnvNotificationsTopic   = "NOTIFICATIONS_TOPIC"
)
