package config

import (
	"fmt"
	"os"
	"regexp"
	"strconv"
	"time"
	"trimline/pkg/client"
	"trimline/pkg/logger"
)

type Config struct {
	MongoURI          string
	MongoDatabaseName string
	MongoConnTimeout  time.Duration

	Port string

	RequestTimeout time.Duration
	MaxRequestSize int

	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	ShutdownTimeout time.Duration

	IdempotencyTTL time.Duration

	LockBackend string
	LockTimeout time.Duration
	LockTTL     time.Duration

	RetryMaxAttempts int
	RetryBaseDelay   time.Duration
	RetryMaxDelay    time.Duration

	DefaultDurationMin     int
	DefaultBufferBeforeMin int
	DefaultBufferAfterMin  int

	AvailabilityBaseURL string

	NotificationsEnabled bool
	NotificationsTopic   string

	Log    *logger.Logger
	Client *client.Client
}

func Load(serviceName string) *Config {
	cfg := &Config{
		MongoURI:          getEnvStr(EnvMongoURI, DefaultMongoURI),
		MongoDatabaseName: getEnvStr(EnvMongoDatabaseName, DefaultMongoDatabaseName),
		MongoConnTimeout:  getEnvDuration(EnvMongoConnTimeout, DefaultMongoConnTimeout),

		Port: getEnvStr(EnvPort, DefaultPort),

		RequestTimeout: getEnvDuration(EnvRequestTimeout, DefaultRequestTimeout),
		MaxRequestSize: getEnvNum(EnvMaxRequestSize, DefaultMaxRequestSize),

		ReadTimeout:     getEnvDuration(EnvReadTimeout, DefaultReadTimeout),
		WriteTimeout:    getEnvDuration(EnvWriteTimeout, DefaultWriteTimeout),
		IdleTimeout:     getEnvDuration(EnvIdleTimeout, DefaultIdleTimeout),
		ShutdownTimeout: getEnvDuration(EnvShutdownTimeout, DefaultShutdownTimeout),

		IdempotencyTTL: getEnvDuration(EnvIdempotencyTTL, DefaultIdempotencyTTL),

		LockBackend: getEnvStr(EnvLockBackend, DefaultLockBackend),
		LockTimeout: getEnvDuration(EnvLockTimeout, DefaultLockTimeout),
		LockTTL:     getEnvDuration(EnvLockTTL, DefaultLockTTL),

		RetryMaxAttempts: getEnvNum(EnvRetryMaxAttempts, DefaultRetryMaxAttempts),
		RetryBaseDelay:   getEnvDuration(EnvRetryBaseDelay, DefaultRetryBaseDelay),
		RetryMaxDelay:    getEnvDuration(EnvRetryMaxDelay, DefaultRetryMaxDelay),

		DefaultDurationMin:     getEnvNum(EnvDefaultDurationMin, DefaultDefaultDurationMin),
		DefaultBufferBeforeMin: getEnvNum(EnvDefaultBufferBeforeMin, DefaultDefaultBufferBeforeMin),
		DefaultBufferAfterMin:  getEnvNum(EnvDefaultBufferAfterMin, DefaultDefaultBufferAfterMin),

		AvailabilityBaseURL: getEnvStr(EnvAvailabilityBaseURL, ""),

		NotificationsEnabled: getEnvBool(EnvNotificationsEnabled, false),
		NotificationsTopic:   getEnvStr(EnvNotificationsTopic, DefaultNotificationsTopic),

		Log: logger.New(logger.Config{
			Level:     getEnvStr(EnvLogLevel, logger.INFO),
			Format:    logger.JSON,
			AddSource: true,
			Service:   serviceName,
		}),
		Client: client.NewClient(),
	}

	if err := cfg.Validate(); err != nil {
		cfg.Log.Fatal(err.Error())
	}
	cfg.LogConfiguration()
	return cfg
}

func (cfg *Config) SetMongo() {
	cfg.Client.SetMongo(cfg.Log, cfg.MongoURI, cfg.MongoConnTimeout)
}

func (cfg *Config) Validate() error {
	var errors []string

	if port, err := strconv.Atoi(cfg.Port); err != nil || port < 1 || port > 65535 {
		errors = append(errors, fmt.Sprintf("Port must be between 1 and 65535, got: %s", cfg.Port))
	}

	if cfg.MongoURI == "" {
		errors = append(errors, "MongoURI cannot be empty")
	} else if !regexp.MustCompile(`^mongodb(\+srv)?://`).MatchString(cfg.MongoURI) {
		errors = append(errors, fmt.Sprintf("MongoURI must start with 'mongodb://' or 'mongodb+srv://', got: %s", cfg.MongoURI))
	}

	if cfg.MongoDatabaseName == "" {
		errors = append(errors, "MongoDatabaseName cannot be empty")
	}

	if cfg.MongoConnTimeout <= 0 {
		errors = append(errors, fmt.Sprintf("MongoConnTimeout must be positive, got: %s", cfg.MongoConnTimeout))
	}
	if cfg.RequestTimeout <= 0 {
		errors = append(errors, fmt.Sprintf("RequestTimeout must be positive, got: %s", cfg.RequestTimeout))
	}
	if cfg.MaxRequestSize <= 0 {
		errors = append(errors, fmt.Sprintf("MaxRequestSize must be positive, got: %d", cfg.MaxRequestSize))
	}
	if cfg.ReadTimeout <= 0 {
		errors = append(errors, fmt.Sprintf("ReadTimeout must be positive, got: %s", cfg.ReadTimeout))
	}
	if cfg.WriteTimeout <= 0 {
		errors = append(errors, fmt.Sprintf("WriteTimeout must be positive, got: %s", cfg.WriteTimeout))
	}
	if cfg.IdleTimeout <= 0 {
		errors = append(errors, fmt.Sprintf("IdleTimeout must be positive, got: %s", cfg.IdleTimeout))
	}
	if cfg.ShutdownTimeout <= 0 {
		errors = append(errors, fmt.Sprintf("ShutdownTimeout must be positive, got: %s", cfg.ShutdownTimeout))
	}

	if cfg.IdempotencyTTL <= 0 {
		errors = append(errors, fmt.Sprintf("IdempotencyTTL must be positive, got: %s", cfg.IdempotencyTTL))
	}

	if cfg.LockBackend != LockBackendMemory && cfg.LockBackend != LockBackendMongo {
		errors = append(errors, fmt.Sprintf("LockBackend must be %q or %q, got: %s", LockBackendMemory, LockBackendMongo, cfg.LockBackend))
	}
	if cfg.LockTimeout <= 0 {
		errors = append(errors, fmt.Sprintf("LockTimeout must be positive, got: %s", cfg.LockTimeout))
	}
	if cfg.LockTTL < cfg.RequestTimeout {
		errors = append(errors, fmt.Sprintf("LockTTL (%s) must cover the request budget, RequestTimeout is %s", cfg.LockTTL, cfg.RequestTimeout))
	}

	if cfg.RetryMaxAttempts < 1 {
		errors = append(errors, fmt.Sprintf("RetryMaxAttempts must be at least 1, got: %d", cfg.RetryMaxAttempts))
	}
	if cfg.RetryBaseDelay <= 0 {
		errors = append(errors, fmt.Sprintf("RetryBaseDelay must be positive, got: %s", cfg.RetryBaseDelay))
	}
	if cfg.RetryMaxDelay < cfg.RetryBaseDelay {
		errors = append(errors, fmt.Sprintf("RetryMaxDelay (%s) must be >= RetryBaseDelay (%s)", cfg.RetryMaxDelay, cfg.RetryBaseDelay))
	}

	if cfg.DefaultDurationMin <= 0 {
		errors = append(errors, fmt.Sprintf("DefaultDurationMin must be positive, got: %d", cfg.DefaultDurationMin))
	}
	if cfg.DefaultBufferBeforeMin < 0 {
		errors = append(errors, fmt.Sprintf("DefaultBufferBeforeMin cannot be negative, got: %d", cfg.DefaultBufferBeforeMin))
	}
	if cfg.DefaultBufferAfterMin < 0 {
		errors = append(errors, fmt.Sprintf("DefaultBufferAfterMin cannot be negative, got: %d", cfg.DefaultBufferAfterMin))
	}

	if cfg.NotificationsEnabled && cfg.NotificationsTopic == "" {
		errors = append(errors, "NotificationsTopic cannot be empty when notifications are enabled")
	}

	if len(errors) > 0 {
		errMsg := "Configuration validation failed:\n"
		for i, err := range errors {
			errMsg += fmt.Sprintf("  %d. %s\n", i+1, err)
		}
		return fmt.Errorf("%s", errMsg)
	}

	return nil
}

func (cfg *Config) LogConfiguration() {
	cfg.Log.Info("Configuration loaded successfully",
		"mongo_uri", redactMongoURI(cfg.MongoURI),
		"mongo_database", cfg.MongoDatabaseName,
		"mongo_conn_timeout", cfg.MongoConnTimeout,
		"port", cfg.Port,
		"request_timeout", cfg.RequestTimeout,
		"max_request_size", cfg.MaxRequestSize,
		"read_timeout", cfg.ReadTimeout,
		"write_timeout", cfg.WriteTimeout,
		"idle_timeout", cfg.IdleTimeout,
		"shutdown_timeout", cfg.ShutdownTimeout,
		"idempotency_ttl", cfg.IdempotencyTTL,
		"lock_backend", cfg.LockBackend,
		"lock_timeout", cfg.LockTimeout,
		"lock_ttl", cfg.LockTTL,
		"retry_max_attempts", cfg.RetryMaxAttempts,
		"retry_base_delay", cfg.RetryBaseDelay,
		"retry_max_delay", cfg.RetryMaxDelay,
		"default_duration_min", cfg.DefaultDurationMin,
		"default_buffer_before_min", cfg.DefaultBufferBeforeMin,
		"default_buffer_after_min", cfg.DefaultBufferAfterMin,
		"availability_base_url", cfg.AvailabilityBaseURL,
		"notifications_enabled", cfg.NotificationsEnabled,
		"notifications_topic", cfg.NotificationsTopic,
	)
}

func redactMongoURI(uri string) string {
	credentialRegex := regexp.MustCompile(`(mongodb(\+srv)?://)[^:]+:[^@]+@`)
	return credentialRegex.ReplaceAllString(uri, "${1}***:***@")
}

func getEnvStr(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func getEnvNum(key string, fallback int) int {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return fallback
}

func (cfg *Config) GracefulShutdown() {
	cfg.Client.GracefulShutdown()
}

func NormalizePaginationLimit(limit int) int {
	if limit <= 0 {
		limit = 10
	} else if limit > DefaultPaginationLimit {
		limit = DefaultPaginationLimit
	}
	return limit
}

func NormalizeOffset(offset int64) int64 {
	return max(0, offset)
}
