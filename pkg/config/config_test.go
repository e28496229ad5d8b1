package config

import (
	"strings"
	"testing"
	"time"
)

func validConfig() *Config {
	return &Config{
		MongoURI:          "mongodb://localhost:27017",
		MongoDatabaseName: "trimline",
		MongoConnTimeout:  10 * time.Second,

		Port: "8080",

		RequestTimeout: 30 * time.Second,
		MaxRequestSize: 1 * 1024 * 1024,

		ReadTimeout:     15 * time.Second,
		WriteTimeout:    15 * time.Second,
		IdleTimeout:     60 * time.Second,
		ShutdownTimeout: 30 * time.Second,

		IdempotencyTTL: 24 * time.Hour,

		LockBackend: LockBackendMemory,
		LockTimeout: 5 * time.Second,
		LockTTL:     60 * time.Second,

		RetryMaxAttempts: 3,
		RetryBaseDelay:   50 * time.Millisecond,
		RetryMaxDelay:    time.Second,

		DefaultDurationMin: 30,
	}
}

func TestValidate_Passes(t *testing.T) {
	if err := validConfig().Validate(); err != nil {
		t.Fatalf("unexpected validation error: %v", err)
	}
}

func TestValidate_LockTTLBelowRequestBudget(t *testing.T) {
	cfg := validConfig()
	// A TTL shorter than the request timeout lets another instance reap a
	// lock whose critical section is still running.
	cfg.LockTTL = 10 * time.Second

	err := cfg.Validate()
	if err == nil {
		t.Fatal("expected validation error")
	}
	if !strings.Contains(err.Error(), "LockTTL") {
		t.Errorf("expected a LockTTL error, got: %v", err)
	}
}

func TestValidate_UnknownLockBackend(t *testing.T) {
	cfg := validConfig()
	cfg.LockBackend = "redis"

	err := cfg.Validate()
	if err == nil {
		t.Fatal("expected validation error")
	}
	if !strings.Contains(err.Error(), "LockBackend") {
		t.Errorf("expected a LockBackend error, got: %v", err)
	}
}
