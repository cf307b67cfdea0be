package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/joho/godotenv"
)

type Config struct {
	AppEnv        string
	HTTPAddr      string
	RedisAddr     string
	RedisPassword string

	// StorageRoot is the directory under which comics/<comic>/<episode>/ is written.
	StorageRoot string

	// Executor selects how derived tasks are run: "immediate" or "queued".
	Executor string

	WorkerEnabled     bool
	WorkerConcurrency int
	TaskQueue         string
	TaskMaxRetries    int
	TaskRetryBase     time.Duration
	TaskRetryMax      time.Duration

	// FetchTimeout of zero keeps the HTTP client default (no timeout).
	FetchTimeout time.Duration

	SupabaseURL        string
	SupabaseServiceKey string
	SupabaseBucket     string
}

const (
	ExecutorImmediate = "immediate"
	ExecutorQueued    = "queued"
)

func getenv(key, def string) string {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	return v
}

func getenvInt(key string, def int) int {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return i
}

func getenvBool(key string, def bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return def
	}
	return b
}

func getenvDuration(key string, def time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return def
	}
	return d
}

// Load reads configuration from the environment. A .env file in the working
// directory is loaded first if present; variables already set win.
func Load() (Config, error) {
	_ = godotenv.Load()

	cfg := Config{
		AppEnv:        getenv("APP_ENV", "development"),
		HTTPAddr:      getenv("HTTP_ADDR", ":8081"),
		RedisAddr:     getenv("REDIS_ADDR", "127.0.0.1:6379"),
		RedisPassword: os.Getenv("REDIS_PASSWORD"),

		StorageRoot: getenv("STORAGE_ROOT", "./mnt"),
		Executor:    strings.ToLower(getenv("EXECUTOR", ExecutorQueued)),

		WorkerEnabled:     getenvBool("WORKER_ENABLED", true),
		WorkerConcurrency: getenvInt("WORKER_CONCURRENCY", 10),
		TaskQueue:         getenv("TASK_QUEUE", "default"),
		TaskMaxRetries:    getenvInt("TASK_MAX_RETRIES", 5),
		TaskRetryBase:     getenvDuration("TASK_RETRY_BASE", time.Second),
		TaskRetryMax:      getenvDuration("TASK_RETRY_MAX", 5*time.Minute),

		FetchTimeout: getenvDuration("FETCH_TIMEOUT", 0),

		SupabaseURL:        os.Getenv("SUPABASE_URL"),
		SupabaseServiceKey: os.Getenv("SUPABASE_SERVICE_KEY"),
		SupabaseBucket:     os.Getenv("SUPABASE_STORAGE_BUCKET"),
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) Validate() error {
	switch c.Executor {
	case ExecutorImmediate, ExecutorQueued:
	default:
		return fmt.Errorf("EXECUTOR must be %q or %q, got %q", ExecutorImmediate, ExecutorQueued, c.Executor)
	}
	if c.StorageRoot == "" {
		return fmt.Errorf("STORAGE_ROOT is required")
	}
	if !utf8.ValidString(c.StorageRoot) {
		return fmt.Errorf("STORAGE_ROOT must be valid UTF-8, got %q", c.StorageRoot)
	}
	if c.NeedsRedis() && c.RedisAddr == "" {
		return fmt.Errorf("REDIS_ADDR is required")
	}
	if c.TaskMaxRetries < 0 {
		return fmt.Errorf("TASK_MAX_RETRIES must not be negative")
	}
	if c.WorkerConcurrency < 1 {
		return fmt.Errorf("WORKER_CONCURRENCY must be at least 1")
	}
	return nil
}

// NeedsRedis reports whether the process talks to the task queue at all.
func (c Config) NeedsRedis() bool {
	return c.Executor == ExecutorQueued || c.WorkerEnabled
}

// MirrorEnabled reports whether written pages are also uploaded to a bucket.
func (c Config) MirrorEnabled() bool {
	return c.SupabaseURL != "" && c.SupabaseServiceKey != "" && c.SupabaseBucket != ""
}
