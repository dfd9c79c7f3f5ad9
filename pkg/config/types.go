// Package config loads and validates the core's configuration surface
// (spec §6): a YAML file overlaid with environment variables, following
// the teacher repo's pkg/config/loader.go layering of yaml.v3 + mergo
// defaults + os.ExpandEnv.
package config

import "time"

// Config is the root configuration object, one section per collaborator.
type Config struct {
	Database   DatabaseConfig   `yaml:"database"`
	Redis      RedisConfig      `yaml:"redis"`
	LM         LMConfig         `yaml:"lm"`
	Cache      CacheConfig      `yaml:"cache"`
	Dispatcher DispatcherConfig `yaml:"dispatcher"`
	Session    SessionConfig    `yaml:"session"`
	API        APIConfig        `yaml:"api"`
}

// DatabaseConfig is the connector's target database and pool tuning,
// keyed from the DATABASE_URL_* and DB_POOL_* env families (spec §6).
type DatabaseConfig struct {
	URL         string        `yaml:"url"`
	PoolSize    int           `yaml:"pool_size"`    // DB_POOL_SIZE
	MaxOverflow int           `yaml:"max_overflow"` // DB_MAX_OVERFLOW
	PoolTimeout time.Duration `yaml:"pool_timeout"` // DB_POOL_TIMEOUT
	PoolRecycle time.Duration `yaml:"pool_recycle"` // DB_POOL_RECYCLE
}

// RedisConfig points the Cache Layer at its backend (REDIS_URL).
type RedisConfig struct {
	URL string `yaml:"url"`
}

// LMConfig is the language-model HTTP boundary (spec §6's "Language-model
// boundary"): endpoint, auth, default model, and the per-stage
// temperatures the pipeline calls with.
type LMConfig struct {
	APIBase    string `yaml:"api_base"`    // LITELLM_API_BASE
	AuthHeader string `yaml:"auth_header"` // LITELLM_AUTH_HEADER
	Model      string `yaml:"model"`       // LITELLM_MODEL

	TempGeneration float64 `yaml:"temp_generation"` // fixed at 0.0 per spec
	TempSummary    float64 `yaml:"temp_summary"`     // fixed at 0.3 per spec
	TempSuggestion float64 `yaml:"temp_suggestion"`  // fixed at 0.5 per spec

	RequestsPerMinute int           `yaml:"requests_per_minute"` // API_RATE_LIMIT
	CallTimeout       time.Duration `yaml:"call_timeout"`
	MaxRetries        int           `yaml:"max_retries"`
	BaseBackoff       time.Duration `yaml:"base_backoff"`
	MaxBackoff        time.Duration `yaml:"max_backoff"`

	BreakerMaxFailures uint32        `yaml:"breaker_max_failures"`
	BreakerCooldown    time.Duration `yaml:"breaker_cooldown"`
}

// CacheConfig is the per-namespace TTL policy (spec §4.1).
type CacheConfig struct {
	EnableLLMCache bool          `yaml:"enable_llm_cache"` // ENABLE_LLM_CACHE
	LLMCacheTTL    time.Duration `yaml:"llm_cache_ttl"`    // LLM_CACHE_TTL, namespace lm_response
	QueryCacheTTL  time.Duration `yaml:"query_cache_ttl"`  // QUERY_CACHE_TTL, namespace answer
	SchemaCacheTTL time.Duration `yaml:"schema_cache_ttl"` // SCHEMA_CACHE_TTL, namespace schema

	// SuggestionCacheTTL has no dedicated env key in spec §6; it defaults
	// to the same policy as the answer cache since both are keyed off a
	// finished Job's content.
	SuggestionCacheTTL time.Duration `yaml:"suggestion_cache_ttl"`
}

// DispatcherConfig tunes the Task Dispatcher (spec §4.7): job deadlines
// and worker pool sizing.
type DispatcherConfig struct {
	TaskTimeLimit     time.Duration `yaml:"task_time_limit"`      // TASK_TIME_LIMIT, hard deadline
	TaskSoftTimeLimit time.Duration `yaml:"task_soft_time_limit"` // TASK_SOFT_TIME_LIMIT, soft deadline

	// WorkerPrefetchMultiplier scales each pool's queue depth relative to
	// its worker count (QueueDepth = Workers * multiplier).
	WorkerPrefetchMultiplier int `yaml:"worker_prefetch_multiplier"` // WORKER_PREFETCH_MULTIPLIER

	// WorkerMaxTasksPerChild is accepted for config-surface parity with
	// spec §6 but has no effect: a pool worker here is a goroutine rather
	// than an OS child process, and no worker is recycled after any
	// number of jobs.
	WorkerMaxTasksPerChild int `yaml:"worker_max_tasks_per_child"` // WORKER_MAX_TASKS_PER_CHILD

	SimpleWorkers   int `yaml:"simple_workers"`
	StandardWorkers int `yaml:"standard_workers"`
	ComplexWorkers  int `yaml:"complex_workers"`

	MaxRetries   int           `yaml:"max_retries"`
	RetryBackoff time.Duration `yaml:"retry_backoff"`
}

// SessionConfig controls Conversation Memory (spec §4.2).
type SessionConfig struct {
	SessionTTL   time.Duration `yaml:"session_ttl"`   // SESSION_TTL
	HistoryLimit int           `yaml:"history_limit"` // HISTORY_LIMIT
}

// APIConfig is the thin HTTP submission boundary (spec §6, non-core).
type APIConfig struct {
	ListenAddr           string `yaml:"listen_addr"`
	MaxQuestionBytes     int    `yaml:"max_question_bytes"`
	SuppressDebugDetails bool   `yaml:"suppress_debug_details"`
}
