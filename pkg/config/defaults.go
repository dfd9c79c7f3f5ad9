package config

import "time"

// Defaults returns the configuration baseline every YAML/env layer is
// merged onto (via mergo, see loader.go), matching the defaults named
// throughout spec §4 and §6.
func Defaults() Config {
	return Config{
		Database: DatabaseConfig{
			PoolSize:    20,
			MaxOverflow: 30,
			PoolTimeout: 30 * time.Second,
			PoolRecycle: time.Hour,
		},
		Redis: RedisConfig{
			URL: "redis://localhost:6379/0",
		},
		LM: LMConfig{
			Model:              "claude-haiku-4-5",
			TempGeneration:     0.0,
			TempSummary:        0.3,
			TempSuggestion:     0.5,
			RequestsPerMinute:  60,
			CallTimeout:        15 * time.Second,
			MaxRetries:         3,
			BaseBackoff:        500 * time.Millisecond,
			MaxBackoff:         8 * time.Second,
			BreakerMaxFailures: 5,
			BreakerCooldown:    30 * time.Second,
		},
		Cache: CacheConfig{
			EnableLLMCache:     true,
			LLMCacheTTL:        5 * time.Minute,
			QueryCacheTTL:      5 * time.Minute,
			SchemaCacheTTL:     time.Hour,
			SuggestionCacheTTL: 5 * time.Minute,
		},
		Dispatcher: DispatcherConfig{
			TaskTimeLimit:            60 * time.Second,
			TaskSoftTimeLimit:        50 * time.Second,
			WorkerPrefetchMultiplier: 25, // mirrors Defaults()'s simple=100/4 workers in pkg/queue
			WorkerMaxTasksPerChild:   0,  // 0 disables recycling
			SimpleWorkers:            4,
			StandardWorkers:          3,
			ComplexWorkers:           1,
			MaxRetries:               3,
			RetryBackoff:             500 * time.Millisecond,
		},
		Session: SessionConfig{
			SessionTTL:   24 * time.Hour,
			HistoryLimit: 10,
		},
		API: APIConfig{
			ListenAddr:           ":8080",
			MaxQuestionBytes:     4 * 1024,
			SuppressDebugDetails: false,
		},
	}
}
