package config

import "fmt"

// Validator fail-fasts a loaded Config against the invariants spec §6
// requires before the core starts serving jobs.
type Validator struct{}

// NewValidator builds a Validator.
func NewValidator() *Validator {
	return &Validator{}
}

// Validate returns the first ValidationError found, or nil if cfg is
// well-formed. It checks required fields and value ranges; it does not
// attempt to reach the database, Redis, or the LM endpoint.
func (v *Validator) Validate(cfg *Config) error {
	if cfg.Database.URL == "" {
		return NewValidationError("database", "url", ErrMissingRequiredField)
	}
	if cfg.Database.PoolSize <= 0 {
		return NewValidationError("database", "pool_size", fmt.Errorf("%w: must be > 0", ErrInvalidValue))
	}

	if cfg.Redis.URL == "" {
		return NewValidationError("redis", "url", ErrMissingRequiredField)
	}

	if cfg.LM.APIBase == "" {
		return NewValidationError("lm", "api_base", ErrMissingRequiredField)
	}
	if cfg.LM.Model == "" {
		return NewValidationError("lm", "model", ErrMissingRequiredField)
	}
	if cfg.LM.RequestsPerMinute <= 0 {
		return NewValidationError("lm", "requests_per_minute", fmt.Errorf("%w: must be > 0", ErrInvalidValue))
	}
	if cfg.LM.CallTimeout <= 0 {
		return NewValidationError("lm", "call_timeout", fmt.Errorf("%w: must be > 0", ErrInvalidValue))
	}
	for _, temp := range []struct {
		field string
		value float64
	}{
		{"temp_generation", cfg.LM.TempGeneration},
		{"temp_summary", cfg.LM.TempSummary},
		{"temp_suggestion", cfg.LM.TempSuggestion},
	} {
		if temp.value < 0 || temp.value > 1 {
			return NewValidationError("lm", temp.field, fmt.Errorf("%w: must be within [0, 1]", ErrInvalidValue))
		}
	}

	if cfg.Dispatcher.TaskTimeLimit <= 0 {
		return NewValidationError("dispatcher", "task_time_limit", fmt.Errorf("%w: must be > 0", ErrInvalidValue))
	}
	if cfg.Dispatcher.TaskSoftTimeLimit > cfg.Dispatcher.TaskTimeLimit {
		return NewValidationError("dispatcher", "task_soft_time_limit", fmt.Errorf("%w: must not exceed task_time_limit", ErrInvalidValue))
	}
	if cfg.Dispatcher.SimpleWorkers < 0 || cfg.Dispatcher.StandardWorkers < 0 || cfg.Dispatcher.ComplexWorkers < 0 {
		return NewValidationError("dispatcher", "workers", fmt.Errorf("%w: worker counts must be >= 0", ErrInvalidValue))
	}

	if cfg.Session.HistoryLimit <= 0 {
		return NewValidationError("session", "history_limit", fmt.Errorf("%w: must be > 0", ErrInvalidValue))
	}
	if cfg.Session.SessionTTL <= 0 {
		return NewValidationError("session", "session_ttl", fmt.Errorf("%w: must be > 0", ErrInvalidValue))
	}

	if cfg.API.MaxQuestionBytes <= 0 {
		return NewValidationError("api", "max_question_bytes", fmt.Errorf("%w: must be > 0", ErrInvalidValue))
	}

	return nil
}
