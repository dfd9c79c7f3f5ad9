package config

import (
	"errors"
	"testing"
)

func validConfig() Config {
	cfg := Defaults()
	cfg.Database.URL = "postgres://localhost:5432/app"
	cfg.LM.APIBase = "https://litellm.internal"
	return cfg
}

func TestValidateAcceptsDefaultsPlusRequiredFields(t *testing.T) {
	cfg := validConfig()
	if err := NewValidator().Validate(&cfg); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestValidateRejectsMissingDatabaseURL(t *testing.T) {
	cfg := validConfig()
	cfg.Database.URL = ""
	err := NewValidator().Validate(&cfg)
	var ve *ValidationError
	if !errors.As(err, &ve) || ve.Field != "url" {
		t.Fatalf("expected url validation error, got %v", err)
	}
}

func TestValidateRejectsOutOfRangeTemperature(t *testing.T) {
	cfg := validConfig()
	cfg.LM.TempGeneration = 1.5
	err := NewValidator().Validate(&cfg)
	var ve *ValidationError
	if !errors.As(err, &ve) || ve.Field != "temp_generation" {
		t.Fatalf("expected temp_generation validation error, got %v", err)
	}
}

func TestValidateRejectsSoftLimitExceedingHardLimit(t *testing.T) {
	cfg := validConfig()
	cfg.Dispatcher.TaskSoftTimeLimit = cfg.Dispatcher.TaskTimeLimit + 1
	err := NewValidator().Validate(&cfg)
	var ve *ValidationError
	if !errors.As(err, &ve) || ve.Field != "task_soft_time_limit" {
		t.Fatalf("expected task_soft_time_limit validation error, got %v", err)
	}
}

func TestValidateRejectsZeroHistoryLimit(t *testing.T) {
	cfg := validConfig()
	cfg.Session.HistoryLimit = 0
	err := NewValidator().Validate(&cfg)
	var ve *ValidationError
	if !errors.As(err, &ve) || ve.Field != "history_limit" {
		t.Fatalf("expected history_limit validation error, got %v", err)
	}
}
