package config

import (
	"os"

	"dario.cat/mergo"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Load reads a YAML configuration file from path, overlays it onto
// Defaults(), expands ${VAR}/$VAR references against the process
// environment, and validates the result. path may be empty, in which
// case Defaults() alone is validated and returned.
//
// Mirrors the teacher's loader.go layering: env expansion happens before
// YAML parsing so a value like `url: ${DATABASE_URL}` resolves from the
// environment, then mergo.Merge layers the parsed file over the defaults
// so the file only needs to name the keys it overrides.
func Load(path string) (*Config, error) {
	cfg := Defaults()

	if path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			if os.IsNotExist(err) {
				return nil, NewLoadError(path, ErrConfigNotFound)
			}
			return nil, NewLoadError(path, err)
		}

		expanded := ExpandEnv(raw)

		var overlay Config
		if err := yaml.Unmarshal(expanded, &overlay); err != nil {
			return nil, NewLoadError(path, ErrInvalidYAML)
		}

		if err := mergo.Merge(&cfg, overlay, mergo.WithOverride); err != nil {
			return nil, NewLoadError(path, err)
		}
	}

	if err := NewValidator().Validate(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// LoadDotEnv loads a .env file into the process environment if present,
// exactly as cmd/tarsy/main.go did for local development; a missing file
// is not an error.
func LoadDotEnv(path string) error {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil
	}
	return godotenv.Load(path)
}
