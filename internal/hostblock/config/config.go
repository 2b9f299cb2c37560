package config

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/knadh/koanf/providers/env/v2"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
)

// AppConfig holds configuration values parsed from environment variables.
type AppConfig struct {
	// Env is the runtime environment, either "dev" or "prod".
	Env string `koanf:"env" validate:"required,oneof=dev prod"`

	// LogLevel controls log verbosity: "debug", "info", "warn", or "error".
	LogLevel string `koanf:"log_level" validate:"required,oneof=debug info warn error"`

	// RuleFile is the path to the externally edited rule file. An empty
	// value disables blocking entirely (the noop service is used).
	RuleFile string `koanf:"rule_file" validate:"abs_path_or_empty"`

	// CacheSize is the per-generation decision cache capacity.
	// Zero or negative disables the cache.
	CacheSize int `koanf:"cache_size"`

	// BloomFPRate is the target false-positive rate for the per-generation
	// negative-lookup prefilter.
	BloomFPRate float64 `koanf:"bloom_fp_rate" validate:"required,gt=0,lt=1"`

	// StabilityDelayMS is the delay, in milliseconds, between the two stat
	// calls of the mid-write stability check.
	StabilityDelayMS int `koanf:"stability_delay_ms" validate:"gte=0,lte=1000"`
}

// DEFAULT_APP_CONFIG defines the default application configuration settings
// for the blocking service: environment, log level, rule file location,
// decision cache capacity, prefilter sizing, and the stability-check delay.
var DEFAULT_APP_CONFIG = AppConfig{
	Env:              "prod",
	LogLevel:         "info",
	RuleFile:         "/etc/hostblock/hosts",
	CacheSize:        1024,
	BloomFPRate:      0.01,
	StabilityDelayMS: 1,
}

// validAbsPathOrEmpty validates that the field is either empty (feature
// disabled) or an absolute filesystem path. Relative paths are rejected
// because the service may be started from any working directory.
func validAbsPathOrEmpty(fl validator.FieldLevel) bool {
	path := fl.Field().String()
	if path == "" {
		return true
	}
	return filepath.IsAbs(path)
}

// envLoader is a function that loads environment variables with the prefix
// "HOSTBLOCK_". It transforms the keys to lowercase and removes the prefix,
// and can be mocked in tests.
var envLoader = func(k *koanf.Koanf) error {
	return k.Load(env.Provider(".", env.Opt{
		Prefix: "HOSTBLOCK_",
		TransformFunc: func(key, value string) (string, any) {
			key = strings.ToLower(strings.TrimPrefix(key, "HOSTBLOCK_"))
			value = strings.TrimSpace(value)
			return key, value
		},
	}), nil)
}

// defaultLoader loads default configuration values into the provided Koanf
// instance using the structs provider and the DEFAULT_APP_CONFIG struct.
var defaultLoader = func(k *koanf.Koanf) error {
	return k.Load(structs.Provider(DEFAULT_APP_CONFIG, "koanf"), nil)
}

// registerValidation registers the custom "abs_path_or_empty" validation
// with the provided validator. Returns an error if registration fails.
var registerValidation = func(v *validator.Validate) error {
	return v.RegisterValidation("abs_path_or_empty", validAbsPathOrEmpty)
}

// Load parses environment variables and returns an AppConfig instance.
// It applies default values and runs validation automatically.
func Load() (*AppConfig, error) {
	k := koanf.New(".")

	// Load default values using structs provider.
	err := defaultLoader(k)
	if err != nil {
		return nil, fmt.Errorf("error loading default config: %w", err)
	}

	// Load environment variables with prefix "HOSTBLOCK_".
	err = envLoader(k)
	if err != nil {
		return nil, fmt.Errorf("error loading env: %w", err)
	}

	var cfg AppConfig

	// Unmarshal the loaded configuration into AppConfig struct.
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("error unmarshalling config: %w", err)
	}

	// Validate the configuration.
	validate := validator.New(validator.WithRequiredStructEnabled())

	err = registerValidation(validate)
	if err != nil {
		return nil, fmt.Errorf("error registering validation: %w", err)
	}

	err = validate.Struct(&cfg)
	if err != nil {
		return nil, fmt.Errorf("validation failed: %w", err)
	}

	return &cfg, nil
}
