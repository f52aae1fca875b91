// Package config loads pipeline settings from defaults, an optional file and
// FEATURELAB_* environment variables, in increasing precedence.
package config

import (
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"

	"revenue-feature-lab/internal/features"
	"revenue-feature-lab/internal/normalization"
)

// EnvPrefix prefixes every environment override, e.g. FEATURELAB_TRAIN_FRACTION.
const EnvPrefix = "FEATURELAB"

// Config is the full runtime configuration.
type Config struct {
	LogLevel string `mapstructure:"log_level" validate:"oneof=debug info warn error"`

	BaseCurrency        string   `mapstructure:"base_currency" validate:"required,len=3"`
	SupportedCurrencies []string `mapstructure:"supported_currencies" validate:"required,min=1,dive,len=3"`
	DescriptionSentinel string   `mapstructure:"description_sentinel" validate:"required"`

	RollingWindows []int   `mapstructure:"rolling_windows" validate:"required,min=1,unique,dive,gt=0"`
	LagDepths      []int   `mapstructure:"lag_depths" validate:"required,min=1,unique,dive,gt=0"`
	TrainFraction  float64 `mapstructure:"train_fraction" validate:"gte=0,lte=1"`
	Workers        int     `mapstructure:"workers" validate:"gte=0"`

	InputDir  string `mapstructure:"input_dir"`
	OutputDir string `mapstructure:"output_dir" validate:"required"`

	PostgresDSN      string `mapstructure:"postgres_dsn"`
	PostgresMaxConns int32  `mapstructure:"postgres_max_conns" validate:"gte=0"`
	ClickhouseDSN    string `mapstructure:"clickhouse_dsn" validate:"omitempty,startswith=clickhouse://"`

	MetricsNamespace string        `mapstructure:"metrics_namespace" validate:"required"`
	HTTPAddr         string        `mapstructure:"http_addr" validate:"required"`
	RunInterval      time.Duration `mapstructure:"run_interval" validate:"gte=0"`
}

var defaults = map[string]any{
	"log_level":            "info",
	"base_currency":        "GBP",
	"supported_currencies": []string{"GBP", "USD", "EUR"},
	"description_sentinel": "Unknown",
	"rolling_windows":      []int{3},
	"lag_depths":           []int{1, 2},
	"train_fraction":       0.8,
	"workers":              0,
	"input_dir":            "",
	"output_dir":           "output",
	"postgres_dsn":         "",
	"postgres_max_conns":   0,
	"clickhouse_dsn":       "",
	"metrics_namespace":    "revenue_feature_lab",
	"http_addr":            ":8080",
	"run_interval":         "0s",
}

// Load reads configuration. path may be empty, in which case only defaults
// and environment variables apply.
func Load(path string) (*Config, error) {
	v := viper.New()
	for key, value := range defaults {
		v.SetDefault(key, value)
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

var validate = validator.New()

// Validate checks field constraints and that the base currency is supported.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			fe := verrs[0]
			return fmt.Errorf("invalid config %s: failed %q (value %v)", fe.Namespace(), fe.Tag(), fe.Value())
		}
		return fmt.Errorf("invalid config: %w", err)
	}
	if !slices.Contains(c.SupportedCurrencies, c.BaseCurrency) {
		return fmt.Errorf("invalid config: base_currency %s not in supported_currencies %v", c.BaseCurrency, c.SupportedCurrencies)
	}
	return nil
}

// Normalization returns the Normalizer options.
func (c *Config) Normalization() normalization.Options {
	return normalization.Options{
		BaseCurrency:        c.BaseCurrency,
		SupportedCurrencies: slices.Clone(c.SupportedCurrencies),
		DescriptionSentinel: c.DescriptionSentinel,
	}
}

// Features returns the FeatureDeriver config.
func (c *Config) Features() features.Config {
	return features.Config{
		RollingWindows: slices.Clone(c.RollingWindows),
		LagDepths:      slices.Clone(c.LagDepths),
		Workers:        c.Workers,
	}
}
