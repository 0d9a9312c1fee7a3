// Package config provides configuration management using Viper
package config

import (
	"fmt"
	"log"
	"strings"
	"sync"

	"github.com/spf13/viper"
)

// Environment types
const (
	Development = "development"
	Production  = "production"
	Test        = "test"
)

// LogLevel represents the logging level for the application
type LogLevel string

// Available log levels
const (
	LogLevelDebug LogLevel = "debug"
	LogLevelInfo  LogLevel = "info"
	LogLevelWarn  LogLevel = "warn"
	LogLevelError LogLevel = "error"
)

// Config holds all configuration parameters for the application
type Config struct {
	// Application settings
	AppName     string   `mapstructure:"appname"`
	AppPort     string   `mapstructure:"appport"`
	Environment string   `mapstructure:"environment"`
	LogLevel    LogLevel `mapstructure:"loglevel"`

	// Logging settings
	LogsDirectory    string `mapstructure:"logsdir"`
	LogsMaxSizeInMb  int    `mapstructure:"logsmaxsizeinmb"`
	LogsMaxBackups   int    `mapstructure:"logsmaxbackups"`
	LogsMaxAgeInDays int    `mapstructure:"logsmaxageindays"`

	// Input limits enforced before normalization
	MaxRows         int `mapstructure:"maxrows"`
	MaxUploadSizeMB int `mapstructure:"maxuploadsizemb"`

	// Insight detection thresholds
	TopSegments              int     `mapstructure:"topsegments"`
	MinShareForConcentration float64 `mapstructure:"minshareforconcentration"`
	AnomalyZScore            float64 `mapstructure:"anomalyzscore"`

	// Aggregation settings
	PrimaryMetric     string `mapstructure:"primarymetric"`
	GroupByDimensions string `mapstructure:"groupbydimensions"`

	// Optional column-alias override file (YAML)
	AliasTablePath string `mapstructure:"aliastablepath"`
}

var (
	cfg  *Config
	once sync.Once
)

// GetConfig returns the application configuration
func GetConfig() *Config {
	once.Do(func() {
		v := viper.New()

		// Set defaults
		v.SetDefault("appname", "metriclens")
		v.SetDefault("appport", "3000")
		v.SetDefault("environment", Development)
		v.SetDefault("loglevel", string(LogLevelDebug))
		v.SetDefault("logsdir", "logs")
		v.SetDefault("logsmaxsizeinmb", 20)
		v.SetDefault("logsmaxbackups", 10)
		v.SetDefault("logsmaxageindays", 30)
		v.SetDefault("maxrows", 100000)
		v.SetDefault("maxuploadsizemb", 25)
		v.SetDefault("topsegments", 5)
		v.SetDefault("minshareforconcentration", 0.4)
		v.SetDefault("anomalyzscore", 2.0)
		v.SetDefault("primarymetric", "sessions")
		v.SetDefault("groupbydimensions", "source,medium;eventName")
		v.SetDefault("aliastablepath", "")

		// Bind environment variables
		v.BindEnv("appname", "METRICLENS_APP_NAME")
		v.BindEnv("appport", "METRICLENS_APP_PORT")
		v.BindEnv("environment", "METRICLENS_ENV")
		v.BindEnv("loglevel", "METRICLENS_LOG_LEVEL")
		v.BindEnv("logsdir", "METRICLENS_LOGS_DIR")
		v.BindEnv("logsmaxsizeinmb", "METRICLENS_LOGS_MAX_SIZE_IN_MB")
		v.BindEnv("logsmaxbackups", "METRICLENS_LOGS_MAX_BACKUPS")
		v.BindEnv("logsmaxageindays", "METRICLENS_LOGS_MAX_AGE_IN_DAYS")
		v.BindEnv("maxrows", "METRICLENS_MAX_ROWS")
		v.BindEnv("maxuploadsizemb", "METRICLENS_MAX_UPLOAD_SIZE_MB")
		v.BindEnv("topsegments", "METRICLENS_TOP_SEGMENTS")
		v.BindEnv("minshareforconcentration", "METRICLENS_MIN_SHARE_FOR_CONCENTRATION")
		v.BindEnv("anomalyzscore", "METRICLENS_ANOMALY_Z_SCORE")
		v.BindEnv("primarymetric", "METRICLENS_PRIMARY_METRIC")
		v.BindEnv("groupbydimensions", "METRICLENS_GROUP_BY_DIMENSIONS")
		v.BindEnv("aliastablepath", "METRICLENS_ALIAS_TABLE_PATH")

		cfg = &Config{}
		if err := v.Unmarshal(cfg); err != nil {
			log.Fatalf("config: failed to unmarshal configuration: %v", err)
		}

		// Validate
		if err := cfg.validate(); err != nil {
			log.Fatalf("config: invalid configuration: %v", err)
		}
	})
	return cfg
}

// validate checks the configuration for errors
func (c *Config) validate() error {
	validEnvs := map[string]bool{
		Development: true,
		Production:  true,
		Test:        true,
	}
	if !validEnvs[c.Environment] {
		return fmt.Errorf("invalid environment: %s", c.Environment)
	}

	if c.MaxRows <= 0 {
		return fmt.Errorf("maxrows must be positive, got %d", c.MaxRows)
	}

	if c.MinShareForConcentration < 0 || c.MinShareForConcentration > 1 {
		return fmt.Errorf("minshareforconcentration must be within [0, 1], got %f", c.MinShareForConcentration)
	}

	if c.AnomalyZScore <= 0 {
		return fmt.Errorf("anomalyzscore must be positive, got %f", c.AnomalyZScore)
	}

	return nil
}

// GroupingSpecs parses the configured grouping dimension specs.
// Specs are separated by ";", dimensions within a spec by ",".
func (c *Config) GroupingSpecs() [][]string {
	var specs [][]string
	for _, spec := range strings.Split(c.GroupByDimensions, ";") {
		var dims []string
		for _, d := range strings.Split(spec, ",") {
			if d = strings.TrimSpace(d); d != "" {
				dims = append(dims, d)
			}
		}
		if len(dims) > 0 {
			specs = append(specs, dims)
		}
	}
	return specs
}

// MaxUploadSizeBytes returns the upload body limit in bytes.
func (c *Config) MaxUploadSizeBytes() int {
	return c.MaxUploadSizeMB * 1024 * 1024
}

// IsDevelopment returns true if the environment is development
func (c *Config) IsDevelopment() bool {
	return c.Environment == Development
}

// IsProduction returns true if the environment is production
func (c *Config) IsProduction() bool {
	return c.Environment == Production
}

// IsTest returns true if the environment is test
func (c *Config) IsTest() bool {
	return c.Environment == Test
}

// GetLogLevel returns the log level as a string
func (c *Config) GetLogLevel() string {
	return string(c.LogLevel)
}

// Reset clears the cached configuration; intended for tests.
func Reset() {
	once = sync.Once{}
	cfg = nil
}
