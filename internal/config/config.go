// Package config loads webcapd's configuration using viper, grounded in
// the nested-struct-plus-mapstructure pattern used throughout the examples
// this project learned its ambient stack from.
package config

import (
	"fmt"
	"reflect"
	"strings"

	"github.com/go-viper/mapstructure/v2"
	"github.com/spf13/viper"
)

// Config is the top-level configuration recognized by spec.md §6.
type Config struct {
	OutputDir           string           `mapstructure:"output_dir"`
	Timeouts            TimeoutsConfig   `mapstructure:"timeouts"`
	MaxRetries          int              `mapstructure:"max_retries"`
	QueuePollIntervalMs int              `mapstructure:"queue_poll_interval_ms"`
	Viewport            ViewportConfig   `mapstructure:"viewport"`
	Screenshot          ScreenshotConfig `mapstructure:"screenshot"`
	RejectDuplicateURLs bool             `mapstructure:"reject_duplicate_urls"`
	UserAgent           string           `mapstructure:"user_agent"`
	SlowMoMs            int              `mapstructure:"slow_mo_ms"`
	Browsers            []BrowserConfig  `mapstructure:"browsers"`
	Server              ServerConfig     `mapstructure:"server"`
	Storage             StorageConfig    `mapstructure:"storage"`
	Log                 LogConfig        `mapstructure:"log"`
}

// BrowserConfig is one remote CDP endpoint, per spec.md §6's sequence of
// {endpoint, slowMo?} entries. SlowMoMs overrides the top-level SlowMoMs for
// this endpoint only; zero means "use the top-level default".
type BrowserConfig struct {
	Endpoint string `mapstructure:"endpoint"`
	SlowMoMs int    `mapstructure:"slow_mo_ms"`
}

// EffectiveSlowMoMs returns b.SlowMoMs if set, otherwise the top-level
// fallback.
func (b BrowserConfig) EffectiveSlowMoMs(fallback int) int {
	if b.SlowMoMs != 0 {
		return b.SlowMoMs
	}
	return fallback
}

// TimeoutsConfig holds the two wall-clock bounds from spec.md §6.
type TimeoutsConfig struct {
	PageLoadMs int `mapstructure:"page_load_ms"`
	CaptureMs  int `mapstructure:"capture_ms"`
}

// ViewportConfig is the fixed browser viewport.
type ViewportConfig struct {
	Width  int `mapstructure:"width"`
	Height int `mapstructure:"height"`
}

// ScreenshotConfig controls rendering of png/jpeg artefacts.
type ScreenshotConfig struct {
	FullPage bool `mapstructure:"full_page"`
	Quality  int  `mapstructure:"quality"`
}

// ServerConfig controls the HTTP transport, out of spec.md's scope but
// needed to actually run the service.
type ServerConfig struct {
	Port int `mapstructure:"port"`
}

// StorageConfig controls the optional secondary artefact mirror.
type StorageConfig struct {
	Backend string `mapstructure:"backend"` // "none" | "local" | "gcs"
	Dir     string `mapstructure:"dir"`     // for "local"
	Bucket  string `mapstructure:"bucket"`  // for "gcs"
}

// LogConfig controls the logrus output.
type LogConfig struct {
	Level        string       `mapstructure:"level"`
	Format       string       `mapstructure:"format"` // "json" | "text"
	FileRotation FileRotation `mapstructure:"file_rotation"`
}

// FileRotation configures lumberjack-backed log rotation. Disabled when
// Path is empty.
type FileRotation struct {
	Path       string `mapstructure:"path"`
	MaxSizeMB  int    `mapstructure:"max_size_mb"`
	MaxAgeDays int    `mapstructure:"max_age_days"`
	MaxBackups int    `mapstructure:"max_backups"`
	Compress   bool   `mapstructure:"compress"`
}

// Load reads configuration from path (if non-empty), overlays environment
// variables (prefix WEBCAPD_, "." replaced with "_"), applies the defaults
// from spec.md §6, and validates the result.
func Load(path string) (*Config, error) {
	v := viper.New()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("config: failed to read %q: %w", path, err)
		}
	}

	v.SetEnvPrefix("webcapd")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// AutomaticEnv only overlays keys viper already knows about (from the
	// file or a default); keys with no default are bound explicitly so
	// their WEBCAPD_* variables are seen by Unmarshal too.
	for _, key := range []string{
		"output_dir", "browsers", "user_agent", "slow_mo_ms", "screenshot.quality",
		"storage.dir", "storage.bucket", "log.file_rotation.path",
	} {
		if err := v.BindEnv(key); err != nil {
			return nil, fmt.Errorf("config: failed to bind env for %q: %w", key, err)
		}
	}

	setDefaults(v)

	var cfg Config
	if err := v.Unmarshal(&cfg, viper.DecodeHook(mapstructure.ComposeDecodeHookFunc(
		stringToBrowserConfigHookFunc,
		mapstructure.StringToSliceHookFunc(','),
	))); err != nil {
		return nil, fmt.Errorf("config: failed to unmarshal: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config: validation failed: %w", err)
	}

	return &cfg, nil
}

// stringToBrowserConfigHookFunc lets a browsers entry be written as a bare
// endpoint string (the common case, and the only form WEBCAPD_BROWSERS env
// overrides can express) in addition to the full {endpoint, slow_mo_ms} map.
func stringToBrowserConfigHookFunc(from, to reflect.Type, data any) (any, error) {
	if from.Kind() != reflect.String || to != reflect.TypeOf(BrowserConfig{}) {
		return data, nil
	}
	return BrowserConfig{Endpoint: data.(string)}, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("timeouts.page_load_ms", 30000)
	v.SetDefault("timeouts.capture_ms", 10000)
	v.SetDefault("max_retries", 2)
	v.SetDefault("queue_poll_interval_ms", 50)
	v.SetDefault("viewport.width", 1280)
	v.SetDefault("viewport.height", 800)
	v.SetDefault("screenshot.full_page", false)
	v.SetDefault("reject_duplicate_urls", false)
	v.SetDefault("server.port", 8080)
	v.SetDefault("storage.backend", "none")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")
	v.SetDefault("log.file_rotation.max_size_mb", 100)
	v.SetDefault("log.file_rotation.max_age_days", 30)
	v.SetDefault("log.file_rotation.max_backups", 5)
	v.SetDefault("log.file_rotation.compress", true)
}

// Validate enforces the constraints spec.md §6 places on recognized keys.
func (c *Config) Validate() error {
	if c.OutputDir == "" {
		return fmt.Errorf("output_dir is required")
	}
	if c.Timeouts.PageLoadMs <= 0 {
		return fmt.Errorf("timeouts.page_load_ms must be positive")
	}
	if c.Timeouts.CaptureMs <= 0 {
		return fmt.Errorf("timeouts.capture_ms must be positive")
	}
	if c.MaxRetries < 0 {
		return fmt.Errorf("max_retries must be non-negative")
	}
	if c.QueuePollIntervalMs <= 0 {
		return fmt.Errorf("queue_poll_interval_ms must be positive")
	}
	if c.Viewport.Width <= 0 || c.Viewport.Height <= 0 {
		return fmt.Errorf("viewport.width and viewport.height must be positive")
	}
	if c.Screenshot.Quality != 0 && (c.Screenshot.Quality < 1 || c.Screenshot.Quality > 100) {
		return fmt.Errorf("screenshot.quality must be between 1 and 100")
	}
	if len(c.Browsers) == 0 {
		return fmt.Errorf("browsers must list at least one CDP endpoint")
	}
	for i, b := range c.Browsers {
		if b.Endpoint == "" {
			return fmt.Errorf("browsers[%d].endpoint must not be empty", i)
		}
	}
	switch c.Storage.Backend {
	case "none", "local", "gcs":
	default:
		return fmt.Errorf("storage.backend must be one of none, local, gcs")
	}
	if c.Storage.Backend == "gcs" && c.Storage.Bucket == "" {
		return fmt.Errorf("storage.bucket is required when storage.backend is gcs")
	}
	switch c.Log.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("log.level must be one of debug, info, warn, error")
	}
	switch c.Log.Format {
	case "json", "text":
	default:
		return fmt.Errorf("log.format must be json or text")
	}
	return nil
}
