package config

import (
	"os"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/yaml.v3"
)

// Config holds the full application configuration.
type Config struct {
	Geocode   GeocodeConfig   `yaml:"geocode" mapstructure:"geocode"`
	Routing   RoutingConfig   `yaml:"routing" mapstructure:"routing"`
	Isochrone IsochroneConfig `yaml:"isochrone" mapstructure:"isochrone"`
	Store     StoreConfig     `yaml:"store" mapstructure:"store"`
	Export    ExportConfig    `yaml:"export" mapstructure:"export"`
	Server    ServerConfig    `yaml:"server" mapstructure:"server"`
	Log       LogConfig       `yaml:"log" mapstructure:"log"`
}

// GeocodeConfig configures the address resolver. Provider order is a
// configuration parameter, not a hardcoded contract.
type GeocodeConfig struct {
	Providers    []string `yaml:"providers" mapstructure:"providers"`
	BANBaseURL   string   `yaml:"ban_base_url" mapstructure:"ban_base_url"`
	NominatimURL string   `yaml:"nominatim_url" mapstructure:"nominatim_url"`
	RegionBias   string   `yaml:"region_bias" mapstructure:"region_bias"`
	MaxAttempts  int      `yaml:"max_attempts" mapstructure:"max_attempts"`
	BackoffMs    int      `yaml:"backoff_ms" mapstructure:"backoff_ms"`
	PacingMs     int      `yaml:"pacing_ms" mapstructure:"pacing_ms"`
	TimeoutSecs  int      `yaml:"timeout_secs" mapstructure:"timeout_secs"`
	CacheTTLDays int      `yaml:"cache_ttl_days" mapstructure:"cache_ttl_days"`
	UserAgent    string   `yaml:"user_agent" mapstructure:"user_agent"`
}

// RoutingConfig configures the OpenRouteService directions calls.
type RoutingConfig struct {
	APIKey       string `yaml:"api_key" mapstructure:"api_key"`
	BaseURL      string `yaml:"base_url" mapstructure:"base_url"`
	Profile      string `yaml:"profile" mapstructure:"profile"`
	RadiusMeters int    `yaml:"radius_meters" mapstructure:"radius_meters"`
	PacingMs     int    `yaml:"pacing_ms" mapstructure:"pacing_ms"`
	TimeoutSecs  int    `yaml:"timeout_secs" mapstructure:"timeout_secs"`
}

// IsochroneConfig configures reachability polygon generation.
type IsochroneConfig struct {
	ThresholdsKm []float64 `yaml:"thresholds_km" mapstructure:"thresholds_km"`
	Smoothing    float64   `yaml:"smoothing" mapstructure:"smoothing"`
	PacingMs     int       `yaml:"pacing_ms" mapstructure:"pacing_ms"`
	MaxAttempts  int       `yaml:"max_attempts" mapstructure:"max_attempts"`
}

// StoreConfig configures run persistence.
type StoreConfig struct {
	Driver      string `yaml:"driver" mapstructure:"driver"`
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
}

// ExportConfig configures the rendering/export collaborators.
type ExportConfig struct {
	OutDir     string `yaml:"out_dir" mapstructure:"out_dir"`
	WebhookURL string `yaml:"webhook_url" mapstructure:"webhook_url"`
}

// ServerConfig configures the HTTP API.
type ServerConfig struct {
	Port int `yaml:"port" mapstructure:"port"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// Pacing returns the minimum delay between geocoding calls.
func (c GeocodeConfig) Pacing() time.Duration {
	return time.Duration(c.PacingMs) * time.Millisecond
}

// Backoff returns the base retry backoff for geocoding calls.
func (c GeocodeConfig) Backoff() time.Duration {
	return time.Duration(c.BackoffMs) * time.Millisecond
}

// Pacing returns the minimum delay between directions calls.
func (c RoutingConfig) Pacing() time.Duration {
	return time.Duration(c.PacingMs) * time.Millisecond
}

// Pacing returns the minimum delay between isochrone calls.
func (c IsochroneConfig) Pacing() time.Duration {
	return time.Duration(c.PacingMs) * time.Millisecond
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("geocode.providers", []string{"ban", "nominatim"})
	v.SetDefault("geocode.ban_base_url", "https://api-adresse.data.gouv.fr")
	v.SetDefault("geocode.nominatim_url", "https://nominatim.openstreetmap.org")
	v.SetDefault("geocode.region_bias", "France")
	v.SetDefault("geocode.max_attempts", 3)
	v.SetDefault("geocode.backoff_ms", 1500)
	v.SetDefault("geocode.pacing_ms", 1000)
	v.SetDefault("geocode.timeout_secs", 15)
	v.SetDefault("geocode.cache_ttl_days", 30)
	v.SetDefault("geocode.user_agent", "mobility-cli/1.0 (commute audit)")
	// Registered empty so AutomaticEnv can populate it via MOBILITY_ROUTING_API_KEY.
	v.SetDefault("routing.api_key", "")
	v.SetDefault("routing.base_url", "https://api.openrouteservice.org")
	v.SetDefault("routing.profile", "cycling-regular")
	v.SetDefault("routing.radius_meters", 300)
	v.SetDefault("routing.pacing_ms", 1700)
	v.SetDefault("routing.timeout_secs", 15)
	v.SetDefault("isochrone.thresholds_km", []float64{2, 5, 10, 13})
	v.SetDefault("isochrone.smoothing", 0.9)
	v.SetDefault("isochrone.pacing_ms", 1000)
	v.SetDefault("isochrone.max_attempts", 2)
	v.SetDefault("store.driver", "sqlite")
	v.SetDefault("store.database_url", "mobility.db")
	v.SetDefault("export.out_dir", "out")
	v.SetDefault("export.webhook_url", "")
	v.SetDefault("server.port", 8080)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
}

// Load reads configuration from config.yaml and the MOBILITY_* environment.
func Load() (*Config, error) {
	v := viper.New()

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	v.SetEnvPrefix("MOBILITY")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}

	return &cfg, nil
}

// Default returns the configuration with all defaults applied and no file
// or environment input. Used by `config init` and tests.
func Default() *Config {
	v := viper.New()
	setDefaults(v)
	var cfg Config
	_ = v.Unmarshal(&cfg)
	return &cfg
}

// WriteDefault writes a starter config.yaml to path. Refuses to overwrite.
func WriteDefault(path string) error {
	if _, err := os.Stat(path); err == nil {
		return eris.Errorf("config: %s already exists", path)
	}
	data, err := yaml.Marshal(Default())
	if err != nil {
		return eris.Wrap(err, "config: marshal defaults")
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return eris.Wrap(err, "config: write file")
	}
	return nil
}

// InitLogger initializes the global zap logger.
func InitLogger(cfg LogConfig) error {
	var zapCfg zap.Config
	if cfg.Format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return eris.Wrap(err, "config: parse log level")
	}
	zapCfg.Level.SetLevel(level)

	logger, err := zapCfg.Build()
	if err != nil {
		return eris.Wrap(err, "config: build logger")
	}
	zap.ReplaceGlobals(logger)

	return nil
}
