package config

import (
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds the full application configuration.
type Config struct {
	Store     StoreConfig     `yaml:"store" mapstructure:"store"`
	Catalog   CatalogConfig   `yaml:"catalog" mapstructure:"catalog"`
	Audience  AudienceConfig  `yaml:"audience" mapstructure:"audience"`
	Optimizer OptimizerConfig `yaml:"optimizer" mapstructure:"optimizer"`
	Curve     CurveConfig     `yaml:"curve" mapstructure:"curve"`
	Server    ServerConfig    `yaml:"server" mapstructure:"server"`
	Log       LogConfig       `yaml:"log" mapstructure:"log"`
}

// StoreConfig configures the plan store backend.
type StoreConfig struct {
	Driver      string `yaml:"driver" mapstructure:"driver"`
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
	MaxConns    int32  `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns    int32  `yaml:"min_conns" mapstructure:"min_conns"`

	// ConnectAttempts and ConnectBackoffMs retry a postgres connection that
	// fails with a transient network error.
	ConnectAttempts  int `yaml:"connect_attempts" mapstructure:"connect_attempts"`
	ConnectBackoffMs int `yaml:"connect_backoff_ms" mapstructure:"connect_backoff_ms"`
}

// CatalogConfig locates the reference datasets.
type CatalogConfig struct {
	MarketsPath      string `yaml:"markets_path" mapstructure:"markets_path"`
	AudiencesPath    string `yaml:"audiences_path" mapstructure:"audiences_path"`
	DimensionsPath   string `yaml:"dimensions_path" mapstructure:"dimensions_path"`
	DemographicsPath string `yaml:"demographics_path" mapstructure:"demographics_path"`
	DatasetVersion   string `yaml:"dataset_version" mapstructure:"dataset_version"`
	DefaultMarket    string `yaml:"default_market" mapstructure:"default_market"`
}

// AudienceConfig holds the default recommendation parameters.
type AudienceConfig struct {
	MinScore     int     `yaml:"min_score" mapstructure:"min_score"`
	MaxUnits     int     `yaml:"max_units" mapstructure:"max_units"`
	ExposedRatio float64 `yaml:"exposed_ratio" mapstructure:"exposed_ratio"`
}

// OptimizerConfig tunes the greedy budget optimizer.
type OptimizerConfig struct {
	SeedFraction      float64 `yaml:"seed_fraction" mapstructure:"seed_fraction"`
	SeedCeiling       float64 `yaml:"seed_ceiling" mapstructure:"seed_ceiling"`
	CapFraction       float64 `yaml:"cap_fraction" mapstructure:"cap_fraction"`
	Increment         float64 `yaml:"increment" mapstructure:"increment"`
	IncrementFraction float64 `yaml:"increment_fraction" mapstructure:"increment_fraction"`
	PenaltyFactor     float64 `yaml:"penalty_factor" mapstructure:"penalty_factor"`
}

// CurveConfig configures reach-curve sampling.
type CurveConfig struct {
	Samples int `yaml:"samples" mapstructure:"samples"`
}

// ServerConfig configures the HTTP API.
type ServerConfig struct {
	Port           int      `yaml:"port" mapstructure:"port"`
	AllowedOrigins []string `yaml:"allowed_origins" mapstructure:"allowed_origins"`
	RateLimit      float64  `yaml:"rate_limit" mapstructure:"rate_limit"`
	RateBurst      int      `yaml:"rate_burst" mapstructure:"rate_burst"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// Load reads configuration from file and environment.
func Load() (*Config, error) {
	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("PLANNER")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("store.driver", "sqlite")
	v.SetDefault("store.database_url", "planner.db")
	v.SetDefault("store.connect_attempts", 3)
	v.SetDefault("store.connect_backoff_ms", 500)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.allowed_origins", []string{"http://localhost:5173", "http://localhost:8080"})
	v.SetDefault("server.rate_limit", 20)
	v.SetDefault("server.rate_burst", 40)
	v.SetDefault("catalog.markets_path", "data/markets.yaml")
	v.SetDefault("catalog.audiences_path", "data/audiences.yaml")
	v.SetDefault("catalog.dimensions_path", "data/dimensions.yaml")
	v.SetDefault("catalog.demographics_path", "data/demographics_{market}.csv")
	v.SetDefault("catalog.dataset_version", "v1")
	v.SetDefault("catalog.default_market", "us")
	v.SetDefault("audience.min_score", 60)
	v.SetDefault("audience.max_units", 500)
	v.SetDefault("audience.exposed_ratio", 0.8)
	v.SetDefault("optimizer.seed_fraction", 0.05)
	v.SetDefault("optimizer.seed_ceiling", 5000)
	v.SetDefault("optimizer.cap_fraction", 0.25)
	v.SetDefault("optimizer.increment", 0)
	v.SetDefault("optimizer.increment_fraction", 0.01)
	v.SetDefault("optimizer.penalty_factor", 0.3)
	v.SetDefault("curve.samples", 20)

	// Read config file (optional)
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

// Validate checks the sections a command depends on. Known sections are
// "store", "audience", "optimizer" and "server".
func (c *Config) Validate(sections ...string) error {
	var errs []string
	for _, s := range sections {
		switch s {
		case "store":
			switch c.Store.Driver {
			case "sqlite", "postgres":
			default:
				errs = append(errs, "store.driver must be sqlite or postgres")
			}
			if c.Store.DatabaseURL == "" {
				errs = append(errs, "store.database_url is required")
			}
			if c.Store.ConnectAttempts < 0 || c.Store.ConnectBackoffMs < 0 {
				errs = append(errs, "store connect retry settings must be >= 0")
			}
		case "audience":
			if c.Audience.MinScore < 0 || c.Audience.MinScore > 100 {
				errs = append(errs, "audience.min_score must be between 0 and 100")
			}
			if c.Audience.MaxUnits < 0 {
				errs = append(errs, "audience.max_units must be >= 0")
			}
			if c.Audience.ExposedRatio < 0 || c.Audience.ExposedRatio > 1 {
				errs = append(errs, "audience.exposed_ratio must be between 0 and 1")
			}
		case "optimizer":
			o := c.Optimizer
			if o.SeedFraction < 0 || o.SeedFraction > 1 {
				errs = append(errs, "optimizer.seed_fraction must be between 0 and 1")
			}
			if o.CapFraction < 0 || o.CapFraction > 1 {
				errs = append(errs, "optimizer.cap_fraction must be between 0 and 1")
			}
			if o.Increment < 0 || o.IncrementFraction < 0 {
				errs = append(errs, "optimizer increments must be >= 0")
			}
			if o.PenaltyFactor < 0 || o.PenaltyFactor > 1 {
				errs = append(errs, "optimizer.penalty_factor must be between 0 and 1")
			}
		case "server":
			if c.Server.Port <= 0 || c.Server.Port > 65535 {
				errs = append(errs, "server.port must be between 1 and 65535")
			}
		default:
			errs = append(errs, "unknown mode "+s)
		}
	}
	if len(errs) > 0 {
		return eris.Errorf("config: validation failed: %s", strings.Join(errs, "; "))
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
