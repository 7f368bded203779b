package config

import (
	"fmt"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/tunis-skies/flightwatch/internal/store"
)

// Config holds the full application configuration.
type Config struct {
	Store     StoreConfig    `yaml:"store" mapstructure:"store"`
	AirLabs   AirLabsConfig  `yaml:"airlabs" mapstructure:"airlabs"`
	Time      TimeConfig     `yaml:"time" mapstructure:"time"`
	Snapshots SnapshotConfig `yaml:"snapshots" mapstructure:"snapshots"`
	FTP       FTPConfig      `yaml:"ftp" mapstructure:"ftp"`
	Server    ServerConfig   `yaml:"server" mapstructure:"server"`
	Log       LogConfig      `yaml:"log" mapstructure:"log"`
}

// StoreConfig configures the database backend.
type StoreConfig struct {
	Driver      string            `yaml:"driver" mapstructure:"driver"` // sqlite or postgres
	Path        string            `yaml:"path" mapstructure:"path"`    // sqlite file path
	DatabaseURL string            `yaml:"database_url" mapstructure:"database_url"`
	Pool        *store.PoolConfig `yaml:"pool" mapstructure:"pool"`
}

// AirLabsConfig holds the schedules feed credentials and scope.
type AirLabsConfig struct {
	Key           string   `yaml:"key" mapstructure:"key"`
	BaseURL       string   `yaml:"base_url" mapstructure:"base_url"`
	Airport       string   `yaml:"airport" mapstructure:"airport"`
	Airlines      []string `yaml:"airlines" mapstructure:"airlines"`
	RatePerSecond float64  `yaml:"rate_per_second" mapstructure:"rate_per_second"`
	RateBurst     int      `yaml:"rate_burst" mapstructure:"rate_burst"`
}

// TimeConfig fixes the zone every timestamp is normalized into.
type TimeConfig struct {
	Zone string `yaml:"zone" mapstructure:"zone"`
}

// SnapshotConfig configures raw payload snapshots.
type SnapshotConfig struct {
	Dir string `yaml:"dir" mapstructure:"dir"`
}

// FTPConfig holds credentials for the database mirror.
type FTPConfig struct {
	Host       string `yaml:"host" mapstructure:"host"`
	User       string `yaml:"user" mapstructure:"user"`
	Password   string `yaml:"password" mapstructure:"password"`
	RemotePath string `yaml:"remote_path" mapstructure:"remote_path"`
}

// ServerConfig configures the read-only API server.
type ServerConfig struct {
	Port           int      `yaml:"port" mapstructure:"port"`
	AllowedOrigins []string `yaml:"allowed_origins" mapstructure:"allowed_origins"`
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
	v.SetEnvPrefix("FLIGHTWATCH")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults. Secrets default to empty so env-only values still reach
	// Unmarshal.
	v.SetDefault("store.driver", "sqlite")
	v.SetDefault("store.path", "flightwatch.db")
	v.SetDefault("store.database_url", "")
	v.SetDefault("airlabs.key", "")
	v.SetDefault("ftp.host", "")
	v.SetDefault("ftp.user", "")
	v.SetDefault("ftp.password", "")
	v.SetDefault("ftp.remote_path", "")
	v.SetDefault("airlabs.base_url", "https://airlabs.co/api/v9")
	v.SetDefault("airlabs.airport", "TUN")
	v.SetDefault("airlabs.airlines", []string{"TU", "BJ", "AF", "TO"})
	v.SetDefault("airlabs.rate_per_second", 1.0)
	v.SetDefault("airlabs.rate_burst", 2)
	v.SetDefault("time.zone", "Africa/Tunis")
	v.SetDefault("snapshots.dir", "datasets")
	v.SetDefault("server.port", 8080)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

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

// Validate checks the fields the given command mode depends on. Modes:
// "ingest", "serve", "import". Every mode checks the store configuration.
func (c *Config) Validate(mode string) error {
	var missing []string

	switch c.Store.Driver {
	case "", "sqlite":
		if c.Store.Path == "" {
			missing = append(missing, "store.path is required for the sqlite driver")
		}
	case "postgres":
		if c.Store.DatabaseURL == "" {
			missing = append(missing, "store.database_url is required for the postgres driver")
		}
	default:
		missing = append(missing, fmt.Sprintf("store.driver %q is not supported", c.Store.Driver))
	}

	switch mode {
	case "ingest":
		if c.AirLabs.Key == "" {
			missing = append(missing, "airlabs.key is required (FLIGHTWATCH_AIRLABS_KEY)")
		}
		if c.AirLabs.Airport == "" {
			missing = append(missing, "airlabs.airport is required")
		}
	case "serve":
		if c.Server.Port < 1 || c.Server.Port > 65535 {
			missing = append(missing, fmt.Sprintf("server.port %d is out of range", c.Server.Port))
		}
	case "import":
		if c.FTP.Host == "" {
			missing = append(missing, "ftp.host is required (FLIGHTWATCH_FTP_HOST)")
		}
	}

	if len(missing) > 0 {
		return eris.New("config: " + strings.Join(missing, "; "))
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
