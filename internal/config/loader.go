package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
	"go.uber.org/multierr"
)

const (
	EnvPrefix     = "CQRSKIT"
	EnvConfigFile = "CQRSKIT_CONFIG"
)

type Logger struct {
	Dir          string
	Level        string
	File         bool
	Rotate       string // daily | size
	MaxAge       time.Duration
	RotationTime time.Duration
	MaxSizeMB    int
	MaxBackups   int
	Env          string `mapstructure:"-"`
}

type Config struct {
	App struct {
		Name string
		Env  string
	}

	HTTP struct {
		Port            int
		ShutdownTimeout time.Duration
		CORSOrigins     []string
	}

	// bearer-token check on the action routes
	Auth struct {
		Enabled   bool
		SecretKey string
	}

	Logger Logger

	// worker pools; zero picks the runtime-derived default
	Executor struct {
		BackgroundWorkers int
		IOWorkers         int
		QueueSize         int
	}

	Gateway struct {
		Timeout time.Duration
	}

	// Order overrides interceptor order by name.
	Interceptors struct {
		Order map[string]int
	}

	Filters struct {
		Validate bool
	}

	Tracing Tracing

	// greeting store; an empty Addr keeps it in memory
	Redis Redis
}

type Redis struct {
	Addr     string
	Password string
	DB       int
	Prefix   string
}

type Tracing struct {
	Enabled     bool
	Endpoint    string
	ServiceName string
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("app.name", "cqrskit")
	v.SetDefault("app.env", "dev")

	v.SetDefault("http.port", 8080)
	v.SetDefault("http.shutdowntimeout", 10*time.Second)

	v.SetDefault("auth.enabled", false)

	v.SetDefault("logger.dir", "logs")
	v.SetDefault("logger.level", "info")
	v.SetDefault("logger.file", true)
	v.SetDefault("logger.rotate", "daily")
	v.SetDefault("logger.maxage", 30*24*time.Hour)
	v.SetDefault("logger.rotationtime", 24*time.Hour)
	v.SetDefault("logger.maxsizemb", 100)
	v.SetDefault("logger.maxbackups", 7)

	v.SetDefault("executor.backgroundworkers", 0)
	v.SetDefault("executor.ioworkers", 0)
	v.SetDefault("executor.queuesize", 1024)

	v.SetDefault("gateway.timeout", 5*time.Second)

	v.SetDefault("filters.validate", true)

	v.SetDefault("tracing.enabled", false)
	v.SetDefault("tracing.endpoint", "")
	v.SetDefault("tracing.servicename", "cqrskit")

	v.SetDefault("redis.addr", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.prefix", "cqrskit:greeting:")
}

// LoadConfig reads path, then $CQRSKIT_CONFIG, then internal/config/config.yaml
// under the working directory. Only an explicit path must exist.
func LoadConfig(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	explicit := path != ""
	if !explicit {
		path = os.Getenv(EnvConfigFile)
		explicit = path != ""
	}
	if !explicit {
		currentDir, err := os.Getwd()
		if err != nil {
			return nil, fmt.Errorf("failed to get current directory: %w", err)
		}
		path = filepath.Join(currentDir, "internal", "config", "config.yaml")
	}

	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		missing := errors.As(err, &notFound) || errors.Is(err, os.ErrNotExist)
		if explicit || !missing {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
	}

	cfg := Config{}
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}
	cfg.Logger.Env = cfg.App.Env
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate reports every invalid field at once.
func (c *Config) Validate() error {
	var err error
	if c.HTTP.Port < 0 || c.HTTP.Port > 65535 {
		err = multierr.Append(err, fmt.Errorf("http.port %d out of range", c.HTTP.Port))
	}
	if c.Executor.BackgroundWorkers < 0 {
		err = multierr.Append(err, fmt.Errorf("executor.backgroundworkers must not be negative"))
	}
	if c.Executor.IOWorkers < 0 {
		err = multierr.Append(err, fmt.Errorf("executor.ioworkers must not be negative"))
	}
	if c.Executor.QueueSize < 0 {
		err = multierr.Append(err, fmt.Errorf("executor.queuesize must not be negative"))
	}
	if c.Gateway.Timeout < 0 {
		err = multierr.Append(err, fmt.Errorf("gateway.timeout must not be negative"))
	}
	if c.Auth.Enabled && c.Auth.SecretKey == "" {
		err = multierr.Append(err, fmt.Errorf("auth.secretkey is required when auth is enabled"))
	}
	if c.Redis.DB < 0 {
		err = multierr.Append(err, fmt.Errorf("redis.db must not be negative"))
	}
	switch c.Logger.Rotate {
	case "", "daily", "size":
	default:
		err = multierr.Append(err, fmt.Errorf("logger.rotate %q is not daily or size", c.Logger.Rotate))
	}
	return err
}
