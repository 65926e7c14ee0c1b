package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// EnvPrefix is the environment variable prefix, e.g. COURSETRACK_API_ENDPOINT.
const EnvPrefix = "COURSETRACK"

// Config is the runtime configuration assembled from flags, environment,
// config file and defaults, in that order of precedence.
type Config struct {
	Env     string `mapstructure:"env" json:"env" validate:"oneof=development production"`
	Logging struct {
		Level    string `mapstructure:"level" json:"level" validate:"oneof=debug info warn error"`
		FilePath string `mapstructure:"file_path" json:"file_path"`
	} `mapstructure:"logging" json:"logging"`
	Storage struct {
		Driver string `mapstructure:"driver" json:"driver" validate:"oneof=sqlite redis"`
		Path   string `mapstructure:"path" json:"path" validate:"required"` // sqlite file; also holds the session with redis
		Redis  struct {
			Addr     string `mapstructure:"addr" json:"addr"`
			Password string `mapstructure:"password" json:"-"`
			DB       int    `mapstructure:"db" json:"db" validate:"gte=0"`
			Prefix   string `mapstructure:"prefix" json:"prefix"`
		} `mapstructure:"redis" json:"redis"`
	} `mapstructure:"storage" json:"storage"`
	API struct {
		Endpoint string        `mapstructure:"endpoint" json:"endpoint" validate:"required,url"`
		Timeout  time.Duration `mapstructure:"timeout" json:"timeout" validate:"gt=0"`
	} `mapstructure:"api" json:"api"`
	Catalog struct {
		Source string `mapstructure:"source" json:"source" validate:"oneof=file remote"`
		Dir    string `mapstructure:"dir" json:"dir"`
	} `mapstructure:"catalog" json:"catalog"`
	Sync struct {
		Debounce time.Duration `mapstructure:"debounce" json:"debounce" validate:"gte=0"`
	} `mapstructure:"sync" json:"sync"`
	Server struct {
		Host string `mapstructure:"host" json:"host"`
		Port int    `mapstructure:"port" json:"port" validate:"min=1,max=65535"`
	} `mapstructure:"server" json:"server"`
	Telemetry struct {
		Enabled   bool   `mapstructure:"enabled" json:"enabled"`
		TraceFile string `mapstructure:"trace_file" json:"trace_file"`
	} `mapstructure:"telemetry" json:"telemetry"`
}

// Home returns the per-user state directory, ~/.coursetrack.
func Home() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("finding home directory: %w", err)
	}
	return filepath.Join(home, ".coursetrack"), nil
}

// RegisterFlags adds the configuration flags to fs. Flag names match config
// keys so viper can bind them directly.
func RegisterFlags(fs *pflag.FlagSet) {
	base, err := Home()
	if err != nil {
		base = ".coursetrack"
	}

	fs.String("config", filepath.Join(base, "config.yaml"), "config file")
	fs.String("env", "development", "runtime environment, 'development' or 'production'")

	fs.String("logging.level", "warn", "logging level")
	fs.String("logging.file_path", "", "log to file")

	fs.String("storage.driver", "sqlite", "local persistence backend, 'sqlite' or 'redis'")
	fs.String("storage.path", filepath.Join(base, "coursetrack.db"), "sqlite database file")
	fs.String("storage.redis.addr", "127.0.0.1:6379", "redis address")
	fs.String("storage.redis.password", "", "redis password")
	fs.Int("storage.redis.db", 0, "redis database number")
	fs.String("storage.redis.prefix", "coursetrack:", "redis key prefix")

	fs.String("api.endpoint", "http://localhost:4000/graphql", "LMS GraphQL endpoint")
	fs.Duration("api.timeout", 15*time.Second, "per-request timeout for the LMS API")

	fs.String("catalog.source", "remote", "where course catalogs come from, 'file' or 'remote'")
	fs.String("catalog.dir", filepath.Join(base, "catalogs"), "directory of <courseId>.yaml catalogs")

	fs.Duration("sync.debounce", 2*time.Second, "quiet period before progress is sent to the API")

	fs.String("server.host", "127.0.0.1", "companion agent bind address")
	fs.Int("server.port", 7345, "companion agent port")

	fs.Bool("telemetry.enabled", false, "record spans and counters")
	fs.String("telemetry.trace_file", "", "write spans to this file instead of stderr")
}

// Load builds a Config from fs (already parsed), the environment and the
// config file named by the "config" flag. A missing config file is ignored
// unless the flag was set explicitly.
func Load(fs *pflag.FlagSet) (*Config, error) {
	v := viper.New()
	if err := v.BindPFlags(fs); err != nil {
		return nil, fmt.Errorf("binding flags: %w", err)
	}
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if f := fs.Lookup("config"); f != nil && f.Value.String() != "" {
		path := f.Value.String()
		if _, err := os.Stat(path); err == nil {
			v.SetConfigFile(path)
			if err := v.ReadInConfig(); err != nil {
				return nil, fmt.Errorf("reading config file: %w", err)
			}
		} else if f.Changed {
			return nil, fmt.Errorf("config file %s: %w", path, err)
		}
	}

	cfg := new(Config)
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("decoding config: %w", err)
	}
	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks struct tags and cross-field rules. Field names in messages
// are the dotted config keys.
func Validate(cfg *Config) error {
	validate := validator.New()
	validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("mapstructure"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})

	var msg []string
	if err := validate.Struct(cfg); err != nil {
		var verrs validator.ValidationErrors
		if !errors.As(err, &verrs) {
			return fmt.Errorf("validating config: %w", err)
		}
		for _, field := range verrs {
			namespace := field.Namespace()
			name := namespace[strings.IndexByte(namespace, '.')+1:] // trim top level namespace
			switch field.Tag() {
			case "required":
				msg = append(msg, fmt.Sprintf("%s is required", name))
			case "oneof":
				msg = append(msg, fmt.Sprintf("%s must be one of (%s)", name, field.Param()))
			case "url":
				msg = append(msg, fmt.Sprintf("%s must be a URL", name))
			default:
				msg = append(msg, fmt.Sprintf("%s failed %s=%s", name, field.Tag(), field.Param()))
			}
		}
	}
	if cfg.Storage.Driver == "redis" && cfg.Storage.Redis.Addr == "" {
		msg = append(msg, "storage.redis.addr is required when storage.driver is redis")
	}
	if cfg.Catalog.Source == "file" && cfg.Catalog.Dir == "" {
		msg = append(msg, "catalog.dir is required when catalog.source is file")
	}
	if len(msg) > 0 {
		return fmt.Errorf("invalid config:\n%s", strings.Join(msg, "\n"))
	}
	return nil
}
