package conf

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"dario.cat/mergo"
	"github.com/go-viper/mapstructure/v2"
	"github.com/hashicorp/go-multierror"
	"github.com/spf13/viper"
	"go.uber.org/fx"

	"github.com/looplj/caseflow/internal/log"
	"github.com/looplj/caseflow/internal/metrics"
	"github.com/looplj/caseflow/internal/pkg/watcher"
	"github.com/looplj/caseflow/internal/pkg/xcache"
	"github.com/looplj/caseflow/internal/server"
	"github.com/looplj/caseflow/internal/server/biz"
	"github.com/looplj/caseflow/internal/server/db"
	"github.com/looplj/caseflow/internal/server/gc"
)

const envPrefix = "CASEFLOW"

// Config is the root configuration. Each section is provided to the fx
// graph on its own.
type Config struct {
	fx.Out `conf:"-" yaml:"-" json:"-"`

	APIServer    server.Config           `conf:"server" yaml:"server" json:"server"`
	DB           db.Config               `conf:"db" yaml:"db" json:"db"`
	Log          log.Config              `conf:"log" yaml:"log" json:"log"`
	Metrics      metrics.Config          `conf:"metrics" yaml:"metrics" json:"metrics"`
	Permission   biz.PermissionConfig    `conf:"permission" yaml:"permission" json:"permission"`
	Access       biz.AccessConfig        `conf:"access" yaml:"access" json:"access"`
	Auth         biz.AuthConfig          `conf:"auth" yaml:"auth" json:"auth"`
	Organization biz.OrganizationConfig  `conf:"organization" yaml:"organization" json:"organization"`
	GC           gc.Config               `conf:"gc" yaml:"gc" json:"gc"`
}

// Load reads config.yml from the working directory, ./conf or
// /etc/caseflow, then applies CASEFLOW_ environment overrides such as
// CASEFLOW_SERVER_PORT. A missing file is not an error.
func Load() (Config, error) {
	v := viper.New()

	v.SetConfigName("config")
	v.SetConfigType("yml")
	v.AddConfigPath(".")
	v.AddConfigPath("./conf")
	v.AddConfigPath("/etc/caseflow/")

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return Config{}, fmt.Errorf("failed to read config: %w", err)
		}
	}

	return decode(v)
}

func decode(v *viper.Viper) (Config, error) {
	var cfg Config

	err := v.Unmarshal(&cfg, func(dc *mapstructure.DecoderConfig) {
		dc.TagName = "conf"
		dc.DecodeHook = mapstructure.ComposeDecodeHookFunc(
			mapstructure.StringToTimeDurationHookFunc(),
			mapstructure.StringToSliceHookFunc(","),
		)
	})
	if err != nil {
		return Config{}, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := mergo.Merge(&cfg, sectionDefaults()); err != nil {
		return Config{}, fmt.Errorf("failed to merge config defaults: %w", err)
	}

	return cfg, nil
}

// setDefaults registers every key that can be overridden from the
// environment. Viper only consults the environment for known keys.
func setDefaults(v *viper.Viper) {
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8090)
	v.SetDefault("server.name", "caseflow")
	v.SetDefault("server.base_path", "")
	v.SetDefault("server.read_timeout", 30*time.Second)
	v.SetDefault("server.request_timeout", 30*time.Second)
	v.SetDefault("server.shutdown_timeout", 10*time.Second)
	v.SetDefault("server.trace.trace_header", "")
	v.SetDefault("server.trace.request_header", "")
	v.SetDefault("server.debug", false)
	v.SetDefault("server.cors.enabled", false)
	v.SetDefault("server.cors.allowed_origins", []string{})

	v.SetDefault("db.dialect", "sqlite3")
	v.SetDefault("db.dsn", "file:caseflow.db?cache=shared&_pragma=foreign_keys(1)")
	v.SetDefault("db.debug", false)
	v.SetDefault("db.max_open_conns", 0)
	v.SetDefault("db.max_idle_conns", 0)
	v.SetDefault("db.auto_migrate", true)

	v.SetDefault("log.name", "caseflow")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.encoding", "json")
	v.SetDefault("log.debug", false)
	v.SetDefault("log.output", "stdio")
	v.SetDefault("log.file.path", "logs/caseflow.log")
	v.SetDefault("log.include_caller", true)
	v.SetDefault("log.include_stacktrace", false)

	v.SetDefault("metrics.exporter", "")
	v.SetDefault("metrics.endpoint", "")
	v.SetDefault("metrics.insecure", false)
	v.SetDefault("metrics.interval", time.Minute)

	v.SetDefault("permission.seed_defaults", true)
	v.SetDefault("permission.cache.mode", "")
	v.SetDefault("permission.cache.memory.expiration", 5*time.Minute)
	v.SetDefault("permission.cache.memory.cleanup_interval", 10*time.Minute)
	v.SetDefault("permission.cache.redis.addr", "")
	v.SetDefault("permission.cache.redis.url", "")
	v.SetDefault("permission.watcher.mode", watcher.ModeMemory)
	v.SetDefault("permission.watcher.redis.addr", "")
	v.SetDefault("permission.watcher.redis.url", "")

	v.SetDefault("access.relationship_roles", []string{})

	v.SetDefault("auth.secret", "")
	v.SetDefault("auth.issuer", "caseflow")
	v.SetDefault("auth.token_ttl", 24*time.Hour)

	v.SetDefault("organization.reserved_subdomains", []string{"www", "api", "admin", "app"})

	v.SetDefault("gc.cron", "0 3 * * *")
	v.SetDefault("gc.audit_retention_days", 0)
	v.SetDefault("gc.vacuum_enabled", false)
	v.SetDefault("gc.vacuum_full", false)
}

// sectionDefaults fills values that are zero after decoding, mostly
// list fields that are awkward to express as viper defaults.
func sectionDefaults() Config {
	return Config{
		APIServer: server.Config{
			CORS: server.CORS{
				AllowedMethods: []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
				AllowedHeaders: []string{"Authorization", "Content-Type"},
				MaxAge:         12 * time.Hour,
			},
		},
		Permission: biz.PermissionConfig{
			Cache: xcache.Config{
				Memory: xcache.MemoryConfig{
					Expiration:      5 * time.Minute,
					CleanupInterval: 10 * time.Minute,
				},
			},
		},
	}
}

// Validate reports every problem in cfg at once.
func Validate(cfg Config) error {
	var result *multierror.Error

	if cfg.APIServer.Port <= 0 || cfg.APIServer.Port > 65535 {
		result = multierror.Append(result, errors.New("server.port must be between 1 and 65535"))
	}

	if cfg.APIServer.CORS.Enabled && len(cfg.APIServer.CORS.AllowedOrigins) == 0 {
		result = multierror.Append(result, errors.New("server.cors.allowed_origins cannot be empty when CORS is enabled"))
	}

	if cfg.DB.DSN == "" {
		result = multierror.Append(result, errors.New("db.dsn cannot be empty"))
	}

	if cfg.Log.Name == "" {
		result = multierror.Append(result, errors.New("log.name cannot be empty"))
	}

	if cfg.Auth.Secret == "" {
		result = multierror.Append(result, errors.New("auth.secret cannot be empty"))
	}

	switch cfg.Metrics.Exporter {
	case "", metrics.ExporterStdout, metrics.ExporterOTLP:
	default:
		result = multierror.Append(result, fmt.Errorf("metrics.exporter %q is not one of stdout, otlp", cfg.Metrics.Exporter))
	}

	switch cfg.Permission.Cache.Mode {
	case "", xcache.ModeMemory, xcache.ModeRedis, xcache.ModeTwoLevel:
	default:
		result = multierror.Append(result, fmt.Errorf("permission.cache.mode %q is invalid", cfg.Permission.Cache.Mode))
	}

	switch cfg.Permission.Watcher.Mode {
	case "", watcher.ModeMemory, watcher.ModeRedis:
	default:
		result = multierror.Append(result, fmt.Errorf("permission.watcher.mode %q is invalid", cfg.Permission.Watcher.Mode))
	}

	if cfg.GC.AuditRetentionDays < 0 {
		result = multierror.Append(result, errors.New("gc.audit_retention_days cannot be negative"))
	}

	return result.ErrorOrNil()
}
