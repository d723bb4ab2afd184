// Package config loads the service configuration from a YAML file with
// environment variable overrides (prefix ORDERDESK, e.g.
// ORDERDESK_POSTGRES_DSN).
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config is the full service configuration.
type Config struct {
	HTTP     HTTPConfig     `mapstructure:"http"`
	Postgres PostgresConfig `mapstructure:"postgres"`
	Redis    RedisConfig    `mapstructure:"redis"`
	OPAC     OPACConfig     `mapstructure:"opac"`
	Lock     LockConfig     `mapstructure:"lock"`
	Notify   NotifyConfig   `mapstructure:"notify"`
	Log      LogConfig      `mapstructure:"log"`
}

// HTTPConfig configures the API listener.
type HTTPConfig struct {
	Addr            string        `mapstructure:"addr"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

// PostgresConfig configures the order store pool.
type PostgresConfig struct {
	DSN          string        `mapstructure:"dsn"`
	MaxConns     int32         `mapstructure:"max_conns"`
	MinConns     int32         `mapstructure:"min_conns"`
	MaxConnIdle  time.Duration `mapstructure:"max_conn_idle"`
	EnsureSchema bool          `mapstructure:"ensure_schema"`
}

// RedisConfig configures the profile cache.
type RedisConfig struct {
	Addr       string        `mapstructure:"addr"`
	Password   string        `mapstructure:"password"`
	DB         int           `mapstructure:"db"`
	ProfileTTL time.Duration `mapstructure:"profile_ttl"`
}

// OPACConfig configures the upstream catalog/identity/loan service.
type OPACConfig struct {
	BaseURL       string           `mapstructure:"base_url"`
	InternalToken string           `mapstructure:"internal_token"`
	Timeout       time.Duration    `mapstructure:"timeout"`
	Collections   map[string]int64 `mapstructure:"collections"`
}

// LockConfig selects the per-user lock backend.
type LockConfig struct {
	// Backend is "inprocess" or "advisory".
	Backend string `mapstructure:"backend"`
	// AcquireTimeout bounds how long a request waits for its turn.
	AcquireTimeout time.Duration `mapstructure:"acquire_timeout"`
}

// NotifyConfig configures outbound notifications and the staffed hours
// outside which nothing is sent.
type NotifyConfig struct {
	Enabled       bool     `mapstructure:"enabled"`
	SMTPAddr      string   `mapstructure:"smtp_addr"`
	From          string   `mapstructure:"from"`
	StaffMail     []string `mapstructure:"staff_mail"`
	WeekdayStart  int      `mapstructure:"weekday_start"`
	WeekdayEnd    int      `mapstructure:"weekday_end"`
	SaturdayStart int      `mapstructure:"saturday_start"`
	SaturdayEnd   int      `mapstructure:"saturday_end"`
}

// LogConfig configures the slog handler.
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

const (
	LockBackendInProcess = "inprocess"
	LockBackendAdvisory  = "advisory"
)

// Load reads the configuration file at configPath, applies defaults, and
// lets ORDERDESK_* environment variables override individual keys.
func Load(configPath string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(configPath)
	v.SetConfigType("yaml")

	v.SetEnvPrefix("ORDERDESK")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("http.addr", ":8080")
	v.SetDefault("http.read_timeout", 15*time.Second)
	v.SetDefault("http.write_timeout", 30*time.Second)
	v.SetDefault("http.shutdown_timeout", 10*time.Second)

	v.SetDefault("postgres.max_conns", 10)
	v.SetDefault("postgres.min_conns", 2)
	v.SetDefault("postgres.max_conn_idle", 5*time.Minute)
	v.SetDefault("postgres.ensure_schema", false)

	v.SetDefault("redis.profile_ttl", 5*time.Minute)

	v.SetDefault("opac.timeout", 10*time.Second)

	v.SetDefault("lock.backend", LockBackendInProcess)
	v.SetDefault("lock.acquire_timeout", 15*time.Second)

	v.SetDefault("notify.enabled", false)
	v.SetDefault("notify.weekday_start", 9)
	v.SetDefault("notify.weekday_end", 18)
	v.SetDefault("notify.saturday_start", 10)
	v.SetDefault("notify.saturday_end", 14)

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
}

func (c *Config) validate() error {
	if c.Postgres.DSN == "" {
		return fmt.Errorf("postgres.dsn must be set")
	}

	if c.OPAC.BaseURL == "" {
		return fmt.Errorf("opac.base_url must be set")
	}

	if c.Lock.Backend != LockBackendInProcess && c.Lock.Backend != LockBackendAdvisory {
		return fmt.Errorf("lock.backend must be %q or %q, got %q",
			LockBackendInProcess, LockBackendAdvisory, c.Lock.Backend)
	}

	return nil
}
