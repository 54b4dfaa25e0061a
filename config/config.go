package config

import (
	"errors"
	"fmt"
	"io/fs"
	"net"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds all application configuration.
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Database DatabaseConfig `mapstructure:"database"`
	Redis    RedisConfig    `mapstructure:"redis"`
	JWT      JWTConfig      `mapstructure:"jwt"`
	Log      LogConfig      `mapstructure:"log"`
	Storage  StorageConfig  `mapstructure:"storage"`
	Sync     SyncConfig     `mapstructure:"sync"`
	Guard    GuardConfig    `mapstructure:"guard"`
	Trail    TrailConfig    `mapstructure:"trail"`
	Provider ProviderConfig `mapstructure:"provider"`
	Mirror   MirrorConfig   `mapstructure:"mirror"`
	Kafka    KafkaConfig    `mapstructure:"kafka"`
	Cache    CacheConfig    `mapstructure:"cache"`
}

type ServerConfig struct {
	Host string `mapstructure:"host"`
	Port int    `mapstructure:"port"`
	Mode string `mapstructure:"mode"` // debug, release, test
}

type DatabaseConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	User            string        `mapstructure:"user"`
	Password        string        `mapstructure:"password"`
	DBName          string        `mapstructure:"dbname"`
	SSLMode         string        `mapstructure:"sslmode"`
	MaxConns        int32         `mapstructure:"max_conns"`
	MinConns        int32         `mapstructure:"min_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
}

// DSN returns the PostgreSQL connection URL. Credentials are escaped.
func (d DatabaseConfig) DSN() string {
	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(d.User, d.Password),
		Host:     d.hostPort(),
		Path:     "/" + d.DBName,
		RawQuery: "sslmode=" + url.QueryEscape(d.SSLMode),
	}
	return u.String()
}

func (d DatabaseConfig) hostPort() string {
	return net.JoinHostPort(d.Host, strconv.Itoa(d.Port))
}

type RedisConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// Addr returns host:port, bracketing IPv6 hosts.
func (r RedisConfig) Addr() string {
	return net.JoinHostPort(r.Host, strconv.Itoa(r.Port))
}

type JWTConfig struct {
	Secret string        `mapstructure:"secret"`
	Expiry time.Duration `mapstructure:"expiry"`
	Issuer string        `mapstructure:"issuer"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`  // debug, info, warn, error
	Pretty bool   `mapstructure:"pretty"` // human-readable output (dev only)
}

// StorageConfig selects the shared storage medium contexts synchronize through.
type StorageConfig struct {
	Driver       string        `mapstructure:"driver"` // memory, sqlite, redis
	SQLitePath   string        `mapstructure:"sqlite_path"`
	KeyPrefix    string        `mapstructure:"key_prefix"`
	PollInterval time.Duration `mapstructure:"poll_interval"` // sqlite change polling
}

type SyncConfig struct {
	Debounce      time.Duration `mapstructure:"debounce"`
	SchemaVersion int           `mapstructure:"schema_version"`
}

// RateLimitRule bounds attempts of one operation inside a sliding window.
type RateLimitRule struct {
	MaxAttempts int           `mapstructure:"max_attempts"`
	Window      time.Duration `mapstructure:"window"`
}

type GuardConfig struct {
	WalletEnabled  bool                     `mapstructure:"wallet_enabled"`
	DomainEnabled  bool                     `mapstructure:"domain_enabled"`
	MasterBlocking bool                     `mapstructure:"master_blocking"`
	Shared         bool                     `mapstructure:"shared"` // keep rate-limit windows in redis
	RateLimits     map[string]RateLimitRule `mapstructure:"rate_limits"`
}

type TrailConfig struct {
	ErrorCapacity int `mapstructure:"error_capacity"`
	AuditCapacity int `mapstructure:"audit_capacity"`
}

type ProviderConfig struct {
	Timeout     time.Duration `mapstructure:"timeout"`
	APIKey      string        `mapstructure:"api_key"`
	SandboxMode bool          `mapstructure:"sandbox_mode"`
	Outcome     string        `mapstructure:"outcome"` // sandbox only: complete, cancel, error, hang
}

type MirrorConfig struct {
	BaseURL string        `mapstructure:"base_url"` // empty = mirror disabled
	Timeout time.Duration `mapstructure:"timeout"`
	Retries int           `mapstructure:"retries"`
}

type KafkaConfig struct {
	Brokers []string `mapstructure:"brokers"` // empty = events disabled
	Topic   string   `mapstructure:"topic"`
}

type CacheConfig struct {
	TTL time.Duration `mapstructure:"ttl"`
}

// Load reads configuration from file and environment variables.
// A .env file in the working directory is loaded first (existing env wins).
// Environment variables override file values. Prefix: FLASHPAY_.
// Nested keys use underscore: FLASHPAY_STORAGE_DRIVER, FLASHPAY_JWT_SECRET, etc.
func Load(path string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("loading .env: %w", err)
	}

	v := viper.New()

	// Defaults
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.mode", "debug")
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "postgres")
	v.SetDefault("database.password", "postgres")
	v.SetDefault("database.dbname", "flashpay")
	v.SetDefault("database.sslmode", "disable")
	v.SetDefault("database.max_conns", 20)
	v.SetDefault("database.min_conns", 2)
	v.SetDefault("database.conn_max_lifetime", "30m")
	v.SetDefault("redis.host", "localhost")
	v.SetDefault("redis.port", 6379)
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("jwt.secret", "")
	v.SetDefault("jwt.expiry", "1h")
	v.SetDefault("jwt.issuer", "flashpay")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.pretty", false)
	v.SetDefault("storage.driver", "sqlite")
	v.SetDefault("storage.sqlite_path", "flashpay.db")
	v.SetDefault("storage.key_prefix", "flashpay")
	v.SetDefault("storage.poll_interval", "250ms")
	v.SetDefault("sync.debounce", "100ms")
	v.SetDefault("sync.schema_version", 2)
	v.SetDefault("guard.wallet_enabled", true)
	v.SetDefault("guard.domain_enabled", true)
	v.SetDefault("guard.master_blocking", false)
	v.SetDefault("guard.shared", false)
	v.SetDefault("guard.rate_limits", map[string]any{
		"create_payment":  map[string]any{"max_attempts": 10, "window": "60s"},
		"execute_payment": map[string]any{"max_attempts": 5, "window": "60s"},
	})
	v.SetDefault("trail.error_capacity", 100)
	v.SetDefault("trail.audit_capacity", 200)
	v.SetDefault("provider.timeout", "30s")
	v.SetDefault("provider.api_key", "")
	v.SetDefault("provider.sandbox_mode", true)
	v.SetDefault("provider.outcome", "complete")
	v.SetDefault("mirror.base_url", "")
	v.SetDefault("mirror.timeout", "10s")
	v.SetDefault("mirror.retries", 2)
	v.SetDefault("kafka.brokers", []string{})
	v.SetDefault("kafka.topic", "flashpay.payments")
	v.SetDefault("cache.ttl", "24h")

	// File config
	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
	}

	// Environment variables: FLASHPAY_STORAGE_DRIVER -> storage.driver
	v.SetEnvPrefix("FLASHPAY")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Read config file (not required, env vars can suffice)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}

	return &cfg, nil
}

// Rule returns the rate limit rule for op, falling back to a permissive rule
// when none is configured.
func (g GuardConfig) Rule(op string) RateLimitRule {
	if r, ok := g.RateLimits[op]; ok && r.MaxAttempts > 0 && r.Window > 0 {
		return r
	}
	return RateLimitRule{MaxAttempts: 10, Window: time.Minute}
}
