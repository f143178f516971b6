package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/go-viper/mapstructure/v2"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

const (
	configFileEnvName = "SHOP_CONFIG_FILE"
	envPrefix         = "SHOP"
)

const (
	LogFormatText = "text"
	LogFormatJSON = "json"

	TokenStoreSQLite = "sqlite"
	TokenStoreRedis  = "redis"
	TokenStoreMemory = "memory"
)

type tlsFiles struct {
	CA   string `mapstructure:"ca"`
	Cert string `mapstructure:"cert"`
	Key  string `mapstructure:"key"`
}

// Enabled reports whether any TLS file is configured.
func (t tlsFiles) Enabled() bool {
	return t.CA != "" || t.Cert != "" || t.Key != ""
}

type backend struct {
	BaseURL        string        `mapstructure:"base_url"`
	RequestTimeout time.Duration `mapstructure:"request_timeout"`
	RateLimit      float64       `mapstructure:"rate_limit"`
	Burst          int           `mapstructure:"burst"`
	TLS            tlsFiles      `mapstructure:"tls"`
}

type tokenStore struct {
	Driver      string `mapstructure:"driver"`
	Key         string `mapstructure:"key"`
	SQLitePath  string `mapstructure:"sqlite_path"`
	RedisAddr   string `mapstructure:"redis_addr"`
	RedisPrefix string `mapstructure:"redis_prefix"`
}

type events struct {
	SeedBrokers        []string      `mapstructure:"seed_brokers"`
	SchemaRegistryURLs []string      `mapstructure:"schema_registry_urls"`
	Topic              string        `mapstructure:"topic"`
	Partitions         int32         `mapstructure:"partitions"`
	ReplicationFactor  int16         `mapstructure:"replication_factor"`
	DeliveryTimeout    time.Duration `mapstructure:"delivery_timeout"`
	TLS                tlsFiles      `mapstructure:"tls"`
}

// Enabled reports whether client events should be published.
func (e events) Enabled() bool {
	return len(e.SeedBrokers) != 0 && e.Topic != ""
}

type Config struct {
	LogLevel   slog.Level `mapstructure:"log_level"`
	LogFormat  string     `mapstructure:"log_format"`
	Backend    backend    `mapstructure:"backend"`
	TokenStore tokenStore `mapstructure:"token_store"`
	Events     events     `mapstructure:"events"`
}

func Load() Config {
	cfg, err := LoadFile(getConfigFilepath())
	if err != nil {
		die(err)
	}
	return cfg
}

// LoadFile reads the config file at path over the defaults. SHOP_* variables
// override both. A missing file leaves the defaults in place.
func LoadFile(path string) (Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		err := v.ReadInConfig()
		var notFound viper.ConfigFileNotFoundError
		switch {
		case err == nil:
		case errors.Is(err, fs.ErrNotExist), errors.As(err, &notFound):
			slog.Debug("config file not found, using defaults", "path", path)
		default:
			return Config{}, err
		}
	}

	var cfg Config
	err := v.UnmarshalExact(&cfg, viper.DecodeHook(
		mapstructure.ComposeDecodeHookFunc(
			mapstructure.TextUnmarshallerHookFunc(),
			mapstructure.StringToTimeDurationHookFunc(),
			mapstructure.StringToSliceHookFunc(","),
		),
	))
	if err != nil {
		return Config{}, err
	}

	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("log_level", "info")
	v.SetDefault("log_format", LogFormatText)

	v.SetDefault("backend.base_url", "http://localhost:5000")
	v.SetDefault("backend.request_timeout", "0s")
	v.SetDefault("backend.rate_limit", 0)
	v.SetDefault("backend.burst", 10)
	v.SetDefault("backend.tls.ca", "")
	v.SetDefault("backend.tls.cert", "")
	v.SetDefault("backend.tls.key", "")

	v.SetDefault("token_store.driver", TokenStoreSQLite)
	v.SetDefault("token_store.key", "jwt")
	v.SetDefault("token_store.sqlite_path", "shopfront.db")
	v.SetDefault("token_store.redis_addr", "localhost:6379")
	v.SetDefault("token_store.redis_prefix", "shopfront:")

	v.SetDefault("events.seed_brokers", []string{})
	v.SetDefault("events.schema_registry_urls", []string{})
	v.SetDefault("events.topic", "")
	v.SetDefault("events.partitions", 3)
	v.SetDefault("events.replication_factor", 1)
	v.SetDefault("events.delivery_timeout", "5s")
	v.SetDefault("events.tls.ca", "")
	v.SetDefault("events.tls.cert", "")
	v.SetDefault("events.tls.key", "")
}

func (c Config) validate() error {
	switch c.LogFormat {
	case LogFormatText, LogFormatJSON:
	default:
		return fmt.Errorf("log_format: unknown format %q", c.LogFormat)
	}

	switch c.TokenStore.Driver {
	case TokenStoreSQLite, TokenStoreRedis, TokenStoreMemory:
	default:
		return fmt.Errorf("token_store.driver: unknown driver %q", c.TokenStore.Driver)
	}

	if c.TokenStore.Key == "" {
		return errors.New("token_store.key: empty")
	}
	if c.Events.Enabled() && len(c.Events.SchemaRegistryURLs) == 0 {
		return errors.New("events.schema_registry_urls: required to publish events")
	}
	return nil
}

func getConfigFilepath() string {
	cmdLine := pflag.NewFlagSet(os.Args[0], pflag.ExitOnError)
	arg := cmdLine.String("config", "shopfront.yaml", "config file")
	_ = cmdLine.Parse(os.Args[1:])
	env, ok := os.LookupEnv(configFileEnvName)
	if ok {
		return env
	}
	return *arg
}

func die(err error) {
	fmt.Fprintf(os.Stderr, "failed to load config file: %v\n", err)
	os.Exit(2)
}

func (c Config) Print() {
	tamplate := `
	General:
	LogLevel=%q
	LogFormat=%q

	Backend:
	BaseURL=%q
	RequestTimeout=%s
	RateLimit=%g
	TLS=%t

	TokenStore:
	Driver=%q
	Key=%q
	SQLitePath=%q
	RedisAddr=%q

	Events:
	SeedBrokers=%q
	SchemaRegistryURLs=%q
	Topic=%q

`
	fmt.Fprintln(os.Stderr, "Loaded config:")
	fmt.Fprintf(
		os.Stderr,
		strings.TrimLeft(tamplate, "\n"),
		c.LogLevel,
		c.LogFormat,
		c.Backend.BaseURL,
		c.Backend.RequestTimeout,
		c.Backend.RateLimit,
		c.Backend.TLS.Enabled(),
		c.TokenStore.Driver,
		c.TokenStore.Key,
		c.TokenStore.SQLitePath,
		c.TokenStore.RedisAddr,
		c.Events.SeedBrokers,
		c.Events.SchemaRegistryURLs,
		c.Events.Topic,
	)
}
