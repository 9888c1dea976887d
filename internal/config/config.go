package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	goCred "github.com/MrEthical07/goCred"
)

// EnvPrefix prefixes every environment key, e.g. CREDGATE_DIRECTORY_URL.
const EnvPrefix = "CREDGATE"

// Settings is the process configuration of the credgate binaries.
type Settings struct {
	Listen    ListenSettings    `mapstructure:"listen"`
	HTTP      HTTPSettings      `mapstructure:"http"`
	Admin     AdminSettings     `mapstructure:"admin"`
	Log       LogSettings       `mapstructure:"log"`
	Directory DirectorySettings `mapstructure:"directory"`
	Token     TokenSettings     `mapstructure:"token"`
	OAuth2    OAuth2Settings    `mapstructure:"oauth2"`
	Database  DatabaseSettings  `mapstructure:"database"`
	Bootstrap BootstrapSettings `mapstructure:"bootstrap"`
	Source    SourceSettings    `mapstructure:"source"`
	Attempts  AttemptsSettings  `mapstructure:"attempts"`
	Redis     RedisSettings     `mapstructure:"redis"`
	Audit     AuditSettings     `mapstructure:"audit"`
	Metrics   MetricsSettings   `mapstructure:"metrics"`
}

type ListenSettings struct {
	Addr string `mapstructure:"addr"`
}

// HTTPSettings configures the login server.
type HTTPSettings struct {
	TrustForwarded bool          `mapstructure:"trust_forwarded"`
	ReadTimeout    time.Duration `mapstructure:"read_timeout"`
	WriteTimeout   time.Duration `mapstructure:"write_timeout"`
}

// AdminSettings guards the attempt reset route. An empty key disables it.
type AdminSettings struct {
	Key string `mapstructure:"key"`
}

type LogSettings struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// DirectorySettings enables the remote user directory when both URL and Key
// are set.
type DirectorySettings struct {
	URL     string        `mapstructure:"url"`
	Key     string        `mapstructure:"key"`
	Table   string        `mapstructure:"table"`
	Retries uint          `mapstructure:"retries"`
	Timeout time.Duration `mapstructure:"timeout"`
}

// TokenSettings configures the password-grant fallback verifier.
type TokenSettings struct {
	ExchangeMode string `mapstructure:"exchange_mode"`
	ExchangeURL  string `mapstructure:"exchange_url"`
	JWTSecret    string `mapstructure:"jwt_secret"`
}

type OAuth2Settings struct {
	ClientID     string   `mapstructure:"client_id"`
	ClientSecret string   `mapstructure:"client_secret"`
	TokenURL     string   `mapstructure:"token_url"`
	Scopes       []string `mapstructure:"scopes"`
}

// DatabaseSettings enables the SQL source when both fields are set.
type DatabaseSettings struct {
	Driver string `mapstructure:"driver"`
	DSN    string `mapstructure:"dsn"`
}

type BootstrapSettings struct {
	AdminEmail    string `mapstructure:"admin_email"`
	AdminPassword string `mapstructure:"admin_password"`
}

type SourceSettings struct {
	Timeout time.Duration `mapstructure:"timeout"`
}

type AttemptsSettings struct {
	Max     int           `mapstructure:"max"`
	Lockout time.Duration `mapstructure:"lockout"`
	Store   string        `mapstructure:"store"`
}

type RedisSettings struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

type AuditSettings struct {
	Enabled    bool `mapstructure:"enabled"`
	BufferSize int  `mapstructure:"buffer_size"`
}

type MetricsSettings struct {
	Enabled bool `mapstructure:"enabled"`
}

// Token exchange modes.
const (
	ExchangeREST   = "rest"
	ExchangeOAuth2 = "oauth2"
)

// Attempt store kinds.
const (
	StoreMemory = "memory"
	StoreRedis  = "redis"
)

var keys = []string{
	"listen.addr",
	"http.trust_forwarded",
	"http.read_timeout",
	"http.write_timeout",
	"admin.key",
	"log.level",
	"log.format",
	"directory.url",
	"directory.key",
	"directory.table",
	"directory.retries",
	"directory.timeout",
	"token.exchange_mode",
	"token.exchange_url",
	"token.jwt_secret",
	"oauth2.client_id",
	"oauth2.client_secret",
	"oauth2.token_url",
	"oauth2.scopes",
	"database.driver",
	"database.dsn",
	"bootstrap.admin_email",
	"bootstrap.admin_password",
	"source.timeout",
	"attempts.max",
	"attempts.lockout",
	"attempts.store",
	"redis.addr",
	"redis.password",
	"redis.db",
	"audit.enabled",
	"audit.buffer_size",
	"metrics.enabled",
}

// Load reads the optional .env files (default ".env"), then the process
// environment. Already-set variables are never overwritten by a file.
//
// Flags in fs named after a key with dots and underscores turned into dashes
// ("listen.addr" is --listen-addr) take precedence over the environment when
// set on the command line. fs may be nil.
func Load(fs *pflag.FlagSet, envFiles ...string) (*Settings, error) {
	if err := loadDotEnv(envFiles); err != nil {
		return nil, err
	}
	v := NewViper()
	if err := bindFlags(v, fs); err != nil {
		return nil, err
	}
	return FromViper(v)
}

// FlagName returns the command-line flag bound to key by [Load].
func FlagName(key string) string {
	return strings.NewReplacer(".", "-", "_", "-").Replace(key)
}

func bindFlags(v *viper.Viper, fs *pflag.FlagSet) error {
	if fs == nil {
		return nil
	}
	for _, key := range keys {
		f := fs.Lookup(FlagName(key))
		if f == nil {
			continue
		}
		if err := v.BindPFlag(key, f); err != nil {
			return fmt.Errorf("bind flag %s: %w", f.Name, err)
		}
	}
	return nil
}

// NewViper returns a viper instance with defaults and CREDGATE_ env
// bindings.
func NewViper() *viper.Viper {
	v := viper.New()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.SetEnvPrefix(EnvPrefix)
	setDefaults(v)
	for _, key := range keys {
		// BindEnv only fails without a key argument.
		_ = v.BindEnv(key)
	}
	v.AutomaticEnv()
	return v
}

// FromViper decodes and validates v.
func FromViper(v *viper.Viper) (*Settings, error) {
	var s Settings
	if err := v.Unmarshal(&s); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	if err := s.Validate(); err != nil {
		return nil, err
	}
	return &s, nil
}

func loadDotEnv(files []string) error {
	if len(files) == 0 {
		files = []string{".env"}
	}
	for _, f := range files {
		if err := godotenv.Load(f); err != nil {
			if errors.Is(err, os.ErrNotExist) {
				continue
			}
			return fmt.Errorf("load %s: %w", f, err)
		}
	}
	return nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("listen.addr", ":8080")
	v.SetDefault("http.trust_forwarded", false)
	v.SetDefault("http.read_timeout", "10s")
	v.SetDefault("http.write_timeout", "15s")

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

	v.SetDefault("directory.table", "users")
	v.SetDefault("directory.retries", 2)
	v.SetDefault("directory.timeout", "5s")

	v.SetDefault("token.exchange_mode", ExchangeREST)

	v.SetDefault("source.timeout", "5s")

	v.SetDefault("attempts.max", 5)
	v.SetDefault("attempts.lockout", "15m")
	v.SetDefault("attempts.store", StoreMemory)

	v.SetDefault("redis.addr", "localhost:6379")
	v.SetDefault("redis.db", 0)

	v.SetDefault("audit.enabled", true)
	v.SetDefault("audit.buffer_size", 1024)
	v.SetDefault("metrics.enabled", true)
}

// Validate rejects settings the binaries cannot start with.
func (s *Settings) Validate() error {
	switch s.Token.ExchangeMode {
	case ExchangeREST:
	case ExchangeOAuth2:
		if s.OAuth2.TokenURL == "" && s.Directory.URL == "" {
			return errors.New("config: oauth2 exchange needs OAUTH2_TOKEN_URL or DIRECTORY_URL")
		}
	default:
		return fmt.Errorf("config: unknown token exchange mode %q", s.Token.ExchangeMode)
	}

	switch s.Attempts.Store {
	case StoreMemory:
	case StoreRedis:
		if s.Redis.Addr == "" {
			return errors.New("config: redis attempt store needs REDIS_ADDR")
		}
	default:
		return fmt.Errorf("config: unknown attempt store %q", s.Attempts.Store)
	}

	if (s.Database.Driver == "") != (s.Database.DSN == "") {
		return errors.New("config: DATABASE_DRIVER and DATABASE_DSN must be set together")
	}
	if s.Attempts.Max <= 0 {
		return errors.New("config: ATTEMPTS_MAX must be > 0")
	}
	if s.Attempts.Lockout <= 0 {
		return errors.New("config: ATTEMPTS_LOCKOUT must be > 0")
	}
	if s.Source.Timeout < 0 {
		return errors.New("config: SOURCE_TIMEOUT must be >= 0")
	}
	return nil
}

// EngineConfig maps the settings onto the engine configuration tree.
func (s *Settings) EngineConfig() goCred.Config {
	cfg := goCred.DefaultConfig()
	cfg.Sources.Timeout = s.Source.Timeout
	cfg.Attempts.MaxAttempts = s.Attempts.Max
	cfg.Attempts.LockoutDuration = s.Attempts.Lockout
	cfg.Audit.Enabled = s.Audit.Enabled
	if s.Audit.BufferSize > 0 {
		cfg.Audit.BufferSize = s.Audit.BufferSize
	}
	cfg.Metrics.Enabled = s.Metrics.Enabled
	cfg.Metrics.EnableLatencyHistograms = s.Metrics.Enabled
	return cfg
}
