// Package config loads xchange.yaml, applies .env and environment
// overrides, and turns exchange sections into exchange specifications.
package config

import (
	"os"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"

	"github.com/betbot/xchange/pkg/exchange"
	"github.com/betbot/xchange/pkg/logger"
	"github.com/betbot/xchange/pkg/nonce"
	"github.com/betbot/xchange/pkg/secretstore"
)

const (
	envPrefix = "XCHANGE_"
	// EnvSecretKey holds the secret store encryption key (hex or base64).
	EnvSecretKey = "XCHANGE_SECRET_KEY"

	defaultListen      = ":8080"
	defaultJournalPath = "data/xchange.db"
)

type LogConfig struct {
	Level      string `yaml:"level"`
	File       string `yaml:"file"`
	MaxSize    int    `yaml:"max_size"`
	MaxBackups int    `yaml:"max_backups"`
	MaxAge     int    `yaml:"max_age"`
	Compress   bool   `yaml:"compress"`
	JSON       bool   `yaml:"json"`
}

// ExchangeConfig is one entry of the exchanges map. Empty fields fall back
// to the adapter's defaults.
type ExchangeConfig struct {
	APIKey         string            `yaml:"api_key"`
	SecretKey      string            `yaml:"secret_key"`
	Username       string            `yaml:"username"`
	SSLURI         string            `yaml:"ssl_uri"`
	PublicURI      string            `yaml:"public_uri"`
	NoncePrecision string            `yaml:"nonce_precision"` // s, ms, us, ns
	Timeout        string            `yaml:"timeout"`         // Go duration, e.g. "15s"
	RetryCount     *int              `yaml:"retry_count"`     // unset: adapter default, 0: no retries
	RateLimit      int               `yaml:"rate_limit"`
	Proxy          string            `yaml:"proxy"`
	Params         map[string]string `yaml:"params"`
}

type SecretStoreConfig struct {
	Path string `yaml:"path"`
}

type JournalConfig struct {
	Path string `yaml:"path"`
}

type ServerConfig struct {
	Listen string `yaml:"listen"`
	// MaxOrderErrors halts order placement on an exchange after that many
	// consecutive transport/auth failures. 0 disables.
	MaxOrderErrors int `yaml:"max_order_errors"`
}

type Config struct {
	Log         LogConfig                 `yaml:"log"`
	Exchanges   map[string]ExchangeConfig `yaml:"exchanges"`
	SecretStore SecretStoreConfig         `yaml:"secret_store"`
	Journal     JournalConfig             `yaml:"journal"`
	Server      ServerConfig              `yaml:"server"`
}

// LoadDotEnv loads .env files if present. A missing file is not an error.
func LoadDotEnv(paths ...string) {
	if len(paths) == 0 {
		paths = []string{".env"}
	}
	for _, p := range paths {
		if _, err := os.Stat(p); err != nil {
			continue
		}
		if err := godotenv.Load(p); err != nil {
			logger.Warnf("load %s: %v", p, err)
		}
	}
}

// Load reads path (optional), applies environment overrides and defaults,
// and validates the result.
func Load(path string) (*Config, error) {
	cfg := &Config{}
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, errors.Wrapf(err, "read config %s", path)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, errors.Wrapf(err, "parse config %s", path)
		}
	}
	cfg.normalize()
	cfg.applyEnv()
	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) normalize() {
	out := make(map[string]ExchangeConfig, len(c.Exchanges))
	for name, ex := range c.Exchanges {
		out[strings.ToLower(strings.TrimSpace(name))] = ex
	}
	c.Exchanges = out
}

func envName(exchangeName, field string) string {
	return envPrefix + strings.ToUpper(exchangeName) + "_" + field
}

// applyEnv lets XCHANGE_<EXCHANGE>_* override file values. XCHANGE_EXCHANGES
// ("cryptsy,lakebtc") adds exchanges that have no file section.
func (c *Config) applyEnv() {
	for _, name := range strings.Split(os.Getenv(envPrefix+"EXCHANGES"), ",") {
		name = strings.ToLower(strings.TrimSpace(name))
		if name == "" {
			continue
		}
		if _, ok := c.Exchanges[name]; !ok {
			c.Exchanges[name] = ExchangeConfig{}
		}
	}

	for name, ex := range c.Exchanges {
		if v := os.Getenv(envName(name, "API_KEY")); v != "" {
			ex.APIKey = v
		}
		if v := os.Getenv(envName(name, "SECRET_KEY")); v != "" {
			ex.SecretKey = v
		}
		if v := os.Getenv(envName(name, "USERNAME")); v != "" {
			ex.Username = v
		}
		if v := os.Getenv(envName(name, "NONCE_PRECISION")); v != "" {
			ex.NoncePrecision = v
		}
		if v := os.Getenv(envName(name, "PROXY")); v != "" {
			ex.Proxy = v
		}
		c.Exchanges[name] = ex
	}

	if v := os.Getenv(envPrefix + "LOG_LEVEL"); v != "" {
		c.Log.Level = v
	}
	if v := os.Getenv(envPrefix + "LISTEN"); v != "" {
		c.Server.Listen = v
	}
}

func (c *Config) applyDefaults() {
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Log.File != "" {
		if c.Log.MaxSize == 0 {
			c.Log.MaxSize = 100
		}
		if c.Log.MaxBackups == 0 {
			c.Log.MaxBackups = 3
		}
		if c.Log.MaxAge == 0 {
			c.Log.MaxAge = 7
		}
	}
	if c.Server.Listen == "" {
		c.Server.Listen = defaultListen
	}
	if c.Journal.Path == "" {
		c.Journal.Path = defaultJournalPath
	}
}

var exchangeNamePattern = regexp.MustCompile(`^[a-z0-9][a-z0-9_-]*$`)

// Validate checks names, precisions and durations. It does not check that
// an adapter is registered under each name; exchange.New reports that.
func (c *Config) Validate() error {
	for name, ex := range c.Exchanges {
		if !exchangeNamePattern.MatchString(name) {
			return errors.Errorf("invalid exchange name %q", name)
		}
		if ex.NoncePrecision != "" {
			if _, err := nonce.ParsePrecision(ex.NoncePrecision); err != nil {
				return errors.Wrapf(err, "exchanges.%s.nonce_precision", name)
			}
		}
		if ex.Timeout != "" {
			d, err := time.ParseDuration(ex.Timeout)
			if err != nil {
				return errors.Wrapf(err, "exchanges.%s.timeout", name)
			}
			if d <= 0 {
				return errors.Errorf("exchanges.%s.timeout must be positive", name)
			}
		}
		if ex.RetryCount != nil && *ex.RetryCount < 0 {
			return errors.Errorf("exchanges.%s.retry_count must not be negative", name)
		}
		if ex.RateLimit < 0 {
			return errors.Errorf("exchanges.%s.rate_limit must not be negative", name)
		}
	}
	if c.Server.MaxOrderErrors < 0 {
		return errors.New("server.max_order_errors must not be negative")
	}
	switch strings.ToLower(c.Log.Level) {
	case "", "trace", "debug", "info", "warn", "warning", "error", "fatal", "panic":
	default:
		return errors.Errorf("invalid log level %q", c.Log.Level)
	}
	return nil
}

// ExchangeNames lists configured exchanges in sorted order.
func (c *Config) ExchangeNames() []string {
	out := make([]string, 0, len(c.Exchanges))
	for name := range c.Exchanges {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// Specification builds the exchange specification for name. Fields left
// empty are filled from the adapter defaults by exchange.New.
func (c *Config) Specification(name string) (exchange.Specification, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	ex, ok := c.Exchanges[name]
	if !ok {
		// Unconfigured exchanges still work for public market data.
		ex = ExchangeConfig{}
	}

	spec := exchange.Specification{
		Name:       name,
		APIKey:     ex.APIKey,
		SecretKey:  ex.SecretKey,
		Username:   ex.Username,
		SSLURI:     ex.SSLURI,
		PublicURI:  ex.PublicURI,
		RetryCount: ex.RetryCount,
		RateLimit:  ex.RateLimit,
		ProxyURL:   ex.Proxy,
		Params:     ex.Params,
	}
	if ex.NoncePrecision != "" {
		p, err := nonce.ParsePrecision(ex.NoncePrecision)
		if err != nil {
			return exchange.Specification{}, err
		}
		spec.NoncePrecision = exchange.PrecisionPtr(p)
	}
	if ex.Timeout != "" {
		d, err := time.ParseDuration(ex.Timeout)
		if err != nil {
			return exchange.Specification{}, errors.Wrapf(err, "exchanges.%s.timeout", name)
		}
		spec.Timeout = d
	}
	return spec, nil
}

// OpenSecretStore opens the configured Badger store using the key in
// XCHANGE_SECRET_KEY. It returns nil when no store is configured.
func (c *Config) OpenSecretStore(readOnly bool) (*secretstore.Store, error) {
	if c.SecretStore.Path == "" {
		return nil, nil
	}
	key, err := secretstore.ParseKey(os.Getenv(EnvSecretKey))
	if err != nil {
		return nil, errors.Wrap(err, EnvSecretKey)
	}
	if key == nil {
		logger.Warnf("%s is not set; opening %s without encryption", EnvSecretKey, c.SecretStore.Path)
	}
	return secretstore.Open(secretstore.OpenOptions{Path: c.SecretStore.Path, EncryptionKey: key, ReadOnly: readOnly})
}

// ResolveSecrets fills credentials that neither the file nor the
// environment provided from store.
func (c *Config) ResolveSecrets(store *secretstore.Store) error {
	if store == nil {
		return nil
	}
	for name, ex := range c.Exchanges {
		creds, err := store.ExchangeCredentials(name)
		if err != nil {
			return errors.Wrapf(err, "secrets for %s", name)
		}
		if ex.APIKey == "" {
			ex.APIKey = creds.APIKey
		}
		if ex.SecretKey == "" {
			ex.SecretKey = creds.SecretKey
		}
		if ex.Username == "" {
			ex.Username = creds.Username
		}
		c.Exchanges[name] = ex
	}
	return nil
}

// LoggerConfig maps the log section onto pkg/logger.
func (c *Config) LoggerConfig() logger.Config {
	return logger.Config{
		Level:      c.Log.Level,
		OutputFile: c.Log.File,
		MaxSize:    c.Log.MaxSize,
		MaxBackups: c.Log.MaxBackups,
		MaxAge:     c.Log.MaxAge,
		Compress:   c.Log.Compress,
		JSON:       c.Log.JSON,
	}
}

// GetEnv returns the environment value for key or def.
func GetEnv(key, def string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return def
}

// GetEnvInt is GetEnv for integers; unparsable values yield def.
func GetEnvInt(key string, def int) int {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}
