package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const (
	DefaultAbuseURL    = "https://stat.ripe.net/data/abuse-contact-finder/data.json"
	DefaultPrefixURL   = "https://stat.ripe.net/data/announced-prefixes/data.json"
	DefaultWhoisServer = "whois.ripe.net"
	DefaultMaxParallel = 10
	DefaultPort        = "8080"
)

// Config is the static configuration read once at startup.
type Config struct {
	Request RequestConfig `yaml:"request"`
	Lookup  LookupConfig  `yaml:"lookup"`
	Server  ServerConfig  `yaml:"server"`
	Logging LoggingConfig `yaml:"logging"`
}

// RequestConfig carries the TLS material and proxy used by every outbound request.
// Cert, Key and CA are file paths.
type RequestConfig struct {
	Cert               string        `yaml:"cert"`
	Key                string        `yaml:"key"`
	Passphrase         string        `yaml:"passphrase"`
	CA                 string        `yaml:"ca"`
	Proxy              string        `yaml:"proxy"`
	RejectUnauthorized *bool         `yaml:"reject_unauthorized"`
	Timeout            time.Duration `yaml:"timeout"`
}

// VerifyCertificates reports whether server certificates must be validated.
// Unset means yes.
func (r RequestConfig) VerifyCertificates() bool {
	if r.RejectUnauthorized == nil {
		return true
	}
	return *r.RejectUnauthorized
}

type LookupConfig struct {
	MaxParallel int    `yaml:"max_parallel"`
	AbuseURL    string `yaml:"abuse_url"`
	PrefixURL   string `yaml:"prefix_url"`
	Whois       bool   `yaml:"whois"`
	WhoisServer string `yaml:"whois_server"`
}

type ServerConfig struct {
	Port string `yaml:"port"`
}

type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Load reads the optional YAML file at filename, then the .env file at
// envFile (default ".env", missing is fine), applies environment overrides
// and fills defaults.
func Load(filename, envFile string) (*Config, error) {
	var cfg Config
	if filename != "" {
		data, err := os.ReadFile(filename)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
	}

	if envFile == "" {
		_ = godotenv.Load()
	} else if err := godotenv.Load(envFile); err != nil {
		return nil, fmt.Errorf("failed to load env file: %w", err)
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) applyEnv() error {
	setString(&c.Request.Cert, "REQUEST_CERT")
	setString(&c.Request.Key, "REQUEST_KEY")
	setString(&c.Request.Passphrase, "REQUEST_PASSPHRASE")
	setString(&c.Request.CA, "REQUEST_CA")
	setString(&c.Request.Proxy, "REQUEST_PROXY")
	setString(&c.Server.Port, "PORT")
	setString(&c.Logging.Level, "LOG_LEVEL")
	setString(&c.Logging.Format, "LOG_FORMAT")

	if v, ok := lookupEnv("REQUEST_REJECT_UNAUTHORIZED"); ok {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("invalid REQUEST_REJECT_UNAUTHORIZED %q: %w", v, err)
		}
		c.Request.RejectUnauthorized = &b
	}
	if v, ok := lookupEnv("REQUEST_TIMEOUT"); ok {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("invalid REQUEST_TIMEOUT %q: %w", v, err)
		}
		c.Request.Timeout = d
	}
	if v, ok := lookupEnv("LOOKUP_MAX_PARALLEL"); ok {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid LOOKUP_MAX_PARALLEL %q: %w", v, err)
		}
		c.Lookup.MaxParallel = n
	}
	if v, ok := lookupEnv("LOOKUP_WHOIS"); ok {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("invalid LOOKUP_WHOIS %q: %w", v, err)
		}
		c.Lookup.Whois = b
	}
	return nil
}

func (c *Config) applyDefaults() {
	if c.Lookup.MaxParallel == 0 {
		c.Lookup.MaxParallel = DefaultMaxParallel
	}
	if c.Lookup.AbuseURL == "" {
		c.Lookup.AbuseURL = DefaultAbuseURL
	}
	if c.Lookup.PrefixURL == "" {
		c.Lookup.PrefixURL = DefaultPrefixURL
	}
	if c.Lookup.WhoisServer == "" {
		c.Lookup.WhoisServer = DefaultWhoisServer
	}
	if c.Server.Port == "" {
		c.Server.Port = DefaultPort
	}
	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
	if c.Logging.Format == "" {
		c.Logging.Format = "json"
	}
}

// Validate rejects settings the client cannot be built from.
func (c *Config) Validate() error {
	if c.Lookup.MaxParallel < 1 {
		return fmt.Errorf("lookup.max_parallel must be > 0, got %d", c.Lookup.MaxParallel)
	}
	if (c.Request.Cert == "") != (c.Request.Key == "") {
		return errors.New("request.cert and request.key must be set together")
	}
	if c.Request.Timeout < 0 {
		return fmt.Errorf("request.timeout must not be negative, got %s", c.Request.Timeout)
	}
	switch c.Logging.Format {
	case "json", "console":
	default:
		return fmt.Errorf("logging.format must be json or console, got %q", c.Logging.Format)
	}
	return nil
}

func setString(dst *string, key string) {
	if v, ok := lookupEnv(key); ok {
		*dst = v
	}
}

// lookupEnv treats blank values as unset.
func lookupEnv(key string) (string, bool) {
	v, ok := os.LookupEnv(key)
	v = strings.TrimSpace(v)
	if !ok || v == "" {
		return "", false
	}
	return v, true
}
