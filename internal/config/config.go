// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Gatehouse Contributors

// Package config loads server configuration from a YAML file, command-line
// flags and the environment.
package config

import (
	"fmt"
	"net/url"
	"os"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/samber/oops"
	"github.com/spf13/pflag"
)

// DatabaseURLEnv overrides database_url when set.
const DatabaseURLEnv = "DATABASE_URL"

const redacted = "********"

// SMTP configures outbound mail. An empty Host selects the log mailer.
type SMTP struct {
	Host     string `koanf:"host" yaml:"host"`
	Port     int    `koanf:"port" yaml:"port"`
	Username string `koanf:"username" yaml:"username"`
	Password string `koanf:"password" yaml:"password"`
	From     string `koanf:"from" yaml:"from"`
	FromName string `koanf:"from_name" yaml:"from_name"`
}

// Presence tunes the presence bus.
type Presence struct {
	// Buffer is the per-subscriber event buffer.
	Buffer int `koanf:"buffer" yaml:"buffer"`
	// AnnounceOnline publishes Online as soon as a self-reporter connects.
	AnnounceOnline bool `koanf:"announce_online" yaml:"announce_online"`
}

// Config is the effective server configuration.
type Config struct {
	ListenAddr   string   `koanf:"listen_addr" yaml:"listen_addr"`
	MetricsAddr  string   `koanf:"metrics_addr" yaml:"metrics_addr"`
	DatabaseURL  string   `koanf:"database_url" yaml:"database_url"`
	LogFormat    string   `koanf:"log_format" yaml:"log_format"`
	BaseURL      string   `koanf:"base_url" yaml:"base_url"`
	CookieSecure bool     `koanf:"cookie_secure" yaml:"cookie_secure"`
	Presence     Presence `koanf:"presence" yaml:"presence"`
	SMTP         SMTP     `koanf:"smtp" yaml:"smtp"`
}

// Default returns the configuration used for keys nobody sets.
func Default() Config {
	return Config{
		ListenAddr:  "0.0.0.0:3000",
		MetricsAddr: "127.0.0.1:9100",
		LogFormat:   "json",
		BaseURL:     "http://localhost:3000",
		Presence:    Presence{Buffer: 100, AnnounceOnline: true},
		SMTP:        SMTP{Port: 587, FromName: "Gatehouse"},
	}
}

// RegisterFlags adds the flags Load understands to fs.
func RegisterFlags(fs *pflag.FlagSet) {
	d := Default()
	fs.String("config", "", "path to a YAML config file")
	fs.String("listen-addr", d.ListenAddr, "HTTP listen address")
	fs.String("metrics-addr", d.MetricsAddr, "metrics/health HTTP address (empty = disabled)")
	fs.String("database-url", "", "PostgreSQL connection URL (env "+DatabaseURLEnv+" takes precedence)")
	fs.String("log-format", d.LogFormat, "log format (json or text)")
	fs.String("base-url", d.BaseURL, "public base URL used in emailed links")
	fs.Bool("cookie-secure", d.CookieSecure, "mark the session cookie Secure")
	fs.Int("presence-buffer", d.Presence.Buffer, "events buffered per presence subscriber")
	fs.Bool("presence-announce-online", d.Presence.AnnounceOnline, "mark users online as soon as they connect")
}

// flagKey maps a flag name to its config key.
func flagKey(name string) string {
	key := strings.ReplaceAll(name, "-", "_")
	for _, section := range []string{"presence", "smtp"} {
		if rest, ok := strings.CutPrefix(key, section+"_"); ok {
			return section + "." + rest
		}
	}
	return key
}

// Load reads path (optional), then flags, then the environment. Flags set
// on the command line override the file; flag defaults only fill keys the
// file leaves out.
func Load(path string, flags *pflag.FlagSet) (*Config, error) {
	k := koanf.New(".")

	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, oops.Code("CONFIG_LOAD_FAILED").With("path", path).Wrap(err)
		}
	}

	if flags != nil {
		provider := posflag.ProviderWithFlag(flags, ".", k, func(f *pflag.Flag) (string, any) {
			if f.Name == "config" {
				return "", nil
			}
			return flagKey(f.Name), posflag.FlagVal(flags, f)
		})
		if err := k.Load(provider, nil); err != nil {
			return nil, oops.Code("CONFIG_LOAD_FAILED").With("source", "flags").Wrap(err)
		}
	}

	if v := os.Getenv(DatabaseURLEnv); v != "" {
		if err := k.Set("database_url", v); err != nil {
			return nil, oops.Code("CONFIG_LOAD_FAILED").With("source", "env").Wrap(err)
		}
	}

	cfg := Default()
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
		return nil, oops.Code("CONFIG_INVALID").With("operation", "unmarshal config").Wrap(err)
	}
	return &cfg, nil
}

// Validate checks the settings the server cannot start without.
func (c *Config) Validate() error {
	if c.LogFormat != "json" && c.LogFormat != "text" {
		return oops.Code("CONFIG_INVALID").With("key", "log_format").
			Errorf("log_format must be 'json' or 'text', got %q", c.LogFormat)
	}
	if c.Presence.Buffer <= 0 {
		return oops.Code("CONFIG_INVALID").With("key", "presence.buffer").
			Errorf("presence.buffer must be positive, got %d", c.Presence.Buffer)
	}
	if c.DatabaseURL == "" {
		return oops.Code("CONFIG_INVALID").With("key", "database_url").
			Errorf("database_url is required (set %s or --database-url)", DatabaseURLEnv)
	}
	if c.ListenAddr == "" {
		return oops.Code("CONFIG_INVALID").With("key", "listen_addr").Errorf("listen_addr is required")
	}
	if u, err := url.Parse(c.BaseURL); err != nil || u.Scheme == "" || u.Host == "" {
		return oops.Code("CONFIG_INVALID").With("key", "base_url").
			Errorf("base_url must be an absolute url, got %q", c.BaseURL)
	}
	if c.SMTP.Host != "" && c.SMTP.From == "" {
		return oops.Code("CONFIG_INVALID").With("key", "smtp.from").Errorf("smtp.from is required when smtp.host is set")
	}
	return nil
}

// Redacted returns a copy safe to print: the SMTP password and the database
// password are masked.
func (c Config) Redacted() Config {
	if c.SMTP.Password != "" {
		c.SMTP.Password = redacted
	}
	if u, err := url.Parse(c.DatabaseURL); err == nil && u.User != nil {
		if _, ok := u.User.Password(); ok {
			// url.UserPassword would percent-encode the mask.
			u.User = url.User(u.User.Username())
			user := u.User.String()
			c.DatabaseURL = strings.Replace(u.String(), "//"+user+"@", "//"+user+":"+redacted+"@", 1)
		}
	}
	return c
}

// String summarizes the config for logs without secrets.
func (c Config) String() string {
	r := c.Redacted()
	return fmt.Sprintf("listen=%s metrics=%s log_format=%s base_url=%s database_url=%s",
		r.ListenAddr, r.MetricsAddr, r.LogFormat, r.BaseURL, r.DatabaseURL)
}
