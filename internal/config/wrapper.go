package config

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"
)

// WrapperConfig holds the startup configuration of one wrapper instance.
// It is never mutated once the server is listening.
type WrapperConfig struct {
	Profile         string        `yaml:"-" toml:"-"`
	ServiceName     string        `yaml:"service_name" toml:"service_name" env:"SERVICE_NAME"`
	ServiceNote     string        `yaml:"service_note" toml:"service_note" env:"SERVICE_NOTE"`
	Port            int           `yaml:"port" toml:"port" env:"PORT"`
	MetricsAddr     string        `yaml:"metrics_addr" toml:"metrics_addr" env:"METRICS_PORT"`
	AllowedOrigins  []string      `yaml:"allowed_origins" toml:"allowed_origins" env:"ALLOWED_ORIGINS" envSeparator:","`
	LogLevel        string        `yaml:"log_level" toml:"log_level" env:"LOG_LEVEL"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" toml:"shutdown_timeout" env:"SHUTDOWN_TIMEOUT"`
	ConfigFile      string        `yaml:"-" toml:"-" env:"CONFIG_FILE"`
}

// ErrUnknownProfile is returned when a binary asks for a profile that is not built in.
var ErrUnknownProfile = errors.New("unknown profile")

// ForProfile returns the built-in defaults of the named profile.
func ForProfile(name string) (WrapperConfig, error) {
	p, ok := LookupProfile(name)
	if !ok {
		return WrapperConfig{}, fmt.Errorf("%w %q (known: %s)", ErrUnknownProfile, name, strings.Join(ProfileNames(), ", "))
	}
	c := WrapperConfig{
		Profile:     p.Name,
		ServiceName: p.ServiceName,
		ServiceNote: p.Note,
		Port:        p.Port,
	}
	c.SetDefaults()
	return c, nil
}

// SetDefaults initializes unset ambient settings with built-in defaults.
func (c *WrapperConfig) SetDefaults() {
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}
	if c.ShutdownTimeout == 0 {
		c.ShutdownTimeout = 5 * time.Second
	}
}

// Addr is the listen address of the status endpoints, on all interfaces.
func (c WrapperConfig) Addr() string {
	return fmt.Sprintf(":%d", c.Port)
}

// MetricsEnabled reports whether a separate Prometheus listener is configured.
func (c WrapperConfig) MetricsEnabled() bool {
	return c.MetricsAddr != ""
}

// LoadFile overlays the config with a YAML file, or a TOML file when path ends in .toml.
func (c *WrapperConfig) LoadFile(path string) error {
	b, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	if strings.EqualFold(filepath.Ext(path), ".toml") {
		if _, err := toml.Decode(string(b), c); err != nil {
			return fmt.Errorf("parse %s: %w", path, err)
		}
	} else if err := yaml.Unmarshal(b, c); err != nil {
		return fmt.Errorf("parse %s: %w", path, err)
	}
	c.normalize()
	return nil
}

// ApplyEnv overlays environment variables onto the current config values.
// Unset or empty variables leave the current value in place.
func (c *WrapperConfig) ApplyEnv() error {
	if err := env.Parse(c); err != nil {
		return fmt.Errorf("parse env: %w", err)
	}
	c.normalize()
	return nil
}

// BindFlags binds command line flags using the current config values as defaults.
func (c *WrapperConfig) BindFlags(fs *flag.FlagSet) {
	fs.StringVar(&c.ConfigFile, "config", c.ConfigFile, "config file path (.yaml or .toml)")
	fs.StringVar(&c.LogLevel, "log-level", c.LogLevel, "log verbosity (all, debug, info, warn, error, fatal, none)")
	fs.IntVar(&c.Port, "port", c.Port, "HTTP listen port for /health and /mcp")
	fs.StringVar(&c.MetricsAddr, "metrics-port", c.MetricsAddr, "Prometheus metrics listen address or port; empty disables metrics")
	fs.StringVar(&c.ServiceName, "service-name", c.ServiceName, "service name reported by /health and /mcp")
	fs.StringVar(&c.ServiceNote, "service-note", c.ServiceNote, "note reported by /mcp")
	fs.DurationVar(&c.ShutdownTimeout, "shutdown-timeout", c.ShutdownTimeout, "time allowed for in-flight requests on shutdown")
	fs.Func("allowed-origins", "comma separated list of allowed CORS origins; empty allows any origin", func(v string) error {
		c.AllowedOrigins = splitComma(v)
		return nil
	})
}

// Validate checks the values a server cannot start with.
func (c WrapperConfig) Validate() error {
	if strings.TrimSpace(c.ServiceName) == "" {
		return errors.New("service name must not be empty")
	}
	if c.Port < 0 || c.Port > 65535 {
		return fmt.Errorf("port %d out of range", c.Port)
	}
	if c.ShutdownTimeout < 0 {
		return fmt.Errorf("shutdown timeout %s must not be negative", c.ShutdownTimeout)
	}
	if c.MetricsEnabled() && c.Port != 0 && c.MetricsAddr == c.Addr() {
		return fmt.Errorf("metrics address %s must differ from the status port", c.MetricsAddr)
	}
	return nil
}

// Load builds the config of profile from defaults, config file, environment and
// args, in increasing order of precedence.
func Load(profile string, fs *flag.FlagSet, args []string) (WrapperConfig, error) {
	c, err := ForProfile(profile)
	if err != nil {
		return c, err
	}
	c.ConfigFile = DefaultConfigPath(profile + ".yaml")
	if err := c.ApplyEnv(); err != nil {
		return c, err
	}
	c.BindFlags(fs)
	if err := fs.Parse(args); err != nil {
		return c, err
	}
	if c.ConfigFile != "" {
		if err := c.LoadFile(c.ConfigFile); err != nil {
			if !errors.Is(err, os.ErrNotExist) {
				return c, err
			}
		} else {
			// the file must not win over the environment or explicit flags
			if err := c.ApplyEnv(); err != nil {
				return c, err
			}
			if err := fs.Parse(args); err != nil {
				return c, err
			}
		}
	}
	c.normalize()
	return c, c.Validate()
}

func (c *WrapperConfig) normalize() {
	if c.MetricsAddr != "" && !strings.Contains(c.MetricsAddr, ":") {
		c.MetricsAddr = ":" + c.MetricsAddr
	}
	origins := c.AllowedOrigins[:0]
	for _, o := range c.AllowedOrigins {
		if o = strings.TrimSpace(o); o != "" {
			origins = append(origins, o)
		}
	}
	if len(origins) == 0 {
		origins = nil
	}
	c.AllowedOrigins = origins
}

func splitComma(v string) []string {
	if v == "" {
		return nil
	}
	parts := strings.Split(v, ",")
	for i, p := range parts {
		parts[i] = strings.TrimSpace(p)
	}
	return parts
}
