// ABOUTME: Configuration structure and loader
// ABOUTME: Merges defaults, config file, environment and bound flags
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// Config is the complete service configuration
type Config struct {
	Server    ServerConfig    `mapstructure:"server" yaml:"server"`
	Stream    StreamConfig    `mapstructure:"stream" yaml:"stream"`
	Capture   CaptureConfig   `mapstructure:"capture" yaml:"capture"`
	File      FileConfig      `mapstructure:"file" yaml:"file"`
	Discovery DiscoveryConfig `mapstructure:"discovery" yaml:"discovery"`
	Logging   LoggingConfig   `mapstructure:"logging" yaml:"logging"`
	TUI       bool            `mapstructure:"tui" yaml:"tui"`
}

// ServerConfig controls the HTTP listener
type ServerConfig struct {
	Address string `mapstructure:"address" yaml:"address"`
	Port    int    `mapstructure:"port" yaml:"port"`
}

// StreamConfig controls how streams are labelled
type StreamConfig struct {
	Title       string `mapstructure:"title" yaml:"title"`
	ContentType string `mapstructure:"content_type" yaml:"content_type"`
}

// CaptureConfig selects the live input
type CaptureConfig struct {
	Backend string `mapstructure:"backend" yaml:"backend"`
	Device  string `mapstructure:"device" yaml:"device"`
}

// FileConfig selects the file source
type FileConfig struct {
	Path string `mapstructure:"path" yaml:"path"`
	Pace bool   `mapstructure:"pace" yaml:"pace"`
}

// DiscoveryConfig controls mDNS advertisement
type DiscoveryConfig struct {
	Enabled bool   `mapstructure:"enabled" yaml:"enabled"`
	Name    string `mapstructure:"name" yaml:"name"`
}

// LoggingConfig controls log output
type LoggingConfig struct {
	Level  string `mapstructure:"level" yaml:"level"`
	Format string `mapstructure:"format" yaml:"format"`
	Output string `mapstructure:"output" yaml:"output"`
}

// Default returns the built-in configuration
func Default() *Config {
	hostname, _ := os.Hostname()
	if hostname == "" {
		hostname = "rawstream"
	}

	return &Config{
		Server: ServerConfig{
			Address: "0.0.0.0",
			Port:    3000,
		},
		Stream: StreamConfig{
			Title:       "NetworkInput",
			ContentType: "hqplayer-raw",
		},
		Capture: CaptureConfig{
			Backend: "malgo",
		},
		File: FileConfig{
			Path: "./crosswalk.wav",
			Pace: true,
		},
		Discovery: DiscoveryConfig{
			Enabled: false,
			Name:    hostname,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "console",
			Output: "stderr",
		},
	}
}

// flagKeys maps command-line flag names onto configuration keys
var flagKeys = map[string]string{
	"address":   "server.address",
	"port":      "server.port",
	"title":     "stream.title",
	"backend":   "capture.backend",
	"device":    "capture.device",
	"file":      "file.path",
	"pace":      "file.pace",
	"mdns":      "discovery.enabled",
	"name":      "discovery.name",
	"log-level": "logging.level",
	"log-file":  "logging.output",
	"tui":       "tui",
}

// Load reads configuration from cfgFile (or the default search path),
// the environment and any flags present in flags.
func Load(cfgFile string, flags *pflag.FlagSet) (*Config, error) {
	v := viper.New()
	setDefaults(v, Default())

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		v.SetConfigName("rawstream")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath(configDir())
	}

	v.SetEnvPrefix("RAWSTREAM")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if flags != nil {
		for name, key := range flagKeys {
			if f := flags.Lookup(name); f != nil {
				if err := v.BindPFlag(key, f); err != nil {
					return nil, fmt.Errorf("failed to bind flag %s: %w", name, err)
				}
			}
		}
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// setDefaults registers every key so environment overrides apply on Unmarshal
func setDefaults(v *viper.Viper, d *Config) {
	v.SetDefault("server.address", d.Server.Address)
	v.SetDefault("server.port", d.Server.Port)
	v.SetDefault("stream.title", d.Stream.Title)
	v.SetDefault("stream.content_type", d.Stream.ContentType)
	v.SetDefault("capture.backend", d.Capture.Backend)
	v.SetDefault("capture.device", d.Capture.Device)
	v.SetDefault("file.path", d.File.Path)
	v.SetDefault("file.pace", d.File.Pace)
	v.SetDefault("discovery.enabled", d.Discovery.Enabled)
	v.SetDefault("discovery.name", d.Discovery.Name)
	v.SetDefault("logging.level", d.Logging.Level)
	v.SetDefault("logging.format", d.Logging.Format)
	v.SetDefault("logging.output", d.Logging.Output)
	v.SetDefault("tui", d.TUI)
}

// Addr is the listen address in host:port form
func (c *Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.Server.Address, c.Server.Port)
}

// YAML renders the effective configuration
func (c *Config) YAML() ([]byte, error) {
	return yaml.Marshal(c)
}

func configDir() string {
	switch runtime.GOOS {
	case "windows":
		return filepath.Join(os.Getenv("ProgramData"), "rawstream")
	case "darwin":
		return "/Library/Application Support/rawstream"
	default:
		return "/etc/rawstream"
	}
}
