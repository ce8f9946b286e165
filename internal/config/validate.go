// ABOUTME: Configuration validation
// ABOUTME: Checks each section and reports the first invalid setting
package config

import (
	"fmt"
	"strings"

	"github.com/rs/zerolog"
)

// Validate checks every section of the configuration
func (c *Config) Validate() error {
	if err := c.Server.Validate(); err != nil {
		return fmt.Errorf("server: %w", err)
	}
	if err := c.Stream.Validate(); err != nil {
		return fmt.Errorf("stream: %w", err)
	}
	if err := c.Capture.Validate(); err != nil {
		return fmt.Errorf("capture: %w", err)
	}
	if err := c.Discovery.Validate(); err != nil {
		return fmt.Errorf("discovery: %w", err)
	}
	if err := c.Logging.Validate(); err != nil {
		return fmt.Errorf("logging: %w", err)
	}
	return nil
}

// Validate checks the listener settings
func (s *ServerConfig) Validate() error {
	if s.Port < 1 || s.Port > 65535 {
		return fmt.Errorf("port must be between 1 and 65535, got %d", s.Port)
	}
	return nil
}

// Validate checks the stream labels
func (s *StreamConfig) Validate() error {
	if s.ContentType == "" {
		return fmt.Errorf("content_type cannot be empty")
	}
	if strings.ContainsAny(s.ContentType, "/; \t") {
		return fmt.Errorf("content_type must be a bare subtype marker, got %q", s.ContentType)
	}
	if strings.ContainsAny(s.Title, "\r\n") {
		return fmt.Errorf("title cannot contain line breaks")
	}
	return nil
}

// Validate checks the capture backend name
func (c *CaptureConfig) Validate() error {
	switch c.Backend {
	case "malgo", "portaudio", "tone":
		return nil
	default:
		return fmt.Errorf("backend must be one of malgo, portaudio, tone, got %q", c.Backend)
	}
}

// Validate checks the advertisement settings
func (d *DiscoveryConfig) Validate() error {
	if d.Enabled && d.Name == "" {
		return fmt.Errorf("name is required when discovery is enabled")
	}
	return nil
}

// Validate checks the log level and format
func (l *LoggingConfig) Validate() error {
	if _, err := zerolog.ParseLevel(strings.ToLower(l.Level)); err != nil {
		return fmt.Errorf("level %q: %w", l.Level, err)
	}
	switch l.Format {
	case "console", "json":
	default:
		return fmt.Errorf("format must be console or json, got %q", l.Format)
	}
	return nil
}
