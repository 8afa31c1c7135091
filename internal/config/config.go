// Package config loads server configuration from defaults, an optional YAML file and the environment
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// EnvPrefix prefixes every environment override, e.g. TICKET_SERVER_PORT
const EnvPrefix = "TICKET_"

// Config is the server configuration
type Config struct {
	Server   ServerConfig   `koanf:"server"`
	Registry RegistryConfig `koanf:"registry"`
	Queue    QueueConfig    `koanf:"queue"`
	Monitor  MonitorConfig  `koanf:"monitor"`
	Log      LogConfig      `koanf:"log"`
	Ticket   TicketConfig   `koanf:"ticket"`
	NATS     NATSConfig     `koanf:"nats"`
	TUI      TUIConfig      `koanf:"tui"`
}

type ServerConfig struct {
	Port string `koanf:"port"`
}

type RegistryConfig struct {
	Path string `koanf:"path"` // empty: next to the executable
}

type QueueConfig struct {
	Retries    int           `koanf:"retries"`
	Interval   time.Duration `koanf:"interval"`
	RetryDelay time.Duration `koanf:"retrydelay"`
}

type MonitorConfig struct {
	Interval time.Duration `koanf:"interval"`
}

type LogConfig struct {
	Level string `koanf:"level"`
}

type TicketConfig struct {
	Brand string `koanf:"brand"`
}

// NATSConfig enables the print request subscriber when URL is set
type NATSConfig struct {
	URL     string `koanf:"url"`
	Subject string `koanf:"subject"`
	Queue   string `koanf:"queue"`
}

type TUIConfig struct {
	Enabled bool `koanf:"enabled"`
}

func defaults() map[string]interface{} {
	return map[string]interface{}{
		"server.port":      "12212",
		"registry.path":    "",
		"queue.retries":    3,
		"queue.interval":   "100ms",
		"queue.retrydelay": "1s",
		"monitor.interval": "2s",
		"log.level":        "info",
		"ticket.brand":     "RESTAURANT",
		"nats.url":         "",
		"nats.subject":     "tickets.print",
		"nats.queue":       "ticket-engine",
		"tui.enabled":      true,
	}
}

// Load reads defaults, then path if it exists, then TICKET_* variables
func Load(path string) (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(confmap.Provider(defaults(), "."), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	if path != "" {
		if _, err := os.Stat(path); err == nil {
			if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
				return nil, fmt.Errorf("failed to load config file %s: %w", path, err)
			}
		} else if !os.IsNotExist(err) {
			return nil, fmt.Errorf("failed to stat config file %s: %w", path, err)
		}
	}

	err := k.Load(env.Provider(EnvPrefix, ".", func(s string) string {
		return strings.ReplaceAll(strings.ToLower(strings.TrimPrefix(s, EnvPrefix)), "_", ".")
	}), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to load environment: %w", err)
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}

	return &cfg, nil
}
