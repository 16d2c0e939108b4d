package config

import (
	"strconv"
	"time"
)

// DefaultPort is the chat port used when none is configured.
const DefaultPort = 5555

// Config holds server and client configuration values.
type Config struct {
	// ListenHost is the server bind address; empty binds every interface.
	ListenHost string `mapstructure:"listen_host" yaml:"listen_host"`
	// Port is the chat port the server listens on and the client dials.
	Port int `mapstructure:"port" yaml:"port"`
	// Host is the server the client dials.
	Host string `mapstructure:"host" yaml:"host"`

	// HTTPAddr enables the HTTP/WebSocket gateway when not empty.
	HTTPAddr          string        `mapstructure:"http_addr" yaml:"http_addr"`
	ReadHeaderTimeout time.Duration `mapstructure:"read_header_timeout" yaml:"read_header_timeout"`
	MaxMessageBytes   int64         `mapstructure:"max_message_bytes" yaml:"max_message_bytes"`

	// JournalPath enables the sqlite session journal when not empty.
	JournalPath string `mapstructure:"journal_path" yaml:"journal_path"`

	MessagesPerMinute int           `mapstructure:"messages_per_minute" yaml:"messages_per_minute"`
	LogLevel          string        `mapstructure:"log_level" yaml:"log_level"`
	ShutdownTimeout   time.Duration `mapstructure:"shutdown_timeout" yaml:"shutdown_timeout"`
}

// Default returns configuration with reasonable starter defaults.
func Default() Config {
	return Config{
		Port:              DefaultPort,
		Host:              "localhost",
		ReadHeaderTimeout: 5 * time.Second,
		MaxMessageBytes:   64 << 10,
		LogLevel:          "info",
		ShutdownTimeout:   5 * time.Second,
	}
}

// UpdateFrom overwrites non-zero values from other config into receiver.
func (c *Config) UpdateFrom(other Config) {
	if other.ListenHost != "" {
		c.ListenHost = other.ListenHost
	}
	if other.Port != 0 {
		c.Port = other.Port
	}
	if other.Host != "" {
		c.Host = other.Host
	}
	if other.HTTPAddr != "" {
		c.HTTPAddr = other.HTTPAddr
	}
	if other.ReadHeaderTimeout != 0 {
		c.ReadHeaderTimeout = other.ReadHeaderTimeout
	}
	if other.MaxMessageBytes != 0 {
		c.MaxMessageBytes = other.MaxMessageBytes
	}
	if other.JournalPath != "" {
		c.JournalPath = other.JournalPath
	}
	if other.MessagesPerMinute != 0 {
		c.MessagesPerMinute = other.MessagesPerMinute
	}
	if other.LogLevel != "" {
		c.LogLevel = other.LogLevel
	}
	if other.ShutdownTimeout != 0 {
		c.ShutdownTimeout = other.ShutdownTimeout
	}
}

// ParsePort returns the port in arg, or fallback when arg is not a valid port.
func ParsePort(arg string, fallback int) int {
	port, err := strconv.Atoi(arg)
	if err != nil || port <= 0 || port > 65535 {
		return fallback
	}
	return port
}
