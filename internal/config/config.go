package config

import "time"

// Config holds settings for both the reference server and the chat client.
type Config struct {
	LogLevel string       `mapstructure:"log_level" yaml:"log_level"`
	Server   ServerConfig `mapstructure:"server" yaml:"server"`
	Client   ClientConfig `mapstructure:"client" yaml:"client"`
}

// ServerConfig configures `wirechat serve`.
type ServerConfig struct {
	Addr              string        `mapstructure:"addr" yaml:"addr"`
	ReadHeaderTimeout time.Duration `mapstructure:"read_header_timeout" yaml:"read_header_timeout"`
	ShutdownTimeout   time.Duration `mapstructure:"shutdown_timeout" yaml:"shutdown_timeout"`
	DatabasePath      string        `mapstructure:"database_path" yaml:"database_path"`
	HistoryLimit      int           `mapstructure:"history_limit" yaml:"history_limit"`
	MaxMessageBytes   int64         `mapstructure:"max_message_bytes" yaml:"max_message_bytes"`
	// RateLimit caps chat messages per connection per minute; 0 disables it.
	RateLimit int `mapstructure:"rate_limit" yaml:"rate_limit"`
}

// ClientConfig configures `wirechat chat`.
type ClientConfig struct {
	ServerURL      string        `mapstructure:"server_url" yaml:"server_url"`
	User           string        `mapstructure:"user" yaml:"user"`
	DefaultRoom    string        `mapstructure:"default_room" yaml:"default_room"`
	Rooms          []string      `mapstructure:"rooms" yaml:"rooms"`
	HistoryTimeout time.Duration `mapstructure:"history_timeout" yaml:"history_timeout"`
	ReconnectMin   time.Duration `mapstructure:"reconnect_min" yaml:"reconnect_min"`
	ReconnectMax   time.Duration `mapstructure:"reconnect_max" yaml:"reconnect_max"`
	NoticeBuffer   int           `mapstructure:"notice_buffer" yaml:"notice_buffer"`
}

// Default returns configuration with reasonable starter defaults.
func Default() Config {
	return Config{
		LogLevel: "info",
		Server: ServerConfig{
			Addr:              ":8080",
			ReadHeaderTimeout: 5 * time.Second,
			ShutdownTimeout:   5 * time.Second,
			DatabasePath:      "wirechat.db",
			HistoryLimit:      50,
			MaxMessageBytes:   1 << 20,
			RateLimit:         120,
		},
		Client: ClientConfig{
			ServerURL:      "http://localhost:8080",
			User:           "Guest",
			DefaultRoom:    "general",
			Rooms:          []string{"general", "random", "tech"},
			HistoryTimeout: 10 * time.Second,
			ReconnectMin:   500 * time.Millisecond,
			ReconnectMax:   10 * time.Second,
			NoticeBuffer:   32,
		},
	}
}

// UpdateFrom overwrites non-zero values from other config into receiver.
func (c *Config) UpdateFrom(other Config) {
	if other.LogLevel != "" {
		c.LogLevel = other.LogLevel
	}
	c.Server.updateFrom(other.Server)
	c.Client.updateFrom(other.Client)
}

func (s *ServerConfig) updateFrom(other ServerConfig) {
	if other.Addr != "" {
		s.Addr = other.Addr
	}
	if other.ReadHeaderTimeout != 0 {
		s.ReadHeaderTimeout = other.ReadHeaderTimeout
	}
	if other.ShutdownTimeout != 0 {
		s.ShutdownTimeout = other.ShutdownTimeout
	}
	if other.DatabasePath != "" {
		s.DatabasePath = other.DatabasePath
	}
	if other.HistoryLimit != 0 {
		s.HistoryLimit = other.HistoryLimit
	}
	if other.MaxMessageBytes != 0 {
		s.MaxMessageBytes = other.MaxMessageBytes
	}
	if other.RateLimit != 0 {
		s.RateLimit = other.RateLimit
	}
}

func (c *ClientConfig) updateFrom(other ClientConfig) {
	if other.ServerURL != "" {
		c.ServerURL = other.ServerURL
	}
	if other.User != "" {
		c.User = other.User
	}
	if other.DefaultRoom != "" {
		c.DefaultRoom = other.DefaultRoom
	}
	if len(other.Rooms) > 0 {
		c.Rooms = other.Rooms
	}
	if other.HistoryTimeout != 0 {
		c.HistoryTimeout = other.HistoryTimeout
	}
	if other.ReconnectMin != 0 {
		c.ReconnectMin = other.ReconnectMin
	}
	if other.ReconnectMax != 0 {
		c.ReconnectMax = other.ReconnectMax
	}
	if other.NoticeBuffer != 0 {
		c.NoticeBuffer = other.NoticeBuffer
	}
}
