// internal/common/config/config.go
package config

import "fmt"

// Config is the main application configuration struct.
type Config struct {
	App           AppConfig          `mapstructure:"app"`
	Telegram      TelegramConfig     `mapstructure:"telegram"`
	Moderation    ModerationConfig   `mapstructure:"moderation"`
	Admin         AdminConfig        `mapstructure:"admin"`
	Database      DatabaseConfig     `mapstructure:"database"`
	Dispatch      DispatchConfig     `mapstructure:"dispatch"`
	Notifications NotificationConfig `mapstructure:"notifications"`
	Logging       LoggingConfig      `mapstructure:"logging"`
	Metrics       MetricsConfig      `mapstructure:"metrics"`
}

// --- Core App/Infrastructure Config ---
type AppConfig struct {
	Name        string `mapstructure:"name"`
	Version     string `mapstructure:"version"`
	Environment string `mapstructure:"environment"`
}

// TelegramConfig holds Bot API connection settings.
type TelegramConfig struct {
	Token          string  `mapstructure:"token"`
	BaseURL        string  `mapstructure:"base_url"`
	PollTimeout    int     `mapstructure:"poll_timeout"`    // seconds, long polling
	RequestTimeout int     `mapstructure:"request_timeout"` // milliseconds
	RatePerSecond  float64 `mapstructure:"rate_per_second"`
	Burst          int     `mapstructure:"burst"`
}

// ModerationConfig identifies the moderator and what approved applicants receive.
type ModerationConfig struct {
	AdminChatID int64  `mapstructure:"admin_chat_id"`
	GroupLink   string `mapstructure:"group_link"`
	ClaimTTL    int    `mapstructure:"claim_ttl"` // seconds
}

type AdminConfig struct {
	PageSize      int `mapstructure:"page_size"`
	StatsCacheTTL int `mapstructure:"stats_cache_ttl"` // seconds
}

type DatabaseConfig struct {
	Driver   string         `mapstructure:"driver"` // "postgres" or "memory"
	Postgres PostgresConfig `mapstructure:"postgres"`
	Redis    RedisConfig    `mapstructure:"redis"`
}

type PostgresConfig struct {
	Host           string `mapstructure:"host"`
	Port           int    `mapstructure:"port"`
	Database       string `mapstructure:"database"`
	User           string `mapstructure:"user"`
	Password       string `mapstructure:"password"`
	MaxConnections int    `mapstructure:"max_connections"`
	MaxIdle        int    `mapstructure:"max_idle"`
	SSLMode        string `mapstructure:"sslmode"`
	QueryTimeout   int    `mapstructure:"query_timeout"` // milliseconds
}

// GetDSN returns the PostgreSQL connection string
func (p PostgresConfig) GetDSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		p.Host, p.Port, p.User, p.Password, p.Database, p.SSLMode,
	)
}

type RedisConfig struct {
	Address  string `mapstructure:"address"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// DispatchConfig sizes the per-applicant event worker pool.
type DispatchConfig struct {
	Workers      int `mapstructure:"workers"`
	QueueSize    int `mapstructure:"queue_size"`
	EventTimeout int `mapstructure:"event_timeout"` // milliseconds
}

// NotificationConfig holds the optional AWS side channels.
type NotificationConfig struct {
	Email struct {
		Enabled   bool   `mapstructure:"enabled"`
		FromEmail string `mapstructure:"from_email"`
		ToEmail   string `mapstructure:"to_email"`
	} `mapstructure:"email"`
	Events struct {
		Enabled  bool   `mapstructure:"enabled"`
		TopicARN string `mapstructure:"topic_arn"`
	} `mapstructure:"events"`
	AWS struct {
		Region string `mapstructure:"region"`
	} `mapstructure:"aws"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
	Output string `mapstructure:"output"`
}

type MetricsConfig struct {
	Address string `mapstructure:"address"`
}
