package config

import (
	"errors"
	"strings"
	"time"

	"github.com/goliatone/go-persistence-bun"
)

// BaseConfig holds all configuration for the review daemon
type BaseConfig struct {
	Server      ServerConfig      `json:"server"`
	Persistence PersistenceConfig `json:"persistence"`
	Engine      EngineConfig      `json:"engine"`
	Mail        MailConfig        `json:"mail"`
	Features    map[string]bool   `json:"features"`
	Reviewers   []ReviewerConfig  `json:"reviewers"`
}

// ServerConfig holds HTTP server settings
type ServerConfig struct {
	Port string `json:"port" env:"SERVER_PORT" default:"8979"`
	Host string `json:"host" env:"SERVER_HOST" default:"localhost"`
}

// PersistenceConfig implements persistence.Config interface
type PersistenceConfig struct {
	Debug          bool          `json:"debug" default:"false"`
	Driver         string        `json:"driver" default:"sqlite"`
	Server         string        `json:"server" env:"DB_SERVER" default:"file:reviews.db?_journal_mode=WAL&cache=shared&_fk=1"`
	PingTimeout    time.Duration `json:"ping_timeout" default:"5s"`
	OtelIdentifier string        `json:"otel_identifier" default:"go-reviewers"`
}

func (c PersistenceConfig) GetDebug() bool                { return c.Debug }
func (c PersistenceConfig) GetDriver() string             { return c.Driver }
func (c PersistenceConfig) GetServer() string             { return c.Server }
func (c PersistenceConfig) GetPingTimeout() time.Duration { return c.PingTimeout }
func (c PersistenceConfig) GetOtelIdentifier() string     { return c.OtelIdentifier }

// EngineConfig tunes assignment behaviour
type EngineConfig struct {
	Strategy        string        `json:"strategy" env:"REVIEWS_STRATEGY" default:"weighted"`
	UpcomingWindow  time.Duration `json:"upcoming_window" default:"2h"`
	CacheProfiles   bool          `json:"cache_profiles" default:"true"`
	SweepSchedule   string        `json:"sweep_schedule" env:"REVIEWS_SWEEP_SCHEDULE" default:"@every 5m"`
	SweepBatchSize  int           `json:"sweep_batch_size" default:"100"`
	ReassignOverdue bool          `json:"reassign_overdue" env:"REVIEWS_REASSIGN_OVERDUE" default:"false"`
	RetryAttempts   uint          `json:"retry_attempts" default:"3"`
	RetryDelay      time.Duration `json:"retry_delay" default:"200ms"`
}

// MailConfig configures assignment notifications. An empty host disables them.
type MailConfig struct {
	Host          string `json:"host" env:"SMTP_HOST"`
	Port          int    `json:"port" env:"SMTP_PORT" default:"587"`
	Username      string `json:"username" env:"SMTP_USERNAME"`
	Password      string `json:"password" env:"SMTP_PASSWORD"`
	From          string `json:"from" env:"SMTP_FROM"`
	SkipTLSVerify bool   `json:"skip_tls_verify" env:"SMTP_SKIP_TLS_VERIFY"`
	BaseURL       string `json:"base_url" env:"REVIEWS_BASE_URL"`
}

// Enabled reports whether enough settings are present to send mail.
func (c MailConfig) Enabled() bool {
	return strings.TrimSpace(c.Host) != "" && strings.TrimSpace(c.From) != ""
}

// ReviewerConfig seeds the reviewer directory.
type ReviewerConfig struct {
	ID    string `json:"id"`
	Role  string `json:"role"`
	Email string `json:"email"`
}

// GetPersistence returns persistence config
func (c *BaseConfig) GetPersistence() persistence.Config {
	return c.Persistence
}

// GetServer returns server config
func (c *BaseConfig) GetServer() ServerConfig {
	return c.Server
}

// Validate implements config.Validable interface
func (c *BaseConfig) Validate() error {
	for _, reviewer := range c.Reviewers {
		if strings.TrimSpace(reviewer.ID) == "" || strings.TrimSpace(reviewer.Role) == "" {
			return errors.New("reviewers require id and role")
		}
	}
	return nil
}
