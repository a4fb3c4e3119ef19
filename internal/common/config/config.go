// internal/common/config/config.go
package config

import "fmt"

// Config is the main application configuration struct.
type Config struct {
	App           AppConfig          `mapstructure:"app"`
	Server        ServerConfig       `mapstructure:"server"`
	Database      DatabaseConfig     `mapstructure:"database"`
	Search        SearchConfig       `mapstructure:"search"`
	Jobs          JobsConfig         `mapstructure:"jobs"`
	Cache         CacheConfig        `mapstructure:"cache"`
	Fipe          FipeConfig         `mapstructure:"fipe"`
	Links         LinksConfig        `mapstructure:"links"`
	Logging       LoggingConfig      `mapstructure:"logging"`
	Notifications NotificationConfig `mapstructure:"notifications"`
}

// --- Core App/Infrastructure Config ---
type AppConfig struct {
	Name        string `mapstructure:"name"`
	Version     string `mapstructure:"version"`
	Environment string `mapstructure:"environment"`
}

type ServerConfig struct {
	Address string `mapstructure:"address"`
}

type DatabaseConfig struct {
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
}

// GetDSN returns the PostgreSQL connection string
func (p PostgresConfig) GetDSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		p.Host, p.Port, p.User, p.Password, p.Database, p.SSLMode,
	)
}

// RedisConfig is optional. An empty address disables the job run lock.
type RedisConfig struct {
	Address  string `mapstructure:"address"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

func (r RedisConfig) Enabled() bool {
	return r.Address != ""
}

// SearchConfig holds the Elasticsearch audit index settings.
type SearchConfig struct {
	Elasticsearch ElasticsearchConfig `mapstructure:"elasticsearch"`
	AuditIndex    string              `mapstructure:"audit_index"`
}

type ElasticsearchConfig struct {
	Addresses []string `mapstructure:"addresses"`
	Username  string   `mapstructure:"username"`
	Password  string   `mapstructure:"password"`
	URL       string   `mapstructure:"url"` // Single URL for backwards compatibility
}

// GetURL returns the first address or the URL field
func (e ElasticsearchConfig) GetURL() string {
	if e.URL != "" {
		return e.URL
	}
	if len(e.Addresses) > 0 {
		return e.Addresses[0]
	}
	return ""
}

// Enabled reports whether an Elasticsearch cluster was configured.
func (e ElasticsearchConfig) Enabled() bool {
	return e.GetURL() != ""
}

// --- Job Configuration ---

type JobsConfig struct {
	ExpirationTriggers JobConfig `mapstructure:"expiration_triggers"`
}

// JobConfig holds the settings of one scheduled job.
type JobConfig struct {
	Enabled     bool   `mapstructure:"enabled"`
	Schedule    string `mapstructure:"schedule"`    // 5-field cron expression
	Timezone    string `mapstructure:"timezone"`    // IANA name; empty means server local time
	Timeout     int    `mapstructure:"timeout"`     // milliseconds
	Concurrency int    `mapstructure:"concurrency"` // parallel sends per run
	LockTTL     int    `mapstructure:"lock_ttl"`    // milliseconds
}

// --- Cache / FIPE ---

type CacheConfig struct {
	Directory string `mapstructure:"directory"`
}

type FipeConfig struct {
	BaseURL    string `mapstructure:"base_url"`
	Timeout    int    `mapstructure:"timeout"`     // milliseconds
	CatalogTTL int    `mapstructure:"catalog_ttl"` // hours
	PriceTTL   int    `mapstructure:"price_ttl"`   // hours
}

// LinksConfig holds the public URLs rendered into notification templates.
type LinksConfig struct {
	AppBaseURL string `mapstructure:"app_base_url"`
	PlansPath  string `mapstructure:"plans_path"`
}

// PlansURL returns the absolute link to the plans page.
func (l LinksConfig) PlansURL() string {
	return l.AppBaseURL + l.PlansPath
}

// --- Notification Channels ---

// NotificationConfig holds settings for the push and email channels.
type NotificationConfig struct {
	Push struct {
		Enabled bool `mapstructure:"enabled"`
	} `mapstructure:"push"`
	Email struct {
		Enabled   bool   `mapstructure:"enabled"`
		Provider  string `mapstructure:"provider"` // "ses" or "smtp"
		FromEmail string `mapstructure:"from_email"`
	} `mapstructure:"email"`
	AWS struct {
		Region string `mapstructure:"region"`
	} `mapstructure:"aws"`
	SMTP struct {
		Host     string `mapstructure:"host"`
		Port     int    `mapstructure:"port"`
		Username string `mapstructure:"username"`
		Password string `mapstructure:"password"`
		UseTLS   bool   `mapstructure:"use_tls"`
	} `mapstructure:"smtp"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
	Output string `mapstructure:"output"`
}
