// internal/app/bootstrap/appconfig.go
package bootstrap

import "time"

// AppConfig holds service-specific configuration for this WAFFLE app.
//
// These values come from PHARMAUSAGE_* environment variables, config files,
// or command-line flags (loaded in LoadConfig). Framework settings such as
// the HTTP port, TLS and log level live in WAFFLE's CoreConfig.
type AppConfig struct {
	Env string // copied from CoreConfig.Env: "dev" or "prod"

	// MongoDB connection configuration
	MongoURI         string
	MongoDatabase    string
	MongoMaxPoolSize uint64

	// Session management configuration
	SessionKey    string        // Secret key for signing session cookies (must be strong in production)
	SessionName   string        // Cookie name for sessions (default: pharmausage-session)
	SessionDomain string        // Cookie domain (blank means current host)
	SessionMaxAge time.Duration // Cookie lifetime

	// Email/SMTP configuration
	MailSMTPHost string // SMTP server host; blank logs emails instead of sending
	MailSMTPPort int
	MailSMTPUser string
	MailSMTPPass string
	MailFrom     string
	MailFromName string

	// Base URL for email links (password reset)
	BaseURL string

	ResetExpiry time.Duration

	// Audit logging: "all" (db+log), "db", "log", or "off"
	AuditLogAuth  string
	AuditLogAdmin string

	CORSOrigins []string

	// Usage aggregation
	UsageTimezone       string
	AssemblyConcurrency int

	// Timeouts
	TimeoutPing   time.Duration
	TimeoutShort  time.Duration
	TimeoutMedium time.Duration
	TimeoutLong   time.Duration

	// MQTT usage publishing
	MQTTEnabled         bool
	MQTTBroker          string
	MQTTClientID        string
	MQTTUsername        string
	MQTTPassword        string
	MQTTTopicPrefix     string
	MQTTPublishInterval time.Duration
	MQTTRetries         int
}

// Location resolves UsageTimezone. Empty means UTC.
func (c AppConfig) Location() (*time.Location, error) {
	if c.UsageTimezone == "" {
		return time.UTC, nil
	}
	return time.LoadLocation(c.UsageTimezone)
}
