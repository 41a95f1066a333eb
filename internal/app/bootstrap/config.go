// internal/app/bootstrap/config.go
package bootstrap

import (
	"fmt"
	"strings"
	"time"

	"github.com/dalemusser/waffle/config"
	wafflemongo "github.com/dalemusser/waffle/pantry/mongo"
	"go.uber.org/zap"
)

// EnvPrefix namespaces app environment variables: PHARMAUSAGE_MONGO_URI, etc.
const EnvPrefix = "PHARMAUSAGE"

// devSessionKey is the built-in key; it is rejected in prod.
const devSessionKey = "dev-only-change-me-please-0123456789ABCDEF"

// appConfigKeys defines the configuration keys for PharmaUsage.
// These are loaded via WAFFLE's config system with support for:
//   - Config files: mongo_uri, session_name, etc.
//   - Environment variables: PHARMAUSAGE_MONGO_URI, PHARMAUSAGE_SESSION_NAME, etc.
//   - Command-line flags: --mongo_uri, --session_name, etc.
var appConfigKeys = []config.AppKey{
	{Name: "mongo_uri", Default: "mongodb://localhost:27017", Desc: "MongoDB connection URI"},
	{Name: "mongo_database", Default: "pharmausage", Desc: "MongoDB database name"},
	{Name: "mongo_max_pool_size", Default: 100, Desc: "MongoDB max connection pool size (default: 100)"},

	{Name: "session_key", Default: devSessionKey, Desc: "Session signing key (must be strong in production)"},
	{Name: "session_name", Default: "pharmausage-session", Desc: "Session cookie name"},
	{Name: "session_domain", Default: "", Desc: "Session cookie domain (blank means current host)"},
	{Name: "session_max_age", Default: "720h", Desc: "Session cookie lifetime"},

	// Email/SMTP configuration
	{Name: "mail_smtp_host", Default: "", Desc: "SMTP server host (blank logs emails instead of sending)"},
	{Name: "mail_smtp_port", Default: 587, Desc: "SMTP server port"},
	{Name: "mail_smtp_user", Default: "", Desc: "SMTP username"},
	{Name: "mail_smtp_pass", Default: "", Desc: "SMTP password"},
	{Name: "mail_from", Default: "noreply@pharmausage.local", Desc: "From email address"},
	{Name: "mail_from_name", Default: "PharmaUsage", Desc: "From display name"},

	// Base URL for email links (password reset)
	{Name: "base_url", Default: "http://localhost:8080", Desc: "Base URL for email links"},
	{Name: "reset_expiry", Default: "1h", Desc: "Password reset link expiry (e.g., 30m, 1h)"},

	// Audit logging settings
	{Name: "audit_log_auth", Default: "all", Desc: "Auth event logging: 'all' (db+log), 'db', 'log', or 'off'"},
	{Name: "audit_log_admin", Default: "all", Desc: "Operator event logging: 'all' (db+log), 'db', 'log', or 'off'"},

	{Name: "cors_origins", Default: "", Desc: "Comma-separated CORS origins allowed for the dashboard client"},

	// Usage aggregation
	{Name: "usage_timezone", Default: "UTC", Desc: "IANA zone that defines 'today' for usage summaries"},
	{Name: "assembly_concurrency", Default: 8, Desc: "Max concurrent per-entity fetches per view"},

	// Timeouts
	{Name: "timeout_ping", Default: "2s", Desc: "Health-check ping timeout"},
	{Name: "timeout_short", Default: "5s", Desc: "Single-document operation timeout"},
	{Name: "timeout_medium", Default: "10s", Desc: "View assembly timeout"},
	{Name: "timeout_long", Default: "30s", Desc: "Batch operation timeout"},

	// MQTT usage publishing
	{Name: "mqtt_enabled", Default: false, Desc: "Publish pharmacy summaries to MQTT"},
	{Name: "mqtt_broker", Default: "", Desc: "MQTT broker (host:port or tcp:// URL)"},
	{Name: "mqtt_client_id", Default: "pharmausage", Desc: "MQTT client ID"},
	{Name: "mqtt_username", Default: "", Desc: "MQTT username"},
	{Name: "mqtt_password", Default: "", Desc: "MQTT password"},
	{Name: "mqtt_topic_prefix", Default: "pharmausage", Desc: "MQTT topic prefix"},
	{Name: "mqtt_publish_interval", Default: "5m", Desc: "Interval between MQTT publishes"},
	{Name: "mqtt_retries", Default: 3, Desc: "Retries for MQTT connect and each publish"},
}

// appValues adapts the values returned by config.LoadWithAppConfig so
// AppConfig can be built from any key/value source.
type appValues struct {
	String   func(key string) string
	Int      func(key string) int
	Bool     func(key string) bool
	Duration func(key string, def time.Duration) time.Duration
}

// LoadConfig loads WAFFLE core config and app-specific config.
//
// WAFFLE's config.LoadWithAppConfig handles .env files, config.yaml/json/toml
// files, environment variables (WAFFLE_* for core, PHARMAUSAGE_* for app) and
// command-line flags, merged with precedence flags > env > files > defaults.
func LoadConfig(logger *zap.Logger) (*config.CoreConfig, AppConfig, error) {
	coreCfg, values, err := config.LoadWithAppConfig(logger, EnvPrefix, appConfigKeys)
	if err != nil {
		return nil, AppConfig{}, err
	}

	appCfg := buildAppConfig(appValues{
		String:   values.String,
		Int:      values.Int,
		Bool:     values.Bool,
		Duration: values.Duration,
	})
	appCfg.Env = strings.ToLower(strings.TrimSpace(coreCfg.Env))

	logger.Debug("app configuration loaded",
		zap.String("env", appCfg.Env),
		zap.String("mongo_database", appCfg.MongoDatabase),
		zap.Bool("mqtt_enabled", appCfg.MQTTEnabled))

	return coreCfg, appCfg, nil
}

func buildAppConfig(v appValues) AppConfig {
	return AppConfig{
		MongoURI:         v.String("mongo_uri"),
		MongoDatabase:    v.String("mongo_database"),
		MongoMaxPoolSize: uint64(v.Int("mongo_max_pool_size")),

		SessionKey:    v.String("session_key"),
		SessionName:   v.String("session_name"),
		SessionDomain: v.String("session_domain"),
		SessionMaxAge: v.Duration("session_max_age", 720*time.Hour),

		// Email/SMTP
		MailSMTPHost: v.String("mail_smtp_host"),
		MailSMTPPort: v.Int("mail_smtp_port"),
		MailSMTPUser: v.String("mail_smtp_user"),
		MailSMTPPass: v.String("mail_smtp_pass"),
		MailFrom:     v.String("mail_from"),
		MailFromName: v.String("mail_from_name"),

		BaseURL:     v.String("base_url"),
		ResetExpiry: v.Duration("reset_expiry", time.Hour),

		// Audit logging
		AuditLogAuth:  v.String("audit_log_auth"),
		AuditLogAdmin: v.String("audit_log_admin"),

		CORSOrigins: splitList(v.String("cors_origins")),

		UsageTimezone:       v.String("usage_timezone"),
		AssemblyConcurrency: v.Int("assembly_concurrency"),

		TimeoutPing:   v.Duration("timeout_ping", 2*time.Second),
		TimeoutShort:  v.Duration("timeout_short", 5*time.Second),
		TimeoutMedium: v.Duration("timeout_medium", 10*time.Second),
		TimeoutLong:   v.Duration("timeout_long", 30*time.Second),

		MQTTEnabled:         v.Bool("mqtt_enabled"),
		MQTTBroker:          v.String("mqtt_broker"),
		MQTTClientID:        v.String("mqtt_client_id"),
		MQTTUsername:        v.String("mqtt_username"),
		MQTTPassword:        v.String("mqtt_password"),
		MQTTTopicPrefix:     v.String("mqtt_topic_prefix"),
		MQTTPublishInterval: v.Duration("mqtt_publish_interval", 5*time.Minute),
		MQTTRetries:         v.Int("mqtt_retries"),
	}
}

// splitList parses a comma-separated list, dropping blanks.
func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// ValidateConfig performs app-specific config validation.
//
// Return nil to accept the loaded config, or an error to abort startup.
// PharmaUsage validates the MongoDB URI format to catch configuration
// errors early, before attempting to connect.
func ValidateConfig(coreCfg *config.CoreConfig, appCfg AppConfig, logger *zap.Logger) error {
	if err := wafflemongo.ValidateURI(appCfg.MongoURI); err != nil {
		logger.Error("invalid MongoDB URI", zap.Error(err))
		return fmt.Errorf("invalid MongoDB URI: %w", err)
	}
	if strings.TrimSpace(appCfg.MongoDatabase) == "" {
		return fmt.Errorf("mongo_database is required")
	}

	if len(appCfg.SessionKey) < 32 {
		logger.Warn("session key is short; 32+ chars recommended", zap.Int("length", len(appCfg.SessionKey)))
	}
	if coreCfg != nil && coreCfg.Env == "prod" && (appCfg.SessionKey == "" || appCfg.SessionKey == devSessionKey) {
		return fmt.Errorf("session_key must be set to a strong secret in prod")
	}

	if _, err := appCfg.Location(); err != nil {
		return fmt.Errorf("invalid usage_timezone %q: %w", appCfg.UsageTimezone, err)
	}
	if appCfg.ResetExpiry <= 0 {
		return fmt.Errorf("reset_expiry must be positive")
	}

	if appCfg.MQTTEnabled {
		if appCfg.MQTTBroker == "" {
			return fmt.Errorf("mqtt_enabled requires mqtt_broker")
		}
		if appCfg.MQTTPublishInterval <= 0 {
			return fmt.Errorf("mqtt_publish_interval must be positive")
		}
	}
	if appCfg.MQTTRetries < 0 {
		return fmt.Errorf("mqtt_retries must be >= 0")
	}
	return nil
}
