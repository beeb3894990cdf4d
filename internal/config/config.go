package config

import (
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Storage type constants
const (
	StorageTypeMemory   = "memory"
	StorageTypePostgres = "postgres"
)

// Config holds all settings read from the environment
type Config struct {
	Port        int
	StorageType string
	Database    DatabaseConfig

	// SessionSecret signs session tokens
	SessionSecret string

	Notifications NotificationsConfig

	// Location is the zone game dates and times are interpreted in
	Location *time.Location

	GeocoderURL string

	// OAuth providers, nil when not configured
	Google   *OAuthProvider
	Facebook *OAuthProvider

	// Captcha is nil when not configured
	Captcha *CaptchaConfig
}

// DatabaseConfig holds relational store connection settings
type DatabaseConfig struct {
	Host     string
	Port     int
	Name     string
	User     string
	Password string
	SSLMode  string
}

// DSN returns a libpq style connection string
func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf("host=%s port=%d dbname=%s user=%s password=%s sslmode=%s",
		d.Host, d.Port, d.Name, d.User, d.Password, d.SSLMode)
}

// NotificationsConfig holds messaging provider settings
type NotificationsConfig struct {
	Enabled           bool
	BaseURL           string
	APIKey            string
	ChatID            string
	Session           string
	MessagesPerMinute int
	// RedisURL enables pacing shared across instances when set
	RedisURL string
}

// OAuthProvider holds one provider's client credentials
type OAuthProvider struct {
	ClientID     string
	ClientSecret string
	RedirectURI  string
}

// CaptchaConfig holds CAPTCHA keys
type CaptchaConfig struct {
	SiteKey   string
	SecretKey string
}

// Defaults
const (
	DefaultPort              = 8080
	DefaultDatabasePort      = 5432
	DefaultSSLMode           = "disable"
	DefaultWahaSession       = "default"
	DefaultMessagesPerMinute = 15
	DefaultTimezone          = "Europe/Lisbon"
	DefaultGeocoderURL       = "https://nominatim.openstreetmap.org"
)

// LookupFunc reads one variable, like os.LookupEnv
type LookupFunc func(key string) (string, bool)

// Load reads an optional .env file and then the process environment.
// Variables already set in the environment take precedence over the file.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("loading .env: %w", err)
	}
	return FromLookup(os.LookupEnv)
}

// FromLookup builds and validates a Config. Every problem is reported in a single error.
func FromLookup(lookup LookupFunc) (*Config, error) {
	r := &reader{lookup: lookup}

	cfg := &Config{
		Port:          r.int("PORT", DefaultPort),
		StorageType:   r.string("STORAGE_TYPE", StorageTypePostgres),
		SessionSecret: r.required("SESSION_SECRET"),
		GeocoderURL:   r.url("GEOCODER_URL", DefaultGeocoderURL),
	}

	switch cfg.StorageType {
	case StorageTypePostgres:
		cfg.Database = DatabaseConfig{
			Host:     r.required("DB_HOST"),
			Port:     r.int("DB_PORT", DefaultDatabasePort),
			Name:     r.required("DB_NAME"),
			User:     r.required("DB_USER"),
			Password: r.required("DB_PASSWORD"),
			SSLMode:  r.string("DB_SSLMODE", DefaultSSLMode),
		}
	case StorageTypeMemory:
	default:
		r.invalid("STORAGE_TYPE", "must be 'memory' or 'postgres'")
	}

	n := NotificationsConfig{
		Enabled:           r.bool("NOTIFICATIONS_ENABLED", true),
		Session:           r.string("WAHA_SESSION", DefaultWahaSession),
		MessagesPerMinute: r.int("NOTIFY_MESSAGES_PER_MINUTE", DefaultMessagesPerMinute),
		RedisURL:          r.string("NOTIFY_REDIS_URL", ""),
	}
	if n.Enabled {
		n.BaseURL = r.required("WAHA_BASE_URL")
		n.APIKey = r.required("WAHA_API_KEY")
		n.ChatID = r.required("WAHA_CHAT_ID")
	}
	if n.MessagesPerMinute <= 0 {
		r.invalid("NOTIFY_MESSAGES_PER_MINUTE", "must be positive")
	}
	cfg.Notifications = n

	tz := r.string("TIMEZONE", DefaultTimezone)
	loc, err := time.LoadLocation(tz)
	if err != nil {
		r.invalid("TIMEZONE", err.Error())
	}
	cfg.Location = loc

	cfg.Google = r.oauth("GOOGLE")
	cfg.Facebook = r.oauth("FACEBOOK")

	site, secret := r.string("CAPTCHA_SITE_KEY", ""), r.string("CAPTCHA_SECRET_KEY", "")
	switch {
	case site != "" && secret != "":
		cfg.Captcha = &CaptchaConfig{SiteKey: site, SecretKey: secret}
	case site != "" || secret != "":
		r.invalid("CAPTCHA_SITE_KEY/CAPTCHA_SECRET_KEY", "both keys must be set together")
	}

	if err := r.err(); err != nil {
		return nil, err
	}
	return cfg, nil
}

type reader struct {
	lookup   LookupFunc
	missing  []string
	problems []string
}

func (r *reader) get(key string) (string, bool) {
	v, ok := r.lookup(key)
	v = strings.TrimSpace(v)
	return v, ok && v != ""
}

func (r *reader) string(key, def string) string {
	if v, ok := r.get(key); ok {
		return v
	}
	return def
}

func (r *reader) required(key string) string {
	v, ok := r.get(key)
	if !ok {
		r.missing = append(r.missing, key)
	}
	return v
}

func (r *reader) int(key string, def int) int {
	v, ok := r.get(key)
	if !ok {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		r.invalid(key, "must be an integer")
		return def
	}
	return n
}

func (r *reader) bool(key string, def bool) bool {
	v, ok := r.get(key)
	if !ok {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		r.invalid(key, "must be a boolean")
		return def
	}
	return b
}

func (r *reader) url(key, def string) string {
	v := r.string(key, def)
	u, err := url.Parse(v)
	if err != nil || u.Scheme == "" || u.Host == "" {
		r.invalid(key, "must be an absolute URL")
	}
	return strings.TrimRight(v, "/")
}

func (r *reader) oauth(prefix string) *OAuthProvider {
	p := OAuthProvider{
		ClientID:     r.string(prefix+"_CLIENT_ID", ""),
		ClientSecret: r.string(prefix+"_CLIENT_SECRET", ""),
		RedirectURI:  r.string(prefix+"_REDIRECT_URI", ""),
	}
	set := 0
	for _, v := range []string{p.ClientID, p.ClientSecret, p.RedirectURI} {
		if v != "" {
			set++
		}
	}
	switch set {
	case 0:
		return nil
	case 3:
		return &p
	default:
		r.invalid(prefix+"_CLIENT_ID/_CLIENT_SECRET/_REDIRECT_URI", "all three must be set together")
		return nil
	}
}

func (r *reader) invalid(key, reason string) {
	r.problems = append(r.problems, key+": "+reason)
}

func (r *reader) err() error {
	var msgs []string
	if len(r.missing) > 0 {
		msgs = append(msgs, "missing required configuration: "+strings.Join(r.missing, ", "))
	}
	if len(r.problems) > 0 {
		msgs = append(msgs, "invalid configuration: "+strings.Join(r.problems, "; "))
	}
	if len(msgs) == 0 {
		return nil
	}
	return errors.New(strings.Join(msgs, "; "))
}
