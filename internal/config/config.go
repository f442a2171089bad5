package config

import (
	"os"
	"time"
)

// Daraja holds the gateway credentials. When ConsumerKey or ConsumerSecret is
// empty the backend runs in simulation mode: no live STK push is sent and a
// synthetic callback settles each payment after SimulatedDelay.
type Daraja struct {
	BaseURL        string
	ConsumerKey    string
	ConsumerSecret string
	ShortCode      string
	PassKey        string
	CallbackURL    string
}

type SMTP struct {
	Host     string
	Port     string
	Username string
	Password string
	From     string
}

type Config struct {
	Port          string
	MongoURI      string
	MongoDatabase string

	Daraja Daraja
	SMTP   SMTP

	// PendingTTL bounds how long a transaction may stay PENDING before the
	// watchdog marks it EXPIRED.
	PendingTTL time.Duration
	// PollInterval and PollMaxWait pace the status poller.
	PollInterval time.Duration
	PollMaxWait  time.Duration
	// SimulatedDelay is how long the simulated gateway waits before settling.
	SimulatedDelay time.Duration
}

func Load() Config {
	return Config{
		Port:          envOr("PORT", "8080"),
		MongoURI:      os.Getenv("MONGOURI"),
		MongoDatabase: envOr("MONGO_DATABASE", "aedispay"),
		Daraja: Daraja{
			BaseURL:        envOr("DARAJA_BASE_URL", "https://sandbox.safaricom.co.ke"),
			ConsumerKey:    os.Getenv("DARAJA_CONSUMER_KEY"),
			ConsumerSecret: os.Getenv("DARAJA_CONSUMER_SECRET"),
			ShortCode:      envOr("DARAJA_SHORTCODE", "174379"),
			PassKey:        os.Getenv("DARAJA_PASSKEY"),
			CallbackURL:    os.Getenv("DARAJA_CALLBACK_URL"),
		},
		SMTP: SMTP{
			Host:     os.Getenv("SMTP_HOST"),
			Port:     envOr("SMTP_PORT", "587"),
			Username: os.Getenv("SMTP_USERNAME"),
			Password: os.Getenv("SMTP_PASSWORD"),
			From:     os.Getenv("SMTP_FROM"),
		},
		PendingTTL:     durationOr("PAYMENT_PENDING_TTL", 120*time.Second),
		PollInterval:   durationOr("PAYMENT_POLL_INTERVAL", 2*time.Second),
		PollMaxWait:    durationOr("PAYMENT_POLL_MAX_WAIT", 90*time.Second),
		SimulatedDelay: durationOr("PAYMENT_SIMULATED_DELAY", 10*time.Second),
	}
}

// SimulationMode reports whether the backend should settle payments locally
// instead of calling the live gateway.
func (c Config) SimulationMode() bool {
	return c.Daraja.ConsumerKey == "" || c.Daraja.ConsumerSecret == ""
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func durationOr(key string, fallback time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return fallback
	}
	return d
}
