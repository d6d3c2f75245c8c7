package config // package config loads application configuration from environment variables

import (
	"log"     // log is used to report configuration errors and halt execution
	"os"      // os provides access to environment variables
	"strconv" // strconv converts strings to other types
	"strings"
	"time"
)

// Store drivers accepted by STORE_DRIVER.
const (
	DriverSQLite = "sqlite"
	DriverMySQL  = "mysql"
	DriverFile   = "file"
)

// Config holds all runtime configuration values.  It is built once by Load
// at process start and passed by value to every component; nothing mutates
// it afterwards.
type Config struct {
	Env  string // application environment (e.g. "dev", "prod")
	Port string // HTTP port to listen on

	StoreDriver string // sqlite | mysql | file
	DBUser      string // mysql username
	DBPass      string // mysql password (optional)
	DBHost      string // mysql host address
	DBPort      string // mysql port number
	DBName      string // mysql database name
	SQLitePath  string // sqlite database file
	DataDir     string // directory of the JSON document store

	JWTSecret  string        // secret used to sign session tokens
	TokenTTL   time.Duration // validity window of issued tokens
	BcryptCost int           // bcrypt cost for password hashing

	LivenessWindow    time.Duration // a player is online while last_seen is within this window
	RefreshInterval   int           // seconds a device waits before polling content again
	DefaultContentURL string        // served to players without assigned content
	SweepSchedule     string        // cron spec of the liveness reconciliation job

	LogLevel string

	AMQPURL         string // empty disables domain events
	ConsumerEnabled bool   // run the event log consumer in-process
	EventsLogDir    string

	MQTTBroker      string // empty disables content push
	MQTTClientID    string
	MQTTTopicPrefix string
}

// DefaultContentURL is the placeholder page shown by players that have not
// been assigned any content yet.
const DefaultContentURL = "data:text/html,<html><body style='margin:0;background:linear-gradient(135deg,%23667eea,%23764ba2);display:flex;align-items:center;justify-content:center;height:100vh;color:white;font-family:sans-serif'><div style='text-align:center'><h1 style='font-size:4em'>SMP</h1><p style='font-size:2em'>Digital Signage</p></div></body></html>"

// Load reads configuration values from environment variables and returns a
// Config.  JWT_SECRET is required; a missing secret stops the process because
// a random per-process secret would silently invalidate every issued token on
// restart.  MySQL settings are only required when STORE_DRIVER=mysql.
func Load() Config {
	cfg := Config{
		Env:  envStr("APP_ENV", "dev"),
		Port: envStr("APP_PORT", envStr("PORT", "5000")),

		StoreDriver: strings.ToLower(envStr("STORE_DRIVER", DriverSQLite)),
		DBPass:      os.Getenv("DB_PASS"),
		SQLitePath:  envStr("SQLITE_PATH", "data/smp.db"),
		DataDir:     envStr("DATA_DIR", "data"),

		JWTSecret:  must("JWT_SECRET"),
		TokenTTL:   time.Duration(envInt("TOKEN_TTL_HOURS", 720)) * time.Hour,
		BcryptCost: envInt("BCRYPT_COST", 12),

		LivenessWindow:    envDur("LIVENESS_WINDOW", 10*time.Minute),
		RefreshInterval:   envInt("REFRESH_INTERVAL_SEC", 300),
		DefaultContentURL: envStr("DEFAULT_CONTENT_URL", DefaultContentURL),
		SweepSchedule:     envStr("SWEEP_SCHEDULE", "@every 1m"),

		LogLevel: envStr("LOG_LEVEL", "info"),

		AMQPURL:         envStr("RABBITMQ_URL", os.Getenv("AMQP_URL")),
		ConsumerEnabled: envBool("EVENTS_CONSUMER_ENABLED", false),
		EventsLogDir:    envStr("EVENTS_LOG_DIR", "logs"),

		MQTTBroker:      os.Getenv("MQTT_BROKER"),
		MQTTClientID:    envStr("MQTT_CLIENT_ID", "smp-backend"),
		MQTTTopicPrefix: envStr("MQTT_TOPIC_PREFIX", "smp/players"),
	}
	if cfg.StoreDriver == DriverMySQL {
		cfg.DBUser = must("DB_USER")
		cfg.DBHost = must("DB_HOST")
		cfg.DBPort = envStr("DB_PORT", "3306")
		cfg.DBName = must("DB_NAME")
	}
	return cfg
}

// must retrieves the value of a required environment variable.  If the
// variable is unset or empty, the application logs a fatal error and exits.
func must(key string) string {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		log.Fatalf("missing required env var: %s", key)
	}
	return v
}

func envStr(k, d string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return d
}

func envBool(k string, d bool) bool {
	v := os.Getenv(k)
	if v == "" {
		return d
	}
	switch v {
	case "1", "true", "TRUE", "True", "yes", "YES", "on", "ON":
		return true
	case "0", "false", "FALSE", "False", "no", "NO", "off", "OFF":
		return false
	}
	return d
}

func envInt(k string, d int) int {
	v := os.Getenv(k)
	if v == "" {
		return d
	}
	if n, err := strconv.Atoi(v); err == nil {
		return n
	}
	return d
}

func envDur(k string, d time.Duration) time.Duration {
	v := os.Getenv(k)
	if v == "" {
		return d
	}
	if dur, err := time.ParseDuration(v); err == nil {
		return dur
	}
	return d
}
