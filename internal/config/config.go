package config

import (
	"log"
	"net"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

type Store struct {
	Driver string
	Path   string
}

type Postgres struct {
	Host     string
	Port     string
	DB       string
	User     string
	Password string
	SSLMode  string
}

type Backend struct {
	URL            string
	RequestTimeout time.Duration
	ProbeInterval  time.Duration
}

type Sync struct {
	Interval        time.Duration
	OrderMaxRetries int
	TaskMaxAttempts int
}

type Retention struct {
	Window        time.Duration
	PruneInterval time.Duration
}

type Kafka struct {
	Brokers            []string
	EventsTopic        string
	ConfirmationsTopic string
	Group              string
	Workers            int
}

// Enabled reports whether the Kafka sink and confirmation feed should run.
func (k Kafka) Enabled() bool { return len(k.Brokers) > 0 }

type Breaker struct {
	Threshold   uint32
	OpenTimeout time.Duration
	MaxHalfOpen uint32
}

type Retry struct {
	Attempts     int
	Base         time.Duration
	Max          time.Duration
	JitterFactor float64
}

type Config struct {
	HTTPAddr string
	CacheCap int
	LogLevel string

	Store     Store
	Pg        Postgres
	Backend   Backend
	Sync      Sync
	Retention Retention
	Kafka     Kafka
	Breaker   Breaker
	Retry     Retry
}

// Load keeps the original API and fatals on error for simplicity in main().
func Load() Config {
	cfg, err := load()
	if err != nil {
		log.Fatalf("config load error: %v", err)
	}
	return cfg
}

// LoadE is Load without the fatal, for callers that report errors themselves.
func LoadE() (Config, error) {
	return load()
}

func load() (Config, error) {
	_ = godotenv.Load("env/.env")

	cfg := Config{
		HTTPAddr: envDefault("HTTP_ADDR", "127.0.0.1:8081"),
		CacheCap: envInt("CACHE_CAP", 256),
		LogLevel: envDefault("LOG_LEVEL", "info"),

		Store: Store{
			Driver: strings.ToLower(envDefault("STORE_DRIVER", DriverSQLite)),
			Path:   envDefault("STORE_PATH", "data/money-order-offline.db"),
		},

		Pg: Postgres{
			Host:     strings.TrimSpace(os.Getenv("PG_HOST")),
			Port:     strings.TrimSpace(envDefault("PG_PORT", "5432")),
			DB:       strings.TrimSpace(os.Getenv("PG_DB")),
			User:     strings.TrimSpace(os.Getenv("PG_USER")),
			Password: strings.TrimSpace(os.Getenv("PG_PASSWORD")),
			SSLMode:  strings.TrimSpace(envDefault("PG_SSLMODE", "disable")),
		},

		Backend: Backend{
			URL:            strings.TrimRight(strings.TrimSpace(os.Getenv("BACKEND_URL")), "/"),
			RequestTimeout: envDurationMS("REQUEST_TIMEOUT", 15*time.Second),
			ProbeInterval:  envDurationMS("PROBE_INTERVAL", 10*time.Second),
		},

		Sync: Sync{
			Interval:        envDurationMS("SYNC_INTERVAL", 30*time.Second),
			OrderMaxRetries: envInt("ORDER_MAX_RETRIES", 3),
			TaskMaxAttempts: envInt("TASK_MAX_ATTEMPTS", 3),
		},

		Retention: Retention{
			Window:        time.Duration(envInt("RETENTION_DAYS", 30)) * 24 * time.Hour,
			PruneInterval: envDurationMS("PRUNE_INTERVAL", 6*time.Hour),
		},

		Kafka: Kafka{
			Brokers:            splitCSV(strings.TrimSpace(os.Getenv("KAFKA_BROKERS"))),
			EventsTopic:        envDefault("KAFKA_EVENTS_TOPIC", "money-order-events"),
			ConfirmationsTopic: envDefault("KAFKA_CONFIRMATIONS_TOPIC", "money-order-confirmations"),
			Group:              envDefault("KAFKA_GROUP", "money-order-sync"),
			Workers:            envInt("KAFKA_WORKERS", 4),
		},

		Breaker: Breaker{
			Threshold:   envUint32("BREAKER_THRESHOLD", 5),
			OpenTimeout: envDurationMS("BREAKER_OPENTIMEOUT", 10*time.Second),
			MaxHalfOpen: envUint32("BREAKER_MAXHALFOPEN", 1),
		},

		Retry: Retry{
			Attempts:     envInt("RETRY_ATTEMPTS", 3),
			Base:         envDurationMS("RETRY_BASE", 200*time.Millisecond),
			Max:          envDurationMS("RETRY_MAX", 2*time.Second),
			JitterFactor: envFloat64("RETRY_JITTERFACTOR", 0.3),
		},
	}

	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	cfg.normalize()
	return cfg, nil
}

func (c Config) validate() error {
	var missing []string
	req := map[string]string{
		"BACKEND_URL": c.Backend.URL,
	}
	switch c.Store.Driver {
	case DriverSQLite:
		req["STORE_PATH"] = c.Store.Path
	case DriverPostgres:
		req["PG_HOST"] = c.Pg.Host
		req["PG_DB"] = c.Pg.DB
		req["PG_USER"] = c.Pg.User
		req["PG_PASSWORD"] = c.Pg.Password
	default:
		return &invalidEnvError{Key: "STORE_DRIVER", Value: c.Store.Driver}
	}
	for k, v := range req {
		if strings.TrimSpace(v) == "" {
			missing = append(missing, k)
		}
	}
	if len(missing) > 0 {
		return &missingEnvError{Keys: missing}
	}
	if _, err := url.ParseRequestURI(c.Backend.URL); err != nil {
		return &invalidEnvError{Key: "BACKEND_URL", Value: c.Backend.URL}
	}
	return nil
}

// normalize clamps values that would make the engine misbehave.
func (c *Config) normalize() {
	if c.CacheCap <= 0 {
		log.Printf("CACHE_CAP is %d, adjusting to 1", c.CacheCap)
		c.CacheCap = 1
	}
	if c.Sync.Interval <= 0 {
		log.Printf("SYNC_INTERVAL is %v, adjusting to 30s", c.Sync.Interval)
		c.Sync.Interval = 30 * time.Second
	}
	if c.Sync.OrderMaxRetries < 1 {
		log.Printf("ORDER_MAX_RETRIES is %d, adjusting to 1", c.Sync.OrderMaxRetries)
		c.Sync.OrderMaxRetries = 1
	}
	if c.Sync.TaskMaxAttempts < 1 {
		log.Printf("TASK_MAX_ATTEMPTS is %d, adjusting to 1", c.Sync.TaskMaxAttempts)
		c.Sync.TaskMaxAttempts = 1
	}
	if c.Retry.Attempts < 1 {
		log.Printf("RETRY_ATTEMPTS is %d, adjusting to 1", c.Retry.Attempts)
		c.Retry.Attempts = 1
	}
	if c.Retry.Base <= 0 {
		log.Printf("RETRY_BASE is %v, adjusting to 100ms", c.Retry.Base)
		c.Retry.Base = 100 * time.Millisecond
	}
	if c.Retry.Max < c.Retry.Base {
		log.Printf("RETRY_MAX (%v) < RETRY_BASE (%v), adjusting max to base", c.Retry.Max, c.Retry.Base)
		c.Retry.Max = c.Retry.Base
	}
	if c.Breaker.Threshold == 0 {
		c.Breaker.Threshold = 1
	}
	if c.Breaker.MaxHalfOpen == 0 {
		c.Breaker.MaxHalfOpen = 1
	}
}

type missingEnvError struct{ Keys []string }

func (e *missingEnvError) Error() string {
	return "missing required envs: " + strings.Join(e.Keys, ", ")
}

type invalidEnvError struct{ Key, Value string }

func (e *invalidEnvError) Error() string {
	return "invalid value for " + e.Key + ": " + strconv.Quote(e.Value)
}

// DSN builds a proper Postgres URL, safely escaping user/pass and query.
func (c Config) DSN() string {
	u := &url.URL{
		Scheme: "postgres",
		User:   url.UserPassword(c.Pg.User, c.Pg.Password),
		Host:   net.JoinHostPort(c.Pg.Host, c.Pg.Port),
		Path:   "/" + c.Pg.DB,
	}
	q := url.Values{}
	if c.Pg.SSLMode != "" {
		q.Set("sslmode", c.Pg.SSLMode)
	}
	u.RawQuery = q.Encode()
	return u.String()
}

func envDefault(k, def string) string {
	if v := strings.TrimSpace(os.Getenv(k)); v != "" {
		return v
	}
	return def
}

func envInt(k string, def int) int {
	v := strings.TrimSpace(os.Getenv(k))
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		log.Printf("invalid %s=%q, using default %d: %v", k, v, def, err)
		return def
	}
	return n
}

func envUint32(k string, def uint32) uint32 {
	v := strings.TrimSpace(os.Getenv(k))
	if v == "" {
		return def
	}
	u, err := strconv.ParseUint(v, 10, 32)
	if err != nil {
		log.Printf("invalid %s=%q, using default %d: %v", k, v, def, err)
		return def
	}
	return uint32(u)
}

func envFloat64(k string, def float64) float64 {
	v := strings.TrimSpace(os.Getenv(k))
	if v == "" {
		return def
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		log.Printf("invalid %s=%q, using default %.3f: %v", k, v, def, err)
		return def
	}
	return f
}

// envDurationMS supports either plain integer milliseconds ("1500") or
// Go duration strings ("1.5s", "250ms", "2m").
func envDurationMS(k string, def time.Duration) time.Duration {
	v := strings.TrimSpace(os.Getenv(k))
	if v == "" {
		return def
	}
	if strings.IndexFunc(v, func(r rune) bool { return r < '0' || r > '9' }) != -1 {
		d, err := time.ParseDuration(v)
		if err != nil {
			log.Printf("invalid %s=%q, using default %v: %v", k, v, def, err)
			return def
		}
		return d
	}
	ms, err := strconv.Atoi(v)
	if err != nil {
		log.Printf("invalid %s=%q, using default %v: %v", k, v, def, err)
		return def
	}
	return time.Duration(ms) * time.Millisecond
}

func splitCSV(s string) []string {
	if s == "" {
		return nil
	}
	raw := strings.Split(s, ",")
	out := make([]string, 0, len(raw))
	for _, p := range raw {
		t := strings.TrimSpace(p)
		if t != "" {
			out = append(out, t)
		}
	}
	return out
}
