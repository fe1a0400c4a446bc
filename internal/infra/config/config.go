package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"venuecal/internal/domain/availability"
)

const (
	StoreMemory   = "memory"
	StoreMongo    = "mongo"
	StorePostgres = "postgres"
	StoreSQLite   = "sqlite"

	IdempotencyRedis = "redis"
)

// Config aggregates application configuration values loaded from environment variables
// and an optional venue profile file.
type Config struct {
	Env      string
	HTTPAddr string

	StoreDriver  string
	StoreTimeout time.Duration
	MongoURI     string
	MongoDB      string
	PostgresDSN  string
	SQLitePath   string

	IdempotencyBackend string
	IdempotencyTTL     time.Duration
	RedisAddr          string
	RedisPassword      string
	RedisDB            int

	KafkaBrokers       []string
	KafkaTopicPrefix   string
	EventsTopic        string
	ConsumerGroup      string
	OutboxPollInterval time.Duration
	RetryBackoff       []time.Duration

	ReadOnly          bool
	RateLimitPerSec   float64
	RateLimitBurst    int
	CacheTTL          time.Duration
	ReconcileInterval time.Duration
	ReconcileDays     int

	Venue Venue
}

// Venue is the profile of the single venue this instance schedules.
type Venue struct {
	Name          string         `yaml:"name"`
	Timezone      string         `yaml:"timezone"`
	Hours         OperatingHours `yaml:"operating_hours"`
	BusyThreshold float64        `yaml:"busy_threshold"`
}

type OperatingHours struct {
	Opens  string `yaml:"opens"`
	Closes string `yaml:"closes"`
}

type profileFile struct {
	Venue Venue `yaml:"venue"`
}

// Load parses configuration from the current environment. When VENUE_CONFIG names a
// YAML file its venue section is read first and environment values override it.
func Load() (Config, error) {
	cfg := Config{
		Env:                strings.ToLower(getEnv("APP_ENV", "dev")),
		HTTPAddr:           getEnv("HTTP_ADDR", ":8080"),
		StoreDriver:        strings.ToLower(getEnv("STORE_DRIVER", StoreMemory)),
		MongoURI:           os.Getenv("MONGO_URI"),
		MongoDB:            getEnv("MONGO_DB", "venuecal"),
		PostgresDSN:        os.Getenv("POSTGRES_DSN"),
		SQLitePath:         getEnv("SQLITE_PATH", "venuecal.db"),
		IdempotencyBackend: strings.ToLower(getEnv("IDEMP_BACKEND", "")),
		RedisAddr:          getEnv("REDIS_ADDR", "localhost:6379"),
		RedisPassword:      os.Getenv("REDIS_PASSWORD"),
		KafkaTopicPrefix:   getEnv("KAFKA_TOPIC_PREFIX", ""),
		EventsTopic:        getEnv("EVENTS_TOPIC", "venue.events"),
		ConsumerGroup:      getEnv("KAFKA_CONSUMER_GROUP", "venuecal"),
		Venue: Venue{
			Name:          "venue",
			Timezone:      "UTC",
			Hours:         OperatingHours{Opens: "09:00", Closes: "23:00"},
			BusyThreshold: 1,
		},
	}

	if path := os.Getenv("VENUE_CONFIG"); path != "" {
		venue, err := loadVenue(path, cfg.Venue)
		if err != nil {
			return Config{}, err
		}
		cfg.Venue = venue
	}
	cfg.Venue.Name = getEnv("VENUE_NAME", cfg.Venue.Name)
	cfg.Venue.Timezone = getEnv("VENUE_TIMEZONE", cfg.Venue.Timezone)
	cfg.Venue.Hours.Opens = getEnv("VENUE_OPENS", cfg.Venue.Hours.Opens)
	cfg.Venue.Hours.Closes = getEnv("VENUE_CLOSES", cfg.Venue.Hours.Closes)
	threshold, err := parseFloatEnv("BUSY_THRESHOLD", cfg.Venue.BusyThreshold)
	if err != nil {
		return Config{}, err
	}
	cfg.Venue.BusyThreshold = threshold

	brokers := getEnv("KAFKA_BROKERS", "")
	if brokers != "" {
		for _, b := range strings.Split(brokers, ",") {
			if b = strings.TrimSpace(b); b != "" {
				cfg.KafkaBrokers = append(cfg.KafkaBrokers, b)
			}
		}
	}

	if cfg.StoreTimeout, err = parseDurationEnv("STORE_TIMEOUT", 5*time.Second); err != nil {
		return Config{}, err
	}
	if cfg.IdempotencyTTL, err = parseDurationEnv("IDEMP_TTL", 168*time.Hour); err != nil {
		return Config{}, err
	}
	if cfg.OutboxPollInterval, err = parseDurationEnv("OUTBOX_POLL_INTERVAL", 500*time.Millisecond); err != nil {
		return Config{}, err
	}
	if cfg.CacheTTL, err = parseDurationEnv("CACHE_TTL", 30*time.Second); err != nil {
		return Config{}, err
	}
	if cfg.ReconcileInterval, err = parseDurationEnv("RECONCILE_INTERVAL", 0); err != nil {
		return Config{}, err
	}
	if cfg.ReconcileDays, err = parseIntEnv("RECONCILE_DAYS", 30); err != nil {
		return Config{}, err
	}
	if cfg.RedisDB, err = parseIntEnv("REDIS_DB", 0); err != nil {
		return Config{}, err
	}
	if cfg.RateLimitPerSec, err = parseFloatEnv("RATE_LIMIT_PER_SEC", 10); err != nil {
		return Config{}, err
	}
	if cfg.RateLimitBurst, err = parseIntEnv("RATE_LIMIT_BURST", 20); err != nil {
		return Config{}, err
	}
	if cfg.ReadOnly, err = parseBoolEnv("READ_ONLY", false); err != nil {
		return Config{}, err
	}

	retryStr := getEnv("RETRY_BACKOFF", "1s,5s,30s")
	for _, raw := range strings.Split(retryStr, ",") {
		val := strings.TrimSpace(raw)
		if val == "" {
			continue
		}
		d, err := time.ParseDuration(val)
		if err != nil {
			return Config{}, fmt.Errorf("invalid RETRY_BACKOFF component %q: %w", raw, err)
		}
		cfg.RetryBackoff = append(cfg.RetryBackoff, d)
	}

	if cfg.IdempotencyBackend == "" {
		cfg.IdempotencyBackend = StoreMemory
		if cfg.StoreDriver == StoreMongo {
			cfg.IdempotencyBackend = StoreMongo
		}
	}
	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) validate() error {
	switch c.StoreDriver {
	case StoreMemory, StoreSQLite:
	case StoreMongo:
		if c.MongoURI == "" {
			return errors.New("MONGO_URI is required for STORE_DRIVER=mongo")
		}
	case StorePostgres:
		if c.PostgresDSN == "" {
			return errors.New("POSTGRES_DSN is required for STORE_DRIVER=postgres")
		}
	default:
		return fmt.Errorf("unknown STORE_DRIVER %q", c.StoreDriver)
	}
	switch c.IdempotencyBackend {
	case StoreMemory, IdempotencyRedis:
	case StoreMongo:
		if c.MongoURI == "" {
			return errors.New("MONGO_URI is required for IDEMP_BACKEND=mongo")
		}
	default:
		return fmt.Errorf("unknown IDEMP_BACKEND %q", c.IdempotencyBackend)
	}
	if _, err := c.OperatingHours(); err != nil {
		return fmt.Errorf("invalid operating hours %s-%s: %w", c.Venue.Hours.Opens, c.Venue.Hours.Closes, err)
	}
	if c.Venue.BusyThreshold < 0 || c.Venue.BusyThreshold > 1 {
		return fmt.Errorf("BUSY_THRESHOLD must be within (0,1], got %v", c.Venue.BusyThreshold)
	}
	if _, err := c.Location(); err != nil {
		return fmt.Errorf("invalid VENUE_TIMEZONE %q: %w", c.Venue.Timezone, err)
	}
	if c.StoreTimeout <= 0 {
		return errors.New("STORE_TIMEOUT must be positive")
	}
	return nil
}

// KafkaEnabled reports whether the outbox worker and event consumer should run.
func (c Config) KafkaEnabled() bool {
	return len(c.KafkaBrokers) > 0
}

func (c Config) OperatingHours() (availability.OperatingHours, error) {
	return availability.ParseOperatingHours(c.Venue.Hours.Opens, c.Venue.Hours.Closes)
}

func (c Config) Location() (*time.Location, error) {
	if c.Venue.Timezone == "" || strings.EqualFold(c.Venue.Timezone, "UTC") {
		return time.UTC, nil
	}
	return time.LoadLocation(c.Venue.Timezone)
}

func loadVenue(path string, defaults Venue) (Venue, error) {
	f, err := os.Open(path)
	if err != nil {
		return Venue{}, fmt.Errorf("open venue profile: %w", err)
	}
	defer f.Close()

	profile := profileFile{Venue: defaults}
	if err := yaml.NewDecoder(f).Decode(&profile); err != nil {
		return Venue{}, fmt.Errorf("decode venue profile: %w", err)
	}
	return profile.Venue, nil
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func parseDurationEnv(key string, def time.Duration) (time.Duration, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return def, nil
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s duration: %w", key, err)
	}
	return d, nil
}

func parseIntEnv(key string, def int) (int, error) {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return def, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s integer: %w", key, err)
	}
	return v, nil
}

func parseFloatEnv(key string, def float64) (float64, error) {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return def, nil
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid %s number: %w", key, err)
	}
	return v, nil
}

func parseBoolEnv(key string, def bool) (bool, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return def, nil
	}
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "1", "t", "true", "yes", "y", "on":
		return true, nil
	case "0", "f", "false", "no", "n", "off":
		return false, nil
	default:
		return false, fmt.Errorf("invalid %s boolean: %q", key, raw)
	}
}
