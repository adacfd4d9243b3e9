package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
)

const (
	BackendPostgres = "postgres"
	BackendSQLite   = "sqlite"

	SenderLog      = "log"
	SenderTelegram = "telegram"
	SenderNATS     = "nats"
)

type Config struct {
	Environment     string
	ServerPort      string
	CORSAllowOrigin string

	StoreBackend string
	DatabaseURL  string
	SQLitePath   string

	Marketplace MarketplaceConfig
	Redis       RedisConfig
	Notify      NotifyConfig
	Engine      EngineConfig
}

type MarketplaceConfig struct {
	BaseURL           string
	ClientID          string
	APIKey            string
	Timeout           time.Duration
	RequestsPerSecond float64
	Burst             int
	DraftRetries      int
	DraftRetryDelay   time.Duration
}

type RedisConfig struct {
	URL      string
	CacheTTL time.Duration
}

type NotifyConfig struct {
	Sender        string
	Operators     []string
	TelegramToken string
	TelegramURL   string
	NATSURL       string
	NATSToken     string
	NATSSubject   string
}

type EngineConfig struct {
	DraftPeriod  time.Duration `yaml:"draft_period"`
	ProbePeriod  time.Duration `yaml:"probe_period"`
	PollAttempts int           `yaml:"poll_attempts"`
	PollDelay    time.Duration `yaml:"poll_delay"`
	CandidateGap time.Duration `yaml:"candidate_gap"`
	HorizonDays  int           `yaml:"horizon_days"`
	Timezone     string        `yaml:"timezone"`
	ResumeOnBoot bool          `yaml:"resume_on_boot"`
}

// Location resolves the configured timezone.
func (e EngineConfig) Location() (*time.Location, error) {
	if e.Timezone == "" || e.Timezone == "Local" {
		return time.Local, nil
	}
	return time.LoadLocation(e.Timezone)
}

func defaults() *Config {
	return &Config{
		Environment:     "production",
		ServerPort:      "8080",
		CORSAllowOrigin: "http://localhost:3000",
		StoreBackend:    BackendSQLite,
		SQLitePath:      "slotwatch.db",
		Marketplace: MarketplaceConfig{
			BaseURL:           "https://api-seller.ozon.ru",
			Timeout:           30 * time.Second,
			RequestsPerSecond: 5,
			Burst:             1,
			DraftRetries:      3,
			DraftRetryDelay:   30 * time.Second,
		},
		Redis: RedisConfig{CacheTTL: 15 * time.Minute},
		Notify: NotifyConfig{
			Sender:      SenderLog,
			TelegramURL: "https://api.telegram.org",
			NATSURL:     "nats://127.0.0.1:4222",
			NATSSubject: "slotwatch.notify",
		},
		Engine: EngineConfig{
			DraftPeriod:  25 * time.Minute,
			ProbePeriod:  30 * time.Second,
			PollAttempts: 5,
			PollDelay:    5 * time.Second,
			CandidateGap: 2 * time.Second,
			HorizonDays:  27,
			Timezone:     "Local",
		},
	}
}

// Load builds the configuration from defaults, the optional YAML file named
// by SLOTWATCH_CONFIG_FILE, and the environment, in increasing precedence.
func Load() (*Config, error) {
	cfg := defaults()
	if path := os.Getenv("SLOTWATCH_CONFIG_FILE"); path != "" {
		if err := applyFile(cfg, path); err != nil {
			return nil, err
		}
	}

	cfg.Environment = getEnv("SLOTWATCH_ENV", cfg.Environment)
	cfg.ServerPort = getEnv("SERVER_PORT", cfg.ServerPort)
	cfg.CORSAllowOrigin = getEnv("CORS_ALLOW_ORIGIN", cfg.CORSAllowOrigin)

	cfg.DatabaseURL = getEnv("DATABASE_URL", cfg.DatabaseURL)
	if cfg.DatabaseURL != "" {
		cfg.StoreBackend = BackendPostgres
	}
	cfg.StoreBackend = getEnv("STORE_BACKEND", cfg.StoreBackend)
	cfg.SQLitePath = getEnv("SQLITE_PATH", cfg.SQLitePath)

	m := &cfg.Marketplace
	m.BaseURL = getEnv("MARKETPLACE_URL", m.BaseURL)
	m.ClientID = getEnv("MARKETPLACE_CLIENT_ID", m.ClientID)
	m.APIKey = getEnv("MARKETPLACE_API_KEY", m.APIKey)
	m.Timeout = getDuration("MARKETPLACE_TIMEOUT", m.Timeout)
	m.RequestsPerSecond = getFloat("MARKETPLACE_RPS", m.RequestsPerSecond)
	m.Burst = getInt("MARKETPLACE_BURST", m.Burst)
	m.DraftRetries = getInt("DRAFT_RETRY_ATTEMPTS", m.DraftRetries)
	m.DraftRetryDelay = getDuration("DRAFT_RETRY_BASE_DELAY", m.DraftRetryDelay)

	cfg.Redis.URL = getEnv("REDIS_URL", cfg.Redis.URL)
	cfg.Redis.CacheTTL = getDuration("CATALOG_CACHE_TTL", cfg.Redis.CacheTTL)

	n := &cfg.Notify
	n.Sender = getEnv("NOTIFY_SENDER", n.Sender)
	n.Operators = getList("OPERATORS", n.Operators)
	n.TelegramToken = getEnv("TELEGRAM_BOT_TOKEN", n.TelegramToken)
	n.TelegramURL = getEnv("TELEGRAM_API_URL", n.TelegramURL)
	n.NATSURL = getEnv("NATS_URL", n.NATSURL)
	n.NATSToken = getEnv("NATS_TOKEN", n.NATSToken)
	n.NATSSubject = getEnv("NATS_SUBJECT_PREFIX", n.NATSSubject)

	e := &cfg.Engine
	e.DraftPeriod = getDuration("DRAFT_REFRESH_PERIOD", e.DraftPeriod)
	e.ProbePeriod = getDuration("SLOT_PROBE_PERIOD", e.ProbePeriod)
	e.PollAttempts = getInt("DRAFT_POLL_ATTEMPTS", e.PollAttempts)
	e.PollDelay = getDuration("DRAFT_POLL_DELAY", e.PollDelay)
	e.CandidateGap = getDuration("CANDIDATE_GAP", e.CandidateGap)
	e.HorizonDays = getInt("HORIZON_DAYS", e.HorizonDays)
	e.Timezone = getEnv("TIMEZONE", e.Timezone)
	e.ResumeOnBoot = getBool("SLOTWATCH_RESUME_ON_BOOT", e.ResumeOnBoot)

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	var errs []error
	switch c.StoreBackend {
	case BackendPostgres:
		if c.DatabaseURL == "" {
			errs = append(errs, errors.New("DATABASE_URL is required for the postgres backend"))
		}
	case BackendSQLite:
	default:
		errs = append(errs, fmt.Errorf("unknown STORE_BACKEND %q", c.StoreBackend))
	}
	switch c.Notify.Sender {
	case SenderLog:
	case SenderTelegram:
		if c.Notify.TelegramToken == "" {
			errs = append(errs, errors.New("TELEGRAM_BOT_TOKEN is required for the telegram sender"))
		}
	case SenderNATS:
	default:
		errs = append(errs, fmt.Errorf("unknown NOTIFY_SENDER %q", c.Notify.Sender))
	}
	if c.Engine.DraftPeriod <= 0 || c.Engine.ProbePeriod <= 0 {
		errs = append(errs, errors.New("task periods must be positive"))
	}
	if _, err := c.Engine.Location(); err != nil {
		errs = append(errs, fmt.Errorf("TIMEZONE: %w", err))
	}
	return errors.Join(errs...)
}

// RequireMarketplace checks the credentials needed to talk to the upstream.
func (c *Config) RequireMarketplace() error {
	if c.Marketplace.ClientID == "" || c.Marketplace.APIKey == "" {
		return errors.New("MARKETPLACE_CLIENT_ID and MARKETPLACE_API_KEY are required")
	}
	return nil
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getDuration(key string, fallback time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		log.Warn().Str("key", key).Str("value", v).Dur("default", fallback).
			Msg("invalid duration for env var, using default")
		return fallback
	}
	return d
}

func getInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		log.Warn().Str("key", key).Str("value", v).Int("default", fallback).
			Msg("invalid integer for env var, using default")
		return fallback
	}
	return n
}

func getFloat(key string, fallback float64) float64 {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		log.Warn().Str("key", key).Str("value", v).Float64("default", fallback).
			Msg("invalid number for env var, using default")
		return fallback
	}
	return f
}

func getBool(key string, fallback bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		log.Warn().Str("key", key).Str("value", v).Bool("default", fallback).
			Msg("invalid boolean for env var, using default")
		return fallback
	}
	return b
}

// getList reads a comma-separated list, dropping empty entries.
func getList(key string, fallback []string) []string {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	var out []string
	for _, s := range strings.Split(v, ",") {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}
