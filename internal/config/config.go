package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	Server   ServerConfig
	App      AppConfig
	Email    EmailConfig
	Redis    RedisConfig
	Kafka    KafkaConfig
	Database DatabaseConfig
	Faspay   FaspayConfig
	Notify   NotifyConfig
	Auth     AuthConfig
}

type ServerConfig struct {
	Port         string
	MetricsPort  string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration
}

// AppConfig holds storefront-wide settings used to build links and deadlines.
type AppConfig struct {
	BaseURL             string
	Timezone            string
	LogDir              string
	PaymentDeadline     time.Duration
	ExpirySweepInterval time.Duration
	EventsCacheTTL      time.Duration
	ChannelsCacheTTL    time.Duration
	OrderCacheTTL       time.Duration
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

type KafkaConfig struct {
	Brokers           []string
	GroupID           string
	NotificationTopic string
	Enabled           bool
}

type DatabaseConfig struct {
	Host         string
	Port         string
	Username     string
	Password     string
	Database     string
	SSLMode      string
	MaxOpenConns int
	MaxIdleConns int
	MaxLifetime  time.Duration
}

type FaspayConfig struct {
	URL        string
	MerchantID string
	Merchant   string
	UserID     string
	Password   string
	Timeout    time.Duration
}

type NotifyConfig struct {
	StarsenderURL   string
	StarsenderToken string
	MaxAttempts     int
	RetryBackoff    time.Duration
}

type EmailConfig struct {
	SMTPHost     string
	SMTPPort     string
	SMTPUsername string
	SMTPPassword string
	From         string
	Enabled      bool
}

type AuthConfig struct {
	AdminJWTSecret string
}

func Load() *Config {
	return &Config{
		Server: ServerConfig{
			Port:         getEnv("PORT", ":8080"),
			MetricsPort:  getEnv("METRICS_PORT", ":9091"),
			ReadTimeout:  15 * time.Second,
			WriteTimeout: 15 * time.Second,
			IdleTimeout:  60 * time.Second,
		},
		App: AppConfig{
			BaseURL:             strings.TrimRight(getEnv("BASE_URL", "http://localhost:3000"), "/"),
			Timezone:            getEnv("APP_TIMEZONE", "Asia/Jakarta"),
			LogDir:              getEnv("LOG_DIR", "logs"),
			PaymentDeadline:     getEnvDuration("PAYMENT_DEADLINE", 5*time.Hour+4*time.Minute),
			ExpirySweepInterval: getEnvDuration("EXPIRY_SWEEP_INTERVAL", 5*time.Minute),
			EventsCacheTTL:      getEnvDuration("CACHE_TTL_EVENTS", 300*time.Second),
			ChannelsCacheTTL:    getEnvDuration("CACHE_TTL_PAYMENT_CHANNELS", 3600*time.Second),
			OrderCacheTTL:       getEnvDuration("CACHE_TTL_ORDER", 1800*time.Second),
		},
		Email: EmailConfig{
			SMTPHost:     getEnv("SMTP_HOST", "smtp.gmail.com"),
			SMTPPort:     getEnv("SMTP_PORT", "587"),
			SMTPUsername: getEnv("SMTP_USERNAME", ""),
			SMTPPassword: getEnv("SMTP_PASSWORD", ""),
			From:         getEnv("SMTP_FROM", "tickets@localhost"),
			Enabled:      getEnvBool("EMAIL_ENABLED", false),
		},
		Redis: RedisConfig{
			Addr:     getEnv("REDIS_ADDR", "localhost:6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvInt("REDIS_DB", 0),
		},
		Database: DatabaseConfig{
			Host:         getEnv("DB_HOST", "localhost"),
			Port:         getEnv("DB_PORT", "5432"),
			Username:     getEnv("DB_USERNAME", "ticketing"),
			Password:     getEnv("DB_PASSWORD", "ticketing"),
			Database:     getEnv("DB_NAME", "ticketing"),
			SSLMode:      getEnv("DB_SSLMODE", "disable"),
			MaxOpenConns: getEnvInt("DB_MAX_OPEN_CONNS", 25),
			MaxIdleConns: getEnvInt("DB_MAX_IDLE_CONNS", 25),
			MaxLifetime:  time.Duration(getEnvInt("DB_MAX_LIFETIME_MINUTES", 5)) * time.Minute,
		},
		Kafka: KafkaConfig{
			Brokers:           getEnvList("KAFKA_BROKERS", "localhost:9092"),
			GroupID:           getEnv("KAFKA_GROUP_ID", "notification-worker"),
			NotificationTopic: getEnv("KAFKA_TOPIC_NOTIFICATIONS", "ticketing.notifications"),
			Enabled:           getEnvBool("KAFKA_ENABLED", true),
		},
		Faspay: FaspayConfig{
			URL:        getEnv("FASPAY_URL", "https://web.faspay.co.id/cvr/300011/10"),
			MerchantID: getEnv("FASPAY_MERCHANT_ID", "35802"),
			Merchant:   getEnv("FASPAY_MERCHANT", "Indonesia Juara"),
			UserID:     getEnv("FASPAY_USER_ID", ""),
			Password:   getEnv("FASPAY_PASSWORD", ""),
			Timeout:    getEnvDuration("FASPAY_TIMEOUT", 30*time.Second),
		},
		Notify: NotifyConfig{
			StarsenderURL:   getEnv("STARSENDER_URL", ""),
			StarsenderToken: getEnv("STARSENDER_TOKEN", ""),
			MaxAttempts:     getEnvInt("NOTIFY_MAX_ATTEMPTS", 3),
			RetryBackoff:    getEnvDuration("NOTIFY_RETRY_BACKOFF", 2*time.Second),
		},
		Auth: AuthConfig{
			AdminJWTSecret: getEnv("ADMIN_JWT_SECRET", ""),
		},
	}
}

// DSN builds the postgres connection string for lib/pq.
func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=%s",
		d.Username, d.Password, d.Host, d.Port, d.Database, d.SSLMode)
}

// Location resolves the configured timezone, falling back to a fixed UTC+7 zone
// when the tz database is missing from the container.
func (a AppConfig) Location() *time.Location {
	loc, err := time.LoadLocation(a.Timezone)
	if err != nil {
		return time.FixedZone("WIB", 7*60*60)
	}
	return loc
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.ParseBool(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if parsed, err := time.ParseDuration(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getEnvList(key, defaultValue string) []string {
	var out []string
	for _, part := range strings.Split(getEnv(key, defaultValue), ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
