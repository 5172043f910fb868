package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

// Config holds application configuration loaded from environment.
type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Redis    RedisConfig
	JWT      JWTConfig
	Stripe   StripeConfig
	AWS      AWSConfig
	Email    EmailConfig
	MFA      MFAConfig
	Webinar  WebinarConfig
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port               string
	ReadTimeout        int
	WriteTimeout       int
	CORSAllowedOrigins string // comma-separated, or "*" for all
}

// DatabaseConfig holds PostgreSQL connection settings.
type DatabaseConfig struct {
	URL      string // if set, used as-is (e.g. postgres://localhost:5432/pipecast?sslmode=disable)
	Host     string
	Port     string
	User     string
	Password string
	DBName   string
	SSLMode  string
}

// RedisConfig holds Redis connection settings.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// JWTConfig holds JWT signing and validation settings.
type JWTConfig struct {
	Secret      string
	ExpireHours int
}

// StripeConfig holds Stripe API and Connect OAuth settings.
type StripeConfig struct {
	SecretKey           string
	ClientID            string // Connect OAuth client_id (ca_...)
	RedirectURI         string // Connect OAuth callback URL
	SubscriptionPriceID string // platform subscription price
}

// AWSConfig holds AWS credentials and the recordings bucket.
type AWSConfig struct {
	Region               string
	AccessKeyID          string
	SecretAccessKey      string
	RecordingsBucket     string
	PresignExpireMinutes int
}

// EmailConfig holds SendGrid settings for transactional mail.
type EmailConfig struct {
	FromAddress string
	FromName    string
	APIKey      string
}

// MFAConfig holds multi-factor authentication settings.
type MFAConfig struct {
	Issuer          string // TOTP issuer shown in authenticator apps
	BackupCodeCount int    // codes issued per regeneration
}

// WebinarConfig holds webinar lifecycle defaults.
type WebinarConfig struct {
	DefaultDurationMinutes int // used when a submission carries no duration
	WaitingRoomLeadMinutes int // scheduled -> waiting_room this long before start
	AdvancePollSeconds     int // worker poll interval for the time-based transition
	ListCacheTTLSeconds    int // presenter webinar list cache
}

// DSN returns the PostgreSQL connection string.
// If DatabaseConfig.URL is set (e.g. DATABASE_URL env), it is used as-is; otherwise built from components.
func (c DatabaseConfig) DSN() string {
	if c.URL != "" {
		return c.URL
	}
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%s/%s?sslmode=%s",
		c.User, c.Password, c.Host, c.Port, c.DBName, c.SSLMode,
	)
}

// Load reads configuration from environment, with optional .env file.
func Load() (*Config, error) {
	_ = godotenv.Load()

	readTimeout, _ := strconv.Atoi(getEnv("READ_TIMEOUT_SEC", "30"))
	writeTimeout, _ := strconv.Atoi(getEnv("WRITE_TIMEOUT_SEC", "30"))
	redisDB, _ := strconv.Atoi(getEnv("REDIS_DB", "0"))
	jwtExpire, _ := strconv.Atoi(getEnv("JWT_EXPIRE_HOURS", "24"))

	cfg := &Config{
		Server: ServerConfig{
			Port:               getEnv("PORT", "8080"),
			ReadTimeout:        readTimeout,
			WriteTimeout:       writeTimeout,
			CORSAllowedOrigins: getEnv("CORS_ALLOWED_ORIGINS", "http://localhost:3000"),
		},
		Database: DatabaseConfig{
			URL:      getEnv("DATABASE_URL", "postgres://localhost:5432/pipecast?sslmode=disable"),
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnv("DB_PORT", "5432"),
			User:     getEnv("DB_USER", "postgres"),
			Password: getEnv("DB_PASSWORD", "postgres"),
			DBName:   getEnv("DB_NAME", "pipecast"),
			SSLMode:  getEnv("DB_SSLMODE", "disable"),
		},
		Redis: RedisConfig{
			Addr:     getEnv("REDIS_ADDR", "localhost:6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       redisDB,
		},
		JWT: JWTConfig{
			Secret:      getEnv("JWT_SECRET", "change-me-in-production"),
			ExpireHours: jwtExpire,
		},
		Stripe: StripeConfig{
			SecretKey:           getEnv("STRIPE_SECRET_KEY", ""),
			ClientID:            getEnv("STRIPE_CLIENT_ID", ""),
			RedirectURI:         getEnv("STRIPE_REDIRECT_URI", "http://localhost:3000/callback/stripe/connect"),
			SubscriptionPriceID: getEnv("STRIPE_SUBSCRIPTION_PRICE_ID", ""),
		},
		AWS: AWSConfig{
			Region:               getEnv("AWS_REGION", "us-east-1"),
			AccessKeyID:          getEnv("AWS_ACCESS_KEY_ID", ""),
			SecretAccessKey:      getEnv("AWS_SECRET_ACCESS_KEY", ""),
			RecordingsBucket:     getEnv("AWS_S3_RECORDINGS_BUCKET", "pipecast-recordings"),
			PresignExpireMinutes: getEnvInt("AWS_PRESIGN_EXPIRE_MINUTES", 15),
		},
		Email: EmailConfig{
			FromAddress: getEnv("EMAIL_FROM_ADDRESS", "noreply@example.com"),
			FromName:    getEnv("EMAIL_FROM_NAME", "Pipecast"),
			APIKey:      getEnv("SENDGRID_API_KEY", ""),
		},
		MFA: MFAConfig{
			Issuer:          getEnv("MFA_ISSUER", "Pipecast"),
			BackupCodeCount: getEnvInt("MFA_BACKUP_CODE_COUNT", 10),
		},
		Webinar: WebinarConfig{
			DefaultDurationMinutes: getEnvInt("WEBINAR_DEFAULT_DURATION_MINUTES", 60),
			WaitingRoomLeadMinutes: getEnvInt("WEBINAR_WAITING_ROOM_LEAD_MINUTES", 10),
			AdvancePollSeconds:     getEnvInt("WEBINAR_ADVANCE_POLL_SECONDS", 30),
			ListCacheTTLSeconds:    getEnvInt("WEBINAR_LIST_CACHE_TTL_SECONDS", 60),
		},
	}
	return cfg, nil
}

func getEnvInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
