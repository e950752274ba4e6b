package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all runtime configuration loaded from environment variables.
type Config struct {
	AppPort string
	AppEnv  string

	AWSRegion      string
	AWSEndpointURL string // empty in prod, set to LocalStack URL in dev
	AWSAccessKeyID string
	AWSSecretKey   string
	DynamoTables   DynamoTables

	SMTPHost     string
	SMTPPort     string
	SMTPFrom     string
	SMTPUsername string
	SMTPPassword string

	JWTSecret     string
	JWTExpiryDays int

	OTPCodeTTL time.Duration

	Gate GateConfig

	AllowedOrigins []string // CORS allowed origins
}

// DynamoTables holds the DynamoDB table name for each entity.
type DynamoTables struct {
	Users            string
	OtpVerifications string
}

// GateConfig holds the page paths the access gate redirects between.
// RestrictedSlugs are page slugs that require a verified account.
type GateConfig struct {
	LoginPath       string
	AccountPath     string
	OTPPath         string
	RestrictedSlugs []string
	PlanParam       string
}

// Load reads all configuration from environment variables.
func Load() *Config {
	return &Config{
		AppPort: getEnv("APP_PORT", "3000"),
		AppEnv:  getEnv("APP_ENV", "development"),

		AWSRegion:      getEnv("AWS_REGION", "us-east-1"),
		AWSEndpointURL: getEnv("AWS_ENDPOINT_URL", ""),
		AWSAccessKeyID: getEnv("AWS_ACCESS_KEY_ID", ""),
		AWSSecretKey:   getEnv("AWS_SECRET_ACCESS_KEY", ""),
		DynamoTables: DynamoTables{
			Users:            getEnv("DYNAMO_TABLE_USERS", "users"),
			OtpVerifications: getEnv("DYNAMO_TABLE_OTP_VERIFICATIONS", "otp_verifications"),
		},

		SMTPHost:     getEnv("SMTP_HOST", "localhost"),
		SMTPPort:     getEnv("SMTP_PORT", "1025"),
		SMTPFrom:     getEnv("SMTP_FROM", "noreply@example.com"),
		SMTPUsername: getEnv("SMTP_USERNAME", ""),
		SMTPPassword: getEnv("SMTP_PASSWORD", ""),

		JWTSecret:     getEnv("JWT_SECRET", ""),
		JWTExpiryDays: getEnvInt("JWT_EXPIRY_DAYS", 7),

		OTPCodeTTL: time.Duration(getEnvInt("OTP_CODE_TTL_MINUTES", 10)) * time.Minute,

		Gate: GateConfig{
			LoginPath:       getEnv("GATE_LOGIN_PATH", "/tds-login-register/"),
			AccountPath:     getEnv("GATE_ACCOUNT_PATH", "/tds-my-account/"),
			OTPPath:         getEnv("GATE_OTP_PATH", "/verify-otp/"),
			RestrictedSlugs: strings.Split(getEnv("GATE_RESTRICTED_SLUGS", "tds-my-account"), ","),
			PlanParam:       getEnv("GATE_PLAN_PARAM", "selected_plan"),
		},

		AllowedOrigins: strings.Split(getEnv("ALLOWED_ORIGINS", "*"), ","),
	}
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}
