package config

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/yashrajoria/checkout-service/providers"
)

type Config struct {
	Port               string
	Env                string
	FrontendURL        string
	JWTSecret          string
	TrustGatewayHeader bool

	PostgresUser     string
	PostgresPassword string
	PostgresDB       string
	PostgresHost     string
	PostgresPort     string
	PostgresSSLMode  string
	PostgresTimeZone string

	ProviderA providers.ProviderAConfig
	ProviderB providers.ProviderBConfig

	SessionTTL      time.Duration
	AmountTolerance int64
	RequestTimeout  time.Duration

	SessionStore string // postgres | dynamodb | memory
	SessionTable string

	TaskQueue       string // memory | sqs
	TaskQueueURL    string
	TaskWorkers     int
	TaskBuffer      int
	TaskMaxAttempts int

	EventSink          string // sns | kafka | none
	PaymentSNSTopicARN string
	KafkaBrokers       []string
	KafkaTopic         string

	RedisURL string
	SMTP     SMTPSettings

	RateLimitPerMinute  int
	AllowedOrigins      []string
	CloudWatchEnabled   bool
	CloudWatchNamespace string
	CloudWatchLogGroup  string
	UseSecrets          bool
}

type SMTPSettings struct {
	Host     string
	Port     string
	Username string
	Password string
	From     string
}

// SecretGetter is satisfied by pkg/aws.SecretsClient.
type SecretGetter interface {
	GetSecretJSON(ctx context.Context, name string) (map[string]string, error)
}

const (
	dbSecretName      = "checkout/DB_CREDENTIALS"
	gatewaySecretName = "checkout/GATEWAY_SECRETS"
)

// LoadConfig reads the environment (and a .env file when present).
func LoadConfig() (*Config, error) {
	_ = godotenv.Load()

	loc, err := time.LoadLocation(getEnv("PROVIDER_A_TIMEZONE", "Asia/Ho_Chi_Minh"))
	if err != nil {
		return nil, fmt.Errorf("invalid PROVIDER_A_TIMEZONE: %w", err)
	}

	cfg := &Config{
		Port:               getEnv("PORT", "8090"),
		Env:                getEnv("ENV", "development"),
		FrontendURL:        strings.TrimSuffix(getEnv("FRONTEND_URL", "http://localhost:3000"), "/"),
		JWTSecret:          os.Getenv("JWT_SECRET"),
		TrustGatewayHeader: getBool("TRUST_GATEWAY_HEADER", false),

		PostgresUser:     os.Getenv("POSTGRES_USER"),
		PostgresPassword: os.Getenv("POSTGRES_PASSWORD"),
		PostgresDB:       os.Getenv("POSTGRES_DB"),
		PostgresHost:     os.Getenv("POSTGRES_HOST"),
		PostgresPort:     getEnv("POSTGRES_PORT", "5432"),
		PostgresSSLMode:  getEnv("POSTGRES_SSLMODE", "disable"),
		PostgresTimeZone: getEnv("POSTGRES_TIMEZONE", "UTC"),

		ProviderA: providers.ProviderAConfig{
			TmnCode:    os.Getenv("PROVIDER_A_TMN_CODE"),
			HashSecret: os.Getenv("PROVIDER_A_HASH_SECRET"),
			PaymentURL: os.Getenv("PROVIDER_A_PAYMENT_URL"),
			ReturnURL:  os.Getenv("PROVIDER_A_RETURN_URL"),
			Version:    os.Getenv("PROVIDER_A_VERSION"),
			Location:   loc,
		},
		ProviderB: providers.ProviderBConfig{
			PartnerCode: os.Getenv("PROVIDER_B_PARTNER_CODE"),
			AccessKey:   os.Getenv("PROVIDER_B_ACCESS_KEY"),
			SecretKey:   os.Getenv("PROVIDER_B_SECRET_KEY"),
			Endpoint:    os.Getenv("PROVIDER_B_ENDPOINT"),
			RedirectURL: os.Getenv("PROVIDER_B_REDIRECT_URL"),
			IPNURL:      os.Getenv("PROVIDER_B_IPN_URL"),
			RequestType: os.Getenv("PROVIDER_B_REQUEST_TYPE"),
			Lang:        os.Getenv("PROVIDER_B_LANG"),
		},

		SessionTTL:     getDuration("PAYMENT_SESSION_TTL", 15*time.Minute),
		RequestTimeout: getDuration("REQUEST_TIMEOUT", 10*time.Second),

		SessionStore: getEnv("SESSION_STORE", "postgres"),
		SessionTable: getEnv("SESSION_TABLE", "checkout-payment-sessions"),

		TaskQueue:       getEnv("TASK_QUEUE", "memory"),
		TaskQueueURL:    os.Getenv("TASK_QUEUE_URL"),
		TaskWorkers:     getInt("TASK_WORKERS", 4),
		TaskBuffer:      getInt("TASK_BUFFER", 256),
		TaskMaxAttempts: getInt("TASK_MAX_ATTEMPTS", 5),

		EventSink:          getEnv("EVENT_SINK", "none"),
		PaymentSNSTopicARN: getEnv("PAYMENT_SNS_TOPIC_ARN", "arn:aws:sns:eu-west-2:000000000000:payment-events"),
		KafkaBrokers:       splitList(os.Getenv("KAFKA_BROKERS")),
		KafkaTopic:         getEnv("KAFKA_TOPIC", "payment-events"),

		RedisURL: getEnv("REDIS_URL", "redis://localhost:6379/0"),
		SMTP: SMTPSettings{
			Host:     os.Getenv("SMTP_HOST"),
			Port:     getEnv("SMTP_PORT", "587"),
			Username: os.Getenv("SMTP_USERNAME"),
			Password: os.Getenv("SMTP_PASSWORD"),
			From:     os.Getenv("SMTP_FROM"),
		},

		RateLimitPerMinute:  getInt("RATE_LIMIT_PER_MINUTE", 120),
		AllowedOrigins:      splitList(getEnv("ALLOWED_ORIGINS", "http://localhost:3000")),
		CloudWatchEnabled:   getBool("CLOUDWATCH_ENABLED", false),
		CloudWatchNamespace: getEnv("CLOUDWATCH_NAMESPACE", "ECommerce/Checkout"),
		CloudWatchLogGroup:  getEnv("CLOUDWATCH_LOG_GROUP", "/ecommerce/checkout-service"),
		UseSecrets:          getBool("AWS_USE_SECRETS", false),
	}

	tolerance, err := strconv.ParseInt(getEnv("AMOUNT_TOLERANCE", "0"), 10, 64)
	if err != nil || tolerance < 0 {
		return nil, fmt.Errorf("AMOUNT_TOLERANCE must be a non-negative integer")
	}
	cfg.AmountTolerance = tolerance

	return cfg, nil
}

// ApplySecrets overrides DB credentials and gateway secrets from Secrets
// Manager. Missing secrets leave the environment values in place.
func (c *Config) ApplySecrets(ctx context.Context, sm SecretGetter) {
	if m, err := sm.GetSecretJSON(ctx, dbSecretName); err == nil {
		override(&c.PostgresUser, m["POSTGRES_USER"])
		override(&c.PostgresPassword, m["POSTGRES_PASSWORD"])
		override(&c.PostgresDB, m["POSTGRES_DB"])
		override(&c.PostgresHost, m["POSTGRES_HOST"])
		override(&c.PostgresPort, m["POSTGRES_PORT"])
	}
	if m, err := sm.GetSecretJSON(ctx, gatewaySecretName); err == nil {
		override(&c.ProviderA.HashSecret, m["PROVIDER_A_HASH_SECRET"])
		override(&c.ProviderB.AccessKey, m["PROVIDER_B_ACCESS_KEY"])
		override(&c.ProviderB.SecretKey, m["PROVIDER_B_SECRET_KEY"])
		override(&c.JWTSecret, m["JWT_SECRET"])
	}
}

// Validate reports the first missing or inconsistent setting.
func (c *Config) Validate() error {
	if c.PostgresUser == "" || c.PostgresPassword == "" || c.PostgresDB == "" || c.PostgresHost == "" {
		return fmt.Errorf("database config incomplete")
	}
	if c.JWTSecret == "" {
		return fmt.Errorf("JWT_SECRET is required")
	}
	if c.ProviderA.TmnCode == "" || c.ProviderA.HashSecret == "" || c.ProviderA.PaymentURL == "" || c.ProviderA.ReturnURL == "" {
		return fmt.Errorf("provider A config incomplete")
	}
	if c.ProviderB.PartnerCode == "" || c.ProviderB.AccessKey == "" || c.ProviderB.SecretKey == "" ||
		c.ProviderB.Endpoint == "" || c.ProviderB.RedirectURL == "" || c.ProviderB.IPNURL == "" {
		return fmt.Errorf("provider B config incomplete")
	}
	if c.SessionTTL <= 0 {
		return fmt.Errorf("PAYMENT_SESSION_TTL must be positive")
	}

	switch c.SessionStore {
	case "postgres", "memory":
	case "dynamodb":
		if c.SessionTable == "" {
			return fmt.Errorf("SESSION_TABLE is required for the dynamodb session store")
		}
	default:
		return fmt.Errorf("unknown SESSION_STORE %q", c.SessionStore)
	}

	switch c.TaskQueue {
	case "memory":
	case "sqs":
		if c.TaskQueueURL == "" {
			return fmt.Errorf("TASK_QUEUE_URL is required for the sqs task queue")
		}
	default:
		return fmt.Errorf("unknown TASK_QUEUE %q", c.TaskQueue)
	}
	if c.TaskMaxAttempts < 1 {
		return fmt.Errorf("TASK_MAX_ATTEMPTS must be at least 1")
	}

	switch c.EventSink {
	case "none", "sns":
	case "kafka":
		if len(c.KafkaBrokers) == 0 {
			return fmt.Errorf("KAFKA_BROKERS is required for the kafka event sink")
		}
	default:
		return fmt.Errorf("unknown EVENT_SINK %q", c.EventSink)
	}
	return nil
}

// DSN builds the Postgres connection string.
func (c *Config) DSN() string {
	return fmt.Sprintf("host=%s user=%s password=%s dbname=%s port=%s sslmode=%s TimeZone=%s",
		c.PostgresHost, c.PostgresUser, c.PostgresPassword, c.PostgresDB, c.PostgresPort, c.PostgresSSLMode, c.PostgresTimeZone)
}

func override(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}

func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func getInt(key string, fallback int) int {
	if v, err := strconv.Atoi(os.Getenv(key)); err == nil {
		return v
	}
	return fallback
}

func getBool(key string, fallback bool) bool {
	if v, err := strconv.ParseBool(os.Getenv(key)); err == nil {
		return v
	}
	return fallback
}

func getDuration(key string, fallback time.Duration) time.Duration {
	if v, err := time.ParseDuration(os.Getenv(key)); err == nil {
		return v
	}
	return fallback
}

func splitList(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
