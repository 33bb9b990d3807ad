package config

import (
	"errors"
	"fmt"
	"log"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	HTTPAddr   string
	AppBaseURL string
	GinMode    string

	// CORSOrigins empty allows every origin.
	CORSOrigins []string

	JWTSecret     string
	JWTTTL        time.Duration
	SessionSecret string

	DBDriver string
	DBDSN    string
	DBHost   string
	DBPort   string
	DBUser   string
	DBPass   string
	DBName   string

	RedisEnabled  bool
	RedisHost     string
	RedisPort     string
	RedisPassword string
	RedisDB       int

	MaxUploadSize   int64
	DeliveryBackend string

	TelegramAPIBase  string
	TelegramBotToken string
	TelegramChatID   string
	TelegramTimeout  time.Duration

	MinioHost      string
	MinioPort      string
	MinioUsername  string
	MinioPassword  string
	MinioUseSSL    bool
	BucketName     string
	MinioURLExpiry time.Duration

	S3Bucket          string
	S3Region          string
	S3Endpoint        string
	S3AccessKeyID     string
	S3AccessKeySecret string
	S3PublicBaseURL   string
	S3ForcePathStyle  bool
	S3URLExpiry       time.Duration

	BitlyAPIBase     string
	BitlyAccessToken string
	BitlyTimeout     time.Duration

	SMTPHost     string
	SMTPPort     string
	SMTPUser     string
	SMTPPass     string
	SMTPFrom     string
	SMTPTLS      bool
	SMTPStartTLS bool

	ResetTokenTTL   time.Duration
	SignInRate      float64
	SignInBurst     int
	ListCacheTTL    time.Duration
	ShortenLockTTL  time.Duration
	FileListMaxSize int

	RabbitMQURL            string
	RabbitMQHost           string
	RabbitMQPort           string
	RabbitMQUser           string
	RabbitMQPass           string
	RabbitMQVhost          string
	RabbitMQPrefetch       int
	IncidentsEnabled       bool
	IncidentConcurrency    int
	IncidentRate           float64
	IncidentBurst          int
	IncidentRetryMax       int
	IncidentRetryDelays    []time.Duration
	IncidentPublishTimeout time.Duration
}

const (
	BackendTelegram = "telegram"
	BackendMinio    = "minio"
	BackendS3       = "s3"
)

var AppConfig Config

// getEnv returns the environment value or a default.
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return defaultValue
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return defaultValue
	}
	return parsed
}

func getEnvFloat(key string, defaultValue float64) float64 {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return defaultValue
	}
	parsed, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return defaultValue
	}
	return parsed
}

func getEnvBool(key string, defaultValue bool) bool {
	value := strings.TrimSpace(strings.ToLower(os.Getenv(key)))
	if value == "" {
		return defaultValue
	}
	switch value {
	case "1", "true", "yes", "y", "on":
		return true
	case "0", "false", "no", "n", "off":
		return false
	default:
		return defaultValue
	}
}

func getEnvInt64(key string, defaultValue int64) int64 {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return defaultValue
	}
	parsed, err := strconv.ParseInt(value, 10, 64)
	if err != nil {
		return defaultValue
	}
	return parsed
}

func getEnvDurationList(key string, defaultValue []time.Duration) []time.Duration {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return defaultValue
	}
	parts := strings.Split(raw, ",")
	out := make([]time.Duration, 0, len(parts))
	for _, part := range parts {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		parsed, err := time.ParseDuration(part)
		if err != nil {
			return defaultValue
		}
		out = append(out, parsed)
	}
	if len(out) == 0 {
		return defaultValue
	}
	return out
}

func getEnvList(key string) []string {
	var out []string
	for _, part := range strings.Split(os.Getenv(key), ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return defaultValue
	}
	parsed, err := time.ParseDuration(raw)
	if err != nil {
		return defaultValue
	}
	return parsed
}

// InitConfig loads configuration from the optional config file and the environment.
func InitConfig() {
	if path := strings.TrimSpace(os.Getenv("CONFIG_FILE")); path != "" {
		if err := LoadFile(path); err != nil {
			log.Fatalf("load config file %s: %v", path, err)
		}
	}
	AppConfig = Load()
}

// Load builds a Config from the current environment.
func Load() Config {
	rabbitHost := getEnv("RABBITMQ_HOST", "localhost")
	rabbitPort := getEnv("RABBITMQ_PORT", "5672")
	rabbitUser := getEnv("RABBITMQ_USER", "guest")
	rabbitPass := getEnv("RABBITMQ_PASSWORD", "guest")
	rabbitVhost := getEnv("RABBITMQ_VHOST", "/")
	rabbitURL := getEnv("RABBITMQ_URL", "")
	if rabbitURL == "" {
		rabbitURL = fmt.Sprintf(
			"amqp://%s:%s@%s:%s/%s",
			url.PathEscape(rabbitUser),
			url.PathEscape(rabbitPass),
			rabbitHost,
			rabbitPort,
			url.PathEscape(rabbitVhost),
		)
	}
	retryDelays := getEnvDurationList(
		"INCIDENT_RETRY_DELAYS",
		[]time.Duration{10 * time.Second, 30 * time.Second, 2 * time.Minute, 10 * time.Minute},
	)
	return Config{
		HTTPAddr:   getEnv("HTTP_ADDR", ":8000"),
		AppBaseURL: strings.TrimRight(getEnv("APP_BASE_URL", ""), "/"),
		GinMode:    getEnv("GIN_MODE", "release"),

		CORSOrigins: getEnvList("CORS_ORIGINS"),

		JWTSecret:     getEnv("JWT_SECRET", "l=ax+b"),
		JWTTTL:        getEnvDuration("JWT_TTL", 24*time.Hour),
		SessionSecret: getEnv("SESSION_SECRET", "cloud-hunter-session"),

		DBDriver: strings.ToLower(getEnv("DB_DRIVER", "mysql")),
		DBDSN:    getEnv("DB_DSN", ""),
		DBHost:   getEnv("DB_HOST", "localhost"),
		DBPort:   getEnv("DB_PORT", "3306"),
		DBUser:   getEnv("DB_USER", "root"),
		DBPass:   getEnv("DB_PASS", "root"),
		DBName:   getEnv("DB_NAME", "cloud_hunter"),

		RedisEnabled:  getEnvBool("REDIS_ENABLED", true),
		RedisHost:     getEnv("REDIS_HOST", "localhost"),
		RedisPort:     getEnv("REDIS_PORT", "6379"),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisDB:       getEnvInt("REDIS_DB", 0),

		MaxUploadSize:   getEnvInt64("MAX_UPLOAD_SIZE", 2*1024*1024*1024),
		DeliveryBackend: strings.ToLower(getEnv("DELIVERY_BACKEND", BackendTelegram)),

		TelegramAPIBase:  strings.TrimRight(getEnv("TELEGRAM_API_BASE", "https://api.telegram.org"), "/"),
		TelegramBotToken: getEnv("TELEGRAM_BOT_TOKEN", ""),
		TelegramChatID:   getEnv("TELEGRAM_CHAT_ID", ""),
		TelegramTimeout:  getEnvDuration("TELEGRAM_TIMEOUT", 30*time.Minute),

		MinioHost:      getEnv("MINIO_HOST", "localhost"),
		MinioPort:      getEnv("MINIO_PORT", "9000"),
		MinioUsername:  getEnv("MINIO_USERNAME", "minioadmin"),
		MinioPassword:  getEnv("MINIO_PASSWORD", "minioadmin"),
		MinioUseSSL:    getEnvBool("MINIO_USE_SSL", false),
		BucketName:     getEnv("BUCKET_NAME", "cloud-hunter"),
		MinioURLExpiry: getEnvDuration("MINIO_URL_EXPIRY", 7*24*time.Hour),

		S3Bucket:          getEnv("S3_BUCKET", ""),
		S3Region:          getEnv("S3_REGION", "us-east-1"),
		S3Endpoint:        getEnv("S3_ENDPOINT", ""),
		S3AccessKeyID:     getEnv("S3_ACCESS_KEY_ID", ""),
		S3AccessKeySecret: getEnv("S3_ACCESS_KEY_SECRET", ""),
		S3PublicBaseURL:   getEnv("S3_PUBLIC_BASE_URL", ""),
		S3ForcePathStyle:  getEnvBool("S3_FORCE_PATH_STYLE", false),
		S3URLExpiry:       getEnvDuration("S3_URL_EXPIRY", 7*24*time.Hour),

		BitlyAPIBase:     strings.TrimRight(getEnv("BITLY_API_BASE", "https://api-ssl.bitly.com"), "/"),
		BitlyAccessToken: getEnv("BITLY_ACCESS_TOKEN", ""),
		BitlyTimeout:     getEnvDuration("BITLY_TIMEOUT", 15*time.Second),

		SMTPHost:     getEnv("SMTP_HOST", ""),
		SMTPPort:     getEnv("SMTP_PORT", ""),
		SMTPUser:     getEnv("SMTP_USER", ""),
		SMTPPass:     getEnv("SMTP_PASS", ""),
		SMTPFrom:     getEnv("SMTP_FROM", ""),
		SMTPTLS:      getEnvBool("SMTP_TLS", false),
		SMTPStartTLS: getEnvBool("SMTP_STARTTLS", false),

		ResetTokenTTL:   getEnvDuration("RESET_TOKEN_TTL", 10*time.Minute),
		SignInRate:      getEnvFloat("SIGNIN_RATE", 0.2),
		SignInBurst:     getEnvInt("SIGNIN_BURST", 5),
		ListCacheTTL:    getEnvDuration("LIST_CACHE_TTL", 2*time.Minute),
		ShortenLockTTL:  getEnvDuration("SHORTEN_LOCK_TTL", 30*time.Second),
		FileListMaxSize: getEnvInt("FILE_LIST_MAX", 0),

		RabbitMQURL:            rabbitURL,
		RabbitMQHost:           rabbitHost,
		RabbitMQPort:           rabbitPort,
		RabbitMQUser:           rabbitUser,
		RabbitMQPass:           rabbitPass,
		RabbitMQVhost:          rabbitVhost,
		RabbitMQPrefetch:       getEnvInt("RABBITMQ_PREFETCH", 8),
		IncidentsEnabled:       getEnvBool("INCIDENTS_ENABLED", false),
		IncidentConcurrency:    getEnvInt("INCIDENT_WORKER_CONCURRENCY", 2),
		IncidentRate:           getEnvFloat("INCIDENT_RATE", 5),
		IncidentBurst:          getEnvInt("INCIDENT_BURST", 10),
		IncidentRetryMax:       getEnvInt("INCIDENT_RETRY_MAX", 4),
		IncidentRetryDelays:    retryDelays,
		IncidentPublishTimeout: getEnvDuration("INCIDENT_PUBLISH_TIMEOUT", 5*time.Second),
	}
}

// Validate reports configuration the selected delivery backend cannot run without.
func (c Config) Validate() error {
	var problems []string
	if c.MaxUploadSize <= 0 {
		problems = append(problems, "MAX_UPLOAD_SIZE must be positive")
	}
	switch c.DeliveryBackend {
	case BackendTelegram:
		if c.TelegramBotToken == "" {
			problems = append(problems, "TELEGRAM_BOT_TOKEN missing")
		}
		if c.TelegramChatID == "" {
			problems = append(problems, "TELEGRAM_CHAT_ID missing")
		}
	case BackendMinio:
		if c.BucketName == "" {
			problems = append(problems, "BUCKET_NAME missing")
		}
	case BackendS3:
		if c.S3Bucket == "" {
			problems = append(problems, "S3_BUCKET missing")
		}
	default:
		problems = append(problems, "unknown DELIVERY_BACKEND "+strconv.Quote(c.DeliveryBackend))
	}
	switch c.DBDriver {
	case "mysql", "postgres", "sqlite":
	default:
		problems = append(problems, "unknown DB_DRIVER "+strconv.Quote(c.DBDriver))
	}
	if len(problems) == 0 {
		return nil
	}
	return errors.New(strings.Join(problems, "; "))
}
