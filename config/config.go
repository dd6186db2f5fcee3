package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"golang.org/x/crypto/bcrypt"
)

const (
	StoreBackendPostgres = "postgres"
	StoreBackendMemory   = "memory"

	StorageBackendMinio = "minio"
	StorageBackendGCS   = "gcs"
	StorageBackendS3    = "s3"

	MQBackendRabbitMQ = "rabbitmq"
	MQBackendPubSub   = "pubsub"
)

type Config struct {
	ServerPort   int
	StoreBackend string
	Database     DatabaseConfig
	Auth         AuthConfig
	CORS         CORSConfig
	Redis        RedisConfig
	Storage      StorageConfig
	MQ           MQConfig
	Client       ClientConfig
	Log          LogConfig
}

type DatabaseConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	DBName   string
	UseSSL   bool
}

type AuthConfig struct {
	JWTSecret  string
	TokenTTL   time.Duration
	BcryptCost int
}

type CORSConfig struct {
	AllowedOrigins []string
}

// RedisConfig enables token revocation when URL is set.
type RedisConfig struct {
	URL string
}

type StorageConfig struct {
	Backend string
	Minio   MinioConfig
	GCS     GCSConfig
	S3      S3Config
}

type MinioConfig struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	UseSSL    bool
}

type GCSConfig struct {
	Bucket          string
	ProjectID       string
	CredentialsFile string
}

type S3Config struct {
	Region    string
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
}

type MQConfig struct {
	Backend  string
	Channel  string
	RabbitMQ RabbitMQConfig
	PubSub   PubSubConfig
}

// RabbitMQConfig.Queue names the subscriber queue; empty means an exclusive
// queue that disappears with the connection.
type RabbitMQConfig struct {
	URL             string
	Queue           string
	QueueDurable    bool
	QueueAutoDelete bool
	PrefetchCount   int
}

type PubSubConfig struct {
	ProjectID          string
	CredentialsFile    string
	SubscriptionSuffix string
}

// ClientConfig configures the editor-side client commands.
type ClientConfig struct {
	APIURL     string
	SessionDir string
}

type LogConfig struct {
	Level  string
	Format string
}

func LoadConfig() Config {
	if os.Getenv("ENV") == "dev" {
		godotenv.Load()
	}

	dbConfig := DatabaseConfig{
		Host:     getEnv("DB_HOST", "localhost"),
		Port:     getEnvInt("DB_PORT", 5432),
		User:     getEnv("DB_USER", "uimarket"),
		Password: getEnv("DB_PASSWORD", "password"),
		DBName:   getEnv("DB_NAME", "uimarket"),
		UseSSL:   getEnvBool("DB_USE_SSL", false),
	}

	authConfig := AuthConfig{
		JWTSecret:  strings.TrimSpace(getEnv("JWT_SECRET", "")),
		TokenTTL:   getEnvDuration("JWT_EXPIRES_IN", 7*24*time.Hour),
		BcryptCost: getEnvInt("BCRYPT_COST", bcrypt.DefaultCost),
	}

	storageConfig := StorageConfig{
		Backend: getEnv("STORAGE_BACKEND", StorageBackendMinio),
		Minio: MinioConfig{
			Endpoint:  getEnv("MINIO_ENDPOINT", "localhost:9000"),
			AccessKey: getEnv("MINIO_ACCESS_KEY", ""),
			SecretKey: getEnv("MINIO_SECRET_KEY", ""),
			Bucket:    getEnv("MINIO_BUCKET", "uimarket"),
			UseSSL:    getEnvBool("MINIO_USE_SSL", false),
		},
		GCS: GCSConfig{
			Bucket:          getEnv("GCS_BUCKET", ""),
			ProjectID:       getEnv("GCS_PROJECT_ID", ""),
			CredentialsFile: getEnv("GCS_CREDENTIALS_FILE", ""),
		},
		S3: S3Config{
			Region:    getEnv("S3_REGION", "us-east-1"),
			Endpoint:  getEnv("S3_ENDPOINT", ""),
			AccessKey: getEnv("S3_ACCESS_KEY", ""),
			SecretKey: getEnv("S3_SECRET_KEY", ""),
			Bucket:    getEnv("S3_BUCKET", ""),
		},
	}

	mqConfig := MQConfig{
		Backend: getEnv("MQ_BACKEND", ""),
		Channel: getEnv("EVENTS_CHANNEL", "uimarket.events"),
		RabbitMQ: RabbitMQConfig{
			URL:             getEnv("RABBITMQ_URL", ""),
			Queue:           getEnv("RABBITMQ_QUEUE", ""),
			QueueDurable:    getEnvBool("RABBITMQ_QUEUE_DURABLE", true),
			QueueAutoDelete: getEnvBool("RABBITMQ_QUEUE_AUTO_DELETE", false),
			PrefetchCount:   getEnvInt("RABBITMQ_PREFETCH", 10),
		},
		PubSub: PubSubConfig{
			ProjectID:          getEnv("PUBSUB_PROJECT_ID", ""),
			CredentialsFile:    getEnv("PUBSUB_CREDENTIALS_FILE", ""),
			SubscriptionSuffix: getEnv("PUBSUB_SUBSCRIPTION_SUFFIX", "-sub"),
		},
	}

	return Config{
		ServerPort:   getEnvInt("SERVER_PORT", 8080),
		StoreBackend: getEnv("STORE_BACKEND", StoreBackendPostgres),
		Database:     dbConfig,
		Auth:         authConfig,
		CORS:         CORSConfig{AllowedOrigins: getEnvList("CORS_ALLOWED_ORIGINS", []string{"*"})},
		Redis:        RedisConfig{URL: getEnv("REDIS_URL", "")},
		Storage:      storageConfig,
		MQ:           mqConfig,
		Client: ClientConfig{
			APIURL:     strings.TrimSpace(getEnv("UIMARKET_API_URL", "")),
			SessionDir: getEnv("UIMARKET_SESSION_DIR", ""),
		},
		Log: LogConfig{
			Level:  getEnv("LOG_LEVEL", "info"),
			Format: getEnv("LOG_FORMAT", "text"),
		},
	}
}

// Validate checks the settings the server cannot run without.
func (c Config) Validate() error {
	if c.Auth.JWTSecret == "" {
		return errors.New("JWT_SECRET is required")
	}
	if c.Auth.TokenTTL <= 0 {
		return errors.New("JWT_EXPIRES_IN must be positive")
	}
	if c.Auth.BcryptCost < bcrypt.MinCost || c.Auth.BcryptCost > bcrypt.MaxCost {
		return fmt.Errorf("BCRYPT_COST must be between %d and %d", bcrypt.MinCost, bcrypt.MaxCost)
	}
	switch c.StoreBackend {
	case StoreBackendPostgres, StoreBackendMemory:
	default:
		return fmt.Errorf("unknown STORE_BACKEND %q", c.StoreBackend)
	}
	switch c.MQ.Backend {
	case "", MQBackendRabbitMQ, MQBackendPubSub:
	default:
		return fmt.Errorf("unknown MQ_BACKEND %q", c.MQ.Backend)
	}
	return nil
}

// ValidateClient checks the settings the client commands need.
func (c Config) ValidateClient() error {
	if c.Client.APIURL == "" {
		return errors.New("UIMARKET_API_URL is required")
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if valueStr, exists := os.LookupEnv(key); exists {
		value, err := strconv.Atoi(strings.TrimSpace(valueStr))
		if err != nil {
			return defaultValue
		}
		return value
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if valueStr, exists := os.LookupEnv(key); exists {
		value, err := strconv.ParseBool(strings.TrimSpace(valueStr))
		if err != nil {
			return defaultValue
		}
		return value
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if valueStr, exists := os.LookupEnv(key); exists {
		value, err := time.ParseDuration(strings.TrimSpace(valueStr))
		if err != nil {
			return 0
		}
		return value
	}
	return defaultValue
}

func getEnvList(key string, defaultValue []string) []string {
	valueStr, exists := os.LookupEnv(key)
	if !exists || strings.TrimSpace(valueStr) == "" {
		return defaultValue
	}
	parts := strings.Split(valueStr, ",")
	values := make([]string, 0, len(parts))
	for _, part := range parts {
		if part = strings.TrimSpace(part); part != "" {
			values = append(values, part)
		}
	}
	return values
}
