package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	Database DatabaseConfig
	Server   ServerConfig
	JWT      JWTConfig
	Auth     AuthConfig
	Redis    RedisConfig
	AWS      AWSConfig
	Logging  LoggingConfig
	CORS     CORSConfig
	Workflow WorkflowConfig
}

type DatabaseConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	DBName   string
	SSLMode  string
}

type ServerConfig struct {
	Port string
	// PublicURL is used in notification emails to link back to the console.
	PublicURL string
}

type JWTConfig struct {
	SigningKey string
	Issuer     string
	Expiry     time.Duration
}

type AuthConfig struct {
	RefreshExpiry time.Duration
	BcryptCost    int
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

type AWSConfig struct {
	Region          string
	AccessKeyID     string
	SecretAccessKey string
	EndpointURL     string // localstack
	Bucket          string
	FromEmail       string
	PresignExpiry   time.Duration
}

type LoggingConfig struct {
	Level      string
	Format     string // text or json
	Filename   string
	MaxSize    int // megabytes
	MaxBackups int
	MaxAge     int // days
	Compress   bool
}

type CORSConfig struct {
	AllowedOrigins   []string
	AllowedMethods   []string
	AllowedHeaders   []string
	ExposedHeaders   []string
	AllowCredentials bool
	MaxAge           int
}

type WorkflowConfig struct {
	// FlowOverridesPath points at a YAML file of permit type -> flow.
	FlowOverridesPath string
	NotifyResidents   bool
}

func Load() *Config {
	return &Config{
		Database: DatabaseConfig{
			Host:     getEnv("POSTGRES_HOST", "localhost"),
			Port:     getEnv("POSTGRES_PORT", "5432"),
			User:     getEnv("POSTGRES_USER", "postgres"),
			Password: getEnv("POSTGRES_PASSWORD", ""),
			DBName:   getEnv("POSTGRES_DB", "postgres"),
			SSLMode:  getEnv("POSTGRES_SSL_MODE", "disable"),
		},
		Server: ServerConfig{
			Port:      getEnv("SERVER_PORT", "8080"),
			PublicURL: getEnv("PUBLIC_URL", "http://localhost:5173"),
		},
		JWT: JWTConfig{
			SigningKey: getEnv("JWT_SIGNING_KEY", "default-signing-key-change-in-production"),
			Issuer:     getEnv("JWT_ISSUER", "rwrt-admin"),
			Expiry:     getEnvDuration("JWT_EXPIRY", 15*time.Minute),
		},
		Auth: AuthConfig{
			RefreshExpiry: getEnvDuration("AUTH_REFRESH_EXPIRY", 7*24*time.Hour),
			BcryptCost:    getEnvInt("AUTH_BCRYPT_COST", 12),
		},
		Redis: RedisConfig{
			Addr:     getEnv("REDIS_ADDR", "localhost:6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvInt("REDIS_DB", 0),
		},
		AWS: AWSConfig{
			Region:          getEnv("AWS_REGION", "ap-southeast-3"),
			AccessKeyID:     getEnv("AWS_ACCESS_KEY_ID", ""),
			SecretAccessKey: getEnv("AWS_SECRET_ACCESS_KEY", ""),
			EndpointURL:     getEnv("AWS_ENDPOINT_URL", ""),
			Bucket:          getEnv("AWS_S3_BUCKET", "rwrt-uploads"),
			FromEmail:       getEnv("AWS_SES_FROM_EMAIL", "noreply@example.com"),
			PresignExpiry:   getEnvDuration("AWS_PRESIGN_EXPIRY", 15*time.Minute),
		},
		Logging: LoggingConfig{
			Level:      getEnv("LOG_LEVEL", "info"),
			Format:     getEnv("LOG_FORMAT", "text"),
			Filename:   getEnv("LOG_FILE", "logs/app.log"),
			MaxSize:    getEnvInt("LOG_MAX_SIZE", 100),
			MaxBackups: getEnvInt("LOG_MAX_BACKUPS", 3),
			MaxAge:     getEnvInt("LOG_MAX_AGE", 28),
			Compress:   getEnvBool("LOG_COMPRESS", true),
		},
		CORS: CORSConfig{
			AllowedOrigins:   getEnvList("CORS_ALLOWED_ORIGINS", []string{"http://localhost:5173"}),
			AllowedMethods:   []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"},
			AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
			ExposedHeaders:   []string{"X-Request-Id"},
			AllowCredentials: getEnvBool("CORS_ALLOW_CREDENTIALS", true),
			MaxAge:           getEnvInt("CORS_MAX_AGE", 300),
		},
		Workflow: WorkflowConfig{
			FlowOverridesPath: getEnv("PERMIT_FLOWS_FILE", ""),
			NotifyResidents:   getEnvBool("NOTIFY_RESIDENTS", true),
		},
	}
}

func (c *DatabaseConfig) ConnectionString() string {
	return fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.DBName, c.SSLMode,
	)
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}

// getEnvList splits a comma separated value, dropping empty entries.
func getEnvList(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	var out []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	if len(out) == 0 {
		return defaultValue
	}
	return out
}
