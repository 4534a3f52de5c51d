package config

import (
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all configuration for the application
type Config struct {
	App       AppConfig
	DB        DBConfig
	Redis     RedisConfig
	JWT       JWTConfig
	MinIO     MinIOConfig
	CORS      CORSConfig
	Firebase  FirebaseConfig
	Push      PushConfig
	Matching  MatchingConfig
	Fanout    FanoutConfig
	Outbox    OutboxConfig
	Retention RetentionConfig
}

type AppConfig struct {
	Env      string
	Port     string
	LogLevel string
}

type DBConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	Name     string
	SSLMode  string
}

// DSN returns the PostgreSQL connection string
func (d DBConfig) DSN() string {
	return "host=" + d.Host +
		" user=" + d.User +
		" password=" + d.Password +
		" dbname=" + d.Name +
		" port=" + d.Port +
		" sslmode=" + d.SSLMode +
		" TimeZone=UTC"
}

// URL returns the PostgreSQL connection URL (for golang-migrate)
func (d DBConfig) URL() string {
	return "postgres://" + d.User + ":" + d.Password +
		"@" + d.Host + ":" + d.Port +
		"/" + d.Name + "?sslmode=" + d.SSLMode
}

type RedisConfig struct {
	Host     string
	Port     string
	Password string
}

// Addr returns the Redis address
func (r RedisConfig) Addr() string {
	return r.Host + ":" + r.Port
}

type JWTConfig struct {
	Secret string
	Expiry time.Duration
}

type MinIOConfig struct {
	Endpoint  string
	PublicURL string
	AccessKey string
	SecretKey string
	Bucket    string
	UseSSL    bool
}

type CORSConfig struct {
	Origins []string
}

// FirebaseConfig points at the service account used for FCM.
// CredentialsJSON wins over CredentialsFile when both are set.
type FirebaseConfig struct {
	CredentialsFile string
	CredentialsJSON string
}

type PushConfig struct {
	ChunkSize int
}

type MatchingConfig struct {
	Threshold  int
	WindowDays int
}

type FanoutConfig struct {
	Workers int
}

type OutboxConfig struct {
	PollInterval time.Duration
	BatchSize    int
	MaxAttempts  int
	Lease        time.Duration
}

type RetentionConfig struct {
	MaxAge        time.Duration
	SweepInterval time.Duration
}

// Load reads configuration from .env file and environment variables
func Load() *Config {
	// Load .env file (ignore error if not exists - e.g. in Docker)
	if err := godotenv.Load(); err != nil {
		log.Println("⚠️  No .env file found, reading from environment variables")
	}

	return &Config{
		App: AppConfig{
			Env:      getEnv("APP_ENV", "development"),
			Port:     getEnv("APP_PORT", "8080"),
			LogLevel: getEnv("LOG_LEVEL", "info"),
		},
		DB: DBConfig{
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnv("DB_PORT", "5432"),
			User:     getEnv("DB_USER", "lostfound"),
			Password: getEnv("DB_PASSWORD", "lostfound"),
			Name:     getEnv("DB_NAME", "lostfound"),
			SSLMode:  getEnv("DB_SSLMODE", "disable"),
		},
		Redis: RedisConfig{
			Host:     getEnv("REDIS_HOST", "localhost"),
			Port:     getEnv("REDIS_PORT", "6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
		},
		JWT: JWTConfig{
			Secret: getEnv("JWT_SECRET", "default-secret"),
			Expiry: getDuration("JWT_EXPIRY", 24*time.Hour),
		},
		MinIO: MinIOConfig{
			Endpoint:  getEnv("MINIO_ENDPOINT", "localhost:9000"),
			PublicURL: getEnv("MINIO_PUBLIC_URL", ""),
			AccessKey: getEnv("MINIO_ACCESS_KEY", "minioadmin"),
			SecretKey: getEnv("MINIO_SECRET_KEY", "minioadmin"),
			Bucket:    getEnv("MINIO_BUCKET", "lostfound-items"),
			UseSSL:    getEnv("MINIO_USE_SSL", "false") == "true",
		},
		CORS: CORSConfig{
			Origins: strings.Split(getEnv("CORS_ORIGINS", "http://localhost:3000"), ","),
		},
		Firebase: FirebaseConfig{
			CredentialsFile: getEnv("FIREBASE_CREDENTIALS_FILE", ""),
			CredentialsJSON: getEnv("FIREBASE_CREDENTIALS", ""),
		},
		Push: PushConfig{
			ChunkSize: getInt("PUSH_CHUNK_SIZE", 100),
		},
		Matching: MatchingConfig{
			Threshold:  getInt("MATCH_THRESHOLD", 80),
			WindowDays: getInt("MATCH_WINDOW_DAYS", 3),
		},
		Fanout: FanoutConfig{
			Workers: getInt("FANOUT_WORKERS", 8),
		},
		Outbox: OutboxConfig{
			PollInterval: getDuration("OUTBOX_POLL_INTERVAL", 2*time.Second),
			BatchSize:    getInt("OUTBOX_BATCH_SIZE", 20),
			MaxAttempts:  getInt("OUTBOX_MAX_ATTEMPTS", 8),
			Lease:        getDuration("OUTBOX_LEASE", 30*time.Second),
		},
		Retention: RetentionConfig{
			MaxAge:        getDuration("NOTIFICATION_MAX_AGE", 30*24*time.Hour),
			SweepInterval: getDuration("NOTIFICATION_SWEEP_INTERVAL", time.Hour),
		},
	}
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

func getInt(key string, fallback int) int {
	n, err := strconv.Atoi(getEnv(key, ""))
	if err != nil || n <= 0 {
		return fallback
	}
	return n
}

func getDuration(key string, fallback time.Duration) time.Duration {
	d, err := time.ParseDuration(getEnv(key, ""))
	if err != nil || d <= 0 {
		return fallback
	}
	return d
}
