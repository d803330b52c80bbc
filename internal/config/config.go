package config

import (
	"log"
	"net/http"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/cors"
)

type S3Config struct {
	AccountID       string
	AccessKeyID     string
	SecretAccessKey string
	BucketName      string
	Region          string
	Endpoint        string
}

type StorageConfig struct {
	Backend  string // "disk" or "s3"
	DiskRoot string
	S3       S3Config
}

type Config struct {
	DBURL       string
	Port        string
	JWTSecret   string
	Environment string
	CorsConfig  cors.Options

	Storage StorageConfig

	// OwnerBypassExpiry lets a file's owner read it past expiry. Default off:
	// expired files are 410 Gone for everyone, owner included.
	OwnerBypassExpiry bool

	SweepInterval  time.Duration
	MaxUploadBytes int64
	FrontendURL    string
	ShareBaseURL   string
}

var Envs = initConfig()

func initConfig() Config {
	envFile := os.Getenv("ENV_FILE")
	if envFile == "" {
		envFile = ".env"
	}
	if err := godotenv.Load(envFile); err != nil {
		log.Println("No", envFile, "file found")
	}

	return Config{
		DBURL:       getEnv("DB_URL", ""),
		Port:        getEnv("PORT", "8080"),
		JWTSecret:   getEnv("JWT_SECRET", "not-so-secret-now-is-it?"),
		Environment: getEnv("ENV", "development"),
		CorsConfig:  CorsConfig(),
		Storage: StorageConfig{
			Backend:  getEnv("STORAGE_BACKEND", "disk"),
			DiskRoot: getEnv("STORAGE_DISK_ROOT", "uploads"),
			S3: S3Config{
				AccountID:       getEnv("S3_ACCOUNT_ID", ""),
				AccessKeyID:     getEnv("S3_ACCESS_KEY_ID", ""),
				SecretAccessKey: getEnv("S3_SECRET_ACCESS_KEY", ""),
				BucketName:      getEnv("S3_BUCKET_NAME", ""),
				Region:          getEnv("S3_REGION", "auto"),
				Endpoint:        getEnv("S3_ENDPOINT", ""),
			},
		},
		OwnerBypassExpiry: getEnvBool("OWNER_BYPASS_EXPIRY", false),
		SweepInterval:     getEnvDuration("SWEEP_INTERVAL", 10*time.Minute),
		MaxUploadBytes:    getEnvInt64("MAX_UPLOAD_BYTES", 100<<20),
		FrontendURL:       getEnv("FRONTEND_URL", "http://localhost:5173"),
		ShareBaseURL:      getEnv("SHARE_BASE_URL", "http://localhost:5173/share"),
	}
}

// Gets the env by key or fallbacks
func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if value, ok := os.LookupEnv(key); ok {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return fallback
}

func getEnvInt64(key string, fallback int64) int64 {
	if value, ok := os.LookupEnv(key); ok {
		if n, err := strconv.ParseInt(value, 10, 64); err == nil {
			return n
		}
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if value, ok := os.LookupEnv(key); ok {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return fallback
}

func CorsConfig() cors.Options {
	return cors.Options{
		AllowedOrigins:   []string{"http://localhost:5173"},
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete, http.MethodOptions},
		AllowedHeaders:   []string{"*"},
		AllowCredentials: true,
	}
}
