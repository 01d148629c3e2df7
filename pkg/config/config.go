package config

import (
	"errors"
	"io/fs"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	EnvDevelopment = "development"
	EnvProduction  = "production"
)

// Blob backends supported by the archive server.
const (
	BlobBackendLocal = "local"
	BlobBackendS3    = "s3"
)

type Config struct {
	Env           string
	Port          int
	APIPrefix     string
	PublicBaseURL string

	Database   DatabaseConfig
	Redis      RedisConfig
	CORS       CORSConfig
	Log        LogConfig
	Blobs      BlobsConfig
	S3         S3Config
	QueryCache QueryCacheConfig
	Exports    ExportsConfig
	Client     ClientConfig
}

type DatabaseConfig struct {
	Host         string
	Port         int
	User         string
	Password     string
	Name         string
	SSLMode      string
	MaxOpenConns int
	MaxIdleConns int
}

type RedisConfig struct {
	Enabled  bool
	Host     string
	Port     int
	Password string
	DB       int
}

type CORSConfig struct {
	AllowedOrigins []string
}

type LogConfig struct {
	Level  string
	Format string
}

// BlobsConfig selects and tunes the blob backend.
type BlobsConfig struct {
	Backend      string
	StorageDir   string
	MaxBodyBytes int64
}

// S3Config holds bucket settings for the s3 blob backend.
type S3Config struct {
	Bucket     string
	Region     string
	Endpoint   string
	PublicRead bool
}

// QueryCacheConfig governs caching of record store query results.
type QueryCacheConfig struct {
	Enabled   bool
	TTL       time.Duration
	LocalSize int
}

// ExportsConfig configures asynchronous catalog exports.
type ExportsConfig struct {
	Enabled           bool
	StorageDir        string
	SignedURLSecret   string
	SignedURLTTL      time.Duration
	CleanupInterval   time.Duration
	WorkerConcurrency int
}

// ClientConfig is read by archivectl.
type ClientConfig struct {
	ServerURL   string
	APIPrefix   string
	TokenFile   string
	HTTPTimeout time.Duration
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.SetConfigFile(".env")
	v.SetConfigType("env")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !errors.Is(err, fs.ErrNotExist) {
			return nil, err
		}
	}

	cfg := &Config{}

	cfg.Env = v.GetString("ENV")
	cfg.Port = v.GetInt("PORT")
	cfg.APIPrefix = v.GetString("API_PREFIX")
	cfg.PublicBaseURL = strings.TrimRight(v.GetString("PUBLIC_BASE_URL"), "/")

	cfg.Database = DatabaseConfig{
		Host:         v.GetString("DB_HOST"),
		Port:         v.GetInt("DB_PORT"),
		User:         v.GetString("DB_USER"),
		Password:     v.GetString("DB_PASSWORD"),
		Name:         v.GetString("DB_NAME"),
		SSLMode:      v.GetString("DB_SSL_MODE"),
		MaxOpenConns: v.GetInt("DB_MAX_OPEN_CONNS"),
		MaxIdleConns: v.GetInt("DB_MAX_IDLE_CONNS"),
	}

	cfg.Redis = RedisConfig{
		Enabled:  v.GetBool("REDIS_ENABLED"),
		Host:     v.GetString("REDIS_HOST"),
		Port:     v.GetInt("REDIS_PORT"),
		Password: v.GetString("REDIS_PASSWORD"),
		DB:       v.GetInt("REDIS_DB"),
	}

	cfg.CORS = CORSConfig{AllowedOrigins: splitAndTrim(v.GetString("ALLOWED_ORIGINS"))}

	cfg.Log = LogConfig{
		Level:  v.GetString("LOG_LEVEL"),
		Format: v.GetString("LOG_FORMAT"),
	}

	maxBody := v.GetInt64("BLOBS_MAX_BODY_BYTES")
	if maxBody <= 0 {
		maxBody = 64 * 1024 * 1024
	}
	cfg.Blobs = BlobsConfig{
		Backend:      strings.ToLower(v.GetString("BLOBS_BACKEND")),
		StorageDir:   v.GetString("BLOBS_STORAGE_DIR"),
		MaxBodyBytes: maxBody,
	}

	cfg.S3 = S3Config{
		Bucket:     v.GetString("S3_BUCKET"),
		Region:     v.GetString("S3_REGION"),
		Endpoint:   strings.TrimRight(v.GetString("S3_ENDPOINT"), "/"),
		PublicRead: v.GetBool("S3_PUBLIC_READ"),
	}

	cfg.QueryCache = QueryCacheConfig{
		Enabled:   v.GetBool("QUERY_CACHE_ENABLED"),
		TTL:       parseDuration(v.GetString("QUERY_CACHE_TTL"), 30*time.Second),
		LocalSize: v.GetInt("QUERY_CACHE_LOCAL_SIZE"),
	}

	cfg.Exports = ExportsConfig{
		Enabled:           v.GetBool("ENABLE_EXPORTS"),
		StorageDir:        v.GetString("EXPORTS_STORAGE_DIR"),
		SignedURLSecret:   v.GetString("EXPORTS_SIGNED_URL_SECRET"),
		SignedURLTTL:      parseDuration(v.GetString("EXPORTS_SIGNED_URL_TTL"), 24*time.Hour),
		CleanupInterval:   parseDuration(v.GetString("EXPORTS_CLEANUP_INTERVAL"), time.Hour),
		WorkerConcurrency: v.GetInt("EXPORTS_WORKER_CONCURRENCY"),
	}

	cfg.Client = ClientConfig{
		ServerURL:   strings.TrimRight(v.GetString("ARCHIVE_SERVER_URL"), "/"),
		APIPrefix:   v.GetString("ARCHIVE_API_PREFIX"),
		TokenFile:   v.GetString("ARCHIVE_TOKEN_FILE"),
		HTTPTimeout: parseDuration(v.GetString("ARCHIVE_HTTP_TIMEOUT"), 15*time.Second),
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("ENV", EnvDevelopment)
	v.SetDefault("PORT", 8080)
	v.SetDefault("API_PREFIX", "/api/v1")
	v.SetDefault("PUBLIC_BASE_URL", "http://localhost:8080")

	v.SetDefault("DB_HOST", "localhost")
	v.SetDefault("DB_PORT", 5432)
	v.SetDefault("DB_USER", "postgres")
	v.SetDefault("DB_PASSWORD", "postgres")
	v.SetDefault("DB_NAME", "community_archive")
	v.SetDefault("DB_SSL_MODE", "disable")
	v.SetDefault("DB_MAX_OPEN_CONNS", 10)
	v.SetDefault("DB_MAX_IDLE_CONNS", 5)

	v.SetDefault("REDIS_ENABLED", false)
	v.SetDefault("REDIS_HOST", "localhost")
	v.SetDefault("REDIS_PORT", 6379)
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("REDIS_DB", 0)

	v.SetDefault("ALLOWED_ORIGINS", "")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "json")

	v.SetDefault("BLOBS_BACKEND", BlobBackendLocal)
	v.SetDefault("BLOBS_STORAGE_DIR", "./blobs")
	v.SetDefault("BLOBS_MAX_BODY_BYTES", 64*1024*1024)

	v.SetDefault("S3_BUCKET", "")
	v.SetDefault("S3_REGION", "us-east-1")
	v.SetDefault("S3_ENDPOINT", "")
	v.SetDefault("S3_PUBLIC_READ", false)

	v.SetDefault("QUERY_CACHE_ENABLED", true)
	v.SetDefault("QUERY_CACHE_TTL", "30s")
	v.SetDefault("QUERY_CACHE_LOCAL_SIZE", 64)

	v.SetDefault("ENABLE_EXPORTS", false)
	v.SetDefault("EXPORTS_STORAGE_DIR", "./exports")
	v.SetDefault("EXPORTS_SIGNED_URL_SECRET", "dev_exports_secret")
	v.SetDefault("EXPORTS_SIGNED_URL_TTL", "24h")
	v.SetDefault("EXPORTS_CLEANUP_INTERVAL", "1h")
	v.SetDefault("EXPORTS_WORKER_CONCURRENCY", 1)

	v.SetDefault("ARCHIVE_SERVER_URL", "http://localhost:8080")
	v.SetDefault("ARCHIVE_API_PREFIX", "/api/v1")
	v.SetDefault("ARCHIVE_TOKEN_FILE", "")
	v.SetDefault("ARCHIVE_HTTP_TIMEOUT", "15s")
}

func parseDuration(raw string, fallback time.Duration) time.Duration {
	if raw == "" {
		return fallback
	}

	d, err := time.ParseDuration(raw)
	if err != nil {
		return fallback
	}

	return d
}

func splitAndTrim(raw string) []string {
	if raw == "" {
		return nil
	}

	parts := strings.Split(raw, ",")
	result := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			result = append(result, trimmed)
		}
	}

	return result
}
