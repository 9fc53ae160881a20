package infra

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config represents application configuration loaded from environment variables.
type Config struct {
	AppEnv             string
	Port               string
	DatabaseURL        string
	MetadataBackend    string
	SupabaseURL        string
	SupabaseServiceKey string
	StorageBackend     string
	StorageBucket      string
	S3Endpoint         string
	S3Region           string
	S3AccessKeyID      string
	S3SecretAccessKey  string
	S3PublicBaseURL    string
	S3ForcePathStyle   bool
	LocalMirrorPath    string
	TempDir            string
	MaxImageBytes      int64
	EffectDeadline     time.Duration
	AILabBaseURL       string
	LightXBaseURL      string
	GeminiBaseURL      string
	GeminiModel        string
	BFLBaseURL         string
	AsyncPollInterval  time.Duration
	AsyncPollAttempts  int
	SlowPollAttempts   int
	OrderPollInterval  time.Duration
	OrderPollAttempts  int
	AdminJWTSecret     string
	CORSAllowedOrigins []string
	ResendAPIKey       string
	EmailFrom          string
	GalleryBaseURL     string
	HTTPReadTimeout    time.Duration
	HTTPWriteTimeout   time.Duration
	HTTPIdleTimeout    time.Duration
	RateLimitPerMin    int
}

const (
	MetadataBackendPostgres = "postgres"
	MetadataBackendSupabase = "supabase"

	StorageBackendSupabase = "supabase"
	StorageBackendS3       = "s3"
	StorageBackendMemory   = "memory"

	defaultMaxImageBytes = 10 << 20
)

// LoadConfig loads configuration from environment variables and applies defaults where needed.
func LoadConfig() (*Config, error) {
	port := getEnv("PORT", "8080")
	cfg := &Config{
		AppEnv:             getEnv("APP_ENV", "development"),
		Port:               port,
		DatabaseURL:        os.Getenv("DATABASE_URL"),
		MetadataBackend:    strings.ToLower(getEnv("METADATA_BACKEND", MetadataBackendPostgres)),
		SupabaseURL:        strings.TrimRight(os.Getenv("SUPABASE_URL"), "/"),
		SupabaseServiceKey: os.Getenv("SUPABASE_SERVICE_KEY"),
		StorageBackend:     strings.ToLower(getEnv("STORAGE_BACKEND", StorageBackendSupabase)),
		StorageBucket:      getEnv("STORAGE_BUCKET", "photos"),
		S3Endpoint:         os.Getenv("S3_ENDPOINT"),
		S3Region:           getEnv("S3_REGION", "auto"),
		S3AccessKeyID:      os.Getenv("S3_ACCESS_KEY_ID"),
		S3SecretAccessKey:  os.Getenv("S3_SECRET_ACCESS_KEY"),
		S3PublicBaseURL:    strings.TrimRight(os.Getenv("S3_PUBLIC_BASE_URL"), "/"),
		S3ForcePathStyle:   getEnvBool("S3_FORCE_PATH_STYLE", false),
		LocalMirrorPath:    getEnv("LOCAL_MIRROR_PATH", "./storage"),
		TempDir:            getEnv("TEMP_DIR", os.TempDir()),
		MaxImageBytes:      int64(getEnvInt("MAX_IMAGE_BYTES", defaultMaxImageBytes)),
		EffectDeadline:     time.Second * time.Duration(getEnvInt("EFFECT_DEADLINE_SECONDS", 120)),
		AILabBaseURL:       getEnv("AILAB_BASE_URL", "https://www.ailabapi.com"),
		LightXBaseURL:      getEnv("LIGHTX_BASE_URL", "https://api.lightxeditor.com/external/api"),
		GeminiBaseURL:      getEnv("GEMINI_BASE_URL", "https://generativelanguage.googleapis.com/v1beta"),
		GeminiModel:        getEnv("GEMINI_MODEL", "gemini-2.5-flash-image"),
		BFLBaseURL:         getEnv("BFL_BASE_URL", "https://api.bfl.ai/v1"),
		AsyncPollInterval:  time.Millisecond * time.Duration(getEnvInt("ASYNC_POLL_INTERVAL_MS", 500)),
		AsyncPollAttempts:  getEnvInt("ASYNC_POLL_ATTEMPTS", 20),
		SlowPollAttempts:   getEnvInt("SLOW_POLL_ATTEMPTS", 100),
		OrderPollInterval:  time.Millisecond * time.Duration(getEnvInt("ORDER_POLL_INTERVAL_MS", 5000)),
		OrderPollAttempts:  getEnvInt("ORDER_POLL_ATTEMPTS", 10),
		AdminJWTSecret:     os.Getenv("ADMIN_JWT_SECRET"),
		CORSAllowedOrigins: splitList(getEnv("CORS_ALLOWED_ORIGINS", "http://localhost:5173")),
		ResendAPIKey:       os.Getenv("RESEND_API_KEY"),
		EmailFrom:          getEnv("EMAIL_FROM", "Photobooth <photos@example.com>"),
		GalleryBaseURL:     strings.TrimRight(getEnv("GALLERY_BASE_URL", "http://localhost:"+port+"/gallery"), "/"),
		HTTPReadTimeout:    time.Second * time.Duration(getEnvInt("HTTP_READ_TIMEOUT_SECONDS", 15)),
		HTTPWriteTimeout:   time.Second * time.Duration(getEnvInt("HTTP_WRITE_TIMEOUT_SECONDS", 180)),
		HTTPIdleTimeout:    time.Second * time.Duration(getEnvInt("HTTP_IDLE_TIMEOUT_SECONDS", 60)),
		RateLimitPerMin:    getEnvInt("RATE_LIMIT_PER_MINUTE", 30),
	}

	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}

	switch cfg.MetadataBackend {
	case MetadataBackendPostgres:
	case MetadataBackendSupabase:
		if cfg.SupabaseURL == "" || cfg.SupabaseServiceKey == "" {
			return nil, fmt.Errorf("SUPABASE_URL and SUPABASE_SERVICE_KEY are required for the supabase metadata backend")
		}
	default:
		return nil, fmt.Errorf("unsupported METADATA_BACKEND %q", cfg.MetadataBackend)
	}

	switch cfg.StorageBackend {
	case StorageBackendSupabase:
		if cfg.SupabaseURL == "" || cfg.SupabaseServiceKey == "" {
			return nil, fmt.Errorf("SUPABASE_URL and SUPABASE_SERVICE_KEY are required for the supabase storage backend")
		}
	case StorageBackendS3:
		if cfg.S3PublicBaseURL == "" {
			return nil, fmt.Errorf("S3_PUBLIC_BASE_URL is required for the s3 storage backend")
		}
	case StorageBackendMemory:
	default:
		return nil, fmt.Errorf("unsupported STORAGE_BACKEND %q", cfg.StorageBackend)
	}

	if cfg.MaxImageBytes <= 0 {
		cfg.MaxImageBytes = defaultMaxImageBytes
	}

	return cfg, nil
}

func getEnv(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
