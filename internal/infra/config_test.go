package infra

import (
	"testing"
	"time"
)

func setSupabaseEnv(t *testing.T) {
	t.Helper()
	t.Setenv("DATABASE_URL", "postgres://example")
	t.Setenv("SUPABASE_URL", "https://project.supabase.co/")
	t.Setenv("SUPABASE_SERVICE_KEY", "service-key")
}

func TestLoadConfigDefaults(t *testing.T) {
	setSupabaseEnv(t)
	t.Setenv("PORT", "")
	t.Setenv("MAX_IMAGE_BYTES", "")
	t.Setenv("GALLERY_BASE_URL", "")

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig returned error: %v", err)
	}
	if cfg.MaxImageBytes != 10<<20 {
		t.Fatalf("MaxImageBytes = %d, want %d", cfg.MaxImageBytes, 10<<20)
	}
	if cfg.SupabaseURL != "https://project.supabase.co" {
		t.Fatalf("SupabaseURL = %q", cfg.SupabaseURL)
	}
	if cfg.AsyncPollInterval != 500*time.Millisecond || cfg.AsyncPollAttempts != 20 {
		t.Fatalf("async poll = %s x %d", cfg.AsyncPollInterval, cfg.AsyncPollAttempts)
	}
	if cfg.OrderPollInterval != 5*time.Second || cfg.OrderPollAttempts != 10 {
		t.Fatalf("order poll = %s x %d", cfg.OrderPollInterval, cfg.OrderPollAttempts)
	}
	if cfg.GalleryBaseURL != "http://localhost:8080/gallery" {
		t.Fatalf("GalleryBaseURL = %q", cfg.GalleryBaseURL)
	}
}

func TestLoadConfigRequiresDatabaseURL(t *testing.T) {
	setSupabaseEnv(t)
	t.Setenv("DATABASE_URL", "")
	if _, err := LoadConfig(); err == nil {
		t.Fatal("expected error when DATABASE_URL is missing")
	}
}

func TestLoadConfigS3RequiresPublicBaseURL(t *testing.T) {
	setSupabaseEnv(t)
	t.Setenv("STORAGE_BACKEND", "s3")
	t.Setenv("S3_PUBLIC_BASE_URL", "")
	if _, err := LoadConfig(); err == nil {
		t.Fatal("expected error when S3_PUBLIC_BASE_URL is missing")
	}

	t.Setenv("S3_PUBLIC_BASE_URL", "https://cdn.example.com/photos/")
	t.Setenv("S3_FORCE_PATH_STYLE", "true")
	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig returned error: %v", err)
	}
	if cfg.S3PublicBaseURL != "https://cdn.example.com/photos" || !cfg.S3ForcePathStyle {
		t.Fatalf("unexpected s3 config: %q %v", cfg.S3PublicBaseURL, cfg.S3ForcePathStyle)
	}
}

func TestLoadConfigRejectsUnknownMetadataBackend(t *testing.T) {
	setSupabaseEnv(t)
	t.Setenv("METADATA_BACKEND", "mongo")
	if _, err := LoadConfig(); err == nil {
		t.Fatal("expected error for unsupported metadata backend")
	}
}

func TestLoadConfigSplitsOrigins(t *testing.T) {
	setSupabaseEnv(t)
	t.Setenv("CORS_ALLOWED_ORIGINS", " http://kiosk-1:5173, ,http://kiosk-2:5173 ")
	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig returned error: %v", err)
	}
	want := []string{"http://kiosk-1:5173", "http://kiosk-2:5173"}
	if len(cfg.CORSAllowedOrigins) != len(want) {
		t.Fatalf("origins = %#v, want %#v", cfg.CORSAllowedOrigins, want)
	}
	for i := range want {
		if cfg.CORSAllowedOrigins[i] != want[i] {
			t.Fatalf("origins[%d] = %q, want %q", i, cfg.CORSAllowedOrigins[i], want[i])
		}
	}
}
