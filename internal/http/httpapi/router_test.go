package httpapi

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"photobooth/internal/http/handlers"
	"photobooth/internal/middleware"
)

func newTestRouter() http.Handler {
	app := handlers.NewApp(handlers.Options{})
	return NewRouter(app, Options{
		Logger:             zerolog.Nop(),
		CORSAllowedOrigins: []string{"http://kiosk.local"},
		AdminJWTSecret:     "admin-secret",
		RateLimitPerMin:    1,
	})
}

func TestHealthAndRequestID(t *testing.T) {
	rec := httptest.NewRecorder()
	newTestRouter().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/healthz", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if rec.Header().Get("X-Request-ID") == "" {
		t.Fatalf("expected X-Request-ID header")
	}
}

func TestAdminRoutesRequireToken(t *testing.T) {
	router := newTestRouter()
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/admin/effects/abc", nil))
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status without token = %d", rec.Code)
	}

	token, err := middleware.SignAdminToken("admin-secret", "ops", time.Hour)
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	req := httptest.NewRequest(http.MethodGet, "/admin/effects/abc", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	// past auth, the handler rejects the non-numeric id
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status with token = %d", rec.Code)
	}
}

func TestCORSPreflight(t *testing.T) {
	req := httptest.NewRequest(http.MethodOptions, "/apply-effects", nil)
	req.Header.Set("Origin", "http://kiosk.local")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	rec := httptest.NewRecorder()
	newTestRouter().ServeHTTP(rec, req)
	if got := rec.Header().Get("Access-Control-Allow-Origin"); got != "http://kiosk.local" {
		t.Fatalf("allow origin = %q", got)
	}
}

func TestApplyEffectsRateLimited(t *testing.T) {
	router := newTestRouter()
	codes := make([]int, 0, 2)
	for i := 0; i < 2; i++ {
		req := httptest.NewRequest(http.MethodPost, "/apply-effects", nil)
		req.RemoteAddr = "203.0.113.9:4000"
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)
		codes = append(codes, rec.Code)
	}
	// the first request fails validation, the second never reaches the handler
	if codes[0] != http.StatusBadRequest || codes[1] != http.StatusTooManyRequests {
		t.Fatalf("codes = %v", codes)
	}
}
