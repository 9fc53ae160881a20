package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"photobooth/internal/adapter/repo"
	"photobooth/internal/adapter/rest"
	"photobooth/internal/delivery"
	"photobooth/internal/domain"
	"photobooth/internal/effects"
	"photobooth/internal/http/handlers"
	httpapi "photobooth/internal/http/httpapi"
	"photobooth/internal/infra"
	"photobooth/internal/infra/credentials"
	"photobooth/internal/persist"
	"photobooth/internal/pipeline"
	provider "photobooth/internal/providers/effects"
	"photobooth/internal/providers/genai"
	"photobooth/internal/registry"
	"photobooth/internal/storage"
)

func main() {
	// .env is optional
	_ = godotenv.Load()

	cfg, err := infra.LoadConfig()
	if err != nil {
		panic(err)
	}
	logger := infra.NewLogger(cfg.AppEnv)

	ctx := context.Background()
	dbpool, err := infra.NewDBPool(ctx, cfg)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect database")
	}
	defer dbpool.Close()
	sqlRunner := infra.NewSQLRunner(dbpool, logger)

	var photos domain.PhotoRepository
	switch cfg.MetadataBackend {
	case infra.MetadataBackendSupabase:
		photos, err = rest.NewPhotoRepository(cfg.SupabaseURL, cfg.SupabaseServiceKey)
		if err != nil {
			logger.Fatal().Err(err).Msg("failed to init supabase metadata")
		}
	default:
		photos = repo.NewPhotoRepository(sqlRunner)
	}

	store, err := newObjectStore(ctx, cfg)
	if err != nil {
		logger.Fatal().Err(err).Str("backend", cfg.StorageBackend).Msg("failed to init object storage")
	}
	mirror, err := storage.NewFileStore(cfg.LocalMirrorPath)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to init local mirror")
	}

	// Vendor calls are bounded by the pipeline deadline, not the client.
	vendorClient := &http.Client{}

	editor, err := genai.NewClient(genai.Options{
		BaseURL:        cfg.GeminiBaseURL,
		Model:          cfg.GeminiModel,
		Logger:         &logger,
		RequestTimeout: cfg.EffectDeadline,
	})
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to init gemini client")
	}
	dispatcher, err := provider.NewDispatcher(provider.Options{
		HTTPClient:    vendorClient,
		Logger:        &logger,
		Store:         store,
		Editor:        editor,
		TempDir:       cfg.TempDir,
		AILabBaseURL:  cfg.AILabBaseURL,
		LightXBaseURL: cfg.LightXBaseURL,
		BFLBaseURL:    cfg.BFLBaseURL,
		AsyncPoll:     provider.PollPolicy{Interval: cfg.AsyncPollInterval, Attempts: cfg.AsyncPollAttempts},
		SlowPoll:      provider.PollPolicy{Interval: cfg.AsyncPollInterval, Attempts: cfg.SlowPollAttempts},
		OrderPoll:     provider.PollPolicy{Interval: cfg.OrderPollInterval, Attempts: cfg.OrderPollAttempts},
		FluxPoll:      provider.PollPolicy{Interval: cfg.AsyncPollInterval, Attempts: cfg.SlowPollAttempts},
	})
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to init effect providers")
	}

	catalog := registry.NewService(repo.NewEffectRepository(sqlRunner), repo.NewScreenRepository(sqlRunner), &logger)
	persister := persist.New(persist.Options{
		Store:    store,
		Photos:   photos,
		Mirror:   mirror,
		Logger:   &logger,
		MaxBytes: cfg.MaxImageBytes * 5,
	})
	pipe := pipeline.New(pipeline.Options{
		Resolver:      effects.NewRouter(catalog),
		Adapter:       dispatcher,
		Secrets:       credentials.NewStore(sqlRunner),
		Persister:     persister,
		HTTPClient:    vendorClient,
		Logger:        &logger,
		MaxImageBytes: cfg.MaxImageBytes,
		Deadline:      cfg.EffectDeadline,
	})

	links := delivery.NewLinks(cfg.GalleryBaseURL)
	app := handlers.NewApp(handlers.Options{
		Pipeline:      pipe,
		Saver:         persister,
		Catalog:       catalog,
		Photos:        photos,
		Mailer:        delivery.NewMailer(cfg.ResendAPIKey, cfg.EmailFrom, links, &logger),
		Links:         links,
		Logger:        &logger,
		MaxImageBytes: cfg.MaxImageBytes,
	})
	router := httpapi.NewRouter(app, httpapi.Options{
		Logger:             logger,
		CORSAllowedOrigins: cfg.CORSAllowedOrigins,
		AdminJWTSecret:     cfg.AdminJWTSecret,
		RateLimitPerMin:    cfg.RateLimitPerMin,
		SlowRequest:        cfg.EffectDeadline / 2,
	})
	if cfg.AdminJWTSecret == "" {
		logger.Warn().Msg("ADMIN_JWT_SECRET is empty, admin routes are disabled")
	}

	server := infra.NewHTTPServer(cfg, router)

	go func() {
		logger.Info().Str("storage", cfg.StorageBackend).Str("metadata", cfg.MetadataBackend).Msgf("API listening on :%s", cfg.Port)
		if err := server.Start(); err != nil {
			logger.Fatal().Err(err).Msg("http server failed")
		}
	}()

	// Graceful shutdown
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTPIdleTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("failed to shutdown server")
	}
	drained := make(chan struct{})
	go func() {
		persister.Wait()
		close(drained)
	}()
	select {
	case <-drained:
	case <-time.After(10 * time.Second):
		logger.Warn().Msg("local mirror writes still pending at exit")
	}
	logger.Info().Msg("server stopped")
}

func newObjectStore(ctx context.Context, cfg *infra.Config) (domain.ObjectStore, error) {
	switch cfg.StorageBackend {
	case infra.StorageBackendS3:
		return storage.NewS3Store(ctx, storage.S3Config{
			Endpoint:        cfg.S3Endpoint,
			Region:          cfg.S3Region,
			AccessKeyID:     cfg.S3AccessKeyID,
			SecretAccessKey: cfg.S3SecretAccessKey,
			Bucket:          cfg.StorageBucket,
			PublicBaseURL:   cfg.S3PublicBaseURL,
			ForcePathStyle:  cfg.S3ForcePathStyle,
		})
	case infra.StorageBackendMemory:
		return storage.NewMemoryStore("memory://" + cfg.StorageBucket), nil
	default:
		return storage.NewSupabaseStore(cfg.SupabaseURL, cfg.SupabaseServiceKey, cfg.StorageBucket)
	}
}
