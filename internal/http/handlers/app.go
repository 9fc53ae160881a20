package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-playground/validator/v10"

	"photobooth/internal/delivery"
	"photobooth/internal/domain"
	"photobooth/internal/infra"
)

// CaptureRunner runs one capture through the effect pipeline.
type CaptureRunner interface {
	Run(ctx context.Context, job domain.CaptureJob) (domain.PersistResult, error)
}

// RemoteSaver copies an already processed image into the local mirror.
type RemoteSaver interface {
	SaveRemote(ctx context.Context, imageURL, screenType string) (string, error)
}

// Catalog is the effect registry surface used by the kiosk and admin routes.
type Catalog interface {
	ListAllowedEffects(ctx context.Context, screenID string) ([]domain.EffectDefinition, error)
	ListEffects(ctx context.Context) ([]domain.EffectDefinition, error)
	GetEffect(ctx context.Context, id int64) (domain.EffectDefinition, error)
	CreateEffect(ctx context.Context, def domain.EffectDefinition) (domain.EffectDefinition, error)
	UpdateEffect(ctx context.Context, def domain.EffectDefinition) (domain.EffectDefinition, error)
	DeleteEffect(ctx context.Context, id int64) error
	SetScreenEffects(ctx context.Context, screenID string, effectIDs []int64) error
	SetGroupEnabled(ctx context.Context, screenID, group string, enabled bool) error
}

// PhotoMailer e-mails a gallery link.
type PhotoMailer interface {
	SendPhoto(ctx context.Context, recipient string, photo domain.PhotoRecord) (string, error)
}

// Options wires the App.
type Options struct {
	Pipeline      CaptureRunner
	Saver         RemoteSaver
	Catalog       Catalog
	Photos        domain.PhotoRepository
	Mailer        PhotoMailer
	Links         delivery.Links
	HTTPClient    *http.Client
	Logger        *infra.Logger
	MaxImageBytes int64
}

type App struct {
	pipeline CaptureRunner
	saver    RemoteSaver
	catalog  Catalog
	photos   domain.PhotoRepository
	mailer   PhotoMailer
	links    delivery.Links
	client   *http.Client
	logger   *infra.Logger
	validate *validator.Validate
	maxImage int64
	started  time.Time
}

func NewApp(opts Options) *App {
	a := &App{
		pipeline: opts.Pipeline,
		saver:    opts.Saver,
		catalog:  opts.Catalog,
		photos:   opts.Photos,
		mailer:   opts.Mailer,
		links:    opts.Links,
		client:   opts.HTTPClient,
		logger:   opts.Logger,
		validate: newValidator(),
		maxImage: opts.MaxImageBytes,
		started:  time.Now(),
	}
	if a.client == nil {
		a.client = &http.Client{Timeout: 30 * time.Second}
	}
	if a.logger == nil {
		a.logger = infra.NopLogger()
	}
	if a.maxImage <= 0 {
		a.maxImage = 10 << 20
	}
	return a
}

func (a *App) json(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func (a *App) error(w http.ResponseWriter, code int, msg string) {
	a.json(w, code, map[string]any{"success": false, "error": msg})
}

// fail renders err with the status of its kind.
func (a *App) fail(w http.ResponseWriter, r *http.Request, err error) {
	de := domain.AsError(err)
	status := statusFor(de.Kind)
	if status >= http.StatusInternalServerError {
		infra.LoggerFrom(r.Context(), a.logger).Error().Err(err).Str("kind", string(de.Kind)).Msg("handlers: request failed")
	}
	a.error(w, status, de.Detail())
}

func statusFor(kind domain.ErrorKind) int {
	switch kind {
	case domain.KindInvalidInput:
		return http.StatusBadRequest
	case domain.KindNotFound:
		return http.StatusNotFound
	case domain.KindProviderRejected, domain.KindProviderFailed, domain.KindNetworkError:
		return http.StatusBadGateway
	case domain.KindTimeout:
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

// decode reads a JSON body of at most limit bytes and validates it.
func (a *App) decode(w http.ResponseWriter, r *http.Request, limit int64, dst any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, limit)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			a.error(w, http.StatusRequestEntityTooLarge, "request body too large")
			return false
		}
		a.error(w, http.StatusBadRequest, "invalid payload")
		return false
	}
	if d, ok := dst.(interface{ defaults() }); ok {
		d.defaults()
	}
	if err := a.validate.Struct(dst); err != nil {
		a.error(w, http.StatusBadRequest, validationMessage(err))
		return false
	}
	return true
}
