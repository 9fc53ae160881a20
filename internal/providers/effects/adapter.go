// Package effects holds one Adapter per AI vendor. Each adapter hides the
// vendor's completion model (synchronous, task-id polling, order-id polling
// or single-shot edit) behind the same Invoke contract.
package effects

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"photobooth/internal/domain"
	"photobooth/internal/infra"
	"photobooth/internal/providers/genai"
)

// Request is a single effect invocation.
type Request struct {
	Image       []byte
	ContentType string
	Effect      domain.EffectDefinition
	// APIKey is the secret resolved from Effect.AuthKeyRef at call time.
	APIKey string
	// Progress, when set, hears about states entered inside the adapter.
	Progress func(domain.JobState)
}

func (r Request) report(state domain.JobState) {
	if r.Progress != nil {
		r.Progress(state)
	}
}

// Result normalises every vendor answer. Data is set when the adapter already
// holds the result bytes; otherwise URL points at them.
type Result struct {
	URL         string
	Data        []byte
	ContentType string
}

// Adapter calls one external effect API. Failures are *domain.Error values.
type Adapter interface {
	Invoke(ctx context.Context, req Request) (Result, error)
}

// AdapterFunc lets plain functions satisfy Adapter.
type AdapterFunc func(ctx context.Context, req Request) (Result, error)

func (f AdapterFunc) Invoke(ctx context.Context, req Request) (Result, error) {
	return f(ctx, req)
}

// PollPolicy bounds a poll loop.
type PollPolicy struct {
	Interval time.Duration
	Attempts int
}

// ImageEditor is the generative edit capability used by the gemini adapter.
type ImageEditor interface {
	EditImage(ctx context.Context, req genai.EditRequest) (*genai.EditResponse, error)
}

// Options wires the vendor adapters.
type Options struct {
	HTTPClient    *http.Client
	Logger        *infra.Logger
	Store         domain.ObjectStore
	Editor        ImageEditor
	TempDir       string
	AILabBaseURL  string
	LightXBaseURL string
	BFLBaseURL    string
	AsyncPoll     PollPolicy
	SlowPoll      PollPolicy
	OrderPoll     PollPolicy
	FluxPoll      PollPolicy
}

// Dispatcher selects the adapter registered for an effect's provider name.
type Dispatcher struct {
	mu       sync.RWMutex
	adapters map[string]Adapter
	logger   *infra.Logger
}

// NewDispatcher registers every built-in vendor adapter.
func NewDispatcher(opts Options) (*Dispatcher, error) {
	if opts.HTTPClient == nil {
		opts.HTTPClient = &http.Client{}
	}
	if opts.Logger == nil {
		opts.Logger = infra.NopLogger()
	}
	if strings.TrimSpace(opts.TempDir) == "" {
		return nil, errors.New("effects: temp dir is required")
	}
	if opts.Store == nil {
		return nil, errors.New("effects: object store is required")
	}

	caller := &httpCaller{client: opts.HTTPClient, logger: opts.Logger}
	d := &Dispatcher{adapters: make(map[string]Adapter), logger: opts.Logger}
	d.Register(domain.ProviderAILab, &ailabAdapter{
		http:      caller,
		baseURL:   strings.TrimRight(opts.AILabBaseURL, "/"),
		tempDir:   opts.TempDir,
		asyncPoll: withDefaults(opts.AsyncPoll, 500*time.Millisecond, 20),
		slowPoll:  withDefaults(opts.SlowPoll, 500*time.Millisecond, 100),
	})
	d.Register(domain.ProviderAILabBG, &bgRemovalAdapter{
		http:    caller,
		baseURL: strings.TrimRight(opts.AILabBaseURL, "/"),
		tempDir: opts.TempDir,
	})
	d.Register(domain.ProviderLightX, &lightxAdapter{
		http:    caller,
		baseURL: strings.TrimRight(opts.LightXBaseURL, "/"),
		store:   opts.Store,
		poll:    withDefaults(opts.OrderPoll, 5*time.Second, 10),
	})
	d.Register(domain.ProviderFluxKontext, &fluxAdapter{
		http:    caller,
		baseURL: strings.TrimRight(opts.BFLBaseURL, "/"),
		poll:    withDefaults(opts.FluxPoll, 500*time.Millisecond, 100),
	})
	if opts.Editor != nil {
		d.Register(domain.ProviderGemini, &geminiAdapter{
			editor: opts.Editor,
			logger: opts.Logger,
		})
	}
	return d, nil
}

// Register installs or replaces the adapter for provider.
func (d *Dispatcher) Register(provider string, a Adapter) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.adapters[strings.ToLower(provider)] = a
}

// Adapter returns the adapter for provider or an InvalidInput error.
func (d *Dispatcher) Adapter(provider string) (Adapter, error) {
	d.mu.RLock()
	a, ok := d.adapters[strings.ToLower(strings.TrimSpace(provider))]
	d.mu.RUnlock()
	if !ok {
		return nil, &domain.Error{
			Kind:     domain.KindInvalidInput,
			Provider: provider,
			Message:  "unknown effect provider",
		}
	}
	return a, nil
}

// Invoke dispatches req to the adapter of its effect's provider.
func (d *Dispatcher) Invoke(ctx context.Context, req Request) (Result, error) {
	a, err := d.Adapter(req.Effect.ProviderName)
	if err != nil {
		return Result{}, err
	}
	started := time.Now()
	res, err := a.Invoke(ctx, req)
	evt := d.logger.Info()
	if err != nil {
		evt = d.logger.Warn().Err(err)
	}
	evt.Str("provider", req.Effect.ProviderName).
		Int64("effect_id", req.Effect.ID).
		Dur("elapsed", time.Since(started)).
		Msg("effects: invoke finished")
	return res, err
}

func withDefaults(p PollPolicy, interval time.Duration, attempts int) PollPolicy {
	if p.Interval <= 0 {
		p.Interval = interval
	}
	if p.Attempts <= 0 {
		p.Attempts = attempts
	}
	return p
}

// endpointURL joins a provider-relative path onto base. Absolute URLs are
// used as they are.
func endpointURL(base, endpoint string) string {
	endpoint = strings.TrimSpace(endpoint)
	if strings.HasPrefix(endpoint, "http://") || strings.HasPrefix(endpoint, "https://") {
		return endpoint
	}
	return fmt.Sprintf("%s/%s", strings.TrimRight(base, "/"), strings.TrimLeft(endpoint, "/"))
}

var _ Adapter = (*Dispatcher)(nil)
