// Package pipeline drives one capture from validated bytes to a stored
// photo: resolve the effect, call its provider under a deadline, fetch the
// result and hand it to the persister.
package pipeline

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"photobooth/internal/domain"
	"photobooth/internal/effects"
	"photobooth/internal/infra"
	"photobooth/internal/media"
	"photobooth/internal/persist"
	provider "photobooth/internal/providers/effects"
)

const (
	defaultDeadline = 2 * time.Minute
	// Provider results are often upscaled, so they get more room than captures.
	maxResultBytes = 50 << 20
)

// Resolver picks the effect for a selector key on a screen.
type Resolver interface {
	Resolve(ctx context.Context, screenID, key string) (domain.EffectDefinition, error)
}

// Persister stores a finished capture.
type Persister interface {
	Persist(ctx context.Context, in persist.Input) (domain.PersistResult, error)
}

// Options wires a Pipeline.
type Options struct {
	Resolver      Resolver
	Adapter       provider.Adapter
	Secrets       domain.SecretResolver
	Persister     Persister
	HTTPClient    *http.Client
	Logger        *infra.Logger
	MaxImageBytes int64
	Deadline      time.Duration
}

// Pipeline runs capture jobs. It holds no per-job state and is safe for
// concurrent use.
type Pipeline struct {
	resolver  Resolver
	adapter   provider.Adapter
	secrets   domain.SecretResolver
	persister Persister
	client    *http.Client
	logger    *infra.Logger
	maxBytes  int64
	deadline  time.Duration
}

func New(opts Options) *Pipeline {
	p := &Pipeline{
		resolver:  opts.Resolver,
		adapter:   opts.Adapter,
		secrets:   opts.Secrets,
		persister: opts.Persister,
		client:    opts.HTTPClient,
		logger:    opts.Logger,
		maxBytes:  opts.MaxImageBytes,
		deadline:  opts.Deadline,
	}
	if p.client == nil {
		p.client = &http.Client{}
	}
	if p.logger == nil {
		p.logger = infra.NopLogger()
	}
	if p.maxBytes <= 0 {
		p.maxBytes = 10 << 20
	}
	if p.deadline <= 0 {
		p.deadline = defaultDeadline
	}
	return p
}

// Run processes job. Every failure is a *domain.Error; nothing is retried.
func (p *Pipeline) Run(ctx context.Context, job domain.CaptureJob) (domain.PersistResult, error) {
	if job.ID == "" {
		job.ID = uuid.NewString()
	}
	log := p.logger.With().
		Str("job_id", job.ID).
		Str("screen_id", job.ScreenID).
		Str("effect", job.EffectKey).
		Logger()

	res, err := p.run(ctx, &job, &log)
	if err != nil {
		job.State = domain.JobFailed
		de := domain.AsError(err)
		log.Warn().Err(err).Str("kind", string(de.Kind)).Str("provider", de.Provider).Msg("pipeline: job failed")
		return domain.PersistResult{}, de
	}
	p.transition(&job, &log, domain.JobDone)
	return res, nil
}

func (p *Pipeline) run(ctx context.Context, job *domain.CaptureJob, log *infra.Logger) (domain.PersistResult, error) {
	p.transition(job, log, domain.JobCaptured)
	format, err := p.Validate(job.Image, job.DeclaredFormat)
	if err != nil {
		return domain.PersistResult{}, err
	}
	source := persist.Asset{Data: job.Image, ContentType: format.ContentType()}

	if strings.TrimSpace(job.EffectKey) == "" {
		p.transition(job, log, domain.JobPersisting)
		return p.persister.Persist(ctx, persist.Input{
			Processed:    source,
			Category:     effects.CategoryGeneric,
			ScreenType:   job.ScreenType,
			EventID:      job.EventID,
			StandID:      job.StandID,
			FilterName:   job.NormalName,
			NormalEffect: job.NormalName,
		})
	}

	effect, err := p.resolver.Resolve(ctx, job.ScreenID, job.EffectKey)
	if err != nil {
		return domain.PersistResult{}, err
	}
	apiKey, err := p.apiKey(ctx, effect)
	if err != nil {
		return domain.PersistResult{}, err
	}

	progress := func(state domain.JobState) { p.transition(job, log, state) }

	callCtx, cancel := context.WithTimeout(ctx, p.deadline)
	defer cancel()

	p.transition(job, log, domain.JobInvokingProvider)
	result, err := p.adapter.Invoke(callCtx, provider.Request{
		Image:       job.Image,
		ContentType: source.ContentType,
		Effect:      effect,
		APIKey:      apiKey,
		Progress:    progress,
	})
	if err != nil {
		return domain.PersistResult{}, err
	}

	processed := persist.Asset{Data: result.Data, ContentType: result.ContentType}
	if len(processed.Data) == 0 {
		p.transition(job, log, domain.JobDownloadingResult)
		data, contentType, err := media.Fetch(callCtx, p.client, result.URL, maxResultBytes)
		if err != nil {
			de := domain.AsError(persist.FetchError(callCtx, err))
			de.Provider = effect.ProviderName
			if de.Kind == domain.KindNotFound || de.Kind == domain.KindInvalidInput {
				de.Kind = domain.KindProviderFailed
			}
			return domain.PersistResult{}, de
		}
		processed = persist.Asset{Data: data, ContentType: contentType}
	}
	if processed.ContentType == "" {
		processed.ContentType = http.DetectContentType(processed.Data)
	}

	p.transition(job, log, domain.JobPersisting)
	return p.persister.Persist(ctx, persist.Input{
		Processed:     processed,
		Original:      &source,
		Category:      effects.Category(effect.EffectGroup),
		ScreenType:    job.ScreenType,
		EventID:       job.EventID,
		StandID:       job.StandID,
		FilterName:    effect.DisplayName,
		MagicalEffect: effect.SelectorKey(),
		NormalEffect:  job.NormalName,
		Progress:      progress,
	})
}

// Validate checks size and format before anything leaves the process.
// The declared format, when present, and the sniffed bytes must both be on
// the allow-list.
func (p *Pipeline) Validate(image []byte, declared string) (media.Format, error) {
	if len(image) == 0 {
		return "", domain.NewError(domain.KindInvalidInput, "image is empty")
	}
	if int64(len(image)) > p.maxBytes {
		return "", domain.NewError(domain.KindInvalidInput, "image is %d bytes, limit is %d", len(image), p.maxBytes)
	}
	if strings.TrimSpace(declared) != "" {
		if _, err := media.ParseFormat(declared); err != nil {
			return "", &domain.Error{Kind: domain.KindInvalidInput, Message: fmt.Sprintf("format %q is not accepted", declared), Err: err}
		}
	}
	f, err := media.Sniff(image)
	if err != nil {
		return "", &domain.Error{Kind: domain.KindInvalidInput, Message: "image content is not an accepted format", Err: err}
	}
	return f, nil
}

func (p *Pipeline) apiKey(ctx context.Context, effect domain.EffectDefinition) (string, error) {
	ref := strings.TrimSpace(effect.AuthKeyRef)
	if ref == "" {
		ref = effect.ProviderName
	}
	if p.secrets == nil {
		return "", nil
	}
	key, err := p.secrets.Resolve(ctx, ref)
	if err != nil {
		return "", &domain.Error{Kind: domain.KindInternal, Provider: effect.ProviderName, Message: "provider credentials unavailable", Err: err}
	}
	return key, nil
}

func (p *Pipeline) transition(job *domain.CaptureJob, log *infra.Logger, state domain.JobState) {
	job.State = state
	log.Debug().Str("state", string(state)).Msg("pipeline: state")
}
