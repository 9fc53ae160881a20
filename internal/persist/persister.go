// Package persist writes finished photos to object storage and the photos
// table, with a best-effort mirror on local disk.
package persist

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"photobooth/internal/domain"
	"photobooth/internal/infra"
	"photobooth/internal/media"
)

const mirrorTimeout = 30 * time.Second

// Mirror is the local disk copy used by the print station.
type Mirror interface {
	Write(ctx context.Context, key string, data []byte) (string, error)
}

// Asset is one image to persist.
type Asset struct {
	Data        []byte
	ContentType string
}

// Input describes a finished capture job.
type Input struct {
	Processed     Asset
	Original      *Asset
	Category      string
	ScreenType    string
	EventID       string
	StandID       string
	FilterName    string
	MagicalEffect string
	NormalEffect  string
	// Progress, when set, is told when the original upload starts.
	Progress func(domain.JobState)
}

// Options configures a Persister.
type Options struct {
	Store      domain.ObjectStore
	Photos     domain.PhotoRepository
	Mirror     Mirror
	HTTPClient *http.Client
	Logger     *infra.Logger
	Now        func() time.Time
	MaxBytes   int64
}

// Persister runs the upload, row insert and mirror steps of a capture.
type Persister struct {
	store    domain.ObjectStore
	photos   domain.PhotoRepository
	mirror   Mirror
	client   *http.Client
	logger   *infra.Logger
	now      func() time.Time
	maxBytes int64
	wg       sync.WaitGroup
}

func New(opts Options) *Persister {
	p := &Persister{
		store:    opts.Store,
		photos:   opts.Photos,
		mirror:   opts.Mirror,
		client:   opts.HTTPClient,
		logger:   opts.Logger,
		now:      opts.Now,
		maxBytes: opts.MaxBytes,
	}
	if p.client == nil {
		p.client = &http.Client{Timeout: 60 * time.Second}
	}
	if p.logger == nil {
		p.logger = infra.NopLogger()
	}
	if p.now == nil {
		p.now = time.Now
	}
	return p
}

// Persist uploads the processed asset, then the original (best effort), and
// inserts the photo row. A row failure after a successful upload is
// PartialPersistence and leaves the uploaded object orphaned.
func (p *Persister) Persist(ctx context.Context, in Input) (domain.PersistResult, error) {
	if len(in.Processed.Data) == 0 {
		return domain.PersistResult{}, domain.NewError(domain.KindInternal, "nothing to persist")
	}
	category := segment(in.Category, "generic-assets")
	screenType := segment(in.ScreenType, "unknown")
	now := p.now().UTC()
	name := fmt.Sprintf("%d-%s.%s", now.UnixMilli(), uuid.NewString(), media.ExtensionFor(in.Processed.ContentType))
	key := strings.Join([]string{category, screenType, name}, "/")

	url, err := p.store.Upload(ctx, key, bytes.NewReader(in.Processed.Data), domain.UploadOptions{
		ContentType:  in.Processed.ContentType,
		CacheControl: "3600",
	})
	if err != nil {
		return domain.PersistResult{}, &domain.Error{Kind: domain.KindPersistenceError, Message: "upload processed photo", Err: err}
	}

	var originalURL, originalKey string
	if in.Original != nil && len(in.Original.Data) > 0 {
		if in.Progress != nil {
			in.Progress(domain.JobUploadingOriginal)
		}
		originalKey = strings.Join([]string{"originals", category, screenType,
			fmt.Sprintf("%d-%s.%s", now.UnixMilli(), uuid.NewString(), media.ExtensionFor(in.Original.ContentType))}, "/")
		originalURL, err = p.store.Upload(ctx, originalKey, bytes.NewReader(in.Original.Data), domain.UploadOptions{
			ContentType:  in.Original.ContentType,
			CacheControl: "3600",
		})
		if err != nil {
			p.logger.Warn().Err(err).Str("key", originalKey).Msg("persist: original upload failed")
			originalURL, originalKey = "", ""
		}
	}

	rec, err := p.photos.InsertPhoto(ctx, domain.PhotoRecord{
		URL:           url,
		OriginalURL:   originalURL,
		EventID:       in.EventID,
		StandID:       in.StandID,
		ScreenType:    in.ScreenType,
		FilterName:    in.FilterName,
		MagicalEffect: in.MagicalEffect,
		NormalEffect:  in.NormalEffect,
		CreatedAt:     now,
	})
	if err != nil {
		p.logger.Error().Err(err).Str("orphan", key).Str("orphan_original", originalKey).Msg("persist: photo row insert failed")
		return domain.PersistResult{}, &domain.Error{Kind: domain.KindPartialPersistence, Message: "photo row insert failed", Err: err}
	}

	p.mirrorAsync(key, in.Processed.Data)
	if originalKey != "" {
		p.mirrorAsync(originalKey, in.Original.Data)
	}

	p.logger.Info().
		Str("photo_id", rec.ID).
		Str("key", key).
		Str("event_id", in.EventID).
		Msg("persist: photo stored")
	return domain.PersistResult{Record: rec, Path: key, Category: category}, nil
}

// mirrorAsync copies data to local disk on its own goroutine. Failures,
// including panics, are logged and never reach the caller.
func (p *Persister) mirrorAsync(key string, data []byte) {
	if p.mirror == nil {
		return
	}
	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		defer func() {
			if r := recover(); r != nil {
				p.logger.Error().Interface("panic", r).Str("key", key).Msg("persist: local mirror panicked")
			}
		}()
		ctx, cancel := context.WithTimeout(context.Background(), mirrorTimeout)
		defer cancel()
		path, err := p.mirror.Write(ctx, key, data)
		if err != nil {
			p.logger.Warn().Err(err).Str("key", key).Msg("persist: local mirror failed")
			return
		}
		p.logger.Debug().Str("path", path).Msg("persist: mirrored locally")
	}()
}

// Wait blocks until every pending mirror write has finished.
func (p *Persister) Wait() {
	p.wg.Wait()
}

// SaveRemote downloads imageURL and writes it to the local mirror. It backs
// the save-processed endpoint used by the print station.
func (p *Persister) SaveRemote(ctx context.Context, imageURL, screenType string) (string, error) {
	if p.mirror == nil {
		return "", domain.NewError(domain.KindInternal, "local mirror is not configured")
	}
	data, contentType, err := media.Fetch(ctx, p.client, imageURL, p.maxBytes)
	if err != nil {
		return "", FetchError(ctx, err)
	}
	key := strings.Join([]string{
		"processed",
		segment(screenType, "unknown"),
		fmt.Sprintf("%d-%s.%s", p.now().UTC().UnixMilli(), uuid.NewString(), media.ExtensionFor(contentType)),
	}, "/")
	path, err := p.mirror.Write(ctx, key, data)
	if err != nil {
		return "", &domain.Error{Kind: domain.KindPersistenceError, Message: "write local copy", Err: err}
	}
	return path, nil
}

var unsafeSegment = regexp.MustCompile(`[^a-z0-9_-]+`)

func segment(raw, fallback string) string {
	s := unsafeSegment.ReplaceAllString(strings.ToLower(strings.TrimSpace(raw)), "-")
	s = strings.Trim(s, "-")
	if s == "" {
		return fallback
	}
	return s
}
