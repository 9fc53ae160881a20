package rest

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/supabase-community/postgrest-go"

	"photobooth/internal/domain"
)

const photosTable = "photos"

// PhotoRepository stores photo rows through Supabase's PostgREST endpoint.
// It is used when the kiosk has no direct Postgres access.
type PhotoRepository struct {
	client *postgrest.Client
}

// NewPhotoRepository builds a client for {projectURL}/rest/v1.
func NewPhotoRepository(projectURL, serviceKey string) (*PhotoRepository, error) {
	projectURL = strings.TrimRight(strings.TrimSpace(projectURL), "/")
	if projectURL == "" || strings.TrimSpace(serviceKey) == "" {
		return nil, errors.New("rest: supabase url and service key are required")
	}
	client := postgrest.NewClient(projectURL+"/rest/v1", "public", map[string]string{
		"apikey":        serviceKey,
		"Authorization": "Bearer " + serviceKey,
	})
	if client.ClientError != nil {
		return nil, fmt.Errorf("rest: init client: %w", client.ClientError)
	}
	return &PhotoRepository{client: client}, nil
}

type photoRow struct {
	ID            string     `json:"id,omitempty"`
	URL           string     `json:"url"`
	OriginalURL   *string    `json:"original_url"`
	EventID       string     `json:"event_id"`
	StandID       string     `json:"stand_id"`
	ScreenType    string     `json:"screen_type"`
	FilterName    *string    `json:"filter_name"`
	MagicalEffect *string    `json:"magical_effect"`
	NormalEffect  *string    `json:"normal_effect"`
	CreatedAt     *time.Time `json:"created_at,omitempty"`
}

func toRow(rec domain.PhotoRecord) photoRow {
	return photoRow{
		URL:           rec.URL,
		OriginalURL:   optional(rec.OriginalURL),
		EventID:       rec.EventID,
		StandID:       rec.StandID,
		ScreenType:    rec.ScreenType,
		FilterName:    optional(rec.FilterName),
		MagicalEffect: optional(rec.MagicalEffect),
		NormalEffect:  optional(rec.NormalEffect),
	}
}

func (r photoRow) record() domain.PhotoRecord {
	rec := domain.PhotoRecord{
		ID:            r.ID,
		URL:           r.URL,
		OriginalURL:   deref(r.OriginalURL),
		EventID:       r.EventID,
		StandID:       r.StandID,
		ScreenType:    r.ScreenType,
		FilterName:    deref(r.FilterName),
		MagicalEffect: deref(r.MagicalEffect),
		NormalEffect:  deref(r.NormalEffect),
	}
	if r.CreatedAt != nil {
		rec.CreatedAt = *r.CreatedAt
	}
	return rec
}

func (p *PhotoRepository) InsertPhoto(ctx context.Context, rec domain.PhotoRecord) (domain.PhotoRecord, error) {
	if err := ctx.Err(); err != nil {
		return domain.PhotoRecord{}, err
	}
	var inserted []photoRow
	if _, err := p.client.From(photosTable).
		Insert(toRow(rec), false, "", "representation", "").
		ExecuteTo(&inserted); err != nil {
		return domain.PhotoRecord{}, fmt.Errorf("rest: insert photo: %w", err)
	}
	if len(inserted) == 0 {
		return domain.PhotoRecord{}, errors.New("rest: insert photo: empty representation")
	}
	return inserted[0].record(), nil
}

func (p *PhotoRepository) GetPhoto(ctx context.Context, id string) (domain.PhotoRecord, error) {
	if err := ctx.Err(); err != nil {
		return domain.PhotoRecord{}, err
	}
	var rows []photoRow
	if _, err := p.client.From(photosTable).
		Select("*", "", false).
		Eq("id", id).
		ExecuteTo(&rows); err != nil {
		return domain.PhotoRecord{}, fmt.Errorf("rest: get photo %s: %w", id, err)
	}
	if len(rows) == 0 {
		return domain.PhotoRecord{}, domain.NewError(domain.KindNotFound, "photo %s", id)
	}
	return rows[0].record(), nil
}

func (p *PhotoRepository) ListPhotosByEvent(ctx context.Context, eventID string) ([]domain.PhotoRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var rows []photoRow
	if _, err := p.client.From(photosTable).
		Select("*", "", false).
		Eq("event_id", eventID).
		Order("created_at", &postgrest.OrderOpts{Ascending: false}).
		ExecuteTo(&rows); err != nil {
		return nil, fmt.Errorf("rest: list photos: %w", err)
	}
	photos := make([]domain.PhotoRecord, 0, len(rows))
	for _, row := range rows {
		photos = append(photos, row.record())
	}
	return photos, nil
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

var _ domain.PhotoRepository = (*PhotoRepository)(nil)
