package domain

import (
	"context"
	"io"
)

// EffectRepository stores the effect catalog and its parameter rows.
type EffectRepository interface {
	ListEffects(ctx context.Context) ([]EffectDefinition, error)
	GetEffect(ctx context.Context, id int64) (EffectDefinition, error)
	CreateEffect(ctx context.Context, def EffectDefinition) (EffectDefinition, error)
	UpdateEffect(ctx context.Context, def EffectDefinition) (EffectDefinition, error)
	// DeleteEffect removes the effect and the params it owns.
	DeleteEffect(ctx context.Context, id int64) error
}

// ScreenRepository stores per-screen allow-lists and group flags.
type ScreenRepository interface {
	GetScreen(ctx context.Context, id string) (ScreenConfig, error)
	SetScreenEffects(ctx context.Context, id string, effectIDs []int64) error
	SetGroupEnabled(ctx context.Context, id string, group EffectGroup, enabled bool) error
}

// PhotoRepository stores finished photo rows.
type PhotoRepository interface {
	InsertPhoto(ctx context.Context, rec PhotoRecord) (PhotoRecord, error)
	GetPhoto(ctx context.Context, id string) (PhotoRecord, error)
	ListPhotosByEvent(ctx context.Context, eventID string) ([]PhotoRecord, error)
}

// UploadOptions mirrors the object store upload flags.
type UploadOptions struct {
	ContentType  string
	CacheControl string
	Upsert       bool
}

// ObjectStore is the managed object storage used for public photo URLs.
type ObjectStore interface {
	Upload(ctx context.Context, path string, body io.Reader, opts UploadOptions) (string, error)
	PublicURL(path string) string
}

// SecretResolver turns an authKeyRef into the secret value at call time.
type SecretResolver interface {
	Resolve(ctx context.Context, ref string) (string, error)
}
