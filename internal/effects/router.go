// Package effects resolves guest effect selections against the catalog
// allowed on a screen.
package effects

import (
	"context"
	"strings"

	"photobooth/internal/domain"
)

// CategoryGeneric is the storage folder for groups without a dedicated one.
const CategoryGeneric = "generic-assets"

var categories = map[domain.EffectGroup]string{
	domain.GroupUniverse:   "horizontal-category",
	domain.GroupCartoon:    "vertical-category-1",
	domain.GroupSketch:     "vertical-category-2",
	domain.GroupCaricature: "vertical-category-3",
}

// AllowedLister is the read side of the effect registry.
type AllowedLister interface {
	ListAllowedEffects(ctx context.Context, screenID string) ([]domain.EffectDefinition, error)
}

// Router maps selector keys to effect definitions for a screen.
type Router struct {
	registry AllowedLister
}

func NewRouter(registry AllowedLister) *Router {
	return &Router{registry: registry}
}

// Resolve returns the effect selected by key on screenID. A key that is
// absent from the catalog, hidden, or not allowed on the screen is NotFound.
func (r *Router) Resolve(ctx context.Context, screenID, key string) (domain.EffectDefinition, error) {
	key = strings.TrimSpace(key)
	if key == "" {
		return domain.EffectDefinition{}, domain.NewError(domain.KindInvalidInput, "effect key is required")
	}
	allowed, err := r.registry.ListAllowedEffects(ctx, screenID)
	if err != nil {
		if domain.KindOf(err) == domain.KindNotFound {
			return domain.EffectDefinition{}, &domain.Error{Kind: domain.KindNotFound, Message: key, Err: err}
		}
		return domain.EffectDefinition{}, err
	}
	for _, e := range allowed {
		if e.Matches(key) {
			return e, nil
		}
	}
	return domain.EffectDefinition{}, domain.NewError(domain.KindNotFound, "%s is not available on screen %s", key, screenID)
}

// Category maps an effect group onto the storage folder for its photos.
func Category(group domain.EffectGroup) string {
	if c, ok := categories[group]; ok {
		return c
	}
	return CategoryGeneric
}
