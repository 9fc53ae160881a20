package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"photobooth/internal/domain"
	"photobooth/internal/infra"
	"photobooth/internal/media"
	"photobooth/internal/middleware"
	"photobooth/pkg/zip"
)

const maxExportPhotoBytes = 50 << 20

type effectPayload struct {
	DisplayName     string         `json:"displayName" validate:"required,max=120"`
	ProviderName    string         `json:"providerName" validate:"required,max=64"`
	Endpoint        string         `json:"endpoint" validate:"max=512"`
	AuthKeyRef      string         `json:"authKeyRef" validate:"max=80"`
	StaticParams    []domain.Param `json:"staticParams" validate:"max=32"`
	PreviewAssetURL string         `json:"previewAssetUrl" validate:"omitempty,url"`
	IsVisible       *bool          `json:"isVisible"`
	EffectGroup     string         `json:"effectGroup" validate:"required,effect_group"`
}

func (p effectPayload) definition(id int64) domain.EffectDefinition {
	visible := true
	if p.IsVisible != nil {
		visible = *p.IsVisible
	}
	return domain.EffectDefinition{
		ID:              id,
		DisplayName:     p.DisplayName,
		ProviderName:    p.ProviderName,
		Endpoint:        p.Endpoint,
		AuthKeyRef:      p.AuthKeyRef,
		StaticParams:    p.StaticParams,
		PreviewAssetURL: p.PreviewAssetURL,
		IsVisible:       visible,
		EffectGroup:     domain.EffectGroup(p.EffectGroup),
	}
}

func (a *App) AdminListEffects(w http.ResponseWriter, r *http.Request) {
	effects, err := a.catalog.ListEffects(r.Context())
	if err != nil {
		a.fail(w, r, err)
		return
	}
	a.json(w, http.StatusOK, map[string]any{"success": true, "effects": effects})
}

func (a *App) AdminGetEffect(w http.ResponseWriter, r *http.Request) {
	id, ok := a.effectID(w, r)
	if !ok {
		return
	}
	effect, err := a.catalog.GetEffect(r.Context(), id)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	a.json(w, http.StatusOK, map[string]any{"success": true, "effect": effect})
}

func (a *App) AdminCreateEffect(w http.ResponseWriter, r *http.Request) {
	var req effectPayload
	if !a.decode(w, r, 64<<10, &req) {
		return
	}
	effect, err := a.catalog.CreateEffect(r.Context(), req.definition(0))
	if err != nil {
		a.fail(w, r, err)
		return
	}
	a.audit(r, "effect.create", strconv.FormatInt(effect.ID, 10))
	a.json(w, http.StatusCreated, map[string]any{"success": true, "effect": effect})
}

func (a *App) AdminUpdateEffect(w http.ResponseWriter, r *http.Request) {
	id, ok := a.effectID(w, r)
	if !ok {
		return
	}
	var req effectPayload
	if !a.decode(w, r, 64<<10, &req) {
		return
	}
	effect, err := a.catalog.UpdateEffect(r.Context(), req.definition(id))
	if err != nil {
		a.fail(w, r, err)
		return
	}
	a.audit(r, "effect.update", strconv.FormatInt(id, 10))
	a.json(w, http.StatusOK, map[string]any{"success": true, "effect": effect})
}

func (a *App) AdminDeleteEffect(w http.ResponseWriter, r *http.Request) {
	id, ok := a.effectID(w, r)
	if !ok {
		return
	}
	if err := a.catalog.DeleteEffect(r.Context(), id); err != nil {
		a.fail(w, r, err)
		return
	}
	a.audit(r, "effect.delete", strconv.FormatInt(id, 10))
	a.json(w, http.StatusOK, map[string]any{"success": true})
}

type groupToggleRequest struct {
	Enabled *bool `json:"enabled" validate:"required"`
}

// AdminSetGroup enables or disables one effect group on a screen.
func (a *App) AdminSetGroup(w http.ResponseWriter, r *http.Request) {
	group := chi.URLParam(r, "group")
	if _, ok := domain.ParseEffectGroup(group); !ok {
		a.error(w, http.StatusBadRequest, fmt.Sprintf("unknown effect group %q", group))
		return
	}
	var req groupToggleRequest
	if !a.decode(w, r, 1<<10, &req) {
		return
	}
	screenID := chi.URLParam(r, "screenId")
	if err := a.catalog.SetGroupEnabled(r.Context(), screenID, group, *req.Enabled); err != nil {
		a.fail(w, r, err)
		return
	}
	a.audit(r, "screen.group", screenID+"/"+group)
	a.json(w, http.StatusOK, map[string]any{"success": true})
}

type screenEffectsRequest struct {
	EffectIDs []int64 `json:"effectIds" validate:"required,max=500,dive,gt=0"`
}

// AdminSetScreenEffects replaces a screen's allow-list.
func (a *App) AdminSetScreenEffects(w http.ResponseWriter, r *http.Request) {
	var req screenEffectsRequest
	if !a.decode(w, r, 16<<10, &req) {
		return
	}
	screenID := chi.URLParam(r, "screenId")
	if err := a.catalog.SetScreenEffects(r.Context(), screenID, req.EffectIDs); err != nil {
		a.fail(w, r, err)
		return
	}
	a.audit(r, "screen.effects", screenID)
	a.json(w, http.StatusOK, map[string]any{"success": true})
}

// AdminExportEvent downloads every photo of an event into one zip with a
// manifest of the photo rows. Photos that cannot be fetched are listed in
// the manifest without a file.
func (a *App) AdminExportEvent(w http.ResponseWriter, r *http.Request) {
	eventID := strings.TrimSpace(chi.URLParam(r, "eventId"))
	if eventID == "" {
		a.error(w, http.StatusBadRequest, "event id is required")
		return
	}
	photos, err := a.photos.ListPhotosByEvent(r.Context(), eventID)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	log := infra.LoggerFrom(r.Context(), a.logger)

	type manifestEntry struct {
		domain.PhotoRecord
		File string `json:"file,omitempty"`
	}
	manifest := make([]manifestEntry, 0, len(photos))
	assets := make([]zip.Asset, 0, len(photos)+1)
	for _, p := range photos {
		entry := manifestEntry{PhotoRecord: p}
		data, contentType, err := media.Fetch(r.Context(), a.client, p.URL, maxExportPhotoBytes)
		if err != nil {
			log.Warn().Err(err).Str("photo_id", p.ID).Msg("handlers: export skipped photo")
			manifest = append(manifest, entry)
			continue
		}
		entry.File = p.ID + "." + media.ExtensionFor(contentType)
		assets = append(assets, zip.Asset{Filename: entry.File, MIME: contentType, Data: data, Modified: p.CreatedAt})
		manifest = append(manifest, entry)
	}
	manifestJSON, err := json.MarshalIndent(manifest, "", "  ")
	if err != nil {
		a.fail(w, r, err)
		return
	}
	assets = append(assets, zip.Asset{Filename: "manifest.json", MIME: "application/json", Data: manifestJSON})

	archive, err := zip.ArchiveAssets(assets)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "application/zip")
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="event-%s.zip"`, safeFileName(eventID)))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(archive)
}

func (a *App) effectID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		a.error(w, http.StatusBadRequest, "invalid effect id")
		return 0, false
	}
	return id, true
}

func (a *App) audit(r *http.Request, action, target string) {
	infra.LoggerFrom(r.Context(), a.logger).Info().
		Str("admin", middleware.AdminFromContext(r.Context())).
		Str("action", action).
		Str("target", target).
		Msg("handlers: admin change")
}

func safeFileName(s string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
			return r
		}
		return '_'
	}, s)
}
