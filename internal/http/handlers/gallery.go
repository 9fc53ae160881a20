package handlers

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"photobooth/internal/delivery"
	"photobooth/internal/domain"
)

// ScreenEffects lists the effects a screen's picker may show.
func (a *App) ScreenEffects(w http.ResponseWriter, r *http.Request) {
	effects, err := a.catalog.ListAllowedEffects(r.Context(), chi.URLParam(r, "screenId"))
	if err != nil {
		a.fail(w, r, err)
		return
	}
	items := make([]map[string]any, 0, len(effects))
	for _, e := range effects {
		items = append(items, map[string]any{
			"id":          e.ID,
			"key":         e.SelectorKey(),
			"displayName": e.DisplayName,
			"effectGroup": e.EffectGroup,
			"preview":     e.PreviewAssetURL,
		})
	}
	a.json(w, http.StatusOK, map[string]any{"success": true, "effects": items})
}

func (a *App) EventPhotos(w http.ResponseWriter, r *http.Request) {
	eventID := strings.TrimSpace(chi.URLParam(r, "eventId"))
	photos, err := a.photos.ListPhotosByEvent(r.Context(), eventID)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	a.json(w, http.StatusOK, map[string]any{"success": true, "photos": photos})
}

// PhotoQR renders a PNG QR code of the photo's gallery page.
func (a *App) PhotoQR(w http.ResponseWriter, r *http.Request) {
	photo, ok := a.photo(w, r)
	if !ok {
		return
	}
	size, _ := strconv.Atoi(r.URL.Query().Get("size"))
	png, err := delivery.QRCode(a.links.PhotoURL(photo.ID), size)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Cache-Control", "public, max-age=86400")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(png)
}

type emailPhotoRequest struct {
	Email string `json:"email" validate:"required,email,max=254"`
}

// EmailPhoto sends the gallery link of a photo to a guest.
func (a *App) EmailPhoto(w http.ResponseWriter, r *http.Request) {
	var req emailPhotoRequest
	if !a.decode(w, r, 4<<10, &req) {
		return
	}
	photo, ok := a.photo(w, r)
	if !ok {
		return
	}
	id, err := a.mailer.SendPhoto(r.Context(), req.Email, photo)
	if err != nil {
		if errors.Is(err, delivery.ErrMailDisabled) {
			a.error(w, http.StatusServiceUnavailable, "e-mail delivery is not configured")
			return
		}
		if domain.KindOf(err) == domain.KindInvalidInput {
			a.error(w, http.StatusBadRequest, "invalid e-mail address")
			return
		}
		a.logger.Error().Err(err).Str("photo_id", photo.ID).Msg("handlers: send e-mail failed")
		a.error(w, http.StatusBadGateway, "could not send e-mail")
		return
	}
	a.json(w, http.StatusOK, map[string]any{"success": true, "messageId": id})
}

func (a *App) photo(w http.ResponseWriter, r *http.Request) (domain.PhotoRecord, bool) {
	id := strings.TrimSpace(chi.URLParam(r, "id"))
	if id == "" {
		a.error(w, http.StatusBadRequest, "photo id is required")
		return domain.PhotoRecord{}, false
	}
	photo, err := a.photos.GetPhoto(r.Context(), id)
	if err != nil {
		if domain.KindOf(err) == domain.KindNotFound {
			a.error(w, http.StatusNotFound, "photo not found")
			return domain.PhotoRecord{}, false
		}
		a.fail(w, r, err)
		return domain.PhotoRecord{}, false
	}
	return photo, true
}
