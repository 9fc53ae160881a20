package handlers

import (
	"net/http"
	"net/url"
	"strings"

	"photobooth/internal/domain"
	"photobooth/internal/media"
	"photobooth/internal/middleware"
)

const (
	effectTypeMagical = "magical"
	effectTypeNormal  = "normal"
)

type applyEffectsRequest struct {
	Image      string `json:"image" validate:"required"`
	FileName   string `json:"fileName" validate:"omitempty,image_format"`
	EffectType string `json:"effectType" validate:"oneof=magical normal"`
	MagicalID  string `json:"magicalId" validate:"required_if=EffectType magical,max=128"`
	NormalID   string `json:"normalId" validate:"max=128"`
	ScreenID   string `json:"screenId" validate:"required_if=EffectType magical,max=64"`
	ScreenType string `json:"screenType" validate:"max=64"`
	EventID    string `json:"eventId" validate:"max=64"`
	StandID    string `json:"standId" validate:"max=64"`
}

// defaults infers the effect type for kiosks that only send magicalId.
func (r *applyEffectsRequest) defaults() {
	r.EffectType = strings.ToLower(strings.TrimSpace(r.EffectType))
	if r.EffectType == "" {
		r.EffectType = effectTypeNormal
		if strings.TrimSpace(r.MagicalID) != "" {
			r.EffectType = effectTypeMagical
		}
	}
}

type applyEffectsResponse struct {
	Success     bool   `json:"success"`
	ImageURL    string `json:"imageUrl"`
	OriginalURL string `json:"originalUrl,omitempty"`
	PhotoID     string `json:"photoId"`
	Category    string `json:"category"`
}

// ApplyEffects runs one kiosk capture through the selected effect and
// answers once the photo is stored.
func (a *App) ApplyEffects(w http.ResponseWriter, r *http.Request) {
	var req applyEffectsRequest
	// base64 inflates by 4/3; leave headroom for the JSON envelope.
	if !a.decode(w, r, a.maxImage*4/3+64<<10, &req) {
		return
	}
	image, mime, err := media.DecodeDataURL(req.Image)
	if err != nil {
		a.error(w, http.StatusBadRequest, "image must be a base64 data url")
		return
	}
	declared := mime
	if declared == "" {
		declared = req.FileName
	}

	job := domain.CaptureJob{
		ID:             middleware.RequestIDFromContext(r.Context()),
		Image:          image,
		ContentType:    mime,
		DeclaredFormat: declared,
		NormalName:     strings.TrimSpace(req.NormalID),
		ScreenID:       strings.TrimSpace(req.ScreenID),
		ScreenType:     strings.TrimSpace(req.ScreenType),
		EventID:        strings.TrimSpace(req.EventID),
		StandID:        strings.TrimSpace(req.StandID),
	}
	if req.EffectType == effectTypeMagical {
		job.EffectKey = strings.TrimSpace(req.MagicalID)
	}

	res, err := a.pipeline.Run(r.Context(), job)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	a.json(w, http.StatusOK, applyEffectsResponse{
		Success:     true,
		ImageURL:    res.Record.URL,
		OriginalURL: res.Record.OriginalURL,
		PhotoID:     res.Record.ID,
		Category:    res.Category,
	})
}

type saveProcessedRequest struct {
	ImageURL   string `json:"imageUrl" validate:"required,url"`
	ScreenType string `json:"screenType" validate:"max=64"`
}

// SaveProcessed copies an already rendered image into the local mirror.
func (a *App) SaveProcessed(w http.ResponseWriter, r *http.Request) {
	var req saveProcessedRequest
	if !a.decode(w, r, 16<<10, &req) {
		return
	}
	u, err := url.Parse(req.ImageURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") {
		a.error(w, http.StatusBadRequest, "imageUrl must be http or https")
		return
	}
	path, err := a.saver.SaveRemote(r.Context(), req.ImageURL, req.ScreenType)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	a.json(w, http.StatusOK, map[string]any{"success": true, "path": path})
}
