package effects

import (
	"context"
	"errors"
	"strings"

	"photobooth/internal/domain"
	"photobooth/internal/infra"
	"photobooth/internal/media"
	"photobooth/internal/providers/genai"
)

// geminiAdapter runs a single-shot image+prompt edit. A response without an
// image part passes the capture through unchanged instead of failing. The
// result is returned as bytes only; the persister owns the upload.
type geminiAdapter struct {
	editor ImageEditor
	logger *infra.Logger
}

func (a *geminiAdapter) Invoke(ctx context.Context, req Request) (Result, error) {
	image, contentType := req.Image, req.ContentType
	if f, err := media.ParseFormat(contentType); err == nil {
		normalized, nf, err := media.Normalize(image, f)
		if err != nil {
			return Result{}, &domain.Error{Kind: domain.KindInvalidInput, Provider: domain.ProviderGemini, Message: "re-encode capture", Err: err}
		}
		image, contentType = normalized, nf.ContentType()
	}

	prompt, ok := req.Effect.Param("prompt")
	if !ok || strings.TrimSpace(prompt) == "" {
		prompt = req.Effect.DisplayName
	}

	resp, err := a.editor.EditImage(ctx, genai.EditRequest{
		APIKey:   req.APIKey,
		Prompt:   prompt,
		Image:    image,
		MimeType: contentType,
	})
	if err != nil {
		return Result{}, geminiError(ctx, err)
	}

	if resp == nil || len(resp.Image) == 0 {
		a.logger.Warn().
			Int64("effect_id", req.Effect.ID).
			Msg("effects: gemini returned no image, passing original through")
		return Result{Data: req.Image, ContentType: req.ContentType}, nil
	}
	mime := resp.MimeType
	if mime == "" {
		mime = "image/png"
	}
	return Result{Data: resp.Image, ContentType: mime}, nil
}

func geminiError(ctx context.Context, err error) error {
	var apiErr *genai.APIError
	if errors.As(err, &apiErr) {
		kind := domain.KindProviderFailed
		if apiErr.Status >= 400 && apiErr.Status < 500 {
			kind = domain.KindProviderRejected
		}
		return &domain.Error{Kind: kind, Provider: domain.ProviderGemini, Code: apiErr.Status, Message: apiErr.Message}
	}
	if errors.Is(err, genai.ErrMissingAPIKey) {
		return &domain.Error{Kind: domain.KindInternal, Provider: domain.ProviderGemini, Message: "missing api key", Err: err}
	}
	if errors.Is(err, genai.ErrTransport) {
		return transportError(ctx, domain.ProviderGemini, err)
	}
	return classify(ctx, domain.ProviderGemini, err)
}
