package persist

import (
	"context"
	"errors"

	"photobooth/internal/domain"
	"photobooth/internal/media"
)

// FetchError classifies a failed image download.
func FetchError(ctx context.Context, err error) error {
	var status *media.StatusError
	switch {
	case errors.Is(err, media.ErrTooLarge):
		return &domain.Error{Kind: domain.KindInvalidInput, Message: "image too large", Err: err}
	case errors.As(err, &status):
		kind := domain.KindProviderFailed
		if status.Status >= 400 && status.Status < 500 {
			kind = domain.KindNotFound
		}
		return &domain.Error{Kind: kind, Code: status.Status, Message: "download image", Err: err}
	case errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded):
		return &domain.Error{Kind: domain.KindTimeout, Message: "download image", Err: err}
	default:
		return &domain.Error{Kind: domain.KindNetworkError, Message: "download image", Err: err}
	}
}
