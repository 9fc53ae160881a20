package effects

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"photobooth/internal/domain"
	"photobooth/internal/infra"
)

const maxErrorBody = 512

// httpCaller performs vendor requests and classifies transport failures.
type httpCaller struct {
	client *http.Client
	logger *infra.Logger
}

// do sends req and returns the status and body. Transport errors become
// Timeout (deadline hit) or NetworkError.
func (c *httpCaller) do(ctx context.Context, provider string, req *http.Request) (int, []byte, error) {
	resp, err := c.client.Do(req)
	if err != nil {
		return 0, nil, transportError(ctx, provider, err)
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return resp.StatusCode, nil, transportError(ctx, provider, err)
	}
	c.logger.Debug().
		Str("provider", provider).
		Str("method", req.Method).
		Str("url", req.URL.Redacted()).
		Int("status", resp.StatusCode).
		Msg("effects: provider call")
	return resp.StatusCode, body, nil
}

// doJSON sends req and decodes a 2xx body into out. Non-2xx statuses are
// mapped through statusError.
func (c *httpCaller) doJSON(ctx context.Context, provider string, req *http.Request, out any) error {
	status, body, err := c.do(ctx, provider, req)
	if err != nil {
		return err
	}
	if status >= 300 {
		return statusError(provider, status, body)
	}
	if err := json.Unmarshal(body, out); err != nil {
		return &domain.Error{
			Kind:     domain.KindProviderFailed,
			Provider: provider,
			Message:  "unreadable response",
			Err:      err,
		}
	}
	return nil
}

func transportError(ctx context.Context, provider string, err error) error {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return &domain.Error{Kind: domain.KindTimeout, Provider: provider, Message: "deadline exceeded", Err: err}
	}
	return &domain.Error{Kind: domain.KindNetworkError, Provider: provider, Message: "request failed", Err: err}
}

// statusError maps an HTTP failure: 4xx is a rejection of our input, 5xx a
// vendor-side failure.
func statusError(provider string, status int, body []byte) error {
	kind := domain.KindProviderFailed
	if status >= 400 && status < 500 {
		kind = domain.KindProviderRejected
	}
	msg := strings.TrimSpace(string(body))
	if len(msg) > maxErrorBody {
		msg = msg[:maxErrorBody]
	}
	if msg == "" {
		msg = http.StatusText(status)
	}
	return &domain.Error{Kind: kind, Provider: provider, Code: status, Message: msg}
}

// classify turns errors from helper clients into domain errors.
func classify(ctx context.Context, provider string, err error) error {
	var de *domain.Error
	if errors.As(err, &de) {
		return err
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return &domain.Error{Kind: domain.KindTimeout, Provider: provider, Message: "deadline exceeded", Err: err}
	}
	return &domain.Error{Kind: domain.KindProviderFailed, Provider: provider, Message: fmt.Sprint(err), Err: err}
}
