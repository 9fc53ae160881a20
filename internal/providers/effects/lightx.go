package effects

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"photobooth/internal/domain"
	"photobooth/internal/media"
)

const (
	lightxKeyHeader   = "x-api-key"
	lightxStatusPath  = "/v1/order-status"
	lightxStatusOK    = 2000
	lightxOrderFailed = "failed"
)

type lightxCreateRequest struct {
	ImageURL      string `json:"imageUrl"`
	StyleImageURL string `json:"styleImageUrl,omitempty"`
	TextPrompt    string `json:"textPrompt,omitempty"`
}

type lightxEnvelope struct {
	StatusCode int         `json:"statusCode"`
	Message    string      `json:"message"`
	Body       lightxOrder `json:"body"`
}

type lightxOrder struct {
	OrderID string `json:"orderId"`
	Status  string `json:"status"`
	Output  string `json:"output"`
}

// lightxAdapter needs a public source URL, so the capture is uploaded to
// object storage first and the order is then polled by id.
type lightxAdapter struct {
	http    *httpCaller
	baseURL string
	store   domain.ObjectStore
	poll    PollPolicy
}

func (a *lightxAdapter) Invoke(ctx context.Context, req Request) (Result, error) {
	sourceURL, err := a.uploadSource(ctx, req)
	if err != nil {
		return Result{}, err
	}

	style, _ := req.Effect.Param("styleImageUrl")
	prompt, _ := req.Effect.Param("textPrompt")
	var created lightxEnvelope
	if err := a.postJSON(ctx, endpointURL(a.baseURL, req.Effect.Endpoint), req.APIKey, lightxCreateRequest{
		ImageURL:      sourceURL,
		StyleImageURL: style,
		TextPrompt:    prompt,
	}, &created); err != nil {
		return Result{}, err
	}
	if err := created.check(); err != nil {
		return Result{}, err
	}
	orderID := created.Body.OrderID
	if orderID == "" {
		return Result{}, &domain.Error{Kind: domain.KindProviderFailed, Provider: domain.ProviderLightX, Message: "create response carried no order id"}
	}

	var output string
	req.report(domain.JobPolling)
	err = poll(ctx, domain.ProviderLightX, a.poll, func(ctx context.Context, attempt int) (bool, error) {
		var status lightxEnvelope
		if err := a.postJSON(ctx, endpointURL(a.baseURL, lightxStatusPath), req.APIKey, map[string]string{"orderId": orderID}, &status); err != nil {
			return false, err
		}
		if err := status.check(); err != nil {
			return false, err
		}
		if strings.EqualFold(status.Body.Status, lightxOrderFailed) {
			return false, &domain.Error{Kind: domain.KindProviderFailed, Provider: domain.ProviderLightX, Message: "order " + orderID + " failed"}
		}
		if status.Body.Output != "" {
			output = status.Body.Output
			return true, nil
		}
		return false, nil
	})
	if err != nil {
		return Result{}, err
	}
	return Result{URL: output}, nil
}

func (a *lightxAdapter) uploadSource(ctx context.Context, req Request) (string, error) {
	ext := "jpg"
	if f, err := media.ParseFormat(req.ContentType); err == nil {
		ext = f.Extension()
	}
	key := fmt.Sprintf("sources/%s.%s", uuid.NewString(), ext)
	u, err := a.store.Upload(ctx, key, bytes.NewReader(req.Image), domain.UploadOptions{
		ContentType:  req.ContentType,
		CacheControl: "3600",
	})
	if err != nil {
		return "", &domain.Error{Kind: domain.KindPersistenceError, Provider: domain.ProviderLightX, Message: "upload source image", Err: err}
	}
	return u, nil
}

func (a *lightxAdapter) postJSON(ctx context.Context, u, apiKey string, payload any, out any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return &domain.Error{Kind: domain.KindInternal, Message: "encode request", Err: err}
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, u, bytes.NewReader(body))
	if err != nil {
		return &domain.Error{Kind: domain.KindInternal, Message: "build request", Err: err}
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set(lightxKeyHeader, apiKey)
	return a.http.doJSON(ctx, domain.ProviderLightX, httpReq, out)
}

func (e lightxEnvelope) check() error {
	if e.StatusCode == 0 || e.StatusCode == lightxStatusOK {
		return nil
	}
	msg := e.Message
	if msg == "" {
		msg = "request rejected"
	}
	return &domain.Error{Kind: domain.KindProviderRejected, Provider: domain.ProviderLightX, Code: e.StatusCode, Message: msg}
}
