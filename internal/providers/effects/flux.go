package effects

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/url"
	"strings"

	"photobooth/internal/domain"
)

const fluxKeyHeader = "x-key"

type fluxSubmitRequest struct {
	Prompt       string `json:"prompt"`
	InputImage   string `json:"input_image"`
	OutputFormat string `json:"output_format,omitempty"`
	AspectRatio  string `json:"aspect_ratio,omitempty"`
}

type fluxSubmitResponse struct {
	ID         string `json:"id"`
	PollingURL string `json:"polling_url"`
}

type fluxResultResponse struct {
	ID     string `json:"id"`
	Status string `json:"status"`
	Result *struct {
		Sample string `json:"sample"`
	} `json:"result"`
}

var fluxTerminal = map[string]bool{
	"error":             true,
	"failed":            true,
	"content moderated": true,
	"request moderated": true,
	"task not found":    true,
}

// fluxAdapter submits a Kontext edit and polls the returned polling url.
type fluxAdapter struct {
	http    *httpCaller
	baseURL string
	poll    PollPolicy
}

func (a *fluxAdapter) Invoke(ctx context.Context, req Request) (Result, error) {
	prompt, ok := req.Effect.Param("prompt")
	if !ok || strings.TrimSpace(prompt) == "" {
		prompt = req.Effect.DisplayName
	}
	format, _ := req.Effect.Param("output_format")
	aspect, _ := req.Effect.Param("aspect_ratio")

	body, err := json.Marshal(fluxSubmitRequest{
		Prompt:       prompt,
		InputImage:   base64.StdEncoding.EncodeToString(req.Image),
		OutputFormat: format,
		AspectRatio:  aspect,
	})
	if err != nil {
		return Result{}, &domain.Error{Kind: domain.KindInternal, Message: "encode request", Err: err}
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, endpointURL(a.baseURL, req.Effect.Endpoint), bytes.NewReader(body))
	if err != nil {
		return Result{}, &domain.Error{Kind: domain.KindInternal, Message: "build request", Err: err}
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set(fluxKeyHeader, req.APIKey)

	var submitted fluxSubmitResponse
	if err := a.http.doJSON(ctx, domain.ProviderFluxKontext, httpReq, &submitted); err != nil {
		return Result{}, err
	}
	pollURL := submitted.PollingURL
	if pollURL == "" {
		if submitted.ID == "" {
			return Result{}, &domain.Error{Kind: domain.KindProviderFailed, Provider: domain.ProviderFluxKontext, Message: "submit response carried no task"}
		}
		pollURL = a.baseURL + "/get_result?id=" + url.QueryEscape(submitted.ID)
	}

	var sample string
	req.report(domain.JobPolling)
	err = poll(ctx, domain.ProviderFluxKontext, a.poll, func(ctx context.Context, attempt int) (bool, error) {
		r, err := http.NewRequestWithContext(ctx, http.MethodGet, pollURL, nil)
		if err != nil {
			return false, &domain.Error{Kind: domain.KindInternal, Message: "build request", Err: err}
		}
		r.Header.Set(fluxKeyHeader, req.APIKey)
		var res fluxResultResponse
		if err := a.http.doJSON(ctx, domain.ProviderFluxKontext, r, &res); err != nil {
			return false, err
		}
		status := strings.ToLower(strings.TrimSpace(res.Status))
		switch {
		case status == "ready":
			if res.Result == nil || res.Result.Sample == "" {
				return false, &domain.Error{Kind: domain.KindProviderFailed, Provider: domain.ProviderFluxKontext, Message: "ready without a sample"}
			}
			sample = res.Result.Sample
			return true, nil
		case fluxTerminal[status]:
			return false, &domain.Error{Kind: domain.KindProviderFailed, Provider: domain.ProviderFluxKontext, Message: res.Status}
		default:
			return false, nil
		}
	})
	if err != nil {
		return Result{}, err
	}
	return Result{URL: sample}, nil
}
