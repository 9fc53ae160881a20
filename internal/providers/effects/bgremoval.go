package effects

import (
	"context"

	"photobooth/internal/domain"
)

// bgRemovalAdapter is the single-shot multipart background removal call.
type bgRemovalAdapter struct {
	http    *httpCaller
	baseURL string
	tempDir string
}

func (a *bgRemovalAdapter) Invoke(ctx context.Context, req Request) (Result, error) {
	httpReq, err := newMultipartRequest(ctx, endpointURL(a.baseURL, req.Effect.Endpoint), a.tempDir, req.Image, req.ContentType, req.Effect.StaticParams)
	if err != nil {
		return Result{}, err
	}
	httpReq.Header.Set(ailabKeyHeader, req.APIKey)

	resp, err := decodeAILab(ctx, a.http, domain.ProviderAILabBG, httpReq, domain.KindProviderRejected)
	if err != nil {
		return Result{}, err
	}
	u := resp.resultURL()
	if u == "" {
		return Result{}, &domain.Error{Kind: domain.KindProviderFailed, Provider: domain.ProviderAILabBG, Message: "response carried no image url"}
	}
	return Result{URL: u}, nil
}
