package effects

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"strings"

	"photobooth/internal/domain"
)

const (
	ailabKeyHeader  = "ailabapi-api-key"
	ailabQueryPath  = "/api/common/query-async-task-result"
	ailabTaskQueued = 0
	ailabTaskActive = 1
	ailabTaskDone   = 2
)

type ailabResponse struct {
	ErrorCode   int             `json:"error_code"`
	ErrorMsg    string          `json:"error_msg"`
	ErrorDetail *ailabDetail    `json:"error_detail,omitempty"`
	TaskID      string          `json:"task_id"`
	TaskStatus  int             `json:"task_status"`
	ResultURL   string          `json:"result_url"`
	Data        json.RawMessage `json:"data"`
}

type ailabDetail struct {
	Message     string `json:"message"`
	CodeMessage string `json:"code_message"`
}

type ailabData struct {
	ImageURL  string `json:"image_url"`
	ResultURL string `json:"result_url"`
}

func (r ailabResponse) resultURL() string {
	if r.ResultURL != "" {
		return r.ResultURL
	}
	var d ailabData
	if len(r.Data) > 0 && json.Unmarshal(r.Data, &d) == nil {
		if d.ResultURL != "" {
			return d.ResultURL
		}
		return d.ImageURL
	}
	return ""
}

func (r ailabResponse) message() string {
	if r.ErrorMsg != "" {
		return r.ErrorMsg
	}
	if r.ErrorDetail != nil {
		if r.ErrorDetail.Message != "" {
			return r.ErrorDetail.Message
		}
		return r.ErrorDetail.CodeMessage
	}
	return "provider returned an error"
}

// ailabAdapter covers the synchronous multipart endpoints and the
// task-id submit-and-poll ones, selected by a task_type=async param.
type ailabAdapter struct {
	http      *httpCaller
	baseURL   string
	tempDir   string
	asyncPoll PollPolicy
	slowPoll  PollPolicy
}

func (a *ailabAdapter) Invoke(ctx context.Context, req Request) (Result, error) {
	resp, err := a.submit(ctx, req)
	if err != nil {
		return Result{}, err
	}
	if !isAsync(req.Effect) {
		if u := resp.resultURL(); u != "" {
			return Result{URL: u}, nil
		}
		return Result{}, &domain.Error{Kind: domain.KindProviderFailed, Provider: domain.ProviderAILab, Message: "response carried no result url"}
	}
	if resp.TaskID == "" {
		return Result{}, &domain.Error{Kind: domain.KindProviderFailed, Provider: domain.ProviderAILab, Message: "async response carried no task id"}
	}
	policy := a.asyncPoll
	if req.Effect.EffectGroup == domain.GroupUniverse {
		policy = a.slowPoll
	}
	var result string
	req.report(domain.JobPolling)
	err = poll(ctx, domain.ProviderAILab, policy, func(ctx context.Context, attempt int) (bool, error) {
		u, done, err := a.query(ctx, req.APIKey, resp.TaskID)
		if err != nil || !done {
			return false, err
		}
		result = u
		return true, nil
	})
	if err != nil {
		return Result{}, err
	}
	return Result{URL: result}, nil
}

func (a *ailabAdapter) submit(ctx context.Context, req Request) (ailabResponse, error) {
	httpReq, err := newMultipartRequest(ctx, endpointURL(a.baseURL, req.Effect.Endpoint), a.tempDir, req.Image, req.ContentType, req.Effect.StaticParams)
	if err != nil {
		return ailabResponse{}, err
	}
	httpReq.Header.Set(ailabKeyHeader, req.APIKey)
	return decodeAILab(ctx, a.http, domain.ProviderAILab, httpReq, domain.KindProviderRejected)
}

// query reports the task result url once the task reached the done state.
func (a *ailabAdapter) query(ctx context.Context, apiKey, taskID string) (string, bool, error) {
	u := a.baseURL + ailabQueryPath + "?task_id=" + url.QueryEscape(taskID)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return "", false, &domain.Error{Kind: domain.KindInternal, Message: "build request", Err: err}
	}
	httpReq.Header.Set(ailabKeyHeader, apiKey)
	resp, err := decodeAILab(ctx, a.http, domain.ProviderAILab, httpReq, domain.KindProviderFailed)
	if err != nil {
		return "", false, err
	}
	switch resp.TaskStatus {
	case ailabTaskQueued, ailabTaskActive:
		return "", false, nil
	case ailabTaskDone:
		if u := resp.resultURL(); u != "" {
			return u, true, nil
		}
		return "", false, &domain.Error{Kind: domain.KindProviderFailed, Provider: domain.ProviderAILab, Message: "task finished without a result url"}
	default:
		return "", false, &domain.Error{
			Kind:     domain.KindProviderFailed,
			Provider: domain.ProviderAILab,
			Code:     resp.TaskStatus,
			Message:  "task failed",
		}
	}
}

// decodeAILab reads an AILab envelope. A non-zero error_code is reported
// with errKind even when the HTTP status is 4xx.
func decodeAILab(ctx context.Context, c *httpCaller, provider string, req *http.Request, errKind domain.ErrorKind) (ailabResponse, error) {
	status, body, err := c.do(ctx, provider, req)
	if err != nil {
		return ailabResponse{}, err
	}
	var resp ailabResponse
	parseErr := json.Unmarshal(body, &resp)
	if parseErr == nil && resp.ErrorCode != 0 {
		return resp, &domain.Error{Kind: errKind, Provider: provider, Code: resp.ErrorCode, Message: resp.message()}
	}
	if status >= 300 {
		return resp, statusError(provider, status, body)
	}
	if parseErr != nil {
		return resp, &domain.Error{Kind: domain.KindProviderFailed, Provider: provider, Message: "unreadable response", Err: parseErr}
	}
	return resp, nil
}

func isAsync(e domain.EffectDefinition) bool {
	v, ok := e.Param("task_type")
	return ok && strings.EqualFold(strings.TrimSpace(v), "async")
}
