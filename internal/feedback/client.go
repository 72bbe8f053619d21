package feedback

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"intervoice/internal/core"
	"intervoice/pkg/schema"
)

// CreatePath is the feedback server route that creates feedback.
const CreatePath = "/api/feedback"

// errorResponse is the body the feedback server sends on failure.
type errorResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
}

// HTTPClient is a core.FeedbackCollaborator backed by a remote feedback server.
type HTTPClient struct {
	baseURL    string
	httpClient *http.Client
}

// NewHTTPClient creates a client for the feedback server at baseURL.
// The dispatcher's context bounds each call; timeout is a backstop for a stalled connection.
func NewHTTPClient(baseURL string, timeout time.Duration) *HTTPClient {
	return &HTTPClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

func (c *HTTPClient) CreateFeedback(ctx context.Context, req *schema.FeedbackRequest) (*schema.FeedbackResponse, error) {
	url := c.baseURL + CreatePath

	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("marshal feedback request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, &core.NetworkError{Operation: "POST", URL: url, Message: "request failed", Err: err}
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &core.NetworkError{Operation: "POST", URL: url, Message: "read response", Err: err}
	}

	if resp.StatusCode != http.StatusOK {
		var errResp errorResponse
		if json.Unmarshal(respBody, &errResp) == nil && errResp.Error != "" {
			return nil, fmt.Errorf("feedback server returned %d: %s", resp.StatusCode, errResp.Error)
		}
		return nil, fmt.Errorf("feedback server returned %d: %s", resp.StatusCode, strings.TrimSpace(string(respBody)))
	}

	var out schema.FeedbackResponse
	if err := json.Unmarshal(respBody, &out); err != nil {
		return nil, fmt.Errorf("parse feedback response: %w", err)
	}

	return &out, nil
}
