// Package ai holds thin clients for the OpenAI-compatible model APIs the
// server delegates to: embeddings for the local retrieval engine and chat
// completions for answer synthesis and summarization. Transient upstream
// failures are retried with exponential backoff.
package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/dmitrijs2005/tubequery/internal/common"
	"github.com/sethvargo/go-retry"
)

const (
	defaultTimeout = 60 * time.Second
	maxRetries     = 4
	retryBase      = 200 * time.Millisecond
)

// Client talks to one OpenAI-compatible API endpoint.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

func NewClient(baseURL, apiKey string) *Client {
	return &Client{
		baseURL:    baseURL,
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: defaultTimeout},
	}
}

// postJSON sends body to path and decodes the response into out, retrying
// 429s and 5xx responses.
func (c *Client) postJSON(ctx context.Context, path string, body any, out any) error {

	payload, err := json.Marshal(body)
	if err != nil {
		return err
	}

	backoff := retry.WithMaxRetries(maxRetries, retry.NewExponential(retryBase))

	return retry.Do(ctx, backoff, func(ctx context.Context) error {

		req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(payload))
		if err != nil {
			return err
		}
		req.Header.Set("Content-Type", "application/json")
		if c.apiKey != "" {
			req.Header.Set("Authorization", common.BearerPrefix+c.apiKey)
		}

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return retry.RetryableError(fmt.Errorf("%w: %v", common.ErrUpstream, err))
		}
		defer resp.Body.Close()

		if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
			return retry.RetryableError(fmt.Errorf("%w: %s", common.ErrUpstream, resp.Status))
		}
		if resp.StatusCode >= 300 {
			return fmt.Errorf("%w: %s", common.ErrUpstream, resp.Status)
		}

		data, err := io.ReadAll(resp.Body)
		if err != nil {
			return retry.RetryableError(fmt.Errorf("%w: %v", common.ErrUpstream, err))
		}

		if err := json.Unmarshal(data, out); err != nil {
			return fmt.Errorf("%w: decoding response: %v", common.ErrUpstream, err)
		}
		return nil
	})
}
