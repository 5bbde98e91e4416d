// Package splunk is a minimal client for the Splunk search REST API: job
// creation, status polling and paged result retrieval. It covers exactly the
// surface the evaluation engine needs, nothing more.
package splunk

import (
	"context"
	"crypto/tls"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/quantfold/searchml/retry"
)

const defaultPollInterval = time.Second

// APIError is a non-2xx response from the service.
type APIError struct {
	StatusCode int
	Path       string
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("splunk API %s: status %d: %s", e.Path, e.StatusCode, e.Body)
}

// Temporary reports whether the failure is worth retrying.
func (e *APIError) Temporary() bool {
	return e.StatusCode >= 500 || e.StatusCode == http.StatusTooManyRequests
}

// Client talks to one Splunk management endpoint with basic auth. It is safe
// to reuse across sequential evaluations; concurrent use needs external
// synchronization because the underlying jobs are stateful.
type Client struct {
	BaseURL     string
	Username    string
	Password    string
	HTTPClient  *http.Client
	RetryConfig retry.Config

	logf         retry.Logger
	pollInterval time.Duration
}

// NewClient creates a client for the management endpoint at baseURL
// (e.g. https://splunk.example.com:8089).
func NewClient(baseURL, username, password string) *Client {
	return &Client{
		BaseURL:      strings.TrimRight(baseURL, "/"),
		Username:     username,
		Password:     password,
		HTTPClient:   http.DefaultClient,
		RetryConfig:  retry.DefaultConfig(),
		pollInterval: defaultPollInterval,
	}
}

// SetInsecure disables TLS certificate verification. Splunk management ports
// ship with self-signed certificates, so lab setups need this.
func (c *Client) SetInsecure() *Client {
	c.HTTPClient = &http.Client{
		Transport: &http.Transport{
			TLSClientConfig: &tls.Config{InsecureSkipVerify: true},
		},
	}
	return c
}

// SetLogf sets the diagnostic logger for retry attempts
func (c *Client) SetLogf(logf retry.Logger) *Client {
	c.logf = logf
	return c
}

// SetPollInterval sets how often WaitForCompletion checks job status
func (c *Client) SetPollInterval(d time.Duration) *Client {
	if d > 0 {
		c.pollInterval = d
	}
	return c
}

// CreateJob submits a search job and returns its sid. With exec_mode=blocking
// the call does not return until the job has finished. Submission is a single
// attempt: a failure here must surface, not be papered over by retries.
func (c *Client) CreateJob(ctx context.Context, query, execMode string, timeout time.Duration) (string, error) {
	form := url.Values{}
	form.Set("search", query)
	form.Set("exec_mode", execMode)
	form.Set("timeout", strconv.Itoa(int(timeout.Seconds())))
	form.Set("output_mode", "json")

	body, err := c.do(ctx, http.MethodPost, "/services/search/jobs", form, false)
	if err != nil {
		return "", err
	}

	var resp createJobResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return "", fmt.Errorf("decode create job response: %w", err)
	}
	if resp.SID == "" {
		return "", fmt.Errorf("create job response carried no sid: %s", body)
	}
	return resp.SID, nil
}

// JobStatus fetches the current state of the job identified by sid.
func (c *Client) JobStatus(ctx context.Context, sid string) (*JobContent, error) {
	path := "/services/search/jobs/" + url.PathEscape(sid) + "?output_mode=json"

	body, err := c.do(ctx, http.MethodGet, path, nil, true)
	if err != nil {
		return nil, err
	}

	var resp jobResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("decode job status response: %w", err)
	}
	if len(resp.Entry) == 0 {
		return nil, fmt.Errorf("job %s: empty status response", sid)
	}
	return &resp.Entry[0].Content, nil
}

// WaitForCompletion polls the job until it is done, it fails, or ctx ends.
func (c *Client) WaitForCompletion(ctx context.Context, sid string) (*JobContent, error) {
	for {
		content, err := c.JobStatus(ctx, sid)
		if err != nil {
			return nil, err
		}
		if content.IsFailed {
			return nil, fmt.Errorf("job %s failed (dispatch state %s)", sid, content.DispatchState)
		}
		if content.IsDone {
			return content, nil
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(c.pollInterval):
		}
	}
}

// Results fetches one page of results for sid, count records starting at
// offset. The page is returned as-is: fewer records than requested means the
// result set ends there. Retries are the caller's concern, so pagination
// keeps a single retry policy.
func (c *Client) Results(ctx context.Context, sid string, offset, count int) (*ResultsPage, error) {
	q := url.Values{}
	q.Set("output_mode", "json")
	q.Set("offset", strconv.Itoa(offset))
	q.Set("count", strconv.Itoa(count))
	path := "/services/search/jobs/" + url.PathEscape(sid) + "/results?" + q.Encode()

	body, err := c.do(ctx, http.MethodGet, path, nil, false)
	if err != nil {
		return nil, err
	}

	var page ResultsPage
	if err := json.Unmarshal(body, &page); err != nil {
		return nil, fmt.Errorf("decode results page: %w", err)
	}
	return &page, nil
}

// do performs one authenticated request. The form body, if any, is re-encoded
// per attempt so retries never reuse a drained reader.
func (c *Client) do(ctx context.Context, method, path string, form url.Values, withRetry bool) ([]byte, error) {
	cfg := c.RetryConfig
	if !withRetry {
		cfg.MaxRetries = 0
	}

	var out []byte
	err := retry.Do(ctx, cfg, c.isRetryable, c.logf, func(attempt int) error {
		var reqBody io.Reader
		if form != nil {
			reqBody = strings.NewReader(form.Encode())
		}

		req, err := http.NewRequestWithContext(ctx, method, c.BaseURL+path, reqBody)
		if err != nil {
			return err
		}
		req.SetBasicAuth(c.Username, c.Password)
		if form != nil {
			req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
		}

		resp, err := c.HTTPClient.Do(req)
		if err != nil {
			return err
		}
		defer resp.Body.Close()

		b, err := io.ReadAll(resp.Body)
		if err != nil {
			return err
		}

		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			return &APIError{StatusCode: resp.StatusCode, Path: path, Body: strings.TrimSpace(string(b))}
		}

		out = b
		return nil
	})
	return out, err
}

// isRetryable determines if an error should trigger a retry
func (c *Client) isRetryable(err error) bool {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}

	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Temporary()
	}

	// Anything else is a network-level error
	return true
}
