// Package adapters bridges the raw service clients to the capability
// interfaces the evaluation core depends on.
package adapters

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"

	searchml "github.com/quantfold/searchml"
	"github.com/quantfold/searchml/clients/splunk"
)

// SplunkService adapts the Splunk REST client to the searchml.SearchService
// interface.
type SplunkService struct {
	client *splunk.Client
}

// NewSplunkService creates an adapter, falling back to the SPLUNK_URL,
// SPLUNK_USERNAME and SPLUNK_PASSWORD environment variables for any nil
// argument.
func NewSplunkService(baseURL, username, password *string) (*SplunkService, error) {
	u, err := loadEnvVar(baseURL, "SPLUNK_URL")
	if err != nil {
		return nil, err
	}

	user, err := loadEnvVar(username, "SPLUNK_USERNAME")
	if err != nil {
		return nil, err
	}

	pass, err := loadEnvVar(password, "SPLUNK_PASSWORD")
	if err != nil {
		return nil, err
	}

	return &SplunkService{client: splunk.NewClient(*u, *user, *pass)}, nil
}

// NewSplunkServiceWithClient wraps an already-configured client.
func NewSplunkServiceWithClient(c *splunk.Client) *SplunkService {
	return &SplunkService{client: c}
}

// Submit implements searchml.SearchService. Blocking jobs return once the
// service finishes them; normal jobs are polled to completion here, so the
// returned handle always has a known result count.
func (s *SplunkService) Submit(ctx context.Context, query string, opts searchml.SubmitOptions) (searchml.JobHandle, error) {
	mode := string(opts.Mode)
	if mode == "" {
		mode = string(searchml.ExecModeBlocking)
	}

	sid, err := s.client.CreateJob(ctx, query, mode, opts.Timeout)
	if err != nil {
		return nil, fmt.Errorf("create job: %w", err)
	}

	content, err := s.client.WaitForCompletion(ctx, sid)
	if err != nil {
		return nil, fmt.Errorf("wait for job %s: %w", sid, err)
	}

	return &splunkJob{client: s.client, sid: sid, resultCount: content.ResultCount}, nil
}

// splunkJob is a searchml.JobHandle over one finished search job.
type splunkJob struct {
	client      *splunk.Client
	sid         string
	resultCount int
}

func (j *splunkJob) ResultCount() int { return j.resultCount }

func (j *splunkJob) FetchPage(ctx context.Context, offset, count int) ([]searchml.Record, error) {
	page, err := j.client.Results(ctx, j.sid, offset, count)
	if err != nil {
		return nil, err
	}

	records := make([]searchml.Record, 0, len(page.Results))
	for _, row := range page.Results {
		rec := make(searchml.Record, len(row))
		for field, value := range row {
			rec[field] = fieldString(value)
		}
		records = append(records, rec)
	}
	return records, nil
}

// fieldString flattens a decoded JSON field to the string form the core
// expects. Multivalue fields come back as arrays and are newline-joined, the
// way Splunk renders them.
func fieldString(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case []any:
		parts := make([]string, 0, len(t))
		for _, p := range t {
			parts = append(parts, fieldString(p))
		}
		return strings.Join(parts, "\n")
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(t)
	case nil:
		return ""
	default:
		return fmt.Sprintf("%v", t)
	}
}

// loadEnvVar returns value if set, otherwise falls back to the environment
func loadEnvVar(value *string, envKey string) (*string, error) {
	if value != nil && *value != "" {
		return value, nil
	}

	env := os.Getenv(envKey)
	if env == "" {
		return nil, fmt.Errorf("%s is not set", envKey)
	}
	return &env, nil
}
