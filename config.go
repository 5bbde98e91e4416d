package searchml

import (
	"time"

	"go.uber.org/zap"

	"github.com/quantfold/searchml/retry"
)

const (
	// DefaultPageSize is the number of records requested per results page.
	DefaultPageSize = 100

	// DefaultJobTimeout is the service-side lifetime bound for a submitted
	// job.
	DefaultJobTimeout = 1000 * time.Second
)

// Config holds configuration for an Evaluation.
type Config struct {
	// Service submits search jobs. Required.
	Service SearchService

	// Scorer aggregates (predicted, actual) pairs. If nil, uses exact-match
	// accuracy.
	Scorer Scorer

	// PageSize is the number of records per results page. If 0, uses
	// DefaultPageSize.
	PageSize int

	// Mode is the job execution mode. If empty, jobs run blocking.
	Mode ExecMode

	// JobTimeout bounds each submitted job on the service side. If 0, uses
	// DefaultJobTimeout.
	JobTimeout time.Duration

	// Retry is the policy for transient page-fetch failures. The zero value
	// means the default bounded exponential backoff. Job submission is
	// never retried.
	Retry retry.Config

	// Progress, if set, receives state transitions and per-page progress.
	Progress ProgressFunc

	// Logger receives diagnostic output. If nil, logging is disabled.
	Logger *zap.SugaredLogger
}

// applyDefaults fills in default values for unset config fields
func (c *Config) applyDefaults() {
	if c.Scorer == nil {
		c.Scorer = NewAccuracyScorer()
	}

	if c.PageSize <= 0 {
		c.PageSize = DefaultPageSize
	}

	if c.Mode == "" {
		c.Mode = ExecModeBlocking
	}

	if c.JobTimeout == 0 {
		c.JobTimeout = DefaultJobTimeout
	}

	if c.Retry == (retry.Config{}) {
		c.Retry = retry.DefaultConfig()
	}

	if c.Logger == nil {
		c.Logger = zap.NewNop().Sugar()
	}
}
