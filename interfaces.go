package searchml

import (
	"context"
	"time"
)

// ExecMode is the execution mode of a submitted search job.
type ExecMode string

const (
	// ExecModeBlocking makes submission wait until the job has finished.
	ExecModeBlocking ExecMode = "blocking"

	// ExecModeNormal returns immediately; the service adapter polls the job
	// until completion before handing back a JobHandle.
	ExecModeNormal ExecMode = "normal"
)

// SubmitOptions configures a single job submission.
type SubmitOptions struct {
	Mode ExecMode

	// Timeout is the service-side upper bound for the job's lifetime. It is
	// fixed per job, not per page.
	Timeout time.Duration
}

// SearchService submits queries to the remote search service. Implementations
// wrap a long-lived connection that may be reused across sequential
// evaluations, but must not be shared by concurrent ones without external
// synchronization.
type SearchService interface {
	Submit(ctx context.Context, query string, opts SubmitOptions) (JobHandle, error)
}

// JobHandle is a finished search job whose result set can be read in pages.
type JobHandle interface {
	// ResultCount is the total number of results the job declared on
	// completion.
	ResultCount() int

	// FetchPage retrieves count records starting at offset. It is a
	// blocking network round-trip. Returning fewer records than requested
	// marks the final page; implementations must not pad or re-fetch.
	FetchPage(ctx context.Context, offset, count int) ([]Record, error)
}

// Predictor is a trainable prediction capability. Implementations are owned by
// the caller; an Evaluation only invokes their methods.
type Predictor interface {
	// Train fits the predictor on the events matched by query, using
	// featureFields to predict labelField.
	Train(ctx context.Context, query string, featureFields []string, labelField string) error

	// PredictEvent predicts labelField for a single record. The returned
	// value is a string for classifiers and a formatted number for
	// regressors, matching how the service serializes fields.
	PredictEvent(ctx context.Context, rec Record, featureFields []string, labelField string) (string, error)
}

// SearchPredictor is a Predictor that can compile its prediction into a search
// expression, so the service annotates every result row of query with a
// prediction under outputField.
type SearchPredictor interface {
	Predictor

	PredictSearchExpression(query string, featureFields []string, labelField, outputField string) (string, error)
}

// Scorer converts a stream of (predicted, actual) pairs into one summary
// statistic. Scorer state is scoped to a single evaluation run and must not be
// shared across concurrent runs.
type Scorer interface {
	// Observe records one pair. A *FieldError return means the pair was
	// unusable (malformed numeric field) and was not counted.
	Observe(predicted, actual string) error

	// Finalize returns the aggregate statistic. With zero observations it
	// returns ErrNoObservations, never 0 or NaN.
	Finalize() (float64, error)

	// Metric names the statistic this scorer produces.
	Metric() string
}
