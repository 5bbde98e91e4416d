package searchml

import (
	"errors"
	"fmt"
)

var (
	// ErrNoObservations is returned by Scorer.Finalize when no valid
	// (predicted, actual) pair was observed: the metric is undefined.
	ErrNoObservations = errors.New("searchml: no observations, metric is undefined")

	// ErrNotTrained is returned by predictors asked to predict before
	// Train has completed.
	ErrNotTrained = errors.New("searchml: predictor is not trained")

	// ErrEvaluationDone is returned when a finalized Evaluation is reused.
	// Evaluations are single-shot; create a new one to re-evaluate.
	ErrEvaluationDone = errors.New("searchml: evaluation already finalized")
)

// FieldError reports a field value that could not be used for scoring, most
// commonly a non-numeric value where a regression metric expected a number.
// It is a transient data error: the affected record is skipped and the run
// continues.
type FieldError struct {
	Field string
	Value string
	Err   error
}

func (e *FieldError) Error() string {
	return fmt.Sprintf("malformed field %q (value %q): %v", e.Field, e.Value, e.Err)
}

func (e *FieldError) Unwrap() error { return e.Err }

// ServiceError reports a failure talking to the remote search service. It is
// fatal to the evaluation run that hit it; no partial result is returned.
type ServiceError struct {
	Op  string
	Err error
}

func (e *ServiceError) Error() string {
	return fmt.Sprintf("search service: %s: %v", e.Op, e.Err)
}

func (e *ServiceError) Unwrap() error { return e.Err }
