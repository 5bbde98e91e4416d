package searchml

import "strconv"

// AccuracyScorer aggregates exact-match accuracy for classification runs.
type AccuracyScorer struct {
	correct int
	total   int
}

// NewAccuracyScorer returns a fresh accuracy aggregate. Scorers are
// single-run; use a new one per evaluation.
func NewAccuracyScorer() *AccuracyScorer { return &AccuracyScorer{} }

func (s *AccuracyScorer) Metric() string { return "accuracy" }

// Observe records one pair. Equality is string equality, matching how the
// service serializes field values.
func (s *AccuracyScorer) Observe(predicted, actual string) error {
	s.total++
	if predicted == actual {
		s.correct++
	}
	return nil
}

func (s *AccuracyScorer) Finalize() (float64, error) {
	if s.total == 0 {
		return 0, ErrNoObservations
	}
	return float64(s.correct) / float64(s.total), nil
}

// MeanSquaredErrorScorer aggregates half the mean squared error for regression
// runs. The ½ scaling follows the usual squared-error loss convention; keep it
// so reported metrics stay comparable downstream.
type MeanSquaredErrorScorer struct {
	sum   float64
	count int
}

// NewMeanSquaredErrorScorer returns a fresh mean-squared-error aggregate.
func NewMeanSquaredErrorScorer() *MeanSquaredErrorScorer { return &MeanSquaredErrorScorer{} }

func (s *MeanSquaredErrorScorer) Metric() string { return "mean_squared_error" }

// Observe parses both values as floats and accumulates the squared
// difference. A value that fails to parse is reported as a *FieldError and
// not counted.
func (s *MeanSquaredErrorScorer) Observe(predicted, actual string) error {
	p, err := strconv.ParseFloat(predicted, 64)
	if err != nil {
		return &FieldError{Field: "predicted", Value: predicted, Err: err}
	}

	a, err := strconv.ParseFloat(actual, 64)
	if err != nil {
		return &FieldError{Field: "actual", Value: actual, Err: err}
	}

	d := a - p
	s.sum += d * d
	s.count++
	return nil
}

func (s *MeanSquaredErrorScorer) Finalize() (float64, error) {
	if s.count == 0 {
		return 0, ErrNoObservations
	}
	return 0.5 * s.sum / float64(s.count), nil
}
