// Package searchml evaluates supervised-learning predictors against labeled
// events held in a remote search service. An Evaluation trains a predictor,
// submits a test search, streams the job's results through a scorer in
// bounded-size pages and reports a single summary statistic.
package searchml

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// Evaluation drives one train-then-score run. It is single-shot: the state
// machine only moves forward (untrained → training → searching → paging →
// finalized) and a finalized Evaluation returns ErrEvaluationDone on reuse.
// Create a fresh Evaluation for every run.
type Evaluation struct {
	cfg      Config
	state    State
	runID    string
	observed int
	skipped  int
}

// NewEvaluation validates cfg, applies defaults and returns a ready-to-run
// Evaluation.
func NewEvaluation(cfg Config) (*Evaluation, error) {
	if cfg.Service == nil {
		return nil, errors.New("searchml: Config.Service is required")
	}
	cfg.applyDefaults()

	return &Evaluation{
		cfg:   cfg,
		state: StateUntrained,
		runID: uuid.New().String()[:8],
	}, nil
}

// State returns the run's current lifecycle state.
func (e *Evaluation) State() State { return e.state }

// EvaluateSearchPrediction trains p on trainQuery, asks it for a search
// expression that annotates every row of testQuery with a prediction, submits
// that combined search as one job, and scores the synthetic prediction field
// against labelField across all pages.
func (e *Evaluation) EvaluateSearchPrediction(ctx context.Context, p SearchPredictor, trainQuery, testQuery string, featureFields []string, labelField string) (*Report, error) {
	if err := e.begin(); err != nil {
		return nil, err
	}
	if err := e.train(ctx, p, trainQuery, featureFields, labelField); err != nil {
		return nil, err
	}

	// A unique output field keeps the synthetic prediction from colliding
	// with anything the events already carry.
	outputField := "predicted_" + e.runID

	expr, err := p.PredictSearchExpression(testQuery, featureFields, labelField, outputField)
	if err != nil {
		return nil, fmt.Errorf("predict search expression: %w", err)
	}

	// Cut the result rows down to the two fields scoring needs.
	query := fmt.Sprintf("%s | table %s, %s", expr, labelField, outputField)

	job, err := e.submit(ctx, query)
	if err != nil {
		return nil, err
	}

	required := []string{labelField, outputField}
	return e.drain(ctx, job, required, labelField, func(_ context.Context, rec Record) (string, error) {
		return rec[outputField], nil
	})
}

// EvaluatePerEvent trains p on trainQuery, submits testQuery projected onto
// the feature and label fields, and calls p.PredictEvent for every valid
// record, scoring each prediction against labelField.
func (e *Evaluation) EvaluatePerEvent(ctx context.Context, p Predictor, trainQuery, testQuery string, featureFields []string, labelField string) (*Report, error) {
	if err := e.begin(); err != nil {
		return nil, err
	}
	if err := e.train(ctx, p, trainQuery, featureFields, labelField); err != nil {
		return nil, err
	}

	fields := append(append([]string{}, featureFields...), labelField)
	query := fmt.Sprintf("search %s | table %s", testQuery, strings.Join(fields, " "))

	job, err := e.submit(ctx, query)
	if err != nil {
		return nil, err
	}

	return e.drain(ctx, job, fields, labelField, func(ctx context.Context, rec Record) (string, error) {
		return p.PredictEvent(ctx, rec, featureFields, labelField)
	})
}

// EvaluateSelf trains and scores p on the same query, per event. Useful as a
// smoke test of a predictor against its own training data.
func (e *Evaluation) EvaluateSelf(ctx context.Context, p Predictor, query string, featureFields []string, labelField string) (*Report, error) {
	return e.EvaluatePerEvent(ctx, p, query, query, featureFields, labelField)
}

func (e *Evaluation) begin() error {
	if e.state == StateFinalized {
		return ErrEvaluationDone
	}
	if e.state != StateUntrained {
		return fmt.Errorf("searchml: evaluation already in progress (state %s)", e.state)
	}
	return nil
}

func (e *Evaluation) train(ctx context.Context, p Predictor, query string, featureFields []string, labelField string) error {
	e.transition(StateTraining, 0, 0)
	e.cfg.Logger.Infow("training predictor", "run", e.runID, "query", query, "label", labelField)

	if err := p.Train(ctx, query, featureFields, labelField); err != nil {
		return fmt.Errorf("train predictor: %w", err)
	}
	return nil
}

func (e *Evaluation) submit(ctx context.Context, query string) (JobHandle, error) {
	e.transition(StateSearching, 0, 0)
	e.cfg.Logger.Debugw("submitting search job", "run", e.runID, "query", query, "mode", e.cfg.Mode)

	// Submission is never retried: a failure here is fatal to the run.
	job, err := e.cfg.Service.Submit(ctx, query, SubmitOptions{Mode: e.cfg.Mode, Timeout: e.cfg.JobTimeout})
	if err != nil {
		return nil, &ServiceError{Op: "submit job", Err: err}
	}
	return job, nil
}

// drain pages through the job, filtering out records that lack the required
// fields and feeding every surviving (predicted, actual) pair to the scorer.
func (e *Evaluation) drain(ctx context.Context, job JobHandle, required []string, labelField string, predict func(context.Context, Record) (string, error)) (*Report, error) {
	total := job.ResultCount()
	e.transition(StatePaging, 0, total)

	pager := NewPager(job, e.cfg.PageSize).
		SetRetry(e.cfg.Retry).
		SetLogger(e.cfg.Logger)

	for {
		page, err := pager.Next(ctx)
		if err != nil {
			return nil, err
		}
		if page == nil {
			break
		}

		for _, rec := range page.Records {
			if !rec.HasFields(required...) {
				// Routine non-event row injected by the query
				// pipeline; skip, don't fail.
				e.skipped++
				continue
			}

			predicted, perr := predict(ctx, rec)
			if perr != nil {
				var fe *FieldError
				if errors.As(perr, &fe) {
					e.cfg.Logger.Debugw("skipping record", "run", e.runID, "offset", page.Offset, "reason", perr)
					e.skipped++
					continue
				}
				// Anything else (service outage inside the
				// predictor, usage error) aborts the run.
				return nil, fmt.Errorf("predict event: %w", perr)
			}

			if oerr := e.cfg.Scorer.Observe(predicted, rec[labelField]); oerr != nil {
				var fe *FieldError
				if errors.As(oerr, &fe) {
					e.cfg.Logger.Debugw("skipping record", "run", e.runID, "offset", page.Offset, "reason", oerr)
					e.skipped++
					continue
				}
				return nil, oerr
			}
			e.observed++
		}

		e.progress(StatePaging, pager.Offset(), total)
	}

	e.transition(StateFinalized, total, total)

	value, err := e.cfg.Scorer.Finalize()
	if err != nil {
		return nil, err
	}

	e.cfg.Logger.Infow("evaluation finalized",
		"run", e.runID,
		"metric", e.cfg.Scorer.Metric(),
		"value", value,
		"observed", e.observed,
		"skipped", e.skipped,
		"total", total,
	)

	return &Report{
		Metric:   e.cfg.Scorer.Metric(),
		Value:    value,
		Observed: e.observed,
		Skipped:  e.skipped,
		Total:    total,
	}, nil
}

func (e *Evaluation) transition(s State, offset, total int) {
	e.state = s
	e.progress(s, offset, total)
}

func (e *Evaluation) progress(s State, offset, total int) {
	if e.cfg.Progress == nil {
		return
	}
	e.cfg.Progress(Progress{
		State:    s,
		Offset:   offset,
		Total:    total,
		Observed: e.observed,
		Skipped:  e.skipped,
	})
}
