package searchml_test

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	searchml "github.com/quantfold/searchml"
	"github.com/quantfold/searchml/testutil"
)

// classificationFixture backs a search-prediction run: 250 records, 200 with a
// matching synthetic prediction. The output field is only known once the
// orchestrator hands it to the predictor, so records are built at submit time.
func classificationFixture(t *testing.T) (*testutil.MockSearchService, *testutil.MockPredictor, *testutil.MockJobHandle) {
	t.Helper()

	var outputField string
	predictor := &testutil.MockPredictor{
		PredictSearchExpressionFunc: func(query string, featureFields []string, labelField, out string) (string, error) {
			outputField = out
			return "search " + query, nil
		},
	}

	job := &testutil.MockJobHandle{}
	service := &testutil.MockSearchService{
		SubmitFunc: func(ctx context.Context, query string, opts searchml.SubmitOptions) (searchml.JobHandle, error) {
			require.NotEmpty(t, outputField)
			job.Records = make([]searchml.Record, 250)
			for i := range job.Records {
				predicted := "ok"
				if i >= 200 {
					predicted = "error"
				}
				job.Records[i] = searchml.Record{"status_label": "ok", outputField: predicted}
			}
			return job, nil
		},
	}

	return service, predictor, job
}

func TestEvaluation_SearchPrediction(t *testing.T) {
	service, predictor, job := classificationFixture(t)

	eval, err := searchml.NewEvaluation(searchml.Config{Service: service})
	require.NoError(t, err)

	report, err := eval.EvaluateSearchPrediction(context.Background(), predictor,
		"index=training", "index=testing", []string{"status", "bytes"}, "status_label")
	require.NoError(t, err)

	assert.Equal(t, "accuracy", report.Metric)
	assert.InDelta(t, 0.8, report.Value, 1e-9)
	assert.Equal(t, 250, report.Observed)
	assert.Equal(t, 0, report.Skipped)
	assert.Equal(t, 250, report.Total)

	// three pages at offsets 0, 100, 200
	assert.Equal(t, []testutil.PageRequest{
		{Offset: 0, Count: 100},
		{Offset: 100, Count: 100},
		{Offset: 200, Count: 100},
	}, job.Requests())

	// the combined search is projected onto label and prediction field
	assert.Contains(t, service.LastQuery(), "| table status_label,")
	assert.Equal(t, 1, predictor.TrainCount)
	assert.Equal(t, "index=training", predictor.LastTrainQuery)
	assert.Equal(t, searchml.StateFinalized, eval.State())
}

func TestEvaluation_PerEvent(t *testing.T) {
	records := make([]searchml.Record, 4)
	for i := range records {
		records[i] = searchml.Record{
			"status": fmt.Sprintf("%d", 200+i),
			"label":  "ok",
		}
	}
	service := &testutil.MockSearchService{
		SubmitFunc: func(ctx context.Context, query string, opts searchml.SubmitOptions) (searchml.JobHandle, error) {
			return &testutil.MockJobHandle{Records: records}, nil
		},
	}

	calls := 0
	predictor := &testutil.MockPredictor{
		PredictEventFunc: func(ctx context.Context, rec searchml.Record, featureFields []string, labelField string) (string, error) {
			calls++
			if calls == 1 {
				return "error", nil // one miss
			}
			return "ok", nil
		},
	}

	eval, err := searchml.NewEvaluation(searchml.Config{Service: service})
	require.NoError(t, err)

	report, err := eval.EvaluatePerEvent(context.Background(), predictor,
		"index=training", "index=testing", []string{"status"}, "label")
	require.NoError(t, err)

	assert.InDelta(t, 0.75, report.Value, 1e-9)
	assert.Equal(t, 4, calls)

	// the test search is projected onto feature and label fields
	assert.Equal(t, "search index=testing | table status label", service.LastQuery())
}

func TestEvaluation_RegressionScenario(t *testing.T) {
	// two pages of two records; squared errors 4, 0, 1, 9
	actuals := []string{"2", "3", "2", "3"}
	preds := []string{"0", "3", "1", "0"}

	records := make([]searchml.Record, len(actuals))
	for i := range records {
		records[i] = searchml.Record{"latency": actuals[i]}
	}
	service := &testutil.MockSearchService{
		SubmitFunc: func(ctx context.Context, query string, opts searchml.SubmitOptions) (searchml.JobHandle, error) {
			return &testutil.MockJobHandle{Records: records}, nil
		},
	}

	i := 0
	predictor := &testutil.MockPredictor{
		PredictEventFunc: func(ctx context.Context, rec searchml.Record, featureFields []string, labelField string) (string, error) {
			p := preds[i]
			i++
			return p, nil
		},
	}

	eval, err := searchml.NewEvaluation(searchml.Config{
		Service:  service,
		Scorer:   searchml.NewMeanSquaredErrorScorer(),
		PageSize: 2,
	})
	require.NoError(t, err)

	report, err := eval.EvaluatePerEvent(context.Background(), predictor,
		"index=training", "index=testing", nil, "latency")
	require.NoError(t, err)

	assert.Equal(t, "mean_squared_error", report.Metric)
	assert.InDelta(t, 1.75, report.Value, 1e-9)
	assert.Equal(t, 4, report.Observed)
}

func TestEvaluation_SkipsRecordsMissingFields(t *testing.T) {
	// 3 of 10 records are non-event rows without the label field
	records := make([]searchml.Record, 10)
	for i := range records {
		if i%3 == 0 {
			records[i] = searchml.Record{"count": "summary"}
			continue
		}
		records[i] = searchml.Record{"status": "200", "label": "ok"}
	}
	service := &testutil.MockSearchService{
		SubmitFunc: func(ctx context.Context, query string, opts searchml.SubmitOptions) (searchml.JobHandle, error) {
			return &testutil.MockJobHandle{Records: records}, nil
		},
	}
	predictor := &testutil.MockPredictor{}

	eval, err := searchml.NewEvaluation(searchml.Config{Service: service})
	require.NoError(t, err)

	report, err := eval.EvaluatePerEvent(context.Background(), predictor,
		"index=training", "index=testing", []string{"status"}, "label")
	require.NoError(t, err)

	assert.Equal(t, 6, report.Observed)
	assert.Equal(t, 4, report.Skipped)
	assert.Equal(t, 6, predictor.PredictCount, "invalid records must never reach the predictor")
}

func TestEvaluation_MalformedNumericIsSkipped(t *testing.T) {
	records := []searchml.Record{
		{"latency": "1.5"},
		{"latency": "n/a"}, // unparsable actual
		{"latency": "2.5"},
	}
	service := &testutil.MockSearchService{
		SubmitFunc: func(ctx context.Context, query string, opts searchml.SubmitOptions) (searchml.JobHandle, error) {
			return &testutil.MockJobHandle{Records: records}, nil
		},
	}
	predictor := &testutil.MockPredictor{
		PredictEventFunc: func(ctx context.Context, rec searchml.Record, featureFields []string, labelField string) (string, error) {
			return "2", nil
		},
	}

	eval, err := searchml.NewEvaluation(searchml.Config{
		Service: service,
		Scorer:  searchml.NewMeanSquaredErrorScorer(),
	})
	require.NoError(t, err)

	report, err := eval.EvaluatePerEvent(context.Background(), predictor,
		"index=training", "index=testing", nil, "latency")
	require.NoError(t, err)

	assert.Equal(t, 2, report.Observed)
	assert.Equal(t, 1, report.Skipped)
}

func TestEvaluation_ZeroValidRecordsIsUndefined(t *testing.T) {
	records := []searchml.Record{{"other": "1"}, {"other": "2"}}
	service := &testutil.MockSearchService{
		SubmitFunc: func(ctx context.Context, query string, opts searchml.SubmitOptions) (searchml.JobHandle, error) {
			return &testutil.MockJobHandle{Records: records}, nil
		},
	}

	eval, err := searchml.NewEvaluation(searchml.Config{Service: service})
	require.NoError(t, err)

	_, err = eval.EvaluatePerEvent(context.Background(), &testutil.MockPredictor{},
		"index=training", "index=testing", nil, "label")
	assert.ErrorIs(t, err, searchml.ErrNoObservations)
}

func TestEvaluation_SubmitFailureIsFatal(t *testing.T) {
	service := &testutil.MockSearchService{
		SubmitFunc: func(ctx context.Context, query string, opts searchml.SubmitOptions) (searchml.JobHandle, error) {
			return nil, errors.New("connection refused")
		},
	}

	eval, err := searchml.NewEvaluation(searchml.Config{Service: service})
	require.NoError(t, err)

	_, err = eval.EvaluatePerEvent(context.Background(), &testutil.MockPredictor{},
		"index=training", "index=testing", nil, "label")

	var svcErr *searchml.ServiceError
	require.ErrorAs(t, err, &svcErr)
	// submission is never retried
	assert.Equal(t, 1, service.SubmitCount)
}

func TestEvaluation_TrainFailureAborts(t *testing.T) {
	service := &testutil.MockSearchService{}
	predictor := &testutil.MockPredictor{
		TrainFunc: func(ctx context.Context, query string, featureFields []string, labelField string) error {
			return errors.New("singular matrix")
		},
	}

	eval, err := searchml.NewEvaluation(searchml.Config{Service: service})
	require.NoError(t, err)

	_, err = eval.EvaluatePerEvent(context.Background(), predictor,
		"index=training", "index=testing", nil, "label")
	require.Error(t, err)
	assert.Equal(t, 0, service.SubmitCount, "no job may be submitted when training fails")
}

func TestEvaluation_IsSingleShot(t *testing.T) {
	records := []searchml.Record{{"label": "ok"}}
	service := &testutil.MockSearchService{
		SubmitFunc: func(ctx context.Context, query string, opts searchml.SubmitOptions) (searchml.JobHandle, error) {
			return &testutil.MockJobHandle{Records: records}, nil
		},
	}

	eval, err := searchml.NewEvaluation(searchml.Config{Service: service})
	require.NoError(t, err)

	_, err = eval.EvaluatePerEvent(context.Background(), &testutil.MockPredictor{},
		"index=training", "index=testing", nil, "label")
	require.NoError(t, err)

	_, err = eval.EvaluatePerEvent(context.Background(), &testutil.MockPredictor{},
		"index=training", "index=testing", nil, "label")
	assert.ErrorIs(t, err, searchml.ErrEvaluationDone)
}

func TestEvaluation_ProgressTransitions(t *testing.T) {
	records := make([]searchml.Record, 5)
	for i := range records {
		records[i] = searchml.Record{"label": "ok"}
	}
	service := &testutil.MockSearchService{
		SubmitFunc: func(ctx context.Context, query string, opts searchml.SubmitOptions) (searchml.JobHandle, error) {
			return &testutil.MockJobHandle{Records: records}, nil
		},
	}

	var states []searchml.State
	eval, err := searchml.NewEvaluation(searchml.Config{
		Service:  service,
		PageSize: 2,
		Progress: func(p searchml.Progress) {
			states = append(states, p.State)
		},
	})
	require.NoError(t, err)

	_, err = eval.EvaluatePerEvent(context.Background(), &testutil.MockPredictor{},
		"index=training", "index=testing", nil, "label")
	require.NoError(t, err)

	// training, searching, paging entry + one event per page, finalized
	require.GreaterOrEqual(t, len(states), 4)
	assert.Equal(t, searchml.StateTraining, states[0])
	assert.Equal(t, searchml.StateSearching, states[1])
	assert.Equal(t, searchml.StatePaging, states[2])
	assert.Equal(t, searchml.StateFinalized, states[len(states)-1])

	// states never move backward
	for i := 1; i < len(states); i++ {
		assert.LessOrEqual(t, states[i-1], states[i])
	}
}

func TestEvaluation_RequiresService(t *testing.T) {
	_, err := searchml.NewEvaluation(searchml.Config{})
	require.Error(t, err)
	assert.True(t, strings.Contains(err.Error(), "Service"))
}
