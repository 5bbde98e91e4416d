// Package baseline ships dependency-free reference predictors: a
// majority-class classifier and a mean regressor. They set the floor any real
// model has to beat, and because both compile to a plain eval expression they
// exercise search-based evaluation end to end.
package baseline

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	searchml "github.com/quantfold/searchml"
)

// Classifier predicts the most frequent label seen during training.
type Classifier struct {
	service  searchml.SearchService
	pageSize int
	trained  bool
	majority string
	counts   map[string]int
}

// NewClassifier creates an untrained majority-class predictor backed by
// service.
func NewClassifier(service searchml.SearchService) *Classifier {
	return &Classifier{
		service:  service,
		pageSize: searchml.DefaultPageSize,
	}
}

// SetPageSize overrides the page size used while paging training data
func (c *Classifier) SetPageSize(n int) *Classifier {
	if n > 0 {
		c.pageSize = n
	}
	return c
}

// Counts returns the label frequencies seen during training.
func (c *Classifier) Counts() map[string]int { return c.counts }

// Train tallies labelField over the events matched by query and remembers the
// most frequent value. Ties break to the lexicographically smallest label so
// training is deterministic.
func (c *Classifier) Train(ctx context.Context, query string, featureFields []string, labelField string) error {
	counts := make(map[string]int)

	err := pageTrainingData(ctx, c.service, c.pageSize, query, labelField, func(rec searchml.Record) {
		counts[rec[labelField]]++
	})
	if err != nil {
		return err
	}
	if len(counts) == 0 {
		return errors.New("baseline: training query matched no labeled events")
	}

	best, bestN := "", -1
	for label, n := range counts {
		if n > bestN || (n == bestN && label < best) {
			best, bestN = label, n
		}
	}

	c.counts = counts
	c.majority = best
	c.trained = true
	return nil
}

// PredictEvent implements searchml.Predictor.
func (c *Classifier) PredictEvent(ctx context.Context, rec searchml.Record, featureFields []string, labelField string) (string, error) {
	if !c.trained {
		return "", searchml.ErrNotTrained
	}
	return c.majority, nil
}

// PredictSearchExpression implements searchml.SearchPredictor by tagging every
// row of query with the majority label.
func (c *Classifier) PredictSearchExpression(query string, featureFields []string, labelField, outputField string) (string, error) {
	if !c.trained {
		return "", searchml.ErrNotTrained
	}
	return fmt.Sprintf(`search %s | eval %s="%s"`, query, outputField, escapeLabel(c.majority)), nil
}

// Regressor predicts the mean of the label field seen during training.
type Regressor struct {
	service  searchml.SearchService
	pageSize int
	trained  bool
	mean     float64
	count    int
}

// NewRegressor creates an untrained mean predictor backed by service.
func NewRegressor(service searchml.SearchService) *Regressor {
	return &Regressor{
		service:  service,
		pageSize: searchml.DefaultPageSize,
	}
}

// SetPageSize overrides the page size used while paging training data
func (r *Regressor) SetPageSize(n int) *Regressor {
	if n > 0 {
		r.pageSize = n
	}
	return r
}

// Train averages labelField over the events matched by query. Events whose
// label does not parse as a number are skipped, the same way scoring skips
// them.
func (r *Regressor) Train(ctx context.Context, query string, featureFields []string, labelField string) error {
	var sum float64
	var count int

	err := pageTrainingData(ctx, r.service, r.pageSize, query, labelField, func(rec searchml.Record) {
		v, perr := strconv.ParseFloat(rec[labelField], 64)
		if perr != nil {
			return
		}
		sum += v
		count++
	})
	if err != nil {
		return err
	}
	if count == 0 {
		return errors.New("baseline: training query matched no numeric labels")
	}

	r.mean = sum / float64(count)
	r.count = count
	r.trained = true
	return nil
}

// PredictEvent implements searchml.Predictor.
func (r *Regressor) PredictEvent(ctx context.Context, rec searchml.Record, featureFields []string, labelField string) (string, error) {
	if !r.trained {
		return "", searchml.ErrNotTrained
	}
	return strconv.FormatFloat(r.mean, 'f', -1, 64), nil
}

// PredictSearchExpression implements searchml.SearchPredictor.
func (r *Regressor) PredictSearchExpression(query string, featureFields []string, labelField, outputField string) (string, error) {
	if !r.trained {
		return "", searchml.ErrNotTrained
	}
	return fmt.Sprintf("search %s | eval %s=%s", query, outputField, strconv.FormatFloat(r.mean, 'f', -1, 64)), nil
}

// pageTrainingData submits query projected onto labelField and feeds every
// labeled record to visit.
func pageTrainingData(ctx context.Context, service searchml.SearchService, pageSize int, query, labelField string, visit func(searchml.Record)) error {
	job, err := service.Submit(ctx,
		fmt.Sprintf("search %s | table %s", query, labelField),
		searchml.SubmitOptions{Mode: searchml.ExecModeBlocking, Timeout: searchml.DefaultJobTimeout},
	)
	if err != nil {
		return fmt.Errorf("submit training job: %w", err)
	}

	pager := searchml.NewPager(job, pageSize)
	for {
		page, err := pager.Next(ctx)
		if err != nil {
			return err
		}
		if page == nil {
			return nil
		}
		for _, rec := range page.Records {
			if !rec.HasFields(labelField) {
				continue
			}
			visit(rec)
		}
	}
}

func escapeLabel(label string) string {
	return strings.ReplaceAll(label, `"`, `\"`)
}
