// Package testutil provides func-field mocks for the capability interfaces,
// so tests swap behavior per case without bespoke types.
package testutil

import (
	"context"
	"sync"

	searchml "github.com/quantfold/searchml"
)

// PageRequest records one FetchPage call.
type PageRequest struct {
	Offset int
	Count  int
}

// MockJobHandle is a mock implementation of searchml.JobHandle. By default it
// serves pages out of Records and declares len(Records) results.
type MockJobHandle struct {
	Records []searchml.Record

	ResultCountFunc func() int
	FetchPageFunc   func(ctx context.Context, offset, count int) ([]searchml.Record, error)

	mu         sync.Mutex
	FetchCalls []PageRequest
}

func (m *MockJobHandle) ResultCount() int {
	if m.ResultCountFunc != nil {
		return m.ResultCountFunc()
	}
	return len(m.Records)
}

func (m *MockJobHandle) FetchPage(ctx context.Context, offset, count int) ([]searchml.Record, error) {
	m.mu.Lock()
	m.FetchCalls = append(m.FetchCalls, PageRequest{Offset: offset, Count: count})
	m.mu.Unlock()

	if m.FetchPageFunc != nil {
		return m.FetchPageFunc(ctx, offset, count)
	}

	// Default: slice the backing records
	if offset >= len(m.Records) {
		return nil, nil
	}
	end := offset + count
	if end > len(m.Records) {
		end = len(m.Records)
	}
	return m.Records[offset:end], nil
}

// Requests returns a copy of the recorded FetchPage calls.
func (m *MockJobHandle) Requests() []PageRequest {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]PageRequest, len(m.FetchCalls))
	copy(out, m.FetchCalls)
	return out
}

// MockSearchService is a mock implementation of searchml.SearchService
type MockSearchService struct {
	SubmitFunc func(ctx context.Context, query string, opts searchml.SubmitOptions) (searchml.JobHandle, error)

	mu          sync.Mutex
	SubmitCount int
	Queries     []string
}

func (m *MockSearchService) Submit(ctx context.Context, query string, opts searchml.SubmitOptions) (searchml.JobHandle, error) {
	m.mu.Lock()
	m.SubmitCount++
	m.Queries = append(m.Queries, query)
	m.mu.Unlock()

	if m.SubmitFunc != nil {
		return m.SubmitFunc(ctx, query, opts)
	}
	return &MockJobHandle{}, nil
}

// LastQuery returns the most recently submitted query, or "".
func (m *MockSearchService) LastQuery() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.Queries) == 0 {
		return ""
	}
	return m.Queries[len(m.Queries)-1]
}

// MockPredictor is a mock implementation of searchml.SearchPredictor
type MockPredictor struct {
	TrainFunc                   func(ctx context.Context, query string, featureFields []string, labelField string) error
	PredictEventFunc            func(ctx context.Context, rec searchml.Record, featureFields []string, labelField string) (string, error)
	PredictSearchExpressionFunc func(query string, featureFields []string, labelField, outputField string) (string, error)

	mu              sync.Mutex
	TrainCount      int
	PredictCount    int
	LastTrainQuery  string
	LastOutputField string
}

func (m *MockPredictor) Train(ctx context.Context, query string, featureFields []string, labelField string) error {
	m.mu.Lock()
	m.TrainCount++
	m.LastTrainQuery = query
	m.mu.Unlock()

	if m.TrainFunc != nil {
		return m.TrainFunc(ctx, query, featureFields, labelField)
	}
	return nil
}

func (m *MockPredictor) PredictEvent(ctx context.Context, rec searchml.Record, featureFields []string, labelField string) (string, error) {
	m.mu.Lock()
	m.PredictCount++
	m.mu.Unlock()

	if m.PredictEventFunc != nil {
		return m.PredictEventFunc(ctx, rec, featureFields, labelField)
	}
	// Default: echo the label, a perfect predictor
	return rec[labelField], nil
}

func (m *MockPredictor) PredictSearchExpression(query string, featureFields []string, labelField, outputField string) (string, error) {
	m.mu.Lock()
	m.LastOutputField = outputField
	m.mu.Unlock()

	if m.PredictSearchExpressionFunc != nil {
		return m.PredictSearchExpressionFunc(query, featureFields, labelField, outputField)
	}
	// Default: pass the query through untouched
	return query, nil
}
