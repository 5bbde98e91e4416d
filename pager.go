package searchml

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"github.com/quantfold/searchml/retry"
)

// Pager iterates over the result set of a submitted job in fixed-size pages.
// It is lazy, finite and non-restartable: the offset starts at 0 and advances
// monotonically by the page size until the job's declared total is exhausted,
// so every record is visited exactly once in service order.
type Pager struct {
	job      JobHandle
	total    int
	offset   int
	pageSize int
	done     bool
	retryCfg retry.Config
	logger   *zap.SugaredLogger
}

// NewPager returns a pager over job. pageSize <= 0 falls back to
// DefaultPageSize.
func NewPager(job JobHandle, pageSize int) *Pager {
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}

	return &Pager{
		job:      job,
		total:    job.ResultCount(),
		pageSize: pageSize,
		retryCfg: retry.DefaultConfig(),
		logger:   zap.NewNop().Sugar(),
	}
}

// SetRetry overrides the retry policy for page fetches
func (p *Pager) SetRetry(cfg retry.Config) *Pager {
	p.retryCfg = cfg
	return p
}

// SetLogger sets the diagnostic logger
func (p *Pager) SetLogger(logger *zap.SugaredLogger) *Pager {
	if logger != nil {
		p.logger = logger
	}
	return p
}

// Offset is the position the next page would be fetched at.
func (p *Pager) Offset() int { return p.offset }

// Total is the job's declared result count.
func (p *Pager) Total() int { return p.total }

// Next fetches the next page. It returns (nil, nil) once the result set is
// exhausted. A short page is surfaced as-is and treated as the final page; it
// is never padded or re-fetched. Transient fetch failures are retried with
// bounded exponential backoff; exhausting the budget is fatal and reported as
// a *ServiceError.
func (p *Pager) Next(ctx context.Context) (*Page, error) {
	if p.done || p.offset >= p.total {
		p.done = true
		return nil, nil
	}

	var records []Record
	err := retry.Do(ctx, p.retryCfg, fetchRetryable, p.logf, func(attempt int) error {
		var ferr error
		records, ferr = p.job.FetchPage(ctx, p.offset, p.pageSize)
		return ferr
	})
	if err != nil {
		return nil, &ServiceError{Op: "fetch results page", Err: err}
	}

	page := &Page{Offset: p.offset, Records: records}
	p.offset += p.pageSize

	if len(records) < p.pageSize {
		// Truncated page: the service had fewer records than requested,
		// so this is the final page.
		p.done = true
	}

	return page, nil
}

func (p *Pager) logf(format string, args ...any) {
	p.logger.Debugf(format, args...)
}

// temporary is implemented by service errors that are safe to retry.
type temporary interface {
	Temporary() bool
}

// fetchRetryable decides whether a page fetch is worth another attempt:
// context cancellation never is, errors that classify themselves answer for
// themselves, and anything else is assumed to be a network-level hiccup.
func fetchRetryable(err error) bool {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}

	var t temporary
	if errors.As(err, &t) {
		return t.Temporary()
	}

	return true
}
