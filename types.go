package searchml

// Record is one result row from a search job, modeled the way the remote
// service serializes it: every field value arrives as a string. Numeric fields
// need explicit conversion at the point of use.
type Record map[string]string

// Page is a bounded slice of a job's full result set, fetched by offset.
type Page struct {
	// Offset is the position of the first record within the job's result set.
	Offset int

	// Records are the rows of this page, in service order. A page shorter
	// than the requested count is the final page of the job.
	Records []Record
}

// State identifies where an evaluation run is in its lifecycle. Transitions
// only ever move forward; a finished run cannot be restarted.
type State int

const (
	StateUntrained State = iota
	StateTraining
	StateSearching
	StatePaging
	StateFinalized
)

func (s State) String() string {
	switch s {
	case StateUntrained:
		return "untrained"
	case StateTraining:
		return "training"
	case StateSearching:
		return "searching"
	case StatePaging:
		return "paging"
	case StateFinalized:
		return "finalized"
	default:
		return "unknown"
	}
}

// Progress is a snapshot of a running evaluation, delivered to the caller's
// ProgressFunc on every state transition and after each consumed page.
type Progress struct {
	State    State
	Offset   int
	Total    int
	Observed int
	Skipped  int
}

// ProgressFunc receives progress snapshots. It is owned by the caller; the
// evaluation core itself never prints.
type ProgressFunc func(Progress)

// Report is the outcome of a finished evaluation run.
type Report struct {
	// Metric names the reported statistic ("accuracy", "mean_squared_error").
	Metric string `json:"metric"`

	// Value is the finalized statistic.
	Value float64 `json:"value"`

	// Observed is the number of (predicted, actual) pairs that reached the
	// scorer.
	Observed int `json:"observed"`

	// Skipped counts records dropped as routine non-events (missing fields,
	// malformed numerics, per-record prediction failures).
	Skipped int `json:"skipped"`

	// Total is the result count the job declared at submission.
	Total int `json:"total"`
}
