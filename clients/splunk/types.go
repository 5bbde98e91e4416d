package splunk

// JobContent carries the job-state fields read from the search jobs endpoint.
type JobContent struct {
	SID                 string  `json:"sid"`
	ResultCount         int     `json:"resultCount"`
	IsDone              bool    `json:"isDone"`
	IsFailed            bool    `json:"isFailed"`
	DispatchState       string  `json:"dispatchState"`
	DoneProgress        float64 `json:"doneProgress"`
	EventCount          int     `json:"eventCount"`
	EventAvailableCount int     `json:"eventAvailableCount"`
	RunDuration         float64 `json:"runDuration"`
}

type jobEntry struct {
	Name    string     `json:"name"`
	ID      string     `json:"id"`
	Content JobContent `json:"content"`
}

type jobResponse struct {
	Entry []jobEntry `json:"entry"`
}

type createJobResponse struct {
	SID string `json:"sid"`
}

// ResultsPage is the body of the results endpoint with output_mode=json.
type ResultsPage struct {
	Preview    bool `json:"preview"`
	InitOffset int  `json:"init_offset"`
	Fields     []struct {
		Name string `json:"name"`
	} `json:"fields"`
	Results []map[string]any `json:"results"`
}
