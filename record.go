package searchml

// HasFields reports whether the record carries every named field. A record
// missing one is not an error: query pipelines routinely inject non-event rows
// (result summaries, statistics) that lack the fields an evaluation needs, and
// those rows are skipped rather than failed on.
func (r Record) HasFields(fields ...string) bool {
	for _, f := range fields {
		if _, ok := r[f]; !ok {
			return false
		}
	}
	return true
}

// Project returns a copy of the record reduced to the named fields. Fields the
// record does not carry are left out.
func (r Record) Project(fields ...string) Record {
	out := make(Record, len(fields))
	for _, f := range fields {
		if v, ok := r[f]; ok {
			out[f] = v
		}
	}
	return out
}
