package service

// SkippedItem reports one entity a batch job deliberately left out
type SkippedItem struct {
	ID     string `json:"id"`
	Reason string `json:"reason"`
}

// FailedItem reports one entity a batch job could not process
type FailedItem struct {
	ID    string `json:"id"`
	Error string `json:"error"`
}

// BatchSummary is the per-run report of a scheduled batch job. Jobs favor
// partial success: one bad entity is isolated and reported here rather than
// aborting the whole tenant batch. Nothing is dropped silently.
type BatchSummary struct {
	TenantID  string        `json:"tenant_id"`
	Processed int           `json:"processed"`
	Created   int           `json:"created"`
	Skipped   []SkippedItem `json:"skipped,omitempty"`
	Failed    []FailedItem  `json:"failed,omitempty"`
}

func (s *BatchSummary) skip(id, reason string) {
	s.Skipped = append(s.Skipped, SkippedItem{ID: id, Reason: reason})
}

func (s *BatchSummary) fail(id string, err error) {
	s.Failed = append(s.Failed, FailedItem{ID: id, Error: err.Error()})
}
