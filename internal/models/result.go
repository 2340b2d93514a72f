package models

// SideEffect records the outcome of a best-effort secondary operation, such as
// deleting the raw upload or marking a document failed. Its error is logged by
// the caller and never turned into a failed delivery.
type SideEffect struct {
	Op        string
	Attempted bool
	Err       error
}

// OK reports whether the operation was either not attempted or succeeded.
func (s SideEffect) OK() bool {
	return s.Err == nil
}

// ShowcaseResult summarizes one pipeline run.
type ShowcaseResult struct {
	RunID    string
	JobKey   JobKey
	Skipped  bool
	Status   ShowcaseStatus
	ImageURL string

	Cleanup     SideEffect
	FailureMark SideEffect
}
