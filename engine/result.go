package engine

import "fmt"

// ResultStatus is the overall outcome of a run as reported by the backend.
type ResultStatus int

const (
	ResultPending ResultStatus = iota
	ResultSuccess
	ResultFailed
	ResultUnreachable
)

func (s ResultStatus) String() string {
	switch s {
	case ResultPending:
		return "PENDING"
	case ResultSuccess:
		return "SUCCESS"
	case ResultFailed:
		return "FAILED"
	case ResultUnreachable:
		return "UNREACHABLE"
	default:
		return fmt.Sprintf("UNKNOWN_STATUS_%d", int(s))
	}
}

// HostStats counts per-host task outcomes.
type HostStats struct {
	Ok          int `json:"ok"`
	Changed     int `json:"changed"`
	Failed      int `json:"failed"`
	Skipped     int `json:"skipped"`
	Unreachable int `json:"unreachable"`
}

// Result is the backend's report for one run. The session layer passes it
// through unmodified; its interpretation belongs to the backend and the
// caller.
type Result struct {
	Status  ResultStatus
	Message string
	// Stats maps host IDs to their task counters.
	Stats map[string]HostStats
	// Raw carries any backend-specific payload.
	Raw map[string]any
}

// NewResult creates an empty, pending result.
func NewResult() *Result {
	return &Result{
		Status: ResultPending,
		Stats:  make(map[string]HostStats),
		Raw:    make(map[string]any),
	}
}

// IsFailed reports whether the run failed or left hosts unreachable.
func (r *Result) IsFailed() bool {
	return r.Status == ResultFailed || r.Status == ResultUnreachable
}

// FailedHosts lists the hosts with failures or unreachability recorded.
func (r *Result) FailedHosts() []string {
	var failed []string
	for host, stats := range r.Stats {
		if stats.Failed > 0 || stats.Unreachable > 0 {
			failed = append(failed, host)
		}
	}
	return failed
}
