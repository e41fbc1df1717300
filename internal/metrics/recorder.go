package metrics

import "time"

// FetchResult labels the outcome of one repository fetch.
type FetchResult string

const (
	FetchReady   FetchResult = "ready"
	FetchFailed  FetchResult = "failed"
	FetchTimeout FetchResult = "timeout"
	FetchStale   FetchResult = "stale"
)

// Recorder receives feed and page-view observations. Implementations must be
// safe for concurrent use.
type Recorder interface {
	ObserveFetch(result FetchResult, d time.Duration)
	IncPageView(path string)
	SetActiveViews(n int)
}

// NoopRecorder discards everything (default when metrics are not wired).
type NoopRecorder struct{}

func (NoopRecorder) ObserveFetch(FetchResult, time.Duration) {}
func (NoopRecorder) IncPageView(string)                      {}
func (NoopRecorder) SetActiveViews(int)                      {}
