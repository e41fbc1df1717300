package feed

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/log"

	"github.com/khantimmy27/portfolio/internal/github"
	"github.com/khantimmy27/portfolio/internal/metrics"
)

// DefaultTimeout bounds a single fetch.
const DefaultTimeout = 10 * time.Second

// Fetcher retrieves the raw repository list for an identifier.
type Fetcher interface {
	ListUserRepos(ctx context.Context, user string) ([]github.Repository, error)
}

// Config holds Loader dependencies. Zero values fall back to defaults.
type Config struct {
	Options   Options
	// AllowList, when set, is read on every fetch and overrides
	// Options.AllowList.
	AllowList func() []string
	Timeout   time.Duration
	Logger    *log.Logger
	Recorder  metrics.Recorder
}

// Loader owns one feed state slot. Each Load supersedes the previous one;
// a response belonging to an older Load is dropped when it arrives.
type Loader struct {
	fetcher   Fetcher
	opts      Options
	allowList func() []string
	timeout   time.Duration
	logger    *log.Logger
	recorder  metrics.Recorder

	mu     sync.Mutex
	gen    uint64
	state  State
	cancel context.CancelFunc
	done   chan struct{}
	closed bool
}

// NewLoader returns an idle loader.
func NewLoader(f Fetcher, cfg Config) *Loader {
	l := &Loader{
		fetcher:   f,
		opts:      cfg.Options,
		allowList: cfg.AllowList,
		timeout:   cfg.Timeout,
		logger:    cfg.Logger,
		recorder:  cfg.Recorder,
	}
	if l.timeout <= 0 {
		l.timeout = DefaultTimeout
	}
	if l.logger == nil {
		l.logger = log.Default()
	}
	if l.recorder == nil {
		l.recorder = metrics.NoopRecorder{}
	}
	return l
}

// Load starts fetching identifier in the background and reports whether a
// request was issued. A blank identifier leaves the state untouched.
func (l *Loader) Load(identifier string) bool {
	identifier = strings.TrimSpace(identifier)
	if identifier == "" {
		return false
	}

	l.mu.Lock()
	if l.closed {
		l.mu.Unlock()
		return false
	}
	if l.cancel != nil {
		l.cancel()
	}
	l.gen++
	gen := l.gen
	ctx, cancel := context.WithTimeout(context.Background(), l.timeout)
	done := make(chan struct{})
	l.cancel = cancel
	l.done = done
	l.state.Status = StatusLoading
	l.state.Identifier = identifier
	l.state.Err = ""
	l.mu.Unlock()

	l.logger.Debug("loading repositories", "user", identifier, "gen", gen)
	go l.fetch(ctx, cancel, gen, identifier, done)
	return true
}

func (l *Loader) fetch(ctx context.Context, cancel context.CancelFunc, gen uint64, identifier string, done chan struct{}) {
	defer close(done)

	start := time.Now()
	repos, err := l.fetcher.ListUserRepos(ctx, identifier)
	timedOut := err != nil && errors.Is(ctx.Err(), context.DeadlineExceeded)
	cancel()
	elapsed := time.Since(start)

	var records []Record
	if err == nil {
		opts := l.opts
		if l.allowList != nil {
			opts.AllowList = l.allowList()
		}
		records = Transform(repos, opts)
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if gen != l.gen {
		l.recorder.ObserveFetch(metrics.FetchStale, elapsed)
		l.logger.Debug("discarding stale repositories response", "user", identifier, "gen", gen, "current", l.gen)
		return
	}
	l.cancel = nil
	l.state.UpdatedAt = time.Now()

	switch {
	case err == nil:
		l.state.Status = StatusReady
		l.state.Records = records
		l.recorder.ObserveFetch(metrics.FetchReady, elapsed)
		l.logger.Info("repositories loaded", "user", identifier, "count", len(records), "took", elapsed.Round(time.Millisecond))
	case timedOut:
		l.state.Status = StatusFailed
		l.state.Err = fmt.Sprintf("request timed out after %s", l.timeout)
		l.recorder.ObserveFetch(metrics.FetchTimeout, elapsed)
		l.logger.Warn("repositories request timed out", "user", identifier, "timeout", l.timeout)
	default:
		l.state.Status = StatusFailed
		l.state.Err = errorMessage(err)
		l.recorder.ObserveFetch(metrics.FetchFailed, elapsed)
		l.logger.Warn("repositories request failed", "user", identifier, "err", err)
	}
}

// errorMessage renders err for viewers. Status errors become the bare status
// line so "404 Not Found" reads naturally after a prefix.
func errorMessage(err error) string {
	var se *github.StatusError
	if errors.As(err, &se) {
		return se.Error()
	}
	return err.Error()
}

// Snapshot returns a copy of the current state.
func (l *Loader) Snapshot() State {
	l.mu.Lock()
	defer l.mu.Unlock()
	s := l.state
	s.Records = slices.Clone(l.state.Records)
	return s
}

// Wait blocks until no request is outstanding or ctx is done, then returns
// the state at that point.
func (l *Loader) Wait(ctx context.Context) (State, error) {
	for {
		l.mu.Lock()
		done := l.done
		loading := l.state.Status == StatusLoading && !l.closed
		l.mu.Unlock()

		if !loading || done == nil {
			return l.Snapshot(), nil
		}
		select {
		case <-done:
		case <-ctx.Done():
			return l.Snapshot(), ctx.Err()
		}
	}
}

// Close cancels any outstanding request. Later Loads are ignored.
func (l *Loader) Close() {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closed {
		return
	}
	l.closed = true
	l.gen++
	if l.cancel != nil {
		l.cancel()
		l.cancel = nil
	}
}
