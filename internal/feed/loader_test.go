package feed

import (
	"context"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/charmbracelet/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/khantimmy27/portfolio/internal/github"
	"github.com/khantimmy27/portfolio/internal/metrics"
)

type result struct {
	repos []github.Repository
	err   error
}

// gatedFetcher blocks each call until the test releases a result for that
// user. It ignores cancellation so late responses can be simulated.
type gatedFetcher struct {
	mu    sync.Mutex
	calls []string
	gates map[string]chan result
}

func newGatedFetcher(users ...string) *gatedFetcher {
	f := &gatedFetcher{gates: map[string]chan result{}}
	for _, u := range users {
		f.gates[u] = make(chan result, 1)
	}
	return f
}

func (f *gatedFetcher) ListUserRepos(_ context.Context, user string) ([]github.Repository, error) {
	f.mu.Lock()
	f.calls = append(f.calls, user)
	gate := f.gates[user]
	f.mu.Unlock()
	r := <-gate
	return r.repos, r.err
}

func (f *gatedFetcher) release(user string, r result) { f.gates[user] <- r }

func (f *gatedFetcher) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

type funcFetcher func(ctx context.Context, user string) ([]github.Repository, error)

func (fn funcFetcher) ListUserRepos(ctx context.Context, user string) ([]github.Repository, error) {
	return fn(ctx, user)
}

type countingRecorder struct {
	metrics.NoopRecorder
	mu      sync.Mutex
	results map[metrics.FetchResult]int
}

func (r *countingRecorder) ObserveFetch(res metrics.FetchResult, _ time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.results == nil {
		r.results = map[metrics.FetchResult]int{}
	}
	r.results[res]++
}

func (r *countingRecorder) count(res metrics.FetchResult) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.results[res]
}

func quietConfig(rec metrics.Recorder) Config {
	return Config{Logger: log.New(io.Discard), Recorder: rec}
}

func waitSettled(t *testing.T, l *Loader) State {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	st, err := l.Wait(ctx)
	require.NoError(t, err)
	return st
}

func TestLoader_ReadyPipeline(t *testing.T) {
	f := newGatedFetcher("alice")
	l := NewLoader(f, quietConfig(nil))
	defer l.Close()

	assert.Equal(t, StatusIdle, l.Snapshot().Status)

	require.True(t, l.Load("alice"))
	st := l.Snapshot()
	assert.Equal(t, StatusLoading, st.Status)
	assert.Equal(t, "alice", st.Identifier)

	f.release("alice", result{repos: []github.Repository{
		repo("x", 5, false, false),
		repo("y", 10, true, false),
		repo("z", 3, false, false),
	}})

	st = waitSettled(t, l)
	assert.Equal(t, StatusReady, st.Status)
	assert.Equal(t, []string{"x", "z"}, names(st.Records))
	assert.Empty(t, st.Err)
}

func TestLoader_AllowListReadPerFetch(t *testing.T) {
	var mu sync.Mutex
	allow := []string{"x"}
	f := funcFetcher(func(context.Context, string) ([]github.Repository, error) {
		return []github.Repository{repo("x", 5, false, false), repo("z", 3, false, false)}, nil
	})
	cfg := quietConfig(nil)
	cfg.AllowList = func() []string {
		mu.Lock()
		defer mu.Unlock()
		return allow
	}
	l := NewLoader(f, cfg)
	defer l.Close()

	require.True(t, l.Load("alice"))
	assert.Equal(t, []string{"x"}, names(waitSettled(t, l).Records))

	mu.Lock()
	allow = []string{"z"}
	mu.Unlock()
	require.True(t, l.Load("alice"))
	assert.Equal(t, []string{"z"}, names(waitSettled(t, l).Records))
}

func TestLoader_EmptyIdentifierIsNoop(t *testing.T) {
	f := newGatedFetcher("alice")
	l := NewLoader(f, quietConfig(nil))
	defer l.Close()

	assert.False(t, l.Load(""))
	assert.False(t, l.Load("   "))
	assert.Equal(t, 0, f.callCount())
	assert.Equal(t, State{}, l.Snapshot())

	require.True(t, l.Load("alice"))
	f.release("alice", result{repos: []github.Repository{repo("x", 1, false, false)}})
	before := waitSettled(t, l)

	assert.False(t, l.Load(""))
	assert.Equal(t, before, l.Snapshot())
	assert.Equal(t, 1, f.callCount())
}

func TestLoader_StatusErrorKeepsPreviousRecords(t *testing.T) {
	f := newGatedFetcher("alice", "ghost")
	l := NewLoader(f, quietConfig(nil))
	defer l.Close()

	l.Load("alice")
	f.release("alice", result{repos: []github.Repository{repo("x", 1, false, false)}})
	waitSettled(t, l)

	l.Load("ghost")
	f.release("ghost", result{err: &github.StatusError{Code: 404, Status: "404 Not Found"}})
	st := waitSettled(t, l)

	assert.Equal(t, StatusFailed, st.Status)
	assert.Contains(t, st.Err, "404")
	assert.Equal(t, "404 Not Found", st.Err)
	assert.Equal(t, []string{"x"}, names(st.Records))
}

func TestLoader_StaleResponseDiscarded(t *testing.T) {
	f := newGatedFetcher("alice", "bob")
	rec := &countingRecorder{}
	l := NewLoader(f, quietConfig(rec))
	defer l.Close()

	l.Load("alice")
	l.Load("bob")

	f.release("bob", result{repos: []github.Repository{repo("bob-repo", 1, false, false)}})
	st := waitSettled(t, l)
	require.Equal(t, StatusReady, st.Status)

	f.release("alice", result{repos: []github.Repository{repo("alice-repo", 99, false, false)}})
	require.Eventually(t, func() bool { return rec.count(metrics.FetchStale) == 1 }, 2*time.Second, 5*time.Millisecond)

	st = l.Snapshot()
	assert.Equal(t, StatusReady, st.Status)
	assert.Equal(t, "bob", st.Identifier)
	assert.Equal(t, []string{"bob-repo"}, names(st.Records))
	assert.Equal(t, 1, rec.count(metrics.FetchReady))
}

func TestLoader_StaleFailureDiscarded(t *testing.T) {
	f := newGatedFetcher("alice", "bob")
	rec := &countingRecorder{}
	l := NewLoader(f, quietConfig(rec))
	defer l.Close()

	l.Load("alice")
	l.Load("bob")
	f.release("alice", result{err: &github.StatusError{Code: 500, Status: "500 Internal Server Error"}})
	require.Eventually(t, func() bool { return rec.count(metrics.FetchStale) == 1 }, 2*time.Second, 5*time.Millisecond)

	assert.Equal(t, StatusLoading, l.Snapshot().Status)

	f.release("bob", result{repos: []github.Repository{}})
	st := waitSettled(t, l)
	assert.Equal(t, StatusReady, st.Status)
	assert.True(t, st.Empty())
}

func TestLoader_SupersededRequestIsCanceled(t *testing.T) {
	canceled := make(chan struct{})
	f := funcFetcher(func(ctx context.Context, user string) ([]github.Repository, error) {
		if user == "alice" {
			<-ctx.Done()
			close(canceled)
			return nil, ctx.Err()
		}
		return []github.Repository{repo("b", 1, false, false)}, nil
	})
	l := NewLoader(f, quietConfig(nil))
	defer l.Close()

	l.Load("alice")
	l.Load("bob")

	select {
	case <-canceled:
	case <-time.After(2 * time.Second):
		t.Fatal("first request was not canceled")
	}
	st := waitSettled(t, l)
	assert.Equal(t, "bob", st.Identifier)
	assert.Equal(t, StatusReady, st.Status)
}

func TestLoader_Timeout(t *testing.T) {
	f := funcFetcher(func(ctx context.Context, user string) ([]github.Repository, error) {
		<-ctx.Done()
		return nil, ctx.Err()
	})
	rec := &countingRecorder{}
	cfg := quietConfig(rec)
	cfg.Timeout = 20 * time.Millisecond
	l := NewLoader(f, cfg)
	defer l.Close()

	l.Load("slow")
	st := waitSettled(t, l)
	assert.Equal(t, StatusFailed, st.Status)
	assert.Equal(t, "request timed out after 20ms", st.Err)
	assert.Equal(t, 1, rec.count(metrics.FetchTimeout))
}

func TestLoader_ReloadClearsError(t *testing.T) {
	f := newGatedFetcher("u")
	l := NewLoader(f, quietConfig(nil))
	defer l.Close()

	l.Load("u")
	f.release("u", result{err: &github.StatusError{Code: 403, Status: "403 Forbidden"}})
	assert.Equal(t, StatusFailed, waitSettled(t, l).Status)

	l.Load("u")
	st := l.Snapshot()
	assert.Equal(t, StatusLoading, st.Status)
	assert.Empty(t, st.Err)

	f.release("u", result{repos: []github.Repository{repo("x", 1, false, false)}})
	assert.Equal(t, StatusReady, waitSettled(t, l).Status)
}

func TestLoader_SnapshotIsCopy(t *testing.T) {
	f := newGatedFetcher("u")
	l := NewLoader(f, quietConfig(nil))
	defer l.Close()

	l.Load("u")
	f.release("u", result{repos: []github.Repository{repo("x", 1, false, false)}})
	st := waitSettled(t, l)
	st.Records[0].Name = "mutated"

	assert.Equal(t, "x", l.Snapshot().Records[0].Name)
}

func TestLoader_CloseIgnoresLaterLoads(t *testing.T) {
	f := newGatedFetcher("u")
	l := NewLoader(f, quietConfig(nil))

	l.Load("u")
	l.Close()
	assert.False(t, l.Load("u"))

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	_, err := l.Wait(ctx)
	assert.NoError(t, err)

	f.release("u", result{})
}

func TestLoader_WaitHonorsContext(t *testing.T) {
	f := newGatedFetcher("u")
	l := NewLoader(f, quietConfig(nil))
	defer func() {
		f.release("u", result{})
		l.Close()
	}()

	l.Load("u")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	st, err := l.Wait(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Equal(t, StatusLoading, st.Status)
}
