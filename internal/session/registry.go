// Package session tracks live page views. Each view owns one repository
// feed loader and follows the site theme until it expires.
package session

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"

	"github.com/khantimmy27/portfolio/internal/feed"
	"github.com/khantimmy27/portfolio/internal/metrics"
	"github.com/khantimmy27/portfolio/internal/theme"
)

// DefaultTTL is how long an untouched view survives.
const DefaultTTL = 30 * time.Minute

// DefaultMaxViews caps live views. Creating one more evicts the view seen
// least recently.
const DefaultMaxViews = 1000

// ErrViewNotFound is returned for unknown or expired view ids.
var ErrViewNotFound = errors.New("view not found")

// View is one rendered page and its feed state.
type View struct {
	ID     string
	Loader *feed.Loader

	mu          sync.Mutex
	lastSeen    time.Time
	theme       theme.Preference
	pending     string
	unsubscribe func()
}

// Start issues the view's initial load, deferred from Create until the page
// first asks for its feed. Only the first call does anything.
func (v *View) Start() {
	v.mu.Lock()
	identifier := v.pending
	v.pending = ""
	v.mu.Unlock()
	if identifier != "" {
		v.Loader.Load(identifier)
	}
}

// Load replaces the feed identifier and drops any initial load that has not
// started. A blank identifier changes nothing.
func (v *View) Load(identifier string) bool {
	if strings.TrimSpace(identifier) == "" {
		return false
	}
	v.mu.Lock()
	v.pending = ""
	v.mu.Unlock()
	return v.Loader.Load(identifier)
}

// Snapshot returns the feed state. A view whose initial load is still
// deferred reports Loading for that identifier.
func (v *View) Snapshot() feed.State {
	st := v.Loader.Snapshot()
	v.mu.Lock()
	pending := v.pending
	v.mu.Unlock()
	if pending != "" && st.Status == feed.StatusIdle {
		st.Status = feed.StatusLoading
		st.Identifier = pending
	}
	return st
}

// Theme is the site preference as last observed by this view.
func (v *View) Theme() theme.Preference {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.theme
}

func (v *View) setTheme(p theme.Preference) {
	v.mu.Lock()
	v.theme = p
	v.mu.Unlock()
}

func (v *View) touch(now time.Time) {
	v.mu.Lock()
	v.lastSeen = now
	v.mu.Unlock()
}

func (v *View) idleSince(now time.Time) time.Duration {
	v.mu.Lock()
	defer v.mu.Unlock()
	return now.Sub(v.lastSeen)
}

func (v *View) seenAt() time.Time {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.lastSeen
}

func (v *View) close() {
	v.unsubscribe()
	v.Loader.Close()
}

// LoaderFactory builds the loader for a new view.
type LoaderFactory func() *feed.Loader

// Config holds Registry dependencies.
type Config struct {
	TTL       time.Duration
	MaxViews  int
	NewLoader LoaderFactory
	Theme     *theme.Store
	Logger    *log.Logger
	Recorder  metrics.Recorder
	Now       func() time.Time
}

// Registry maps view ids to live views.
type Registry struct {
	ttl       time.Duration
	maxViews  int
	newLoader LoaderFactory
	theme     *theme.Store
	logger    *log.Logger
	recorder  metrics.Recorder
	now       func() time.Time

	mu    sync.RWMutex
	views map[string]*View
}

// NewRegistry creates an empty registry.
func NewRegistry(cfg Config) *Registry {
	r := &Registry{
		ttl:       cfg.TTL,
		maxViews:  cfg.MaxViews,
		newLoader: cfg.NewLoader,
		theme:     cfg.Theme,
		logger:    cfg.Logger,
		recorder:  cfg.Recorder,
		now:       cfg.Now,
		views:     make(map[string]*View),
	}
	if r.ttl <= 0 {
		r.ttl = DefaultTTL
	}
	if r.maxViews <= 0 {
		r.maxViews = DefaultMaxViews
	}
	if r.theme == nil {
		r.theme = theme.NewStore(theme.System)
	}
	if r.logger == nil {
		r.logger = log.Default()
	}
	if r.recorder == nil {
		r.recorder = metrics.NoopRecorder{}
	}
	if r.now == nil {
		r.now = time.Now
	}
	return r
}

// Create registers a new view for identifier. Nothing is fetched until the
// view is started.
func (r *Registry) Create(identifier string) *View {
	v := &View{
		ID:       uuid.NewString(),
		Loader:   r.newLoader(),
		lastSeen: r.now(),
		theme:    r.theme.Current(),
		pending:  strings.TrimSpace(identifier),
	}
	v.unsubscribe = r.theme.Subscribe(v.setTheme)

	r.mu.Lock()
	var evicted *View
	if len(r.views) >= r.maxViews {
		evicted = r.oldestLocked()
		delete(r.views, evicted.ID)
	}
	r.views[v.ID] = v
	n := len(r.views)
	r.mu.Unlock()

	if evicted != nil {
		evicted.close()
		r.logger.Debug("evicted page view", "view", evicted.ID, "live", n)
	}
	r.recorder.SetActiveViews(n)
	return v
}

func (r *Registry) oldestLocked() *View {
	var oldest *View
	var oldestSeen time.Time
	for _, v := range r.views {
		seen := v.seenAt()
		if oldest == nil || seen.Before(oldestSeen) {
			oldest, oldestSeen = v, seen
		}
	}
	return oldest
}

// Get returns the view and marks it as seen.
func (r *Registry) Get(id string) (*View, error) {
	r.mu.RLock()
	v, ok := r.views[id]
	r.mu.RUnlock()
	if !ok {
		return nil, ErrViewNotFound
	}
	v.touch(r.now())
	return v, nil
}

// Len reports the number of live views.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.views)
}

// Sweep closes views idle longer than the TTL and returns how many it removed.
func (r *Registry) Sweep() int {
	now := r.now()
	var expired []*View

	r.mu.Lock()
	for id, v := range r.views {
		if v.idleSince(now) > r.ttl {
			expired = append(expired, v)
			delete(r.views, id)
		}
	}
	n := len(r.views)
	r.mu.Unlock()

	for _, v := range expired {
		v.close()
	}
	if len(expired) > 0 {
		r.recorder.SetActiveViews(n)
		r.logger.Debug("expired page views", "removed", len(expired), "live", n)
	}
	return len(expired)
}

// Run sweeps periodically until ctx is done, then closes every view.
func (r *Registry) Run(ctx context.Context, every time.Duration) {
	if every <= 0 {
		every = time.Minute
	}
	ticker := time.NewTicker(every)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			r.closeAll()
			return
		case <-ticker.C:
			r.Sweep()
		}
	}
}

func (r *Registry) closeAll() {
	r.mu.Lock()
	views := r.views
	r.views = make(map[string]*View)
	r.mu.Unlock()
	for _, v := range views {
		v.close()
	}
	r.recorder.SetActiveViews(0)
}
