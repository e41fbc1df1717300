package metrics

import (
	"net/http"
	"time"

	prom "github.com/prometheus/client_golang/prometheus"
	promhttp "github.com/prometheus/client_golang/prometheus/promhttp"
)

// PrometheusRecorder implements Recorder using Prometheus metrics.
type PrometheusRecorder struct {
	reg           *prom.Registry
	fetchDuration *prom.HistogramVec
	fetchResults  *prom.CounterVec
	pageViews     *prom.CounterVec
	activeViews   prom.Gauge
}

// NewPrometheusRecorder constructs the collectors and registers them on reg.
// A nil reg gets a fresh registry.
func NewPrometheusRecorder(reg *prom.Registry) *PrometheusRecorder {
	if reg == nil {
		reg = prom.NewRegistry()
	}
	pr := &PrometheusRecorder{
		reg: reg,
		fetchDuration: prom.NewHistogramVec(prom.HistogramOpts{
			Namespace: "portfolio",
			Name:      "repo_fetch_duration_seconds",
			Help:      "Duration of GitHub repository fetches",
			Buckets:   prom.DefBuckets,
		}, []string{"result"}),
		fetchResults: prom.NewCounterVec(prom.CounterOpts{
			Namespace: "portfolio",
			Name:      "repo_fetch_results_total",
			Help:      "Repository fetch outcomes, including discarded stale responses",
		}, []string{"result"}),
		pageViews: prom.NewCounterVec(prom.CounterOpts{
			Namespace: "portfolio",
			Name:      "page_views_total",
			Help:      "Page requests by path (DNT requests excluded)",
		}, []string{"path"}),
		activeViews: prom.NewGauge(prom.GaugeOpts{
			Namespace: "portfolio",
			Name:      "active_views",
			Help:      "Page views currently holding a repository loader",
		}),
	}
	reg.MustRegister(pr.fetchDuration, pr.fetchResults, pr.pageViews, pr.activeViews)
	return pr
}

func (p *PrometheusRecorder) ObserveFetch(result FetchResult, d time.Duration) {
	if p == nil {
		return
	}
	p.fetchResults.WithLabelValues(string(result)).Inc()
	p.fetchDuration.WithLabelValues(string(result)).Observe(d.Seconds())
}

func (p *PrometheusRecorder) IncPageView(path string) {
	if p == nil {
		return
	}
	p.pageViews.WithLabelValues(path).Inc()
}

func (p *PrometheusRecorder) SetActiveViews(n int) {
	if p == nil {
		return
	}
	p.activeViews.Set(float64(n))
}

// Handler serves the recorder's registry in the Prometheus exposition format.
func (p *PrometheusRecorder) Handler() http.Handler {
	return promhttp.HandlerFor(p.reg, promhttp.HandlerOpts{EnableOpenMetrics: true})
}
