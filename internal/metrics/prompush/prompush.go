// Package prompush implements a Prometheus Pushgateway backend for the
// internal/metrics package.
//
// Scraping does not fit batch jobs that exit before the next scrape; the
// Pushgateway holds the final state of each run instead. The backend
// collects into a private registry and pushes the whole group on Flush,
// which the process runs once at exit.
package prompush

import (
	"fmt"
	"sort"
	"sync"

	"csvclean/internal/metrics"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/push"
)

// Backend implements metrics.Backend on top of a Pushgateway.
type Backend struct {
	pusher *push.Pusher
	reg    *prometheus.Registry

	mu         sync.Mutex
	counters   map[string]*prometheus.CounterVec
	histograms map[string]*prometheus.HistogramVec
}

// NewBackend builds a backend pushing to url under the given grouping
// job name. An empty job name defaults to "csvclean".
func NewBackend(jobName, url string) (*Backend, error) {
	if url == "" {
		return nil, fmt.Errorf("pushgateway URL is empty")
	}
	if jobName == "" {
		jobName = "csvclean"
	}
	reg := prometheus.NewRegistry()
	return &Backend{
		pusher:     push.New(url, jobName).Gatherer(reg),
		reg:        reg,
		counters:   make(map[string]*prometheus.CounterVec),
		histograms: make(map[string]*prometheus.HistogramVec),
	}, nil
}

// IncCounter implements metrics.Backend. The first emission of a name
// fixes its label keys; a later emission with a different key set is
// dropped. Negative deltas are dropped because Prometheus counters only
// go up.
func (b *Backend) IncCounter(name string, delta float64, labels metrics.Labels) {
	if delta < 0 {
		return
	}
	c, err := b.counterVec(name, labels).GetMetricWith(prometheus.Labels(labels))
	if err != nil {
		return
	}
	c.Add(delta)
}

// ObserveHistogram implements metrics.Backend with the same label-key
// rules as IncCounter.
func (b *Backend) ObserveHistogram(name string, value float64, labels metrics.Labels) {
	h, err := b.histogramVec(name, labels).GetMetricWith(prometheus.Labels(labels))
	if err != nil {
		return
	}
	h.Observe(value)
}

// Flush pushes the registry's current state to the Pushgateway, replacing
// the previous push for this job group.
func (b *Backend) Flush() error {
	if err := b.pusher.Push(); err != nil {
		return fmt.Errorf("push metrics: %w", err)
	}
	return nil
}

func (b *Backend) counterVec(name string, labels metrics.Labels) *prometheus.CounterVec {
	b.mu.Lock()
	defer b.mu.Unlock()
	cv, ok := b.counters[name]
	if !ok {
		cv = prometheus.NewCounterVec(prometheus.CounterOpts{Name: name}, labelKeys(labels))
		b.reg.MustRegister(cv)
		b.counters[name] = cv
	}
	return cv
}

func (b *Backend) histogramVec(name string, labels metrics.Labels) *prometheus.HistogramVec {
	b.mu.Lock()
	defer b.mu.Unlock()
	hv, ok := b.histograms[name]
	if !ok {
		hv = prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    name,
			Buckets: prometheus.DefBuckets,
		}, labelKeys(labels))
		b.reg.MustRegister(hv)
		b.histograms[name] = hv
	}
	return hv
}

func labelKeys(labels metrics.Labels) []string {
	keys := make([]string, 0, len(labels))
	for k := range labels {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

var _ metrics.Backend = (*Backend)(nil)
