// Package datadog implements a Datadog backend for the internal/metrics
// package.
//
// The backend buffers counter deltas and histogram samples in memory,
// submits them on a ticker (default once per minute), and submits one
// final time on Close. Short-lived cleaning runs still get their tail
// flush that way, while long runs produce an actual time series instead
// of a single spike at exit.
//
// Counters become Datadog COUNT series. Histogram samples are reduced at
// flush time to percentile GAUGE series (p50/p90/p95/p99/max/samples) per
// tag value.
//
// Concurrency model: pipeline goroutines may call IncCounter and
// ObserveHistogram at any time, Flush snapshots and resets the buffers
// under a mutex and submits out of lock, and Close stops the flush loop
// before the final submission.
package datadog

import (
	"context"
	"net/http"
	"os"
	"sort"
	"strings"
	"sync"
	"time"

	"csvclean/internal/metrics"

	dd "github.com/DataDog/datadog-api-client-go/v2/api/datadog"
	"github.com/DataDog/datadog-api-client-go/v2/api/datadogV2"
)

// Options controls Datadog backend configuration.
type Options struct {
	// JobName becomes tag "job:<name>" on every series. Defaults to
	// "csvclean".
	JobName string

	// Tags are extra Datadog tags, e.g. []string{"env:prod", "service:csvclean"}.
	Tags []string

	// FlushEvery controls how often buffered metrics are submitted.
	// Defaults to 60 seconds.
	FlushEvery time.Duration

	// Unexported test seams. Production code leaves them nil; tests set
	// them to avoid real HTTP submission and nondeterministic clocks.
	now       func() time.Time
	newTicker func(d time.Duration) *time.Ticker
	submitter metricsSubmitter
}

// metricsSubmitter is the slice of the Datadog SDK the backend needs.
// The SDK only exposes the concrete *datadogV2.MetricsApi; depending on
// this interface instead lets tests stub submission.
type metricsSubmitter interface {
	SubmitMetrics(ctx context.Context, body datadogV2.MetricPayload, params ...datadogV2.SubmitMetricsOptionalParameters) (datadogV2.IntakePayloadAccepted, *http.Response, error)
}

// Backend implements metrics.Backend for Datadog.
type Backend struct {
	api metricsSubmitter
	ctx context.Context

	flushEvery time.Duration
	stopCh     chan struct{}
	doneCh     chan struct{}

	baseTags []string

	// now and newTicker are injected for deterministic tests. Production
	// uses time.Now and time.NewTicker.
	now       func() time.Time
	newTicker func(d time.Duration) *time.Ticker

	mu sync.Mutex

	jobCounts     map[string]float64   // status -> jobs
	rowCounts     map[string]float64   // direction -> rows
	removedCounts map[string]float64   // reason -> rows
	jobDur        map[string][]float64 // status -> seconds
	stageDur      map[string][]float64 // stage -> seconds
}

func resolveEnvTag() string {
	if v := strings.TrimSpace(os.Getenv("ENV")); v != "" {
		return "env:" + v
	}
	if v := strings.TrimSpace(os.Getenv("DD_ENV")); v != "" {
		return "env:" + v
	}
	return "env:unknown"
}

// NewBackend constructs a Datadog backend using the official client and
// starts its periodic flush goroutine.
//
// Construction does no network work; submission errors surface from
// Flush and Close. An empty JobName defaults to "csvclean" and a
// non-positive FlushEvery to 60 seconds. The environment tag is taken
// from ENV, then DD_ENV, otherwise env:unknown.
func NewBackend(parent context.Context, opts Options) (*Backend, error) {
	job := opts.JobName
	if job == "" {
		job = "csvclean"
	}
	flushEvery := opts.FlushEvery
	if flushEvery <= 0 {
		flushEvery = 60 * time.Second
	}

	baseTags := make([]string, 0, 2+len(opts.Tags))
	baseTags = append(baseTags, resolveEnvTag(), "job:"+job)
	baseTags = append(baseTags, opts.Tags...)

	nowFn := opts.now
	if nowFn == nil {
		nowFn = time.Now
	}
	newTicker := opts.newTicker
	if newTicker == nil {
		newTicker = time.NewTicker
	}
	submitter := opts.submitter
	if submitter == nil {
		submitter = datadogV2.NewMetricsApi(dd.NewAPIClient(dd.NewConfiguration()))
	}

	b := &Backend{
		api:        submitter,
		ctx:        dd.NewDefaultContext(parent),
		flushEvery: flushEvery,
		stopCh:     make(chan struct{}),
		doneCh:     make(chan struct{}),
		baseTags:   baseTags,
		now:        nowFn,
		newTicker:  newTicker,

		jobCounts:     make(map[string]float64),
		rowCounts:     make(map[string]float64),
		removedCounts: make(map[string]float64),
		jobDur:        make(map[string][]float64),
		stageDur:      make(map[string][]float64),
	}
	go b.loop()
	return b, nil
}

func (b *Backend) loop() {
	defer close(b.doneCh)

	t := b.newTicker(b.flushEvery)
	defer t.Stop()

	for {
		select {
		case <-t.C:
			_ = b.Flush()
		case <-b.stopCh:
			return
		}
	}
}

// Close stops the background flush loop and performs one final Flush,
// returning any submission error from it. Close must be called at most
// once.
func (b *Backend) Close() error {
	close(b.stopCh)
	<-b.doneCh
	return b.Flush()
}

// IncCounter implements metrics.Backend. Unknown metric names and
// non-positive deltas are dropped.
func (b *Backend) IncCounter(name string, delta float64, labels metrics.Labels) {
	if delta <= 0 {
		return
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	switch name {
	case "csvclean_jobs_total":
		b.jobCounts[labelOr(labels, "status")] += delta
	case "csvclean_rows_total":
		b.rowCounts[labelOr(labels, "direction")] += delta
	case "csvclean_rows_removed_total":
		b.removedCounts[labelOr(labels, "reason")] += delta
	}
}

// ObserveHistogram implements metrics.Backend. Unknown metric names and
// negative samples are dropped.
func (b *Backend) ObserveHistogram(name string, value float64, labels metrics.Labels) {
	if value < 0 {
		return
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	switch name {
	case "csvclean_job_duration_seconds":
		k := labelOr(labels, "status")
		b.jobDur[k] = append(b.jobDur[k], value)
	case "csvclean_stage_duration_seconds":
		k := labelOr(labels, "stage")
		b.stageDur[k] = append(b.stageDur[k], value)
	}
}

func labelOr(labels metrics.Labels, key string) string {
	if v := labels[key]; v != "" {
		return v
	}
	return "unknown"
}

// snapshot is the detached buffer state a flush submits. Flush must reset
// buffers under the lock but submit out of lock; the snapshot separates
// the two phases.
type snapshot struct {
	jobCounts     map[string]float64
	rowCounts     map[string]float64
	removedCounts map[string]float64
	jobDur        map[string][]float64
	stageDur      map[string][]float64
}

func (b *Backend) snapshotAndReset() snapshot {
	b.mu.Lock()
	defer b.mu.Unlock()

	s := snapshot{
		jobCounts:     b.jobCounts,
		rowCounts:     b.rowCounts,
		removedCounts: b.removedCounts,
		jobDur:        b.jobDur,
		stageDur:      b.stageDur,
	}

	b.jobCounts = make(map[string]float64)
	b.rowCounts = make(map[string]float64)
	b.removedCounts = make(map[string]float64)
	b.jobDur = make(map[string][]float64)
	b.stageDur = make(map[string][]float64)

	return s
}

func (s snapshot) isEmpty() bool {
	return len(s.jobCounts) == 0 &&
		len(s.rowCounts) == 0 &&
		len(s.removedCounts) == 0 &&
		len(s.jobDur) == 0 &&
		len(s.stageDur) == 0
}

// Flush submits buffered metrics to Datadog and resets the buffers. It
// returns nil when there is nothing to submit. Buffers are reset even
// when submission fails, so a dead intake cannot make the pipeline
// accumulate unbounded samples.
func (b *Backend) Flush() error {
	snap := b.snapshotAndReset()
	if snap.isEmpty() {
		return nil
	}

	series := b.buildSeries(snap, b.now().Unix())
	payload := datadogV2.MetricPayload{Series: series}

	_, _, err := b.api.SubmitMetrics(b.ctx, payload, *datadogV2.NewSubmitMetricsOptionalParameters())
	return err
}

// buildSeries constructs the Datadog series for a snapshot at a fixed
// timestamp. It is pure, which keeps naming and tagging testable.
func (b *Backend) buildSeries(s snapshot, nowUnix int64) []datadogV2.MetricSeries {
	n := len(s.jobCounts) + len(s.rowCounts) + len(s.removedCounts)
	series := make([]datadogV2.MetricSeries, 0, n+6*(len(s.jobDur)+len(s.stageDur)))

	for status, v := range s.jobCounts {
		series = append(series, countSeries("csvclean.jobs.total", v, withTags(b.baseTags, "status:"+status), nowUnix))
	}
	for direction, v := range s.rowCounts {
		series = append(series, countSeries("csvclean.rows.total", v, withTags(b.baseTags, "direction:"+direction), nowUnix))
	}
	for reason, v := range s.removedCounts {
		series = append(series, countSeries("csvclean.rows.removed.total", v, withTags(b.baseTags, "reason:"+reason), nowUnix))
	}
	for status, samples := range s.jobDur {
		addPercentiles(&series, "csvclean.job.duration_seconds", withTags(b.baseTags, "status:"+status), samples, nowUnix)
	}
	for stage, samples := range s.stageDur {
		addPercentiles(&series, "csvclean.stage.duration_seconds", withTags(b.baseTags, "stage:"+stage), samples, nowUnix)
	}

	return series
}

// addPercentiles appends the fixed percentile gauges for a sample set.
// It sorts a copy and leaves the input untouched; empty sample sets add
// nothing.
func addPercentiles(series *[]datadogV2.MetricSeries, metricPrefix string, tags []string, samples []float64, nowUnix int64) {
	if len(samples) == 0 {
		return
	}
	cp := append([]float64(nil), samples...)
	sort.Float64s(cp)

	*series = append(*series, gaugeSeries(metricPrefix+".p50", percentileNearestRank(cp, 0.50), tags, nowUnix))
	*series = append(*series, gaugeSeries(metricPrefix+".p90", percentileNearestRank(cp, 0.90), tags, nowUnix))
	*series = append(*series, gaugeSeries(metricPrefix+".p95", percentileNearestRank(cp, 0.95), tags, nowUnix))
	*series = append(*series, gaugeSeries(metricPrefix+".p99", percentileNearestRank(cp, 0.99), tags, nowUnix))
	*series = append(*series, gaugeSeries(metricPrefix+".max", cp[len(cp)-1], tags, nowUnix))
	*series = append(*series, gaugeSeries(metricPrefix+".samples", float64(len(cp)), tags, nowUnix))
}

func countSeries(metric string, value float64, tags []string, nowUnix int64) datadogV2.MetricSeries {
	return datadogV2.MetricSeries{
		Metric: metric,
		Type:   datadogV2.METRICINTAKETYPE_COUNT.Ptr(),
		Points: []datadogV2.MetricPoint{
			{Timestamp: dd.PtrInt64(nowUnix), Value: dd.PtrFloat64(value)},
		},
		Tags: tags,
	}
}

func gaugeSeries(metric string, value float64, tags []string, nowUnix int64) datadogV2.MetricSeries {
	return datadogV2.MetricSeries{
		Metric: metric,
		Type:   datadogV2.METRICINTAKETYPE_GAUGE.Ptr(),
		Points: []datadogV2.MetricPoint{
			{Timestamp: dd.PtrInt64(nowUnix), Value: dd.PtrFloat64(value)},
		},
		Tags: tags,
	}
}

func withTags(base []string, extras ...string) []string {
	out := make([]string, 0, len(base)+len(extras))
	out = append(out, base...)
	out = append(out, extras...)
	return out
}

func percentileNearestRank(s []float64, p float64) float64 {
	n := len(s)
	if n == 0 {
		return 0
	}
	if p <= 0 {
		return s[0]
	}
	if p >= 1 {
		return s[n-1]
	}
	idx := int(p*float64(n-1) + 0.5)
	if idx < 0 {
		idx = 0
	}
	if idx >= n {
		idx = n - 1
	}
	return s[idx]
}

var _ metrics.Backend = (*Backend)(nil)

// ParseTagsCSV parses comma-separated tags like "env:prod,service:csvclean".
func ParseTagsCSV(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}
