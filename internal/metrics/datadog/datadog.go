// Package datadog ships fbe2json metrics to Datadog.
//
// Observations are buffered in memory and submitted on Flush. A background
// loop flushes every FlushEvery so a slow conversion still produces a time
// series; Close stops the loop and flushes what is left. A conversion is
// usually over in well under a minute, so in practice Close does the only
// submission.
package datadog

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"sort"
	"strings"
	"sync"
	"time"

	"fbe2json/internal/metrics"

	dd "github.com/DataDog/datadog-api-client-go/v2/api/datadog"
	"github.com/DataDog/datadog-api-client-go/v2/api/datadogV2"
)

const (
	defaultJob        = "fbe2json"
	defaultFlushEvery = 60 * time.Second

	seriesStepTotal    = "fbe2json.step.total"
	seriesRecordsTotal = "fbe2json.records.total"
	seriesStepDuration = "fbe2json.step.duration_seconds"
)

// Options configures a Backend.
type Options struct {
	// JobName becomes the tag "job:<name>". Defaults to "fbe2json".
	JobName string

	// Tags are extra Datadog tags such as "team:data".
	Tags []string

	// FlushEvery is the periodic flush interval. Defaults to one minute.
	FlushEvery time.Duration

	// test seams
	now       func() time.Time
	newTicker func(d time.Duration) *time.Ticker
	submitter submitter
}

// submitter is the part of *datadogV2.MetricsApi the backend uses.
type submitter interface {
	SubmitMetrics(ctx context.Context, body datadogV2.MetricPayload, params ...datadogV2.SubmitMetricsOptionalParameters) (datadogV2.IntakePayloadAccepted, *http.Response, error)
}

// Backend implements metrics.Backend and metrics.Flusher.
type Backend struct {
	api submitter
	ctx context.Context

	flushEvery time.Duration
	stopCh     chan struct{}
	doneCh     chan struct{}
	closeOnce  sync.Once

	baseTags  []string
	now       func() time.Time
	newTicker func(d time.Duration) *time.Ticker

	mu  sync.Mutex
	buf buffer
}

// buffer holds one collection window.
type buffer struct {
	steps     map[stepKey]float64
	records   map[string]float64
	durations map[stepKey][]float64
}

type stepKey struct {
	step   string
	status string
}

func newBuffer() buffer {
	return buffer{
		steps:     make(map[stepKey]float64),
		records:   make(map[string]float64),
		durations: make(map[stepKey][]float64),
	}
}

func (b buffer) empty() bool {
	return len(b.steps) == 0 && len(b.records) == 0 && len(b.durations) == 0
}

// NewBackend returns a running Backend. Credentials and site come from the
// standard DD_API_KEY / DD_SITE environment variables read by the client.
// The environment tag is taken from ENV, then DD_ENV.
func NewBackend(parent context.Context, opts Options) (*Backend, error) {
	if opts.FlushEvery < 0 {
		return nil, wrapInitErr(fmt.Errorf("flush interval %s is negative", opts.FlushEvery))
	}

	job := strings.TrimSpace(opts.JobName)
	if job == "" {
		job = defaultJob
	}
	flushEvery := opts.FlushEvery
	if flushEvery == 0 {
		flushEvery = defaultFlushEvery
	}

	tags := make([]string, 0, 2+len(opts.Tags))
	tags = append(tags, resolveEnvTag(), "job:"+job)
	tags = append(tags, opts.Tags...)

	b := &Backend{
		api:        opts.submitter,
		ctx:        dd.NewDefaultContext(parent),
		flushEvery: flushEvery,
		stopCh:     make(chan struct{}),
		doneCh:     make(chan struct{}),
		baseTags:   tags,
		now:        opts.now,
		newTicker:  opts.newTicker,
		buf:        newBuffer(),
	}
	if b.api == nil {
		b.api = datadogV2.NewMetricsApi(dd.NewAPIClient(dd.NewConfiguration()))
	}
	if b.now == nil {
		b.now = time.Now
	}
	if b.newTicker == nil {
		b.newTicker = time.NewTicker
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

// Close stops the flush loop and submits whatever is still buffered. It is
// safe to call more than once; later calls only flush.
func (b *Backend) Close() error {
	b.closeOnce.Do(func() {
		close(b.stopCh)
		<-b.doneCh
	})
	return b.Flush()
}

// IncCounter implements metrics.Backend.
func (b *Backend) IncCounter(name string, delta float64, labels metrics.Labels) {
	if delta <= 0 {
		return
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	switch name {
	case metrics.StepTotal:
		b.buf.steps[stepKeyOf(labels)] += delta
	case metrics.RecordsTotal:
		if kind := labels["kind"]; kind != "" {
			b.buf.records[kind] += delta
		}
	}
}

// ObserveHistogram implements metrics.Backend.
func (b *Backend) ObserveHistogram(name string, value float64, labels metrics.Labels) {
	if value < 0 {
		return
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	if name != metrics.StepDurationSeconds {
		return
	}
	k := stepKeyOf(labels)
	b.buf.durations[k] = append(b.buf.durations[k], value)
}

func stepKeyOf(l metrics.Labels) stepKey {
	k := stepKey{step: l["step"], status: l["status"]}
	if k.status == "" {
		k.status = "unknown"
	}
	return k
}

// Flush submits the buffered window and starts a new one. The window is
// discarded even when submission fails.
func (b *Backend) Flush() error {
	b.mu.Lock()
	snap := b.buf
	b.buf = newBuffer()
	b.mu.Unlock()

	if snap.empty() {
		return nil
	}

	payload := datadogV2.MetricPayload{Series: b.buildSeries(snap, b.now().Unix())}
	if _, _, err := b.api.SubmitMetrics(b.ctx, payload, *datadogV2.NewSubmitMetricsOptionalParameters()); err != nil {
		return fmt.Errorf("datadog submit %d series: %w", len(payload.Series), err)
	}
	return nil
}

// buildSeries turns a window into Datadog series stamped with ts. Output is
// sorted by metric name and tags so payloads are stable.
func (b *Backend) buildSeries(s buffer, ts int64) []datadogV2.MetricSeries {
	series := make([]datadogV2.MetricSeries, 0, len(s.steps)+len(s.records)+6*len(s.durations))

	for k, v := range s.steps {
		series = append(series, point(seriesStepTotal, datadogV2.METRICINTAKETYPE_COUNT, v, k.tags(b.baseTags), ts))
	}
	for kind, v := range s.records {
		series = append(series, point(seriesRecordsTotal, datadogV2.METRICINTAKETYPE_COUNT, v, withTags(b.baseTags, "kind:"+kind), ts))
	}
	for k, samples := range s.durations {
		series = append(series, percentiles(seriesStepDuration, samples, k.tags(b.baseTags), ts)...)
	}

	sort.SliceStable(series, func(i, j int) bool {
		if series[i].Metric != series[j].Metric {
			return series[i].Metric < series[j].Metric
		}
		return strings.Join(series[i].Tags, ",") < strings.Join(series[j].Tags, ",")
	})
	return series
}

func (k stepKey) tags(base []string) []string {
	return withTags(base, "step:"+k.step, "status:"+k.status)
}

// percentiles summarises samples as p50/p90/p95/p99/max/samples gauges.
func percentiles(prefix string, samples []float64, tags []string, ts int64) []datadogV2.MetricSeries {
	if len(samples) == 0 {
		return nil
	}
	s := append([]float64(nil), samples...)
	sort.Float64s(s)

	gauge := func(suffix string, v float64) datadogV2.MetricSeries {
		return point(prefix+"."+suffix, datadogV2.METRICINTAKETYPE_GAUGE, v, tags, ts)
	}
	return []datadogV2.MetricSeries{
		gauge("p50", percentileNearestRank(s, 0.50)),
		gauge("p90", percentileNearestRank(s, 0.90)),
		gauge("p95", percentileNearestRank(s, 0.95)),
		gauge("p99", percentileNearestRank(s, 0.99)),
		gauge("max", s[len(s)-1]),
		gauge("samples", float64(len(s))),
	}
}

func point(metric string, typ datadogV2.MetricIntakeType, v float64, tags []string, ts int64) datadogV2.MetricSeries {
	return datadogV2.MetricSeries{
		Metric: metric,
		Type:   typ.Ptr(),
		Points: []datadogV2.MetricPoint{{Timestamp: dd.PtrInt64(ts), Value: dd.PtrFloat64(v)}},
		Tags:   tags,
	}
}

func withTags(base []string, extras ...string) []string {
	out := make([]string, 0, len(base)+len(extras))
	out = append(out, base...)
	return append(out, extras...)
}

// percentileNearestRank expects s sorted ascending.
func percentileNearestRank(s []float64, p float64) float64 {
	n := len(s)
	switch {
	case n == 0:
		return 0
	case p <= 0:
		return s[0]
	case p >= 1:
		return s[n-1]
	}
	idx := int(p*float64(n-1) + 0.5)
	return s[min(max(idx, 0), n-1)]
}

func resolveEnvTag() string {
	for _, key := range []string{"ENV", "DD_ENV"} {
		if v := strings.TrimSpace(os.Getenv(key)); v != "" {
			return "env:" + v
		}
	}
	return "env:unknown"
}

// ParseTagsCSV splits "team:data,region:eu" into tags, dropping blanks.
func ParseTagsCSV(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func wrapInitErr(err error) error {
	return fmt.Errorf("datadog metrics init: %w", err)
}

var (
	_ metrics.Backend = (*Backend)(nil)
	_ metrics.Flusher = (*Backend)(nil)
)
