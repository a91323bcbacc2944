package datadog

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"testing"
	"time"

	"fbe2json/internal/metrics"

	"github.com/DataDog/datadog-api-client-go/v2/api/datadogV2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSubmitter struct {
	mu       sync.Mutex
	payloads []datadogV2.MetricPayload
	err      error
}

func (f *fakeSubmitter) SubmitMetrics(_ context.Context, body datadogV2.MetricPayload, _ ...datadogV2.SubmitMetricsOptionalParameters) (datadogV2.IntakePayloadAccepted, *http.Response, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.payloads = append(f.payloads, body)
	return datadogV2.IntakePayloadAccepted{}, nil, f.err
}

func (f *fakeSubmitter) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.payloads)
}

func (f *fakeSubmitter) last(t *testing.T) datadogV2.MetricPayload {
	t.Helper()
	f.mu.Lock()
	defer f.mu.Unlock()
	require.NotEmpty(t, f.payloads)
	return f.payloads[len(f.payloads)-1]
}

func idleTicker(time.Duration) *time.Ticker { return time.NewTicker(24 * time.Hour) }

func newTestBackend(t *testing.T, fs *fakeSubmitter, opts Options) *Backend {
	t.Helper()
	opts.submitter = fs
	if opts.now == nil {
		opts.now = func() time.Time { return time.Unix(1000, 0) }
	}
	if opts.newTicker == nil {
		opts.newTicker = idleTicker
	}
	b, err := NewBackend(context.Background(), opts)
	require.NoError(t, err)
	t.Cleanup(func() { _ = b.Close() })
	return b
}

func metricNames(p datadogV2.MetricPayload) []string {
	out := make([]string, 0, len(p.Series))
	for _, s := range p.Series {
		out = append(out, s.Metric)
	}
	return out
}

func find(t *testing.T, p datadogV2.MetricPayload, metric string, tag string) datadogV2.MetricSeries {
	t.Helper()
	for _, s := range p.Series {
		if s.Metric == metric && contains(s.Tags, tag) {
			return s
		}
	}
	require.Failf(t, "series not found", "%s with tag %s in %v", metric, tag, metricNames(p))
	return datadogV2.MetricSeries{}
}

func contains(xs []string, v string) bool {
	for _, x := range xs {
		if x == v {
			return true
		}
	}
	return false
}

func TestResolveEnvTag(t *testing.T) {
	tests := []struct {
		name string
		env  string
		dd   string
		want string
	}{
		{name: "ENV wins", env: "prod", dd: "stage", want: "env:prod"},
		{name: "DD_ENV fallback", env: "", dd: "stage", want: "env:stage"},
		{name: "whitespace ignored", env: "   ", dd: "\n\t", want: "env:unknown"},
		{name: "unset", want: "env:unknown"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Setenv("ENV", tc.env)
			t.Setenv("DD_ENV", tc.dd)
			assert.Equal(t, tc.want, resolveEnvTag())
		})
	}
}

func TestNewBackend_Defaults(t *testing.T) {
	t.Setenv("ENV", "test")

	b := newTestBackend(t, &fakeSubmitter{}, Options{Tags: []string{"team:data"}})

	assert.Equal(t, []string{"env:test", "job:fbe2json", "team:data"}, b.baseTags)
	assert.Equal(t, 60*time.Second, b.flushEvery)
}

func TestNewBackend_NegativeFlushInterval(t *testing.T) {
	t.Parallel()

	_, err := NewBackend(context.Background(), Options{FlushEvery: -time.Second, submitter: &fakeSubmitter{}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "datadog metrics init:")
}

func TestFlush_ConversionMetrics(t *testing.T) {
	t.Parallel()

	fs := &fakeSubmitter{}
	b := newTestBackend(t, fs, Options{JobName: "nightly"})

	b.IncCounter(metrics.StepTotal, 1, metrics.Labels{"step": "load", "status": metrics.StatusOK})
	b.IncCounter(metrics.StepTotal, 1, metrics.Labels{"step": "load", "status": metrics.StatusOK})
	b.ObserveHistogram(metrics.StepDurationSeconds, 0.5, metrics.Labels{"step": "load", "status": metrics.StatusOK})
	b.IncCounter(metrics.RecordsTotal, 12, metrics.Labels{"kind": "messages"})

	require.NoError(t, b.Flush())
	require.Equal(t, 1, fs.count())

	p := fs.last(t)
	assert.IsNonDecreasing(t, metricNames(p))

	steps := find(t, p, "fbe2json.step.total", "step:load")
	assert.Contains(t, steps.Tags, "status:ok")
	assert.Contains(t, steps.Tags, "job:nightly")
	assert.Equal(t, datadogV2.METRICINTAKETYPE_COUNT, *steps.Type)
	assert.Equal(t, 2.0, *steps.Points[0].Value)
	assert.Equal(t, int64(1000), *steps.Points[0].Timestamp)

	recs := find(t, p, "fbe2json.records.total", "kind:messages")
	assert.Equal(t, 12.0, *recs.Points[0].Value)

	p50 := find(t, p, "fbe2json.step.duration_seconds.p50", "step:load")
	assert.Equal(t, datadogV2.METRICINTAKETYPE_GAUGE, *p50.Type)
	assert.Equal(t, 0.5, *p50.Points[0].Value)
	samples := find(t, p, "fbe2json.step.duration_seconds.samples", "step:load")
	assert.Equal(t, 1.0, *samples.Points[0].Value)

	require.NoError(t, b.Flush())
	assert.Equal(t, 1, fs.count(), "window was reset")
}

func TestFlush_Ignored(t *testing.T) {
	t.Parallel()

	fs := &fakeSubmitter{}
	b := newTestBackend(t, fs, Options{})

	b.IncCounter(metrics.StepTotal, 0, metrics.Labels{"step": "load"})
	b.IncCounter(metrics.RecordsTotal, 3, metrics.Labels{})
	b.IncCounter("etl_batches_total", 1, nil)
	b.ObserveHistogram(metrics.StepDurationSeconds, -1, metrics.Labels{"step": "load"})
	b.ObserveHistogram("other_seconds", 1, nil)

	require.NoError(t, b.Flush())
	assert.Zero(t, fs.count())
}

func TestFlush_MissingStatusIsUnknown(t *testing.T) {
	t.Parallel()

	fs := &fakeSubmitter{}
	b := newTestBackend(t, fs, Options{})

	b.IncCounter(metrics.StepTotal, 1, metrics.Labels{"step": "encode"})
	require.NoError(t, b.Flush())

	s := find(t, fs.last(t), "fbe2json.step.total", "step:encode")
	assert.Contains(t, s.Tags, "status:unknown")
}

func TestFlush_SubmitError(t *testing.T) {
	t.Parallel()

	fs := &fakeSubmitter{err: errors.New("403 Forbidden")}
	b := newTestBackend(t, fs, Options{})

	b.IncCounter(metrics.RecordsTotal, 1, metrics.Labels{"kind": "posts"})
	err := b.Flush()
	require.ErrorIs(t, err, fs.err)

	fs.mu.Lock()
	fs.err = nil
	fs.mu.Unlock()
	require.NoError(t, b.Flush())
	assert.Equal(t, 1, fs.count(), "failed window is dropped")
}

func TestLoopAndClose(t *testing.T) {
	t.Parallel()

	fs := &fakeSubmitter{}
	b, err := NewBackend(context.Background(), Options{
		FlushEvery: 5 * time.Millisecond,
		submitter:  fs,
	})
	require.NoError(t, err)

	b.IncCounter(metrics.RecordsTotal, 1, metrics.Labels{"kind": "threads"})
	require.Eventually(t, func() bool { return fs.count() >= 1 }, time.Second, 2*time.Millisecond)

	b.IncCounter(metrics.RecordsTotal, 1, metrics.Labels{"kind": "threads"})
	require.NoError(t, b.Close())
	assert.GreaterOrEqual(t, fs.count(), 2)

	require.NoError(t, b.Close(), "second Close only flushes")
}

func TestBackend_ConcurrentAccess(t *testing.T) {
	t.Parallel()

	fs := &fakeSubmitter{}
	b := newTestBackend(t, fs, Options{})

	const workers, iters = 8, 500
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < iters; j++ {
				metricsStep(b)
			}
		}()
	}
	wg.Wait()

	require.NoError(t, b.Flush())
	s := find(t, fs.last(t), "fbe2json.step.total", "step:extract")
	assert.Equal(t, float64(workers*iters), *s.Points[0].Value)
	n := find(t, fs.last(t), "fbe2json.step.duration_seconds.samples", "step:extract")
	assert.Equal(t, float64(workers*iters), *n.Points[0].Value)
}

func metricsStep(b *Backend) {
	l := metrics.Labels{"step": "extract", "status": metrics.StatusOK}
	b.IncCounter(metrics.StepTotal, 1, l)
	b.ObserveHistogram(metrics.StepDurationSeconds, 0.01, l)
}

func TestPercentiles(t *testing.T) {
	t.Parallel()

	in := []float64{5, 1, 3, 2, 4}
	series := percentiles("x.seconds", in, []string{"env:test"}, 7)

	require.Len(t, series, 6)
	assert.Equal(t, []float64{5, 1, 3, 2, 4}, in, "input not reordered")

	got := map[string]float64{}
	for _, s := range series {
		got[s.Metric] = *s.Points[0].Value
	}
	assert.Equal(t, map[string]float64{
		"x.seconds.p50":     3,
		"x.seconds.p90":     5,
		"x.seconds.p95":     5,
		"x.seconds.p99":     5,
		"x.seconds.max":     5,
		"x.seconds.samples": 5,
	}, got)

	assert.Nil(t, percentiles("x", nil, nil, 0))
}

func TestPercentileNearestRank(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		s    []float64
		p    float64
		want float64
	}{
		{name: "empty", s: nil, p: 0.5, want: 0},
		{name: "single", s: []float64{7}, p: 0.95, want: 7},
		{name: "p below 0", s: []float64{1, 2, 3}, p: -1, want: 1},
		{name: "p above 1", s: []float64{1, 2, 3}, p: 2, want: 3},
		{name: "median", s: []float64{1, 2, 3, 4, 5}, p: 0.5, want: 3},
		{name: "p90 small n", s: []float64{1, 2, 3, 4, 5}, p: 0.9, want: 5},
	}
	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tc.want, percentileNearestRank(tc.s, tc.p))
		})
	}
}

func TestWithTags_DoesNotAliasBase(t *testing.T) {
	t.Parallel()

	base := make([]string, 2, 8)
	base[0], base[1] = "env:test", "job:fbe2json"

	a := withTags(base, "kind:posts")
	b := withTags(base, "kind:threads")
	assert.Equal(t, "kind:posts", a[2])
	assert.Equal(t, "kind:threads", b[2])
}

func TestParseTagsCSV(t *testing.T) {
	t.Parallel()

	assert.Nil(t, ParseTagsCSV(""))
	assert.Nil(t, ParseTagsCSV(" , "))
	assert.Equal(t, []string{"env:prod", "team:data"}, ParseTagsCSV(" env:prod , ,team:data "))
}
