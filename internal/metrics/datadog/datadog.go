// Package datadog implements a Datadog backend for the internal/metrics
// package.
//
// The backend buffers counters in memory, submits them on a periodic ticker,
// and submits one final time on Close. For a short batch job that means a
// single payload at shutdown; for a long run, a usable time series.
//
// Concurrency model:
//   - IncCounter may be called at any time; it only touches the buffer under
//     a mutex.
//   - Flush snapshots and resets the buffer under the mutex, then submits
//     out-of-lock.
//   - Close stops the flush loop and flushes once more.
package datadog

import (
	"context"
	"net/http"
	"os"
	"sort"
	"strings"
	"sync"
	"time"

	dd "github.com/DataDog/datadog-api-client-go/v2/api/datadog"
	"github.com/DataDog/datadog-api-client-go/v2/api/datadogV2"

	"dropsync/internal/metrics"
)

// Options controls Datadog backend configuration.
type Options struct {
	// JobName becomes tag "job:<name>" on every metric. Defaults to "dropsync".
	JobName string

	// Tags are extra Datadog tags (e.g. []string{"env:prod"}).
	Tags []string

	// FlushEvery controls how often buffered metrics are submitted.
	// If <= 0, defaults to 60 seconds.
	FlushEvery time.Duration

	// Unexported test seams. Production code never sets these; unit tests use
	// them to avoid real submission and nondeterministic clocks.
	now       func() time.Time
	newTicker func(d time.Duration) *time.Ticker
	submitter metricsSubmitter
}

// metricsSubmitter is the minimal slice of the Datadog SDK needed to submit
// metrics. The concrete *datadogV2.MetricsApi satisfies it; tests use a fake.
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

	now       func() time.Time
	newTicker func(d time.Duration) *time.Ticker

	mu       sync.Mutex
	counters map[string]*counterSample
}

// counterSample is one buffered counter series keyed by metric name + tags.
type counterSample struct {
	name  string
	tags  []string
	value float64
}

// NewBackend constructs a Datadog backend using the official client and
// starts its periodic flush goroutine.
//
// Edge cases:
//   - If opts.FlushEvery <= 0, defaults to 60s.
//   - Environment tag selection uses ENV then DD_ENV, otherwise env:unknown.
func NewBackend(parent context.Context, opts Options) (*Backend, error) {
	job := opts.JobName
	if job == "" {
		job = "dropsync"
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
		client := dd.NewAPIClient(dd.NewConfiguration())
		submitter = datadogV2.NewMetricsApi(client)
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
		counters:   make(map[string]*counterSample),
	}

	go b.loop()
	return b, nil
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

// IncCounter implements metrics.Backend. Labels become Datadog tags.
func (b *Backend) IncCounter(name string, delta float64, labels metrics.Labels) {
	if name == "" || delta <= 0 {
		return
	}

	tags := labelTags(labels)

	b.mu.Lock()
	defer b.mu.Unlock()

	key := name + "|" + strings.Join(tags, ",")
	s := b.counters[key]
	if s == nil {
		s = &counterSample{name: name, tags: tags}
		b.counters[key] = s
	}
	s.value += delta
}

// labelTags converts labels to sorted "k:v" tags for a stable buffer key.
func labelTags(labels metrics.Labels) []string {
	if len(labels) == 0 {
		return nil
	}
	tags := make([]string, 0, len(labels))
	for k, v := range labels {
		if k == "" {
			continue
		}
		tags = append(tags, k+":"+v)
	}
	sort.Strings(tags)
	return tags
}

// snapshotAndReset grabs the buffered counters and resets the buffer.
func (b *Backend) snapshotAndReset() map[string]*counterSample {
	b.mu.Lock()
	defer b.mu.Unlock()

	snap := b.counters
	b.counters = make(map[string]*counterSample)
	return snap
}

// Flush submits buffered metrics to Datadog and resets the buffer.
//
// The buffer is reset even if submission fails: the job must not block or
// grow unbounded because the metrics intake is down.
func (b *Backend) Flush() error {
	snap := b.snapshotAndReset()
	if len(snap) == 0 {
		return nil
	}

	nowUnix := b.now().Unix()
	series := b.buildSeries(snap, nowUnix)
	payload := datadogV2.MetricPayload{Series: series}

	_, _, err := b.api.SubmitMetrics(b.ctx, payload, *datadogV2.NewSubmitMetricsOptionalParameters())
	return err
}

// buildSeries constructs Datadog series for a snapshot at a fixed timestamp.
// It is pure, which keeps the naming/tagging contract unit-testable.
func (b *Backend) buildSeries(snap map[string]*counterSample, nowUnix int64) []datadogV2.MetricSeries {
	keys := make([]string, 0, len(snap))
	for k := range snap {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	series := make([]datadogV2.MetricSeries, 0, len(snap))
	for _, k := range keys {
		s := snap[k]
		if s.value == 0 {
			continue
		}
		tags := make([]string, 0, len(b.baseTags)+len(s.tags))
		tags = append(tags, b.baseTags...)
		tags = append(tags, s.tags...)

		series = append(series, datadogV2.MetricSeries{
			Metric: s.name,
			Type:   datadogV2.METRICINTAKETYPE_COUNT.Ptr(),
			Points: []datadogV2.MetricPoint{
				{Timestamp: dd.PtrInt64(nowUnix), Value: dd.PtrFloat64(s.value)},
			},
			Tags: tags,
		})
	}
	return series
}

// Close stops the background flush loop and performs one final Flush.
// Close once; a second call panics (process-lifetime semantics).
func (b *Backend) Close() error {
	close(b.stopCh)
	<-b.doneCh
	return b.Flush()
}

// ParseTagsCSV parses "k:v,k2:v2" into a tag slice, dropping empties.
func ParseTagsCSV(csv string) []string {
	if strings.TrimSpace(csv) == "" {
		return nil
	}
	parts := strings.Split(csv, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

var _ metrics.Backend = (*Backend)(nil)
