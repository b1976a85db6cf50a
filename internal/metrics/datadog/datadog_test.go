package datadog

import (
	"context"
	"net/http"
	"reflect"
	"sync"
	"testing"
	"time"

	"github.com/DataDog/datadog-api-client-go/v2/api/datadogV2"

	"dropsync/internal/metrics"
)

type fakeSubmitter struct {
	mu       sync.Mutex
	payloads []datadogV2.MetricPayload
	err      error
}

func (f *fakeSubmitter) SubmitMetrics(ctx context.Context, body datadogV2.MetricPayload, params ...datadogV2.SubmitMetricsOptionalParameters) (datadogV2.IntakePayloadAccepted, *http.Response, error) {
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

func newTestBackend(t *testing.T, sub *fakeSubmitter) *Backend {
	t.Helper()

	b, err := NewBackend(context.Background(), Options{
		JobName:    "testjob",
		FlushEvery: time.Hour, // effectively disable the periodic flush
		now:        func() time.Time { return time.Unix(1700000000, 0) },
		submitter:  sub,
	})
	if err != nil {
		t.Fatalf("NewBackend: %v", err)
	}
	return b
}

func TestBackend_FlushNoDataSubmitsNothing(t *testing.T) {
	t.Parallel()

	sub := &fakeSubmitter{}
	b := newTestBackend(t, sub)
	defer func() { _ = b.Close() }()

	if err := b.Flush(); err != nil {
		t.Fatalf("Flush: %v", err)
	}
	if sub.count() != 0 {
		t.Fatalf("payloads=%d, want 0", sub.count())
	}
}

func TestBackend_CountersAccumulateAndReset(t *testing.T) {
	t.Parallel()

	sub := &fakeSubmitter{}
	b := newTestBackend(t, sub)
	defer func() { _ = b.Close() }()

	b.IncCounter("etl.rows.inserted", 2, metrics.Labels{"table": "sales"})
	b.IncCounter("etl.rows.inserted", 3, metrics.Labels{"table": "sales"})
	b.IncCounter("etl.rows.inserted", 1, metrics.Labels{"table": "products"})

	if err := b.Flush(); err != nil {
		t.Fatalf("Flush: %v", err)
	}
	if sub.count() != 1 {
		t.Fatalf("payloads=%d, want 1", sub.count())
	}

	series := sub.payloads[0].Series
	if len(series) != 2 {
		t.Fatalf("series=%d, want 2", len(series))
	}

	// Series are ordered by buffer key, so products sorts before sales.
	if series[0].Metric != "etl.rows.inserted" || *series[0].Points[0].Value != 1 {
		t.Errorf("products series wrong: %+v", series[0])
	}
	if *series[1].Points[0].Value != 5 {
		t.Errorf("sales series value=%v, want 5", *series[1].Points[0].Value)
	}

	// Buffer must reset: a second flush has nothing to submit.
	if err := b.Flush(); err != nil {
		t.Fatalf("second Flush: %v", err)
	}
	if sub.count() != 1 {
		t.Fatalf("payloads=%d after empty flush, want still 1", sub.count())
	}
}

func TestBackend_TagsIncludeJobAndLabels(t *testing.T) {
	t.Parallel()

	sub := &fakeSubmitter{}
	b := newTestBackend(t, sub)

	b.IncCounter("etl.rows.inserted", 1, metrics.Labels{"table": "sales"})

	if err := b.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	series := sub.payloads[0].Series
	found := map[string]bool{}
	for _, tag := range series[0].Tags {
		found[tag] = true
	}
	if !found["job:testjob"] || !found["table:sales"] {
		t.Fatalf("tags=%v, want job:testjob and table:sales", series[0].Tags)
	}
}

func TestBackend_ZeroAndNegativeDeltasIgnored(t *testing.T) {
	t.Parallel()

	sub := &fakeSubmitter{}
	b := newTestBackend(t, sub)
	defer func() { _ = b.Close() }()

	b.IncCounter("etl.rows.inserted", 0, nil)
	b.IncCounter("etl.rows.inserted", -4, nil)

	if err := b.Flush(); err != nil {
		t.Fatalf("Flush: %v", err)
	}
	if sub.count() != 0 {
		t.Fatalf("payloads=%d, want 0", sub.count())
	}
}

func TestParseTagsCSV(t *testing.T) {
	t.Parallel()

	got := ParseTagsCSV(" env:prod, service:etl ,,")
	want := []string{"env:prod", "service:etl"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("ParseTagsCSV=%v, want %v", got, want)
	}
	if got := ParseTagsCSV("  "); got != nil {
		t.Fatalf("ParseTagsCSV(blank)=%v, want nil", got)
	}
}
