package datadog

import (
	"reflect"
	"testing"

	"bqstream/internal/metrics"
)

type countCall struct {
	name  string
	value int64
	tags  []string
}

type histCall struct {
	name  string
	value float64
	tags  []string
}

type fakeClient struct {
	counts  []countCall
	hists   []histCall
	flushes int
	closed  bool
}

func (f *fakeClient) Count(name string, value int64, tags []string, rate float64) error {
	f.counts = append(f.counts, countCall{name, value, tags})
	return nil
}

func (f *fakeClient) Histogram(name string, value float64, tags []string, rate float64) error {
	f.hists = append(f.hists, histCall{name, value, tags})
	return nil
}

func (f *fakeClient) Flush() error { f.flushes++; return nil }
func (f *fakeClient) Close() error { f.closed = true; return nil }

func TestNewBackend(t *testing.T) {
	t.Parallel()

	if _, err := NewBackend(Config{}); err == nil {
		t.Fatalf("NewBackend with empty Addr: want error")
	}

	// statsd.New does not dial for UDP, so a local address always works.
	b, err := NewBackend(Config{Addr: "127.0.0.1:8125", Namespace: "bqstream.", GlobalTags: []string{"env:test"}})
	if err != nil {
		t.Fatalf("NewBackend error = %v", err)
	}
	if err := b.Close(); err != nil {
		t.Fatalf("Close error = %v", err)
	}
}

func TestBackend_ForwardsToClient(t *testing.T) {
	t.Parallel()

	fc := &fakeClient{}
	b := &Backend{client: fc}

	b.IncCounter(metrics.RowsTotal, 2, metrics.Labels{"kind": "sent", "job": "netflix-titles"})
	b.ObserveHistogram(metrics.InsertDuration, 0.3, metrics.Labels{"status": "success"})
	if err := b.Flush(); err != nil {
		t.Fatalf("Flush error = %v", err)
	}

	want := []countCall{{metrics.RowsTotal, 2, []string{"job:netflix-titles", "kind:sent"}}}
	if !reflect.DeepEqual(fc.counts, want) {
		t.Fatalf("counts = %#v, want %#v", fc.counts, want)
	}
	if len(fc.hists) != 1 || fc.hists[0].value != 0.3 || fc.hists[0].tags[0] != "status:success" {
		t.Fatalf("hists = %#v", fc.hists)
	}
	if fc.flushes != 1 || fc.closed {
		t.Fatalf("Flush must not close the client: flushes=%d closed=%v", fc.flushes, fc.closed)
	}
}

func TestBackend_NilClient(t *testing.T) {
	t.Parallel()

	b := &Backend{}
	b.IncCounter("x", 1, nil)
	b.ObserveHistogram("x", 1, nil)
	if err := b.Flush(); err != nil {
		t.Fatalf("Flush error = %v", err)
	}
	if err := b.Close(); err != nil {
		t.Fatalf("Close error = %v", err)
	}
}

func TestLabelsToTags(t *testing.T) {
	t.Parallel()

	if got := labelsToTags(nil); got != nil {
		t.Fatalf("labelsToTags(nil) = %v, want nil", got)
	}
	got := labelsToTags(metrics.Labels{"step": "stream", "job": "j"})
	if want := []string{"job:j", "step:stream"}; !reflect.DeepEqual(got, want) {
		t.Fatalf("labelsToTags = %v, want %v", got, want)
	}
}
