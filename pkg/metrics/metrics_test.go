package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/nordlex/lagrum/pkg/types"
)

func TestObserveDiagnostics(t *testing.T) {
	m := New(prometheus.NewRegistry())

	diag := types.ParseDiagnostics{IgnoredChapterMarkers: 2, DiscardedPreambleLines: 3}
	diag.CountSuppression(types.SuppressDuplicateRef)
	diag.CountSuppression(types.SuppressDuplicateRef)
	diag.CountSuppression(types.SuppressInlineReference)

	m.ObserveDiagnostics(14, diag)
	m.ObserveDiagnostics(3, types.ParseDiagnostics{})

	if got := testutil.ToFloat64(m.SegmentationRuns); got != 2 {
		t.Errorf("segmentation runs = %v, want 2", got)
	}
	if got := testutil.ToFloat64(m.ProvisionsSegmented); got != 17 {
		t.Errorf("provisions segmented = %v, want 17", got)
	}
	if got := testutil.ToFloat64(m.ChapterMarkersIgnored); got != 2 {
		t.Errorf("chapter markers ignored = %v, want 2", got)
	}
	if got := testutil.ToFloat64(m.PreambleLinesDropped); got != 3 {
		t.Errorf("preamble lines dropped = %v, want 3", got)
	}
	if got := testutil.ToFloat64(m.SectionsSuppressed.WithLabelValues("duplicate-ref")); got != 2 {
		t.Errorf("duplicate-ref suppressions = %v, want 2", got)
	}
	if got := testutil.ToFloat64(m.SectionsSuppressed.WithLabelValues("inline-reference")); got != 1 {
		t.Errorf("inline-reference suppressions = %v, want 1", got)
	}
}

func TestObserveIngest(t *testing.T) {
	m := New(prometheus.NewRegistry())

	m.ObserveIngest(5, 2, 1)
	m.ObserveIngest(0, 0, 0)

	if got := testutil.ToFloat64(m.IngestRuns); got != 2 {
		t.Errorf("ingest runs = %v, want 2", got)
	}
	if got := testutil.ToFloat64(m.WindowsOpened); got != 5 {
		t.Errorf("windows opened = %v, want 5", got)
	}
	if got := testutil.ToFloat64(m.WindowsReworded); got != 2 {
		t.Errorf("windows reworded = %v, want 2", got)
	}
	if got := testutil.ToFloat64(m.WindowsClosed); got != 1 {
		t.Errorf("windows closed = %v, want 1", got)
	}
}

func TestRegistersIntoGivenRegistry(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New(reg)
	m.SearchQueries.WithLabelValues("current").Inc()
	m.SearchFallback.Inc()

	families, err := reg.Gather()
	if err != nil {
		t.Fatalf("Gather: %v", err)
	}
	names := make(map[string]bool, len(families))
	for _, mf := range families {
		names[mf.GetName()] = true
	}
	for _, want := range []string{"lagrum_search_queries_total", "lagrum_search_fallback_total"} {
		if !names[want] {
			t.Errorf("registry missing %s", want)
		}
	}
}
