// Package metrics exposes Prometheus instrumentation for segmentation,
// ingestion and search.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/nordlex/lagrum/pkg/types"
)

// Metrics holds the Prometheus collectors.
type Metrics struct {
	// Segmentation
	ProvisionsSegmented   prometheus.Counter
	ChapterMarkersIgnored prometheus.Counter
	SectionsSuppressed    *prometheus.CounterVec // by reason
	PreambleLinesDropped  prometheus.Counter
	SegmentationRuns      prometheus.Counter

	// Ingestion
	IngestRuns      prometheus.Counter
	WindowsOpened   prometheus.Counter
	WindowsReworded prometheus.Counter
	WindowsClosed   prometheus.Counter

	// Queries
	VersionLookups *prometheus.CounterVec // by status
	SearchQueries  *prometheus.CounterVec // by mode: current / as_of
	SearchFallback prometheus.Counter
}

// New creates and registers the collectors. A nil registerer uses the
// Prometheus default registry.
func New(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	factory := promauto.With(reg)

	return &Metrics{
		ProvisionsSegmented: factory.NewCounter(prometheus.CounterOpts{
			Name: "lagrum_provisions_segmented_total",
			Help: "Total number of provisions produced by segmentation",
		}),
		ChapterMarkersIgnored: factory.NewCounter(prometheus.CounterOpts{
			Name: "lagrum_chapter_markers_ignored_total",
			Help: "Total number of chapter markers rejected as spurious",
		}),
		SectionsSuppressed: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "lagrum_sections_suppressed_total",
			Help: "Total number of section candidates suppressed, by reason",
		}, []string{"reason"}),
		PreambleLinesDropped: factory.NewCounter(prometheus.CounterOpts{
			Name: "lagrum_preamble_lines_dropped_total",
			Help: "Total number of preamble lines discarded before the first accepted section",
		}),
		SegmentationRuns: factory.NewCounter(prometheus.CounterOpts{
			Name: "lagrum_segmentation_runs_total",
			Help: "Total number of segmentation runs",
		}),

		IngestRuns: factory.NewCounter(prometheus.CounterOpts{
			Name: "lagrum_ingest_runs_total",
			Help: "Total number of ingestion runs",
		}),
		WindowsOpened: factory.NewCounter(prometheus.CounterOpts{
			Name: "lagrum_windows_opened_total",
			Help: "Total number of version windows opened for new provisions",
		}),
		WindowsReworded: factory.NewCounter(prometheus.CounterOpts{
			Name: "lagrum_windows_reworded_total",
			Help: "Total number of version windows closed and reopened for rewordings",
		}),
		WindowsClosed: factory.NewCounter(prometheus.CounterOpts{
			Name: "lagrum_windows_closed_total",
			Help: "Total number of version windows closed for vanished provisions",
		}),

		VersionLookups: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "lagrum_version_lookups_total",
			Help: "Total number of point-in-time lookups, by resulting status",
		}, []string{"status"}),
		SearchQueries: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "lagrum_search_queries_total",
			Help: "Total number of search queries, by mode",
		}, []string{"mode"}),
		SearchFallback: factory.NewCounter(prometheus.CounterOpts{
			Name: "lagrum_search_fallback_total",
			Help: "Total number of searches answered by the relaxed fallback query",
		}),
	}
}

// ObserveDiagnostics records one segmentation run's parse diagnostics.
func (m *Metrics) ObserveDiagnostics(provisions int, diag types.ParseDiagnostics) {
	m.SegmentationRuns.Inc()
	m.ProvisionsSegmented.Add(float64(provisions))
	m.ChapterMarkersIgnored.Add(float64(diag.IgnoredChapterMarkers))
	m.PreambleLinesDropped.Add(float64(diag.DiscardedPreambleLines))
	for reason, count := range diag.SuppressionsByReason {
		m.SectionsSuppressed.WithLabelValues(string(reason)).Add(float64(count))
	}
}

// ObserveIngest records one ingestion run's outcome counts.
func (m *Metrics) ObserveIngest(opened, reworded, closed int) {
	m.IngestRuns.Inc()
	m.WindowsOpened.Add(float64(opened))
	m.WindowsReworded.Add(float64(reworded))
	m.WindowsClosed.Add(float64(closed))
}
