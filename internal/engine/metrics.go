package engine

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Decode modes, used as the "mode" label.
const (
	modeCrossApply = "cross_apply"
	modeLazy       = "lazy"
	modeExpanded   = "expanded"
)

var (
	// queriesTotal counts executed vertex queries by dialect and outcome.
	queriesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "gview_queries_total",
		Help: "Vertex queries executed by dialect and outcome",
	}, []string{"dialect", "outcome"})

	// recordsTotal counts emitted raw records by decode mode.
	recordsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "gview_records_total",
		Help: "Raw records emitted by decode mode",
	}, []string{"mode"})

	// duplicatesSkipped counts result rows dropped by the per-query
	// dedup sets, by the key that matched.
	duplicatesSkipped = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "gview_duplicate_rows_skipped_total",
		Help: "Result rows skipped as duplicates by dedup key",
	}, []string{"key"})

	// cacheEntries counts vertices inserted into connection caches.
	cacheEntries = promauto.NewCounter(prometheus.CounterOpts{
		Name: "gview_vertex_cache_inserts_total",
		Help: "Vertices inserted into connection vertex caches",
	})

	// expansionsTotal counts adjacency lists expanded client-side by source.
	expansionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "gview_adjacency_expansions_total",
		Help: "Adjacency lists built client-side by source",
	}, []string{"source"})
)
