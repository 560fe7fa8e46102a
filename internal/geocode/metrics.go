package geocode

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	queries = promauto.NewCounter(prometheus.CounterOpts{
		Name: "budzetmapa_geocode_queries_total",
		Help: "The total number of geocoding queries sent to the provider.",
	})
	queryErrors = promauto.NewCounter(prometheus.CounterOpts{
		Name: "budzetmapa_geocode_query_errors_total",
		Help: "The total number of geocoding queries that failed in transport.",
	})
	fallbacks = promauto.NewCounter(prometheus.CounterOpts{
		Name: "budzetmapa_geocode_fallbacks_total",
		Help: "The total number of times the fallback chain was entered.",
	})
	cacheHits = promauto.NewCounter(prometheus.CounterOpts{
		Name: "budzetmapa_geocode_cache_hits_total",
		Help: "The total number of address lookups served from the disk cache.",
	})
)
