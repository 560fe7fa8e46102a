package scrape

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	pagesFetched = promauto.NewCounter(prometheus.CounterOpts{
		Name: "budzetmapa_portal_pages_fetched_total",
		Help: "The total number of portal pages fetched over the network.",
	})
	fetchErrors = promauto.NewCounter(prometheus.CounterOpts{
		Name: "budzetmapa_portal_fetch_errors_total",
		Help: "The total number of portal fetches that failed.",
	})
	cacheHits = promauto.NewCounter(prometheus.CounterOpts{
		Name: "budzetmapa_scrape_cache_hits_total",
		Help: "The total number of detail pages served from the disk cache.",
	})
	projectsScraped = promauto.NewCounter(prometheus.CounterOpts{
		Name: "budzetmapa_projects_scraped_total",
		Help: "The total number of project records successfully extracted.",
	})
)
