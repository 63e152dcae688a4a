package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// RedirectsTotal counts public redirect resolutions by outcome
	// (redirect, not_found).
	RedirectsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "scantrail_redirects_total",
		Help: "Public redirect resolutions by outcome.",
	}, []string{"outcome"})

	// ScanEventsStored counts scan events persisted to the ledger.
	ScanEventsStored = promauto.NewCounter(prometheus.CounterOpts{
		Name: "scantrail_scan_events_stored_total",
		Help: "Scan events persisted to the ledger.",
	})
)
