// Package metrics holds the Prometheus collectors of the alert service.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics groups every collector. Construct it once per process with New.
type Metrics struct {
	CyclesTotal           *prometheus.CounterVec
	CyclesFailed          *prometheus.CounterVec
	SubscribersReconciled prometheus.Counter
	ExamsIngested         prometheus.Counter
	MatchesFound          prometheus.Counter
	MailsSent             *prometheus.CounterVec
	MailsSuppressed       *prometheus.CounterVec
	DistanceLookups       prometheus.Counter
	DistanceCacheHits     prometheus.Counter
}

// New creates all collectors and registers them with reg. A nil registry
// yields working but unregistered collectors, which is what tests want.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		CyclesTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "exam_alert_cycles_total",
			Help: "Total number of cycles started",
		}, []string{"cycle"}),
		CyclesFailed: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "exam_alert_cycles_failed_total",
			Help: "Total number of cycles that ended with an error",
		}, []string{"cycle"}),
		SubscribersReconciled: factory.NewCounter(prometheus.CounterOpts{
			Name: "exam_alert_subscribers_reconciled_total",
			Help: "Total number of subscriber upserts from the spreadsheet",
		}),
		ExamsIngested: factory.NewCounter(prometheus.CounterOpts{
			Name: "exam_alert_exams_ingested_total",
			Help: "Total number of exam upserts from the exam site",
		}),
		MatchesFound: factory.NewCounter(prometheus.CounterOpts{
			Name: "exam_alert_matches_found_total",
			Help: "Total number of exam matches computed for subscribers",
		}),
		MailsSent: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "exam_alert_mails_sent_total",
			Help: "Total number of mails handed to the transport",
		}, []string{"category"}),
		MailsSuppressed: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "exam_alert_mails_suppressed_total",
			Help: "Total number of mails skipped because the body was already sent",
		}, []string{"category"}),
		DistanceLookups: factory.NewCounter(prometheus.CounterOpts{
			Name: "exam_alert_distance_lookups_total",
			Help: "Total number of routing provider calls",
		}),
		DistanceCacheHits: factory.NewCounter(prometheus.CounterOpts{
			Name: "exam_alert_distance_cache_hits_total",
			Help: "Total number of distances served from cache or store",
		}),
	}
}
