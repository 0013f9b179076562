// Package metrics registers the engine's Prometheus collectors. The record
// server exposes them on /metrics; embedded schedulers simply count.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// SyncDelivered counts stitch upserts acknowledged by the backend.
	SyncDelivered = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "triplehelix",
		Subsystem: "sync",
		Name:      "delivered_total",
		Help:      "Stitch upserts successfully delivered to the backend.",
	})

	// SyncFailed counts delivery attempts that failed and stayed pending.
	SyncFailed = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "triplehelix",
		Subsystem: "sync",
		Name:      "failed_total",
		Help:      "Stitch upsert deliveries that failed and will be retried.",
	})

	// SyncPending tracks the size of the coalesced pending set.
	SyncPending = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "triplehelix",
		Subsystem: "sync",
		Name:      "pending",
		Help:      "Coalesced mutations awaiting delivery.",
	})

	// Completions counts processed completion events by outcome.
	Completions = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "triplehelix",
		Subsystem: "engine",
		Name:      "completions_total",
		Help:      "Completion events processed, labelled by outcome.",
	}, []string{"outcome"})

	// Repairs counts integrity verifier interventions.
	Repairs = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "triplehelix",
		Subsystem: "engine",
		Name:      "tube_repairs_total",
		Help:      "Tube states repaired by the integrity verifier.",
	})
)
