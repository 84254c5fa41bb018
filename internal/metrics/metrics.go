package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Caption substitution metrics
var (
	CaptionsReplacedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "captions_replaced_total",
			Help: "Total number of caption tracks copied or replaced in a metadata response.",
		},
		[]string{"language"},
	)

	RewritesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "caption_rewrites_total",
			Help: "Total number of caption-asset rewrites by outcome.",
		},
		[]string{"status"},
	)

	OffsetSourceTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "timing_offset_source_total",
			Help: "Which signal produced the applied timing offset.",
		},
		[]string{"source"},
	)

	RegistryEvictionsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "pending_rewrite_evictions_total",
			Help: "Total number of pending rewrites evicted from the registry at capacity.",
		},
	)
)

// Label values for RewritesTotal.
const (
	StatusAdjusted    = "adjusted"
	StatusPassthrough = "passthrough"
	StatusError       = "error"
)

// Label values for OffsetSourceTotal.
const (
	SourceDuration     = "duration"
	SourceText         = "text"
	SourceTextRejected = "text_rejected"
)

func init() {
	prometheus.MustRegister(
		CaptionsReplacedTotal,
		RewritesTotal,
		OffsetSourceTotal,
		RegistryEvictionsTotal,
	)
}
