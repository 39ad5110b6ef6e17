// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package metrics holds the Prometheus counters for ingest, decisions and
// exports. Each Metrics owns its registry so tests can build isolated sets.
package metrics

import (
	"bytes"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/common/expfmt"
)

// Metrics is the set of curation counters.
type Metrics struct {
	Registry *prometheus.Registry

	// IngestedRecords counts ingest outcomes by result: inserted, skipped, failed.
	IngestedRecords *prometheus.CounterVec

	// Decisions counts recorded decisions by decision type.
	Decisions *prometheus.CounterVec

	// DeniedDecisions counts decisions refused by authorization, by reason.
	DeniedDecisions *prometheus.CounterVec

	// Resets counts records returned to the review queue.
	Resets prometheus.Counter

	// ExportedRecords counts accepted records written by exports, by
	// format and whether they were wrapped in provenance axioms.
	ExportedRecords *prometheus.CounterVec

	// EvidenceScore observes the score of every ingested record.
	EvidenceScore prometheus.Histogram
}

// New registers a fresh set of counters on a private registry.
func New() *Metrics {
	m := &Metrics{
		Registry: prometheus.NewRegistry(),
		IngestedRecords: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "sieve", Subsystem: "ingest", Name: "records_total",
			Help: "Records processed by ingest, by result.",
		}, []string{"result"}),
		Decisions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "sieve", Subsystem: "curation", Name: "decisions_total",
			Help: "Decisions appended to the ledger, by decision.",
		}, []string{"decision"}),
		DeniedDecisions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "sieve", Subsystem: "curation", Name: "denied_total",
			Help: "Curation actions refused by authorization, by reason.",
		}, []string{"reason"}),
		Resets: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "sieve", Subsystem: "curation", Name: "resets_total",
			Help: "Records returned to the review queue.",
		}),
		ExportedRecords: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "sieve", Subsystem: "export", Name: "records_total",
			Help: "Accepted records written by exports, by format and provenance.",
		}, []string{"format", "provenance"}),
		EvidenceScore: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "sieve", Subsystem: "ingest", Name: "evidence_score",
			Help:    "Net evidence ratio of ingested records.",
			Buckets: prometheus.LinearBuckets(-1, 0.25, 9),
		}),
	}
	m.Registry.MustRegister(m.IngestedRecords, m.Decisions, m.DeniedDecisions,
		m.Resets, m.ExportedRecords, m.EvidenceScore)
	return m
}

// Text renders the registry in the Prometheus text exposition format.
func (m *Metrics) Text() (string, error) {
	families, err := m.Registry.Gather()
	if err != nil {
		return "", fmt.Errorf("gathering metrics: %w", err)
	}
	var buf bytes.Buffer
	enc := expfmt.NewEncoder(&buf, expfmt.NewFormat(expfmt.TypeTextPlain))
	for _, mf := range families {
		if err := enc.Encode(mf); err != nil {
			return "", fmt.Errorf("encoding metrics: %w", err)
		}
	}
	return buf.String(), nil
}
