// Package metrics provides Prometheus metrics for the Juniper service.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// ScansTotal tracks duplicate scans by outcome
	ScansTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "juniper",
			Subsystem: "scan",
			Name:      "runs_total",
			Help:      "Total number of duplicate scans by outcome",
		},
		[]string{"status"},
	)

	// ScanDuration tracks duplicate scan duration in seconds
	ScanDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "juniper",
			Subsystem: "scan",
			Name:      "duration_seconds",
			Help:      "Duration of duplicate scans in seconds",
			Buckets:   []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60, 120, 300},
		},
	)

	// CandidatesUpserted tracks candidate rows created or rescored
	CandidatesUpserted = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: "juniper",
			Subsystem: "candidates",
			Name:      "upserted_total",
			Help:      "Total number of candidate rows created or rescored",
		},
	)

	// PendingCandidates tracks the current pending candidate backlog
	PendingCandidates = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "juniper",
			Subsystem: "candidates",
			Name:      "pending",
			Help:      "Number of candidates currently awaiting a decision",
		},
	)

	// MergesTotal tracks merge executions by outcome
	MergesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "juniper",
			Subsystem: "merge",
			Name:      "executions_total",
			Help:      "Total number of merge executions by outcome",
		},
		[]string{"status"},
	)

	// MergeConflicts tracks optimistic retry conflicts during merges
	MergeConflicts = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: "juniper",
			Subsystem: "merge",
			Name:      "conflicts_total",
			Help:      "Total number of concurrent-merge conflicts that triggered a retry",
		},
	)

	// RecordsIngested tracks ingested location records by result
	RecordsIngested = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "juniper",
			Subsystem: "ingest",
			Name:      "records_total",
			Help:      "Total number of location records ingested by result",
		},
		[]string{"source", "result"},
	)

	// KafkaMessagesPublished tracks Kafka messages published
	KafkaMessagesPublished = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "juniper",
			Subsystem: "kafka",
			Name:      "messages_published_total",
			Help:      "Total number of messages published to Kafka",
		},
		[]string{"topic", "status"},
	)
)

// RecordScan records one duplicate scan
func RecordScan(status string, durationSeconds float64) {
	ScansTotal.WithLabelValues(status).Inc()
	ScanDuration.Observe(durationSeconds)
}

// RecordCandidatesUpserted records candidate rows affected by a populate run
func RecordCandidatesUpserted(count int64) {
	CandidatesUpserted.Add(float64(count))
}

// RecordMerge records a merge execution outcome
func RecordMerge(status string) {
	MergesTotal.WithLabelValues(status).Inc()
}

// RecordMergeConflict records a concurrent-merge retry
func RecordMergeConflict() {
	MergeConflicts.Inc()
}

// RecordIngest records one ingested location record
func RecordIngest(source, result string) {
	RecordsIngested.WithLabelValues(source, result).Inc()
}

// RecordKafkaPublish records a Kafka publish operation
func RecordKafkaPublish(topic, status string) {
	KafkaMessagesPublished.WithLabelValues(topic, status).Inc()
}
