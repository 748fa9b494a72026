package api

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	statementsParsed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "statements_parsed_total",
			Help: "Statements processed by /api/convert, by status and error kind.",
		},
		[]string{"status", "kind"},
	)

	convertDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "convert_duration_seconds",
			Help:    "Time spent extracting and parsing a statement.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"status"},
	)

	transactionsParsed = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "transactions_parsed_total",
			Help: "Transactions returned by successful conversions.",
		},
	)
)
