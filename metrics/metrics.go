package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var ProcessesOpenedCounter = promauto.NewCounter(
	prometheus.CounterOpts{
		Name: "facad_processes_opened_total",
		Help: "Number of career processes opened",
	},
)

var ProcessesSubmittedCounter = promauto.NewCounter(
	prometheus.CounterOpts{
		Name: "facad_processes_submitted_total",
		Help: "Number of career processes submitted for review",
	},
)

var ProcessesFinalizedCounter = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "facad_processes_finalized_total",
	Help: "Number of committee decisions by outcome",
}, []string{"decision"})

var ScoreWriteCounter = promauto.NewCounter(prometheus.CounterOpts{
	Name: "facad_score_writes_total",
	Help: "Number of ledger writes",
})
