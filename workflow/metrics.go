package workflow

import (
	"github.com/WRENCH-CLOUD/machnix-sub003/models"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	transitionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "machnix_task_transitions_total",
		Help: "Task status transitions by edge and outcome.",
	}, []string{"from", "to", "outcome"})

	insufficientStockTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "machnix_insufficient_stock_rejections_total",
		Help: "Approvals rejected because available stock could not cover the reservation.",
	})

	syncDispatchTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "machnix_estimate_sync_dispatch_total",
		Help: "Estimate sync records processed by outcome.",
	}, []string{"outcome"})
)

func recordTransition(from models.TaskStatus, to models.TaskStatus, outcome string) {
	transitionsTotal.WithLabelValues(string(from), string(to), outcome).Inc()
}

func recordInsufficientStock() {
	insufficientStockTotal.Inc()
}

func recordSyncDispatch(outcome string) {
	syncDispatchTotal.WithLabelValues(outcome).Inc()
}
