package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

func init() {
	register(dbErrorsTotal)
}

var dbErrorsTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "db_errors_total",
		Help: "Record store failures by operation (excludes not-found).",
	},
	[]string{"op"},
)

func IncDBError(op string) {
	dbErrorsTotal.WithLabelValues(op).Inc()
}
