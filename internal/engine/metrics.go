package engine

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	opsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "engine_operations_total",
		Help: "Operações do engine por tipo e resultado",
	}, []string{"op", "outcome"})

	contentionRetries = promauto.NewCounter(prometheus.CounterOpts{
		Name: "engine_contention_retries_total",
		Help: "Re-tentativas de unidade atômica por conflito",
	})

	payoutUnits = promauto.NewCounter(prometheus.CounterOpts{
		Name: "engine_payout_units_total",
		Help: "Unidades pagas em liquidações",
	})
)

func countOp(op string, err error) {
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	opsTotal.WithLabelValues(op, outcome).Inc()
}
