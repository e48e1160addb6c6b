package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	BetsPlaced = promauto.NewCounter(prometheus.CounterOpts{
		Name: "chaindice_bets_placed_total",
		Help: "Bets accepted by admission control.",
	})

	BetsSettled = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "chaindice_bets_settled_total",
		Help: "Bets reaching a terminal state, by outcome.",
	}, []string{"outcome"}) // won, lost, failed

	AdmissionDenied = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "chaindice_admission_denied_total",
		Help: "Placement attempts rejected before reservation, by reason.",
	}, []string{"reason"})

	TransferRetries = promauto.NewCounter(prometheus.CounterOpts{
		Name: "chaindice_transfer_retries_total",
		Help: "Settlement transfer cycles retried after a transient fault.",
	})

	ReservedLiquidity = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "chaindice_reserved_liquidity",
		Help: "House funds currently held for unsettled bets.",
	})
)
