package api

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	httpRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "campuspay_http_requests_total",
		Help: "Total HTTP requests processed, labeled by status code",
	}, []string{"method", "path", "status"})

	transfersTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "campuspay_transfers_total",
		Help: "Completed wallet transfers, labeled by initiation type",
	}, []string{"type"})

	settlementsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "campuspay_order_settlements_total",
		Help: "Orders settled buyer to vendor",
	})

	topupDecisionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "campuspay_topup_decisions_total",
		Help: "Top-up requests decided, labeled by outcome",
	}, []string{"status"})
)
