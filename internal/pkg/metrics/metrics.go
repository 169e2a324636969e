package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// CarrierRequests 按 endpoint 和结果统计承运商调用
	CarrierRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "carrier_requests_total",
		Help: "Carrier API calls by endpoint and outcome.",
	}, []string{"endpoint", "outcome"})

	CarrierLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "carrier_request_duration_seconds",
		Help:    "Carrier API call latency.",
		Buckets: prometheus.DefBuckets,
	}, []string{"endpoint"})

	// Shipments 统计 CreateShipment 的最终结果 (created / failed / rejected)
	Shipments = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "shipments_total",
		Help: "Shipment creation attempts by outcome.",
	}, []string{"outcome"})

	Webhooks = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "webhooks_total",
		Help: "Inbound carrier webhooks by outcome.",
	}, []string{"outcome"})
)
