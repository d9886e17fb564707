package proxy

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// requestsTotal tracks handled client requests by endpoint and response status
	requestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "cveproxy_requests_total",
		Help: "Total client requests by endpoint and status",
	}, []string{"endpoint", "status"})

	// coalescedTotal tracks cache misses served by another in-flight upstream call
	coalescedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "cveproxy_coalesced_requests_total",
		Help: "Total cache misses that shared an in-flight upstream request",
	})
)
