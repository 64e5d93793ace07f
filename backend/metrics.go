package backend

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	requestsServed = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "blockv_server_requests_total",
		Help: "Total requests served by the backing-device server, by request type.",
	}, []string{"type"})

	bytesServed = promauto.NewCounter(prometheus.CounterOpts{
		Name: "blockv_server_bytes_served_total",
		Help: "Total bytes transferred (read+write payloads) by the backing-device server.",
	})
)
