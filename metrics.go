package blockv

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	bytesRead = promauto.NewCounter(prometheus.CounterOpts{
		Name: "blockv_client_bytes_read_total",
		Help: "Total bytes read by network device clients.",
	})

	bytesWritten = promauto.NewCounter(prometheus.CounterOpts{
		Name: "blockv_client_bytes_written_total",
		Help: "Total bytes written by network device clients.",
	})

	reconnects = promauto.NewCounter(prometheus.CounterOpts{
		Name: "blockv_client_reconnects_total",
		Help: "Total reconnect attempts triggered by framing anomalies.",
	})

	framingAnomalies = promauto.NewCounter(prometheus.CounterOpts{
		Name: "blockv_client_framing_anomalies_total",
		Help: "Total observed framing anomalies (short read/write, size mismatch).",
	})
)
