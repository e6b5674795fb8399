package api

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the upload endpoint collectors
type Metrics struct {
	uploads       *prometheus.CounterVec
	uploadedBytes prometheus.Counter
	downloads     *prometheus.CounterVec
}

// NewMetrics registers the endpoint collectors with reg.
// A nil reg uses prometheus.DefaultRegisterer.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	factory := promauto.With(reg)

	return &Metrics{
		uploads: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "dropzone_server",
			Name:      "uploads_total",
			Help:      "Upload requests by outcome",
		}, []string{"status"}),
		uploadedBytes: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "dropzone_server",
			Name:      "uploaded_bytes_total",
			Help:      "Bytes written to storage by accepted uploads",
		}),
		downloads: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "dropzone_server",
			Name:      "downloads_total",
			Help:      "File downloads by outcome",
		}, []string{"status"}),
	}
}

func (m *Metrics) upload(status string) {
	if m != nil {
		m.uploads.WithLabelValues(status).Inc()
	}
}

func (m *Metrics) uploaded(size int64) {
	if m != nil && size > 0 {
		m.uploadedBytes.Add(float64(size))
	}
}

func (m *Metrics) download(status string) {
	if m != nil {
		m.downloads.WithLabelValues(status).Inc()
	}
}
