// Package metrics exports drop zone transfer events as Prometheus metrics.
package metrics

import (
	"context"
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/tendant/simple-dropzone/pkg/dropzone"
)

const namespace = "dropzone"

// EventSink counts machine events. It is safe for concurrent use.
type EventSink struct {
	skipped   prometheus.Counter
	started   prometheus.Counter
	bytes     prometheus.Counter
	completed *prometheus.CounterVec
	inflight  prometheus.Gauge
	resets    prometheus.Counter
}

var _ dropzone.EventSink = (*EventSink)(nil)

// NewEventSink registers the drop zone collectors with reg.
// A nil reg uses prometheus.DefaultRegisterer.
func NewEventSink(reg prometheus.Registerer) *EventSink {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	factory := promauto.With(reg)

	return &EventSink{
		skipped: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "files_skipped_total",
			Help:      "Dropped files rejected by the extension policy",
		}),
		started: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "transfers_started_total",
			Help:      "Upload attempts started",
		}),
		bytes: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "transfer_bytes_total",
			Help:      "Declared size of files handed to the uploader",
		}),
		completed: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "transfers_completed_total",
			Help:      "Upload attempts completed, by result and whether the attempt was still current",
		}, []string{"result", "current"}),
		inflight: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "transfers_inflight",
			Help:      "Upload attempts not yet completed",
		}),
		resets: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "resets_total",
			Help:      "Explicit resets back to idle",
		}),
	}
}

func (s *EventSink) FileSkipped(context.Context, string) {
	s.skipped.Inc()
}

func (s *EventSink) TransferStarted(_ context.Context, _ dropzone.AttemptID, req dropzone.TransferRequest) {
	s.started.Inc()
	s.inflight.Inc()
	if req.File.Size > 0 {
		s.bytes.Add(float64(req.File.Size))
	}
}

func (s *EventSink) TransferUploaded(_ context.Context, _ dropzone.AttemptID, _ dropzone.UploadResult, current bool) {
	s.inflight.Dec()
	s.completed.WithLabelValues("uploaded", strconv.FormatBool(current)).Inc()
}

func (s *EventSink) TransferFailed(_ context.Context, _ dropzone.AttemptID, _ error, current bool) {
	s.inflight.Dec()
	s.completed.WithLabelValues("failed", strconv.FormatBool(current)).Inc()
}

func (s *EventSink) StateReset(context.Context) {
	s.resets.Inc()
}
