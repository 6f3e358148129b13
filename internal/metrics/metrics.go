// Package metrics implements Prometheus metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/madlink306/antsdr-streamd/internal/stream"
)

var (
	// StreamState tracks the engine state (0=idle, 1=streaming, 2=stopping)
	StreamState = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "antsdrd_stream_state",
			Help: "Current streaming state (0=idle, 1=streaming, 2=stopping)",
		},
	)

	// TransfersCompleted mirrors the engine's completed transfer count
	TransfersCompleted = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "antsdrd_transfers_completed",
			Help: "Raw transfers delivered by the capture source",
		},
	)

	// BytesTransferred mirrors the engine's transferred byte count
	BytesTransferred = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "antsdrd_bytes_transferred",
			Help: "Raw bytes delivered by the capture source",
		},
	)

	// PacketsSent mirrors the engine's emitted packet count
	PacketsSent = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "antsdrd_packets_sent",
			Help: "UDP packets handed to the destination",
		},
	)

	// FramesByResult tracks extraction outcomes
	FramesByResult = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "antsdrd_frames",
			Help: "Frames by extraction result",
		},
		[]string{"result"},
	)

	// MissingFrames mirrors the cumulative detected frame-counter gaps
	MissingFrames = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "antsdrd_missing_frames",
			Help: "Frames lost between consecutive hardware counters",
		},
	)

	// DropsByStage tracks where the bounded pipeline sheds load
	DropsByStage = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "antsdrd_drops",
			Help: "Dropped units by pipeline stage",
		},
		[]string{"stage"},
	)

	// QueueDepth tracks the raw-transfer queue occupancy
	QueueDepth = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "antsdrd_queue_depth",
			Help: "Raw transfers waiting for extraction",
		},
	)

	// RingDepth tracks the payload ring occupancy
	RingDepth = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "antsdrd_ring_depth",
			Help: "Payloads waiting for packetization",
		},
	)

	// Errors mirrors the engine's error count
	Errors = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "antsdrd_errors",
			Help: "Source and send errors",
		},
	)
)

// stateValue maps a state string to its gauge value.
func stateValue(state string) float64 {
	switch state {
	case "streaming":
		return 1
	case "stopping":
		return 2
	default:
		return 0
	}
}

// Update publishes one engine snapshot to the registry. The collector
// calls this on its configured interval.
func Update(st stream.Stats) {
	StreamState.Set(stateValue(st.State))
	TransfersCompleted.Set(float64(st.TransfersCompleted))
	BytesTransferred.Set(float64(st.BytesTransferred))
	PacketsSent.Set(float64(st.PacketsSent))
	FramesByResult.WithLabelValues("valid").Set(float64(st.ValidFrames))
	FramesByResult.WithLabelValues("invalid").Set(float64(st.InvalidFrames))
	FramesByResult.WithLabelValues("extracted").Set(float64(st.ExtractedFrames))
	FramesByResult.WithLabelValues("out_of_order").Set(float64(st.OutOfOrderFrames))
	MissingFrames.Set(float64(st.MissingFrames))
	DropsByStage.WithLabelValues("queue").Set(float64(st.QueueDrops))
	DropsByStage.WithLabelValues("ring").Set(float64(st.RingDrops))
	DropsByStage.WithLabelValues("accum").Set(float64(st.AccumOverflows))
	QueueDepth.Set(float64(st.QueueDepth))
	RingDepth.Set(float64(st.RingDepth))
	Errors.Set(float64(st.Errors))
}
