// monitor/monitor.go
package monitor

import (
	"net/http"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type Metrics struct {
	OnlineSessions   prometheus.Gauge
	ActiveChannels   prometheus.Gauge
	MessagesReceived *prometheus.CounterVec
	MalformedFrames  prometheus.Counter
	MessagesSent     prometheus.Counter
	SendFailures     prometheus.Counter
	BroadcastLatency prometheus.Histogram
	BridgeEvents     *prometheus.CounterVec
	AudioGenerations *prometheus.CounterVec
}

func NewMetrics(namespace string, reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		OnlineSessions: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "online_sessions",
			Help:      "Number of open WebSocket sessions",
		}),
		ActiveChannels: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "active_channels",
			Help:      "Number of channels with at least one session",
		}),
		MessagesReceived: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "messages_received_total",
			Help:      "Inbound frames by message type",
		}, []string{"type"}),
		MalformedFrames: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "malformed_frames_total",
			Help:      "Inbound frames dropped as malformed or unsupported",
		}),
		MessagesSent: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "messages_sent_total",
			Help:      "Outbound frames queued to sockets",
		}),
		SendFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "send_failures_total",
			Help:      "Outbound frames that could not be queued",
		}),
		BroadcastLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "broadcast_latency_seconds",
			Help:      "Time spent fanning one message out",
			Buckets:   prometheus.ExponentialBuckets(0.0001, 2, 12),
		}),
		BridgeEvents: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "bridge_events_total",
			Help:      "Engine events forwarded by the bridge",
		}, []string{"kind"}),
		AudioGenerations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "audio_generations_total",
			Help:      "Audio generation results by provenance",
		}, []string{"source"}),
	}

	reg.MustRegister(
		m.OnlineSessions,
		m.ActiveChannels,
		m.MessagesReceived,
		m.MalformedFrames,
		m.MessagesSent,
		m.SendFailures,
		m.BroadcastLatency,
		m.BridgeEvents,
		m.AudioGenerations,
	)

	return m
}

// Monitor wraps Metrics with a private registry so several instances can
// live in one process (tests create one per server).
type Monitor struct {
	metrics   *Metrics
	registry  *prometheus.Registry
	startTime time.Time
	received  atomic.Int64
}

func NewMonitor(namespace string) *Monitor {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return &Monitor{
		metrics:   NewMetrics(namespace, reg),
		registry:  reg,
		startTime: time.Now(),
	}
}

func (m *Monitor) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

func (m *Monitor) Registry() *prometheus.Registry {
	return m.registry
}

func (m *Monitor) Uptime() time.Duration {
	return time.Since(m.startTime)
}

func (m *Monitor) IncOnlineSessions() {
	m.metrics.OnlineSessions.Inc()
}

func (m *Monitor) DecOnlineSessions() {
	m.metrics.OnlineSessions.Dec()
}

func (m *Monitor) SetActiveChannels(count int) {
	m.metrics.ActiveChannels.Set(float64(count))
}

func (m *Monitor) IncMessagesReceived(msgType string) {
	m.metrics.MessagesReceived.WithLabelValues(msgType).Inc()
	m.received.Add(1)
}

func (m *Monitor) MessagesReceivedTotal() int64 {
	return m.received.Load()
}

func (m *Monitor) IncMalformedFrames() {
	m.metrics.MalformedFrames.Inc()
}

func (m *Monitor) ObserveBroadcast(duration time.Duration, sent, failed int) {
	m.metrics.BroadcastLatency.Observe(duration.Seconds())
	m.metrics.MessagesSent.Add(float64(sent))
	m.metrics.SendFailures.Add(float64(failed))
}

func (m *Monitor) IncBridgeEvent(kind string) {
	m.metrics.BridgeEvents.WithLabelValues(kind).Inc()
}

func (m *Monitor) IncAudioGeneration(fallback bool) {
	source := "provider"
	if fallback {
		source = "fallback"
	}
	m.metrics.AudioGenerations.WithLabelValues(source).Inc()
}
