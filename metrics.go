package quic

import (
	"fmt"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

// connStats is a Prometheus collector exposing per-connection recovery
// state (bytes in flight, congestion window and smoothed RTT from
// transport.Conn.Stats) as gauges, scraped on demand
// rather than pushed: live connections register themselves in a map and
// Collect walks it, the same shape used for per-socket metrics elsewhere
// in this codebase's ecosystem.
type connStats struct {
	mu    sync.Mutex
	conns map[*remoteConn]struct{}

	connections      *prometheus.Desc
	bytesInFlight    *prometheus.Desc
	congestionWindow *prometheus.Desc
	smoothedRTT      *prometheus.Desc

	packetsSent     prometheus.Counter
	packetsReceived prometheus.Counter
	packetsDropped  prometheus.Counter
}

func newMetrics() *connStats {
	labels := []string{"scid", "remote_addr"}
	return &connStats{
		conns: make(map[*remoteConn]struct{}),
		connections: prometheus.NewDesc(
			"quic_connections", "Number of connections currently tracked.", nil, nil),
		bytesInFlight: prometheus.NewDesc(
			"quic_bytes_in_flight", "Estimated bytes in flight awaiting acknowledgement.", labels, nil),
		congestionWindow: prometheus.NewDesc(
			"quic_congestion_window_bytes", "Current congestion window.", labels, nil),
		smoothedRTT: prometheus.NewDesc(
			"quic_smoothed_rtt_seconds", "Smoothed round-trip time estimate.", labels, nil),
		packetsSent: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "quic_packets_sent_total",
			Help: "UDP datagrams written to the network.",
		}),
		packetsReceived: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "quic_packets_received_total",
			Help: "UDP datagrams read from the network.",
		}),
		packetsDropped: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "quic_packets_dropped_total",
			Help: "Datagrams dropped before reaching a connection (unparseable header, unknown CID, full receive queue, or connection limit reached).",
		}),
	}
}

func (m *connStats) Describe(descs chan<- *prometheus.Desc) {
	descs <- m.connections
	descs <- m.bytesInFlight
	descs <- m.congestionWindow
	descs <- m.smoothedRTT
	m.packetsSent.Describe(descs)
	m.packetsReceived.Describe(descs)
	m.packetsDropped.Describe(descs)
}

func (m *connStats) Collect(metrics chan<- prometheus.Metric) {
	m.mu.Lock()
	defer m.mu.Unlock()
	metrics <- prometheus.MustNewConstMetric(m.connections, prometheus.GaugeValue, float64(len(m.conns)))
	for c := range m.conns {
		st := c.conn.Stats()
		labels := []string{fmt.Sprintf("%x", c.scid), c.addr.String()}
		metrics <- prometheus.MustNewConstMetric(m.bytesInFlight, prometheus.GaugeValue, float64(st.BytesInFlight), labels...)
		metrics <- prometheus.MustNewConstMetric(m.congestionWindow, prometheus.GaugeValue, float64(st.CongestionWindow), labels...)
		metrics <- prometheus.MustNewConstMetric(m.smoothedRTT, prometheus.GaugeValue, st.SmoothedRTT.Seconds(), labels...)
	}
	metrics <- m.packetsSent
	metrics <- m.packetsReceived
	metrics <- m.packetsDropped
}

func (m *connStats) add(c *remoteConn) {
	m.mu.Lock()
	m.conns[c] = struct{}{}
	m.mu.Unlock()
}

func (m *connStats) remove(c *remoteConn) {
	m.mu.Lock()
	delete(m.conns, c)
	m.mu.Unlock()
}
