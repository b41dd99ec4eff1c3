package quic

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
)

func TestConnStatsRegisters(t *testing.T) {
	m := newMetrics()
	reg := prometheus.NewPedanticRegistry()
	if err := reg.Register(m); err != nil {
		t.Fatalf("Register: %v", err)
	}
	mfs, err := reg.Gather()
	if err != nil {
		t.Fatalf("Gather: %v", err)
	}
	names := make(map[string]bool)
	for _, mf := range mfs {
		names[mf.GetName()] = true
	}
	for _, want := range []string{"quic_connections", "quic_packets_sent_total", "quic_packets_received_total", "quic_packets_dropped_total"} {
		if !names[want] {
			t.Errorf("missing metric %s in %v", want, names)
		}
	}
}

func TestConnStatsAddRemove(t *testing.T) {
	m := newMetrics()
	c := &remoteConn{}
	m.add(c)
	if len(m.conns) != 1 {
		t.Fatalf("len(conns) = %d, want 1 after add", len(m.conns))
	}
	m.remove(c)
	if len(m.conns) != 0 {
		t.Fatalf("len(conns) = %d, want 0 after remove", len(m.conns))
	}
}
