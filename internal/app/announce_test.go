package app

import (
	"net"
	"testing"

	"github.com/go-playground/assert/v2"
	"github.com/hashicorp/mdns"
)

func TestPeerFromEntry(t *testing.T) {
	peer := peerFromEntry(&mdns.ServiceEntry{
		Name:       "studio._sketchroom._tcp.local.",
		AddrV4:     net.IPv4(192, 168, 1, 20),
		Port:       8080,
		InfoFields: []string{"path=board"},
	})
	assert.Equal(t, peer.Name, "studio")
	assert.Equal(t, peer.URL, "ws://192.168.1.20:8080/board")

	peer = peerFromEntry(&mdns.ServiceEntry{Name: "x", AddrV4: net.IPv4(10, 0, 0, 1), Port: 9000})
	assert.Equal(t, peer.URL, "ws://10.0.0.1:9000/ws")
}

func TestShutdownNilAnnouncer(t *testing.T) {
	var announcer *Announcer
	if err := announcer.Shutdown(); err != nil {
		t.Fatalf("Shutdown: %v", err)
	}
}
