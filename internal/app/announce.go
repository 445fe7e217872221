package app

import (
	"fmt"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/hashicorp/mdns"
)

// ServiceType is the mDNS service boards are advertised under.
const ServiceType = "_sketchroom._tcp"

// Announcer advertises a running server on the local network.
type Announcer struct {
	server *mdns.Server
}

// Announce publishes this host's board server on port, with the websocket
// path carried in the TXT record.
func Announce(port int, path string) (*Announcer, error) {
	host, err := os.Hostname()
	if err != nil {
		return nil, fmt.Errorf("could not get hostname: %w", err)
	}
	info := []string{"path=" + NormalizeJoinPath(path)}
	service, err := mdns.NewMDNSService(host, ServiceType, "", "", port, nil, info)
	if err != nil {
		return nil, fmt.Errorf("failed to create mDNS service: %w", err)
	}
	server, err := mdns.NewServer(&mdns.Config{Zone: service})
	if err != nil {
		return nil, fmt.Errorf("failed to start mDNS server: %w", err)
	}
	return &Announcer{server: server}, nil
}

func (a *Announcer) Shutdown() error {
	if a == nil || a.server == nil {
		return nil
	}
	return a.server.Shutdown()
}

// Peer is a board server found on the LAN.
type Peer struct {
	Name string
	URL  string
}

// Discover browses for announced servers until timeout elapses.
func Discover(timeout time.Duration) ([]Peer, error) {
	entries := make(chan *mdns.ServiceEntry, 8)
	var (
		peers []Peer
		wg    sync.WaitGroup
	)
	wg.Add(1)
	go func() {
		defer wg.Done()
		seen := make(map[string]bool)
		for entry := range entries {
			if entry.AddrV4 == nil || entry.Port == 0 {
				continue
			}
			peer := peerFromEntry(entry)
			if seen[peer.URL] {
				continue
			}
			seen[peer.URL] = true
			peers = append(peers, peer)
		}
	}()

	params := &mdns.QueryParam{
		Service:     ServiceType,
		Domain:      "local",
		Timeout:     timeout,
		Entries:     entries,
		DisableIPv6: true,
	}
	err := mdns.Query(params)
	close(entries)
	wg.Wait()
	if err != nil {
		return nil, fmt.Errorf("mdns query: %w", err)
	}
	return peers, nil
}

func peerFromEntry(entry *mdns.ServiceEntry) Peer {
	path := "/ws"
	for _, field := range entry.InfoFields {
		if value, ok := strings.CutPrefix(field, "path="); ok {
			path = NormalizeJoinPath(value)
		}
	}
	name := strings.TrimSuffix(entry.Name, "."+ServiceType+".local.")
	return Peer{
		Name: name,
		URL:  fmt.Sprintf("ws://%s:%d%s", entry.AddrV4.String(), entry.Port, path),
	}
}
