// ABOUTME: Tests for mDNS discovery
// ABOUTME: Tests TXT records, entry parsing and server URLs
package discovery

import (
	"net"
	"slices"
	"testing"

	"github.com/hashicorp/mdns"
)

func TestNewManager(t *testing.T) {
	mgr := NewManager(Config{
		ServiceName: "Test Server",
		Port:        3000,
	})
	if mgr == nil {
		t.Fatal("expected manager to be created")
	}
	mgr.Stop()

	select {
	case <-mgr.ctx.Done():
	default:
		t.Error("expected Stop to cancel the manager context")
	}
}

func TestTXT(t *testing.T) {
	mgr := NewManager(Config{
		ServiceName: "Test Server",
		Port:        3000,
		LivePath:    "/stream.raw",
		FilePath:    "/file.raw",
		Marker:      "hqplayer-raw",
	})
	defer mgr.Stop()

	txt := mgr.TXT()
	for _, want := range []string{"path=/stream.raw", "file=/file.raw", "marker=hqplayer-raw"} {
		if !slices.Contains(txt, want) {
			t.Errorf("expected TXT records %v to contain %q", txt, want)
		}
	}
}

func TestParseEntry(t *testing.T) {
	tests := []struct {
		name  string
		entry *mdns.ServiceEntry
		want  *ServerInfo
	}{
		{"nil entry", nil, nil},
		{"no ipv4", &mdns.ServiceEntry{Name: "x", Port: 3000}, nil},
		{
			"full entry",
			&mdns.ServiceEntry{
				Name:       "Studio._rawstream._tcp.local.",
				AddrV4:     net.IPv4(192, 168, 1, 20),
				Port:       3000,
				InfoFields: []string{"version=0.3.0", "path=/stream.raw", "file=/file.raw", "marker=hqplayer-raw", "junk"},
			},
			&ServerInfo{
				Name:     "Studio",
				Host:     "192.168.1.20",
				Port:     3000,
				LivePath: "/stream.raw",
				FilePath: "/file.raw",
				Marker:   "hqplayer-raw",
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := parseEntry(tt.entry)
			if tt.want == nil {
				if got != nil {
					t.Fatalf("expected nil, got %+v", got)
				}
				return
			}
			if got == nil || *got != *tt.want {
				t.Errorf("expected %+v, got %+v", tt.want, got)
			}
		})
	}
}

func TestServerURL(t *testing.T) {
	tests := []struct {
		name   string
		server ServerInfo
		want   string
	}{
		{"default path", ServerInfo{Host: "10.0.0.2", Port: 3000}, "http://10.0.0.2:3000/stream.raw"},
		{"advertised path", ServerInfo{Host: "10.0.0.2", Port: 8080, LivePath: "/live"}, "http://10.0.0.2:8080/live"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.server.URL(); got != tt.want {
				t.Errorf("expected %s, got %s", tt.want, got)
			}
		})
	}
}
