package registry

import (
	"testing"
	"time"

	"github.com/mvishiu11/WIND/internal/glob"
	"github.com/mvishiu11/WIND/internal/wire"
)

func svc(name, addr string, ttlMS uint64) wire.ServiceInfo {
	return wire.ServiceInfo{Name: name, Address: addr, ServiceType: wire.ServiceTypePublisher, TTLMillis: ttlMS}
}

func TestSingleRegistrationLastWriterWins(t *testing.T) {
	s := NewStore()
	now := time.Now()

	s.Register(svc("TEST/SERVICE", "127.0.0.1:9001", 60000), now)
	info, err := s.Lookup("TEST/SERVICE", now)
	if err != nil || info.Address != "127.0.0.1:9001" {
		t.Fatalf("lookup after first register: %+v %v", info, err)
	}

	s.Register(svc("TEST/SERVICE", "127.0.0.1:9002", 60000), now)
	info, err = s.Lookup("TEST/SERVICE", now)
	if err != nil || info.Address != "127.0.0.1:9002" {
		t.Fatalf("lookup after second register: %+v %v", info, err)
	}
}

func TestExpiry(t *testing.T) {
	s := NewStore()
	now := time.Now()
	s.Register(svc("TEST/SERVICE", "127.0.0.1:9001", 500), now)

	if _, err := s.Lookup("TEST/SERVICE", now.Add(400*time.Millisecond)); err != nil {
		t.Fatalf("expected still live at 400ms: %v", err)
	}
	if _, err := s.Lookup("TEST/SERVICE", now.Add(1500*time.Millisecond)); err != ErrServiceNotFound {
		t.Fatalf("expected ErrServiceNotFound after ttl expiry, got %v", err)
	}
}

func TestRenewAddressMismatch(t *testing.T) {
	s := NewStore()
	now := time.Now()
	s.Register(svc("TEST/SERVICE", "127.0.0.1:9001", 60000), now)

	if err := s.Renew("TEST/SERVICE", "127.0.0.1:9999", 60000, now); err != ErrAddressMismatch {
		t.Fatalf("expected ErrAddressMismatch, got %v", err)
	}
	if err := s.Renew("TEST/SERVICE", "127.0.0.1:9001", 60000, now.Add(time.Second)); err != nil {
		t.Fatalf("expected renew to succeed, got %v", err)
	}
}

func TestRenewMissing(t *testing.T) {
	s := NewStore()
	if err := s.Renew("NOPE", "127.0.0.1:1", 1000, time.Now()); err != ErrServiceNotFound {
		t.Fatalf("expected ErrServiceNotFound, got %v", err)
	}
}

func TestDiscoverPatterns(t *testing.T) {
	s := NewStore()
	now := time.Now()
	s.Register(svc("SENSOR/ROOM_A/TEMP", "a", 60000), now)
	s.Register(svc("SENSOR/ROOM_B/TEMP", "b", 60000), now)
	s.Register(svc("DETECTOR/HALL_1/STATUS", "c", 60000), now)

	cases := []struct {
		pattern string
		want    int
	}{
		{"SENSOR/*/TEMP", 2},
		{"SENSOR/*", 2},
		{"*", 3},
	}
	for _, c := range cases {
		p := glob.MustCompile(c.pattern)
		got := s.Discover(p, now)
		if len(got) != c.want {
			t.Errorf("Discover(%q) = %d results, want %d", c.pattern, len(got), c.want)
		}
	}
}

func TestReapExpired(t *testing.T) {
	s := NewStore()
	now := time.Now()
	s.Register(svc("A", "a", 100), now)
	s.Register(svc("B", "b", 60000), now)

	removed := s.reapExpired(now.Add(2 * time.Second))
	if removed != 1 {
		t.Fatalf("expected 1 reaped entry, got %d", removed)
	}
	if _, err := s.Lookup("B", now.Add(2*time.Second)); err != nil {
		t.Fatalf("B should still be live: %v", err)
	}
}

func TestWatchCompleteness(t *testing.T) {
	wl := NewWatchList()
	p := glob.MustCompile("SENSOR/*")
	_, sink, cancel := wl.Open(p, 8)
	defer cancel()

	wl.Notify("SENSOR/X", svc("SENSOR/X", "x", 1000))
	wl.Notify("OTHER/Y", svc("OTHER/Y", "y", 1000))

	select {
	case info := <-sink:
		if info.Name != "SENSOR/X" {
			t.Fatalf("expected SENSOR/X notification, got %s", info.Name)
		}
	case <-time.After(time.Second):
		t.Fatal("expected a notification for SENSOR/X")
	}

	select {
	case info := <-sink:
		t.Fatalf("unexpected extra notification: %+v", info)
	default:
	}
}

func TestWatchSnapshotThenLive(t *testing.T) {
	s := NewStore()
	wl := NewWatchList()
	now := time.Now()

	s.Register(svc("SENSOR/A", "a", 60000), now)
	p := glob.MustCompile("SENSOR/*")

	snapshot := s.Discover(p, now)
	if len(snapshot) != 1 {
		t.Fatalf("expected snapshot of 1, got %d", len(snapshot))
	}

	_, sink, cancel := wl.Open(p, 8)
	defer cancel()
	wl.Notify("SENSOR/B", svc("SENSOR/B", "b", 60000))

	select {
	case info := <-sink:
		if info.Name != "SENSOR/B" {
			t.Fatalf("expected SENSOR/B, got %s", info.Name)
		}
	case <-time.After(time.Second):
		t.Fatal("expected live notification for SENSOR/B")
	}
}
