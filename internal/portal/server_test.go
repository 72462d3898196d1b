package portal

import (
	"io"
	"net/http"
	"testing"
	"time"
)

func TestListenServesAndCloses(t *testing.T) {
	backend := &fakeBackend{}
	s, err := Listen(Config{Listen: "127.0.0.1:0"}, backend, nil)
	if err != nil {
		t.Fatalf("Listen() error = %v", err)
	}

	client := &http.Client{Timeout: 2 * time.Second}
	resp, err := client.Get("http://" + s.Addr() + "/set?thing=Fido&ssid=home&pass=secret&appass=")
	if err != nil {
		t.Fatalf("GET /set error = %v", err)
	}
	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK || string(body) != "settings updates, trying to reconnect..." {
		t.Errorf("GET /set = %d %q", resp.StatusCode, body)
	}

	if err := s.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	if err := s.Close(); err != nil {
		t.Errorf("second Close() error = %v", err)
	}

	if _, err := client.Get("http://" + s.Addr() + "/"); err == nil {
		t.Error("portal still serving after Close()")
	}
}

func TestListenBindFailure(t *testing.T) {
	first, err := Listen(Config{Listen: "127.0.0.1:0"}, &fakeBackend{}, nil)
	if err != nil {
		t.Fatalf("Listen() error = %v", err)
	}
	defer first.Close()

	if _, err := Listen(Config{Listen: first.Addr()}, &fakeBackend{}, nil); err == nil {
		t.Error("second Listen() on a bound address should fail")
	}
}

func TestOpenerBindsForMachine(t *testing.T) {
	m := newMachine(t)

	l, err := Opener(Config{Listen: "127.0.0.1:0"})(m)
	if err != nil {
		t.Fatalf("opener error = %v", err)
	}
	defer l.Close()

	resp, err := http.Get("http://" + l.Addr() + "/events")
	if err != nil {
		t.Fatalf("GET /events error = %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("GET /events with events disabled = %d, want 404", resp.StatusCode)
	}
}
