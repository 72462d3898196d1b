package wifi

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"
)

// ErrNetworkNotFound is returned by the simulator for SSIDs it does not know.
var ErrNetworkNotFound = errors.New("network not found")

// ErrWrongPassphrase is returned by the simulator for a bad station passphrase.
var ErrWrongPassphrase = errors.New("wrong passphrase")

// Simulator is an in-memory Adapter. It models a set of reachable station
// networks and a single AP radio, and records every call for inspection.
type Simulator struct {
	mu sync.Mutex

	networks map[string]string // ssid -> passphrase
	latency  time.Duration
	apFails  int

	hostname  string
	station   string
	ap        *APConfig
	calls     []string
	onDrop    func(details string)
	stationIP string
	apIP      string
}

// NewSimulator creates a simulator with no reachable networks
func NewSimulator() *Simulator {
	return &Simulator{
		networks:  make(map[string]string),
		stationIP: "192.168.1.50",
		apIP:      "192.168.4.1",
	}
}

// AddNetwork makes ssid reachable with passphrase
func (s *Simulator) AddNetwork(ssid, passphrase string) {
	s.mu.Lock()
	s.networks[ssid] = passphrase
	s.mu.Unlock()
}

// RemoveNetwork makes ssid unreachable
func (s *Simulator) RemoveNetwork(ssid string) {
	s.mu.Lock()
	delete(s.networks, ssid)
	s.mu.Unlock()
}

// SetLatency delays Connect and StartAP by d
func (s *Simulator) SetLatency(d time.Duration) {
	s.mu.Lock()
	s.latency = d
	s.mu.Unlock()
}

// FailAPStarts makes the next n StartAP calls fail
func (s *Simulator) FailAPStarts(n int) {
	s.mu.Lock()
	s.apFails = n
	s.mu.Unlock()
}

// Drop simulates the station link going down.
func (s *Simulator) Drop(details string) {
	s.mu.Lock()
	s.station = ""
	fn := s.onDrop
	s.mu.Unlock()

	if fn != nil {
		fn(details)
	}
}

// Calls returns the recorded adapter calls in order
func (s *Simulator) Calls() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.calls...)
}

// Station returns the SSID of the joined network, or "" when not joined
func (s *Simulator) Station() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.station
}

// AP returns the running access point, or nil when the radio is not in AP mode
func (s *Simulator) AP() *APConfig {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ap == nil {
		return nil
	}
	ap := *s.ap
	return &ap
}

func (s *Simulator) record(call string) time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = append(s.calls, call)
	return s.latency
}

func wait(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// SetHostname implements Adapter
func (s *Simulator) SetHostname(_ context.Context, name string) error {
	s.record("set_hostname " + name)
	s.mu.Lock()
	s.hostname = name
	s.mu.Unlock()
	return nil
}

// Connect implements Adapter
func (s *Simulator) Connect(ctx context.Context, ssid, passphrase string) error {
	latency := s.record("connect " + ssid)
	if err := wait(ctx, latency); err != nil {
		return &AdapterError{Op: "connect", Err: err, Retryable: true}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	want, ok := s.networks[ssid]
	if !ok {
		return &AdapterError{Op: "connect", Err: fmt.Errorf("%w: %s", ErrNetworkNotFound, ssid), Retryable: true}
	}
	if want != passphrase {
		return &AdapterError{Op: "connect", Err: ErrWrongPassphrase}
	}
	s.station = ssid
	return nil
}

// StopAP implements Adapter
func (s *Simulator) StopAP(context.Context) error {
	s.record("stop_ap")
	s.mu.Lock()
	s.ap = nil
	s.mu.Unlock()
	return nil
}

// StartAP implements Adapter
func (s *Simulator) StartAP(ctx context.Context, cfg APConfig) error {
	latency := s.record("start_ap " + cfg.SSID + " " + string(cfg.AuthMode))
	if err := cfg.Validate(); err != nil {
		return err
	}
	if err := wait(ctx, latency); err != nil {
		return &AdapterError{Op: "start_ap", Err: err, Retryable: true}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.apFails > 0 {
		s.apFails--
		return &AdapterError{Op: "start_ap", Err: errors.New("radio busy"), Retryable: true}
	}
	s.ap = &cfg
	return nil
}

// APDetails implements Adapter
func (s *Simulator) APDetails() APDetails {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ap == nil {
		return APDetails{}
	}
	return APDetails{SSID: s.ap.SSID, Passphrase: s.ap.Passphrase, IP: s.apIP}
}

// IP implements Adapter
func (s *Simulator) IP(context.Context) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.station == "" {
		return "", &AdapterError{Op: "get_ip", Err: errors.New("not connected")}
	}
	return s.stationIP, nil
}

// Hostname implements Adapter
func (s *Simulator) Hostname(context.Context) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.hostname, nil
}

// OnDisconnected implements Adapter
func (s *Simulator) OnDisconnected(fn func(details string)) {
	s.mu.Lock()
	s.onDrop = fn
	s.mu.Unlock()
}
