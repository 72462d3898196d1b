package wifi

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"
)

func TestAPConfigFor(t *testing.T) {
	tests := []struct {
		pass string
		want AuthMode
	}{
		{"", AuthOpen},
		{"longenough", AuthWPA2},
	}

	for _, tt := range tests {
		cfg := APConfigFor("Fido", tt.pass)
		if cfg.AuthMode != tt.want {
			t.Errorf("APConfigFor(%q).AuthMode = %v, want %v", tt.pass, cfg.AuthMode, tt.want)
		}
		if cfg.SSID != "Fido" {
			t.Errorf("APConfigFor().SSID = %q, want Fido", cfg.SSID)
		}
	}
}

func TestSimulatorConnect(t *testing.T) {
	ctx := context.Background()
	sim := NewSimulator()
	sim.AddNetwork("home", "secret")

	tests := []struct {
		name      string
		ssid      string
		pass      string
		wantErr   error
		retryable bool
	}{
		{"unknown network", "cafe", "x", ErrNetworkNotFound, true},
		{"wrong passphrase", "home", "guess", ErrWrongPassphrase, false},
		{"success", "home", "secret", nil, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := sim.Connect(ctx, tt.ssid, tt.pass)
			if tt.wantErr == nil {
				if err != nil {
					t.Fatalf("Connect() error = %v", err)
				}
				if sim.Station() != tt.ssid {
					t.Errorf("Station() = %q, want %q", sim.Station(), tt.ssid)
				}
				return
			}
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("Connect() error = %v, want %v", err, tt.wantErr)
			}
			if IsRetryable(err) != tt.retryable {
				t.Errorf("IsRetryable() = %v, want %v", IsRetryable(err), tt.retryable)
			}
		})
	}
}

func TestSimulatorConnectHonoursContext(t *testing.T) {
	sim := NewSimulator()
	sim.AddNetwork("home", "secret")
	sim.SetLatency(time.Hour)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	err := sim.Connect(ctx, "home", "secret")
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("Connect() error = %v, want deadline exceeded", err)
	}
	if !IsRetryable(err) {
		t.Error("timeouts should be retryable")
	}
}

func TestSimulatorAPLifecycle(t *testing.T) {
	ctx := context.Background()
	sim := NewSimulator()
	sim.FailAPStarts(1)

	if err := sim.StartAP(ctx, APConfigFor("Fido", "")); err == nil {
		t.Fatal("first StartAP() should fail")
	}
	if err := sim.StartAP(ctx, APConfigFor("Fido", "longenough")); err != nil {
		t.Fatalf("second StartAP() error = %v", err)
	}

	details := sim.APDetails()
	if details.SSID != "Fido" || details.Passphrase != "longenough" || details.IP == "" {
		t.Errorf("APDetails() = %+v", details)
	}

	if err := sim.StopAP(ctx); err != nil {
		t.Fatalf("StopAP() error = %v", err)
	}
	if sim.AP() != nil {
		t.Error("AP() should be nil after StopAP()")
	}
}

func TestSimulatorDropNotifies(t *testing.T) {
	sim := NewSimulator()
	sim.AddNetwork("home", "secret")
	_ = sim.Connect(context.Background(), "home", "secret")

	var got string
	sim.OnDisconnected(func(details string) { got = details })
	sim.Drop("beacon timeout")

	if got != "beacon timeout" {
		t.Errorf("disconnect details = %q, want beacon timeout", got)
	}
	if sim.Station() != "" {
		t.Error("Station() should be empty after Drop()")
	}
	if _, err := sim.IP(context.Background()); err == nil {
		t.Error("IP() should fail when not connected")
	}
}

func TestSimulatorRecordsCalls(t *testing.T) {
	ctx := context.Background()
	sim := NewSimulator()
	_ = sim.SetHostname(ctx, "Fido")
	_ = sim.StopAP(ctx)

	calls := sim.Calls()
	if len(calls) != 2 || calls[0] != "set_hostname Fido" || calls[1] != "stop_ap" {
		t.Errorf("Calls() = %v", calls)
	}

	name, _ := sim.Hostname(ctx)
	if name != "Fido" {
		t.Errorf("Hostname() = %q, want Fido", name)
	}
}

func TestAPConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		pass    string
		wantErr bool
	}{
		{"open", "", false},
		{"eight characters", "12345678", false},
		{"63 characters", strings.Repeat("x", 63), false},
		{"64 hex digits", strings.Repeat("ab", 32), false},
		{"64 non-hex characters", strings.Repeat("x", 64), true},
		{"70 characters", strings.Repeat("x", 70), true},
		{"seven characters", "1234567", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := APConfigFor("Fido", tt.pass).Validate()
			if (err != nil) != tt.wantErr {
				t.Fatalf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil && (IsRetryable(err) || !errors.Is(err, ErrInvalidPSK)) {
				t.Errorf("error = %v, want non-retryable ErrInvalidPSK", err)
			}
		})
	}
}

func TestSimulatorStartAPRejectsInvalidPSK(t *testing.T) {
	s := NewSimulator()

	err := s.StartAP(context.Background(), APConfigFor("Fido", strings.Repeat("x", 70)))
	if !errors.Is(err, ErrInvalidPSK) {
		t.Fatalf("StartAP() error = %v, want ErrInvalidPSK", err)
	}
	if s.AP() != nil {
		t.Error("AP should not be up after a rejected passphrase")
	}
}
