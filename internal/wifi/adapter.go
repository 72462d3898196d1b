package wifi

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"
)

// AuthMode is the security mode of the configuration access point
type AuthMode string

const (
	// AuthOpen broadcasts an open network
	AuthOpen AuthMode = "open"
	// AuthWPA2 requires a WPA2 passphrase
	AuthWPA2 AuthMode = "wpa2"
)

// APConfig describes the access point to bring up.
type APConfig struct {
	SSID       string
	Passphrase string
	AuthMode   AuthMode
}

// APConfigFor returns the AP configuration for a device broadcasting ssid.
// An empty passphrase yields an open network.
func APConfigFor(ssid, passphrase string) APConfig {
	mode := AuthOpen
	if passphrase != "" {
		mode = AuthWPA2
	}
	return APConfig{SSID: ssid, Passphrase: passphrase, AuthMode: mode}
}

// ErrInvalidPSK is returned by StartAP for a passphrase WPA2 cannot use
var ErrInvalidPSK = errors.New("passphrase must be 8 to 63 characters or 64 hex digits")

// Validate checks that a secured AP passphrase fits WPA2-PSK. The error is a
// non-retryable AdapterError, since retrying cannot fix the configuration.
func (c APConfig) Validate() error {
	if c.AuthMode != AuthWPA2 {
		return nil
	}
	n := len(c.Passphrase)
	if n >= 8 && n <= 63 {
		return nil
	}
	if n == 64 {
		if _, err := hex.DecodeString(c.Passphrase); err == nil {
			return nil
		}
	}
	return &AdapterError{Op: "start_ap", Err: fmt.Errorf("%w (got %d)", ErrInvalidPSK, n)}
}

// APDetails reports what the running access point broadcasts.
type APDetails struct {
	SSID       string
	Passphrase string
	IP         string // Address of the device on the AP network
}

// Adapter is the WiFi stack the connection manager drives.
//
// Connect and StartAP may take seconds; callers run them off the dispatcher
// goroutine and bound them with ctx.
type Adapter interface {
	SetHostname(ctx context.Context, name string) error
	Connect(ctx context.Context, ssid, passphrase string) error
	StopAP(ctx context.Context) error
	StartAP(ctx context.Context, cfg APConfig) error
	APDetails() APDetails
	IP(ctx context.Context) (string, error)
	Hostname(ctx context.Context) (string, error)
	// OnDisconnected registers fn to be called when an established station
	// connection drops. Only the last registered fn is kept.
	OnDisconnected(fn func(details string))
}

// AdapterError reports a failed adapter operation
type AdapterError struct {
	Op        string // Operation name ("connect", "start_ap", ...)
	Err       error  // Underlying error
	Retryable bool   // Whether retrying the operation may succeed
}

// Error implements the error interface
func (e *AdapterError) Error() string {
	return fmt.Sprintf("wifi %s failed: %v", e.Op, e.Err)
}

// Unwrap returns the underlying error for error chain inspection
func (e *AdapterError) Unwrap() error {
	return e.Err
}

// IsRetryable reports whether err is an AdapterError marked retryable.
// Context deadline errors are always retryable.
func IsRetryable(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var aErr *AdapterError
	if errors.As(err, &aErr) {
		return aErr.Retryable
	}
	return false
}
