package identity

import (
	"encoding/hex"
	"errors"
	"fmt"
)

// WPA2 passphrase bounds for a non-empty AP passphrase. A 64 character
// passphrase is only accepted as a hex-encoded PSK.
const (
	MinAPPassphraseLength = 8
	MaxAPPassphraseLength = 63
)

// Portal warnings for a rejected AP passphrase
const (
	APPassphraseWarning        = "WARNING: AP password must be at least 8 characters\n"
	APPassphraseTooLongWarning = "WARNING: AP password must be at most 63 characters\n"
)

// Reasons an AP passphrase is rejected, wrapped by ValidationError
var (
	ErrAPPassphraseTooShort = errors.New("too short")
	ErrAPPassphraseTooLong  = errors.New("too long")
)

// ValidationError reports an identity field that cannot be applied.
type ValidationError struct {
	Field   string // Field name as submitted ("appass", "thing", ...)
	Message string // Human-readable reason
	Err     error  // Underlying reason, if any
}

// Error implements the error interface
func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Message)
}

// Unwrap returns the underlying reason
func (e *ValidationError) Unwrap() error {
	return e.Err
}

// IsValidationError checks if an error is (or wraps) a ValidationError
func IsValidationError(err error) bool {
	var vErr *ValidationError
	return errors.As(err, &vErr)
}

// ValidateAPPassphrase accepts an empty passphrase (open AP), one of
// MinAPPassphraseLength to MaxAPPassphraseLength characters, or a 64 digit
// hex PSK.
func ValidateAPPassphrase(pass string) error {
	switch {
	case pass == "":
		return nil
	case len(pass) < MinAPPassphraseLength:
		return &ValidationError{
			Field:   "appass",
			Message: fmt.Sprintf("must be empty or at least %d characters, got %d", MinAPPassphraseLength, len(pass)),
			Err:     ErrAPPassphraseTooShort,
		}
	case len(pass) > MaxAPPassphraseLength && !isHexPSK(pass):
		return &ValidationError{
			Field:   "appass",
			Message: fmt.Sprintf("must be at most %d characters, got %d", MaxAPPassphraseLength, len(pass)),
			Err:     ErrAPPassphraseTooLong,
		}
	}
	return nil
}

// WarningFor returns the portal warning for a rejected AP passphrase.
func WarningFor(err error) string {
	if errors.Is(err, ErrAPPassphraseTooLong) {
		return APPassphraseTooLongWarning
	}
	return APPassphraseWarning
}

func isHexPSK(pass string) bool {
	if len(pass) != 64 {
		return false
	}
	_, err := hex.DecodeString(pass)
	return err == nil
}

// Submission is a settings update received from the configuration portal.
type Submission struct {
	Name         string
	SSID         string
	Passphrase   string
	APPassphrase string
}

// Apply returns the identity that results from applying s to current.
// Name, SSID and passphrase are always taken from s. An invalid AP passphrase
// keeps the current one and is reported through the returned error, which is
// always a *ValidationError.
func (s Submission) Apply(current DeviceIdentity) (DeviceIdentity, error) {
	next := current
	next.Name = s.Name
	next.SSID = s.SSID
	next.Passphrase = s.Passphrase

	if err := ValidateAPPassphrase(s.APPassphrase); err != nil {
		return next, err
	}
	next.APPassphrase = s.APPassphrase
	return next, nil
}
