package identity

const (
	// DefaultName is the sentinel device name of an unconfigured device.
	// A device carrying this name must be configured through the AP portal
	// before any station connection is attempted.
	DefaultName = "ZooPet"

	// DefaultSSID is the station SSID used until the operator sets one
	DefaultSSID = "default_ssid"

	// DefaultPassphrase is the station passphrase used until the operator sets one
	DefaultPassphrase = "default_password"

	// SettingsKey is the store key of the persisted identity record
	SettingsKey = "zooset"
)

// DeviceIdentity is the persisted name and credentials record.
//
// The JSON field names are the on-device storage format and must not change.
type DeviceIdentity struct {
	Name         string `json:"name"`   // Device name, used as hostname and AP SSID
	SSID         string `json:"ssid"`   // Station network SSID
	Passphrase   string `json:"pass"`   // Station network passphrase
	APPassphrase string `json:"appass"` // AP passphrase (empty = open AP)
}

// Default returns the identity of a factory-fresh device.
func Default() DeviceIdentity {
	return DeviceIdentity{
		Name:       DefaultName,
		SSID:       DefaultSSID,
		Passphrase: DefaultPassphrase,
	}
}

// Configured reports whether the operator has named the device.
func (d DeviceIdentity) Configured() bool {
	return d.Name != DefaultName
}

// SecuredAP reports whether the configuration AP requires a passphrase.
func (d DeviceIdentity) SecuredAP() bool {
	return d.APPassphrase != ""
}
