package config

import "time"

// CurrentVersion is the config file format version
const CurrentVersion = 1

// Config represents the daemon configuration file.
// Every field has a default; an absent file is the same as an empty one.
type Config struct {
	Version    int              `yaml:"version"`
	Dispatcher DispatcherConfig `yaml:"dispatcher"`
	Connection ConnectionConfig `yaml:"connection"`
	Portal     PortalConfig     `yaml:"portal"`
	Store      StoreConfig      `yaml:"store"`
	Adapter    AdapterConfig    `yaml:"adapter"`
	Logging    LoggingConfig    `yaml:"logging"`
}

// DispatcherConfig controls the message loop.
type DispatcherConfig struct {
	Tick time.Duration `yaml:"tick"` // Period between dispatched messages
}

// ConnectionConfig holds the retry and AP fallback policy.
type ConnectionConfig struct {
	ReconnectLimit int           `yaml:"reconnect_limit"` // Attempts before falling back to AP mode
	ReconnectDelay time.Duration `yaml:"reconnect_delay"` // Flat delay between attempts
	APLifetime     time.Duration `yaml:"ap_lifetime"`     // How long the configuration AP stays up
	ConnectTimeout time.Duration `yaml:"connect_timeout"` // Upper bound for one adapter connect/AP start
}

// PortalConfig controls the configuration HTTP service.
type PortalConfig struct {
	Listen string `yaml:"listen"` // Listen address (e.g. ":80")
	Events bool   `yaml:"events"` // Serve the /events websocket status feed
	MDNS   bool   `yaml:"mdns"`   // Advertise the portal over mDNS while it is bound
}

// StoreConfig selects where the device identity is persisted.
type StoreConfig struct {
	Driver string `yaml:"driver"` // "file" or "bolt"
	Dir    string `yaml:"dir"`    // Directory holding the store (empty = <config dir>/store)
}

// AdapterConfig selects the WiFi adapter.
type AdapterConfig struct {
	Driver    string `yaml:"driver"`    // "networkmanager" or "simulator"
	Interface string `yaml:"interface"` // WiFi interface name (empty = first WiFi device)
}

// LoggingConfig holds logging options.
type LoggingConfig struct {
	Level string `yaml:"level"` // debug, info, warn, error (empty = silent)
}

// Store and adapter driver names
const (
	StoreFile = "file"
	StoreBolt = "bolt"

	AdapterNetworkManager = "networkmanager"
	AdapterSimulator      = "simulator"
)

// Default returns the configuration used when no file exists.
func Default() *Config {
	return &Config{
		Version: CurrentVersion,
		Dispatcher: DispatcherConfig{
			Tick: 500 * time.Millisecond,
		},
		Connection: ConnectionConfig{
			ReconnectLimit: 5,
			ReconnectDelay: 10 * time.Second,
			APLifetime:     5 * time.Minute,
			ConnectTimeout: 30 * time.Second,
		},
		Portal: PortalConfig{
			Listen: ":80",
			Events: false,
			MDNS:   true,
		},
		Store: StoreConfig{
			Driver: StoreFile,
		},
		Adapter: AdapterConfig{
			Driver: AdapterNetworkManager,
		},
	}
}
