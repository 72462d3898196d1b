// Package config provides runtime configuration for the ZooThing daemon.
//
// This package manages a YAML configuration file holding the connection
// policy (tick period, reconnect limit and delay, AP lifetime), the portal
// listen address and the store and adapter selection. Device credentials are
// not kept here; see package identity.
//
// # Configuration File Location
//
//   - Linux: $XDG_CONFIG_HOME/zoothing/config.yaml or $HOME/.config/zoothing/config.yaml
//   - macOS: $HOME/.config/zoothing/config.yaml
//   - Windows: %LOCALAPPDATA%\zoothing\config.yaml
//
// # Example
//
//	version: 1
//	dispatcher:
//	  tick: 500ms
//	connection:
//	  reconnect_limit: 5
//	  reconnect_delay: 10s
//	  ap_lifetime: 5m
//	portal:
//	  listen: ":80"
//	  mdns: true
//
// # Environment Overrides
//
// ZOOTHING_LOG_LEVEL, ZOOTHING_PORTAL_LISTEN, ZOOTHING_STORE_DIR,
// ZOOTHING_STORE_DRIVER, ZOOTHING_ADAPTER, ZOOTHING_INTERFACE,
// ZOOTHING_RECONNECT_LIMIT and ZOOTHING_AP_LIFETIME override the file.
package config
