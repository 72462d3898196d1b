// Package identity holds the persisted device identity (name and network
// credentials) and the stores that keep it across power cycles.
//
// # Record
//
// The identity is a single JSON record stored under SettingsKey:
//
//	{"name":"Fido","ssid":"home","pass":"secret","appass":"longenough"}
//
// A device whose name is still DefaultName is unconfigured and must go through
// the AP configuration portal before it joins a station network.
//
// # Stores
//
//   - FileStore: one file per key on an afero filesystem, atomic rename on write
//   - BoltStore: a bbolt database with a "settings" bucket
//
// Credentials are stored in clear text; files are created with 0600 permissions.
package identity
