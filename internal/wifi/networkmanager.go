package wifi

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/godbus/dbus/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/muurk/zoothing/internal/logging"
)

const (
	nmDest         = "org.freedesktop.NetworkManager"
	nmPath         = "/org/freedesktop/NetworkManager"
	nmSettingsPath = "/org/freedesktop/NetworkManager/Settings"
	propsIF        = "org.freedesktop.DBus.Properties"
	devIF          = "org.freedesktop.NetworkManager.Device"
	settingsIF     = "org.freedesktop.NetworkManager.Settings"
	connIF         = "org.freedesktop.NetworkManager.Settings.Connection"
	activeIF       = "org.freedesktop.NetworkManager.Connection.Active"
	ip4IF          = "org.freedesktop.NetworkManager.IP4Config"

	deviceTypeWifi = 2

	deviceStateActivated = 100

	activeStateActivated   = 2
	activeStateDeactivated = 4

	activationPoll = 250 * time.Millisecond
)

// NetworkManager drives a WiFi device through NetworkManager on the system bus.
type NetworkManager struct {
	conn   *dbus.Conn
	device dbus.ObjectPath
	iface  string

	mu             sync.Mutex
	stationActive  bool
	stationProfile dbus.ObjectPath
	apActive       dbus.ObjectPath
	apProfile      dbus.ObjectPath
	apConfig       APConfig
	onDrop         func(details string)
}

// NewNetworkManager connects to the system bus and binds the WiFi device
// named iface. An empty iface selects the first WiFi device.
func NewNetworkManager(iface string) (*NetworkManager, error) {
	conn, err := dbus.ConnectSystemBus()
	if err != nil {
		return nil, fmt.Errorf("failed to connect to system bus: %w", err)
	}

	device, name, err := findWifiDevice(conn, iface)
	if err != nil {
		_ = conn.Close()
		return nil, err
	}

	nm := &NetworkManager{conn: conn, device: device, iface: name}

	if err := nm.watchDevice(); err != nil {
		_ = conn.Close()
		return nil, err
	}

	logging.Info("NetworkManager adapter ready",
		zap.String("interface", name),
		zap.String("device", string(device)),
	)
	return nm, nil
}

// Close releases the bus connection and stops the disconnect watcher
func (n *NetworkManager) Close() error {
	return n.conn.Close()
}

func getProps(obj dbus.BusObject, iface string) (map[string]dbus.Variant, error) {
	var props map[string]dbus.Variant
	if err := obj.Call(propsIF+".GetAll", 0, iface).Store(&props); err != nil {
		return nil, err
	}
	return props, nil
}

func findWifiDevice(conn *dbus.Conn, iface string) (dbus.ObjectPath, string, error) {
	nm := conn.Object(nmDest, nmPath)

	var devs []dbus.ObjectPath
	if err := nm.Call(nmDest+".GetDevices", 0).Store(&devs); err != nil {
		return "", "", fmt.Errorf("failed to list NetworkManager devices: %w", err)
	}

	for _, d := range devs {
		props, err := getProps(conn.Object(nmDest, d), devIF)
		if err != nil {
			continue
		}
		if t, _ := props["DeviceType"].Value().(uint32); t != deviceTypeWifi {
			continue
		}
		name, _ := props["Interface"].Value().(string)
		if iface == "" || iface == name {
			return d, name, nil
		}
	}

	if iface != "" {
		return "", "", fmt.Errorf("wifi interface %s not found", iface)
	}
	return "", "", errors.New("no wifi device found")
}

// stationSettings builds an infrastructure-mode connection profile.
func stationSettings(ssid, passphrase string) map[string]map[string]dbus.Variant {
	settings := map[string]map[string]dbus.Variant{
		"connection": {
			"id":          dbus.MakeVariant("zoothing-" + ssid),
			"uuid":        dbus.MakeVariant(uuid.NewString()),
			"type":        dbus.MakeVariant("802-11-wireless"),
			"autoconnect": dbus.MakeVariant(false),
		},
		"802-11-wireless": {
			"ssid": dbus.MakeVariant([]byte(ssid)),
			"mode": dbus.MakeVariant("infrastructure"),
		},
		"ipv4": {"method": dbus.MakeVariant("auto")},
		"ipv6": {"method": dbus.MakeVariant("auto")},
	}

	if passphrase != "" {
		settings["802-11-wireless"]["security"] = dbus.MakeVariant("802-11-wireless-security")
		settings["802-11-wireless-security"] = map[string]dbus.Variant{
			"key-mgmt": dbus.MakeVariant("wpa-psk"),
			"psk":      dbus.MakeVariant(passphrase),
		}
	}
	return settings
}

// apSettings builds an access point profile sharing the device address
// with AP clients.
func apSettings(cfg APConfig) map[string]map[string]dbus.Variant {
	settings := map[string]map[string]dbus.Variant{
		"connection": {
			"id":          dbus.MakeVariant("zoothing-ap"),
			"uuid":        dbus.MakeVariant(uuid.NewString()),
			"type":        dbus.MakeVariant("802-11-wireless"),
			"autoconnect": dbus.MakeVariant(false),
		},
		"802-11-wireless": {
			"ssid": dbus.MakeVariant([]byte(cfg.SSID)),
			"mode": dbus.MakeVariant("ap"),
		},
		"ipv4": {"method": dbus.MakeVariant("shared")},
		"ipv6": {"method": dbus.MakeVariant("ignore")},
	}

	if cfg.AuthMode == AuthWPA2 {
		settings["802-11-wireless"]["security"] = dbus.MakeVariant("802-11-wireless-security")
		settings["802-11-wireless-security"] = map[string]dbus.Variant{
			"key-mgmt": dbus.MakeVariant("wpa-psk"),
			"proto":    dbus.MakeVariant([]string{"rsn"}),
			"psk":      dbus.MakeVariant(cfg.Passphrase),
		}
	}
	return settings
}

// activate adds the profile, activates it on our device and waits until the
// activation settles.
func (n *NetworkManager) activate(ctx context.Context, op string, settings map[string]map[string]dbus.Variant) (profile, active dbus.ObjectPath, err error) {
	nm := n.conn.Object(nmDest, nmPath)
	call := nm.CallWithContext(ctx, nmDest+".AddAndActivateConnection", 0, settings, n.device, dbus.ObjectPath("/"))
	if call.Err != nil {
		return "", "", &AdapterError{Op: op, Err: call.Err, Retryable: true}
	}
	if err := call.Store(&profile, &active); err != nil {
		return "", "", &AdapterError{Op: op, Err: fmt.Errorf("could not read activation result: %w", err)}
	}

	if err := n.waitActivated(ctx, active); err != nil {
		n.removeProfile(profile)
		return "", "", &AdapterError{Op: op, Err: err, Retryable: true}
	}
	return profile, active, nil
}

func (n *NetworkManager) waitActivated(ctx context.Context, active dbus.ObjectPath) error {
	obj := n.conn.Object(nmDest, active)
	ticker := time.NewTicker(activationPoll)
	defer ticker.Stop()

	for {
		v, err := obj.GetProperty(activeIF + ".State")
		if err != nil {
			// The active connection object vanishes when activation fails
			return fmt.Errorf("activation aborted: %w", err)
		}
		switch state, _ := v.Value().(uint32); state {
		case activeStateActivated:
			return nil
		case activeStateDeactivated:
			return errors.New("activation failed")
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

func (n *NetworkManager) removeProfile(profile dbus.ObjectPath) {
	if profile == "" {
		return
	}
	if err := n.conn.Object(nmDest, profile).Call(connIF+".Delete", 0).Err; err != nil {
		logging.Debug("Failed to delete connection profile",
			zap.String("profile", string(profile)),
			zap.Error(err),
		)
	}
}

// SetHostname implements Adapter
func (n *NetworkManager) SetHostname(ctx context.Context, name string) error {
	settings := n.conn.Object(nmDest, nmSettingsPath)
	if err := settings.CallWithContext(ctx, settingsIF+".SaveHostname", 0, name).Err; err != nil {
		return &AdapterError{Op: "set_hostname", Err: err}
	}
	return nil
}

// Connect implements Adapter
func (n *NetworkManager) Connect(ctx context.Context, ssid, passphrase string) error {
	n.mu.Lock()
	// Switching networks deactivates the old link; that is not a drop.
	n.stationActive = false
	previous := n.swapStationProfile("")
	n.mu.Unlock()

	// Each attempt adds a fresh profile, so drop the one it replaces.
	n.removeProfile(previous)

	profile, _, err := n.activate(ctx, "connect", stationSettings(ssid, passphrase))
	if err != nil {
		return err
	}

	n.mu.Lock()
	n.stationActive = true
	stale := n.swapStationProfile(profile)
	n.mu.Unlock()
	n.removeProfile(stale)
	return nil
}

// swapStationProfile records next as the station profile and returns the one
// it replaces. Callers hold n.mu.
func (n *NetworkManager) swapStationProfile(next dbus.ObjectPath) dbus.ObjectPath {
	previous := n.stationProfile
	n.stationProfile = next
	return previous
}

// StopAP implements Adapter
func (n *NetworkManager) StopAP(ctx context.Context) error {
	n.mu.Lock()
	active, profile := n.apActive, n.apProfile
	n.apActive, n.apProfile = "", ""
	n.apConfig = APConfig{}
	n.mu.Unlock()

	if active == "" {
		return nil
	}

	nm := n.conn.Object(nmDest, nmPath)
	err := nm.CallWithContext(ctx, nmDest+".DeactivateConnection", 0, active).Err
	n.removeProfile(profile)
	if err != nil {
		return &AdapterError{Op: "stop_ap", Err: err}
	}
	return nil
}

// StartAP implements Adapter
func (n *NetworkManager) StartAP(ctx context.Context, cfg APConfig) error {
	if err := cfg.Validate(); err != nil {
		return err
	}

	n.mu.Lock()
	n.stationActive = false
	n.mu.Unlock()

	profile, active, err := n.activate(ctx, "start_ap", apSettings(cfg))
	if err != nil {
		return err
	}

	n.mu.Lock()
	n.apActive, n.apProfile, n.apConfig = active, profile, cfg
	n.mu.Unlock()
	return nil
}

// APDetails implements Adapter
func (n *NetworkManager) APDetails() APDetails {
	n.mu.Lock()
	cfg, running := n.apConfig, n.apActive != ""
	n.mu.Unlock()

	if !running {
		return APDetails{}
	}
	ip, _ := n.IP(context.Background())
	return APDetails{SSID: cfg.SSID, Passphrase: cfg.Passphrase, IP: ip}
}

// IP implements Adapter
func (n *NetworkManager) IP(ctx context.Context) (string, error) {
	dev := n.conn.Object(nmDest, n.device)
	v, err := dev.GetProperty(devIF + ".Ip4Config")
	if err != nil {
		return "", &AdapterError{Op: "get_ip", Err: err}
	}
	cfgPath, _ := v.Value().(dbus.ObjectPath)
	if cfgPath == "" || cfgPath == "/" {
		return "", &AdapterError{Op: "get_ip", Err: errors.New("no IPv4 configuration")}
	}

	var addrs []map[string]dbus.Variant
	call := n.conn.Object(nmDest, cfgPath).CallWithContext(ctx, propsIF+".Get", 0, ip4IF, "AddressData")
	if err := call.Store(&addrs); err != nil {
		return "", &AdapterError{Op: "get_ip", Err: err}
	}
	return firstAddress(addrs)
}

func firstAddress(addrs []map[string]dbus.Variant) (string, error) {
	for _, a := range addrs {
		if v, ok := a["address"]; ok {
			if s, ok := v.Value().(string); ok && s != "" {
				return s, nil
			}
		}
	}
	return "", &AdapterError{Op: "get_ip", Err: errors.New("no IPv4 address assigned")}
}

// Hostname implements Adapter
func (n *NetworkManager) Hostname(context.Context) (string, error) {
	v, err := n.conn.Object(nmDest, nmSettingsPath).GetProperty(settingsIF + ".Hostname")
	if err != nil {
		return "", &AdapterError{Op: "get_hostname", Err: err}
	}
	name, _ := v.Value().(string)
	return name, nil
}

// OnDisconnected implements Adapter
func (n *NetworkManager) OnDisconnected(fn func(details string)) {
	n.mu.Lock()
	n.onDrop = fn
	n.mu.Unlock()
}

func (n *NetworkManager) watchDevice() error {
	err := n.conn.AddMatchSignal(
		dbus.WithMatchObjectPath(n.device),
		dbus.WithMatchInterface(devIF),
		dbus.WithMatchMember("StateChanged"),
	)
	if err != nil {
		return fmt.Errorf("failed to subscribe to device state: %w", err)
	}

	signals := make(chan *dbus.Signal, 16)
	n.conn.Signal(signals)

	go func() {
		// The channel is closed when the bus connection closes.
		for sig := range signals {
			n.handleSignal(sig)
		}
	}()
	return nil
}

func (n *NetworkManager) handleSignal(sig *dbus.Signal) {
	if sig.Path != n.device || sig.Name != devIF+".StateChanged" {
		return
	}
	newState, oldState, reason, ok := stateChange(sig.Body)
	if !ok || !leftActivated(oldState, newState) {
		return
	}

	n.mu.Lock()
	wasStation := n.stationActive
	n.stationActive = false
	fn := n.onDrop
	n.mu.Unlock()

	if wasStation && fn != nil {
		fn(fmt.Sprintf("device %s state %d -> %d (reason %d)", n.iface, oldState, newState, reason))
	}
}

func stateChange(body []any) (newState, oldState, reason uint32, ok bool) {
	if len(body) < 3 {
		return 0, 0, 0, false
	}
	newState, ok1 := body[0].(uint32)
	oldState, ok2 := body[1].(uint32)
	reason, ok3 := body[2].(uint32)
	return newState, oldState, reason, ok1 && ok2 && ok3
}

func leftActivated(oldState, newState uint32) bool {
	return oldState == deviceStateActivated && newState != deviceStateActivated
}
