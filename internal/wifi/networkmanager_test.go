package wifi

import (
	"testing"

	"github.com/godbus/dbus/v5"
)

func TestStationSettings(t *testing.T) {
	t.Run("secured network", func(t *testing.T) {
		s := stationSettings("home", "secret")

		if got := string(s["802-11-wireless"]["ssid"].Value().([]byte)); got != "home" {
			t.Errorf("ssid = %q, want home", got)
		}
		if got := s["802-11-wireless"]["mode"].Value().(string); got != "infrastructure" {
			t.Errorf("mode = %q, want infrastructure", got)
		}
		sec, ok := s["802-11-wireless-security"]
		if !ok {
			t.Fatal("secured network should carry security settings")
		}
		if sec["key-mgmt"].Value().(string) != "wpa-psk" || sec["psk"].Value().(string) != "secret" {
			t.Errorf("security = %v", sec)
		}
		if s["connection"]["autoconnect"].Value().(bool) {
			t.Error("profiles must not autoconnect")
		}
	})

	t.Run("open network", func(t *testing.T) {
		s := stationSettings("cafe", "")
		if _, ok := s["802-11-wireless-security"]; ok {
			t.Error("open network should not carry security settings")
		}
		if _, ok := s["802-11-wireless"]["security"]; ok {
			t.Error("open network should not reference a security section")
		}
	})

	t.Run("unique uuids", func(t *testing.T) {
		a := stationSettings("x", "")["connection"]["uuid"].Value().(string)
		b := stationSettings("x", "")["connection"]["uuid"].Value().(string)
		if a == b {
			t.Error("each profile should get a fresh uuid")
		}
	})
}

func TestAPSettings(t *testing.T) {
	open := apSettings(APConfigFor("Fido", ""))
	if open["802-11-wireless"]["mode"].Value().(string) != "ap" {
		t.Error("AP profile should use mode ap")
	}
	if open["ipv4"]["method"].Value().(string) != "shared" {
		t.Error("AP profile should share ipv4")
	}
	if _, ok := open["802-11-wireless-security"]; ok {
		t.Error("open AP should not carry security settings")
	}

	secured := apSettings(APConfigFor("Fido", "longenough"))
	sec, ok := secured["802-11-wireless-security"]
	if !ok {
		t.Fatal("WPA2 AP should carry security settings")
	}
	if sec["psk"].Value().(string) != "longenough" {
		t.Errorf("psk = %v, want longenough", sec["psk"].Value())
	}
}

func TestStateChange(t *testing.T) {
	tests := []struct {
		name     string
		body     []any
		wantOK   bool
		wantDrop bool
	}{
		{"activated to disconnected", []any{uint32(30), uint32(100), uint32(36)}, true, true},
		{"activating to activated", []any{uint32(100), uint32(70), uint32(0)}, true, false},
		{"disconnected to prepare", []any{uint32(40), uint32(30), uint32(0)}, true, false},
		{"short body", []any{uint32(30)}, false, false},
		{"wrong types", []any{"30", "100", "0"}, false, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			newState, oldState, _, ok := stateChange(tt.body)
			if ok != tt.wantOK {
				t.Fatalf("stateChange() ok = %v, want %v", ok, tt.wantOK)
			}
			if ok && leftActivated(oldState, newState) != tt.wantDrop {
				t.Errorf("leftActivated() = %v, want %v", !tt.wantDrop, tt.wantDrop)
			}
		})
	}
}

func TestHandleSignalOnlyReportsStationDrops(t *testing.T) {
	dev := dbus.ObjectPath("/org/freedesktop/NetworkManager/Devices/3")
	n := &NetworkManager{device: dev, iface: "wlan0"}

	drops := 0
	n.OnDisconnected(func(string) { drops++ })

	sig := &dbus.Signal{
		Path: dev,
		Name: devIF + ".StateChanged",
		Body: []any{uint32(30), uint32(100), uint32(36)},
	}

	// No station link up: AP teardown must not look like a drop
	n.handleSignal(sig)
	if drops != 0 {
		t.Fatalf("drops = %d, want 0 without an active station", drops)
	}

	n.stationActive = true
	n.handleSignal(sig)
	n.handleSignal(sig)
	if drops != 1 {
		t.Errorf("drops = %d, want exactly 1", drops)
	}

	other := *sig
	other.Path = "/org/freedesktop/NetworkManager/Devices/9"
	n.stationActive = true
	n.handleSignal(&other)
	if drops != 1 {
		t.Errorf("signals for other devices should be ignored, drops = %d", drops)
	}
}

func TestFirstAddress(t *testing.T) {
	addrs := []map[string]dbus.Variant{
		{"prefix": dbus.MakeVariant(uint32(24))},
		{"address": dbus.MakeVariant("192.168.1.50"), "prefix": dbus.MakeVariant(uint32(24))},
	}

	ip, err := firstAddress(addrs)
	if err != nil || ip != "192.168.1.50" {
		t.Errorf("firstAddress() = %q, %v; want 192.168.1.50", ip, err)
	}

	if _, err := firstAddress(nil); err == nil {
		t.Error("firstAddress(nil) should fail")
	}
}

func TestSwapStationProfileTracksOneProfile(t *testing.T) {
	n := &NetworkManager{}

	if prev := n.swapStationProfile("/profiles/1"); prev != "" {
		t.Errorf("first swap returned %q, want none", prev)
	}
	if prev := n.swapStationProfile("/profiles/2"); prev != "/profiles/1" {
		t.Errorf("second swap returned %q, want /profiles/1 for removal", prev)
	}
	if n.stationProfile != "/profiles/2" {
		t.Errorf("stationProfile = %q, want /profiles/2", n.stationProfile)
	}
}

func TestRemoveProfileIgnoresEmptyPath(t *testing.T) {
	// No bus connection: an empty path must not be sent anywhere.
	(&NetworkManager{}).removeProfile("")
}
