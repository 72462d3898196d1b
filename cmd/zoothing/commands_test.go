package main

import (
	"context"
	"testing"

	"github.com/muurk/zoothing/internal/config"
	"github.com/muurk/zoothing/internal/identity"
	"github.com/muurk/zoothing/internal/wifi"
)

func TestOpenStoreDrivers(t *testing.T) {
	for _, driver := range []string{config.StoreFile, config.StoreBolt} {
		t.Run(driver, func(t *testing.T) {
			cfg := config.Default()
			cfg.Store.Driver = driver
			cfg.Store.Dir = t.TempDir()

			store, closer, err := openStore(cfg)
			if err != nil {
				t.Fatalf("openStore() error = %v", err)
			}
			defer closer.Close()

			want := identity.DeviceIdentity{Name: "Fido", SSID: "home", Passphrase: "secret"}
			if err := identity.Save(store, want); err != nil {
				t.Fatalf("Save() error = %v", err)
			}
			got, found, err := identity.Load(store)
			if err != nil || !found || got != want {
				t.Errorf("Load() = %+v, %v, %v", got, found, err)
			}
		})
	}
}

func TestOpenSimulatedAdapter(t *testing.T) {
	cfg := config.Default()
	cfg.Adapter.Driver = config.AdapterSimulator

	simNetworks = []string{"home:secret"}
	defer func() { simNetworks = nil }()

	adapter, closer, err := openAdapter(cfg)
	if err != nil {
		t.Fatalf("openAdapter() error = %v", err)
	}
	defer closer.Close()

	sim, ok := adapter.(*wifi.Simulator)
	if !ok {
		t.Fatalf("adapter = %T, want *wifi.Simulator", adapter)
	}
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	if err := sim.Connect(ctx, "home", "secret"); err != nil {
		t.Errorf("Connect() to --sim-network error = %v", err)
	}
}

func TestOpenSimulatedAdapterRejectsBadNetwork(t *testing.T) {
	cfg := config.Default()
	cfg.Adapter.Driver = config.AdapterSimulator

	simNetworks = []string{"no-separator"}
	defer func() { simNetworks = nil }()

	if _, _, err := openAdapter(cfg); err == nil {
		t.Error("openAdapter() should reject a network without ':'")
	}
}

func TestWizardCommandRegistered(t *testing.T) {
	cmd, _, err := rootCmd.Find([]string{"wizard"})
	if err != nil {
		t.Fatalf("Find(wizard) error = %v", err)
	}
	if cmd != wizardCmd {
		t.Fatalf("Find(wizard) = %s, want the wizard command", cmd.Name())
	}
	for _, name := range []string{"url", "timeout"} {
		if cmd.Flags().Lookup(name) == nil {
			t.Errorf("wizard has no --%s flag", name)
		}
	}
}
