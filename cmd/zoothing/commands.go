package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/term"

	"github.com/muurk/zoothing/internal/config"
	"github.com/muurk/zoothing/internal/discovery"
	"github.com/muurk/zoothing/internal/identity"
	"github.com/muurk/zoothing/internal/logging"
	"github.com/muurk/zoothing/internal/portal"
	"github.com/muurk/zoothing/internal/wifi"
	"github.com/muurk/zoothing/internal/wizard/tui"
	"github.com/muurk/zoothing/internal/zoo"
)

// boltFile is the database file name inside the store directory
const boltFile = "zoothing.db"

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

func init() {
	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(identityCmd)
	rootCmd.AddCommand(pushCmd)
	rootCmd.AddCommand(scanCmd)
}

// loadConfig reads the config file and applies the global flags.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}
	if logLevel != "" {
		cfg.Logging.Level = logLevel
	}
	if err := logging.Initialize(cfg.Logging.Level); err != nil {
		return nil, fmt.Errorf("failed to initialize logging: %w", err)
	}
	return cfg, nil
}

// openStore opens the identity store selected by cfg.
func openStore(cfg *config.Config) (identity.Store, io.Closer, error) {
	switch cfg.Store.Driver {
	case config.StoreBolt:
		if err := os.MkdirAll(cfg.Store.Dir, 0700); err != nil {
			return nil, nil, fmt.Errorf("failed to create store directory: %w", err)
		}
		store, err := identity.OpenBoltStore(filepath.Join(cfg.Store.Dir, boltFile))
		if err != nil {
			return nil, nil, err
		}
		return store, store, nil
	default:
		return identity.NewFileStore(afero.NewOsFs(), cfg.Store.Dir), nopCloser{}, nil
	}
}

// readSecret prompts for a secret on the terminal without echo.
func readSecret(prompt string) (string, error) {
	fd := int(os.Stdin.Fd())
	if !term.IsTerminal(fd) {
		return "", errors.New("stdin is not a terminal; pass the value as a flag")
	}

	fmt.Fprint(os.Stderr, prompt)
	secret, err := term.ReadPassword(fd)
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return "", fmt.Errorf("failed to read %s: %w", strings.TrimSuffix(strings.ToLower(prompt), ": "), err)
	}
	return string(secret), nil
}

// Run command flags
var (
	simulate    bool
	iface       string
	simNetworks []string
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the connection manager",
	Long: `Run the connection manager until interrupted.

On start the stored identity is loaded. A device that still carries the
default name goes straight to configuration mode: it starts an access point
named after the device and serves the settings portal. A configured device
joins its station network, retrying a bounded number of times before falling
back to configuration mode.

With --simulate the WiFi radio is replaced by an in-memory simulator, which
is useful for trying the portal on a development machine.`,
	Example: `  # Run against NetworkManager on the first WiFi device
  sudo zoothing run

  # Run on a specific interface with debug logging
  sudo zoothing run --iface wlan1 --log-level debug

  # Try the portal locally with a simulated radio
  zoothing run --simulate --sim-network home:secret`,
	RunE: runRun,
}

func init() {
	runCmd.Flags().BoolVar(&simulate, "simulate", false, "Use the in-memory WiFi simulator")
	runCmd.Flags().StringVar(&iface, "iface", "", "WiFi interface (overrides config)")
	runCmd.Flags().StringSliceVar(&simNetworks, "sim-network", nil, "Reachable simulated network as ssid:passphrase (repeatable)")
}

func openAdapter(cfg *config.Config) (wifi.Adapter, io.Closer, error) {
	if cfg.Adapter.Driver == config.AdapterSimulator {
		sim := wifi.NewSimulator()
		for _, network := range simNetworks {
			ssid, pass, ok := strings.Cut(network, ":")
			if !ok || ssid == "" {
				return nil, nil, fmt.Errorf("invalid --sim-network %q (want ssid:passphrase)", network)
			}
			sim.AddNetwork(ssid, pass)
		}
		return sim, nopCloser{}, nil
	}

	nm, err := wifi.NewNetworkManager(cfg.Adapter.Interface)
	if err != nil {
		return nil, nil, err
	}
	return nm, nm, nil
}

func runRun(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if simulate {
		cfg.Adapter.Driver = config.AdapterSimulator
	}
	if iface != "" {
		cfg.Adapter.Interface = iface
	}
	defer logging.Sync()
	// net/http reports listener errors through the standard logger
	defer zap.RedirectStdLog(logging.GetLogger())()

	store, closeStore, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer closeStore.Close()

	adapter, closeAdapter, err := openAdapter(cfg)
	if err != nil {
		return fmt.Errorf("failed to open WiFi adapter: %w", err)
	}
	defer closeAdapter.Close()

	m, err := zoo.New(zoo.Options{
		Adapter: adapter,
		Store:   store,
		Portal: portal.Opener(portal.Config{
			Listen: cfg.Portal.Listen,
			Events: cfg.Portal.Events,
			MDNS:   cfg.Portal.MDNS,
		}),
		Tick:           cfg.Dispatcher.Tick,
		ReconnectLimit: cfg.Connection.ReconnectLimit,
		ReconnectDelay: cfg.Connection.ReconnectDelay,
		APLifetime:     cfg.Connection.APLifetime,
		ConnectTimeout: cfg.Connection.ConnectTimeout,
	})
	if err != nil {
		return fmt.Errorf("failed to create connection manager: %w", err)
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	fmt.Printf("ZooThing connection manager running (adapter: %s, portal: %s)\n", cfg.Adapter.Driver, cfg.Portal.Listen)
	fmt.Println("Press Ctrl+C to stop")

	m.Start(ctx,
		func() {
			st := m.Status()
			logging.Info("Station connected", zap.String("name", st.Name))
			fmt.Printf("Connected as %s\n", st.Name)
		},
		func() {
			logging.Info("Station disconnected")
		},
	)

	<-ctx.Done()
	fmt.Println("\nShutting down...")
	m.Stop()
	return nil
}

var identityCmd = &cobra.Command{
	Use:   "identity",
	Short: "Show or change the stored device identity",
	Long: `Show or change the device name and network credentials kept in the store.

Changes take effect the next time the connection manager starts.`,
}

// Identity command flags
var (
	revealSecrets bool
	setName       string
	setSSID       string
	setPass       string
	setAPPass     string
)

var identityShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the stored identity",
	RunE:  runIdentityShow,
}

var identitySetCmd = &cobra.Command{
	Use:   "set",
	Short: "Change the stored identity",
	Long: `Change the stored identity. Fields that are not given keep their value.

The AP passphrase must be empty (open access point) or at least 8 characters.
Use --pass - or --appass - to be prompted without echo.`,
	Example: `  # Name the device and set its network
  zoothing identity set --name Fido --ssid home --pass -

  # Secure the configuration access point
  zoothing identity set --appass -`,
	RunE: runIdentitySet,
}

func init() {
	identityShowCmd.Flags().BoolVar(&revealSecrets, "reveal", false, "Print passphrases in clear text")

	identitySetCmd.Flags().StringVar(&setName, "name", "", "Device name")
	identitySetCmd.Flags().StringVar(&setSSID, "ssid", "", "Station network SSID")
	identitySetCmd.Flags().StringVar(&setPass, "pass", "", "Station passphrase (- to prompt)")
	identitySetCmd.Flags().StringVar(&setAPPass, "appass", "", "AP passphrase (- to prompt, empty for an open AP)")

	identityCmd.AddCommand(identityShowCmd)
	identityCmd.AddCommand(identitySetCmd)
}

func runIdentityShow(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	store, closer, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer closer.Close()

	id, found, err := identity.Load(store)
	if err != nil {
		return err
	}

	secret := logging.Redact
	if revealSecrets {
		secret = func(s string) string { return s }
	}

	if !found {
		fmt.Println("No stored identity, defaults apply:")
	}
	fmt.Printf("  Name:          %s\n", id.Name)
	fmt.Printf("  SSID:          %s\n", id.SSID)
	fmt.Printf("  Passphrase:    %s\n", secret(id.Passphrase))
	fmt.Printf("  AP passphrase: %s\n", secret(id.APPassphrase))
	if !id.Configured() {
		fmt.Println("\nThe device is unconfigured and will start in configuration mode.")
	}
	return nil
}

// promptIfDash replaces "-" with a terminal prompt.
func promptIfDash(value, prompt string) (string, error) {
	if value != "-" {
		return value, nil
	}
	return readSecret(prompt)
}

func runIdentitySet(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	store, closer, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer closer.Close()

	id, _, err := identity.Load(store)
	if err != nil {
		return err
	}

	flags := cmd.Flags()
	if flags.Changed("name") {
		if setName == "" {
			return errors.New("--name must not be empty")
		}
		id.Name = setName
	}
	if flags.Changed("ssid") {
		id.SSID = setSSID
	}
	if flags.Changed("pass") {
		if id.Passphrase, err = promptIfDash(setPass, "Station passphrase: "); err != nil {
			return err
		}
	}
	if flags.Changed("appass") {
		appass, err := promptIfDash(setAPPass, "AP passphrase: ")
		if err != nil {
			return err
		}
		if err := identity.ValidateAPPassphrase(appass); err != nil {
			return err
		}
		id.APPassphrase = appass
	}

	if err := identity.Save(store, id); err != nil {
		return err
	}
	fmt.Printf("Identity saved (name: %s, ssid: %s)\n", id.Name, id.SSID)
	return nil
}

// Push command flags
var (
	pushURL     string
	pushDevice  string
	pushName    string
	pushSSID    string
	pushPass    string
	pushAPPass  string
	scanTimeout int
)

var pushCmd = &cobra.Command{
	Use:   "push",
	Short: "Configure a device through its portal",
	Long: `Submit a name and network credentials to a device in configuration mode.

Join the device access point first. Without --url the device is located over
mDNS, by --device name when given, otherwise the first device found.`,
	Example: `  # Configure the only device in range
  zoothing push --name Fido --ssid home --pass -

  # Configure a known portal address
  zoothing push --url http://192.168.4.1 --name Fido --ssid home --pass secret`,
	RunE: runPush,
}

func init() {
	pushCmd.Flags().StringVar(&pushURL, "url", "", "Portal base URL (skips discovery)")
	pushCmd.Flags().StringVar(&pushDevice, "device", "", "Name of the device to discover")
	pushCmd.Flags().StringVar(&pushName, "name", "", "New device name")
	pushCmd.Flags().StringVar(&pushSSID, "ssid", "", "Station network SSID")
	pushCmd.Flags().StringVar(&pushPass, "pass", "", "Station passphrase (- to prompt)")
	pushCmd.Flags().StringVar(&pushAPPass, "appass", "", "AP passphrase (- to prompt, empty for an open AP)")
	pushCmd.Flags().IntVar(&scanTimeout, "timeout", 10, "Discovery timeout in seconds")
	_ = pushCmd.MarkFlagRequired("name")
	_ = pushCmd.MarkFlagRequired("ssid")
}

func locatePortal(ctx context.Context) (string, error) {
	if pushURL != "" {
		return pushURL, nil
	}

	scanner := discovery.NewScanner()
	scanner.Timeout = time.Duration(scanTimeout) * time.Second

	if pushDevice != "" {
		device, err := scanner.Find(ctx, pushDevice)
		if err != nil {
			return "", err
		}
		return device.BaseURL(), nil
	}

	devices, err := scanner.Scan(ctx)
	if err != nil {
		return "", fmt.Errorf("scan failed: %w", err)
	}
	switch len(devices) {
	case 0:
		return "", errors.New("no device in configuration mode found; join its access point or pass --url")
	case 1:
		return devices[0].BaseURL(), nil
	default:
		return "", fmt.Errorf("found %d devices; choose one with --device", len(devices))
	}
}

func runPush(cmd *cobra.Command, args []string) error {
	if _, err := loadConfig(); err != nil {
		return err
	}

	pass, err := promptIfDash(pushPass, "Station passphrase: ")
	if err != nil {
		return err
	}
	appass, err := promptIfDash(pushAPPass, "AP passphrase: ")
	if err != nil {
		return err
	}
	if err := identity.ValidateAPPassphrase(appass); err != nil {
		return err
	}

	ctx := cmd.Context()
	baseURL, err := locatePortal(ctx)
	if err != nil {
		return err
	}

	fmt.Printf("Configuring %s...\n", baseURL)
	client := portal.NewClient(baseURL)
	resp, err := client.Push(ctx, identity.Submission{
		Name:         pushName,
		SSID:         pushSSID,
		Passphrase:   pass,
		APPassphrase: appass,
	})
	if err != nil {
		return fmt.Errorf("push failed: %w", err)
	}

	fmt.Println(resp)
	return nil
}

var scanCmd = &cobra.Command{
	Use:   "scan",
	Short: "Find devices in configuration mode",
	Long: `Scan for devices in configuration mode using mDNS/DNS-SD discovery.

A device advertises its portal while its access point is up. Join the device
access point before scanning.`,
	Example: `  # Scan for 10 seconds (default)
  zoothing scan

  # Quick 3-second scan
  zoothing scan --timeout 3`,
	RunE: runScan,
}

func init() {
	scanCmd.Flags().IntVar(&scanTimeout, "timeout", 10, "Scan timeout in seconds")
}

func runScan(cmd *cobra.Command, args []string) error {
	if _, err := loadConfig(); err != nil {
		return err
	}

	fmt.Printf("Scanning for ZooThing devices (timeout: %ds)...\n\n", scanTimeout)

	devices, err := discovery.Scan(cmd.Context(), time.Duration(scanTimeout)*time.Second)
	if err != nil {
		return fmt.Errorf("scan failed: %w", err)
	}

	if len(devices) == 0 {
		fmt.Println("No devices found.")
		fmt.Println("\nTroubleshooting:")
		fmt.Println("  - Ensure the device is in configuration mode (its access point is up)")
		fmt.Println("  - Verify your computer is connected to the device's WiFi")
		fmt.Println("  - Try increasing --timeout for slower networks")
		fmt.Println("  - Use 'zoothing push --url' to address the portal directly")
		return nil
	}

	fmt.Printf("Found %d device(s):\n\n", len(devices))
	for i, device := range devices {
		fmt.Printf("%d. %s\n", i+1, device.Name)
		fmt.Printf("   Version: %s\n", device.Version)
		fmt.Printf("   Portal:  %s\n", device.PortalURL())
		fmt.Println()
	}

	fmt.Println("Use 'zoothing push --device <name>' to configure a device")
	return nil
}

var wizardURL string

var wizardCmd = &cobra.Command{
	Use:   "wizard",
	Short: "Configure a device interactively",
	Long: `Start the interactive setup wizard.

The wizard scans for devices in configuration mode, lets you pick one and
collects the name and network credentials to push to its portal. Join the
device access point first.`,
	Example: `  # Scan, then configure
  zoothing wizard

  # Skip discovery
  zoothing wizard --url http://192.168.4.1`,
	RunE: runWizard,
}

func init() {
	wizardCmd.Flags().StringVar(&wizardURL, "url", "", "Portal base URL (skips discovery)")
	wizardCmd.Flags().IntVar(&scanTimeout, "timeout", 10, "Scan timeout in seconds")
	rootCmd.AddCommand(wizardCmd)
}

func wizardScan(ctx context.Context) ([]*discovery.Device, error) {
	return discovery.Scan(ctx, time.Duration(scanTimeout)*time.Second)
}

func wizardPush(ctx context.Context, baseURL string, sub identity.Submission) (string, error) {
	return portal.NewClient(baseURL).Push(ctx, sub)
}

func runWizard(cmd *cobra.Command, args []string) error {
	if _, err := loadConfig(); err != nil {
		return err
	}

	var device *discovery.Device
	if wizardURL != "" {
		d, err := tui.DeviceFromAddress(wizardURL)
		if err != nil {
			return err
		}
		device = d
	}

	model := tui.NewAppModel(cmd.Context(), wizardScan, wizardPush, device)
	if _, err := tea.NewProgram(model).Run(); err != nil {
		return fmt.Errorf("wizard error: %w", err)
	}
	return nil
}
