package tui

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/muurk/zoothing/internal/discovery"
)

// ScanFunc browses for devices in configuration mode.
type ScanFunc func(ctx context.Context) ([]*discovery.Device, error)

type scanCompleteMsg struct {
	devices []*discovery.Device
	err     error
}

type discoveryKeyMap struct {
	Up     key.Binding
	Down   key.Binding
	Enter  key.Binding
	Rescan key.Binding
	Manual key.Binding
	Quit   key.Binding
}

func (k discoveryKeyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Up, k.Down, k.Enter, k.Rescan, k.Manual, k.Quit}
}

func (k discoveryKeyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{{k.Up, k.Down, k.Enter}, {k.Rescan, k.Manual, k.Quit}}
}

type manualKeyMap struct {
	Confirm key.Binding
	Cancel  key.Binding
}

func (k manualKeyMap) ShortHelp() []key.Binding { return []key.Binding{k.Confirm, k.Cancel} }

func (k manualKeyMap) FullHelp() [][]key.Binding { return [][]key.Binding{k.ShortHelp()} }

// deviceItem wraps a Device for bubbles/list
type deviceItem struct {
	device *discovery.Device
}

func (d deviceItem) FilterValue() string { return d.device.Name + " " + d.device.IP }

type deviceDelegate struct{}

func (deviceDelegate) Height() int { return 2 }

func (deviceDelegate) Spacing() int { return 1 }

func (deviceDelegate) Update(tea.Msg, *list.Model) tea.Cmd { return nil }

func (deviceDelegate) Render(w io.Writer, m list.Model, index int, item list.Item) {
	d, ok := item.(deviceItem)
	if !ok {
		return
	}
	version := d.device.Version
	if version == "" {
		version = "unknown"
	}

	title := "  " + d.device.Name
	if index == m.Index() {
		title = SelectedItemStyle.Render("→ " + d.device.Name)
	}
	fmt.Fprintf(w, "%s\n    %s", title, SubtitleStyle.Render(fmt.Sprintf("%s • version %s", d.device.PortalURL(), version)))
}

// DiscoveryModel lists the devices whose portal is up and lets the operator
// pick one, or type a portal address by hand.
type DiscoveryModel struct {
	scan ScanFunc
	ctx  context.Context

	Scanning   bool
	DeviceList list.Model
	Selected   *discovery.Device
	Err        error

	ManualMode bool
	URLInput   textinput.Model

	Width      int
	Spinner    spinner.Model
	Help       help.Model
	Keys       discoveryKeyMap
	ManualKeys manualKeyMap
}

// NewDiscoveryModel creates a discovery screen that scans as soon as it starts.
func NewDiscoveryModel(ctx context.Context, scan ScanFunc) DiscoveryModel {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = SpinnerStyle

	input := textinput.New()
	input.Placeholder = "192.168.4.1"
	input.CharLimit = 64
	input.Width = 40

	devices := list.New([]list.Item{}, deviceDelegate{}, MinTerminalWidth, 12)
	devices.Title = "Devices in configuration mode"
	devices.Styles.Title = TitleStyle
	devices.SetShowStatusBar(false)
	devices.SetShowHelp(false)
	devices.SetFilteringEnabled(false)

	return DiscoveryModel{
		scan:       scan,
		ctx:        ctx,
		Scanning:   true,
		DeviceList: devices,
		URLInput:   input,
		Spinner:    s,
		Help:       help.New(),
		Keys: discoveryKeyMap{
			Up:     key.NewBinding(key.WithKeys("up", "k"), key.WithHelp("↑/k", "up")),
			Down:   key.NewBinding(key.WithKeys("down", "j"), key.WithHelp("↓/j", "down")),
			Enter:  key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "configure")),
			Rescan: key.NewBinding(key.WithKeys("r"), key.WithHelp("r", "rescan")),
			Manual: key.NewBinding(key.WithKeys("m"), key.WithHelp("m", "enter address")),
			Quit:   key.NewBinding(key.WithKeys("q", "esc"), key.WithHelp("q", "quit")),
		},
		ManualKeys: manualKeyMap{
			Confirm: key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "confirm")),
			Cancel:  key.NewBinding(key.WithKeys("esc"), key.WithHelp("esc", "cancel")),
		},
	}
}

// Init starts the first scan
func (m DiscoveryModel) Init() tea.Cmd {
	return tea.Batch(m.scanCmd(), m.Spinner.Tick)
}

func (m DiscoveryModel) scanCmd() tea.Cmd {
	scan, ctx := m.scan, m.ctx
	return func() tea.Msg {
		devices, err := scan(ctx)
		return scanCompleteMsg{devices: devices, err: err}
	}
}

// Update handles messages for the discovery screen. quit reports that the
// operator asked to leave the wizard.
func (m DiscoveryModel) Update(msg tea.Msg) (model DiscoveryModel, cmd tea.Cmd, quit bool) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		if m.ManualMode {
			m, cmd = m.updateManual(msg)
			return m, cmd, false
		}
		return m.updateList(msg)

	case tea.WindowSizeMsg:
		m.Width = msg.Width
		m.DeviceList.SetWidth(msg.Width - 8)

	case scanCompleteMsg:
		m.Scanning = false
		m.Err = msg.err
		items := make([]list.Item, len(msg.devices))
		for i, d := range msg.devices {
			items[i] = deviceItem{device: d}
		}
		cmd = m.DeviceList.SetItems(items)
		return m, cmd, false

	case spinner.TickMsg:
		if m.Scanning {
			m.Spinner, cmd = m.Spinner.Update(msg)
		}
		return m, cmd, false
	}
	return m, nil, false
}

func (m DiscoveryModel) updateList(msg tea.KeyMsg) (DiscoveryModel, tea.Cmd, bool) {
	switch {
	case key.Matches(msg, m.Keys.Quit):
		return m, nil, true

	case key.Matches(msg, m.Keys.Manual):
		m.ManualMode = true
		m.URLInput.SetValue("")
		cmd := m.URLInput.Focus()
		return m, cmd, false

	case m.Scanning:
		return m, nil, false

	case key.Matches(msg, m.Keys.Rescan):
		m.Scanning = true
		m.Err = nil
		cmd := m.DeviceList.SetItems(nil)
		return m, tea.Batch(cmd, m.scanCmd(), m.Spinner.Tick), false

	case key.Matches(msg, m.Keys.Enter):
		if item, ok := m.DeviceList.SelectedItem().(deviceItem); ok {
			m.Selected = item.device
		}
		return m, nil, false
	}

	var cmd tea.Cmd
	m.DeviceList, cmd = m.DeviceList.Update(msg)
	return m, cmd, false
}

func (m DiscoveryModel) updateManual(msg tea.KeyMsg) (DiscoveryModel, tea.Cmd) {
	switch {
	case key.Matches(msg, m.ManualKeys.Cancel):
		m.ManualMode = false
		m.Err = nil
		m.URLInput.Blur()
		return m, nil

	case key.Matches(msg, m.ManualKeys.Confirm):
		device, err := DeviceFromAddress(m.URLInput.Value())
		if err != nil {
			m.Err = err
			return m, nil
		}
		m.ManualMode = false
		m.Err = nil
		m.URLInput.Blur()
		m.Selected = device
		return m, nil
	}

	var cmd tea.Cmd
	m.URLInput, cmd = m.URLInput.Update(msg)
	return m, cmd
}

// DeviceFromAddress turns a portal address ("192.168.4.1",
// "http://host:8080") into a device entry.
func DeviceFromAddress(address string) (*discovery.Device, error) {
	address = strings.TrimSpace(address)
	if address == "" {
		return nil, errors.New("enter the portal address")
	}
	if !strings.Contains(address, "://") {
		address = "http://" + address
	}

	u, err := url.Parse(address)
	if err != nil || u.Hostname() == "" {
		return nil, fmt.Errorf("invalid portal address %q", address)
	}
	if u.Scheme != "http" {
		return nil, fmt.Errorf("portal address must use http, got %q", u.Scheme)
	}

	port := discovery.DefaultPort
	if p := u.Port(); p != "" {
		port, err = strconv.Atoi(p)
		if err != nil || port <= 0 || port > 65535 {
			return nil, fmt.Errorf("invalid port %q", p)
		}
	}

	return &discovery.Device{
		Hostname:     u.Hostname(),
		IP:           u.Hostname(),
		Port:         port,
		Metadata:     map[string]string{discovery.TXTPathKey: "/"},
		DiscoveredAt: time.Now(),
	}, nil
}

// View renders the discovery screen
func (m DiscoveryModel) View() string {
	var content, helpText string

	switch {
	case m.ManualMode:
		var b strings.Builder
		b.WriteString(TitleStyle.Render("Portal address"))
		b.WriteString("\n")
		b.WriteString("  Address: " + m.URLInput.View())
		if m.Err != nil {
			b.WriteString("\n\n" + RenderError(m.Err.Error()))
		}
		content = b.String()
		helpText = m.Help.View(m.ManualKeys)

	case m.Scanning:
		content = TitleStyle.Render(m.Spinner.View()+" Searching for devices...") + "\n" +
			SubtitleStyle.Render("Join the device access point; its portal is advertised over mDNS.")
		helpText = m.Help.View(m.Keys)

	case m.Err != nil:
		content = RenderError(fmt.Sprintf("Scan failed: %v", m.Err))
		helpText = m.Help.View(m.Keys)

	case len(m.DeviceList.Items()) == 0:
		content = WarningStyle.Render("⚠ No devices in configuration mode found") + "\n\n" +
			"  • Ensure the device access point is up\n" +
			"  • Verify this computer joined the device WiFi\n" +
			"  • Press m to enter the portal address by hand"
		helpText = m.Help.View(m.Keys)

	default:
		content = m.DeviceList.View()
		helpText = m.Help.View(m.Keys)
	}

	return RenderApplicationContainer(content, helpText, m.Width)
}
