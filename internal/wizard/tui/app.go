package tui

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/muurk/zoothing/internal/discovery"
	"github.com/muurk/zoothing/internal/identity"
)

// PushFunc submits settings to the portal at baseURL and returns its response.
type PushFunc func(ctx context.Context, baseURL string, sub identity.Submission) (string, error)

// Screen is the active wizard screen
type Screen string

const (
	ScreenDiscovery Screen = "discovery"
	ScreenForm      Screen = "form"
	ScreenPushing   Screen = "pushing"
	ScreenResult    Screen = "result"
)

type pushResultMsg struct {
	response string
	err      error
}

type resultKeyMap struct {
	Edit     key.Binding
	Discover key.Binding
	Quit     key.Binding
}

func (k resultKeyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Edit, k.Discover, k.Quit}
}

func (k resultKeyMap) FullHelp() [][]key.Binding { return [][]key.Binding{k.ShortHelp()} }

// AppModel is the top-level model switching between the wizard screens.
type AppModel struct {
	ctx  context.Context
	scan ScanFunc
	push PushFunc

	CurrentScreen Screen
	Discovery     DiscoveryModel
	Form          FormModel

	Response string
	LastErr  error

	Width      int
	Spinner    spinner.Model
	Help       help.Model
	ResultKeys resultKeyMap
}

// NewAppModel creates the wizard. A nil device starts with a scan; otherwise
// the form for device opens directly.
func NewAppModel(ctx context.Context, scan ScanFunc, push PushFunc, device *discovery.Device) AppModel {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = SpinnerStyle

	m := AppModel{
		ctx:     ctx,
		scan:    scan,
		push:    push,
		Spinner: s,
		Help:    help.New(),
		ResultKeys: resultKeyMap{
			Edit:     key.NewBinding(key.WithKeys("e", "enter"), key.WithHelp("e", "edit again")),
			Discover: key.NewBinding(key.WithKeys("d"), key.WithHelp("d", "another device")),
			Quit:     key.NewBinding(key.WithKeys("q", "esc"), key.WithHelp("q", "quit")),
		},
	}

	if device != nil {
		m.CurrentScreen = ScreenForm
		m.Form = NewFormModel(device)
	} else {
		m.CurrentScreen = ScreenDiscovery
		m.Discovery = NewDiscoveryModel(ctx, scan)
	}
	return m
}

// Init implements tea.Model
func (m AppModel) Init() tea.Cmd {
	if m.CurrentScreen == ScreenForm {
		return m.Form.Init()
	}
	return m.Discovery.Init()
}

// Update implements tea.Model
func (m AppModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		if msg.Type == tea.KeyCtrlC {
			return m, tea.Quit
		}
	case tea.WindowSizeMsg:
		m.Width = msg.Width
		m.Form.Width = msg.Width
	case pushResultMsg:
		m.Response, m.LastErr = msg.response, msg.err
		m.CurrentScreen = ScreenResult
		return m, nil
	}

	var cmd tea.Cmd
	switch m.CurrentScreen {
	case ScreenDiscovery:
		var quit bool
		m.Discovery, cmd, quit = m.Discovery.Update(msg)
		if quit {
			return m, tea.Quit
		}
		if device := m.Discovery.Selected; device != nil {
			m.Discovery.Selected = nil
			return m.openForm(device)
		}

	case ScreenForm:
		m.Form, cmd = m.Form.Update(msg)
		if m.Form.Back {
			return m.openDiscovery()
		}
		if sub := m.Form.Submitted; sub != nil {
			m.CurrentScreen = ScreenPushing
			return m, tea.Batch(m.pushCmd(m.Form.Device.BaseURL(), *sub), m.Spinner.Tick)
		}

	case ScreenPushing:
		if tick, ok := msg.(spinner.TickMsg); ok {
			m.Spinner, cmd = m.Spinner.Update(tick)
		}

	case ScreenResult:
		if keyMsg, ok := msg.(tea.KeyMsg); ok {
			switch {
			case key.Matches(keyMsg, m.ResultKeys.Quit):
				return m, tea.Quit
			case key.Matches(keyMsg, m.ResultKeys.Discover):
				return m.openDiscovery()
			case key.Matches(keyMsg, m.ResultKeys.Edit):
				m.Form.Submitted = nil
				m.CurrentScreen = ScreenForm
				return m, m.Form.Init()
			}
		}
	}
	return m, cmd
}

func (m AppModel) openForm(device *discovery.Device) (tea.Model, tea.Cmd) {
	m.Form = NewFormModel(device)
	m.Form.Width = m.Width
	m.CurrentScreen = ScreenForm
	return m, m.Form.Init()
}

func (m AppModel) openDiscovery() (tea.Model, tea.Cmd) {
	m.Discovery = NewDiscoveryModel(m.ctx, m.scan)
	m.Discovery.Width = m.Width
	m.CurrentScreen = ScreenDiscovery
	return m, m.Discovery.Init()
}

func (m AppModel) pushCmd(baseURL string, sub identity.Submission) tea.Cmd {
	push, ctx := m.push, m.ctx
	return func() tea.Msg {
		resp, err := push(ctx, baseURL, sub)
		return pushResultMsg{response: resp, err: err}
	}
}

// View implements tea.Model
func (m AppModel) View() string {
	switch m.CurrentScreen {
	case ScreenDiscovery:
		return m.Discovery.View()
	case ScreenForm:
		return m.Form.View()
	case ScreenPushing:
		content := TitleStyle.Render(m.Spinner.View() + " Sending settings to " + m.Form.Device.PortalURL())
		return RenderApplicationContainer(content, "", m.Width)
	case ScreenResult:
		return RenderApplicationContainer(m.resultContent(), m.Help.View(m.ResultKeys), m.Width)
	default:
		return "Unknown screen"
	}
}

func (m AppModel) resultContent() string {
	var b strings.Builder
	if m.LastErr != nil {
		b.WriteString(RenderError(fmt.Sprintf("Push failed: %v", m.LastErr)))
		b.WriteString("\n\n  • Check this computer is still on the device access point\n")
		b.WriteString("  • The AP window may have closed; restart the device's configuration mode")
		return b.String()
	}

	b.WriteString(RenderSuccess("Settings sent"))
	b.WriteString("\n\n")
	for _, line := range strings.Split(strings.TrimSpace(m.Response), "\n") {
		if strings.HasPrefix(line, "WARNING") {
			b.WriteString(WarningStyle.Render("⚠ "+line) + "\n")
			continue
		}
		b.WriteString("  " + line + "\n")
	}
	b.WriteString("\nThe device closes its access point and joins the new network.")
	return b.String()
}
