package tui

import (
	"errors"
	"strings"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/muurk/zoothing/internal/discovery"
	"github.com/muurk/zoothing/internal/identity"
)

// Form fields in display order
const (
	fieldName = iota
	fieldSSID
	fieldPass
	fieldAPPass
	fieldCount
)

var fieldLabels = [fieldCount]string{"Device name", "WiFi network", "Passphrase", "AP passphrase"}

type formKeyMap struct {
	Next   key.Binding
	Prev   key.Binding
	Submit key.Binding
	Back   key.Binding
}

func (k formKeyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Next, k.Prev, k.Submit, k.Back}
}

func (k formKeyMap) FullHelp() [][]key.Binding { return [][]key.Binding{k.ShortHelp()} }

// FormModel collects the identity pushed to a device portal.
type FormModel struct {
	Device *discovery.Device
	Inputs [fieldCount]textinput.Model
	Focus  int
	Err    error

	// Submitted is set once the form passed validation
	Submitted *identity.Submission
	// Back is set when the operator leaves the form without submitting
	Back bool

	Width int
	Help  help.Model
	Keys  formKeyMap
}

// NewFormModel creates the form for device, with the name pre-filled from
// its advertisement.
func NewFormModel(device *discovery.Device) FormModel {
	m := FormModel{
		Device: device,
		Help:   help.New(),
		Keys: formKeyMap{
			Next:   key.NewBinding(key.WithKeys("tab", "down"), key.WithHelp("tab", "next field")),
			Prev:   key.NewBinding(key.WithKeys("shift+tab", "up"), key.WithHelp("shift+tab", "previous")),
			Submit: key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "next / send")),
			Back:   key.NewBinding(key.WithKeys("esc"), key.WithHelp("esc", "back")),
		},
	}

	for i := range m.Inputs {
		in := textinput.New()
		in.CharLimit = 64
		in.Width = 40
		in.Prompt = ""
		m.Inputs[i] = in
	}
	m.Inputs[fieldName].CharLimit = 32
	m.Inputs[fieldName].Placeholder = identity.DefaultName
	m.Inputs[fieldSSID].CharLimit = 32
	m.Inputs[fieldPass].EchoMode = textinput.EchoPassword
	m.Inputs[fieldAPPass].EchoMode = textinput.EchoPassword
	m.Inputs[fieldAPPass].Placeholder = "empty for an open AP"

	if device != nil && device.Name != identity.DefaultName {
		m.Inputs[fieldName].SetValue(device.Name)
	}
	m.Inputs[fieldName].Focus()
	return m
}

// Init starts the cursor blinking
func (m FormModel) Init() tea.Cmd {
	return textinput.Blink
}

// Update handles messages for the form
func (m FormModel) Update(msg tea.Msg) (FormModel, tea.Cmd) {
	if msg, ok := msg.(tea.KeyMsg); ok {
		switch {
		case key.Matches(msg, m.Keys.Back):
			m.Back = true
			return m, nil
		case key.Matches(msg, m.Keys.Next):
			return m.focus(m.Focus + 1)
		case key.Matches(msg, m.Keys.Prev):
			return m.focus(m.Focus - 1)
		case key.Matches(msg, m.Keys.Submit):
			if m.Focus < fieldCount-1 {
				return m.focus(m.Focus + 1)
			}
			return m.submit()
		}
	}
	if msg, ok := msg.(tea.WindowSizeMsg); ok {
		m.Width = msg.Width
	}

	var cmd tea.Cmd
	m.Inputs[m.Focus], cmd = m.Inputs[m.Focus].Update(msg)
	return m, cmd
}

func (m FormModel) focus(i int) (FormModel, tea.Cmd) {
	i = (i + fieldCount) % fieldCount
	m.Inputs[m.Focus].Blur()
	m.Focus = i
	cmd := m.Inputs[i].Focus()
	return m, cmd
}

// submission returns the values currently typed into the form
func (m FormModel) submission() identity.Submission {
	return identity.Submission{
		Name:         strings.TrimSpace(m.Inputs[fieldName].Value()),
		SSID:         m.Inputs[fieldSSID].Value(),
		Passphrase:   m.Inputs[fieldPass].Value(),
		APPassphrase: m.Inputs[fieldAPPass].Value(),
	}
}

func (m FormModel) submit() (FormModel, tea.Cmd) {
	sub := m.submission()
	if err := validateSubmission(sub); err != nil {
		m.Err = err
		return m, nil
	}
	m.Err = nil
	m.Submitted = &sub
	return m, nil
}

// validateSubmission applies the rules of the push command: a name and a
// network are required and the AP passphrase must fit WPA2.
func validateSubmission(sub identity.Submission) error {
	if sub.Name == "" {
		return errors.New("device name is required")
	}
	if sub.Name == identity.DefaultName {
		return errors.New("choose a name other than " + identity.DefaultName)
	}
	if sub.SSID == "" {
		return errors.New("WiFi network is required")
	}
	return identity.ValidateAPPassphrase(sub.APPassphrase)
}

// View renders the form
func (m FormModel) View() string {
	var b strings.Builder

	target := "device"
	if m.Device != nil {
		target = m.Device.PortalURL()
	}
	b.WriteString(TitleStyle.Render("Configure " + target))
	b.WriteString("\n")

	for i := range m.Inputs {
		label := LabelStyle.Render(fieldLabels[i])
		if i == m.Focus {
			label = FocusedLabelStyle.Render(fieldLabels[i])
		}
		b.WriteString(label + m.Inputs[i].View() + "\n")
	}

	if m.Err != nil {
		b.WriteString("\n" + RenderError(m.Err.Error()))
	}

	return RenderApplicationContainer(b.String(), m.Help.View(m.Keys), m.Width)
}
