package dispatch

import "fmt"

// Kind identifies what a queued message asks the state machine to do.
type Kind int

const (
	// Init loads the device identity and picks station or AP mode.
	Init Kind = iota + 1
	// Connect starts a station connection attempt.
	Connect
	// Connected notifies the embedding application of a new connection.
	Connected
	// Disconnected notifies the embedding application and triggers Reconnect.
	Disconnected
	// GetIP queries and logs the station IP address.
	GetIP
	// Skip consumes one tick and does nothing else.
	Skip
	// APStarted binds the configuration portal.
	APStarted
	// APStop ends the AP window when the AP lifetime expires.
	APStop
	// StartAP brings up the configuration access point.
	StartAP
	// StopServer tears down the portal and the access point.
	StopServer
	// SaveSettings persists the device identity.
	SaveSettings
	// Reconnect schedules another Connect or gives up into AP mode.
	Reconnect
	// ConnectResult carries the outcome of an asynchronous station connect.
	ConnectResult
	// APResult carries the outcome of an asynchronous AP start.
	APResult
)

var kindNames = map[Kind]string{
	Init:          "Init",
	Connect:       "Connect",
	Connected:     "Connected",
	Disconnected:  "Disconnected",
	GetIP:         "GetIP",
	Skip:          "Skip",
	APStarted:     "APStarted",
	APStop:        "APStop",
	StartAP:       "StartAP",
	StopServer:    "StopServer",
	SaveSettings:  "SaveSettings",
	Reconnect:     "Reconnect",
	ConnectResult: "ConnectResult",
	APResult:      "APResult",
}

// String returns the message kind name
func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

// Valid reports whether k is one of the declared kinds.
func (k Kind) Valid() bool {
	_, ok := kindNames[k]
	return ok
}

// ParamErr is the params key under which completion messages carry the
// adapter error. A missing or nil value means success.
const ParamErr = "err"

// Params holds optional named message arguments.
type Params map[string]any

// Message is a single unit of queued work. Messages are immutable once
// enqueued; handlers must not modify Params.
type Message struct {
	Kind   Kind
	Params Params
}

// Err returns the error carried under ParamErr, if any.
func (m Message) Err() error {
	if m.Params == nil {
		return nil
	}
	err, _ := m.Params[ParamErr].(error)
	return err
}

// String returns a short description of the message
func (m Message) String() string {
	if len(m.Params) == 0 {
		return m.Kind.String()
	}
	return fmt.Sprintf("%s%v", m.Kind, map[string]any(m.Params))
}

// WithErr builds completion params carrying err.
func WithErr(err error) Params {
	if err == nil {
		return nil
	}
	return Params{ParamErr: err}
}
