package zoo

import (
	"fmt"

	"github.com/muurk/zoothing/internal/dispatch"
)

// State is the connection lifecycle state of the machine.
type State int

const (
	// Uninitialized is the state before the first Connect or StartAP runs.
	Uninitialized State = iota
	// Connecting means a station connect is in flight.
	Connecting
	// Connected means the station link is up.
	Connected
	// Disconnected means the last connect failed or the link dropped.
	Disconnected
	// Reconnecting means a delayed Connect is scheduled.
	Reconnecting
	// StartingAP means an AP start is in flight.
	StartingAP
	// Configuring means the AP and portal are up and the AP window is open.
	Configuring
	// CoolingDown means the AP window closed and a delayed Connect is scheduled.
	CoolingDown
	// Halted means an unconfigured device outlived its AP window.
	// Only a manual Connect, Settings or restart leaves this state.
	Halted
)

var stateNames = [...]string{
	Uninitialized: "Uninitialized",
	Connecting:    "Connecting",
	Connected:     "Connected",
	Disconnected:  "Disconnected",
	Reconnecting:  "Reconnecting",
	StartingAP:    "StartingAP",
	Configuring:   "Configuring",
	CoolingDown:   "CoolingDown",
	Halted:        "Halted",
}

// String returns the state name
func (s State) String() string {
	if s >= 0 && int(s) < len(stateNames) {
		return stateNames[s]
	}
	return fmt.Sprintf("State(%d)", int(s))
}

// MarshalText encodes the state by name
func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// guards lists, per message kind, the only states in which it may be handled.
// Kinds not listed are legal in every state.
var guards = map[dispatch.Kind]map[State]bool{
	dispatch.APResult: {
		StartingAP: true,
	},
	dispatch.APStarted: {
		Configuring: true,
	},
	dispatch.APStop:        except(Uninitialized, Halted),
	dispatch.Reconnect:     except(Uninitialized, Connected, Halted),
	dispatch.ConnectResult: except(Uninitialized),
}

func except(states ...State) map[State]bool {
	allowed := make(map[State]bool, len(stateNames))
	for s := range stateNames {
		allowed[State(s)] = true
	}
	for _, s := range states {
		delete(allowed, s)
	}
	return allowed
}

// Legal reports whether a message of kind may be handled in state s.
func Legal(s State, kind dispatch.Kind) bool {
	allowed, guarded := guards[kind]
	if !guarded {
		return true
	}
	return allowed[s]
}
