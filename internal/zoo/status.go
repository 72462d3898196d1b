package zoo

// Status is a point-in-time snapshot of the machine.
type Status struct {
	State             State  `json:"state"`
	Connected         bool   `json:"connected"`
	ReconnectAttempts int    `json:"reconnect_attempts"`
	Name              string `json:"name"`
	IP                string `json:"ip,omitempty"`
	PortalBound       bool   `json:"portal_bound"`
	PendingTasks      int    `json:"pending_tasks"`
}

// Status returns the current snapshot.
func (m *Machine) Status() Status {
	m.mu.Lock()
	defer m.mu.Unlock()

	return Status{
		State:             m.state,
		Connected:         m.connected.Load(),
		ReconnectAttempts: m.attempts,
		Name:              m.identity.Name,
		IP:                m.ip,
		PortalBound:       m.portal != nil,
		PendingTasks:      m.disp.Scheduler().Pending(),
	}
}

// Subscribe returns a channel receiving the status after every change.
// Slow receivers only see the latest status. The returned cancel function
// closes the channel.
func (m *Machine) Subscribe() (<-chan Status, func()) {
	ch := make(chan Status, 1)

	m.subsMu.Lock()
	m.subs[ch] = struct{}{}
	ch <- m.lastStatus
	m.subsMu.Unlock()

	cancel := func() {
		m.subsMu.Lock()
		defer m.subsMu.Unlock()
		if _, ok := m.subs[ch]; ok {
			delete(m.subs, ch)
			close(ch)
		}
	}
	return ch, cancel
}

// publish notifies subscribers when the status differs from the last one sent.
func (m *Machine) publish() {
	s := m.Status()

	m.subsMu.Lock()
	defer m.subsMu.Unlock()

	if s == m.lastStatus {
		return
	}
	m.lastStatus = s

	for ch := range m.subs {
		select {
		case <-ch:
		default:
		}
		ch <- s
	}
}
