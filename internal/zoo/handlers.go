package zoo

import (
	"net"
	"strings"

	"go.uber.org/zap"

	"github.com/muurk/zoothing/internal/dispatch"
	"github.com/muurk/zoothing/internal/identity"
	"github.com/muurk/zoothing/internal/version"
	"github.com/muurk/zoothing/internal/wifi"
)

// handle is the dispatcher handler.
func (m *Machine) handle(msg dispatch.Message) {
	defer m.publish()

	m.mu.Lock()
	state := m.state
	m.mu.Unlock()

	if !Legal(state, msg.Kind) {
		m.log.Warn("Dropping message not legal in current state",
			zap.String("kind", msg.Kind.String()),
			zap.String("state", state.String()),
		)
		return
	}

	switch msg.Kind {
	case dispatch.Init:
		m.handleInit()
	case dispatch.Connect:
		m.handleConnect()
	case dispatch.ConnectResult:
		m.handleConnectResult(msg)
	case dispatch.Connected:
		m.handleConnected()
	case dispatch.Disconnected:
		m.handleDisconnected()
	case dispatch.Reconnect:
		m.handleReconnect()
	case dispatch.StartAP:
		m.handleStartAP()
	case dispatch.APResult:
		m.handleAPResult(msg)
	case dispatch.APStarted:
		m.handleAPStarted()
	case dispatch.APStop:
		m.handleAPStop()
	case dispatch.StopServer:
		m.handleStopServer()
	case dispatch.SaveSettings:
		m.handleSaveSettings()
	case dispatch.GetIP:
		m.handleGetIP()
	case dispatch.Skip:
		m.log.Info(".")
	}
}

func (m *Machine) handleInit() {
	m.log.Info(strings.TrimSuffix(version.Banner(" "), " "))

	id, found, err := identity.Load(m.store)
	switch {
	case err != nil:
		m.log.Error("Failed to load settings, using defaults", zap.Error(err))
	case !found:
		m.log.Info("No stored settings, using defaults")
	}

	m.mu.Lock()
	m.identity = id
	m.attempts = 0
	m.mu.Unlock()

	if !id.Configured() {
		m.log.Info("Device is unconfigured, starting configuration AP", zap.String("name", id.Name))
		m.disp.Enqueue(dispatch.StartAP, nil)
		return
	}
	m.disp.Enqueue(dispatch.Connect, nil)
}

func (m *Machine) handleConnect() {
	// The attempt replaces any current link; its result decides what follows,
	// so a drop reported while it runs is not a disconnect.
	m.connected.Store(false)

	m.mu.Lock()
	m.setStateLocked(Connecting, dispatch.Connect)
	m.connectSeq++
	seq := m.connectSeq
	id := m.identity
	m.mu.Unlock()

	ctx, cancel := m.adapterContext()
	if err := m.adapter.SetHostname(ctx, id.Name); err != nil {
		m.log.Warn("Failed to set hostname", zap.String("name", id.Name), zap.Error(err))
	}

	m.log.Info("Connecting to station network", zap.String("ssid", id.SSID))
	go func() {
		defer cancel()
		err := m.adapter.Connect(ctx, id.SSID, id.Passphrase)
		m.disp.Enqueue(dispatch.ConnectResult, seqParams(seq, err))
	}()
}

func (m *Machine) handleConnectResult(msg dispatch.Message) {
	seq, err := seqOf(msg)
	if err != nil {
		m.log.Warn("Dropping malformed completion", zap.Error(err))
		return
	}

	m.mu.Lock()
	current := m.connectSeq
	m.mu.Unlock()
	if seq != current {
		m.log.Debug("Dropping stale connect result", zap.Uint64("seq", seq), zap.Uint64("current", current))
		return
	}

	if err := msg.Err(); err != nil {
		m.log.Warn("Station connect failed",
			zap.Error(err),
			zap.Bool("retryable", wifi.IsRetryable(err)),
		)
		m.disp.Enqueue(dispatch.Disconnected, nil)
		return
	}

	ctx, cancel := m.adapterContext()
	defer cancel()
	if err := m.adapter.StopAP(ctx); err != nil {
		m.log.Debug("Failed to stop AP after connect", zap.Error(err))
	}

	m.connected.Store(true)
	m.mu.Lock()
	m.attempts = 0
	m.setStateLocked(Connected, dispatch.ConnectResult)
	m.mu.Unlock()

	hostname, err := m.adapter.Hostname(ctx)
	if err != nil {
		m.log.Debug("Failed to read hostname", zap.Error(err))
	}
	m.log.Info("Connected", zap.String("hostname", hostname))

	m.disp.Enqueue(dispatch.Skip, nil)
	m.disp.Enqueue(dispatch.Skip, nil)
	m.disp.Enqueue(dispatch.Skip, nil)
	m.disp.Enqueue(dispatch.GetIP, nil)
	m.disp.Enqueue(dispatch.Connected, nil)
}

func (m *Machine) handleConnected() {
	m.mu.Lock()
	fn := m.onConnect
	m.mu.Unlock()

	if fn != nil {
		fn()
	}
}

func (m *Machine) handleDisconnected() {
	m.connected.Store(false)

	m.mu.Lock()
	m.ip = ""
	m.setStateLocked(Disconnected, dispatch.Disconnected)
	fn := m.onDisconnect
	m.mu.Unlock()

	if fn != nil {
		fn()
	}
	m.disp.Enqueue(dispatch.Reconnect, nil)
}

func (m *Machine) handleReconnect() {
	m.mu.Lock()
	if m.attempts >= m.reconnectLimit {
		attempts := m.attempts
		m.mu.Unlock()
		m.log.Warn("Reconnect limit reached, falling back to AP mode", zap.Int("attempts", attempts))
		m.disp.Enqueue(dispatch.StartAP, nil)
		return
	}
	m.attempts++
	attempt := m.attempts
	m.setStateLocked(Reconnecting, dispatch.Reconnect)
	m.mu.Unlock()

	m.log.Info("Scheduling reconnect",
		zap.Int("attempt", attempt),
		zap.Int("limit", m.reconnectLimit),
		zap.Duration("delay", m.reconnectDelay),
	)
	m.disp.After(m.reconnectDelay, dispatch.Connect, nil)
}

func (m *Machine) handleStartAP() {
	m.mu.Lock()
	m.setStateLocked(StartingAP, dispatch.StartAP)
	m.apSeq++
	seq := m.apSeq
	id := m.identity
	m.mu.Unlock()

	ctx, cancel := m.adapterContext()
	if err := m.adapter.StopAP(ctx); err != nil {
		m.log.Debug("Failed to stop previous AP", zap.Error(err))
	}

	cfg := wifi.APConfigFor(id.Name, id.APPassphrase)
	m.log.Info("Starting configuration AP",
		zap.String("ssid", cfg.SSID),
		zap.String("auth", string(cfg.AuthMode)),
	)
	go func() {
		defer cancel()
		err := m.adapter.StartAP(ctx, cfg)
		m.disp.Enqueue(dispatch.APResult, seqParams(seq, err))
	}()
}

func (m *Machine) handleAPResult(msg dispatch.Message) {
	seq, err := seqOf(msg)
	if err != nil {
		m.log.Warn("Dropping malformed completion", zap.Error(err))
		return
	}

	m.mu.Lock()
	current := m.apSeq
	m.mu.Unlock()
	if seq != current {
		m.log.Debug("Dropping stale AP result", zap.Uint64("seq", seq), zap.Uint64("current", current))
		return
	}

	if err := msg.Err(); err != nil {
		if !wifi.IsRetryable(err) {
			m.log.Error("AP start rejected, retrying later", zap.Error(err), zap.Duration("delay", m.reconnectDelay))
			m.disp.After(m.reconnectDelay, dispatch.StartAP, nil)
			return
		}
		m.log.Warn("AP start failed, retrying", zap.Error(err))
		m.disp.Enqueue(dispatch.StartAP, nil)
		return
	}

	m.mu.Lock()
	m.setStateLocked(Configuring, dispatch.APResult)
	if m.apStopTask != 0 {
		m.disp.Scheduler().Cancel(m.apStopTask)
	}
	m.apStopTask = m.disp.After(m.apLifetime, dispatch.APStop, nil)
	m.mu.Unlock()

	details := m.adapter.APDetails()
	m.log.Info("Configuration AP up",
		zap.String("ssid", details.SSID),
		zap.String("pass", details.Passphrase),
		zap.String("ip", details.IP),
		zap.Duration("lifetime", m.apLifetime),
	)
	m.disp.Enqueue(dispatch.APStarted, nil)
}

func (m *Machine) handleAPStarted() {
	m.mu.Lock()
	bound := m.portal
	m.mu.Unlock()

	if bound == nil {
		if m.opener == nil {
			m.log.Debug("No configuration portal registered")
			return
		}
		l, err := m.opener(m)
		if err != nil {
			m.log.Error("Failed to bind configuration portal", zap.Error(err))
			return
		}
		m.mu.Lock()
		m.portal = l
		m.mu.Unlock()
		bound = l
	}

	details := m.adapter.APDetails()
	m.log.Info("Configuration portal ready", zap.String("url", portalURL(details.IP, bound.Addr())))
}

func (m *Machine) handleAPStop() {
	if m.connected.Load() {
		m.log.Debug("AP window expired while connected, nothing to stop")
		return
	}

	m.mu.Lock()
	portal := m.takePortalLocked()
	m.apStopTask = 0
	id := m.identity
	m.mu.Unlock()
	m.closePortal(portal)

	ctx, cancel := m.adapterContext()
	defer cancel()
	if err := m.adapter.StopAP(ctx); err != nil {
		m.log.Warn("Failed to stop AP", zap.Error(err))
	}

	if !id.Configured() {
		m.mu.Lock()
		m.setStateLocked(Halted, dispatch.APStop)
		m.mu.Unlock()
		m.log.Warn("pet name is no changed... please restart device")
		return
	}

	delay := CooldownFactor * m.apLifetime
	m.mu.Lock()
	m.setStateLocked(CoolingDown, dispatch.APStop)
	m.mu.Unlock()
	m.log.Info("AP window closed, retrying station network later", zap.Duration("delay", delay))
	m.disp.After(delay, dispatch.Connect, nil)
}

func (m *Machine) handleStopServer() {
	m.mu.Lock()
	portal := m.takePortalLocked()
	if m.apStopTask != 0 {
		m.disp.Scheduler().Cancel(m.apStopTask)
		m.apStopTask = 0
	}
	m.mu.Unlock()
	m.closePortal(portal)

	ctx, cancel := m.adapterContext()
	defer cancel()
	if err := m.adapter.StopAP(ctx); err != nil {
		m.log.Warn("Failed to stop AP", zap.Error(err))
	}
}

func (m *Machine) handleSaveSettings() {
	if err := identity.Save(m.store, m.Identity()); err != nil {
		m.log.Error("Failed to save settings", zap.Error(err))
		return
	}
	m.log.Info("Settings saved")
}

func (m *Machine) handleGetIP() {
	ctx, cancel := m.adapterContext()
	defer cancel()

	ip, err := m.adapter.IP(ctx)
	if err != nil {
		m.log.Warn("Failed to read IP address", zap.Error(err))
		return
	}

	m.mu.Lock()
	m.ip = ip
	m.mu.Unlock()
	m.log.Info("IP address", zap.String("ip", ip))
}

// portalURL builds the address an operator types while on the AP network.
func portalURL(ip, addr string) string {
	_, port, err := net.SplitHostPort(addr)
	if err != nil || port == "" || port == "80" {
		return "http://" + ip + "/"
	}
	return "http://" + net.JoinHostPort(ip, port) + "/"
}
