package zoo

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/jonboulle/clockwork"
	"go.uber.org/zap"

	"github.com/muurk/zoothing/internal/dispatch"
	"github.com/muurk/zoothing/internal/identity"
	"github.com/muurk/zoothing/internal/logging"
	"github.com/muurk/zoothing/internal/wifi"
)

// Defaults for Options fields left at their zero value
const (
	DefaultReconnectLimit = 5
	DefaultReconnectDelay = 10 * time.Second
	DefaultAPLifetime     = 5 * time.Minute
	DefaultConnectTimeout = 30 * time.Second

	// CooldownFactor multiplies the AP lifetime into the delay before a
	// configured device retries its station network after the AP window.
	CooldownFactor = 3
)

// SettingsUpdated is the portal response to every settings submission.
const SettingsUpdated = "settings updates, trying to reconnect..."

// paramSeq tags completion messages with the operation that produced them.
const paramSeq = "seq"

// Listener is a bound configuration portal.
type Listener interface {
	// Addr returns the address the portal listens on
	Addr() string
	// Close releases the listening socket
	Close() error
}

// PortalOpener binds a configuration portal serving m.
type PortalOpener func(m *Machine) (Listener, error)

// Options configures a Machine.
type Options struct {
	Adapter wifi.Adapter   // Required
	Store   identity.Store // Required
	Portal  PortalOpener   // Optional; without it the AP runs with no portal

	Clock          clockwork.Clock // Time source (default real clock)
	Tick           time.Duration   // Dispatcher tick (default 500ms)
	ReconnectLimit int             // Attempts before AP fallback (default 5)
	ReconnectDelay time.Duration   // Flat delay between attempts (default 10s)
	APLifetime     time.Duration   // AP window (default 5m)
	ConnectTimeout time.Duration   // Bound for one adapter connect or AP start (default 30s)
}

// Machine is the connection state machine. Handlers run only on the
// dispatcher goroutine; the public methods may be called from any goroutine.
type Machine struct {
	adapter wifi.Adapter
	store   identity.Store
	opener  PortalOpener
	disp    *dispatch.Dispatcher
	log     *zap.Logger

	reconnectLimit int
	reconnectDelay time.Duration
	apLifetime     time.Duration
	connectTimeout time.Duration

	connected atomic.Bool

	mu           sync.Mutex
	runCtx       context.Context
	identity     identity.DeviceIdentity
	state        State
	attempts     int
	ip           string
	portal       Listener
	onConnect    func()
	onDisconnect func()
	connectSeq   uint64
	apSeq        uint64
	apStopTask   dispatch.TaskID

	subsMu     sync.Mutex
	subs       map[chan Status]struct{}
	lastStatus Status
}

// New creates a machine that is idle until Start is called.
func New(opts Options) (*Machine, error) {
	if opts.Adapter == nil {
		return nil, errors.New("adapter is required")
	}
	if opts.Store == nil {
		return nil, errors.New("store is required")
	}

	m := &Machine{
		adapter:        opts.Adapter,
		store:          opts.Store,
		opener:         opts.Portal,
		log:            logging.Named("zoo"),
		reconnectLimit: opts.ReconnectLimit,
		reconnectDelay: opts.ReconnectDelay,
		apLifetime:     opts.APLifetime,
		connectTimeout: opts.ConnectTimeout,
		runCtx:         context.Background(),
		identity:       identity.Default(),
		subs:           make(map[chan Status]struct{}),
	}
	if m.reconnectLimit <= 0 {
		m.reconnectLimit = DefaultReconnectLimit
	}
	if m.reconnectDelay <= 0 {
		m.reconnectDelay = DefaultReconnectDelay
	}
	if m.apLifetime <= 0 {
		m.apLifetime = DefaultAPLifetime
	}
	if m.connectTimeout <= 0 {
		m.connectTimeout = DefaultConnectTimeout
	}

	m.disp = dispatch.New(dispatch.Config{Tick: opts.Tick, Clock: opts.Clock}, m.handle)
	m.adapter.OnDisconnected(m.linkDropped)
	m.lastStatus = m.Status()
	return m, nil
}

// Start registers the connection callbacks, enqueues Init and starts the
// dispatcher. Calling Start again restarts the loop and drops every pending
// delayed message.
func (m *Machine) Start(ctx context.Context, onConnect, onDisconnect func()) {
	m.mu.Lock()
	m.runCtx = ctx
	m.onConnect = onConnect
	m.onDisconnect = onDisconnect
	m.apStopTask = 0
	m.mu.Unlock()

	m.disp.Enqueue(dispatch.Init, nil)
	m.disp.Start(ctx)
	m.log.Info("Connection manager started")
}

// Stop halts the dispatcher and releases the portal.
func (m *Machine) Stop() {
	m.disp.Stop()

	m.mu.Lock()
	portal := m.takePortalLocked()
	m.mu.Unlock()
	m.closePortal(portal)
	m.log.Info("Connection manager stopped")
}

// Connect asks for a station connection attempt.
func (m *Machine) Connect() {
	m.disp.Enqueue(dispatch.Connect, nil)
}

// Settings asks for the configuration access point.
func (m *Machine) Settings() {
	m.disp.Enqueue(dispatch.StartAP, nil)
}

// Identity returns a copy of the current device identity.
func (m *Machine) Identity() identity.DeviceIdentity {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.identity
}

// ApplySettings applies a portal submission and returns the response text.
// An AP passphrase of 1 to 7 characters, or one too long for WPA2, is
// rejected with a warning while the other fields still apply. Saving, portal teardown and the reconnect run on
// later ticks.
func (m *Machine) ApplySettings(sub identity.Submission) string {
	m.mu.Lock()
	next, err := sub.Apply(m.identity)
	m.identity = next
	m.mu.Unlock()

	var resp strings.Builder
	if err != nil {
		m.log.Warn("Rejected AP passphrase", zap.Error(err))
		resp.WriteString(identity.WarningFor(err))
	}
	resp.WriteString(SettingsUpdated)

	m.log.Info("Settings updated",
		zap.String("name", next.Name),
		zap.String("ssid", next.SSID),
		zap.String("pass", logging.Redact(next.Passphrase)),
		zap.String("appass", logging.Redact(next.APPassphrase)),
	)

	m.disp.Enqueue(dispatch.SaveSettings, nil)
	m.disp.Enqueue(dispatch.StopServer, nil)
	m.disp.Enqueue(dispatch.Connect, nil)
	return resp.String()
}

// linkDropped is the adapter disconnect notification. Only the first drop of
// an established connection is turned into a Disconnected message.
func (m *Machine) linkDropped(details string) {
	if !m.connected.CompareAndSwap(true, false) {
		m.log.Debug("Ignoring disconnect notification", zap.String("details", details))
		return
	}
	m.log.Info("Station link dropped", zap.String("details", details))
	m.disp.Enqueue(dispatch.Disconnected, nil)
}

// adapterContext bounds one blocking adapter operation.
func (m *Machine) adapterContext() (context.Context, context.CancelFunc) {
	m.mu.Lock()
	parent := m.runCtx
	m.mu.Unlock()
	return context.WithTimeout(parent, m.connectTimeout)
}

// setStateLocked records a transition. Callers hold m.mu.
func (m *Machine) setStateLocked(next State, cause dispatch.Kind) {
	if m.state == next {
		return
	}
	logging.LogTransition(m.state.String(), next.String(), cause.String())
	m.state = next
}

// takePortalLocked detaches the bound portal, if any. Callers hold m.mu and
// close the result with closePortal after releasing it: shutting the portal
// down waits for in-flight requests, which may need m.mu.
func (m *Machine) takePortalLocked() Listener {
	l := m.portal
	m.portal = nil
	return l
}

func (m *Machine) closePortal(l Listener) {
	if l == nil {
		return
	}
	if err := l.Close(); err != nil {
		m.log.Warn("Failed to close portal", zap.Error(err))
	}
}

func seqParams(seq uint64, err error) dispatch.Params {
	params := dispatch.Params{paramSeq: seq}
	if err != nil {
		params[dispatch.ParamErr] = err
	}
	return params
}

func seqOf(msg dispatch.Message) (uint64, error) {
	seq, ok := msg.Params[paramSeq].(uint64)
	if !ok {
		return 0, fmt.Errorf("%s without sequence number", msg.Kind)
	}
	return seq, nil
}
