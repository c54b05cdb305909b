// Package transport owns the single socket to the local peer application:
// connect, hello handshake, pairing and auth handling, fixed-delay reconnect,
// and stamped message sends.
//
// A Transport is not self-locking. Every method is called from the owner's
// dispatch goroutine; goroutines spawned here (dialing, the socket reader,
// the reconnect timer) re-enter through the injected dispatch function, so
// all state transitions stay serial.
package transport

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"net"
	"time"

	"github.com/nv4818/webtrack/internal/model"
	"github.com/nv4818/webtrack/internal/protocol"
	"github.com/nv4818/webtrack/internal/sched"
)

var ErrNotOpen = errors.New("transport: connection not open")

type Dialer interface {
	DialContext(ctx context.Context, network, addr string) (net.Conn, error)
}

type netDialer struct{}

func (netDialer) DialContext(ctx context.Context, network, addr string) (net.Conn, error) {
	var d net.Dialer
	return d.DialContext(ctx, network, addr)
}

func NewDialer() Dialer { return netDialer{} }

type Config struct {
	Addr           string
	ConnectTimeout time.Duration
	ReconnectDelay time.Duration
	MaxInbound     int
	Browser        protocol.BrowserInfo
	Capabilities   []string
	ExtVersion     string
}

// Hooks are invoked on the owner goroutine as session-significant protocol
// events arrive. Any hook may be nil.
type Hooks struct {
	// Authenticated fires on hello_ack and on pairing_approved.
	Authenticated func(msg protocol.Inbound)
	// TokenApproved delivers a freshly approved auth token for persistence,
	// before Authenticated fires.
	TokenApproved func(token string)
	// TokenRejected fires on an AUTH_FAILED error; the stored token is no
	// longer valid.
	TokenRejected func()
	// Disconnected fires whenever an open or connecting socket goes away.
	Disconnected func(reason string)
	// ProtocolError fires for inbound error codes that do not close the
	// connection (INVALID_MESSAGE, RATE_LIMITED, unknown).
	ProtocolError func(code, reason string)
}

type Transport struct {
	cfg       Config
	dialer    Dialer
	scheduler sched.Scheduler
	dispatch  func(func())
	hooks     Hooks
	now       func() time.Time

	session model.Session

	state         model.ConnectionState
	conn          net.Conn
	gen           uint64
	authenticated bool
	reconnect     sched.Timer
	lastError     string
}

func New(cfg Config, dialer Dialer, scheduler sched.Scheduler, dispatch func(func()), hooks Hooks) *Transport {
	if dialer == nil {
		dialer = NewDialer()
	}
	if cfg.ConnectTimeout <= 0 {
		cfg.ConnectTimeout = 3 * time.Second
	}
	if cfg.ReconnectDelay <= 0 {
		cfg.ReconnectDelay = 5 * time.Second
	}
	return &Transport{
		cfg:       cfg,
		dialer:    dialer,
		scheduler: scheduler,
		dispatch:  dispatch,
		hooks:     hooks,
		now:       time.Now,
		state:     model.ConnDisconnected,
	}
}

// SetSession updates the identity used for hello and message stamping.
func (t *Transport) SetSession(session model.Session) {
	t.session = session
}

func (t *Transport) State() model.ConnectionState { return t.state }

// Ready reports whether the session is authenticated on an open socket.
func (t *Transport) Ready() bool {
	return t.state == model.ConnOpen && t.authenticated
}

// LastError is the most recent connection failure reason, for status
// surfaces only.
func (t *Transport) LastError() string { return t.lastError }

// Connect opens the peer socket unless tracking is disabled or a connection
// attempt is already underway.
func (t *Transport) Connect() {
	if !t.session.Enabled {
		return
	}
	if t.state == model.ConnConnecting || t.state == model.ConnOpen {
		return
	}
	t.state = model.ConnConnecting
	t.gen++
	gen := t.gen

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), t.cfg.ConnectTimeout)
		defer cancel()
		conn, err := t.dialer.DialContext(ctx, "tcp", t.cfg.Addr)
		t.dispatch(func() { t.handleDialResult(gen, conn, err) })
	}()
}

func (t *Transport) handleDialResult(gen uint64, conn net.Conn, err error) {
	if gen != t.gen || t.state != model.ConnConnecting {
		// A disconnect or disable raced the dial.
		if conn != nil {
			conn.Close() //nolint:errcheck
		}
		return
	}
	if err != nil {
		// Peer not running is the normal case, never a hard error.
		t.state = model.ConnDisconnected
		t.lastError = err.Error()
		t.scheduleReconnect()
		return
	}
	t.state = model.ConnOpen
	t.conn = conn
	t.lastError = ""
	go t.readLoop(gen, conn)
	t.sendHello()
}

func (t *Transport) sendHello() {
	msg := protocol.Hello{
		AuthToken:    t.session.AuthToken,
		Browser:      t.cfg.Browser,
		Capabilities: t.cfg.Capabilities,
		ExtVersion:   t.cfg.ExtVersion,
	}
	if err := t.Send(protocol.TypeHello, &msg); err != nil {
		t.lastError = err.Error()
	}
}

func (t *Transport) readLoop(gen uint64, conn net.Conn) {
	reader := bufio.NewReader(conn)
	for {
		raw, err := protocol.ReadMessage(reader, t.cfg.MaxInbound)
		if err != nil {
			t.dispatch(func() { t.handleClosed(gen, err) })
			return
		}
		msg, err := protocol.DecodeInbound(raw)
		if err != nil {
			// Malformed inbound messages are discarded; the connection
			// stays open.
			continue
		}
		t.dispatch(func() { t.handleInbound(gen, msg) })
	}
}

func (t *Transport) handleInbound(gen uint64, msg protocol.Inbound) {
	if gen != t.gen || t.state != model.ConnOpen {
		return
	}
	switch msg.Type {
	case protocol.TypeHelloAck:
		t.authenticated = true
		if t.hooks.Authenticated != nil {
			t.hooks.Authenticated(msg)
		}
	case protocol.TypePairingApproved:
		if t.hooks.TokenApproved != nil {
			t.hooks.TokenApproved(msg.AuthToken)
		}
		t.session.AuthToken = msg.AuthToken
		t.authenticated = true
		if t.hooks.Authenticated != nil {
			t.hooks.Authenticated(msg)
		}
	case protocol.TypeError:
		t.handleProtocolError(msg)
	default:
		if t.hooks.ProtocolError != nil {
			t.hooks.ProtocolError(model.ErrCodeInvalidMessage, fmt.Sprintf("unexpected message type %q", msg.Type))
		}
	}
}

func (t *Transport) handleProtocolError(msg protocol.Inbound) {
	switch msg.ErrorCode {
	case model.ErrCodeAuthFailed:
		if t.hooks.TokenRejected != nil {
			t.hooks.TokenRejected()
		}
		t.session.AuthToken = ""
		t.lastError = msg.Reason
		t.closeCurrent("auth_failed")
		t.scheduleReconnect()
	case model.ErrCodePairingRejected:
		t.lastError = msg.Reason
		t.closeCurrent("pairing_rejected")
		t.scheduleReconnect()
	default:
		// INVALID_MESSAGE, RATE_LIMITED and anything newer leave the
		// connection open.
		if t.hooks.ProtocolError != nil {
			t.hooks.ProtocolError(msg.ErrorCode, msg.Reason)
		}
	}
}

func (t *Transport) handleClosed(gen uint64, err error) {
	if gen != t.gen || t.state == model.ConnDisconnected {
		return
	}
	reason := "connection closed"
	if err != nil {
		reason = err.Error()
	}
	t.closeCurrent(reason)
	t.scheduleReconnect()
}

// closeCurrent tears down the socket and notifies the owner. It never
// schedules a reconnect; callers decide that.
func (t *Transport) closeCurrent(reason string) {
	if t.conn != nil {
		t.conn.Close() //nolint:errcheck
		t.conn = nil
	}
	wasUp := t.state != model.ConnDisconnected
	t.state = model.ConnDisconnected
	t.authenticated = false
	t.gen++
	if wasUp && t.hooks.Disconnected != nil {
		t.hooks.Disconnected(reason)
	}
}

// scheduleReconnect arms the fixed-delay reconnect timer. Scheduling while a
// timer is already pending is a no-op, so there is never more than one.
func (t *Transport) scheduleReconnect() {
	if t.reconnect != nil || !t.session.Enabled {
		return
	}
	t.reconnect = t.scheduler.AfterFunc(t.cfg.ReconnectDelay, func() {
		t.dispatch(func() {
			t.reconnect = nil
			t.Connect()
		})
	})
}

// CancelReconnect stops a pending reconnect timer; cancelling when none is
// pending is a no-op.
func (t *Transport) CancelReconnect() {
	if t.reconnect != nil {
		t.reconnect.Stop()
		t.reconnect = nil
	}
}

// Send stamps msg with the envelope fields and writes it. It fails without
// side effects when the socket is not open; the caller keeps its data.
func (t *Transport) Send(msgType string, msg protocol.Stampable) error {
	if t.state != model.ConnOpen || t.conn == nil {
		return ErrNotOpen
	}
	msg.Stamp(msgType, t.session.ClientID, t.now())
	if err := protocol.WriteMessage(t.conn, msg); err != nil {
		// A failed write means the socket is going away; the read loop
		// surfaces the close. Data stays with the caller.
		return fmt.Errorf("send %s: %w", msgType, err)
	}
	return nil
}

// Disconnect sends goodbye when the socket is open, closes it, and cancels
// any pending reconnect. The caller flushes pending reports first.
func (t *Transport) Disconnect(reason string) {
	t.CancelReconnect()
	if t.state == model.ConnOpen {
		msg := protocol.Goodbye{Reason: reason}
		if err := t.Send(protocol.TypeGoodbye, &msg); err == nil {
			t.state = model.ConnClosing
		}
	}
	t.closeCurrent(reason)
}

// Probe opens and immediately closes a disposable connection to the peer,
// independent of the session socket.
func (t *Transport) Probe(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, t.cfg.ConnectTimeout)
	defer cancel()
	conn, err := t.dialer.DialContext(ctx, "tcp", t.cfg.Addr)
	if err != nil {
		return fmt.Errorf("probe %s: %w", t.cfg.Addr, err)
	}
	return conn.Close()
}
