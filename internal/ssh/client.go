// Package ssh implements the session lifecycle of a remote command
// execution: connect, authenticate (public key, optionally
// certificate-backed), run one command over one execution channel, drain its
// output and exit status, disconnect.
//
// The cryptographic transport itself is golang.org/x/crypto/ssh; this package
// only sequences its high-level operations and enforces the ordering rules
// that matter (auth before channel use, full drain before the exit code is
// trusted, handle release on every teardown path).
package ssh

import (
	"fmt"
	"net"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/crypto/ssh"
)

// Defaults applied by NewClient when no option overrides them.
const (
	DefaultPort    = 22
	DefaultTimeout = 30 * time.Second

	// DefaultDisconnectReason is recorded with the graceful disconnect on
	// Close.
	DefaultDisconnectReason = "session complete"
)

// defaultKeyExchanges restricts negotiation to modern key-exchange
// algorithms instead of accepting the transport library's full default set.
// Widening this is an explicit caller decision via WithKeyExchanges.
var defaultKeyExchanges = []string{
	"curve25519-sha256",
	"curve25519-sha256@libssh.org",
}

// sessionState tracks the one-channel-per-session invariant. Exactly one
// execution channel may be open at a time, and none after Close.
type sessionState int

const (
	stateDisconnected sessionState = iota
	stateIdle
	stateChannelOpen
	stateClosed
)

func (s sessionState) String() string {
	switch s {
	case stateDisconnected:
		return "disconnected"
	case stateIdle:
		return "idle"
	case stateChannelOpen:
		return "channel-open"
	case stateClosed:
		return "closed"
	default:
		return "unknown"
	}
}

// Client owns one authenticated SSH connection. It is created disconnected;
// Connect establishes and authenticates the transport, Call runs exactly one
// command at a time, Close tears the connection down. A Client does not
// support concurrent Call invocations; a second in-flight Call is rejected
// with ErrSessionState rather than corrupting the channel.
type Client struct {
	Host  string
	User  string
	Port  int
	creds *Credentials
	opts  clientOptions

	mu    sync.Mutex
	state sessionState
	conn  *ssh.Client
	log   zerolog.Logger
}

type clientOptions struct {
	timeout          time.Duration
	keyExchanges     []string
	hostKeyCallback  ssh.HostKeyCallback
	disconnectReason string
	logger           zerolog.Logger
}

// ClientOption customizes a Client at construction time.
type ClientOption func(*clientOptions)

// WithTimeout bounds the whole session with an inactivity timeout: the TCP
// dial, the handshake, and every subsequent read or write must see traffic
// within this window or the connection is terminated. There is no separate
// per-command timeout; callers needing one wrap Call with their own deadline.
func WithTimeout(timeout time.Duration) ClientOption {
	return func(o *clientOptions) {
		o.timeout = timeout
	}
}

// WithKeyExchanges overrides the restricted default key-exchange set.
func WithKeyExchanges(algos []string) ClientOption {
	return func(o *clientOptions) {
		o.keyExchanges = algos
	}
}

// WithHostKeyCallback sets the server identity verification policy. The
// default is AcceptAnyHostKey; callers needing host-key pinning or
// known-hosts verification must supply their own callback.
func WithHostKeyCallback(cb ssh.HostKeyCallback) ClientOption {
	return func(o *clientOptions) {
		o.hostKeyCallback = cb
	}
}

// WithDisconnectReason sets the application-supplied reason recorded with the
// graceful disconnect on Close.
func WithDisconnectReason(reason string) ClientOption {
	return func(o *clientOptions) {
		o.disconnectReason = reason
	}
}

// WithLogger attaches a logger. Log output goes to the logger only, never to
// the stream Call writes command output to.
func WithLogger(log zerolog.Logger) ClientOption {
	return func(o *clientOptions) {
		o.logger = log
	}
}

// AcceptAnyHostKey returns a host key callback that accepts any server
// identity.
//
// INSECURE: this performs no verification at all and permits
// man-in-the-middle attacks. It exists as an explicit, visible policy value
// so the permissive default is swappable rather than hardcoded.
func AcceptAnyHostKey() ssh.HostKeyCallback {
	return ssh.InsecureIgnoreHostKey()
}

// NewClient creates a disconnected Client for the given target. The
// credentials fix the authentication strategy: certificate-backed when they
// carry a certificate, plain public key otherwise.
func NewClient(host, user string, port int, creds *Credentials, opts ...ClientOption) *Client {
	if port == 0 {
		port = DefaultPort
	}

	options := clientOptions{
		timeout:          DefaultTimeout,
		keyExchanges:     defaultKeyExchanges,
		hostKeyCallback:  AcceptAnyHostKey(),
		disconnectReason: DefaultDisconnectReason,
		logger:           zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(&options)
	}

	return &Client{
		Host:  host,
		User:  user,
		Port:  port,
		creds: creds,
		opts:  options,
		state: stateDisconnected,
		log: options.logger.With().
			Str("session_id", uuid.NewString()).
			Str("target", net.JoinHostPort(host, strconv.Itoa(port))).
			Logger(),
	}
}

// Connect dials the target, performs the SSH handshake with the restricted
// key-exchange set, and authenticates with the Client's fixed strategy.
//
// Failures are classified: ErrDial (unreachable), ErrHandshake (negotiation
// failed) and ErrAuth (credentials rejected) are distinct, and none of them
// is retried here. Retry policy is a caller concern.
func (c *Client) Connect() error {
	c.mu.Lock()
	if c.state != stateDisconnected {
		state := c.state
		c.mu.Unlock()
		return fmt.Errorf("%w: cannot connect while %s", ErrSessionState, state)
	}
	c.mu.Unlock()

	addr := net.JoinHostPort(c.Host, strconv.Itoa(c.Port))
	strategy := c.creds.Strategy()
	c.log.Debug().Str("strategy", strategy).Msg("connecting")

	netConn, err := net.DialTimeout("tcp", addr, c.opts.timeout)
	if err != nil {
		return fmt.Errorf("%w: %s: %w", ErrDial, addr, err)
	}

	config := &ssh.ClientConfig{
		Config: ssh.Config{
			KeyExchanges: c.opts.keyExchanges,
		},
		User:            c.User,
		Auth:            []ssh.AuthMethod{c.creds.AuthMethod()},
		HostKeyCallback: c.opts.hostKeyCallback,
		Timeout:         c.opts.timeout,
	}

	// Every read and write refreshes the deadline, so a quiet connection dies
	// after the inactivity window instead of hanging forever.
	sshConn, chans, reqs, err := ssh.NewClientConn(
		newIdleConn(netConn, c.opts.timeout), addr, config)
	if err != nil {
		netConn.Close()
		if isAuthFailure(err) {
			return fmt.Errorf("%w (%s): %w", ErrAuth, strategy, err)
		}
		return fmt.Errorf("%w: %w", ErrHandshake, err)
	}

	c.mu.Lock()
	c.conn = ssh.NewClient(sshConn, chans, reqs)
	c.state = stateIdle
	c.mu.Unlock()

	c.log.Info().Str("strategy", strategy).Msg("connected and authenticated")
	return nil
}

// IsConnected reports whether the Client currently owns a live connection
// handle.
func (c *Client) IsConnected() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.conn != nil
}

// Close sends a graceful disconnect and releases the connection handle. It is
// best-effort by contract: when the transport is already broken the
// disconnect may never reach the peer, but the local handle is released on
// every path and that failure is not surfaced as the call's result. Close is
// idempotent.
func (c *Client) Close() error {
	c.mu.Lock()
	conn := c.conn
	c.conn = nil
	c.state = stateClosed
	c.mu.Unlock()

	if conn == nil {
		return nil
	}

	c.log.Debug().Str("reason", c.opts.disconnectReason).Msg("disconnecting")
	if err := conn.Close(); err != nil {
		// Already-broken transport. The handle is released either way.
		c.log.Debug().Err(err).Msg("disconnect send failed")
	}
	return nil
}

// isAuthFailure distinguishes a rejected authentication attempt from other
// handshake failures. The transport library reports both through the same
// handshake error, so classification goes by its stable error text.
func isAuthFailure(err error) bool {
	return strings.Contains(err.Error(), "unable to authenticate")
}

// idleConn decorates a net.Conn so that every suspend point refreshes an
// absolute deadline, implementing the session-wide inactivity timeout.
type idleConn struct {
	net.Conn
	timeout time.Duration
}

func newIdleConn(conn net.Conn, timeout time.Duration) net.Conn {
	if timeout <= 0 {
		return conn
	}
	return &idleConn{Conn: conn, timeout: timeout}
}

func (c *idleConn) Read(b []byte) (int, error) {
	if err := c.Conn.SetDeadline(time.Now().Add(c.timeout)); err != nil {
		return 0, err
	}
	return c.Conn.Read(b)
}

func (c *idleConn) Write(b []byte) (int, error) {
	if err := c.Conn.SetDeadline(time.Now().Add(c.timeout)); err != nil {
		return 0, err
	}
	return c.Conn.Write(b)
}
