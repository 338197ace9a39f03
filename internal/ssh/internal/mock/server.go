// Package mock implements a minimal in-process SSH server for exercising the
// client's full connect/auth/exec/drain/close cycle without a real remote
// host.
//
// The server accepts "session" channels and answers "exec" requests by
// replaying a Script: data fragments, an optional exit status, then more data
// fragments, then channel teardown. Scripting the position of the exit status
// relative to data is what makes the drain-ordering and missing-status cases
// reproducible.
package mock

import (
	"fmt"
	"net"
	"sync"
	"testing"

	"golang.org/x/crypto/ssh"
)

// Script describes how the server responds to one "exec" request.
type Script struct {
	// Before holds data fragments written ahead of the exit status.
	Before [][]byte

	// ExitStatus is the code reported via an "exit-status" channel request.
	// Nil means the channel is torn down without ever reporting one.
	ExitStatus *int

	// After holds data fragments written after the exit status, before the
	// channel closes. Clients that stop draining at the first exit status
	// lose these.
	After [][]byte
}

// ExitStatus builds the optional exit-status field of a Script.
func ExitStatus(code int) *int {
	return &code
}

// Server is a single-script mock SSH server. Construct with NewServer; it
// listens immediately on a loopback port and shuts down via t.Cleanup.
type Server struct {
	t        *testing.T
	listener net.Listener
	config   *ssh.ServerConfig
	script   Script

	mu       sync.Mutex
	commands []string
	sawCert  bool
	conns    []net.Conn
}

// NewServer starts a mock server on 127.0.0.1 with the given host key.
// Any client public key authenticates; the server records whether the
// offered key was an OpenSSH certificate so tests can observe which
// authentication strategy the client actually used.
func NewServer(t *testing.T, hostSigner ssh.Signer, script Script) *Server {
	t.Helper()

	s := &Server{t: t, script: script}
	s.config = &ssh.ServerConfig{
		PublicKeyCallback: func(_ ssh.ConnMetadata, key ssh.PublicKey) (*ssh.Permissions, error) {
			_, isCert := key.(*ssh.Certificate)
			s.mu.Lock()
			s.sawCert = isCert
			s.mu.Unlock()
			return &ssh.Permissions{}, nil
		},
	}
	s.config.AddHostKey(hostSigner)

	listener, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("mock server failed to listen: %v", err)
	}
	s.listener = listener
	t.Cleanup(s.Stop)

	go s.serve()
	return s
}

// RejectAuth makes every subsequent authentication attempt fail. Must be
// called before the client connects.
func (s *Server) RejectAuth() {
	s.config.PublicKeyCallback = func(meta ssh.ConnMetadata, _ ssh.PublicKey) (*ssh.Permissions, error) {
		return nil, fmt.Errorf("unknown public key for %q", meta.User())
	}
}

// Addr returns the host:port the server listens on.
func (s *Server) Addr() string {
	return s.listener.Addr().String()
}

// Commands returns the exec command strings received so far, in order.
func (s *Server) Commands() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.commands...)
}

// SawCertificate reports whether the last authentication offered an OpenSSH
// certificate rather than a bare public key.
func (s *Server) SawCertificate() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sawCert
}

// Stop closes the listener and severs every accepted connection without any
// SSH-level goodbye, leaving connected clients with a broken transport.
// Safe to call more than once.
func (s *Server) Stop() {
	_ = s.listener.Close()
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, conn := range s.conns {
		_ = conn.Close()
	}
}

func (s *Server) serve() {
	for {
		conn, err := s.listener.Accept()
		if err != nil {
			// Listener closed by shutdown.
			return
		}
		s.mu.Lock()
		s.conns = append(s.conns, conn)
		s.mu.Unlock()
		go s.handleConn(conn)
	}
}

func (s *Server) handleConn(conn net.Conn) {
	sshConn, chans, reqs, err := ssh.NewServerConn(conn, s.config)
	if err != nil {
		return
	}
	defer sshConn.Close()
	go ssh.DiscardRequests(reqs)

	for newChannel := range chans {
		if newChannel.ChannelType() != "session" {
			_ = newChannel.Reject(ssh.UnknownChannelType, "unknown channel type")
			continue
		}
		channel, channelReqs, err := newChannel.Accept()
		if err != nil {
			return
		}
		go s.handleSession(channel, channelReqs)
	}
}

func (s *Server) handleSession(channel ssh.Channel, reqs <-chan *ssh.Request) {
	defer channel.Close()

	for req := range reqs {
		if req.Type != "exec" {
			if req.WantReply {
				_ = req.Reply(false, nil)
			}
			continue
		}

		var msg struct {
			Command string
		}
		if err := ssh.Unmarshal(req.Payload, &msg); err != nil {
			_ = req.Reply(false, nil)
			continue
		}
		s.mu.Lock()
		s.commands = append(s.commands, msg.Command)
		s.mu.Unlock()
		if req.WantReply {
			_ = req.Reply(true, nil)
		}

		s.replay(channel)
		return
	}
}

// replay writes the scripted response and returns, letting the deferred
// channel close signal end-of-stream to the client.
func (s *Server) replay(channel ssh.Channel) {
	for _, fragment := range s.script.Before {
		if _, err := channel.Write(fragment); err != nil {
			return
		}
	}
	if s.script.ExitStatus != nil {
		_, _ = channel.SendRequest("exit-status", false, ssh.Marshal(struct {
			Status uint32
		}{uint32(*s.script.ExitStatus)}))
	}
	for _, fragment := range s.script.After {
		if _, err := channel.Write(fragment); err != nil {
			return
		}
	}
}
