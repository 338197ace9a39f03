package ssh

import (
	"fmt"
	"io"

	"golang.org/x/crypto/ssh"
)

// execMsg is the payload of an "exec" channel request (RFC 4254,
// section 6.5).
type execMsg struct {
	Command string
}

// flusher is implemented by sinks that buffer writes. Call flushes after
// every data fragment so partial output stays visible even if the local
// process is interrupted mid-command.
type flusher interface {
	Flush() error
}

// Call opens one execution channel, requests direct (non-interactive)
// execution of the already-escaped command string, and drains the channel's
// event stream until the peer tears the channel down. Data fragments are
// written to out in arrival order; the exit status is recorded when it
// arrives but never terminates the drain, because buffered data may trail it.
//
// The returned code is only valid when err is nil. A stream that exhausts
// without ever reporting an exit status fails with ErrNoExitStatus: the
// remote side disconnected without cleanly reporting an outcome, and no
// placeholder code is fabricated.
func (c *Client) Call(command string, out io.Writer) (int, error) {
	c.mu.Lock()
	if c.state != stateIdle || c.conn == nil {
		state := c.state
		c.mu.Unlock()
		return 0, fmt.Errorf("%w: cannot run a command while %s", ErrSessionState, state)
	}
	c.state = stateChannelOpen
	conn := c.conn
	c.mu.Unlock()

	defer func() {
		c.mu.Lock()
		// Close may have run while the channel was open; never resurrect a
		// closed session.
		if c.state == stateChannelOpen {
			c.state = stateIdle
		}
		c.mu.Unlock()
	}()

	c.log.Debug().Str("command", command).Msg("opening execution channel")
	ch, reqs, err := conn.OpenChannel("session", nil)
	if err != nil {
		return 0, fmt.Errorf("failed to open execution channel: %w", err)
	}
	defer ch.Close()

	ok, err := ch.SendRequest("exec", true, ssh.Marshal(execMsg{Command: command}))
	if err != nil {
		return 0, fmt.Errorf("exec request failed: %w", err)
	}
	if !ok {
		return 0, fmt.Errorf("exec request rejected by peer")
	}

	events := channelEvents(ch, reqs)
	code, err := c.drain(events, out)
	if err != nil {
		// Unblock the event producers before returning so they can observe
		// the channel teardown and exit.
		go func() {
			for range events {
			}
		}()
		return 0, err
	}
	return code, nil
}

// drain consumes the event stream to exhaustion. Termination is driven
// solely by stream closure, never by the first exit-status sighting: the
// peer is free to deliver trailing data after the status, and an early
// return would truncate it.
func (c *Client) drain(events <-chan ChannelEvent, out io.Writer) (int, error) {
	var (
		code       int
		statusSeen bool
	)

	for event := range events {
		switch event := event.(type) {
		case DataEvent:
			if _, err := out.Write(event.Payload); err != nil {
				return 0, fmt.Errorf("failed to write command output: %w", err)
			}
			if f, ok := out.(flusher); ok {
				if err := f.Flush(); err != nil {
					return 0, fmt.Errorf("failed to flush command output: %w", err)
				}
			}
		case ExitStatusEvent:
			c.log.Debug().Int("code", event.Code).Msg("exit status received")
			code = event.Code
			statusSeen = true
		case RequestEvent:
			c.log.Debug().Str("type", event.Type).Msg("ignoring channel request")
		}
	}

	if !statusSeen {
		return 0, fmt.Errorf("%w: peer disconnected mid-command", ErrNoExitStatus)
	}
	return code, nil
}
