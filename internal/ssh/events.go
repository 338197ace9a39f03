package ssh

// events.go models the traffic on an execution channel as a stream of tagged
// events. The SSH wire protocol interleaves in-band data with out-of-band
// channel requests; collapsing both into one ordered stream is what lets the
// drain loop in call.go stay a plain exhaustive switch.

import (
	"sync"

	"golang.org/x/crypto/ssh"
)

// ChannelEvent is one occurrence on an open execution channel. The concrete
// types are DataEvent, ExitStatusEvent and RequestEvent; the unexported
// marker method keeps the set closed so the drain loop's type switch stays
// exhaustive.
type ChannelEvent interface {
	channelEvent()
}

// DataEvent carries one fragment of the remote command's output. Fragments
// arrive in the order the remote peer produced them.
type DataEvent struct {
	Payload []byte
}

// ExitStatusEvent carries the remote command's numeric exit code. At most one
// is expected per run, and it is NOT necessarily the last event: buffered
// data fragments may still follow it.
type ExitStatusEvent struct {
	Code int
}

// RequestEvent is any other out-of-band channel request. The drain loop
// ignores these, but they must not end it.
type RequestEvent struct {
	Type string
}

func (DataEvent) channelEvent()       {}
func (ExitStatusEvent) channelEvent() {}
func (RequestEvent) channelEvent()    {}

// exitStatusMsg is the payload of an "exit-status" channel request
// (RFC 4254, section 6.10).
type exitStatusMsg struct {
	Status uint32
}

// channelEvents merges a channel's in-band data and its out-of-band requests
// into a single event stream. The returned channel is closed only once the
// data reader has hit EOF AND the request channel is closed, i.e. once the
// peer has fully torn the channel down. Data fragments keep their wire order;
// the position of the exit-status event relative to trailing data fragments
// carries no guarantee, which is exactly why the drain loop must run to
// stream exhaustion.
func channelEvents(ch ssh.Channel, reqs <-chan *ssh.Request) <-chan ChannelEvent {
	events := make(chan ChannelEvent)

	var wg sync.WaitGroup
	wg.Add(2)

	go func() {
		defer wg.Done()
		buf := make([]byte, 32*1024)
		for {
			n, err := ch.Read(buf)
			if n > 0 {
				payload := make([]byte, n)
				copy(payload, buf[:n])
				events <- DataEvent{Payload: payload}
			}
			if err != nil {
				return
			}
		}
	}()

	go func() {
		defer wg.Done()
		for req := range reqs {
			switch req.Type {
			case "exit-status":
				var msg exitStatusMsg
				if err := ssh.Unmarshal(req.Payload, &msg); err != nil {
					// Malformed payload: surface as an ignorable event rather
					// than inventing a code.
					events <- RequestEvent{Type: req.Type}
					break
				}
				events <- ExitStatusEvent{Code: int(msg.Status)}
			default:
				events <- RequestEvent{Type: req.Type}
			}
			if req.WantReply {
				_ = req.Reply(false, nil)
			}
		}
	}()

	go func() {
		wg.Wait()
		close(events)
	}()

	return events
}
