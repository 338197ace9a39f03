package ssh

import (
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/ssh"
)

// fakeChannel is an in-memory ssh.Channel serving scripted read fragments.
type fakeChannel struct {
	fragments [][]byte
}

func (f *fakeChannel) Read(b []byte) (int, error) {
	if len(f.fragments) == 0 {
		return 0, io.EOF
	}
	n := copy(b, f.fragments[0])
	if n == len(f.fragments[0]) {
		f.fragments = f.fragments[1:]
	} else {
		f.fragments[0] = f.fragments[0][n:]
	}
	return n, nil
}

func (f *fakeChannel) Write(b []byte) (int, error)  { return len(b), nil }
func (f *fakeChannel) Close() error                 { return nil }
func (f *fakeChannel) CloseWrite() error            { return nil }
func (f *fakeChannel) Stderr() io.ReadWriter        { return nil }
func (f *fakeChannel) SendRequest(string, bool, []byte) (bool, error) {
	return true, nil
}

func TestChannelEvents_MergedStream(t *testing.T) {
	ch := &fakeChannel{fragments: [][]byte{[]byte("foo"), []byte("bar")}}

	reqs := make(chan *ssh.Request, 2)
	reqs <- &ssh.Request{Type: "exit-status", Payload: ssh.Marshal(exitStatusMsg{Status: 7})}
	reqs <- &ssh.Request{Type: "eow@openssh.com"}
	close(reqs)

	var (
		data     []byte
		exitCode = -1
		ignored  []string
	)
	for event := range channelEvents(ch, reqs) {
		switch event := event.(type) {
		case DataEvent:
			data = append(data, event.Payload...)
		case ExitStatusEvent:
			exitCode = event.Code
		case RequestEvent:
			ignored = append(ignored, event.Type)
		}
	}

	assert.Equal(t, "foobar", string(data), "data fragments must keep wire order")
	assert.Equal(t, 7, exitCode)
	assert.Equal(t, []string{"eow@openssh.com"}, ignored)
}

func TestChannelEvents_MalformedExitStatus(t *testing.T) {
	ch := &fakeChannel{}

	reqs := make(chan *ssh.Request, 1)
	reqs <- &ssh.Request{Type: "exit-status", Payload: []byte{0x01}}
	close(reqs)

	var events []ChannelEvent
	for event := range channelEvents(ch, reqs) {
		events = append(events, event)
	}

	require.Len(t, events, 1)
	assert.IsType(t, RequestEvent{}, events[0],
		"a malformed exit status must surface as an ignorable event, not a code")
}
