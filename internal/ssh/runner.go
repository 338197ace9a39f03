package ssh

import "io"

// Runner abstracts remote command execution for testability.
type Runner interface {
	// Call runs one command, streaming its output to out, and returns the
	// remote exit code.
	Call(command string, out io.Writer) (int, error)

	// Close gracefully disconnects and releases the connection handle.
	Close() error
}

var _ Runner = (*Client)(nil)
