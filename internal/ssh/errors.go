package ssh

// errors.go defines the sentinel errors returned by this package. ALL errors
// returned by this package wrap one of these, so callers can classify
// failures with 'errors.Is' instead of matching message text. The split
// between ErrDial, ErrHandshake and ErrAuth is deliberate: "couldn't reach",
// "couldn't negotiate" and "credentials rejected" call for different operator
// responses.

import "fmt"

var (
	// ErrCredential indicates the private key or certificate could not be
	// loaded or parsed. Raised before any network activity.
	ErrCredential = fmt.Errorf("failed to load credentials")

	// ErrDial indicates the TCP connection to the target could not be
	// established.
	ErrDial = fmt.Errorf("failed to establish TCP connection")

	// ErrHandshake indicates the SSH transport negotiation failed (no common
	// algorithm, connection reset mid-handshake, ...).
	ErrHandshake = fmt.Errorf("SSH handshake failed")

	// ErrAuth indicates the peer rejected the chosen authentication strategy.
	ErrAuth = fmt.Errorf("authentication rejected by peer")

	// ErrNoExitStatus indicates the remote side closed the execution channel
	// without ever reporting an exit status. The command's outcome is unknown
	// and no exit code is fabricated.
	ErrNoExitStatus = fmt.Errorf("channel closed without an exit status")

	// ErrSessionState indicates an operation was attempted in a state that
	// does not permit it: Call before Connect, a second Call while one is in
	// flight, or any Call after Close.
	ErrSessionState = fmt.Errorf("invalid session state")
)
