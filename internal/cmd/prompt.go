package cmd

import (
	"fmt"
	"os"

	"golang.org/x/term"
)

// promptPassphrase reads a key passphrase without echo. The prompt goes to
// stderr so stdout stays reserved for remote command output.
func promptPassphrase(keyPath string) ([]byte, error) {
	if !IsInteractive() {
		return nil, fmt.Errorf("key %s is passphrase-protected and stdin is not a terminal", keyPath)
	}

	fmt.Fprintf(os.Stderr, "Enter passphrase for %s: ", keyPath)
	defer fmt.Fprintln(os.Stderr)

	return term.ReadPassword(int(os.Stdin.Fd()))
}

// IsInteractive returns true if stdin is a terminal
func IsInteractive() bool {
	return term.IsTerminal(int(os.Stdin.Fd()))
}
