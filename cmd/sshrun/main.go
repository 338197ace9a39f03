package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/sshrun/sshrun/internal/cmd"
)

func main() {
	err := cmd.Execute()
	if err == nil {
		return
	}

	// A remote non-zero exit code is not a local failure to report; it is
	// propagated as this process's termination status.
	var exitErr *cmd.ExitCodeError
	if errors.As(err, &exitErr) {
		os.Exit(exitErr.Code)
	}

	fmt.Fprintln(os.Stderr, "Error:", err)
	os.Exit(1)
}
