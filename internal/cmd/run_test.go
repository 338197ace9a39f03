package cmd

import (
	"errors"
	"io"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
	gossh "golang.org/x/crypto/ssh"

	"github.com/sshrun/sshrun/internal/config"
	"github.com/sshrun/sshrun/internal/ssh"
)

// resetRunFlags restores the run command's flag variables after a test.
func resetRunFlags(t *testing.T) {
	t.Helper()
	t.Cleanup(func() {
		runPort = 0
		runUser = ""
		runKey = ""
		runCert = ""
		runTimeout = 0
		runInsecure = false
		cfgFile = ""
	})
}

// stubRunner swaps newRunner for one backed by the given mock, restoring the
// real constructor after the test. It returns a pointer to the target the
// stub received.
func stubRunner(t *testing.T, mock *ssh.MockRunner, connectErr error) *config.Target {
	t.Helper()
	var seen config.Target
	orig := newRunner
	newRunner = func(target config.Target, _ time.Duration, _ gossh.HostKeyCallback, _ zerolog.Logger) (ssh.Runner, error) {
		seen = target
		if connectErr != nil {
			return nil, connectErr
		}
		return mock, nil
	}
	t.Cleanup(func() { newRunner = orig })
	return &seen
}

func TestRunRun_EscapesAndJoinsCommand(t *testing.T) {
	resetRunFlags(t)
	cfgFile = filepath.Join(t.TempDir(), "config.yaml")
	runUser = "deploy"
	runKey = "/keys/test"
	runInsecure = true

	mock := &ssh.MockRunner{}
	stubRunner(t, mock, nil)

	if err := runRun(runCmd, []string{"example.com", "echo", "a b", "it's"}); err != nil {
		t.Fatalf("runRun: %v", err)
	}

	if len(mock.Commands) != 1 {
		t.Fatalf("expected 1 command, got %d", len(mock.Commands))
	}
	want := `echo 'a b' 'it'\''s'`
	if mock.Commands[0] != want {
		t.Errorf("command = %q, want %q", mock.Commands[0], want)
	}
	if !mock.Closed {
		t.Error("runner was not closed")
	}
}

func TestRunRun_PropagatesExitCode(t *testing.T) {
	resetRunFlags(t)
	cfgFile = filepath.Join(t.TempDir(), "config.yaml")
	runUser = "deploy"
	runKey = "/keys/test"
	runInsecure = true

	mock := &ssh.MockRunner{
		CallFunc: func(string, io.Writer) (int, error) { return 3, nil },
	}
	stubRunner(t, mock, nil)

	err := runRun(runCmd, []string{"example.com", "false"})
	var exitErr *ExitCodeError
	if !errors.As(err, &exitErr) {
		t.Fatalf("expected *ExitCodeError, got %v", err)
	}
	if exitErr.Code != 3 {
		t.Errorf("exit code = %d, want 3", exitErr.Code)
	}
	if !mock.Closed {
		t.Error("runner was not closed on non-zero exit")
	}
}

func TestRunRun_ZeroExitIsNil(t *testing.T) {
	resetRunFlags(t)
	cfgFile = filepath.Join(t.TempDir(), "config.yaml")
	runUser = "deploy"
	runKey = "/keys/test"
	runInsecure = true

	mock := &ssh.MockRunner{}
	stubRunner(t, mock, nil)

	if err := runRun(runCmd, []string{"example.com", "true"}); err != nil {
		t.Errorf("expected nil error for exit 0, got %v", err)
	}
}

func TestRunRun_RequiresUser(t *testing.T) {
	resetRunFlags(t)
	cfgFile = filepath.Join(t.TempDir(), "config.yaml")
	runKey = "/keys/test"
	runInsecure = true

	stubRunner(t, &ssh.MockRunner{}, nil)

	if err := runRun(runCmd, []string{"example.com", "id"}); err == nil {
		t.Error("expected error when no username is available anywhere")
	}
}

func TestRunRun_ConnectErrorPropagates(t *testing.T) {
	resetRunFlags(t)
	cfgFile = filepath.Join(t.TempDir(), "config.yaml")
	runUser = "deploy"
	runKey = "/keys/test"
	runInsecure = true

	connectErr := errors.New("boom")
	stubRunner(t, nil, connectErr)

	if err := runRun(runCmd, []string{"example.com", "id"}); !errors.Is(err, connectErr) {
		t.Errorf("expected connect error, got %v", err)
	}
}

func TestResolveTarget_FlagsWin(t *testing.T) {
	resetRunFlags(t)
	runUser = "override"
	runPort = 2200
	runCert = "/certs/flag.pub"

	cfg := &config.Config{
		Hosts: map[string]config.HostConfig{
			"web1": {Host: "web1.example.com", User: "deploy", Port: 22, KeyPath: "/keys/alias"},
		},
	}

	target := resolveTarget(cfg, "web1")
	if target.Host != "web1.example.com" {
		t.Errorf("host = %q", target.Host)
	}
	if target.User != "override" || target.Port != 2200 || target.CertPath != "/certs/flag.pub" {
		t.Errorf("flags did not win: %+v", target)
	}
	if target.KeyPath != "/keys/alias" {
		t.Errorf("unset flag should keep alias value, got %q", target.KeyPath)
	}
}

func TestExitCodeError_Message(t *testing.T) {
	err := &ExitCodeError{Code: 42}
	want := "remote command exited with status 42"
	if err.Error() != want {
		t.Errorf("Error() = %q, want %q", err.Error(), want)
	}
}
