package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	gossh "golang.org/x/crypto/ssh"
	"golang.org/x/crypto/ssh/knownhosts"

	"github.com/sshrun/sshrun/internal/config"
	"github.com/sshrun/sshrun/internal/shellsafe"
	"github.com/sshrun/sshrun/internal/ssh"
)

var runCmd = &cobra.Command{
	Use:   "run <host> [--] <command> [args...]",
	Short: "Execute a command on a remote host",
	Long: `Connects to a host (literal hostname or saved alias), executes the
given command, streams its output to stdout, and exits with the remote
command's exit code.

Each command argument is escaped individually before being joined into the
remote command string, so arguments containing spaces, quotes, or shell
metacharacters survive the remote shell intact.

Examples:
  sshrun run server.example.com -u deploy -- uptime
  sshrun run web1 -- journalctl -u nginx --since '1 hour ago'
  sshrun run web1 -o ~/.ssh/id_ed25519-cert.pub -- id`,
	Args: cobra.MinimumNArgs(2),
	RunE: runRun,
}

var (
	runPort     int
	runUser     string
	runKey      string
	runCert     string
	runTimeout  time.Duration
	runInsecure bool
)

func init() {
	rootCmd.AddCommand(runCmd)
	runCmd.Flags().IntVarP(&runPort, "port", "p", 0, "SSH port (default 22)")
	runCmd.Flags().StringVarP(&runUser, "user", "u", "", "Username to authenticate as")
	runCmd.Flags().StringVarP(&runKey, "key", "k", "", "Private key path")
	runCmd.Flags().StringVarP(&runCert, "certificate", "o", "", "OpenSSH certificate path")
	runCmd.Flags().DurationVar(&runTimeout, "timeout", 0, "Session inactivity timeout")
	runCmd.Flags().BoolVar(&runInsecure, "insecure", false, "Skip host key verification (dangerous)")
}

// ExitCodeError carries a remote command's non-zero exit code so main can
// propagate it as the local process's termination status.
type ExitCodeError struct {
	Code int
}

func (e *ExitCodeError) Error() string {
	return fmt.Sprintf("remote command exited with status %d", e.Code)
}

// newRunner connects to the resolved target. Swapped out in tests.
var newRunner = func(target config.Target, timeout time.Duration, hostKeys gossh.HostKeyCallback, log zerolog.Logger) (ssh.Runner, error) {
	creds, err := ssh.LoadCredentials(target.KeyPath, target.CertPath, promptPassphrase)
	if err != nil {
		return nil, err
	}

	opts := []ssh.ClientOption{
		ssh.WithHostKeyCallback(hostKeys),
		ssh.WithLogger(log),
	}
	if timeout > 0 {
		opts = append(opts, ssh.WithTimeout(timeout))
	}

	client := ssh.NewClient(target.Host, target.User, target.Port, creds, opts...)
	if err := client.Connect(); err != nil {
		return nil, err
	}
	return client, nil
}

func runRun(cmd *cobra.Command, args []string) error {
	log := Logger()

	cfg, err := config.Load(cfgFile)
	if err != nil {
		return err
	}

	target := resolveTarget(cfg, args[0])
	if target.User == "" {
		// No silent fallback identity: implicitly targeting a privileged
		// account is worse than asking.
		return fmt.Errorf("no username for %s: pass --user, save a host alias, or set default_user in the config", target.Host)
	}
	if err := config.ValidateUser(target.User); err != nil {
		return fmt.Errorf("invalid user: %w", err)
	}
	if target.KeyPath == "" {
		target.KeyPath, err = discoverKey()
		if err != nil {
			return err
		}
	}

	timeout := runTimeout
	if timeout == 0 && cfg.TimeoutSeconds > 0 {
		timeout = time.Duration(cfg.TimeoutSeconds) * time.Second
	}

	hostKeys, err := hostKeyPolicy(cfg, log)
	if err != nil {
		return err
	}

	runner, err := newRunner(target, timeout, hostKeys, log)
	if err != nil {
		return err
	}
	defer runner.Close()

	command := shellsafe.Join(args[1:])
	log.Debug().Str("command", command).Msg("executing")

	code, err := runner.Call(command, os.Stdout)
	if err != nil {
		return err
	}
	if code != 0 {
		return &ExitCodeError{Code: code}
	}
	return nil
}

// resolveTarget merges config resolution with command line flags; flags win.
func resolveTarget(cfg *config.Config, arg string) config.Target {
	target := cfg.Resolve(arg)
	if runUser != "" {
		target.User = runUser
	}
	if runPort != 0 {
		target.Port = runPort
	}
	if runKey != "" {
		target.KeyPath = runKey
	}
	if runCert != "" {
		target.CertPath = runCert
	}
	return target
}

// hostKeyPolicy picks the server identity verification strategy. The library
// default of accepting any host key is only used when explicitly requested
// with --insecure; otherwise the known_hosts file must exist.
func hostKeyPolicy(cfg *config.Config, log zerolog.Logger) (gossh.HostKeyCallback, error) {
	if runInsecure {
		log.Warn().Msg("host key verification disabled")
		return ssh.AcceptAnyHostKey(), nil
	}

	path := cfg.KnownHostsPath
	if path == "" {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("cannot determine home directory: %w", err)
		}
		path = filepath.Join(homeDir, ".ssh", "known_hosts")
	}

	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil, fmt.Errorf("known_hosts file not found at %s "+
			"(connect to the host manually first, configure known_hosts in the config, or pass --insecure)", path)
	}

	callback, err := knownhosts.New(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read known_hosts: %w", err)
	}
	return callback, nil
}

// discoverKey falls back to the common default key locations.
func discoverKey() (string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("cannot determine home directory: %w", err)
	}
	candidates := []string{
		filepath.Join(homeDir, ".ssh", "id_ed25519"),
		filepath.Join(homeDir, ".ssh", "id_rsa"),
	}
	for _, candidate := range candidates {
		if _, err := os.Stat(candidate); err == nil {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("no private key found (pass --key or set default_key in the config)")
}
