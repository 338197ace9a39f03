package cmd

import (
	"os"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

var (
	// Version is set at build time
	Version = "dev"

	// Global flags
	verbose bool
	cfgFile string
)

var rootCmd = &cobra.Command{
	Use:   "sshrun",
	Short: "Run commands on remote hosts over SSH",
	Long: `sshrun executes a single command on a remote host over SSH and
mirrors its output locally, exiting with the remote command's exit code.

Authentication uses a private key, optionally combined with a short-lived
OpenSSH certificate.

Quick start:
  sshrun run server.example.com -u deploy -- uname -a
  sshrun hosts add web1 deploy@server.example.com --key ~/.ssh/id_ed25519
  sshrun run web1 -- systemctl status nginx

Arguments after the host are escaped individually, so tokens containing
spaces or shell metacharacters reach the remote command intact.`,
	Version:       Version,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the root command
func Execute() error {
	return rootCmd.Execute()
}

// GetRootCmd returns the root command (used by gendocs)
func GetRootCmd() *cobra.Command {
	return rootCmd
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Show detailed logs")
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "Config file (default: ~/.config/sshrun/config.yaml)")

	rootCmd.SetVersionTemplate(`sshrun {{.Version}}
`)
}

// Logger returns the CLI logger. It writes to stderr only, so remote command
// output mirrored on stdout stays uncontaminated.
func Logger() zerolog.Logger {
	level := zerolog.WarnLevel
	if verbose {
		level = zerolog.DebugLevel
	}
	return zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).
		Level(level).
		With().Timestamp().Logger()
}

// IsVerbose returns true if verbose mode is enabled
func IsVerbose() bool {
	return verbose
}
