package cmd

import (
	"fmt"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/sshrun/sshrun/internal/config"
)

var hostsCmd = &cobra.Command{
	Use:   "hosts",
	Short: "Manage saved host aliases",
	Long:  `Commands to add, list, and remove host aliases in the global configuration.`,
}

var hostsAddCmd = &cobra.Command{
	Use:   "add <name> <user@host>",
	Short: "Save a host alias",
	Long: `Adds a host alias to the global configuration.

Example:
  sshrun hosts add web1 deploy@web1.example.com
  sshrun hosts add staging admin@staging.example.com --port 2222 --certificate ~/.ssh/id-cert.pub`,
	Args: cobra.ExactArgs(2),
	RunE: runHostsAdd,
}

var hostsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List saved host aliases",
	RunE:  runHostsList,
}

var hostsRemoveCmd = &cobra.Command{
	Use:   "remove <name>",
	Short: "Remove a host alias",
	Args:  cobra.ExactArgs(1),
	RunE:  runHostsRemove,
}

var (
	hostsPort int
	hostsKey  string
	hostsCert string
)

func init() {
	rootCmd.AddCommand(hostsCmd)
	hostsCmd.AddCommand(hostsAddCmd)
	hostsCmd.AddCommand(hostsListCmd)
	hostsCmd.AddCommand(hostsRemoveCmd)

	hostsAddCmd.Flags().IntVarP(&hostsPort, "port", "p", 0, "SSH port (default 22)")
	hostsAddCmd.Flags().StringVarP(&hostsKey, "key", "k", "", "Private key path")
	hostsAddCmd.Flags().StringVarP(&hostsCert, "certificate", "o", "", "OpenSSH certificate path")
}

func runHostsAdd(cmd *cobra.Command, args []string) error {
	name := args[0]
	if err := config.ValidateAlias(name); err != nil {
		return fmt.Errorf("invalid host alias: %w", err)
	}

	user, host, err := splitUserHost(args[1])
	if err != nil {
		return err
	}
	if err := config.ValidateUser(user); err != nil {
		return fmt.Errorf("invalid user: %w", err)
	}
	if hostsPort != 0 {
		if err := config.ValidatePort(hostsPort); err != nil {
			return err
		}
	}

	cfg, err := config.Load(cfgFile)
	if err != nil {
		return err
	}

	if err := cfg.AddHost(name, config.HostConfig{
		Host:     host,
		User:     user,
		Port:     hostsPort,
		KeyPath:  hostsKey,
		CertPath: hostsCert,
	}); err != nil {
		return err
	}

	if err := config.Save(cfg, cfgFile); err != nil {
		return err
	}

	fmt.Printf("Host '%s' added (%s@%s)\n", name, user, host)
	return nil
}

func runHostsList(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return err
	}

	names := cfg.ListHosts()
	if len(names) == 0 {
		fmt.Println("No hosts configured. Add one with: sshrun hosts add <name> <user@host>")
		return nil
	}
	sort.Strings(names)

	for _, name := range names {
		host := cfg.Hosts[name]
		line := fmt.Sprintf("%-20s %s@%s", name, host.User, host.Host)
		if host.Port != 0 {
			line += fmt.Sprintf(":%d", host.Port)
		}
		if host.CertPath != "" {
			line += "  [cert]"
		}
		fmt.Println(line)
	}
	return nil
}

func runHostsRemove(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return err
	}

	if err := cfg.RemoveHost(args[0]); err != nil {
		return err
	}
	if err := config.Save(cfg, cfgFile); err != nil {
		return err
	}

	fmt.Printf("Host '%s' removed\n", args[0])
	return nil
}

// splitUserHost parses a user@host argument.
func splitUserHost(spec string) (user, host string, err error) {
	parts := strings.SplitN(spec, "@", 2)
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return "", "", fmt.Errorf("invalid host format %q, use user@host", spec)
	}
	return parts[0], parts[1], nil
}
