package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

const (
	// ConfigDir is the configuration directory name
	ConfigDir = "sshrun"
	// ConfigFile is the config filename
	ConfigFile = "config.yaml"
)

// GetConfigPath returns the path to the config file
func GetConfigPath() (string, error) {
	configDir, err := os.UserConfigDir()
	if err != nil {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("failed to get home directory: %w", err)
		}
		configDir = filepath.Join(homeDir, ".config")
	}

	return filepath.Join(configDir, ConfigDir, ConfigFile), nil
}

// Load reads the configuration from path, or from the default location when
// path is empty. A missing file yields an empty configuration, not an error.
func Load(path string) (*Config, error) {
	if path == "" {
		var err error
		path, err = GetConfigPath()
		if err != nil {
			return nil, err
		}
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return &Config{Hosts: make(map[string]HostConfig)}, nil
		}
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	var config Config
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	if config.Hosts == nil {
		config.Hosts = make(map[string]HostConfig)
	}

	return &config, nil
}

// Save writes the configuration to path, or to the default location when
// path is empty.
func Save(config *Config, path string) error {
	if path == "" {
		var err error
		path, err = GetConfigPath()
		if err != nil {
			return err
		}
	}

	dir := filepath.Dir(path)
	// SECURITY: Use 0700 to restrict directory access to owner only
	if err := os.MkdirAll(dir, 0700); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(config)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	// SECURITY: Use 0600 to restrict file access to owner only (contains host credentials paths)
	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}

	return nil
}

// GetHost retrieves a host configuration by alias
func (c *Config) GetHost(name string) (*HostConfig, error) {
	host, ok := c.Hosts[name]
	if !ok {
		return nil, fmt.Errorf("host '%s' not found", name)
	}
	return &host, nil
}

// AddHost adds a new host alias to the configuration
func (c *Config) AddHost(name string, host HostConfig) error {
	if _, exists := c.Hosts[name]; exists {
		return fmt.Errorf("host '%s' already exists", name)
	}

	c.Hosts[name] = host
	return nil
}

// RemoveHost removes a host alias from the configuration
func (c *Config) RemoveHost(name string) error {
	if _, exists := c.Hosts[name]; !exists {
		return fmt.Errorf("host '%s' not found", name)
	}

	delete(c.Hosts, name)
	return nil
}

// ListHosts returns all host alias names
func (c *Config) ListHosts() []string {
	names := make([]string, 0, len(c.Hosts))
	for name := range c.Hosts {
		names = append(names, name)
	}
	return names
}

// Resolve turns a target argument into a Target. When the argument names a
// saved alias, the alias supplies host, user, port and key material; global
// defaults fill whatever the alias leaves empty. Anything else is treated as
// a literal hostname with only the global defaults applied. Empty fields
// remain for the caller's flags to fill; the username in particular has no
// terminal fallback here.
func (c *Config) Resolve(target string) Target {
	resolved := Target{
		Host:    target,
		User:    c.DefaultUser,
		Port:    c.DefaultPort,
		KeyPath: c.DefaultKey,
	}

	alias, ok := c.Hosts[target]
	if !ok {
		return resolved
	}

	resolved.Host = alias.Host
	resolved.CertPath = alias.CertPath
	if alias.User != "" {
		resolved.User = alias.User
	}
	if alias.Port != 0 {
		resolved.Port = alias.Port
	}
	if alias.KeyPath != "" {
		resolved.KeyPath = alias.KeyPath
	}
	return resolved
}
