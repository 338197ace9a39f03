package config

// Config represents the global ~/.config/sshrun/config.yaml
type Config struct {
	// Hosts maps alias names to saved connection targets.
	Hosts map[string]HostConfig `yaml:"hosts"`

	// DefaultUser is the username used when neither the flag nor the host
	// alias supplies one. There is deliberately no built-in fallback
	// identity: leaving every default empty makes the username a required
	// input.
	DefaultUser string `yaml:"default_user,omitempty"`
	DefaultPort int    `yaml:"default_port,omitempty"`
	DefaultKey  string `yaml:"default_key,omitempty"`

	// TimeoutSeconds bounds session inactivity. Zero means the client
	// default.
	TimeoutSeconds int `yaml:"timeout_seconds,omitempty"`

	// KnownHostsPath overrides the known_hosts file used for host key
	// verification (default ~/.ssh/known_hosts).
	KnownHostsPath string `yaml:"known_hosts,omitempty"`
}

// HostConfig represents a saved connection target.
type HostConfig struct {
	Host     string `yaml:"host"`
	User     string `yaml:"user,omitempty"`
	Port     int    `yaml:"port,omitempty"`
	KeyPath  string `yaml:"key_path,omitempty"`
	CertPath string `yaml:"cert_path,omitempty"`
}

// Target is a fully resolved connection target for one invocation: alias
// values merged with global defaults. Zero or empty fields are the ones
// nothing configured.
type Target struct {
	Host     string
	User     string
	Port     int
	KeyPath  string
	CertPath string
}
