package config

import (
	"fmt"
	"regexp"
)

var (
	// aliasRegex validates host alias names
	// Allows: letters, numbers, underscores, hyphens, dots
	// Length: 1-64 characters
	aliasRegex = regexp.MustCompile(`^[a-zA-Z0-9]([a-zA-Z0-9._-]{0,62}[a-zA-Z0-9])?$`)

	// userRegex validates usernames offered during authentication
	// Standard POSIX username rules
	// Length: 1-32 characters
	userRegex = regexp.MustCompile(`^[a-z_][a-z0-9_-]{0,31}$`)
)

// ValidateAlias validates a host alias name
func ValidateAlias(name string) error {
	if name == "" {
		return fmt.Errorf("host alias cannot be empty")
	}
	if !aliasRegex.MatchString(name) {
		return fmt.Errorf("host alias must contain only letters, numbers, dots, underscores, and hyphens")
	}
	return nil
}

// ValidateUser validates a username
func ValidateUser(user string) error {
	if user == "" {
		return fmt.Errorf("username cannot be empty")
	}
	if !userRegex.MatchString(user) {
		return fmt.Errorf("invalid username (must follow POSIX username rules)")
	}
	return nil
}

// ValidatePort validates a TCP port number
func ValidatePort(port int) error {
	if port < 1 || port > 65535 {
		return fmt.Errorf("port must be between 1 and 65535")
	}
	return nil
}
