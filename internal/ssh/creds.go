package ssh

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/crypto/ssh"
)

// Authentication strategy names, observable through Credentials.Strategy.
const (
	StrategyPublicKey   = "publickey"
	StrategyCertificate = "publickey+cert"
)

// PassphraseFunc supplies the passphrase for an encrypted private key. It is
// only invoked when the key turns out to be encrypted. A nil PassphraseFunc
// makes encrypted keys a credential error.
type PassphraseFunc func(keyPath string) ([]byte, error)

// Credentials holds the in-memory key material for one authentication
// attempt: a signer derived from the private key, already combined with the
// certificate when one was supplied.
type Credentials struct {
	signer   ssh.Signer
	strategy string
}

// LoadCredentials resolves a private key file (required) and an OpenSSH
// certificate file (optional) into Credentials.
//
// Supplying a certificate commits the credentials to certificate-backed
// authentication; omitting it commits them to plain public-key
// authentication. The two are mutually exclusive and the choice is fixed
// here, before any network activity. A certificate that does not belong to
// the private key fails immediately rather than at the server.
func LoadCredentials(keyPath, certPath string, passphrase PassphraseFunc) (*Credentials, error) {
	signer, err := loadSigner(keyPath, passphrase)
	if err != nil {
		return nil, err
	}

	if certPath == "" {
		return &Credentials{signer: signer, strategy: StrategyPublicKey}, nil
	}

	cert, err := loadCertificate(certPath)
	if err != nil {
		return nil, err
	}
	certSigner, err := ssh.NewCertSigner(cert, signer)
	if err != nil {
		return nil, fmt.Errorf("%w: certificate %s does not match key %s: %w",
			ErrCredential, certPath, keyPath, err)
	}
	return &Credentials{signer: certSigner, strategy: StrategyCertificate}, nil
}

// AuthMethod returns the single authentication method these credentials
// commit to.
func (c *Credentials) AuthMethod() ssh.AuthMethod {
	return ssh.PublicKeys(c.signer)
}

// Strategy reports which authentication strategy AuthMethod uses, either
// StrategyPublicKey or StrategyCertificate.
func (c *Credentials) Strategy() string {
	return c.strategy
}

// PublicKey returns the public half offered during authentication (the
// certificate itself on the certificate path).
func (c *Credentials) PublicKey() ssh.PublicKey {
	return c.signer.PublicKey()
}

func loadSigner(keyPath string, passphrase PassphraseFunc) (ssh.Signer, error) {
	keyPath = expandHome(keyPath)
	data, err := os.ReadFile(keyPath)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to read key file: %w", ErrCredential, err)
	}

	signer, err := ssh.ParsePrivateKey(data)
	if err == nil {
		return signer, nil
	}

	var missing *ssh.PassphraseMissingError
	if !errors.As(err, &missing) {
		return nil, fmt.Errorf("%w: failed to parse private key %s: %w", ErrCredential, keyPath, err)
	}
	if passphrase == nil {
		return nil, fmt.Errorf("%w: key %s is passphrase-protected", ErrCredential, keyPath)
	}

	phrase, err := passphrase(keyPath)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to read passphrase: %w", ErrCredential, err)
	}
	signer, err = ssh.ParsePrivateKeyWithPassphrase(data, phrase)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to decrypt private key %s: %w", ErrCredential, keyPath, err)
	}
	return signer, nil
}

func loadCertificate(certPath string) (*ssh.Certificate, error) {
	certPath = expandHome(certPath)
	data, err := os.ReadFile(certPath)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to read certificate file: %w", ErrCredential, err)
	}

	// OpenSSH certificates are stored in authorized_keys format
	// ("ssh-ed25519-cert-v01@openssh.com AAAA... comment").
	pub, _, _, _, err := ssh.ParseAuthorizedKey(data)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to parse certificate %s: %w", ErrCredential, certPath, err)
	}
	cert, ok := pub.(*ssh.Certificate)
	if !ok {
		return nil, fmt.Errorf("%w: %s is a plain public key, not an OpenSSH certificate",
			ErrCredential, certPath)
	}
	return cert, nil
}

// expandHome resolves a leading "~/" against the current user's home
// directory.
func expandHome(path string) string {
	if !strings.HasPrefix(path, "~/") {
		return path
	}
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(homeDir, path[2:])
}
