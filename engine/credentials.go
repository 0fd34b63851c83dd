package engine

import (
	"github.com/pkg/errors"
	"golang.org/x/crypto/ssh"
)

// Credentials is the secret material the backend uses to reach hosts and to
// escalate privileges. All fields are optional; hosts may carry their own
// credentials in the inventory instead.
type Credentials struct {
	// ConnectionPassword authenticates the remote shell connection.
	ConnectionPassword string
	// BecomePassword authenticates privilege escalation.
	BecomePassword string
	// PrivateKey is PEM-encoded private key material.
	PrivateKey []byte
	// PrivateKeyPassphrase decrypts an encrypted PrivateKey.
	PrivateKeyPassphrase string
}

// Validate parses any provided key material so that malformed credentials
// fail at session construction rather than mid-run.
func (c *Credentials) Validate() error {
	if c == nil || len(c.PrivateKey) == 0 {
		return nil
	}
	var err error
	if c.PrivateKeyPassphrase != "" {
		_, err = ssh.ParsePrivateKeyWithPassphrase(c.PrivateKey, []byte(c.PrivateKeyPassphrase))
	} else {
		_, err = ssh.ParsePrivateKey(c.PrivateKey)
	}
	if err != nil {
		return errors.Wrap(err, "engine: invalid private key material")
	}
	return nil
}
