// SPDX-License-Identifier: MPL-2.0

package publish

import (
	"bytes"
	"errors"
	"fmt"
	"strings"

	"github.com/ProtonMail/go-crypto/openpgp"
)

// ErrNoSigningKey is returned when an armored key ring holds no private key.
var ErrNoSigningKey = errors.New("no private key in signing key")

// Signer produces ASCII-armored detached signatures with an in-memory key.
type Signer struct {
	entity *openpgp.Entity
}

// NewSigner reads an ASCII-armored private key protected by an empty
// passphrase.
func NewSigner(armoredKey string) (*Signer, error) {
	ring, err := openpgp.ReadArmoredKeyRing(strings.NewReader(armoredKey))
	if err != nil {
		return nil, fmt.Errorf("read signing key: %w", err)
	}
	for _, e := range ring {
		if e.PrivateKey == nil {
			continue
		}
		if e.PrivateKey.Encrypted {
			if err := e.PrivateKey.Decrypt(nil); err != nil {
				return nil, fmt.Errorf("unlock signing key: %w", err)
			}
		}
		for _, sub := range e.Subkeys {
			if sub.PrivateKey != nil && sub.PrivateKey.Encrypted {
				if err := sub.PrivateKey.Decrypt(nil); err != nil {
					return nil, fmt.Errorf("unlock signing subkey: %w", err)
				}
			}
		}
		return &Signer{entity: e}, nil
	}
	return nil, ErrNoSigningKey
}

// KeyID returns the hex id of the primary key.
func (s *Signer) KeyID() string {
	return s.entity.PrimaryKey.KeyIdString()
}

// Sign returns the armored detached signature of data.
func (s *Signer) Sign(data []byte) ([]byte, error) {
	var buf bytes.Buffer
	if err := openpgp.ArmoredDetachSign(&buf, s.entity, bytes.NewReader(data), nil); err != nil {
		return nil, fmt.Errorf("sign: %w", err)
	}
	return buf.Bytes(), nil
}
