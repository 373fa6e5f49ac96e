package meta

import (
	"encoding/base64"

	"github.com/gtank/cryptopasta"
	"github.com/zeebo/errs"
)

// ErrCrypto marks failures to seal or open connection configs.
var ErrCrypto = errs.Class("crypto")

const keyTag = "metacache connection config"

// Crypto seals opaque config blobs at rest.
type Crypto interface {
	Encrypt(plaintext []byte) (string, error)
	Decrypt(ciphertext string) ([]byte, error)
}

// AESCrypto is a Crypto using AES-256-GCM with a key derived from a secret.
// Ciphertexts are base64 text so they fit a plain text column.
type AESCrypto struct {
	key *[32]byte
}

var _ Crypto = (*AESCrypto)(nil)

func NewAESCrypto(secret string) (*AESCrypto, error) {
	if secret == "" {
		return nil, ErrCrypto.New("secret is required")
	}
	key := new([32]byte)
	copy(key[:], cryptopasta.Hash(keyTag, []byte(secret)))
	return &AESCrypto{key: key}, nil
}

func (c *AESCrypto) Encrypt(plaintext []byte) (string, error) {
	sealed, err := cryptopasta.Encrypt(plaintext, c.key)
	if err != nil {
		return "", ErrCrypto.Wrap(err)
	}
	return base64.StdEncoding.EncodeToString(sealed), nil
}

func (c *AESCrypto) Decrypt(ciphertext string) ([]byte, error) {
	sealed, err := base64.StdEncoding.DecodeString(ciphertext)
	if err != nil {
		return nil, ErrCrypto.Wrap(err)
	}
	plaintext, err := cryptopasta.Decrypt(sealed, c.key)
	if err != nil {
		return nil, ErrCrypto.Wrap(err)
	}
	return plaintext, nil
}
