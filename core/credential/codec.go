// Package credential stores passwords twice: a one-way bcrypt hash used to authenticate,
// and an AES-256-GCM ciphertext an administrator can decrypt to recover the plaintext.
package credential

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/pkg/errors"
	"golang.org/x/crypto/bcrypt"

	"github.com/trezcool/lophoc/core"
)

const (
	HashCost = 10

	keySize   = 32 // AES-256
	nonceSize = 12
	tagSize   = 16
	separator = "."
)

var (
	ErrInvalidFormat        = errors.New("malformed encrypted password")
	ErrAuthenticationFailed = errors.Wrap(core.ErrAuthenticationFailed, "encrypted password failed integrity check")
	ErrEmptyPassword        = errors.New("cannot encrypt an empty password")
)

// ConfigurationError reports a missing or malformed encryption key.
type ConfigurationError struct {
	Reason string
}

func (err ConfigurationError) Error() string {
	return fmt.Sprintf("%v: encryption key %s", core.ErrConfiguration, err.Reason)
}

func (err ConfigurationError) Cause() error { return core.ErrConfiguration }

// KeySource returns the base64-encoded 32-byte key. It is called lazily, on first need.
type KeySource func() string

// Credentials is the pair every account row stores.
type Credentials struct {
	Hash      []byte
	Encrypted string
}

type Codec struct {
	key KeySource

	mu   sync.Mutex
	aead cipher.AEAD // cached once the key loaded successfully
	rand io.Reader
}

func NewCodec(key KeySource) *Codec {
	return &Codec{key: key, rand: rand.Reader}
}

// Hash returns a salted bcrypt hash of plaintext.
func (c *Codec) Hash(plaintext string) ([]byte, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(plaintext), HashCost)
	return hash, errors.Wrap(err, "hashing password")
}

// Verify reports whether plaintext matches hash. A malformed hash never matches.
func (c *Codec) Verify(plaintext string, hash []byte) bool {
	return bcrypt.CompareHashAndPassword(hash, []byte(plaintext)) == nil
}

// LooksHashed reports whether b parses as a bcrypt hash.
func LooksHashed(b []byte) bool {
	_, err := bcrypt.Cost(b)
	return err == nil
}

// Encrypt seals plaintext under a fresh random nonce: "<b64 nonce>.<b64 tag>.<b64 ciphertext>".
// An empty plaintext is refused since its ciphertext segment would be empty, which Decrypt rejects.
func (c *Codec) Encrypt(plaintext string) (string, error) {
	aead, err := c.cipher()
	if err != nil {
		return "", err
	}
	if plaintext == "" {
		return "", ErrEmptyPassword
	}

	nonce := make([]byte, nonceSize)
	if _, err = io.ReadFull(c.rand, nonce); err != nil {
		return "", errors.Wrap(err, "reading nonce")
	}
	sealed := aead.Seal(nil, nonce, []byte(plaintext), nil)
	ct, tag := sealed[:len(sealed)-tagSize], sealed[len(sealed)-tagSize:]

	enc := base64.StdEncoding
	return strings.Join([]string{enc.EncodeToString(nonce), enc.EncodeToString(tag), enc.EncodeToString(ct)}, separator), nil
}

// Decrypt reverses Encrypt. Any tampering with nonce, tag or ciphertext yields ErrAuthenticationFailed.
func (c *Codec) Decrypt(payload string) (string, error) {
	aead, err := c.cipher()
	if err != nil {
		return "", err
	}

	parts := strings.Split(payload, separator)
	if len(parts) != 3 {
		return "", ErrInvalidFormat
	}
	decoded := make([][]byte, len(parts))
	for i, part := range parts {
		if part == "" {
			return "", ErrInvalidFormat
		}
		if decoded[i], err = base64.StdEncoding.DecodeString(part); err != nil {
			return "", ErrInvalidFormat
		}
	}
	nonce, tag, ct := decoded[0], decoded[1], decoded[2]
	if len(nonce) != nonceSize || len(tag) != tagSize {
		return "", ErrInvalidFormat
	}

	plain, err := aead.Open(nil, nonce, append(ct, tag...), nil)
	if err != nil {
		return "", ErrAuthenticationFailed
	}
	return string(plain), nil
}

// Seal hashes and encrypts plaintext so both representations are written together.
func (c *Codec) Seal(plaintext string) (Credentials, error) {
	enc, err := c.Encrypt(plaintext)
	if err != nil {
		return Credentials{}, err
	}
	hash, err := c.Hash(plaintext)
	if err != nil {
		return Credentials{}, err
	}
	return Credentials{Hash: hash, Encrypted: enc}, nil
}

// CheckKey reports whether the encryption key is usable, without encrypting anything.
func (c *Codec) CheckKey() error {
	_, err := c.cipher()
	return err
}

func (c *Codec) cipher() (cipher.AEAD, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.aead != nil {
		return c.aead, nil
	}

	var raw string
	if c.key != nil {
		raw = strings.TrimSpace(c.key())
	}
	if raw == "" {
		return nil, &ConfigurationError{Reason: "is not set"}
	}
	key, err := base64.StdEncoding.DecodeString(raw)
	if err != nil {
		return nil, &ConfigurationError{Reason: "is not valid base64"}
	}
	if len(key) != keySize {
		return nil, &ConfigurationError{Reason: fmt.Sprintf("must decode to %d bytes, got %d", keySize, len(key))}
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, errors.Wrap(err, "creating block cipher")
	}
	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, errors.Wrap(err, "creating gcm")
	}
	c.aead = aead
	return aead, nil
}
