// Package aead performs authenticated encryption of object payloads under a
// per-object key and nonce.
package aead

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"errors"
	"fmt"
	"io"

	"golang.org/x/crypto/chacha20poly1305"

	"sharevault/internal/keys"
)

// NonceSize is the nonce length in bytes for every supported suite.
const NonceSize = 12

// Suite names an AEAD construction.
type Suite string

const (
	AES256GCM        Suite = "aes-256-gcm"
	ChaCha20Poly1305 Suite = "chacha20-poly1305"
)

// DefaultSuite is used when no suite is configured.
const DefaultSuite = AES256GCM

var (
	// ErrAuthenticationFailure is returned when a ciphertext does not verify
	// under the given key and nonce.
	ErrAuthenticationFailure = errors.New("authentication failure")

	ErrUnknownSuite = errors.New("unknown cipher suite")
	ErrInvalidNonce = errors.New("invalid nonce")
)

// Nonce is a per-object initialization vector. It is not secret.
type Nonce []byte

// ParseSuite validates a configured suite name. An empty name selects
// DefaultSuite.
func ParseSuite(name string) (Suite, error) {
	switch Suite(name) {
	case "":
		return DefaultSuite, nil
	case AES256GCM, ChaCha20Poly1305:
		return Suite(name), nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownSuite, name)
	}
}

// Engine encrypts and decrypts with a single suite.
type Engine struct {
	suite Suite
	rand  io.Reader
}

// NewEngine returns an Engine for suite that draws nonces from crypto/rand.
func NewEngine(suite Suite) (*Engine, error) {
	return NewEngineWithReader(suite, rand.Reader)
}

// NewEngineWithReader is NewEngine with an explicit nonce source.
func NewEngineWithReader(suite Suite, r io.Reader) (*Engine, error) {
	if _, err := ParseSuite(string(suite)); err != nil {
		return nil, err
	}
	if suite == "" {
		suite = DefaultSuite
	}
	return &Engine{suite: suite, rand: r}, nil
}

// Suite returns the engine's suite.
func (e *Engine) Suite() Suite {
	return e.suite
}

// GenerateNonce returns a fresh random nonce.
func (e *Engine) GenerateNonce() (Nonce, error) {
	n := make(Nonce, NonceSize)
	if _, err := io.ReadFull(e.rand, n); err != nil {
		return nil, fmt.Errorf("reading random nonce: %w", err)
	}
	return n, nil
}

// Encrypt seals plaintext. The output carries the authentication tag.
func (e *Engine) Encrypt(plaintext []byte, key keys.Key, nonce Nonce) ([]byte, error) {
	if len(nonce) != NonceSize {
		return nil, fmt.Errorf("%w: got %d bytes, want %d", ErrInvalidNonce, len(nonce), NonceSize)
	}
	c, err := e.newAEAD(key)
	if err != nil {
		return nil, err
	}
	return c.Seal(nil, nonce, plaintext, nil), nil
}

// Decrypt opens ciphertext produced by Encrypt. Any verification failure,
// including a nonce of the wrong length, yields ErrAuthenticationFailure and
// no plaintext.
func (e *Engine) Decrypt(ciphertext []byte, key keys.Key, nonce Nonce) ([]byte, error) {
	if len(nonce) != NonceSize {
		return nil, ErrAuthenticationFailure
	}
	c, err := e.newAEAD(key)
	if err != nil {
		return nil, err
	}
	plaintext, err := c.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return nil, ErrAuthenticationFailure
	}
	if plaintext == nil {
		plaintext = []byte{}
	}
	return plaintext, nil
}

func (e *Engine) newAEAD(key keys.Key) (cipher.AEAD, error) {
	if !key.Valid() {
		return nil, keys.ErrInvalidKeyMaterial
	}
	switch e.suite {
	case ChaCha20Poly1305:
		c, err := chacha20poly1305.New(key.Bytes())
		if err != nil {
			return nil, fmt.Errorf("creating chacha20-poly1305: %w", err)
		}
		return c, nil
	default:
		block, err := aes.NewCipher(key.Bytes())
		if err != nil {
			return nil, fmt.Errorf("creating aes cipher: %w", err)
		}
		c, err := cipher.NewGCM(block)
		if err != nil {
			return nil, fmt.Errorf("creating gcm: %w", err)
		}
		return c, nil
	}
}
