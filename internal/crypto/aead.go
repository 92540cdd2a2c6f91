package crypto

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"

	"golang.org/x/crypto/chacha20poly1305"
)

const (
	KeySize   = 32 // 256-bit master key
	NonceSize = 12 // 96-bit nonce, both algorithms

	AlgAESGCM   = "AES256-GCM"
	AlgChaCha20 = "CHACHA20-POLY1305"
)

var (
	ErrIntegrity  = errors.New("crypto: message authentication failed")
	ErrKeySize    = errors.New("crypto: master key must be 32 bytes")
	ErrUnknownAlg = errors.New("crypto: unknown algorithm")
)

// Engine seals and opens secret payloads under a single process-wide master
// key. It holds no other state; nonce generation is the only source of
// randomness. AAD binds every ciphertext to one (path, version) pair, so a
// blob copied to another path or version fails to open.
type Engine struct {
	key []byte
	alg string
}

func NewEngine(masterKey []byte, alg string) (*Engine, error) {
	if len(masterKey) != KeySize {
		return nil, ErrKeySize
	}
	if alg == "" {
		alg = AlgAESGCM
	}
	if _, err := newAEAD(masterKey, alg); err != nil {
		return nil, err
	}
	k := make([]byte, KeySize)
	copy(k, masterKey)
	return &Engine{key: k, alg: alg}, nil
}

// Alg reports the algorithm tag new versions are sealed with.
func (e *Engine) Alg() string { return e.alg }

// Seal encrypts plaintext, generating a fresh random nonce per call.
func (e *Engine) Seal(plaintext, aad []byte) (nonce, ciphertext []byte, err error) {
	aead, err := newAEAD(e.key, e.alg)
	if err != nil {
		return nil, nil, err
	}
	nonce = make([]byte, NonceSize)
	if _, err := rand.Read(nonce); err != nil {
		return nil, nil, err
	}
	ciphertext = aead.Seal(nil, nonce, plaintext, aad)
	return nonce, ciphertext, nil
}

// Open decrypts a stored version. alg is the tag recorded alongside the
// ciphertext, so old versions keep opening if the default ever changes.
// Any authentication failure surfaces as ErrIntegrity with no plaintext.
func (e *Engine) Open(nonce, ciphertext, aad []byte, alg string) ([]byte, error) {
	aead, err := newAEAD(e.key, alg)
	if err != nil {
		return nil, err
	}
	if len(nonce) != NonceSize {
		return nil, ErrIntegrity
	}
	pt, err := aead.Open(nil, nonce, ciphertext, aad)
	if err != nil {
		return nil, ErrIntegrity
	}
	return pt, nil
}

func newAEAD(key []byte, alg string) (cipher.AEAD, error) {
	switch alg {
	case AlgAESGCM:
		block, err := aes.NewCipher(key)
		if err != nil {
			return nil, err
		}
		return cipher.NewGCM(block)
	case AlgChaCha20:
		return chacha20poly1305.New(key)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownAlg, alg)
	}
}

// AAD builds the additional authenticated data for one item version:
// the UTF-8 bytes of "path|version".
func AAD(path string, version int64) []byte {
	return []byte(fmt.Sprintf("%s|%d", path, version))
}

// KeyFromHex decodes a hex-encoded 256-bit master key, e.g. the output of
// `openssl rand -hex 32`.
func KeyFromHex(s string) ([]byte, error) {
	key, err := hex.DecodeString(s)
	if err != nil {
		return nil, fmt.Errorf("crypto: master key is not valid hex: %w", err)
	}
	if len(key) != KeySize {
		return nil, ErrKeySize
	}
	return key, nil
}
