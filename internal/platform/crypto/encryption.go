package crypto

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
)

const (
	keySize = 32
	// sealVersion prefixes every ciphertext so the format can change later.
	sealVersion byte = 1
)

var (
	ErrKeySize           = errors.New("DATA_ENCRYPTION_KEY must be 32 bytes after decoding")
	ErrMalformed         = errors.New("ciphertext malformed")
	ErrUnsupportedFormat = errors.New("ciphertext format not supported")
)

// Box seals small values (salaries, MFA secrets) with AES-256-GCM. Without a
// key it passes values through unchanged.
type Box struct {
	aead cipher.AEAD
}

func New(key string) (*Box, error) {
	if key == "" {
		return &Box{}, nil
	}
	decoded := decodeKey(key)
	if len(decoded) != keySize {
		return nil, ErrKeySize
	}
	block, err := aes.NewCipher(decoded)
	if err != nil {
		return nil, fmt.Errorf("crypto: cipher: %w", err)
	}
	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("crypto: gcm: %w", err)
	}
	return &Box{aead: aead}, nil
}

func (b *Box) Configured() bool {
	return b != nil && b.aead != nil
}

func (b *Box) Seal(plain []byte) ([]byte, error) {
	if len(plain) == 0 {
		return nil, nil
	}
	if !b.Configured() {
		return plain, nil
	}
	out := make([]byte, 1+b.aead.NonceSize(), 1+b.aead.NonceSize()+len(plain)+b.aead.Overhead())
	out[0] = sealVersion
	if _, err := io.ReadFull(rand.Reader, out[1:]); err != nil {
		return nil, err
	}
	return b.aead.Seal(out, out[1:], plain, nil), nil
}

func (b *Box) Open(sealed []byte) ([]byte, error) {
	if len(sealed) == 0 {
		return nil, nil
	}
	if !b.Configured() {
		return sealed, nil
	}
	if sealed[0] != sealVersion {
		return nil, ErrUnsupportedFormat
	}
	nonceSize := b.aead.NonceSize()
	if len(sealed) < 1+nonceSize+b.aead.Overhead() {
		return nil, ErrMalformed
	}
	plain, err := b.aead.Open(nil, sealed[1:1+nonceSize], sealed[1+nonceSize:], nil)
	if err != nil {
		return nil, ErrMalformed
	}
	return plain, nil
}

func (b *Box) EncryptString(value string) ([]byte, error) {
	if value == "" {
		return nil, nil
	}
	return b.Seal([]byte(value))
}

func (b *Box) DecryptString(value []byte) (string, error) {
	plain, err := b.Open(value)
	if err != nil {
		return "", err
	}
	return string(plain), nil
}

// decodeKey accepts hex, padded or raw base64, or the raw 32 byte string.
func decodeKey(raw string) []byte {
	if len(raw) == hex.EncodedLen(keySize) {
		if decoded, err := hex.DecodeString(raw); err == nil {
			return decoded
		}
	}
	if decoded, err := base64.StdEncoding.DecodeString(raw); err == nil {
		return decoded
	}
	if decoded, err := base64.RawStdEncoding.DecodeString(raw); err == nil {
		return decoded
	}
	return []byte(raw)
}
