package filerepo

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"golang.org/x/crypto/chacha20poly1305"
	"golang.org/x/crypto/hkdf"
)

const (
	keyMaterialSize = 32
	sealInfo        = "timetrack-session-v1"
)

var ErrInvalidKeyFile = errors.New("invalid session key file")

// Sealer encrypts individual session values. Each value is bound to its key
// name as associated data, so values cannot be swapped between keys.
type Sealer struct {
	key []byte
}

// NewSealer derives the sealing key from the key material in keyFile,
// creating the file with fresh random material when it does not exist.
func NewSealer(keyFile string) (*Sealer, error) {
	material, err := loadOrCreateKeyMaterial(keyFile)
	if err != nil {
		return nil, err
	}
	return newSealer(material)
}

func newSealer(material []byte) (*Sealer, error) {
	h := hkdf.New(sha256.New, material, nil, []byte(sealInfo))
	key := make([]byte, chacha20poly1305.KeySize)
	if _, err := io.ReadFull(h, key); err != nil {
		return nil, fmt.Errorf("derive session key: %w", err)
	}
	return &Sealer{key: key}, nil
}

// Seal returns nonce||ciphertext, base64url encoded.
func (s *Sealer) Seal(name, value string) (string, error) {
	aead, err := chacha20poly1305.NewX(s.key)
	if err != nil {
		return "", err
	}
	nonce := make([]byte, aead.NonceSize(), aead.NonceSize()+len(value)+aead.Overhead())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return "", fmt.Errorf("generate nonce: %w", err)
	}
	blob := aead.Seal(nonce, nonce, []byte(value), []byte(name))
	return base64.RawURLEncoding.EncodeToString(blob), nil
}

func (s *Sealer) Open(name, sealed string) (string, error) {
	blob, err := base64.RawURLEncoding.DecodeString(sealed)
	if err != nil {
		return "", fmt.Errorf("decode %s: %w", name, err)
	}
	aead, err := chacha20poly1305.NewX(s.key)
	if err != nil {
		return "", err
	}
	if len(blob) < aead.NonceSize() {
		return "", fmt.Errorf("open %s: ciphertext too short", name)
	}
	nonce, ct := blob[:aead.NonceSize()], blob[aead.NonceSize():]
	plain, err := aead.Open(nil, nonce, ct, []byte(name))
	if err != nil {
		return "", fmt.Errorf("open %s: %w", name, err)
	}
	return string(plain), nil
}

func loadOrCreateKeyMaterial(keyFile string) ([]byte, error) {
	material, err := os.ReadFile(keyFile)
	if err == nil {
		if len(material) != keyMaterialSize {
			return nil, fmt.Errorf("%w: %s has %d bytes", ErrInvalidKeyFile, keyFile, len(material))
		}
		return material, nil
	}
	if !os.IsNotExist(err) {
		return nil, fmt.Errorf("read key file: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(keyFile), 0700); err != nil {
		return nil, fmt.Errorf("create key directory: %w", err)
	}
	material = make([]byte, keyMaterialSize)
	if _, err := io.ReadFull(rand.Reader, material); err != nil {
		return nil, fmt.Errorf("generate key material: %w", err)
	}
	f, err := os.OpenFile(keyFile, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0600)
	if err != nil {
		if os.IsExist(err) {
			// Another process created it first.
			return loadOrCreateKeyMaterial(keyFile)
		}
		return nil, fmt.Errorf("create key file: %w", err)
	}
	defer f.Close()
	if _, err := f.Write(material); err != nil {
		return nil, fmt.Errorf("write key file: %w", err)
	}
	return material, nil
}
