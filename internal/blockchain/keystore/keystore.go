// Package keystore keeps wallet private keys encrypted at rest in a JSON file.
package keystore

import (
	"crypto/cipher"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/sirupsen/logrus"
	"golang.org/x/crypto/chacha20poly1305"
	"golang.org/x/crypto/scrypt"
)

// MinPassphraseLength is the shortest accepted ENCRYPTION_KEY.
const MinPassphraseLength = 32

var ErrDecrypt = errors.New("failed to decrypt key: wrong encryption key or corrupted data")

type fileFormat struct {
	Salt string            `json:"salt"`
	Keys map[string]string `json:"keys"`
}

// Store maps lowercase addresses to encrypted private keys.
type Store struct {
	mu   sync.Mutex
	path string
	salt []byte
	aead cipher.AEAD
	keys map[string]string
}

// Open loads the store at path, creating an empty one if the file is missing.
func Open(path, passphrase string) (*Store, error) {
	if len(passphrase) < MinPassphraseLength {
		return nil, fmt.Errorf("encryption key must be at least %d characters", MinPassphraseLength)
	}

	s := &Store{path: path, keys: map[string]string{}}

	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		var f fileFormat
		if err := json.Unmarshal(data, &f); err != nil {
			return nil, fmt.Errorf("failed to parse keystore %s: %v", path, err)
		}
		if s.salt, err = hex.DecodeString(f.Salt); err != nil {
			return nil, fmt.Errorf("invalid keystore salt: %v", err)
		}
		if f.Keys != nil {
			s.keys = f.Keys
		}
	case errors.Is(err, os.ErrNotExist):
		s.salt = make([]byte, 16)
		if _, err := rand.Read(s.salt); err != nil {
			return nil, fmt.Errorf("failed to generate salt: %v", err)
		}
	default:
		return nil, fmt.Errorf("failed to read keystore %s: %v", path, err)
	}

	key, err := scrypt.Key([]byte(passphrase), s.salt, 1<<15, 8, 1, chacha20poly1305.KeySize)
	if err != nil {
		return nil, fmt.Errorf("failed to derive key: %v", err)
	}
	if s.aead, err = chacha20poly1305.NewX(key); err != nil {
		return nil, fmt.Errorf("failed to init cipher: %v", err)
	}
	return s, nil
}

// Save encrypts privateKey for address and persists the store.
func (s *Store) Save(address string, privateKey []byte) error {
	nonce := make([]byte, s.aead.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return fmt.Errorf("failed to generate nonce: %v", err)
	}
	address = strings.ToLower(address)
	blob := s.aead.Seal(nonce, nonce, privateKey, []byte(address))

	s.mu.Lock()
	defer s.mu.Unlock()
	s.keys[address] = hex.EncodeToString(blob)
	if err := s.persist(); err != nil {
		return err
	}
	logrus.WithField("address", address).Info("Stored encrypted key")
	return nil
}

// Get decrypts the key of address. It returns nil, nil when none is stored.
func (s *Store) Get(address string) ([]byte, error) {
	address = strings.ToLower(address)

	s.mu.Lock()
	encoded, ok := s.keys[address]
	s.mu.Unlock()
	if !ok {
		return nil, nil
	}

	blob, err := hex.DecodeString(encoded)
	if err != nil || len(blob) < s.aead.NonceSize() {
		return nil, ErrDecrypt
	}
	nonce, ciphertext := blob[:s.aead.NonceSize()], blob[s.aead.NonceSize():]
	plain, err := s.aead.Open(nil, nonce, ciphertext, []byte(address))
	if err != nil {
		return nil, ErrDecrypt
	}
	return plain, nil
}

func (s *Store) persist() error {
	data, err := json.MarshalIndent(fileFormat{Salt: hex.EncodeToString(s.salt), Keys: s.keys}, "", "  ")
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(s.path), 0o700); err != nil {
		return fmt.Errorf("failed to create keystore dir: %v", err)
	}
	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return fmt.Errorf("failed to write keystore: %v", err)
	}
	return os.Rename(tmp, s.path)
}
