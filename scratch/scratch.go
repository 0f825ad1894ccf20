// Package scratch provides password-based encryption for short sensitive
// values that live only for the current session. Unlike the keystore vault it
// relies on AES-GCM's authentication tag for integrity, and it only ever
// writes to the ephemeral store.
package scratch

import (
	"context"
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"sync"

	"golang.org/x/crypto/pbkdf2"

	"github.com/CrafterTA/UnityWallet-sub002/types"
)

const (
	kdfIterations = 100_000
	saltLen       = 32
	nonceLen      = 12
	keyLen        = 32
)

// ErrDecryptionFailed is returned when the GCM tag does not verify, which
// covers both tampering and a wrong password.
var ErrDecryptionFailed = errors.New("decryption failed")

// Encrypt seals plaintext under password with a fresh salt and nonce per
// call.
func Encrypt(plaintext []byte, password string) (types.ScratchEnvelope, error) {
	if len(password) == 0 {
		return types.ScratchEnvelope{}, fmt.Errorf("missing password")
	}

	salt := make([]byte, saltLen)
	if _, err := rand.Read(salt); err != nil {
		return types.ScratchEnvelope{}, fmt.Errorf("failed to generate salt: %w", err)
	}
	nonce := make([]byte, nonceLen)
	if _, err := rand.Read(nonce); err != nil {
		return types.ScratchEnvelope{}, fmt.Errorf("failed to generate nonce: %w", err)
	}

	aead, err := newAead([]byte(password), salt)
	if err != nil {
		return types.ScratchEnvelope{}, err
	}

	return types.ScratchEnvelope{
		Data: hex.EncodeToString(aead.Seal(nil, nonce, plaintext, nil)),
		IV:   hex.EncodeToString(nonce),
		Salt: hex.EncodeToString(salt),
	}, nil
}

// Decrypt opens an envelope produced by Encrypt. Any tag mismatch fails with
// ErrDecryptionFailed.
func Decrypt(envelope types.ScratchEnvelope, password string) ([]byte, error) {
	data, err := hex.DecodeString(envelope.Data)
	if err != nil {
		return nil, fmt.Errorf("bad envelope data: %w", err)
	}
	nonce, err := hex.DecodeString(envelope.IV)
	if err != nil || len(nonce) != nonceLen {
		return nil, fmt.Errorf("bad envelope nonce")
	}
	salt, err := hex.DecodeString(envelope.Salt)
	if err != nil || len(salt) == 0 {
		return nil, fmt.Errorf("bad envelope salt")
	}

	aead, err := newAead([]byte(password), salt)
	if err != nil {
		return nil, err
	}

	plaintext, err := aead.Open(nil, nonce, data, nil)
	if err != nil {
		return nil, ErrDecryptionFailed
	}
	return plaintext, nil
}

func newAead(password, salt []byte) (cipher.AEAD, error) {
	key := pbkdf2.Key(password, salt, kdfIterations, keyLen, sha256.New)
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	return cipher.NewGCM(block)
}

// Store keeps password-sealed values in the ephemeral store and tracks every
// key it wrote so a single Clear removes them all.
type Store struct {
	ephemeral types.EphemeralStore

	mu   sync.Mutex
	keys map[string]struct{}
}

func NewStore(ephemeral types.EphemeralStore) *Store {
	return &Store{
		ephemeral: ephemeral,
		keys:      make(map[string]struct{}),
	}
}

func (s *Store) Set(ctx context.Context, key string, plaintext []byte, password string) error {
	envelope, err := Encrypt(plaintext, password)
	if err != nil {
		return err
	}
	if err := s.ephemeral.AddScratch(ctx, key, envelope); err != nil {
		return err
	}

	s.mu.Lock()
	s.keys[key] = struct{}{}
	s.mu.Unlock()
	return nil
}

func (s *Store) Get(ctx context.Context, key, password string) ([]byte, error) {
	envelope, err := s.ephemeral.GetScratch(ctx, key)
	if err != nil {
		return nil, err
	}
	if envelope == nil {
		return nil, fmt.Errorf("no scratch value for key %q", key)
	}
	return Decrypt(*envelope, password)
}

// Clear removes every value this store has written.
func (s *Store) Clear(ctx context.Context) error {
	s.mu.Lock()
	keys := make([]string, 0, len(s.keys))
	for key := range s.keys {
		keys = append(keys, key)
	}
	s.keys = make(map[string]struct{})
	s.mu.Unlock()

	for _, key := range keys {
		if err := s.ephemeral.DeleteScratch(ctx, key); err != nil {
			return err
		}
	}
	return nil
}
