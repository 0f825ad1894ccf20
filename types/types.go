package types

import (
	"encoding/hex"
	"time"

	"github.com/btcsuite/btcd/btcec/v2"
)

const (
	InMemoryStore = "inmemory"
	FileStore     = "file"
	KVStore       = "kv"
	SQLStore      = "sql"
)

// CipherParams carries the cipher-specific parameters of a keystore record.
type CipherParams struct {
	IV string `json:"iv"`
}

// KdfParams carries the key-derivation parameters embedded in a keystore
// record. Iterations applies to pbkdf2 records, N/R/P to scrypt records; the
// derivation always reads its cost from here, never from package constants.
type KdfParams struct {
	DkLen      int    `json:"dklen"`
	Iterations int    `json:"iterations,omitempty"`
	N          int    `json:"n,omitempty"`
	R          int    `json:"r,omitempty"`
	P          int    `json:"p,omitempty"`
	Salt       string `json:"salt"`
}

// CryptoParams is the encrypted payload of a keystore record.
type CryptoParams struct {
	Cipher       string       `json:"cipher"`
	Ciphertext   string       `json:"ciphertext"`
	CipherParams CipherParams `json:"cipherparams"`
	Kdf          string       `json:"kdf"`
	KdfParams    KdfParams    `json:"kdfparams"`
	Mac          string       `json:"mac"`
}

// KeystoreRecord is the durable password-protected container for a wallet
// private key. It is safe to store at rest: nothing in it is usable without
// the password, and the mac binds ciphertext, iv and salt together.
type KeystoreRecord struct {
	Address string       `json:"address"`
	ID      string       `json:"id"`
	Version int          `json:"version"`
	Crypto  CryptoParams `json:"crypto"`
}

// EncryptedSecretEnvelope is the ephemeral session-bound copy of a decrypted
// secret, sealed under a key derived from the session token. It never touches
// durable storage.
type EncryptedSecretEnvelope struct {
	EncryptedSecret string
	IV              string
	OwnerPublicKey  string
	CreatedAt       time.Time
}

// SessionDescriptor is the server-issued session. The raw token lives only in
// memory for the duration of a call; what gets stored locally is the redacted
// SessionInfo projection.
type SessionDescriptor struct {
	SessionToken   string
	ExpiresAt      time.Time
	OwnerPublicKey string
}

// Redacted returns the token-free projection of the descriptor.
func (d SessionDescriptor) Redacted() SessionInfo {
	return SessionInfo{
		ExpiresAt:      d.ExpiresAt,
		OwnerPublicKey: d.OwnerPublicKey,
		HasSession:     true,
	}
}

// SessionInfo answers "do I plausibly have a session" without exposing the
// token outside the ephemeral store.
type SessionInfo struct {
	ExpiresAt      time.Time
	OwnerPublicKey string
	HasSession     bool
}

// Expired reports whether the session lifetime has elapsed according to the
// local clock.
func (i SessionInfo) Expired(now time.Time) bool {
	return !i.ExpiresAt.After(now)
}

// ScratchEnvelope is the output of the scratch store's password-based
// encryption: ciphertext (with the GCM tag appended), nonce and kdf salt, all
// hex-encoded.
type ScratchEnvelope struct {
	Data string `json:"data"`
	IV   string `json:"iv"`
	Salt string `json:"salt"`
}

// WalletData is the durable, non-sensitive wallet metadata. Secret and
// mnemonic material never appears here; see unitywallet.WalletRecord for the
// in-memory unlocked view.
type WalletData struct {
	PublicKey        string
	AccountExists    bool
	FundedOrExisting bool
	CreatedAt        time.Time
}

// Preferences is the user-facing settings blob explicitly exempt from the
// wipe on logout.
type Preferences struct {
	Theme string
}

// PublicKeyFromHex parses a hex-encoded compressed secp256k1 public key.
func PublicKeyFromHex(s string) (*btcec.PublicKey, error) {
	buf, err := hex.DecodeString(s)
	if err != nil {
		return nil, err
	}
	return btcec.ParsePubKey(buf)
}
