package types

import (
	"context"
)

// Store aggregates the two storage ports the SDK needs: a durable one for
// public-safe records and an ephemeral one for session-scoped secrets. The
// split is load-bearing: no code path may write a secret, decrypted or
// session-sealed, through the durable port.
type Store interface {
	DurableStore() DurableStore
	EphemeralStore() EphemeralStore
	Clean(ctx context.Context)
	Close()
}

// DurableStore persists wallet metadata, the encrypted keystore record and
// user preferences. CleanData wipes everything except the preferences blob.
type DurableStore interface {
	GetType() string
	GetDatadir() string
	AddWallet(ctx context.Context, data WalletData) error
	GetWallet(ctx context.Context) (*WalletData, error)
	AddKeystore(ctx context.Context, record KeystoreRecord) error
	GetKeystore(ctx context.Context) (*KeystoreRecord, error)
	AddPreferences(ctx context.Context, prefs Preferences) error
	GetPreferences(ctx context.Context) (*Preferences, error)
	CleanData(ctx context.Context) error
	Close()
}

// EphemeralStore holds the session-sealed secret envelope, the redacted
// session projection and arbitrary scratch envelopes. Implementations must
// not survive process teardown.
type EphemeralStore interface {
	GetType() string
	AddEnvelope(ctx context.Context, envelope EncryptedSecretEnvelope) error
	GetEnvelope(ctx context.Context) (*EncryptedSecretEnvelope, error)
	AddSessionInfo(ctx context.Context, info SessionInfo) error
	GetSessionInfo(ctx context.Context) (*SessionInfo, error)
	AddScratch(ctx context.Context, key string, envelope ScratchEnvelope) error
	GetScratch(ctx context.Context, key string) (*ScratchEnvelope, error)
	DeleteScratch(ctx context.Context, key string) error
	Clean(ctx context.Context) error
	Close()
}
