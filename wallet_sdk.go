package unitywallet

import (
	"context"
	"time"

	"github.com/CrafterTA/UnityWallet-sub002/types"
	"github.com/CrafterTA/UnityWallet-sub002/watchdog"
)

var Version string

// State is the wallet session state. All transitions go through
// WalletClient; no other code mutates it.
type State string

const (
	StateLoggedOut State = "logged_out"
	StateLocked    State = "locked"
	StateUnlocked  State = "unlocked"
)

// WalletRecord is the in-memory view of the wallet. Secret and Mnemonic are
// populated only while the state is Unlocked and are never serialized.
type WalletRecord struct {
	PublicKey        string
	Secret           []byte
	Mnemonic         string
	AccountExists    bool
	FundedOrExisting bool
	CreatedAt        time.Time
}

// WalletClient is the wallet session state machine. It owns the keystore, the
// session-bound secret cache and the idle auto-lock, and it is the only
// surface other code may call.
type WalletClient interface {
	GetVersion() string
	// State returns the current session state.
	State() State
	// CreateWallet generates a fresh keypair, writes the encrypted keystore
	// and leaves the wallet unlocked. Returns the wallet public key.
	CreateWallet(ctx context.Context, password string) (string, error)
	// ImportWallet derives the wallet keypair deterministically from an
	// externally supplied seed and otherwise behaves like CreateWallet.
	ImportWallet(ctx context.Context, seed []byte, password string) (string, error)
	// Unlock transitions Locked -> Unlocked. A live cached session is tried
	// first and costs no password check; otherwise the keystore is opened
	// with the password and a new session is established. If the auth
	// service is unreachable the unlock completes from the local keystore
	// alone.
	Unlock(ctx context.Context, password string) error
	// Lock drops the in-memory secret and suspends the watchdog. The
	// durable keystore is untouched.
	Lock(ctx context.Context) error
	// Logout revokes the session, wipes all wallet data except preferences
	// and transitions to LoggedOut.
	Logout(ctx context.Context) error
	// Secret returns a copy of the decrypted secret. Fails unless Unlocked.
	Secret(ctx context.Context) ([]byte, error)
	// Dump re-opens the keystore with the password and returns the secret
	// hex-encoded. Password-gated even while unlocked.
	Dump(ctx context.Context, password string) (string, error)
	// RefreshSession rotates the session token and re-seals the cached
	// secret under the new one.
	RefreshSession(ctx context.Context) error
	// HasSession reports whether a plausibly live session exists, from the
	// redacted local projection only.
	HasSession(ctx context.Context) (bool, error)
	// Notify forwards a user-interaction signal to the idle watchdog.
	Notify(signal watchdog.Signal)
	// GetWalletData returns the durable wallet metadata.
	GetWalletData(ctx context.Context) (*types.WalletData, error)
	// SetPreferences and GetPreferences manage the blob exempt from the
	// logout wipe.
	SetPreferences(ctx context.Context, prefs types.Preferences) error
	GetPreferences(ctx context.Context) (*types.Preferences, error)
	Stop()
}
