package unitywallet

import (
	"errors"

	"github.com/CrafterTA/UnityWallet-sub002/scratch"
	"github.com/CrafterTA/UnityWallet-sub002/session"
	"github.com/CrafterTA/UnityWallet-sub002/vault"
)

// The error taxonomy of the SDK. The crypto and session errors are defined
// next to the code that raises them and re-exported here so callers only ever
// import the root package.
var (
	ErrInvalidPassword    = vault.ErrInvalidPassword
	ErrMalformedRecord    = vault.ErrMalformedRecord
	ErrDecryptionFailed   = scratch.ErrDecryptionFailed
	ErrSessionExpired     = session.ErrSessionExpired
	ErrSessionInvalid     = session.ErrSessionInvalid
	ErrNetworkUnavailable = session.ErrNetworkUnavailable
	ErrNoKeystore         = session.ErrNoKeystore

	ErrAlreadyInitialized = errors.New("wallet already initialized")
	ErrNotInitialized     = errors.New("wallet not initialized")
	ErrWalletLocked       = errors.New("wallet is locked")
	ErrNotLoggedIn        = errors.New("no wallet session")
)
