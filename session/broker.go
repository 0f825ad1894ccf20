// Package session binds a decrypted wallet secret to a server-verified
// session. The secret is cached in the ephemeral store sealed under key
// material taken from the session token itself, never under the user's
// password: a stolen durable store has no token, and a stolen ephemeral store
// is useless once the server stops confirming the session.
package session

import (
	"context"
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/CrafterTA/UnityWallet-sub002/client"
	"github.com/CrafterTA/UnityWallet-sub002/types"
	"github.com/CrafterTA/UnityWallet-sub002/vault"
)

var (
	// ErrSessionExpired is returned when the locally stored session lifetime
	// has elapsed. No network call is made in that case.
	ErrSessionExpired = errors.New("session expired")

	// ErrSessionInvalid is returned when no usable session is cached or the
	// server rejected the current one.
	ErrSessionInvalid = errors.New("session invalid")

	// ErrNetworkUnavailable is returned when the auth service could not be
	// reached. The cached envelope is cleared regardless: an unconfirmable
	// session is treated as no session.
	ErrNetworkUnavailable = errors.New("auth service unavailable")

	// ErrNoKeystore is returned when the durable store has no keystore
	// record to open.
	ErrNoKeystore = errors.New("no keystore found")
)

const nonceLen = 12

// Broker implements the credential exchange between the keystore vault, the
// auth service and the two storage ports.
type Broker struct {
	authClient client.AuthClient
	durable    types.DurableStore
	ephemeral  types.EphemeralStore
}

func NewBroker(
	authClient client.AuthClient, durable types.DurableStore, ephemeral types.EphemeralStore,
) *Broker {
	return &Broker{authClient, durable, ephemeral}
}

// Login verifies the password against the durable keystore, obtains a fresh
// session from the auth service and caches the secret sealed under the new
// token. The password never leaves the client. It returns the decrypted
// secret so the caller does not have to re-derive it.
func (b *Broker) Login(
	ctx context.Context, publicKey, password string,
) ([]byte, *types.SessionDescriptor, error) {
	record, err := b.durable.GetKeystore(ctx)
	if err != nil {
		return nil, nil, err
	}
	if record == nil {
		return nil, nil, ErrNoKeystore
	}

	secret, err := vault.Open(*record, password)
	if err != nil {
		return nil, nil, err
	}

	descriptor, err := b.authClient.Login(ctx, publicKey)
	if err != nil {
		if errors.Is(err, client.ErrConnectionFailed) {
			return nil, nil, fmt.Errorf("%w: %s", ErrNetworkUnavailable, err)
		}
		return nil, nil, err
	}

	if err := b.seal(ctx, secret, publicKey, descriptor); err != nil {
		// nolint:errcheck
		b.clear(ctx)
		return nil, nil, err
	}

	return secret, descriptor, nil
}

// VerifySession returns the cached secret if a live session exists. Local
// expiry is checked first so an obviously dead session costs no network call;
// every failure path clears the cached state before propagating.
func (b *Broker) VerifySession(ctx context.Context) ([]byte, error) {
	envelope, err := b.ephemeral.GetEnvelope(ctx)
	if err != nil {
		return nil, err
	}
	info, err := b.ephemeral.GetSessionInfo(ctx)
	if err != nil {
		return nil, err
	}
	if envelope == nil || info == nil || !info.HasSession {
		return nil, ErrSessionInvalid
	}

	if info.Expired(time.Now()) {
		if err := b.clear(ctx); err != nil {
			return nil, err
		}
		return nil, ErrSessionExpired
	}

	descriptor, err := b.authClient.Verify(ctx)
	if err != nil {
		// nolint:errcheck
		b.clear(ctx)
		if errors.Is(err, client.ErrConnectionFailed) {
			return nil, fmt.Errorf("%w: %s", ErrNetworkUnavailable, err)
		}
		return nil, fmt.Errorf("%w: %s", ErrSessionInvalid, err)
	}

	secret, err := b.open(*envelope, descriptor.SessionToken)
	if err != nil {
		// nolint:errcheck
		b.clear(ctx)
		return nil, err
	}
	return secret, nil
}

// RefreshSession rotates the session token and re-seals the same secret
// under the new one. After it returns the old envelope is gone, readable or
// not.
func (b *Broker) RefreshSession(ctx context.Context) error {
	secret, err := b.VerifySession(ctx)
	if err != nil {
		return err
	}

	info, err := b.ephemeral.GetSessionInfo(ctx)
	if err != nil {
		return err
	}

	descriptor, err := b.authClient.Refresh(ctx)
	if err != nil {
		// nolint:errcheck
		b.clear(ctx)
		if errors.Is(err, client.ErrConnectionFailed) {
			return fmt.Errorf("%w: %s", ErrNetworkUnavailable, err)
		}
		return fmt.Errorf("%w: %s", ErrSessionInvalid, err)
	}

	if err := b.seal(ctx, secret, info.OwnerPublicKey, descriptor); err != nil {
		// nolint:errcheck
		b.clear(ctx)
		return err
	}
	return nil
}

// Logout revokes the session server-side on a best-effort basis and always
// clears the local state: the cached secret is the asset to protect first.
func (b *Broker) Logout(ctx context.Context) error {
	if err := b.authClient.Logout(ctx); err != nil {
		log.WithError(err).Warn("server-side logout failed, clearing local session anyway")
	}
	return b.clear(ctx)
}

// HasSession answers "do I plausibly have a session" from the redacted
// projection alone, with no token access and no network call.
func (b *Broker) HasSession(ctx context.Context) (bool, error) {
	info, err := b.ephemeral.GetSessionInfo(ctx)
	if err != nil {
		return false, err
	}
	return info != nil && info.HasSession && !info.Expired(time.Now()), nil
}

func (b *Broker) seal(
	ctx context.Context, secret []byte, publicKey string, descriptor *types.SessionDescriptor,
) error {
	aead, err := tokenAead(descriptor.SessionToken)
	if err != nil {
		return err
	}
	nonce := make([]byte, nonceLen)
	if _, err := rand.Read(nonce); err != nil {
		return fmt.Errorf("failed to generate nonce: %w", err)
	}

	envelope := types.EncryptedSecretEnvelope{
		EncryptedSecret: hex.EncodeToString(aead.Seal(nil, nonce, secret, nil)),
		IV:              hex.EncodeToString(nonce),
		OwnerPublicKey:  publicKey,
		CreatedAt:       time.Now(),
	}
	if err := b.ephemeral.AddEnvelope(ctx, envelope); err != nil {
		return err
	}
	return b.ephemeral.AddSessionInfo(ctx, descriptor.Redacted())
}

func (b *Broker) open(envelope types.EncryptedSecretEnvelope, token string) ([]byte, error) {
	aead, err := tokenAead(token)
	if err != nil {
		return nil, err
	}
	data, err := hex.DecodeString(envelope.EncryptedSecret)
	if err != nil {
		return nil, fmt.Errorf("bad envelope data: %w", err)
	}
	nonce, err := hex.DecodeString(envelope.IV)
	if err != nil || len(nonce) != nonceLen {
		return nil, fmt.Errorf("bad envelope nonce")
	}

	secret, err := aead.Open(nil, nonce, data, nil)
	if err != nil {
		return nil, ErrSessionInvalid
	}
	return secret, nil
}

func (b *Broker) clear(ctx context.Context) error {
	return b.ephemeral.Clean(ctx)
}

// tokenAead builds the AES-256-GCM cipher for an envelope. The key is the
// SHA-256 digest of the raw token bytes: a pure function of the token alone,
// so nothing beyond the live token can reconstruct it.
func tokenAead(token string) (cipher.AEAD, error) {
	if len(token) == 0 {
		return nil, ErrSessionInvalid
	}
	key := sha256.Sum256([]byte(token))
	block, err := aes.NewCipher(key[:])
	if err != nil {
		return nil, err
	}
	return cipher.NewGCM(block)
}
