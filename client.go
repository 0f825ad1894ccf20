// Package unitywallet implements client-side key custody for a wallet: an
// encrypted keystore at rest, a session-bound secret cache, inactivity
// auto-lock and the state machine tying them together.
package unitywallet

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/btcsuite/btcd/btcec/v2"
	log "github.com/sirupsen/logrus"

	"github.com/CrafterTA/UnityWallet-sub002/client"
	"github.com/CrafterTA/UnityWallet-sub002/session"
	"github.com/CrafterTA/UnityWallet-sub002/types"
	"github.com/CrafterTA/UnityWallet-sub002/vault"
	"github.com/CrafterTA/UnityWallet-sub002/watchdog"
)

type walletClient struct {
	store      types.Store
	authClient client.AuthClient
	broker     *session.Broker

	idleTimeout      time.Duration
	autoLockDisabled bool
	watchdog         *watchdog.Watchdog

	// mu serializes every state transition. Crypto work happens inside the
	// critical section on purpose: two concurrent unlock attempts on the
	// same wallet are a caller bug the lock turns into a harmless wait.
	mu     sync.Mutex
	state  State
	record *WalletRecord
}

// NewWalletClient sets up a client for a wallet that does not exist yet.
// Fails with ErrAlreadyInitialized if the store already holds a keystore.
func NewWalletClient(
	sdkStore types.Store, authClient client.AuthClient, opts ...ClientOption,
) (WalletClient, error) {
	if sdkStore == nil {
		return nil, fmt.Errorf("missing sdk store")
	}
	if authClient == nil {
		return nil, fmt.Errorf("missing auth client")
	}

	record, err := sdkStore.DurableStore().GetKeystore(context.Background())
	if err != nil {
		return nil, err
	}
	if record != nil {
		return nil, ErrAlreadyInitialized
	}

	return newWalletClient(sdkStore, authClient, StateLoggedOut, opts...), nil
}

// LoadWalletClient sets up a client for an existing wallet. The wallet comes
// up Locked; call Unlock to obtain the secret.
func LoadWalletClient(
	sdkStore types.Store, authClient client.AuthClient, opts ...ClientOption,
) (WalletClient, error) {
	if sdkStore == nil {
		return nil, fmt.Errorf("missing sdk store")
	}
	if authClient == nil {
		return nil, fmt.Errorf("missing auth client")
	}

	record, err := sdkStore.DurableStore().GetKeystore(context.Background())
	if err != nil {
		return nil, err
	}
	if record == nil {
		return nil, ErrNotInitialized
	}

	return newWalletClient(sdkStore, authClient, StateLocked, opts...), nil
}

func newWalletClient(
	sdkStore types.Store, authClient client.AuthClient, initial State, opts ...ClientOption,
) *walletClient {
	c := &walletClient{
		store:       sdkStore,
		authClient:  authClient,
		broker:      session.NewBroker(authClient, sdkStore.DurableStore(), sdkStore.EphemeralStore()),
		idleTimeout: watchdog.DefaultTimeout,
		state:       initial,
	}
	for _, opt := range opts {
		opt(c)
	}
	if !c.autoLockDisabled {
		c.watchdog = c.newWatchdog()
	}
	return c
}

func (c *walletClient) GetVersion() string {
	return Version
}

func (c *walletClient) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

func (c *walletClient) CreateWallet(ctx context.Context, password string) (string, error) {
	prvkey, err := btcec.NewPrivateKey()
	if err != nil {
		return "", err
	}
	return c.initWallet(ctx, prvkey, password)
}

func (c *walletClient) ImportWallet(
	ctx context.Context, seed []byte, password string,
) (string, error) {
	if len(seed) == 0 {
		return "", fmt.Errorf("missing seed")
	}
	// Deterministic scalar from the seed, so the same seed always imports
	// the same wallet regardless of its original encoding.
	digest := sha256.Sum256(seed)
	prvkey, _ := btcec.PrivKeyFromBytes(digest[:])
	return c.initWallet(ctx, prvkey, password)
}

func (c *walletClient) initWallet(
	ctx context.Context, prvkey *btcec.PrivateKey, password string,
) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state != StateLoggedOut {
		return "", ErrAlreadyInitialized
	}

	secret := prvkey.Serialize()
	publicKey := hex.EncodeToString(prvkey.PubKey().SerializeCompressed())

	keystore, err := vault.Create(secret, password, publicKey)
	if err != nil {
		return "", err
	}

	durable := c.store.DurableStore()
	if err := durable.AddKeystore(ctx, keystore); err != nil {
		return "", err
	}
	walletData := types.WalletData{
		PublicKey:     publicKey,
		AccountExists: true,
		CreatedAt:     time.Now(),
	}
	if err := durable.AddWallet(ctx, walletData); err != nil {
		return "", err
	}

	// Best effort: a missing session only means the next unlock needs the
	// password again.
	if _, _, err := c.broker.Login(ctx, publicKey, password); err != nil {
		log.WithError(err).Warn("wallet created without a session")
	}

	c.record = &WalletRecord{
		PublicKey:     publicKey,
		Secret:        secret,
		AccountExists: true,
		CreatedAt:     walletData.CreatedAt,
	}
	c.toUnlocked()
	return publicKey, nil
}

func (c *walletClient) Unlock(ctx context.Context, password string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	switch c.state {
	case StateLoggedOut:
		return ErrNotLoggedIn
	case StateUnlocked:
		return nil
	}

	walletData, err := c.store.DurableStore().GetWallet(ctx)
	if err != nil {
		return err
	}
	if walletData == nil {
		return ErrNotInitialized
	}

	secret, err := c.unlockSecret(ctx, walletData.PublicKey, password)
	if err != nil {
		// State stays Locked; the caller learns nothing about which
		// validation step failed beyond the sentinel itself.
		return err
	}

	c.record = &WalletRecord{
		PublicKey:        walletData.PublicKey,
		Secret:           secret,
		AccountExists:    walletData.AccountExists,
		FundedOrExisting: walletData.FundedOrExisting,
		CreatedAt:        walletData.CreatedAt,
	}
	c.toUnlocked()
	return nil
}

// unlockSecret tries the cheap session path first, then the password path,
// then the password path without a network.
func (c *walletClient) unlockSecret(
	ctx context.Context, publicKey, password string,
) ([]byte, error) {
	secret, err := c.broker.VerifySession(ctx)
	if err == nil {
		return secret, nil
	}
	log.WithError(err).Debug("no cached session, falling back to keystore")

	secret, _, err = c.broker.Login(ctx, publicKey, password)
	if err == nil {
		return secret, nil
	}
	if !errors.Is(err, ErrNetworkUnavailable) {
		return nil, err
	}

	// Degraded mode: auth service unreachable, unlock from the local
	// keystore only.
	record, err := c.store.DurableStore().GetKeystore(ctx)
	if err != nil {
		return nil, err
	}
	if record == nil {
		return nil, ErrNoKeystore
	}
	return vault.Open(*record, password)
}

func (c *walletClient) Lock(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.doLock()
}

// doLock transitions to Locked. Caller holds c.mu.
func (c *walletClient) doLock() error {
	switch c.state {
	case StateLoggedOut:
		return ErrNotLoggedIn
	case StateLocked:
		return nil
	}

	c.wipeSecret()
	c.state = StateLocked
	if c.watchdog != nil {
		c.watchdog.Suspend()
	}
	return nil
}

func (c *walletClient) Logout(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.broker.Logout(ctx); err != nil {
		log.WithError(err).Warn("failed to clear session state")
	}
	c.store.Clean(ctx)

	c.wipeSecret()
	c.record = nil
	c.state = StateLoggedOut
	if c.watchdog != nil {
		c.watchdog.Suspend()
	}
	return nil
}

func (c *walletClient) Secret(_ context.Context) ([]byte, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state != StateUnlocked || c.record == nil || c.record.Secret == nil {
		return nil, ErrWalletLocked
	}
	secret := make([]byte, len(c.record.Secret))
	copy(secret, c.record.Secret)
	return secret, nil
}

func (c *walletClient) Dump(ctx context.Context, password string) (string, error) {
	record, err := c.store.DurableStore().GetKeystore(ctx)
	if err != nil {
		return "", err
	}
	if record == nil {
		return "", ErrNoKeystore
	}
	secret, err := vault.Open(*record, password)
	if err != nil {
		return "", err
	}
	return hex.EncodeToString(secret), nil
}

func (c *walletClient) RefreshSession(ctx context.Context) error {
	return c.broker.RefreshSession(ctx)
}

func (c *walletClient) HasSession(ctx context.Context) (bool, error) {
	return c.broker.HasSession(ctx)
}

func (c *walletClient) Notify(signal watchdog.Signal) {
	if c.watchdog != nil {
		c.watchdog.Observe(signal)
	}
}

func (c *walletClient) GetWalletData(ctx context.Context) (*types.WalletData, error) {
	return c.store.DurableStore().GetWallet(ctx)
}

func (c *walletClient) SetPreferences(ctx context.Context, prefs types.Preferences) error {
	return c.store.DurableStore().AddPreferences(ctx, prefs)
}

func (c *walletClient) GetPreferences(ctx context.Context) (*types.Preferences, error) {
	return c.store.DurableStore().GetPreferences(ctx)
}

func (c *walletClient) Stop() {
	if c.watchdog != nil {
		c.watchdog.Suspend()
	}
	c.authClient.Close()
	c.store.Close()
}

// toUnlocked flips the state and arms the watchdog. Caller holds c.mu.
func (c *walletClient) toUnlocked() {
	c.state = StateUnlocked
	if c.watchdog != nil {
		c.watchdog.Start()
	}
}

// onIdleTimeout runs on the watchdog timer goroutine.
func (c *walletClient) onIdleTimeout() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state != StateUnlocked {
		return
	}
	log.Info("wallet auto-locked after inactivity")
	// nolint:errcheck
	c.doLock()
}

func (c *walletClient) wipeSecret() {
	if c.record == nil {
		return
	}
	for i := range c.record.Secret {
		c.record.Secret[i] = 0
	}
	c.record.Secret = nil
	c.record.Mnemonic = ""
}
