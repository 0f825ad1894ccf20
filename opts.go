package unitywallet

import (
	"time"

	"github.com/CrafterTA/UnityWallet-sub002/watchdog"
)

// ClientOption configures a WalletClient at construction time.
type ClientOption func(*walletClient)

// WithIdleTimeout overrides the inactivity interval after which the wallet
// auto-locks.
// Default: 15 minutes
func WithIdleTimeout(timeout time.Duration) ClientOption {
	return func(c *walletClient) {
		if timeout > 0 {
			c.idleTimeout = timeout
		}
	}
}

// WithoutAutoLock disables the idle watchdog entirely. Meant for embedders
// that drive locking themselves.
func WithoutAutoLock() ClientOption {
	return func(c *walletClient) {
		c.autoLockDisabled = true
	}
}

func (c *walletClient) newWatchdog() *watchdog.Watchdog {
	return watchdog.New(c.onIdleTimeout, watchdog.WithTimeout(c.idleTimeout))
}
