package watchdog_test

import (
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/CrafterTA/UnityWallet-sub002/watchdog"
)

func TestFiresExactlyOnceAfterTimeout(t *testing.T) {
	var fired atomic.Int32
	w := watchdog.New(func() { fired.Add(1) }, watchdog.WithTimeout(100*time.Millisecond))
	w.Start()

	time.Sleep(300 * time.Millisecond)
	require.Equal(t, int32(1), fired.Load())

	// Suspended after firing: further signals schedule nothing.
	w.Observe(watchdog.SignalPointer)
	time.Sleep(200 * time.Millisecond)
	require.Equal(t, int32(1), fired.Load())
}

func TestSignalResetsDeadline(t *testing.T) {
	var fired atomic.Int32
	w := watchdog.New(func() { fired.Add(1) }, watchdog.WithTimeout(200*time.Millisecond))
	w.Start()

	// Keep signalling before the deadline; the callback must not fire.
	for i := 0; i < 4; i++ {
		time.Sleep(100 * time.Millisecond)
		w.Observe(watchdog.SignalKey)
	}
	require.Equal(t, int32(0), fired.Load())

	// Then go idle past the full timeout.
	time.Sleep(350 * time.Millisecond)
	require.Equal(t, int32(1), fired.Load())
}

func TestSuspendCancelsPendingTimer(t *testing.T) {
	var fired atomic.Int32
	w := watchdog.New(func() { fired.Add(1) }, watchdog.WithTimeout(100*time.Millisecond))
	w.Start()
	w.Suspend()

	time.Sleep(250 * time.Millisecond)
	require.Equal(t, int32(0), fired.Load())
}

func TestSignalsIgnoredWhileSuspended(t *testing.T) {
	var fired atomic.Int32
	w := watchdog.New(func() { fired.Add(1) }, watchdog.WithTimeout(100*time.Millisecond))

	// Never started: signals must not arm the timer.
	w.Observe(watchdog.SignalScroll)
	w.Observe(watchdog.SignalTouch)
	time.Sleep(250 * time.Millisecond)
	require.Equal(t, int32(0), fired.Load())
}

func TestUnknownSignalIgnored(t *testing.T) {
	var fired atomic.Int32
	w := watchdog.New(func() { fired.Add(1) }, watchdog.WithTimeout(150*time.Millisecond))
	w.Start()

	time.Sleep(100 * time.Millisecond)
	// An unknown signal must not push the deadline out.
	w.Observe(watchdog.Signal("gamepad"))
	time.Sleep(100 * time.Millisecond)
	require.Equal(t, int32(1), fired.Load())
}

func TestResetAtDeadlineSupersedesExpiredTimer(t *testing.T) {
	const timeout = 100 * time.Millisecond
	var fired atomic.Int32
	w := watchdog.New(func() { fired.Add(1) }, watchdog.WithTimeout(timeout))

	// Land resets right on the deadline: an expired timer whose callback has
	// not run yet must lose to the reset instead of locking straight after it.
	for i := 0; i < 20; i++ {
		fired.Store(0)
		w.Start()
		time.Sleep(timeout)
		w.Reset()

		// Let a callback that beat the reset finish before sampling.
		time.Sleep(10 * time.Millisecond)
		if fired.Load() == 0 {
			// The reset won, so the next deadline is a full timeout away.
			time.Sleep(timeout / 2)
			require.Equal(t, int32(0), fired.Load())
		}
		w.Suspend()
	}
}

func TestRestartAfterFire(t *testing.T) {
	var fired atomic.Int32
	w := watchdog.New(func() { fired.Add(1) }, watchdog.WithTimeout(100*time.Millisecond))
	w.Start()

	time.Sleep(200 * time.Millisecond)
	require.Equal(t, int32(1), fired.Load())

	w.Start()
	time.Sleep(200 * time.Millisecond)
	require.Equal(t, int32(2), fired.Load())
}
