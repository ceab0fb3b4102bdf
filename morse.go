package riokit

import (
	"context"
	"time"

	"github.com/hubertat/riokit/drivers"
)

// Morse timing of the no-network alert. The status led blinks a repeating
// "W" (dot dash dash), readable at a glance from across the room.
const (
	morseDot        = 250 * time.Millisecond
	morseDash       = 3 * morseDot
	morseElementGap = morseDot
	morseLetterGap  = 3 * morseDot
)

// networkCheckInterval paces connectivity checks while the link is up.
const networkCheckInterval = 15 * time.Second

// ConnectivityChecker reports whether the unit currently has a network
// path to its master.
type ConnectivityChecker interface {
	Connected() bool
}

// blinkMorseW blinks one letter on the led, returning early when ctx is
// cancelled. The led is left off.
func blinkMorseW(ctx context.Context, led drivers.DigitalOutput) {
	elements := []time.Duration{morseDot, morseDash, morseDash}
	for no, hold := range elements {
		led.Set(true)
		if !sleepFor(ctx, hold) {
			led.Set(false)
			return
		}
		led.Set(false)

		gap := morseElementGap
		if no == len(elements)-1 {
			gap = morseLetterGap
		}
		if !sleepFor(ctx, gap) {
			return
		}
	}
}

func sleepFor(ctx context.Context, d time.Duration) bool {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}

// NetworkAlert blinks the no-network pattern on the status led while the
// checker reports no connectivity. The steady enable indicator wins: the
// alert stays away from the led whenever outputs are enabled, and blinking
// resumes only on the next disconnected check. Blocks until ctx is
// cancelled.
func (rk *RioKit) NetworkAlert(ctx context.Context, checker ConnectivityChecker) {
	ticker := time.NewTicker(networkCheckInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			for !checker.Connected() {
				if ctx.Err() != nil {
					return
				}
				if rk.interlock.Enabled() {
					break
				}
				blinkMorseW(ctx, rk.statusLed)
			}
		}
	}
}
