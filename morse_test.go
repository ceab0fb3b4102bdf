package riokit

import (
	"context"
	"testing"
	"time"

	"github.com/hubertat/riokit/drivers"
)

func TestBlinkMorseWStopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	led := &drivers.MockOutput{}
	start := time.Now()
	blinkMorseW(ctx, led)

	if time.Since(start) > 100*time.Millisecond {
		t.Error("cancelled blink should return promptly")
	}
	state, _ := led.GetState()
	if state {
		t.Error("led should be left off")
	}
}
