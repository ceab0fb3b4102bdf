package riokit

import (
	"context"
	"fmt"
)

// eventQueueSize bounds the edge event queue. Edges beyond a full queue
// are dropped and counted; the level is re-read at processing time so a
// settled line still ends up with the right register value.
const eventQueueSize = 10

// inputEvent names the input pin whose edge was detected. Events carry no
// level on purpose: the io task reads the line when it processes the
// event.
type inputEvent struct {
	pin uint16
}

// queueInputEvent is the edge func of every channel input. It runs on
// driver event goroutines and must not block or log.
func (rk *RioKit) queueInputEvent(pin uint16) {
	select {
	case rk.events <- inputEvent{pin: pin}:
	default:
		rk.dropped.Add(1)
	}
}

// probeInputs reads every channel input once so the discrete input word
// starts from real line levels instead of zeros.
func (rk *RioKit) probeInputs() error {
	for no, input := range rk.inputs {
		level, err := input.GetState()
		if err != nil {
			return fmt.Errorf("failed to read input of channel %d: %w", no, err)
		}
		rk.regs.SetDiscreteInput(uint16(no), level)
	}
	return nil
}

// ioTask is the single consumer of the edge event queue. It serializes
// register updates and observer notifications for input changes.
func (rk *RioKit) ioTask(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case event := <-rk.events:
			rk.handleInputEvent(event)
		}
	}
}

func (rk *RioKit) handleInputEvent(event inputEvent) {
	channel, found := rk.channelByInputPin(event.pin)
	if !found {
		rk.logger.Warn("edge event from unmapped pin", "pin", event.pin)
		return
	}

	level, err := rk.inputs[channel].GetState()
	if err != nil {
		rk.logger.Error("failed to read input level", "channel", channel, "err", err)
		return
	}

	rk.regs.SetDiscreteInput(uint16(channel), level)
	rk.logger.Debug("input changed", "channel", channel, "level", level)

	for _, observer := range rk.levelObservers {
		observer.LevelChanged(channel, level)
	}

	if total := rk.dropped.Load(); total != rk.droppedSeen {
		rk.logger.Warn("input events dropped on full queue", "total", total)
		rk.droppedSeen = total
	}
}
