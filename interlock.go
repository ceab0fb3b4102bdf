package riokit

import (
	"sync"

	"github.com/charmbracelet/log"

	"github.com/hubertat/riokit/drivers"
)

// Interlock is the output enable state machine. Physical outputs follow
// the coil banks only while it is enabled; disabling forces every output
// off and leaves coil memory untouched, so re-enabling restores the
// retained state. Three triggers feed it: the debounced panel button,
// remote coil writes via CoilsWritten and software via SetEnabled. The
// unit boots disabled.
type Interlock struct {
	mu      sync.Mutex
	enabled bool

	regs      *Registers
	banks     [2][]drivers.DigitalOutput
	indicator drivers.DigitalOutput

	observers []EnableObserver
	logger    *log.Logger
}

func NewInterlock(regs *Registers, banks [2][]drivers.DigitalOutput, indicator drivers.DigitalOutput, logger *log.Logger) *Interlock {
	return &Interlock{
		regs:      regs,
		banks:     banks,
		indicator: indicator,
		logger:    logger,
	}
}

// Observe registers an observer for enable transitions. Register before
// the unit starts.
func (il *Interlock) Observe(observer EnableObserver) {
	il.observers = append(il.observers, observer)
}

func (il *Interlock) Enabled() bool {
	il.mu.Lock()
	defer il.mu.Unlock()
	return il.enabled
}

// ButtonToggle flips the enable state. Runs on the debounce timer
// goroutine, once per debounced press.
func (il *Interlock) ButtonToggle() {
	il.mu.Lock()
	if il.enabled {
		il.disableLocked()
	} else {
		il.enableLocked()
	}
	enabled := il.enabled
	il.mu.Unlock()

	il.logger.Info("digital outputs toggled", "enabled", enabled, "trigger", "button")
	il.notify(enabled)
}

// CoilsWritten is the write completion hook of the register engine,
// called once after each finished write transaction. The enable bit
// decides the fate of the whole batch: outputs are only reflected when
// the final enable value allows it, and a batch that clears the bit
// forces outputs off without reflecting anything else it wrote.
func (il *Interlock) CoilsWritten() {
	il.mu.Lock()
	oe := il.regs.Coil(CoilOutputEnable)
	changed := false
	switch {
	case il.enabled && !oe:
		il.disableLocked()
		changed = true
	case il.enabled && oe:
		il.reflectLocked()
	case !il.enabled && oe:
		il.enableLocked()
		changed = true
	}
	enabled := il.enabled
	il.mu.Unlock()

	if changed {
		il.logger.Info("digital outputs toggled", "enabled", enabled, "trigger", "remote")
		il.notify(enabled)
	}
}

// SetEnabled is the software trigger. Idempotent: enabling an enabled
// interlock does nothing.
func (il *Interlock) SetEnabled(state bool) {
	il.mu.Lock()
	if state == il.enabled {
		il.mu.Unlock()
		return
	}
	if state {
		il.enableLocked()
	} else {
		il.disableLocked()
	}
	enabled := il.enabled
	il.mu.Unlock()

	il.logger.Info("digital outputs toggled", "enabled", enabled, "trigger", "software")
	il.notify(enabled)
}

// enableLocked reflects coil memory to the outputs before the enabled
// state becomes observable, then raises the enable coil and indicator.
func (il *Interlock) enableLocked() {
	il.reflectLocked()
	il.enabled = true
	il.regs.SetCoil(CoilOutputEnable, true)
	il.setIndicator(true)
}

func (il *Interlock) disableLocked() {
	for _, bank := range il.banks {
		for _, out := range bank {
			il.setOutput(out, false)
		}
	}
	il.enabled = false
	il.regs.SetCoil(CoilOutputEnable, false)
	il.setIndicator(false)
}

// reflectLocked drives every output from its coil bit: coil n to bank 0
// output n, coil n+16 to bank 1 output n.
func (il *Interlock) reflectLocked() {
	for no := 0; no < NumChannels; no++ {
		il.setOutput(il.banks[0][no], il.regs.Coil(uint16(CoilBank0Offset+no)))
		il.setOutput(il.banks[1][no], il.regs.Coil(uint16(CoilBank1Offset+no)))
	}
}

func (il *Interlock) setOutput(out drivers.DigitalOutput, state bool) {
	err := out.Set(state)
	if err != nil {
		il.logger.Error("failed to set output", "err", err)
	}
}

func (il *Interlock) setIndicator(state bool) {
	err := il.indicator.Set(state)
	if err != nil {
		il.logger.Error("failed to set status led", "err", err)
	}
}

func (il *Interlock) notify(enabled bool) {
	for _, observer := range il.observers {
		observer.EnableChanged(enabled)
	}
}
