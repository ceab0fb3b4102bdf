package riokit

import "sync"

// Register map of the unit. Coils 0-9 drive output bank 0, coils 16-25
// drive output bank 1, coil 31 is the output enable bit. The remaining
// coils are reserved: masters may read and write them, nothing is wired
// to them. Discrete inputs 0-9 mirror the digital input channels.
const (
	CoilBank0Offset  = 0
	CoilBank1Offset  = 16
	CoilOutputEnable = 31

	NumCoils          = 32
	NumDiscreteInputs = 16
)

// Registers holds the unit's register memory: one discrete input word and
// two coil words. Single-bit accesses take the store lock only for the bit
// they touch; anything needing a wider consistent view goes through
// Snapshot or coordinates in the interlock.
type Registers struct {
	mu       sync.Mutex
	discrete uint16
	coils    [2]uint16
}

// RegisterSnapshot is a consistent copy of the whole register memory.
type RegisterSnapshot struct {
	DiscreteInputs uint16
	Coils          [2]uint16
}

func (rg *Registers) Coil(addr uint16) bool {
	if addr >= NumCoils {
		return false
	}

	rg.mu.Lock()
	defer rg.mu.Unlock()
	return rg.coils[addr/16]&(1<<(addr%16)) != 0
}

func (rg *Registers) SetCoil(addr uint16, state bool) {
	if addr >= NumCoils {
		return
	}

	rg.mu.Lock()
	defer rg.mu.Unlock()
	if state {
		rg.coils[addr/16] |= 1 << (addr % 16)
	} else {
		rg.coils[addr/16] &^= 1 << (addr % 16)
	}
}

func (rg *Registers) DiscreteInput(addr uint16) bool {
	if addr >= NumDiscreteInputs {
		return false
	}

	rg.mu.Lock()
	defer rg.mu.Unlock()
	return rg.discrete&(1<<addr) != 0
}

func (rg *Registers) SetDiscreteInput(addr uint16, state bool) {
	if addr >= NumDiscreteInputs {
		return
	}

	rg.mu.Lock()
	defer rg.mu.Unlock()
	if state {
		rg.discrete |= 1 << addr
	} else {
		rg.discrete &^= 1 << addr
	}
}

func (rg *Registers) Snapshot() RegisterSnapshot {
	rg.mu.Lock()
	defer rg.mu.Unlock()
	return RegisterSnapshot{
		DiscreteInputs: rg.discrete,
		Coils:          rg.coils,
	}
}
