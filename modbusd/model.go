// Package modbusd exposes the unit's register store to a Modbus TCP
// engine and feeds remote write completions back into the interlock.
package modbusd

import (
	"sync/atomic"

	"github.com/soypat/peamodbus"
)

const (
	numCoils          = 32
	numDiscreteInputs = 16
)

// Registers is the register surface the unit shares with the engine.
type Registers interface {
	Coil(addr uint16) bool
	SetCoil(addr uint16, state bool)
	DiscreteInput(addr uint16) bool
}

// Model adapts the register store to the engine's data model. The unit
// carries no 16 bit register banks, only bits. Remote coil writes land in
// the store immediately; FlushWrites reports them to the write completion
// hook once per transaction, so a multi-coil batch is acted on only after
// its last bit is in place.
type Model struct {
	regs    Registers
	dirty   atomic.Bool
	onWrite func()
}

var _ peamodbus.DataModel = (*Model)(nil)

func NewModel(regs Registers, onWrite func()) *Model {
	return &Model{regs: regs, onWrite: onWrite}
}

func (m *Model) GetCoil(i int) (bool, peamodbus.Exception) {
	if i < 0 || i >= numCoils {
		return false, peamodbus.ExceptionIllegalDataAddr
	}
	return m.regs.Coil(uint16(i)), peamodbus.ExceptionNone
}

func (m *Model) SetCoil(i int, b bool) peamodbus.Exception {
	if i < 0 || i >= numCoils {
		return peamodbus.ExceptionIllegalDataAddr
	}
	m.regs.SetCoil(uint16(i), b)
	m.dirty.Store(true)
	return peamodbus.ExceptionNone
}

func (m *Model) GetDiscreteInput(i int) (bool, peamodbus.Exception) {
	if i < 0 || i >= numDiscreteInputs {
		return false, peamodbus.ExceptionIllegalDataAddr
	}
	return m.regs.DiscreteInput(uint16(i)), peamodbus.ExceptionNone
}

// SetDiscreteInput rejects every write: discrete inputs are fed by the io
// task only.
func (m *Model) SetDiscreteInput(int, bool) peamodbus.Exception {
	return peamodbus.ExceptionIllegalFunction
}

func (m *Model) GetInputRegister(int) (uint16, peamodbus.Exception) {
	return 0, peamodbus.ExceptionIllegalDataAddr
}

func (m *Model) SetInputRegister(int, uint16) peamodbus.Exception {
	return peamodbus.ExceptionIllegalDataAddr
}

func (m *Model) GetHoldingRegister(int) (uint16, peamodbus.Exception) {
	return 0, peamodbus.ExceptionIllegalDataAddr
}

func (m *Model) SetHoldingRegister(int, uint16) peamodbus.Exception {
	return peamodbus.ExceptionIllegalDataAddr
}

// FlushWrites invokes the write completion hook when any coil was written
// since the previous flush. Call between transactions, never inside one.
func (m *Model) FlushWrites() {
	if m.dirty.CompareAndSwap(true, false) && m.onWrite != nil {
		m.onWrite()
	}
}
