package drivers

import (
	"context"
)

// EdgeFunc is invoked from a driver's event source when a watched input
// changes level. It runs on the driver's event goroutine: implementations
// must return quickly, must not block and must not log.
type EdgeFunc func(pin uint16)

type IoDriver interface {
	Setup(ctx context.Context, inputs []uint16, outputs []uint16) error
	Close() error
	String() string
	IsReady() bool
	GetInput(pin uint16) (DigitalInput, error)
	GetOutput(pin uint16) (DigitalOutput, error)
	GetAllIo() (inputs []uint16, outputs []uint16)
}

type DigitalInput interface {
	GetState() (bool, error)
	Watch(EdgeFunc) error
}

type DigitalOutput interface {
	GetState() (bool, error)
	Set(bool) error
}
