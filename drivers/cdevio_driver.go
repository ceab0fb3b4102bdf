package drivers

import (
	"context"
	"fmt"
	"sync"

	"github.com/pkg/errors"
	"github.com/warthog618/gpiod"
)

const cdevioDriverName = "gpiocdev"
const defaultGpioChip = "gpiochip0"

// CdevIO drives gpio lines through the kernel character device. Unlike
// GpIO it needs no memory mapped register access, works on any gpiochip
// and delivers kernel edge events through a handler goroutine owned by
// the gpiod library.
type CdevIO struct {
	Chip string

	InvertInputs  bool
	InvertOutputs bool

	chip    *gpiod.Chip
	inputs  []*CdevInput
	outputs []*CdevOutput
	isReady bool
}

type CdevInput struct {
	pin    uint16
	invert bool
	line   *gpiod.Line

	mu   sync.Mutex
	edge EdgeFunc
}

type CdevOutput struct {
	pin    uint16
	invert bool
	line   *gpiod.Line
}

func (ci *CdevInput) GetState() (state bool, err error) {
	value, err := ci.line.Value()
	if err != nil {
		err = errors.Wrapf(err, "failed to read gpio line %d", ci.pin)
		return
	}
	if ci.invert {
		state = value == 0
	} else {
		state = value != 0
	}

	return
}

func (ci *CdevInput) Watch(fn EdgeFunc) error {
	if fn == nil {
		return errors.Errorf("nil edge func for gpio line %d", ci.pin)
	}

	ci.mu.Lock()
	ci.edge = fn
	ci.mu.Unlock()

	return nil
}

// handleEvent runs on the gpiod event goroutine, registered at request
// time so Watch needs no re-request of the line.
func (ci *CdevInput) handleEvent(gpiod.LineEvent) {
	ci.mu.Lock()
	fn := ci.edge
	ci.mu.Unlock()

	if fn != nil {
		fn(ci.pin)
	}
}

func (co *CdevOutput) GetState() (state bool, err error) {
	value, err := co.line.Value()
	if err != nil {
		err = errors.Wrapf(err, "failed to read gpio line %d", co.pin)
		return
	}
	if co.invert {
		state = value == 0
	} else {
		state = value != 0
	}

	return
}

func (co *CdevOutput) Set(state bool) error {
	value := 0
	if state != co.invert {
		value = 1
	}

	err := co.line.SetValue(value)
	if err != nil {
		return errors.Wrapf(err, "failed to set gpio line %d", co.pin)
	}
	return nil
}

func (cd *CdevIO) Setup(ctx context.Context, inputs []uint16, outputs []uint16) error {
	chipName := cd.Chip
	if len(chipName) == 0 {
		chipName = defaultGpioChip
	}

	chip, err := gpiod.NewChip(chipName)
	if err != nil {
		return errors.Wrapf(err, "failed to open gpio chip %s", chipName)
	}
	cd.chip = chip

	for _, inPin := range inputs {
		in := &CdevInput{pin: inPin, invert: cd.InvertInputs}
		line, err := chip.RequestLine(int(inPin),
			gpiod.WithEventHandler(in.handleEvent),
			gpiod.WithBothEdges,
			gpiod.AsInput,
			gpiod.WithPullUp)
		if err != nil {
			return errors.Wrapf(err, "failed to request input line %d on %s", inPin, chipName)
		}
		in.line = line
		cd.inputs = append(cd.inputs, in)
	}

	for _, outPin := range outputs {
		line, err := chip.RequestLine(int(outPin), gpiod.AsOutput(0))
		if err != nil {
			return errors.Wrapf(err, "failed to request output line %d on %s", outPin, chipName)
		}
		cd.outputs = append(cd.outputs, &CdevOutput{pin: outPin, invert: cd.InvertOutputs, line: line})
	}

	cd.isReady = true
	return nil
}

func (cd *CdevIO) String() string {
	return cdevioDriverName
}

func (cd *CdevIO) IsReady() bool {
	return cd.isReady
}

func (cd *CdevIO) Close() (err error) {
	if !cd.isReady {
		return nil
	}
	cd.isReady = false

	for _, out := range cd.outputs {
		out.Set(false)
	}

	for _, in := range cd.inputs {
		closeErr := in.line.Close()
		if closeErr != nil && err == nil {
			err = errors.Wrapf(closeErr, "failed to close input line %d", in.pin)
		}
	}
	for _, out := range cd.outputs {
		closeErr := out.line.Close()
		if closeErr != nil && err == nil {
			err = errors.Wrapf(closeErr, "failed to close output line %d", out.pin)
		}
	}

	if cd.chip != nil {
		closeErr := cd.chip.Close()
		if closeErr != nil && err == nil {
			err = errors.Wrap(closeErr, "failed to close gpio chip")
		}
	}

	return
}

func (cd *CdevIO) GetInput(pin uint16) (input DigitalInput, err error) {
	for _, in := range cd.inputs {
		if in.pin == pin {
			input = in
			return
		}
	}

	err = fmt.Errorf("CdevIO Input (line: %d) not found", pin)
	return
}

func (cd *CdevIO) GetOutput(pin uint16) (output DigitalOutput, err error) {
	for _, out := range cd.outputs {
		if out.pin == pin {
			output = out
			return
		}
	}

	err = fmt.Errorf("CdevIO Output (line: %d) not found", pin)
	return
}

func (cd *CdevIO) GetAllIo() (inputs []uint16, outputs []uint16) {
	for _, in := range cd.inputs {
		inputs = append(inputs, in.pin)
	}

	for _, out := range cd.outputs {
		outputs = append(outputs, out.pin)
	}

	return
}
