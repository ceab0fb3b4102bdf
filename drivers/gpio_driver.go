package drivers

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/pkg/errors"
	"github.com/stianeikeland/go-rpio/v4"
)

const gpioDriverName = "gpio"

// gpioEdgePollInterval paces polling of the hardware event detect status
// bits. The bits live in memory mapped registers, checking them is cheap.
const gpioEdgePollInterval = 3 * time.Millisecond

// GpIO drives the SoC pins through the memory mapped gpio registers. Edge
// watching arms the hardware event detect status bits, drained by a
// polling goroutine started in Setup.
type GpIO struct {
	inputs  []*GpInput
	outputs []*GpOutput

	InvertInputs  bool
	InvertOutputs bool

	isReady bool
	stop    chan struct{}

	mu      sync.Mutex
	watched []*GpInput
}

type GpInput struct {
	pin    uint8
	invert bool
	edge   EdgeFunc

	gp *GpIO
}

type GpOutput struct {
	pin    uint8
	invert bool
}

func (gpi *GpInput) GetState() (state bool, err error) {
	if gpi.invert {
		state = rpio.Pin(gpi.pin).Read() == rpio.Low
	} else {
		state = rpio.Pin(gpi.pin).Read() == rpio.High
	}

	return
}

func (gpi *GpInput) Watch(fn EdgeFunc) error {
	if fn == nil {
		return errors.Errorf("nil edge func for gpio pin %d", gpi.pin)
	}

	gpi.gp.mu.Lock()
	defer gpi.gp.mu.Unlock()

	gpi.edge = fn
	rpio.Pin(gpi.pin).Detect(rpio.AnyEdge)
	gpi.gp.watched = append(gpi.gp.watched, gpi)

	return nil
}

func (gpo *GpOutput) Set(state bool) error {

	if gpo.invert {
		state = !state
	}
	if state {
		rpio.Pin(gpo.pin).High()
	} else {
		rpio.Pin(gpo.pin).Low()
	}

	return nil
}

func (gpo *GpOutput) GetState() (state bool, err error) {
	if gpo.invert {
		state = rpio.Pin(gpo.pin).Read() == rpio.Low
	} else {
		state = rpio.Pin(gpo.pin).Read() == rpio.High
	}

	return
}

func (gp *GpIO) Setup(ctx context.Context, inputs []uint16, outputs []uint16) error {
	err := rpio.Open()
	if err != nil {
		return errors.Wrapf(err, "failed to Setup gpio driver for pins: %v, %v; ", inputs, outputs)
	}
	for _, inPin := range inputs {
		if inPin > 255 {
			return errors.Errorf("inpin out of range (gpio takes uint8 pin)")
		}
		pin := rpio.Pin(inPin)
		pin.Input()
		pin.PullUp()
		gp.inputs = append(gp.inputs, &GpInput{pin: uint8(inPin), invert: gp.InvertInputs, gp: gp})
	}

	for _, outPin := range outputs {
		if outPin > 255 {
			return errors.Errorf("outpin out of range (gpio takes uint8 pin)")
		}
		pin := rpio.Pin(outPin)
		pin.Output()
		pin.Low()
		gp.outputs = append(gp.outputs, &GpOutput{pin: uint8(outPin), invert: gp.InvertOutputs})
	}

	gp.stop = make(chan struct{})
	go gp.watchLoop()

	gp.isReady = true
	return nil
}

// watchLoop fires the edge func of every watched input whose event detect
// status bit is set. Runs until Close.
func (gp *GpIO) watchLoop() {
	ticker := time.NewTicker(gpioEdgePollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-gp.stop:
			return
		case <-ticker.C:
			gp.mu.Lock()
			watched := gp.watched
			gp.mu.Unlock()
			for _, in := range watched {
				if rpio.Pin(in.pin).EdgeDetected() {
					in.edge(uint16(in.pin))
				}
			}
		}
	}
}

func (gp *GpIO) String() string {
	return gpioDriverName
}

func (gp *GpIO) IsReady() bool {
	return gp.isReady
}

func (gp *GpIO) Close() error {
	if !gp.isReady {
		return nil
	}
	gp.isReady = false

	close(gp.stop)

	gp.mu.Lock()
	for _, in := range gp.watched {
		rpio.Pin(in.pin).Detect(rpio.NoEdge)
	}
	gp.watched = nil
	gp.mu.Unlock()

	for _, output := range gp.outputs {
		output.Set(false)
	}
	return rpio.Close()
}

func (gp *GpIO) GetInput(id uint16) (input DigitalInput, err error) {
	if id > 255 {
		err = errors.Errorf("pin id out of range (gpio takes uint8 pin)")
		return
	}
	for _, in := range gp.inputs {
		if in.pin == uint8(id) {
			input = in
			return
		}
	}

	err = fmt.Errorf("GpIO Input (id: %d) not found", id)
	return
}

func (gp *GpIO) GetOutput(id uint16) (output DigitalOutput, err error) {
	if id > 255 {
		err = errors.Errorf("pin id out of range (gpio takes uint8 pin)")
		return
	}
	for _, out := range gp.outputs {
		if out.pin == uint8(id) {
			output = out
			return
		}
	}

	err = fmt.Errorf("GpIO Output (id: %d) not found", id)
	return
}

func (gp *GpIO) GetAllIo() (inputs []uint16, outputs []uint16) {
	for _, input := range gp.inputs {
		inputs = append(inputs, uint16(input.pin))
	}

	for _, output := range gp.outputs {
		outputs = append(outputs, uint16(output.pin))
	}

	return
}
