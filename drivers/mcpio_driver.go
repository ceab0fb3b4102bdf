package drivers

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/racerxdl/go-mcp23017"
)

const mcpioDriverName = "mcpio"

// mcpioPollInterval paces level polling of watched expander inputs. The
// expander's interrupt line is not wired on the reference boards, so edge
// detection compares consecutive reads over i2c.
const mcpioPollInterval = 20 * time.Millisecond

// McpIO drives one MCP23017 i2c port expander. Several expanders can be
// configured side by side: give each a distinct Name so the channel table
// can address them.
type McpIO struct {
	device *mcp23017.Device

	inputs  []*McpInput
	outputs []*McpOutput
	isReady bool
	stop    chan struct{}

	mu      sync.Mutex
	watched []*McpInput

	Name          string
	BusNo         uint8
	DevNo         uint8
	InvertInputs  bool
	InvertOutputs bool
}

type McpInput struct {
	pin    uint8
	invert bool

	device *mcp23017.Device

	mcp  *McpIO
	edge EdgeFunc
	last mcp23017.PinLevel
}

type McpOutput struct {
	pin    uint8
	invert bool

	device *mcp23017.Device
}

func (min *McpInput) GetState() (state bool, err error) {
	rawState, err := min.device.DigitalRead(min.pin)
	if err != nil {
		return
	}

	if min.invert {
		state = !bool(rawState)
	} else {
		state = bool(rawState)
	}
	return
}

func (min *McpInput) Watch(fn EdgeFunc) error {
	if fn == nil {
		return fmt.Errorf("nil edge func for mcpio pin %d", min.pin)
	}

	level, err := min.device.DigitalRead(min.pin)
	if err != nil {
		return fmt.Errorf("failed to read mcpio pin %d before watching: %w", min.pin, err)
	}

	min.mcp.mu.Lock()
	defer min.mcp.mu.Unlock()

	min.edge = fn
	min.last = level
	min.mcp.watched = append(min.mcp.watched, min)

	return nil
}

func (mout *McpOutput) GetState() (state bool, err error) {
	rawState, err := mout.device.DigitalRead(mout.pin)
	if err != nil {
		return
	}

	if mout.invert {
		state = !bool(rawState)
	} else {
		state = bool(rawState)
	}
	return
}

func (mout *McpOutput) Set(state bool) (err error) {
	if mout.invert {
		state = !state
	}

	err = mout.device.DigitalWrite(mout.pin, mcp23017.PinLevel(state))

	return
}

func (mcp *McpIO) String() string {
	if len(mcp.Name) > 0 {
		return mcp.Name
	}
	return mcpioDriverName
}

func (mcp *McpIO) IsReady() bool {
	return mcp.isReady
}

func (mcp *McpIO) Setup(ctx context.Context, inputs []uint16, outputs []uint16) (err error) {
	mcp.device, err = mcp23017.Open(mcp.BusNo, mcp.DevNo)
	if err != nil {
		return
	}

	for _, inputPin := range inputs {
		if inputPin > 255 {
			err = fmt.Errorf("input pin out of range (mcpio takes uint8 pin id)")
			return
		}
		err = mcp.device.PinMode(uint8(inputPin), mcp23017.INPUT)
		if err != nil {
			return
		}
		err = mcp.device.SetPullUp(uint8(inputPin), true)
		if err != nil {
			return
		}
		mcp.inputs = append(mcp.inputs, &McpInput{pin: uint8(inputPin), invert: mcp.InvertInputs, device: mcp.device, mcp: mcp})
	}

	for _, outputPin := range outputs {
		if outputPin > 255 {
			err = fmt.Errorf("output pin out of range (mcpio takes uint8 pin id)")
			return
		}
		err = mcp.device.PinMode(uint8(outputPin), mcp23017.OUTPUT)
		if err != nil {
			return
		}
		err = mcp.device.DigitalWrite(uint8(outputPin), mcp23017.PinLevel(mcp.InvertOutputs))
		if err != nil {
			return
		}
		mcp.outputs = append(mcp.outputs, &McpOutput{pin: uint8(outputPin), invert: mcp.InvertOutputs, device: mcp.device})
	}

	mcp.stop = make(chan struct{})
	go mcp.watchLoop()

	mcp.isReady = err == nil

	return
}

// watchLoop polls watched inputs and fires their edge funcs on level
// changes. Transient i2c read errors skip the pin until the next tick.
func (mcp *McpIO) watchLoop() {
	ticker := time.NewTicker(mcpioPollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-mcp.stop:
			return
		case <-ticker.C:
			mcp.mu.Lock()
			watched := mcp.watched
			mcp.mu.Unlock()
			for _, in := range watched {
				level, err := in.device.DigitalRead(in.pin)
				if err != nil {
					continue
				}
				if level != in.last {
					in.last = level
					in.edge(uint16(in.pin))
				}
			}
		}
	}
}

func (mcp *McpIO) GetInput(id uint16) (input DigitalInput, err error) {
	for _, in := range mcp.inputs {
		if in.pin == uint8(id) {
			input = in
			return
		}
	}

	err = fmt.Errorf("input (id: %d) not found", id)
	return
}

func (mcp *McpIO) GetOutput(id uint16) (output DigitalOutput, err error) {
	for _, out := range mcp.outputs {
		if out.pin == uint8(id) {
			output = out
			return
		}
	}

	err = fmt.Errorf("output (id: %d) not found", id)
	return
}

func (mcp *McpIO) Close() error {
	if !mcp.isReady {
		return nil
	}
	mcp.isReady = false

	close(mcp.stop)

	for _, output := range mcp.outputs {
		output.Set(false)
	}
	return mcp.device.Close()
}

func (mcp *McpIO) GetAllIo() (inputs []uint16, outputs []uint16) {
	for _, input := range mcp.inputs {
		inputs = append(inputs, uint16(input.pin))
	}

	for _, output := range mcp.outputs {
		outputs = append(outputs, uint16(output.pin))
	}

	return
}
