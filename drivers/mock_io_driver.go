package drivers

import (
	"context"
	"fmt"
	"io"
)

const mockDriverName = "mock"

type MockOutput struct {
	state            bool
	pin              uint16
	writeTo          io.Writer
	writeStateChange bool
}

func (mo *MockOutput) GetState() (bool, error) {
	return mo.state, nil
}

func (mo *MockOutput) Set(state bool) error {
	if mo.writeStateChange && state != mo.state {
		fmt.Fprintf(mo.writeTo, "[pin %d] state changed to %v\n", mo.pin, state)
	}
	mo.state = state
	return nil
}

type MockInput struct {
	State bool
	pin   uint16

	edge EdgeFunc
}

func (mi *MockInput) GetState() (bool, error) {
	return mi.State, nil
}

func (mi *MockInput) Watch(fn EdgeFunc) error {
	if fn == nil {
		return fmt.Errorf("nil edge func for mock pin %d", mi.pin)
	}
	mi.edge = fn
	return nil
}

// MockIoDriver keeps all io in memory. Tests and the dry-run mode use it
// to exercise the full pipeline without hardware: SetInput changes a
// level, FireEdge simulates the edge event a real driver would deliver.
type MockIoDriver struct {
	inputs  []*MockInput
	outputs []*MockOutput
	ready   bool
}

func (md *MockIoDriver) Setup(ctx context.Context, inputs []uint16, outputs []uint16) error {
	for _, inPin := range inputs {
		md.inputs = append(md.inputs, &MockInput{pin: inPin})
	}
	for _, outPin := range outputs {
		md.outputs = append(md.outputs, &MockOutput{pin: outPin})
	}
	md.ready = true
	return nil
}

func (md *MockIoDriver) Close() error {
	return nil
}

func (md *MockIoDriver) String() string {
	return mockDriverName
}

func (md *MockIoDriver) IsReady() bool {
	return md.ready
}

func (md *MockIoDriver) GetInput(pin uint16) (DigitalInput, error) {
	for _, input := range md.inputs {
		if pin == input.pin {
			return input, nil
		}
	}
	return nil, fmt.Errorf("mock input %d not found", pin)
}

func (md *MockIoDriver) GetOutput(pin uint16) (DigitalOutput, error) {
	for _, output := range md.outputs {
		if pin == output.pin {
			return output, nil
		}
	}
	return nil, fmt.Errorf("mock output %d not found", pin)
}

func (md *MockIoDriver) GetAllIo() (inputs []uint16, outputs []uint16) {
	for _, input := range md.inputs {
		inputs = append(inputs, input.pin)
	}
	for _, output := range md.outputs {
		outputs = append(outputs, output.pin)
	}
	return
}

// SetInput sets the level of a mock input without firing an edge event,
// so tests control level and event timing independently.
func (md *MockIoDriver) SetInput(pin uint16, state bool) error {
	for _, input := range md.inputs {
		if pin == input.pin {
			input.State = state
			return nil
		}
	}
	return fmt.Errorf("mock input %d not found", pin)
}

// FireEdge delivers the edge event a level change on a real line would
// produce.
func (md *MockIoDriver) FireEdge(pin uint16) error {
	for _, input := range md.inputs {
		if pin == input.pin {
			if input.edge == nil {
				return fmt.Errorf("mock input %d is not watched", pin)
			}
			input.edge(pin)
			return nil
		}
	}
	return fmt.Errorf("mock input %d not found", pin)
}

func (md *MockIoDriver) MonitorStateChanges(writer io.Writer) {
	for _, out := range md.outputs {
		out.writeTo = writer
		out.writeStateChange = true
	}
}
