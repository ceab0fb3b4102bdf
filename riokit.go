package riokit

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"sync/atomic"

	"github.com/charmbracelet/log"
	"github.com/pkg/errors"

	"github.com/hubertat/riokit/drivers"
)

// LevelObserver receives digital input level changes after they are
// stored, on the io task goroutine.
type LevelObserver interface {
	LevelChanged(channel int, level bool)
}

// EnableObserver receives output enable transitions, on whichever
// goroutine triggered them.
type EnableObserver interface {
	EnableChanged(enabled bool)
}

// RioKit is the remote io unit: ten digital input channels mirrored to
// discrete inputs, two banks of ten outputs driven from coils behind an
// output enable interlock. The struct doubles as the json config.
type RioKit struct {
	Name string

	Channels    []Channel
	InputDriver string
	Bank0Driver string
	Bank1Driver string
	Button      ControlPin
	StatusLed   ControlPin

	ModbusAddress  string
	ConsoleDevice  string
	ConsoleBaud    int
	DiagAddress    string
	MqttBroker     string
	WifiInterface  string
	SupplicantPath string

	Influx *InfluxRecorder

	Gpio       *drivers.GpIO
	Gpiocdev   *drivers.CdevIO
	Mcp23017s  []*drivers.McpIO
	FakeDriver *drivers.MockIoDriver

	ioDrivers map[string]drivers.IoDriver

	regs      *Registers
	interlock *Interlock
	debounce  *Debouncer

	inputs    []drivers.DigitalInput
	button    drivers.DigitalInput
	statusLed drivers.DigitalOutput

	events      chan inputEvent
	dropped     atomic.Uint64
	droppedSeen uint64

	levelObservers []LevelObserver

	diagServer *http.Server
	logger     *log.Logger
}

// getInPins collects the input pins the named driver must provide: channel
// inputs plus the enable button.
func (rk *RioKit) getInPins(driverName string) (pins []uint16) {
	if strings.EqualFold(rk.InputDriver, driverName) {
		for _, channel := range rk.Channels {
			pins = append(pins, channel.Input)
		}
	}
	if strings.EqualFold(rk.Button.Driver, driverName) {
		pins = append(pins, rk.Button.Pin)
	}

	return
}

// getOutPins collects the output pins the named driver must provide: bank
// outputs plus the status led.
func (rk *RioKit) getOutPins(driverName string) (pins []uint16) {
	if strings.EqualFold(rk.Bank0Driver, driverName) {
		for _, channel := range rk.Channels {
			pins = append(pins, channel.Out0)
		}
	}
	if strings.EqualFold(rk.Bank1Driver, driverName) {
		for _, channel := range rk.Channels {
			pins = append(pins, channel.Out1)
		}
	}
	if strings.EqualFold(rk.StatusLed.Driver, driverName) {
		pins = append(pins, rk.StatusLed.Pin)
	}

	return
}

func checkPins(driverName string, inputs []uint16, outputs []uint16) error {
	seen := make(map[uint16]bool)
	for _, pin := range inputs {
		if seen[pin] {
			return errors.Errorf("pin %d assigned twice on driver %s", pin, driverName)
		}
		seen[pin] = true
	}
	for _, pin := range outputs {
		if seen[pin] {
			return errors.Errorf("pin %d assigned twice on driver %s", pin, driverName)
		}
		seen[pin] = true
	}

	return nil
}

func (rk *RioKit) InitDrivers(ctx context.Context) error {
	if rk.logger == nil {
		prefix := rk.Name
		if len(prefix) == 0 {
			prefix = "riokit"
		}
		rk.logger = log.NewWithOptions(os.Stderr, log.Options{Prefix: prefix, Level: log.GetLevel()})
	}

	if len(rk.Channels) != NumChannels {
		return errors.Errorf("channel table must hold exactly %d entries, got %d", NumChannels, len(rk.Channels))
	}

	rk.ioDrivers = make(map[string]drivers.IoDriver)

	if rk.Gpio != nil {
		rk.ioDrivers[rk.Gpio.String()] = rk.Gpio
	}

	if rk.Gpiocdev != nil {
		rk.ioDrivers[rk.Gpiocdev.String()] = rk.Gpiocdev
	}

	for _, mcp := range rk.Mcp23017s {
		if mcp == nil {
			continue
		}
		_, taken := rk.ioDrivers[mcp.String()]
		if taken {
			return errors.Errorf("duplicate driver name %s, give every mcp23017 a distinct Name", mcp.String())
		}
		rk.ioDrivers[mcp.String()] = mcp
	}

	if rk.FakeDriver != nil {
		rk.ioDrivers[rk.FakeDriver.String()] = rk.FakeDriver
	}

	for _, driver := range rk.ioDrivers {
		inPins := rk.getInPins(driver.String())
		outPins := rk.getOutPins(driver.String())
		err := checkPins(driver.String(), inPins, outPins)
		if err != nil {
			return err
		}
		err = driver.Setup(ctx, inPins, outPins)
		if err != nil {
			return errors.Wrapf(err, "failed to setup %s driver", driver)
		}
	}

	for _, driverName := range []string{rk.InputDriver, rk.Bank0Driver, rk.Bank1Driver, rk.Button.Driver, rk.StatusLed.Driver} {
		_, driverFound := rk.ioDrivers[driverName]
		if !driverFound {
			return errors.Errorf("driver %s not set up", driverName)
		}
	}

	return nil
}

// InitIos resolves every channel pin against its driver, builds the
// register store and interlock and probes initial input levels. Outputs
// start disabled.
func (rk *RioKit) InitIos() error {
	rk.regs = &Registers{}
	rk.events = make(chan inputEvent, eventQueueSize)

	inputDriver := rk.ioDrivers[rk.InputDriver]
	bank0Driver := rk.ioDrivers[rk.Bank0Driver]
	bank1Driver := rk.ioDrivers[rk.Bank1Driver]

	var banks [2][]drivers.DigitalOutput
	for no, channel := range rk.Channels {
		input, err := inputDriver.GetInput(channel.Input)
		if err != nil {
			return errors.Wrapf(err, "failed to resolve input of channel %d", no)
		}
		rk.inputs = append(rk.inputs, input)

		out0, err := bank0Driver.GetOutput(channel.Out0)
		if err != nil {
			return errors.Wrapf(err, "failed to resolve bank 0 output of channel %d", no)
		}
		banks[0] = append(banks[0], out0)

		out1, err := bank1Driver.GetOutput(channel.Out1)
		if err != nil {
			return errors.Wrapf(err, "failed to resolve bank 1 output of channel %d", no)
		}
		banks[1] = append(banks[1], out1)
	}

	button, err := rk.ioDrivers[rk.Button.Driver].GetInput(rk.Button.Pin)
	if err != nil {
		return errors.Wrap(err, "failed to resolve enable button input")
	}
	rk.button = button

	led, err := rk.ioDrivers[rk.StatusLed.Driver].GetOutput(rk.StatusLed.Pin)
	if err != nil {
		return errors.Wrap(err, "failed to resolve status led output")
	}
	rk.statusLed = led

	rk.interlock = NewInterlock(rk.regs, banks, led, rk.logger)
	rk.debounce = NewDebouncer(debounceWindow, rk.interlock.ButtonToggle)

	err = rk.probeInputs()
	if err != nil {
		return errors.Wrap(err, "failed to probe initial input levels")
	}

	return nil
}

// Start hooks the edge sources and runs the io task. Call after
// InitDrivers and InitIos succeeded and all observers are registered.
func (rk *RioKit) Start(ctx context.Context) error {
	for no, input := range rk.inputs {
		err := input.Watch(rk.queueInputEvent)
		if err != nil {
			return errors.Wrapf(err, "failed to watch input of channel %d", no)
		}
	}

	err := rk.button.Watch(func(uint16) { rk.debounce.Trigger() })
	if err != nil {
		return errors.Wrap(err, "failed to watch enable button")
	}

	go rk.ioTask(ctx)

	return nil
}

// ObserveLevels registers an input level observer. Register before Start.
func (rk *RioKit) ObserveLevels(observer LevelObserver) {
	rk.levelObservers = append(rk.levelObservers, observer)
}

// ObserveEnable registers an enable transition observer. Register before
// Start.
func (rk *RioKit) ObserveEnable(observer EnableObserver) {
	rk.interlock.Observe(observer)
}

func (rk *RioKit) Registers() *Registers {
	return rk.regs
}

func (rk *RioKit) Interlock() *Interlock {
	return rk.interlock
}

// DroppedEvents returns the total count of edge events dropped on a full
// queue since boot.
func (rk *RioKit) DroppedEvents() uint64 {
	return rk.dropped.Load()
}

func (rk *RioKit) Close() (err error) {
	if rk.debounce != nil {
		rk.debounce.Stop()
	}

	if rk.diagServer != nil {
		err = rk.diagServer.Close()
	}

	for _, driver := range rk.ioDrivers {
		if driver != nil {
			closeErr := driver.Close()
			if closeErr != nil {
				if err == nil {
					err = closeErr
				} else {
					err = errors.Wrap(closeErr, err.Error())
				}
			}
		}
	}

	return
}

func (rk *RioKit) PrintIoStatus(writer io.Writer) {
	fmt.Fprintln(writer)
	fmt.Fprintln(writer, "=== active io drivers ===")
	for driverName, driver := range rk.ioDrivers {
		fmt.Fprintln(writer, "________")
		fmt.Fprintf(writer, "| driver: %s\n", driverName)
		inputs, outputs := driver.GetAllIo()
		fmt.Fprintf(writer, "| in pins: ")
		for _, inpin := range inputs {
			fmt.Fprintf(writer, "%d, ", inpin)
		}
		fmt.Fprintf(writer, "\n| out pins: ")
		for _, outpin := range outputs {
			fmt.Fprintf(writer, "%d, ", outpin)
		}
		fmt.Fprintln(writer)
		fmt.Fprintln(writer, "--------")
	}
	fmt.Fprintln(writer, "-----------------------------")
	fmt.Fprintln(writer)
}
