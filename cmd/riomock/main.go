// riomock runs the full unit on the in-memory mock driver, for development
// without hardware. Output state changes land on stdout, the configuration
// console runs on stdin/stdout, and a Modbus master can connect to the
// usual register map. A background script toggles inputs and presses the
// enable button so the whole pipeline can be watched live.
package main

import (
	"bufio"
	"context"
	"flag"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/charmbracelet/log"

	"github.com/hubertat/riokit"
	"github.com/hubertat/riokit/console"
	"github.com/hubertat/riokit/drivers"
	"github.com/hubertat/riokit/modbusd"
	"github.com/hubertat/riokit/wifi"
)

var (
	Version string
	Build   string

	modbusAddr = flag.String("modbus", "localhost:1502", "modbus tcp listen address")
	wifiIface  = flag.String("wifi", "wlan0", "wireless interface for wifi-status")
	simulate   = flag.Bool("simulate", true, "script input edges and button presses")
)

func main() {
	flag.Parse()

	log.Info("riomock starting", "version", Version, "build", Build)
	log.Info("mock instance for development purposes, no hardware access")

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	mock := &drivers.MockIoDriver{}
	rk := &riokit.RioKit{
		Name:        "riomock",
		Channels:    mockChannels(),
		InputDriver: "mock",
		Bank0Driver: "mock",
		Bank1Driver: "mock",
		Button:      riokit.ControlPin{Pin: 70, Driver: "mock"},
		StatusLed:   riokit.ControlPin{Pin: 71, Driver: "mock"},
		FakeDriver:  mock,
	}

	log.Info("will init riokit drivers...")
	err := rk.InitDrivers(ctx)
	defer rk.Close()
	if err != nil {
		panic(err)
	}

	log.Info("will init riokit ios...")
	err = rk.InitIos()
	if err != nil {
		panic(err)
	}

	mock.MonitorStateChanges(os.Stdout)
	rk.PrintIoStatus(os.Stdout)

	err = rk.Start(ctx)
	if err != nil {
		panic(err)
	}

	model := modbusd.NewModel(rk.Registers(), rk.Interlock().CoilsWritten)
	mbServer := modbusd.NewServer(*modbusAddr, model, log.Default().WithPrefix("modbus"))
	go func() {
		err := mbServer.Run(ctx)
		if err != nil && ctx.Err() == nil {
			log.Error("modbus server stopped", "err", err)
		}
	}()

	creds := &wifi.SupplicantStore{Path: filepath.Join(os.TempDir(), "riomock_wpa_supplicant.conf")}
	status := &wifi.InterfaceStatus{Interface: *wifiIface, Creds: creds}
	restart := func() {
		log.Warn("restart requested from console, mock exits instead")
		cancel()
	}

	port := newStdioPort()
	consoleLog := log.Default().WithPrefix("console")
	dispatcher := console.NewDispatcher(port, status, creds, restart, consoleLog)
	cons := console.New(port, dispatcher, consoleLog)
	go func() {
		err := cons.Run(ctx)
		if err != nil && ctx.Err() == nil {
			log.Error("console stopped", "err", err)
		}
	}()

	if *simulate {
		go simulateActivity(ctx, rk, mock)
	}

	log.Info("riomock running, console on stdin, ctrl-c to stop")
	<-ctx.Done()
	log.Info("riomock stopping")
}

func mockChannels() []riokit.Channel {
	channels := make([]riokit.Channel, riokit.NumChannels)
	for no := range channels {
		channels[no] = riokit.Channel{
			Input: uint16(10 + no),
			Out0:  uint16(30 + no),
			Out1:  uint16(50 + no),
		}
	}
	return channels
}

// simulateActivity walks an edge over the inputs and presses the enable
// button now and then, each press a burst of bouncy edges for the
// debouncer to collapse.
func simulateActivity(ctx context.Context, rk *riokit.RioKit, mock *drivers.MockIoDriver) {
	ticker := time.NewTicker(2 * time.Second)
	defer ticker.Stop()

	level := false
	step := 0
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			step++
			if step%8 == 0 {
				log.Info("simulating a bouncy button press")
				for i := 0; i < 5; i++ {
					mock.FireEdge(70)
				}
				continue
			}

			pin := uint16(10 + step%riokit.NumChannels)
			level = !level
			mock.SetInput(pin, level)
			mock.FireEdge(pin)
		}
	}
}

// stdioPort adapts stdin/stdout to the console port contract: reads time
// out by returning zero bytes, writes go straight to stdout.
type stdioPort struct {
	in      chan byte
	timeout time.Duration
}

func newStdioPort() *stdioPort {
	port := &stdioPort{in: make(chan byte, 64), timeout: time.Second}
	go func() {
		reader := bufio.NewReader(os.Stdin)
		for {
			b, err := reader.ReadByte()
			if err != nil {
				close(port.in)
				return
			}
			port.in <- b
		}
	}()
	return port
}

func (sp *stdioPort) Read(p []byte) (int, error) {
	if len(p) == 0 {
		return 0, nil
	}

	timer := time.NewTimer(sp.timeout)
	defer timer.Stop()
	select {
	case b, ok := <-sp.in:
		if !ok {
			return 0, io.EOF
		}
		p[0] = b
		return 1, nil
	case <-timer.C:
		return 0, nil
	}
}

func (sp *stdioPort) Write(p []byte) (int, error) {
	return os.Stdout.Write(p)
}

func (sp *stdioPort) SetReadTimeout(timeout time.Duration) error {
	sp.timeout = timeout
	return nil
}
