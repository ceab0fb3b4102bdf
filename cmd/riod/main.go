package main

import (
	"context"
	"encoding/json"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/charmbracelet/log"
	"github.com/hubertat/servicemaker"

	"github.com/hubertat/riokit"
	"github.com/hubertat/riokit/console"
	"github.com/hubertat/riokit/modbusd"
	"github.com/hubertat/riokit/mqtt"
	"github.com/hubertat/riokit/wifi"
)

const restartGracePeriod = time.Second
const droppedAnnounceInterval = time.Minute

var (
	Version string
	Build   string

	configPath  = flag.String("config", "config.json", "path of the configuration file")
	flagInstall = flag.Bool("install", false, "Install service in os")
	logLevel    = flag.String("log", "info", "log level (debug, info, warn, error)")

	riodService = servicemaker.ServiceMaker{
		User:               "riokit",
		UserGroups:         []string{"gpio", "i2c", "dialout"},
		ServicePath:        "/etc/systemd/system/riod.service",
		ServiceDescription: "riokit remote io unit: digital io exposed as a Modbus TCP slave. github.com/hubertat/riokit",
		ExecDir:            "/srv/riod",
		ExecName:           "riod",
	}
)

func main() {
	flag.Parse()

	level, err := log.ParseLevel(*logLevel)
	if err == nil {
		log.SetLevel(level)
	}
	log.Info("riod starting", "version", Version, "build", Build)

	if *flagInstall {
		err := riodService.InstallService()
		if err != nil {
			log.Fatal("service install failed", "err", err)
		}
		log.Info("service installed!")
		return
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	rk := &riokit.RioKit{}
	raw, err := os.ReadFile(*configPath)
	if err != nil {
		log.Fatal("can't read config file, will terminate", "path", *configPath, "err", err)
	}
	err = json.Unmarshal(raw, rk)
	if err != nil {
		log.Fatal("failed unmarshalling json config", "err", err)
	}

	log.Info("will init riokit drivers...")
	err = rk.InitDrivers(ctx)
	defer rk.Close()
	if err != nil {
		panic(err)
	}

	log.Info("will init riokit ios...")
	err = rk.InitIos()
	if err != nil {
		panic(err)
	}
	rk.PrintIoStatus(os.Stdout)

	creds := &wifi.SupplicantStore{Path: rk.SupplicantPath}
	status := &wifi.InterfaceStatus{Interface: rk.WifiInterface, Creds: creds}

	if rk.Influx != nil {
		err = rk.Influx.Setup(rk.Name)
		if err != nil {
			log.Fatal("influx recorder init failed", "err", err)
		}
		defer rk.Influx.Close()
		rk.ObserveLevels(rk.Influx)
		rk.ObserveEnable(rk.Influx)
	}

	if len(rk.MqttBroker) > 0 {
		announcer, err := mqtt.NewAnnouncer(rk.MqttBroker, rk.Name)
		if err != nil {
			log.Fatal("mqtt announcer init failed", "err", err)
		}
		rk.ObserveLevels(announcer)
		rk.ObserveEnable(announcer)
		go func() {
			err := announcer.Run(ctx)
			if err != nil && ctx.Err() == nil {
				log.Error("mqtt announcer stopped", "err", err)
			}
		}()
		go announceDropped(ctx, rk, announcer)
	}

	err = rk.Start(ctx)
	if err != nil {
		panic(err)
	}

	model := modbusd.NewModel(rk.Registers(), rk.Interlock().CoilsWritten)
	mbServer := modbusd.NewServer(rk.ModbusAddress, model, log.Default().WithPrefix("modbus"))
	go func() {
		err := mbServer.Run(ctx)
		if err != nil && ctx.Err() == nil {
			log.Fatal("modbus server stopped", "err", err)
		}
	}()

	restart := func() {
		log.Warn("restart requested from console, going down")
		go func() {
			time.Sleep(restartGracePeriod)
			cancel()
		}()
	}

	if len(rk.ConsoleDevice) > 0 {
		port, err := console.OpenPort(rk.ConsoleDevice, rk.ConsoleBaud)
		if err != nil {
			log.Fatal("failed to open console port", "err", err)
		}
		consoleLog := log.Default().WithPrefix("console")
		dispatcher := console.NewDispatcher(port, status, creds, restart, consoleLog)
		cons := console.New(port, dispatcher, consoleLog)
		go func() {
			err := cons.Run(ctx)
			if err != nil && ctx.Err() == nil {
				log.Error("console stopped", "err", err)
			}
		}()
	}

	if len(rk.DiagAddress) > 0 {
		diagErr := rk.StartDiag(rk.DiagAddress)
		go func() {
			select {
			case err := <-diagErr:
				if ctx.Err() == nil {
					log.Error("diag server stopped", "err", err)
				}
			case <-ctx.Done():
			}
		}()
	}

	if len(rk.WifiInterface) > 0 {
		go rk.NetworkAlert(ctx, status)
	}

	<-ctx.Done()
	log.Info("riod stopping")
}

// announceDropped surfaces the dropped edge event counter over mqtt
// whenever it grew.
func announceDropped(ctx context.Context, rk *riokit.RioKit, announcer *mqtt.Announcer) {
	ticker := time.NewTicker(droppedAnnounceInterval)
	defer ticker.Stop()

	var last uint64
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if total := rk.DroppedEvents(); total != last {
				announcer.AnnounceDropped(total)
				last = total
			}
		}
	}
}
