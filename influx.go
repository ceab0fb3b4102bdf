package riokit

import (
	"os"
	"strconv"
	"time"

	"github.com/charmbracelet/log"
	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	"github.com/influxdata/influxdb-client-go/v2/api"
	"github.com/pkg/errors"
)

const defaultInfluxMeasurement = "io_events"

// InfluxRecorder writes input edges and enable transitions as points to an
// influxdb bucket. Points go through the client's buffered write api, so
// recording never blocks the io task.
type InfluxRecorder struct {
	Host         string
	Organization string
	Bucket       string
	Token        string
	Measurement  string

	unit   string
	client influxdb2.Client
	write  api.WriteAPI
	logger *log.Logger
}

func (ir *InfluxRecorder) Setup(unit string) error {
	if len(ir.Host) == 0 || len(ir.Bucket) == 0 {
		return errors.New("influx recorder requires Host and Bucket")
	}
	if len(ir.Measurement) == 0 {
		ir.Measurement = defaultInfluxMeasurement
	}

	ir.unit = unit
	ir.logger = log.NewWithOptions(os.Stderr, log.Options{Prefix: "influx", Level: log.GetLevel()})
	ir.client = influxdb2.NewClient(ir.Host, ir.Token)
	ir.write = ir.client.WriteAPI(ir.Organization, ir.Bucket)

	go func() {
		for err := range ir.write.Errors() {
			ir.logger.Error("failed to write point", "err", err)
		}
	}()

	return nil
}

func (ir *InfluxRecorder) LevelChanged(channel int, level bool) {
	point := influxdb2.NewPoint(ir.Measurement,
		map[string]string{"unit": ir.unit, "kind": "input", "channel": strconv.Itoa(channel)},
		map[string]interface{}{"level": level},
		time.Now())
	ir.write.WritePoint(point)
}

func (ir *InfluxRecorder) EnableChanged(enabled bool) {
	point := influxdb2.NewPoint(ir.Measurement,
		map[string]string{"unit": ir.unit, "kind": "output_enable"},
		map[string]interface{}{"enabled": enabled},
		time.Now())
	ir.write.WritePoint(point)
}

func (ir *InfluxRecorder) Close() {
	if ir.client != nil {
		ir.write.Flush()
		ir.client.Close()
	}
}
