package drivers

import (
	"context"
	"log"
	"time"

	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	"github.com/influxdata/influxdb-client-go/v2/api"
	"github.com/pkg/errors"
)

const defaultInfluxMeasurement = "sensors"

// InfluxExport pushes every synced sensor value to an InfluxDB bucket, one
// point per sensor with its tags attached.
type InfluxExport struct {
	Host         string
	Organization string
	Bucket       string
	Measurement  string
	Token        string

	Debug bool

	client influxdb2.Client
	write  api.WriteAPIBlocking
	ready  bool
}

func (ie *InfluxExport) Setup() error {
	if len(ie.Host) == 0 || len(ie.Bucket) == 0 {
		return errors.New("influx export needs at least Host and Bucket set")
	}
	if len(ie.Measurement) == 0 {
		ie.Measurement = defaultInfluxMeasurement
	}

	ie.client = influxdb2.NewClient(ie.Host, ie.Token)
	ie.write = ie.client.WriteAPIBlocking(ie.Organization, ie.Bucket)
	ie.ready = true

	return nil
}

func (ie *InfluxExport) IsReady() bool {
	return ie.ready
}

// Publish writes one point per sensor that currently holds a value.
// Sensors that never synced or hold stale data are skipped, not failed.
func (ie *InfluxExport) Publish(ctx context.Context, sensors []Sensor) error {
	if !ie.ready {
		return errors.New("influx export not set up")
	}

	for _, sensor := range sensors {
		value, err := sensor.GetValue()
		if err != nil {
			if ie.Debug {
				log.Println("influx export skipping sensor: ", err)
			}
			continue
		}

		point := influxdb2.NewPoint(
			ie.Measurement,
			sensor.GetTags(),
			map[string]interface{}{"value": value},
			time.Now(),
		)

		if err := ie.write.WritePoint(ctx, point); err != nil {
			return errors.Wrapf(err, "failed to write point for sensor %s", sensor.GetId())
		}
	}

	return nil
}

func (ie *InfluxExport) Close() error {
	ie.ready = false
	if ie.client != nil {
		ie.client.Close()
	}
	return nil
}
