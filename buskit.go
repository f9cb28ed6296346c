package buskit

import (
	"context"
	"encoding/json"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/charmbracelet/log"

	dnslog "github.com/brutella/dnssd/log"
	"github.com/brutella/hap"
	"github.com/brutella/hap/accessory"
	hklog "github.com/brutella/hap/log"
	"github.com/pkg/errors"

	"github.com/hubertat/buskit/drivers"
	"github.com/hubertat/buskit/mqtt"
)

const defaultHomeKitDirectory = "./homekit"
const homeKitBridgeName = "buskit"
const homeKitBridgeAuthor = "github.com/hubertat"
const defaultMqttTopicPrefix = "buskit/sensors"

type BusKit struct {
	Name string

	TemperatureSensors []*TemperatureSensor
	HumiditySensors    []*HumiditySensor
	PressureSensors    []*PressureSensor

	HkPin       string
	HkDirectory string
	HkAddress   string
	HkDebug     bool

	MqttBroker      string
	MqttTopicPrefix string

	StatusAddr string

	Bus    *drivers.BusSensors
	Mock   *drivers.MockSensors
	Influx *drivers.InfluxExport

	sensorDrivers map[string]drivers.SensorDriver
	mqttClient    *mqtt.MqttClient
	ticker        *time.Ticker
}

// SensorThing is one configured sensor: it carries a value fed by its
// driver and knows how to refresh whatever surfaces expose it.
type SensorThing interface {
	drivers.Sensor

	Init(driver drivers.SensorDriver) error
	GetDriverName() string
	GetKind() string
	Sync() error
}

type HkThing interface {
	GetHk() *accessory.A
	GetUniqueId() uint64
	Sync() error
}

func (bk *BusKit) getSensorThings() (things []SensorThing) {
	for _, th := range bk.TemperatureSensors {
		things = append(things, th)
	}
	for _, th := range bk.HumiditySensors {
		things = append(things, th)
	}
	for _, th := range bk.PressureSensors {
		things = append(things, th)
	}

	return
}

func (bk *BusKit) getHkThings() (things []HkThing) {
	for _, th := range bk.TemperatureSensors {
		things = append(things, th)
	}
	for _, th := range bk.HumiditySensors {
		things = append(things, th)
	}

	return
}

func (bk *BusKit) getSensorsFor(driverName string) (sensors []drivers.Sensor) {
	for _, thing := range bk.getSensorThings() {
		if thing.GetDriverName() == driverName {
			sensors = append(sensors, thing)
		}
	}

	return
}

func (bk *BusKit) InitDrivers() error {
	bk.sensorDrivers = make(map[string]drivers.SensorDriver)

	if bk.Bus != nil {
		bk.sensorDrivers[bk.Bus.Name()] = bk.Bus
	}

	if bk.Mock != nil {
		bk.sensorDrivers[bk.Mock.Name()] = bk.Mock
	}

	for name, driver := range bk.sensorDrivers {
		err := driver.Setup(bk.getSensorsFor(name))
		if err != nil {
			return errors.Wrapf(err, "failed to setup %s driver", name)
		}
	}

	for _, thing := range bk.getSensorThings() {
		driver, driverFound := bk.sensorDrivers[thing.GetDriverName()]
		if !driverFound {
			return errors.Errorf("driver %s not set up", thing.GetDriverName())
		}
		err := thing.Init(driver)
		if err != nil {
			return errors.Wrapf(err, "failed to init sensor %s", thing.GetId())
		}
	}

	if bk.Influx != nil {
		err := bk.Influx.Setup()
		if err != nil {
			return errors.Wrap(err, "failed to setup influx export")
		}
	}

	return nil
}

func (bk *BusKit) InitMqtt(ctx context.Context) (err error) {
	if len(bk.MqttBroker) == 0 {
		err = errors.New("mqtt broker not set")
		return
	}

	mc, err := mqtt.NewMqttClient(bk.MqttBroker, bk.Name)
	if err != nil {
		err = errors.Wrap(err, "failed to create mqtt client")
		return
	}

	bk.mqttClient = mc

	err = mc.Connect(ctx)
	if err != nil {
		err = errors.Wrap(err, "failed to connect to mqtt broker")
	}

	return
}

func (bk *BusKit) GetHkAccessories(firmwareVersion string) (acc []*accessory.A) {
	acc = []*accessory.A{}

	for _, th := range bk.getHkThings() {
		accessory := th.GetHk()
		if accessory != nil {
			if accessory.Info != nil && accessory.Info.FirmwareRevision != nil {
				accessory.Info.FirmwareRevision.SetValue(firmwareVersion)
			}
			accessory.Id = th.GetUniqueId()
			acc = append(acc, accessory)
		}
	}

	return
}

type sensorReading struct {
	Value float64   `json:"value"`
	Kind  string    `json:"kind"`
	Time  time.Time `json:"time"`
}

func (bk *BusKit) publishMqtt() {
	if bk.mqttClient == nil {
		return
	}

	prefix := bk.MqttTopicPrefix
	if len(prefix) == 0 {
		prefix = defaultMqttTopicPrefix
	}

	for _, thing := range bk.getSensorThings() {
		value, err := thing.GetValue()
		if err != nil {
			continue
		}

		payload, err := json.Marshal(sensorReading{Value: value, Kind: thing.GetKind(), Time: time.Now()})
		if err != nil {
			continue
		}

		err = bk.mqttClient.Publish(prefix+"/"+thing.GetId(), payload)
		if err != nil {
			log.Printf("failed to publish sensor %s over mqtt:\n%v", thing.GetId(), err)
		}
	}
}

func (bk *BusKit) publishInflux() {
	if bk.Influx == nil || !bk.Influx.IsReady() {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	sensors := []drivers.Sensor{}
	for _, thing := range bk.getSensorThings() {
		sensors = append(sensors, thing)
	}

	err := bk.Influx.Publish(ctx, sensors)
	if err != nil {
		log.Printf("Received error(s) from influx publish:\n%v", err)
	}
}

func (bk *BusKit) StartTicker(interval time.Duration) {

	bk.ticker = time.NewTicker(interval)

	for {
		select {
		case <-bk.ticker.C:
			{
				for name, driver := range bk.sensorDrivers {
					err := driver.Sync()
					if err != nil {
						log.Printf("Received error(s) from syncing %s driver:\n%v", name, err)
					}
				}
				for _, thing := range bk.getSensorThings() {
					_ = thing.Sync()
				}

				bk.publishMqtt()
				bk.publishInflux()
			}
		}
	}
}

func (bk *BusKit) Close() (err error) {
	if bk.ticker != nil {
		bk.ticker.Stop()
	}

	if bk.mqttClient != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		disconnectErr := bk.mqttClient.Disconnect(ctx)
		cancel()
		if disconnectErr != nil {
			err = disconnectErr
		}
	}

	if bk.Influx != nil {
		closeErr := bk.Influx.Close()
		if closeErr != nil {
			err = closeErr
		}
	}

	for _, driver := range bk.sensorDrivers {
		if driver != nil {
			closeErr := driver.Close()
			if closeErr != nil {
				err = closeErr
			}
		}
	}

	return
}

func (bk *BusKit) StartHomeKit(ctx context.Context, firmwareVersion string) error {
	hkName := bk.Name
	if len(hkName) < 1 {
		hkName = homeKitBridgeName
	}
	bridge := accessory.NewBridge(accessory.Info{
		Name:         hkName,
		Manufacturer: homeKitBridgeAuthor,
		Firmware:     firmwareVersion,
	})

	var store hap.Store
	if len(bk.HkDirectory) > 1 {
		store = hap.NewFsStore(bk.HkDirectory)
	} else {
		store = hap.NewFsStore(defaultHomeKitDirectory)
	}
	hkServer, err := hap.NewServer(store, bridge.A, bk.GetHkAccessories(firmwareVersion)...)
	if err != nil {
		return errors.Wrap(err, "failed to create HomeKit server")
	}
	hkServer.Pin = bk.HkPin
	if len(bk.HkAddress) > 0 {
		hkServer.Addr = bk.HkAddress
	}

	if bk.HkDebug {
		hklog.Debug.Enable()
		dnslog.Debug.Enable()
	}

	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt)
	signal.Notify(c, syscall.SIGTERM)

	ctx, cancel := context.WithCancel(ctx)
	go func() {
		<-c
		// Stop delivering signals.
		signal.Stop(c)
		// Cancel the context to stop the server.
		cancel()
	}()

	return hkServer.ListenAndServe(ctx)
}
