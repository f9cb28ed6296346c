package drivers

import (
	"math"

	"github.com/pkg/errors"

	"github.com/hubertat/buskit/i2cbus"
	"github.com/hubertat/buskit/mmio"
	"github.com/hubertat/buskit/muxtree"
	"github.com/hubertat/buskit/spibus"
)

const busSensorDriverName = "busio"

// Measurement is one combined reading from a sensor board: temperature in
// degrees Celsius, pressure in hPa, relative humidity in percent.
type Measurement struct {
	Temperature float64
	Pressure    float64
	Humidity    float64
}

// RegisterBus is what a vendor chip driver gets to talk to its silicon:
// register access on the routed channel plus the delay primitive. These
// three entry points are the only way external drivers touch the bus.
type RegisterBus interface {
	ReadReg(register uint8, buf []byte) error
	WriteReg(register uint8, data []byte) error
	DelayMicroseconds(period uint32)
}

// Chip is the boundary to the vendor sensor driver (compensation math and
// register maps live on the other side of it).
type Chip interface {
	Init(bus RegisterBus) error
	Read(bus RegisterBus) (Measurement, error)
}

// ChipConfig places one sensor chip in the channel tree and names the
// sensors fed from it. Empty ids are simply not fed.
type ChipConfig struct {
	Address uint8
	Channel muxtree.Channel

	TemperatureId string
	PressureId    string
	HumidityId    string
}

type channelSelector interface {
	Select(muxtree.Channel) error
}

// BusSensors serves sensors wired to the multiplexed bus backplane: it owns
// the SPI session, the channel tree and the I2C bus, routes the tree to
// each chip's channel and hands the chip driver a register bus.
type BusSensors struct {
	Device    string
	I2CDevice string

	Mode    uint8
	Bits    uint8
	SpeedHz uint32
	DelayUs uint16

	ChipSelectPin int
	StrobePin     int
	MuxPinA       int
	MuxPinB       int

	ExtenderAddress uint8

	Chips []*ChipConfig

	// NewChip supplies the vendor driver for the chip at a bus address.
	// Set by the application, never from config.
	NewChip func(address uint8) Chip

	session   *spibus.Session
	i2c       *i2cbus.Bus
	selector  channelSelector
	registers func(address uint8) RegisterBus

	sensors      []Sensor
	chips        map[*ChipConfig]Chip
	lastPressure map[*ChipConfig]float64
	ready        bool
}

// deviceRegisters binds the shared I2C bus to one device address.
type deviceRegisters struct {
	bus     *i2cbus.Bus
	address uint8
}

func (dr *deviceRegisters) ReadReg(register uint8, buf []byte) error {
	return dr.bus.ReadReg(dr.address, register, buf)
}

func (dr *deviceRegisters) WriteReg(register uint8, data []byte) error {
	return dr.bus.WriteReg(dr.address, register, data)
}

func (dr *deviceRegisters) DelayMicroseconds(period uint32) {
	i2cbus.DelayMicroseconds(period)
}

func (bs *BusSensors) openHardware() error {
	session, err := spibus.Open(spibus.Config{
		Device:        bs.Device,
		Mode:          bs.Mode,
		Bits:          bs.Bits,
		SpeedHz:       bs.SpeedHz,
		DelayUs:       bs.DelayUs,
		ChipSelectPin: mmio.Pin(bs.ChipSelectPin),
		StrobePin:     mmio.Pin(bs.StrobePin),
	})
	if err != nil {
		return errors.Wrap(err, "failed to open bus session")
	}
	bs.session = session

	tree := muxtree.New(session)
	if bs.MuxPinA != 0 {
		tree.PinA = mmio.Pin(bs.MuxPinA)
	}
	if bs.MuxPinB != 0 {
		tree.PinB = mmio.Pin(bs.MuxPinB)
	}

	if err := tree.ConfigureLocalMuxPins(); err != nil {
		return errors.Wrap(err, "failed to configure demux switching")
	}

	if bs.ExtenderAddress != 0 {
		if err := tree.SetExtenderAddress(bs.ExtenderAddress); err != nil {
			return err
		}
		if err := tree.ResetExtender(); err != nil {
			return err
		}
	}
	bs.selector = tree

	bs.i2c = i2cbus.Open(bs.I2CDevice)
	bs.registers = func(address uint8) RegisterBus {
		return &deviceRegisters{bus: bs.i2c, address: address}
	}

	return nil
}

func (bs *BusSensors) Setup(sensors []Sensor) error {
	if bs.NewChip == nil {
		return errors.New("busio driver needs a chip driver factory (NewChip)")
	}

	if bs.selector == nil {
		if err := bs.openHardware(); err != nil {
			return err
		}
	}

	bs.sensors = sensors
	bs.chips = make(map[*ChipConfig]Chip)
	bs.lastPressure = make(map[*ChipConfig]float64)

	for _, cfg := range bs.Chips {
		if err := bs.selector.Select(cfg.Channel); err != nil {
			return errors.Wrapf(err, "failed to route channel for chip %#02x", cfg.Address)
		}

		chip := bs.NewChip(cfg.Address)
		if err := chip.Init(bs.registers(cfg.Address)); err != nil {
			return errors.Wrapf(err, "failed to init chip %#02x", cfg.Address)
		}
		bs.chips[cfg] = chip
	}

	bs.ready = true
	return nil
}

func (bs *BusSensors) Sync() (err error) {
	if !bs.ready {
		return errors.New("busio driver not set up")
	}

	for _, cfg := range bs.Chips {
		routeErr := bs.selector.Select(cfg.Channel)
		if routeErr != nil {
			err = errors.Wrapf(routeErr, "failed to route channel for chip %#02x", cfg.Address)
			continue
		}

		measurement, readErr := bs.chips[cfg].Read(bs.registers(cfg.Address))
		if readErr != nil {
			err = errors.Wrapf(readErr, "failed to read chip %#02x", cfg.Address)
			continue
		}

		if !plausible(measurement, bs.lastPressure[cfg]) {
			continue
		}
		bs.lastPressure[cfg] = measurement.Pressure

		bs.feed(cfg.TemperatureId, measurement.Temperature)
		bs.feed(cfg.PressureId, measurement.Pressure)
		bs.feed(cfg.HumidityId, measurement.Humidity)
	}

	return
}

func (bs *BusSensors) feed(id string, value float64) {
	if len(id) == 0 {
		return
	}
	for _, sensor := range bs.sensors {
		if sensor.GetId() == id {
			sensor.SetValue(value)
		}
	}
}

// plausible rejects readings a healthy board at habitable altitude cannot
// produce: pressure outside (800, 1000) hPa, a jump of more than a seventh
// of the previous reading, or humidity pegged at 100% alongside such noise.
func plausible(m Measurement, pastPressure float64) bool {
	if m.Pressure <= 800 || m.Pressure >= 1000 {
		return false
	}
	if pastPressure == 0 {
		return true
	}
	return math.Abs(pastPressure-m.Pressure) < pastPressure/7 && m.Humidity != 100
}

func (bs *BusSensors) FindSensor(id string) (Sensor, error) {
	for _, sensor := range bs.sensors {
		if sensor.GetId() == id {
			return sensor, nil
		}
	}
	return nil, errors.Errorf("busio sensor with id = %s not found", id)
}

func (bs *BusSensors) IsReady() bool {
	return bs.ready
}

func (bs *BusSensors) Name() string {
	return busSensorDriverName
}

func (bs *BusSensors) Close() (err error) {
	bs.ready = false

	if bs.i2c != nil {
		if closeErr := bs.i2c.Close(); closeErr != nil {
			err = closeErr
		}
	}
	if bs.session != nil {
		if closeErr := bs.session.Close(); closeErr != nil {
			err = errors.Wrap(closeErr, "failed to close bus session")
		}
	}

	return
}
