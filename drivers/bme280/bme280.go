// Package bme280 plugs the vendor BMx280 driver into the busio chip
// boundary. Compensation math and register maps stay in the vendor code,
// this package only carries register traffic over the routed channel.
package bme280

import (
	"github.com/pkg/errors"
	"periph.io/x/conn/v3/physic"
	"periph.io/x/devices/v3/bmxx80"

	"github.com/hubertat/buskit/drivers"
)

// registerTx adapts a routed register bus to the i2c.Bus shape the vendor
// driver expects. The device address is already bound by the register bus,
// so the addr argument is ignored.
type registerTx struct {
	bus drivers.RegisterBus
}

func (rt *registerTx) String() string {
	return "busio"
}

func (rt *registerTx) SetSpeed(f physic.Frequency) error {
	return nil
}

func (rt *registerTx) Tx(addr uint16, w, r []byte) error {
	if len(w) == 0 {
		return errors.New("empty write in register transaction")
	}
	if len(r) == 0 {
		return rt.bus.WriteReg(w[0], w[1:])
	}
	if len(w) != 1 {
		return errors.Errorf("unsupported write-read transaction with %d write bytes", len(w))
	}
	return rt.bus.ReadReg(w[0], r)
}

type Chip struct {
	address uint8
	dev     *bmxx80.Dev
}

func New(address uint8) drivers.Chip {
	return &Chip{address: address}
}

func (c *Chip) Init(bus drivers.RegisterBus) error {
	dev, err := bmxx80.NewI2C(&registerTx{bus: bus}, uint16(c.address), &bmxx80.DefaultOpts)
	if err != nil {
		return errors.Wrapf(err, "failed to init bme280 chip %#02x", c.address)
	}
	c.dev = dev

	return nil
}

func (c *Chip) Read(bus drivers.RegisterBus) (m drivers.Measurement, err error) {
	if c.dev == nil {
		err = errors.Errorf("bme280 chip %#02x not initialized", c.address)
		return
	}

	var env physic.Env
	senseErr := c.dev.Sense(&env)
	if senseErr != nil {
		err = errors.Wrapf(senseErr, "failed to read bme280 chip %#02x", c.address)
		return
	}

	m.Temperature = env.Temperature.Celsius()
	m.Pressure = float64(env.Pressure) / float64(100*physic.Pascal)
	m.Humidity = float64(env.Humidity) / float64(physic.PercentRH)
	return
}
