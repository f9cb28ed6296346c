package buskit

import (
	"hash/fnv"
	"time"

	"github.com/brutella/hap/accessory"
	"github.com/hubertat/buskit/drivers"
	"github.com/pkg/errors"
)

// PressureSensor has no HomeKit counterpart (HAP defines no barometric
// pressure service), so it only feeds the status API and the exporters.
type PressureSensor struct {
	Id         string
	Name       string
	DriverName string
	Tags       map[string]string

	value    float64
	lastSync time.Time
}

func (ps *PressureSensor) GetDriverName() string {
	return ps.DriverName
}

func (ps *PressureSensor) GetId() string {
	return ps.Id
}

func (ps *PressureSensor) GetTags() map[string]string {
	return ps.Tags
}

func (ps *PressureSensor) GetKind() string {
	return "pressure"
}

func (ps *PressureSensor) GetUniqueId() uint64 {
	hash := fnv.New64()
	hash.Write([]byte("PressureSensor_" + ps.DriverName + "_" + ps.Id))
	return hash.Sum64()
}

func (ps *PressureSensor) Init(driver drivers.SensorDriver) error {
	return nil
}

func (ps *PressureSensor) Sync() error {
	return nil
}

func (ps *PressureSensor) GetHk() *accessory.A {
	return nil
}

func (ps *PressureSensor) GetValue() (value float64, err error) {
	if ps.lastSync.IsZero() {
		err = errors.Errorf("cannot get sensor %s value, never synced", ps.Id)
		return
	}

	if time.Since(ps.lastSync) > oldDataDuration {
		err = errors.Errorf("cannot get value of sensor %s, data is too old (%v old)", ps.Id, time.Since(ps.lastSync))
		return
	}

	value = ps.value
	return
}

func (ps *PressureSensor) SetValue(val float64) error {
	ps.value = val
	ps.lastSync = time.Now()
	return nil
}
