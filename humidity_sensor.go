package buskit

import (
	"fmt"
	"hash/fnv"
	"time"

	"github.com/brutella/hap/accessory"
	"github.com/brutella/hap/characteristic"
	"github.com/brutella/hap/service"
	"github.com/hubertat/buskit/drivers"
	"github.com/pkg/errors"
)

type HumiditySensor struct {
	Id         string
	Name       string
	DriverName string
	Tags       map[string]string

	value         float64
	lastSync      time.Time
	hkA           *accessory.A
	hkHumidity    *service.HumiditySensor
	hkStatusFault *characteristic.StatusFault
}

func (hs *HumiditySensor) GetDriverName() string {
	return hs.DriverName
}

func (hs *HumiditySensor) GetId() string {
	return hs.Id
}

func (hs *HumiditySensor) GetTags() map[string]string {
	return hs.Tags
}

func (hs *HumiditySensor) GetKind() string {
	return "humidity"
}

func (hs *HumiditySensor) GetUniqueId() uint64 {
	hash := fnv.New64()
	hash.Write([]byte("HumiditySensor_" + hs.DriverName + "_" + hs.Id))
	return hash.Sum64()
}

func (hs *HumiditySensor) Init(driver drivers.SensorDriver) error {
	info := accessory.Info{
		Name:         hs.Name,
		SerialNumber: fmt.Sprintf("humidity_sensor:%s:%s", hs.DriverName, hs.Id),
	}
	hs.hkA = accessory.New(info, accessory.TypeSensor)
	hs.hkHumidity = service.NewHumiditySensor()
	hs.hkStatusFault = characteristic.NewStatusFault()
	hs.hkStatusFault.SetValue(characteristic.StatusFaultGeneralFault)
	hs.hkHumidity.AddC(hs.hkStatusFault.C)
	hs.hkA.AddS(hs.hkHumidity.S)

	return nil
}

func (hs *HumiditySensor) Sync() error {
	val, err := hs.GetValue()
	if err == nil {
		hs.hkStatusFault.SetValue(characteristic.StatusFaultNoFault)
		hs.hkHumidity.CurrentRelativeHumidity.SetValue(val)
		return nil
	}

	hs.hkStatusFault.SetValue(characteristic.StatusFaultGeneralFault)
	return errors.Wrapf(err, "failed to sync %s humidity sensor %s", hs.Name, hs.Id)
}

func (hs *HumiditySensor) GetHk() *accessory.A {
	return hs.hkA
}

func (hs *HumiditySensor) GetValue() (value float64, err error) {
	if hs.lastSync.IsZero() {
		err = errors.Errorf("cannot get sensor %s value, never synced", hs.Id)
		return
	}

	if time.Since(hs.lastSync) > oldDataDuration {
		err = errors.Errorf("cannot get value of sensor %s, data is too old (%v old)", hs.Id, time.Since(hs.lastSync))
		return
	}

	value = hs.value
	return
}

func (hs *HumiditySensor) SetValue(val float64) error {
	hs.value = val
	hs.lastSync = time.Now()
	return nil
}
