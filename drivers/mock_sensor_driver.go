package drivers

import "github.com/pkg/errors"

const mockSensorDriverName = "mock_sensors"

// MockSensors feeds fixed values into its sensors, for tests and dry runs
// on machines without the bus hardware.
type MockSensors struct {
	Values map[string]float64

	sensors []Sensor
	ready   bool
}

func (ms *MockSensors) Setup(sensors []Sensor) error {
	ms.sensors = sensors
	ms.ready = true
	return nil
}

func (ms *MockSensors) Close() error {
	ms.ready = false
	return nil
}

func (ms *MockSensors) IsReady() bool {
	return ms.ready
}

func (ms *MockSensors) Name() string {
	return mockSensorDriverName
}

func (ms *MockSensors) Sync() error {
	for _, sensor := range ms.sensors {
		value, found := ms.Values[sensor.GetId()]
		if !found {
			continue
		}
		if err := sensor.SetValue(value); err != nil {
			return errors.Wrapf(err, "failed to set mock value for %s", sensor.GetId())
		}
	}
	return nil
}

func (ms *MockSensors) FindSensor(id string) (Sensor, error) {
	for _, sensor := range ms.sensors {
		if sensor.GetId() == id {
			return sensor, nil
		}
	}
	return nil, errors.Errorf("mock sensor with id = %s not found", id)
}
