package drivers

type SensorDriver interface {
	Setup([]Sensor) error
	Close() error
	IsReady() bool
	Name() string
	Sync() error
	FindSensor(string) (Sensor, error)
}

type Sensor interface {
	GetValue() (float64, error)
	SetValue(float64) error
	GetTags() map[string]string
	GetId() string
}
