package drivers

import "testing"

func TestMockSensorsSync(t *testing.T) {
	indoor := &testSensor{id: "indoor"}
	outdoor := &testSensor{id: "outdoor"}

	mock := MockSensors{Values: map[string]float64{"indoor": 22.5}}
	if err := mock.Setup([]Sensor{indoor, outdoor}); err != nil {
		t.Fatalf("Setup returned error: %v", err)
	}
	if !mock.IsReady() {
		t.Error("mock driver not ready after Setup")
	}

	if err := mock.Sync(); err != nil {
		t.Fatalf("Sync returned error: %v", err)
	}

	assertValue(t, indoor, 22.5)

	if _, err := outdoor.GetValue(); err == nil {
		t.Error("sensor without a mock value got synced anyway")
	}
}

func TestMockSensorsFindSensor(t *testing.T) {
	indoor := &testSensor{id: "indoor"}

	mock := MockSensors{}
	if err := mock.Setup([]Sensor{indoor}); err != nil {
		t.Fatalf("Setup returned error: %v", err)
	}

	found, err := mock.FindSensor("indoor")
	if err != nil {
		t.Fatalf("FindSensor returned error: %v", err)
	}
	if found.GetId() != "indoor" {
		t.Errorf("FindSensor returned %s, want indoor", found.GetId())
	}

	if _, err := mock.FindSensor("missing"); err == nil {
		t.Error("FindSensor for unknown id did not fail")
	}
}
