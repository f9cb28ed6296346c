package buskit

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/julienschmidt/httprouter"
)

func statusTestKit() *BusKit {
	kit := &BusKit{
		Name: "test kit",
		TemperatureSensors: []*TemperatureSensor{
			{Id: "indoor", DriverName: "mock_sensors"},
		},
		PressureSensors: []*PressureSensor{
			{Id: "baro", DriverName: "mock_sensors"},
		},
	}
	kit.TemperatureSensors[0].SetValue(21.5)

	return kit
}

func TestSensorStatuses(t *testing.T) {
	statuses := statusTestKit().sensorStatuses()

	if len(statuses) != 2 {
		t.Fatalf("got %d statuses, want 2", len(statuses))
	}

	for _, status := range statuses {
		switch status.Id {
		case "indoor":
			if !status.Ok || status.Value != 21.5 {
				t.Errorf("synced sensor status = %+v", status)
			}
			if status.Kind != "temperature" {
				t.Errorf("kind = %s, want temperature", status.Kind)
			}
		case "baro":
			if status.Ok {
				t.Errorf("never synced sensor reported ok: %+v", status)
			}
		default:
			t.Errorf("unexpected sensor id %s", status.Id)
		}
	}
}

func TestHandleSensor(t *testing.T) {
	kit := statusTestKit()

	router := httprouter.New()
	router.GET("/sensors/:id", kit.handleSensor)

	recorder := httptest.NewRecorder()
	router.ServeHTTP(recorder, httptest.NewRequest("GET", "/sensors/indoor", nil))

	if recorder.Code != http.StatusOK {
		t.Fatalf("status code = %d, want %d", recorder.Code, http.StatusOK)
	}

	var status sensorStatus
	if err := json.Unmarshal(recorder.Body.Bytes(), &status); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if status.Id != "indoor" || status.Value != 21.5 {
		t.Errorf("response = %+v", status)
	}

	recorder = httptest.NewRecorder()
	router.ServeHTTP(recorder, httptest.NewRequest("GET", "/sensors/missing", nil))
	if recorder.Code != http.StatusNotFound {
		t.Errorf("status code for unknown sensor = %d, want %d", recorder.Code, http.StatusNotFound)
	}
}
