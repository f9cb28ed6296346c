package buskit

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/julienschmidt/httprouter"
)

const statusHttpTimeoutsMs = 3000

type sensorStatus struct {
	Id     string  `json:"id"`
	Kind   string  `json:"kind"`
	Driver string  `json:"driver"`
	Value  float64 `json:"value"`
	Ok     bool    `json:"ok"`
}

type kitStatus struct {
	Name    string          `json:"name"`
	Drivers map[string]bool `json:"drivers"`
	Sensors []sensorStatus  `json:"sensors"`
}

func (bk *BusKit) sensorStatuses() (statuses []sensorStatus) {
	for _, thing := range bk.getSensorThings() {
		status := sensorStatus{
			Id:     thing.GetId(),
			Kind:   thing.GetKind(),
			Driver: thing.GetDriverName(),
		}
		value, err := thing.GetValue()
		if err == nil {
			status.Value = value
			status.Ok = true
		}
		statuses = append(statuses, status)
	}

	return
}

func (bk *BusKit) handleStatus(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	status := kitStatus{
		Name:    bk.Name,
		Drivers: map[string]bool{},
		Sensors: bk.sensorStatuses(),
	}
	for name, driver := range bk.sensorDrivers {
		status.Drivers[name] = driver.IsReady()
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(status)
}

func (bk *BusKit) handleSensor(w http.ResponseWriter, r *http.Request, p httprouter.Params) {
	for _, status := range bk.sensorStatuses() {
		if status.Id == p.ByName("id") {
			w.Header().Set("Content-Type", "application/json")
			json.NewEncoder(w).Encode(status)
			return
		}
	}

	http.Error(w, "sensor not found", http.StatusNotFound)
}

// ServeStatus exposes current readings over plain http, for scraping or a
// quick look without going through HomeKit. Returns when the server stops.
func (bk *BusKit) ServeStatus() error {
	handler := httprouter.New()
	handler.GET("/status", bk.handleStatus)
	handler.GET("/sensors/:id", bk.handleSensor)

	httpTimeout := statusHttpTimeoutsMs * time.Millisecond

	server := &http.Server{
		Addr:              bk.StatusAddr,
		Handler:           handler,
		ReadTimeout:       httpTimeout,
		ReadHeaderTimeout: httpTimeout,
		WriteTimeout:      httpTimeout,
		IdleTimeout:       2 * httpTimeout,
	}

	return server.ListenAndServe()
}
