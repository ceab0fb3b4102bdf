package riokit

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/julienschmidt/httprouter"
)

const diagHttpTimeoutMs = 3000

type diagStatus struct {
	Name           string `json:"name"`
	OutputsEnabled bool   `json:"outputs_enabled"`
	OutputEnable   bool   `json:"output_enable_coil"`
	Inputs         []bool `json:"inputs"`
	Bank0          []bool `json:"bank0_coils"`
	Bank1          []bool `json:"bank1_coils"`
	DroppedEvents  uint64 `json:"dropped_events"`
}

// StartDiag serves the diagnostic http endpoints, GET /health and
// GET /status. The returned channel carries the server error when it
// stops.
func (rk *RioKit) StartDiag(address string) <-chan error {
	router := httprouter.New()
	router.GET("/health", rk.handleDiagHealth)
	router.GET("/status", rk.handleDiagStatus)

	timeout := diagHttpTimeoutMs * time.Millisecond
	rk.diagServer = &http.Server{
		Addr:              address,
		Handler:           router,
		ReadTimeout:       timeout,
		ReadHeaderTimeout: timeout,
		WriteTimeout:      timeout,
		IdleTimeout:       2 * timeout,
	}

	serverErr := make(chan error, 1)
	go func() {
		serverErr <- rk.diagServer.ListenAndServe()
	}()

	return serverErr
}

func (rk *RioKit) handleDiagHealth(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	w.Write([]byte("ok\n"))
}

func (rk *RioKit) handleDiagStatus(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	snapshot := rk.regs.Snapshot()

	status := diagStatus{
		Name:           rk.Name,
		OutputsEnabled: rk.interlock.Enabled(),
		OutputEnable:   snapshot.Coils[1]&(1<<(CoilOutputEnable-16)) != 0,
		DroppedEvents:  rk.dropped.Load(),
	}
	for no := 0; no < NumChannels; no++ {
		status.Inputs = append(status.Inputs, snapshot.DiscreteInputs&(1<<no) != 0)
		status.Bank0 = append(status.Bank0, snapshot.Coils[0]&(1<<no) != 0)
		status.Bank1 = append(status.Bank1, snapshot.Coils[1]&(1<<no) != 0)
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(status)
}
