package riokit

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/julienschmidt/httprouter"
)

func TestDiagStatusHandler(t *testing.T) {
	rk, _ := newTestKit(t)
	rk.Registers().SetCoil(0, true)
	rk.Registers().SetCoil(17, true)
	rk.Registers().SetDiscreteInput(2, true)

	router := httprouter.New()
	router.GET("/status", rk.handleDiagStatus)

	recorder := httptest.NewRecorder()
	router.ServeHTTP(recorder, httptest.NewRequest(http.MethodGet, "/status", nil))

	if recorder.Code != http.StatusOK {
		t.Fatalf("got status %d want 200", recorder.Code)
	}

	var status diagStatus
	err := json.Unmarshal(recorder.Body.Bytes(), &status)
	if err != nil {
		t.Fatalf("failed to decode status: %v", err)
	}

	if status.Name != "test-unit" {
		t.Errorf("got name %q want test-unit", status.Name)
	}
	if status.OutputsEnabled || status.OutputEnable {
		t.Error("outputs should report disabled")
	}
	if len(status.Inputs) != NumChannels || len(status.Bank0) != NumChannels || len(status.Bank1) != NumChannels {
		t.Fatal("status should list every channel")
	}
	if !status.Inputs[2] || status.Inputs[0] {
		t.Error("inputs should mirror the discrete input word")
	}
	if !status.Bank0[0] || !status.Bank1[1] {
		t.Error("coil lists should mirror the coil words")
	}
	if status.DroppedEvents != 0 {
		t.Errorf("got %d dropped events want 0", status.DroppedEvents)
	}
}

func TestDiagHealthHandler(t *testing.T) {
	rk, _ := newTestKit(t)

	router := httprouter.New()
	router.GET("/health", rk.handleDiagHealth)

	recorder := httptest.NewRecorder()
	router.ServeHTTP(recorder, httptest.NewRequest(http.MethodGet, "/health", nil))

	if recorder.Code != http.StatusOK || recorder.Body.String() != "ok\n" {
		t.Errorf("got %d %q want 200 ok", recorder.Code, recorder.Body.String())
	}
}
