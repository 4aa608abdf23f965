package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/AndySymons/GAIL-Garden-irrigation-system/internal/engine"
	"github.com/AndySymons/GAIL-Garden-irrigation-system/internal/model"
)

var errRunInFlight = errors.New("a run is already in flight")

// runner serializes decision cycles: at most one run is in flight, whether it
// was started by the HTTP trigger or the oneshot flag.
type runner struct {
	engine  *engine.Engine
	baseCtx context.Context

	mu sync.Mutex // held for the duration of a run

	statusMu sync.Mutex
	last     runStatus
}

type runStatus struct {
	Result   string    `json:"result,omitempty"`
	Error    string    `json:"error,omitempty"`
	Finished time.Time `json:"finished,omitempty"`
}

func newRunner(ctx context.Context, eng *engine.Engine) *runner {
	return &runner{engine: eng, baseCtx: ctx}
}

// Run executes one cycle synchronously, waiting for any in-flight run first.
func (r *runner) Run(ctx context.Context) ([]model.ZoneOutcome, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	outs, err := r.engine.Run(ctx)
	r.record(outs, err)
	return outs, err
}

// TryStart begins a cycle in the background, or reports errRunInFlight. The
// run is bound to the daemon's lifetime, not the HTTP request's.
func (r *runner) TryStart() error {
	if !r.mu.TryLock() {
		return errRunInFlight
	}
	go func() {
		defer r.mu.Unlock()
		outs, err := r.engine.Run(r.baseCtx)
		r.record(outs, err)
	}()
	return nil
}

func (r *runner) record(outs []model.ZoneOutcome, err error) {
	st := runStatus{Finished: time.Now().UTC()}
	if err != nil {
		st.Error = err.Error()
	} else {
		st.Result = fmt.Sprintf("%d zone(s) resolved", len(outs))
	}
	r.statusMu.Lock()
	r.last = st
	r.statusMu.Unlock()
}

func (r *runner) status() runStatus {
	r.statusMu.Lock()
	defer r.statusMu.Unlock()
	return r.last
}

func newServer(addr string, r *runner, mqClient mqtt.Client) *http.Server {
	mux := http.NewServeMux()

	mux.Handle("/metrics", promhttp.Handler())

	mux.HandleFunc("/healthz", func(w http.ResponseWriter, req *http.Request) {
		if req.Method != http.MethodGet {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		broker := "disabled"
		if mqClient != nil {
			broker = "disconnected"
			if mqClient.IsConnectionOpen() {
				broker = "connected"
			}
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"status":   "ok",
			"broker":   broker,
			"last_run": r.status(),
		})
	})

	mux.HandleFunc("/run", func(w http.ResponseWriter, req *http.Request) {
		if req.Method != http.MethodPost {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		if err := r.TryStart(); err != nil {
			http.Error(w, err.Error(), http.StatusConflict)
			return
		}
		log.Printf("irrigationd: run triggered by %s", req.RemoteAddr)
		w.WriteHeader(http.StatusAccepted)
		fmt.Fprintln(w, "run started")
	})

	return &http.Server{
		Addr:         addr,
		Handler:      mux,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
	}
}

// parseGPIORef splits a "chip:offset" valve reference, e.g. "gpiochip0:17".
func parseGPIORef(ref string) (string, int, error) {
	chip, offsetStr, ok := strings.Cut(ref, ":")
	if !ok || chip == "" {
		return "", 0, fmt.Errorf("valve reference %q is not chip:offset", ref)
	}
	offset, err := strconv.Atoi(offsetStr)
	if err != nil || offset < 0 {
		return "", 0, fmt.Errorf("valve reference %q has a bad line offset", ref)
	}
	return chip, offset, nil
}

func influxClient() influxdb2.Client {
	return influxdb2.NewClient(env("INFLUX_URL", "http://localhost:8086"), os.Getenv("INFLUX_TOKEN"))
}
