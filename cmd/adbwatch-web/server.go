package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/regaw-leinad/androidlib-go/pkg/controller"
	"github.com/regaw-leinad/androidlib-go/pkg/registry"
)

// Default and upper bound for the wait endpoint timeout.
const (
	defaultWaitTimeout = 10 * time.Second
	maxWaitTimeout     = 5 * time.Minute
)

// ServerConfig holds configuration for the HTTP server.
type ServerConfig struct {
	Port    int
	Version string
}

// DeviceInfo is the JSON form of a connected device.
type DeviceInfo struct {
	Serial string `json:"serial"`
	State  string `json:"state"`
}

// KnownDeviceInfo is the JSON form of a remembered device.
type KnownDeviceInfo struct {
	Serial    string    `json:"serial"`
	State     string    `json:"state"`
	Connected bool      `json:"connected"`
	FirstSeen time.Time `json:"first_seen"`
	LastSeen  time.Time `json:"last_seen"`
}

// Server is the HTTP server for device presence.
type Server struct {
	config ServerConfig
	ctrl   *controller.Controller
	router *mux.Router
	server *http.Server
}

// NewServer creates a new server backed by c.
func NewServer(cfg ServerConfig, c *controller.Controller) *Server {
	s := &Server{
		config: cfg,
		ctrl:   c,
		router: mux.NewRouter(),
	}

	s.registerRoutes()

	s.server = &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	return s
}

// registerRoutes sets up all HTTP routes.
func (s *Server) registerRoutes() {
	const api = "/api/v1"

	s.router.HandleFunc(api+"/health", s.handleHealth).Methods(http.MethodGet)
	s.router.HandleFunc(api+"/devices", s.handleDevices).Methods(http.MethodGet)
	// Registered ahead of {serial} and without a method matcher so that a
	// GET is refused instead of being looked up as a device named "refresh".
	s.router.HandleFunc(api+"/devices/refresh", s.handleRefresh)
	s.router.HandleFunc(api+"/devices/{serial}", s.handleDevice).Methods(http.MethodGet)
	s.router.HandleFunc(api+"/known", s.handleKnown).Methods(http.MethodGet)
	s.router.HandleFunc(api+"/wait", s.handleWait).Methods(http.MethodGet)
}

// handleHealth returns the server health status.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	version := s.config.Version
	if version == "" {
		version = "dev"
	}

	resp := map[string]string{
		"status":  "ok",
		"version": version,
		"session": s.ctrl.ID(),
		"server":  s.ctrl.SessionState().String(),
	}
	if v := s.ctrl.BridgeVersion(); v != "" {
		resp["bridge_version"] = v
	}

	writeJSON(w, http.StatusOK, resp)
}

// handleDevices lists the currently connected devices.
func (s *Server) handleDevices(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.devices())
}

// handleDevice returns one connected device.
func (s *Server) handleDevice(w http.ResponseWriter, r *http.Request) {
	serial := mux.Vars(r)["serial"]

	dev, ok := s.ctrl.GetDevice(registry.DeviceID(serial))
	if !ok {
		writeError(w, http.StatusNotFound, fmt.Sprintf("device %s not connected", serial))
		return
	}

	writeJSON(w, http.StatusOK, DeviceInfo{
		Serial: string(dev.Serial()),
		State:  string(dev.State()),
	})
}

// handleRefresh runs one reconciliation pass and returns the result.
func (s *Server) handleRefresh(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	if err := s.ctrl.Refresh(r.Context()); err != nil {
		status := http.StatusBadGateway
		if errors.Is(err, controller.ErrClosed) {
			status = http.StatusServiceUnavailable
		}
		writeError(w, status, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, s.devices())
}

// handleKnown lists the devices remembered in the state file.
func (s *Server) handleKnown(w http.ResponseWriter, r *http.Request) {
	known := s.ctrl.KnownDevices()
	resp := make([]KnownDeviceInfo, 0, len(known))
	for _, d := range known {
		resp = append(resp, KnownDeviceInfo{
			Serial:    d.Serial,
			State:     d.State,
			Connected: d.Connected,
			FirstSeen: d.FirstSeen,
			LastSeen:  d.LastSeen,
		})
	}

	writeJSON(w, http.StatusOK, resp)
}

// handleWait blocks until a device is connected or the timeout elapses.
func (s *Server) handleWait(w http.ResponseWriter, r *http.Request) {
	// Get timeout from query parameter (default 10s)
	timeout := defaultWaitTimeout
	if raw := r.URL.Query().Get("timeout"); raw != "" {
		d, err := time.ParseDuration(raw)
		if err != nil || d <= 0 {
			writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid timeout %q", raw))
			return
		}
		timeout = min(d, maxWaitTimeout)
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeout)
	defer cancel()

	if err := s.ctrl.WaitUntilPresent(ctx); err != nil {
		switch {
		case ctx.Err() != nil:
			writeError(w, http.StatusGatewayTimeout, fmt.Sprintf("no device connected after %s", timeout))
		case errors.Is(err, controller.ErrClosed):
			writeError(w, http.StatusServiceUnavailable, err.Error())
		default:
			writeError(w, http.StatusBadGateway, err.Error())
		}
		return
	}

	writeJSON(w, http.StatusOK, s.devices())
}

func (s *Server) devices() []DeviceInfo {
	ids := s.ctrl.ConnectedDevices()
	resp := make([]DeviceInfo, 0, len(ids))
	for _, id := range ids {
		dev, ok := s.ctrl.GetDevice(id)
		if !ok {
			continue
		}
		resp = append(resp, DeviceInfo{Serial: string(id), State: string(dev.State())})
	}
	return resp
}

// ListenAndServe starts the HTTP server.
func (s *Server) ListenAndServe() error {
	return s.server.ListenAndServe()
}

// Shutdown stops accepting requests and waits for active ones.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}

// writeJSON writes a JSON response with the given status code.
func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
