package main

import (
	"encoding/json"
	"log/slog"
	"net"
	"net/http"

	"i4.energy/across/remoteio/settings"
)

// SettingsSource provides the live settings record
type SettingsSource interface {
	Snapshot() settings.Record
}

// ConnectionCounter reports how many command clients are connected
type ConnectionCounter interface {
	Connections() int
}

// Server handles the HTTP side channel next to the command protocol:
// Prometheus metrics, a health probe and a read-only settings view
type Server struct {
	Logger      *slog.Logger
	Firmware    string
	Settings    SettingsSource
	Connections ConnectionCounter
	Metrics     http.Handler
}

// ServeHTTP implements the http.Handler interface for the Server struct
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	mux := http.NewServeMux()
	if s.Metrics != nil {
		mux.Handle("GET /metrics", s.Metrics)
	}
	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.HandleFunc("GET /settings", s.handleSettings)
	mux.ServeHTTP(w, r)
}

func (s *Server) sendError(w http.ResponseWriter, message string, statusCode int) {
	if message == "" {
		w.WriteHeader(statusCode)
		return
	}

	type ErrorResponse struct {
		Message string `json:"message"`
	}
	s.sendJSON(w, ErrorResponse{Message: message}, statusCode)
}

func (s *Server) sendJSON(w http.ResponseWriter, v any, statusCode int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.Logger.Warn("Failed to write response", "error", err)
	}
}

// handleHealth reports liveness with the firmware version and client count
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	type HealthResponse struct {
		Status      string `json:"status"`
		Firmware    string `json:"firmware"`
		Connections int    `json:"connections"`
	}

	resp := HealthResponse{Status: "ok", Firmware: s.Firmware}
	if s.Connections != nil {
		resp.Connections = s.Connections.Connections()
	}
	s.sendJSON(w, resp, http.StatusOK)
}

// handleSettings renders the persisted record with addresses in their
// usual text form
func (s *Server) handleSettings(w http.ResponseWriter, r *http.Request) {
	if s.Settings == nil {
		s.sendError(w, "settings unavailable", http.StatusServiceUnavailable)
		return
	}

	type SettingsResponse struct {
		Version  uint8           `json:"version"`
		IP       string          `json:"ip"`
		Netmask  string          `json:"netmask"`
		Gateway  string          `json:"gateway"`
		MAC      string          `json:"mac"`
		TCPPort  uint16          `json:"tcp_port"`
		UART     []settings.UART `json:"uart"`
		LEDCount uint16          `json:"led_count"`
	}

	rec := s.Settings.Snapshot()
	s.sendJSON(w, SettingsResponse{
		Version:  rec.Version,
		IP:       net.IP(rec.IP[:]).String(),
		Netmask:  net.IP(rec.Netmask[:]).String(),
		Gateway:  net.IP(rec.Gateway[:]).String(),
		MAC:      net.HardwareAddr(rec.MAC[:]).String(),
		TCPPort:  rec.TCPPort,
		UART:     rec.UART[:],
		LEDCount: rec.LEDCount,
	}, http.StatusOK)
}
