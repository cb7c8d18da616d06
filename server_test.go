package main

import (
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"

	"i4.energy/across/remoteio/settings"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type fixedSettings settings.Record

func (f fixedSettings) Snapshot() settings.Record { return settings.Record(f) }

type fixedConnections int

func (f fixedConnections) Connections() int { return int(f) }

func TestHTTPServer(t *testing.T) {
	s := &Server{
		Logger:      discardLogger(),
		Firmware:    "1.2.3",
		Settings:    fixedSettings(settings.Defaults()),
		Connections: fixedConnections(2),
		Metrics: http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte("remoteio_up 1\n"))
		}),
	}

	tests := []struct {
		name       string
		method     string
		path       string
		wantStatus int
		wantBody   string
	}{
		{
			name:       "health",
			method:     http.MethodGet,
			path:       "/healthz",
			wantStatus: http.StatusOK,
			wantBody:   `{"status":"ok","firmware":"1.2.3","connections":2}` + "\n",
		},
		{
			name:       "settings",
			method:     http.MethodGet,
			path:       "/settings",
			wantStatus: http.StatusOK,
			wantBody: `{"version":2,"ip":"192.168.1.10","netmask":"255.255.255.0","gateway":"192.168.0.1",` +
				`"mac":"00:05:4f:01:02:03","tcp_port":8500,"uart":[` +
				`{"baud_rate":115200,"data_bits":8,"stop_bits":1,"parity":0,"flow_control":0},` +
				`{"baud_rate":9600,"data_bits":8,"stop_bits":1,"parity":0,"flow_control":0}],"led_count":25}` + "\n",
		},
		{
			name:       "metrics",
			method:     http.MethodGet,
			path:       "/metrics",
			wantStatus: http.StatusOK,
			wantBody:   "remoteio_up 1\n",
		},
		{
			name:       "wrong method",
			method:     http.MethodPost,
			path:       "/settings",
			wantStatus: http.StatusMethodNotAllowed,
		},
		{
			name:       "unknown path",
			method:     http.MethodGet,
			path:       "/sms",
			wantStatus: http.StatusNotFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			s.ServeHTTP(rec, httptest.NewRequest(tt.method, tt.path, nil))
			assert.Equal(t, tt.wantStatus, rec.Code)
			if tt.wantBody != "" {
				assert.Equal(t, tt.wantBody, rec.Body.String())
			}
		})
	}
}
