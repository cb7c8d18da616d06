package metrics_test

import (
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"i4.energy/across/remoteio/metrics"
	"i4.energy/across/remoteio/protocol"
)

func TestConnections(t *testing.T) {
	m, err := metrics.New()
	require.NoError(t, err)

	m.ConnectionOpened()
	m.ConnectionOpened()
	m.ConnectionClosed()
	m.ConnectionRejected()

	expected := `
# HELP remoteio_server_connections Number of active client connections
# TYPE remoteio_server_connections gauge
remoteio_server_connections 1
# HELP remoteio_server_connections_accepted_total Total number of accepted client connections
# TYPE remoteio_server_connections_accepted_total counter
remoteio_server_connections_accepted_total 2
# HELP remoteio_server_connections_rejected_total Total number of connections refused because every slot was taken
# TYPE remoteio_server_connections_rejected_total counter
remoteio_server_connections_rejected_total 1
`
	err = testutil.GatherAndCompare(m.Registry(), strings.NewReader(expected),
		"remoteio_server_connections",
		"remoteio_server_connections_accepted_total",
		"remoteio_server_connections_rejected_total",
	)
	assert.NoError(t, err)
}

func TestCommandHandled(t *testing.T) {
	m, err := metrics.New()
	require.NoError(t, err)

	m.CommandHandled(protocol.ServiceStatus, nil)
	m.CommandHandled(protocol.ServiceDigitalOutput, protocol.CodeInvalidCommandParameter)
	m.CommandHandled(protocol.ServiceDigitalOutput, fmt.Errorf("write: %w", protocol.CodeOutputWriteFailed))
	m.CommandHandled(0, protocol.CodeInvalidCommandType)

	expected := `
# HELP remoteio_dispatch_errors_total Total number of error responses, by error code
# TYPE remoteio_dispatch_errors_total counter
remoteio_dispatch_errors_total{code="1"} 1
remoteio_dispatch_errors_total{code="17"} 1
remoteio_dispatch_errors_total{code="4"} 1
`
	assert.NoError(t, testutil.GatherAndCompare(m.Registry(), strings.NewReader(expected),
		"remoteio_dispatch_errors_total"))

	count, err := testutil.GatherAndCount(m.Registry(), "remoteio_dispatch_commands_total")
	require.NoError(t, err)
	assert.Equal(t, 3, count)
}

func TestNilMetrics(t *testing.T) {
	var m *metrics.Metrics
	assert.NotPanics(t, func() {
		m.ConnectionOpened()
		m.ConnectionClosed()
		m.ConnectionRejected()
		m.CommandHandled(protocol.ServiceStatus, nil)
		m.NotificationSent()
		m.NotificationDropped()
		m.UARTLine(0)
	})
}

func TestHandler(t *testing.T) {
	m, err := metrics.New()
	require.NoError(t, err)
	m.NotificationSent()
	m.UARTLine(1)

	srv := httptest.NewServer(m.Handler())
	defer srv.Close()

	resp, err := http.Get(srv.URL)
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), `remoteio_server_notifications_total{result="sent"} 1`)
	assert.Contains(t, string(body), `remoteio_uart_lines_total{channel="1"} 1`)
}
