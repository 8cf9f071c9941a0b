package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/require"
)

func TestNewRegistersAllCollectors(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New(reg)
	require.NotNil(t, m)

	families, err := reg.Gather()
	require.NoError(t, err)
	require.GreaterOrEqual(t, len(families), 9)
}

func TestCommandsTotalIncrementsByLabel(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New(reg)

	m.CommandsTotal.WithLabelValues("GET").Inc()
	m.CommandsTotal.WithLabelValues("GET").Inc()
	m.CommandsTotal.WithLabelValues("SET").Inc()

	var metric dto.Metric
	require.NoError(t, m.CommandsTotal.WithLabelValues("GET").Write(&metric))
	require.Equal(t, 2.0, metric.GetCounter().GetValue())

	require.NoError(t, m.CommandsTotal.WithLabelValues("SET").Write(&metric))
	require.Equal(t, 1.0, metric.GetCounter().GetValue())
}

func TestGaugesSetAndRead(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New(reg)

	m.ConnectedClients.Inc()
	m.ConnectedClients.Inc()
	m.ConnectedClients.Dec()

	var metric dto.Metric
	require.NoError(t, m.ConnectedClients.Write(&metric))
	require.Equal(t, 1.0, metric.GetGauge().GetValue())
}
