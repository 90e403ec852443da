package metrics

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_DisabledReturnsNoop(t *testing.T) {
	p, err := New(nil)
	require.NoError(t, err)

	meter := p.Meter("test")
	counter, err := meter.Int64Counter("test_total")
	require.NoError(t, err)
	counter.Add(context.Background(), 1)

	assert.NoError(t, p.Shutdown(context.Background()))
}

func TestNew_EnabledRecordsMetrics(t *testing.T) {
	p, err := New(&Config{
		Enabled:     true,
		ServiceName: "test-service",
		Version:     "v0.0.1",
	})
	require.NoError(t, err)
	defer func() { _ = p.Shutdown(context.Background()) }()

	meter := p.Meter("test")
	counter, err := meter.Int64Counter("test_total")
	require.NoError(t, err)
	counter.Add(context.Background(), 1)

	hist, err := meter.Float64Histogram("test_duration_seconds")
	require.NoError(t, err)
	hist.Record(context.Background(), 0.25)
}
