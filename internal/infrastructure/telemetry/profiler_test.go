package telemetry

import (
	"context"
	"testing"

	"github.com/grafana/pyroscope-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestNewProfiler_Disabled(t *testing.T) {
	p, err := NewProfiler(ProfilerConfig{Enabled: false}, zap.NewNop())
	require.NoError(t, err)

	assert.False(t, p.IsEnabled())
	assert.NoError(t, p.Stop())
	assert.NoError(t, p.Stop())
}

func TestNewProfiler_Validation(t *testing.T) {
	_, err := NewProfiler(ProfilerConfig{Enabled: true, ApplicationName: "avparts"}, zap.NewNop())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "server address")

	_, err = NewProfiler(ProfilerConfig{Enabled: true, ServerAddress: "http://localhost:4040"}, zap.NewNop())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "application name")
}

func TestProfilerConfig_ProfileTypes(t *testing.T) {
	base := ProfilerConfig{}.profileTypes()
	assert.Contains(t, base, pyroscope.ProfileCPU)
	assert.NotContains(t, base, pyroscope.ProfileMutexCount)

	contention := ProfilerConfig{ProfileContention: true}.profileTypes()
	assert.Len(t, contention, len(base)+4)
	assert.Contains(t, contention, pyroscope.ProfileBlockDuration)
}

func TestLabelPairs(t *testing.T) {
	pairs := labelPairs(map[string]string{
		"Route":       "/api/v1/dispatches",
		"http-method": "POST",
		"empty":       "",
	})
	assert.Equal(t, []string{"http_method", "POST", "route", "/api/v1/dispatches"}, pairs)
}

func TestWithProfilingLabels_RunsFn(t *testing.T) {
	called := 0
	WithProfilingLabels(context.Background(), HTTPRequestLabels("/api/v1/orders/:id", "GET"), func(context.Context) {
		called++
	})
	WithProfilingLabels(context.Background(), nil, func(context.Context) {
		called++
	})
	assert.Equal(t, 2, called)
}
