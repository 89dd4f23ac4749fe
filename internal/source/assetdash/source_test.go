package assetdash

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSourceStopWaitsForPoller(t *testing.T) {
	src := NewSource(SourceConfig{
		PollInterval: time.Millisecond,
		PageLimit:    5,
	})
	require.True(t, src.demoMode, "no token should put the source in demo mode")

	require.NoError(t, src.Start(context.Background()))
	time.Sleep(20 * time.Millisecond)

	// 无人消费信号时停机也不能崩，Stop返回后通道必须已关闭
	require.NoError(t, src.Stop())

	drained := 0
	for range src.Subscribe() {
		drained++
	}
	assert.Greater(t, drained, 0, "demo poller should have produced signals before stop")

	_, ok := <-src.Errors()
	assert.False(t, ok, "error channel should be closed after stop")
}

func TestSourceStopWithoutStart(t *testing.T) {
	src := NewSource(SourceConfig{PollInterval: time.Millisecond})
	require.NoError(t, src.Stop())

	_, ok := <-src.Subscribe()
	assert.False(t, ok)
	_, ok = <-src.Errors()
	assert.False(t, ok)
}

func TestDemoSignalsPassValidation(t *testing.T) {
	gen := newDemoGenerator()
	for _, sig := range gen.Generate(20) {
		require.NoError(t, sig.Validate(), "demo signal %s should be valid", sig.ID)
	}
}
