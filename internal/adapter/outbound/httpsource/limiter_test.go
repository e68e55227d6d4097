package httpsource

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHostLimiter(t *testing.T) {
	l := newHostLimiter(0.001, 1)
	ctx := context.Background()

	require.NoError(t, l.Wait(ctx, "a.example.com"))
	require.NoError(t, l.Wait(ctx, "b.example.com"), "hosts have separate buckets")

	cctx, cancel := context.WithCancel(ctx)
	cancel()
	assert.Error(t, l.Wait(cctx, "a.example.com"), "second request to the same host has to wait")
	assert.Len(t, l.perHost, 2)
}

func TestHostLimiter_Disabled(t *testing.T) {
	l := newHostLimiter(0, 0)
	for i := 0; i < 100; i++ {
		require.NoError(t, l.Wait(context.Background(), "a.example.com"))
	}
}
