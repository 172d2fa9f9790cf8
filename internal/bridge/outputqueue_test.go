package bridge

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOutputQueuePushPopOrder(t *testing.T) {
	q := NewOutputQueue(2)
	require.NoError(t, q.Push(context.Background(), OutputBatch{DeviceID: 1}))
	require.NoError(t, q.Push(context.Background(), OutputBatch{DeviceID: 2}))

	b, ok := q.Pop(context.Background())
	require.True(t, ok)
	assert.Equal(t, int64(1), b.DeviceID)

	b, ok = q.Pop(context.Background())
	require.True(t, ok)
	assert.Equal(t, int64(2), b.DeviceID)
}

func TestOutputQueuePushBlocksWhenFull(t *testing.T) {
	q := NewOutputQueue(1)
	require.NoError(t, q.Push(context.Background(), OutputBatch{DeviceID: 1}))

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	err := q.Push(ctx, OutputBatch{DeviceID: 2})
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}
