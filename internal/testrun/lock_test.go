package testrun

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"modeltest-workers/internal/common/database"
	"modeltest-workers/internal/common/errors"
	"modeltest-workers/internal/common/logger"
)

func newTestLock(t *testing.T) (*RunLock, *miniredis.Miniredis) {
	t.Helper()
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	client := &database.RedisClient{Client: redis.NewClient(&redis.Options{Addr: mr.Addr()})}
	return NewRunLock(client, time.Minute, logger.NewNoOpLogger()), mr
}

func TestRunLockSerializesSameBot(t *testing.T) {
	lock, _ := newTestLock(t)
	ctx := context.Background()

	require.NoError(t, lock.Acquire(ctx, "bot-1", "run-1"))

	err := lock.Acquire(ctx, "bot-1", "run-2")
	require.Error(t, err)
	assert.True(t, errors.HasCode(err, errors.ErrCodeTestRunInProgress))

	lock.Release(ctx, "bot-1")
	assert.NoError(t, lock.Acquire(ctx, "bot-1", "run-3"))
}

func TestRunLockIndependentPerBot(t *testing.T) {
	lock, _ := newTestLock(t)
	ctx := context.Background()

	require.NoError(t, lock.Acquire(ctx, "bot-1", "run-1"))
	assert.NoError(t, lock.Acquire(ctx, "bot-2", "run-2"))
}

func TestRunLockExpires(t *testing.T) {
	lock, mr := newTestLock(t)
	ctx := context.Background()

	require.NoError(t, lock.Acquire(ctx, "bot-1", "run-1"))
	mr.FastForward(2 * time.Minute)
	assert.NoError(t, lock.Acquire(ctx, "bot-1", "run-2"))
}
