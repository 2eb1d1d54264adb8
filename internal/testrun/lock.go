// internal/testrun/lock.go
package testrun

import (
	"context"
	"time"

	"modeltest-workers/internal/common/database"
	"modeltest-workers/internal/common/errors"
	"modeltest-workers/internal/common/logger"
)

// RunLock serializes test runs per bot. Concurrent runs for the same bot
// would collide on the working directory, so the second caller is turned
// away instead.
type RunLock struct {
	redis  *database.RedisClient
	ttl    time.Duration
	logger logger.Logger
}

func NewRunLock(redis *database.RedisClient, ttl time.Duration, log logger.Logger) *RunLock {
	if ttl == 0 {
		ttl = 30 * time.Minute
	}
	return &RunLock{redis: redis, ttl: ttl, logger: log}
}

func lockKey(botID string) string {
	return "testrun:lock:" + botID
}

// Acquire takes the per-bot lock for runID. The TTL bounds how long a
// crashed run can block the bot.
func (l *RunLock) Acquire(ctx context.Context, botID, runID string) error {
	acquired, err := l.redis.SetNX(ctx, lockKey(botID), runID, l.ttl)
	if err != nil {
		return err
	}
	if !acquired {
		return errors.NewTestRunInProgressError(botID)
	}
	return nil
}

// Release frees the lock. Failure to release is logged only; the TTL
// still reclaims the lock eventually.
func (l *RunLock) Release(ctx context.Context, botID string) {
	if err := l.redis.Del(ctx, lockKey(botID)); err != nil {
		l.logger.Warn("failed to release run lock", map[string]interface{}{
			"bot_id": botID,
			"error":  err.Error(),
		})
	}
}
