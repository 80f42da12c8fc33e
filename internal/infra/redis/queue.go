// File: internal/infra/redis/queue.go
package redis

import (
	"context"
	"errors"
	"time"

	goredis "github.com/go-redis/redis/v8"

	"github.com/rs/zerolog"
)

// DispatchQueue carries job ids from submission to the worker consumer over a
// redis list. It is best-effort and at-least-once: Enqueue reports failure
// instead of returning an error so callers fall back to invoking the worker
// directly, and a redelivered id is harmless because the worker resumes from
// the persisted cursor.
type DispatchQueue struct {
	cli RedisClient
	key string
	log *zerolog.Logger
}

func NewDispatchQueue(cli RedisClient, key string, logger *zerolog.Logger) *DispatchQueue {
	qlog := logger.With().Str("component", "DispatchQueue").Logger()
	return &DispatchQueue{cli: cli, key: key, log: &qlog}
}

// Enqueue pushes a job id for a worker to pick up. A false return means the
// queue is degraded and the caller must run the worker itself.
func (q *DispatchQueue) Enqueue(ctx context.Context, jobID string) bool {
	if err := q.cli.RPush(ctx, q.key, jobID); err != nil {
		q.log.Warn().Err(err).Str("job_id", jobID).Msg("enqueue failed; caller should fall back to direct dispatch")
		return false
	}
	return true
}

// Dequeue blocks up to timeout for the next job id. Returns "" when the
// queue was empty for the whole window.
func (q *DispatchQueue) Dequeue(ctx context.Context, timeout time.Duration) (string, error) {
	res, err := q.cli.BLPop(ctx, timeout, q.key)
	if err != nil {
		if errors.Is(err, goredis.Nil) {
			return "", nil
		}
		return "", err
	}
	// BLPOP returns [key, value]
	if len(res) != 2 {
		return "", nil
	}
	return res[1], nil
}

// Depth reports the number of queued job ids, for observability only.
func (q *DispatchQueue) Depth(ctx context.Context) (int64, error) {
	return q.cli.LLen(ctx, q.key)
}
