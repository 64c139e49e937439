package worker

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
    return redis.call("DEL", KEYS[1])
end
return 0`)

// Lease is a best-effort Redis lock that keeps a periodic job on one
// instance at a time. Without a reachable Redis every instance runs the job.
type Lease struct {
	client redis.Cmdable
	key    string
	ttl    time.Duration
	owner  string
	logger *zap.Logger
}

// NewLease builds a lease on key. A nil client always acquires.
func NewLease(client redis.Cmdable, key string, ttl time.Duration, logger *zap.Logger) *Lease {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Lease{
		client: client,
		key:    key,
		ttl:    ttl,
		owner:  uuid.NewString(),
		logger: logger,
	}
}

// Acquire reports whether this instance holds the lease until it expires or
// is released.
func (l *Lease) Acquire(ctx context.Context) bool {
	if l.client == nil {
		return true
	}
	ok, err := l.client.SetNX(ctx, l.key, l.owner, l.ttl).Result()
	if err != nil {
		l.logger.Warn("lease unavailable, running locally", zap.String("key", l.key), zap.Error(err))
		return true
	}
	return ok
}

// Release drops the lease if this instance still owns it.
func (l *Lease) Release(ctx context.Context) {
	if l.client == nil {
		return
	}
	if err := releaseScript.Run(ctx, l.client, []string{l.key}, l.owner).Err(); err != nil && err != redis.Nil {
		l.logger.Debug("lease release failed", zap.String("key", l.key), zap.Error(err))
	}
}
