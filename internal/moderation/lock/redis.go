package lock

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"chatguard/internal/moderation/config"
	id "chatguard/pkg/domain"
	"chatguard/pkg/platform/sentinel"
)

const userLockKeyPrefix = "chatguard:lock:user:"

// leaseMarginDivisor reserves a fifth of the TTL between the deadline given to
// the critical section and the moment Redis expires the key.
const leaseMarginDivisor = 5

// releaseScript deletes the key only if this holder still owns it, so an
// expired lease never releases a lock that a later holder acquired.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// Redis is a lease-based distributed lock.
type Redis struct {
	client redis.UniversalClient
	cfg    config.LockConfig
}

// RedisOption configures a Redis lock.
type RedisOption func(*Redis)

func WithLockConfig(cfg config.LockConfig) RedisOption {
	return func(r *Redis) {
		r.cfg = cfg
	}
}

func NewRedis(client redis.UniversalClient, opts ...RedisOption) (*Redis, error) {
	if client == nil {
		return nil, errors.New("redis client is required")
	}
	r := &Redis{client: client, cfg: config.DefaultConfig().Lock}
	for _, opt := range opts {
		if opt != nil {
			opt(r)
		}
	}
	return r, nil
}

// WithUserLock runs fn under a lease. The lease is never extended: fn gets a
// context that expires before the key does, so a slow ledger call fails closed
// instead of overlapping with the next holder.
func (r *Redis) WithUserLock(ctx context.Context, userID id.UserID, fn func(ctx context.Context) error) error {
	key := userLockKeyPrefix + userID.String()
	token := uuid.NewString()

	leaseStart, err := r.acquire(ctx, key, token)
	if err != nil {
		return err
	}
	defer func() {
		// Release with a fresh context: ctx may already be cancelled.
		releaseCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), time.Second)
		defer cancel()
		_ = releaseScript.Run(releaseCtx, r.client, []string{key}, token).Err()
	}()

	fnCtx, cancel := context.WithDeadline(ctx, leaseStart.Add(r.leaseBudget()))
	defer cancel()

	err = fn(fnCtx)
	if err == nil && errors.Is(fnCtx.Err(), context.DeadlineExceeded) {
		// fn ignored its deadline; its writes may have raced another holder.
		return fmt.Errorf("user lock %s: %w", userID, sentinel.ErrLockExpired)
	}
	return err
}

// leaseBudget is how long fn may run, measured from the start of the SETNX
// call that won the lease.
func (r *Redis) leaseBudget() time.Duration {
	return r.cfg.TTL - r.cfg.TTL/leaseMarginDivisor
}

// acquire polls SETNX until it wins or WaitTimeout passes. It returns the time
// the winning attempt was sent, which is no later than when Redis started the TTL.
func (r *Redis) acquire(ctx context.Context, key, token string) (time.Time, error) {
	deadline := time.Now().Add(r.cfg.WaitTimeout)
	for {
		sentAt := time.Now()
		ok, err := r.client.SetNX(ctx, key, token, r.cfg.TTL).Result()
		if err != nil {
			return time.Time{}, fmt.Errorf("acquire user lock: %w", err)
		}
		if ok {
			return sentAt, nil
		}
		if time.Now().After(deadline) {
			return time.Time{}, fmt.Errorf("acquire user lock: %w", sentinel.ErrLockHeld)
		}
		timer := time.NewTimer(r.cfg.RetryInterval)
		select {
		case <-ctx.Done():
			timer.Stop()
			return time.Time{}, ctx.Err()
		case <-timer.C:
		}
	}
}
