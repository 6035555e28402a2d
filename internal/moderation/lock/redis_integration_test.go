//go:build integration

package lock_test

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"

	"chatguard/internal/moderation/config"
	"chatguard/internal/moderation/lock"
	id "chatguard/pkg/domain"
	"chatguard/pkg/platform/sentinel"
	"chatguard/pkg/testutil/containers"
)

type RedisLockSuite struct {
	suite.Suite
	redis  *containers.RedisContainer
	locker *lock.Redis
}

func TestRedisLockSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(RedisLockSuite))
}

func (s *RedisLockSuite) SetupSuite() {
	s.redis = containers.GetManager().GetRedis(s.T())
	var err error
	s.locker, err = lock.NewRedis(s.redis.Client, lock.WithLockConfig(config.LockConfig{
		TTL:           2 * time.Second,
		WaitTimeout:   200 * time.Millisecond,
		RetryInterval: 5 * time.Millisecond,
	}))
	s.Require().NoError(err)
}

func (s *RedisLockSuite) SetupTest() {
	s.Require().NoError(s.redis.DeleteKeys(context.Background(), "chatguard:lock:*"))
}

func (s *RedisLockSuite) TestSerialisesSameUser() {
	userID := id.UserID(uuid.New())
	var inside, overlaps atomic.Int32
	var wg sync.WaitGroup
	for range 5 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = s.locker.WithUserLock(context.Background(), userID, func(context.Context) error {
				if inside.Add(1) > 1 {
					overlaps.Add(1)
				}
				time.Sleep(10 * time.Millisecond)
				inside.Add(-1)
				return nil
			})
		}()
	}
	wg.Wait()
	s.Equal(int32(0), overlaps.Load())
}

func (s *RedisLockSuite) TestBusyLockTimesOut() {
	userID := id.UserID(uuid.New())
	entered := make(chan struct{})
	release := make(chan struct{})
	go func() {
		_ = s.locker.WithUserLock(context.Background(), userID, func(context.Context) error {
			close(entered)
			<-release
			return nil
		})
	}()
	<-entered
	defer close(release)

	err := s.locker.WithUserLock(context.Background(), userID, func(context.Context) error { return nil })
	s.ErrorIs(err, sentinel.ErrLockHeld)
}

func (s *RedisLockSuite) shortLease() *lock.Redis {
	locker, err := lock.NewRedis(s.redis.Client, lock.WithLockConfig(config.LockConfig{
		TTL:           500 * time.Millisecond,
		WaitTimeout:   50 * time.Millisecond,
		RetryInterval: 5 * time.Millisecond,
	}))
	s.Require().NoError(err)
	return locker
}

func (s *RedisLockSuite) TestSlowCriticalSectionIsCancelledBeforeLeaseEnds() {
	locker := s.shortLease()
	userID := id.UserID(uuid.New())
	key := "chatguard:lock:user:" + userID.String()

	var keyAtDeadline int64
	start := time.Now()
	err := locker.WithUserLock(context.Background(), userID, func(ctx context.Context) error {
		<-ctx.Done()
		keyAtDeadline = s.redis.Client.Exists(context.Background(), key).Val()
		return ctx.Err()
	})

	s.ErrorIs(err, context.DeadlineExceeded)
	s.Less(time.Since(start), 500*time.Millisecond)
	s.Equal(int64(1), keyAtDeadline, "critical section ends while this holder still owns the key")
}

func (s *RedisLockSuite) TestCriticalSectionIgnoringDeadlineReportsExpiry() {
	locker := s.shortLease()
	userID := id.UserID(uuid.New())

	err := locker.WithUserLock(context.Background(), userID, func(context.Context) error {
		time.Sleep(600 * time.Millisecond)
		return nil
	})
	s.ErrorIs(err, sentinel.ErrLockExpired)
}

func (s *RedisLockSuite) TestNoOverlapWhenHolderOutlivesTTL() {
	locker := s.shortLease()
	userID := id.UserID(uuid.New())

	var inside, overlaps atomic.Int32
	var wg sync.WaitGroup
	for range 3 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = locker.WithUserLock(context.Background(), userID, func(ctx context.Context) error {
				if inside.Add(1) > 1 {
					overlaps.Add(1)
				}
				defer inside.Add(-1)
				<-ctx.Done()
				return ctx.Err()
			})
		}()
	}
	wg.Wait()
	s.Equal(int32(0), overlaps.Load())
}
