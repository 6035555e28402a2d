package lock

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"chatguard/internal/moderation/config"
	id "chatguard/pkg/domain"
	"chatguard/pkg/platform/sentinel"
)

func TestKeyed_SerialisesSameUser(t *testing.T) {
	locker := NewKeyed()
	userID := id.UserID(uuid.New())

	var inside, maxInside atomic.Int32
	var wg sync.WaitGroup
	for range 20 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := locker.WithUserLock(context.Background(), userID, func(context.Context) error {
				n := inside.Add(1)
				for {
					cur := maxInside.Load()
					if n <= cur || maxInside.CompareAndSwap(cur, n) {
						break
					}
				}
				time.Sleep(time.Millisecond)
				inside.Add(-1)
				return nil
			})
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), maxInside.Load())
	assert.Equal(t, 0, locker.size(), "entries are released after use")
}

func TestKeyed_DifferentUsersDoNotBlock(t *testing.T) {
	locker := NewKeyed()
	a, b := id.UserID(uuid.New()), id.UserID(uuid.New())

	entered := make(chan struct{})
	release := make(chan struct{})
	go func() {
		_ = locker.WithUserLock(context.Background(), a, func(context.Context) error {
			close(entered)
			<-release
			return nil
		})
	}()
	<-entered

	done := make(chan struct{})
	go func() {
		_ = locker.WithUserLock(context.Background(), b, func(context.Context) error { return nil })
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("lock on one user blocked another user")
	}
	close(release)
}

func TestKeyed_ContextCancelWhileWaiting(t *testing.T) {
	locker := NewKeyed()
	userID := id.UserID(uuid.New())

	entered := make(chan struct{})
	release := make(chan struct{})
	go func() {
		_ = locker.WithUserLock(context.Background(), userID, func(context.Context) error {
			close(entered)
			<-release
			return nil
		})
	}()
	<-entered
	defer close(release)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	called := false
	err := locker.WithUserLock(ctx, userID, func(context.Context) error {
		called = true
		return nil
	})
	require.ErrorIs(t, err, context.DeadlineExceeded)
	assert.False(t, called)
}

func TestKeyed_WaitTimeoutFailsWithLockHeld(t *testing.T) {
	locker := NewKeyed(WithWaitTimeout(20 * time.Millisecond))
	userID := id.UserID(uuid.New())

	entered := make(chan struct{})
	release := make(chan struct{})
	go func() {
		_ = locker.WithUserLock(context.Background(), userID, func(context.Context) error {
			close(entered)
			<-release
			return nil
		})
	}()
	<-entered
	defer close(release)

	called := false
	start := time.Now()
	err := locker.WithUserLock(context.Background(), userID, func(context.Context) error {
		called = true
		return nil
	})
	require.ErrorIs(t, err, sentinel.ErrLockHeld)
	assert.False(t, called)
	assert.Less(t, time.Since(start), time.Second)
}

func TestKeyed_DefaultWaitTimeoutComesFromPolicy(t *testing.T) {
	assert.Equal(t, config.DefaultConfig().Lock.WaitTimeout, NewKeyed().waitTimeout)
	assert.Zero(t, NewKeyed(WithWaitTimeout(0)).waitTimeout)
}

func TestKeyed_ReturnsFnError(t *testing.T) {
	locker := NewKeyed()
	boom := errors.New("boom")
	err := locker.WithUserLock(context.Background(), id.UserID(uuid.New()), func(context.Context) error { return boom })
	assert.ErrorIs(t, err, boom)
}
