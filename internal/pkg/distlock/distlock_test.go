package distlock

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T) *redis.Client {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { rdb.Close() })
	return rdb
}

func TestRedisLockMutualExclusion(t *testing.T) {
	rdb := newTestClient(t)
	ctx := context.Background()

	first := NewRedisLock(rdb, "drop-folder", time.Minute)
	second := NewRedisLock(rdb, "drop-folder", time.Minute)

	ok, err := first.Acquire(ctx)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = second.Acquire(ctx)
	require.NoError(t, err)
	assert.False(t, ok, "second holder must be refused")

	require.NoError(t, first.Release(ctx))

	ok, err = second.Acquire(ctx)
	require.NoError(t, err)
	assert.True(t, ok, "lock is free after release")
}

func TestRedisLockReleaseIsOwnershipChecked(t *testing.T) {
	rdb := newTestClient(t)
	ctx := context.Background()

	holder := NewRedisLock(rdb, "drop-folder", time.Minute)
	intruder := NewRedisLock(rdb, "drop-folder", time.Minute)

	ok, err := holder.Acquire(ctx)
	require.NoError(t, err)
	require.True(t, ok)

	// A non-holder releasing is a no-op, not a theft.
	require.NoError(t, intruder.Release(ctx))

	ok, err = intruder.Acquire(ctx)
	require.NoError(t, err)
	assert.False(t, ok, "holder still owns the lock")
}

func TestPGAdvisoryLockFallback(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	ctx := context.Background()

	mock.ExpectQuery("SELECT pg_try_advisory_lock").
		WillReturnRows(sqlmock.NewRows([]string{"pg_try_advisory_lock"}).AddRow(true))
	mock.ExpectExec("SELECT pg_advisory_unlock").
		WillReturnResult(sqlmock.NewResult(0, 0))

	lock := NewPGAdvisoryLock(db, "drop-folder")
	ok, err := lock.Acquire(ctx)
	require.NoError(t, err)
	assert.True(t, ok)
	require.NoError(t, lock.Release(ctx))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestNewLockPrefersRedis(t *testing.T) {
	rdb := newTestClient(t)
	lock := NewLock(rdb, nil, "anything", time.Minute)
	_, isRedis := lock.(*RedisLock)
	assert.True(t, isRedis)

	lock = NewLock(nil, nil, "anything", time.Minute)
	_, isPG := lock.(*PGAdvisoryLock)
	assert.True(t, isPG)
}
