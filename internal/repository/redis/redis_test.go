package redisrepo

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/go-redis/redismock/v9"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type cachedShow struct {
	ID    int64    `json:"id"`
	Seats []string `json:"seats"`
}

func TestGetOrSetJSONMissLoadsAndStores(t *testing.T) {
	rdb, mock := redismock.NewClientMock()
	c := NewCache(rdb)

	key := KeyShow(7)
	want := cachedShow{ID: 7, Seats: []string{"A1", "A2"}}
	b, _ := json.Marshal(want)

	mock.ExpectGet(key).RedisNil()
	mock.ExpectGet(key).RedisNil()
	mock.ExpectSet(key, string(b), 30*time.Second).SetVal("OK")

	calls := 0
	got, err := GetOrSetJSON(context.Background(), c, key, 30*time.Second, func(ctx context.Context) (cachedShow, error) {
		calls++
		return want, nil
	})
	require.NoError(t, err)

	assert.Equal(t, want, got)
	assert.Equal(t, 1, calls)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetOrSetJSONHitSkipsLoader(t *testing.T) {
	rdb, mock := redismock.NewClientMock()
	c := NewCache(rdb)

	key := KeyShow(7)
	mock.ExpectGet(key).SetVal(`{"id":7,"seats":["A1"]}`)

	got, err := GetOrSetJSON(context.Background(), c, key, time.Minute, func(ctx context.Context) (cachedShow, error) {
		t.Fatal("loader must not run on a hit")
		return cachedShow{}, nil
	})
	require.NoError(t, err)

	assert.Equal(t, cachedShow{ID: 7, Seats: []string{"A1"}}, got)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetOrSetJSONLoaderErrorIsNotCached(t *testing.T) {
	rdb, mock := redismock.NewClientMock()
	c := NewCache(rdb)

	key := KeyShow(9)
	mock.ExpectGet(key).RedisNil()
	mock.ExpectGet(key).RedisNil()

	boom := errors.New("not found")
	_, err := GetOrSetJSON(context.Background(), c, key, time.Minute, func(ctx context.Context) (cachedShow, error) {
		return cachedShow{}, boom
	})

	assert.ErrorIs(t, err, boom)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetOrSetJSONRedisDownFallsThrough(t *testing.T) {
	rdb, mock := redismock.NewClientMock()
	c := NewCache(rdb)

	key := KeyShow(3)
	mock.ExpectGet(key).SetErr(errors.New("connection refused"))
	mock.ExpectGet(key).SetErr(errors.New("connection refused"))
	mock.ExpectSet(key, `{"id":3,"seats":null}`, time.Minute).SetErr(errors.New("connection refused"))

	got, err := GetOrSetJSON(context.Background(), c, key, time.Minute, func(ctx context.Context) (cachedShow, error) {
		return cachedShow{ID: 3}, nil
	})
	require.NoError(t, err)

	assert.Equal(t, int64(3), got.ID)
}

func TestInvalidateShow(t *testing.T) {
	rdb, mock := redismock.NewClientMock()
	c := NewCache(rdb)

	mock.ExpectDel("cinebook:v1:show:42").SetVal(1)

	require.NoError(t, c.InvalidateShow(context.Background(), 42))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestInvalidateShowIfOlder(t *testing.T) {
	rdb, mock := redismock.NewClientMock()
	c := NewCache(rdb)

	sha := redis.NewScript(luaDropIfOlder).Hash()
	key := KeyShow(42)
	mock.ExpectEvalSha(sha, []string{key}, int64(5)).SetVal(int64(1))
	mock.ExpectEvalSha(sha, []string{key}, int64(5)).SetVal(int64(0))

	dropped, err := c.InvalidateShowIfOlder(context.Background(), 42, 5)
	require.NoError(t, err)
	assert.True(t, dropped)

	dropped, err = c.InvalidateShowIfOlder(context.Background(), 42, 5)
	require.NoError(t, err)
	assert.False(t, dropped)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPublishShowChanged(t *testing.T) {
	rdb, mock := redismock.NewClientMock()
	p := NewShowsPubSub(rdb)
	p.now = func() time.Time { return time.Unix(1700000000, 0) }

	msg, _ := json.Marshal(showChangedMsg{Type: "show_changed", ShowID: 5, Version: 3, TsUnix: 1700000000})
	mock.ExpectPublish(ChannelShowsChanged(), msg).SetVal(1)

	require.NoError(t, p.PublishShowChanged(context.Background(), 5, 3))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDecodeShowChanged(t *testing.T) {
	ev, ok := decodeShowChanged(`{"type":"show_changed","show_id":5,"version":2}`)
	require.True(t, ok)
	assert.Equal(t, int64(5), ev.ShowID)
	assert.Equal(t, int64(2), ev.Version)

	_, ok = decodeShowChanged(`{"type":"show_changed"}`)
	assert.False(t, ok)

	_, ok = decodeShowChanged(`not json`)
	assert.False(t, ok)
}

func TestIdempotencyLockThenResult(t *testing.T) {
	rdb, mock := redismock.NewClientMock()
	s := NewIdempotencyStore(rdb, 2*time.Hour)
	ctx := context.Background()

	key := KeyIdemBooking("u1", "abc")
	mock.ExpectSetNX(key, "LOCK", time.Minute).SetVal(true)
	mock.ExpectSetNX(key, "LOCK", time.Minute).SetVal(false)
	mock.ExpectGet(key).SetVal("LOCK")
	mock.ExpectSet(key, `RES:201|{"id":"b1"}`, 2*time.Hour).SetVal("OK")
	mock.ExpectGet(key).SetVal(`RES:201|{"id":"b1"}`)

	ok, err := s.AcquireLock(ctx, key, time.Minute)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = s.AcquireLock(ctx, key, time.Minute)
	require.NoError(t, err)
	assert.False(t, ok)

	_, _, found, err := s.GetResult(ctx, key)
	require.NoError(t, err)
	assert.False(t, found, "a held lock is not a result")

	require.NoError(t, s.SaveResult(ctx, key, 201, `{"id":"b1"}`))

	status, body, found, err := s.GetResult(ctx, key)
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, 201, status)
	assert.Equal(t, `{"id":"b1"}`, body)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestIdempotencyMissingKey(t *testing.T) {
	rdb, mock := redismock.NewClientMock()
	s := NewIdempotencyStore(rdb, time.Hour)

	mock.ExpectGet("k").RedisNil()
	mock.ExpectDel("k").SetVal(0)

	_, _, found, err := s.GetResult(context.Background(), "k")
	require.NoError(t, err)
	assert.False(t, found)
	require.NoError(t, s.Release(context.Background(), "k"))
}

func TestSlidingWindowLimiter(t *testing.T) {
	rdb, mock := redismock.NewClientMock()
	l := NewSlidingWindowLimiter(rdb, "bookings", 2, time.Minute)
	l.now = func() time.Time { return time.UnixMilli(1_000_000) }

	sha := redis.NewScript(luaSlidingWindow).Hash()
	key := KeyRateLimit("bookings", "u1")

	// evalsha sha 1 key now window limit member
	matchScript := func(expected, actual []interface{}) error {
		if len(actual) != 8 {
			return fmt.Errorf("want 8 args, got %d", len(actual))
		}
		if actual[1] != sha || actual[3] != key {
			return fmt.Errorf("unexpected script call %v", actual)
		}
		if actual[4] != int64(1_000_000) || actual[5] != int64(60_000) || actual[6] != 2 {
			return fmt.Errorf("unexpected window args %v", actual[4:7])
		}
		return nil
	}

	mock.CustomMatch(matchScript).ExpectEvalSha(sha, []string{key}, 0, 0, 0, "").
		SetVal([]interface{}{int64(1), int64(2), int64(0)})
	mock.CustomMatch(matchScript).ExpectEvalSha(sha, []string{key}, 0, 0, 0, "").
		SetVal([]interface{}{int64(0), int64(3), int64(1500)})

	ok, n, retry, err := l.Allow(context.Background(), "u1")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, int64(2), n)
	assert.Zero(t, retry)

	ok, n, retry, err = l.Allow(context.Background(), "u1")
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Equal(t, int64(3), n)
	assert.Equal(t, 1500*time.Millisecond, retry)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSlidingWindowLimiterBadResult(t *testing.T) {
	rdb, mock := redismock.NewClientMock()
	l := NewSlidingWindowLimiter(rdb, "bookings", 2, time.Minute)

	sha := redis.NewScript(luaSlidingWindow).Hash()
	mock.CustomMatch(func(expected, actual []interface{}) error { return nil }).
		ExpectEvalSha(sha, []string{KeyRateLimit("bookings", "u1")}, 0, 0, 0, "").
		SetVal("garbage")

	_, _, _, err := l.Allow(context.Background(), "u1")
	assert.Error(t, err)
}
