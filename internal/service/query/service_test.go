package query

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/go-redis/redismock/v9"
	"github.com/kirinyoku/cinebook/internal/domain"
	"github.com/kirinyoku/cinebook/internal/repository"
	redisrepo "github.com/kirinyoku/cinebook/internal/repository/redis"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeShows struct {
	shows map[int64]domain.Show
	reads int
}

func (f *fakeShows) GetShow(ctx context.Context, id int64) (*domain.Show, error) {
	f.reads++
	s, ok := f.shows[id]
	if !ok {
		return nil, fmt.Errorf("get: %w", repository.ErrNotFound)
	}
	return &s, nil
}

func show7() domain.Show {
	return domain.Show{
		ID: 7, MovieID: 3, Date: "2026-05-01", Time: "19:30", Screen: 1, PriceCents: 1000, Version: 2,
		Seats: []domain.Seat{{Number: "A1"}, {Number: "A2", IsBooked: true}},
	}
}

func newService(t *testing.T) (*Service, *fakeShows, redismock.ClientMock) {
	t.Helper()

	rdb, mock := redismock.NewClientMock()
	shows := &fakeShows{shows: map[int64]domain.Show{7: show7()}}

	return New(shows, redisrepo.NewCache(rdb), Config{ShowTTL: time.Minute}), shows, mock
}

func TestGetShowLoadsThenCaches(t *testing.T) {
	svc, shows, mock := newService(t)

	key := redisrepo.KeyShow(7)
	b, _ := json.Marshal(show7())
	mock.ExpectGet(key).RedisNil()
	mock.ExpectGet(key).RedisNil()
	mock.ExpectSet(key, string(b), time.Minute).SetVal("OK")
	mock.ExpectGet(key).SetVal(string(b))

	got, err := svc.GetShow(context.Background(), 7)
	require.NoError(t, err)
	assert.Equal(t, show7(), *got)

	got, err = svc.GetShow(context.Background(), 7)
	require.NoError(t, err)
	assert.Equal(t, show7(), *got)

	assert.Equal(t, 1, shows.reads)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetShowNotFound(t *testing.T) {
	svc, _, mock := newService(t)

	key := redisrepo.KeyShow(99)
	mock.ExpectGet(key).RedisNil()
	mock.ExpectGet(key).RedisNil()

	_, err := svc.GetShow(context.Background(), 99)
	assert.ErrorIs(t, err, ErrShowNotFound)
}

func TestCheckSeatsReadsFresh(t *testing.T) {
	svc, shows, mock := newService(t)

	got, err := svc.CheckSeats(context.Background(), 7, []string{"A1", "A2", "Z9"})
	require.NoError(t, err)

	assert.False(t, got.Available)
	assert.Equal(t, []string{"A2", "Z9"}, got.Unavailable)
	assert.Equal(t, 1, shows.reads)
	assert.NoError(t, mock.ExpectationsWereMet(), "probe must bypass the cache")

	got, err = svc.CheckSeats(context.Background(), 7, []string{"A1"})
	require.NoError(t, err)
	assert.True(t, got.Available)
	assert.Empty(t, got.Unavailable)
}

func TestCheckSeatsErrors(t *testing.T) {
	svc, _, _ := newService(t)

	_, err := svc.CheckSeats(context.Background(), 7, nil)
	assert.ErrorIs(t, err, ErrNoSeats)

	_, err = svc.CheckSeats(context.Background(), 99, []string{"A1"})
	assert.ErrorIs(t, err, ErrShowNotFound)
}

func refreshCall(key string, version int64) func(expected, actual []interface{}) error {
	return func(expected, actual []interface{}) error {
		// evalsha sha 1 key version
		if len(actual) != 5 || actual[3] != key || actual[4] != version {
			return fmt.Errorf("unexpected refresh call %v", actual)
		}
		return nil
	}
}

func TestRefreshDropsOlderSnapshot(t *testing.T) {
	svc, _, mock := newService(t)

	key := redisrepo.KeyShow(7)
	mock.CustomMatch(refreshCall(key, 3)).ExpectEvalSha("", []string{key}, int64(3)).SetVal(int64(1))

	require.NoError(t, svc.Refresh(context.Background(), 7, 3))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRefreshRedisDown(t *testing.T) {
	svc, _, mock := newService(t)

	key := redisrepo.KeyShow(7)
	mock.CustomMatch(refreshCall(key, 3)).ExpectEvalSha("", []string{key}, int64(3)).
		SetErr(errors.New("connection refused"))

	assert.Error(t, svc.Refresh(context.Background(), 7, 3))
}
