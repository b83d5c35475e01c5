package store

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

type countingStore struct {
	RecordStore
	fetches  int
	fetchErr error
}

func (s *countingStore) FetchRecords(ctx context.Context, entity Entity, q Query) ([]Record, error) {
	s.fetches++
	if s.fetchErr != nil {
		return nil, s.fetchErr
	}
	return s.RecordStore.FetchRecords(ctx, entity, q)
}

// gatedStore pauses a fetch after it has read the base store.
type gatedStore struct {
	RecordStore
	read   chan struct{}
	gate   chan struct{}
	passed atomic.Bool
}

func (s *gatedStore) FetchRecords(ctx context.Context, entity Entity, q Query) ([]Record, error) {
	records, err := s.RecordStore.FetchRecords(ctx, entity, q)
	if s.passed.CompareAndSwap(false, true) {
		close(s.read)
		<-s.gate
	}
	return records, err
}

func newTestCache(t *testing.T, base RecordStore) (*Cache, *miniredis.Miniredis) {
	t.Helper()
	return newObservedCache(t, base, zap.NewNop())
}

func newObservedCache(t *testing.T, base RecordStore, logger *zap.Logger) (*Cache, *miniredis.Miniredis) {
	t.Helper()
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("start miniredis: %v", err)
	}
	t.Cleanup(mr.Close)

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	return NewCache(base, client, time.Minute, logger), mr
}

func TestCache_FetchMissThenHit(t *testing.T) {
	base := &countingStore{RecordStore: NewMemoryStore()}
	seed(t, base, "Work", "Home")
	cache, _ := newTestCache(t, base)
	ctx := context.Background()
	q := Query{OrderBy: []Order{{Field: "Name"}}}

	first, err := cache.FetchRecords(ctx, EntityCategory, q)
	require.NoError(t, err)
	second, err := cache.FetchRecords(ctx, EntityCategory, q)
	require.NoError(t, err)

	assert.Equal(t, 1, base.fetches)
	require.Len(t, second, 2)
	assert.Equal(t, first[0]["Name"], second[0]["Name"])
	id, ok := second[0].ID()
	require.True(t, ok)
	assert.Equal(t, int64(2), id)
}

func TestCache_DistinctQueriesAreCachedSeparately(t *testing.T) {
	base := &countingStore{RecordStore: NewMemoryStore()}
	seed(t, base, "Work", "Home")
	cache, _ := newTestCache(t, base)
	ctx := context.Background()

	_, err := cache.FetchRecords(ctx, EntityCategory, Query{Paging: Paging{Limit: 1}})
	require.NoError(t, err)
	records, err := cache.FetchRecords(ctx, EntityCategory, Query{Paging: Paging{Limit: 10}})
	require.NoError(t, err)

	assert.Equal(t, 2, base.fetches)
	assert.Len(t, records, 2)
}

func TestCache_MutationsEvict(t *testing.T) {
	base := &countingStore{RecordStore: NewMemoryStore()}
	ids := seed(t, base, "Work")
	cache, mr := newTestCache(t, base)
	ctx := context.Background()

	_, err := cache.FetchRecords(ctx, EntityCategory, Query{})
	require.NoError(t, err)
	assert.True(t, mr.Exists(indexCacheKey(EntityCategory)))

	_, err = cache.UpdateRecords(ctx, EntityCategory, []Record{{IDField: ids[0], "Name": "Office"}})
	require.NoError(t, err)
	assert.False(t, mr.Exists(indexCacheKey(EntityCategory)))

	records, err := cache.FetchRecords(ctx, EntityCategory, Query{})
	require.NoError(t, err)
	assert.Equal(t, 2, base.fetches)
	assert.Equal(t, "Office", records[0]["Name"])

	_, err = cache.DeleteRecords(ctx, EntityCategory, ids)
	require.NoError(t, err)
	records, err = cache.FetchRecords(ctx, EntityCategory, Query{})
	require.NoError(t, err)
	assert.Empty(t, records)
}

func TestCache_FetchErrorIsNotCached(t *testing.T) {
	base := &countingStore{RecordStore: NewMemoryStore(), fetchErr: errors.New("backend down")}
	cache, mr := newTestCache(t, base)

	_, err := cache.FetchRecords(context.Background(), EntityTask, Query{})
	assert.Error(t, err)
	assert.False(t, mr.Exists(indexCacheKey(EntityTask)))
}

func TestCache_RedisDownFallsBack(t *testing.T) {
	base := &countingStore{RecordStore: NewMemoryStore()}
	seed(t, base, "Work")
	cache, mr := newTestCache(t, base)
	mr.Close()

	records, err := cache.FetchRecords(context.Background(), EntityCategory, Query{})
	require.NoError(t, err)
	assert.Len(t, records, 1)
}

func TestCache_NilClient(t *testing.T) {
	base := &countingStore{RecordStore: NewMemoryStore()}
	seed(t, base, "Work")
	cache := NewCache(base, nil, time.Minute, zap.NewNop())

	for i := 0; i < 2; i++ {
		_, err := cache.FetchRecords(context.Background(), EntityCategory, Query{})
		require.NoError(t, err)
	}
	assert.Equal(t, 2, base.fetches)
}

func TestCache_FetchOvertakenByMutationIsNotCached(t *testing.T) {
	base := &gatedStore{
		RecordStore: NewMemoryStore(),
		read:        make(chan struct{}),
		gate:        make(chan struct{}),
	}
	seed(t, base.RecordStore, "Work")
	cache, _ := newTestCache(t, base)
	ctx := context.Background()

	fetched := make(chan error, 1)
	go func() {
		_, err := cache.FetchRecords(ctx, EntityCategory, Query{})
		fetched <- err
	}()
	<-base.read

	// The create lands after the fetch read the base store but before it
	// writes to redis.
	_, err := cache.CreateRecords(ctx, EntityCategory, []Record{{"Name": "Home"}})
	require.NoError(t, err)

	close(base.gate)
	require.NoError(t, <-fetched)

	records, err := cache.FetchRecords(ctx, EntityCategory, Query{})
	require.NoError(t, err)
	assert.Len(t, records, 2)
}

func TestCache_RedisFailuresAreLogged(t *testing.T) {
	core, logs := observer.New(zapcore.WarnLevel)
	base := &countingStore{RecordStore: NewMemoryStore()}
	cache, mr := newObservedCache(t, base, zap.New(core))
	mr.Close()

	_, err := cache.CreateRecords(context.Background(), EntityCategory, []Record{{"Name": "Work"}})
	require.NoError(t, err, "cache failures never fail the mutation")

	assert.NotZero(t, logs.FilterMessage("record cache generation bump failed").Len())
	assert.NotZero(t, logs.FilterMessage("record cache index read failed").Len())
}
