package store

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// Cache wraps a RecordStore with Redis-backed caching of FetchRecords.
// Any mutation of an entity evicts every cached query of that entity and
// bumps the entity's generation, so a fetch that read the base store before
// the mutation never writes its result back.
type Cache struct {
	base   RecordStore
	redis  *redis.Client
	ttl    time.Duration
	logger *zap.Logger
}

func NewCache(base RecordStore, client *redis.Client, ttl time.Duration, logger *zap.Logger) *Cache {
	if base == nil {
		panic("store.NewCache: base store is nil")
	}
	if ttl < 0 {
		ttl = 0
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Cache{
		base:   base,
		redis:  client,
		ttl:    ttl,
		logger: logger,
	}
}

func (c *Cache) FetchRecords(ctx context.Context, entity Entity, q Query) ([]Record, error) {
	if records, ok := c.load(ctx, entity, q); ok {
		return records, nil
	}

	gen, genOK := c.generation(ctx, entity)

	records, err := c.base.FetchRecords(ctx, entity, q)
	if err != nil {
		return nil, err
	}

	if genOK {
		c.store(ctx, entity, q, records, gen)
	}
	return records, nil
}

func (c *Cache) GetRecordByID(ctx context.Context, entity Entity, id int64, q Query) (Record, error) {
	return c.base.GetRecordByID(ctx, entity, id, q)
}

func (c *Cache) CreateRecords(ctx context.Context, entity Entity, records []Record) (Response, error) {
	resp, err := c.base.CreateRecords(ctx, entity, records)
	c.evict(ctx, entity)
	return resp, err
}

func (c *Cache) UpdateRecords(ctx context.Context, entity Entity, records []Record) (Response, error) {
	resp, err := c.base.UpdateRecords(ctx, entity, records)
	c.evict(ctx, entity)
	return resp, err
}

func (c *Cache) DeleteRecords(ctx context.Context, entity Entity, ids []int64) (Response, error) {
	resp, err := c.base.DeleteRecords(ctx, entity, ids)
	c.evict(ctx, entity)
	return resp, err
}

func (c *Cache) load(ctx context.Context, entity Entity, q Query) ([]Record, bool) {
	if c.redis == nil {
		return nil, false
	}
	key := queryCacheKey(entity, q)
	data, err := c.redis.Get(ctx, key).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			c.logger.Warn("record cache read failed", zap.String("key", key), zap.Error(err))
		}
		return nil, false
	}
	var records []Record
	if err := json.Unmarshal(data, &records); err != nil {
		c.logger.Warn("dropping undecodable cache entry", zap.String("key", key), zap.Error(err))
		c.del(ctx, key)
		return nil, false
	}
	return records, true
}

// generation reads the entity's mutation counter; a missing key is 0.
func (c *Cache) generation(ctx context.Context, entity Entity) (int64, bool) {
	if c.redis == nil || c.ttl == 0 {
		return 0, false
	}
	gen, err := c.redis.Get(ctx, generationCacheKey(entity)).Int64()
	switch {
	case errors.Is(err, redis.Nil):
		return 0, true
	case err != nil:
		c.logger.Warn("record cache generation read failed", zap.String("entity", string(entity)), zap.Error(err))
		return 0, false
	}
	return gen, true
}

// store writes records only if no mutation happened since gen was read. The
// generation key is watched, so an evict racing the write aborts the EXEC.
func (c *Cache) store(ctx context.Context, entity Entity, q Query, records []Record, gen int64) {
	data, err := json.Marshal(records)
	if err != nil {
		return
	}
	key := queryCacheKey(entity, q)
	genKey := generationCacheKey(entity)

	err = c.redis.Watch(ctx, func(tx *redis.Tx) error {
		current, err := tx.Get(ctx, genKey).Int64()
		if err != nil && !errors.Is(err, redis.Nil) {
			return err
		}
		if current != gen {
			return errGenerationChanged
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, data, c.ttl)
			pipe.SAdd(ctx, indexCacheKey(entity), key)
			pipe.Expire(ctx, indexCacheKey(entity), c.ttl)
			return nil
		})
		return err
	}, genKey)

	switch {
	case err == nil:
	case errors.Is(err, errGenerationChanged), errors.Is(err, redis.TxFailedErr):
		c.logger.Debug("skipping cache write after concurrent mutation", zap.String("entity", string(entity)))
	default:
		c.logger.Warn("record cache write failed", zap.String("key", key), zap.Error(err))
	}
}

func (c *Cache) evict(ctx context.Context, entity Entity) {
	if c.redis == nil {
		return
	}
	if err := c.redis.Incr(ctx, generationCacheKey(entity)).Err(); err != nil {
		c.logger.Warn("record cache generation bump failed", zap.String("entity", string(entity)), zap.Error(err))
	}
	keys, err := c.redis.SMembers(ctx, indexCacheKey(entity)).Result()
	if err != nil {
		c.logger.Warn("record cache index read failed", zap.String("entity", string(entity)), zap.Error(err))
		return
	}
	c.del(ctx, append(keys, indexCacheKey(entity))...)
}

func (c *Cache) del(ctx context.Context, keys ...string) {
	if err := c.redis.Del(ctx, keys...).Err(); err != nil {
		c.logger.Warn("record cache eviction failed", zap.Strings("keys", keys), zap.Error(err))
	}
}

var errGenerationChanged = errors.New("cache generation changed")

func queryCacheKey(entity Entity, q Query) string {
	sum := sha1.Sum([]byte(q.String()))
	return "records:" + string(entity) + ":" + hex.EncodeToString(sum[:])
}

func indexCacheKey(entity Entity) string {
	return "records:" + string(entity) + ":keys"
}

func generationCacheKey(entity Entity) string {
	return "records:" + string(entity) + ":gen"
}
