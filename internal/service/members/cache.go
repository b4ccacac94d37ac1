package members

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/ltrc/socios-api-go/internal/domain"
)

// Cache is a read-through layer over the record store for point lookups.
// Process memory is checked first, then Redis (when configured), then the
// store. Writes pass straight through and invalidate. The cache is
// advisory like the ledger: a Redis failure silently degrades to the
// store.
//
// Memory entries carry no TTL; they are dropped only when a write to the
// same keys passes through this instance, so a record read here can lag a
// write made by another process until the next local write touches it.
// The Redis layer bounds that staleness with its TTL.
type Cache struct {
	store  Store
	redis  *redis.Client
	logger *zap.Logger

	byID  sync.Map // map[uuid.UUID]*domain.Member
	byDoc sync.Map // map[string]*domain.Member

	redisTTL time.Duration
}

type CacheConfig struct {
	RedisTTL time.Duration
}

func NewCache(store Store, redisClient *redis.Client, logger *zap.Logger, cfg CacheConfig) *Cache {
	if cfg.RedisTTL == 0 {
		cfg.RedisTTL = 30 * time.Minute
	}

	return &Cache{
		store:    store,
		redis:    redisClient,
		logger:   logger,
		redisTTL: cfg.RedisTTL,
	}
}

var _ Store = (*Cache)(nil)

func (c *Cache) Insert(ctx context.Context, input domain.CreateMemberInput, fileID *uuid.UUID, fileName string) (*domain.Member, error) {
	member, err := c.store.Insert(ctx, input, fileID, fileName)
	if err != nil {
		return nil, err
	}
	c.put(ctx, member)
	return member, nil
}

func (c *Cache) FindByID(ctx context.Context, id uuid.UUID) (*domain.Member, error) {
	if val, ok := c.byID.Load(id); ok {
		return val.(*domain.Member), nil
	}

	if member := c.redisGet(ctx, idKey(id)); member != nil {
		c.byID.Store(id, member)
		return member, nil
	}

	member, err := c.store.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	c.put(ctx, member)
	return member, nil
}

func (c *Cache) FindByDocumentNumber(ctx context.Context, documentNumber string) (*domain.Member, error) {
	if val, ok := c.byDoc.Load(documentNumber); ok {
		return val.(*domain.Member), nil
	}

	if member := c.redisGet(ctx, docKey(documentNumber)); member != nil {
		c.byDoc.Store(documentNumber, member)
		return member, nil
	}

	member, err := c.store.FindByDocumentNumber(ctx, documentNumber)
	if err != nil {
		return nil, err
	}
	c.put(ctx, member)
	return member, nil
}

// FindAll always hits the store; the listing has no staleness budget
// worth managing for its call frequency.
func (c *Cache) FindAll(ctx context.Context) ([]*domain.Member, error) {
	return c.store.FindAll(ctx)
}

func (c *Cache) UpdateByID(ctx context.Context, id uuid.UUID, input domain.UpdateMemberInput, fileID *uuid.UUID, fileName string) (*domain.Member, error) {
	stale, _ := c.store.FindByID(ctx, id)

	member, err := c.store.UpdateByID(ctx, id, input, fileID, fileName)
	if err != nil {
		return nil, err
	}

	// The document number may have changed; drop the old key.
	if stale != nil && stale.DocumentNumber != member.DocumentNumber {
		c.evict(ctx, stale)
	}
	c.put(ctx, member)
	return member, nil
}

func (c *Cache) DeleteByID(ctx context.Context, id uuid.UUID) (*domain.Member, error) {
	member, err := c.store.DeleteByID(ctx, id)
	if err != nil {
		return nil, err
	}
	c.evict(ctx, member)
	return member, nil
}

func (c *Cache) put(ctx context.Context, member *domain.Member) {
	c.byID.Store(member.ID, member)
	c.byDoc.Store(member.DocumentNumber, member)

	if c.redis == nil {
		return
	}
	data, err := json.Marshal(member)
	if err != nil {
		return
	}
	if err := c.redis.Set(ctx, idKey(member.ID), data, c.redisTTL).Err(); err != nil {
		c.logger.Warn("Failed to cache member in Redis", zap.Error(err))
		return
	}
	if err := c.redis.Set(ctx, docKey(member.DocumentNumber), data, c.redisTTL).Err(); err != nil {
		c.logger.Warn("Failed to cache member in Redis", zap.Error(err))
	}
}

func (c *Cache) evict(ctx context.Context, member *domain.Member) {
	c.byID.Delete(member.ID)
	c.byDoc.Delete(member.DocumentNumber)

	if c.redis == nil {
		return
	}
	if err := c.redis.Del(ctx, idKey(member.ID), docKey(member.DocumentNumber)).Err(); err != nil {
		c.logger.Warn("Failed to evict member from Redis", zap.Error(err))
	}
}

func (c *Cache) redisGet(ctx context.Context, key string) *domain.Member {
	if c.redis == nil {
		return nil
	}

	data, err := c.redis.Get(ctx, key).Bytes()
	if err != nil {
		return nil
	}

	var member domain.Member
	if err := json.Unmarshal(data, &member); err != nil {
		return nil
	}
	return &member
}

func idKey(id uuid.UUID) string {
	return fmt.Sprintf("member:id:%s", id)
}

func docKey(documentNumber string) string {
	return fmt.Sprintf("member:doc:%s", documentNumber)
}
