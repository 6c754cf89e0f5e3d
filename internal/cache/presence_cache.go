package cache

import (
	"context"
	"strconv"
	"time"

	redis "github.com/redis/go-redis/v9"
)

// PresenceCache mirrors live presence into Redis so sibling processes
// can read who is in a session. It is advisory only: the in-memory
// registry stays authoritative and never reads back from here.
type PresenceCache interface {
	SetPresence(ctx context.Context, sessionID, userID string, jsonData []byte, ttl time.Duration) error
	GetPresence(ctx context.Context, sessionID, userID string) ([]byte, error)
	AliveMembers(ctx context.Context, sessionID string) ([]string, error)
	RemoveMember(ctx context.Context, sessionID, userID string) error
}

type redisPresence struct {
	rdb *redis.Client
}

func NewRedisPresence(rdb *redis.Client) PresenceCache {
	return &redisPresence{rdb: rdb}
}

func (p *redisPresence) SetPresence(ctx context.Context, sessionID, userID string, jsonData []byte, ttl time.Duration) error {
	// ZSet score is expireAt (unix seconds), the member's logical TTL.
	expireAt := time.Now().Add(ttl).Unix()

	tx := p.rdb.TxPipeline()
	tx.ZAdd(ctx, memberKey(sessionID), redis.Z{Score: float64(expireAt), Member: userID})
	tx.Set(ctx, presenceKey(sessionID, userID), jsonData, ttl)
	_, err := tx.Exec(ctx)
	return err
}

func (p *redisPresence) GetPresence(ctx context.Context, sessionID, userID string) ([]byte, error) {
	data, err := p.rdb.Get(ctx, presenceKey(sessionID, userID)).Bytes()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return data, nil
}

func (p *redisPresence) AliveMembers(ctx context.Context, sessionID string) ([]string, error) {
	now := time.Now().Unix()

	// Drop members whose logical TTL has passed before reading.
	if err := p.rdb.ZRemRangeByScore(ctx, memberKey(sessionID), "-inf", strconv.FormatInt(now, 10)).Err(); err != nil && err != redis.Nil {
		return nil, err
	}

	members, err := p.rdb.ZRangeByScore(ctx, memberKey(sessionID), &redis.ZRangeBy{
		Min: "(" + strconv.FormatInt(now, 10),
		Max: "+inf",
	}).Result()
	if err != nil && err != redis.Nil {
		return nil, err
	}
	return members, nil
}

func (p *redisPresence) RemoveMember(ctx context.Context, sessionID, userID string) error {
	tx := p.rdb.TxPipeline()
	tx.ZRem(ctx, memberKey(sessionID), userID)
	tx.Del(ctx, presenceKey(sessionID, userID))
	_, err := tx.Exec(ctx)
	return err
}
