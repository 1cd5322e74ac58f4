package workspace

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/go-redis/redis/v8"
)

const (
	redisClassesKey = "gradewise:classes" // set of class IDs
	redisClassKey   = "gradewise:class:"  // + id -> JSON snapshot
)

// RedisStore keeps one JSON document per class plus an index set of IDs.
type RedisStore struct {
	client *redis.Client
}

func NewRedisStore(client *redis.Client) *RedisStore {
	return &RedisStore{client: client}
}

// NewRedisClient pings addr before handing the client out.
func NewRedisClient(ctx context.Context, addr, password string, db int) (*redis.Client, error) {
	c := redis.NewClient(&redis.Options{Addr: addr, Password: password, DB: db})
	if err := c.Ping(ctx).Err(); err != nil {
		_ = c.Close()
		return nil, fmt.Errorf("redis ping %s: %w", addr, err)
	}
	return c, nil
}

func (s *RedisStore) Get(ctx context.Context, id string) (Class, error) {
	raw, err := s.client.Get(ctx, redisClassKey+id).Bytes()
	if errors.Is(err, redis.Nil) {
		return Class{}, ErrNotFound
	}
	if err != nil {
		return Class{}, err
	}
	var c Class
	if err := json.Unmarshal(raw, &c); err != nil {
		return Class{}, fmt.Errorf("decode class %s: %w", id, err)
	}
	return c.decoded()
}

func (s *RedisStore) Put(ctx context.Context, c Class) error {
	buf, err := json.Marshal(c)
	if err != nil {
		return err
	}
	_, err = s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, redisClassKey+c.ID, buf, 0)
		pipe.SAdd(ctx, redisClassesKey, c.ID)
		return nil
	})
	return err
}

func (s *RedisStore) Delete(ctx context.Context, id string) error {
	var del *redis.IntCmd
	_, err := s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		del = pipe.Del(ctx, redisClassKey+id)
		pipe.SRem(ctx, redisClassesKey, id)
		return nil
	})
	if err != nil {
		return err
	}
	if del.Val() == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *RedisStore) List(ctx context.Context) ([]Class, error) {
	ids, err := s.client.SMembers(ctx, redisClassesKey).Result()
	if err != nil {
		return nil, err
	}
	out := make([]Class, 0, len(ids))
	for _, id := range ids {
		c, err := s.Get(ctx, id)
		if errors.Is(err, ErrNotFound) {
			continue // index entry left behind by a partial delete
		}
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	sortClasses(out)
	return out, nil
}
