package main

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

const gameKeyPrefix = "quizbox:game:"

// redisStore keeps one JSON document per room so rooms survive process
// restarts while sockets reconnect. The TTL is refreshed on every save
// and acts as a backstop for rooms whose cleanup alarm never ran.
type redisStore struct {
	client *redis.Client
	ttl    time.Duration
}

func newRedisStore(addr, password string, db int, ttl time.Duration) *redisStore {
	return &redisStore{
		client: redis.NewClient(&redis.Options{
			Addr:     addr,
			Password: password,
			DB:       db,
		}),
		ttl: ttl,
	}
}

func (r *redisStore) ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}

func (r *redisStore) Create(ctx context.Context, id string, questions []Question) (*GameState, error) {
	if len(questions) == 0 {
		return nil, ErrEmptyQuiz
	}

	st := newGameState(id, questions)

	data, err := json.Marshal(st)
	if err != nil {
		return nil, err
	}

	ok, err := r.client.SetNX(ctx, gameKeyPrefix+id, data, r.ttl).Result()
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrGameExists
	}

	return st, nil
}

func (r *redisStore) Load(ctx context.Context, id string) (*GameState, error) {
	data, err := r.client.Get(ctx, gameKeyPrefix+id).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrGameNotFound
	}
	if err != nil {
		return nil, err
	}

	st := &GameState{}
	if err := json.Unmarshal(data, st); err != nil {
		return nil, err
	}

	return st, nil
}

func (r *redisStore) Save(ctx context.Context, st *GameState) error {
	data, err := json.Marshal(st)
	if err != nil {
		return err
	}

	return r.client.Set(ctx, gameKeyPrefix+st.ID, data, r.ttl).Err()
}

func (r *redisStore) Delete(ctx context.Context, id string) error {
	return r.client.Del(ctx, gameKeyPrefix+id).Err()
}
