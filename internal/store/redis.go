package store

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/redis/go-redis/v9"

	"casa-backend/internal/models"
)

const accountsKey = "casa:accounts"

// RedisStore keeps one hash field per user id, each holding the JSON-encoded
// account record. Accounts are never deleted, so Save only upserts.
type RedisStore struct {
	client *redis.Client
}

func NewRedisStore(addr, password string, db int) (*RedisStore, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	if _, err := client.Ping(context.Background()).Result(); err != nil {
		return nil, fmt.Errorf("connect to redis: %w", err)
	}
	return &RedisStore{client: client}, nil
}

func (s *RedisStore) Load(ctx context.Context) (map[int64]models.Account, error) {
	fields, err := s.client.HGetAll(ctx, accountsKey).Result()
	if err != nil {
		return nil, fmt.Errorf("load accounts: %w", err)
	}

	accounts := make(map[int64]models.Account, len(fields))
	for key, data := range fields {
		id, err := strconv.ParseInt(key, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("load accounts: bad user id %q", key)
		}
		var acct models.Account
		if err := json.Unmarshal([]byte(data), &acct); err != nil {
			return nil, fmt.Errorf("unmarshal account %d: %w", id, err)
		}
		acct.UserID = id
		accounts[id] = acct
	}
	return accounts, nil
}

func (s *RedisStore) Save(ctx context.Context, accounts map[int64]models.Account) error {
	pipe := s.client.TxPipeline()
	for id, acct := range accounts {
		data, err := json.Marshal(acct)
		if err != nil {
			return fmt.Errorf("marshal account %d: %w", id, err)
		}
		pipe.HSet(ctx, accountsKey, strconv.FormatInt(id, 10), data)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("save accounts: %w", err)
	}
	return nil
}

func (s *RedisStore) Close() error {
	return s.client.Close()
}
