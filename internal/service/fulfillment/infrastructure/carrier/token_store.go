package carrier

import (
	"context"
	"strconv"
	"strings"
	"time"

	"github.com/pkg/errors"

	"github.com/propranjan/radhagsareees-sub002/internal/pkg/redis"
)

const tokenKey = "fulfillment:carrier:token"

// RedisTokenStore 值格式为 "<unix 过期时间>|<token>"
type RedisTokenStore struct {
	client *redis.Client
	key    string
}

func NewRedisTokenStore(client *redis.Client) *RedisTokenStore {
	return &RedisTokenStore{client: client, key: tokenKey}
}

func (s *RedisTokenStore) Load(ctx context.Context) (string, time.Time, bool, error) {
	val, ok, err := s.client.GetString(ctx, s.key)
	if err != nil || !ok {
		return "", time.Time{}, false, errors.Wrap(err, "load carrier token")
	}
	exp, tok, found := strings.Cut(val, "|")
	if !found {
		return "", time.Time{}, false, nil
	}
	sec, err := strconv.ParseInt(exp, 10, 64)
	if err != nil {
		return "", time.Time{}, false, nil
	}
	return tok, time.Unix(sec, 0), true, nil
}

func (s *RedisTokenStore) Save(ctx context.Context, token string, expiresAt time.Time) error {
	ttl := time.Until(expiresAt)
	if ttl <= 0 {
		return nil
	}
	val := strconv.FormatInt(expiresAt.Unix(), 10) + "|" + token
	return errors.Wrap(s.client.SetString(ctx, s.key, val, ttl), "save carrier token")
}
