package redis

import (
	"context"

	"quizlive/internal/domain"
	"github.com/redis/go-redis/v9"
)

// CodeIndex maps join codes to session ids in Redis. SETNX makes code
// claiming race-free across instances; codes are never recycled, so entries
// carry no TTL.
type CodeIndex struct {
	client *redis.Client
}

func NewCodeIndex(client *redis.Client) *CodeIndex {
	return &CodeIndex{client: client}
}

func (i *CodeIndex) Put(ctx context.Context, code, sessionID string) (bool, error) {
	return i.client.SetNX(ctx, i.key(code), sessionID, 0).Result()
}

// Release drops a claim made for a session that never got persisted.
func (i *CodeIndex) Release(ctx context.Context, code string) error {
	return i.client.Del(ctx, i.key(code)).Err()
}

func (i *CodeIndex) Resolve(ctx context.Context, code string) (string, error) {
	sessionID, err := i.client.Get(ctx, i.key(code)).Result()
	if err == redis.Nil {
		return "", domain.ErrSessionNotFound
	}
	if err != nil {
		return "", err
	}
	return sessionID, nil
}

func (i *CodeIndex) key(code string) string {
	return "session:code:" + code
}
