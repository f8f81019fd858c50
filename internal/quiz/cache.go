package quiz

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/gokatarajesh/quizset-service/internal/grading"
)

const defaultKeyCacheTTL = 10 * time.Minute

// KeyCache keeps answer keys in Redis so submissions skip the document fetch.
type KeyCache struct {
	client *redis.Client
	ttl    time.Duration
}

var _ AnswerKeyCache = (*KeyCache)(nil)

func NewKeyCache(client *redis.Client, ttl time.Duration) *KeyCache {
	if ttl <= 0 {
		ttl = defaultKeyCacheTTL
	}
	return &KeyCache{client: client, ttl: ttl}
}

func (c *KeyCache) key(id uuid.UUID) string {
	return "answerkey:" + id.String()
}

// Get returns the cached key, or nil on a miss.
func (c *KeyCache) Get(ctx context.Context, id uuid.UUID) (grading.AnswerKey, error) {
	data, err := c.client.Get(ctx, c.key(id)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, err
	}

	var encoded map[string][]string
	if err := json.Unmarshal(data, &encoded); err != nil {
		return nil, err
	}
	key := make(grading.AnswerKey, len(encoded))
	for qid, choices := range encoded {
		correct := make(map[string]struct{}, len(choices))
		for _, cid := range choices {
			correct[cid] = struct{}{}
		}
		key[qid] = correct
	}
	return key, nil
}

func (c *KeyCache) Set(ctx context.Context, id uuid.UUID, key grading.AnswerKey) error {
	encoded := make(map[string][]string, len(key))
	for qid, correct := range key {
		choices := make([]string, 0, len(correct))
		for cid := range correct {
			choices = append(choices, cid)
		}
		encoded[qid] = choices
	}
	data, err := json.Marshal(encoded)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, c.key(id), data, c.ttl).Err()
}

func (c *KeyCache) Delete(ctx context.Context, id uuid.UUID) error {
	return c.client.Del(ctx, c.key(id)).Err()
}
