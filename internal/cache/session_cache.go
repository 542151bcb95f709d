package cache

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"

	"intaker/internal/asam"
	"intaker/internal/model"
)

type SessionCache interface {
	Set(ctx context.Context, session *model.IntakeSession) error
	Get(ctx context.Context, id string) (*model.IntakeSession, error)
	Delete(ctx context.Context, id string) error
}

type sessionCache struct {
	client *redis.Client
}

// cachedSession carries the progress map alongside the session, since
// the session's own JSON form deliberately omits it.
type cachedSession struct {
	Session     *model.IntakeSession `json:"session"`
	ProgressMap asam.ProgressMap     `json:"progressMap"`
}

func NewSessionCache(client *redis.Client) SessionCache {
	return &sessionCache{
		client: client,
	}
}

func (c *sessionCache) Set(ctx context.Context, session *model.IntakeSession) error {
	data, err := json.Marshal(cachedSession{Session: session, ProgressMap: session.ProgressMap})
	if err != nil {
		return err
	}
	return c.client.Set(ctx, "session:"+session.ID, data, 10*time.Minute).Err()
}

func (c *sessionCache) Get(ctx context.Context, id string) (*model.IntakeSession, error) {
	data, err := c.client.Get(ctx, "session:"+id).Result()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var cached cachedSession
	if err := json.Unmarshal([]byte(data), &cached); err != nil {
		return nil, err
	}
	if cached.Session != nil {
		cached.Session.ProgressMap = cached.ProgressMap
	}
	return cached.Session, nil
}

func (c *sessionCache) Delete(ctx context.Context, id string) error {
	return c.client.Del(ctx, "session:"+id).Err()
}
