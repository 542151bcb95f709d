package cache

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"

	"intaker/internal/model"
)

const activeScriptKey = "script:active"

type ScriptCache interface {
	SetActive(ctx context.Context, script *model.IntakeScript) error
	GetActive(ctx context.Context) (*model.IntakeScript, error)
	Invalidate(ctx context.Context) error
}

type scriptCache struct {
	client *redis.Client
}

func NewScriptCache(client *redis.Client) ScriptCache {
	return &scriptCache{
		client: client,
	}
}

func (c *scriptCache) SetActive(ctx context.Context, script *model.IntakeScript) error {
	data, err := json.Marshal(script)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, activeScriptKey, data, 5*time.Minute).Err()
}

func (c *scriptCache) GetActive(ctx context.Context) (*model.IntakeScript, error) {
	data, err := c.client.Get(ctx, activeScriptKey).Result()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var script model.IntakeScript
	err = json.Unmarshal([]byte(data), &script)
	return &script, err
}

func (c *scriptCache) Invalidate(ctx context.Context) error {
	return c.client.Del(ctx, activeScriptKey).Err()
}
