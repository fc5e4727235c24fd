package redis

import (
	"context"
	"fmt"
	"math"
	"time"

	redis "github.com/redis/go-redis/v9"
)

type Client struct {
	Context     context.Context
	RedisClient *redis.Client
}

func NewClient(ctx context.Context, dsn string) (*Client, error) {
	opts, err := redis.ParseURL(dsn)
	if err != nil {
		return nil, err
	}

	redisClient := redis.NewClient(opts)
	return &Client{
		Context:     ctx,
		RedisClient: redisClient,
	}, nil
}

func (c *Client) Lock(lockKey string, lockTimeDuration time.Duration) (result bool, err error) {
	result, err = c.RedisClient.SetNX(c.Context, lockKey, 1, lockTimeDuration).Result()
	if err != nil {
		return false, err
	}

	return result, nil
}

func (c *Client) Unlock(lockKey string) (err error) {
	err = c.RedisClient.Del(c.Context, lockKey).Err()
	return err
}

func (c *Client) Close() (err error) {
	err = c.RedisClient.Close()
	return err
}

func (c *Client) Ping(ctx context.Context) (err error) {
	err = c.RedisClient.Ping(ctx).Err()
	return err
}

// Throttle enforces a minimum gap between accepted location reports per
// technician. The key holds for the window; an accepted report re-arms it.
type Throttle struct {
	client *Client
	window time.Duration
}

func NewThrottle(client *Client, window time.Duration) *Throttle {
	return &Throttle{
		client: client,
		window: window,
	}
}

// Reserve returns ok=true when the technician may report now. When throttled
// it returns the remaining wait in whole seconds, rounded up.
func (t *Throttle) Reserve(ctx context.Context, technicianID int64) (retryAfterSeconds int64, ok bool, err error) {
	key := fmt.Sprintf("throttle:location:%d", technicianID)
	accepted, err := t.client.RedisClient.SetNX(ctx, key, 1, t.window).Result()
	if err != nil {
		return 0, false, err
	}
	if accepted {
		return 0, true, nil
	}

	ttl, err := t.client.RedisClient.PTTL(ctx, key).Result()
	if err != nil {
		return 0, false, err
	}

	remaining := int64(math.Ceil(ttl.Seconds()))
	if remaining < 1 {
		remaining = 1
	}

	return remaining, false, nil
}
