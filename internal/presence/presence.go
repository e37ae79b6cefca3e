package presence

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

// TTL is refreshed by the heartbeat while a client socket stays connected;
// a missed refresh lets the key lapse and the user read as offline.
const TTL = 45 * time.Second

type Tracker struct {
	cli *redis.Client
}

func NewTracker(cli *redis.Client) *Tracker {
	return &Tracker{cli: cli}
}

func (t *Tracker) SetOnline(ctx context.Context, userID string) error {
	return t.cli.Set(ctx, "presence:"+userID, "1", TTL).Err()
}

func (t *Tracker) SetOffline(ctx context.Context, userID string) error {
	return t.cli.Del(ctx, "presence:"+userID).Err()
}

func (t *Tracker) IsOnline(ctx context.Context, userID string) (bool, error) {
	_, err := t.cli.Get(ctx, "presence:"+userID).Result()
	if err == redis.Nil {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}
