package redisx

import (
	"context"
	"fmt"
	"github.com/redis/go-redis/v9"
	"time"
)

func New(addr string) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:         addr,
		DialTimeout:  2 * time.Second,
		ReadTimeout:  2 * time.Second,
		WriteTimeout: 2 * time.Second,
	})
}

// Dedup records eventID for service and reports whether it had already been seen.
type Dedup struct {
	rdb     *redis.Client
	service string
	ttl     time.Duration
}

func NewDedup(rdb *redis.Client, service string, ttl time.Duration) *Dedup {
	return &Dedup{rdb: rdb, service: service, ttl: ttl}
}

func (d *Dedup) key(eventID string) string { return fmt.Sprintf(KeyDedup, d.service, eventID) }

func (d *Dedup) Seen(ctx context.Context, eventID string) (bool, error) {
	ok, err := d.rdb.SetNX(ctx, d.key(eventID), "1", d.ttl).Result()
	if err != nil {
		return false, err
	}
	return !ok, nil
}

// Forget clears a mark so a failed event can be processed again on redelivery.
func (d *Dedup) Forget(ctx context.Context, eventID string) error {
	return d.rdb.Del(ctx, d.key(eventID)).Err()
}
