// Package redisstore keeps daily activity in Redis sorted sets, one per
// user, scored by day number so range reads are cheap.
package redisstore

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/okian/interpretreflect/internal/adapters/datastore"
	"github.com/okian/interpretreflect/pkg/metrics"
)

const defaultRetention = 400 * 24 * time.Hour

// Client is the subset of redis commands the store uses.
type Client interface {
	ZAdd(ctx context.Context, key string, members ...redis.Z) *redis.IntCmd
	Expire(ctx context.Context, key string, expiration time.Duration) *redis.BoolCmd
	ZRevRangeByScore(ctx context.Context, key string, opt *redis.ZRangeBy) *redis.StringSliceCmd
	Close() error
}

// Store implements datastore.ActivityStore.
type Store struct {
	client    Client
	prefix    string
	retention time.Duration
}

var _ datastore.ActivityStore = (*Store)(nil)

// Dial connects to addr and verifies the connection.
func Dial(ctx context.Context, addr, prefix string) (*Store, error) {
	c := redis.NewClient(&redis.Options{Addr: addr})
	if err := c.Ping(ctx).Err(); err != nil {
		_ = c.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}
	return New(c, prefix), nil
}

// New wraps an existing client.
func New(c Client, prefix string) *Store {
	if prefix == "" {
		prefix = "ir"
	}
	return &Store{client: c, prefix: prefix, retention: defaultRetention}
}

func (s *Store) key(userID string) string {
	return s.prefix + ":activity:" + userID
}

func dayNumber(t time.Time) int64 {
	return datastore.Date(t).Unix() / 86400
}

// RecordActivity marks the calendar date of day active.
func (s *Store) RecordActivity(ctx context.Context, userID string, day time.Time) error {
	start := time.Now()
	key := s.key(userID)
	err := s.client.ZAdd(ctx, key, redis.Z{
		Score:  float64(dayNumber(day)),
		Member: day.Format(datastore.DateLayout),
	}).Err()
	if err == nil {
		err = s.client.Expire(ctx, key, s.retention).Err()
	}
	observe("record_activity", start, err)
	if err != nil {
		return fmt.Errorf("record activity: %w", err)
	}
	return nil
}

// ActivityDays returns active dates on or after since, newest first.
func (s *Store) ActivityDays(ctx context.Context, userID string, since time.Time) ([]time.Time, error) {
	start := time.Now()
	members, err := s.client.ZRevRangeByScore(ctx, s.key(userID), &redis.ZRangeBy{
		Min: strconv.FormatInt(dayNumber(since), 10),
		Max: "+inf",
	}).Result()
	observe("activity_days", start, err)
	if err != nil {
		return nil, fmt.Errorf("activity days: %w", err)
	}
	out := make([]time.Time, 0, len(members))
	for _, m := range members {
		d, err := time.Parse(datastore.DateLayout, m)
		if err != nil {
			continue
		}
		out = append(out, d)
	}
	return out, nil
}

// Close closes the client.
func (s *Store) Close() error {
	return s.client.Close()
}

func observe(op string, start time.Time, err error) {
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	metrics.RecordStoreLatency("redis_"+op, outcome, float64(time.Since(start).Milliseconds()))
}
