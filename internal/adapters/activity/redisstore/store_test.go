package redisstore

import (
	"context"
	"errors"
	"os"
	"sort"
	"strconv"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeClient keeps sorted sets in memory.
type fakeClient struct {
	sets    map[string]map[string]float64
	expires map[string]time.Duration
	err     error
}

func newFakeClient() *fakeClient {
	return &fakeClient{sets: map[string]map[string]float64{}, expires: map[string]time.Duration{}}
}

func (f *fakeClient) ZAdd(_ context.Context, key string, members ...redis.Z) *redis.IntCmd {
	if f.err != nil {
		return redis.NewIntResult(0, f.err)
	}
	set, ok := f.sets[key]
	if !ok {
		set = map[string]float64{}
		f.sets[key] = set
	}
	var added int64
	for _, m := range members {
		name, _ := m.Member.(string)
		if _, exists := set[name]; !exists {
			added++
		}
		set[name] = m.Score
	}
	return redis.NewIntResult(added, nil)
}

func (f *fakeClient) Expire(_ context.Context, key string, exp time.Duration) *redis.BoolCmd {
	f.expires[key] = exp
	return redis.NewBoolResult(true, nil)
}

func (f *fakeClient) ZRevRangeByScore(_ context.Context, key string, opt *redis.ZRangeBy) *redis.StringSliceCmd {
	if f.err != nil {
		return redis.NewStringSliceResult(nil, f.err)
	}
	lo, _ := strconv.ParseFloat(opt.Min, 64)
	var out []string
	for m, score := range f.sets[key] {
		if score >= lo {
			out = append(out, m)
		}
	}
	sort.Slice(out, func(i, j int) bool { return f.sets[key][out[i]] > f.sets[key][out[j]] })
	return redis.NewStringSliceResult(out, nil)
}

func (f *fakeClient) Close() error { return nil }

func TestRecordAndReadDays(t *testing.T) {
	fc := newFakeClient()
	s := New(fc, "test")
	ctx := context.Background()
	today := time.Date(2026, 3, 4, 18, 30, 0, 0, time.UTC)

	require.NoError(t, s.RecordActivity(ctx, "u1", today))
	require.NoError(t, s.RecordActivity(ctx, "u1", today))
	require.NoError(t, s.RecordActivity(ctx, "u1", today.AddDate(0, 0, -1)))
	require.NoError(t, s.RecordActivity(ctx, "u1", today.AddDate(0, 0, -60)))

	assert.Len(t, fc.sets["test:activity:u1"], 3)
	assert.Equal(t, defaultRetention, fc.expires["test:activity:u1"])

	days, err := s.ActivityDays(ctx, "u1", today.AddDate(0, 0, -30))
	require.NoError(t, err)
	assert.Equal(t, []time.Time{
		time.Date(2026, 3, 4, 0, 0, 0, 0, time.UTC),
		time.Date(2026, 3, 3, 0, 0, 0, 0, time.UTC),
	}, days)
}

func TestErrorsAreWrapped(t *testing.T) {
	fc := newFakeClient()
	fc.err = errors.New("connection refused")
	s := New(fc, "")

	err := s.RecordActivity(context.Background(), "u1", time.Now())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "connection refused")

	_, err = s.ActivityDays(context.Background(), "u1", time.Now())
	require.Error(t, err)
}

func TestAgainstLiveRedis(t *testing.T) {
	addr := os.Getenv("REFLECT_TEST_REDIS_ADDR")
	if addr == "" {
		t.Skip("REFLECT_TEST_REDIS_ADDR not set")
	}
	ctx := context.Background()
	s, err := Dial(ctx, addr, "reflect-test-"+strconv.FormatInt(time.Now().UnixNano(), 10))
	require.NoError(t, err)
	defer s.Close()

	day := time.Date(2026, 3, 4, 0, 0, 0, 0, time.UTC)
	require.NoError(t, s.RecordActivity(ctx, "u1", day))
	days, err := s.ActivityDays(ctx, "u1", day.AddDate(0, 0, -1))
	require.NoError(t, err)
	assert.Equal(t, []time.Time{day}, days)
}
