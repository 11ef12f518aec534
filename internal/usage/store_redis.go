package usage

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

// KEYS[1] = usage hash key
// ARGV[1] = plan, ARGV[2] = limit, ARGV[3] = period seconds
// ARGV[4] = now (unix seconds), ARGV[5] = tokens to add, ARGV[6] = "1" to reset
// Returns: {plan, limit, used, resets_at}
var usageScript = redis.NewScript(`
local key = KEYS[1]
local period = tonumber(ARGV[3])
local now = tonumber(ARGV[4])
local n = tonumber(ARGV[5])

if redis.call('EXISTS', key) == 0 then
    redis.call('HSET', key, 'plan', ARGV[1], 'limit', ARGV[2], 'used', 0, 'resets_at', now + period)
end

local resetsAt = tonumber(redis.call('HGET', key, 'resets_at'))
if ARGV[6] == '1' or now >= resetsAt then
    redis.call('HSET', key, 'used', 0, 'resets_at', now + period)
end

if n > 0 then
    redis.call('HINCRBY', key, 'used', n)
end

return redis.call('HMGET', key, 'plan', 'limit', 'used', 'resets_at')
`)

// RedisStore keeps one hash per owner at usage:{userID}.
type RedisStore struct {
	Client   redis.Scripter
	Defaults Defaults
}

// NewRedisStore constructs a Redis-backed usage store.
func NewRedisStore(client redis.Scripter, d Defaults) *RedisStore {
	return &RedisStore{Client: client, Defaults: d.normalize()}
}

func (s *RedisStore) Get(ctx context.Context, userID string) (Usage, error) {
	return s.run(ctx, userID, 0, false)
}

func (s *RedisStore) EnsurePeriod(ctx context.Context, userID string) (Usage, error) {
	return s.run(ctx, userID, 0, false)
}

func (s *RedisStore) Consume(ctx context.Context, userID string, n int) (Usage, error) {
	if n < 0 {
		n = 0
	}
	return s.run(ctx, userID, n, false)
}

func (s *RedisStore) Reset(ctx context.Context, userID string) (Usage, error) {
	return s.run(ctx, userID, 0, true)
}

func (s *RedisStore) run(ctx context.Context, userID string, n int, reset bool) (Usage, error) {
	resetFlag := "0"
	if reset {
		resetFlag = "1"
	}
	vals, err := usageScript.Run(ctx, s.Client, []string{redisKey(userID)},
		s.Defaults.Plan,
		s.Defaults.Limit,
		int64(s.Defaults.Period/time.Second),
		time.Now().UTC().Unix(),
		n,
		resetFlag,
	).Slice()
	if err != nil {
		return Usage{}, fmt.Errorf("redis usage script: %w", err)
	}
	return parseUsageReply(vals)
}

func redisKey(userID string) string {
	return "usage:" + userID
}

func parseUsageReply(vals []any) (Usage, error) {
	if len(vals) != 4 {
		return Usage{}, fmt.Errorf("redis usage reply: expected 4 fields, got %d", len(vals))
	}
	fields := make([]string, len(vals))
	for i, v := range vals {
		switch t := v.(type) {
		case string:
			fields[i] = t
		case int64:
			fields[i] = strconv.FormatInt(t, 10)
		default:
			return Usage{}, fmt.Errorf("redis usage reply: field %d has type %T", i, v)
		}
	}

	limit, err := strconv.Atoi(fields[1])
	if err != nil {
		return Usage{}, fmt.Errorf("redis usage reply: limit: %w", err)
	}
	used, err := strconv.Atoi(fields[2])
	if err != nil {
		return Usage{}, fmt.Errorf("redis usage reply: used: %w", err)
	}
	resetsAt, err := strconv.ParseInt(fields[3], 10, 64)
	if err != nil {
		return Usage{}, fmt.Errorf("redis usage reply: resets_at: %w", err)
	}
	return Usage{
		Plan:     fields[0],
		Limit:    limit,
		Used:     used,
		ResetsAt: time.Unix(resetsAt, 0).UTC(),
	}, nil
}

var _ Store = (*RedisStore)(nil)
