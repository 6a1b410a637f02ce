package redis

import (
	"context"
	"encoding/json"
	"strconv"
	"strings"
	"time"

	"crownbidder/internal/domain"

	"github.com/go-redis/redis/v8"
)

const scheduleKey = "auction_transition_schedule"

// RedisScheduleQueue holds scheduled status transitions in a sorted set
// scored by run time. Due jobs are claimed atomically, so with several
// gateway instances a job fires once.
type RedisScheduleQueue struct {
	client *redis.Client
}

func NewRedisScheduleQueue(client *redis.Client) *RedisScheduleQueue {
	return &RedisScheduleQueue{client: client}
}

func (r *RedisScheduleQueue) Enqueue(ctx context.Context, job *domain.TransitionJob) error {
	data, err := json.Marshal(job)
	if err != nil {
		return err
	}
	return r.client.ZAdd(ctx, scheduleKey, &redis.Z{
		Score:  float64(job.RunAt.Unix()),
		Member: string(data),
	}).Err()
}

// Due removes and returns every job whose run time has passed.
func (r *RedisScheduleQueue) Due(ctx context.Context, before time.Time) ([]*domain.TransitionJob, error) {
	max := strconv.FormatInt(before.Unix(), 10)

	luaScript := `
        local due = redis.call('ZRANGEBYSCORE', KEYS[1], '-inf', ARGV[1])
        if #due > 0 then
            redis.call('ZREMRANGEBYSCORE', KEYS[1], '-inf', ARGV[1])
        end
        return due
    `
	result, err := r.client.Eval(ctx, luaScript, []string{scheduleKey}, max).Result()
	if err != nil {
		return nil, err
	}

	var jobs []*domain.TransitionJob
	for _, raw := range result.([]interface{}) {
		var job domain.TransitionJob
		if err := json.Unmarshal([]byte(raw.(string)), &job); err != nil {
			continue
		}
		jobs = append(jobs, &job)
	}
	return jobs, nil
}

func (r *RedisScheduleQueue) CancelForAuction(ctx context.Context, auctionID string) error {
	members, err := r.client.ZRange(ctx, scheduleKey, 0, -1).Result()
	if err != nil {
		return err
	}

	needle := `"auction_id":"` + auctionID + `"`
	for _, member := range members {
		if strings.Contains(member, needle) {
			if err := r.client.ZRem(ctx, scheduleKey, member).Err(); err != nil {
				return err
			}
		}
	}
	return nil
}
