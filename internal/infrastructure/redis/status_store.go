package redis

import (
	"context"
	"fmt"

	"crownbidder/internal/domain"

	"github.com/go-redis/redis/v8"
)

// RedisStatusStore holds the one authoritative status per auction.
type RedisStatusStore struct {
	client *redis.Client
}

func NewRedisStatusStore(client *redis.Client) *RedisStatusStore {
	return &RedisStatusStore{client: client}
}

func statusKey(auctionID string) string {
	return fmt.Sprintf("auction:%s:status", auctionID)
}

func (r *RedisStatusStore) SetStatus(ctx context.Context, auctionID string, status domain.AuctionStatus) error {
	return r.client.Set(ctx, statusKey(auctionID), string(status), 0).Err()
}

func (r *RedisStatusStore) GetStatus(ctx context.Context, auctionID string) (domain.AuctionStatus, error) {
	result, err := r.client.Get(ctx, statusKey(auctionID)).Result()
	if err != nil {
		if err == redis.Nil {
			return "", domain.ErrAuctionNotFound
		}
		return "", err
	}
	return domain.ParseAuctionStatus(result)
}

// CompareAndSetStatus swaps the status atomically, so two instances racing
// the same legality check cannot both win.
func (r *RedisStatusStore) CompareAndSetStatus(ctx context.Context, auctionID string, from, to domain.AuctionStatus) (bool, error) {
	luaScript := `
        if redis.call('GET', KEYS[1]) == ARGV[1] then
            redis.call('SET', KEYS[1], ARGV[2])
            return 1
        end
        return 0
    `
	result, err := r.client.Eval(ctx, luaScript, []string{statusKey(auctionID)}, string(from), string(to)).Result()
	if err != nil {
		return false, err
	}
	return result.(int64) == 1, nil
}
