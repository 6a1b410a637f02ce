package redis

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/go-redis/redis/v8"
)

// RedisLedger is a minimal authoritative bid surface: an atomic
// highest-bid compare per (auction, item). Ranking and reserve-price policy
// are out of scope; this only decides accept or reject for a submission.
type RedisLedger struct {
	client *redis.Client
}

func NewRedisLedger(client *redis.Client) *RedisLedger {
	return &RedisLedger{client: client}
}

func itemLedgerKey(auctionID string, itemIndex int) string {
	return fmt.Sprintf("ledger:%s:%d", auctionID, itemIndex)
}

// PlaceBid accepts the bid iff it strictly exceeds the current high bid for
// the item. The compare and write are one Lua call, so two concurrent
// submissions cannot both win with the same amount.
func (r *RedisLedger) PlaceBid(ctx context.Context, auctionID string, itemIndex int, bidderID string, amount float64) (bool, string, error) {
	luaScript := `
        local current = redis.call('HGET', KEYS[1], 'high_bid')
        local new_amount = tonumber(ARGV[1])

        if current ~= false and new_amount <= tonumber(current) then
            return {0, current}
        end

        redis.call('HSET', KEYS[1],
            'high_bid', ARGV[1],
            'high_bidder', ARGV[2],
            'updated_at', ARGV[3])
        return {1, ARGV[1]}
    `

	result, err := r.client.Eval(ctx, luaScript,
		[]string{itemLedgerKey(auctionID, itemIndex)},
		strconv.FormatFloat(amount, 'f', 2, 64),
		bidderID,
		strconv.FormatInt(time.Now().Unix(), 10)).Result()
	if err != nil {
		return false, "", err
	}

	resultSlice := result.([]interface{})
	accepted := resultSlice[0].(int64) == 1
	if accepted {
		return true, "", nil
	}
	return false, fmt.Sprintf("bid must exceed current high bid of %v", resultSlice[1]), nil
}

// HighBid reports the current high bid for an item, zero if nobody has bid.
func (r *RedisLedger) HighBid(ctx context.Context, auctionID string, itemIndex int) (float64, string, error) {
	result, err := r.client.HMGet(ctx, itemLedgerKey(auctionID, itemIndex), "high_bid", "high_bidder").Result()
	if err != nil {
		return 0, "", err
	}

	amount := 0.0
	bidder := ""
	if result[0] != nil {
		amount, _ = strconv.ParseFloat(result[0].(string), 64)
	}
	if result[1] != nil {
		bidder = result[1].(string)
	}
	return amount, bidder, nil
}
