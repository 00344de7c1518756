package listing

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/ludojoy/wager-platform/internal/storage"
)

// Cache guarda a listagem de apostas open por categoria no Redis com TTL
// curto. A listagem é consistente eventualmente: o TTL limita o atraso e as
// mutações do engine não a invalidam no caminho de escrita.
type Cache struct {
	R   *redis.Client
	TTL time.Duration
}

func New(r *redis.Client, ttl time.Duration) *Cache { return &Cache{R: r, TTL: ttl} }

func key(gameType string) string {
	if gameType == "" {
		return "bets:open:all"
	}
	return "bets:open:" + gameType
}

func (c *Cache) Get(ctx context.Context, gameType string) ([]storage.Bet, bool, error) {
	b, err := c.R.Get(ctx, key(gameType)).Bytes()
	if err == redis.Nil {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	var out []storage.Bet
	if err := json.Unmarshal(b, &out); err != nil {
		return nil, false, err
	}
	return out, true, nil
}

func (c *Cache) Set(ctx context.Context, gameType string, bets []storage.Bet) error {
	b, err := json.Marshal(bets)
	if err != nil {
		return err
	}
	return c.R.Set(ctx, key(gameType), b, c.TTL).Err()
}
