package notify

import (
	"context"
	"encoding/json"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/ludojoy/wager-platform/internal/storage"
)

// Canal Redis Pub/Sub usado para broadcast pós-commit de contas e apostas.
const ChannelWalletBroadcast = "wallet_updates_broadcast"

// Change é o payload publicado no canal; o hub WS repassa para os clientes
// inscritos por userId/betId.
type Change struct {
	Kind    string `json:"kind"` // "account" | "bet"
	UserID  string `json:"userId,omitempty"`
	BetID   string `json:"betId,omitempty"`
	Payload any    `json:"payload"`
}

type AccountPayload struct {
	UserID  string `json:"userId"`
	Balance int64  `json:"balance_units"`
	Version int64  `json:"version"`
}

type BetPayload struct {
	BetID      string `json:"betId"`
	CreatorID  string `json:"creatorId"`
	OpponentID string `json:"opponentId,omitempty"`
	Amount     int64  `json:"amount_units"`
	Status     string `json:"status"`
	RoomCode   string `json:"roomCode"`
	GameType   string `json:"gameType"`
	WinnerID   string `json:"winnerId,omitempty"`
}

// RedisBroadcaster implementa engine.Notifier publicando no Redis Pub/Sub.
// Fica fora do caminho crítico de escrita: erro aqui só gera log.
type RedisBroadcaster struct {
	r       *redis.Client
	channel string
	log     *zap.Logger
}

func NewRedisBroadcaster(r *redis.Client, channel string, log *zap.Logger) *RedisBroadcaster {
	if channel == "" {
		channel = ChannelWalletBroadcast
	}
	return &RedisBroadcaster{r: r, channel: channel, log: log}
}

func (b *RedisBroadcaster) AccountChanged(ctx context.Context, a storage.Account) {
	b.publish(ctx, Change{
		Kind:   "account",
		UserID: a.UserID,
		Payload: AccountPayload{
			UserID:  a.UserID,
			Balance: a.Balance,
			Version: a.Version,
		},
	})
}

func (b *RedisBroadcaster) BetChanged(ctx context.Context, bet storage.Bet) {
	b.publish(ctx, Change{
		Kind:  "bet",
		BetID: bet.BetID,
		Payload: BetPayload{
			BetID:      bet.BetID,
			CreatorID:  bet.CreatorID,
			OpponentID: bet.OpponentID,
			Amount:     bet.Amount,
			Status:     bet.Status,
			RoomCode:   bet.RoomCode,
			GameType:   bet.GameType,
			WinnerID:   bet.WinnerID,
		},
	})
}

func (b *RedisBroadcaster) publish(ctx context.Context, c Change) {
	payload, err := json.Marshal(c)
	if err != nil {
		b.log.Error("notify marshal", zap.Error(err))
		return
	}
	if err := b.r.Publish(ctx, b.channel, payload).Err(); err != nil {
		b.log.Warn("notify publish", zap.Error(err))
	}
}
