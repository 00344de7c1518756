package main

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/joho/godotenv"
	kafkago "github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	"github.com/ludojoy/wager-platform/internal/engine"
	"github.com/ludojoy/wager-platform/internal/notify"
	sharedcache "github.com/ludojoy/wager-platform/internal/shared/cache"
	"github.com/ludojoy/wager-platform/internal/shared/config"
	"github.com/ludojoy/wager-platform/internal/shared/db"
	"github.com/ludojoy/wager-platform/internal/shared/kafka"
	"github.com/ludojoy/wager-platform/internal/shared/logger"
	"github.com/ludojoy/wager-platform/internal/shared/metrics"
	"github.com/ludojoy/wager-platform/internal/storage"
	"github.com/ludojoy/wager-platform/internal/storage/postgres"
	ev "github.com/ludojoy/wager-platform/pkg/contracts/events"
)

// settlement-worker consome resultados de partida e liquida as apostas.
// SettleBet é idempotente, então um resultado reentregue (timeout do
// colaborador, rebalanceamento do consumer group) nunca paga em dobro.
func main() {
	_ = godotenv.Load()
	cfg := config.Load()

	log, err := logger.New("settlement-worker", cfg.Env)
	if err != nil {
		panic(err)
	}
	defer log.Sync()

	pg, err := db.ConnectPostgres(cfg.PostgresDSN)
	if err != nil {
		log.Fatal("pg connect", zap.Error(err))
	}
	defer pg.Close()

	redisClient, err := sharedcache.ConnectRedis(cfg.RedisAddr)
	if err != nil {
		log.Fatal("redis connect", zap.Error(err))
	}
	defer redisClient.Close()

	store := postgres.New(pg)
	broadcaster := notify.NewRedisBroadcaster(redisClient, cfg.RedisPubSubChannel, log)
	eng := engine.New(log, store, engine.Policy{
		MinBetAmount:      cfg.MinBetAmount,
		MinDepositAmount:  cfg.MinDepositAmount,
		MinWithdrawAmount: cfg.MinWithdrawAmount,
	}, broadcaster)

	reader := kafka.NewReader(cfg.KafkaBrokers, cfg.TopicGameResults, "settlement-worker")
	defer reader.Close()

	settledWriter := kafka.NewWriter(cfg.KafkaBrokers, cfg.TopicBetSettled)
	defer settledWriter.Close()

	var dlqWriter *kafkago.Writer
	if cfg.TopicGameResultsDLQ != "" {
		dlqWriter = kafka.NewWriter(cfg.KafkaBrokers, cfg.TopicGameResultsDLQ)
		defer dlqWriter.Close()
	}

	metrics.StartMetricsServer(cfg.MetricsPort, func(ctx context.Context) error {
		return pg.PingContext(ctx)
	})

	log.Info("settlement-worker started",
		zap.String("consume", cfg.TopicGameResults),
		zap.String("publish", cfg.TopicBetSettled),
	)

	ctx := context.Background()

	for {
		msg, err := reader.ReadMessage(ctx)
		if err != nil {
			log.Warn("kafka read", zap.Error(err))
			time.Sleep(time.Second)
			continue
		}

		var result ev.GameResult
		if jerr := json.Unmarshal(msg.Value, &result); jerr != nil {
			log.Error("unmarshal game_result", zap.Error(jerr))
			if dlqWriter != nil {
				_ = kafka.WriteJSON(ctx, dlqWriter, string(msg.Key), msg.Value)
			}
			continue
		}

		if err := processOne(ctx, log, eng, settledWriter, &result); err != nil {
			log.Error("settle bet", zap.String("betId", result.BetID), zap.Error(err))
			if dlqWriter != nil {
				_ = kafka.WriteJSON(ctx, dlqWriter, result.BetID, msg.Value)
			}
			time.Sleep(500 * time.Millisecond)
		}
	}
}

// processOne liquida uma aposta e publica bet_settled. ErrAlreadySettled é
// tratado como sucesso: o resultado já foi aplicado numa entrega anterior.
func processOne(ctx context.Context, log *zap.Logger, eng *engine.Engine, settledWriter *kafkago.Writer, result *ev.GameResult) error {
	opCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	bet, err := eng.SettleBet(opCtx, result.BetID, result.WinnerID)
	if errors.Is(err, engine.ErrContention) {
		// entrega será re-tentada pelo broker
		return err
	}
	if errors.Is(err, storage.ErrAlreadySettled) {
		log.Info("bet already settled, skipping", zap.String("betId", result.BetID))
		return nil
	}
	if err != nil {
		return err
	}

	evc := ev.BetSettled{
		BetID:       bet.BetID,
		WinnerID:    bet.WinnerID,
		PayoutUnits: 2 * bet.Amount,
		Ts:          time.Now(),
	}
	payload, _ := json.Marshal(evc)
	return kafka.WriteJSON(ctx, settledWriter, bet.BetID, payload)
}
