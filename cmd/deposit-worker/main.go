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
	"github.com/ludojoy/wager-platform/internal/storage/postgres"
	ev "github.com/ludojoy/wager-platform/pkg/contracts/events"
)

// deposit-worker é o único caminho entre o gateway de pagamento e o saldo:
// consome confirmações verificadas do tópico deposit_confirmed e credita via
// engine. Nunca credita a partir de afirmação do cliente.
func main() {
	_ = godotenv.Load()
	cfg := config.Load()

	log, err := logger.New("deposit-worker", cfg.Env)
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

	reader := kafka.NewReader(cfg.KafkaBrokers, cfg.TopicDepositConfirmed, "deposit-worker")
	defer reader.Close()

	var dlqWriter *kafkago.Writer
	if cfg.TopicDepositConfirmedDLQ != "" {
		dlqWriter = kafka.NewWriter(cfg.KafkaBrokers, cfg.TopicDepositConfirmedDLQ)
		defer dlqWriter.Close()
	}

	metrics.StartMetricsServer(cfg.MetricsPort, func(ctx context.Context) error {
		return pg.PingContext(ctx)
	})

	log.Info("deposit-worker started", zap.String("consume", cfg.TopicDepositConfirmed))

	ctx := context.Background()

	// Loop principal: consome confirmações do gateway e credita depósitos
	for {
		msg, err := reader.ReadMessage(ctx)
		if err != nil {
			log.Warn("kafka read", zap.Error(err))
			time.Sleep(time.Second)
			continue
		}

		var conf ev.DepositConfirmed
		if jerr := json.Unmarshal(msg.Value, &conf); jerr != nil {
			log.Error("unmarshal deposit_confirmed", zap.Error(jerr))
			if dlqWriter != nil {
				_ = kafka.WriteJSON(ctx, dlqWriter, string(msg.Key), msg.Value)
			}
			continue
		}

		if err := processOne(ctx, log, eng, &conf); err != nil {
			log.Error("process deposit", zap.String("gatewayRef", conf.GatewayRef), zap.Error(err))
			if dlqWriter != nil {
				_ = kafka.WriteJSON(ctx, dlqWriter, conf.GatewayRef, msg.Value)
			}
			// backoff simples para evitar flood em caso de erro
			time.Sleep(500 * time.Millisecond)
		}
	}
}

// processOne credita um depósito confirmado. Confirmações de falha são só
// registradas em log; replays do mesmo gatewayRef são inofensivos (o engine
// devolve o lançamento original). Valor abaixo do mínimo é rejeição
// definitiva, não vai pra DLQ.
func processOne(ctx context.Context, log *zap.Logger, eng *engine.Engine, conf *ev.DepositConfirmed) error {
	if conf.Outcome != ev.OutcomeSuccess {
		log.Info("deposit failed at gateway, skipping",
			zap.String("userId", conf.UserID),
			zap.String("gatewayRef", conf.GatewayRef))
		return nil
	}

	opCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	_, err := eng.RecordDeposit(opCtx, conf.UserID, conf.AmountUnits, conf.GatewayRef)
	if errors.Is(err, engine.ErrBelowMinimum) {
		log.Warn("deposit below minimum, rejected",
			zap.String("gatewayRef", conf.GatewayRef),
			zap.Int64("amount", conf.AmountUnits))
		return nil
	}
	return err
}
