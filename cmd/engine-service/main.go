package main

import (
	"context"
	"net/http"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/ludojoy/wager-platform/internal/engine"
	httpapi "github.com/ludojoy/wager-platform/internal/engine-service/http"
	"github.com/ludojoy/wager-platform/internal/engine-service/producer"
	"github.com/ludojoy/wager-platform/internal/engine-service/ws"
	"github.com/ludojoy/wager-platform/internal/listing"
	"github.com/ludojoy/wager-platform/internal/notify"
	sharedcache "github.com/ludojoy/wager-platform/internal/shared/cache"
	"github.com/ludojoy/wager-platform/internal/shared/config"
	"github.com/ludojoy/wager-platform/internal/shared/db"
	sharedkafka "github.com/ludojoy/wager-platform/internal/shared/kafka"
	"github.com/ludojoy/wager-platform/internal/shared/logger"
	"github.com/ludojoy/wager-platform/internal/shared/metrics"
	"github.com/ludojoy/wager-platform/internal/storage/postgres"
)

func main() {
	_ = godotenv.Load()
	cfg := config.Load()

	log, err := logger.New("engine-service", cfg.Env)
	if err != nil {
		panic(err)
	}
	defer log.Sync()
	log.Info("starting service", zap.String("env", cfg.Env))

	// Postgres: backend durável do ledger, das apostas e do extrato
	pg, err := db.ConnectPostgres(cfg.PostgresDSN)
	if err != nil {
		log.Fatal("postgres connect", zap.Error(err))
	}
	defer pg.Close()

	// Redis: cache de listagem + broadcast pós-commit
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

	// Publisher de eventos bet_matched para consumidores downstream
	matchedWriter := sharedkafka.NewWriter(cfg.KafkaBrokers, cfg.TopicBetMatched)
	defer matchedWriter.Close()
	publ := producer.NewKafkaPublisher(matchedWriter, cfg.TopicBetMatched)

	listingCache := listing.New(redisClient, 5*time.Second)
	api := httpapi.NewServer(log, eng, listingCache, publ)

	// Hub WS alimentado pelo canal Redis de mudanças pós-commit
	hub := ws.NewHub(func(r *http.Request) bool { return true })
	ws.StartRedisSubscriber(context.Background(), redisClient, cfg.RedisPubSubChannel, hub)

	mux := http.NewServeMux()
	mux.Handle("/", api.Router())
	mux.HandleFunc("/ws", hub.HandleWS)

	apiSrv := &http.Server{
		Addr:    ":" + cfg.HTTPPort, // ex: 8082
		Handler: mux,
	}

	// Servidor de métricas e health check em porta separada
	metrics.StartMetricsServer(cfg.MetricsPort, func(ctx context.Context) error {
		return pg.PingContext(ctx)
	})
	log.Info("metrics/health listening", zap.String("port", cfg.MetricsPort))

	log.Info("api listening", zap.String("addr", apiSrv.Addr))
	if err := apiSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Fatal("api srv", zap.Error(err))
	}
}
