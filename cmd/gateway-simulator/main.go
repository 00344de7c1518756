package main

import (
	"context"
	"encoding/json"
	"math/rand"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/ludojoy/wager-platform/internal/shared/config"
	sharedkafka "github.com/ludojoy/wager-platform/internal/shared/kafka"
	"github.com/ludojoy/wager-platform/internal/shared/logger"
	"github.com/ludojoy/wager-platform/internal/shared/metrics"
	ev "github.com/ludojoy/wager-platform/pkg/contracts/events"
)

// gateway-simulator faz o papel do gateway de pagamento em ambiente local:
// aceita um pedido de depósito, decide sucesso/falha e publica a confirmação
// verificada no tópico deposit_confirmed. De vez em quando reentrega a mesma
// confirmação, como um gateway real com entrega at-least-once faria.

var (
	paymentsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "gateway_payments_total",
		Help: "Pagamentos simulados por resultado",
	}, []string{"outcome"})
	confirmationsSent = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "gateway_confirmations_sent_total",
		Help: "Confirmações publicadas no Kafka (inclui reentregas)",
	})
)

type payRequest struct {
	UserID      string `json:"userId"`
	AmountUnits int64  `json:"amount_units"`
}

type payResponse struct {
	GatewayRef string `json:"gateway_ref"`
	Outcome    string `json:"outcome"`
}

func main() {
	_ = godotenv.Load()
	cfg := config.Load()

	log, err := logger.New("gateway-simulator", cfg.Env)
	if err != nil {
		panic(err)
	}
	defer log.Sync()

	prometheus.MustRegister(paymentsTotal, confirmationsSent)

	writer := sharedkafka.NewWriter(cfg.KafkaBrokers, cfg.TopicDepositConfirmed)
	defer writer.Close()

	metrics.StartMetricsServer(cfg.MetricsPort, func(ctx context.Context) error { return nil })

	mux := http.NewServeMux()
	mux.HandleFunc("/gateway/pay", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		defer r.Body.Close()

		var req payRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.UserID == "" || req.AmountUnits <= 0 {
			http.Error(w, "bad request", http.StatusBadRequest)
			return
		}

		outcome := ev.OutcomeSuccess
		if rand.Intn(100) >= 80 { // 80% sucesso
			outcome = ev.OutcomeFailure
		}
		paymentsTotal.WithLabelValues(outcome).Inc()

		conf := ev.DepositConfirmed{
			UserID:      req.UserID,
			AmountUnits: req.AmountUnits,
			GatewayRef:  "PAY-" + uuid.NewString()[:8],
			Outcome:     outcome,
			Ts:          time.Now(),
		}
		payload, _ := json.Marshal(conf)

		publish := func() {
			if err := sharedkafka.WriteJSON(r.Context(), writer, conf.GatewayRef, payload); err != nil {
				log.Error("publish confirmation", zap.Error(err))
				return
			}
			confirmationsSent.Inc()
		}
		publish()
		if outcome == ev.OutcomeSuccess && rand.Intn(10) == 0 {
			// reentrega duplicada: o consumidor precisa ser idempotente
			publish()
		}

		log.Info("payment processed",
			zap.String("userId", req.UserID),
			zap.Int64("amount", req.AmountUnits),
			zap.String("gatewayRef", conf.GatewayRef),
			zap.String("outcome", outcome))

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(payResponse{GatewayRef: conf.GatewayRef, Outcome: outcome})
	})

	srv := &http.Server{Addr: ":" + cfg.HTTPPort, Handler: mux}
	log.Info("gateway-simulator listening", zap.String("addr", srv.Addr))
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Fatal("http srv", zap.Error(err))
	}
}
