package ws

import (
	"context"
	"encoding/json"
	"log"

	"github.com/redis/go-redis/v9"

	"github.com/ludojoy/wager-platform/internal/notify"
)

// StartRedisSubscriber inicia uma goroutine que escuta o canal Redis Pub/Sub
// de mudanças pós-commit e repassa cada uma aos clientes WebSocket inscritos.
//
// Funcionamento:
// - Recebe mensagens JSON do canal Redis
// - Desserializa para notify.Change
// - Chama hub.Broadcast para entregar aos tópicos correspondentes
func StartRedisSubscriber(ctx context.Context, r *redis.Client, channel string, hub *Hub) {
	if channel == "" {
		channel = notify.ChannelWalletBroadcast
	}
	sub := r.Subscribe(ctx, channel)
	ch := sub.Channel()
	go func() {
		for {
			select {
			case <-ctx.Done():
				_ = sub.Close() // encerra a inscrição ao finalizar o contexto
				return
			case msg := <-ch:
				if msg == nil {
					continue
				}
				var change notify.Change
				if err := json.Unmarshal([]byte(msg.Payload), &change); err != nil {
					log.Printf("ws subscriber unmarshal error: %v", err)
					continue
				}
				hub.Broadcast(change)
			}
		}
	}()
}
