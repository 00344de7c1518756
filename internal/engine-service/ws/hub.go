package ws

import (
	"encoding/json"
	"net/http"
	"sync"

	"github.com/gorilla/websocket"

	"github.com/ludojoy/wager-platform/internal/notify"
)

// Hub gerencia conexões WebSocket e assinaturas de tópicos de projeção
// (saldo por usuário, status por aposta).
// subs: mapeia tópico para o conjunto de conexões inscritas.
type Hub struct {
	upgrader websocket.Upgrader
	mu       sync.RWMutex
	// topic -> set of connections
	subs map[string]map[*websocket.Conn]struct{}
}

// NewHub cria uma instância de Hub com política customizada de origem (CORS)
func NewHub(allowOrigin func(r *http.Request) bool) *Hub {
	return &Hub{
		upgrader: websocket.Upgrader{CheckOrigin: allowOrigin},
		subs:     make(map[string]map[*websocket.Conn]struct{}),
	}
}

// HandleWS gerencia o ciclo de vida de uma conexão WebSocket.
// Cada cliente pode assinar múltiplos tópicos ("user:<id>", "bet:<id>").
func (h *Hub) HandleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	defer conn.Close()

	for {
		var msg ClientMsg
		if err := conn.ReadJSON(&msg); err != nil {
			break
		}
		switch msg.Type {
		case "subscribe":
			h.mu.Lock()
			if _, ok := h.subs[msg.Topic]; !ok {
				h.subs[msg.Topic] = make(map[*websocket.Conn]struct{})
			}
			h.subs[msg.Topic][conn] = struct{}{}
			h.mu.Unlock()
		case "unsubscribe":
			h.mu.Lock()
			if m, ok := h.subs[msg.Topic]; ok {
				delete(m, conn)
				if len(m) == 0 {
					delete(h.subs, msg.Topic)
				}
			}
			h.mu.Unlock()
		case "ping":
			_ = conn.WriteJSON(map[string]string{"type": "pong"})
		}
	}
	// Remove a conexão de todas as assinaturas ao desconectar
	h.mu.Lock()
	for _, set := range h.subs {
		delete(set, conn)
	}
	h.mu.Unlock()
}

// Broadcast entrega uma mudança pós-commit a todos os inscritos no tópico
// correspondente (user:<id> para contas, bet:<id> para apostas).
func (h *Hub) Broadcast(change notify.Change) {
	topic := topicFor(change)
	if topic == "" {
		return
	}

	h.mu.RLock()
	conns := h.subs[topic]
	h.mu.RUnlock()
	if len(conns) == 0 {
		return
	}

	b, _ := json.Marshal(change)
	for c := range conns {
		_ = c.WriteMessage(websocket.TextMessage, b)
	}
}

func topicFor(change notify.Change) string {
	switch change.Kind {
	case "account":
		return "user:" + change.UserID
	case "bet":
		return "bet:" + change.BetID
	}
	return ""
}
