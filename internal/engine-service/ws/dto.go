package ws

// ClientMsg representa uma mensagem recebida do cliente WebSocket.
// Type: subscribe | unsubscribe | ping
// Topic: "user:<userId>" ou "bet:<betId>", obrigatório em subscribe/unsubscribe
type ClientMsg struct {
	Type  string `json:"type"`
	Topic string `json:"topic"`
}
