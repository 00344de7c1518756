package events

import "time"

// Evento consumido do tópico "game_results": o colaborador de resultado de
// partida declara o vencedor de uma aposta já pareada.
type GameResult struct {
	BetID    string    `json:"bet_id"`
	WinnerID string    `json:"winner_id"`
	Ts       time.Time `json:"ts"`
}
