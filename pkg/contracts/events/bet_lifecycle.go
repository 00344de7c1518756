package events

import "time"

// Evento emitido pelo engine-service quando um oponente entra numa aposta.
type BetMatched struct {
	BetID       string `json:"bet_id"`
	CreatorID   string `json:"creator_id"`
	OpponentID  string `json:"opponent_id"`
	AmountUnits int64  `json:"amount_units"`
	RoomCode    string `json:"room_code"`
	TsUnixMs    int64  `json:"ts_unix_ms"`
}

// Evento emitido pelo settlement-worker após liquidar uma aposta.
type BetSettled struct {
	BetID       string    `json:"bet_id"`
	WinnerID    string    `json:"winner_id"`
	PayoutUnits int64     `json:"payout_units"` // 2x o valor da aposta
	Ts          time.Time `json:"ts"`
}
