package events

import "time"

const (
	OutcomeSuccess = "success"
	OutcomeFailure = "failure"
)

// Evento publicado pelo gateway de pagamento no tópico "deposit_confirmed".
// Somente outcome=success chega a creditar saldo; o worker descarta failures.
type DepositConfirmed struct {
	UserID      string    `json:"user_id"`
	AmountUnits int64     `json:"amount_units"`
	GatewayRef  string    `json:"gateway_ref"` // referência externa, chave de idempotência
	Outcome     string    `json:"outcome"`     // "success" | "failure"
	Ts          time.Time `json:"ts"`
}
