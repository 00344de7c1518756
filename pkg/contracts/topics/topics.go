package topics

const (
	// Depósitos (gateway de pagamento -> deposit-worker)
	DepositConfirmed    = "deposit_confirmed"
	DepositConfirmedDLQ = "deposit_confirmed_dlq"

	// Resultados de partida (colaborador externo -> settlement-worker)
	GameResults    = "game_results"
	GameResultsDLQ = "game_results_dlq"

	// Ciclo de vida das apostas (publicado pelo engine-service / settlement-worker)
	BetMatched = "bet_matched"
	BetSettled = "bet_settled"
)
