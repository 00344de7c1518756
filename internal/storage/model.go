package storage

import "time"

// Status possíveis de uma aposta. Transições válidas:
// open -> matched -> settled; open -> cancelled; matched -> cancelled (void).
const (
	BetOpen      = "open"
	BetMatched   = "matched"
	BetSettled   = "settled"
	BetCancelled = "cancelled"
)

// Tipos de lançamento no extrato. O sinal é derivado do tipo:
// deposit/bet_payout/bet_refund creditam, withdraw/bet_stake debitam.
const (
	TxDeposit   = "deposit"
	TxWithdraw  = "withdraw"
	TxBetStake  = "bet_stake"
	TxBetPayout = "bet_payout"
	TxBetRefund = "bet_refund"
)

const (
	TxPending = "pending"
	TxSuccess = "success"
	TxFailed  = "failed"
)

// Account é o registro de saldo de um usuário.
// Version cresce a cada mutação e é o token de concorrência otimista.
type Account struct {
	UserID    string
	Balance   int64 // unidades mínimas, nunca negativo
	Version   int64
	CreatedAt time.Time
}

// Bet é o registro durável de uma aposta e do valor em custódia.
// Enquanto matched, os dois stakes pertencem à aposta, não às contas.
type Bet struct {
	BetID      string
	CreatorID  string
	OpponentID string // vazio até o pareamento
	Amount     int64  // stake de cada lado
	Status     string
	RoomCode   string
	GameType   string // tag de categoria usada na listagem ("classic", "popular")
	CreatedAt  time.Time
	SettledAt  time.Time // zero até a liquidação
	WinnerID   string    // vazio até a liquidação
}

// Transaction é um lançamento do extrato, nunca editado depois de success;
// a única transição permitida é pending -> success|failed (saques).
type Transaction struct {
	TransactionID string
	UserID        string
	Kind          string
	Amount        int64 // sempre positivo; sinal vem do Kind
	RelatedBetID  string
	GatewayRef    string // referência do gateway, chave de idempotência de depósitos
	Status        string
	Timestamp     time.Time
}

// Signed devolve o valor do lançamento com o sinal do seu tipo.
func (t Transaction) Signed() int64 {
	switch t.Kind {
	case TxWithdraw, TxBetStake:
		return -t.Amount
	default:
		return t.Amount
	}
}

// Stats agrega os totais exibidos no painel administrativo.
type Stats struct {
	TotalAccounts   int64
	TotalBets       int64
	TotalDeposited  int64 // soma de deposits success
	TotalWithdrawn  int64 // soma de withdraws success
	OpenBets        int64
	PendingWithdraw int64 // soma de withdraws pendentes
}
