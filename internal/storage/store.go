package storage

import "context"

// LedgerStore guarda o saldo por usuário. Debit e Credit exigem amount > 0;
// a checagem de saldo e o commit fazem parte do mesmo passo atômico.
type LedgerStore interface {
	// Ensure cria a conta com saldo zero se ainda não existir.
	Ensure(ctx context.Context, userID string) (Account, error)
	Get(ctx context.Context, userID string) (Account, error)
	// Debit falha com ErrInsufficientFunds quando balance - amount < 0
	// e com ErrConflict quando o CAS de versão esgota as tentativas.
	Debit(ctx context.Context, userID string, amount int64) (Account, error)
	Credit(ctx context.Context, userID string, amount int64) (Account, error)
}

// BetRegistry guarda as apostas e os stakes em custódia.
type BetRegistry interface {
	// CreateOpen persiste uma aposta open e devolve o registro com ID gerado.
	CreateOpen(ctx context.Context, b Bet) (Bet, error)
	Get(ctx context.Context, betID string) (Bet, error)
	// TryMatch garante no máximo um oponente por aposta: a transição
	// open -> matched é condicionada ao status ainda ser open no commit.
	TryMatch(ctx context.Context, betID, opponentID string) (Bet, error)
	Settle(ctx context.Context, betID, winnerID string) (Bet, error)
	CancelOpen(ctx context.Context, betID string) (Bet, error)
	VoidMatched(ctx context.Context, betID string) (Bet, error)
}

// Journal é o extrato append-only. Nenhum lançamento success é editado;
// a única mutação permitida é ResolveWithdraw (pending -> success|failed).
type Journal interface {
	// Record falha com ErrDuplicateRef se já houver lançamento com o mesmo
	// GatewayRef não-vazio (replay de confirmação do gateway).
	Record(ctx context.Context, t Transaction) (Transaction, error)
	Get(ctx context.Context, transactionID string) (Transaction, error)
	GetByGatewayRef(ctx context.Context, gatewayRef string) (Transaction, error)
	ResolveWithdraw(ctx context.Context, transactionID, status string) (Transaction, error)
}

// Unit dá acesso aos três componentes dentro de uma mesma unidade atômica.
type Unit interface {
	Ledger() LedgerStore
	Bets() BetRegistry
	Journal() Journal
}

// Store é o contrato de persistência do engine. Atomic executa fn dentro de
// uma unidade: ou tudo que fn escreveu é aplicado, ou nada é.
//
// As projeções de leitura ficam fora das unidades e não precisam ser
// linearizáveis com escritas concorrentes (consistência eventual serve
// para listagens).
type Store interface {
	Atomic(ctx context.Context, fn func(u Unit) error) error

	Account(ctx context.Context, userID string) (Account, error)
	Bet(ctx context.Context, betID string) (Bet, error)
	OpenBets(ctx context.Context, gameType string) ([]Bet, error)
	Transactions(ctx context.Context, userID string) ([]Transaction, error)
	// SumSigned devolve a soma com sinal dos lançamentos do usuário que já
	// afetaram o saldo: status success mais saques pending (o débito do saque
	// acontece no pedido). Invariante de reconciliação: bate com Account.Balance.
	SumSigned(ctx context.Context, userID string) (int64, error)
	Stats(ctx context.Context) (Stats, error)
}
