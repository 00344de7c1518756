package memory

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/ludojoy/wager-platform/internal/storage"
)

// Store implementa storage.Store em memória. Um mutex único serializa as
// unidades atômicas (equivalente ao ator de escritor único); as escritas de
// uma unidade ficam num stage e só são aplicadas se fn retornar nil, então
// uma unidade que falha não deixa rastro.
//
// Usado nos testes do engine e como backend de desenvolvimento local.
type Store struct {
	mu       sync.Mutex
	accounts map[string]storage.Account
	bets     map[string]storage.Bet
	betOrder []string
	txs      map[string]storage.Transaction
	txOrder  []string
	byRef    map[string]string // gateway_ref -> transaction id
}

func New() *Store {
	return &Store{
		accounts: make(map[string]storage.Account),
		bets:     make(map[string]storage.Bet),
		txs:      make(map[string]storage.Transaction),
		byRef:    make(map[string]string),
	}
}

func (s *Store) Atomic(_ context.Context, fn func(u storage.Unit) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	u := newUnit(s)
	if err := fn(u); err != nil {
		return err
	}
	u.apply()
	return nil
}

// unit acumula escritas num stage; leituras enxergam stage antes da base.
type unit struct {
	s           *Store
	accounts    map[string]storage.Account
	bets        map[string]storage.Bet
	newBetIDs   []string
	txs         map[string]storage.Transaction
	newTxIDs    []string
	stagedByRef map[string]string
}

func newUnit(s *Store) *unit {
	return &unit{
		s:           s,
		accounts:    make(map[string]storage.Account),
		bets:        make(map[string]storage.Bet),
		txs:         make(map[string]storage.Transaction),
		stagedByRef: make(map[string]string),
	}
}

func (u *unit) apply() {
	for id, a := range u.accounts {
		u.s.accounts[id] = a
	}
	for id, b := range u.bets {
		u.s.bets[id] = b
	}
	u.s.betOrder = append(u.s.betOrder, u.newBetIDs...)
	for id, t := range u.txs {
		u.s.txs[id] = t
	}
	u.s.txOrder = append(u.s.txOrder, u.newTxIDs...)
	for ref, id := range u.stagedByRef {
		u.s.byRef[ref] = id
	}
}

func (u *unit) Ledger() storage.LedgerStore { return ledgerMem{u} }
func (u *unit) Bets() storage.BetRegistry   { return betsMem{u} }
func (u *unit) Journal() storage.Journal    { return journalMem{u} }

func (u *unit) account(userID string) (storage.Account, bool) {
	if a, ok := u.accounts[userID]; ok {
		return a, true
	}
	a, ok := u.s.accounts[userID]
	return a, ok
}

func (u *unit) bet(betID string) (storage.Bet, bool) {
	if b, ok := u.bets[betID]; ok {
		return b, true
	}
	b, ok := u.s.bets[betID]
	return b, ok
}

func (u *unit) tx(id string) (storage.Transaction, bool) {
	if t, ok := u.txs[id]; ok {
		return t, true
	}
	t, ok := u.s.txs[id]
	return t, ok
}

func (u *unit) txByRef(ref string) (storage.Transaction, bool) {
	if id, ok := u.stagedByRef[ref]; ok {
		return u.tx(id)
	}
	if id, ok := u.s.byRef[ref]; ok {
		return u.tx(id)
	}
	return storage.Transaction{}, false
}

// --- ledger ---

type ledgerMem struct{ u *unit }

func (l ledgerMem) Ensure(_ context.Context, userID string) (storage.Account, error) {
	if a, ok := l.u.account(userID); ok {
		return a, nil
	}
	a := storage.Account{UserID: userID, Balance: 0, Version: 1, CreatedAt: time.Now()}
	l.u.accounts[userID] = a
	return a, nil
}

func (l ledgerMem) Get(_ context.Context, userID string) (storage.Account, error) {
	a, ok := l.u.account(userID)
	if !ok {
		return storage.Account{}, storage.ErrNotFound
	}
	return a, nil
}

// O mutex do Store já serializa as unidades, então não há ciclo de retry:
// a leitura e o commit são o mesmo passo.
func (l ledgerMem) Debit(ctx context.Context, userID string, amount int64) (storage.Account, error) {
	return l.apply(ctx, userID, -amount)
}

func (l ledgerMem) Credit(ctx context.Context, userID string, amount int64) (storage.Account, error) {
	return l.apply(ctx, userID, amount)
}

func (l ledgerMem) apply(ctx context.Context, userID string, delta int64) (storage.Account, error) {
	a, err := l.Get(ctx, userID)
	if err != nil {
		return storage.Account{}, err
	}
	if a.Balance+delta < 0 {
		return storage.Account{}, storage.ErrInsufficientFunds
	}
	a.Balance += delta
	a.Version++
	l.u.accounts[userID] = a
	return a, nil
}

// --- bets ---

type betsMem struct{ u *unit }

func (b betsMem) CreateOpen(_ context.Context, in storage.Bet) (storage.Bet, error) {
	in.BetID = uuid.NewString()
	in.Status = storage.BetOpen
	in.CreatedAt = time.Now()
	b.u.bets[in.BetID] = in
	b.u.newBetIDs = append(b.u.newBetIDs, in.BetID)
	return in, nil
}

func (b betsMem) Get(_ context.Context, betID string) (storage.Bet, error) {
	bet, ok := b.u.bet(betID)
	if !ok {
		return storage.Bet{}, storage.ErrNotFound
	}
	return bet, nil
}

func (b betsMem) TryMatch(ctx context.Context, betID, opponentID string) (storage.Bet, error) {
	bet, err := b.Get(ctx, betID)
	if err != nil {
		return storage.Bet{}, err
	}
	if bet.CreatorID == opponentID {
		return storage.Bet{}, storage.ErrSelfMatch
	}
	if bet.Status != storage.BetOpen {
		return storage.Bet{}, storage.ErrAlreadyMatched
	}
	bet.Status = storage.BetMatched
	bet.OpponentID = opponentID
	b.u.bets[betID] = bet
	return bet, nil
}

func (b betsMem) Settle(ctx context.Context, betID, winnerID string) (storage.Bet, error) {
	bet, err := b.Get(ctx, betID)
	if err != nil {
		return storage.Bet{}, err
	}
	if bet.Status == storage.BetSettled {
		return storage.Bet{}, storage.ErrAlreadySettled
	}
	if bet.Status != storage.BetMatched {
		return storage.Bet{}, storage.ErrNotMatched
	}
	bet.Status = storage.BetSettled
	bet.WinnerID = winnerID
	bet.SettledAt = time.Now()
	b.u.bets[betID] = bet
	return bet, nil
}

func (b betsMem) CancelOpen(ctx context.Context, betID string) (storage.Bet, error) {
	bet, err := b.Get(ctx, betID)
	if err != nil {
		return storage.Bet{}, err
	}
	switch bet.Status {
	case storage.BetOpen:
	case storage.BetMatched:
		return storage.Bet{}, storage.ErrAlreadyMatched
	default:
		return storage.Bet{}, storage.ErrInvalidTransition
	}
	bet.Status = storage.BetCancelled
	b.u.bets[betID] = bet
	return bet, nil
}

func (b betsMem) VoidMatched(ctx context.Context, betID string) (storage.Bet, error) {
	bet, err := b.Get(ctx, betID)
	if err != nil {
		return storage.Bet{}, err
	}
	if bet.Status != storage.BetMatched {
		return storage.Bet{}, storage.ErrNotMatched
	}
	bet.Status = storage.BetCancelled
	b.u.bets[betID] = bet
	return bet, nil
}

// --- journal ---

type journalMem struct{ u *unit }

func (j journalMem) Record(_ context.Context, t storage.Transaction) (storage.Transaction, error) {
	if t.GatewayRef != "" {
		if _, ok := j.u.txByRef(t.GatewayRef); ok {
			return storage.Transaction{}, storage.ErrDuplicateRef
		}
	}
	t.TransactionID = uuid.NewString()
	t.Timestamp = time.Now()
	j.u.txs[t.TransactionID] = t
	j.u.newTxIDs = append(j.u.newTxIDs, t.TransactionID)
	if t.GatewayRef != "" {
		j.u.stagedByRef[t.GatewayRef] = t.TransactionID
	}
	return t, nil
}

func (j journalMem) Get(_ context.Context, transactionID string) (storage.Transaction, error) {
	t, ok := j.u.tx(transactionID)
	if !ok {
		return storage.Transaction{}, storage.ErrNotFound
	}
	return t, nil
}

func (j journalMem) GetByGatewayRef(_ context.Context, gatewayRef string) (storage.Transaction, error) {
	t, ok := j.u.txByRef(gatewayRef)
	if !ok {
		return storage.Transaction{}, storage.ErrNotFound
	}
	return t, nil
}

func (j journalMem) ResolveWithdraw(ctx context.Context, transactionID, status string) (storage.Transaction, error) {
	if status != storage.TxSuccess && status != storage.TxFailed {
		return storage.Transaction{}, storage.ErrInvalidTransition
	}
	t, err := j.Get(ctx, transactionID)
	if err != nil {
		return storage.Transaction{}, err
	}
	if t.Kind != storage.TxWithdraw || t.Status != storage.TxPending {
		return storage.Transaction{}, storage.ErrInvalidTransition
	}
	t.Status = status
	j.u.txs[transactionID] = t
	return t, nil
}

// --- projeções de leitura ---

func (s *Store) Account(_ context.Context, userID string) (storage.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.accounts[userID]
	if !ok {
		return storage.Account{}, storage.ErrNotFound
	}
	return a, nil
}

func (s *Store) Bet(_ context.Context, betID string) (storage.Bet, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.bets[betID]
	if !ok {
		return storage.Bet{}, storage.ErrNotFound
	}
	return b, nil
}

func (s *Store) OpenBets(_ context.Context, gameType string) ([]storage.Bet, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []storage.Bet
	// mais recentes primeiro
	for i := len(s.betOrder) - 1; i >= 0; i-- {
		b := s.bets[s.betOrder[i]]
		if b.Status != storage.BetOpen {
			continue
		}
		if gameType != "" && b.GameType != gameType {
			continue
		}
		out = append(out, b)
	}
	return out, nil
}

func (s *Store) Transactions(_ context.Context, userID string) ([]storage.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []storage.Transaction
	for i := len(s.txOrder) - 1; i >= 0; i-- {
		t := s.txs[s.txOrder[i]]
		if t.UserID == userID {
			out = append(out, t)
		}
	}
	return out, nil
}

func (s *Store) SumSigned(_ context.Context, userID string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var sum int64
	for _, id := range s.txOrder {
		t := s.txs[id]
		if t.UserID != userID {
			continue
		}
		// saque pending já saiu do saldo gastável, então conta no extrato
		if t.Status == storage.TxSuccess || (t.Kind == storage.TxWithdraw && t.Status == storage.TxPending) {
			sum += t.Signed()
		}
	}
	return sum, nil
}

func (s *Store) Stats(_ context.Context) (storage.Stats, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	st := storage.Stats{
		TotalAccounts: int64(len(s.accounts)),
		TotalBets:     int64(len(s.bets)),
	}
	for _, b := range s.bets {
		if b.Status == storage.BetOpen {
			st.OpenBets++
		}
	}
	for _, t := range s.txs {
		switch {
		case t.Kind == storage.TxDeposit && t.Status == storage.TxSuccess:
			st.TotalDeposited += t.Amount
		case t.Kind == storage.TxWithdraw && t.Status == storage.TxSuccess:
			st.TotalWithdrawn += t.Amount
		case t.Kind == storage.TxWithdraw && t.Status == storage.TxPending:
			st.PendingWithdraw += t.Amount
		}
	}
	return st, nil
}
