package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/ludojoy/wager-platform/internal/storage"
)

// Store implementa storage.Store sobre Postgres. Cada unidade atômica é uma
// transação do banco: se fn falhar, nada é persistido (sem lançamentos órfãos).
type Store struct{ db *sql.DB }

func New(db *sql.DB) *Store { return &Store{db: db} }

// unit amarra os três componentes à mesma *sql.Tx.
type unit struct {
	ledger  ledgerTx
	bets    betsTx
	journal journalTx
}

func (u unit) Ledger() storage.LedgerStore { return u.ledger }
func (u unit) Bets() storage.BetRegistry   { return u.bets }
func (u unit) Journal() storage.Journal    { return u.journal }

func (s *Store) Atomic(ctx context.Context, fn func(u storage.Unit) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	u := unit{
		ledger:  ledgerTx{tx: tx},
		bets:    betsTx{tx: tx},
		journal: journalTx{tx: tx},
	}
	if err := fn(u); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

// --- projeções de leitura (fora de unidade) ---

func (s *Store) Account(ctx context.Context, userID string) (storage.Account, error) {
	var a storage.Account
	err := s.db.QueryRowContext(ctx,
		`SELECT user_id, balance_units, version, created_at FROM accounts WHERE user_id=$1`,
		userID).Scan(&a.UserID, &a.Balance, &a.Version, &a.CreatedAt)
	if err == sql.ErrNoRows {
		return storage.Account{}, storage.ErrNotFound
	}
	if err != nil {
		return storage.Account{}, err
	}
	return a, nil
}

func (s *Store) Bet(ctx context.Context, betID string) (storage.Bet, error) {
	return scanBet(s.db.QueryRowContext(ctx, betSelect+` WHERE id=$1`, betID))
}

func (s *Store) OpenBets(ctx context.Context, gameType string) ([]storage.Bet, error) {
	q := betSelect + ` WHERE status='open'`
	args := []any{}
	if gameType != "" {
		q += ` AND game_type=$1`
		args = append(args, gameType)
	}
	q += ` ORDER BY created_at DESC`

	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []storage.Bet
	for rows.Next() {
		b, err := scanBet(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	return out, rows.Err()
}

func (s *Store) Transactions(ctx context.Context, userID string) ([]storage.Transaction, error) {
	rows, err := s.db.QueryContext(ctx, txSelect+` WHERE user_id=$1 ORDER BY ts DESC`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []storage.Transaction
	for rows.Next() {
		t, err := scanTx(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

func (s *Store) SumSigned(ctx context.Context, userID string) (int64, error) {
	const q = `
		SELECT COALESCE(SUM(CASE WHEN kind IN ('withdraw','bet_stake') THEN -amount_units ELSE amount_units END), 0)
		FROM transactions
		WHERE user_id=$1 AND (status='success' OR (kind='withdraw' AND status='pending'))`
	var sum int64
	if err := s.db.QueryRowContext(ctx, q, userID).Scan(&sum); err != nil {
		return 0, err
	}
	return sum, nil
}

func (s *Store) Stats(ctx context.Context) (storage.Stats, error) {
	var st storage.Stats
	err := s.db.QueryRowContext(ctx, `
		SELECT
			(SELECT COUNT(*) FROM accounts),
			(SELECT COUNT(*) FROM bets),
			(SELECT COUNT(*) FROM bets WHERE status='open'),
			(SELECT COALESCE(SUM(amount_units),0) FROM transactions WHERE kind='deposit' AND status='success'),
			(SELECT COALESCE(SUM(amount_units),0) FROM transactions WHERE kind='withdraw' AND status='success'),
			(SELECT COALESCE(SUM(amount_units),0) FROM transactions WHERE kind='withdraw' AND status='pending')
	`).Scan(&st.TotalAccounts, &st.TotalBets, &st.OpenBets, &st.TotalDeposited, &st.TotalWithdrawn, &st.PendingWithdraw)
	if err != nil {
		return storage.Stats{}, err
	}
	return st, nil
}
