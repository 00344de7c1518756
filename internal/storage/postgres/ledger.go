package postgres

import (
	"context"
	"database/sql"

	"github.com/ludojoy/wager-platform/internal/storage"
)

// Tentativas do ciclo ler-computar-commitar antes de desistir com ErrConflict.
// Sob READ COMMITTED, um re-SELECT após UPDATE condicional frustrado já
// enxerga a versão commitada pelo concorrente.
const casAttempts = 3

// ledgerTx implementa storage.LedgerStore dentro de uma transação.
// Concorrência otimista: o UPDATE só aplica se a version lida não mudou.
type ledgerTx struct{ tx *sql.Tx }

func (l ledgerTx) Ensure(ctx context.Context, userID string) (storage.Account, error) {
	a, err := l.Get(ctx, userID)
	if err == nil {
		return a, nil
	}
	if err != storage.ErrNotFound {
		return storage.Account{}, err
	}

	err = l.tx.QueryRowContext(ctx, `
		INSERT INTO accounts(user_id, balance_units, version) VALUES($1, 0, 1)
		ON CONFLICT (user_id) DO UPDATE SET user_id = EXCLUDED.user_id
		RETURNING user_id, balance_units, version, created_at`,
		userID).Scan(&a.UserID, &a.Balance, &a.Version, &a.CreatedAt)
	if err != nil {
		return storage.Account{}, err
	}
	return a, nil
}

func (l ledgerTx) Get(ctx context.Context, userID string) (storage.Account, error) {
	var a storage.Account
	err := l.tx.QueryRowContext(ctx,
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

func (l ledgerTx) Debit(ctx context.Context, userID string, amount int64) (storage.Account, error) {
	return l.apply(ctx, userID, -amount)
}

func (l ledgerTx) Credit(ctx context.Context, userID string, amount int64) (storage.Account, error) {
	return l.apply(ctx, userID, amount)
}

// apply executa o ciclo ler-computar-commitar com CAS na version.
// A checagem de saldo e o commit são o mesmo passo: nenhum estado
// intermediário fica visível para outras unidades.
func (l ledgerTx) apply(ctx context.Context, userID string, delta int64) (storage.Account, error) {
	for i := 0; i < casAttempts; i++ {
		acc, err := l.Get(ctx, userID)
		if err != nil {
			return storage.Account{}, err
		}

		newBalance := acc.Balance + delta
		if newBalance < 0 {
			return storage.Account{}, storage.ErrInsufficientFunds
		}

		res, err := l.tx.ExecContext(ctx,
			`UPDATE accounts SET balance_units=$1, version=version+1 WHERE user_id=$2 AND version=$3`,
			newBalance, userID, acc.Version)
		if err != nil {
			return storage.Account{}, err
		}
		if n, _ := res.RowsAffected(); n == 1 {
			acc.Balance = newBalance
			acc.Version++
			return acc, nil
		}
		// version mudou entre leitura e commit: tenta de novo
	}
	return storage.Account{}, storage.ErrConflict
}
