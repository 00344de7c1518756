package postgres

import (
	"context"
	"database/sql"

	"github.com/google/uuid"

	"github.com/ludojoy/wager-platform/internal/storage"
)

const txSelect = `
	SELECT id, user_id, kind, amount_units, related_bet_id, gateway_ref, status, ts
	FROM transactions`

// journalTx implementa storage.Journal dentro de uma transação.
type journalTx struct{ tx *sql.Tx }

func (j journalTx) Record(ctx context.Context, t storage.Transaction) (storage.Transaction, error) {
	if t.GatewayRef != "" {
		var exists string
		err := j.tx.QueryRowContext(ctx,
			`SELECT id FROM transactions WHERE gateway_ref=$1`, t.GatewayRef).Scan(&exists)
		if err == nil {
			return storage.Transaction{}, storage.ErrDuplicateRef
		}
		if err != sql.ErrNoRows {
			return storage.Transaction{}, err
		}
	}

	t.TransactionID = uuid.NewString()
	err := j.tx.QueryRowContext(ctx, `
		INSERT INTO transactions (id, user_id, kind, amount_units, related_bet_id, gateway_ref, status)
		VALUES ($1,$2,$3,$4,NULLIF($5,''),NULLIF($6,''),$7)
		RETURNING ts`,
		t.TransactionID, t.UserID, t.Kind, t.Amount, t.RelatedBetID, t.GatewayRef, t.Status,
	).Scan(&t.Timestamp)
	if err != nil {
		return storage.Transaction{}, err
	}
	return t, nil
}

func (j journalTx) Get(ctx context.Context, transactionID string) (storage.Transaction, error) {
	return scanTx(j.tx.QueryRowContext(ctx, txSelect+` WHERE id=$1`, transactionID))
}

func (j journalTx) GetByGatewayRef(ctx context.Context, gatewayRef string) (storage.Transaction, error) {
	return scanTx(j.tx.QueryRowContext(ctx, txSelect+` WHERE gateway_ref=$1`, gatewayRef))
}

// ResolveWithdraw é a única edição permitida no extrato:
// um saque pending vira success ou failed, uma vez só.
func (j journalTx) ResolveWithdraw(ctx context.Context, transactionID, status string) (storage.Transaction, error) {
	if status != storage.TxSuccess && status != storage.TxFailed {
		return storage.Transaction{}, storage.ErrInvalidTransition
	}

	res, err := j.tx.ExecContext(ctx,
		`UPDATE transactions SET status=$2 WHERE id=$1 AND kind='withdraw' AND status='pending'`,
		transactionID, status)
	if err != nil {
		return storage.Transaction{}, err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		if _, gerr := j.Get(ctx, transactionID); gerr != nil {
			return storage.Transaction{}, gerr
		}
		return storage.Transaction{}, storage.ErrInvalidTransition
	}
	return j.Get(ctx, transactionID)
}

func scanTx(r rowScanner) (storage.Transaction, error) {
	var (
		t          storage.Transaction
		relatedBet sql.NullString
		gatewayRef sql.NullString
	)
	err := r.Scan(&t.TransactionID, &t.UserID, &t.Kind, &t.Amount, &relatedBet, &gatewayRef, &t.Status, &t.Timestamp)
	if err == sql.ErrNoRows {
		return storage.Transaction{}, storage.ErrNotFound
	}
	if err != nil {
		return storage.Transaction{}, err
	}
	t.RelatedBetID = relatedBet.String
	t.GatewayRef = gatewayRef.String
	return t, nil
}
