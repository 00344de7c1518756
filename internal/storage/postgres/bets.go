package postgres

import (
	"context"
	"database/sql"

	"github.com/google/uuid"

	"github.com/ludojoy/wager-platform/internal/storage"
)

const betSelect = `
	SELECT id, creator_id, opponent_id, amount_units, status, room_code, game_type,
	       created_at, settled_at, winner_id
	FROM bets`

// betsTx implementa storage.BetRegistry dentro de uma transação.
type betsTx struct{ tx *sql.Tx }

func (b betsTx) CreateOpen(ctx context.Context, in storage.Bet) (storage.Bet, error) {
	id := uuid.NewString()
	err := b.tx.QueryRowContext(ctx, `
		INSERT INTO bets (id, creator_id, amount_units, status, room_code, game_type)
		VALUES ($1,$2,$3,'open',$4,$5)
		RETURNING created_at`,
		id, in.CreatorID, in.Amount, in.RoomCode, in.GameType).Scan(&in.CreatedAt)
	if err != nil {
		return storage.Bet{}, err
	}
	in.BetID = id
	in.Status = storage.BetOpen
	return in, nil
}

func (b betsTx) Get(ctx context.Context, betID string) (storage.Bet, error) {
	return scanBet(b.tx.QueryRowContext(ctx, betSelect+` WHERE id=$1`, betID))
}

// TryMatch condiciona a transição open -> matched ao status ainda ser open no
// commit. Um segundo caller concorrente que leu open mas commitou depois vê
// zero linhas afetadas e recebe ErrAlreadyMatched, nunca sobrescreve.
func (b betsTx) TryMatch(ctx context.Context, betID, opponentID string) (storage.Bet, error) {
	cur, err := b.Get(ctx, betID)
	if err != nil {
		return storage.Bet{}, err
	}
	if cur.CreatorID == opponentID {
		return storage.Bet{}, storage.ErrSelfMatch
	}

	res, err := b.tx.ExecContext(ctx,
		`UPDATE bets SET status='matched', opponent_id=$2 WHERE id=$1 AND status='open'`,
		betID, opponentID)
	if err != nil {
		return storage.Bet{}, err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return storage.Bet{}, storage.ErrAlreadyMatched
	}

	cur.Status = storage.BetMatched
	cur.OpponentID = opponentID
	return cur, nil
}

func (b betsTx) Settle(ctx context.Context, betID, winnerID string) (storage.Bet, error) {
	res, err := b.tx.ExecContext(ctx,
		`UPDATE bets SET status='settled', winner_id=$2, settled_at=NOW() WHERE id=$1 AND status='matched'`,
		betID, winnerID)
	if err != nil {
		return storage.Bet{}, err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		cur, gerr := b.Get(ctx, betID)
		if gerr != nil {
			return storage.Bet{}, gerr
		}
		if cur.Status == storage.BetSettled {
			return storage.Bet{}, storage.ErrAlreadySettled
		}
		return storage.Bet{}, storage.ErrNotMatched
	}
	return b.Get(ctx, betID)
}

func (b betsTx) CancelOpen(ctx context.Context, betID string) (storage.Bet, error) {
	res, err := b.tx.ExecContext(ctx,
		`UPDATE bets SET status='cancelled' WHERE id=$1 AND status='open'`, betID)
	if err != nil {
		return storage.Bet{}, err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		cur, gerr := b.Get(ctx, betID)
		if gerr != nil {
			return storage.Bet{}, gerr
		}
		if cur.Status == storage.BetMatched {
			return storage.Bet{}, storage.ErrAlreadyMatched
		}
		return storage.Bet{}, storage.ErrInvalidTransition
	}
	return b.Get(ctx, betID)
}

func (b betsTx) VoidMatched(ctx context.Context, betID string) (storage.Bet, error) {
	res, err := b.tx.ExecContext(ctx,
		`UPDATE bets SET status='cancelled' WHERE id=$1 AND status='matched'`, betID)
	if err != nil {
		return storage.Bet{}, err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		if _, gerr := b.Get(ctx, betID); gerr != nil {
			return storage.Bet{}, gerr
		}
		return storage.Bet{}, storage.ErrNotMatched
	}
	return b.Get(ctx, betID)
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanBet(r rowScanner) (storage.Bet, error) {
	var (
		b         storage.Bet
		opponent  sql.NullString
		winner    sql.NullString
		settledAt sql.NullTime
	)
	err := r.Scan(&b.BetID, &b.CreatorID, &opponent, &b.Amount, &b.Status,
		&b.RoomCode, &b.GameType, &b.CreatedAt, &settledAt, &winner)
	if err == sql.ErrNoRows {
		return storage.Bet{}, storage.ErrNotFound
	}
	if err != nil {
		return storage.Bet{}, err
	}
	b.OpponentID = opponent.String
	b.WinnerID = winner.String
	if settledAt.Valid {
		b.SettledAt = settledAt.Time
	}
	return b, nil
}
