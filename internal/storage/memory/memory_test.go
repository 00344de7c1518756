package memory

import (
	"context"
	"errors"
	"testing"

	"github.com/ludojoy/wager-platform/internal/storage"
)

func seedAccount(t *testing.T, s *Store, userID string, balance int64) {
	t.Helper()
	err := s.Atomic(context.Background(), func(u storage.Unit) error {
		if _, err := u.Ledger().Ensure(context.Background(), userID); err != nil {
			return err
		}
		if _, err := u.Ledger().Credit(context.Background(), userID, balance); err != nil {
			return err
		}
		_, err := u.Journal().Record(context.Background(), storage.Transaction{
			UserID: userID,
			Kind:   storage.TxDeposit,
			Amount: balance,
			Status: storage.TxSuccess,
		})
		return err
	})
	if err != nil {
		t.Fatalf("seed %s: %v", userID, err)
	}
}

// Uma unidade que falha no meio não pode deixar nenhuma escrita para trás.
func TestAtomicDiscardsStagedWritesOnError(t *testing.T) {
	s := New()
	ctx := context.Background()
	seedAccount(t, s, "A", 100)

	boom := errors.New("boom")
	err := s.Atomic(ctx, func(u storage.Unit) error {
		if _, err := u.Ledger().Debit(ctx, "A", 60); err != nil {
			return err
		}
		if _, err := u.Bets().CreateOpen(ctx, storage.Bet{CreatorID: "A", Amount: 60}); err != nil {
			return err
		}
		if _, err := u.Journal().Record(ctx, storage.Transaction{
			UserID: "A", Kind: storage.TxBetStake, Amount: 60, Status: storage.TxSuccess,
		}); err != nil {
			return err
		}
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("err = %v, want boom", err)
	}

	acc, err := s.Account(ctx, "A")
	if err != nil {
		t.Fatalf("account: %v", err)
	}
	if acc.Balance != 100 {
		t.Errorf("balance = %d, want 100", acc.Balance)
	}
	open, _ := s.OpenBets(ctx, "")
	if len(open) != 0 {
		t.Errorf("open bets = %d, want 0", len(open))
	}
	txs, _ := s.Transactions(ctx, "A")
	if len(txs) != 1 {
		t.Errorf("transactions = %d, want 1 (só o seed)", len(txs))
	}
}

// Dentro da mesma unidade as escritas do stage precisam estar visíveis.
func TestUnitReadsSeeStagedWrites(t *testing.T) {
	s := New()
	ctx := context.Background()
	seedAccount(t, s, "A", 100)

	err := s.Atomic(ctx, func(u storage.Unit) error {
		if _, err := u.Ledger().Debit(ctx, "A", 40); err != nil {
			return err
		}
		acc, err := u.Ledger().Get(ctx, "A")
		if err != nil {
			return err
		}
		if acc.Balance != 60 {
			t.Errorf("staged balance = %d, want 60", acc.Balance)
		}
		return nil
	})
	if err != nil {
		t.Fatalf("atomic: %v", err)
	}
}

func TestDebitBelowZeroRejected(t *testing.T) {
	s := New()
	ctx := context.Background()
	seedAccount(t, s, "A", 50)

	err := s.Atomic(ctx, func(u storage.Unit) error {
		_, err := u.Ledger().Debit(ctx, "A", 60)
		return err
	})
	if !errors.Is(err, storage.ErrInsufficientFunds) {
		t.Fatalf("err = %v, want ErrInsufficientFunds", err)
	}
	acc, _ := s.Account(ctx, "A")
	if acc.Balance != 50 {
		t.Errorf("balance = %d, want 50", acc.Balance)
	}
}

func TestTryMatchOnlyFirstWins(t *testing.T) {
	s := New()
	ctx := context.Background()
	seedAccount(t, s, "A", 100)

	var betID string
	err := s.Atomic(ctx, func(u storage.Unit) error {
		b, err := u.Bets().CreateOpen(ctx, storage.Bet{CreatorID: "A", Amount: 100, GameType: "classic"})
		betID = b.BetID
		return err
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	err = s.Atomic(ctx, func(u storage.Unit) error {
		_, err := u.Bets().TryMatch(ctx, betID, "B")
		return err
	})
	if err != nil {
		t.Fatalf("first match: %v", err)
	}

	err = s.Atomic(ctx, func(u storage.Unit) error {
		_, err := u.Bets().TryMatch(ctx, betID, "C")
		return err
	})
	if !errors.Is(err, storage.ErrAlreadyMatched) {
		t.Fatalf("second match err = %v, want ErrAlreadyMatched", err)
	}

	bet, _ := s.Bet(ctx, betID)
	if bet.OpponentID != "B" || bet.Status != storage.BetMatched {
		t.Errorf("bet = %+v, want matched por B", bet)
	}
}

func TestResolveWithdrawTransitions(t *testing.T) {
	s := New()
	ctx := context.Background()
	seedAccount(t, s, "A", 200)

	var txID string
	err := s.Atomic(ctx, func(u storage.Unit) error {
		tx, err := u.Journal().Record(ctx, storage.Transaction{
			UserID: "A", Kind: storage.TxWithdraw, Amount: 100, Status: storage.TxPending,
		})
		txID = tx.TransactionID
		return err
	})
	if err != nil {
		t.Fatalf("record: %v", err)
	}

	// pending -> pending não é transição válida
	err = s.Atomic(ctx, func(u storage.Unit) error {
		_, err := u.Journal().ResolveWithdraw(ctx, txID, storage.TxPending)
		return err
	})
	if !errors.Is(err, storage.ErrInvalidTransition) {
		t.Errorf("resolve to pending err = %v, want ErrInvalidTransition", err)
	}

	err = s.Atomic(ctx, func(u storage.Unit) error {
		_, err := u.Journal().ResolveWithdraw(ctx, txID, storage.TxSuccess)
		return err
	})
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}

	// já resolvido
	err = s.Atomic(ctx, func(u storage.Unit) error {
		_, err := u.Journal().ResolveWithdraw(ctx, txID, storage.TxFailed)
		return err
	})
	if !errors.Is(err, storage.ErrInvalidTransition) {
		t.Errorf("double resolve err = %v, want ErrInvalidTransition", err)
	}
}

func TestDuplicateGatewayRefRejected(t *testing.T) {
	s := New()
	ctx := context.Background()

	record := func() error {
		return s.Atomic(ctx, func(u storage.Unit) error {
			if _, err := u.Ledger().Ensure(ctx, "A"); err != nil {
				return err
			}
			_, err := u.Journal().Record(ctx, storage.Transaction{
				UserID: "A", Kind: storage.TxDeposit, Amount: 100,
				GatewayRef: "PAY-1", Status: storage.TxSuccess,
			})
			return err
		})
	}

	if err := record(); err != nil {
		t.Fatalf("first record: %v", err)
	}
	if err := record(); !errors.Is(err, storage.ErrDuplicateRef) {
		t.Fatalf("second record err = %v, want ErrDuplicateRef", err)
	}
}

func TestOpenBetsFilterAndOrder(t *testing.T) {
	s := New()
	ctx := context.Background()
	seedAccount(t, s, "A", 1000)

	create := func(gameType string) string {
		var id string
		err := s.Atomic(ctx, func(u storage.Unit) error {
			b, err := u.Bets().CreateOpen(ctx, storage.Bet{CreatorID: "A", Amount: 100, GameType: gameType})
			id = b.BetID
			return err
		})
		if err != nil {
			t.Fatalf("create %s: %v", gameType, err)
		}
		return id
	}

	first := create("classic")
	second := create("blitz")
	third := create("classic")

	all, err := s.OpenBets(ctx, "")
	if err != nil {
		t.Fatalf("open bets: %v", err)
	}
	if len(all) != 3 {
		t.Fatalf("len = %d, want 3", len(all))
	}
	if all[0].BetID != third || all[2].BetID != first {
		t.Errorf("ordem errada: %s, %s, %s", all[0].BetID, all[1].BetID, all[2].BetID)
	}

	classic, _ := s.OpenBets(ctx, "classic")
	if len(classic) != 2 {
		t.Errorf("classic len = %d, want 2", len(classic))
	}

	// apostas pareadas saem da lista
	if err := s.Atomic(ctx, func(u storage.Unit) error {
		_, err := u.Bets().TryMatch(ctx, second, "B")
		return err
	}); err != nil {
		t.Fatalf("match: %v", err)
	}
	all, _ = s.OpenBets(ctx, "")
	if len(all) != 2 {
		t.Errorf("após match len = %d, want 2", len(all))
	}
}
