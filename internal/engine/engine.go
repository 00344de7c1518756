package engine

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/ludojoy/wager-platform/internal/storage"
)

// Tentativas de unidade atômica antes de desistir com ErrContention.
const maxUnitAttempts = 3

// Policy concentra os mínimos monetários do engine (unidades mínimas).
type Policy struct {
	MinBetAmount      int64
	MinDepositAmount  int64
	MinWithdrawAmount int64
}

// Notifier recebe notificações pós-commit de mudança de estado, usadas pelas
// projeções ao vivo (fora do caminho crítico de escrita; falha não reverte nada).
type Notifier interface {
	AccountChanged(ctx context.Context, a storage.Account)
	BetChanged(ctx context.Context, b storage.Bet)
}

// Engine é o único componente que muta contas, apostas e extrato.
// Toda operação de escrita roda dentro de uma unidade atômica do Store.
type Engine struct {
	log    *zap.Logger
	store  storage.Store
	policy Policy
	notif  Notifier // opcional
}

func New(log *zap.Logger, store storage.Store, policy Policy, notif Notifier) *Engine {
	return &Engine{log: log, store: store, policy: policy, notif: notif}
}

// atomicRetry executa a unidade e tenta de novo em conflito de versão,
// com backoff curto; esgotadas as tentativas, o chamador recebe ErrContention.
func (e *Engine) atomicRetry(ctx context.Context, fn func(u storage.Unit) error) error {
	var err error
	for attempt := 0; attempt < maxUnitAttempts; attempt++ {
		err = e.store.Atomic(ctx, fn)
		if !errors.Is(err, storage.ErrConflict) {
			return err
		}
		contentionRetries.Inc()
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(time.Duration(10*(attempt+1)) * time.Millisecond):
		}
	}
	e.log.Warn("unit retries exhausted", zap.Error(err))
	return ErrContention
}

func (e *Engine) notifyAccount(ctx context.Context, a storage.Account) {
	if e.notif != nil {
		e.notif.AccountChanged(ctx, a)
	}
}

func (e *Engine) notifyBet(ctx context.Context, b storage.Bet) {
	if e.notif != nil {
		e.notif.BetChanged(ctx, b)
	}
}

// EnsureAccount cria a conta com saldo zero no signup (idempotente).
func (e *Engine) EnsureAccount(ctx context.Context, userID string) (storage.Account, error) {
	var acc storage.Account
	err := e.atomicRetry(ctx, func(u storage.Unit) error {
		var err error
		acc, err = u.Ledger().Ensure(ctx, userID)
		return err
	})
	countOp("ensure_account", err)
	return acc, err
}

// CreateBet debita o stake do criador, abre a aposta e lança bet_stake,
// tudo na mesma unidade. O stake passa à custódia da aposta.
func (e *Engine) CreateBet(ctx context.Context, creatorID string, amount int64, roomCode, gameType string) (storage.Bet, error) {
	if amount < e.policy.MinBetAmount {
		countOp("create_bet", ErrBelowMinimum)
		return storage.Bet{}, ErrBelowMinimum
	}

	var (
		bet storage.Bet
		acc storage.Account
	)
	err := e.atomicRetry(ctx, func(u storage.Unit) error {
		var err error
		if acc, err = u.Ledger().Debit(ctx, creatorID, amount); err != nil {
			return err
		}
		if bet, err = u.Bets().CreateOpen(ctx, storage.Bet{
			CreatorID: creatorID,
			Amount:    amount,
			RoomCode:  roomCode,
			GameType:  gameType,
		}); err != nil {
			return err
		}
		_, err = u.Journal().Record(ctx, storage.Transaction{
			UserID:       creatorID,
			Kind:         storage.TxBetStake,
			Amount:       amount,
			RelatedBetID: bet.BetID,
			Status:       storage.TxSuccess,
		})
		return err
	})
	countOp("create_bet", err)
	if err != nil {
		return storage.Bet{}, err
	}

	e.log.Info("bet created",
		zap.String("betId", bet.BetID),
		zap.String("creatorId", creatorID),
		zap.Int64("amount", amount))
	e.notifyAccount(ctx, acc)
	e.notifyBet(ctx, bet)
	return bet, nil
}

// JoinBet debita o oponente e tenta o pareamento. Se TryMatch rejeitar depois
// do débito, o crédito compensatório devolve o stake na mesma unidade: o
// oponente nunca fica debitado sem aposta pareada.
func (e *Engine) JoinBet(ctx context.Context, betID, opponentID string) (storage.Bet, error) {
	var (
		bet storage.Bet
		acc storage.Account
	)
	err := e.atomicRetry(ctx, func(u storage.Unit) error {
		cur, err := u.Bets().Get(ctx, betID)
		if err != nil {
			return err
		}
		if cur.CreatorID == opponentID {
			return storage.ErrSelfMatch
		}

		if acc, err = u.Ledger().Debit(ctx, opponentID, cur.Amount); err != nil {
			return err
		}

		bet, err = u.Bets().TryMatch(ctx, betID, opponentID)
		if err != nil {
			// crédito compensatório do débito provisório
			if _, cerr := u.Ledger().Credit(ctx, opponentID, cur.Amount); cerr != nil {
				return cerr
			}
			return err
		}

		_, err = u.Journal().Record(ctx, storage.Transaction{
			UserID:       opponentID,
			Kind:         storage.TxBetStake,
			Amount:       cur.Amount,
			RelatedBetID: betID,
			Status:       storage.TxSuccess,
		})
		return err
	})
	countOp("join_bet", err)
	if err != nil {
		return storage.Bet{}, err
	}

	e.log.Info("bet matched",
		zap.String("betId", bet.BetID),
		zap.String("opponentId", opponentID))
	e.notifyAccount(ctx, acc)
	e.notifyBet(ctx, bet)
	return bet, nil
}

// SettleBet credita 2x o stake ao vencedor e lança um único bet_payout.
// Idempotente: repetir a chamada numa aposta settled devolve ErrAlreadySettled
// sem segundo crédito, então o colaborador de resultado pode re-tentar à vontade.
func (e *Engine) SettleBet(ctx context.Context, betID, winnerID string) (storage.Bet, error) {
	var (
		bet storage.Bet
		acc storage.Account
	)
	err := e.atomicRetry(ctx, func(u storage.Unit) error {
		cur, err := u.Bets().Get(ctx, betID)
		if err != nil {
			return err
		}
		if cur.Status == storage.BetSettled {
			return storage.ErrAlreadySettled
		}
		if cur.Status != storage.BetMatched {
			return storage.ErrNotMatched
		}
		if winnerID != cur.CreatorID && winnerID != cur.OpponentID {
			return ErrNotParticipant
		}

		if bet, err = u.Bets().Settle(ctx, betID, winnerID); err != nil {
			return err
		}
		payout := 2 * cur.Amount
		if acc, err = u.Ledger().Credit(ctx, winnerID, payout); err != nil {
			return err
		}
		_, err = u.Journal().Record(ctx, storage.Transaction{
			UserID:       winnerID,
			Kind:         storage.TxBetPayout,
			Amount:       payout,
			RelatedBetID: betID,
			Status:       storage.TxSuccess,
		})
		return err
	})
	countOp("settle_bet", err)
	if err != nil {
		return storage.Bet{}, err
	}

	payoutUnits.Add(float64(2 * bet.Amount))
	e.log.Info("bet settled",
		zap.String("betId", bet.BetID),
		zap.String("winnerId", winnerID),
		zap.Int64("payout", 2*bet.Amount))
	e.notifyAccount(ctx, acc)
	e.notifyBet(ctx, bet)
	return bet, nil
}

// CancelBet: só o criador cancela, e só enquanto open; o stake volta com
// bet_refund. Aposta matched exige VoidBet (via administrativa).
func (e *Engine) CancelBet(ctx context.Context, betID, requesterID string) (storage.Bet, error) {
	var (
		bet storage.Bet
		acc storage.Account
	)
	err := e.atomicRetry(ctx, func(u storage.Unit) error {
		cur, err := u.Bets().Get(ctx, betID)
		if err != nil {
			return err
		}
		if cur.CreatorID != requesterID {
			return ErrNotCreator
		}

		if bet, err = u.Bets().CancelOpen(ctx, betID); err != nil {
			return err
		}
		if acc, err = u.Ledger().Credit(ctx, cur.CreatorID, cur.Amount); err != nil {
			return err
		}
		_, err = u.Journal().Record(ctx, storage.Transaction{
			UserID:       cur.CreatorID,
			Kind:         storage.TxBetRefund,
			Amount:       cur.Amount,
			RelatedBetID: betID,
			Status:       storage.TxSuccess,
		})
		return err
	})
	countOp("cancel_bet", err)
	if err != nil {
		return storage.Bet{}, err
	}

	e.log.Info("bet cancelled", zap.String("betId", bet.BetID))
	e.notifyAccount(ctx, acc)
	e.notifyBet(ctx, bet)
	return bet, nil
}

// VoidBet anula uma aposta matched (disputa/administrativo) devolvendo o stake
// dos dois lados, com um bet_refund para cada.
func (e *Engine) VoidBet(ctx context.Context, betID string) (storage.Bet, error) {
	var bet storage.Bet
	err := e.atomicRetry(ctx, func(u storage.Unit) error {
		cur, err := u.Bets().Get(ctx, betID)
		if err != nil {
			return err
		}

		if bet, err = u.Bets().VoidMatched(ctx, betID); err != nil {
			return err
		}
		for _, userID := range []string{cur.CreatorID, cur.OpponentID} {
			if _, err = u.Ledger().Credit(ctx, userID, cur.Amount); err != nil {
				return err
			}
			if _, err = u.Journal().Record(ctx, storage.Transaction{
				UserID:       userID,
				Kind:         storage.TxBetRefund,
				Amount:       cur.Amount,
				RelatedBetID: betID,
				Status:       storage.TxSuccess,
			}); err != nil {
				return err
			}
		}
		return nil
	})
	countOp("void_bet", err)
	if err != nil {
		return storage.Bet{}, err
	}

	e.log.Info("bet voided", zap.String("betId", bet.BetID))
	e.notifyBet(ctx, bet)
	return bet, nil
}

// RecordDeposit credita um depósito já confirmado pelo gateway. Nunca confia
// num "deu certo" do cliente: só o deposit-worker chama, com o gatewayRef da
// confirmação verificada. Replays do mesmo gatewayRef devolvem o lançamento
// original sem segundo crédito.
func (e *Engine) RecordDeposit(ctx context.Context, userID string, amount int64, gatewayRef string) (storage.Transaction, error) {
	if amount < e.policy.MinDepositAmount {
		countOp("record_deposit", ErrBelowMinimum)
		return storage.Transaction{}, ErrBelowMinimum
	}

	var (
		tx     storage.Transaction
		acc    storage.Account
		replay bool
	)
	err := e.atomicRetry(ctx, func(u storage.Unit) error {
		replay = false
		if gatewayRef != "" {
			existing, err := u.Journal().GetByGatewayRef(ctx, gatewayRef)
			if err == nil {
				tx = existing
				replay = true
				return nil
			}
			if !errors.Is(err, storage.ErrNotFound) {
				return err
			}
		}

		var err error
		if _, err = u.Ledger().Ensure(ctx, userID); err != nil {
			return err
		}
		if acc, err = u.Ledger().Credit(ctx, userID, amount); err != nil {
			return err
		}
		tx, err = u.Journal().Record(ctx, storage.Transaction{
			UserID:     userID,
			Kind:       storage.TxDeposit,
			Amount:     amount,
			GatewayRef: gatewayRef,
			Status:     storage.TxSuccess,
		})
		return err
	})
	countOp("record_deposit", err)
	if err != nil {
		return storage.Transaction{}, err
	}
	if replay {
		e.log.Info("deposit replayed", zap.String("gatewayRef", gatewayRef))
		return tx, nil
	}

	e.log.Info("deposit recorded",
		zap.String("userId", userID),
		zap.Int64("amount", amount),
		zap.String("gatewayRef", gatewayRef))
	e.notifyAccount(ctx, acc)
	return tx, nil
}

// RequestWithdraw debita na hora (tira do saldo gastável) e lança um saque
// pending; a confirmação posterior decide success ou failed.
func (e *Engine) RequestWithdraw(ctx context.Context, userID string, amount int64) (storage.Transaction, error) {
	if amount < e.policy.MinWithdrawAmount {
		countOp("request_withdraw", ErrBelowMinimum)
		return storage.Transaction{}, ErrBelowMinimum
	}

	var (
		tx  storage.Transaction
		acc storage.Account
	)
	err := e.atomicRetry(ctx, func(u storage.Unit) error {
		var err error
		if acc, err = u.Ledger().Debit(ctx, userID, amount); err != nil {
			return err
		}
		tx, err = u.Journal().Record(ctx, storage.Transaction{
			UserID: userID,
			Kind:   storage.TxWithdraw,
			Amount: amount,
			Status: storage.TxPending,
		})
		return err
	})
	countOp("request_withdraw", err)
	if err != nil {
		return storage.Transaction{}, err
	}

	e.log.Info("withdraw requested",
		zap.String("userId", userID),
		zap.String("transactionId", tx.TransactionID),
		zap.Int64("amount", amount))
	e.notifyAccount(ctx, acc)
	return tx, nil
}

// ConfirmWithdraw resolve um saque pending (operação administrativa):
// approved=true marca success sem efeito de saldo; approved=false marca
// failed e devolve o valor.
func (e *Engine) ConfirmWithdraw(ctx context.Context, transactionID string, approved bool) (storage.Transaction, error) {
	status := storage.TxSuccess
	if !approved {
		status = storage.TxFailed
	}

	var (
		tx  storage.Transaction
		acc storage.Account
	)
	err := e.atomicRetry(ctx, func(u storage.Unit) error {
		var err error
		if tx, err = u.Journal().ResolveWithdraw(ctx, transactionID, status); err != nil {
			return err
		}
		if !approved {
			acc, err = u.Ledger().Credit(ctx, tx.UserID, tx.Amount)
		}
		return err
	})
	countOp("confirm_withdraw", err)
	if err != nil {
		return storage.Transaction{}, err
	}

	e.log.Info("withdraw resolved",
		zap.String("transactionId", transactionID),
		zap.String("status", status))
	if !approved {
		e.notifyAccount(ctx, acc)
	}
	return tx, nil
}

// --- projeções de leitura ---

func (e *Engine) Balance(ctx context.Context, userID string) (storage.Account, error) {
	return e.store.Account(ctx, userID)
}

func (e *Engine) BetByID(ctx context.Context, betID string) (storage.Bet, error) {
	return e.store.Bet(ctx, betID)
}

func (e *Engine) OpenBets(ctx context.Context, gameType string) ([]storage.Bet, error) {
	return e.store.OpenBets(ctx, gameType)
}

func (e *Engine) Transactions(ctx context.Context, userID string) ([]storage.Transaction, error) {
	return e.store.Transactions(ctx, userID)
}

func (e *Engine) Stats(ctx context.Context) (storage.Stats, error) {
	return e.store.Stats(ctx)
}

// Reconcile confere o invariante do extrato: saldo atual == soma com sinal
// dos lançamentos success. Devolve os dois lados para o painel administrativo.
func (e *Engine) Reconcile(ctx context.Context, userID string) (balance, sum int64, err error) {
	acc, err := e.store.Account(ctx, userID)
	if err != nil {
		return 0, 0, err
	}
	sum, err = e.store.SumSigned(ctx, userID)
	if err != nil {
		return 0, 0, err
	}
	return acc.Balance, sum, nil
}
