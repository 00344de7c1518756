package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"go.uber.org/zap"

	"github.com/ludojoy/wager-platform/internal/engine"
	"github.com/ludojoy/wager-platform/internal/engine-service/dto"
	"github.com/ludojoy/wager-platform/internal/storage/memory"
)

func newTestServer(t *testing.T) (http.Handler, *engine.Engine) {
	t.Helper()
	eng := engine.New(zap.NewNop(), memory.New(), engine.Policy{
		MinBetAmount:      50,
		MinDepositAmount:  100,
		MinWithdrawAmount: 100,
	}, nil)
	srv := NewServer(zap.NewNop(), eng, nil, nil)
	return srv.Router(), eng
}

func doJSON(t *testing.T, h http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.NewDecoder(rec.Body).Decode(&v); err != nil {
		t.Fatalf("decode: %v (body %q)", err, rec.Body.String())
	}
	return v
}

var depositSeq int

func deposit(t *testing.T, eng *engine.Engine, userID string, amount int64) {
	t.Helper()
	depositSeq++
	if _, err := eng.RecordDeposit(context.Background(), userID, amount, fmt.Sprintf("PAY-test-%d", depositSeq)); err != nil {
		t.Fatalf("deposit %s: %v", userID, err)
	}
}

func TestSignupIdempotent(t *testing.T) {
	h, _ := newTestServer(t)

	for i := 0; i < 2; i++ {
		rec := doJSON(t, h, http.MethodPost, "/v1/accounts", dto.SignupRequest{UserID: "A"})
		if rec.Code != http.StatusOK {
			t.Fatalf("signup #%d status = %d, body %s", i, rec.Code, rec.Body.String())
		}
		wallet := decode[dto.WalletResponse](t, rec)
		if wallet.UserID != "A" || wallet.BalanceUnits != 0 {
			t.Errorf("wallet = %+v, want A com saldo 0", wallet)
		}
	}
}

func TestBetLifecycleOverHTTP(t *testing.T) {
	h, eng := newTestServer(t)
	deposit(t, eng, "A", 500)
	deposit(t, eng, "B", 300)

	rec := doJSON(t, h, http.MethodPost, "/v1/bets", dto.CreateBetRequest{
		UserID: "A", AmountUnits: 200, RoomCode: "R1", GameType: "classic",
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("create status = %d, body %s", rec.Code, rec.Body.String())
	}
	bet := decode[dto.BetResponse](t, rec)
	if bet.Status != "open" {
		t.Errorf("status = %q, want open", bet.Status)
	}

	rec = doJSON(t, h, http.MethodGet, "/v1/bets?gameType=classic", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("list status = %d", rec.Code)
	}
	if open := decode[[]dto.BetResponse](t, rec); len(open) != 1 || open[0].BetID != bet.BetID {
		t.Errorf("listagem = %+v, want só a aposta criada", open)
	}

	rec = doJSON(t, h, http.MethodPost, "/v1/bets/"+bet.BetID+"/join", dto.JoinBetRequest{UserID: "B"})
	if rec.Code != http.StatusOK {
		t.Fatalf("join status = %d, body %s", rec.Code, rec.Body.String())
	}
	joined := decode[dto.BetResponse](t, rec)
	if joined.Status != "matched" || joined.OpponentID != "B" {
		t.Errorf("joined = %+v, want matched por B", joined)
	}

	rec = doJSON(t, h, http.MethodGet, "/v1/wallet?userId=B", nil)
	if wallet := decode[dto.WalletResponse](t, rec); wallet.BalanceUnits != 100 {
		t.Errorf("B balance = %d, want 100", wallet.BalanceUnits)
	}
}

func TestErrorStatusMapping(t *testing.T) {
	h, eng := newTestServer(t)
	deposit(t, eng, "A", 500)
	deposit(t, eng, "B", 100)

	rec := doJSON(t, h, http.MethodPost, "/v1/bets", dto.CreateBetRequest{
		UserID: "A", AmountUnits: 200, RoomCode: "R1", GameType: "classic",
	})
	bet := decode[dto.BetResponse](t, rec)

	cases := []struct {
		name   string
		method string
		path   string
		body   any
		want   int
	}{
		{"bet inexistente", http.MethodGet, "/v1/bets/nope", nil, http.StatusNotFound},
		{"aposta abaixo do mínimo", http.MethodPost, "/v1/bets", dto.CreateBetRequest{UserID: "A", AmountUnits: 30, RoomCode: "R2", GameType: "classic"}, http.StatusUnprocessableEntity},
		{"join na própria aposta", http.MethodPost, "/v1/bets/" + bet.BetID + "/join", dto.JoinBetRequest{UserID: "A"}, http.StatusUnprocessableEntity},
		{"join sem saldo", http.MethodPost, "/v1/bets/" + bet.BetID + "/join", dto.JoinBetRequest{UserID: "B"}, http.StatusConflict},
		{"cancel por quem não criou", http.MethodPost, "/v1/bets/" + bet.BetID + "/cancel", dto.CancelBetRequest{UserID: "B"}, http.StatusUnprocessableEntity},
		{"void de aposta open", http.MethodPost, "/v1/bets/" + bet.BetID + "/void", nil, http.StatusConflict},
		{"saque abaixo do mínimo", http.MethodPost, "/v1/wallet/withdraw", dto.WithdrawRequest{UserID: "A", AmountUnits: 50}, http.StatusUnprocessableEntity},
		{"payload inválido", http.MethodPost, "/v1/bets", dto.CreateBetRequest{UserID: "", AmountUnits: 100, RoomCode: "R"}, http.StatusBadRequest},
		{"wallet sem userId", http.MethodGet, "/v1/wallet", nil, http.StatusBadRequest},
	}
	for _, tc := range cases {
		rec := doJSON(t, h, tc.method, tc.path, tc.body)
		if rec.Code != tc.want {
			t.Errorf("%s: status = %d, want %d (body %s)", tc.name, rec.Code, tc.want, rec.Body.String())
		}
	}
}

func TestWithdrawConfirmOverHTTP(t *testing.T) {
	h, eng := newTestServer(t)
	deposit(t, eng, "A", 300)

	rec := doJSON(t, h, http.MethodPost, "/v1/wallet/withdraw", dto.WithdrawRequest{UserID: "A", AmountUnits: 100})
	if rec.Code != http.StatusAccepted {
		t.Fatalf("withdraw status = %d, body %s", rec.Code, rec.Body.String())
	}
	tx := decode[dto.TransactionResponse](t, rec)
	if tx.Status != "pending" {
		t.Errorf("tx status = %q, want pending", tx.Status)
	}

	rec = doJSON(t, h, http.MethodPost, "/v1/wallet/withdrawals/"+tx.TransactionID+"/confirm", dto.ConfirmWithdrawRequest{Approved: false})
	if rec.Code != http.StatusOK {
		t.Fatalf("confirm status = %d, body %s", rec.Code, rec.Body.String())
	}
	if resolved := decode[dto.TransactionResponse](t, rec); resolved.Status != "failed" {
		t.Errorf("resolved status = %q, want failed", resolved.Status)
	}

	rec = doJSON(t, h, http.MethodGet, "/v1/wallet?userId=A", nil)
	if wallet := decode[dto.WalletResponse](t, rec); wallet.BalanceUnits != 300 {
		t.Errorf("A balance = %d, want 300 (saque rejeitado devolve)", wallet.BalanceUnits)
	}

	// segunda confirmação do mesmo saque
	rec = doJSON(t, h, http.MethodPost, "/v1/wallet/withdrawals/"+tx.TransactionID+"/confirm", dto.ConfirmWithdrawRequest{Approved: true})
	if rec.Code != http.StatusConflict {
		t.Errorf("double confirm status = %d, want 409", rec.Code)
	}
}

func TestAdminReconcileOverHTTP(t *testing.T) {
	h, eng := newTestServer(t)
	deposit(t, eng, "A", 400)

	rec := doJSON(t, h, http.MethodPost, "/v1/bets", dto.CreateBetRequest{
		UserID: "A", AmountUnits: 100, RoomCode: "R1", GameType: "classic",
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("create status = %d", rec.Code)
	}

	rec = doJSON(t, h, http.MethodGet, "/v1/admin/reconcile?userId=A", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("reconcile status = %d, body %s", rec.Code, rec.Body.String())
	}
	rep := decode[dto.ReconcileResponse](t, rec)
	if !rep.Consistent || rep.BalanceUnits != 300 || rep.JournalSum != 300 {
		t.Errorf("reconcile = %+v, want consistente em 300", rep)
	}

	rec = doJSON(t, h, http.MethodGet, "/v1/admin/stats", nil)
	st := decode[dto.StatsResponse](t, rec)
	if st.TotalAccounts != 1 || st.OpenBets != 1 || st.TotalDeposited != 400 {
		t.Errorf("stats = %+v", st)
	}
}
