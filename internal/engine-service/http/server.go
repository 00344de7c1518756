package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/ludojoy/wager-platform/internal/engine"
	"github.com/ludojoy/wager-platform/internal/engine-service/dto"
	"github.com/ludojoy/wager-platform/internal/listing"
	"github.com/ludojoy/wager-platform/internal/storage"
	"github.com/ludojoy/wager-platform/pkg/contracts/events"
)

// Server expõe a API REST na frente do matching engine.
// O identificador de usuário chega já autenticado pelo provedor de identidade;
// aqui ele é só um campo confiável do payload.
type Server struct {
	log     *zap.Logger
	eng     *engine.Engine
	listing *listing.Cache // opcional
	publ    interface {
		PublishBetMatched(context.Context, events.BetMatched) error
	} // opcional
}

func NewServer(log *zap.Logger, eng *engine.Engine, lc *listing.Cache, publ interface {
	PublishBetMatched(context.Context, events.BetMatched) error
}) *Server {
	return &Server{log: log, eng: eng, listing: lc, publ: publ}
}

func (s *Server) Router() http.Handler {
	r := chi.NewRouter()

	r.Post("/v1/accounts", s.signup)

	r.Post("/v1/bets", s.createBet)
	r.Get("/v1/bets", s.listOpenBets)
	r.Get("/v1/bets/{id}", s.getBet)
	r.Post("/v1/bets/{id}/join", s.joinBet)
	r.Post("/v1/bets/{id}/cancel", s.cancelBet)
	r.Post("/v1/bets/{id}/void", s.voidBet)

	r.Get("/v1/wallet", s.getWallet)
	r.Post("/v1/wallet/withdraw", s.requestWithdraw)
	r.Post("/v1/wallet/withdrawals/{id}/confirm", s.confirmWithdraw)
	r.Get("/v1/wallet/transactions", s.listTransactions)

	r.Get("/v1/admin/stats", s.adminStats)
	r.Get("/v1/admin/reconcile", s.adminReconcile)

	return r
}

// statusFor mapeia os erros do engine para códigos HTTP: rejeições de regra
// viram 422, conflitos de estado/concorrência viram 409. Nada disso é falha
// de sistema.
func statusFor(err error) int {
	switch {
	case errors.Is(err, storage.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, engine.ErrBelowMinimum),
		errors.Is(err, storage.ErrSelfMatch),
		errors.Is(err, engine.ErrNotCreator),
		errors.Is(err, engine.ErrNotParticipant):
		return http.StatusUnprocessableEntity
	case errors.Is(err, storage.ErrInsufficientFunds),
		errors.Is(err, storage.ErrAlreadyMatched),
		errors.Is(err, storage.ErrNotMatched),
		errors.Is(err, storage.ErrAlreadySettled),
		errors.Is(err, storage.ErrInvalidTransition),
		errors.Is(err, engine.ErrContention):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

func (s *Server) writeErr(w http.ResponseWriter, err error) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		s.log.Error("request failed", zap.Error(err))
	}
	writeJSON(w, status, dto.ErrorResponse{Error: err.Error()})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func betResponse(b storage.Bet) dto.BetResponse {
	resp := dto.BetResponse{
		BetID:       b.BetID,
		CreatorID:   b.CreatorID,
		OpponentID:  b.OpponentID,
		AmountUnits: b.Amount,
		Status:      b.Status,
		RoomCode:    b.RoomCode,
		GameType:    b.GameType,
		CreatedAt:   b.CreatedAt,
		WinnerID:    b.WinnerID,
	}
	if !b.SettledAt.IsZero() {
		t := b.SettledAt
		resp.SettledAt = &t
	}
	return resp
}

func txResponse(t storage.Transaction) dto.TransactionResponse {
	return dto.TransactionResponse{
		TransactionID: t.TransactionID,
		UserID:        t.UserID,
		Kind:          t.Kind,
		AmountUnits:   t.Amount,
		RelatedBetID:  t.RelatedBetID,
		GatewayRef:    t.GatewayRef,
		Status:        t.Status,
		Timestamp:     t.Timestamp,
	}
}

// signup garante a conta do usuário com saldo zero (idempotente).
func (s *Server) signup(w http.ResponseWriter, r *http.Request) {
	var req dto.SignupRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.UserID == "" {
		writeJSON(w, http.StatusBadRequest, dto.ErrorResponse{Error: "invalid payload"})
		return
	}
	acc, err := s.eng.EnsureAccount(r.Context(), req.UserID)
	if err != nil {
		s.writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, dto.WalletResponse{UserID: acc.UserID, BalanceUnits: acc.Balance, Version: acc.Version})
}

func (s *Server) createBet(w http.ResponseWriter, r *http.Request) {
	var req dto.CreateBetRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, dto.ErrorResponse{Error: "bad json"})
		return
	}
	if req.UserID == "" || req.AmountUnits <= 0 || req.RoomCode == "" {
		writeJSON(w, http.StatusBadRequest, dto.ErrorResponse{Error: "invalid payload"})
		return
	}

	bet, err := s.eng.CreateBet(r.Context(), req.UserID, req.AmountUnits, req.RoomCode, req.GameType)
	if err != nil {
		s.writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, betResponse(bet))
}

func (s *Server) joinBet(w http.ResponseWriter, r *http.Request) {
	betID := chi.URLParam(r, "id")
	var req dto.JoinBetRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.UserID == "" {
		writeJSON(w, http.StatusBadRequest, dto.ErrorResponse{Error: "invalid payload"})
		return
	}

	bet, err := s.eng.JoinBet(r.Context(), betID, req.UserID)
	if err != nil {
		s.writeErr(w, err)
		return
	}

	if s.publ != nil {
		_ = s.publ.PublishBetMatched(r.Context(), events.BetMatched{
			BetID:       bet.BetID,
			CreatorID:   bet.CreatorID,
			OpponentID:  bet.OpponentID,
			AmountUnits: bet.Amount,
			RoomCode:    bet.RoomCode,
		})
	}

	writeJSON(w, http.StatusOK, betResponse(bet))
}

func (s *Server) cancelBet(w http.ResponseWriter, r *http.Request) {
	betID := chi.URLParam(r, "id")
	var req dto.CancelBetRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.UserID == "" {
		writeJSON(w, http.StatusBadRequest, dto.ErrorResponse{Error: "invalid payload"})
		return
	}

	bet, err := s.eng.CancelBet(r.Context(), betID, req.UserID)
	if err != nil {
		s.writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, betResponse(bet))
}

// voidBet anula uma aposta matched devolvendo os dois stakes (via de disputa).
func (s *Server) voidBet(w http.ResponseWriter, r *http.Request) {
	betID := chi.URLParam(r, "id")
	bet, err := s.eng.VoidBet(r.Context(), betID)
	if err != nil {
		s.writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, betResponse(bet))
}

func (s *Server) getBet(w http.ResponseWriter, r *http.Request) {
	bet, err := s.eng.BetByID(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, betResponse(bet))
}

// listOpenBets serve a listagem preferencialmente do cache; em miss, busca no
// banco e repovoa. Consistência eventual é aceitável aqui.
func (s *Server) listOpenBets(w http.ResponseWriter, r *http.Request) {
	gameType := r.URL.Query().Get("gameType")

	if s.listing != nil {
		if bets, ok, _ := s.listing.Get(r.Context(), gameType); ok {
			writeJSON(w, http.StatusOK, toBetResponses(bets))
			return
		}
	}

	bets, err := s.eng.OpenBets(r.Context(), gameType)
	if err != nil {
		s.writeErr(w, err)
		return
	}
	if s.listing != nil {
		_ = s.listing.Set(r.Context(), gameType, bets)
	}
	writeJSON(w, http.StatusOK, toBetResponses(bets))
}

func toBetResponses(bets []storage.Bet) []dto.BetResponse {
	out := make([]dto.BetResponse, 0, len(bets))
	for _, b := range bets {
		out = append(out, betResponse(b))
	}
	return out
}

func (s *Server) getWallet(w http.ResponseWriter, r *http.Request) {
	userID := r.URL.Query().Get("userId")
	if userID == "" {
		writeJSON(w, http.StatusBadRequest, dto.ErrorResponse{Error: "userId required"})
		return
	}
	acc, err := s.eng.Balance(r.Context(), userID)
	if err != nil {
		s.writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, dto.WalletResponse{UserID: acc.UserID, BalanceUnits: acc.Balance, Version: acc.Version})
}

func (s *Server) requestWithdraw(w http.ResponseWriter, r *http.Request) {
	var req dto.WithdrawRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, dto.ErrorResponse{Error: "bad json"})
		return
	}
	if req.UserID == "" || req.AmountUnits <= 0 {
		writeJSON(w, http.StatusBadRequest, dto.ErrorResponse{Error: "invalid payload"})
		return
	}

	tx, err := s.eng.RequestWithdraw(r.Context(), req.UserID, req.AmountUnits)
	if err != nil {
		s.writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusAccepted, txResponse(tx))
}

// confirmWithdraw é a operação administrativa que resolve um saque pending.
func (s *Server) confirmWithdraw(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	var req dto.ConfirmWithdrawRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, dto.ErrorResponse{Error: "bad json"})
		return
	}

	tx, err := s.eng.ConfirmWithdraw(r.Context(), id, req.Approved)
	if err != nil {
		s.writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, txResponse(tx))
}

func (s *Server) listTransactions(w http.ResponseWriter, r *http.Request) {
	userID := r.URL.Query().Get("userId")
	if userID == "" {
		writeJSON(w, http.StatusBadRequest, dto.ErrorResponse{Error: "userId required"})
		return
	}
	txs, err := s.eng.Transactions(r.Context(), userID)
	if err != nil {
		s.writeErr(w, err)
		return
	}
	out := make([]dto.TransactionResponse, 0, len(txs))
	for _, t := range txs {
		out = append(out, txResponse(t))
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) adminStats(w http.ResponseWriter, r *http.Request) {
	st, err := s.eng.Stats(r.Context())
	if err != nil {
		s.writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, dto.StatsResponse{
		TotalAccounts:   st.TotalAccounts,
		TotalBets:       st.TotalBets,
		OpenBets:        st.OpenBets,
		TotalDeposited:  st.TotalDeposited,
		TotalWithdrawn:  st.TotalWithdrawn,
		PendingWithdraw: st.PendingWithdraw,
	})
}

func (s *Server) adminReconcile(w http.ResponseWriter, r *http.Request) {
	userID := r.URL.Query().Get("userId")
	if userID == "" {
		writeJSON(w, http.StatusBadRequest, dto.ErrorResponse{Error: "userId required"})
		return
	}
	balance, sum, err := s.eng.Reconcile(r.Context(), userID)
	if err != nil {
		s.writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, dto.ReconcileResponse{
		UserID:       userID,
		BalanceUnits: balance,
		JournalSum:   sum,
		Consistent:   balance == sum,
	})
}
