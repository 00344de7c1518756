package dto

import "time"

type WalletResponse struct {
	UserID       string `json:"userId"`
	BalanceUnits int64  `json:"balance_units"`
	Version      int64  `json:"version"`
}

type BetResponse struct {
	BetID       string     `json:"betId"`
	CreatorID   string     `json:"creatorId"`
	OpponentID  string     `json:"opponentId,omitempty"`
	AmountUnits int64      `json:"amount_units"`
	Status      string     `json:"status"`
	RoomCode    string     `json:"room_code"`
	GameType    string     `json:"game_type"`
	CreatedAt   time.Time  `json:"created_at"`
	SettledAt   *time.Time `json:"settled_at,omitempty"`
	WinnerID    string     `json:"winnerId,omitempty"`
}

type TransactionResponse struct {
	TransactionID string    `json:"transactionId"`
	UserID        string    `json:"userId"`
	Kind          string    `json:"kind"`
	AmountUnits   int64     `json:"amount_units"`
	RelatedBetID  string    `json:"relatedBetId,omitempty"`
	GatewayRef    string    `json:"gateway_ref,omitempty"`
	Status        string    `json:"status"`
	Timestamp     time.Time `json:"ts"`
}

type StatsResponse struct {
	TotalAccounts   int64 `json:"total_accounts"`
	TotalBets       int64 `json:"total_bets"`
	OpenBets        int64 `json:"open_bets"`
	TotalDeposited  int64 `json:"total_deposited_units"`
	TotalWithdrawn  int64 `json:"total_withdrawn_units"`
	PendingWithdraw int64 `json:"pending_withdraw_units"`
}

type ReconcileResponse struct {
	UserID       string `json:"userId"`
	BalanceUnits int64  `json:"balance_units"`
	JournalSum   int64  `json:"journal_sum_units"`
	Consistent   bool   `json:"consistent"`
}

type ErrorResponse struct {
	Error string `json:"error"`
}
