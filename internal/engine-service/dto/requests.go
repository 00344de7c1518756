package dto

type CreateBetRequest struct {
	UserID      string `json:"userId"`
	AmountUnits int64  `json:"amount_units"`
	RoomCode    string `json:"room_code"`
	GameType    string `json:"game_type"` // "classic" | "popular"
}

type JoinBetRequest struct {
	UserID string `json:"userId"`
}

type CancelBetRequest struct {
	UserID string `json:"userId"`
}

type WithdrawRequest struct {
	UserID      string `json:"userId"`
	AmountUnits int64  `json:"amount_units"`
}

type ConfirmWithdrawRequest struct {
	Approved bool `json:"approved"`
}

type SignupRequest struct {
	UserID string `json:"userId"`
}
