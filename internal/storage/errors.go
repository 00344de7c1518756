package storage

import "errors"

var (
	ErrNotFound          = errors.New("not found")
	ErrInsufficientFunds = errors.New("insufficient funds")

	// ErrConflict sinaliza falha de CAS (version mudou entre leitura e commit).
	// O chamador decide se tenta de novo; o engine converte em contention
	// depois de esgotar as tentativas.
	ErrConflict = errors.New("version conflict")

	ErrSelfMatch         = errors.New("cannot join own bet")
	ErrAlreadyMatched    = errors.New("bet already matched")
	ErrNotMatched        = errors.New("bet not matched")
	ErrAlreadySettled    = errors.New("bet already settled")
	ErrInvalidTransition = errors.New("invalid status transition")

	// ErrDuplicateRef indica que já existe lançamento com o mesmo gateway_ref
	// (replay de confirmação de depósito).
	ErrDuplicateRef = errors.New("duplicate gateway ref")
)
