package engine

import "errors"

var (
	// ErrBelowMinimum: valor abaixo do mínimo de política (aposta, depósito ou saque).
	ErrBelowMinimum = errors.New("amount below minimum")

	// ErrContention: unidades concorrentes conflitaram e as tentativas internas
	// se esgotaram. Único erro que o engine tenta de novo por conta própria;
	// todos os outros são terminais para a chamada.
	ErrContention = errors.New("contention")

	// ErrNotCreator: só o criador pode cancelar uma aposta open.
	ErrNotCreator = errors.New("requester is not the bet creator")

	// ErrNotParticipant: o vencedor declarado não é criador nem oponente.
	ErrNotParticipant = errors.New("winner is not a bet participant")
)
