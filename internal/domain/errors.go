package domain

import (
	"fmt"
	"strings"
)

// Error types for consistent error handling across the billing core.

// ErrNaoEncontrado indicates a resource was not found.
type ErrNaoEncontrado struct {
	Resource string
	ID       int64
}

func (e *ErrNaoEncontrado) Error() string {
	return fmt.Sprintf("%s not found: %d", e.Resource, e.ID)
}

// ErrValidacao carries the list of human-readable validation messages
// collected by a validator; callers surface them as one joined failure.
type ErrValidacao struct {
	Erros []string
}

func (e *ErrValidacao) Error() string {
	return strings.Join(e.Erros, ", ")
}

// ErrTransicaoInvalida indicates a forbidden lifecycle transition.
type ErrTransicaoInvalida struct {
	Entity string
	From   string
	To     string
	Reason string
}

func (e *ErrTransicaoInvalida) Error() string {
	msg := fmt.Sprintf("%s: transição inválida de '%s' para '%s'", e.Entity, e.From, e.To)
	if e.Reason != "" {
		msg += ": " + e.Reason
	}
	return msg
}

// ErrServicoExterno indicates a failure in an external service call.
type ErrServicoExterno struct {
	Service string
	Err     error
}

func (e *ErrServicoExterno) Error() string {
	return fmt.Sprintf("external service error [%s]: %v", e.Service, e.Err)
}

func (e *ErrServicoExterno) Unwrap() error {
	return e.Err
}

// ErrArmazenamento indicates a persistence failure in the keyed store.
type ErrArmazenamento struct {
	Collection string
	Err        error
}

func (e *ErrArmazenamento) Error() string {
	return fmt.Sprintf("store error [%s]: %v", e.Collection, e.Err)
}

func (e *ErrArmazenamento) Unwrap() error {
	return e.Err
}

// ErrNaoAutorizado indicates invalid credentials or token.
type ErrNaoAutorizado struct {
	Message string
}

func (e *ErrNaoAutorizado) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return "não autorizado"
}
