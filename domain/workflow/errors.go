package workflow

import (
	"fmt"

	"github.com/pkg/errors"
)

// ErrNotIndexed is returned by Indexer.GetTx while the indexer has not yet
// processed a transaction. It is never returned by Run.
var ErrNotIndexed = errors.New("transaction not indexed yet")

// Failure kinds carried by Error.Kind.
var (
	// ErrRejectedByIndexer means the indexer validator refused the
	// transaction. Nothing was broadcast.
	ErrRejectedByIndexer = errors.New("rejected by indexer")

	// ErrValidationUnavailable means the indexer validator could not be
	// reached. Nothing was broadcast.
	ErrValidationUnavailable = errors.New("validation unavailable")

	// ErrBroadcastFailed means the chain service refused the transaction.
	ErrBroadcastFailed = errors.New("broadcast failed")

	// ErrConfirmationTimeout means the transaction was broadcast but the
	// indexer did not report it within the poll policy limits.
	ErrConfirmationTimeout = errors.New("confirmation timeout")

	// ErrCancelled means the caller's context ended the run.
	ErrCancelled = errors.New("cancelled")
)

// RefusedError is returned by a Broadcaster when the chain service answered
// and refused the transaction. Any other broadcast error leaves the outcome
// unknown.
type RefusedError struct {
	Status string
}

func (e *RefusedError) Error() string {
	return e.Status
}

// Error is returned by every failed run.
type Error struct {
	Kind   error
	State  State
	TxID   string
	Reason string
	Cause  error
}

func (e *Error) Error() string {
	message := e.Kind.Error()
	if e.Reason != "" {
		message = fmt.Sprintf("%s: %s", message, e.Reason)
	}
	if e.TxID != "" {
		message = fmt.Sprintf("%s (txid %s)", message, e.TxID)
	}
	if e.Cause != nil {
		message = fmt.Sprintf("%s: %s", message, e.Cause)
	}
	return message
}

// Unwrap returns the underlying cause, if any.
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is reports whether target is the kind of e.
func (e *Error) Is(target error) bool {
	return e.Kind == target
}

// Broadcasted reports whether the transaction may already be on chain.
// Callers must not resubmit the same operation when this is true. Only a
// broadcast the chain service refused is known not to have happened.
func (e *Error) Broadcasted() bool {
	switch {
	case e.State == StateBroadcast:
		var refused *RefusedError
		return !errors.As(e.Cause, &refused)
	case e.State >= StatePolling:
		return e.TxID != ""
	}
	return false
}

func newError(kind error, state State, txID, reason string, cause error) *Error {
	return &Error{Kind: kind, State: state, TxID: txID, Reason: reason, Cause: cause}
}
