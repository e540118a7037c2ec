// Package workflow submits signed Glittr transactions and waits until the
// indexer has processed them.
//
// A run moves through Built, ValidationSubmitted, Broadcast and Polling and
// ends in Confirmed or Failed. Broadcast is never attempted before the
// indexer accepted the transaction.
package workflow

import (
	"bytes"
	"context"
	"encoding/json"
	"time"

	"github.com/btcsuite/btcd/wire"
	"github.com/pkg/errors"
)

// State is a step of a run.
type State int

// Run states, in order.
const (
	StateBuilt State = iota
	StateValidationSubmitted
	StateBroadcast
	StatePolling
	StateConfirmed
	StateFailed
)

var stateStrings = map[State]string{
	StateBuilt:               "built",
	StateValidationSubmitted: "validation_submitted",
	StateBroadcast:           "broadcast",
	StatePolling:             "polling",
	StateConfirmed:           "confirmed",
	StateFailed:              "failed",
}

func (s State) String() string {
	if str, ok := stateStrings[s]; ok {
		return str
	}
	return "unknown"
}

// ParseState is the inverse of State.String.
func ParseState(s string) (State, bool) {
	for state, str := range stateStrings {
		if str == s {
			return state, true
		}
	}
	return 0, false
}

// Validation is the indexer's verdict on an unbroadcast transaction.
type Validation struct {
	IsValid bool   `json:"is_valid"`
	Msg     string `json:"msg,omitempty"`
}

// Indexer is the metaprotocol indexer.
type Indexer interface {
	ValidateTx(ctx context.Context, rawTx []byte) (*Validation, error)

	// GetTx returns the indexer record of txID, or ErrNotIndexed.
	GetTx(ctx context.Context, txID string) (json.RawMessage, error)
}

// Broadcaster is the chain service that relays transactions.
type Broadcaster interface {
	// BroadcastTx returns the id of the relayed transaction.
	BroadcastTx(ctx context.Context, rawTx []byte) (string, error)
}

// Observer is notified about the progress of a run. Calls happen on the
// goroutine running the workflow.
type Observer interface {
	StateChanged(state State, txID string)
	PollAttempt(txID string, attempt int, err error)
}

// PollPolicy controls the confirmation poll.
type PollPolicy struct {
	// NotFoundInterval is the wait after the indexer reported the
	// transaction as not indexed yet.
	NotFoundInterval time.Duration

	// ErrorInterval is the wait after a failed poll request.
	ErrorInterval time.Duration

	// MaxAttempts bounds the number of polls. Zero means unbounded.
	MaxAttempts int

	// Timeout bounds the total time spent polling. Zero means unbounded.
	Timeout time.Duration
}

// DefaultPollPolicy polls every 1.5s while the transaction is not indexed
// and every 1s after errors, with no bounds.
func DefaultPollPolicy() PollPolicy {
	return PollPolicy{
		NotFoundInterval: 1500 * time.Millisecond,
		ErrorInterval:    time.Second,
	}
}

// Confirmation is the outcome of a successful run.
type Confirmation struct {
	TxID     string
	Record   json.RawMessage
	Attempts int
}

// Workflow drives transactions from validation to confirmation. A
// Workflow holds no per-run state and may run many transactions
// concurrently.
type Workflow struct {
	Indexer  Indexer
	Chain    Broadcaster
	Policy   PollPolicy
	Observer Observer
}

// New returns a workflow with the default poll policy.
func New(indexer Indexer, chain Broadcaster) *Workflow {
	return &Workflow{Indexer: indexer, Chain: chain, Policy: DefaultPollPolicy()}
}

// run is the state of a single Run or Resume.
type run struct {
	*Workflow
	state State
	txID  string
}

// Run validates, broadcasts and waits for rawTx to be indexed.
func (w *Workflow) Run(ctx context.Context, rawTx []byte) (*Confirmation, error) {
	r := &run{Workflow: w, state: StateBuilt, txID: localTxID(rawTx)}
	r.transition(StateBuilt)

	err := r.validate(ctx, rawTx)
	if err != nil {
		return nil, r.fail(err)
	}
	err = r.broadcast(ctx, rawTx)
	if err != nil {
		return nil, r.fail(err)
	}
	confirmation, err := r.poll(ctx)
	if err != nil {
		return nil, r.fail(err)
	}
	return confirmation, nil
}

// Resume waits for an already broadcast transaction to be indexed.
func (w *Workflow) Resume(ctx context.Context, txID string) (*Confirmation, error) {
	r := &run{Workflow: w, state: StateBroadcast, txID: txID}
	confirmation, err := r.poll(ctx)
	if err != nil {
		return nil, r.fail(err)
	}
	return confirmation, nil
}

func (r *run) transition(state State) {
	r.state = state
	log.Debugf("Transaction %s: %s", r.txIDOrPending(), state)
	if r.Observer != nil {
		r.Observer.StateChanged(state, r.txID)
	}
}

func (r *run) txIDOrPending() string {
	if r.txID == "" {
		return "<unknown>"
	}
	return r.txID
}

// localTxID returns the id of rawTx, or "" if rawTx is not a transaction.
func localTxID(rawTx []byte) string {
	var tx wire.MsgTx
	err := tx.Deserialize(bytes.NewReader(rawTx))
	if err != nil {
		return ""
	}
	return tx.TxHash().String()
}

func (r *run) fail(err *Error) error {
	r.transition(StateFailed)
	log.Warnf("Workflow failed: %s", err)
	return err
}

func (r *run) validate(ctx context.Context, rawTx []byte) *Error {
	r.transition(StateValidationSubmitted)
	validation, err := r.Indexer.ValidateTx(ctx, rawTx)
	if err != nil {
		if ctx.Err() != nil {
			return newError(ErrCancelled, r.state, "", "", ctx.Err())
		}
		return newError(ErrValidationUnavailable, r.state, "", "", err)
	}
	if !validation.IsValid {
		reason := validation.Msg
		if reason == "" {
			reason = "Tx invalid"
		}
		return newError(ErrRejectedByIndexer, r.state, "", reason, nil)
	}
	return nil
}

func (r *run) broadcast(ctx context.Context, rawTx []byte) *Error {
	r.transition(StateBroadcast)
	txID, err := r.Chain.BroadcastTx(ctx, rawTx)
	if err != nil {
		// The chain service may have relayed the transaction unless it
		// refused it, so the error carries the local txid either way.
		var refused *RefusedError
		switch {
		case errors.As(err, &refused):
			return newError(ErrBroadcastFailed, r.state, r.txID, refused.Status, err)
		case ctx.Err() != nil:
			return newError(ErrCancelled, r.state, r.txID, "outcome of the broadcast is unknown", err)
		}
		return newError(ErrBroadcastFailed, r.state, r.txID, "outcome of the broadcast is unknown", err)
	}
	if r.txID != "" && r.txID != txID {
		log.Warnf("Chain service reported txid %s for transaction %s", txID, r.txID)
	}
	r.txID = txID
	log.Infof("Broadcast transaction %s", txID)
	return nil
}

func (r *run) poll(parent context.Context) (*Confirmation, *Error) {
	r.transition(StatePolling)

	ctx := parent
	if r.Policy.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(parent, r.Policy.Timeout)
		defer cancel()
	}

	for attempt := 1; ; attempt++ {
		record, err := r.Indexer.GetTx(ctx, r.txID)
		if r.Observer != nil {
			r.Observer.PollAttempt(r.txID, attempt, err)
		}
		if err == nil {
			r.transition(StateConfirmed)
			return &Confirmation{TxID: r.txID, Record: record, Attempts: attempt}, nil
		}

		if ctx.Err() != nil {
			return nil, r.contextError(parent, ctx.Err())
		}

		interval := r.Policy.ErrorInterval
		if errors.Is(err, ErrNotIndexed) {
			interval = r.Policy.NotFoundInterval
			log.Debugf("Transaction %s not indexed yet (attempt %d)", r.txID, attempt)
		} else {
			log.Warnf("Polling transaction %s failed (attempt %d): %s", r.txID, attempt, err)
		}

		if r.Policy.MaxAttempts > 0 && attempt >= r.Policy.MaxAttempts {
			return nil, newError(ErrConfirmationTimeout, r.state, r.txID,
				"maximum number of poll attempts reached", err)
		}
		waitErr := wait(ctx, interval)
		if waitErr != nil {
			return nil, r.contextError(parent, waitErr)
		}
	}
}

// contextError classifies the end of the poll context. It is
// ErrCancelled when the caller's context ended, and ErrConfirmationTimeout
// when only the poll policy timeout expired.
func (r *run) contextError(parent context.Context, err error) *Error {
	if parent.Err() == nil && errors.Is(err, context.DeadlineExceeded) {
		return newError(ErrConfirmationTimeout, r.state, r.txID, "poll timeout reached", err)
	}
	return newError(ErrCancelled, r.state, r.txID, "", err)
}

func wait(ctx context.Context, interval time.Duration) error {
	timer := time.NewTimer(interval)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
