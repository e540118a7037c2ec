// Package operation runs Glittr operations end to end: encode, embed,
// fund, assemble, validate, broadcast and confirm.
package operation

import (
	"context"
	"encoding/json"

	"github.com/btcsuite/btcutil"
	"github.com/davecgh/go-spew/spew"
	"github.com/glittrfi/glittr-go/domain/assembler"
	"github.com/glittrfi/glittr-go/domain/embed"
	"github.com/glittrfi/glittr-go/domain/message"
	"github.com/glittrfi/glittr-go/domain/workflow"
	"github.com/glittrfi/glittr-go/infrastructure/db/journal"
	"github.com/glittrfi/glittr-go/infrastructure/logger"
	"github.com/glittrfi/glittr-go/infrastructure/network/chainclient"
	"github.com/pkg/errors"
)

// ErrNoFundingUTXO is returned when the wallet has no confirmed output
// above the dust threshold.
var ErrNoFundingUTXO = errors.New("no UTXO available to fund the operation")

// ChainService is the subset of the chain API operations need.
type ChainService interface {
	workflow.Broadcaster
	UTXOs(ctx context.Context, address string) ([]*chainclient.UTXO, error)
	TxHex(ctx context.Context, txID string) (string, error)
}

// Config configures a Submitter.
type Config struct {
	Chain    ChainService
	Indexer  workflow.Indexer
	Policy   workflow.PollPolicy
	Observer workflow.Observer

	// Journal is optional.
	Journal *journal.Journal

	Signer   assembler.Signer
	Verifier assembler.Verifier
	Address  btcutil.Address

	Fee           uint64
	DustThreshold uint64
}

// Submitter runs operations for a single wallet address. It is safe for
// concurrent use, though concurrent operations may select the same
// funding output.
type Submitter struct {
	cfg      Config
	workflow *workflow.Workflow
}

// NewSubmitter returns a Submitter for cfg. A Submitter without a signer
// can only resume operations.
func NewSubmitter(cfg Config) (*Submitter, error) {
	if cfg.Chain == nil || cfg.Indexer == nil {
		return nil, errors.New("chain and indexer services are required")
	}
	return &Submitter{
		cfg: cfg,
		workflow: &workflow.Workflow{
			Indexer:  cfg.Indexer,
			Chain:    cfg.Chain,
			Policy:   cfg.Policy,
			Observer: cfg.Observer,
		},
	}, nil
}

// Built is an assembled, unbroadcast operation.
type Built struct {
	Message *message.Message
	Payload []byte
	Funding *chainclient.UTXO
	*assembler.Result
}

// Receipt is the outcome of a confirmed operation.
type Receipt struct {
	*Built
	Confirmation *workflow.Confirmation
}

// Build encodes msg and assembles a signed transaction carrying it, funded
// by the first confirmed UTXO of the wallet above the dust threshold.
func (s *Submitter) Build(ctx context.Context, msg *message.Message) (*Built, error) {
	onEnd := logger.LogAndMeasureExecutionTime(log, "Submitter.Build")
	defer onEnd()

	if s.cfg.Signer == nil || s.cfg.Verifier == nil || s.cfg.Address == nil {
		return nil, errors.New("a signer, verifier and address are required to build operations")
	}

	payload, err := message.Encode(msg)
	if err != nil {
		return nil, err
	}
	embedScript, err := embed.Embed(payload)
	if err != nil {
		return nil, err
	}

	address := s.cfg.Address.EncodeAddress()
	utxos, err := s.cfg.Chain.UTXOs(ctx, address)
	if err != nil {
		return nil, err
	}
	utxo, ok := chainclient.SelectUTXO(utxos, s.cfg.DustThreshold)
	if !ok {
		return nil, errors.Wrapf(ErrNoFundingUTXO, "address %s has %d UTXOs, none confirmed above %d sats",
			address, len(utxos), s.cfg.DustThreshold)
	}
	log.Debugf("Funding %s with %s:%d (%d sats)", msg.Kind(), utxo.TxID, utxo.Vout, utxo.Value)

	prevTxHex, err := s.cfg.Chain.TxHex(ctx, utxo.TxID)
	if err != nil {
		return nil, err
	}
	funding, err := assembler.NewFundingInputFromHex(prevTxHex, utxo.Vout)
	if err != nil {
		return nil, err
	}
	if funding.OutPoint.Hash.String() != utxo.TxID {
		return nil, errors.Wrapf(assembler.ErrInvalidFunding, "chain service returned transaction %s for %s",
			funding.OutPoint.Hash, utxo.TxID)
	}

	if funding.Value < s.cfg.Fee {
		return nil, errors.Wrapf(assembler.ErrInsufficientFunds, "UTXO %s:%d holds %d sats, fee is %d",
			utxo.TxID, utxo.Vout, funding.Value, s.cfg.Fee)
	}

	result, err := assembler.Assemble(funding, embedScript, s.cfg.Address, funding.Value-s.cfg.Fee,
		s.cfg.Signer, s.cfg.Verifier)
	if err != nil {
		return nil, err
	}
	log.Tracef("Assembled %s", logger.NewLogClosure(func() string {
		return spew.Sdump(result.Tx)
	}))
	return &Built{Message: msg, Payload: payload, Funding: utxo, Result: result}, nil
}

// Submit builds msg, sends it through the indexer validation and the chain
// service, and waits until the indexer has processed it.
func (s *Submitter) Submit(ctx context.Context, msg *message.Message) (*Receipt, error) {
	built, err := s.Build(ctx, msg)
	if err != nil {
		return nil, err
	}
	s.journalBuilt(built)

	confirmation, err := s.workflow.Run(ctx, built.Raw)
	s.journalOutcome(built.TxID, confirmation, err)
	if err != nil {
		return nil, err
	}
	logRecord(confirmation)
	return &Receipt{Built: built, Confirmation: confirmation}, nil
}

// Resume polls the indexer for a journaled transaction. Confirmed entries
// are returned without polling.
func (s *Submitter) Resume(ctx context.Context, txID string) (*workflow.Confirmation, error) {
	if s.cfg.Journal != nil {
		entry, err := s.cfg.Journal.Get(txID)
		switch {
		case err == nil && entry.State == workflow.StateConfirmed.String():
			return &workflow.Confirmation{TxID: txID, Record: entry.Record}, nil
		case err != nil && !errors.Is(err, journal.ErrNotFound):
			return nil, err
		}
	}
	confirmation, err := s.workflow.Resume(ctx, txID)
	s.journalOutcome(txID, confirmation, err)
	if err != nil {
		return nil, err
	}
	logRecord(confirmation)
	return confirmation, nil
}

func (s *Submitter) journalBuilt(built *Built) {
	if s.cfg.Journal == nil {
		return
	}
	err := s.cfg.Journal.Put(&journal.Entry{
		TxID:      built.TxID,
		Operation: built.Message.Kind(),
		Payload:   json.RawMessage(built.Payload),
		RawTx:     built.Hex(),
		Fee:       built.Fee,
		State:     workflow.StateBuilt.String(),
	})
	if err != nil {
		log.Errorf("Failed to journal transaction %s: %s", built.TxID, err)
	}
}

func (s *Submitter) journalOutcome(txID string, confirmation *workflow.Confirmation, runErr error) {
	if s.cfg.Journal == nil {
		return
	}
	err := s.cfg.Journal.Update(txID, func(entry *journal.Entry) {
		if runErr == nil {
			entry.State = workflow.StateConfirmed.String()
			entry.Error = ""
			entry.Record = confirmation.Record
			return
		}
		entry.Error = runErr.Error()
		entry.State = workflow.StateFailed.String()
		var workflowErr *workflow.Error
		if errors.As(runErr, &workflowErr) && workflowErr.Broadcasted() {
			// The transaction may still confirm, keep it resumable.
			entry.State = workflow.StatePolling.String()
		}
	})
	if errors.Is(err, journal.ErrNotFound) {
		log.Debugf("Transaction %s is not journaled", txID)
		return
	}
	if err != nil {
		log.Errorf("Failed to journal outcome of %s: %s", txID, err)
	}
}

func logRecord(confirmation *workflow.Confirmation) {
	log.Infof("Transaction %s indexed after %d polls", confirmation.TxID, confirmation.Attempts)
	log.Debugf("Indexer record: %s", logger.NewLogClosure(func() string {
		var record interface{}
		err := json.Unmarshal(confirmation.Record, &record)
		if err != nil {
			return string(confirmation.Record)
		}
		return spew.Sdump(record)
	}))
}
