package main

import (
	"context"
	"fmt"
	"os"

	"github.com/glittrfi/glittr-go/app/operation"
	"github.com/glittrfi/glittr-go/cmd/glittr/keys"
	"github.com/glittrfi/glittr-go/cmd/glittr/libglittrwallet"
	"github.com/glittrfi/glittr-go/domain/message"
	"github.com/glittrfi/glittr-go/domain/workflow"
	"github.com/glittrfi/glittr-go/infrastructure/db/journal"
	"github.com/glittrfi/glittr-go/infrastructure/network/chainclient"
	"github.com/glittrfi/glittr-go/infrastructure/network/indexerclient"
	"github.com/pkg/errors"
)

func printErrorAndExit(err error) {
	fmt.Fprintf(os.Stderr, "Error: %s\n", err)

	var workflowErr *workflow.Error
	if errors.As(err, &workflowErr) && workflowErr.Broadcasted() {
		if workflowErr.TxID == "" {
			fmt.Fprintln(os.Stderr, "The transaction may already be on chain. Do not resubmit before checking the chain.")
		} else {
			fmt.Fprintf(os.Stderr, "Transaction %s may already be on chain. Do not resubmit; "+
				"run 'glittr status --txid %s' to keep waiting for the indexer.\n", workflowErr.TxID, workflowErr.TxID)
		}
	}
	os.Exit(1)
}

func keysFilePath(cfg *configFlags) string {
	if cfg.KeysFile != "" {
		return cfg.KeysFile
	}
	return keys.DefaultKeysFile(cfg.ResolvedAppDir(), cfg.NetParams())
}

// loadKey returns the wallet key from --private-key or, failing that, from
// the password protected keys file.
func loadKey(cfg *configFlags) (*libglittrwallet.Key, error) {
	if cfg.PrivateKey != "" {
		return libglittrwallet.KeyFromWIF(cfg.PrivateKey, cfg.NetParams())
	}

	keysFile, err := readKeysFileForNetwork(cfg)
	if err != nil {
		return nil, err
	}
	password, err := keys.GetPassword("Password: ")
	if err != nil {
		return nil, err
	}
	mnemonic, err := keysFile.DecryptMnemonic(password)
	if err != nil {
		return nil, err
	}
	return libglittrwallet.KeyFromMnemonic(mnemonic, cfg.NetParams())
}

func readKeysFileForNetwork(cfg *configFlags) (*keys.Data, error) {
	path := keysFilePath(cfg)
	keysFile, err := keys.ReadKeysFile(path)
	if os.IsNotExist(errors.Cause(err)) {
		return nil, errors.Errorf("no keys file at %s: run 'glittr create' or pass --private-key", path)
	}
	if err != nil {
		return nil, err
	}
	if keysFile.Network != cfg.NetParams().Name {
		return nil, errors.Errorf("keys file %s is for %s, not %s", path, keysFile.Network, cfg.NetParams().Name)
	}
	return keysFile, nil
}

func openJournal(cfg *configFlags) (*journal.Journal, error) {
	return journal.Open(cfg.JournalDir())
}

// newSubmitter wires the services, journal and, when key is not nil, the
// wallet into a Submitter. The returned teardown closes the journal.
func newSubmitter(cfg *configFlags, key *libglittrwallet.Key) (submitter *operation.Submitter,
	chain *chainclient.Client, teardown func(), err error) {

	chainConfig, err := cfg.ChainClientConfig(&cfg.NetworkFlags)
	if err != nil {
		return nil, nil, nil, err
	}
	chain, err = chainclient.New(chainConfig)
	if err != nil {
		return nil, nil, nil, err
	}
	indexer, err := indexerclient.New(cfg.IndexerClientConfig())
	if err != nil {
		return nil, nil, nil, err
	}
	operationJournal, err := openJournal(cfg)
	if err != nil {
		return nil, nil, nil, err
	}

	submitterConfig := operation.Config{
		Chain:         chain,
		Indexer:       indexer,
		Policy:        cfg.PollPolicy(),
		Observer:      &progressObserver{},
		Journal:       operationJournal,
		Fee:           cfg.Fee,
		DustThreshold: cfg.DustThreshold,
	}
	if key != nil {
		address, err := key.Address()
		if err != nil {
			_ = operationJournal.Close()
			return nil, nil, nil, err
		}
		submitterConfig.Signer = key
		submitterConfig.Verifier = libglittrwallet.ECDSAVerifier{}
		submitterConfig.Address = address
	}
	submitter, err = operation.NewSubmitter(submitterConfig)
	if err != nil {
		_ = operationJournal.Close()
		return nil, nil, nil, err
	}
	teardown = func() {
		err := operationJournal.Close()
		if err != nil {
			log.Errorf("Failed to close journal: %s", err)
		}
	}
	return submitter, chain, teardown, nil
}

// submit builds msg with the wallet key and, unless dryRun is set, submits
// it and waits for the indexer.
func submit(ctx context.Context, cfg *configFlags, msg *message.Message, flags submitFlags) error {
	key, err := loadKey(cfg)
	if err != nil {
		return err
	}
	submitter, _, teardown, err := newSubmitter(cfg, key)
	if err != nil {
		return err
	}
	defer teardown()

	if flags.DryRun {
		built, err := submitter.Build(ctx, msg)
		if err != nil {
			return err
		}
		fmt.Printf("Operation:\t%s\n", msg.Kind())
		fmt.Printf("Payload:\t%s\n", built.Payload)
		fmt.Printf("Transaction ID:\t%s\n", built.TxID)
		fmt.Printf("Fee:\t\t%d sats\n", built.Fee)
		fmt.Printf("Transaction:\n%s\n", built.Hex())
		return nil
	}

	fmt.Printf("Submitting %s\n", msg.Kind())
	receipt, err := submitter.Submit(ctx, msg)
	if err != nil {
		return err
	}
	fmt.Printf("%s transaction %s confirmed by the Glittr indexer\n", msg.Kind(), receipt.Confirmation.TxID)
	return printRecord(receipt.Confirmation)
}

// progressObserver prints workflow progress to stdout.
type progressObserver struct{}

func (*progressObserver) StateChanged(state workflow.State, txID string) {
	switch state {
	case workflow.StateValidationSubmitted:
		fmt.Println("Validating transaction with the Glittr indexer . . .")
	case workflow.StateBroadcast:
		fmt.Println("Broadcasting transaction . . .")
	case workflow.StatePolling:
		fmt.Printf("Transaction broadcast: %s\n", txID)
		fmt.Println("Waiting for Glittr indexer . . .")
	case workflow.StateConfirmed:
		fmt.Println("Transaction found!")
	}
}

func (*progressObserver) PollAttempt(txID string, attempt int, err error) {
	if err != nil && !errors.Is(err, workflow.ErrNotIndexed) {
		fmt.Fprintf(os.Stderr, "Error fetching transaction (attempt %d): %s\n", attempt, err)
	}
}
