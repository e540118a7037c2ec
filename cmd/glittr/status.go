package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"

	"github.com/glittrfi/glittr-go/domain/workflow"
)

func status(ctx context.Context, cfg *configFlags, conf *statusConfig) error {
	submitter, _, teardown, err := newSubmitter(cfg, nil)
	if err != nil {
		return err
	}
	defer teardown()

	confirmation, err := submitter.Resume(ctx, conf.TxID)
	if err != nil {
		return err
	}
	fmt.Printf("Transaction %s confirmed by the Glittr indexer\n", confirmation.TxID)
	return printRecord(confirmation)
}

func printRecord(confirmation *workflow.Confirmation) error {
	if len(confirmation.Record) == 0 {
		return nil
	}
	var indented bytes.Buffer
	err := json.Indent(&indented, confirmation.Record, "", "  ")
	if err != nil {
		fmt.Printf("%s\n", confirmation.Record)
		return nil
	}
	fmt.Printf("%s\n", indented.Bytes())
	return nil
}
