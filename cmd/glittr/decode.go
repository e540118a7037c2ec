package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"

	"github.com/glittrfi/glittr-go/domain/assembler"
	"github.com/glittrfi/glittr-go/domain/embed"
	"github.com/glittrfi/glittr-go/domain/message"
	"github.com/glittrfi/glittr-go/infrastructure/network/chainclient"
	"github.com/pkg/errors"
)

func decode(ctx context.Context, cfg *configFlags, conf *decodeConfig) error {
	if (conf.Transaction == "") == (conf.TxID == "") {
		return errors.New("exactly one of --transaction or --txid is required")
	}

	txHex := conf.Transaction
	if conf.TxID != "" {
		chainConfig, err := cfg.ChainClientConfig(&cfg.NetworkFlags)
		if err != nil {
			return err
		}
		chain, err := chainclient.New(chainConfig)
		if err != nil {
			return err
		}
		txHex, err = chain.TxHex(ctx, conf.TxID)
		if err != nil {
			return err
		}
	}

	decoded, err := decodeTransaction(txHex)
	if err != nil {
		return err
	}
	fmt.Printf("Transaction ID:\t%s\n", decoded.txID)
	fmt.Printf("Output:\t\t%d\n", decoded.outputIndex)
	fmt.Printf("Operation:\t%s\n", decoded.msg.Kind())
	if !decoded.canonical {
		fmt.Println("Warning:\tpayload is not canonically encoded")
	}
	fmt.Printf("Message:\n%s\n", decoded.prettyPayload)
	return nil
}

type decodedTransaction struct {
	txID          string
	outputIndex   int
	msg           *message.Message
	canonical     bool
	prettyPayload string
}

func decodeTransaction(txHex string) (*decodedTransaction, error) {
	tx, err := assembler.DeserializeTx(txHex)
	if err != nil {
		return nil, err
	}
	payload, outputIndex, err := embed.FindPayload(tx)
	if err != nil {
		return nil, err
	}
	canonical := true
	msg, err := message.DecodeCanonical(payload)
	if errors.Is(err, message.ErrNotCanonical) {
		canonical = false
		msg, err = message.Decode(payload)
	}
	if err != nil {
		return nil, errors.Wrapf(err, "output %d carries an invalid Glittr message", outputIndex)
	}
	var pretty bytes.Buffer
	err = json.Indent(&pretty, payload, "", "  ")
	if err != nil {
		return nil, errors.WithStack(err)
	}
	return &decodedTransaction{
		txID:          tx.TxHash().String(),
		outputIndex:   outputIndex,
		msg:           msg,
		canonical:     canonical,
		prettyPayload: pretty.String(),
	}, nil
}
