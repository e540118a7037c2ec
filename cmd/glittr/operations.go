package main

import (
	"context"
	"encoding/hex"
	"strconv"
	"strings"

	"github.com/glittrfi/glittr-go/domain/message"
	"github.com/pkg/errors"
)

func freeMint(ctx context.Context, cfg *configFlags, conf *freeMintConfig) error {
	msg, err := freeMintMessage(conf)
	if err != nil {
		return err
	}
	return submit(ctx, cfg, msg, conf.submitFlags)
}

func purchaseBurnSwap(ctx context.Context, cfg *configFlags, conf *purchaseBurnSwapConfig) error {
	msg, err := purchaseBurnSwapMessage(conf)
	if err != nil {
		return err
	}
	return submit(ctx, cfg, msg, conf.submitFlags)
}

func preallocated(ctx context.Context, cfg *configFlags, conf *preallocatedConfig) error {
	return submit(ctx, cfg, message.NewPreallocatedContract(), conf.submitFlags)
}

func mint(ctx context.Context, cfg *configFlags, conf *mintConfig) error {
	msg, err := mintMessage(conf)
	if err != nil {
		return err
	}
	return submit(ctx, cfg, msg, conf.submitFlags)
}

func burn(ctx context.Context, cfg *configFlags, conf *burnConfig) error {
	contract, err := message.ParseBlockTxTuple(conf.Contract)
	if err != nil {
		return err
	}
	return submit(ctx, cfg, message.NewBurn(contract), conf.submitFlags)
}

func swap(ctx context.Context, cfg *configFlags, conf *swapConfig) error {
	contract, err := message.ParseBlockTxTuple(conf.Contract)
	if err != nil {
		return err
	}
	return submit(ctx, cfg, message.NewSwap(contract), conf.submitFlags)
}

func transfer(ctx context.Context, cfg *configFlags, conf *transferConfig) error {
	msg, err := transferMessage(conf)
	if err != nil {
		return err
	}
	return submit(ctx, cfg, msg, conf.submitFlags)
}

func freeMintMessage(conf *freeMintConfig) (*message.Message, error) {
	freeMint := &message.FreeMint{
		AmountPerMint: conf.AmountPerMint,
		Divisibility:  conf.Divisibility,
		LiveTime:      conf.LiveTime,
	}
	if conf.SupplyCap != "" {
		supplyCap, err := strconv.ParseUint(conf.SupplyCap, 10, 64)
		if err != nil {
			return nil, errors.Wrapf(err, "invalid --supply-cap %s", conf.SupplyCap)
		}
		freeMint.SupplyCap = &supplyCap
	}
	msg := message.NewFreeMintContract(freeMint)
	return validated(msg)
}

func purchaseBurnSwapMessage(conf *purchaseBurnSwapConfig) (*message.Message, error) {
	inputAsset, err := parseInputAsset(conf.InputAsset)
	if err != nil {
		return nil, err
	}
	transferScheme, err := parseTransferScheme(conf.TransferScheme)
	if err != nil {
		return nil, err
	}

	var ratio message.TransferRatioType
	switch {
	case conf.OraclePubKey != "" && conf.Ratio != 0:
		return nil, errors.New("--ratio and --oracle-pubkey cannot be used together")
	case conf.OraclePubKey != "":
		pubKey, err := hex.DecodeString(conf.OraclePubKey)
		if err != nil {
			return nil, errors.Wrap(err, "invalid --oracle-pubkey")
		}
		oracle := &message.Oracle{PubKey: pubKey}
		if conf.OracleAssetID != "" {
			assetID := conf.OracleAssetID
			oracle.AssetID = &assetID
		}
		ratio = oracle
	default:
		ratio = &message.Fixed{Ratio: conf.Ratio}
	}

	msg := message.NewPurchaseBurnSwapContract(&message.PurchaseBurnSwap{
		InputAsset:        inputAsset,
		TransferScheme:    transferScheme,
		TransferRatioType: ratio,
	})
	return validated(msg)
}

func parseInputAsset(s string) (message.InputAsset, error) {
	switch s {
	case "raw_btc":
		return &message.RawBTC{}, nil
	case "metaprotocol":
		return &message.Metaprotocol{}, nil
	}
	contract, err := message.ParseBlockTxTuple(strings.TrimPrefix(s, "glittr:"))
	if err != nil {
		return nil, errors.Errorf("--input-asset must be raw_btc, metaprotocol or a contract id block:tx, got %q", s)
	}
	return &message.GlittrAsset{Contract: contract}, nil
}

func parseTransferScheme(s string) (message.TransferScheme, error) {
	if s == "burn" {
		return &message.Burn{}, nil
	}
	if address := strings.TrimPrefix(s, "purchase:"); address != s && address != "" {
		return &message.Purchase{Address: address}, nil
	}
	return nil, errors.Errorf("--transfer-scheme must be burn or purchase:<address>, got %q", s)
}

func mintMessage(conf *mintConfig) (*message.Message, error) {
	contract, err := message.ParseBlockTxTuple(conf.Contract)
	if err != nil {
		return nil, err
	}
	mintOption := &message.MintOption{Pointer: conf.Pointer}

	if conf.OracleSignature != "" || conf.OracleInput != "" {
		if conf.OracleSignature == "" || conf.OracleInput == "" {
			return nil, errors.New("--oracle-signature and --oracle-input must be used together")
		}
		signature, err := hex.DecodeString(conf.OracleSignature)
		if err != nil {
			return nil, errors.Wrap(err, "invalid --oracle-signature")
		}
		inputOutpoint, err := message.ParseOutPoint(conf.OracleInput)
		if err != nil {
			return nil, err
		}
		oracleMessage := message.OracleMessage{
			InputOutpoint: inputOutpoint,
			MinInValue:    conf.OracleMinInValue,
			OutValue:      conf.OracleOutValue,
		}
		if conf.OracleAssetID != "" {
			assetID := conf.OracleAssetID
			oracleMessage.AssetID = &assetID
		}
		mintOption.OracleMessage = &message.OracleMessageSigned{Signature: signature, Message: oracleMessage}
	}

	msg := message.NewContractCall(contract, mintOption)
	return validated(msg)
}

func transferMessage(conf *transferConfig) (*message.Message, error) {
	asset, err := message.ParseBlockTxTuple(conf.Asset)
	if err != nil {
		return nil, err
	}
	nOutputs := conf.NOutputs
	if nOutputs == 0 {
		nOutputs = uint32(len(conf.Amounts))
	}
	msg := message.NewTransfer(asset, nOutputs, conf.Amounts)
	return validated(msg)
}

func validated(msg *message.Message) (*message.Message, error) {
	err := message.Validate(msg)
	if err != nil {
		return nil, err
	}
	return msg, nil
}
