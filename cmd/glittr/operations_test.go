package main

import (
	"strings"
	"testing"

	"github.com/glittrfi/glittr-go/domain/message"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/require"
)

func encodeForTest(t *testing.T, msg *message.Message) string {
	encoded, err := message.Encode(msg)
	require.NoError(t, err)
	return string(encoded)
}

func TestFreeMintMessage(t *testing.T) {
	msg, err := freeMintMessage(&freeMintConfig{SupplyCap: "2000", AmountPerMint: 10, Divisibility: 18})
	require.NoError(t, err)
	require.Equal(t,
		`{"tx_type":{"contract_creation":{"contract_type":{"asset":{"free_mint":{"amount_per_mint":10,"divisibility":18,"live_time":0,"supply_cap":2000}}}}}}`,
		encodeForTest(t, msg))

	msg, err = freeMintMessage(&freeMintConfig{AmountPerMint: 10})
	require.NoError(t, err)
	require.NotContains(t, encodeForTest(t, msg), "supply_cap")

	_, err = freeMintMessage(&freeMintConfig{AmountPerMint: 10, Divisibility: 19})
	require.True(t, errors.Is(err, message.ErrOutOfRange), "unexpected error %v", err)

	_, err = freeMintMessage(&freeMintConfig{SupplyCap: "-1"})
	require.Error(t, err)
}

func TestPurchaseBurnSwapMessage(t *testing.T) {
	msg, err := purchaseBurnSwapMessage(&purchaseBurnSwapConfig{
		InputAsset:     "raw_btc",
		TransferScheme: "purchase:tb1qexample",
		Ratio:          1.5,
	})
	require.NoError(t, err)
	pbs := msg.TxType.(*message.ContractCreation).ContractType.(*message.PurchaseBurnSwap)
	require.IsType(t, &message.RawBTC{}, pbs.InputAsset)
	require.Equal(t, &message.Purchase{Address: "tb1qexample"}, pbs.TransferScheme)
	require.Equal(t, &message.Fixed{Ratio: 1.5}, pbs.TransferRatioType)

	msg, err = purchaseBurnSwapMessage(&purchaseBurnSwapConfig{
		InputAsset:     "100:2",
		TransferScheme: "burn",
		OraclePubKey:   "02ab",
		OracleAssetID:  "btc",
	})
	require.NoError(t, err)
	pbs = msg.TxType.(*message.ContractCreation).ContractType.(*message.PurchaseBurnSwap)
	require.Equal(t, &message.GlittrAsset{Contract: message.BlockTxTuple{Block: 100, Tx: 2}}, pbs.InputAsset)
	oracle := pbs.TransferRatioType.(*message.Oracle)
	require.Equal(t, []byte{0x02, 0xab}, oracle.PubKey)
	require.Equal(t, "btc", *oracle.AssetID)

	for _, conf := range []*purchaseBurnSwapConfig{
		{InputAsset: "gold", TransferScheme: "burn"},
		{InputAsset: "raw_btc", TransferScheme: "purchase:"},
		{InputAsset: "raw_btc", TransferScheme: "burn", Ratio: 1, OraclePubKey: "02"},
		{InputAsset: "raw_btc", TransferScheme: "burn", OraclePubKey: "zz"},
		{InputAsset: "raw_btc", TransferScheme: "burn", Ratio: -1},
	} {
		_, err := purchaseBurnSwapMessage(conf)
		require.Error(t, err, "%+v", conf)
	}
}

func TestMintMessage(t *testing.T) {
	msg, err := mintMessage(&mintConfig{Contract: "100:0"})
	require.NoError(t, err)
	require.Equal(t, `{"tx_type":{"contract_call":{"call_type":{"mint":{"pointer":0}},"contract":[100,0]}}}`,
		encodeForTest(t, msg))

	txID := strings.Repeat("cd", 32)
	msg, err = mintMessage(&mintConfig{
		Contract: "100:0",
		Pointer:  1,
		oracleFlags: oracleFlags{
			OracleSignature:  "3044",
			OracleInput:      txID + ":0",
			OracleMinInValue: 5,
			OracleOutValue:   7,
		},
	})
	require.NoError(t, err)
	mintOption := msg.TxType.(*message.ContractCall).CallType.(*message.MintOption)
	require.Equal(t, uint32(1), mintOption.Pointer)
	require.Equal(t, []byte{0x30, 0x44}, mintOption.OracleMessage.Signature)
	require.Equal(t, txID, mintOption.OracleMessage.Message.InputOutpoint.Hash.String())
	require.Equal(t, uint64(7), mintOption.OracleMessage.Message.OutValue)

	_, err = mintMessage(&mintConfig{Contract: "100"})
	require.Error(t, err)
	_, err = mintMessage(&mintConfig{Contract: "100:0", oracleFlags: oracleFlags{OracleSignature: "00"}})
	require.Error(t, err)
}

func TestTransferMessage(t *testing.T) {
	msg, err := transferMessage(&transferConfig{Asset: "5:1", Amounts: []uint64{10, 20}})
	require.NoError(t, err)
	transfer := msg.TxType.(*message.Transfer)
	require.Equal(t, uint32(2), transfer.NOutputs)
	require.Equal(t, []uint64{10, 20}, transfer.Amounts)

	msg, err = transferMessage(&transferConfig{Asset: "5:1", Amounts: []uint64{10}, NOutputs: 3})
	require.NoError(t, err)
	require.Equal(t, uint32(3), msg.TxType.(*message.Transfer).NOutputs)
}
