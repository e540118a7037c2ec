package main

import (
	"bytes"
	"encoding/hex"
	"testing"

	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/btcsuite/btcd/txscript"
	"github.com/btcsuite/btcd/wire"
	"github.com/glittrfi/glittr-go/domain/embed"
	"github.com/glittrfi/glittr-go/domain/message"
	"github.com/stretchr/testify/require"
)

func txHexWithOutputs(t *testing.T, scripts ...[]byte) string {
	tx := wire.NewMsgTx(wire.TxVersion)
	tx.AddTxIn(wire.NewTxIn(wire.NewOutPoint(&chainhash.Hash{4}, 0), nil, nil))
	for _, script := range scripts {
		tx.AddTxOut(wire.NewTxOut(0, script))
	}
	var buf bytes.Buffer
	require.NoError(t, tx.Serialize(&buf))
	return hex.EncodeToString(buf.Bytes())
}

func TestDecodeTransaction(t *testing.T) {
	payload, err := message.Encode(message.NewBurn(message.BlockTxTuple{Block: 7, Tx: 3}))
	require.NoError(t, err)
	script, err := embed.Embed(payload)
	require.NoError(t, err)

	decoded, err := decodeTransaction(txHexWithOutputs(t, []byte{txscript.OP_TRUE}, script))
	require.NoError(t, err)
	require.Equal(t, 1, decoded.outputIndex)
	require.Equal(t, "contract_call/burn", decoded.msg.Kind())
	require.True(t, decoded.canonical)
	require.Contains(t, decoded.prettyPayload, "\n")

	reordered, err := embed.Embed([]byte(`{"tx_type":{"contract_call":{"contract":[7,3],"call_type":{"burn":{}}}}}`))
	require.NoError(t, err)
	decoded, err = decodeTransaction(txHexWithOutputs(t, reordered))
	require.NoError(t, err)
	require.False(t, decoded.canonical)
	require.Equal(t, "contract_call/burn", decoded.msg.Kind())

	_, err = decodeTransaction(txHexWithOutputs(t, []byte{txscript.OP_TRUE}))
	require.Error(t, err)

	badScript, err := embed.Embed([]byte(`{"tx_type":{"unknown":{}}}`))
	require.NoError(t, err)
	_, err = decodeTransaction(txHexWithOutputs(t, badScript))
	require.ErrorIs(t, err, message.ErrInvalidVariant)

	_, err = decodeTransaction("not hex")
	require.Error(t, err)
}
