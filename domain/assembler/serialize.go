package assembler

import (
	"bytes"
	"encoding/hex"
	"strings"

	"github.com/btcsuite/btcd/wire"
	"github.com/pkg/errors"
)

// DeserializeTx parses a hex serialized transaction.
func DeserializeTx(txHex string) (*wire.MsgTx, error) {
	raw, err := hex.DecodeString(strings.TrimSpace(txHex))
	if err != nil {
		return nil, errors.Wrap(err, "transaction is not valid hex")
	}
	return DeserializeRawTx(raw)
}

// DeserializeRawTx parses a serialized transaction.
func DeserializeRawTx(raw []byte) (*wire.MsgTx, error) {
	tx := &wire.MsgTx{}
	err := tx.Deserialize(bytes.NewReader(raw))
	if err != nil {
		return nil, errors.Wrap(err, "failed to deserialize transaction")
	}
	return tx, nil
}
