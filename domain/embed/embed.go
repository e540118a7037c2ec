// Package embed wraps encoded Glittr messages in OP_RETURN output scripts
// and finds them again in transactions.
package embed

import (
	"bytes"

	"github.com/btcsuite/btcd/txscript"
	"github.com/btcsuite/btcd/wire"
	"github.com/pkg/errors"
)

// Tag marks an OP_RETURN output as carrying a Glittr message.
var Tag = []byte("GLITTR")

// DefaultMaxSize is the largest combined size of Tag and payload Embed
// accepts: the script element size limit of the base chain.
const DefaultMaxSize = txscript.MaxScriptElementSize

var (
	// ErrPayloadTooLarge is returned when the tag and payload do not fit the
	// size limit.
	ErrPayloadTooLarge = errors.New("payload too large")

	// ErrNotGlittrScript is returned when a script is not a Glittr embed script.
	ErrNotGlittrScript = errors.New("not a glittr script")

	// ErrNoGlittrOutput is returned when a transaction has no Glittr output.
	ErrNoGlittrOutput = errors.New("transaction has no glittr output")
)

// Embed returns the script OP_RETURN <Tag> <payload>. Payload is copied
// verbatim.
func Embed(payload []byte) ([]byte, error) {
	return EmbedWithLimit(payload, DefaultMaxSize)
}

// EmbedWithLimit is Embed with a custom limit on len(Tag)+len(payload).
// Limits above DefaultMaxSize are lowered to DefaultMaxSize.
func EmbedWithLimit(payload []byte, maxSize int) ([]byte, error) {
	if maxSize <= 0 || maxSize > DefaultMaxSize {
		maxSize = DefaultMaxSize
	}
	if size := len(Tag) + len(payload); size > maxSize {
		return nil, errors.Wrapf(ErrPayloadTooLarge, "tag and payload are %d bytes, limit is %d", size, maxSize)
	}
	script, err := txscript.NewScriptBuilder().
		AddOp(txscript.OP_RETURN).
		AddData(Tag).
		AddData(payload).
		Script()
	if err != nil {
		return nil, errors.Wrap(err, "failed to build embed script")
	}
	return script, nil
}

// Extract returns the payload of a script produced by Embed.
func Extract(script []byte) ([]byte, error) {
	if len(script) == 0 || script[0] != txscript.OP_RETURN {
		return nil, errors.Wrap(ErrNotGlittrScript, "script does not start with OP_RETURN")
	}
	pushes, err := txscript.PushedData(script)
	if err != nil {
		return nil, errors.Wrapf(ErrNotGlittrScript, "unparsable script: %s", err)
	}
	if len(pushes) != 2 || !bytes.Equal(pushes[0], Tag) {
		return nil, errors.Wrap(ErrNotGlittrScript, "script does not carry the glittr tag")
	}
	payload := pushes[1]

	// Anything but the exact layout Embed produces is rejected, e.g.
	// non-minimal pushes or extra opcodes.
	expected, err := txscript.NewScriptBuilder().
		AddOp(txscript.OP_RETURN).
		AddData(Tag).
		AddData(payload).
		Script()
	if err != nil || !bytes.Equal(expected, script) {
		return nil, errors.Wrap(ErrNotGlittrScript, "script is not in canonical glittr layout")
	}
	return append([]byte(nil), payload...), nil
}

// IsGlittrScript returns whether script is a Glittr embed script.
func IsGlittrScript(script []byte) bool {
	_, err := Extract(script)
	return err == nil
}

// FindPayload returns the payload of the first Glittr output of tx and the
// index of that output.
func FindPayload(tx *wire.MsgTx) ([]byte, int, error) {
	for i, txOut := range tx.TxOut {
		payload, err := Extract(txOut.PkScript)
		if err == nil {
			return payload, i, nil
		}
	}
	return nil, -1, ErrNoGlittrOutput
}
