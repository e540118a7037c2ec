// Package assembler builds and signs the single-input, two-output
// transactions that carry Glittr messages.
package assembler

import (
	"bytes"
	"encoding/hex"

	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/btcsuite/btcd/txscript"
	"github.com/btcsuite/btcd/wire"
	"github.com/btcsuite/btcutil"
	"github.com/glittrfi/glittr-go/util/safecast"
	"github.com/pkg/errors"
)

var (
	// ErrInsufficientFunds is returned when the change is larger than the
	// funding input.
	ErrInsufficientFunds = errors.New("insufficient funds")

	// ErrSignatureInvalid is returned when the produced signature does not
	// verify against the signer's public key.
	ErrSignatureInvalid = errors.New("signature invalid")

	// ErrInvalidFunding is returned when the funding input cannot be spent by
	// the signer.
	ErrInvalidFunding = errors.New("invalid funding input")
)

// Signer signs sighashes with a single secp256k1 key.
type Signer interface {
	// PublicKey returns the serialized public key. Compressed and
	// uncompressed forms are accepted.
	PublicKey() []byte

	// Sign returns the DER encoded ECDSA signature of hash.
	Sign(hash []byte) ([]byte, error)
}

// Verifier checks DER encoded ECDSA signatures.
type Verifier interface {
	Verify(pubKey []byte, hash []byte, signature []byte) bool
}

// FundingInput is the previous output the assembled transaction spends.
type FundingInput struct {
	OutPoint wire.OutPoint
	Value    uint64
	PkScript []byte
}

// NewFundingInput returns the funding input for output vout of prevTx.
func NewFundingInput(prevTx *wire.MsgTx, vout uint32) (*FundingInput, error) {
	if prevTx == nil {
		return nil, errors.Wrap(ErrInvalidFunding, "previous transaction is missing")
	}
	if int(vout) >= len(prevTx.TxOut) {
		return nil, errors.Wrapf(ErrInvalidFunding, "output %d does not exist in %s (%d outputs)",
			vout, prevTx.TxHash(), len(prevTx.TxOut))
	}
	txOut := prevTx.TxOut[vout]
	value, err := safecast.Int64ToUint64(txOut.Value)
	if err != nil {
		return nil, errors.Wrapf(ErrInvalidFunding, "output %d has invalid value %d", vout, txOut.Value)
	}
	return &FundingInput{
		OutPoint: *wire.NewOutPoint(prevTxHash(prevTx), vout),
		Value:    value,
		PkScript: txOut.PkScript,
	}, nil
}

// NewFundingInputFromHex is NewFundingInput for a hex serialized previous
// transaction.
func NewFundingInputFromHex(prevTxHex string, vout uint32) (*FundingInput, error) {
	prevTx, err := DeserializeTx(prevTxHex)
	if err != nil {
		return nil, errors.Wrap(ErrInvalidFunding, err.Error())
	}
	return NewFundingInput(prevTx, vout)
}

// Result is a fully signed transaction ready for broadcast.
type Result struct {
	Tx   *wire.MsgTx
	Raw  []byte
	TxID string
	Fee  uint64
}

// Hex returns the hex encoding of the serialized transaction.
func (r *Result) Hex() string {
	return hex.EncodeToString(r.Raw)
}

// Assemble builds a transaction spending funding into two outputs: the
// embed script with value zero, then changeValue to changeAddress. The
// fee is the difference between the funding value and changeValue.
func Assemble(funding *FundingInput, embedScript []byte, changeAddress btcutil.Address,
	changeValue uint64, signer Signer, verifier Verifier) (*Result, error) {

	if funding == nil {
		return nil, errors.Wrap(ErrInvalidFunding, "funding input is missing")
	}
	if changeValue > funding.Value {
		return nil, errors.Wrapf(ErrInsufficientFunds, "change of %d exceeds funding input of %d",
			changeValue, funding.Value)
	}
	change, err := safecast.Uint64ToInt64(changeValue)
	if err != nil {
		return nil, errors.Wrapf(ErrInsufficientFunds, "change of %d is out of range", changeValue)
	}
	changeScript, err := txscript.PayToAddrScript(changeAddress)
	if err != nil {
		return nil, errors.Wrapf(err, "cannot pay to change address %s", changeAddress)
	}

	pubKey := signer.PublicKey()
	class, err := checkSpendable(funding.PkScript, pubKey)
	if err != nil {
		return nil, err
	}

	tx := wire.NewMsgTx(wire.TxVersion)
	outPoint := funding.OutPoint
	tx.AddTxIn(wire.NewTxIn(&outPoint, nil, nil))
	tx.AddTxOut(wire.NewTxOut(0, embedScript))
	tx.AddTxOut(wire.NewTxOut(change, changeScript))

	hash, err := txscript.CalcSignatureHash(funding.PkScript, txscript.SigHashAll, tx, 0)
	if err != nil {
		return nil, errors.Wrap(err, "failed to calculate signature hash")
	}
	signature, err := signer.Sign(hash)
	if err != nil {
		return nil, errors.Wrap(err, "failed to sign funding input")
	}
	if !verifier.Verify(pubKey, hash, signature) {
		return nil, errors.Wrapf(ErrSignatureInvalid, "signature over input %s", funding.OutPoint)
	}

	sigScript, err := signatureScript(class, signature, pubKey)
	if err != nil {
		return nil, err
	}
	tx.TxIn[0].SignatureScript = sigScript

	err = executeScript(tx, funding)
	if err != nil {
		return nil, err
	}

	buf := bytes.NewBuffer(make([]byte, 0, tx.SerializeSize()))
	err = tx.Serialize(buf)
	if err != nil {
		return nil, errors.Wrap(err, "failed to serialize transaction")
	}
	result := &Result{
		Tx:   tx,
		Raw:  buf.Bytes(),
		TxID: tx.TxHash().String(),
		Fee:  funding.Value - changeValue,
	}
	log.Debugf("Assembled transaction %s spending %s (fee %d)", result.TxID, funding.OutPoint, result.Fee)
	return result, nil
}

// checkSpendable makes sure pkScript pays to pubKey, either directly or
// through its hash.
func checkSpendable(pkScript []byte, pubKey []byte) (txscript.ScriptClass, error) {
	class := txscript.GetScriptClass(pkScript)
	switch class {
	case txscript.PubKeyHashTy:
		expected, err := payToPubKeyHashScript(btcutil.Hash160(pubKey))
		if err != nil {
			return class, err
		}
		if !bytes.Equal(expected, pkScript) {
			return class, errors.Wrap(ErrInvalidFunding, "funding output does not pay to the signer's key hash")
		}
	case txscript.PubKeyTy:
		expected, err := txscript.NewScriptBuilder().AddData(pubKey).AddOp(txscript.OP_CHECKSIG).Script()
		if err != nil {
			return class, errors.WithStack(err)
		}
		if !bytes.Equal(expected, pkScript) {
			return class, errors.Wrap(ErrInvalidFunding, "funding output does not pay to the signer's key")
		}
	default:
		return class, errors.Wrapf(ErrInvalidFunding, "unsupported funding script class %s", class)
	}
	return class, nil
}

func payToPubKeyHashScript(pubKeyHash []byte) ([]byte, error) {
	script, err := txscript.NewScriptBuilder().
		AddOp(txscript.OP_DUP).
		AddOp(txscript.OP_HASH160).
		AddData(pubKeyHash).
		AddOp(txscript.OP_EQUALVERIFY).
		AddOp(txscript.OP_CHECKSIG).
		Script()
	return script, errors.WithStack(err)
}

func signatureScript(class txscript.ScriptClass, signature []byte, pubKey []byte) ([]byte, error) {
	sigWithHashType := append(append([]byte(nil), signature...), byte(txscript.SigHashAll))
	builder := txscript.NewScriptBuilder().AddData(sigWithHashType)
	if class == txscript.PubKeyHashTy {
		builder.AddData(pubKey)
	}
	script, err := builder.Script()
	if err != nil {
		return nil, errors.Wrap(err, "failed to build signature script")
	}
	return script, nil
}

// executeScript runs the script engine over the signed input.
func executeScript(tx *wire.MsgTx, funding *FundingInput) error {
	value, err := safecast.Uint64ToInt64(funding.Value)
	if err != nil {
		return errors.Wrap(ErrInvalidFunding, err.Error())
	}
	vm, err := txscript.NewEngine(funding.PkScript, tx, 0, txscript.StandardVerifyFlags, nil, nil, value)
	if err != nil {
		return errors.Wrap(err, "failed to create script engine")
	}
	err = vm.Execute()
	if err != nil {
		return errors.Wrapf(ErrSignatureInvalid, "script execution failed: %s", err)
	}
	return nil
}

func prevTxHash(prevTx *wire.MsgTx) *chainhash.Hash {
	hash := prevTx.TxHash()
	return &hash
}
