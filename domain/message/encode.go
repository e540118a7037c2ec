package message

import (
	"encoding/json"
	"math"
	"unicode/utf8"

	"github.com/pkg/errors"
)

// Encode returns the canonical wire encoding of msg.
//
// Encoding fails with an *EncodingError of kind ErrInvalidVariant when a
// union is unset, or ErrOutOfRange when a value breaks a protocol bound.
// Nothing is returned on failure.
func Encode(msg *Message) ([]byte, error) {
	envelope, err := msg.toWire()
	if err != nil {
		return nil, err
	}
	data, err := json.Marshal(envelope)
	if err != nil {
		return nil, errors.Wrap(err, "failed to marshal message")
	}
	return data, nil
}

// Validate checks msg the same way Encode does without producing output.
func Validate(msg *Message) error {
	_, err := msg.toWire()
	return err
}

func (m *Message) toWire() (*envelopeOut, error) {
	if m == nil || m.TxType == nil {
		return nil, invalidVariant(keyTxType, "no transaction type set")
	}
	txType, err := m.TxType.txTypeVariant(keyTxType)
	if err != nil {
		return nil, err
	}
	return &envelopeOut{TxType: txType}, nil
}

func (t *Transfer) txTypeVariant(path string) (variant, error) {
	if t == nil {
		return variant{}, invalidVariant(path, "nil transfer")
	}
	amounts := t.Amounts
	if amounts == nil {
		amounts = []uint64{}
	}
	return variant{key: keyTransfer, value: &transferJSON{
		Amounts:  amounts,
		Asset:    t.Asset.toWire(),
		NOutputs: uint64Ptr(uint64(t.NOutputs)),
	}}, nil
}

func (c *ContractCreation) txTypeVariant(path string) (variant, error) {
	if c == nil {
		return variant{}, invalidVariant(path, "nil contract creation")
	}
	path = joinPath(path, keyContractCreation)
	if c.ContractType == nil {
		return variant{}, invalidVariant(joinPath(path, "contract_type.asset"), "no contract type set")
	}
	asset, err := c.ContractType.contractTypeVariant(joinPath(path, "contract_type.asset"))
	if err != nil {
		return variant{}, err
	}
	return variant{key: keyContractCreation, value: &contractCreationOut{
		ContractType: contractTypeOut{Asset: asset},
	}}, nil
}

func (c *ContractCall) txTypeVariant(path string) (variant, error) {
	if c == nil {
		return variant{}, invalidVariant(path, "nil contract call")
	}
	path = joinPath(path, keyContractCall)
	if c.CallType == nil {
		return variant{}, invalidVariant(joinPath(path, "call_type"), "no call type set")
	}
	callType, err := c.CallType.callTypeVariant(joinPath(path, "call_type"))
	if err != nil {
		return variant{}, err
	}
	return variant{key: keyContractCall, value: &contractCallOut{
		CallType: callType,
		Contract: c.Contract.toWire(),
	}}, nil
}

func (t BlockTxTuple) toWire() []uint64 {
	return []uint64{t.Block, t.Tx}
}

func (p *Preallocated) contractTypeVariant(path string) (variant, error) {
	if p == nil {
		return variant{}, invalidVariant(path, "nil preallocated contract")
	}
	return variant{key: keyPreallocated, value: unit{}}, nil
}

func (f *FreeMint) contractTypeVariant(path string) (variant, error) {
	if f == nil {
		return variant{}, invalidVariant(path, "nil free mint contract")
	}
	path = joinPath(path, keyFreeMint)
	if f.Divisibility > MaxDivisibility {
		return variant{}, outOfRange(joinPath(path, "divisibility"),
			"%d exceeds the maximum divisibility of %d", f.Divisibility, MaxDivisibility)
	}
	var supplyCap *uint64
	if f.SupplyCap != nil {
		supplyCap = uint64Ptr(*f.SupplyCap)
	}
	return variant{key: keyFreeMint, value: &freeMintJSON{
		AmountPerMint: uint64Ptr(f.AmountPerMint),
		Divisibility:  uint64Ptr(uint64(f.Divisibility)),
		LiveTime:      uint64Ptr(f.LiveTime),
		SupplyCap:     supplyCap,
	}}, nil
}

func (p *PurchaseBurnSwap) contractTypeVariant(path string) (variant, error) {
	if p == nil {
		return variant{}, invalidVariant(path, "nil purchase/burn/swap contract")
	}
	path = joinPath(path, keyPurchaseBurnSwap)

	if p.InputAsset == nil {
		return variant{}, invalidVariant(joinPath(path, "input_asset"), "no input asset set")
	}
	inputAsset, err := p.InputAsset.inputAssetVariant(joinPath(path, "input_asset"))
	if err != nil {
		return variant{}, err
	}
	if p.TransferScheme == nil {
		return variant{}, invalidVariant(joinPath(path, "transfer_scheme"), "no transfer scheme set")
	}
	transferScheme, err := p.TransferScheme.transferSchemeVariant(joinPath(path, "transfer_scheme"))
	if err != nil {
		return variant{}, err
	}
	if p.TransferRatioType == nil {
		return variant{}, invalidVariant(joinPath(path, "transfer_ratio_type"), "no transfer ratio type set")
	}
	transferRatio, err := p.TransferRatioType.transferRatioVariant(joinPath(path, "transfer_ratio_type"))
	if err != nil {
		return variant{}, err
	}

	return variant{key: keyPurchaseBurnSwap, value: &purchaseBurnSwapOut{
		InputAsset:        inputAsset,
		TransferRatioType: transferRatio,
		TransferScheme:    transferScheme,
	}}, nil
}

func (r *RawBTC) inputAssetVariant(path string) (variant, error) {
	if r == nil {
		return variant{}, invalidVariant(path, "nil raw_btc input asset")
	}
	return variant{key: keyRawBTC, value: unit{}}, nil
}

func (g *GlittrAsset) inputAssetVariant(path string) (variant, error) {
	if g == nil {
		return variant{}, invalidVariant(path, "nil glittr_asset input asset")
	}
	return variant{key: keyGlittrAsset, value: g.Contract.toWire()}, nil
}

func (m *Metaprotocol) inputAssetVariant(path string) (variant, error) {
	if m == nil {
		return variant{}, invalidVariant(path, "nil metaprotocol input asset")
	}
	return variant{key: keyMetaprotocol, value: unit{}}, nil
}

func (p *Purchase) transferSchemeVariant(path string) (variant, error) {
	if p == nil {
		return variant{}, invalidVariant(path, "nil purchase transfer scheme")
	}
	if err := checkString(joinPath(path, keyPurchase), p.Address); err != nil {
		return variant{}, err
	}
	return variant{key: keyPurchase, value: p.Address}, nil
}

func (b *Burn) transferSchemeVariant(path string) (variant, error) {
	if b == nil {
		return variant{}, invalidVariant(path, "nil burn transfer scheme")
	}
	return variant{key: keyBurn, value: unit{}}, nil
}

func (f *Fixed) transferRatioVariant(path string) (variant, error) {
	if f == nil {
		return variant{}, invalidVariant(path, "nil fixed transfer ratio")
	}
	if math.IsNaN(f.Ratio) || math.IsInf(f.Ratio, 0) || f.Ratio < 0 {
		return variant{}, outOfRange(joinPath(path, keyFixed+".ratio"), "ratio must be a finite non-negative number, got %v", f.Ratio)
	}
	return variant{key: keyFixed, value: &fixedJSON{Ratio: &f.Ratio}}, nil
}

func (o *Oracle) transferRatioVariant(path string) (variant, error) {
	if o == nil {
		return variant{}, invalidVariant(path, "nil oracle transfer ratio")
	}
	setting := &oracleSettingJSON{}
	if o.AssetID != nil {
		if err := checkString(joinPath(path, keyOracle+".setting.asset_id"), *o.AssetID); err != nil {
			return variant{}, err
		}
		setting.AssetID = o.AssetID
	}
	return variant{key: keyOracle, value: &oracleJSON{
		PubKey:  bytesToWire(o.PubKey),
		Setting: setting,
	}}, nil
}

func (m *MintOption) callTypeVariant(path string) (variant, error) {
	if m == nil {
		return variant{}, invalidVariant(path, "nil mint option")
	}
	mint := &mintJSON{Pointer: uint64Ptr(uint64(m.Pointer))}
	if m.OracleMessage != nil {
		oracleMessage, err := m.OracleMessage.toWire(joinPath(path, keyMint+".oracle_message"))
		if err != nil {
			return variant{}, err
		}
		mint.OracleMessage = oracleMessage
	}
	return variant{key: keyMint, value: mint}, nil
}

func (b *BurnCall) callTypeVariant(path string) (variant, error) {
	if b == nil {
		return variant{}, invalidVariant(path, "nil burn call")
	}
	return variant{key: keyBurn, value: unit{}}, nil
}

func (s *SwapCall) callTypeVariant(path string) (variant, error) {
	if s == nil {
		return variant{}, invalidVariant(path, "nil swap call")
	}
	return variant{key: keySwap, value: unit{}}, nil
}

func (o *OracleMessageSigned) toWire(path string) (*oracleMessageSignedJSON, error) {
	message := o.Message
	wireMessage := &oracleMessageJSON{
		InputOutpoint: stringPtr(message.InputOutpoint.String()),
		MinInValue:    uint64Ptr(message.MinInValue),
		OutValue:      uint64Ptr(message.OutValue),
	}
	if message.AssetID != nil {
		if err := checkString(joinPath(path, "message.asset_id"), *message.AssetID); err != nil {
			return nil, err
		}
		wireMessage.AssetID = stringPtr(*message.AssetID)
	}
	return &oracleMessageSignedJSON{
		Message:   wireMessage,
		Signature: bytesToWire(o.Signature),
	}, nil
}

// bytesToWire encodes a byte string as a JSON array of integers.
func bytesToWire(b []byte) []uint64 {
	out := make([]uint64, len(b))
	for i, v := range b {
		out[i] = uint64(v)
	}
	return out
}

// checkString rejects strings encoding/json would silently rewrite.
func checkString(path, s string) error {
	if !utf8.ValidString(s) {
		return &EncodingError{Kind: ErrMalformed, Path: path, Detail: "invalid UTF-8"}
	}
	return nil
}

func uint64Ptr(v uint64) *uint64 {
	return &v
}

func stringPtr(s string) *string {
	return &s
}
