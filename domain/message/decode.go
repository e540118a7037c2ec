package message

import (
	"bytes"
	"encoding/json"
	"io"
	"math"
	"sort"
	"strconv"
	"strings"

	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/btcsuite/btcd/wire"
	"github.com/glittrfi/glittr-go/util/safecast"
	"github.com/pkg/errors"
)

// Decode parses a wire encoded message. It accepts every output of Encode
// and rejects unknown fields and variants. Members without fields may also
// be given as a bare string, e.g. "burn" for {"burn":{}}.
func Decode(data []byte) (*Message, error) {
	var envelope envelopeIn
	if err := unmarshalStrict(data, "", &envelope); err != nil {
		return nil, err
	}
	if envelope.TxType == nil {
		return nil, missingField(keyTxType)
	}
	key, raw, err := splitVariant(envelope.TxType, keyTxType)
	if err != nil {
		return nil, err
	}
	decode, ok := txTypeDecoders[key]
	if !ok {
		return nil, invalidVariant(keyTxType, "unknown transaction type %q", key)
	}
	txType, err := decode(raw, joinPath(keyTxType, key))
	if err != nil {
		return nil, err
	}
	return &Message{TxType: txType}, nil
}

// DecodeCanonical is Decode that also requires data to be exactly the
// canonical encoding of the decoded message.
func DecodeCanonical(data []byte) (*Message, error) {
	msg, err := Decode(data)
	if err != nil {
		return nil, err
	}
	canonical, err := Encode(msg)
	if err != nil {
		return nil, err
	}
	if !bytes.Equal(canonical, data) {
		return nil, &EncodingError{Kind: ErrNotCanonical, Detail: "expected " + string(canonical)}
	}
	return msg, nil
}

var txTypeDecoders = map[string]func(raw json.RawMessage, path string) (TxType, error){
	keyTransfer:         decodeTransfer,
	keyContractCreation: decodeContractCreation,
	keyContractCall:     decodeContractCall,
}

var contractTypeDecoders = map[string]func(raw json.RawMessage, path string) (ContractType, error){
	keyPreallocated: func(raw json.RawMessage, path string) (ContractType, error) {
		return &Preallocated{}, decodeUnit(raw, path)
	},
	keyFreeMint:         decodeFreeMint,
	keyPurchaseBurnSwap: decodePurchaseBurnSwap,
}

var inputAssetDecoders = map[string]func(raw json.RawMessage, path string) (InputAsset, error){
	keyRawBTC: func(raw json.RawMessage, path string) (InputAsset, error) {
		return &RawBTC{}, decodeUnit(raw, path)
	},
	keyGlittrAsset: func(raw json.RawMessage, path string) (InputAsset, error) {
		var tuple []uint64
		if err := unmarshalStrict(raw, path, &tuple); err != nil {
			return nil, err
		}
		contract, err := decodeTuple(tuple, path)
		if err != nil {
			return nil, err
		}
		return &GlittrAsset{Contract: contract}, nil
	},
	keyMetaprotocol: func(raw json.RawMessage, path string) (InputAsset, error) {
		return &Metaprotocol{}, decodeUnit(raw, path)
	},
}

var transferSchemeDecoders = map[string]func(raw json.RawMessage, path string) (TransferScheme, error){
	keyPurchase: func(raw json.RawMessage, path string) (TransferScheme, error) {
		var address *string
		if err := unmarshalStrict(raw, path, &address); err != nil {
			return nil, err
		}
		if address == nil {
			return nil, missingField(path)
		}
		return &Purchase{Address: *address}, nil
	},
	keyBurn: func(raw json.RawMessage, path string) (TransferScheme, error) {
		return &Burn{}, decodeUnit(raw, path)
	},
}

var transferRatioDecoders = map[string]func(raw json.RawMessage, path string) (TransferRatioType, error){
	keyFixed:  decodeFixed,
	keyOracle: decodeOracle,
}

var callTypeDecoders = map[string]func(raw json.RawMessage, path string) (CallType, error){
	keyMint: decodeMint,
	keyBurn: func(raw json.RawMessage, path string) (CallType, error) {
		return &BurnCall{}, decodeUnit(raw, path)
	},
	keySwap: func(raw json.RawMessage, path string) (CallType, error) {
		return &SwapCall{}, decodeUnit(raw, path)
	},
}

func decodeTransfer(raw json.RawMessage, path string) (TxType, error) {
	var transfer transferJSON
	if err := unmarshalStrict(raw, path, &transfer); err != nil {
		return nil, err
	}
	asset, err := decodeTuple(transfer.Asset, joinPath(path, "asset"))
	if err != nil {
		return nil, err
	}
	if transfer.NOutputs == nil {
		return nil, missingField(joinPath(path, "n_outputs"))
	}
	nOutputs, err := narrowUint32(*transfer.NOutputs, joinPath(path, "n_outputs"))
	if err != nil {
		return nil, err
	}
	if transfer.Amounts == nil {
		return nil, missingField(joinPath(path, "amounts"))
	}
	var amounts []uint64
	if len(transfer.Amounts) > 0 {
		amounts = transfer.Amounts
	}
	return &Transfer{Asset: asset, NOutputs: nOutputs, Amounts: amounts}, nil
}

func decodeContractCreation(raw json.RawMessage, path string) (TxType, error) {
	var creation contractCreationIn
	if err := unmarshalStrict(raw, path, &creation); err != nil {
		return nil, err
	}
	if creation.ContractType == nil {
		return nil, missingField(joinPath(path, "contract_type"))
	}
	path = joinPath(path, "contract_type.asset")
	if creation.ContractType.Asset == nil {
		return nil, missingField(path)
	}
	key, value, err := splitVariant(creation.ContractType.Asset, path)
	if err != nil {
		return nil, err
	}
	decode, ok := contractTypeDecoders[key]
	if !ok {
		return nil, invalidVariant(path, "unknown contract type %q", key)
	}
	contractType, err := decode(value, joinPath(path, key))
	if err != nil {
		return nil, err
	}
	return &ContractCreation{ContractType: contractType}, nil
}

func decodeContractCall(raw json.RawMessage, path string) (TxType, error) {
	var call contractCallIn
	if err := unmarshalStrict(raw, path, &call); err != nil {
		return nil, err
	}
	contract, err := decodeTuple(call.Contract, joinPath(path, "contract"))
	if err != nil {
		return nil, err
	}
	callPath := joinPath(path, "call_type")
	if call.CallType == nil {
		return nil, missingField(callPath)
	}
	key, value, err := splitVariant(call.CallType, callPath)
	if err != nil {
		return nil, err
	}
	decode, ok := callTypeDecoders[key]
	if !ok {
		return nil, invalidVariant(callPath, "unknown call type %q", key)
	}
	callType, err := decode(value, joinPath(callPath, key))
	if err != nil {
		return nil, err
	}
	return &ContractCall{Contract: contract, CallType: callType}, nil
}

func decodeFreeMint(raw json.RawMessage, path string) (ContractType, error) {
	var freeMint freeMintJSON
	if err := unmarshalStrict(raw, path, &freeMint); err != nil {
		return nil, err
	}
	if freeMint.AmountPerMint == nil {
		return nil, missingField(joinPath(path, "amount_per_mint"))
	}
	if freeMint.Divisibility == nil {
		return nil, missingField(joinPath(path, "divisibility"))
	}
	if freeMint.LiveTime == nil {
		return nil, missingField(joinPath(path, "live_time"))
	}
	if *freeMint.Divisibility > MaxDivisibility {
		return nil, outOfRange(joinPath(path, "divisibility"),
			"%d exceeds the maximum divisibility of %d", *freeMint.Divisibility, MaxDivisibility)
	}
	divisibility, err := safecast.Uint64ToUint8(*freeMint.Divisibility)
	if err != nil {
		return nil, &EncodingError{Kind: ErrOutOfRange, Path: joinPath(path, "divisibility"), Cause: err}
	}
	return &FreeMint{
		SupplyCap:     freeMint.SupplyCap,
		AmountPerMint: *freeMint.AmountPerMint,
		Divisibility:  divisibility,
		LiveTime:      *freeMint.LiveTime,
	}, nil
}

func decodePurchaseBurnSwap(raw json.RawMessage, path string) (ContractType, error) {
	var pbs purchaseBurnSwapIn
	if err := unmarshalStrict(raw, path, &pbs); err != nil {
		return nil, err
	}

	inputAssetPath := joinPath(path, "input_asset")
	if pbs.InputAsset == nil {
		return nil, missingField(inputAssetPath)
	}
	key, value, err := splitVariant(pbs.InputAsset, inputAssetPath)
	if err != nil {
		return nil, err
	}
	decodeInputAsset, ok := inputAssetDecoders[key]
	if !ok {
		return nil, invalidVariant(inputAssetPath, "unknown input asset %q", key)
	}
	inputAsset, err := decodeInputAsset(value, joinPath(inputAssetPath, key))
	if err != nil {
		return nil, err
	}

	schemePath := joinPath(path, "transfer_scheme")
	if pbs.TransferScheme == nil {
		return nil, missingField(schemePath)
	}
	key, value, err = splitVariant(pbs.TransferScheme, schemePath)
	if err != nil {
		return nil, err
	}
	decodeScheme, ok := transferSchemeDecoders[key]
	if !ok {
		return nil, invalidVariant(schemePath, "unknown transfer scheme %q", key)
	}
	transferScheme, err := decodeScheme(value, joinPath(schemePath, key))
	if err != nil {
		return nil, err
	}

	ratioPath := joinPath(path, "transfer_ratio_type")
	if pbs.TransferRatioType == nil {
		return nil, missingField(ratioPath)
	}
	key, value, err = splitVariant(pbs.TransferRatioType, ratioPath)
	if err != nil {
		return nil, err
	}
	decodeRatio, ok := transferRatioDecoders[key]
	if !ok {
		return nil, invalidVariant(ratioPath, "unknown transfer ratio type %q", key)
	}
	transferRatio, err := decodeRatio(value, joinPath(ratioPath, key))
	if err != nil {
		return nil, err
	}

	return &PurchaseBurnSwap{
		InputAsset:        inputAsset,
		TransferScheme:    transferScheme,
		TransferRatioType: transferRatio,
	}, nil
}

func decodeFixed(raw json.RawMessage, path string) (TransferRatioType, error) {
	var fixed fixedJSON
	if err := unmarshalStrict(raw, path, &fixed); err != nil {
		return nil, err
	}
	if fixed.Ratio == nil {
		return nil, missingField(joinPath(path, "ratio"))
	}
	if math.IsInf(*fixed.Ratio, 0) || *fixed.Ratio < 0 {
		return nil, outOfRange(joinPath(path, "ratio"), "ratio must be a finite non-negative number, got %v", *fixed.Ratio)
	}
	return &Fixed{Ratio: *fixed.Ratio}, nil
}

func decodeOracle(raw json.RawMessage, path string) (TransferRatioType, error) {
	var oracle oracleJSON
	if err := unmarshalStrict(raw, path, &oracle); err != nil {
		return nil, err
	}
	pubKey, err := decodeBytes(oracle.PubKey, joinPath(path, "pubkey"))
	if err != nil {
		return nil, err
	}
	if oracle.Setting == nil {
		return nil, missingField(joinPath(path, "setting"))
	}
	return &Oracle{PubKey: pubKey, AssetID: oracle.Setting.AssetID}, nil
}

func decodeMint(raw json.RawMessage, path string) (CallType, error) {
	var mint mintJSON
	if err := unmarshalStrict(raw, path, &mint); err != nil {
		return nil, err
	}
	if mint.Pointer == nil {
		return nil, missingField(joinPath(path, "pointer"))
	}
	pointer, err := narrowUint32(*mint.Pointer, joinPath(path, "pointer"))
	if err != nil {
		return nil, err
	}
	option := &MintOption{Pointer: pointer}
	if mint.OracleMessage != nil {
		option.OracleMessage, err = decodeOracleMessageSigned(mint.OracleMessage, joinPath(path, "oracle_message"))
		if err != nil {
			return nil, err
		}
	}
	return option, nil
}

func decodeOracleMessageSigned(signed *oracleMessageSignedJSON, path string) (*OracleMessageSigned, error) {
	signature, err := decodeBytes(signed.Signature, joinPath(path, "signature"))
	if err != nil {
		return nil, err
	}
	if signed.Message == nil {
		return nil, missingField(joinPath(path, "message"))
	}
	path = joinPath(path, "message")
	message := signed.Message
	if message.InputOutpoint == nil {
		return nil, missingField(joinPath(path, "input_outpoint"))
	}
	outpoint, err := parseOutPoint(*message.InputOutpoint, joinPath(path, "input_outpoint"))
	if err != nil {
		return nil, err
	}
	if message.MinInValue == nil {
		return nil, missingField(joinPath(path, "min_in_value"))
	}
	if message.OutValue == nil {
		return nil, missingField(joinPath(path, "out_value"))
	}
	return &OracleMessageSigned{
		Signature: signature,
		Message: OracleMessage{
			InputOutpoint: *outpoint,
			MinInValue:    *message.MinInValue,
			OutValue:      *message.OutValue,
			AssetID:       message.AssetID,
		},
	}, nil
}

// parseOutPoint parses the "txid:vout" form produced by wire.OutPoint.String.
func parseOutPoint(s string, path string) (*wire.OutPoint, error) {
	separator := strings.LastIndexByte(s, ':')
	if separator < 0 {
		return nil, &EncodingError{Kind: ErrMalformed, Path: path, Detail: "expected txid:vout, got " + strconv.Quote(s)}
	}
	txID, vout := s[:separator], s[separator+1:]
	if len(txID) != chainhash.MaxHashStringSize {
		return nil, &EncodingError{Kind: ErrMalformed, Path: path, Detail: "txid must be 64 hex characters"}
	}
	hash, err := chainhash.NewHashFromStr(txID)
	if err != nil {
		return nil, malformed(path, err)
	}
	index, err := strconv.ParseUint(vout, 10, 32)
	if err != nil {
		return nil, &EncodingError{Kind: ErrOutOfRange, Path: path, Detail: "invalid output index", Cause: err}
	}
	return wire.NewOutPoint(hash, uint32(index)), nil
}

// splitVariant returns the member key and payload of a single-key union
// object. A bare JSON string is read as a member without payload.
func splitVariant(raw json.RawMessage, path string) (string, json.RawMessage, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) > 0 && trimmed[0] == '"' {
		var key string
		if err := json.Unmarshal(trimmed, &key); err != nil {
			return "", nil, malformed(path, err)
		}
		return key, json.RawMessage("{}"), nil
	}

	var members map[string]json.RawMessage
	if err := json.Unmarshal(trimmed, &members); err != nil {
		return "", nil, malformed(path, err)
	}
	switch len(members) {
	case 0:
		return "", nil, invalidVariant(path, "no variant selected")
	case 1:
		for key, value := range members {
			return key, value, nil
		}
	}
	keys := make([]string, 0, len(members))
	for key := range members {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return "", nil, invalidVariant(path, "exactly one variant must be selected, got %s", strings.Join(keys, ", "))
}

func decodeUnit(raw json.RawMessage, path string) error {
	return unmarshalStrict(raw, path, &unit{})
}

func decodeTuple(values []uint64, path string) (BlockTxTuple, error) {
	if values == nil {
		return BlockTxTuple{}, missingField(path)
	}
	if len(values) != 2 {
		return BlockTxTuple{}, &EncodingError{Kind: ErrMalformed, Path: path,
			Detail: "expected [block, tx], got " + strconv.Itoa(len(values)) + " elements"}
	}
	return BlockTxTuple{Block: values[0], Tx: values[1]}, nil
}

func decodeBytes(values []uint64, path string) ([]byte, error) {
	if values == nil {
		return nil, missingField(path)
	}
	if len(values) == 0 {
		return nil, nil
	}
	out := make([]byte, len(values))
	for i, v := range values {
		b, err := safecast.Uint64ToUint8(v)
		if err != nil {
			return nil, &EncodingError{Kind: ErrOutOfRange, Path: path + "[" + strconv.Itoa(i) + "]", Cause: err}
		}
		out[i] = b
	}
	return out, nil
}

func narrowUint32(v uint64, path string) (uint32, error) {
	narrowed, err := safecast.Uint64ToUint32(v)
	if err != nil {
		return 0, &EncodingError{Kind: ErrOutOfRange, Path: path, Cause: err}
	}
	return narrowed, nil
}

func missingField(path string) error {
	return &EncodingError{Kind: ErrMalformed, Path: path, Detail: "missing field"}
}

// unmarshalStrict decodes exactly one JSON value into v, rejecting unknown
// fields and trailing data.
func unmarshalStrict(data []byte, path string, v interface{}) error {
	decoder := json.NewDecoder(bytes.NewReader(data))
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(v); err != nil {
		return jsonError(path, err)
	}
	if _, err := decoder.Token(); err != io.EOF {
		return &EncodingError{Kind: ErrMalformed, Path: path, Detail: "unexpected data after JSON value"}
	}
	return nil
}

func jsonError(path string, err error) error {
	var typeErr *json.UnmarshalTypeError
	if errors.As(err, &typeErr) {
		fieldPath := path
		if typeErr.Field != "" {
			fieldPath = joinPath(path, typeErr.Field)
		}
		// Numbers that are negative, fractional or too wide for the field.
		if strings.HasPrefix(typeErr.Value, "number") {
			return &EncodingError{Kind: ErrOutOfRange, Path: fieldPath, Cause: err}
		}
		return malformed(fieldPath, err)
	}
	return malformed(path, err)
}
