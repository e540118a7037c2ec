package message

import (
	"bytes"
	"math"
	"strings"
	"testing"

	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/btcsuite/btcd/wire"
	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/pkg/errors"
)

func uint64p(v uint64) *uint64 { return &v }
func stringp(s string) *string { return &s }

func sampleMessages() map[string]*Message {
	outpointHash := chainhash.DoubleHashH([]byte("funding"))
	return map[string]*Message{
		"transfer": NewTransfer(BlockTxTuple{Block: 87081, Tx: 1}, 2, []uint64{100, math.MaxUint64}),
		"transfer without amounts": NewTransfer(BlockTxTuple{}, 0, nil),
		"free mint capped": NewFreeMintContract(&FreeMint{
			SupplyCap:     uint64p(2000),
			AmountPerMint: 10,
			Divisibility:  18,
			LiveTime:      0,
		}),
		"free mint uncapped": NewFreeMintContract(&FreeMint{AmountPerMint: 1, Divisibility: 0, LiveTime: 500}),
		"free mint zero cap": NewFreeMintContract(&FreeMint{SupplyCap: uint64p(0), AmountPerMint: 1}),
		"preallocated":       NewPreallocatedContract(),
		"purchase raw btc fixed": NewPurchaseBurnSwapContract(&PurchaseBurnSwap{
			InputAsset:        &RawBTC{},
			TransferScheme:    &Purchase{Address: "mroHGEtVBLxKoo34HSHbHdmKz1ooJdA3ew"},
			TransferRatioType: &Fixed{Ratio: 0.5},
		}),
		"burn glittr asset oracle": NewPurchaseBurnSwapContract(&PurchaseBurnSwap{
			InputAsset:        &GlittrAsset{Contract: BlockTxTuple{Block: 5, Tx: 7}},
			TransferScheme:    &Burn{},
			TransferRatioType: &Oracle{PubKey: []byte{2, 0xff, 3}, AssetID: stringp("btc")},
		}),
		"metaprotocol oracle without asset": NewPurchaseBurnSwapContract(&PurchaseBurnSwap{
			InputAsset:        &Metaprotocol{},
			TransferScheme:    &Burn{},
			TransferRatioType: &Oracle{PubKey: []byte{1}},
		}),
		"mint": NewMint(BlockTxTuple{Block: 100, Tx: 0}, 0),
		"mint with oracle": NewContractCall(BlockTxTuple{Block: 9, Tx: 9}, &MintOption{
			Pointer: math.MaxUint32,
			OracleMessage: &OracleMessageSigned{
				Signature: []byte{0x30, 0x44, 0x02},
				Message: OracleMessage{
					InputOutpoint: *wire.NewOutPoint(&outpointHash, 3),
					MinInValue:    1000,
					OutValue:      math.MaxUint64,
					AssetID:       stringp(""),
				},
			},
		}),
		"burn": NewBurn(BlockTxTuple{Block: 1, Tx: 1}),
		"swap": NewSwap(BlockTxTuple{Block: 2, Tx: 3}),
	}
}

func TestEncodeGolden(t *testing.T) {
	tests := []struct {
		name     string
		message  *Message
		expected string
	}{
		{
			name: "free mint",
			message: NewFreeMintContract(&FreeMint{
				SupplyCap:     uint64p(2000),
				AmountPerMint: 10,
				Divisibility:  18,
				LiveTime:      0,
			}),
			expected: `{"tx_type":{"contract_creation":{"contract_type":{"asset":{"free_mint":` +
				`{"amount_per_mint":10,"divisibility":18,"live_time":0,"supply_cap":2000}}}}}}`,
		},
		{
			name:     "mint",
			message:  NewMint(BlockTxTuple{Block: 100, Tx: 0}, 0),
			expected: `{"tx_type":{"contract_call":{"call_type":{"mint":{"pointer":0}},"contract":[100,0]}}}`,
		},
		{
			name:     "transfer",
			message:  NewTransfer(BlockTxTuple{Block: 1, Tx: 2}, 2, []uint64{100, 18446744073709551615}),
			expected: `{"tx_type":{"transfer":{"amounts":[100,18446744073709551615],"asset":[1,2],"n_outputs":2}}}`,
		},
		{
			name:     "preallocated",
			message:  NewPreallocatedContract(),
			expected: `{"tx_type":{"contract_creation":{"contract_type":{"asset":{"preallocated":{}}}}}}`,
		},
		{
			name: "purchase burn swap",
			message: NewPurchaseBurnSwapContract(&PurchaseBurnSwap{
				InputAsset:        &GlittrAsset{Contract: BlockTxTuple{Block: 5, Tx: 7}},
				TransferScheme:    &Purchase{Address: "addr"},
				TransferRatioType: &Oracle{PubKey: []byte{2, 255}, AssetID: stringp("btc")},
			}),
			expected: `{"tx_type":{"contract_creation":{"contract_type":{"asset":{"purchase_burn_swap":{` +
				`"input_asset":{"glittr_asset":[5,7]},` +
				`"transfer_ratio_type":{"oracle":{"pubkey":[2,255],"setting":{"asset_id":"btc"}}},` +
				`"transfer_scheme":{"purchase":"addr"}}}}}}}`,
		},
		{
			name:     "burn",
			message:  NewBurn(BlockTxTuple{Block: 1, Tx: 1}),
			expected: `{"tx_type":{"contract_call":{"call_type":{"burn":{}},"contract":[1,1]}}}`,
		},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			encoded, err := Encode(test.message)
			if err != nil {
				t.Fatalf("Encode: %+v", err)
			}
			if string(encoded) != test.expected {
				t.Fatalf("unexpected encoding\n got: %s\nwant: %s", encoded, test.expected)
			}
		})
	}
}

func TestRoundTrip(t *testing.T) {
	for name, msg := range sampleMessages() {
		t.Run(name, func(t *testing.T) {
			encoded, err := Encode(msg)
			if err != nil {
				t.Fatalf("Encode: %+v", err)
			}
			decoded, err := DecodeCanonical(encoded)
			if err != nil {
				t.Fatalf("DecodeCanonical(%s): %+v", encoded, err)
			}
			if diff := cmp.Diff(msg, decoded, cmpopts.EquateEmpty()); diff != "" {
				t.Fatalf("round trip mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestEncodeIsDeterministic(t *testing.T) {
	for name := range sampleMessages() {
		t.Run(name, func(t *testing.T) {
			// Build two independent but equal values.
			first, err := Encode(sampleMessages()[name])
			if err != nil {
				t.Fatalf("Encode: %+v", err)
			}
			second, err := Encode(sampleMessages()[name])
			if err != nil {
				t.Fatalf("Encode: %+v", err)
			}
			if !bytes.Equal(first, second) {
				t.Fatalf("encodings differ:\n%s\n%s", first, second)
			}
		})
	}
}

func TestDivisibilityBound(t *testing.T) {
	freeMint := &FreeMint{AmountPerMint: 1, Divisibility: MaxDivisibility}
	if _, err := Encode(NewFreeMintContract(freeMint)); err != nil {
		t.Fatalf("Encode with divisibility %d: %+v", MaxDivisibility, err)
	}

	freeMint.Divisibility = MaxDivisibility + 1
	encoded, err := Encode(NewFreeMintContract(freeMint))
	if !errors.Is(err, ErrOutOfRange) {
		t.Fatalf("expected ErrOutOfRange, got %v", err)
	}
	if encoded != nil {
		t.Fatalf("partial output on failure: %s", encoded)
	}
	var encodingErr *EncodingError
	if !errors.As(err, &encodingErr) || !strings.HasSuffix(encodingErr.Path, "free_mint.divisibility") {
		t.Fatalf("unexpected error path: %v", err)
	}

	_, err = Decode([]byte(`{"tx_type":{"contract_creation":{"contract_type":{"asset":{"free_mint":` +
		`{"amount_per_mint":1,"divisibility":19,"live_time":0}}}}}}`))
	if !errors.Is(err, ErrOutOfRange) {
		t.Fatalf("expected ErrOutOfRange on decode, got %v", err)
	}
}

func TestEncodeRejectsUnsetVariants(t *testing.T) {
	tests := map[string]*Message{
		"nil message":        nil,
		"empty message":      {},
		"typed nil transfer": {TxType: (*Transfer)(nil)},
		"no contract type":   {TxType: &ContractCreation{}},
		"typed nil contract": NewContractCreation((*FreeMint)(nil)),
		"no call type":       {TxType: &ContractCall{}},
		"no input asset": NewPurchaseBurnSwapContract(&PurchaseBurnSwap{
			TransferScheme: &Burn{}, TransferRatioType: &Fixed{Ratio: 1},
		}),
		"no transfer scheme": NewPurchaseBurnSwapContract(&PurchaseBurnSwap{
			InputAsset: &RawBTC{}, TransferRatioType: &Fixed{Ratio: 1},
		}),
		"no ratio": NewPurchaseBurnSwapContract(&PurchaseBurnSwap{
			InputAsset: &RawBTC{}, TransferScheme: &Burn{},
		}),
	}
	for name, msg := range tests {
		t.Run(name, func(t *testing.T) {
			encoded, err := Encode(msg)
			if !errors.Is(err, ErrInvalidVariant) {
				t.Fatalf("expected ErrInvalidVariant, got %v", err)
			}
			if encoded != nil {
				t.Fatalf("partial output on failure: %s", encoded)
			}
		})
	}
}

func TestRatioMustBeFiniteAndNonNegative(t *testing.T) {
	for _, ratio := range []float64{math.NaN(), math.Inf(1), math.Inf(-1), -1, -0.5} {
		_, err := Encode(NewPurchaseBurnSwapContract(&PurchaseBurnSwap{
			InputAsset:        &RawBTC{},
			TransferScheme:    &Burn{},
			TransferRatioType: &Fixed{Ratio: ratio},
		}))
		if !errors.Is(err, ErrOutOfRange) {
			t.Fatalf("ratio %v: expected ErrOutOfRange, got %v", ratio, err)
		}
	}

	const negative = `{"tx_type":{"contract_creation":{"contract_type":{"asset":{"purchase_burn_swap":` +
		`{"input_asset":{"raw_btc":{}},"transfer_ratio_type":{"fixed":{"ratio":-1}},"transfer_scheme":{"burn":{}}}}}}}}`
	if _, err := Decode([]byte(negative)); !errors.Is(err, ErrOutOfRange) {
		t.Fatalf("negative ratio: expected ErrOutOfRange on decode, got %v", err)
	}

	zero := NewPurchaseBurnSwapContract(&PurchaseBurnSwap{
		InputAsset:        &RawBTC{},
		TransferScheme:    &Burn{},
		TransferRatioType: &Fixed{Ratio: 0},
	})
	if _, err := Encode(zero); err != nil {
		t.Fatalf("zero ratio: %+v", err)
	}
}

func TestDecodeRejectsMultipleVariants(t *testing.T) {
	inputs := []string{
		`{"tx_type":{"transfer":{"amounts":[],"asset":[1,1],"n_outputs":1},"contract_call":{"call_type":{"burn":{}},"contract":[1,1]}}}`,
		`{"tx_type":{"contract_call":{"call_type":{"burn":{},"swap":{}},"contract":[1,1]}}}`,
		`{"tx_type":{}}`,
		`{"tx_type":{"contract_call":{"call_type":{"teleport":{}},"contract":[1,1]}}}`,
		`{"tx_type":{"contract_creation":{"contract_type":{"asset":{"rug_pull":{}}}}}}`,
	}
	for _, input := range inputs {
		if _, err := Decode([]byte(input)); !errors.Is(err, ErrInvalidVariant) {
			t.Errorf("Decode(%s): expected ErrInvalidVariant, got %v", input, err)
		}
	}
}

func TestDecodeMalformed(t *testing.T) {
	inputs := []string{
		``,
		`not json`,
		`{}`,
		`{"tx_type":{"contract_call":{"call_type":{"mint":{}},"contract":[1,1]}}}`,
		`{"tx_type":{"contract_call":{"call_type":{"mint":{"pointer":0}},"contract":[1]}}}`,
		`{"tx_type":{"contract_call":{"call_type":{"mint":{"pointer":0,"extra":1}},"contract":[1,1]}}}`,
		`{"tx_type":{"transfer":{"asset":[1,1],"n_outputs":1}}}`,
		`{"tx_type":{"contract_call":{"call_type":{"burn":{}},"contract":[1,1]}}} trailing`,
		`{"tx_type":{"contract_call":{"call_type":{"burn":{"x":1}},"contract":[1,1]}}}`,
	}
	for _, input := range inputs {
		if _, err := Decode([]byte(input)); !errors.Is(err, ErrMalformed) {
			t.Errorf("Decode(%s): expected ErrMalformed, got %v", input, err)
		}
	}
}

func TestDecodeOutOfRange(t *testing.T) {
	inputs := []string{
		`{"tx_type":{"contract_call":{"call_type":{"mint":{"pointer":4294967296}},"contract":[1,1]}}}`,
		`{"tx_type":{"contract_call":{"call_type":{"mint":{"pointer":-1}},"contract":[1,1]}}}`,
		`{"tx_type":{"transfer":{"amounts":[18446744073709551616],"asset":[1,1],"n_outputs":1}}}`,
		`{"tx_type":{"transfer":{"amounts":[1.5],"asset":[1,1],"n_outputs":1}}}`,
		`{"tx_type":{"contract_creation":{"contract_type":{"asset":{"purchase_burn_swap":{` +
			`"input_asset":{"raw_btc":{}},"transfer_ratio_type":{"oracle":{"pubkey":[256],"setting":{}}},` +
			`"transfer_scheme":{"burn":{}}}}}}}}`,
	}
	for _, input := range inputs {
		if _, err := Decode([]byte(input)); !errors.Is(err, ErrOutOfRange) {
			t.Errorf("Decode(%s): expected ErrOutOfRange, got %v", input, err)
		}
	}
}

func TestDecodeDistinguishesAbsentFromZero(t *testing.T) {
	absent, err := Decode([]byte(`{"tx_type":{"contract_creation":{"contract_type":{"asset":{"free_mint":` +
		`{"amount_per_mint":1,"divisibility":0,"live_time":0}}}}}}`))
	if err != nil {
		t.Fatalf("Decode: %+v", err)
	}
	if absent.TxType.(*ContractCreation).ContractType.(*FreeMint).SupplyCap != nil {
		t.Fatalf("absent supply cap decoded as present")
	}

	zero, err := Decode([]byte(`{"tx_type":{"contract_creation":{"contract_type":{"asset":{"free_mint":` +
		`{"amount_per_mint":1,"divisibility":0,"live_time":0,"supply_cap":0}}}}}}`))
	if err != nil {
		t.Fatalf("Decode: %+v", err)
	}
	supplyCap := zero.TxType.(*ContractCreation).ContractType.(*FreeMint).SupplyCap
	if supplyCap == nil || *supplyCap != 0 {
		t.Fatalf("zero supply cap decoded as %v", supplyCap)
	}
}

func TestDecodeAcceptsBareUnitVariants(t *testing.T) {
	msg, err := Decode([]byte(`{"tx_type":{"contract_call":{"call_type":"swap","contract":[1,2]}}}`))
	if err != nil {
		t.Fatalf("Decode: %+v", err)
	}
	if diff := cmp.Diff(NewSwap(BlockTxTuple{Block: 1, Tx: 2}), msg); diff != "" {
		t.Fatalf("unexpected message (-want +got):\n%s", diff)
	}
}

func TestDecodeCanonicalRejectsReordering(t *testing.T) {
	// Insertion ordered keys, as other Glittr clients emit them.
	reordered := []byte(`{"tx_type":{"contract_call":{"contract":[100,0],"call_type":{"mint":{"pointer":0}}}}}`)
	if _, err := Decode(reordered); err != nil {
		t.Fatalf("Decode: %+v", err)
	}
	if _, err := DecodeCanonical(reordered); !errors.Is(err, ErrNotCanonical) {
		t.Fatalf("expected ErrNotCanonical, got %v", err)
	}
	if _, err := DecodeCanonical([]byte(`{"tx_type":{"contract_call":{"call_type":{"burn":{}}, "contract":[1,1]}}}`)); !errors.Is(err, ErrNotCanonical) {
		t.Fatalf("expected ErrNotCanonical for whitespace, got %v", err)
	}
}

func TestParseBlockTxTuple(t *testing.T) {
	tuple, err := ParseBlockTxTuple("87081:1")
	if err != nil {
		t.Fatalf("ParseBlockTxTuple: %+v", err)
	}
	if tuple != (BlockTxTuple{Block: 87081, Tx: 1}) || tuple.String() != "87081:1" {
		t.Fatalf("unexpected tuple %s", tuple)
	}
	for _, input := range []string{"", "1", "1:2:3", "a:1", "1:-1", "0x10:1"} {
		if _, err := ParseBlockTxTuple(input); err == nil {
			t.Errorf("ParseBlockTxTuple(%q) unexpectedly succeeded", input)
		}
	}
}

func TestParseOutPoint(t *testing.T) {
	txID := strings.Repeat("ab", 32)
	outPoint, err := ParseOutPoint(txID + ":3")
	if err != nil {
		t.Fatalf("ParseOutPoint: %+v", err)
	}
	if outPoint.Hash.String() != txID || outPoint.Index != 3 {
		t.Fatalf("unexpected outpoint %s", outPoint)
	}
	if _, err := ParseOutPoint("abcd:1"); !errors.Is(err, ErrMalformed) {
		t.Fatalf("expected ErrMalformed, got %v", err)
	}
	if _, err := ParseOutPoint(txID + ":4294967296"); !errors.Is(err, ErrOutOfRange) {
		t.Fatalf("expected ErrOutOfRange, got %v", err)
	}
}

func TestKind(t *testing.T) {
	tests := map[string]*Message{
		"transfer":                             NewTransfer(BlockTxTuple{}, 1, nil),
		"contract_creation/free_mint":          NewFreeMintContract(&FreeMint{}),
		"contract_creation/purchase_burn_swap": NewPurchaseBurnSwapContract(&PurchaseBurnSwap{}),
		"contract_call/mint":                   NewMint(BlockTxTuple{}, 0),
		"contract_call/swap":                   NewSwap(BlockTxTuple{}),
	}
	for expected, msg := range tests {
		if kind := msg.Kind(); kind != expected {
			t.Errorf("Kind() = %q, want %q", kind, expected)
		}
	}
}
