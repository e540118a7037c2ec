package message

import (
	"encoding/json"
)

// Variant keys of the wire format.
const (
	keyTxType = "tx_type"

	keyTransfer         = "transfer"
	keyContractCreation = "contract_creation"
	keyContractCall     = "contract_call"

	keyPreallocated     = "preallocated"
	keyFreeMint         = "free_mint"
	keyPurchaseBurnSwap = "purchase_burn_swap"

	keyRawBTC       = "raw_btc"
	keyGlittrAsset  = "glittr_asset"
	keyMetaprotocol = "metaprotocol"

	keyPurchase = "purchase"
	keyBurn     = "burn"

	keyFixed  = "fixed"
	keyOracle = "oracle"

	keyMint = "mint"
	keySwap = "swap"
)

// variant is a single-key JSON object whose key names the active member of
// a tagged union.
type variant struct {
	key   string
	value interface{}
}

func (v variant) MarshalJSON() ([]byte, error) {
	return json.Marshal(map[string]interface{}{v.key: v.value})
}

// unit is the payload of union members without fields. It encodes as {}.
type unit struct{}

// Field order in every struct below is the ascending order of its JSON keys.
// encoding/json emits struct fields in declaration order, which is what
// makes Encode canonical.

type envelopeOut struct {
	TxType variant `json:"tx_type"`
}

type envelopeIn struct {
	TxType json.RawMessage `json:"tx_type"`
}

type transferJSON struct {
	Amounts  []uint64 `json:"amounts"`
	Asset    []uint64 `json:"asset"`
	NOutputs *uint64  `json:"n_outputs"`
}

type contractCreationOut struct {
	ContractType contractTypeOut `json:"contract_type"`
}

type contractTypeOut struct {
	Asset variant `json:"asset"`
}

type contractCreationIn struct {
	ContractType *contractTypeIn `json:"contract_type"`
}

type contractTypeIn struct {
	Asset json.RawMessage `json:"asset"`
}

type freeMintJSON struct {
	AmountPerMint *uint64 `json:"amount_per_mint"`
	Divisibility  *uint64 `json:"divisibility"`
	LiveTime      *uint64 `json:"live_time"`
	SupplyCap     *uint64 `json:"supply_cap,omitempty"`
}

type purchaseBurnSwapOut struct {
	InputAsset        variant `json:"input_asset"`
	TransferRatioType variant `json:"transfer_ratio_type"`
	TransferScheme    variant `json:"transfer_scheme"`
}

type purchaseBurnSwapIn struct {
	InputAsset        json.RawMessage `json:"input_asset"`
	TransferRatioType json.RawMessage `json:"transfer_ratio_type"`
	TransferScheme    json.RawMessage `json:"transfer_scheme"`
}

type fixedJSON struct {
	Ratio *float64 `json:"ratio"`
}

type oracleJSON struct {
	PubKey  []uint64           `json:"pubkey"`
	Setting *oracleSettingJSON `json:"setting"`
}

type oracleSettingJSON struct {
	AssetID *string `json:"asset_id,omitempty"`
}

type contractCallOut struct {
	CallType variant  `json:"call_type"`
	Contract []uint64 `json:"contract"`
}

type contractCallIn struct {
	CallType json.RawMessage `json:"call_type"`
	Contract []uint64        `json:"contract"`
}

type mintJSON struct {
	OracleMessage *oracleMessageSignedJSON `json:"oracle_message,omitempty"`
	Pointer       *uint64                  `json:"pointer"`
}

type oracleMessageSignedJSON struct {
	Message   *oracleMessageJSON `json:"message"`
	Signature []uint64           `json:"signature"`
}

type oracleMessageJSON struct {
	AssetID       *string `json:"asset_id,omitempty"`
	InputOutpoint *string `json:"input_outpoint"`
	MinInValue    *uint64 `json:"min_in_value"`
	OutValue      *uint64 `json:"out_value"`
}
