package message

// ContractType is one of *Preallocated, *FreeMint or *PurchaseBurnSwap.
type ContractType interface {
	contractTypeVariant(path string) (variant, error)
}

// Preallocated is reserved by the protocol and carries no parameters yet.
type Preallocated struct{}

// FreeMint is an asset anyone can mint in fixed amounts until the supply
// cap, if any, is reached.
type FreeMint struct {
	// SupplyCap is nil for an uncapped asset.
	SupplyCap     *uint64
	AmountPerMint uint64
	Divisibility  uint8
	LiveTime      uint64
}

// PurchaseBurnSwap is an asset minted in exchange for another asset.
type PurchaseBurnSwap struct {
	InputAsset        InputAsset
	TransferScheme    TransferScheme
	TransferRatioType TransferRatioType
}

// InputAsset is one of *RawBTC, *GlittrAsset or *Metaprotocol.
type InputAsset interface {
	inputAssetVariant(path string) (variant, error)
}

// RawBTC pays with the base chain currency.
type RawBTC struct{}

// GlittrAsset pays with units of another Glittr contract.
type GlittrAsset struct {
	Contract BlockTxTuple
}

// Metaprotocol pays with an asset of another metaprotocol.
type Metaprotocol struct{}

// TransferScheme is one of *Purchase or *Burn.
type TransferScheme interface {
	transferSchemeVariant(path string) (variant, error)
}

// Purchase sends the input asset to Address.
type Purchase struct {
	Address string
}

// Burn destroys the input asset.
type Burn struct{}

// TransferRatioType is one of *Fixed or *Oracle.
type TransferRatioType interface {
	transferRatioVariant(path string) (variant, error)
}

// Fixed mints Ratio output units per input unit.
type Fixed struct {
	Ratio float64
}

// Oracle delegates the ratio to messages signed by PubKey.
type Oracle struct {
	PubKey []byte
	// AssetID restricts the oracle to one asset. Nil means no restriction.
	AssetID *string
}
