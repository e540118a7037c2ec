package message

import "github.com/btcsuite/btcd/wire"

// CallType is one of *MintOption, *BurnCall or *SwapCall.
type CallType interface {
	callTypeVariant(path string) (variant, error)
}

// MintOption mints units of the called contract to the output at Pointer.
type MintOption struct {
	Pointer       uint32
	OracleMessage *OracleMessageSigned
}

// BurnCall burns units of the called contract.
type BurnCall struct{}

// SwapCall swaps through the called contract.
type SwapCall struct{}

// OracleMessageSigned is an oracle attestation and its signature.
type OracleMessageSigned struct {
	Signature []byte
	Message   OracleMessage
}

// OracleMessage is what an oracle attests to for a purchase/burn/swap mint.
type OracleMessage struct {
	InputOutpoint wire.OutPoint
	MinInValue    uint64
	OutValue      uint64
	AssetID       *string
}
