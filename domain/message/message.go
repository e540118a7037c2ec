// Package message defines Glittr operation messages and their canonical
// JSON wire encoding.
//
// Every tagged union in the model is a sealed Go interface. On the wire a
// union is a JSON object with exactly one key naming the active member:
//
//	{"tx_type":{"contract_call":{"call_type":{"mint":{"pointer":0}},"contract":[100,0]}}}
//
// Encode emits compact JSON with object keys in ascending order at every
// level, so equal messages always encode to identical bytes.
package message

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/btcsuite/btcd/wire"
	"github.com/pkg/errors"
)

// MaxDivisibility is the largest number of decimal places an asset may declare.
const MaxDivisibility = 18

// Message is the operation a client asks the Glittr indexer to process.
type Message struct {
	TxType TxType
}

// TxType is one of *Transfer, *ContractCreation or *ContractCall.
type TxType interface {
	txTypeVariant(path string) (variant, error)
}

// Transfer moves asset units to the outputs of the carrying transaction.
type Transfer struct {
	Asset    BlockTxTuple
	NOutputs uint32
	Amounts  []uint64
}

// ContractCreation deploys a new contract.
type ContractCreation struct {
	ContractType ContractType
}

// ContractCall invokes a previously created contract.
type ContractCall struct {
	Contract BlockTxTuple
	CallType CallType
}

// BlockTxTuple identifies a contract by the block height and the index of
// the transaction that created it.
type BlockTxTuple struct {
	Block uint64
	Tx    uint64
}

func (t BlockTxTuple) String() string {
	return fmt.Sprintf("%d:%d", t.Block, t.Tx)
}

// ParseBlockTxTuple parses a contract id of the form "block:tx", e.g. "87081:1".
func ParseBlockTxTuple(s string) (BlockTxTuple, error) {
	parts := strings.Split(strings.TrimSpace(s), ":")
	if len(parts) != 2 {
		return BlockTxTuple{}, errors.Errorf("contract id %q is not of the form block:tx", s)
	}
	block, err := strconv.ParseUint(parts[0], 10, 64)
	if err != nil {
		return BlockTxTuple{}, errors.Wrapf(err, "invalid block height in contract id %q", s)
	}
	tx, err := strconv.ParseUint(parts[1], 10, 64)
	if err != nil {
		return BlockTxTuple{}, errors.Wrapf(err, "invalid tx index in contract id %q", s)
	}
	return BlockTxTuple{Block: block, Tx: tx}, nil
}

// ParseOutPoint parses an outpoint of the form "txid:vout".
func ParseOutPoint(s string) (wire.OutPoint, error) {
	outPoint, err := parseOutPoint(strings.TrimSpace(s), "outpoint")
	if err != nil {
		return wire.OutPoint{}, err
	}
	return *outPoint, nil
}

// NewTransfer returns a transfer message.
func NewTransfer(asset BlockTxTuple, nOutputs uint32, amounts []uint64) *Message {
	return &Message{TxType: &Transfer{Asset: asset, NOutputs: nOutputs, Amounts: amounts}}
}

// NewContractCreation returns a contract creation message.
func NewContractCreation(contractType ContractType) *Message {
	return &Message{TxType: &ContractCreation{ContractType: contractType}}
}

// NewFreeMintContract returns a contract creation message for a free mint asset.
func NewFreeMintContract(freeMint *FreeMint) *Message {
	return NewContractCreation(freeMint)
}

// NewPreallocatedContract returns a contract creation message for a
// preallocated asset.
func NewPreallocatedContract() *Message {
	return NewContractCreation(&Preallocated{})
}

// NewPurchaseBurnSwapContract returns a contract creation message for a
// purchase/burn/swap asset.
func NewPurchaseBurnSwapContract(pbs *PurchaseBurnSwap) *Message {
	return NewContractCreation(pbs)
}

// NewContractCall returns a contract call message.
func NewContractCall(contract BlockTxTuple, callType CallType) *Message {
	return &Message{TxType: &ContractCall{Contract: contract, CallType: callType}}
}

// NewMint returns a mint call on contract. Minted units go to the output at pointer.
func NewMint(contract BlockTxTuple, pointer uint32) *Message {
	return NewContractCall(contract, &MintOption{Pointer: pointer})
}

// NewBurn returns a burn call on contract.
func NewBurn(contract BlockTxTuple) *Message {
	return NewContractCall(contract, &BurnCall{})
}

// NewSwap returns a swap call on contract.
func NewSwap(contract BlockTxTuple) *Message {
	return NewContractCall(contract, &SwapCall{})
}

// Kind returns a short human readable name of the operation, e.g.
// "contract_creation/free_mint" or "contract_call/mint".
func (m *Message) Kind() string {
	if m == nil {
		return "unknown"
	}
	switch txType := m.TxType.(type) {
	case *Transfer:
		return keyTransfer
	case *ContractCreation:
		switch txType.ContractType.(type) {
		case *Preallocated:
			return keyContractCreation + "/" + keyPreallocated
		case *FreeMint:
			return keyContractCreation + "/" + keyFreeMint
		case *PurchaseBurnSwap:
			return keyContractCreation + "/" + keyPurchaseBurnSwap
		}
		return keyContractCreation
	case *ContractCall:
		switch txType.CallType.(type) {
		case *MintOption:
			return keyContractCall + "/" + keyMint
		case *BurnCall:
			return keyContractCall + "/" + keyBurn
		case *SwapCall:
			return keyContractCall + "/" + keySwap
		}
		return keyContractCall
	}
	return "unknown"
}
