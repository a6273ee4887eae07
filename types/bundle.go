package types

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/holiman/uint256"
)

// MevBundle is a group of transactions that must execute atomically and in
// order within the target block.
type MevBundle struct {
	Txs               types.Transactions
	BlockNumber       *big.Int
	MinTimestamp      uint64
	MaxTimestamp      uint64
	RevertingTxHashes []common.Hash
	Hash              common.Hash
}

// RevertingHash reports whether the given transaction is allowed to revert.
func (b *MevBundle) RevertingHash(hash common.Hash) bool {
	for _, revHash := range b.RevertingTxHashes {
		if revHash == hash {
			return true
		}
	}
	return false
}

// ComputeHash fills in and returns the bundle hash, the keccak of the member
// transaction hashes in order.
func (b *MevBundle) ComputeHash() common.Hash {
	buf := make([]byte, 0, len(b.Txs)*common.HashLength)
	for _, tx := range b.Txs {
		buf = append(buf, tx.Hash().Bytes()...)
	}
	b.Hash = crypto.Keccak256Hash(buf)
	return b.Hash
}

// BundleOrder is an Order over a MevBundle. Nonce preconditions of member
// transactions that are allowed to revert are marked optional.
type BundleOrder struct {
	bundle *MevBundle
	nonces []Nonce
}

// NewBundleOrder wraps a bundle as an order, recovering member senders with
// the given signer. The bundle hash is computed if it is unset.
func NewBundleOrder(bundle *MevBundle, signer types.Signer) (*BundleOrder, error) {
	nonces := make([]Nonce, 0, len(bundle.Txs))
	for _, tx := range bundle.Txs {
		from, err := types.Sender(signer, tx)
		if err != nil {
			return nil, err
		}
		nonces = append(nonces, Nonce{
			Address:  from,
			Nonce:    tx.Nonce(),
			Optional: bundle.RevertingHash(tx.Hash()),
		})
	}
	if bundle.Hash == (common.Hash{}) {
		bundle.ComputeHash()
	}
	return &BundleOrder{bundle: bundle, nonces: nonces}, nil
}

func (o *BundleOrder) ID() OrderID { return OrderID(o.bundle.Hash) }

func (o *BundleOrder) Txs() types.Transactions { return o.bundle.Txs }

func (o *BundleOrder) Nonces() []Nonce { return o.nonces }

func (o *BundleOrder) RevertingHash(hash common.Hash) bool {
	return o.bundle.RevertingHash(hash)
}

// Bundle returns the wrapped bundle.
func (o *BundleOrder) Bundle() *MevBundle { return o.bundle }

// SimulatedBundle is a bundle together with the outcome of simulating it
// alone on top of the target block state.
type SimulatedBundle struct {
	MevGasPrice    *uint256.Int
	TotalEth       *uint256.Int // coinbase profit of the whole bundle
	TotalGasUsed   uint64
	OriginalBundle *MevBundle
}
