// Package types defines the order model shared by the building core and the
// order pool: single transactions and bundles, viewed uniformly as orders
// competing for block inclusion.
package types

import (
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
)

// OrderID identifies an order for the lifetime of one block-building run.
// For a single transaction it is the transaction hash, for a bundle the
// bundle hash.
type OrderID common.Hash

func (id OrderID) Hash() common.Hash { return common.Hash(id) }

func (id OrderID) String() string { return common.Hash(id).Hex() }

// Nonce is an account-nonce precondition declared by an order. An optional
// nonce tolerates the account nonce having already advanced, e.g. when the
// corresponding bundle transaction is allowed to revert.
type Nonce struct {
	Address  common.Address
	Nonce    uint64
	Optional bool
}

// Order is a unit of execution competing for block inclusion: a single
// transaction or an atomic bundle.
type Order interface {
	// ID returns the order identifier, stable for the analysis run.
	ID() OrderID
	// Txs returns the execution payload in commit order.
	Txs() types.Transactions
	// Nonces returns the account-nonce preconditions of the order.
	Nonces() []Nonce
	// RevertingHash reports whether the given member transaction is
	// allowed to revert without failing the whole order.
	RevertingHash(hash common.Hash) bool
}

// TxOrder is an Order over a single signed transaction.
type TxOrder struct {
	tx   *types.Transaction
	from common.Address
}

// NewTxOrder wraps a transaction as an order, recovering the sender with the
// given signer.
func NewTxOrder(tx *types.Transaction, signer types.Signer) (*TxOrder, error) {
	from, err := types.Sender(signer, tx)
	if err != nil {
		return nil, err
	}
	return &TxOrder{tx: tx, from: from}, nil
}

func (o *TxOrder) ID() OrderID { return OrderID(o.tx.Hash()) }

func (o *TxOrder) Txs() types.Transactions { return types.Transactions{o.tx} }

func (o *TxOrder) Nonces() []Nonce {
	return []Nonce{{Address: o.from, Nonce: o.tx.Nonce()}}
}

func (o *TxOrder) RevertingHash(common.Hash) bool { return false }
