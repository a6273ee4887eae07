package building

import (
	"errors"

	"github.com/ethereum/go-ethereum/core"
	"github.com/ethereum/go-ethereum/core/state"
	"github.com/ethereum/go-ethereum/core/txpool"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/params"
	"github.com/holiman/uint256"

	builderTypes "github.com/tos-network/builder/types"
)

var (
	// ErrOrderReverted is the order-level failure for a member transaction
	// reverting without being listed as allowed to revert.
	ErrOrderReverted = errors.New("order tx reverted")
	// ErrMaxBlobsReached is the order-level failure for exceeding the block
	// blob allowance.
	ErrMaxBlobsReached = errors.New("max data blobs reached")

	errMissingBlobSidecar = errors.New("blob transaction without sidecar")
)

// BlockState owns the base chain state for one building run. The base
// statedb is never written to: every fork works on a copy, so consecutive
// forks all observe the same pre-analysis state regardless of what earlier
// forks committed.
type BlockState struct {
	state *state.StateDB
}

func NewBlockState(statedb *state.StateDB) *BlockState {
	return &BlockState{state: statedb}
}

// Fork produces an isolated overlay for simulating orders. The analyzer
// keeps at most one fork live at a time; the base state is shared read-only
// so forks stay cheap.
func (bs *BlockState) Fork(ctx *BlockBuildingContext) *PartialBlockFork {
	header := types.CopyHeader(ctx.Header)
	if header.ExcessBlobGas != nil && header.BlobGasUsed == nil {
		header.BlobGasUsed = new(uint64)
	}
	return &PartialBlockFork{
		ctx:     ctx,
		header:  header,
		state:   bs.state.Copy(),
		gasPool: new(core.GasPool).AddGas(header.GasLimit),
	}
}

// PartialBlockFork is one live overlay of the block under construction. Gas
// and blob-gas counters accumulate across commits, so an order committed
// after another starts from the first order's counters.
type PartialBlockFork struct {
	ctx     *BlockBuildingContext
	header  *types.Header
	state   *state.StateDB
	gasPool *core.GasPool
	txcount int
	blobs   int
}

// SimResult is the order-level outcome of committing one order to a fork.
// Err records the order failing inside a valid simulation; infrastructure
// problems surface as hard errors from CommitOrder instead.
type SimResult struct {
	Err            error
	GasUsed        uint64
	BlobGasUsed    uint64
	CoinbaseProfit *uint256.Int
	Receipts       []*types.Receipt
}

func (r *SimResult) Success() bool { return r.Err == nil }

// CommitOrder applies every transaction of the order to the fork. On an
// order-level failure the fork is rolled back to its pre-order position and
// stays usable for further commits. The returned error is reserved for
// state-access failures, which invalidate the whole fork.
func (f *PartialBlockFork) CommitOrder(order builderTypes.Order) (*SimResult, error) {
	var (
		snap                   = f.state.Snapshot()
		gasBefore              = f.header.GasUsed
		poolBefore             = f.gasPool.Gas()
		blobsBefore, txsBefore = f.blobs, f.txcount
	)
	var blobGasBefore uint64
	if f.header.BlobGasUsed != nil {
		blobGasBefore = *f.header.BlobGasUsed
	}
	rollback := func() {
		f.state.RevertToSnapshot(snap)
		f.header.GasUsed = gasBefore
		f.gasPool = new(core.GasPool).AddGas(poolBefore)
		f.blobs, f.txcount = blobsBefore, txsBefore
		if f.header.BlobGasUsed != nil {
			*f.header.BlobGasUsed = blobGasBefore
		}
	}

	res := &SimResult{CoinbaseProfit: new(uint256.Int)}
	coinbaseBefore := new(uint256.Int).Set(f.state.GetBalance(f.ctx.Coinbase))

	for _, tx := range order.Txs() {
		if failErr := f.checkTx(tx); failErr != nil {
			rollback()
			res.Err = failErr
			return res, f.state.Error()
		}
		f.state.SetTxContext(tx.Hash(), f.txcount)
		receipt, err := core.ApplyTransaction(f.ctx.ChainConfig, f.ctx.Chain, &f.ctx.Coinbase,
			f.gasPool, f.state, f.header, tx, &f.header.GasUsed, *f.ctx.Chain.GetVMConfig())
		if err != nil {
			rollback()
			res.Err = err
			return res, f.state.Error()
		}
		if receipt.Status == types.ReceiptStatusFailed && !order.RevertingHash(tx.Hash()) {
			rollback()
			res.Err = ErrOrderReverted
			return res, f.state.Error()
		}
		f.txcount++
		res.GasUsed += receipt.GasUsed
		if tx.Type() == types.BlobTxType {
			f.blobs += len(tx.BlobTxSidecar().Blobs)
			res.BlobGasUsed += receipt.BlobGasUsed
			if f.header.BlobGasUsed != nil {
				*f.header.BlobGasUsed += receipt.BlobGasUsed
			}
		}
		res.Receipts = append(res.Receipts, receipt)
	}

	coinbaseAfter := f.state.GetBalance(f.ctx.Coinbase)
	res.CoinbaseProfit.Sub(coinbaseAfter, coinbaseBefore)
	return res, f.state.Error()
}

// checkTx performs the stateless sanity checks a pool-bypassing order has
// not been through yet.
func (f *PartialBlockFork) checkTx(tx *types.Transaction) error {
	if f.header.BaseFee != nil && tx.Type() == types.DynamicFeeTxType {
		if tx.GasFeeCap().BitLen() > 256 {
			return core.ErrFeeCapVeryHigh
		}
		if tx.GasTipCap().BitLen() > 256 {
			return core.ErrTipVeryHigh
		}
		if tx.GasFeeCapIntCmp(tx.GasTipCap()) < 0 {
			return core.ErrTipAboveFeeCap
		}
	}
	if tx.Value().Sign() == -1 {
		return txpool.ErrNegativeValue
	}
	if _, err := tx.EffectiveGasTip(f.header.BaseFee); err != nil {
		return err
	}
	if tx.Type() == types.BlobTxType {
		sc := tx.BlobTxSidecar()
		if sc == nil {
			return errMissingBlobSidecar
		}
		// The blob allowance is only checked at block validation time, so
		// ApplyTransaction will not catch an overflow here.
		if (f.blobs+len(sc.Blobs))*params.BlobTxBlobGasPerBlob > params.MaxBlobGasPerBlock {
			return ErrMaxBlobsReached
		}
	}
	return nil
}
