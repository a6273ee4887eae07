package building

import (
	"errors"
	"time"

	"github.com/ethereum/go-ethereum/log"
	"github.com/holiman/uint256"

	builderTypes "github.com/tos-network/builder/types"
)

// ErrZeroGasBundle is returned for bundles that execute without consuming
// gas; they cannot be priced.
var ErrZeroGasBundle = errors.New("bundle gas used is 0")

// SimulateBundle runs a bundle alone on a fresh fork and prices it by its
// coinbase profit per unit of gas. A bundle that fails its own simulation is
// rejected with the order-level cause.
func SimulateBundle(bs *BlockState, ctx *BlockBuildingContext, bundle *builderTypes.MevBundle) (*builderTypes.SimulatedBundle, error) {
	order, err := builderTypes.NewBundleOrder(bundle, ctx.Signer)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	res, err := bs.Fork(ctx).CommitOrder(order)
	if err != nil {
		return nil, err
	}
	simulationMeter.Mark(1)
	if !res.Success() {
		simulationRevertedMeter.Mark(1)
		failedBundleSimulationTimer.UpdateSince(start)
		log.Trace("Bundle simulation failed", "bundle", bundle.Hash, "err", res.Err)
		return nil, res.Err
	}
	if res.GasUsed == 0 {
		return nil, ErrZeroGasBundle
	}
	simulationCommittedMeter.Mark(1)
	successfulBundleSimulationTimer.UpdateSince(start)

	log.Debug("Simulated bundle", "bundle", bundle.Hash, "profit", res.CoinbaseProfit,
		"gasUsed", res.GasUsed, "elapsed", time.Since(start))
	return &builderTypes.SimulatedBundle{
		MevGasPrice:    new(uint256.Int).Div(res.CoinbaseProfit, new(uint256.Int).SetUint64(res.GasUsed)),
		TotalEth:       res.CoinbaseProfit,
		TotalGasUsed:   res.GasUsed,
		OriginalBundle: bundle,
	}, nil
}
