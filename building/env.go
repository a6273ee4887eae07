// Package building hosts the block-building core: state forks for order
// simulation and the pairwise conflict analysis consumed by block-assembly
// strategies.
package building

import (
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/params"
)

// BlockBuildingContext carries the read-only parameters of the block being
// built. It is passed unchanged to every simulation.
type BlockBuildingContext struct {
	ChainConfig *params.ChainConfig
	Chain       *core.BlockChain
	Header      *types.Header // template header: number, base fee, gas limit
	Coinbase    common.Address
	Signer      types.Signer
}

// NewBlockBuildingContext assembles a context for the block described by the
// template header, on top of the given chain.
func NewBlockBuildingContext(chain *core.BlockChain, header *types.Header, coinbase common.Address) *BlockBuildingContext {
	return &BlockBuildingContext{
		ChainConfig: chain.Config(),
		Chain:       chain,
		Header:      header,
		Coinbase:    coinbase,
		Signer:      types.MakeSigner(chain.Config(), header.Number, header.Time),
	}
}
