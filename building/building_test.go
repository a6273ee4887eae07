package building

import (
	"crypto/ecdsa"
	"fmt"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/consensus/ethash"
	"github.com/ethereum/go-ethereum/core"
	"github.com/ethereum/go-ethereum/core/rawdb"
	"github.com/ethereum/go-ethereum/core/state"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/core/vm"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/params"
	"github.com/ethereum/go-ethereum/triedb"

	builderTypes "github.com/tos-network/builder/types"
)

const testGasLimit uint64 = 30_000_000

var (
	testCoinbase = common.HexToAddress("0xc0ffee0000000000000000000000000000000000")

	// drain contract sends its whole balance to the coinbase on every call
	drainAddress = common.HexToAddress("0x1100000000000000000000000000000000000000")
	drainCode    = hexutil.MustDecode("0x600060006000600047415af100")
	// flag contract succeeds on the first call and reverts on every later one
	flagAddress = common.HexToAddress("0x2200000000000000000000000000000000000000")
	flagCode    = hexutil.MustDecode("0x600054600c576001600055005b60006000fd")
	// revert contract reverts unconditionally
	revertAddress = common.HexToAddress("0x3300000000000000000000000000000000000000")
	revertCode    = hexutil.MustDecode("0x60006000fd")
)

type testSigners struct {
	config    *params.ChainConfig
	keys      []*ecdsa.PrivateKey
	addresses []common.Address
	nonces    []uint64
}

func newTestSigners(n int, config *params.ChainConfig) testSigners {
	res := testSigners{
		config:    config,
		keys:      make([]*ecdsa.PrivateKey, n),
		addresses: make([]common.Address, n),
		nonces:    make([]uint64, n),
	}
	for i := 0; i < n; i++ {
		key, err := crypto.ToECDSA(crypto.Keccak256(big.NewInt(int64(i + 1)).Bytes()))
		if err != nil {
			panic(fmt.Sprint("cant create priv key", err))
		}
		res.keys[i] = key
		res.addresses[i] = crypto.PubkeyToAddress(key.PublicKey)
	}
	return res
}

// signTx signs a call from signer i with the next nonce for that signer.
func (sig *testSigners) signTx(i int, gas uint64, tip, feeCap *big.Int, to common.Address, value *big.Int, data []byte) *types.Transaction {
	tx := sig.signTxWithNonce(i, sig.nonces[i], gas, tip, feeCap, to, value, data)
	sig.nonces[i]++
	return tx
}

func (sig *testSigners) signTxWithNonce(i int, nonce, gas uint64, tip, feeCap *big.Int, to common.Address, value *big.Int, data []byte) *types.Transaction {
	return types.MustSignNewTx(sig.keys[i], types.LatestSigner(sig.config), &types.DynamicFeeTx{
		ChainID:   sig.config.ChainID,
		Nonce:     nonce,
		GasTipCap: tip,
		GasFeeCap: feeCap,
		Gas:       gas,
		To:        &to,
		Value:     value,
		Data:      data,
	})
}

func newTestEnv(t *testing.T) (*BlockState, *BlockBuildingContext, *testSigners) {
	t.Helper()
	config := params.AllEthashProtocolChanges
	signers := newTestSigners(10, config)

	alloc := make(types.GenesisAlloc)
	for _, addr := range signers.addresses {
		alloc[addr] = types.Account{Balance: big.NewInt(params.Ether)}
	}
	alloc[drainAddress] = types.Account{Balance: big.NewInt(params.Ether), Code: drainCode}
	alloc[flagAddress] = types.Account{Balance: new(big.Int), Code: flagCode}
	alloc[revertAddress] = types.Account{Balance: new(big.Int), Code: revertCode}

	db := rawdb.NewMemoryDatabase()
	gspec := &core.Genesis{
		Config:   config,
		Alloc:    alloc,
		GasLimit: testGasLimit,
		BaseFee:  big.NewInt(params.InitialBaseFee),
	}
	_ = gspec.MustCommit(db, triedb.NewDatabase(db, triedb.HashDefaults))

	chain, err := core.NewBlockChain(db, &core.CacheConfig{TrieDirtyDisabled: true}, gspec, nil, ethash.NewFaker(), vm.Config{}, nil, nil)
	if err != nil {
		t.Fatal("cant create blockchain", err)
	}
	statedb, err := state.New(chain.CurrentHeader().Root, state.NewDatabase(db), nil)
	if err != nil {
		t.Fatal("cant open state", err)
	}

	parent := chain.CurrentHeader()
	header := &types.Header{
		ParentHash: parent.Hash(),
		Number:     new(big.Int).Add(parent.Number, common.Big1),
		GasLimit:   testGasLimit,
		Time:       parent.Time + 12,
		Coinbase:   testCoinbase,
		BaseFee:    big.NewInt(params.InitialBaseFee),
		Difficulty: common.Big1,
	}
	return NewBlockState(statedb), NewBlockBuildingContext(chain, header, testCoinbase), &signers
}

// defaults used by most test transactions
var (
	testTip    = big.NewInt(2 * params.GWei)
	testFeeCap = big.NewInt(params.InitialBaseFee + 2*params.GWei)
)

func (sig *testSigners) txOrder(t *testing.T, i int, to common.Address, value *big.Int) builderTypes.Order {
	t.Helper()
	tx := sig.signTx(i, 100_000, testTip, testFeeCap, to, value, nil)
	order, err := builderTypes.NewTxOrder(tx, types.LatestSigner(sig.config))
	if err != nil {
		t.Fatal("cant build tx order", err)
	}
	return order
}

func (sig *testSigners) txOrderWithNonce(t *testing.T, i int, nonce uint64, to common.Address, value *big.Int) builderTypes.Order {
	t.Helper()
	tx := sig.signTxWithNonce(i, nonce, 100_000, testTip, testFeeCap, to, value, nil)
	order, err := builderTypes.NewTxOrder(tx, types.LatestSigner(sig.config))
	if err != nil {
		t.Fatal("cant build tx order", err)
	}
	return order
}
