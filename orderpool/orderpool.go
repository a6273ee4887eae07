// Package orderpool keeps the live set of candidate orders between blocks
// and evicts the ones each new chain head makes stale.
package orderpool

import (
	"context"
	"math/big"
	"sync"

	"github.com/ethereum/go-ethereum/common"
	lru "github.com/hashicorp/golang-lru/v2"

	builderTypes "github.com/tos-network/builder/types"
)

// removedOrderCacheSize bounds the memory spent remembering evicted orders.
const removedOrderCacheSize = 10_000

// NonceSource provides account nonces at a given block. ethclient.Client
// satisfies it.
type NonceSource interface {
	NonceAt(ctx context.Context, account common.Address, blockNumber *big.Int) (uint64, error)
}

// OrderPool holds the live candidate orders. All methods are safe for
// concurrent use; access is serialized on an internal mutex, which is the
// synchronization boundary required before handing orders to the building
// core.
type OrderPool struct {
	mu      sync.Mutex
	orders  map[builderTypes.OrderID]builderTypes.Order
	removed *lru.Cache[builderTypes.OrderID, struct{}]
	head    uint64
}

func New() *OrderPool {
	removed, _ := lru.New[builderTypes.OrderID, struct{}](removedOrderCacheSize)
	return &OrderPool{
		orders:  make(map[builderTypes.OrderID]builderTypes.Order),
		removed: removed,
	}
}

// Add inserts an order. Duplicates and orders recently evicted by a head
// update are rejected.
func (p *OrderPool) Add(order builderTypes.Order) bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	id := order.ID()
	if p.removed.Contains(id) {
		return false
	}
	if _, ok := p.orders[id]; ok {
		return false
	}
	p.orders[id] = order
	return true
}

// Remove drops an order and remembers it so it is not re-added.
func (p *OrderPool) Remove(id builderTypes.OrderID) bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	if _, ok := p.orders[id]; !ok {
		return false
	}
	delete(p.orders, id)
	p.removed.Add(id, struct{}{})
	return true
}

// Get returns the order with the given id, if present.
func (p *OrderPool) Get(id builderTypes.OrderID) (builderTypes.Order, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()

	order, ok := p.orders[id]
	return order, ok
}

// Orders returns a snapshot of the live orders.
func (p *OrderPool) Orders() []builderTypes.Order {
	p.mu.Lock()
	defer p.mu.Unlock()

	orders := make([]builderTypes.Order, 0, len(p.orders))
	for _, order := range p.orders {
		orders = append(orders, order)
	}
	return orders
}

// Len returns the number of live orders.
func (p *OrderPool) Len() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.orders)
}

// Head returns the block number of the last processed head.
func (p *OrderPool) Head() uint64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.head
}

// ContentCount returns the number of single-transaction orders and bundle
// orders currently in the pool.
func (p *OrderPool) ContentCount() (txCount, bundleCount int) {
	p.mu.Lock()
	defer p.mu.Unlock()

	for _, order := range p.orders {
		if _, ok := order.(*builderTypes.BundleOrder); ok {
			bundleCount++
		} else {
			txCount++
		}
	}
	return txCount, bundleCount
}

// HeadUpdated drops orders made stale by a new chain head: bundles targeted
// at or below the head and orders whose non-optional nonce dependencies were
// consumed on chain. Nonce lookups are memoized per call.
func (p *OrderPool) HeadUpdated(ctx context.Context, blockNumber uint64, nonces NonceSource) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.head = blockNumber
	onchain := make(map[common.Address]uint64)
	for id, order := range p.orders {
		stale, err := orderStale(ctx, order, blockNumber, nonces, onchain)
		if err != nil {
			return err
		}
		if stale {
			delete(p.orders, id)
			p.removed.Add(id, struct{}{})
		}
	}
	return nil
}

func orderStale(ctx context.Context, order builderTypes.Order, blockNumber uint64,
	nonces NonceSource, onchain map[common.Address]uint64) (bool, error) {
	if bundleOrder, ok := order.(*builderTypes.BundleOrder); ok {
		if target := bundleOrder.Bundle().BlockNumber; target != nil && target.Uint64() <= blockNumber {
			return true, nil
		}
	}
	for _, dep := range order.Nonces() {
		if dep.Optional {
			continue
		}
		current, ok := onchain[dep.Address]
		if !ok {
			var err error
			current, err = nonces.NonceAt(ctx, dep.Address, nil)
			if err != nil {
				return false, err
			}
			onchain[dep.Address] = current
		}
		if current > dep.Nonce {
			return true, nil
		}
	}
	return false, nil
}
