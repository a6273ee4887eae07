package building

import (
	"sort"
	"time"

	mapset "github.com/deckarep/golang-set/v2"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/log"
	"github.com/holiman/uint256"

	builderTypes "github.com/tos-network/builder/types"
)

// ConflictKind classifies the effect on an order of executing another order
// before it.
type ConflictKind int

const (
	// NoConflict: the second order's outcome is unaffected by the first.
	NoConflict ConflictKind = iota
	// NonceConflict: both orders require the same account nonce, making
	// them mutually exclusive.
	NonceConflict
	// FatalConflict: executing the pair makes one of the orders fail where
	// it would have succeeded alone.
	FatalConflict
	// DifferentProfit: the second order still succeeds but yields a
	// different coinbase profit than it does alone.
	DifferentProfit
)

// Conflict is the classification of one ordered pair. Address is set for
// NonceConflict, the profit fields for DifferentProfit.
type Conflict struct {
	Kind               ConflictKind
	Address            common.Address
	ProfitAlone        *uint256.Int
	ProfitWithConflict *uint256.Int
}

// OrderPair keys the conflict map. The entry describes Second's outcome when
// First runs first; (A,B) and (B,A) are independent entries and need not
// agree.
type OrderPair struct {
	First  builderTypes.OrderID
	Second builderTypes.OrderID
}

// ConflictMap maps every ordered pair of individually viable orders to its
// conflict classification.
type ConflictMap map[OrderPair]Conflict

// FindConflictsSlow classifies every ordered pair of orders by actually
// executing them in sequence against forks of the same base state. Orders
// that fail when simulated alone are excluded from all pairs. The cost is
// quadratic in the number of orders; this is an analysis-time tool over a
// bounded candidate set, not part of the hot block-assembly path.
//
// Order-level failures are recorded as Fatal conflicts; any state-access
// error aborts the whole analysis with no partial result.
func FindConflictsSlow(bs *BlockState, ctx *BlockBuildingContext, orders []builderTypes.Order) (ConflictMap, error) {
	start := time.Now()

	profitsAlone := make(map[builderTypes.OrderID]*uint256.Int, len(orders))
	for _, order := range orders {
		res, err := bs.Fork(ctx).CommitOrder(order)
		if err != nil {
			return nil, err
		}
		if res.Success() {
			profitsAlone[order.ID()] = res.CoinbaseProfit
		} else {
			log.Debug("Order failed alone, excluded from conflict analysis", "order", order.ID(), "err", res.Err)
		}
	}

	results := make(ConflictMap)
	for _, order1 := range orders {
		for _, order2 := range orders {
			if order1.ID() == order2.ID() {
				continue
			}
			profitAlone, ok := profitsAlone[order2.ID()]
			if !ok {
				continue
			}
			if _, ok := profitsAlone[order1.ID()]; !ok {
				continue
			}
			pair := OrderPair{First: order1.ID(), Second: order2.ID()}
			conflictPairMeter.Mark(1)

			// A shared non-optional nonce proves mutual exclusion without
			// paying for a simulation.
			if addr, collides := nonceCollision(order1, order2); collides {
				results[pair] = Conflict{Kind: NonceConflict, Address: addr}
				nonceConflictMeter.Mark(1)
				continue
			}

			fork := bs.Fork(ctx)
			res1, err := fork.CommitOrder(order1)
			if err != nil {
				return nil, err
			}
			if !res1.Success() {
				// order1 succeeded alone but fails in this context. Record
				// it and still attempt order2 on the same fork.
				results[pair] = Conflict{Kind: FatalConflict}
			}
			res2, err := fork.CommitOrder(order2)
			if err != nil {
				return nil, err
			}
			switch {
			case !res2.Success():
				results[pair] = Conflict{Kind: FatalConflict}
			case profitAlone.Eq(res2.CoinbaseProfit):
				results[pair] = Conflict{Kind: NoConflict}
			default:
				results[pair] = Conflict{
					Kind:               DifferentProfit,
					ProfitAlone:        profitAlone,
					ProfitWithConflict: res2.CoinbaseProfit,
				}
			}
		}
	}

	conflictAnalysisTimer.UpdateSince(start)
	log.Debug("Conflict analysis done", "orders", len(orders), "viable", len(profitsAlone),
		"pairs", len(results), "elapsed", time.Since(start))
	return results, nil
}

// nonceCollision reports whether both orders declare a non-optional nonce
// dependency on the same account. Either side being optional defuses the
// collision.
func nonceCollision(order1, order2 builderTypes.Order) (common.Address, bool) {
	byAddr := make(map[common.Address]builderTypes.Nonce)
	for _, nonce := range order1.Nonces() {
		byAddr[nonce.Address] = nonce
	}
	for _, nonce := range order2.Nonces() {
		if other, ok := byAddr[nonce.Address]; ok && !nonce.Optional && !other.Optional {
			return nonce.Address, true
		}
	}
	return common.Address{}, false
}

// ConflictSets partitions the orders named by the conflict map into
// connected components, largest first. Any non-NoConflict entry, in either
// direction, counts as an undirected edge: the map's directionality carries
// real information but is deliberately dropped for clustering.
func ConflictSets(conflicts ConflictMap) []mapset.Set[builderTypes.OrderID] {
	var (
		nextSetID  int
		sets       = make(map[int]mapset.Set[builderTypes.OrderID])
		orderToSet = make(map[builderTypes.OrderID]int)
	)
	for pair, conflict := range conflicts {
		if conflict.Kind == NoConflict {
			continue
		}
		setID1, ok1 := orderToSet[pair.First]
		setID2, ok2 := orderToSet[pair.Second]
		switch {
		case ok1 && ok2 && setID1 == setID2:
			// already joined
		case ok1 && ok2:
			// merge the second set into the first
			absorbed := sets[setID2]
			delete(sets, setID2)
			absorbed.Each(func(id builderTypes.OrderID) bool {
				sets[setID1].Add(id)
				orderToSet[id] = setID1
				return false
			})
		case ok1:
			sets[setID1].Add(pair.Second)
			orderToSet[pair.Second] = setID1
		case ok2:
			sets[setID2].Add(pair.First)
			orderToSet[pair.First] = setID2
		default:
			sets[nextSetID] = mapset.NewThreadUnsafeSet(pair.First, pair.Second)
			orderToSet[pair.First] = nextSetID
			orderToSet[pair.Second] = nextSetID
			nextSetID++
		}
	}

	out := make([]mapset.Set[builderTypes.OrderID], 0, len(sets))
	for _, set := range sets {
		out = append(out, set)
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Cardinality() > out[j].Cardinality()
	})
	return out
}
