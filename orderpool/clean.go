package orderpool

import (
	"context"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/log"
)

// HeadSubscriber delivers new chain heads. ethclient.Client satisfies it.
type HeadSubscriber interface {
	SubscribeNewHead(ctx context.Context, ch chan<- *types.Header) (ethereum.Subscription, error)
}

// ChainReader is the node access the maintenance job needs.
type ChainReader interface {
	HeadSubscriber
	NonceSource
}

// RunCleanJob keeps the pool in sync with the chain: on every new head it
// evicts stale orders and refreshes telemetry. It blocks until ctx is
// cancelled or the head subscription fails. The job only maintains the pool;
// it never runs conflict analysis itself.
func RunCleanJob(ctx context.Context, chain ChainReader, pool *OrderPool) error {
	heads := make(chan *types.Header, 16)
	sub, err := chain.SubscribeNewHead(ctx, heads)
	if err != nil {
		return err
	}
	defer sub.Unsubscribe()

	log.Info("Clean orderpool job: started")
	for {
		select {
		case <-ctx.Done():
			log.Info("Clean orderpool job: finished")
			return nil
		case err := <-sub.Err():
			return err
		case head := <-heads:
			blockNumber := head.Number.Uint64()
			currentBlockGauge.Update(int64(blockNumber))

			start := time.Now()
			if err := pool.HeadUpdated(ctx, blockNumber, chain); err != nil {
				log.Error("Failed to clean orderpool", "block", blockNumber, "err", err)
				continue
			}
			headUpdateTimer.UpdateSince(start)

			txCount, bundleCount := pool.ContentCount()
			poolTxGauge.Update(int64(txCount))
			poolBundleGauge.Update(int64(bundleCount))
			log.Debug("Cleaned orderpool", "block", blockNumber, "txs", txCount,
				"bundles", bundleCount, "elapsed", time.Since(start))
		}
	}
}
