package orderpool

import (
	"github.com/ethereum/go-ethereum/metrics"
)

var (
	currentBlockGauge = metrics.NewRegisteredGauge("orderpool/head", nil)
	poolTxGauge       = metrics.NewRegisteredGauge("orderpool/txs", nil)
	poolBundleGauge   = metrics.NewRegisteredGauge("orderpool/bundles", nil)
	headUpdateTimer   = metrics.NewRegisteredTimer("orderpool/headupdate", nil)
)
