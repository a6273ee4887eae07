package building

import (
	"github.com/ethereum/go-ethereum/metrics"
)

var (
	conflictAnalysisTimer = metrics.NewRegisteredTimer("builder/conflict/analysis", nil)
	conflictPairMeter     = metrics.NewRegisteredMeter("builder/conflict/pairs", nil)
	nonceConflictMeter    = metrics.NewRegisteredMeter("builder/conflict/nonce", nil)

	simulationMeter          = metrics.NewRegisteredMeter("builder/simulation", nil)
	simulationCommittedMeter = metrics.NewRegisteredMeter("builder/simulation/committed", nil)
	simulationRevertedMeter  = metrics.NewRegisteredMeter("builder/simulation/reverted", nil)

	successfulBundleSimulationTimer = metrics.NewRegisteredTimer("builder/bundle/simulate/success", nil)
	failedBundleSimulationTimer     = metrics.NewRegisteredTimer("builder/bundle/simulate/failed", nil)
)
