package demo

import (
	"featurert/internal/harness"
	"featurert/internal/universe"
	"featurert/pkg/logging"
)

const pkgPath = "featurert/internal/demo"

// Entries returns the universe entries this package contributes.
func Entries() []universe.Entry {
	heartbeat := universe.EntryFor[Heartbeat](SampleHeartbeat)
	heartbeat.Init = func() error {
		logging.Debug("Demo", "heartbeat type initialised")
		return nil
	}
	return []universe.Entry{
		heartbeat,
		universe.EntryFor[PhaseLog](SamplePhaseLog),
		universe.EntryFor[Inventory](SampleInventory),
		universe.EntryFor[CounterTest](CounterCycles),
		universe.EntryFor[PipelineTest](),
	}
}

func init() {
	for _, e := range Entries() {
		universe.MustRegister(e)
	}
	harness.DefaultCatalog().MustRegister("counter", func() harness.Test { return NewCounterTest() })
	harness.DefaultCatalog().MustRegister("pipeline", func() harness.Test { return NewPipelineTest() })
}
