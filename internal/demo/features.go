// Package demo contributes sample plugins to the type universe: features,
// a filter, a configuration and two units of each kind registered in the
// harness catalog.
package demo

import (
	"sync"
	"sync/atomic"

	"featurert/internal/feature"
	"featurert/internal/unit"
	"featurert/pkg/logging"
)

// Heartbeat counts main-loop cycles of iterative units.
type Heartbeat struct {
	feature.Base
	beats atomic.Int64
}

// NewHeartbeat creates a heartbeat limited to iterative units.
func NewHeartbeat() *Heartbeat {
	h := &Heartbeat{}
	h.Dep = feature.HostKind(unit.KindIterative)
	return h
}

func (h *Heartbeat) String() string { return "heartbeat" }

// Beats returns the cycles counted since the last cleanup.
func (h *Heartbeat) Beats() int64 { return h.beats.Load() }

func (h *Heartbeat) PostLoop(feature.Host) { h.beats.Add(1) }

func (h *Heartbeat) Cleanup(host feature.Host) {
	logging.Debug("Demo", "%s: %d beats", host.Name(), h.beats.Swap(0))
}

// PhaseLog records phase boundaries of the unit it is attached to. It needs
// the heartbeat, except on one-shot units where it settles for anything.
type PhaseLog struct {
	feature.Base

	mu      sync.Mutex
	entries []string
}

// NewPhaseLog creates a phase log depending on hb.
func NewPhaseLog(hb *Heartbeat) *PhaseLog {
	p := &PhaseLog{}
	p.Dep = feature.Or(feature.Single(hb), feature.HostKind(unit.KindOneShot))
	return p
}

func (p *PhaseLog) String() string { return "phase-log" }

func (p *PhaseLog) add(h feature.Host, what string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.entries = append(p.entries, h.Name()+":"+what)
}

// Entries returns a copy of the recorded boundaries.
func (p *PhaseLog) Entries() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.entries...)
}

// Reset drops recorded boundaries.
func (p *PhaseLog) Reset() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.entries = nil
}

func (p *PhaseLog) PreInit(h feature.Host)  { p.add(h, "init") }
func (p *PhaseLog) PreStart(h feature.Host) { p.add(h, "start") }
func (p *PhaseLog) PreStop(h feature.Host)  { p.add(h, "stop") }
func (p *PhaseLog) PostStop(h feature.Host) { p.add(h, "stopped") }
func (p *PhaseLog) Cleanup(h feature.Host)  { p.add(h, "cleanup") }

// Sample instances published through the universe. Discovery registers them
// with the process-wide registrar.
var (
	SampleHeartbeat = NewHeartbeat()
	SamplePhaseLog  = NewPhaseLog(SampleHeartbeat)
)
