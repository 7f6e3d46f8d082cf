// Package trace records the phase boundaries a run passes through.
package trace

import (
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"featurert/pkg/logging"
)

// Phase is a lifecycle boundary.
type Phase string

const (
	PhaseConfigured Phase = "configured"
	PhaseRegistered Phase = "registered"
	PhasePatched    Phase = "patched"
	PhaseInit       Phase = "init"
	PhaseStart      Phase = "start"
	PhaseStop       Phase = "stop"
	PhaseStopping   Phase = "stopping"
	PhaseTornDown   Phase = "torn_down"
)

// Event is one recorded boundary.
type Event struct {
	RunID uuid.UUID `json:"runId"`
	Unit  string    `json:"unit"`
	Phase Phase     `json:"phase"`
	At    time.Time `json:"at"`
	Err   string    `json:"error,omitempty"`
}

// NewEvent stamps an event with the current time. A non-nil err is kept as text.
func NewEvent(runID uuid.UUID, unitName string, phase Phase, err error) Event {
	e := Event{RunID: runID, Unit: unitName, Phase: phase, At: time.Now().UTC()}
	if err != nil {
		e.Err = err.Error()
	}
	return e
}

// Recorder receives events.
type Recorder interface {
	Record(e Event) error
}

// Nop discards events.
type Nop struct{}

// Record does nothing.
func (Nop) Record(Event) error { return nil }

// Memory keeps events in memory.
type Memory struct {
	mu     sync.Mutex
	events []Event
}

// Record appends e.
func (m *Memory) Record(e Event) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, e)
	return nil
}

// Events returns a copy of the recorded events.
func (m *Memory) Events() []Event {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]Event(nil), m.events...)
}

// Phases lists the recorded phases in order.
func (m *Memory) Phases() []Phase {
	m.mu.Lock()
	defer m.mu.Unlock()
	phases := make([]Phase, len(m.events))
	for i, e := range m.events {
		phases[i] = e.Phase
	}
	return phases
}

// Console prints a banner for each boundary through the logger.
type Console struct{}

// Record logs e.
func (Console) Record(e Event) error {
	banner := fmt.Sprintf("---%s %s---", e.Unit, strings.ToUpper(string(e.Phase)))
	if e.Err != "" {
		logging.Warn("Trace", "%s (%s)", banner, e.Err)
		return nil
	}
	logging.Info("Trace", "%s", banner)
	return nil
}

// Multi fans events out to every recorder. All recorders see every event.
type Multi []Recorder

// Record forwards e and joins any errors.
func (m Multi) Record(e Event) error {
	var errs []error
	for _, r := range m {
		if r == nil {
			continue
		}
		if err := r.Record(e); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
