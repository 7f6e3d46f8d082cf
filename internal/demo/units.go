package demo

import (
	"context"
	"fmt"
	"sync"

	"featurert/internal/configurable"
	"featurert/internal/feature"
	"featurert/internal/harness"
	"featurert/internal/unit"
)

// CounterTest drives an iterative unit that stops itself after Cycles loops.
type CounterTest struct {
	harness.Base
	Cycles int

	once  sync.Once
	gates *unit.Gates
	loops int
}

// NewCounterTest creates a counter stopping after one loop unless configured.
func NewCounterTest() *CounterTest {
	return &CounterTest{Cycles: 1}
}

func (c *CounterTest) Configure() error {
	if c.Cycles <= 0 {
		return fmt.Errorf("counter: cycles must be positive, got %d", c.Cycles)
	}
	return nil
}

func (c *CounterTest) Gates() *unit.Gates {
	c.once.Do(func() {
		c.gates = &unit.Gates{AdvanceToStart: unit.NewGate(true), AdvanceToStop: unit.NewGate(false)}
	})
	return c.gates
}

func (c *CounterTest) Features() []feature.Feature {
	return []feature.Feature{SampleHeartbeat, SamplePhaseLog}
}

func (c *CounterTest) Unit() unit.Unit {
	return unit.NewIterative("counter", unit.Funcs{
		OnLoop: func() error {
			c.loops++
			if c.loops >= c.Cycles {
				c.Gates().AdvanceToStop.Open()
			}
			return nil
		},
	})
}

// Loops returns how many main-loop cycles ran.
func (c *CounterTest) Loops() int { return c.loops }

// CounterCycles raises every counter to at least three cycles.
var CounterCycles = configurable.For[*CounterTest]("demo.counter-cycles", configurable.LevelLibrary, func(c *CounterTest) error {
	if c.Cycles < 3 {
		c.Cycles = 3
	}
	return nil
})

// PipelineTest drives a one-shot unit through prepare, process and flush.
type PipelineTest struct {
	harness.Base

	mu     sync.Mutex
	stages []string
}

// NewPipelineTest creates a pipeline test.
func NewPipelineTest() *PipelineTest {
	return &PipelineTest{}
}

func (p *PipelineTest) Features() []feature.Feature {
	return []feature.Feature{SamplePhaseLog}
}

func (p *PipelineTest) Unit() unit.Unit {
	return unit.NewOneShot("pipeline", unit.RunFunc(p.run))
}

func (p *PipelineTest) run(ctx context.Context, c *unit.Control) error {
	p.stage("prepared")
	if err := c.AwaitStart(ctx); err != nil {
		return err
	}
	p.stage("processed")
	if err := c.AwaitStop(ctx); err != nil {
		return err
	}
	p.stage("flushed")
	return nil
}

func (p *PipelineTest) stage(s string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.stages = append(p.stages, s)
}

// Stages returns the stages reached so far.
func (p *PipelineTest) Stages() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.stages...)
}
