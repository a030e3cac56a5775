// Copyright 2018 Denis Bernard <db047h@gmail.com>
// Licensed under the MIT license. See license text in the LICENSE file.

package hwsim

import (
	"context"
	"runtime"
	"sync"

	"github.com/pkg/errors"
)

// Circuit is a runnable circuit simulation.
//
// Pin states are double buffered: components read the states of the previous
// step from cur and write the new ones to next. Both buffers are swapped at
// the end of each step, so components may be updated concurrently.
//
type Circuit struct {
	cur, next []bool
	cs        []Component
	pins      int  // allocated pin count
	spc       uint // steps per clock cycle, a power of two
	step      uint

	jobs []chan struct{}
	wg   sync.WaitGroup
}

// NewCircuit builds a new circuit based on the given parts.
//
// workers is the number of goroutines updating the circuit components at each
// step. Values less or equal to 0 stand for GOMAXPROCS.
//
// stepsPerCycle is the number of simulation steps in a clock cycle (the Clk
// signal, not wall clock). It is rounded up to a power of two and must be
// large enough for the signals of the slowest path in the circuit to settle
// within half a cycle: a built-in gate takes one step to update its output.
//
// The returned circuit must be disposed with Dispose.
//
func NewCircuit(workers int, stepsPerCycle uint, parts Parts) (*Circuit, error) {
	if len(parts) == 0 {
		return nil, errors.New("empty part list")
	}
	top, err := Chip("CIRCUIT", nil, nil, parts)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create chip wrapper")
	}

	c := &Circuit{pins: cstCount, spc: pow2(stepsPerCycle)}
	c.cs = append(top("").Mount(newSocket(c)), updClock)
	c.cur = make([]bool, c.pins)
	c.next = make([]bool, c.pins)
	for _, b := range [][]bool{c.cur, c.next} {
		b[cstTrue] = true
	}
	c.cur[cstClk] = true

	if workers <= 0 {
		workers = runtime.GOMAXPROCS(-1)
	}
	for _, cs := range split(c.cs, workers) {
		job := make(chan struct{}, 1)
		c.jobs = append(c.jobs, job)
		go c.worker(cs, job)
	}
	return c, nil
}

// pow2 returns the smallest power of two greater or equal to n, and at least 2.
func pow2(n uint) uint {
	p := uint(2)
	for p < n {
		p <<= 1
	}
	return p
}

// split divides cs into at most n chunks of similar size.
func split(cs []Component, n int) [][]Component {
	if n < 1 {
		n = 1
	}
	size := (len(cs) + n - 1) / n
	var out [][]Component
	for len(cs) > 0 {
		if size > len(cs) {
			size = len(cs)
		}
		out = append(out, cs[:size])
		cs = cs[size:]
	}
	return out
}

func updClock(c *Circuit) {
	if c.cur[cstFalse] || !c.cur[cstTrue] {
		panic("true or false constants have been overwritten")
	}
	next := c.step + 1
	switch {
	case next&(c.spc-1) == 0:
		c.next[cstClk] = true
	case next&(c.spc/2-1) == 0:
		c.next[cstClk] = false
	default:
		c.next[cstClk] = c.cur[cstClk]
	}
}

func (c *Circuit) worker(cs []Component, job <-chan struct{}) {
	for range job {
		for _, f := range cs {
			f(c)
		}
		c.wg.Done()
	}
	c.wg.Done()
}

// Dispose stops the worker goroutines of the circuit. It is safe to call
// Dispose more than once.
//
func (c *Circuit) Dispose() {
	c.wg.Add(len(c.jobs))
	for _, job := range c.jobs {
		close(job)
	}
	c.wg.Wait()
	c.jobs = nil
}

func (c *Circuit) allocPin() int {
	c.pins++
	return c.pins - 1
}

// Size returns the component count in the circuit.
//
func (c *Circuit) Size() int { return len(c.cs) }

// Steps returns the number of steps run so far.
//
func (c *Circuit) Steps() uint { return c.step }

// SPC returns the number of steps per clock cycle.
//
func (c *Circuit) SPC() uint { return c.spc }

// AtTick returns true on the first step of a clock cycle (raising edge of Clk).
//
func (c *Circuit) AtTick() bool {
	return c.step&(c.spc-1) == 0
}

// AtTock returns true on the first step of the second half of a clock cycle
// (falling edge of Clk).
//
func (c *Circuit) AtTock() bool {
	return (c.step+c.spc/2)&(c.spc-1) == 0
}

// Get returns the state of pin n as of the previous step. Pin numbers are
// obtained from a Socket in a MountFn.
//
func (c *Circuit) Get(n int) bool { return c.cur[n] }

// Set sets the state of pin n for the current step.
//
func (c *Circuit) Set(n int, s bool) { c.next[n] = s }

// Toggle inverts the state of pin n.
//
func (c *Circuit) Toggle(n int) { c.next[n] = !c.cur[n] }

// Step advances the simulation by one step.
//
func (c *Circuit) Step() {
	c.wg.Add(len(c.jobs))
	for _, job := range c.jobs {
		job <- struct{}{}
	}
	c.wg.Wait()
	c.step++
	c.cur, c.next = c.next, c.cur
}

// Tick runs the simulation up to the falling edge of Clk.
//
func (c *Circuit) Tick() {
	for c.Get(cstClk) {
		c.Step()
	}
}

// Tock runs the simulation up to the raising edge of Clk. Outputs of clocked
// components are stable once Tock returns.
//
func (c *Circuit) Tock() {
	for !c.Get(cstClk) {
		c.Step()
	}
}

// TickTock runs the simulation for a whole clock cycle.
//
func (c *Circuit) TickTock() {
	c.Tick()
	c.Tock()
}

// Run runs the simulation for the given number of clock cycles. It returns
// early with the context error if ctx is done between two cycles.
//
func (c *Circuit) Run(ctx context.Context, cycles int) error {
	for ; cycles > 0; cycles-- {
		if err := ctx.Err(); err != nil {
			return err
		}
		c.TickTock()
	}
	return nil
}
