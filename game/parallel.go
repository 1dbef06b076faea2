package game

import (
	"runtime"
	"sync"

	"github.com/mlange-42/ark/ecs"

	"github.com/pthm-cable/rockets/components"
	"github.com/pthm-cable/rockets/config"
	"github.com/pthm-cable/rockets/systems"
	"github.com/pthm-cable/rockets/telemetry"
)

// agentSnapshot captures read-only state for parallel processing.
type agentSnapshot struct {
	Entity   ecs.Entity
	Slot     int
	Pos      components.Position
	Vel      components.Velocity
	Rot      components.Rotation
	Body     components.Body
	Lifetime int
	Policy   Policy
}

// intent captures computed outputs to apply after the parallel phase.
type intent struct {
	Pos       components.Position
	Vel       components.Velocity
	Rot       components.Rotation
	Thrusting bool
	Lifetime  int
	Fitness   float64
	Exited    bool  // left the playfield this tick
	Reached   bool  // reached the target this tick
	Fault     error // policy output violated the actuator contract
}

// workerScratch holds per-worker reusable buffers.
type workerScratch struct {
	Inputs [config.NumInputs]float64
}

// workChunk represents a range of agents for a worker to process.
type workChunk struct {
	start, end int
}

// parallelState holds resources for parallel agent computation.
type parallelState struct {
	snapshots  []agentSnapshot
	intents    []intent
	scratches  []workerScratch
	numWorkers int
	threshold  int // minimum active agents before dispatching to workers

	// Worker pool channels
	workChan chan workChunk // sends work to workers
	doneChan chan struct{}  // workers signal completion
	stopChan chan struct{}  // signals workers to exit
	wg       sync.WaitGroup // tracks active workers
	running  bool           // true if workers are running
}

func newParallelState(workers, threshold int) *parallelState {
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	if threshold < 1 {
		threshold = 1
	}
	return &parallelState{
		numWorkers: workers,
		threshold:  threshold,
		scratches:  make([]workerScratch, workers),
		snapshots:  make([]agentSnapshot, 0, 512),
		intents:    make([]intent, 0, 512),
	}
}

// startWorkers launches persistent worker goroutines.
func (p *parallelState) startWorkers(s *Simulation) {
	if p.running {
		return
	}

	p.workChan = make(chan workChunk, p.numWorkers)
	p.doneChan = make(chan struct{}, p.numWorkers)
	p.stopChan = make(chan struct{})
	p.running = true

	for i := 0; i < p.numWorkers; i++ {
		p.wg.Add(1)
		go p.worker(s, i)
	}
}

// stopWorkers signals all workers to exit and waits for them.
func (p *parallelState) stopWorkers() {
	if !p.running {
		return
	}

	close(p.stopChan)
	p.wg.Wait()
	close(p.workChan)
	close(p.doneChan)
	p.running = false
}

// worker runs in a goroutine, processing chunks until stopped.
func (p *parallelState) worker(s *Simulation, workerID int) {
	defer p.wg.Done()
	scratch := &p.scratches[workerID]

	for {
		select {
		case <-p.stopChan:
			return
		case chunk, ok := <-p.workChan:
			if !ok {
				return
			}
			s.computeChunk(chunk.start, chunk.end, scratch)
			p.doneChan <- struct{}{}
		}
	}
}

// tick runs one frame for every active agent: snapshot, compute, apply.
// Compute only reads the snapshots, so the result does not depend on how the
// agents are split across workers.
func (s *Simulation) tick() {
	s.perf.StartTick()
	defer s.perf.EndTick()

	// Phase A: Build snapshots (single-threaded, slot order)
	s.perf.StartPhase(telemetry.PhaseSnapshot)
	p := s.parallel
	p.snapshots = p.snapshots[:0]

	for slot, e := range s.agents {
		pos, vel, rot, body, flight := s.agentMapper.Get(e)
		if !flight.Active {
			continue
		}
		p.snapshots = append(p.snapshots, agentSnapshot{
			Entity:   e,
			Slot:     slot,
			Pos:      *pos,
			Vel:      *vel,
			Rot:      *rot,
			Body:     *body,
			Lifetime: flight.Lifetime,
			Policy:   s.policies[flight.Slot],
		})
	}

	n := len(p.snapshots)
	s.perf.CountAgents(n)
	if n == 0 {
		return
	}

	if cap(p.intents) < n {
		p.intents = make([]intent, n)
	}
	p.intents = p.intents[:n]

	// Phase B: Compute - choose single or parallel based on agent count
	s.perf.StartPhase(telemetry.PhaseCompute)
	if n < p.threshold || p.numWorkers == 1 {
		s.computeChunk(0, n, &p.scratches[0])
	} else {
		s.computeParallel(n)
	}

	// Phase C: Apply intents (single-threaded, preserves determinism)
	s.perf.StartPhase(telemetry.PhaseApply)
	s.applyIntents()
}

// computeParallel dispatches work to the worker pool.
func (s *Simulation) computeParallel(n int) {
	p := s.parallel
	if !p.running {
		p.startWorkers(s)
	}

	chunkSize := (n + p.numWorkers - 1) / p.numWorkers

	chunksDispatched := 0
	for w := 0; w < p.numWorkers; w++ {
		start := w * chunkSize
		end := min(start+chunkSize, n)
		if start >= end {
			continue
		}

		p.workChan <- workChunk{start: start, end: end}
		chunksDispatched++
	}

	// Wait for all chunks to complete
	for i := 0; i < chunksDispatched; i++ {
		<-p.doneChan
	}
}

// computeChunk processes a range of agents: sensors, policy, actuators,
// physics, fitness and the target test.
func (s *Simulation) computeChunk(i0, i1 int, scratch *workerScratch) {
	target := s.target

	for i := i0; i < i1; i++ {
		snap := &s.parallel.snapshots[i]
		in := &s.parallel.intents[i]
		*in = intent{Pos: snap.Pos, Vel: snap.Vel, Rot: snap.Rot, Lifetime: snap.Lifetime}

		sensorInputs := s.sensors.Compute(snap.Pos, snap.Vel, snap.Rot, snap.Body, target)
		inputs := sensorInputs.FillSlice(scratch.Inputs[:])
		out := snap.Policy.Evaluate(inputs)
		if err := systems.ValidateOutputs(out); err != nil {
			in.Fault = err
			continue
		}

		in.Lifetime++

		controls := s.actuators.Decode(out)
		in.Thrusting = controls.Thrust
		s.actuators.Rotate(&in.Rot, controls.Turn)

		in.Exited = s.physics.Step(&in.Pos, &in.Vel, in.Rot, snap.Body, controls.Thrust)
		in.Fitness = s.fitness.Evaluate(in.Pos, snap.Body, target, in.Lifetime)
		in.Reached = systems.ReachedTarget(in.Pos, snap.Body, target)
	}
}

// applyIntents writes computed results back to ECS components.
func (s *Simulation) applyIntents() {
	for i := range s.parallel.snapshots {
		snap := &s.parallel.snapshots[i]
		in := &s.parallel.intents[i]

		pos, vel, rot, _, flight := s.agentMapper.Get(snap.Entity)

		if in.Fault != nil {
			// Fitness and lifetime stay frozen at their last valid values.
			flight.Active = false
			flight.Thrusting = false
			*vel = components.Velocity{}
			s.collector.RecordFault()
			s.logger.Warn("policy fault, agent deactivated",
				"generation", s.generation,
				"frame", s.frame,
				"slot", flight.Slot,
				"error", in.Fault,
			)
			continue
		}

		*pos = in.Pos
		*vel = in.Vel
		*rot = in.Rot
		flight.Thrusting = in.Thrusting
		flight.Lifetime = in.Lifetime
		flight.Fitness = in.Fitness

		if in.Fitness > s.bestFitness {
			s.bestFitness = in.Fitness
		}

		if in.Exited {
			flight.Active = false
			s.collector.RecordOutOfBounds()
		}
		if in.Reached {
			flight.Active = false
			*vel = components.Velocity{}
			s.collector.RecordReached()
			s.logger.Debug("target reached",
				"generation", s.generation,
				"frame", s.frame,
				"slot", flight.Slot,
				"lifetime", flight.Lifetime,
				"fitness", flight.Fitness,
			)
		}
	}
}
