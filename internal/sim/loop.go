// Package sim stages client intents and drives the fixed-timestep
// simulation loop. The loop is the single writer: every world mutation
// happens inside Advance, never from a network goroutine.
package sim

import (
	"sync"
	"time"
)

// Command rejection reasons reported to the transport layer.
const (
	CommandRejectQueueLimit = "queue_limit"
	CommandRejectQueueFull  = "queue_full"
)

// DefaultTickRate is the reference simulation rate (50 ms per tick).
const DefaultTickRate = 20

// EngineCore advances the authoritative world one tick at a time.
type EngineCore interface {
	Apply(cmds []Command)
	Step(tick uint64, now time.Time, dt time.Duration)
}

// LoopConfig tunes the command buffer and tick orchestration.
type LoopConfig struct {
	TickRate        int
	CommandCapacity int
	PerActorLimit   int
}

// LoopHooks observe loop progress without owning simulation state.
type LoopHooks struct {
	AfterStep     func(result StepResult)
	OnCommandDrop func(reason string, cmd Command)
}

// StepResult summarizes one executed tick.
type StepResult struct {
	Tick     uint64
	Now      time.Time
	Delta    time.Duration
	Duration time.Duration
	Budget   time.Duration
	Commands []Command
}

// Loop coordinates command ingestion and the fixed-timestep runner.
type Loop struct {
	core   EngineCore
	buffer *CommandBuffer
	hooks  LoopHooks
	config LoopConfig

	queueMu       sync.Mutex
	perActorCount map[string]int

	tick uint64
}

// NewLoop wraps the engine core with a bounded command queue.
func NewLoop(core EngineCore, cfg LoopConfig, hooks LoopHooks) *Loop {
	if core == nil {
		return nil
	}
	if cfg.TickRate <= 0 {
		cfg.TickRate = DefaultTickRate
	}
	return &Loop{
		core:          core,
		buffer:        NewCommandBuffer(cfg.CommandCapacity),
		hooks:         hooks,
		config:        cfg,
		perActorCount: make(map[string]int),
	}
}

// Enqueue stages a command for the next tick, enforcing per-actor
// throttling and the global capacity limit. Rejected commands are
// reported through the OnCommandDrop hook and otherwise dropped.
func (l *Loop) Enqueue(cmd Command) (bool, string) {
	if l == nil {
		return false, CommandRejectQueueFull
	}
	l.queueMu.Lock()
	if l.config.PerActorLimit > 0 && cmd.ActorID != "" {
		if l.perActorCount[cmd.ActorID] >= l.config.PerActorLimit {
			l.queueMu.Unlock()
			l.reportDrop(CommandRejectQueueLimit, cmd)
			return false, CommandRejectQueueLimit
		}
		l.perActorCount[cmd.ActorID]++
	}
	l.queueMu.Unlock()

	if !l.buffer.Push(cmd) {
		// The reservation above must not survive a failed push, or a
		// saturated buffer would also eat the actor's per-tick quota.
		if l.config.PerActorLimit > 0 && cmd.ActorID != "" {
			l.queueMu.Lock()
			if l.perActorCount[cmd.ActorID] > 0 {
				l.perActorCount[cmd.ActorID]--
			}
			l.queueMu.Unlock()
		}
		l.reportDrop(CommandRejectQueueFull, cmd)
		return false, CommandRejectQueueFull
	}
	return true, ""
}

// Advance executes a single simulation step using the staged commands.
func (l *Loop) Advance(now time.Time, dt time.Duration) StepResult {
	if l == nil {
		return StepResult{}
	}
	commands := l.drainCommands()
	l.tick++
	l.core.Apply(commands)
	l.core.Step(l.tick, now, dt)
	return StepResult{
		Tick:     l.tick,
		Now:      now,
		Delta:    dt,
		Commands: commands,
	}
}

// Tick reports the last executed tick number.
func (l *Loop) Tick() uint64 {
	if l == nil {
		return 0
	}
	return l.tick
}

// Run drives the fixed-timestep loop until the stop channel closes.
func (l *Loop) Run(stop <-chan struct{}) {
	if l == nil {
		return
	}
	period := time.Second / time.Duration(l.config.TickRate)
	ticker := time.NewTicker(period)
	defer ticker.Stop()

	last := time.Now()
	for {
		select {
		case <-stop:
			return
		case now := <-ticker.C:
			dt := now.Sub(last)
			if dt <= 0 {
				dt = period
			}
			// Clamp catch-up so a stalled host cannot produce one giant step.
			if dt > 4*period {
				dt = 4 * period
			}
			last = now

			start := time.Now()
			result := l.Advance(now, dt)
			result.Duration = time.Since(start)
			result.Budget = period

			if l.hooks.AfterStep != nil {
				l.hooks.AfterStep(result)
			}
		}
	}
}

func (l *Loop) drainCommands() []Command {
	commands := l.buffer.Drain()
	l.queueMu.Lock()
	if len(l.perActorCount) > 0 {
		l.perActorCount = make(map[string]int)
	}
	l.queueMu.Unlock()
	return commands
}

func (l *Loop) reportDrop(reason string, cmd Command) {
	if l.hooks.OnCommandDrop != nil {
		l.hooks.OnCommandDrop(reason, cmd)
	}
}
