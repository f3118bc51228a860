package sim

import (
	"testing"
	"time"
)

type recordingCore struct {
	applied [][]Command
	steps   []uint64
}

func (c *recordingCore) Apply(cmds []Command) {
	c.applied = append(c.applied, cmds)
}

func (c *recordingCore) Step(tick uint64, _ time.Time, _ time.Duration) {
	c.steps = append(c.steps, tick)
}

func TestAdvanceAppliesCommandsInReceiptOrder(t *testing.T) {
	t.Parallel()

	core := &recordingCore{}
	loop := NewLoop(core, LoopConfig{}, LoopHooks{})

	for i := 0; i < 3; i++ {
		cmd := Command{ActorID: "p1", Type: CommandMove, Move: &MoveCommand{DX: float64(i)}}
		if ok, reason := loop.Enqueue(cmd); !ok {
			t.Fatalf("enqueue %d rejected: %s", i, reason)
		}
	}

	result := loop.Advance(time.Now(), 50*time.Millisecond)
	if result.Tick != 1 {
		t.Fatalf("expected tick 1, got %d", result.Tick)
	}
	if len(core.applied) != 1 || len(core.applied[0]) != 3 {
		t.Fatalf("apply batch mismatch: %+v", core.applied)
	}
	for i, cmd := range core.applied[0] {
		if cmd.Move.DX != float64(i) {
			t.Fatalf("command %d out of order: %v", i, cmd.Move.DX)
		}
	}
}

func TestEnqueueEnforcesPerActorLimit(t *testing.T) {
	t.Parallel()

	var dropped []string
	core := &recordingCore{}
	loop := NewLoop(core, LoopConfig{PerActorLimit: 2}, LoopHooks{
		OnCommandDrop: func(reason string, cmd Command) {
			dropped = append(dropped, reason)
		},
	})

	for i := 0; i < 4; i++ {
		loop.Enqueue(Command{ActorID: "spammer", Type: CommandMove})
	}
	if got := len(dropped); got != 2 {
		t.Fatalf("expected 2 drops, got %d", got)
	}
	for _, reason := range dropped {
		if reason != CommandRejectQueueLimit {
			t.Fatalf("unexpected drop reason %s", reason)
		}
	}

	// The limit resets once the staged batch is drained.
	loop.Advance(time.Now(), 50*time.Millisecond)
	if ok, _ := loop.Enqueue(Command{ActorID: "spammer", Type: CommandMove}); !ok {
		t.Fatalf("limit did not reset after drain")
	}
}

func TestEnqueueEnforcesGlobalCapacity(t *testing.T) {
	t.Parallel()

	core := &recordingCore{}
	loop := NewLoop(core, LoopConfig{CommandCapacity: 2}, LoopHooks{})

	loop.Enqueue(Command{ActorID: "a", Type: CommandMove})
	loop.Enqueue(Command{ActorID: "b", Type: CommandMove})
	ok, reason := loop.Enqueue(Command{ActorID: "c", Type: CommandMove})
	if ok || reason != CommandRejectQueueFull {
		t.Fatalf("expected queue_full rejection, got ok=%v reason=%s", ok, reason)
	}
}

func TestEnqueueFullBufferKeepsActorQuota(t *testing.T) {
	t.Parallel()

	core := &recordingCore{}
	loop := NewLoop(core, LoopConfig{CommandCapacity: 1, PerActorLimit: 2}, LoopHooks{})

	if ok, _ := loop.Enqueue(Command{ActorID: "a", Type: CommandMove}); !ok {
		t.Fatal("first enqueue rejected")
	}

	// A saturated buffer must not consume the actor's per-tick quota:
	// repeated rejections stay queue_full, never queue_limit.
	for i := 0; i < 3; i++ {
		ok, reason := loop.Enqueue(Command{ActorID: "a", Type: CommandMove})
		if ok || reason != CommandRejectQueueFull {
			t.Fatalf("attempt %d: expected queue_full rejection, got ok=%v reason=%s", i, ok, reason)
		}
	}
}

func TestAdvanceIncrementsTickMonotonically(t *testing.T) {
	t.Parallel()

	core := &recordingCore{}
	loop := NewLoop(core, LoopConfig{}, LoopHooks{})
	now := time.Now()
	for i := 1; i <= 5; i++ {
		result := loop.Advance(now, 50*time.Millisecond)
		if result.Tick != uint64(i) {
			t.Fatalf("tick %d expected, got %d", i, result.Tick)
		}
	}
	if len(core.steps) != 5 {
		t.Fatalf("expected 5 steps, got %d", len(core.steps))
	}
}
