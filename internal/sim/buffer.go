package sim

import "sync"

// CommandBuffer stages commands between ticks behind a fixed capacity.
type CommandBuffer struct {
	mu       sync.Mutex
	commands []Command
	capacity int
}

// NewCommandBuffer builds a buffer bounded at capacity commands.
func NewCommandBuffer(capacity int) *CommandBuffer {
	if capacity <= 0 {
		capacity = 256
	}
	return &CommandBuffer{capacity: capacity}
}

// Push stages a command, failing when the buffer is saturated.
func (b *CommandBuffer) Push(cmd Command) bool {
	if b == nil {
		return false
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if len(b.commands) >= b.capacity {
		return false
	}
	b.commands = append(b.commands, cmd)
	return true
}

// Drain removes and returns every staged command in receipt order.
func (b *CommandBuffer) Drain() []Command {
	if b == nil {
		return nil
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if len(b.commands) == 0 {
		return nil
	}
	drained := b.commands
	b.commands = make([]Command, 0, b.capacity/4)
	return drained
}

// Len reports the number of staged commands.
func (b *CommandBuffer) Len() int {
	if b == nil {
		return 0
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.commands)
}
