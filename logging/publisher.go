package logging

import (
	"context"
	"time"
)

type EventType string

type Severity int

const (
	SeverityDebug Severity = iota
	SeverityInfo
	SeverityWarn
	SeverityError
)

type EntityKind string

const (
	EntityKindUnknown EntityKind = "unknown"
	EntityKindPlayer  EntityKind = "player"
	EntityKindEnemy   EntityKind = "enemy"
	EntityKindPet     EntityKind = "pet"
	EntityKindWorld   EntityKind = "world"
)

const (
	CategoryGameplay    = "gameplay"
	CategoryCombat      = "combat"
	CategoryProgression = "progression"
	CategoryLoot        = "loot"
	CategorySystem      = "system"
	CategoryNetwork     = "network"
)

// Event is one structured simulation log entry. Tick is the simulation
// tick the event was produced on, zero for events raised outside a run.
type Event struct {
	Type     EventType      `json:"type"`
	Tick     uint64         `json:"tick"`
	Time     time.Time      `json:"time"`
	RunID    string         `json:"runId,omitempty"`
	Actor    EntityRef      `json:"actor"`
	Targets  []EntityRef    `json:"targets,omitempty"`
	Severity Severity       `json:"severity"`
	Category string         `json:"category,omitempty"`
	Extra    map[string]any `json:"extra,omitempty"`
}

type EntityRef struct {
	ID   string     `json:"id"`
	Kind EntityKind `json:"kind"`
}

type Publisher interface {
	Publish(ctx context.Context, event Event)
}

type PublisherFunc func(ctx context.Context, event Event)

func (f PublisherFunc) Publish(ctx context.Context, event Event) {
	if f == nil {
		return
	}
	f(ctx, event)
}

type NopPublisher struct{}

func (NopPublisher) Publish(context.Context, Event) {}
