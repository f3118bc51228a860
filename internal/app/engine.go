package app

import (
	"context"
	"time"

	"deepfall/server/internal/combat"
	"deepfall/server/internal/journal"
	"deepfall/server/internal/net/proto"
	"deepfall/server/internal/saves"
	"deepfall/server/internal/sim"
	"deepfall/server/internal/world"
)

// engine adapts the hub's world to the tick loop: staged commands in,
// combat resolution, journaling, persistence side effects, and the
// per-tick broadcast out.
type engine struct {
	hub *Hub
}

var _ sim.EngineCore = (*engine)(nil)

func (e *engine) Apply(cmds []sim.Command) {
	h := e.hub
	h.mu.Lock()
	h.world.Apply(cmds)
	h.mu.Unlock()
}

func (e *engine) Step(tick uint64, now time.Time, dt time.Duration) {
	h := e.hub

	h.mu.Lock()
	w := h.world
	w.Step(tick, now, dt)

	var combatEvents []combat.Event
	for _, attack := range w.DrainPendingAttacks() {
		if event, ok := combat.Resolve(w, attack); ok {
			combatEvents = append(combatEvents, event)
		}
	}
	// AI casts queued during resolution land next tick; draining again
	// here would let one tick cascade unboundedly.

	deaths := w.DrainDeaths()
	events := w.DrainEvents()
	for _, event := range events {
		h.journal.Append(journal.Entry{
			Tick:    event.Tick,
			Kind:    string(event.Kind),
			ActorID: event.ActorID,
			Data:    event.Data,
		})
	}

	for _, death := range deaths {
		h.journal.Append(journal.Entry{
			Tick:    tick,
			Kind:    "death",
			ActorID: death.VictimID,
			Data:    map[string]any{"kind": string(death.Kind), "killer": death.KillerID},
		})
	}

	eliminated := e.collectEliminations(events)
	elimSet := make(map[string]struct{}, len(eliminated))
	for _, elim := range eliminated {
		elimSet[elim.playerID] = struct{}{}
	}
	stale := e.staleSubscribersLocked(now)
	pending := e.collectSavesLocked(tick, events, elimSet)
	snapshot := w.Snapshot()
	h.mu.Unlock()

	for _, playerID := range stale {
		h.logger.WithField("player", playerID).Warn("heartbeat timeout, dropping connection")
		h.mu.Lock()
		out := h.subscribers[playerID]
		h.mu.Unlock()
		if out != nil {
			out.Close()
		}
	}

	ctx := context.Background()
	for _, elim := range eliminated {
		if err := h.repo.Delete(ctx, elim.playerID, elim.slot); err != nil {
			h.logger.WithError(err).WithField("player", elim.playerID).Error("delete save failed")
		}
	}
	for _, save := range pending {
		if err := h.repo.SaveSlot(ctx, save.slot, save.data); err != nil {
			h.logger.WithError(err).WithField("player", save.data.PlayerID).Error("autosave failed")
		}
	}

	h.broadcast(proto.NewState(snapshot))
	if len(combatEvents) > 0 {
		h.broadcast(proto.NewCombat(combatEvents))
	}
	if len(events) > 0 {
		h.broadcast(proto.NewEvents(events))
	}
}

type elimination struct {
	playerID string
	slot     int
}

// collectEliminations finds players who ran out of lives this tick.
// Permadeath deletes the save: the character is gone.
func (e *engine) collectEliminations(events []world.Event) []elimination {
	h := e.hub
	var out []elimination
	for _, event := range events {
		if event.Kind != world.EventPlayerOut {
			continue
		}
		out = append(out, elimination{playerID: event.ActorID, slot: h.saveSlots[event.ActorID]})
	}
	return out
}

// staleSubscribersLocked lists connected players whose heartbeats went
// quiet. mu held.
func (e *engine) staleSubscribersLocked(now time.Time) []string {
	h := e.hub
	var out []string
	for playerID := range h.subscribers {
		player, ok := h.world.Player(playerID)
		if !ok {
			continue
		}
		last := player.LastHeartbeat()
		if last.IsZero() {
			continue
		}
		if now.Sub(last) > h.cfg.HeartbeatTimeout {
			out = append(out, playerID)
		}
	}
	return out
}

type pendingSave struct {
	slot int
	data saves.SaveData
}

// collectSavesLocked snapshots connected players' progression on the
// autosave cadence and on milestones: floor completion saves everyone,
// a life lost saves the victim. Eliminated players are excluded so a
// late save cannot resurrect a deleted record. mu held.
func (e *engine) collectSavesLocked(tick uint64, events []world.Event, eliminated map[string]struct{}) []pendingSave {
	h := e.hub
	due := make(map[string]struct{})

	if tick > 0 && tick%h.cfg.AutosaveTicks == 0 {
		for playerID := range h.subscribers {
			due[playerID] = struct{}{}
		}
	}
	for _, event := range events {
		switch event.Kind {
		case world.EventFloorComplete:
			for playerID := range h.subscribers {
				due[playerID] = struct{}{}
			}
		case world.EventPlayerDied:
			due[event.ActorID] = struct{}{}
		}
	}

	var out []pendingSave
	for playerID := range due {
		if _, gone := eliminated[playerID]; gone {
			continue
		}
		if _, connected := h.subscribers[playerID]; !connected {
			continue
		}
		player, ok := h.world.Player(playerID)
		if !ok || !player.Alive {
			continue
		}
		out = append(out, pendingSave{slot: h.saveSlots[playerID], data: h.saveDataLocked(player)})
	}
	return out
}
