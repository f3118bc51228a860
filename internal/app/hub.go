package app

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"deepfall/server/internal/abilities"
	"deepfall/server/internal/items"
	"deepfall/server/internal/journal"
	"deepfall/server/internal/net/proto"
	"deepfall/server/internal/net/ws"
	"deepfall/server/internal/saves"
	"deepfall/server/internal/sim"
	"deepfall/server/internal/world"
	"deepfall/server/logging"
)

// HubConfig tunes the shared run.
type HubConfig struct {
	Seed          int64
	FinalFloor    int
	TickRate      int
	MaxPlayers    int
	AutosaveTicks uint64
	// HeartbeatTimeout drops subscribers that stop sending heartbeats.
	HeartbeatTimeout time.Duration
}

func (c HubConfig) normalized() HubConfig {
	if c.TickRate <= 0 {
		c.TickRate = sim.DefaultTickRate
	}
	if c.MaxPlayers <= 0 {
		c.MaxPlayers = 8
	}
	if c.AutosaveTicks == 0 {
		c.AutosaveTicks = 200
	}
	if c.HeartbeatTimeout <= 0 {
		c.HeartbeatTimeout = 15 * time.Second
	}
	return c
}

// Hub owns the shared run: one world, its tick loop, the subscriber
// fanout, and save persistence. All world access happens under mu; the
// loop goroutine and websocket goroutines never touch the world bare.
type Hub struct {
	cfg    HubConfig
	logger *logrus.Logger
	repo   saves.Repository

	mu          sync.Mutex
	world       *world.World
	journal     *journal.Journal
	loop        *sim.Loop
	subscribers map[string]ws.Sender
	saveSlots   map[string]int
}

// NewHub builds a hub with a fresh run.
func NewHub(cfg HubConfig, repo saves.Repository, logger *logrus.Logger) *Hub {
	cfg = cfg.normalized()
	if logger == nil {
		logger = logrus.New()
	}
	if repo == nil {
		repo = saves.NewMemoryRepository()
	}
	h := &Hub{
		cfg:         cfg,
		logger:      logger,
		repo:        repo,
		subscribers: make(map[string]ws.Sender),
		saveSlots:   make(map[string]int),
	}
	h.startRun()
	h.loop = sim.NewLoop(&engine{hub: h}, sim.LoopConfig{
		TickRate:      cfg.TickRate,
		PerActorLimit: 16,
	}, sim.LoopHooks{
		OnCommandDrop: func(reason string, cmd sim.Command) {
			logger.WithFields(logrus.Fields{"reason": reason, "actor": cmd.ActorID}).Debug("command dropped")
		},
	})
	return h
}

// Run drives the tick loop until stop closes.
func (h *Hub) Run(stop <-chan struct{}) { h.loop.Run(stop) }

// startRun replaces the world with a fresh seeded run. Caller must not
// hold mu.
func (h *Hub) startRun() {
	runID := uuid.NewString()
	seed := h.cfg.Seed
	if seed != 0 {
		// Derive per-run seeds so restarting a fixed-seed server still
		// varies between runs while staying reproducible per run id.
		seed++
		h.cfg.Seed = seed
	}
	w := world.New(world.Config{
		RunID:      runID,
		Seed:       seed,
		StartFloor: 1,
		FinalFloor: h.cfg.FinalFloor,
		Publisher:  logging.NewLogrusPublisher(h.logger),
	})
	h.mu.Lock()
	h.world = w
	h.journal = journal.New(0)
	h.mu.Unlock()
	h.logger.WithField("run", runID).Info("run started")
}

var _ ws.Hub = (*Hub)(nil)

// Connect joins or reconnects a player and returns the authoritative
// initial view plus a journal backfill.
func (h *Hub) Connect(join proto.JoinPayload, out ws.Sender) (string, proto.ServerMessage, error) {
	playerID := join.PlayerID
	if playerID == "" {
		playerID = uuid.NewString()
	}

	h.mu.Lock()
	if h.world.Completed() {
		h.mu.Unlock()
		h.startRun()
		h.mu.Lock()
	}

	_, existing := h.world.Player(playerID)
	if !existing {
		if len(h.world.Players()) >= h.cfg.MaxPlayers {
			h.mu.Unlock()
			return "", proto.ServerMessage{}, errors.New("run is full")
		}
		if err := h.spawnLocked(playerID, join); err != nil {
			h.mu.Unlock()
			return "", proto.ServerMessage{}, err
		}
	}

	if prev, ok := h.subscribers[playerID]; ok && prev != out {
		prev.Close()
	}
	h.subscribers[playerID] = out
	h.saveSlots[playerID] = join.SaveSlot

	snapshot := h.world.Snapshot()
	runID := h.world.RunID()
	backfill := h.journal.Recent(50)
	h.mu.Unlock()

	if len(backfill) > 0 {
		out.Send(proto.NewJournal(backfill))
	}
	h.logger.WithFields(logrus.Fields{"player": playerID, "reconnect": existing}).Info("player connected")
	return playerID, proto.NewJoined(runID, playerID, h.cfg.TickRate, snapshot), nil
}

// spawnLocked creates or restores the character. mu is held.
func (h *Hub) spawnLocked(playerID string, join proto.JoinPayload) error {
	data, err := h.repo.Load(context.Background(), playerID, join.SaveSlot)
	if err == nil {
		h.world.SpawnRestoredPlayer(playerID, restoredFromSave(data))
		return nil
	}
	if !errors.Is(err, saves.ErrNoSlot) && !errors.Is(err, saves.ErrInvalidSlot) {
		return fmt.Errorf("load save: %w", err)
	}

	class := world.ClassID(join.Class)
	switch class {
	case world.ClassWarrior, world.ClassMage, world.ClassRogue:
	default:
		class = world.ClassWarrior
	}
	name := join.Name
	if name == "" {
		name = "Adventurer"
	}
	h.world.SpawnPlayer(playerID, name, class)
	return nil
}

func restoredFromSave(data saves.SaveData) world.RestoredPlayer {
	restored := world.RestoredPlayer{
		Name:         data.Name,
		Class:        world.ClassID(data.Class),
		Level:        data.Level,
		XP:           data.XP,
		XPToNext:     data.XPToNext,
		Gold:         data.Gold,
		RerollTokens: data.RerollTokens,
		Lives:        data.Lives,
		HighestFloor: data.HighestFloor,
		Equipment:    make(map[items.Slot]items.Item, len(data.Equipment)),
		Backpack:     data.Backpack,
	}
	for slot, item := range data.Equipment {
		restored.Equipment[items.Slot(slot)] = item
	}
	for _, ability := range data.Loadout {
		restored.Loadout = append(restored.Loadout, world.AbilityInstance{
			ID:   abilities.ID(ability.ID),
			Rank: ability.Rank,
		})
	}
	return restored
}

// HandleMessage translates one decoded client message into a staged
// command. Heartbeats are answered immediately; everything else waits
// for its tick.
func (h *Hub) HandleMessage(playerID string, msg proto.ClientMessage, now time.Time) {
	if msg.Type == proto.TypeHeartbeat {
		h.mu.Lock()
		out := h.subscribers[playerID]
		h.mu.Unlock()
		if out != nil {
			out.Send(proto.NewPong(msg.Heartbeat.ClientSent, now))
		}
	}

	cmd, ok := msg.Command(playerID, now)
	if !ok {
		return
	}
	if msg.Type == proto.TypeHeartbeat {
		cmd.Heartbeat.RTT = rttFromClientSent(msg.Heartbeat.ClientSent, now)
	}
	if accepted, reason := h.loop.Enqueue(cmd); !accepted {
		h.logger.WithFields(logrus.Fields{"player": playerID, "reason": reason}).Debug("intent rejected")
	}
}

func rttFromClientSent(clientSent int64, now time.Time) time.Duration {
	if clientSent <= 0 {
		return 0
	}
	rtt := now.Sub(time.UnixMilli(clientSent))
	if rtt < 0 {
		return 0
	}
	return rtt
}

// Disconnect drops the subscription and persists the character. The
// player stays in the world for a reconnect.
func (h *Hub) Disconnect(playerID string) {
	h.mu.Lock()
	delete(h.subscribers, playerID)
	h.world.NoteDeparture(playerID)
	player, ok := h.world.Player(playerID)
	var data *saves.SaveData
	var slot int
	if ok && player.Alive {
		d := h.saveDataLocked(player)
		data = &d
		slot = h.saveSlots[playerID]
	}
	h.mu.Unlock()

	if data != nil {
		if err := h.repo.SaveSlot(context.Background(), slot, *data); err != nil {
			h.logger.WithError(err).WithField("player", playerID).Error("save on disconnect failed")
		}
	}
	h.logger.WithField("player", playerID).Info("player disconnected")
}

// saveDataLocked snapshots a player's persistent progression. mu held.
func (h *Hub) saveDataLocked(player *world.PlayerState) saves.SaveData {
	data := saves.SaveData{
		SavedAt:      time.Now(),
		PlayerID:     player.ID,
		Name:         player.Name,
		Class:        string(player.Class),
		Level:        player.Level,
		XP:           player.XP,
		XPToNext:     player.XPToNext,
		Gold:         player.Gold,
		RerollTokens: player.RerollTokens,
		Lives:        player.Lives,
		HighestFloor: player.HighestFloor,
		Cosmetics:    append([]string(nil), player.Cosmetics...),
		Equipment:    make(map[string]items.Item, len(player.Equipment)),
		Backpack:     append([]items.Item(nil), player.Backpack.Items...),
	}
	for slot, item := range player.Equipment {
		data.Equipment[string(slot)] = item
	}
	for _, slot := range player.Loadout {
		data.Loadout = append(data.Loadout, saves.SavedAbility{ID: string(slot.ID), Rank: slot.Rank})
	}
	return data
}

// broadcast fans a message out to every live subscriber.
func (h *Hub) broadcast(msg proto.ServerMessage) {
	h.mu.Lock()
	outs := make([]ws.Sender, 0, len(h.subscribers))
	for _, out := range h.subscribers {
		outs = append(outs, out)
	}
	h.mu.Unlock()
	for _, out := range outs {
		out.Send(msg)
	}
}
