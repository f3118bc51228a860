// Package proto defines the JSON envelope spoken over the websocket:
// versioned, type-tagged messages in both directions, plus the
// translation from client intents to simulation commands.
package proto

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"deepfall/server/internal/combat"
	"deepfall/server/internal/journal"
	"deepfall/server/internal/sim"
	"deepfall/server/internal/world"
)

// ProtocolVersion gates decoding: both sides must agree exactly.
const ProtocolVersion = 1

// Client message types.
const (
	TypeJoin         = "join"
	TypeMove         = "move"
	TypeSetTarget    = "setTarget"
	TypeAbility      = "ability"
	TypeAdvanceFloor = "advanceFloor"
	TypeUseItem      = "useItem"
	TypeEquip        = "equip"
	TypeUnequip      = "unequip"
	TypePickup       = "pickup"
	TypeInteract     = "interact"
	TypePurchase     = "purchase"
	TypeHeartbeat    = "heartbeat"
)

// Server message types.
const (
	TypeJoined  = "joined"
	TypeState   = "state"
	TypeCombat  = "combat"
	TypeEvents  = "events"
	TypeJournal = "journal"
	TypePong    = "pong"
	TypeError   = "error"
)

var (
	ErrVersionMismatch = errors.New("protocol version mismatch")
	ErrUnknownType     = errors.New("unknown message type")
	ErrMissingPayload  = errors.New("missing payload")
)

// ClientMessage is the envelope for everything a client sends. Exactly
// one payload pointer is set, matching Type.
type ClientMessage struct {
	V    int    `json:"v"`
	Type string `json:"type"`

	Join      *JoinPayload      `json:"join,omitempty"`
	Move      *MovePayload      `json:"move,omitempty"`
	Target    *TargetPayload    `json:"target,omitempty"`
	Ability   *AbilityPayload   `json:"ability,omitempty"`
	UseItem   *ItemPayload      `json:"useItem,omitempty"`
	Equip     *ItemPayload      `json:"equip,omitempty"`
	Unequip   *UnequipPayload   `json:"unequip,omitempty"`
	Pickup    *PickupPayload    `json:"pickup,omitempty"`
	Purchase  *PurchasePayload  `json:"purchase,omitempty"`
	Heartbeat *HeartbeatPayload `json:"heartbeat,omitempty"`
}

// JoinPayload starts or resumes a session. ResumeRunID lets a
// reconnecting client assert which run it believes it is rejoining.
type JoinPayload struct {
	PlayerID    string `json:"playerId"`
	Name        string `json:"name"`
	Class       string `json:"class"`
	SaveSlot    int    `json:"saveSlot"`
	ResumeRunID string `json:"resumeRunId,omitempty"`
}

type MovePayload struct {
	DX float64 `json:"dx"`
	DY float64 `json:"dy"`
}

type TargetPayload struct {
	TargetID string `json:"targetId"`
}

type AbilityPayload struct {
	AbilityID string `json:"abilityId"`
	TargetID  string `json:"targetId,omitempty"`
}

type ItemPayload struct {
	ItemID string `json:"itemId"`
}

type UnequipPayload struct {
	Slot string `json:"slot"`
}

type PickupPayload struct {
	GroundItemID string `json:"groundItemId"`
}

type PurchasePayload struct {
	VendorID string `json:"vendorId"`
	Service  string `json:"service"`
}

type HeartbeatPayload struct {
	ClientSent int64 `json:"clientSent"`
}

// DecodeClientMessage parses and validates one inbound frame. Frames
// with the wrong version, an unknown type, or a missing payload are
// rejected; the caller drops them without touching the simulation.
func DecodeClientMessage(data []byte) (ClientMessage, error) {
	var msg ClientMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return ClientMessage{}, fmt.Errorf("decode client message: %w", err)
	}
	if msg.V != ProtocolVersion {
		return ClientMessage{}, fmt.Errorf("%w: got %d, want %d", ErrVersionMismatch, msg.V, ProtocolVersion)
	}
	switch msg.Type {
	case TypeJoin:
		if msg.Join == nil {
			return ClientMessage{}, ErrMissingPayload
		}
	case TypeMove:
		if msg.Move == nil {
			return ClientMessage{}, ErrMissingPayload
		}
	case TypeSetTarget:
		if msg.Target == nil {
			return ClientMessage{}, ErrMissingPayload
		}
	case TypeAbility:
		if msg.Ability == nil {
			return ClientMessage{}, ErrMissingPayload
		}
	case TypeUseItem:
		if msg.UseItem == nil {
			return ClientMessage{}, ErrMissingPayload
		}
	case TypeEquip:
		if msg.Equip == nil {
			return ClientMessage{}, ErrMissingPayload
		}
	case TypeUnequip:
		if msg.Unequip == nil {
			return ClientMessage{}, ErrMissingPayload
		}
	case TypePickup:
		if msg.Pickup == nil {
			return ClientMessage{}, ErrMissingPayload
		}
	case TypePurchase:
		if msg.Purchase == nil {
			return ClientMessage{}, ErrMissingPayload
		}
	case TypeAdvanceFloor, TypeInteract:
		// No payload.
	case TypeHeartbeat:
		if msg.Heartbeat == nil {
			return ClientMessage{}, ErrMissingPayload
		}
	default:
		return ClientMessage{}, fmt.Errorf("%w: %q", ErrUnknownType, msg.Type)
	}
	return msg, nil
}

// Command translates a validated non-join message into a simulation
// command for the given actor. Join messages return false: the hub
// handles them outside the tick loop.
func (m ClientMessage) Command(actorID string, now time.Time) (sim.Command, bool) {
	cmd := sim.Command{ActorID: actorID, IssuedAt: now}
	switch m.Type {
	case TypeMove:
		cmd.Type = sim.CommandMove
		cmd.Move = &sim.MoveCommand{DX: m.Move.DX, DY: m.Move.DY}
	case TypeSetTarget:
		cmd.Type = sim.CommandSetTarget
		cmd.Target = &sim.TargetCommand{TargetID: m.Target.TargetID}
	case TypeAbility:
		cmd.Type = sim.CommandAbility
		cmd.Ability = &sim.AbilityCommand{AbilityID: m.Ability.AbilityID, TargetID: m.Ability.TargetID}
	case TypeAdvanceFloor:
		cmd.Type = sim.CommandAdvanceFloor
	case TypeUseItem:
		cmd.Type = sim.CommandUseItem
		cmd.UseItem = &sim.UseItemCommand{ItemID: m.UseItem.ItemID}
	case TypeEquip:
		cmd.Type = sim.CommandEquip
		cmd.Equip = &sim.EquipCommand{ItemID: m.Equip.ItemID}
	case TypeUnequip:
		cmd.Type = sim.CommandUnequip
		cmd.Unequip = &sim.UnequipCommand{Slot: m.Unequip.Slot}
	case TypePickup:
		cmd.Type = sim.CommandPickup
		cmd.Pickup = &sim.PickupCommand{GroundItemID: m.Pickup.GroundItemID}
	case TypeInteract:
		cmd.Type = sim.CommandVendor
	case TypePurchase:
		cmd.Type = sim.CommandPurchase
		cmd.Purchase = &sim.PurchaseCommand{VendorID: m.Purchase.VendorID, Service: m.Purchase.Service}
	case TypeHeartbeat:
		cmd.Type = sim.CommandHeartbeat
		cmd.Heartbeat = &sim.HeartbeatCommand{ReceivedAt: now, ClientSent: m.Heartbeat.ClientSent}
	default:
		return sim.Command{}, false
	}
	return cmd, true
}

// Encode marshals a client message for the wire.
func (m ClientMessage) Encode() ([]byte, error) {
	return json.Marshal(m)
}

// ServerMessage is the envelope for everything the server sends.
type ServerMessage struct {
	V    int    `json:"v"`
	Type string `json:"type"`

	Joined  *JoinedPayload  `json:"joined,omitempty"`
	State   *world.Snapshot `json:"state,omitempty"`
	Combat  []combat.Event  `json:"combat,omitempty"`
	Events  []world.Event   `json:"events,omitempty"`
	Journal []journal.Entry `json:"journal,omitempty"`
	Pong    *PongPayload    `json:"pong,omitempty"`
	Error   *ErrorPayload   `json:"error,omitempty"`
}

// JoinedPayload confirms a join and carries the authoritative initial
// view. Clients compare RunID against any resumed state and discard
// stale snapshots from a previous run.
type JoinedPayload struct {
	RunID    string         `json:"runId"`
	PlayerID string         `json:"playerId"`
	TickRate int            `json:"tickRate"`
	State    world.Snapshot `json:"state"`
}

type PongPayload struct {
	ClientSent int64 `json:"clientSent"`
	ServerTime int64 `json:"serverTime"`
}

type ErrorPayload struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// NewJoined builds the join confirmation.
func NewJoined(runID, playerID string, tickRate int, state world.Snapshot) ServerMessage {
	return ServerMessage{V: ProtocolVersion, Type: TypeJoined, Joined: &JoinedPayload{
		RunID: runID, PlayerID: playerID, TickRate: tickRate, State: state,
	}}
}

// NewState wraps a per-tick snapshot.
func NewState(snapshot world.Snapshot) ServerMessage {
	return ServerMessage{V: ProtocolVersion, Type: TypeState, State: &snapshot}
}

// NewCombat wraps the tick's resolved combat events.
func NewCombat(events []combat.Event) ServerMessage {
	return ServerMessage{V: ProtocolVersion, Type: TypeCombat, Combat: events}
}

// NewEvents wraps the tick's world events.
func NewEvents(events []world.Event) ServerMessage {
	return ServerMessage{V: ProtocolVersion, Type: TypeEvents, Events: events}
}

// NewJournal wraps a journal backfill for late joiners.
func NewJournal(entries []journal.Entry) ServerMessage {
	return ServerMessage{V: ProtocolVersion, Type: TypeJournal, Journal: entries}
}

// NewPong answers a heartbeat.
func NewPong(clientSent int64, serverTime time.Time) ServerMessage {
	return ServerMessage{V: ProtocolVersion, Type: TypePong, Pong: &PongPayload{
		ClientSent: clientSent, ServerTime: serverTime.UnixMilli(),
	}}
}

// NewError reports a rejected request without closing the connection.
func NewError(code, message string) ServerMessage {
	return ServerMessage{V: ProtocolVersion, Type: TypeError, Error: &ErrorPayload{Code: code, Message: message}}
}

// Encode marshals a server message for the wire.
func (m ServerMessage) Encode() ([]byte, error) {
	return json.Marshal(m)
}

// DecodeServerMessage parses one server frame; the client side of the
// session layer uses it to validate snapshots before applying them.
func DecodeServerMessage(data []byte) (ServerMessage, error) {
	var msg ServerMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return ServerMessage{}, fmt.Errorf("decode server message: %w", err)
	}
	if msg.V != ProtocolVersion {
		return ServerMessage{}, fmt.Errorf("%w: got %d, want %d", ErrVersionMismatch, msg.V, ProtocolVersion)
	}
	return msg, nil
}
