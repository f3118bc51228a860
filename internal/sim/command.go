package sim

import (
	"time"
)

// CommandType enumerates the supported simulation commands.
type CommandType string

const (
	CommandMove         CommandType = "Move"
	CommandSetTarget    CommandType = "SetTarget"
	CommandAbility      CommandType = "Ability"
	CommandAdvanceFloor CommandType = "AdvanceFloor"
	CommandUseItem      CommandType = "UseItem"
	CommandEquip        CommandType = "Equip"
	CommandUnequip      CommandType = "Unequip"
	CommandPickup       CommandType = "Pickup"
	CommandVendor       CommandType = "Vendor"
	CommandPurchase     CommandType = "Purchase"
	CommandHeartbeat    CommandType = "Heartbeat"
)

// Command represents an intent captured for processing on the next tick.
type Command struct {
	OriginTick uint64
	ActorID    string
	Type       CommandType
	IssuedAt   time.Time
	Move       *MoveCommand
	Target     *TargetCommand
	Ability    *AbilityCommand
	UseItem    *UseItemCommand
	Equip      *EquipCommand
	Unequip    *UnequipCommand
	Pickup     *PickupCommand
	Purchase   *PurchaseCommand
	Heartbeat  *HeartbeatCommand
}

// MoveCommand carries the desired movement vector.
type MoveCommand struct {
	DX float64
	DY float64
}

// TargetCommand selects or clears (empty id) the actor's target.
type TargetCommand struct {
	TargetID string
}

// AbilityCommand requests an ability cast against the current target or
// an explicit one.
type AbilityCommand struct {
	AbilityID string
	TargetID  string
}

// UseItemCommand consumes a backpack item by id.
type UseItemCommand struct {
	ItemID string
}

// EquipCommand moves a backpack item into its equipment slot, swapping
// out whatever occupied it.
type EquipCommand struct {
	ItemID string
}

// UnequipCommand returns an equipped slot's item to the backpack.
type UnequipCommand struct {
	Slot string
}

// PickupCommand collects a ground item within pickup range.
type PickupCommand struct {
	GroundItemID string
}

// PurchaseCommand buys a vendor service.
type PurchaseCommand struct {
	VendorID string
	Service  string
}

// HeartbeatCommand updates connectivity metadata for an actor.
type HeartbeatCommand struct {
	ReceivedAt time.Time
	ClientSent int64
	RTT        time.Duration
}
