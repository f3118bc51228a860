// Package saves persists character progress between runs: five slots
// per player, newest-wins eviction, and a schema version gate that
// treats unreadable records as absent rather than corrupting a run.
package saves

import (
	"context"
	"errors"
	"time"

	"deepfall/server/internal/items"
)

// SchemaVersion gates decoding. Records written under a different
// version are treated as empty slots.
const SchemaVersion = 1

// SlotCount is the fixed number of save slots per player.
const SlotCount = 5

var (
	ErrInvalidSlot = errors.New("save slot out of range")
	ErrNoSlot      = errors.New("no save in slot")
)

// SavedAbility is one persisted loadout entry.
type SavedAbility struct {
	ID   string `json:"id"`
	Rank int    `json:"rank"`
}

// SaveData is one persisted character. Run-local state (room position,
// live cooldowns, status effects) is deliberately absent: restores
// start a fresh run with the character's progression.
type SaveData struct {
	SchemaVersion int       `json:"schemaVersion"`
	SavedAt       time.Time `json:"savedAt"`

	PlayerID     string                `json:"playerId"`
	Name         string                `json:"name"`
	Class        string                `json:"class"`
	Level        int                   `json:"level"`
	XP           int                   `json:"xp"`
	XPToNext     int                   `json:"xpToNext"`
	Gold         int                   `json:"gold"`
	RerollTokens int                   `json:"rerollTokens"`
	Lives        int                   `json:"lives"`
	HighestFloor int                   `json:"highestFloor"`
	Cosmetics    []string              `json:"cosmetics,omitempty"`
	Equipment    map[string]items.Item `json:"equipment,omitempty"`
	Backpack     []items.Item          `json:"backpack,omitempty"`
	Loadout      []SavedAbility        `json:"loadout"`
}

// Repository stores per-player save slots.
type Repository interface {
	// Save writes into the first empty slot, evicting the
	// oldest-timestamped save when all five are occupied. Returns the
	// slot written.
	Save(ctx context.Context, data SaveData) (int, error)
	// SaveSlot overwrites one specific slot.
	SaveSlot(ctx context.Context, slot int, data SaveData) error
	// Load reads one slot. A missing, unreadable, or version-mismatched
	// record returns ErrNoSlot.
	Load(ctx context.Context, playerID string, slot int) (SaveData, error)
	// List returns all five slots in order; absent slots are nil.
	List(ctx context.Context, playerID string) ([SlotCount]*SaveData, error)
	// Delete clears one slot. Deleting an empty slot is a no-op.
	Delete(ctx context.Context, playerID string, slot int) error
}

func validSlot(slot int) bool { return slot >= 0 && slot < SlotCount }

// pickSlot chooses where a new save lands: the first empty slot, or
// the occupied slot with the oldest timestamp.
func pickSlot(existing [SlotCount]*SaveData) int {
	oldest := 0
	for i, data := range existing {
		if data == nil {
			return i
		}
		if data.SavedAt.Before(existing[oldest].SavedAt) {
			oldest = i
		}
	}
	return oldest
}

// usable reports whether a decoded record is from the current schema.
func usable(data *SaveData) bool {
	return data != nil && data.SchemaVersion == SchemaVersion
}
