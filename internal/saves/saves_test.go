package saves

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"deepfall/server/internal/items"
	"deepfall/server/stats"
)

func repositories(t *testing.T) map[string]Repository {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return map[string]Repository{
		"memory": NewMemoryRepository(),
		"redis":  NewRedisRepository(client),
	}
}

func saveFixture(player string, at time.Time) SaveData {
	return SaveData{
		SavedAt:      at,
		PlayerID:     player,
		Name:         "Ash",
		Class:        "warrior",
		Level:        4,
		XP:           120,
		XPToNext:     800,
		Gold:         55,
		Lives:        3,
		HighestFloor: 2,
		Loadout:      []SavedAbility{{ID: "strike", Rank: 2}},
	}
}

func TestSaveAndLoadRoundTrip(t *testing.T) {
	t.Parallel()
	for name, repo := range repositories(t) {
		repo := repo
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			slot, err := repo.Save(ctx, saveFixture("p1", time.Now()))
			require.NoError(t, err)
			assert.Equal(t, 0, slot)

			got, err := repo.Load(ctx, "p1", slot)
			require.NoError(t, err)
			assert.Equal(t, "Ash", got.Name)
			assert.Equal(t, 4, got.Level)
			assert.Equal(t, SchemaVersion, got.SchemaVersion)
			assert.Equal(t, []SavedAbility{{ID: "strike", Rank: 2}}, got.Loadout)
		})
	}
}

func TestSaveFillsSlotsThenEvictsOldest(t *testing.T) {
	t.Parallel()
	for name, repo := range repositories(t) {
		repo := repo
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			base := time.Now().Add(-time.Hour)
			for i := 0; i < SlotCount; i++ {
				data := saveFixture("p1", base.Add(time.Duration(i)*time.Minute))
				data.Gold = i
				slot, err := repo.Save(ctx, data)
				require.NoError(t, err)
				assert.Equal(t, i, slot)
			}

			// All slots full: the next save evicts slot 0, the oldest.
			newest := saveFixture("p1", time.Now())
			newest.Gold = 99
			slot, err := repo.Save(ctx, newest)
			require.NoError(t, err)
			assert.Equal(t, 0, slot)

			got, err := repo.Load(ctx, "p1", 0)
			require.NoError(t, err)
			assert.Equal(t, 99, got.Gold)
		})
	}
}

func TestLoadMissingAndInvalidSlots(t *testing.T) {
	t.Parallel()
	for name, repo := range repositories(t) {
		repo := repo
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			_, err := repo.Load(ctx, "nobody", 0)
			assert.ErrorIs(t, err, ErrNoSlot)

			_, err = repo.Load(ctx, "nobody", SlotCount)
			assert.ErrorIs(t, err, ErrInvalidSlot)
			_, err = repo.Load(ctx, "nobody", -1)
			assert.ErrorIs(t, err, ErrInvalidSlot)
		})
	}
}

func TestDeleteClearsSlot(t *testing.T) {
	t.Parallel()
	for name, repo := range repositories(t) {
		repo := repo
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			slot, err := repo.Save(ctx, saveFixture("p1", time.Now()))
			require.NoError(t, err)

			require.NoError(t, repo.Delete(ctx, "p1", slot))
			_, err = repo.Load(ctx, "p1", slot)
			assert.ErrorIs(t, err, ErrNoSlot)

			// Deleting an already-empty slot is fine.
			require.NoError(t, repo.Delete(ctx, "p1", slot))
		})
	}
}

func TestListReturnsSlotsInOrder(t *testing.T) {
	t.Parallel()
	for name, repo := range repositories(t) {
		repo := repo
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			require.NoError(t, repo.SaveSlot(ctx, 2, saveFixture("p1", time.Now())))

			list, err := repo.List(ctx, "p1")
			require.NoError(t, err)
			for i, data := range list {
				if i == 2 {
					require.NotNil(t, data)
					assert.Equal(t, "Ash", data.Name)
					continue
				}
				assert.Nil(t, data)
			}
		})
	}
}

func TestSchemaVersionMismatchTreatedAsAbsent(t *testing.T) {
	t.Parallel()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	repo := NewRedisRepository(client)
	ctx := context.Background()

	stale := saveFixture("p1", time.Now())
	stale.SchemaVersion = SchemaVersion + 1
	payload, err := json.Marshal(stale)
	require.NoError(t, err)
	require.NoError(t, client.Set(ctx, redisKey("p1", 1), payload, 0).Err())

	_, err = repo.Load(ctx, "p1", 1)
	assert.ErrorIs(t, err, ErrNoSlot)

	// The stale record's slot counts as empty for eviction too.
	slot, err := repo.Save(ctx, saveFixture("p1", time.Now()))
	require.NoError(t, err)
	assert.Equal(t, 0, slot)
}

func TestCorruptRecordTreatedAsAbsent(t *testing.T) {
	t.Parallel()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	repo := NewRedisRepository(client)
	ctx := context.Background()

	require.NoError(t, client.Set(ctx, redisKey("p1", 0), "{broken", 0).Err())
	_, err := repo.Load(ctx, "p1", 0)
	assert.ErrorIs(t, err, ErrNoSlot)
}

func TestEquipmentBonusesSurviveRoundTrip(t *testing.T) {
	t.Parallel()
	for name, repo := range repositories(t) {
		repo := repo
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			cleaver := items.Item{
				ID:     "cleaver-1",
				Type:   "cleaver",
				Name:   "Rare Cleaver",
				Kind:   items.KindGear,
				Slot:   items.SlotWeapon,
				Rarity: items.RarityRare,
				Power:  20,
			}
			cleaver.Bonuses.Derived[stats.DerivedAttackPower] = 12
			cleaver.Bonuses.Stats[stats.StatStrength] = 3

			data := saveFixture("p1", time.Now())
			data.Equipment = map[string]items.Item{string(items.SlotWeapon): cleaver}
			slot, err := repo.Save(ctx, data)
			require.NoError(t, err)

			got, err := repo.Load(ctx, "p1", slot)
			require.NoError(t, err)
			loaded, ok := got.Equipment[string(items.SlotWeapon)]
			require.True(t, ok)
			assert.Equal(t, cleaver.Power, loaded.Power)
			assert.Equal(t, cleaver.Bonuses, loaded.Bonuses)
			assert.False(t, loaded.Bonuses.IsZero(), "stat bonuses dropped across the save round-trip")
		})
	}
}
