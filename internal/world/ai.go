package world

import (
	"time"

	"deepfall/server/internal/abilities"
	"deepfall/server/stats"
)

const (
	enemyMoveSpeed   = 2.6
	petMoveSpeed     = 3.4
	rangedStandoff   = 5.0
	ambushRange      = 4.0
	petFollowRange   = 2.0
	enemyAttackDelay = 1200 * time.Millisecond
	petAttackDelay   = 1500 * time.Millisecond
)

// stepEnemies runs per-archetype behavior: acquire the nearest living
// player in the room, position, and attack. Hidden ambushers stay inert
// until a player comes close enough to spring them.
func (w *World) stepEnemies(dt time.Duration) {
	for _, enemy := range w.enemies {
		if !enemy.Alive || enemy.Status.Stunned() {
			continue
		}

		target := w.nearestPlayer(enemy.RoomID, enemy.X, enemy.Y)
		if target == nil {
			enemy.TargetID = ""
			continue
		}

		if enemy.Hidden {
			if distance(enemy.X, enemy.Y, target.X, target.Y) > ambushRange {
				continue
			}
			enemy.Hidden = false
			w.emitEvent(EventAmbush, enemy.ID, map[string]any{"roomId": enemy.RoomID})
		}

		enemy.TargetID = target.ID
		if enemy.Boss {
			w.fireBossMechanics(enemy, target, dt)
		}

		dist := distance(enemy.X, enemy.Y, target.X, target.Y)
		reach := abilities.MeleeRange
		if def, ok := abilities.Lookup(enemy.AbilityID); ok && def.Range > reach {
			reach = def.Range
		}

		switch enemy.Archetype {
		case EnemyRanged, EnemyCaster:
			// Hold a standoff band: close when out of reach, back off
			// when the player presses in.
			if dist > reach {
				w.moveToward(&enemy.ActorCore, target.X, target.Y, enemyMoveSpeed, dt)
			} else if dist < rangedStandoff*0.5 {
				w.moveAway(&enemy.ActorCore, target.X, target.Y, enemyMoveSpeed, dt)
			}
		default:
			if dist > reach*0.9 {
				w.moveToward(&enemy.ActorCore, target.X, target.Y, enemyMoveSpeed, dt)
			}
		}

		if enemy.attackCooldown <= 0 && distance(enemy.X, enemy.Y, target.X, target.Y) <= reach {
			w.QueueAttack(PendingAttack{
				SourceID:  enemy.ID,
				TargetID:  target.ID,
				AbilityID: enemy.AbilityID,
				Rank:      1,
			})
			enemy.attackCooldown = enemyAttackDelay
		}
	}
}

// fireBossMechanics triggers scripted effects. Health-threshold
// mechanics fire once; interval mechanics repeat for the boss's
// lifetime.
func (w *World) fireBossMechanics(boss *EnemyState, target *PlayerState, dt time.Duration) {
	frac := 1.0
	if max := boss.MaxHealth(); max > 0 {
		frac = boss.Health / max
	}
	for i := range boss.mechanics {
		m := &boss.mechanics[i]
		fire := false
		if m.HealthPct > 0 {
			if !m.fired && frac <= m.HealthPct {
				m.fired = true
				fire = true
			}
		} else if m.Interval > 0 {
			m.sinceLastAt += dt
			if m.sinceLastAt >= m.Interval {
				m.sinceLastAt = 0
				fire = true
			}
		}
		if !fire {
			continue
		}
		if m.OnSelf {
			w.ApplyStatus(boss.ID, m.Effect, boss.ID)
		} else {
			w.ApplyStatus(target.ID, m.Effect, boss.ID)
		}
		w.emitEvent(EventBossMechanic, boss.ID, map[string]any{
			"effect": string(m.Effect), "onSelf": m.OnSelf,
		})
	}
}

// stepPets keeps companions at their owner's side and lets them swing
// at the owner's target.
func (w *World) stepPets(dt time.Duration) {
	for _, pet := range w.pets {
		if !pet.Alive || pet.Status.Stunned() {
			continue
		}
		owner, ok := w.players[pet.OwnerID]
		if !ok {
			w.removePet(pet.ID)
			continue
		}
		if pet.RoomID != owner.RoomID {
			pet.RoomID = owner.RoomID
			pet.X, pet.Y = owner.X, owner.Y
		}

		target, _ := w.FindActor(owner.TargetID)
		if target == nil || !target.Alive || target.RoomID != pet.RoomID {
			if distance(pet.X, pet.Y, owner.X, owner.Y) > petFollowRange {
				w.moveToward(&pet.ActorCore, owner.X, owner.Y, petMoveSpeed, dt)
			}
			pet.TargetID = ""
			continue
		}

		pet.TargetID = target.ID
		dist := distance(pet.X, pet.Y, target.X, target.Y)
		if dist > abilities.MeleeRange {
			w.moveToward(&pet.ActorCore, target.X, target.Y, petMoveSpeed, dt)
			continue
		}
		if pet.attackCooldown <= 0 {
			w.QueueAttack(PendingAttack{
				SourceID:  pet.ID,
				TargetID:  target.ID,
				AbilityID: pet.AbilityID,
				Rank:      1,
			})
			pet.attackCooldown = petAttackDelay
		}
	}
}

func (w *World) nearestPlayer(roomID string, x, y float64) *PlayerState {
	var nearest *PlayerState
	best := 0.0
	for _, player := range w.players {
		if !player.Alive || player.RoomID != roomID {
			continue
		}
		d := distance(x, y, player.X, player.Y)
		if nearest == nil || d < best {
			nearest = player
			best = d
		}
	}
	return nearest
}

func (w *World) moveToward(actor *ActorCore, x, y float64, speed float64, dt time.Duration) {
	w.moveActor(actor, x-actor.X, y-actor.Y, speed, dt)
}

func (w *World) moveAway(actor *ActorCore, x, y float64, speed float64, dt time.Duration) {
	w.moveActor(actor, actor.X-x, actor.Y-y, speed, dt)
}

func (w *World) moveActor(actor *ActorCore, dx, dy, speed float64, dt time.Duration) {
	room, ok := w.rooms[actor.RoomID]
	if !ok {
		return
	}
	dx, dy = normalizeVector(dx, dy)
	haste := 1.0
	if actor.Stats != nil {
		haste = actor.Stats.GetDerived(stats.DerivedHaste)
	}
	step := speed * haste * dt.Seconds()
	actor.X = clampCoord(actor.X+dx*step, 0, room.Width)
	actor.Y = clampCoord(actor.Y+dy*step, 0, room.Height)
}
