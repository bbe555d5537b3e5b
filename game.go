package main

import (
	"math/rand"
	"sort"
	"time"
)

// KeyboardInputs is the raw held-key snapshot sent by a client. Keys map to
// logical controls: w/s move, a/d rotate, space shoot, Shift jump.
type KeyboardInputs map[string]bool

const spawnMaxAttempts = 64

// Game is the authoritative simulation for one match. It is not safe for
// concurrent use: exactly one room worker goroutine owns it and drives Tick
// on a fixed cadence.
type Game struct {
	fighters  map[int64]*Fighter
	bullets   []*Bullet
	obstacles []Obstacle
	inputs    map[int64]KeyboardInputs
	actions   []*Action

	nextBulletID int64
	rng          *rand.Rand
}

// NewGame creates a simulation with the default stage layout.
func NewGame() *Game {
	return &Game{
		fighters:  make(map[int64]*Fighter),
		obstacles: DefaultObstacles(),
		inputs:    make(map[int64]KeyboardInputs),
		rng:       rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// Fighter returns the fighter for an ID, or nil.
func (g *Game) Fighter(id int64) *Fighter {
	return g.fighters[id]
}

// FighterCount returns the number of fighters in the match.
func (g *Game) FighterCount() int {
	return len(g.fighters)
}

// AddFighter spawns a fighter for the given user ID at an empty spot.
func (g *Game) AddFighter(id int64) *Fighter {
	f := NewFighter(id, g.FindEmptySpace())
	g.fighters[id] = f
	return f
}

// RemoveFighter drops a fighter and everything keyed to it. Its live bullets
// keep flying; they reference the fighter only by ID.
func (g *Game) RemoveFighter(id int64) {
	f, ok := g.fighters[id]
	if !ok {
		return
	}
	delete(g.fighters, id)
	delete(g.inputs, id)
	live := g.actions[:0]
	for _, a := range g.actions {
		if a.Actor != f {
			live = append(live, a)
		}
	}
	g.actions = live
}

// SetUserInputs replaces the buffered input snapshot for a fighter.
// Last write wins within a tick window. Input for an unknown fighter is
// dropped silently: disconnect races are expected, not errors.
func (g *Game) SetUserInputs(fighterID int64, inputs KeyboardInputs) {
	if _, ok := g.fighters[fighterID]; !ok {
		return
	}
	g.inputs[fighterID] = inputs
}

// CreateFighterActions turns the buffered inputs into this tick's actions.
// Every live fighter with input drops back to idle first, then each held key
// enqueues its command.
func (g *Game) CreateFighterActions() {
	for id, inputs := range g.inputs {
		actor := g.fighters[id]
		if actor == nil || actor.IsDead {
			continue
		}
		actor.CurrentAction = ActionIdle
		if inputs["w"] {
			g.addAction(NewMoveAction(actor, RotateVector3(Vec3{Y: 0.001 * MoveSpeed}, actor.Rotation)))
		}
		if inputs["s"] {
			g.addAction(NewMoveAction(actor, RotateVector3(Vec3{Y: -0.001 * MoveSpeed}, actor.Rotation)))
		}
		if inputs["a"] {
			g.addAction(NewRotateAction(actor, Vec3{Z: 0.001 * TurnSensitivity}))
		}
		if inputs["d"] {
			g.addAction(NewRotateAction(actor, Vec3{Z: -0.001 * TurnSensitivity}))
		}
		if inputs[" "] {
			g.addAction(NewShootAction(actor))
		}
		if inputs["Shift"] {
			g.addAction(NewJumpAction(actor))
		}
	}
}

func (g *Game) addAction(a *Action) {
	g.actions = append(g.actions, a)
}

func (g *Game) spawnBullet(owner *Fighter) *Bullet {
	g.nextBulletID++
	b := NewBullet(g.nextBulletID, owner)
	g.bullets = append(g.bullets, b)
	return b
}

// Tick advances the simulation by deltaMs wall-clock milliseconds: actions,
// cooldowns, bullet motion, collision, then death bookkeeping.
func (g *Game) Tick(deltaMs float64, now time.Time) {
	g.runActions(deltaMs, now)
	g.manageCooldowns(now)
	g.moveBullets()
	g.detectCollision()
	g.updateDeadFighters()
}

// runActions drops completed actions from the live set and ticks the rest.
func (g *Game) runActions(deltaMs float64, now time.Time) {
	live := g.actions[:0]
	for _, a := range g.actions {
		if a.Completed {
			continue
		}
		a.Tick(g, deltaMs, now)
		if !a.Completed {
			live = append(live, a)
		}
	}
	g.actions = live
}

// manageCooldowns re-arms fighters whose shot cooldown has elapsed.
func (g *Game) manageCooldowns(now time.Time) {
	for _, f := range g.fighters {
		if f.CoolingDown && f.CooldownElapsed(now) {
			f.CoolingDown = false
		}
	}
}

func (g *Game) moveBullets() {
	for _, b := range g.bullets {
		b.Move()
	}
}

// detectCollision runs the per-tick collision passes: bullet hits on live
// fighters, obstacle rollback, stage clamping, then bullet culling.
func (g *Game) detectCollision() {
	destroyed := make(map[int64]bool)

	for _, f := range g.fighters {
		if f.IsDead {
			continue
		}
		for _, b := range g.bullets {
			if b.OwnerID == f.ID || destroyed[b.ID] {
				continue
			}
			if PlanarDistance(f.Position, b.Position) < FighterBulletRadius {
				destroyed[b.ID] = true
				if owner := g.fighters[b.OwnerID]; owner != nil {
					owner.Score += KillReward
				}
				f.Damage(1)
			}
		}

		for _, o := range g.obstacles {
			if PlanarDistance(f.Position, o.Position) < o.Radius+FighterWidth/2 {
				// Obstacles block, they don't hurt.
				f.Position = f.PreviousPosition
				break
			}
		}

		const bound = StageWidth/2 - FighterWidth/2
		f.Position.X = Clamp(f.Position.X, -bound, bound)
		f.Position.Y = Clamp(f.Position.Y, -bound, bound)
	}

	for _, b := range g.bullets {
		if destroyed[b.ID] {
			continue
		}
		if b.Position.X > StageWidth/2 || b.Position.X < -StageWidth/2 ||
			b.Position.Y > StageWidth/2 || b.Position.Y < -StageWidth/2 {
			destroyed[b.ID] = true
			continue
		}
		for _, o := range g.obstacles {
			if PlanarDistance(b.Position, o.Position) < o.Radius {
				destroyed[b.ID] = true
				break
			}
		}
	}

	if len(destroyed) > 0 {
		live := g.bullets[:0]
		for _, b := range g.bullets {
			if !destroyed[b.ID] {
				live = append(live, b)
			}
		}
		g.bullets = live
	}
}

// updateDeadFighters marks any fighter at or below zero HP dead, exactly
// once. There is no respawn path.
func (g *Game) updateDeadFighters() {
	for _, f := range g.fighters {
		if !f.IsDead && f.HP <= 0 {
			f.IsDead = true
		}
	}
}

// FindEmptySpace rejection-samples a spawn point clear of bullets and
// obstacles. Retries are bounded; a saturated stage tolerates overlap on the
// final draw rather than spinning forever.
func (g *Game) FindEmptySpace() Vec3 {
	const bound = StageWidth/2 - FighterWidth/2
	var p Vec3
	for attempt := 0; attempt < spawnMaxAttempts; attempt++ {
		p = Vec3{
			X: (g.rng.Float64()*2 - 1) * bound,
			Y: (g.rng.Float64()*2 - 1) * bound,
			Z: GroundZ,
		}
		if g.spaceClear(p) {
			return p
		}
	}
	return p
}

func (g *Game) spaceClear(p Vec3) bool {
	for _, b := range g.bullets {
		if PlanarDistance(p, b.Position) < FighterBulletRadius {
			return false
		}
	}
	for _, o := range g.obstacles {
		if PlanarDistance(p, o.Position) < o.Radius+FighterWidth/2 {
			return false
		}
	}
	return true
}

// Snapshot serializes the full public state of every entity. Fighters are
// ordered by ID so consecutive snapshots are stable for the client reconcile.
func (g *Game) Snapshot() GameData {
	data := GameData{
		FighterStatuses:  make([]FighterStatus, 0, len(g.fighters)),
		BulletStatuses:   make([]BulletStatus, 0, len(g.bullets)),
		ObstacleStatuses: make([]ObstacleStatus, 0, len(g.obstacles)),
	}

	ids := make([]int64, 0, len(g.fighters))
	for id := range g.fighters {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	for _, id := range ids {
		f := g.fighters[id]
		data.FighterStatuses = append(data.FighterStatuses, FighterStatus{
			ID:            f.ID,
			HP:            f.HP,
			Score:         f.Score,
			Position:      f.Position,
			Rotation:      f.Rotation,
			IsDead:        f.IsDead,
			CurrentAction: f.CurrentAction,
		})
	}
	for _, b := range g.bullets {
		data.BulletStatuses = append(data.BulletStatuses, BulletStatus{
			ID:       b.ID,
			Position: b.Position,
			Rotation: b.Rotation,
		})
	}
	for _, o := range g.obstacles {
		data.ObstacleStatuses = append(data.ObstacleStatuses, ObstacleStatus{
			ID:       o.ID,
			Position: o.Position,
			Rotation: o.Rotation,
		})
	}
	return data
}
