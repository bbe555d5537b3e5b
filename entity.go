package main

import (
	"math"
	"time"
)

const (
	StageWidth    = 800.0
	FighterWidth  = 10.0
	FighterDepth  = 10.0
	FighterHeight = 5.0

	// Ground offset: fighters rest with their center half a height above z=0.
	GroundZ = FighterHeight / 2

	FighterMaxHP    = 3
	KillReward      = 10
	MoveSpeed       = 80.0
	TurnSensitivity = 3.0
	JumpPower       = 10.0
	Gravity         = 9.8

	BulletSpeed       = 1.5 // stage units per tick
	BulletSpawnOffset = FighterDepth + 10
	ShootCooldown     = 1000 * time.Millisecond

	ObstacleRadius = 12.0
)

// FighterAction is the animation-facing action a fighter performed this tick.
type FighterAction string

const (
	ActionIdle   FighterAction = "idle"
	ActionMove   FighterAction = "move"
	ActionRotate FighterAction = "rotate"
	ActionJump   FighterAction = "jump"
	ActionAttack FighterAction = "attack1"
)

// FighterBulletRadius is the combined fighter/bullet collision radius on the
// ground plane.
var FighterBulletRadius = math.Sqrt((FighterDepth/2)*(FighterDepth/2) + (FighterHeight/2)*(FighterHeight/2))

// Fighter is the authoritative avatar for one user inside a match. Owned
// exclusively by that match's Game; the rest of the server only ever sees
// snapshots and the stable int64 ID.
type Fighter struct {
	ID               int64
	Position         Vec3
	PreviousPosition Vec3 // recorded before each move, for obstacle rollback
	Rotation         Vec3
	HP               int
	Score            int
	IsDead           bool
	CurrentAction    FighterAction
	JumpPower        float64
	IsJumping        bool
	CoolingDown      bool
	CooldownStart    time.Time
}

// NewFighter spawns a grounded fighter at the given position.
func NewFighter(id int64, position Vec3) *Fighter {
	return &Fighter{
		ID:               id,
		Position:         position,
		PreviousPosition: position,
		HP:               FighterMaxHP,
		CurrentAction:    ActionIdle,
		JumpPower:        JumpPower,
	}
}

// Damage reduces HP. Death bookkeeping happens in the engine's post-tick
// sweep so that HP and IsDead flip in the same tick for every observer.
func (f *Fighter) Damage(amount int) {
	f.HP -= amount
}

// StartCooldown flips the fighter into its ranged-attack cooldown.
func (f *Fighter) StartCooldown(now time.Time) {
	f.CoolingDown = true
	f.CooldownStart = now
}

// CooldownElapsed reports whether the fighter may shoot again.
func (f *Fighter) CooldownElapsed(now time.Time) bool {
	return now.Sub(f.CooldownStart) > ShootCooldown
}

// Bullet is a live projectile. Owner is a fighter ID, not a reference, so a
// fighter removed mid-match can never leave a dangling pointer here.
type Bullet struct {
	ID       int64
	OwnerID  int64
	Position Vec3
	Rotation Vec3
	Speed    float64
}

// NewBullet spawns a bullet offset from the shooter along its facing vector.
func NewBullet(id int64, owner *Fighter) *Bullet {
	offset := RotateVector3(Vec3{Y: BulletSpawnOffset}, owner.Rotation)
	return &Bullet{
		ID:       id,
		OwnerID:  owner.ID,
		Position: owner.Position.Add(offset),
		Rotation: owner.Rotation,
		Speed:    BulletSpeed,
	}
}

// Move advances the bullet one tick along its rotation-facing vector. The
// tick cadence is fixed, so bullet motion is a constant distance per tick.
func (b *Bullet) Move() {
	b.Position = b.Position.Add(RotateVector3(Vec3{Y: b.Speed}, b.Rotation))
}

// Obstacle is static stage geometry, immutable for the match lifetime.
type Obstacle struct {
	ID       int64
	Position Vec3
	Rotation Vec3
	Radius   float64
}

// DefaultObstacles returns the standard four-pillar stage layout.
func DefaultObstacles() []Obstacle {
	const d = StageWidth / 4
	return []Obstacle{
		{ID: 1, Position: Vec3{X: d, Y: d, Z: GroundZ}, Radius: ObstacleRadius},
		{ID: 2, Position: Vec3{X: -d, Y: d, Z: GroundZ}, Radius: ObstacleRadius},
		{ID: 3, Position: Vec3{X: -d, Y: -d, Z: GroundZ}, Radius: ObstacleRadius},
		{ID: 4, Position: Vec3{X: d, Y: -d, Z: GroundZ}, Radius: ObstacleRadius},
	}
}
