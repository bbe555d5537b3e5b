package main

import "time"

// ActionKind enumerates the closed set of fighter commands. There is no open
// subtyping: the engine dispatches on the kind, and every action completes
// exactly once.
type ActionKind int

const (
	KindMove ActionKind = iota
	KindRotate
	KindJump
	KindShoot
)

// Action is a transient state-mutating command built from one tick's input.
// All kinds complete on their first tick except Jump, which stays live until
// the fighter lands.
type Action struct {
	Kind      ActionKind
	Actor     *Fighter
	Completed bool

	vector   Vec3    // move translation / rotate delta, per millisecond
	velocity float64 // jump vertical velocity
}

// NewMoveAction translates the actor by vector scaled with elapsed time.
func NewMoveAction(actor *Fighter, vector Vec3) *Action {
	actor.CurrentAction = ActionMove
	return &Action{Kind: KindMove, Actor: actor, vector: vector}
}

// NewRotateAction increments the actor's rotation by delta scaled with
// elapsed time.
func NewRotateAction(actor *Fighter, delta Vec3) *Action {
	actor.CurrentAction = ActionRotate
	return &Action{Kind: KindRotate, Actor: actor, vector: delta}
}

// NewJumpAction launches the actor unless it is already airborne, in which
// case the action is a completed no-op.
func NewJumpAction(actor *Fighter) *Action {
	a := &Action{Kind: KindJump, Actor: actor}
	if actor.IsJumping {
		a.Completed = true
		return a
	}
	actor.CurrentAction = ActionJump
	actor.IsJumping = true
	a.velocity = actor.JumpPower
	return a
}

// NewShootAction fires the actor's ranged attack, gated by its cooldown.
func NewShootAction(actor *Fighter) *Action {
	actor.CurrentAction = ActionAttack
	return &Action{Kind: KindShoot, Actor: actor}
}

// Tick applies one step of the action. deltaMs is wall-clock milliseconds
// since the previous simulation tick.
func (a *Action) Tick(g *Game, deltaMs float64, now time.Time) {
	if a.Completed {
		return
	}
	switch a.Kind {
	case KindMove:
		a.Actor.PreviousPosition = a.Actor.Position
		a.Actor.Position = a.Actor.Position.Add(a.vector.Scale(deltaMs))
		a.Completed = true
	case KindRotate:
		a.Actor.Rotation = a.Actor.Rotation.Add(a.vector.Scale(deltaMs))
		a.Completed = true
	case KindJump:
		a.Actor.Position.Z += a.velocity * deltaMs * 0.01
		a.velocity -= deltaMs * 0.001 * Gravity
		if a.Actor.Position.Z <= GroundZ {
			a.Actor.Position.Z = GroundZ
			a.Actor.IsJumping = false
			a.Completed = true
		}
	case KindShoot:
		if !a.Actor.CoolingDown {
			g.spawnBullet(a.Actor)
			a.Actor.StartCooldown(now)
		}
		a.Completed = true
	}
}
