package main

import (
	"math"
	"testing"
	"time"
)

func TestNewBulletSpawnsAheadOfShooter(t *testing.T) {
	owner := NewFighter(1, Vec3{Z: GroundZ})
	b := NewBullet(1, owner)
	if b.OwnerID != owner.ID {
		t.Errorf("OwnerID = %d, want %d", b.OwnerID, owner.ID)
	}
	if math.Abs(b.Position.Y-BulletSpawnOffset) > epsilon {
		t.Errorf("spawn Y = %v, want %v", b.Position.Y, float64(BulletSpawnOffset))
	}
}

func TestBulletMovesConstantDistancePerTick(t *testing.T) {
	owner := NewFighter(1, Vec3{Z: GroundZ})
	b := NewBullet(1, owner)
	start := b.Position
	b.Move()
	if math.Abs(b.Position.Y-start.Y-BulletSpeed) > epsilon {
		t.Errorf("bullet moved %v, want %v", b.Position.Y-start.Y, BulletSpeed)
	}
}

func TestCooldownElapsed(t *testing.T) {
	f := NewFighter(1, Vec3{})
	now := time.Now()
	f.StartCooldown(now)

	if !f.CoolingDown {
		t.Fatal("StartCooldown did not set CoolingDown")
	}
	if f.CooldownElapsed(now.Add(999 * time.Millisecond)) {
		t.Error("cooldown elapsed before the full second")
	}
	if !f.CooldownElapsed(now.Add(1001 * time.Millisecond)) {
		t.Error("cooldown not elapsed after the full second")
	}
}

func TestNewFighterDefaults(t *testing.T) {
	pos := Vec3{X: 10, Y: 20, Z: GroundZ}
	f := NewFighter(7, pos)
	if f.HP != FighterMaxHP {
		t.Errorf("HP = %d, want %d", f.HP, FighterMaxHP)
	}
	if f.CurrentAction != ActionIdle {
		t.Errorf("CurrentAction = %q, want %q", f.CurrentAction, ActionIdle)
	}
	if f.PreviousPosition != pos {
		t.Errorf("PreviousPosition = %+v, want %+v", f.PreviousPosition, pos)
	}
}

func TestDefaultObstaclesLayout(t *testing.T) {
	obstacles := DefaultObstacles()
	if len(obstacles) != 4 {
		t.Fatalf("got %d obstacles, want 4", len(obstacles))
	}
	const d = StageWidth / 4
	for _, o := range obstacles {
		if math.Abs(math.Abs(o.Position.X)-d) > epsilon || math.Abs(math.Abs(o.Position.Y)-d) > epsilon {
			t.Errorf("obstacle %d at %+v, want corners at ±%v", o.ID, o.Position, d)
		}
	}
}
