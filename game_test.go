package main

import (
	"math"
	"testing"
	"time"
)

// addFighterAt places a fighter at a fixed position, bypassing random spawn.
func addFighterAt(g *Game, id int64, pos Vec3) *Fighter {
	f := NewFighter(id, pos)
	g.fighters[id] = f
	return f
}

func TestSetUserInputsUnknownFighterIsSilent(t *testing.T) {
	g := NewGame()
	g.SetUserInputs(99, KeyboardInputs{"w": true})
	if len(g.inputs) != 0 {
		t.Errorf("input for unknown fighter was buffered: %v", g.inputs)
	}
}

func TestCreateFighterActionsFromHeldKeys(t *testing.T) {
	g := NewGame()
	f := addFighterAt(g, 1, Vec3{Z: GroundZ})

	g.SetUserInputs(1, KeyboardInputs{"w": true, "a": true})
	g.CreateFighterActions()
	if len(g.actions) != 2 {
		t.Fatalf("got %d actions, want 2", len(g.actions))
	}

	g.Tick(10, time.Now())
	if math.Abs(f.Position.Y-0.8) > epsilon {
		t.Errorf("forward step Y = %v, want 0.8", f.Position.Y)
	}
	if math.Abs(f.Rotation.Z-0.03) > epsilon {
		t.Errorf("turn step Z = %v, want 0.03", f.Rotation.Z)
	}
}

func TestHeldShootKeyFiresOncePerCooldown(t *testing.T) {
	g := NewGame()
	addFighterAt(g, 1, Vec3{Z: GroundZ})
	g.SetUserInputs(1, KeyboardInputs{" ": true})

	now := time.Now()
	for i := 0; i < 50; i++ {
		g.CreateFighterActions()
		g.Tick(10, now.Add(time.Duration(i)*10*time.Millisecond))
	}
	// 50 ticks span 500ms; the held key may produce only the first shot.
	// The bullet flies off toward the stage edge but stays in bounds.
	if len(g.bullets) != 1 {
		t.Errorf("got %d bullets after 500ms of held trigger, want 1", len(g.bullets))
	}
}

func TestBulletHitDamagesAndScores(t *testing.T) {
	g := NewGame()
	shooter := addFighterAt(g, 1, Vec3{Z: GroundZ})
	victim := addFighterAt(g, 2, Vec3{Y: 21, Z: GroundZ})

	g.spawnBullet(shooter)
	g.Tick(10, time.Now())

	if victim.HP != FighterMaxHP-1 {
		t.Errorf("victim HP = %d, want %d", victim.HP, FighterMaxHP-1)
	}
	if shooter.Score != KillReward {
		t.Errorf("shooter score = %d, want %d", shooter.Score, KillReward)
	}
	if len(g.bullets) != 0 {
		t.Errorf("bullet survived the hit: %d live", len(g.bullets))
	}
}

func TestBulletNeverHitsItsOwner(t *testing.T) {
	g := NewGame()
	shooter := addFighterAt(g, 1, Vec3{Z: GroundZ})

	b := g.spawnBullet(shooter)
	b.Position = shooter.Position // worst case: direct overlap
	g.detectCollision()

	if shooter.HP != FighterMaxHP {
		t.Errorf("shooter damaged by own bullet: HP = %d", shooter.HP)
	}
}

func TestObstacleBlocksWithoutDamage(t *testing.T) {
	g := NewGame()
	safe := Vec3{X: 180, Y: 180, Z: GroundZ}
	f := addFighterAt(g, 1, safe)
	f.Position = Vec3{X: 200, Y: 195, Z: GroundZ} // inside the pillar's keep-out

	g.detectCollision()

	if f.Position != safe {
		t.Errorf("fighter not rolled back: at %+v, want %+v", f.Position, safe)
	}
	if f.HP != FighterMaxHP {
		t.Errorf("obstacle dealt damage: HP = %d", f.HP)
	}
}

func TestStageClampPerAxis(t *testing.T) {
	g := NewGame()
	f := addFighterAt(g, 1, Vec3{X: 500, Y: -500, Z: GroundZ})
	f.PreviousPosition = f.Position

	g.detectCollision()

	const bound = StageWidth/2 - FighterWidth/2
	if f.Position.X != bound || f.Position.Y != -bound {
		t.Errorf("clamped to %+v, want X=%v Y=%v", f.Position, bound, -bound)
	}

	// Clamping an already-clamped position is a no-op.
	g.detectCollision()
	if f.Position.X != bound || f.Position.Y != -bound {
		t.Errorf("second clamp moved fighter to %+v", f.Position)
	}
}

func TestBulletCulledOutOfBounds(t *testing.T) {
	g := NewGame()
	shooter := addFighterAt(g, 1, Vec3{Z: GroundZ})
	b := g.spawnBullet(shooter)
	b.Position = Vec3{X: 450, Z: GroundZ}

	g.detectCollision()
	if len(g.bullets) != 0 {
		t.Errorf("out-of-bounds bullet survived: %d live", len(g.bullets))
	}
}

func TestBulletCulledOnObstacle(t *testing.T) {
	g := NewGame()
	shooter := addFighterAt(g, 1, Vec3{Z: GroundZ})
	b := g.spawnBullet(shooter)
	b.Position = Vec3{X: 200, Y: 200, Z: GroundZ}

	g.detectCollision()
	if len(g.bullets) != 0 {
		t.Errorf("bullet inside obstacle survived: %d live", len(g.bullets))
	}
}

func TestDeadFighterStopsActing(t *testing.T) {
	g := NewGame()
	f := addFighterAt(g, 1, Vec3{Z: GroundZ})
	f.Damage(FighterMaxHP)

	g.Tick(10, time.Now())
	if !f.IsDead {
		t.Fatal("fighter with 0 HP not marked dead")
	}

	g.SetUserInputs(1, KeyboardInputs{"w": true})
	g.CreateFighterActions()
	if len(g.actions) != 0 {
		t.Errorf("dead fighter produced %d actions", len(g.actions))
	}
}

func TestRemoveFighterDropsPendingActions(t *testing.T) {
	g := NewGame()
	addFighterAt(g, 1, Vec3{Z: GroundZ})
	g.SetUserInputs(1, KeyboardInputs{"Shift": true})
	g.CreateFighterActions()
	if len(g.actions) != 1 {
		t.Fatalf("got %d actions, want 1", len(g.actions))
	}

	g.RemoveFighter(1)
	if len(g.actions) != 0 {
		t.Errorf("removed fighter left %d actions behind", len(g.actions))
	}
	if len(g.inputs) != 0 {
		t.Errorf("removed fighter left inputs behind")
	}
}

func TestFindEmptySpaceStaysInBounds(t *testing.T) {
	g := NewGame()
	const bound = StageWidth/2 - FighterWidth/2
	for i := 0; i < 100; i++ {
		p := g.FindEmptySpace()
		if p.X < -bound || p.X > bound || p.Y < -bound || p.Y > bound {
			t.Fatalf("spawn point out of bounds: %+v", p)
		}
		if p.Z != GroundZ {
			t.Fatalf("spawn point not grounded: Z = %v", p.Z)
		}
	}
}

func TestSnapshotOrderedByFighterID(t *testing.T) {
	g := NewGame()
	addFighterAt(g, 3, Vec3{Z: GroundZ})
	addFighterAt(g, 1, Vec3{X: 50, Z: GroundZ})
	addFighterAt(g, 2, Vec3{X: -50, Z: GroundZ})

	snap := g.Snapshot()
	if len(snap.FighterStatuses) != 3 {
		t.Fatalf("got %d fighters, want 3", len(snap.FighterStatuses))
	}
	for i, fs := range snap.FighterStatuses {
		if fs.ID != int64(i+1) {
			t.Errorf("fighter at index %d has ID %d", i, fs.ID)
		}
	}
	if len(snap.ObstacleStatuses) != 4 {
		t.Errorf("got %d obstacles, want 4", len(snap.ObstacleStatuses))
	}
}
