package game

import (
	"math"
	"math/rand"
	"testing"
)

const tickSeconds = 1.0 / 60

// Helper to build an engine with a fixed seed so launches are reproducible.
func newTestEngine(seed int64) *Engine {
	return NewEngine(DefaultEngineConfig(), "p1", "p2", rand.New(rand.NewSource(seed)))
}

// Helper to run n ticks at the nominal 60Hz cadence starting from t=1s.
func runTicks(e *Engine, n int) bool {
	over := false
	now := 1.0
	e.Update(now) // prime the clock
	for i := 0; i < n; i++ {
		now += tickSeconds
		over = e.Update(now)
	}
	return over
}

func TestPaddleClampBounds(t *testing.T) {
	e := newTestEngine(1)

	// Hold both paddles at full speed long enough to cross the whole canvas
	e.MovePaddle("p1", MoveUp)
	e.MovePaddle("p2", MoveDown)
	runTicks(e, 200)

	if e.left.Y != 15 {
		t.Errorf("Left paddle should clamp at 15, got %.2f", e.left.Y)
	}
	maxY := 600.0 - 15 - 75
	if e.right.Y != maxY {
		t.Errorf("Right paddle should clamp at %.2f, got %.2f", maxY, e.right.Y)
	}
}

func TestBallIdleBeforeLaunch(t *testing.T) {
	e := newTestEngine(1)
	e.MovePaddle("p1", MoveDown)

	over := runTicks(e, 10)

	if over {
		t.Error("Game should not end before the ball is launched")
	}
	if e.ball.X != 500 || e.ball.Y != 300 {
		t.Errorf("Ball should stay centered before launch, got (%.2f, %.2f)", e.ball.X, e.ball.Y)
	}
	if e.left.Y == (600-75)/2.0 {
		t.Error("Paddles should move even before the ball is launched")
	}
}

func TestWallReflectionTop(t *testing.T) {
	e := newTestEngine(1)
	e.ball.X = 500
	e.ball.Y = 16
	e.ball.DX = 1
	e.ball.DY = -5

	runTicks(e, 1)

	if e.ball.Y != 15 {
		t.Errorf("Ball should snap to the top wall at 15, got %.2f", e.ball.Y)
	}
	if e.ball.DY <= 0 {
		t.Errorf("Ball dy should flip positive on the top wall, got %.2f", e.ball.DY)
	}
}

func TestWallReflectionBottom(t *testing.T) {
	e := newTestEngine(1)
	e.ball.X = 500
	e.ball.Y = 568
	e.ball.DX = 1
	e.ball.DY = 5

	runTicks(e, 1)

	// Bottom boundary: y + height may not pass canvasHeight - grid
	if e.ball.Y != 600-15-15 {
		t.Errorf("Ball should snap to the bottom wall at 570, got %.2f", e.ball.Y)
	}
	if e.ball.DY >= 0 {
		t.Errorf("Ball dy should flip negative on the bottom wall, got %.2f", e.ball.DY)
	}
}

func TestGoalScoresAndResets(t *testing.T) {
	e := newTestEngine(1)
	e.ball.X = 2
	e.ball.Y = 300
	e.ball.DX = -5
	e.ball.DY = 0

	runTicks(e, 1)

	s1, s2 := e.Scores()
	if s1 != 0 || s2 != 1 {
		t.Errorf("Left goal should score for player 2, got %d-%d", s1, s2)
	}
	if e.ball.X != 500 || e.ball.Y != 300 {
		t.Errorf("Ball should re-center after a goal, got (%.2f, %.2f)", e.ball.X, e.ball.Y)
	}
	if e.ball.DX == 0 && e.ball.DY == 0 {
		t.Error("Ball should relaunch after a goal")
	}
}

func TestPaddleCollisionReflectsAndSnaps(t *testing.T) {
	e := newTestEngine(1)
	// Ball one frame away from the left paddle, moving left
	e.ball.X = 48
	e.ball.Y = 300
	e.ball.DX = -5
	e.ball.DY = 0

	runTicks(e, 1)

	if e.ball.DX <= 0 {
		t.Errorf("Ball should reflect off the left paddle, dx=%.2f", e.ball.DX)
	}
	if e.ball.X != e.left.X+e.left.W {
		t.Errorf("Ball should snap to the left paddle edge at %.2f, got %.2f", e.left.X+e.left.W, e.ball.X)
	}
}

func TestScoreTransitionEndsGame(t *testing.T) {
	e := newTestEngine(1)
	e.score1 = 10
	e.ball.X = 998
	e.ball.Y = 300
	e.ball.DX = 5
	e.ball.DY = 0

	over := runTicks(e, 1)

	if !over {
		t.Error("Update should report game over once the target score is reached")
	}
	if s1, _ := e.Scores(); s1 != 11 {
		t.Errorf("Player 1 score should be 11, got %d", s1)
	}
	if e.Winner("") != "p1" {
		t.Errorf("Winner should be p1, got %q", e.Winner(""))
	}
}

func TestWinnerOnDisconnect(t *testing.T) {
	e := newTestEngine(1)

	if w := e.Winner("p1"); w != "p2" {
		t.Errorf("Opponent should win when p1 disconnects, got %q", w)
	}
	if w := e.Winner("p2"); w != "p1" {
		t.Errorf("Opponent should win when p2 disconnects, got %q", w)
	}
	if w := e.Winner(""); w != "" {
		t.Errorf("No winner expected in a live game, got %q", w)
	}
}

func TestMovePaddleUnknownPlayerIsNoOp(t *testing.T) {
	e := newTestEngine(1)
	e.MovePaddle("ghost", MoveUp)

	if e.left.DY != 0 || e.right.DY != 0 {
		t.Error("Unknown player id should not move any paddle")
	}
}

func TestLaunchHeadingConstraints(t *testing.T) {
	e := newTestEngine(42)
	speed := e.cfg.BallSpeed

	for i := 0; i < 500; i++ {
		e.StartBall()
		dx, dy := e.ball.DX, e.ball.DY
		if math.Abs(dx) < 0.3*speed-1e-9 {
			t.Fatalf("Launch %d: |dx|=%.4f below 0.3*speed", i, math.Abs(dx))
		}
		if math.Abs(dy) < 0.7*speed-1e-9 {
			t.Fatalf("Launch %d: |dy|=%.4f below 0.7*speed", i, math.Abs(dy))
		}
		mag := math.Sqrt(dx*dx + dy*dy)
		if math.Abs(mag-speed) > 1e-9 {
			t.Fatalf("Launch %d: speed %.6f, want %.6f", i, mag, speed)
		}
	}
}

func TestDeterminism(t *testing.T) {
	// Two engines with the same seed and the same inputs must agree exactly
	run := func() Snapshot {
		e := newTestEngine(7)
		e.StartBall()
		now := 1.0
		e.Update(now)
		for i := 0; i < 600; i++ {
			if i == 30 {
				e.MovePaddle("p1", MoveDown)
			}
			if i == 90 {
				e.MovePaddle("p2", MoveUp)
			}
			now += tickSeconds
			e.Update(now)
		}
		return e.Snapshot()
	}

	a, b := run(), run()
	if a != b {
		t.Errorf("Non-deterministic simulation: %+v vs %+v", a, b)
	}
}

func TestFrameRateIndependence(t *testing.T) {
	// One 2x timestep should cover the same distance as two 1x timesteps
	coarse := newTestEngine(3)
	fine := newTestEngine(3)
	for _, e := range []*Engine{coarse, fine} {
		e.ball.DX = 3
		e.ball.DY = 4
		e.Update(1.0)
	}

	coarse.Update(1.0 + 2*tickSeconds)
	fine.Update(1.0 + tickSeconds)
	fine.Update(1.0 + 2*tickSeconds)

	if math.Abs(coarse.ball.X-fine.ball.X) > 1e-9 || math.Abs(coarse.ball.Y-fine.ball.Y) > 1e-9 {
		t.Errorf("Timestep-dependent movement: coarse=(%.6f,%.6f) fine=(%.6f,%.6f)",
			coarse.ball.X, coarse.ball.Y, fine.ball.X, fine.ball.Y)
	}
}
