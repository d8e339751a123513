package game

import (
	"math"
	"math/rand"
	"time"
)

// Paddle directions accepted by MovePaddle.
const (
	MoveUp   = "up"
	MoveDown = "down"
	MoveStop = "stop"
)

// Heading constraints for a freshly launched ball, as fractions of the base
// speed. Keeps trajectories away from nearly-horizontal and nearly-vertical.
const (
	minDXFraction = 0.3
	minDYFraction = 0.7
)

// EngineConfig carries the physics constants. All fields are explicit so a
// session can tune the simulation without touching the engine.
type EngineConfig struct {
	CanvasWidth  float64
	CanvasHeight float64
	Grid         float64
	PaddleHeight float64
	PaddleSpeed  float64
	BallSpeed    float64
	TargetScore  int
}

// DefaultEngineConfig returns the canonical constants: a 1000x600 canvas on
// a 15px grid, 75px paddles moving 6px per frame, a 5px-per-frame ball, and
// games played to 11 points.
func DefaultEngineConfig() EngineConfig {
	return EngineConfig{
		CanvasWidth:  1000,
		CanvasHeight: 600,
		Grid:         15,
		PaddleHeight: 75,
		PaddleSpeed:  6,
		BallSpeed:    5,
		TargetScore:  11,
	}
}

// Paddle is an axis-aligned box that only moves vertically.
type Paddle struct {
	X, Y float64
	W, H float64
	DY   float64
}

// Ball is an axis-aligned box with a velocity. Resetting suspends movement
// between a goal and the next launch.
type Ball struct {
	X, Y      float64
	W, H      float64
	DX, DY    float64
	Resetting bool
}

// Snapshot is the broadcastable slice of engine state.
type Snapshot struct {
	BallX  float32
	BallY  float32
	P1Y    float32
	P2Y    float32
	Score1 uint32
	Score2 uint32
}

// Engine is the authoritative Pong simulation. It is pure and single
// threaded: no I/O, no locks. The owner must serialize all calls and feed
// Update a monotonic clock.
type Engine struct {
	cfg       EngineConfig
	player1ID string
	player2ID string

	left  Paddle
	right Paddle
	ball  Ball

	score1 int
	score2 int

	lastUpdate float64
	primed     bool

	rng *rand.Rand
}

// NewEngine builds an engine for the two players. Player 1 owns the left
// paddle, player 2 the right. A nil rng falls back to a time-seeded source.
func NewEngine(cfg EngineConfig, player1ID, player2ID string, rng *rand.Rand) *Engine {
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	e := &Engine{
		cfg:       cfg,
		player1ID: player1ID,
		player2ID: player2ID,
		rng:       rng,
	}
	paddleY := (cfg.CanvasHeight - cfg.PaddleHeight) / 2
	e.left = Paddle{X: 2 * cfg.Grid, Y: paddleY, W: cfg.Grid, H: cfg.PaddleHeight}
	e.right = Paddle{X: cfg.CanvasWidth - 3*cfg.Grid, Y: paddleY, W: cfg.Grid, H: cfg.PaddleHeight}
	e.ball = Ball{X: cfg.CanvasWidth / 2, Y: cfg.CanvasHeight / 2, W: cfg.Grid, H: cfg.Grid}
	return e
}

// StartBall launches the ball from its current position with a random
// heading at base speed.
func (e *Engine) StartBall() {
	e.launch()
}

// ResetBall re-centers the ball and launches it with a fresh heading.
func (e *Engine) ResetBall() {
	e.ball.X = e.cfg.CanvasWidth / 2
	e.ball.Y = e.cfg.CanvasHeight / 2
	e.ball.Resetting = false
	e.launch()
}

// launch picks a heading with |dx| >= 0.3*speed and |dy| >= 0.7*speed whose
// magnitude is exactly the base speed.
func (e *Engine) launch() {
	maxDY := math.Sqrt(1 - minDXFraction*minDXFraction)
	dyFrac := minDYFraction + e.rng.Float64()*(maxDY-minDYFraction)
	dxFrac := math.Sqrt(1 - dyFrac*dyFrac)
	if e.rng.Intn(2) == 0 {
		dxFrac = -dxFrac
	}
	if e.rng.Intn(2) == 0 {
		dyFrac = -dyFrac
	}
	e.ball.DX = dxFrac * e.cfg.BallSpeed
	e.ball.DY = dyFrac * e.cfg.BallSpeed
}

// MovePaddle sets the vertical velocity of the addressed player's paddle.
// An unknown player id or direction is a no-op.
func (e *Engine) MovePaddle(playerID, dir string) {
	var paddle *Paddle
	switch playerID {
	case e.player1ID:
		paddle = &e.left
	case e.player2ID:
		paddle = &e.right
	default:
		return
	}
	switch dir {
	case MoveUp:
		paddle.DY = -e.cfg.PaddleSpeed
	case MoveDown:
		paddle.DY = e.cfg.PaddleSpeed
	case MoveStop:
		paddle.DY = 0
	}
}

// Update advances the simulation to now (seconds). Movement is scaled by the
// elapsed time against a nominal 60Hz frame, so tick jitter does not change
// speeds. Returns true once either score reaches the target.
func (e *Engine) Update(now float64) bool {
	if !e.primed {
		e.lastUpdate = now
		e.primed = true
	}
	step := (now - e.lastUpdate) * 60
	e.lastUpdate = now

	e.advancePaddle(&e.left, step)
	e.advancePaddle(&e.right, step)

	// Ball not launched yet: paddles may warm up, nothing else happens.
	if e.ball.DX == 0 && e.ball.DY == 0 {
		return false
	}

	if !e.ball.Resetting {
		e.ball.X += e.ball.DX * step
		e.ball.Y += e.ball.DY * step
	}

	// Top and bottom walls sit one grid cell inside the canvas.
	if e.ball.Y < e.cfg.Grid {
		e.ball.Y = e.cfg.Grid
		e.ball.DY = -e.ball.DY
	} else if e.ball.Y+e.ball.H > e.cfg.CanvasHeight-e.cfg.Grid {
		e.ball.Y = e.cfg.CanvasHeight - e.cfg.Grid - e.ball.H
		e.ball.DY = -e.ball.DY
	}

	if e.ball.X < 0 {
		e.score2++
		e.ResetBall()
	} else if e.ball.X > e.cfg.CanvasWidth {
		e.score1++
		e.ResetBall()
	}

	// Reflect off paddles and snap the ball to the paddle edge so a fast
	// ball cannot tunnel through on the next frame.
	if intersects(e.ball, e.left) {
		e.ball.DX = math.Abs(e.ball.DX)
		e.ball.X = e.left.X + e.left.W
	} else if intersects(e.ball, e.right) {
		e.ball.DX = -math.Abs(e.ball.DX)
		e.ball.X = e.right.X - e.ball.W
	}

	return e.score1 >= e.cfg.TargetScore || e.score2 >= e.cfg.TargetScore
}

func (e *Engine) advancePaddle(p *Paddle, step float64) {
	p.Y += p.DY * step
	maxY := e.cfg.CanvasHeight - e.cfg.Grid - p.H
	if p.Y < e.cfg.Grid {
		p.Y = e.cfg.Grid
	} else if p.Y > maxY {
		p.Y = maxY
	}
}

// intersects is the AABB overlap test.
func intersects(b Ball, p Paddle) bool {
	return b.X < p.X+p.W && b.X+b.W > p.X && b.Y < p.Y+p.H && b.Y+b.H > p.Y
}

// Winner reports the winning player id. When disconnectedID is non-empty the
// other player wins regardless of score; otherwise the player who reached
// the target score wins; otherwise "".
func (e *Engine) Winner(disconnectedID string) string {
	switch disconnectedID {
	case e.player1ID:
		return e.player2ID
	case e.player2ID:
		return e.player1ID
	}
	if e.score1 >= e.cfg.TargetScore {
		return e.player1ID
	}
	if e.score2 >= e.cfg.TargetScore {
		return e.player2ID
	}
	return ""
}

// Scores returns the current score pair.
func (e *Engine) Scores() (int, int) {
	return e.score1, e.score2
}

// Snapshot captures the broadcastable state.
func (e *Engine) Snapshot() Snapshot {
	return Snapshot{
		BallX:  float32(e.ball.X),
		BallY:  float32(e.ball.Y),
		P1Y:    float32(e.left.Y),
		P2Y:    float32(e.right.Y),
		Score1: uint32(e.score1),
		Score2: uint32(e.score2),
	}
}
