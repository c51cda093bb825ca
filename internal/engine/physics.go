package engine

import (
	"math"

	"pong/internal/config"
	"pong/internal/models"
)

const (
	sideLeft  = 0
	sideRight = 1

	paddleMargin = 10
	// Maximum deflection off a paddle face, measured from horizontal.
	maxBounceAngle = math.Pi / 4
)

type Paddle struct {
	X, Y     float64
	W, H     float64
	Up, Down bool
	Score    int
}

type Ball struct {
	X, Y   float64
	VX, VY float64
	R      float64
}

// GameState is the authoritative simulation state of one match. It is a plain
// value-mutating struct; the engine mutex guards all access.
type GameState struct {
	W, H        float64
	PaddleSpeed float64
	BallSpeed   float64
	Paddles     [2]Paddle
	Ball        Ball
}

func NewGameState(game config.Game) *GameState {
	g := &GameState{
		W:           game.CanvasW,
		H:           game.CanvasH,
		PaddleSpeed: game.PaddleSpeed,
		BallSpeed:   game.BallSpeed,
	}
	g.Paddles[sideLeft] = Paddle{X: paddleMargin, W: game.PaddleW, H: game.PaddleH}
	g.Paddles[sideRight] = Paddle{X: game.CanvasW - paddleMargin - game.PaddleW, W: game.PaddleW, H: game.PaddleH}
	g.Ball.R = game.BallRadius
	g.resetPositions()
	return g
}

// resetPositions restores the deterministic start layout, keeping scores.
func (g *GameState) resetPositions() {
	for i := range g.Paddles {
		g.Paddles[i].Y = (g.H - g.Paddles[i].H) / 2
		g.Paddles[i].Up = false
		g.Paddles[i].Down = false
	}
	g.Ball.X = g.W / 2
	g.Ball.Y = g.H / 2
	g.Ball.VX = g.BallSpeed
	g.Ball.VY = 0
}

func (g *GameState) setPaddleInput(side int, in models.PaddleInput) {
	g.Paddles[side].Up = in.Up
	g.Paddles[side].Down = in.Down
}

// Step advances the simulation by one tick and returns the index of the side
// that scored, or -1. Scoring already increments the side's score and resets
// positions, so the caller only has to run the win check.
func (g *GameState) Step() int {
	for i := range g.Paddles {
		p := &g.Paddles[i]
		if p.Up {
			p.Y -= g.PaddleSpeed
		}
		if p.Down {
			p.Y += g.PaddleSpeed
		}
		p.Y = clamp(p.Y, 0, g.H-p.H)
	}

	b := &g.Ball
	b.X += b.VX
	b.Y += b.VY

	// Top/bottom walls reflect, with the ball clamped back inside.
	if b.Y-b.R < 0 {
		b.Y = b.R
		b.VY = -b.VY
	}
	if b.Y+b.R > g.H {
		b.Y = g.H - b.R
		b.VY = -b.VY
	}

	left := &g.Paddles[sideLeft]
	if b.VX < 0 && g.overlaps(left) {
		b.X = left.X + left.W + b.R
		g.bounceOff(left, 1)
	}
	right := &g.Paddles[sideRight]
	if b.VX > 0 && g.overlaps(right) {
		b.X = right.X - b.R
		g.bounceOff(right, -1)
	}

	if b.X+b.R < 0 {
		g.Paddles[sideRight].Score++
		g.resetPositions()
		return sideRight
	}
	if b.X-b.R > g.W {
		g.Paddles[sideLeft].Score++
		g.resetPositions()
		return sideLeft
	}
	return -1
}

func (g *GameState) overlaps(p *Paddle) bool {
	b := &g.Ball
	return b.X-b.R <= p.X+p.W &&
		b.X+b.R >= p.X &&
		b.Y+b.R >= p.Y &&
		b.Y-b.R <= p.Y+p.H
}

// bounceOff reflects the ball horizontally and angles the return by where on
// the paddle it struck: contact offset maps linearly onto ±45° from the
// paddle center. Speed magnitude is preserved, so rallies never speed up.
func (g *GameState) bounceOff(p *Paddle, dir float64) {
	b := &g.Ball
	rel := clamp((b.Y-(p.Y+p.H/2))/(p.H/2), -1, 1)
	angle := rel * maxBounceAngle
	speed := math.Hypot(b.VX, b.VY)
	b.VX = dir * speed * math.Cos(angle)
	b.VY = speed * math.Sin(angle)
}

func (g *GameState) snapshot() models.GameSnapshot {
	var snap models.GameSnapshot
	for i := range g.Paddles {
		snap.Paddles[i] = models.PaddleSnapshot{
			X:     g.Paddles[i].X,
			Y:     g.Paddles[i].Y,
			Score: g.Paddles[i].Score,
		}
	}
	snap.Ball = models.BallSnapshot{
		X:  g.Ball.X,
		Y:  g.Ball.Y,
		VX: g.Ball.VX,
		VY: g.Ball.VY,
		R:  g.Ball.R,
	}
	return snap
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
