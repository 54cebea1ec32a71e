package main

import (
	"math"
	"sort"
)

// roundPlayer is one participant's avatar for the current round. The
// geometry is snapshotted away from the registry so lobby churn cannot
// touch a running round; only the steering intent and the disconnected
// flag are read live from the session.
type roundPlayer struct {
	sess    *session
	name    string
	x, y    float64
	heading int
	alive   bool
}

func (p *roundPlayer) cell() (int, int) {
	return int(math.Floor(p.x)), int(math.Floor(p.y))
}

// Game owns the board occupancy grid, the deterministic PRNG and the
// append-only event log of the current round.
type Game struct {
	turningSpeed int
	width        int
	height       int
	rng          *lcg

	board      []bool
	players    []roundPlayer
	events     []Event
	gameID     uint32
	alive      int
	inProgress bool
}

func NewGame(o Options) *Game {
	return &Game{
		turningSpeed: o.TurningSpeed,
		width:        o.Width,
		height:       o.Height,
		rng:          newLCG(o.Seed),
	}
}

// ID returns the current round id.
func (g *Game) ID() uint32 { return g.gameID }

// InProgress reports whether a round is being played.
func (g *Game) InProgress() bool { return g.inProgress }

// EventCount returns the length of the current round's log.
func (g *Game) EventCount() int { return len(g.events) }

// EventsFrom returns the log suffix starting at event number n.
func (g *Game) EventsFrom(n uint32) []Event {
	if uint64(n) >= uint64(len(g.events)) {
		return nil
	}
	return g.events[n:]
}

func (g *Game) inBounds(x, y int) bool {
	return x >= 0 && y >= 0 && x < g.width && y < g.height
}

func (g *Game) painted(x, y int) bool {
	return g.board[y*g.width+x]
}

func (g *Game) paint(x, y int) {
	g.board[y*g.width+x] = true
}

func (g *Game) appendEvent(typ EventType) *Event {
	g.events = append(g.events, Event{Number: uint32(len(g.events)), Type: typ})
	return &g.events[len(g.events)-1]
}

// eliminate removes player i from the round. When one avatar remains
// the round is over and GAME_OVER closes the log.
func (g *Game) eliminate(i int) {
	p := &g.players[i]
	p.alive = false
	if p.sess.state == statePlaying {
		p.sess.state = stateEliminated
	}
	e := g.appendEvent(EventPlayerEliminated)
	e.Eliminated = EliminatedPayload{Player: uint8(i)}
	g.alive--
	if g.alive == 1 {
		g.appendEvent(EventGameOver)
		g.inProgress = false
	}
}

// Start snapshots the given sessions into a new round: fresh board and
// log, round id and initial positions drawn from the PRNG in a fixed
// order (id, then x, y, heading per participant in ascending name
// order). NEW_GAME is event 0, followed by one PIXEL or
// PLAYER_ELIMINATED per participant.
func (g *Game) Start(players []*session) {
	g.board = make([]bool, g.width*g.height)
	g.events = nil
	g.inProgress = true
	g.gameID = g.rng.next()

	sort.Slice(players, func(i, j int) bool { return players[i].name < players[j].name })

	g.players = make([]roundPlayer, len(players))
	g.alive = len(players)
	names := make([]string, len(players))
	for i, s := range players {
		g.players[i] = roundPlayer{
			sess:    s,
			name:    s.name,
			x:       float64(g.rng.next()%uint32(g.width)) + 0.5,
			y:       float64(g.rng.next()%uint32(g.height)) + 0.5,
			heading: int(g.rng.next() % 360),
			alive:   true,
		}
		names[i] = s.name
	}

	e := g.appendEvent(EventNewGame)
	e.NewGame = NewGamePayload{Width: uint32(g.width), Height: uint32(g.height), Names: names}

	for i := range g.players {
		p := &g.players[i]
		cx, cy := p.cell()
		if g.inBounds(cx, cy) && !g.painted(cx, cy) {
			g.paint(cx, cy)
			e := g.appendEvent(EventPixel)
			e.Pixel = PixelPayload{Player: uint8(i), X: uint32(cx), Y: uint32(cy)}
		} else {
			g.eliminate(i)
			if !g.inProgress {
				return
			}
		}
	}
}

// ProcessTurn advances every live avatar once and returns the index of
// the first event appended this turn. Disconnected participants keep
// their player index and are skipped.
func (g *Game) ProcessTurn() int {
	first := len(g.events)
	for i := range g.players {
		p := &g.players[i]
		if !p.alive || p.sess.state == stateDisconnected {
			continue
		}
		switch p.sess.lastKey {
		case dirRight:
			p.heading = (p.heading + g.turningSpeed) % 360
		case dirLeft:
			p.heading = ((p.heading-g.turningSpeed)%360 + 360) % 360
		}
		oldX, oldY := p.cell()
		theta := float64(p.heading) * math.Pi / 180
		p.x += math.Cos(theta)
		p.y += math.Sin(theta)
		cx, cy := p.cell()
		if cx == oldX && cy == oldY {
			continue
		}
		if g.inBounds(cx, cy) && !g.painted(cx, cy) {
			g.paint(cx, cy)
			e := g.appendEvent(EventPixel)
			e.Pixel = PixelPayload{Player: uint8(i), X: uint32(cx), Y: uint32(cy)}
		} else {
			g.eliminate(i)
			if !g.inProgress {
				break
			}
		}
	}
	return first
}
