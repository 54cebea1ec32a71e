package main

import (
	"net"
	"time"
)

// direction is a client's steering intent.
type direction uint8

const (
	dirStraight direction = 0
	dirRight    direction = 1
	dirLeft     direction = 2
	dirInvalid  direction = 3 // first out-of-range value
)

// sessionState tracks a client through the lobby/round lifecycle.
type sessionState uint8

const (
	stateWaiting sessionState = iota
	stateReady
	statePlaying
	stateObserving
	stateEliminated
	stateDisconnected
)

// endpoint identifies a client by network address. IPv4 peers are
// stored as IPv4-mapped IPv6 so the same peer always yields the same
// key.
type endpoint struct {
	addr [16]byte
	port uint16
}

func endpointFromUDP(a *net.UDPAddr) endpoint {
	var ep endpoint
	copy(ep.addr[:], a.IP.To16())
	ep.port = uint16(a.Port)
	return ep
}

func (ep endpoint) udpAddr() *net.UDPAddr {
	ip := make(net.IP, 16)
	copy(ip, ep.addr[:])
	return &net.UDPAddr{IP: ip, Port: int(ep.port)}
}

func (ep endpoint) String() string {
	return ep.udpAddr().String()
}

// session is the per-endpoint registry entry.
type session struct {
	id         uint64
	name       string
	lastKey    direction
	state      sessionState
	lastActive time.Time
}

// Registry tracks every client endpoint that has contacted the server.
// The activity queue holds endpoints oldest-first; the waiting list
// holds round candidates in order of first entry.
type Registry struct {
	sessions map[endpoint]*session
	queue    []endpoint
	waiting  []endpoint
}

func NewRegistry() *Registry {
	return &Registry{sessions: make(map[endpoint]*session)}
}

// Sweep marks sessions silent for DisconnectAfter as disconnected,
// oldest first. It runs before any other ingest work.
func (r *Registry) Sweep(now time.Time) {
	for len(r.queue) > 0 {
		ep := r.queue[0]
		s := r.sessions[ep]
		if now.Sub(s.lastActive) < DisconnectAfter {
			break
		}
		s.state = stateDisconnected
		r.queue = r.queue[1:]
		r.dropWaiting(ep)
	}
}

// touch refreshes a session's activity: remove from the queue, then
// append, so the queue stays ordered by last activity.
func (r *Registry) touch(ep endpoint, now time.Time) {
	r.sessions[ep].lastActive = now
	for i, q := range r.queue {
		if q == ep {
			r.queue = append(r.queue[:i], r.queue[i+1:]...)
			break
		}
	}
	r.queue = append(r.queue, ep)
}

func (r *Registry) dropWaiting(ep endpoint) {
	for i, w := range r.waiting {
		if w == ep {
			r.waiting = append(r.waiting[:i], r.waiting[i+1:]...)
			return
		}
	}
}

// nameTaken reports whether name is in use by a non-disconnected
// session on another endpoint.
func (r *Registry) nameTaken(name string, except endpoint) bool {
	for ep, s := range r.sessions {
		if ep == except || s.state == stateDisconnected {
			continue
		}
		if s.name == name {
			return true
		}
	}
	return false
}

// Ingest applies one decoded client message from ep. It returns the
// event number to replay from and whether a replay is due. Malformed
// or stale input is dropped without a reply.
func (r *Registry) Ingest(ep endpoint, m ClientMessage, now time.Time) (uint32, bool) {
	r.Sweep(now)
	if direction(m.TurnDirection) >= dirInvalid {
		return 0, false
	}

	s, known := r.sessions[ep]
	if !known {
		if m.PlayerName != "" && r.nameTaken(m.PlayerName, ep) {
			return 0, false
		}
		s = &session{
			id:         m.SessionID,
			name:       m.PlayerName,
			lastKey:    direction(m.TurnDirection),
			lastActive: now,
		}
		switch {
		case m.PlayerName == "":
			s.state = stateObserving
		case s.lastKey != dirStraight:
			s.state = stateReady
		default:
			s.state = stateWaiting
		}
		r.sessions[ep] = s
		r.queue = append(r.queue, ep)
		if s.state != stateObserving {
			r.waiting = append(r.waiting, ep)
		}
		return 0, false
	}

	r.touch(ep, now)
	switch {
	case m.SessionID < s.id:
		return 0, false

	case m.SessionID > s.id:
		// A fresh session reconnects on the same endpoint slot.
		if m.PlayerName != "" && m.PlayerName != s.name && r.nameTaken(m.PlayerName, ep) {
			return 0, false
		}
		prev := s.state
		s.id = m.SessionID
		s.name = m.PlayerName
		s.lastKey = direction(m.TurnDirection)
		switch {
		case m.PlayerName == "":
			s.state = stateObserving
			r.dropWaiting(ep)
		case prev == stateWaiting || prev == stateReady:
			s.state = stateWaiting
			if prev == stateReady || s.lastKey != dirStraight {
				s.state = stateReady
			}
		default:
			s.state = stateWaiting
			if s.lastKey != dirStraight {
				s.state = stateReady
			}
			r.waiting = append(r.waiting, ep)
		}

	default:
		if m.PlayerName != s.name {
			return 0, false
		}
		s.lastKey = direction(m.TurnDirection)
		if s.state == stateWaiting && s.lastKey != dirStraight {
			s.state = stateReady
		}
	}
	return m.NextExpected, true
}

// ReadyToStart reports whether a round may begin: at least MinPlayers
// candidates and every one of them ready.
func (r *Registry) ReadyToStart() bool {
	if len(r.waiting) < MinPlayers {
		return false
	}
	for _, ep := range r.waiting {
		if r.sessions[ep].state != stateReady {
			return false
		}
	}
	return true
}

// TakeWaiting removes and returns up to MaxPlayers round candidates in
// order of first entry, marking them as playing. Any surplus stays
// waiting for the next round.
func (r *Registry) TakeWaiting() []*session {
	n := len(r.waiting)
	if n > MaxPlayers {
		n = MaxPlayers
	}
	taken := make([]*session, 0, n)
	for _, ep := range r.waiting[:n] {
		s := r.sessions[ep]
		s.state = statePlaying
		taken = append(taken, s)
	}
	r.waiting = append(r.waiting[:0], r.waiting[n:]...)
	return taken
}

// Endpoints returns every live endpoint for broadcast fan-out.
func (r *Registry) Endpoints() []endpoint {
	eps := make([]endpoint, 0, len(r.sessions))
	for ep, s := range r.sessions {
		if s.state == stateDisconnected {
			continue
		}
		eps = append(eps, ep)
	}
	return eps
}
