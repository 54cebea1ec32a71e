package main

import (
	"errors"
	"log"
	"net"
	"time"
)

// Server ties the socket, the registry and the game together in one
// cooperative loop. All state is owned by that loop; nothing here is
// shared across goroutines.
type Server struct {
	conn     *net.UDPConn
	opts     Options
	registry *Registry
	game     *Game
	buf      []byte
}

func NewServer(conn *net.UDPConn, o Options) *Server {
	return &Server{
		conn:     conn,
		opts:     o,
		registry: NewRegistry(),
		game:     NewGame(o),
		buf:      make([]byte, 2*MaxDatagramSize),
	}
}

// Run drives the lobby/round loop. It blocks for the lifetime of the
// process and returns only if the socket is torn down under it.
func (s *Server) Run() error {
	turn := s.opts.TurnDuration()
	log.Printf("lobby open, %d turns/sec (%v per turn)", s.opts.RoundsPerSec, turn)
	for {
		// Lobby phase: block on the socket until enough players are ready.
		for !s.registry.ReadyToStart() {
			if err := s.receiveOne(time.Time{}); err != nil {
				return err
			}
		}

		players := s.registry.TakeWaiting()
		s.game.Start(players)
		log.Printf("round %d started with %d players", s.game.ID(), len(players))
		s.broadcastFrom(0)

		// Round phase: one iteration per turn, ingesting datagrams
		// until the turn deadline, then stepping the simulation.
		for s.game.InProgress() {
			deadline := time.Now().Add(turn)
			for time.Now().Before(deadline) {
				if err := s.receiveOne(deadline); err != nil {
					return err
				}
			}
			first := s.game.ProcessTurn()
			s.broadcastFrom(uint32(first))
		}
		log.Printf("round %d over after %d events", s.game.ID(), s.game.EventCount())
	}
}

// receiveOne waits for a single datagram and feeds it through the
// codec and the registry. A zero deadline blocks indefinitely. Only a
// torn-down socket is returned as an error; transient receive failures
// are logged and malformed datagrams dropped silently.
func (s *Server) receiveOne(deadline time.Time) error {
	if err := s.conn.SetReadDeadline(deadline); err != nil {
		return err
	}
	n, addr, err := s.conn.ReadFromUDP(s.buf)
	if err != nil {
		var ne net.Error
		if errors.As(err, &ne) && ne.Timeout() {
			return nil
		}
		if errors.Is(err, net.ErrClosed) {
			return err
		}
		log.Printf("recv error: %v", err)
		return nil
	}
	m, err := decodeClientMessage(s.buf[:n])
	if err != nil {
		return nil
	}
	ep := endpointFromUDP(addr)
	if from, replay := s.registry.Ingest(ep, m, time.Now()); replay {
		s.sendEvents(from, ep)
	}
	return nil
}

// sendEvents replays the log suffix starting at event number from to a
// single endpoint.
func (s *Server) sendEvents(from uint32, ep endpoint) {
	events := s.game.EventsFrom(from)
	if len(events) == 0 {
		return
	}
	addr := ep.udpAddr()
	for _, d := range buildDatagrams(s.game.ID(), events) {
		if _, err := s.conn.WriteToUDP(d, addr); err != nil {
			log.Printf("send error to %s: %v", ep, err)
		}
	}
}

// broadcastFrom sends every event appended since index from to every
// live endpoint in the registry, participant or not.
func (s *Server) broadcastFrom(from uint32) {
	events := s.game.EventsFrom(from)
	if len(events) == 0 {
		return
	}
	datagrams := buildDatagrams(s.game.ID(), events)
	for _, ep := range s.registry.Endpoints() {
		addr := ep.udpAddr()
		for _, d := range datagrams {
			if _, err := s.conn.WriteToUDP(d, addr); err != nil {
				log.Printf("send error to %s: %v", ep, err)
			}
		}
	}
}
