package main

import (
	"bytes"
	"encoding/binary"
	"errors"
	"hash/crc32"
)

// Protocol: binary, big-endian, over UDP.
//
// Client → server datagram (13-33 bytes):
//   session_id (u64) | turn_direction (u8) | next_expected_event_no (u32) | player_name (0-20 bytes)
// player_name bytes must be printable ASCII in [33,126].
//
// Server → client datagram (≤ 550 bytes):
//   game_id (u32) | event | event | ...
// Each event is a framed record:
//   len (u32) | event_no (u32) | event_type (u8) | event_data | crc32 (u32)
// len counts event_no through event_data; crc32 is IEEE CRC-32 over the
// len..event_data bytes inclusive. Events are never split across datagrams.
//
// event_data per type:
//   NEW_GAME (0):          width (u32) | height (u32) | names, each NUL-terminated
//   PIXEL (1):             player_number (u8) | x (u32) | y (u32)
//   PLAYER_ELIMINATED (2): player_number (u8)
//   GAME_OVER (3):         (empty)

// EventType tags an event record on the wire.
type EventType uint8

const (
	EventNewGame          EventType = 0
	EventPixel            EventType = 1
	EventPlayerEliminated EventType = 2
	EventGameOver         EventType = 3
)

// Codec errors
var (
	errMalformedDatagram = errors.New("malformed datagram")
	errUnknownEventType  = errors.New("unknown event type")
	errBufferExhausted   = errors.New("buffer exhausted")
)

// NewGamePayload carries the board dimensions and participant names in
// broadcast order.
type NewGamePayload struct {
	Width  uint32
	Height uint32
	Names  []string
}

// PixelPayload marks a freshly painted cell.
type PixelPayload struct {
	Player uint8
	X      uint32
	Y      uint32
}

// EliminatedPayload names the player index that left the round.
type EliminatedPayload struct {
	Player uint8
}

// Event is one record of the round log, a tagged variant: only the
// payload matching Type is meaningful.
type Event struct {
	Number     uint32
	Type       EventType
	NewGame    NewGamePayload
	Pixel      PixelPayload
	Eliminated EliminatedPayload
}

func (e Event) dataSize() int {
	switch e.Type {
	case EventNewGame:
		n := 8
		for _, name := range e.NewGame.Names {
			n += len(name) + 1
		}
		return n
	case EventPixel:
		return 9
	case EventPlayerEliminated:
		return 1
	}
	return 0
}

// wireSize is the full framed size: len + event_no + type + data + crc.
func (e Event) wireSize() int {
	return 13 + e.dataSize()
}

// encode writes the framed event into buf and returns the number of
// bytes written.
func (e Event) encode(buf []byte) (int, error) {
	if len(buf) < e.wireSize() {
		return 0, errBufferExhausted
	}
	binary.BigEndian.PutUint32(buf[0:], uint32(5+e.dataSize()))
	binary.BigEndian.PutUint32(buf[4:], e.Number)
	buf[8] = byte(e.Type)
	off := 9
	switch e.Type {
	case EventNewGame:
		binary.BigEndian.PutUint32(buf[off:], e.NewGame.Width)
		binary.BigEndian.PutUint32(buf[off+4:], e.NewGame.Height)
		off += 8
		for _, name := range e.NewGame.Names {
			off += copy(buf[off:], name)
			buf[off] = 0
			off++
		}
	case EventPixel:
		buf[off] = e.Pixel.Player
		binary.BigEndian.PutUint32(buf[off+1:], e.Pixel.X)
		binary.BigEndian.PutUint32(buf[off+5:], e.Pixel.Y)
		off += 9
	case EventPlayerEliminated:
		buf[off] = e.Eliminated.Player
		off++
	case EventGameOver:
	default:
		return 0, errUnknownEventType
	}
	binary.BigEndian.PutUint32(buf[off:], crc32.ChecksumIEEE(buf[:off]))
	return off + 4, nil
}

// decodeEvent parses one framed event from the front of buf and
// returns it with the number of bytes consumed. The server never
// receives events; the decoder is the client-side counterpart and
// keeps the codec round-trip testable.
func decodeEvent(buf []byte) (Event, int, error) {
	if len(buf) < 13 {
		return Event{}, 0, errMalformedDatagram
	}
	length := binary.BigEndian.Uint32(buf)
	if length < 5 {
		return Event{}, 0, errMalformedDatagram
	}
	total := int(length) + 8
	if len(buf) < total {
		return Event{}, 0, errMalformedDatagram
	}
	if crc32.ChecksumIEEE(buf[:total-4]) != binary.BigEndian.Uint32(buf[total-4:]) {
		return Event{}, 0, errMalformedDatagram
	}
	e := Event{
		Number: binary.BigEndian.Uint32(buf[4:]),
		Type:   EventType(buf[8]),
	}
	data := buf[9 : total-4]
	switch e.Type {
	case EventNewGame:
		if len(data) < 8 {
			return Event{}, 0, errMalformedDatagram
		}
		e.NewGame.Width = binary.BigEndian.Uint32(data)
		e.NewGame.Height = binary.BigEndian.Uint32(data[4:])
		rest := data[8:]
		for len(rest) > 0 {
			i := bytes.IndexByte(rest, 0)
			if i < 0 {
				return Event{}, 0, errMalformedDatagram
			}
			e.NewGame.Names = append(e.NewGame.Names, string(rest[:i]))
			rest = rest[i+1:]
		}
	case EventPixel:
		if len(data) != 9 {
			return Event{}, 0, errMalformedDatagram
		}
		e.Pixel.Player = data[0]
		e.Pixel.X = binary.BigEndian.Uint32(data[1:])
		e.Pixel.Y = binary.BigEndian.Uint32(data[5:])
	case EventPlayerEliminated:
		if len(data) != 1 {
			return Event{}, 0, errMalformedDatagram
		}
		e.Eliminated.Player = data[0]
	case EventGameOver:
		if len(data) != 0 {
			return Event{}, 0, errMalformedDatagram
		}
	default:
		return Event{}, 0, errUnknownEventType
	}
	return e, total, nil
}

// ClientMessage is the decoded form of a client datagram.
type ClientMessage struct {
	SessionID     uint64
	TurnDirection uint8
	NextExpected  uint32
	PlayerName    string
}

// decodeClientMessage validates and decodes a raw client datagram.
func decodeClientMessage(buf []byte) (ClientMessage, error) {
	if len(buf) < MinClientMsgSize || len(buf) > MaxClientMsgSize {
		return ClientMessage{}, errMalformedDatagram
	}
	name := buf[13:]
	for _, c := range name {
		if c < 33 || c > 126 {
			return ClientMessage{}, errMalformedDatagram
		}
	}
	return ClientMessage{
		SessionID:     binary.BigEndian.Uint64(buf),
		TurnDirection: buf[8],
		NextExpected:  binary.BigEndian.Uint32(buf[9:]),
		PlayerName:    string(name),
	}, nil
}

// buildDatagrams packs events into datagrams of at most MaxDatagramSize
// bytes. Each datagram starts with the game id; an event that would not
// fit is deferred to the next datagram, never split. A final partially
// filled datagram is returned as-is.
func buildDatagrams(gameID uint32, events []Event) [][]byte {
	var datagrams [][]byte
	var cur []byte
	for _, e := range events {
		size := e.wireSize()
		if cur != nil && len(cur)+size > MaxDatagramSize {
			datagrams = append(datagrams, cur)
			cur = nil
		}
		if cur == nil {
			cur = make([]byte, 4, MaxDatagramSize)
			binary.BigEndian.PutUint32(cur, gameID)
		}
		n, err := e.encode(cur[len(cur):cap(cur)])
		if err != nil {
			// cannot happen for events with bounded names
			continue
		}
		cur = cur[:len(cur)+n]
	}
	if cur != nil {
		datagrams = append(datagrams, cur)
	}
	return datagrams
}
