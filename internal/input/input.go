// Package input turns a raw terminal key stream into game commands.
//
// Terminals report key repeats, not key releases, so turning and thrust
// count as held for a short window after the last repeat. Fire is edge
// triggered: one attempt per key press seen.
package input

import (
	"bufio"
	"time"
)

// keyHoldDuration is how long a key is considered "held" after its last press.
const keyHoldDuration = 80 * time.Millisecond

// Input represents the current frame's input state.
type Input struct {
	Quit    bool
	Left    bool
	Right   bool
	Thrust  bool
	Fire    bool // A fire key arrived since the previous read
	Pressed []byte
}

// Turn returns -1 for left, 1 for right and 0 when neither or both are held.
func (in Input) Turn() int {
	switch {
	case in.Left && !in.Right:
		return -1
	case in.Right && !in.Left:
		return 1
	}
	return 0
}

// keyState tracks the last time each held key was pressed.
type keyState struct {
	quit   time.Time
	left   time.Time
	right  time.Time
	thrust time.Time
}

// Stream delivers input bytes via a channel and tracks key state for combinations.
type Stream struct {
	ch     chan byte
	closed bool
	state  keyState
}

// StartStream spawns a goroutine that reads from r and sends bytes to the stream.
func StartStream(r *bufio.Reader) *Stream {
	s := &Stream{ch: make(chan byte, 128)}
	go func() {
		for {
			b, err := r.ReadByte()
			if err != nil {
				close(s.ch)
				return
			}
			s.ch <- b
		}
	}()
	return s
}

// Closed reports whether the underlying reader has ended.
func (s *Stream) Closed() bool {
	return s.closed
}

// ReadInput drains all available bytes from the stream (non-blocking).
func ReadInput(s *Stream) Input {
	var buf []byte
drain:
	for {
		select {
		case b, ok := <-s.ch:
			if !ok {
				s.closed = true
				break drain
			}
			buf = append(buf, b)
		default:
			break drain
		}
	}
	return parse(&s.state, buf, time.Now())
}

// parse applies buf to the key state and reports the input as of now.
// Arrow keys arrive as CSI sequences: ESC [ A..D.
func parse(state *keyState, buf []byte, now time.Time) Input {
	var fire bool
	for i := 0; i < len(buf); i++ {
		b := buf[i]
		if b == '\x1b' && i+2 < len(buf) && buf[i+1] == '[' {
			switch buf[i+2] {
			case 'A': // Up arrow
				state.thrust = now
				i += 2
				continue
			case 'C': // Right arrow
				state.right = now
				i += 2
				continue
			case 'D': // Left arrow
				state.left = now
				i += 2
				continue
			}
		}

		switch b {
		case 'q', 'Q', '\x03':
			state.quit = now
		case 'a', 'A', 'j', 'J':
			state.left = now
		case 'd', 'D', 'l', 'L':
			state.right = now
		case 'w', 'W', 'i', 'I':
			state.thrust = now
		case ' ', 'f', 'F':
			fire = true
		}
	}

	return Input{
		Quit:    held(state.quit, now),
		Left:    held(state.left, now),
		Right:   held(state.right, now),
		Thrust:  held(state.thrust, now),
		Fire:    fire,
		Pressed: buf,
	}
}

func held(last, now time.Time) bool {
	return !last.IsZero() && now.Sub(last) < keyHoldDuration
}
