package input

import (
	"bufio"
	"strings"
	"testing"
	"time"
)

func TestParseKeys(t *testing.T) {
	now := time.Now()
	tests := []struct {
		name string
		keys string
		want Input
	}{
		{"left", "a", Input{Left: true}},
		{"right arrow", "\x1b[C", Input{Right: true}},
		{"thrust arrow", "\x1b[A", Input{Thrust: true}},
		{"fire", " ", Input{Fire: true}},
		{"combo", "wdf", Input{Thrust: true, Right: true, Fire: true}},
		{"quit", "q", Input{Quit: true}},
		{"ctrl-c", "\x03", Input{Quit: true}},
		{"ignored", "xyz", Input{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var st keyState
			got := parse(&st, []byte(tt.keys), now)
			if keys(got) != keys(tt.want) {
				t.Fatalf("got %+v want %+v", got, tt.want)
			}
		})
	}
}

type keySet struct {
	quit, left, right, thrust, fire bool
}

func keys(in Input) keySet {
	return keySet{in.Quit, in.Left, in.Right, in.Thrust, in.Fire}
}

func TestHeldKeysExpire(t *testing.T) {
	var st keyState
	now := time.Now()
	parse(&st, []byte("w"), now)

	if in := parse(&st, nil, now.Add(keyHoldDuration/2)); !in.Thrust {
		t.Fatal("thrust released too early")
	}
	if in := parse(&st, nil, now.Add(keyHoldDuration)); in.Thrust {
		t.Fatal("thrust still held after hold window")
	}
}

func TestFireIsEdgeTriggered(t *testing.T) {
	var st keyState
	now := time.Now()
	if in := parse(&st, []byte(" "), now); !in.Fire {
		t.Fatal("fire not reported")
	}
	if in := parse(&st, nil, now.Add(time.Millisecond)); in.Fire {
		t.Fatal("fire repeated without a key press")
	}
}

func TestTurn(t *testing.T) {
	tests := []struct {
		in   Input
		want int
	}{
		{Input{}, 0},
		{Input{Left: true}, -1},
		{Input{Right: true}, 1},
		{Input{Left: true, Right: true}, 0},
	}
	for _, tt := range tests {
		if got := tt.in.Turn(); got != tt.want {
			t.Errorf("%+v: got %d want %d", tt.in, got, tt.want)
		}
	}
}

func TestStreamClosesAtEOF(t *testing.T) {
	s := StartStream(bufio.NewReader(strings.NewReader("d")))
	deadline := time.Now().Add(2 * time.Second)
	var pressed []byte
	for !s.Closed() {
		if time.Now().After(deadline) {
			t.Fatal("stream never closed")
		}
		pressed = append(pressed, ReadInput(s).Pressed...)
		time.Sleep(time.Millisecond)
	}
	if string(pressed) != "d" {
		t.Fatalf("pressed: got %q want %q", pressed, "d")
	}
}
