// Package protocol implements the SpaceWars wire format: a line-oriented
// join handshake followed by newline-delimited JSON entity updates from the
// server and newline-terminated command batches from the client.
//
// Framing is entirely by '\n'. A receiver keeps any trailing bytes that are
// not yet terminated and retries once more data arrives.
package protocol

import (
	"bytes"
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// Command characters sent by clients.
const (
	CmdLeft   byte = 'L'
	CmdRight  byte = 'R'
	CmdThrust byte = 'T'
	CmdFire   byte = 'F'
)

var (
	// ErrIncompleteHandshake means more bytes are needed before the handshake
	// can be decoded.
	ErrIncompleteHandshake = errors.New("protocol: incomplete handshake")
	// ErrBadHandshake means the handshake lines are not integers.
	ErrBadHandshake = errors.New("protocol: malformed handshake")
)

// SplitLines returns every complete line in buf without its terminator, and
// the number of bytes those lines occupied. Bytes after the last '\n' are not
// consumed. A trailing '\r' is trimmed from each line.
func SplitLines(buf []byte) (lines []string, consumed int) {
	for {
		i := bytes.IndexByte(buf[consumed:], '\n')
		if i < 0 {
			return lines, consumed
		}
		line := buf[consumed : consumed+i]
		line = bytes.TrimSuffix(line, []byte{'\r'})
		lines = append(lines, string(line))
		consumed += i + 1
	}
}

// EncodePlayerName returns the first handshake message a client sends.
// Line breaks inside name are dropped so the name cannot break framing.
func EncodePlayerName(name string) string {
	name = strings.NewReplacer("\n", "", "\r", "").Replace(name)
	return name + "\n"
}

// EncodeHandshake returns the server's reply to a join: the assigned ship id
// and the world size, one per line.
func EncodeHandshake(shipID, worldSize int) string {
	return strconv.Itoa(shipID) + "\n" + strconv.Itoa(worldSize) + "\n"
}

// DecodeHandshake parses the server's join reply from the front of buf.
// consumed is the number of bytes used when err is nil.
func DecodeHandshake(buf []byte) (shipID, worldSize, consumed int, err error) {
	first := bytes.IndexByte(buf, '\n')
	if first < 0 {
		return 0, 0, 0, ErrIncompleteHandshake
	}
	second := bytes.IndexByte(buf[first+1:], '\n')
	if second < 0 {
		return 0, 0, 0, ErrIncompleteHandshake
	}
	second += first + 1

	shipID, err = strconv.Atoi(strings.TrimSpace(string(buf[:first])))
	if err != nil {
		return 0, 0, 0, fmt.Errorf("%w: ship id: %v", ErrBadHandshake, err)
	}
	worldSize, err = strconv.Atoi(strings.TrimSpace(string(buf[first+1 : second])))
	if err != nil {
		return 0, 0, 0, fmt.Errorf("%w: world size: %v", ErrBadHandshake, err)
	}
	return shipID, worldSize, second + 1, nil
}

// ParseCommands splits a command line into the recognised command
// characters, in order. Unknown characters are counted and skipped.
func ParseCommands(line string) (cmds []byte, ignored int) {
	for i := 0; i < len(line); i++ {
		switch c := line[i]; c {
		case CmdLeft, CmdRight, CmdThrust, CmdFire:
			cmds = append(cmds, c)
		default:
			ignored++
		}
	}
	return cmds, ignored
}

// EncodeCommands builds one command batch. turn is -1 for left, 1 for right
// and 0 for none. An empty batch returns "".
func EncodeCommands(turn int, thrust, fire bool) string {
	var b strings.Builder
	switch {
	case turn > 0:
		b.WriteByte(CmdRight)
	case turn < 0:
		b.WriteByte(CmdLeft)
	}
	if thrust {
		b.WriteByte(CmdThrust)
	}
	if fire {
		b.WriteByte(CmdFire)
	}
	if b.Len() == 0 {
		return ""
	}
	b.WriteByte('\n')
	return b.String()
}
