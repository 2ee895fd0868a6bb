// Package client is the thin terminal client: it mirrors the server's world,
// shows a text HUD and turns key presses into command batches.
package client

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"time"

	"github.com/tomz197/spacewars/internal/draw"
	"github.com/tomz197/spacewars/internal/input"
	"github.com/tomz197/spacewars/internal/loop/config"
)

// leaderRows is how many ships the HUD scoreboard lists.
const leaderRows = 5

// Client drives one Session from a keyboard and draws its HUD.
type Client struct {
	session     *Session
	state       *ClientState
	chunkWriter *draw.ChunkWriter
	writer      io.Writer
	inputStream *input.Stream
	termSize    draw.TermSizeFunc
	prevState   GameState
}

// ClientOptions configures the client.
type ClientOptions struct {
	TermSizeFunc draw.TermSizeFunc
}

// NewClient creates a client for an already started session.
func NewClient(session *Session, r *bufio.Reader, w io.Writer, opts ClientOptions) *Client {
	termSize := opts.TermSizeFunc
	if termSize == nil {
		termSize = draw.DefaultTermSizeFunc
	}
	return &Client{
		session:     session,
		state:       NewClientState(),
		chunkWriter: draw.NewChunkWriter(w),
		writer:      w,
		inputStream: input.StartStream(r),
		termSize:    termSize,
		prevState:   -1,
	}
}

// Run sends one command batch per tick and redraws the HUD until the user
// quits, the keyboard closes or the session ends.
func (c *Client) Run(ctx context.Context) error {
	draw.HideCursor(c.writer)
	defer draw.ShowCursor(c.writer)
	draw.ClearScreen(c.writer)

	ticker := time.NewTicker(config.ClientTargetFrameTime)
	defer ticker.Stop()

	for c.state.Running {
		c.processInput()
		c.state.refresh(c.session, leaderRows)

		if err := c.drawFrame(); err != nil {
			return err
		}
		if c.state.GameState == GameStateDisconnected {
			break
		}

		select {
		case <-ctx.Done():
			c.state.Running = false
		case <-ticker.C:
		}
	}

	c.session.Close()
	return c.session.Err()
}

// processInput reads keys and sends them to the server while joined.
func (c *Client) processInput() {
	in := input.ReadInput(c.inputStream)
	c.state.Input = in
	if in.Quit || c.inputStream.Closed() {
		c.state.Running = false
		return
	}
	if c.state.GameState != GameStatePlaying && c.state.GameState != GameStateDead {
		return
	}
	_ = c.session.SendCommands(in.Turn(), in.Thrust, in.Fire)
}

// drawFrame redraws the HUD; a full clear happens only on state changes.
func (c *Client) drawFrame() error {
	if width, _, err := c.termSize(); err == nil {
		c.chunkWriter.SetWidth(width)
	}
	if c.state.GameState != c.prevState {
		c.chunkWriter.WriteString("\033[H\033[2J")
		c.prevState = c.state.GameState
	}
	renderHUD(c.chunkWriter, c.state, c.session.ShipID(), c.session.WorldSize())
	return c.chunkWriter.Flush()
}

// renderHUD writes the status lines for st.
func renderHUD(cw *draw.ChunkWriter, st *ClientState, shipID, worldSize int) {
	switch st.GameState {
	case GameStateConnecting:
		cw.Line(1, "Connecting...")
		return
	case GameStateDisconnected:
		cw.Line(1, "Disconnected from server.")
		return
	}

	status := "ALIVE"
	if st.GameState == GameStateDead {
		status = "DESTROYED - respawning"
	}
	cw.Linef(1, "SPACEWARS  ship #%d  world %d  [%s]", shipID, worldSize, status)
	if st.HavePlayer {
		p := st.Player
		cw.Linef(2, "%s  hp %d  score %d  pos (%.0f, %.0f)  heading %.0f",
			p.Name, p.HP, p.Score, p.Location.X, p.Location.Y, p.Direction.ToAngle())
	} else {
		cw.Line(2, "waiting for first update")
	}
	cw.Linef(3, "ships %d  shots %d  stars %d", st.Ships, st.Projectiles, st.Stars)
	cw.Line(4, "a/d or arrows: turn   w/up: thrust   space: fire   q: quit")

	cw.Line(6, "TOP SCORES")
	row := 7
	for i, s := range st.Leaders {
		marker := " "
		if s.ID == shipID {
			marker = "*"
		}
		cw.Line(row, fmt.Sprintf("%s%d. %-20s %4d", marker, i+1, s.Name, s.Score))
		row++
	}
	cw.ClearBelow(row)
}
