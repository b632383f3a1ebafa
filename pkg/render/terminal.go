package render

import (
	"context"
	"fmt"

	uv "github.com/charmbracelet/ultraviolet"
)

// Draw converts the frame buffer to terminal cells and draws them on the
// screen. Each terminal row covers two frame rows using the upper half
// block, fg = top pixel, bg = bottom pixel.
func (fb *FrameBuffer) Draw(scr uv.Screen, area uv.Rectangle) {
	for row := area.Min.Y; row < area.Max.Y; row++ {
		topY := row * 2
		botY := topY + 1

		for col := area.Min.X; col < area.Max.X && col < fb.Width; col++ {
			cell := &uv.Cell{
				Content: "▀",
				Width:   1,
				Style: uv.Style{
					Fg: fb.ColorAt(col, topY),
					Bg: fb.ColorAt(col, botY),
				},
			}
			scr.SetCell(col, row, cell)
		}
	}
}

// TerminalPreview displays rendered frames in the terminal.
type TerminalPreview struct {
	term   *uv.Terminal
	width  int // Terminal columns
	height int // Terminal rows
}

// NewTerminalPreview takes over the current terminal in alt-screen mode.
func NewTerminalPreview() (*TerminalPreview, error) {
	term := uv.DefaultTerminal()

	width, height, err := term.GetSize()
	if err != nil {
		return nil, fmt.Errorf("get terminal size: %w", err)
	}
	if err := term.Start(); err != nil {
		return nil, fmt.Errorf("start terminal: %w", err)
	}

	term.EnterAltScreen()
	term.HideCursor()
	term.Resize(width, height)

	return &TerminalPreview{term: term, width: width, height: height}, nil
}

// FrameSize returns the pixel dimensions a frame buffer should use: one
// pixel per column, two pixels per row.
func (p *TerminalPreview) FrameSize() (int, int) {
	return p.width, p.height * 2
}

// Show draws fb and flushes it to the terminal.
func (p *TerminalPreview) Show(fb *FrameBuffer) error {
	fb.Draw(p.term, uv.Rect(0, 0, p.width, p.height))
	return p.term.Display()
}

// Events returns the terminal input event stream.
func (p *TerminalPreview) Events() <-chan uv.Event {
	return p.term.Events()
}

// Close restores the terminal.
func (p *TerminalPreview) Close() {
	p.term.ExitAltScreen()
	p.term.ShowCursor()
	p.term.Shutdown(context.Background()) //nolint:errcheck // best effort on exit
}
