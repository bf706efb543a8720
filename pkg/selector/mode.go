package selector

import (
	"fmt"
	"strings"

	"github.com/menta2k/image-eraser/pkg/geometry"
)

// Mode decides what pointer input means.
type Mode int

const (
	// ModeAuto routes clicks to detection hit testing.
	ModeAuto Mode = iota
	// ModeManual routes drags to the brush.
	ModeManual
)

func (m Mode) String() string {
	switch m {
	case ModeAuto:
		return "auto"
	case ModeManual:
		return "manual"
	default:
		return fmt.Sprintf("mode(%d)", int(m))
	}
}

// ParseMode maps "auto" or "manual" to a Mode.
func ParseMode(name string) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "auto":
		return ModeAuto, nil
	case "manual":
		return ModeManual, nil
	default:
		return 0, fmt.Errorf("unknown mode: %q", name)
	}
}

// handlers is the per-mode routing table. A nil entry ignores the event.
type handlers struct {
	enter  func()
	click  func(p geometry.Point)
	down   func(p geometry.Point)
	move   func(p geometry.Point)
	up     func()
	submit func() error
}

func (s *Session) buildHandlers() map[Mode]handlers {
	return map[Mode]handlers{
		ModeAuto: {
			enter:  s.enterAuto,
			click:  s.selectAt,
			submit: func() error { return ErrWrongMode },
		},
		ModeManual: {
			enter:  s.enterManual,
			down:   func(p geometry.Point) { s.painter.Down(p) },
			move:   func(p geometry.Point) { s.painter.Move(p) },
			up:     func() { s.painter.Up() },
			submit: s.submitMask,
		},
	}
}
