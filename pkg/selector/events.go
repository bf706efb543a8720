package selector

import (
	"fmt"

	"github.com/menta2k/image-eraser/pkg/geometry"
)

// Event types accepted by Apply.
const (
	EventClick  = "click"
	EventDown   = "down"
	EventMove   = "move"
	EventUp     = "up"
	EventLeave  = "leave"
	EventMode   = "mode"
	EventBrush  = "brush"
	EventClear  = "clear"
	EventResize = "resize"
	EventSubmit = "submit"
)

// Event is a serializable input event. Scripts and the HTTP API both feed
// sessions through this type.
type Event struct {
	Type   string  `json:"type" yaml:"type"`
	X      float64 `json:"x,omitempty" yaml:"x,omitempty"`
	Y      float64 `json:"y,omitempty" yaml:"y,omitempty"`
	Mode   string  `json:"mode,omitempty" yaml:"mode,omitempty"`
	Size   int     `json:"size,omitempty" yaml:"size,omitempty"`
	Width  int     `json:"width,omitempty" yaml:"width,omitempty"`
	Height int     `json:"height,omitempty" yaml:"height,omitempty"`
}

// Point returns the event position in display space.
func (e Event) Point() geometry.Point {
	return geometry.Pt(e.X, e.Y)
}

// Apply dispatches one event to the session.
func (s *Session) Apply(e Event) error {
	switch e.Type {
	case EventClick:
		s.Click(e.Point())
	case EventDown:
		s.Down(e.Point())
	case EventMove:
		s.Move(e.Point())
	case EventUp:
		s.Up()
	case EventLeave:
		s.Leave()
	case EventMode:
		m, err := ParseMode(e.Mode)
		if err != nil {
			return err
		}
		return s.SetMode(m)
	case EventBrush:
		s.SetBrushSize(e.Size)
	case EventClear:
		s.ClearMask()
	case EventResize:
		return s.Resize(geometry.Size{Width: e.Width, Height: e.Height})
	case EventSubmit:
		return s.Submit()
	default:
		return fmt.Errorf("unknown event type: %q", e.Type)
	}
	return nil
}

// ApplyAll dispatches events in order and stops at the first error.
func (s *Session) ApplyAll(events []Event) error {
	for i, e := range events {
		if err := s.Apply(e); err != nil {
			return fmt.Errorf("event %d (%s): %w", i, e.Type, err)
		}
	}
	return nil
}
