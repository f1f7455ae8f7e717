package session

import (
	"context"
	"errors"
	"fmt"
	"log"

	"screen-clip/src/geometry"
	"screen-clip/src/messages"
	"screen-clip/src/screenshot"
)

var (
	// ErrSelectionCancelled is reported by callers that treat a cancel key as a failure.
	ErrSelectionCancelled = errors.New("selection cancelled")
	// ErrTransport marks faults while waiting for input; the display connection is unusable afterwards.
	ErrTransport = errors.New("display transport fault")
)

// State is the phase of one capture session.
type State int

const (
	StateIdle State = iota
	StateDragging
	StateFinalizing
	StateTerminated
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateDragging:
		return "dragging"
	case StateFinalizing:
		return "finalizing"
	case StateTerminated:
		return "terminated"
	default:
		return "unknown"
	}
}

// EventSource blocks until the next input event arrives.
type EventSource interface {
	NextEvent() (messages.Message, error)
}

// Surface is the visible overlay.
type Surface interface {
	RestoreBackground() error
	DrawOutline(r geometry.Rect) error
}

// Capturer turns the final selection into an encoded image.
type Capturer interface {
	Capture(r geometry.Rect) (screenshot.Image, error)
}

// Sink stores the image and hands it to the clipboard, returning the stable path.
type Sink interface {
	Deliver(img screenshot.Image) (string, error)
}

type Options struct {
	Events   EventSource
	Surface  Surface
	Capturer Capturer
	Sink     Sink
	// Bounds is the screen area; the final selection is clipped to it.
	Bounds geometry.Rect
	// CancelKeycode ends the session without capturing.
	CancelKeycode byte
}

// Outcome describes how a session ended.
type Outcome struct {
	State     State
	Rect      geometry.Rect
	Captured  bool
	Cancelled bool
	// Empty is set when the final selection covered no pixels; nothing was written.
	Empty bool
	Path  string
}

// Loop is one capture session. It owns the selection and the state; nothing
// else may change either.
type Loop struct {
	opts    Options
	state   State
	tracker geometry.Tracker
	button  byte
	outcome Outcome
}

// New validates opts and returns an idle session.
func New(opts Options) (*Loop, error) {
	if opts.Events == nil {
		return nil, errors.New("Events is required")
	}
	if opts.Surface == nil {
		return nil, errors.New("Surface is required")
	}
	if opts.Capturer == nil {
		return nil, errors.New("Capturer is required")
	}
	if opts.Sink == nil {
		return nil, errors.New("Sink is required")
	}
	return &Loop{opts: opts}, nil
}

// Execute runs a whole session with opts.
func Execute(ctx context.Context, opts Options) (Outcome, error) {
	l, err := New(opts)
	if err != nil {
		return Outcome{}, err
	}
	return l.Run(ctx)
}

// State returns the current phase.
func (l *Loop) State() State { return l.state }

// Selection returns the current rectangle as tracked so far.
func (l *Loop) Selection() geometry.Rect { return l.tracker.Rect() }

// Run dispatches events until the session terminates. ctx is only checked
// between events; a blocked wait is not interrupted.
func (l *Loop) Run(ctx context.Context) (Outcome, error) {
	for l.state != StateTerminated {
		if err := ctx.Err(); err != nil {
			l.state = StateTerminated
			return l.finish(), err
		}

		msg, err := l.opts.Events.NextEvent()
		if err != nil {
			l.state = StateTerminated
			return l.finish(), fmt.Errorf("%w: %w", ErrTransport, err)
		}

		if err := l.handle(msg); err != nil {
			l.state = StateTerminated
			return l.finish(), err
		}
	}
	return l.finish(), nil
}

func (l *Loop) finish() Outcome {
	l.outcome.State = l.state
	return l.outcome
}

func (l *Loop) handle(msg messages.Message) error {
	switch m := msg.(type) {
	case messages.ButtonPressed:
		l.tracker.Press(m.X, m.Y)
		l.button = m.Button
		l.state = StateDragging
		log.Printf("session: drag started at (%d,%d) button=%d", m.X, m.Y, m.Button)
		return nil

	case messages.PointerMoved:
		if l.state != StateDragging {
			return nil
		}
		l.tracker.Motion(m.X, m.Y)
		if err := l.opts.Surface.RestoreBackground(); err != nil {
			return err
		}
		return l.opts.Surface.DrawOutline(l.tracker.Rect())

	case messages.ButtonReleased:
		if l.state != StateDragging || m.Button != l.button {
			return nil
		}
		l.tracker.Motion(m.X, m.Y)
		return l.finalize()

	case messages.KeyPressed:
		if m.Keycode != l.opts.CancelKeycode {
			return nil
		}
		log.Printf("session: cancelled in state %s", l.state)
		l.outcome.Cancelled = true
		l.state = StateTerminated
		return nil

	default:
		return nil
	}
}

func (l *Loop) finalize() error {
	if err := l.opts.Surface.RestoreBackground(); err != nil {
		return err
	}

	rect := l.tracker.Rect()
	if !l.opts.Bounds.Empty() {
		rect = rect.Clip(l.opts.Bounds)
	}
	l.outcome.Rect = rect

	if rect.Empty() {
		log.Printf("session: empty selection %v, nothing captured", rect)
		l.outcome.Empty = true
		l.state = StateTerminated
		return nil
	}

	l.state = StateFinalizing
	log.Printf("session: capturing %v", rect)
	img, err := l.opts.Capturer.Capture(rect)
	if err != nil {
		return fmt.Errorf("capture: %w", err)
	}

	path, err := l.opts.Sink.Deliver(img)
	if err != nil {
		return fmt.Errorf("deliver: %w", err)
	}

	l.outcome.Captured = true
	l.outcome.Path = path
	l.state = StateTerminated
	return nil
}
