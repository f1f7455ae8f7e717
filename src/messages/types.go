package messages

// Message is the base interface for all input events delivered to a capture session.
type Message interface {
	Type() string
}

// MessageType constants for type identification
const (
	TypeButtonPressed  = "ButtonPressed"
	TypeButtonReleased = "ButtonReleased"
	TypePointerMoved   = "PointerMoved"
	TypeKeyPressed     = "KeyPressed"
	TypeIgnored        = "Ignored"
)

// ButtonPressed - a pointer button went down at (X, Y) on the overlay
type ButtonPressed struct {
	Button byte
	X      int
	Y      int
}

func (m ButtonPressed) Type() string { return TypeButtonPressed }

// ButtonReleased - a pointer button went up at (X, Y) on the overlay
type ButtonReleased struct {
	Button byte
	X      int
	Y      int
}

func (m ButtonReleased) Type() string { return TypeButtonReleased }

// PointerMoved - pointer motion with the first button held
type PointerMoved struct {
	X int
	Y int
}

func (m PointerMoved) Type() string { return TypePointerMoved }

// KeyPressed - a key went down while the keyboard is grabbed. Keycode is the
// server keycode, not a keysym.
type KeyPressed struct {
	Keycode byte
}

func (m KeyPressed) Type() string { return TypeKeyPressed }

// Ignored - any other event the display delivered; Name is for logging only
type Ignored struct {
	Name string
}

func (m Ignored) Type() string { return TypeIgnored }
