package geometry

import "fmt"

// Point is a pointer position in overlay coordinates.
type Point struct {
	X int
	Y int
}

// Rect is the selection rectangle. Width and Height are never negative once
// produced by a Tracker; backward drags move the origin instead.
type Rect struct {
	X      int
	Y      int
	Width  int
	Height int
}

// Empty reports whether the rectangle covers no pixels.
func (r Rect) Empty() bool {
	return r.Width <= 0 || r.Height <= 0
}

// Area returns Width*Height, or 0 for an empty rectangle.
func (r Rect) Area() int {
	if r.Empty() {
		return 0
	}
	return r.Width * r.Height
}

// Clip returns the intersection of r with bounds. A rectangle that lies fully
// outside bounds comes back empty.
func (r Rect) Clip(bounds Rect) Rect {
	x0 := max(r.X, bounds.X)
	y0 := max(r.Y, bounds.Y)
	x1 := min(r.X+r.Width, bounds.X+bounds.Width)
	y1 := min(r.Y+r.Height, bounds.Y+bounds.Height)
	if x1 < x0 {
		x1 = x0
	}
	if y1 < y0 {
		y1 = y0
	}
	return Rect{X: x0, Y: y0, Width: x1 - x0, Height: y1 - y0}
}

func (r Rect) String() string {
	return fmt.Sprintf("%dx%d+%d+%d", r.Width, r.Height, r.X, r.Y)
}

// Tracker follows one pointer drag. The zero value is idle.
type Tracker struct {
	anchor   Point
	rect     Rect
	dragging bool
}

// Press starts a drag at (x, y): the anchor and origin move there and the size resets.
func (t *Tracker) Press(x, y int) {
	t.anchor = Point{X: x, Y: y}
	t.rect = Rect{X: x, Y: y}
	t.dragging = true
}

// Motion recomputes the rectangle for the pointer at (x, y). Each axis is
// reflected on its own when the pointer is behind the anchor.
func (t *Tracker) Motion(x, y int) {
	t.rect.X, t.rect.Width = span(t.anchor.X, x)
	t.rect.Y, t.rect.Height = span(t.anchor.Y, y)
}

func span(anchor, pos int) (origin, size int) {
	if pos < anchor {
		return pos, anchor - pos
	}
	return anchor, pos - anchor
}

// Rect returns the current selection.
func (t *Tracker) Rect() Rect { return t.rect }

// Anchor returns the point recorded by the last Press.
func (t *Tracker) Anchor() Point { return t.anchor }

// Dragging reports whether Press has been called.
func (t *Tracker) Dragging() bool { return t.dragging }
