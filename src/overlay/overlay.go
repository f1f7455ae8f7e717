package overlay

import (
	"fmt"

	"screen-clip/src/geometry"
)

// Drawer is the request layer under the overlay. Requests may be buffered
// until Flush returns.
type Drawer interface {
	// CopyBackground copies the full-screen backing pixmap onto the overlay window.
	CopyBackground() error
	// Rectangle queues a one-pixel-wide (or configured width) outline of r.
	Rectangle(r geometry.Rect) error
	// Flush blocks until every queued request has been processed by the server.
	Flush() error
}

// Controller keeps the visible outline in step with the selection. Every
// outline is drawn over a freshly restored background, so no trail is left.
// Use it only from the session goroutine.
type Controller struct {
	d Drawer
}

// NewController wraps d.
func NewController(d Drawer) *Controller {
	return &Controller{d: d}
}

// RestoreBackground erases any outline by copying the saved screen back, and
// returns once the copy has been flushed.
func (c *Controller) RestoreBackground() error {
	if err := c.d.CopyBackground(); err != nil {
		return fmt.Errorf("restore background: %w", err)
	}
	if err := c.d.Flush(); err != nil {
		return fmt.Errorf("flush background restore: %w", err)
	}
	return nil
}

// DrawOutline draws r and flushes. A zero-width or zero-height r draws nothing.
func (c *Controller) DrawOutline(r geometry.Rect) error {
	if r.Empty() {
		return nil
	}
	if err := c.d.Rectangle(r); err != nil {
		return fmt.Errorf("draw outline %v: %w", r, err)
	}
	if err := c.d.Flush(); err != nil {
		return fmt.Errorf("flush outline: %w", err)
	}
	return nil
}

// Redraw restores the background and then draws r.
func (c *Controller) Redraw(r geometry.Rect) error {
	if err := c.RestoreBackground(); err != nil {
		return err
	}
	return c.DrawOutline(r)
}
