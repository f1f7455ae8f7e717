package xdisplay

import (
	"errors"
	"fmt"
	"log"
	"math"

	"github.com/jezek/xgb"
	"github.com/jezek/xgb/xproto"

	"screen-clip/src/geometry"
	"screen-clip/src/messages"
)

const (
	// DefaultCancelKeycode is "q" on evdev keyboard layouts.
	DefaultCancelKeycode = 0x18

	cursorFontName = "cursor"
	cursorGlyph    = 30
	cursorMask     = 31

	allPlanes = ^uint32(0)
)

// ErrConnectionClosed is returned by NextEvent when the server hung up.
var ErrConnectionClosed = errors.New("X connection closed")

type Options struct {
	// DisplayName is an X display such as ":0"; empty uses $DISPLAY.
	DisplayName string
	// LineWidth of the selection outline in pixels.
	LineWidth int
}

// Display is one capture overlay: a borderless full-screen window over a
// pixmap that holds the screen as it was before the overlay appeared.
type Display struct {
	conn   *xgb.Conn
	setup  *xproto.SetupInfo
	screen *xproto.ScreenInfo

	window xproto.Window
	pixmap xproto.Pixmap
	gc     xproto.Gcontext

	width  uint16
	height uint16
}

// Open connects to the X server and sets up the overlay. The keyboard is
// grabbed until Close.
func Open(opts Options) (*Display, error) {
	conn, err := xgb.NewConnDisplay(opts.DisplayName)
	if err != nil {
		return nil, fmt.Errorf("connect X server: %w", err)
	}

	d := &Display{conn: conn}
	if err := d.init(opts); err != nil {
		conn.Close()
		return nil, err
	}
	return d, nil
}

func (d *Display) init(opts Options) error {
	d.setup = xproto.Setup(d.conn)
	if d.setup == nil {
		return errors.New("xproto setup unavailable")
	}
	d.screen = d.setup.DefaultScreen(d.conn)
	if d.screen == nil {
		return errors.New("xproto screen unavailable")
	}
	d.width = d.screen.WidthInPixels
	d.height = d.screen.HeightInPixels

	if err := checkPixelFormat(d.setup.PixmapFormats, d.setup.ImageByteOrder, d.screen.RootDepth); err != nil {
		return err
	}

	var err error
	if d.window, err = xproto.NewWindowId(d.conn); err != nil {
		return fmt.Errorf("allocate window id: %w", err)
	}
	if d.pixmap, err = xproto.NewPixmapId(d.conn); err != nil {
		return fmt.Errorf("allocate pixmap id: %w", err)
	}
	if d.gc, err = xproto.NewGcontextId(d.conn); err != nil {
		return fmt.Errorf("allocate gc id: %w", err)
	}

	lineWidth := opts.LineWidth
	if lineWidth < 1 {
		lineWidth = 1
	}

	// Value lists are ordered by mask bit.
	err = xproto.CreateWindowChecked(d.conn, 0, d.window, d.screen.Root,
		0, 0, d.width, d.height, 0,
		xproto.WindowClassInputOutput, d.screen.RootVisual,
		xproto.CwOverrideRedirect|xproto.CwEventMask,
		[]uint32{
			1,
			xproto.EventMaskButton1Motion | xproto.EventMaskButtonPress |
				xproto.EventMaskButtonRelease | xproto.EventMaskKeyPress,
		}).Check()
	if err != nil {
		return fmt.Errorf("create overlay window: %w", err)
	}

	if err := d.defineCursor(); err != nil {
		return err
	}

	err = xproto.CreateGCChecked(d.conn, d.gc, xproto.Drawable(d.window),
		xproto.GcForeground|xproto.GcLineWidth|xproto.GcSubwindowMode|xproto.GcGraphicsExposures,
		[]uint32{d.screen.WhitePixel, uint32(lineWidth), xproto.SubwindowModeIncludeInferiors, 0}).Check()
	if err != nil {
		return fmt.Errorf("create graphics context: %w", err)
	}

	err = xproto.CreatePixmapChecked(d.conn, d.screen.RootDepth, d.pixmap,
		xproto.Drawable(d.screen.Root), d.width, d.height).Check()
	if err != nil {
		return fmt.Errorf("create backing pixmap: %w", err)
	}

	// Snapshot the screen before the overlay is mapped so the pixmap never
	// contains the overlay itself.
	xproto.CopyArea(d.conn, xproto.Drawable(d.screen.Root), xproto.Drawable(d.pixmap), d.gc,
		0, 0, 0, 0, d.width, d.height)
	if err := d.Flush(); err != nil {
		return fmt.Errorf("snapshot screen: %w", err)
	}

	grab, err := xproto.GrabKeyboard(d.conn, true, d.screen.Root, xproto.TimeCurrentTime,
		xproto.GrabModeAsync, xproto.GrabModeAsync).Reply()
	if err != nil {
		return fmt.Errorf("grab keyboard: %w", err)
	}
	if grab.Status != xproto.GrabStatusSuccess {
		log.Printf("xdisplay: keyboard grab refused (status %d), cancel key may not work", grab.Status)
	}

	if err := xproto.MapWindowChecked(d.conn, d.window).Check(); err != nil {
		return fmt.Errorf("map overlay window: %w", err)
	}
	if err := d.CopyBackground(); err != nil {
		return err
	}
	if err := d.Flush(); err != nil {
		return fmt.Errorf("paint overlay: %w", err)
	}

	log.Printf("xdisplay: overlay %dx%d depth=%d ready", d.width, d.height, d.screen.RootDepth)
	return nil
}

func (d *Display) defineCursor() error {
	fid, err := xproto.NewFontId(d.conn)
	if err != nil {
		return fmt.Errorf("allocate font id: %w", err)
	}
	cid, err := xproto.NewCursorId(d.conn)
	if err != nil {
		return fmt.Errorf("allocate cursor id: %w", err)
	}

	err = xproto.OpenFontChecked(d.conn, fid, uint16(len(cursorFontName)), cursorFontName).Check()
	if err != nil {
		return fmt.Errorf("open cursor font: %w", err)
	}
	err = xproto.CreateGlyphCursorChecked(d.conn, cid, fid, fid, cursorGlyph, cursorMask,
		0xffff, 0xffff, 0xffff, 0, 0, 0).Check()
	if err != nil {
		return fmt.Errorf("create cursor: %w", err)
	}
	xproto.CloseFont(d.conn, fid)

	err = xproto.ChangeWindowAttributesChecked(d.conn, d.window, xproto.CwCursor, []uint32{uint32(cid)}).Check()
	if err != nil {
		return fmt.Errorf("set cursor: %w", err)
	}
	return nil
}

// Bounds is the screen area in overlay coordinates.
func (d *Display) Bounds() geometry.Rect {
	return geometry.Rect{Width: int(d.width), Height: int(d.height)}
}

// CopyBackground queues a copy of the saved screen onto the overlay.
func (d *Display) CopyBackground() error {
	xproto.CopyArea(d.conn, xproto.Drawable(d.pixmap), xproto.Drawable(d.window), d.gc,
		0, 0, 0, 0, d.width, d.height)
	return nil
}

// Rectangle queues an outline of r on the overlay.
func (d *Display) Rectangle(r geometry.Rect) error {
	xproto.PolyRectangle(d.conn, xproto.Drawable(d.window), d.gc, []xproto.Rectangle{toXRect(r)})
	return nil
}

// Flush waits for a round trip, so every request sent before it has been
// processed. Errors from earlier unchecked requests arrive through NextEvent.
func (d *Display) Flush() error {
	if _, err := xproto.GetInputFocus(d.conn).Reply(); err != nil {
		return fmt.Errorf("flush: %w", err)
	}
	return nil
}

// Readback returns r from the saved screen as 32-bit B, G, R, padding pixels.
func (d *Display) Readback(r geometry.Rect) ([]byte, error) {
	xr := toXRect(r)
	reply, err := xproto.GetImage(d.conn, xproto.ImageFormatZPixmap, xproto.Drawable(d.pixmap),
		xr.X, xr.Y, xr.Width, xr.Height, allPlanes).Reply()
	if err != nil {
		return nil, fmt.Errorf("get image: %w", err)
	}
	return reply.Data, nil
}

// NextEvent blocks for the next input event.
func (d *Display) NextEvent() (messages.Message, error) {
	ev, xerr := d.conn.WaitForEvent()
	if xerr != nil {
		return nil, fmt.Errorf("protocol error: %w", xerr)
	}
	if ev == nil {
		return nil, ErrConnectionClosed
	}
	return translate(ev), nil
}

// Keycode finds the keycode that produces keysym in the current keyboard mapping.
func (d *Display) Keycode(keysym uint32) (byte, bool) {
	first, last := d.setup.MinKeycode, d.setup.MaxKeycode
	reply, err := xproto.GetKeyboardMapping(d.conn, first, byte(last-first)+1).Reply()
	if err != nil {
		log.Printf("xdisplay: keyboard mapping unavailable: %v", err)
		return 0, false
	}
	return findKeycode(reply.Keysyms, int(reply.KeysymsPerKeycode), byte(first), keysym)
}

// Close releases the overlay and the keyboard grab and closes the connection.
func (d *Display) Close() {
	xproto.UngrabKeyboard(d.conn, xproto.TimeCurrentTime)
	xproto.FreeGC(d.conn, d.gc)
	xproto.FreePixmap(d.conn, d.pixmap)
	xproto.DestroyWindow(d.conn, d.window)
	if err := d.Flush(); err != nil {
		log.Printf("xdisplay: close: %v", err)
	}
	d.conn.Close()
}

func translate(ev xgb.Event) messages.Message {
	switch e := ev.(type) {
	case xproto.ButtonPressEvent:
		return messages.ButtonPressed{Button: byte(e.Detail), X: int(e.EventX), Y: int(e.EventY)}
	case xproto.ButtonReleaseEvent:
		return messages.ButtonReleased{Button: byte(e.Detail), X: int(e.EventX), Y: int(e.EventY)}
	case xproto.MotionNotifyEvent:
		return messages.PointerMoved{X: int(e.EventX), Y: int(e.EventY)}
	case xproto.KeyPressEvent:
		return messages.KeyPressed{Keycode: byte(e.Detail)}
	default:
		return messages.Ignored{Name: fmt.Sprintf("%T", ev)}
	}
}

func findKeycode(syms []xproto.Keysym, perKeycode int, first byte, want uint32) (byte, bool) {
	if perKeycode <= 0 {
		return 0, false
	}
	for i, sym := range syms {
		if uint32(sym) == want {
			return first + byte(i/perKeycode), true
		}
	}
	return 0, false
}

// checkPixelFormat accepts only 32 bits per pixel, LSB-first images at depth,
// which is the B, G, R, padding layout the capture pipeline expects.
func checkPixelFormat(formats []xproto.Format, byteOrder byte, depth byte) error {
	if byteOrder != xproto.ImageOrderLSBFirst {
		return fmt.Errorf("unsupported image byte order %d", byteOrder)
	}
	for _, f := range formats {
		if f.Depth != depth {
			continue
		}
		if f.BitsPerPixel != 32 {
			return fmt.Errorf("unsupported pixel format: depth %d uses %d bits per pixel", depth, f.BitsPerPixel)
		}
		return nil
	}
	return fmt.Errorf("no pixmap format for depth %d", depth)
}

func toXRect(r geometry.Rect) xproto.Rectangle {
	return xproto.Rectangle{
		X:      clampInt16(r.X),
		Y:      clampInt16(r.Y),
		Width:  clampUint16(r.Width),
		Height: clampUint16(r.Height),
	}
}

func clampInt16(v int) int16 {
	if v > math.MaxInt16 {
		return math.MaxInt16
	}
	if v < math.MinInt16 {
		return math.MinInt16
	}
	return int16(v)
}

func clampUint16(v int) uint16 {
	if v > math.MaxUint16 {
		return math.MaxUint16
	}
	if v < 0 {
		return 0
	}
	return uint16(v)
}
