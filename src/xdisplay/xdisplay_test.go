package xdisplay

import (
	"math"
	"os"
	"testing"

	"github.com/jezek/xgb"
	"github.com/jezek/xgb/xproto"
	"github.com/stretchr/testify/assert"

	"screen-clip/src/geometry"
	"screen-clip/src/messages"
)

func TestTranslate(t *testing.T) {
	tests := []struct {
		name string
		in   xgb.Event
		want messages.Message
	}{
		{"press", xproto.ButtonPressEvent{Detail: 1, EventX: 10, EventY: 20}, messages.ButtonPressed{Button: 1, X: 10, Y: 20}},
		{"release", xproto.ButtonReleaseEvent{Detail: 3, EventX: -4, EventY: 7}, messages.ButtonReleased{Button: 3, X: -4, Y: 7}},
		{"motion", xproto.MotionNotifyEvent{EventX: 300, EventY: 200}, messages.PointerMoved{X: 300, Y: 200}},
		{"key", xproto.KeyPressEvent{Detail: 0x18}, messages.KeyPressed{Keycode: 0x18}},
		{"other", xproto.ExposeEvent{}, messages.Ignored{Name: "xproto.ExposeEvent"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, translate(tt.in))
		})
	}
}

func TestFindKeycode(t *testing.T) {
	// Two keysyms per keycode starting at keycode 8.
	syms := []xproto.Keysym{
		0x61, 0x41, // 8: a A
		0x71, 0x51, // 9: q Q
		0xff1b, 0, // 10: Escape
	}

	kc, ok := findKeycode(syms, 2, 8, 0x71)
	assert.True(t, ok)
	assert.Equal(t, byte(9), kc)

	kc, ok = findKeycode(syms, 2, 8, 0x51)
	assert.True(t, ok)
	assert.Equal(t, byte(9), kc)

	kc, ok = findKeycode(syms, 2, 8, 0xff1b)
	assert.True(t, ok)
	assert.Equal(t, byte(10), kc)

	_, ok = findKeycode(syms, 2, 8, 0x7a)
	assert.False(t, ok)

	_, ok = findKeycode(syms, 0, 8, 0x71)
	assert.False(t, ok)
}

func TestCheckPixelFormat(t *testing.T) {
	formats := []xproto.Format{
		{Depth: 1, BitsPerPixel: 1, ScanlinePad: 32},
		{Depth: 16, BitsPerPixel: 16, ScanlinePad: 32},
		{Depth: 24, BitsPerPixel: 32, ScanlinePad: 32},
	}

	assert.NoError(t, checkPixelFormat(formats, xproto.ImageOrderLSBFirst, 24))
	assert.Error(t, checkPixelFormat(formats, xproto.ImageOrderMSBFirst, 24))
	assert.Error(t, checkPixelFormat(formats, xproto.ImageOrderLSBFirst, 16))
	assert.Error(t, checkPixelFormat(formats, xproto.ImageOrderLSBFirst, 30))
}

func TestToXRect(t *testing.T) {
	assert.Equal(t, xproto.Rectangle{X: 10, Y: 20, Width: 30, Height: 40},
		toXRect(geometry.Rect{X: 10, Y: 20, Width: 30, Height: 40}))
	assert.Equal(t, xproto.Rectangle{X: math.MinInt16, Y: math.MaxInt16, Width: 0, Height: math.MaxUint16},
		toXRect(geometry.Rect{X: -100000, Y: 100000, Width: -1, Height: 1 << 20}))
}

func TestOpenWithoutServer(t *testing.T) {
	if os.Getenv("DISPLAY") != "" {
		t.Skip("X server available; covered by manual runs")
	}
	_, err := Open(Options{DisplayName: ":99999"})
	assert.Error(t, err)
}
