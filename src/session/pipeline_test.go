package session

import (
	"bytes"
	"context"
	"encoding/binary"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"screen-clip/src/geometry"
	"screen-clip/src/messages"
	"screen-clip/src/screenshot"
	"screen-clip/src/sink"
)

// solidSource returns every pixel as B=1, G=2, R=3 with a padding byte.
type solidSource struct {
	reads []geometry.Rect
}

func (s *solidSource) Readback(r geometry.Rect) ([]byte, error) {
	s.reads = append(s.reads, r)
	raw := make([]byte, 0, r.Width*r.Height*4)
	for i := 0; i < r.Width*r.Height; i++ {
		raw = append(raw, 1, 2, 3, 0xff)
	}
	return raw, nil
}

type clipboardCall struct {
	mime string
	path string
}

type recordingClipboard struct {
	calls []clipboardCall
}

func (c *recordingClipboard) SetImage(mimeType, path string) error {
	c.calls = append(c.calls, clipboardCall{mimeType, path})
	return nil
}

func TestBackwardDragWritesPNGAndSetsClipboard(t *testing.T) {
	dir := t.TempDir()
	tempPath := filepath.Join(dir, "clip.png")
	outPath := filepath.Join(dir, "out", "clip.png")

	src := &solidSource{}
	cb := &recordingClipboard{}
	surface := &recorder{}

	out, err := Execute(context.Background(), Options{
		Events: &scriptedEvents{events: []messages.Message{
			messages.ButtonPressed{Button: 1, X: 100, Y: 100},
			messages.PointerMoved{X: 50, Y: 80},
			messages.ButtonReleased{Button: 1, X: 50, Y: 80},
		}},
		Surface:       surface,
		Capturer:      screenshot.NewPipeline(src, png.DefaultCompression),
		Sink:          sink.New(tempPath, outPath, cb),
		Bounds:        geometry.Rect{Width: 1920, Height: 1080},
		CancelKeycode: cancelKey,
	})
	require.NoError(t, err)

	want := geometry.Rect{X: 50, Y: 80, Width: 50, Height: 20}
	assert.True(t, out.Captured)
	assert.Equal(t, want, out.Rect)
	assert.Equal(t, outPath, out.Path)
	assert.Equal(t, []geometry.Rect{want}, src.reads)

	data, err := os.ReadFile(outPath)
	require.NoError(t, err)

	// IHDR follows the 8-byte signature, 4-byte length and 4-byte type.
	require.Greater(t, len(data), 26)
	assert.Equal(t, uint32(50), binary.BigEndian.Uint32(data[16:20]))
	assert.Equal(t, uint32(20), binary.BigEndian.Uint32(data[20:24]))
	assert.Equal(t, byte(8), data[24], "bit depth")
	assert.Equal(t, byte(2), data[25], "colour type RGB")

	img, err := png.Decode(bytes.NewReader(data))
	require.NoError(t, err)
	assert.Equal(t, 50, img.Bounds().Dx())
	assert.Equal(t, 20, img.Bounds().Dy())
	r, g, b, _ := img.At(0, 0).RGBA()
	assert.Equal(t, []uint32{3, 2, 1}, []uint32{r >> 8, g >> 8, b >> 8})

	assert.Equal(t, []clipboardCall{{screenshot.MIMEType, outPath}}, cb.calls)

	_, err = os.Stat(tempPath)
	assert.True(t, os.IsNotExist(err), "temp file should be moved, stat err = %v", err)
}

func TestCancelMidDragWritesNothing(t *testing.T) {
	dir := t.TempDir()
	outPath := filepath.Join(dir, "clip.png")
	src := &solidSource{}
	cb := &recordingClipboard{}

	out, err := Execute(context.Background(), Options{
		Events: &scriptedEvents{events: []messages.Message{
			messages.ButtonPressed{Button: 1, X: 10, Y: 10},
			messages.PointerMoved{X: 60, Y: 60},
			messages.KeyPressed{Keycode: cancelKey},
		}},
		Surface:       &recorder{},
		Capturer:      screenshot.NewPipeline(src, png.DefaultCompression),
		Sink:          sink.New(filepath.Join(dir, "tmp.png"), outPath, cb),
		Bounds:        geometry.Rect{Width: 1920, Height: 1080},
		CancelKeycode: cancelKey,
	})
	require.NoError(t, err)

	assert.True(t, out.Cancelled)
	assert.Empty(t, src.reads)
	assert.Empty(t, cb.calls)
	_, err = os.Stat(outPath)
	assert.True(t, os.IsNotExist(err))
}
