package screenshot

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"io"
	"log"
	"strings"

	"github.com/kbinani/screenshot"

	"screen-clip/src/geometry"
)

// MIMEType is the container type handed to the clipboard.
const MIMEType = "image/png"

const (
	rawPixelSize = 4 // B, G, R, padding
	pixelSize    = 3 // R, G, B

	// PNG signature (8) plus the IHDR chunk (4 length + 4 type + 13 data + 4 crc).
	pngHeaderLen = 33
)

var (
	// ErrTruncated is returned when a readback holds fewer than 4*w*h bytes.
	ErrTruncated = errors.New("truncated capture")
	// ErrPixelLength is returned when an RGB buffer is not exactly 3*w*h bytes.
	ErrPixelLength = errors.New("pixel buffer length does not match image size")
	// ErrEmptyRegion is returned for a zero-area capture request.
	ErrEmptyRegion = errors.New("empty capture region")
)

// Image is an encoded capture.
type Image struct {
	Width  int
	Height int
	Data   []byte
}

// Source reads raw pixels back from the untouched screen copy. The returned
// buffer is 4 bytes per pixel in B, G, R, padding order.
type Source interface {
	Readback(r geometry.Rect) ([]byte, error)
}

// EncodeError reports a failed PNG write. Phase is "header" when nothing past
// the IHDR chunk was written, "data" otherwise.
type EncodeError struct {
	Phase string
	Err   error
}

func (e *EncodeError) Error() string {
	if e.Phase == "header" {
		return fmt.Sprintf("failed to write image header: %v", e.Err)
	}
	return fmt.Sprintf("failed to write image data: %v", e.Err)
}

func (e *EncodeError) Unwrap() error { return e.Err }

// Pipeline turns a finalized selection into a PNG.
type Pipeline struct {
	source  Source
	encoder png.Encoder
}

// NewPipeline returns a pipeline reading from src.
func NewPipeline(src Source, level png.CompressionLevel) *Pipeline {
	return &Pipeline{source: src, encoder: png.Encoder{CompressionLevel: level}}
}

// Capture reads r back from the source, reorders the channels and encodes the result.
func (p *Pipeline) Capture(r geometry.Rect) (Image, error) {
	if r.Empty() {
		return Image{}, fmt.Errorf("capture %v: %w", r, ErrEmptyRegion)
	}

	raw, err := p.source.Readback(r)
	if err != nil {
		return Image{}, fmt.Errorf("readback %v: %w", r, err)
	}

	pix, err := ConvertBGRX(raw, r.Width, r.Height)
	if err != nil {
		return Image{}, err
	}

	var buf bytes.Buffer
	if err := encodeTo(&p.encoder, &buf, pix, r.Width, r.Height); err != nil {
		return Image{}, err
	}
	log.Printf("screenshot: encoded %dx%d region into %d bytes", r.Width, r.Height, buf.Len())

	return Image{Width: r.Width, Height: r.Height, Data: buf.Bytes()}, nil
}

// ConvertBGRX converts a 4-byte B, G, R, padding buffer into a 3-byte R, G, B
// buffer of exactly width*height pixels. Extra trailing bytes are ignored.
func ConvertBGRX(raw []byte, width, height int) ([]byte, error) {
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("convert %dx%d: %w", width, height, ErrEmptyRegion)
	}
	n := width * height
	if len(raw) < n*rawPixelSize {
		return nil, fmt.Errorf("%w: have %d bytes, need %d for %dx%d", ErrTruncated, len(raw), n*rawPixelSize, width, height)
	}

	dst := make([]byte, n*pixelSize)
	for s, d := 0, 0; d < len(dst); s, d = s+rawPixelSize, d+pixelSize {
		dst[d] = raw[s+2]
		dst[d+1] = raw[s+1]
		dst[d+2] = raw[s]
	}
	return dst, nil
}

// FromRGBA drops the alpha channel of img into a tightly packed R, G, B buffer.
func FromRGBA(img *image.RGBA) []byte {
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	dst := make([]byte, 0, w*h*pixelSize)
	for y := 0; y < h; y++ {
		row := img.Pix[y*img.Stride : y*img.Stride+w*4]
		for x := 0; x < w; x++ {
			dst = append(dst, row[x*4], row[x*4+1], row[x*4+2])
		}
	}
	return dst
}

// Encode writes pix as an 8-bit RGB PNG with default compression.
func Encode(pix []byte, width, height int) ([]byte, error) {
	var buf bytes.Buffer
	if err := EncodeTo(&buf, pix, width, height); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// EncodeTo writes pix as an 8-bit RGB PNG to w.
func EncodeTo(w io.Writer, pix []byte, width, height int) error {
	return encodeTo(&png.Encoder{}, w, pix, width, height)
}

func encodeTo(enc *png.Encoder, w io.Writer, pix []byte, width, height int) error {
	if width <= 0 || height <= 0 {
		return fmt.Errorf("encode %dx%d: %w", width, height, ErrEmptyRegion)
	}
	if len(pix) != width*height*pixelSize {
		return fmt.Errorf("encode %dx%d: %w (got %d bytes, want %d)", width, height, ErrPixelLength, len(pix), width*height*pixelSize)
	}

	cw := &countingWriter{w: w}
	img := &rgbImage{pix: pix, stride: width * pixelSize, rect: image.Rect(0, 0, width, height)}
	if err := enc.Encode(cw, img); err != nil {
		phase := "data"
		if cw.n < pngHeaderLen {
			phase = "header"
		}
		return &EncodeError{Phase: phase, Err: err}
	}
	return nil
}

type countingWriter struct {
	w io.Writer
	n int64
}

func (c *countingWriter) Write(p []byte) (int, error) {
	n, err := c.w.Write(p)
	c.n += int64(n)
	return n, err
}

// rgbImage is an opaque image over a packed R, G, B buffer. Being opaque makes
// image/png pick the 8-bit truecolor (no alpha) color type.
type rgbImage struct {
	pix    []byte
	stride int
	rect   image.Rectangle
}

func (m *rgbImage) ColorModel() color.Model { return color.RGBAModel }

func (m *rgbImage) Bounds() image.Rectangle { return m.rect }

func (m *rgbImage) At(x, y int) color.Color {
	if !(image.Point{X: x, Y: y}.In(m.rect)) {
		return color.RGBA{}
	}
	i := (y-m.rect.Min.Y)*m.stride + (x-m.rect.Min.X)*pixelSize
	return color.RGBA{R: m.pix[i], G: m.pix[i+1], B: m.pix[i+2], A: 0xff}
}

func (m *rgbImage) Opaque() bool { return true }

// CaptureDisplay grabs a whole display without any selection and encodes it
// the same way as a region capture.
func CaptureDisplay(index int, level png.CompressionLevel) (Image, error) {
	n := screenshot.NumActiveDisplays()
	if n == 0 {
		return Image{}, fmt.Errorf("no active displays found")
	}
	if index < 0 || index >= n {
		return Image{}, fmt.Errorf("display %d out of range (have %d)", index, n)
	}

	bounds := screenshot.GetDisplayBounds(index)
	img, err := screenshot.CaptureRect(bounds)
	if err != nil {
		return Image{}, fmt.Errorf("failed to capture display %d: %w", index, err)
	}

	w, h := bounds.Dx(), bounds.Dy()
	var buf bytes.Buffer
	if err := encodeTo(&png.Encoder{CompressionLevel: level}, &buf, FromRGBA(img), w, h); err != nil {
		return Image{}, err
	}
	return Image{Width: w, Height: h, Data: buf.Bytes()}, nil
}

// ParseCompression maps a config value to a PNG compression level.
// Unknown values fall back to the default level.
func ParseCompression(name string) png.CompressionLevel {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "none", "no":
		return png.NoCompression
	case "speed", "fast", "best-speed":
		return png.BestSpeed
	case "best", "best-compression":
		return png.BestCompression
	default:
		return png.DefaultCompression
	}
}
