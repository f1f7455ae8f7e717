package overlay

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"screen-clip/src/geometry"
)

// fakeDrawer models the server side: queued requests only reach the visible
// surface on Flush.
type fakeDrawer struct {
	calls   []string
	pending []func()
	visible []geometry.Rect // outlines currently on screen; empty after a restore

	copyErr  error
	flushErr error
}

func (f *fakeDrawer) CopyBackground() error {
	f.calls = append(f.calls, "copy")
	if f.copyErr != nil {
		return f.copyErr
	}
	f.pending = append(f.pending, func() { f.visible = nil })
	return nil
}

func (f *fakeDrawer) Rectangle(r geometry.Rect) error {
	f.calls = append(f.calls, "rect")
	f.pending = append(f.pending, func() { f.visible = append(f.visible, r) })
	return nil
}

func (f *fakeDrawer) Flush() error {
	f.calls = append(f.calls, "flush")
	if f.flushErr != nil {
		return f.flushErr
	}
	for _, p := range f.pending {
		p()
	}
	f.pending = nil
	return nil
}

func TestRedrawOrdering(t *testing.T) {
	d := &fakeDrawer{}
	c := NewController(d)

	require.NoError(t, c.Redraw(geometry.Rect{X: 1, Y: 2, Width: 3, Height: 4}))
	assert.Equal(t, []string{"copy", "flush", "rect", "flush"}, d.calls)
}

func TestRedrawIsIdempotent(t *testing.T) {
	r := geometry.Rect{X: 50, Y: 80, Width: 50, Height: 20}

	once := &fakeDrawer{}
	require.NoError(t, NewController(once).Redraw(r))

	twice := &fakeDrawer{}
	c := NewController(twice)
	require.NoError(t, c.Redraw(r))
	require.NoError(t, c.Redraw(r))

	assert.Equal(t, once.visible, twice.visible)
	assert.Equal(t, []geometry.Rect{r}, twice.visible)
}

func TestRedrawReplacesPreviousOutline(t *testing.T) {
	d := &fakeDrawer{}
	c := NewController(d)
	require.NoError(t, c.Redraw(geometry.Rect{Width: 10, Height: 10}))
	require.NoError(t, c.Redraw(geometry.Rect{Width: 20, Height: 5}))
	assert.Equal(t, []geometry.Rect{{Width: 20, Height: 5}}, d.visible)
}

func TestDrawOutlineDegenerate(t *testing.T) {
	d := &fakeDrawer{}
	c := NewController(d)

	require.NoError(t, c.DrawOutline(geometry.Rect{X: 5, Y: 5}))
	require.NoError(t, c.DrawOutline(geometry.Rect{X: 5, Y: 5, Width: 9}))
	assert.Empty(t, d.calls)
}

func TestRestoreErrorsStopDraw(t *testing.T) {
	d := &fakeDrawer{copyErr: errors.New("bad drawable")}
	err := NewController(d).Redraw(geometry.Rect{Width: 1, Height: 1})
	assert.ErrorIs(t, err, d.copyErr)
	assert.Equal(t, []string{"copy"}, d.calls)

	d = &fakeDrawer{flushErr: errors.New("broken pipe")}
	err = NewController(d).Redraw(geometry.Rect{Width: 1, Height: 1})
	assert.ErrorIs(t, err, d.flushErr)
	assert.NotContains(t, d.calls, "rect")
}
