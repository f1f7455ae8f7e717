package clipboard

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"testing"
	"time"
)

func TestCommandArgs(t *testing.T) {
	c := NewCommand("")
	if c.Path != "xclip" {
		t.Errorf("Expected default path xclip, got %q", c.Path)
	}

	want := []string{"-selection", "clipboard", "-t", "image/png", "-i", "/tmp/clip.png"}
	if got := c.Args("image/png", "/tmp/clip.png"); !reflect.DeepEqual(got, want) {
		t.Errorf("Args() = %v, want %v", got, want)
	}
}

func TestCommandSetImageStartsOnce(t *testing.T) {
	var calls [][]string
	c := NewCommand("/usr/bin/xclip")
	c.start = func(name string, args ...string) error {
		calls = append(calls, append([]string{name}, args...))
		return nil
	}

	if err := c.SetImage("image/png", "/tmp/clip.png"); err != nil {
		t.Fatalf("SetImage failed: %v", err)
	}
	if len(calls) != 1 {
		t.Fatalf("Expected 1 start, got %d", len(calls))
	}
	if calls[0][0] != "/usr/bin/xclip" || calls[0][len(calls[0])-1] != "/tmp/clip.png" {
		t.Errorf("Unexpected invocation %v", calls[0])
	}
}

func TestCommandSetImageSpawnFailure(t *testing.T) {
	startErr := errors.New("fork failed")
	c := NewCommand("xclip")
	c.start = func(string, ...string) error { return startErr }

	if err := c.SetImage("image/png", "/tmp/clip.png"); !errors.Is(err, startErr) {
		t.Errorf("Expected start error, got %v", err)
	}
}

func TestStartDetachedMissingBinary(t *testing.T) {
	if err := startDetached("screenclip-no-such-clipboard-tool"); err == nil {
		t.Error("Expected error for missing binary")
	}
}

func TestNativeRejectsOtherTypes(t *testing.T) {
	n := &Native{}
	if err := n.SetImage("image/jpeg", "/tmp/clip.jpg"); err == nil {
		t.Error("Expected error for non-PNG type")
	}
}

func TestNativeWaitWithoutWrite(t *testing.T) {
	n := &Native{}
	done := make(chan struct{})
	go func() {
		n.Wait(context.Background(), time.Hour)
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Wait blocked with nothing written")
	}
}

func TestNativeSetImage(t *testing.T) {
	// This test needs a clipboard (X11 display); skip when unavailable.
	n, err := NewNative()
	if err != nil {
		t.Skipf("clipboard unavailable: %v", err)
	}

	path := filepath.Join(t.TempDir(), "clip.png")
	if err := os.WriteFile(path, []byte("\x89PNG\r\n\x1a\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := n.SetImage("image/png", path); err != nil {
		t.Logf("Failed to write clipboard: %v", err)
	}
}
