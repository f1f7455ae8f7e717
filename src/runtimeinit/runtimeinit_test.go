package runtimeinit

import (
	"context"
	"image/png"
	"os"
	"testing"

	"screen-clip/src/clipboard"
	"screen-clip/src/config"
)

func TestBootstrapCommandBackend(t *testing.T) {
	t.Setenv("CLIPBOARD_BACKEND", "xclip")
	t.Setenv("CLIPBOARD_COMMAND", "/usr/bin/xclip")
	t.Setenv("PNG_COMPRESSION", "speed")
	t.Setenv("ENABLE_FILE_LOGGING", "true")
	t.Setenv("TEMP_PATH", "a.png")
	t.Setenv("OUTPUT_PATH", "/tmp/b.png")

	var loggingEnabled bool
	rt, err := Bootstrap(Options{SetupLogging: func(enable bool) { loggingEnabled = enable }})
	if err != nil {
		t.Fatalf("Bootstrap: %v", err)
	}

	if !loggingEnabled {
		t.Errorf("expected SetupLogging(true)")
	}
	cmd, ok := rt.Clipboard.(*clipboard.Command)
	if !ok {
		t.Fatalf("expected *clipboard.Command, got %T", rt.Clipboard)
	}
	if cmd.Path != "/usr/bin/xclip" {
		t.Errorf("command path = %q", cmd.Path)
	}
	if rt.Compression != png.BestSpeed {
		t.Errorf("compression = %v", rt.Compression)
	}

	s := rt.Sink()
	if s.TempPath != "a.png" || s.OutputPath != "/tmp/b.png" {
		t.Errorf("sink paths = %q -> %q", s.TempPath, s.OutputPath)
	}

	// no native selection to hold
	rt.HoldClipboard(context.Background())
}

func TestBootstrapRejectsUnknownBackend(t *testing.T) {
	_, err := Bootstrap(Options{LoadOptions: config.LoadOptions{ClipboardBackendOverride: "pbcopy"}})
	if err == nil {
		t.Fatal("expected error")
	}
}

func TestBootstrapNativeBackend(t *testing.T) {
	if os.Getenv("DISPLAY") == "" {
		t.Skip("native clipboard needs an X display")
	}
	rt, err := Bootstrap(Options{LoadOptions: config.LoadOptions{ClipboardBackendOverride: "native"}})
	if err != nil {
		t.Skipf("native clipboard unavailable: %v", err)
	}
	if _, ok := rt.Clipboard.(*clipboard.Native); !ok {
		t.Errorf("expected *clipboard.Native, got %T", rt.Clipboard)
	}
}
