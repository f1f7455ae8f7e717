package clipboard

import (
	"context"
	"fmt"
	"log"
	"os"
	"sync"
	"time"

	"golang.design/x/clipboard"
	"golang.org/x/sys/execabs"
)

const (
	BackendCommand = "xclip"
	BackendNative  = "native"
)

var (
	writeMu sync.Mutex
)

// Setter places an image file on the system clipboard.
type Setter interface {
	SetImage(mimeType, path string) error
}

// starter launches a process and returns without waiting for it to exit.
type starter func(name string, args ...string) error

// Command hands the file to an external clipboard utility (xclip-compatible
// flags). The utility is not waited for; only a failure to start is reported.
type Command struct {
	Path  string
	start starter
}

// NewCommand returns a Command running the utility at path, looked up on PATH
// when it has no slash.
func NewCommand(path string) *Command {
	if path == "" {
		path = BackendCommand
	}
	return &Command{Path: path, start: startDetached}
}

// Args returns the argument list passed to the utility.
func (c *Command) Args(mimeType, path string) []string {
	return []string{"-selection", "clipboard", "-t", mimeType, "-i", path}
}

func (c *Command) SetImage(mimeType, path string) error {
	args := c.Args(mimeType, path)
	log.Printf("clipboard: starting %s %v", c.Path, args)
	if err := c.start(c.Path, args...); err != nil {
		return fmt.Errorf("clipboard utility: %w", err)
	}
	return nil
}

func startDetached(name string, args ...string) error {
	cmd := execabs.Command(name, args...)
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("failed to start %s: %w", name, err)
	}
	go func() {
		if err := cmd.Wait(); err != nil {
			log.Printf("clipboard: %s exited: %v", name, err)
		}
	}()
	return nil
}

// Init prepares the in-process clipboard. Only the native backend needs it.
func Init() error {
	if err := clipboard.Init(); err != nil {
		return fmt.Errorf("clipboard init failed: %w", err)
	}
	return nil
}

// Native owns the clipboard selection from this process. On X11 the content
// is gone once the owner exits, so callers should Wait before exiting.
type Native struct {
	mu      sync.Mutex
	changed <-chan struct{}
}

// NewNative initializes the clipboard and returns a Native setter.
func NewNative() (*Native, error) {
	if err := Init(); err != nil {
		return nil, err
	}
	return &Native{}, nil
}

func (n *Native) SetImage(mimeType, path string) error {
	if mimeType != "image/png" {
		return fmt.Errorf("native clipboard only supports image/png, got %s", mimeType)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read %s: %w", path, err)
	}

	writeMu.Lock()
	changed := clipboard.Write(clipboard.FmtImage, data)
	writeMu.Unlock()

	n.mu.Lock()
	n.changed = changed
	n.mu.Unlock()
	log.Printf("clipboard: wrote %d bytes of %s", len(data), mimeType)
	return nil
}

// Wait blocks until another client takes the clipboard, hold elapses, or ctx
// is done. It returns immediately if nothing was written.
func (n *Native) Wait(ctx context.Context, hold time.Duration) {
	n.mu.Lock()
	changed := n.changed
	n.mu.Unlock()
	if changed == nil || hold <= 0 {
		return
	}

	timer := time.NewTimer(hold)
	defer timer.Stop()
	select {
	case <-changed:
		log.Printf("clipboard: selection taken over")
	case <-timer.C:
	case <-ctx.Done():
	}
}
