package sink

import (
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"syscall"

	"screen-clip/src/clipboard"
	"screen-clip/src/screenshot"
)

const (
	DefaultTempPath   = "clip.png"
	DefaultOutputPath = "/tmp/clip.png"
)

// Sink writes a capture to a temporary file, moves it to its stable
// location and hands that location to the clipboard.
type Sink struct {
	TempPath   string
	OutputPath string
	Clipboard  clipboard.Setter
}

// New returns a Sink with defaults for empty paths.
func New(tempPath, outputPath string, cb clipboard.Setter) *Sink {
	if tempPath == "" {
		tempPath = DefaultTempPath
	}
	if outputPath == "" {
		outputPath = DefaultOutputPath
	}
	return &Sink{TempPath: tempPath, OutputPath: outputPath, Clipboard: cb}
}

// Deliver stores img and places it on the clipboard. It returns the stable path.
// A failed write leaves the destination in an unspecified state.
func (s *Sink) Deliver(img screenshot.Image) (string, error) {
	if len(img.Data) == 0 {
		return "", errors.New("refusing to write an empty image")
	}

	if err := os.WriteFile(s.TempPath, img.Data, 0o644); err != nil {
		return "", fmt.Errorf("failed to write %s: %w", s.TempPath, err)
	}

	if err := relocate(s.TempPath, s.OutputPath); err != nil {
		return "", err
	}
	log.Printf("sink: stored %dx%d capture at %s", img.Width, img.Height, s.OutputPath)

	if s.Clipboard != nil {
		if err := s.Clipboard.SetImage(screenshot.MIMEType, s.OutputPath); err != nil {
			return s.OutputPath, err
		}
	}
	return s.OutputPath, nil
}

// relocate moves src over dst, replacing dst. Renames across filesystems fall
// back to copy and remove.
func relocate(src, dst string) error {
	if dir := filepath.Dir(dst); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create %s: %w", dir, err)
		}
	}

	err := os.Rename(src, dst)
	if err == nil {
		return nil
	}
	if !errors.Is(err, syscall.EXDEV) {
		return fmt.Errorf("failed to move %s to %s: %w", src, dst, err)
	}

	if err := copyFile(src, dst); err != nil {
		return fmt.Errorf("failed to copy %s to %s: %w", src, dst, err)
	}
	if err := os.Remove(src); err != nil {
		return fmt.Errorf("failed to remove %s: %w", src, err)
	}
	return nil
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.OpenFile(dst, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		_ = out.Close()
		return err
	}
	return out.Close()
}
