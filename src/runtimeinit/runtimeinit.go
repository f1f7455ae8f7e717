package runtimeinit

import (
	"context"
	"fmt"
	"image/png"
	"log"

	"screen-clip/src/clipboard"
	"screen-clip/src/config"
	"screen-clip/src/screenshot"
	"screen-clip/src/sink"
)

type Options struct {
	LoadOptions  config.LoadOptions
	SetupLogging func(enableFileLogging bool)
}

// Runtime is everything a capture needs besides the display connection.
type Runtime struct {
	Config      *config.Config
	Clipboard   clipboard.Setter
	Compression png.CompressionLevel

	native *clipboard.Native
}

func Bootstrap(opts Options) (*Runtime, error) {
	cfg, err := config.LoadWithOptions(opts.LoadOptions)
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	if opts.SetupLogging != nil {
		opts.SetupLogging(cfg.EnableFileLogging)
	}

	rt := &Runtime{
		Config:      cfg,
		Compression: screenshot.ParseCompression(cfg.PNGCompression),
	}

	switch cfg.ClipboardBackend {
	case config.BackendNative:
		n, err := clipboard.NewNative()
		if err != nil {
			return nil, fmt.Errorf("failed to initialize clipboard: %w", err)
		}
		rt.Clipboard = n
		rt.native = n
	default:
		rt.Clipboard = clipboard.NewCommand(cfg.ClipboardCommand)
	}

	log.Printf("runtime: display=%q backend=%s output=%s", cfg.DisplayName, cfg.ClipboardBackend, cfg.OutputPath)
	return rt, nil
}

// Sink returns an output sink for the configured paths and clipboard.
func (rt *Runtime) Sink() *sink.Sink {
	return sink.New(rt.Config.TempPath, rt.Config.OutputPath, rt.Clipboard)
}

// HoldClipboard keeps a natively owned selection alive before a one-shot
// process exits. It is a no-op for the external utility backend.
func (rt *Runtime) HoldClipboard(ctx context.Context) {
	if rt.native == nil {
		return
	}
	rt.native.Wait(ctx, rt.Config.ClipboardHold)
}
