package main

import (
	"context"
	"fmt"
	"log"

	"screen-clip/src/geometry"
	"screen-clip/src/hotkey"
	"screen-clip/src/overlay"
	"screen-clip/src/runtimeinit"
	"screen-clip/src/screenshot"
	"screen-clip/src/session"
	"screen-clip/src/singleinstance"
	"screen-clip/src/xdisplay"
)

func capture(ctx context.Context, rt *runtimeinit.Runtime, req singleinstance.Request) (session.Outcome, error) {
	if req.Fullscreen {
		return captureFullscreen(rt)
	}
	return captureInteractive(ctx, rt)
}

func captureInteractive(ctx context.Context, rt *runtimeinit.Runtime) (session.Outcome, error) {
	cfg := rt.Config
	disp, err := xdisplay.Open(xdisplay.Options{DisplayName: cfg.DisplayName, LineWidth: cfg.OutlineWidth})
	if err != nil {
		return session.Outcome{}, fmt.Errorf("%w: %w", session.ErrTransport, err)
	}
	defer disp.Close()

	return session.Execute(ctx, session.Options{
		Events:        disp,
		Surface:       overlay.NewController(disp),
		Capturer:      screenshot.NewPipeline(disp, rt.Compression),
		Sink:          rt.Sink(),
		Bounds:        disp.Bounds(),
		CancelKeycode: cancelKeycode(disp, cfg.CancelKey),
	})
}

type keycoder interface {
	Keycode(keysym uint32) (byte, bool)
}

func cancelKeycode(kc keycoder, name string) byte {
	if sym, ok := hotkey.Keysym(name); ok {
		if code, ok := kc.Keycode(sym); ok {
			return code
		}
	}
	log.Printf("cancel key %q has no keycode, using %d", name, xdisplay.DefaultCancelKeycode)
	return xdisplay.DefaultCancelKeycode
}

func captureFullscreen(rt *runtimeinit.Runtime) (session.Outcome, error) {
	img, err := screenshot.CaptureDisplay(0, rt.Compression)
	if err != nil {
		return session.Outcome{}, fmt.Errorf("capture: %w", err)
	}
	path, err := rt.Sink().Deliver(img)
	if err != nil {
		return session.Outcome{}, fmt.Errorf("deliver: %w", err)
	}
	return session.Outcome{
		State:    session.StateTerminated,
		Rect:     geometry.Rect{Width: img.Width, Height: img.Height},
		Captured: true,
		Path:     path,
	}, nil
}
