package eventloop

import (
	"context"
	"errors"
	"fmt"
	"log"

	"screen-clip/src/hotkey"
	"screen-clip/src/session"
	"screen-clip/src/singleinstance"
	"screen-clip/src/worker"
)

// ErrBusy is reported to delegated clients while another session runs.
var ErrBusy = errors.New("Busy, please retry")

// Runner performs one capture session for req.
type Runner func(ctx context.Context, req singleinstance.Request) (session.Outcome, error)

// Loop is the single-threaded coordinator for delegated and hotkey captures.
// Sessions run one at a time on the worker pool and report back through
// results, so the loop can keep answering clients while the user drags.
type Loop struct {
	run      Runner
	srv      singleinstance.Server
	pool     *worker.Pool
	busy     bool
	results  chan result
	hotkeyCh chan struct{}
}

type result struct {
	outcome session.Outcome
	err     error
	target  resultTarget
}

type resultTarget interface {
	OnSuccess(outcome session.Outcome)
	OnFailure(err error)
	Close()
}

type hotkeyResultTarget struct{}

func (hotkeyResultTarget) OnSuccess(o session.Outcome) {
	switch {
	case o.Captured:
		log.Printf("handleResult: %s saved to %s", o.Rect, o.Path)
	case o.Cancelled:
		log.Printf("handleResult: selection cancelled")
	default:
		log.Printf("handleResult: empty selection, nothing captured")
	}
}

func (hotkeyResultTarget) OnFailure(err error) {
	log.Printf("handleResult: capture failed: %v", err)
}

func (hotkeyResultTarget) Close() {}

type delegatedResultTarget struct {
	conn singleinstance.Conn
}

func (t delegatedResultTarget) OnSuccess(o session.Outcome) {
	if o.Cancelled {
		t.OnFailure(singleinstance.ErrCancelled)
		return
	}
	// An empty selection answers with an empty path.
	if err := t.conn.RespondSuccess(o.Path); err != nil {
		log.Printf("handleResult: respond to client: %v", err)
	}
}

func (t delegatedResultTarget) OnFailure(err error) {
	if rerr := t.conn.RespondError(err.Error()); rerr != nil {
		log.Printf("handleResult: respond to client: %v", rerr)
	}
}

func (t delegatedResultTarget) Close() { _ = t.conn.Close() }

// New creates a loop that runs sessions with run. A nil srv uses the TCP
// resident server.
func New(run Runner, srv singleinstance.Server) *Loop {
	if srv == nil {
		srv = singleinstance.NewServer()
	}
	return &Loop{
		run:      run,
		srv:      srv,
		pool:     worker.New(1),
		results:  make(chan result, 1),
		hotkeyCh: make(chan struct{}, 4),
	}
}

// Trigger requests an interactive capture as if the hotkey was pressed.
func (l *Loop) Trigger() {
	select {
	case l.hotkeyCh <- struct{}{}:
	default:
	}
}

// StartHotkey registers a global hotkey and posts events into the loop.
// It reports whether the combo could be registered.
func (l *Loop) StartHotkey(combo string) bool {
	if combo == "" {
		return false
	}
	return hotkey.Listen(combo, l.Trigger)
}

// Run starts the resident server and processes triggers until ctx is
// cancelled or the server stops.
func (l *Loop) Run(ctx context.Context) error {
	if err := l.srv.Start(ctx); err != nil {
		return fmt.Errorf("another resident may be running: %w", err)
	}
	defer l.srv.Close()
	defer l.pool.Close()
	if p := l.srv.Port(); p > 0 {
		start, end := singleinstance.PortRange()
		log.Printf("Resident listening on 127.0.0.1:%d (range %d-%d)", p, start, end)
	}

	// Accept loop in background to avoid blocking result handling
	reqCh := make(chan singleinstance.Conn, 4)
	go func() {
		defer close(reqCh)
		for {
			conn, err := l.srv.Next(ctx)
			if err != nil {
				return
			}
			select {
			case reqCh <- conn:
			case <-ctx.Done():
				_ = conn.Close()
				return
			}
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-l.hotkeyCh:
			l.handleHotkey(ctx)
		case conn, ok := <-reqCh:
			if !ok {
				return nil
			}
			l.handleConn(ctx, conn)
		case res := <-l.results:
			l.handleResult(res)
		}
	}
}

func (l *Loop) handleConn(ctx context.Context, conn singleinstance.Conn) {
	target := delegatedResultTarget{conn: conn}
	if l.busy {
		log.Printf("handleConn: busy, rejecting client")
		target.OnFailure(ErrBusy)
		target.Close()
		return
	}
	l.start(ctx, conn.Request(), target)
}

func (l *Loop) handleHotkey(ctx context.Context) {
	log.Printf("handleHotkey: called")
	if l.busy {
		log.Printf("handleHotkey: busy, skipping")
		return
	}
	l.start(ctx, singleinstance.Request{}, hotkeyResultTarget{})
}

func (l *Loop) start(ctx context.Context, req singleinstance.Request, target resultTarget) {
	l.busy = true
	submitted := l.pool.Submit(ctx, func(ctx context.Context) (session.Outcome, error) {
		return l.run(ctx, req)
	}, func(outcome session.Outcome, err error) {
		l.post(ctx, result{outcome: outcome, err: err, target: target})
	})
	if !submitted {
		l.busy = false
		target.OnFailure(ErrBusy)
		target.Close()
	}
}

// post hands a finished session back to Run. Once ctx is done Run may have
// returned, so the target is closed here instead.
func (l *Loop) post(ctx context.Context, res result) {
	select {
	case l.results <- res:
	case <-ctx.Done():
		log.Printf("post: loop stopped, dropping result err=%v", res.err)
		res.target.Close()
	}
}

func (l *Loop) handleResult(res result) {
	defer func() { l.busy = false }()
	defer res.target.Close()

	if res.err != nil {
		res.target.OnFailure(res.err)
		return
	}
	res.target.OnSuccess(res.outcome)
}
