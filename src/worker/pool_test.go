package worker

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"screen-clip/src/session"
)

type done struct {
	outcome session.Outcome
	err     error
}

func TestSubmitRunsTask(t *testing.T) {
	p := New(0)
	defer p.Close()

	results := make(chan done, 1)
	ok := p.Submit(context.Background(), func(ctx context.Context) (session.Outcome, error) {
		return session.Outcome{Captured: true, Path: "/tmp/clip.png"}, nil
	}, func(o session.Outcome, err error) { results <- done{o, err} })
	assert.True(t, ok)

	select {
	case r := <-results:
		assert.NoError(t, r.err)
		assert.Equal(t, "/tmp/clip.png", r.outcome.Path)
	case <-time.After(2 * time.Second):
		t.Fatal("task did not run")
	}
}

func TestSubmitBackPressure(t *testing.T) {
	p := New(1)
	defer p.Close()

	started := make(chan struct{})
	release := make(chan struct{})
	block := func(ctx context.Context) (session.Outcome, error) {
		select {
		case started <- struct{}{}:
		default:
		}
		<-release
		return session.Outcome{}, nil
	}
	noop := func(session.Outcome, error) {}

	assert.True(t, p.Submit(context.Background(), block, noop))
	<-started
	// worker busy, queue slot free
	assert.True(t, p.Submit(context.Background(), block, noop))
	// queue full
	assert.False(t, p.Submit(context.Background(), block, noop))
	close(release)
}

func TestCancelledTaskIsNotRun(t *testing.T) {
	p := New(1)
	defer p.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	results := make(chan done, 1)
	p.Submit(ctx, func(ctx context.Context) (session.Outcome, error) {
		t.Error("task must not run")
		return session.Outcome{}, nil
	}, func(o session.Outcome, err error) { results <- done{o, err} })

	select {
	case r := <-results:
		assert.True(t, errors.Is(r.err, context.Canceled))
	case <-time.After(2 * time.Second):
		t.Fatal("callback not invoked")
	}
}

func TestCloseIsIdempotent(t *testing.T) {
	p := New(1)
	p.Close()
	p.Close()
}
