package singleinstance

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"strconv"
	"strings"
	"time"
)

// ErrCancelled is reported by TryCapture when the user cancelled the
// selection on the resident.
var ErrCancelled = errors.New("selection cancelled")

type tcpClient struct{}

func newTcpClient() Client { return &tcpClient{} }

// TryCapture blocks until the resident answers, which includes the time the
// user spends dragging, so only ctx bounds the wait.
func (c *tcpClient) TryCapture(ctx context.Context, fullscreen bool) (bool, string, error) {
	port, ok := DetectResidentPort(ctx)
	if !ok {
		return false, "", nil
	}
	path, err := c.capture(ctx, net.JoinHostPort(residentHost, strconv.Itoa(port)), fullscreen)
	return true, path, err
}

func (c *tcpClient) capture(ctx context.Context, addr string, fullscreen bool) (string, error) {
	var d net.Dialer
	conn, err := d.DialContext(ctx, "tcp", addr)
	if err != nil {
		return "", fmt.Errorf("connect resident %s: %w", addr, err)
	}
	defer conn.Close()

	stop := context.AfterFunc(ctx, func() { _ = conn.SetDeadline(time.Now()) })
	defer stop()

	req := captureRequest
	if fullscreen {
		req = fullscreenRequest
	}
	w := bufio.NewWriter(conn)
	if _, err := w.WriteString(req); err != nil {
		return "", err
	}
	if err := w.Flush(); err != nil {
		return "", err
	}

	br := bufio.NewReader(conn)
	status, err := br.ReadString('\n')
	if err != nil {
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		return "", fmt.Errorf("read resident status: %w", err)
	}
	body, _ := io.ReadAll(br)
	switch status {
	case successResponse:
		return strings.TrimSpace(string(body)), nil
	case errorResponse:
		return "", responseError(string(body))
	default:
		return "", fmt.Errorf("unexpected resident response %q", strings.TrimSpace(status))
	}
}

func responseError(msg string) error {
	if msg == ErrCancelled.Error() {
		return ErrCancelled
	}
	return errors.New(msg)
}
