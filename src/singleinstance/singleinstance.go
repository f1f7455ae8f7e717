package singleinstance

// This file defines the API for resident ownership and capture delegation.

import (
	"context"
)

// Server owns the TCP endpoint and answers delegated capture requests.
type Server interface {
	// Start begins listening on the first port of the configured range and accepting client requests.
	Start(ctx context.Context) error
	// Port returns the bound TCP port, or 0 if not started.
	Port() int
	// Next returns the next accepted connection as a Conn, or ctx error.
	Next(ctx context.Context) (Conn, error)
	// Close releases ownership and stops accepting clients.
	Close() error
}

// Conn represents one client connection and exposes request + response API.
type Conn interface {
	Request() Request
	// RespondSuccess reports the path the capture was written to.
	RespondSuccess(path string) error
	// RespondError sends an error with human-readable message.
	RespondError(msg string) error
	Close() error
}

// Request is one delegated capture.
type Request struct {
	// Fullscreen skips interactive selection and captures the primary display.
	Fullscreen bool
}

// Client attempts to delegate a capture to a resident server.
type Client interface {
	// TryCapture scans the port range, performs the handshake and waits for the
	// resident to finish. If no resident is found, returns delegated=false, err=nil.
	TryCapture(ctx context.Context, fullscreen bool) (delegated bool, path string, err error)
}

// NewServer returns TCP implementation.
func NewServer() Server { return newTcpServer() }

// NewClient returns TCP implementation.
func NewClient() Client { return newTcpClient() }
