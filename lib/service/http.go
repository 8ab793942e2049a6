// Copyright 2026 The Chained Social Authors
// SPDX-License-Identifier: Apache-2.0

// Package service runs long-lived network servers with a
// context-driven lifecycle.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/chainedsocial/chainedsocial/lib/logging"
)

// HTTPServer serves an http.Handler on a TCP listener. Serve blocks
// until its context is cancelled and in-flight requests drain.
type HTTPServer struct {
	address         string
	handler         http.Handler
	logger          *slog.Logger
	shutdownTimeout time.Duration

	// ready is closed once the listener is bound.
	ready chan struct{}
	addr  net.Addr
}

// HTTPServerConfig configures an HTTPServer.
type HTTPServerConfig struct {
	// Address is the TCP listen address, e.g. "localhost:4943" or
	// "127.0.0.1:0". Required.
	Address string

	// Handler serves every request. Required.
	Handler http.Handler

	// ShutdownTimeout bounds the wait for in-flight requests after
	// the context is cancelled. Defaults to 10 seconds.
	ShutdownTimeout time.Duration

	Logger *slog.Logger
}

// NewHTTPServer validates config. Call Serve to start listening.
func NewHTTPServer(config HTTPServerConfig) (*HTTPServer, error) {
	if config.Address == "" {
		return nil, fmt.Errorf("service: HTTPServer Address is required")
	}
	if config.Handler == nil {
		return nil, fmt.Errorf("service: HTTPServer Handler is required")
	}
	timeout := config.ShutdownTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &HTTPServer{
		address:         config.Address,
		handler:         config.Handler,
		logger:          logging.Component(config.Logger, "http"),
		shutdownTimeout: timeout,
		ready:           make(chan struct{}),
	}, nil
}

// Ready is closed once the server is accepting connections.
func (s *HTTPServer) Ready() <-chan struct{} {
	return s.ready
}

// Addr returns the bound address. Only valid after Ready is closed;
// with port 0 it carries the port the OS assigned.
func (s *HTTPServer) Addr() net.Addr {
	return s.addr
}

// URL returns the base URL clients use to reach the server. Only
// valid after Ready is closed.
func (s *HTTPServer) URL() string {
	return "http://" + s.addr.String()
}

// Serve accepts connections until ctx is cancelled, then shuts down
// gracefully.
func (s *HTTPServer) Serve(ctx context.Context) error {
	listener, err := net.Listen("tcp", s.address)
	if err != nil {
		return fmt.Errorf("listening on %s: %w", s.address, err)
	}
	s.addr = listener.Addr()
	close(s.ready)

	// Attachments travel inline, so bodies can be several megabytes.
	server := &http.Server{
		Handler:           s.handler,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       60 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	s.logger.Info("http server listening", "address", s.addr.String())

	serveDone := make(chan error, 1)
	go func() {
		if err := server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveDone <- err
		}
		close(serveDone)
	}()

	select {
	case <-ctx.Done():
		s.logger.Info("http server shutting down")
	case err := <-serveDone:
		return err
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.shutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		s.logger.Error("http server shutdown error", "error", err)
		return fmt.Errorf("http server shutdown: %w", err)
	}
	s.logger.Info("http server stopped")
	return nil
}
