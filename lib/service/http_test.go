// Copyright 2026 The Chained Social Authors
// SPDX-License-Identifier: Apache-2.0

package service

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/mux"
)

func TestHTTPServerLifecycle(t *testing.T) {
	router := mux.NewRouter()
	router.HandleFunc("/api/v2/status", func(writer http.ResponseWriter, request *http.Request) {
		fmt.Fprint(writer, "ok")
	}).Methods(http.MethodGet)

	server, err := NewHTTPServer(HTTPServerConfig{
		Address:         "127.0.0.1:0",
		Handler:         router,
		ShutdownTimeout: 2 * time.Second,
	})
	if err != nil {
		t.Fatalf("NewHTTPServer() error: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	serveDone := make(chan error, 1)
	go func() {
		serveDone <- server.Serve(ctx)
	}()

	select {
	case <-server.Ready():
	case <-t.Context().Done():
		t.Fatal("server did not become ready before test deadline")
	}
	if !strings.HasPrefix(server.URL(), "http://127.0.0.1:") {
		t.Errorf("URL() = %s", server.URL())
	}

	response, err := http.Get(server.URL() + "/api/v2/status")
	if err != nil {
		t.Fatalf("GET status: %v", err)
	}
	body, _ := io.ReadAll(response.Body)
	response.Body.Close()
	if response.StatusCode != http.StatusOK || string(body) != "ok" {
		t.Errorf("GET status = %d %q", response.StatusCode, body)
	}

	cancel()
	select {
	case err := <-serveDone:
		if err != nil {
			t.Errorf("Serve() = %v, want nil", err)
		}
	case <-t.Context().Done():
		t.Fatal("server did not shut down before test deadline")
	}
}

func TestHTTPServerAddressInUse(t *testing.T) {
	handler := http.NotFoundHandler()
	first, _ := NewHTTPServer(HTTPServerConfig{Address: "127.0.0.1:0", Handler: handler})
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go first.Serve(ctx)
	<-first.Ready()

	second, _ := NewHTTPServer(HTTPServerConfig{Address: first.Addr().String(), Handler: handler})
	if err := second.Serve(ctx); err == nil || !strings.Contains(err.Error(), "listening on") {
		t.Fatalf("Serve() on a bound port = %v, want a listen error", err)
	}
}

func TestNewHTTPServerRequiresConfig(t *testing.T) {
	handler := http.NotFoundHandler()
	tests := []struct {
		name   string
		config HTTPServerConfig
	}{
		{name: "missing_address", config: HTTPServerConfig{Handler: handler}},
		{name: "missing_handler", config: HTTPServerConfig{Address: ":0"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := NewHTTPServer(tt.config); err == nil {
				t.Error("NewHTTPServer() succeeded")
			}
		})
	}
}
