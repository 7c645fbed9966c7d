package server

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"sync"
	"testing"
	"time"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func startServer(t *testing.T, s *Server) (string, context.CancelFunc, <-chan error) {
	t.Helper()

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen failed: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Serve(ctx, ln) }()

	return "http://" + ln.Addr().String(), cancel, done
}

func waitDone(t *testing.T, done <-chan error) error {
	t.Helper()
	select {
	case err := <-done:
		return err
	case <-time.After(5 * time.Second):
		t.Fatal("server did not stop")
		return nil
	}
}

func TestServer_ServesAndStopsComponentsInReverseOrder(t *testing.T) {
	t.Parallel()

	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, "pong")
	})
	s := New(handler, Options{ShutdownTimeout: time.Second}, discardLogger())

	var mu sync.Mutex
	var order []string
	for _, name := range []string{"pipeline", "stream worker", "reporter"} {
		name := name
		s.OnShutdown(name, func(ctx context.Context) error {
			mu.Lock()
			defer mu.Unlock()
			order = append(order, name)
			return nil
		})
	}

	url, cancel, done := startServer(t, s)

	var resp *http.Response
	var err error
	for i := 0; i < 50; i++ {
		resp, err = http.Get(url)
		if err == nil {
			break
		}
		time.Sleep(10 * time.Millisecond)
	}
	if err != nil {
		t.Fatalf("GET failed: %v", err)
	}
	body, _ := io.ReadAll(resp.Body)
	_ = resp.Body.Close()
	if string(body) != "pong" {
		t.Errorf("body = %q, want pong", body)
	}

	cancel()
	if err := waitDone(t, done); err != nil {
		t.Fatalf("unexpected shutdown error: %v", err)
	}

	want := "reporter,stream worker,pipeline"
	if got := strings.Join(order, ","); got != want {
		t.Errorf("shutdown order = %s, want %s", got, want)
	}
}

func TestServer_ShutdownCollectsComponentErrors(t *testing.T) {
	t.Parallel()

	s := New(http.NotFoundHandler(), Options{ShutdownTimeout: time.Second}, discardLogger())

	errFirst := errors.New("first failed")
	ran := false
	s.OnShutdown("first", func(ctx context.Context) error { return errFirst })
	s.OnShutdown("second", func(ctx context.Context) error {
		ran = true
		return nil
	})

	_, cancel, done := startServer(t, s)
	cancel()

	err := waitDone(t, done)
	if !errors.Is(err, errFirst) {
		t.Fatalf("error = %v, want %v", err, errFirst)
	}
	if !ran {
		t.Error("a failing component must not stop later ones")
	}
}

func TestServer_Addr(t *testing.T) {
	t.Parallel()

	s := New(http.NotFoundHandler(), Options{Port: 9090}, nil)
	if s.Addr() != ":9090" {
		t.Errorf("Addr() = %q, want :9090", s.Addr())
	}
}
