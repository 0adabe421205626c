package operator

import (
	"bufio"
	"context"
	"errors"
	"net"
	"strings"
	"testing"
	"time"
)

func startServer(t *testing.T) *Server {
	t.Helper()

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("net.Listen() error = %v", err)
	}

	srv := NewServer(ln)
	done := make(chan error, 1)
	go func() {
		done <- srv.Serve(context.Background())
	}()

	t.Cleanup(func() {
		srv.Close()
		<-done
	})

	return srv
}

func dial(t *testing.T, srv *Server) net.Conn {
	t.Helper()

	conn, err := net.Dial("tcp", srv.Addr().String())
	if err != nil {
		t.Fatalf("net.Dial() error = %v", err)
	}

	t.Cleanup(func() { conn.Close() })
	return conn
}

func recvRequest(t *testing.T, srv *Server) Request {
	t.Helper()

	select {
	case req, ok := <-srv.Requests():
		if !ok {
			t.Fatal("requests channel closed")
		}
		return req
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for request")
	}

	return Request{}
}

func TestServer_Commands(t *testing.T) {
	tests := []struct {
		line string
		want Request
	}{
		{"stop", Request{Kind: KindStop}},
		{"height", Request{Kind: KindHeight}},
		{"alt 120", Request{Kind: KindSetAltitude, Altitude: 120}},
		{"  alt   80  ", Request{Kind: KindSetAltitude, Altitude: 80}},
	}

	srv := startServer(t)
	conn := dial(t, srv)

	for _, tt := range tests {
		t.Run(strings.TrimSpace(tt.line), func(t *testing.T) {
			if _, err := conn.Write([]byte(tt.line + "\n")); err != nil {
				t.Fatalf("Write() error = %v", err)
			}

			if got := recvRequest(t, srv); got != tt.want {
				t.Errorf("request = %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestServer_RejectsInvalidCommands(t *testing.T) {
	tests := []struct {
		name string
		line string
	}{
		{"unknown", "launch"},
		{"alt without value", "alt"},
		{"alt not a number", "alt high"},
		{"alt negative", "alt -10"},
		{"alt zero", "alt 0"},
	}

	srv := startServer(t)
	conn := dial(t, srv)
	reader := bufio.NewReader(conn)

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := conn.Write([]byte(tt.line + "\n")); err != nil {
				t.Fatalf("Write() error = %v", err)
			}

			conn.SetReadDeadline(time.Now().Add(5 * time.Second))
			reply, err := reader.ReadString('\n')
			if err != nil {
				t.Fatalf("ReadString() error = %v", err)
			}

			if !strings.HasPrefix(reply, "error: ") {
				t.Errorf("reply = %q, want error reply", reply)
			}

			select {
			case req := <-srv.Requests():
				t.Errorf("unexpected request %+v", req)
			default:
			}
		})
	}
}

func TestServer_Notify(t *testing.T) {
	srv := startServer(t)
	conn := dial(t, srv)

	// Round-trip a command first so the connection is attached before
	// Notify runs.
	if _, err := conn.Write([]byte("height\n")); err != nil {
		t.Fatalf("Write() error = %v", err)
	}
	recvRequest(t, srv)

	srv.Notify("height: %d cm", 150)

	conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	reply, err := bufio.NewReader(conn).ReadString('\n')
	if err != nil {
		t.Fatalf("ReadString() error = %v", err)
	}

	if want := "[navigator] height: 150 cm\n"; reply != want {
		t.Errorf("reply = %q, want %q", reply, want)
	}
}

func TestServer_CloseStopsServe(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("net.Listen() error = %v", err)
	}

	srv := NewServer(ln)
	done := make(chan error, 1)
	go func() {
		done <- srv.Serve(context.Background())
	}()

	if err := srv.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}

	select {
	case err := <-done:
		if !errors.Is(err, ErrServerClosed) {
			t.Errorf("Serve() error = %v, want ErrServerClosed", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Serve() did not return after Close()")
	}

	if _, ok := <-srv.Requests(); ok {
		t.Error("requests channel not closed after Serve() returned")
	}
}
