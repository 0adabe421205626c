// Package operator implements the line-oriented TCP command channel the
// ground operator uses to supervise a flight. A single client at a time
// connects and issues text commands; the mission orchestrator consumes
// them via Requests and pushes status lines back through Notify.
package operator

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"strconv"
	"strings"
	"sync"
)

// Kind identifies an operator request.
type Kind int

const (
	// KindStop ends the mission and lands the vehicle.
	KindStop Kind = iota

	// KindHeight asks for the current height report.
	KindHeight

	// KindSetAltitude retargets the hold altitude mid-flight.
	KindSetAltitude
)

// Request is a parsed operator command.
type Request struct {
	Kind Kind

	// Altitude carries the requested hold altitude in centimetres for
	// KindSetAltitude requests.
	Altitude int
}

// ErrServerClosed is returned by Serve after a call to Close.
var ErrServerClosed = errors.New("operator: server closed")

const requestQueueSize = 8

// Option is a Server configuration function.
type Option func(*Server)

// WithLogger sets the Server logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// Server accepts operator connections and translates command lines into
// Requests. One client is served at a time; a new connection displaces
// the previous one.
type Server struct {
	listener net.Listener
	logger   *slog.Logger

	requests chan Request

	mu     sync.Mutex
	client net.Conn
	closed bool
}

// Listen binds the command channel to addr and returns a Server ready
// to Serve.
func Listen(addr string, options ...Option) (*Server, error) {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("listening on %s: %w", addr, err)
	}

	return NewServer(ln, options...), nil
}

// NewServer wraps an existing listener. The Server takes ownership of
// the listener and closes it on Close.
func NewServer(ln net.Listener, options ...Option) *Server {
	s := &Server{
		listener: ln,
		logger:   slog.Default(),
		requests: make(chan Request, requestQueueSize),
	}

	for _, option := range options {
		option(s)
	}

	return s
}

// Addr returns the address the server is listening on.
func (s *Server) Addr() net.Addr {
	return s.listener.Addr()
}

// Requests returns the channel operator commands are delivered on. The
// channel is closed when Serve returns.
func (s *Server) Requests() <-chan Request {
	return s.requests
}

// Serve accepts connections until ctx is cancelled or Close is called.
func (s *Server) Serve(ctx context.Context) error {
	defer close(s.requests)

	go func() {
		<-ctx.Done()
		s.Close()
	}()

	for {
		conn, err := s.listener.Accept()
		if err != nil {
			s.mu.Lock()
			closed := s.closed
			s.mu.Unlock()

			if closed || ctx.Err() != nil {
				return ErrServerClosed
			}

			return fmt.Errorf("accepting operator connection: %w", err)
		}

		s.logger.Info("operator connected", slog.String("remote", conn.RemoteAddr().String()))
		s.attach(conn)
		s.serveConn(conn)
	}
}

// Notify sends a status line to the connected operator. It is a no-op
// when no client is connected.
func (s *Server) Notify(format string, args ...any) {
	s.mu.Lock()
	conn := s.client
	s.mu.Unlock()

	if conn == nil {
		return
	}

	line := fmt.Sprintf("[navigator] "+format+"\n", args...)
	if _, err := conn.Write([]byte(line)); err != nil {
		s.logger.Warn("failed to notify operator", slog.Any("error", err))
	}
}

// Close shuts the listener and the active client connection down and
// causes Serve to return ErrServerClosed.
func (s *Server) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}

	s.closed = true
	conn := s.client
	s.client = nil
	s.mu.Unlock()

	var errs []error
	if conn != nil {
		errs = append(errs, conn.Close())
	}

	errs = append(errs, s.listener.Close())
	return errors.Join(errs...)
}

func (s *Server) attach(conn net.Conn) {
	s.mu.Lock()
	prev := s.client
	s.client = conn
	s.mu.Unlock()

	if prev != nil {
		prev.Close()
	}
}

func (s *Server) serveConn(conn net.Conn) {
	scanner := bufio.NewScanner(conn)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		req, err := parseCommand(line)
		if err != nil {
			s.logger.Warn("rejected operator command",
				slog.String("line", line),
				slog.Any("error", err))

			fmt.Fprintf(conn, "error: %s\n", err)
			continue
		}

		s.requests <- req
	}

	if err := scanner.Err(); err != nil && !errors.Is(err, net.ErrClosed) {
		s.logger.Warn("operator connection error", slog.Any("error", err))
	}

	s.mu.Lock()
	if s.client == conn {
		s.client = nil
	}
	s.mu.Unlock()

	conn.Close()
	s.logger.Info("operator disconnected")
}

func parseCommand(line string) (Request, error) {
	fields := strings.Fields(line)

	switch fields[0] {
	case "stop":
		return Request{Kind: KindStop}, nil

	case "height":
		return Request{Kind: KindHeight}, nil

	case "alt":
		if len(fields) != 2 {
			return Request{}, errors.New("usage: alt <cm>")
		}

		cm, err := strconv.Atoi(fields[1])
		if err != nil || cm <= 0 {
			return Request{}, fmt.Errorf("invalid altitude %q", fields[1])
		}

		return Request{Kind: KindSetAltitude, Altitude: cm}, nil

	default:
		return Request{}, fmt.Errorf("unknown command %q", fields[0])
	}
}
