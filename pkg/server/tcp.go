// Package server provides the transport collaborators around the
// matching core: a TCP acceptor speaking the newline-delimited JSON
// order protocol, a websocket endpoint speaking the same protocol, and
// a small HTTP surface for liveness and book inspection. Every
// connection is adapted into the engine's write/close sink capability;
// the core never sees a socket.
package server

import (
	"bufio"
	"bytes"
	"context"
	"net"
	"sync"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/exsim/exsim/pkg/engine"
)

// maxLineBytes bounds a single inbound message. Anything larger is a
// framing error and drops the connection.
const maxLineBytes = 1 << 20

// TCPServer accepts raw TCP connections and binds each one to a fresh
// trader session. A net.Conn already satisfies the engine sink, so it
// is handed to the matcher as-is.
type TCPServer struct {
	matcher *engine.Matcher
	log     *zap.SugaredLogger

	mu sync.Mutex
	ln net.Listener
	wg sync.WaitGroup
}

func NewTCPServer(matcher *engine.Matcher, log *zap.SugaredLogger) *TCPServer {
	return &TCPServer{
		matcher: matcher,
		log:     log.Named("tcp"),
	}
}

// Listen binds the listening socket without serving yet, so callers
// can learn the bound address (tests listen on :0).
func (s *TCPServer) Listen(addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return errors.WithMessage(err, "tcp listen")
	}
	s.mu.Lock()
	s.ln = ln
	s.mu.Unlock()
	return nil
}

// Addr returns the bound listener address. Valid after Listen.
func (s *TCPServer) Addr() net.Addr {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ln == nil {
		return nil
	}
	return s.ln.Addr()
}

// Serve accepts connections until ctx is canceled, then closes the
// listener and waits for in-flight connections to drain.
func (s *TCPServer) Serve(ctx context.Context) error {
	s.mu.Lock()
	ln := s.ln
	s.mu.Unlock()
	if ln == nil {
		return errors.New("tcp serve: not listening")
	}

	go func() {
		<-ctx.Done()
		ln.Close()
	}()

	s.log.Infow("listening", "addr", ln.Addr().String())
	for {
		conn, err := ln.Accept()
		if err != nil {
			if ctx.Err() != nil {
				s.wg.Wait()
				return nil
			}
			return errors.WithMessage(err, "tcp accept")
		}
		s.wg.Add(1)
		go s.serveConn(conn)
	}
}

func (s *TCPServer) ListenAndServe(ctx context.Context, addr string) error {
	if err := s.Listen(addr); err != nil {
		return err
	}
	return s.Serve(ctx)
}

// serveConn runs one connection: register a session, feed inbound
// lines to the matcher, unregister on EOF or error. Undecodable lines
// are logged and dropped, they never end the connection.
func (s *TCPServer) serveConn(conn net.Conn) {
	defer s.wg.Done()

	traderID := uuid.NewString()
	session := s.matcher.GetTrader(traderID, conn)
	s.log.Infow("client_connected", "trader", traderID, "remote", conn.RemoteAddr().String())

	defer func() {
		if session.UsesSink(conn) {
			s.matcher.RemoveTrader(session)
		}
		conn.Close()
		s.log.Infow("client_disconnected", "trader", traderID)
	}()

	scanner := bufio.NewScanner(conn)
	scanner.Buffer(make([]byte, 0, 4096), maxLineBytes)
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(bytes.TrimSpace(line)) == 0 {
			continue
		}
		if err := s.matcher.HandleMessage(session, line); err != nil {
			s.log.Warnw("message_dropped", "trader", traderID, "err", err)
		}
	}
	if err := scanner.Err(); err != nil {
		s.log.Warnw("read_failed", "trader", traderID, "err", err)
	}
}
