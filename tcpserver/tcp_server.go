// Package tcpserver accepts TCP connections and tracks one session per
// connection in a read-mostly registry. Lookups by session ID vastly
// outnumber connects and disconnects, which is the access pattern
// safemap.SafeMap is built for.
package tcpserver

import (
	"errors"
	"fmt"
	"net"
	"sync"
	"sync/atomic"

	"github.com/cyberinferno/syncutils/idgenerator"
	"github.com/cyberinferno/syncutils/logger"
	"github.com/cyberinferno/syncutils/safemap"
	"github.com/cyberinferno/syncutils/singlecall"
)

// NewSessionFunc is a function that creates a new TCPServerSession for a given
// connection. It receives the assigned session ID and the accepted net.Conn,
// and returns an implementation of TCPServerSession that will handle the connection.
type NewSessionFunc func(id uint32, conn net.Conn) TCPServerSession

// TCPServer is a TCP server that accepts connections and delegates each one to a
// session created by NewSession. Sessions are registered by ID while their
// Handle runs and are removed when it returns. Nil Logger, Sessions and
// IdGenerator fields are filled in by Start.
type TCPServer struct {
	Logger      logger.Logger
	Name        string
	Addr        string
	Listener    net.Listener
	Sessions    *safemap.SafeMap[uint32, TCPServerSession]
	Running     atomic.Bool
	NewSession  NewSessionFunc
	IdGenerator *idgenerator.IdGenerator

	lifecycle sync.Mutex
	stopping  singlecall.Guard
	done      chan struct{}
}

// Start binds to Addr and begins the accept loop in a goroutine.
//
// Returns:
//   - An error if the server is already running, NewSession is nil or
//     listening on Addr fails
func (s *TCPServer) Start() error {
	s.lifecycle.Lock()
	defer s.lifecycle.Unlock()

	s.Logger = logger.OrNop(s.Logger)

	if s.NewSession == nil {
		return fmt.Errorf("server %s has no session factory", s.Name)
	}

	if !s.Running.CompareAndSwap(false, true) {
		s.Logger.Error("server already running", logger.Field{Key: "server", Value: s.Name})
		return fmt.Errorf("server %s already running", s.Name)
	}

	ln, err := net.Listen("tcp", s.Addr)
	if err != nil {
		s.Running.Store(false)
		s.Logger.Error("server failed to start", logger.Field{Key: "error", Value: err})
		return fmt.Errorf("server %s failed to start: %w", s.Name, err)
	}

	if s.Sessions == nil {
		s.Sessions = safemap.NewSafeMap[uint32, TCPServerSession]()
	}
	if s.IdGenerator == nil {
		s.IdGenerator = idgenerator.NewIdGenerator(0)
	}

	s.Listener = ln
	s.done = make(chan struct{})

	s.Logger.Info(fmt.Sprintf("%s server started", s.Name), logger.Field{Key: "addr", Value: ln.Addr().String()})
	go s.AcceptLoop()

	return nil
}

// Stop closes the listener, waits for the accept loop to exit and closes
// every registered session. A call made while another Stop is in progress
// returns immediately. Calling Stop on a server that is not running is a no-op.
func (s *TCPServer) Stop() {
	s.stopping.Call(s.stop)
}

func (s *TCPServer) stop() {
	s.lifecycle.Lock()
	defer s.lifecycle.Unlock()

	if !s.Running.CompareAndSwap(true, false) {
		logger.OrNop(s.Logger).Info(fmt.Sprintf("%s server not running", s.Name))
		return
	}

	if s.Listener != nil {
		_ = s.Listener.Close()
	}
	<-s.done

	// No new sessions can be added now, so one drain closes them all.
	closed := 0
	for id, session := range s.Sessions.Reset() {
		if err := session.Close(); err != nil {
			s.Logger.Warn("session close failed",
				logger.Field{Key: "session", Value: id},
				logger.Field{Key: "error", Value: err})
		}
		closed++
	}

	s.Logger.Info(fmt.Sprintf("%s server stopped", s.Name), logger.Field{Key: "sessions_closed", Value: closed})
}

// AddSession stores a session under the given id. It is safe for concurrent use.
//
// Parameters:
//   - id: The session ID to associate with the session
//   - session: The session to store
func (s *TCPServer) AddSession(id uint32, session TCPServerSession) {
	s.Sessions.Store(id, session)
}

// RemoveSession removes the session with the given id from the server. It is
// safe for concurrent use.
//
// Parameters:
//   - id: The session ID to remove
//
// Returns:
//   - The removed session and true if it was registered
func (s *TCPServer) RemoveSession(id uint32) (TCPServerSession, bool) {
	return s.Sessions.Delete(id)
}

// GetSession returns the session for the given id, if present.
//
// Parameters:
//   - id: The session ID to look up
//
// Returns:
//   - The session and true if found, or a zero value and false otherwise
func (s *TCPServer) GetSession(id uint32) (TCPServerSession, bool) {
	return s.Sessions.Get(id)
}

// SessionCount returns the number of registered sessions.
func (s *TCPServer) SessionCount() int {
	return s.Sessions.Len()
}

// Broadcast sends data to every registered session and returns the number
// of sessions that accepted it.
func (s *TCPServer) Broadcast(data []byte) int {
	sent := 0
	s.Sessions.Range(func(id uint32, session TCPServerSession) bool {
		if err := session.Send(data); err != nil {
			s.Logger.Debug("broadcast send failed",
				logger.Field{Key: "session", Value: id},
				logger.Field{Key: "error", Value: err})
			return true
		}
		sent++
		return true
	})

	return sent
}

// AcceptLoop accepts incoming connections until the listener is closed. For
// each connection it assigns an ID via IdGenerator, creates a session with
// NewSession, registers it and runs session.Handle in a new goroutine.
func (s *TCPServer) AcceptLoop() {
	defer close(s.done)

	for s.Running.Load() {
		conn, err := s.Listener.Accept()
		if err != nil {
			if !s.Running.Load() || errors.Is(err, net.ErrClosed) {
				return
			}

			s.Logger.Error(fmt.Sprintf("%s server accept error", s.Name), logger.Field{Key: "error", Value: err})
			continue
		}

		id := s.IdGenerator.Id()
		session := s.NewSession(id, conn)
		s.AddSession(id, session)
		go s.serve(id, session)
	}
}

// serve runs the session and unregisters it when Handle returns.
func (s *TCPServer) serve(id uint32, session TCPServerSession) {
	defer s.RemoveSession(id)
	session.Handle()
}
