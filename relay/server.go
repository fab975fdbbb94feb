package relay

import (
	"errors"
	"fmt"
	"net"
	"sync"

	"github.com/sirupsen/logrus"
)

// Server accepts incoming connections and owns the room registry. It is an
// explicit instance with injected lifecycle: construct, Listen, Serve, Close.
// Nothing about it is ambient or global.
type Server struct {
	ln net.Listener

	mu    sync.Mutex
	rooms map[string]*Room

	closeOnce sync.Once
	closed    chan struct{}
}

// NewServer creates a relay server with an empty room registry.
func NewServer() *Server {
	return &Server{
		rooms:  make(map[string]*Room),
		closed: make(chan struct{}),
	}
}

// Listen binds the server to addr without accepting yet. Useful when the
// caller needs the bound address (e.g. ":0" in tests) before serving.
func (s *Server) Listen(addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", addr, err)
	}
	s.ln = ln

	logrus.WithFields(logrus.Fields{
		"addr": ln.Addr().String(),
	}).Info("relay listening")

	return nil
}

// Addr returns the bound listen address. Valid after Listen.
func (s *Server) Addr() net.Addr {
	return s.ln.Addr()
}

// Serve accepts connections until Close, running one handler goroutine per
// connection. It returns ErrServerClosed after a clean shutdown.
func (s *Server) Serve() error {
	for {
		conn, err := s.ln.Accept()
		if err != nil {
			select {
			case <-s.closed:
				return ErrServerClosed
			default:
			}
			if errors.Is(err, net.ErrClosed) {
				return ErrServerClosed
			}
			logrus.WithFields(logrus.Fields{
				"error": err.Error(),
			}).Warn("accept failed")
			continue
		}

		go s.handle(conn)
	}
}

// ListenAndServe is Listen followed by Serve.
func (s *Server) ListenAndServe(addr string) error {
	if err := s.Listen(addr); err != nil {
		return err
	}
	return s.Serve()
}

// Close stops accepting. In-flight handlers finish on their own as their
// connections drain or fail.
func (s *Server) Close() error {
	var err error
	s.closeOnce.Do(func() {
		close(s.closed)
		if s.ln != nil {
			err = s.ln.Close()
		}
	})
	return err
}

// createRoom mints a fresh code, retrying on collision against live codes,
// and registers a new room for it. This is the only path that mints a
// symmetric key.
func (s *Server) createRoom() (*Room, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for {
		code, err := newRoomCode()
		if err != nil {
			return nil, fmt.Errorf("mint room code: %w", err)
		}
		if _, live := s.rooms[code]; live {
			continue
		}

		room, err := NewRoom(code)
		if err != nil {
			return nil, err
		}
		s.rooms[code] = room

		logrus.WithFields(logrus.Fields{
			"room": code,
		}).Info("room created")

		return room, nil
	}
}

// lookupRoom returns the live room for code, if any.
func (s *Server) lookupRoom(code string) (*Room, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	room, ok := s.rooms[code]
	return room, ok
}

// dropRoomIfEmpty deletes the registry entry iff the room's member set is
// empty, freeing the code for immediate reuse.
func (s *Server) dropRoomIfEmpty(code string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	room, ok := s.rooms[code]
	if !ok || room.MemberCount() != 0 {
		return
	}
	delete(s.rooms, code)

	logrus.WithFields(logrus.Fields{
		"room": code,
	}).Info("room destroyed")
}

// RoomCount reports the number of live rooms.
func (s *Server) RoomCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.rooms)
}
