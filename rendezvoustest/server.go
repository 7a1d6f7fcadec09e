// Package rendezvoustest provides an in-process rendezvous server fixture for
// testing clients of the rendezvous protocol. The fixture speaks the server
// side of the wire protocol faithfully: it performs the handshake, serves the
// initial snapshot, and relays add / remove updates to every connected client
// (including an echo to the originating client, on which the protocol's
// single-writer table discipline depends).
package rendezvoustest

import (
	"context"
	"net"
	"sync"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"

	"go.rendezvous.dev/core/keepalive"
	pr "go.rendezvous.dev/core/protocol"
	"go.rendezvous.dev/core/task"
)

// Server is a lightweight, embedded rendezvous server suitable for testing
// client functionality which requires a live protocol peer.
type Server struct {
	// Tasks of the Server's accept and per-connection read loops.
	Tasks *task.Group

	listener net.Listener
	version  int16

	connWG sync.WaitGroup

	mu        sync.Mutex
	processes map[string]pr.Process
	owned     map[net.Conn]map[string]bool // Names advertised over each connection.
	conns     map[net.Conn]bool
}

// NewServer builds and returns a Server listening on the loopback interface.
func NewServer(t require.TestingT) *Server {
	return newServer(t, pr.Version)
}

// NewMismatchedServer builds and returns a Server which declares an
// incompatible protocol version, for exercising handshake failure paths.
func NewMismatchedServer(t require.TestingT) *Server {
	return newServer(t, pr.Version+1)
}

func newServer(t require.TestingT, version int16) *Server {
	var tcp, err = net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	var s = &Server{
		Tasks:     task.NewGroup(context.Background()),
		listener:  keepalive.TCPListener{TCPListener: tcp.(*net.TCPListener)},
		version:   version,
		processes: make(map[string]pr.Process),
		owned:     make(map[net.Conn]map[string]bool),
		conns:     make(map[net.Conn]bool),
	}
	s.Tasks.Queue("rendezvoustest.serve", s.serve)
	s.Tasks.GoRun()
	return s
}

// Address returns the host:port on which the Server is listening.
func (s *Server) Address() (host string, port int) {
	var addr = s.listener.Addr().(*net.TCPAddr)
	return addr.IP.String(), addr.Port
}

// Advertise inserts |process| as though a connected participant advertised
// it, broadcasting the addition to all connected clients.
func (s *Server) Advertise(process pr.Process) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.processes[process.Name] = process
	s.broadcastAdd(process)
}

// Withdraw removes the named process, broadcasting the removal to all
// connected clients. As with the real server, the removal is relayed even if
// the name was never advertised: clients are expected to treat such a removal
// as a terminal listener error.
func (s *Server) Withdraw(name string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.processes, name)
	s.broadcastRemove(name)
}

// Stop closes the Server listener and all connections, and waits for its
// tasks to complete.
func (s *Server) Stop(t require.TestingT) {
	_ = s.listener.Close()

	s.mu.Lock()
	for conn := range s.conns {
		_ = conn.Close()
	}
	s.mu.Unlock()

	s.connWG.Wait()
	require.NoError(t, s.Tasks.Wait())
}

// serve accepts connections until the listener is closed.
func (s *Server) serve() error {
	for {
		var conn, err = s.listener.Accept()
		if err != nil {
			if errors.Is(err, net.ErrClosed) {
				return nil
			}
			return errors.Wrap(err, "accepting connection")
		}
		// Connections are served outside the task Group, which cannot Queue
		// after GoRun. Stop closes them and waits via connWG.
		s.connWG.Add(1)
		go func() {
			defer s.connWG.Done()
			s.serveConn(conn)
		}()
	}
}

// serveConn performs the server side of the handshake, writes the initial
// snapshot, and then relays the client's updates until it disconnects.
func (s *Server) serveConn(conn net.Conn) {
	defer s.dropConn(conn)

	// Handshake: read the client's declared version before writing ours,
	// then abandon the connection on a mismatch.
	var peer, err = pr.ReadInt16(conn)
	if err != nil {
		return
	} else if err = pr.WriteInt16(conn, s.version); err != nil {
		return
	} else if peer != s.version {
		log.WithFields(log.Fields{"peer": peer, "local": s.version}).
			Info("client protocol mismatch")
		return
	}

	// Atomically write the snapshot and register the connection for update
	// broadcasts, so the client observes every update exactly once.
	s.mu.Lock()
	err = pr.WriteString(conn, conn.RemoteAddr().String())
	if err == nil {
		err = pr.WriteInt32(conn, int32(len(s.processes)))
	}
	for _, p := range s.processes {
		if err != nil {
			break
		}
		err = pr.WriteAddProcess(conn, p)
	}
	if err == nil {
		s.conns[conn] = true
		s.owned[conn] = make(map[string]bool)
	}
	s.mu.Unlock()

	if err != nil {
		log.WithField("err", err).Info("failed to write snapshot")
		return
	}

	for {
		var update, err = pr.ReadUpdate(conn)
		if err != nil {
			return // Connection closed, or an undecodable frame.
		}

		switch update.Tag {
		case pr.UpdateDisconnect:
			return
		case pr.UpdateAddProcess:
			s.mu.Lock()
			s.processes[update.Process.Name] = update.Process
			s.owned[conn][update.Process.Name] = true
			s.broadcastAdd(update.Process)
			s.mu.Unlock()
		case pr.UpdateRemoveProcess:
			s.mu.Lock()
			delete(s.processes, update.Name)
			delete(s.owned[conn], update.Name)
			s.broadcastRemove(update.Name)
			s.mu.Unlock()
		}
	}
}

// dropConn de-registers |conn| and withdraws the processes it advertised,
// notifying remaining clients of their removal.
func (s *Server) dropConn(conn net.Conn) {
	_ = conn.Close()

	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.conns, conn)
	for name := range s.owned[conn] {
		delete(s.processes, name)
		s.broadcastRemove(name)
	}
	delete(s.owned, conn)
}

// broadcastAdd relays an add-process update to all registered connections.
// s.mu must be held.
func (s *Server) broadcastAdd(process pr.Process) {
	for conn := range s.conns {
		if err := pr.WriteAddProcess(conn, process); err != nil {
			log.WithFields(log.Fields{"err": err, "process": process.Name}).
				Info("failed to relay add-process update")
		}
	}
}

// broadcastRemove relays a remove-process update to all registered
// connections. s.mu must be held.
func (s *Server) broadcastRemove(name string) {
	for conn := range s.conns {
		if err := pr.WriteRemoveProcess(conn, name); err != nil {
			log.WithFields(log.Fields{"err": err, "process": name}).
				Info("failed to relay remove-process update")
		}
	}
}
