// Package client implements the client side of the rendezvous protocol:
// connection establishment and handshake, initial synchronization of the
// rendezvous table, a background listener which applies incremental updates,
// and the advertise / withdraw control operations.
package client

import (
	"bytes"
	"context"
	"net"
	"strconv"
	"sync"
	"sync/atomic"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"

	"go.rendezvous.dev/core/keepalive"
	"go.rendezvous.dev/core/metrics"
	pr "go.rendezvous.dev/core/protocol"
	"go.rendezvous.dev/core/task"
)

// Config configures a rendezvous Client.
type Config struct {
	// Host of the rendezvous server.
	Host string
	// Port of the rendezvous server. If zero, protocol.DefaultPort is used.
	Port int
	// OnProcessAdded, if set, is invoked with each Process added by an
	// applied update. Invocations occur on the listener goroutine, after the
	// table has been updated, and never on the caller's goroutine. A slow
	// callback stalls the processing of further updates.
	OnProcessAdded func(pr.Process)
	// OnProcessRemoved, if set, is invoked with each Process removed by an
	// applied update, under the same regime as OnProcessAdded.
	OnProcessRemoved func(pr.Process)
}

// Client is a connection to a rendezvous server, holding a local mirror of
// the set of processes the server knows of. The mirror is populated with a
// full snapshot before Connect returns, and is thereafter mutated only by the
// background update listener: Advertise and Withdraw send frames to the
// server, and the table reflects them once the server's echo is read back.
type Client struct {
	cfg  Config
	conn net.Conn

	// clientAddress is the dialed address as observed by the server.
	clientAddress string

	wrMu sync.Mutex // Serializes writes of outbound frames.

	mu        sync.Mutex // Guards processes and err.
	processes map[string]pr.Process
	err       error

	tasks   *task.Group
	doneCh  chan struct{}
	closing atomic.Bool
}

// NewClient returns a Client of the configured rendezvous server.
// It must be Connected before use.
func NewClient(cfg Config) *Client {
	if cfg.Port == 0 {
		cfg.Port = pr.DefaultPort
	}
	return &Client{
		cfg:       cfg,
		processes: make(map[string]pr.Process),
		doneCh:    make(chan struct{}),
	}
}

// Connect dials the rendezvous server, performs the protocol handshake,
// synchronizes the full set of processes currently known to the server, and
// then starts the background update listener. When Connect returns without
// error the table reflects the server's membership, and is kept current until
// the connection closes. |ctx| bounds only the dial: the connection itself
// has no deadline, and is torn down by Close.
func (c *Client) Connect(ctx context.Context) error {
	var addr = net.JoinHostPort(c.cfg.Host, strconv.Itoa(c.cfg.Port))

	var conn, err = keepalive.Dialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		return errors.Wrapf(err, "dialing rendezvous server %s", addr)
	}
	c.conn = conn

	if err = pr.Handshake(conn); err != nil {
		_ = conn.Close()
		return err
	}
	if err = c.synchronize(); err != nil {
		_ = conn.Close()
		return errors.WithMessage(err, "synchronizing")
	}
	metrics.RendezvousConnectsTotal.Inc()
	metrics.RendezvousProcesses.Set(float64(len(c.processes)))

	c.tasks = task.NewGroup(context.Background())
	c.tasks.Queue("client.listen", c.listen)
	c.tasks.GoRun()

	go func() {
		var err = c.tasks.Wait()
		c.mu.Lock()
		c.err = err
		c.mu.Unlock()
		close(c.doneCh)
	}()

	log.WithFields(log.Fields{
		"server":        addr,
		"clientAddress": c.clientAddress,
		"processes":     len(c.processes),
	}).Info("connected to rendezvous server")

	return nil
}

// synchronize reads the server's initial snapshot: the address it observes
// for this client, a count of processes, and then that many add-process
// updates. The listener hasn't started, so the table is accessed without
// locking.
func (c *Client) synchronize() error {
	var err error
	if c.clientAddress, err = pr.ReadString(c.conn); err != nil {
		return errors.Wrap(err, "reading client address")
	}
	var count int32
	if count, err = pr.ReadInt32(c.conn); err != nil {
		return errors.Wrap(err, "reading process count")
	} else if count < 0 {
		return errors.WithMessagef(pr.ErrProtocolViolation, "negative process count (%d)", count)
	}

	for ; count > 0; count-- {
		var update, err = pr.ReadUpdate(c.conn)
		if err != nil {
			return err
		} else if update.Tag != pr.UpdateAddProcess {
			return errors.WithMessagef(pr.ErrProtocolViolation,
				"expected add-process update within snapshot (tag %d)", update.Tag)
		}
		c.processes[update.Process.Name] = update.Process
	}
	return nil
}

// listen reads and applies update frames until the server sends a disconnect
// frame, a frame fails to decode, or the connection closes. It's the sole
// writer of the table after Connect returns.
func (c *Client) listen() error {
	for {
		var update, err = pr.ReadUpdate(c.conn)
		if err != nil {
			if c.closing.Load() {
				return nil // Close tore down the connection.
			}
			return errors.Wrap(err, "reading update")
		}

		switch update.Tag {
		case pr.UpdateDisconnect:
			log.WithField("server", c.conn.RemoteAddr()).Info("rendezvous server disconnected")
			return nil

		case pr.UpdateAddProcess:
			c.mu.Lock()
			c.processes[update.Process.Name] = update.Process
			metrics.RendezvousProcesses.Set(float64(len(c.processes)))
			c.mu.Unlock()
			metrics.RendezvousUpdatesTotal.WithLabelValues(metrics.Add).Inc()

			if c.cfg.OnProcessAdded != nil {
				c.cfg.OnProcessAdded(update.Process)
			}

		case pr.UpdateRemoveProcess:
			c.mu.Lock()
			var removed, ok = c.processes[update.Name]
			delete(c.processes, update.Name)
			metrics.RendezvousProcesses.Set(float64(len(c.processes)))
			c.mu.Unlock()

			if !ok {
				return errors.WithMessagef(pr.ErrUnknownProcess, "removing %q", update.Name)
			}
			metrics.RendezvousUpdatesTotal.WithLabelValues(metrics.Remove).Inc()

			if c.cfg.OnProcessRemoved != nil {
				c.cfg.OnProcessRemoved(removed)
			}
		}
	}
}

// Advertise announces |process| to the rendezvous server. The local table is
// not directly mutated: the server echoes the addition back to every client,
// including this one, and the table reflects it once the listener applies
// that echo. Advertising a name which is already known replaces its record.
func (c *Client) Advertise(process pr.Process) error {
	if err := process.Validate(); err != nil {
		return pr.ExtendContext(err, "Process")
	}
	var buf bytes.Buffer
	if err := pr.WriteAddProcess(&buf, process); err != nil {
		return err
	}
	return c.send(buf.Bytes(), "advertising process")
}

// Withdraw retracts the named process from the rendezvous server, under the
// same echo regime as Advertise. Withdrawing a name which no peer has
// advertised is a protocol violation which terminates every listener the
// server echoes it to, so callers should withdraw only names they advertised.
func (c *Client) Withdraw(name string) error {
	if err := pr.ExtendContext(validateName(name), "Name"); err != nil {
		return err
	}
	var buf bytes.Buffer
	if err := pr.WriteRemoveProcess(&buf, name); err != nil {
		return err
	}
	return c.send(buf.Bytes(), "withdrawing process")
}

func validateName(name string) error {
	if name == "" {
		return pr.NewValidationError("must be non-empty")
	} else if len(name) > pr.MaxStringLen {
		return pr.NewValidationError("exceeds %d wire bytes (length %d)", pr.MaxStringLen, len(name))
	}
	return nil
}

// send writes one complete, pre-encoded frame to the connection.
func (c *Client) send(frame []byte, op string) error {
	c.wrMu.Lock()
	defer c.wrMu.Unlock()
	var _, err = c.conn.Write(frame)
	return errors.Wrap(err, op)
}

// Close sends a disconnect frame to the server, closes the connection, and
// waits for the listener to exit. Close may be called at most once, and only
// after a successful Connect.
func (c *Client) Close() error {
	if !c.closing.CompareAndSwap(false, true) {
		return errors.New("client is already closed")
	}

	// Send of the disconnect frame is best-effort: the connection may
	// already be gone, in which case closing it is all that remains.
	c.wrMu.Lock()
	_ = pr.WriteDisconnect(c.conn)
	c.wrMu.Unlock()

	var err = c.conn.Close()
	<-c.doneCh
	return err
}

// Processes returns a point-in-time snapshot of the rendezvous table, keyed
// by process name.
func (c *Client) Processes() map[string]pr.Process {
	c.mu.Lock()
	defer c.mu.Unlock()

	var out = make(map[string]pr.Process, len(c.processes))
	for name, p := range c.processes {
		out[name] = p
	}
	return out
}

// Lookup returns the named Process and whether it's currently in the table.
func (c *Client) Lookup(name string) (pr.Process, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	var p, ok = c.processes[name]
	return p, ok
}

// ClientAddress returns the address the server reported observing for this
// client. It's available after Connect.
func (c *Client) ClientAddress() string { return c.clientAddress }

// Done returns a channel which closes once the update listener has exited
// and no further updates or callbacks will be delivered. Listener failures
// are never raised on the caller's goroutine: monitor Done and Err to detect
// them.
func (c *Client) Done() <-chan struct{} { return c.doneCh }

// Err returns the listener's terminal error. It's nil until Done is closed,
// and remains nil if the listener exited through a server disconnect frame or
// a local Close.
func (c *Client) Err() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.err
}
