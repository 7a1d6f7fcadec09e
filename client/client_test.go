package client_test

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"go.rendezvous.dev/core/client"
	pr "go.rendezvous.dev/core/protocol"
	"go.rendezvous.dev/core/rendezvoustest"
)

func TestConnectSynchronizesExistingProcesses(t *testing.T) {
	var srv = rendezvoustest.NewServer(t)
	defer srv.Stop(t)

	srv.Advertise(processFixture("camera1"))
	srv.Advertise(processFixture("detector"))

	var c = connectClient(t, srv, client.Config{})

	var table = c.Processes()
	require.Len(t, table, 2)
	assert.Equal(t, processFixture("camera1"), table["camera1"])
	assert.Equal(t, processFixture("detector"), table["detector"])
	assert.NotEmpty(t, c.ClientAddress())

	require.NoError(t, c.Close())
	assert.NoError(t, c.Err())
}

func TestConnectWithMismatchedServerVersion(t *testing.T) {
	var srv = rendezvoustest.NewMismatchedServer(t)
	defer srv.Stop(t)

	var host, port = srv.Address()
	var c = client.NewClient(client.Config{Host: host, Port: port})

	var err = c.Connect(context.Background())
	require.ErrorIs(t, err, pr.ErrProtocolMismatch)
}

func TestAddAndRemoveLifecycle(t *testing.T) {
	var srv = rendezvoustest.NewServer(t)
	defer srv.Stop(t)

	var addedCh = make(chan pr.Process, 4)
	var removedCh = make(chan pr.Process, 4)

	var c = connectClient(t, srv, client.Config{
		OnProcessAdded:   func(p pr.Process) { addedCh <- p },
		OnProcessRemoved: func(p pr.Process) { removedCh <- p },
	})
	require.Empty(t, c.Processes())

	var camera1 = pr.Process{
		Name:    "camera1",
		Version: "1.0",
		Endpoints: []pr.Endpoint{
			pr.TCPSource{
				Host:    "10.0.0.5",
				Port:    5000,
				Streams: []pr.Stream{{Name: "rgb", Type: "image"}},
			},
		},
	}
	srv.Advertise(camera1)
	assert.Equal(t, camera1, nextProcess(t, addedCh))

	var p, ok = c.Lookup("camera1")
	require.True(t, ok)
	var tcp = p.Endpoints[0].(pr.TCPSource)
	assert.Equal(t, int32(5000), tcp.Port)
	assert.Equal(t, "image", tcp.Streams[0].Type)

	srv.Withdraw("camera1")
	assert.Equal(t, camera1, nextProcess(t, removedCh))

	_, ok = c.Lookup("camera1")
	assert.False(t, ok)

	require.NoError(t, c.Close())
	assert.NoError(t, c.Err())
}

func TestAdvertiseAppliesThroughServerEcho(t *testing.T) {
	var srv = rendezvoustest.NewServer(t)
	defer srv.Stop(t)

	var added1 = make(chan pr.Process, 2)
	var added2 = make(chan pr.Process, 2)
	var removed2 = make(chan pr.Process, 2)

	var c1 = connectClient(t, srv, client.Config{
		OnProcessAdded: func(p pr.Process) { added1 <- p },
	})
	var c2 = connectClient(t, srv, client.Config{
		OnProcessAdded:   func(p pr.Process) { added2 <- p },
		OnProcessRemoved: func(p pr.Process) { removed2 <- p },
	})

	var fixture = processFixture("camera1")
	require.NoError(t, c1.Advertise(fixture))

	// The advertising client's own table updates only via the server echo,
	// and all other clients observe the same update.
	assert.Equal(t, fixture, nextProcess(t, added1))
	assert.Equal(t, fixture, nextProcess(t, added2))

	var p, ok = c1.Lookup("camera1")
	require.True(t, ok)
	assert.Equal(t, fixture, p)

	require.NoError(t, c1.Withdraw("camera1"))
	assert.Equal(t, fixture, nextProcess(t, removed2))

	require.NoError(t, c1.Close())
	require.NoError(t, c2.Close())
}

func TestUpdatesApplyInOrder(t *testing.T) {
	var srv = rendezvoustest.NewServer(t)
	defer srv.Stop(t)

	var addedCh = make(chan pr.Process, 8)
	var removedCh = make(chan pr.Process, 8)
	var c = connectClient(t, srv, client.Config{
		OnProcessAdded:   func(p pr.Process) { addedCh <- p },
		OnProcessRemoved: func(p pr.Process) { removedCh <- p },
	})

	var v1 = versionedFixture("worker", "1")
	var v2 = versionedFixture("worker", "2")
	var v3 = versionedFixture("worker", "3")

	// Add, overwrite, remove, and re-add under the same name. Updates are
	// order-dependent: the table must land on the final state.
	srv.Advertise(v1)
	srv.Advertise(v2)
	srv.Withdraw("worker")
	srv.Advertise(v3)

	assert.Equal(t, v1, nextProcess(t, addedCh))
	assert.Equal(t, v2, nextProcess(t, addedCh))
	assert.Equal(t, v2, nextProcess(t, removedCh))
	assert.Equal(t, v3, nextProcess(t, addedCh))

	var p, ok = c.Lookup("worker")
	require.True(t, ok)
	assert.Equal(t, v3, p)

	require.NoError(t, c.Close())
}

func TestRemoveOfUnknownProcessFailsListener(t *testing.T) {
	var srv = rendezvoustest.NewServer(t)
	defer srv.Stop(t)

	var c = connectClient(t, srv, client.Config{})
	srv.Withdraw("nonesuch")

	waitDone(t, c)
	require.ErrorIs(t, c.Err(), pr.ErrUnknownProcess)

	require.NoError(t, c.Close())
}

func TestProtocolViolationTerminatesListener(t *testing.T) {
	var c = connectRawServer(t, func(conn net.Conn) {
		require.NoError(t, pr.WriteByte(conn, 9)) // Not an update tag.
	})

	waitDone(t, c)
	require.ErrorIs(t, c.Err(), pr.ErrProtocolViolation)
	require.NoError(t, c.Close())
}

func TestServerDisconnectEndsListenerCleanly(t *testing.T) {
	var c = connectRawServer(t, func(conn net.Conn) {
		require.NoError(t, pr.WriteDisconnect(conn))
	})

	waitDone(t, c)
	assert.NoError(t, c.Err())
	require.NoError(t, c.Close())
}

func TestOutboundValidation(t *testing.T) {
	var c = client.NewClient(client.Config{Host: "localhost"})

	// Validation fails before any connection use, so an unconnected client
	// suffices.
	var longName = string(make([]byte, 128))
	var err = c.Advertise(pr.Process{Name: longName})
	assert.EqualError(t, err, "Process.Name: exceeds 127 wire bytes (length 128)")

	err = c.Advertise(pr.Process{Name: "p", Endpoints: []pr.Endpoint{
		pr.TCPSource{Host: "h", Port: -1}}})
	assert.EqualError(t, err, "Process.Endpoints[0].Port: invalid port (-1; expected 0 <= port <= 65535)")

	assert.EqualError(t, c.Withdraw(""), "Name: must be non-empty")
}

func TestDoubleCloseIsAnError(t *testing.T) {
	var srv = rendezvoustest.NewServer(t)
	defer srv.Stop(t)

	var c = connectClient(t, srv, client.Config{})
	require.NoError(t, c.Close())
	require.EqualError(t, c.Close(), "client is already closed")
}

// connectClient returns a Client connected to |srv| with |cfg| callbacks.
func connectClient(t *testing.T, srv *rendezvoustest.Server, cfg client.Config) *client.Client {
	cfg.Host, cfg.Port = srv.Address()

	var c = client.NewClient(cfg)
	require.NoError(t, c.Connect(context.Background()))
	return c
}

// connectRawServer starts a single-connection server which completes the
// handshake, writes an empty snapshot, then runs |fn| over the connection.
// It returns a connected Client.
func connectRawServer(t *testing.T, fn func(conn net.Conn)) *client.Client {
	var listener, err = net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	go func() {
		var conn, err = listener.Accept()
		require.NoError(t, err)
		defer listener.Close()

		var peer int16
		peer, err = pr.ReadInt16(conn)
		require.NoError(t, err)
		require.NoError(t, pr.WriteInt16(conn, peer))

		require.NoError(t, pr.WriteString(conn, conn.RemoteAddr().String()))
		require.NoError(t, pr.WriteInt32(conn, 0))

		fn(conn)
	}()

	var addr = listener.Addr().(*net.TCPAddr)
	var c = client.NewClient(client.Config{Host: addr.IP.String(), Port: addr.Port})
	require.NoError(t, c.Connect(context.Background()))
	return c
}

func nextProcess(t *testing.T, ch <-chan pr.Process) pr.Process {
	select {
	case p := <-ch:
		return p
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for a process callback")
		return pr.Process{}
	}
}

func waitDone(t *testing.T, c *client.Client) {
	select {
	case <-c.Done():
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for the listener to exit")
	}
}

func processFixture(name string) pr.Process {
	return versionedFixture(name, "1.0")
}

func versionedFixture(name, version string) pr.Process {
	return pr.Process{
		Name:    name,
		Version: version,
		Endpoints: []pr.Endpoint{
			pr.TCPSource{
				Host:    "10.0.0.5",
				Port:    5000,
				Streams: []pr.Stream{{Name: "rgb", Type: "image"}},
			},
		},
	}
}
