// Package keepalive provides a dialer and listener which arrange for TCP
// keep-alive probes of their connections. The rendezvous protocol has no read
// or write timeouts, so keep-alives are what eventually surface a dead peer
// as a connection error.
package keepalive

import (
	"net"
	"time"
)

// Dialer is a net.Dialer with keep-alive probes enabled. Its settings mirror
// those of http.DefaultTransport.
var Dialer = &net.Dialer{
	Timeout:   30 * time.Second,
	KeepAlive: 30 * time.Second,
}

// TCPListener sets TCP keep-alive timeouts on accepted connections, so that
// connections of dead clients (e.g., a pipeline host losing power
// mid-session) eventually go away.
type TCPListener struct {
	*net.TCPListener
}

func (ln TCPListener) Accept() (net.Conn, error) {
	var tc, err = ln.AcceptTCP()
	if err != nil {
		return nil, err
	}
	_ = tc.SetKeepAlive(true)
	_ = tc.SetKeepAlivePeriod(3 * time.Minute)
	return tc, nil
}
