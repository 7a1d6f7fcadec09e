// Package mainboilerplate contains shared boilerplate for this project's
// programs: configuration parsing, logging initialization, and error
// handling at the main level.
package mainboilerplate

import (
	log "github.com/sirupsen/logrus"
)

// Version and BuildDate of this program. Set at build time via the linker,
// eg -ldflags "-X go.rendezvous.dev/core/mainboilerplate.Version=v1.2.3".
var (
	Version   = "development"
	BuildDate = "unknown"
)

// Must panics if |err| is non-nil, logging the error along with |msg| and
// key/value pairs of |extra| context.
func Must(err error, msg string, extra ...interface{}) {
	if err == nil {
		return
	}
	var f = log.Fields{"err": err}
	for i := 0; i+1 < len(extra); i += 2 {
		f[extra[i].(string)] = extra[i+1]
	}
	log.WithFields(f).Panic(msg)
}
