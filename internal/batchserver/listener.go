// Package batchserver supplies the out-of-process transport surface for
// the "serve" daemon: a systemd-socket-activated net.Listener, falling
// back to binding addr directly when not launched under systemd. The MCP
// surface's streamable-HTTP transport runs on whichever listener this
// hands back.
package batchserver

import (
	"fmt"
	"net"

	"github.com/coreos/go-systemd/v22/activation"

	"github.com/geopm-project/platformio-go/pkg/logging"
)

// Listen returns a net.Listener for the serve daemon: the first listener
// handed to the process by systemd socket activation, if any, otherwise
// a freshly bound TCP listener on addr.
func Listen(addr string) (net.Listener, error) {
	listeners, err := activation.Listeners()
	if err != nil {
		logging.Warn("BatchServer", "systemd activation check failed, binding %s directly: %v", addr, err)
	} else if len(listeners) > 0 {
		logging.Info("BatchServer", "using systemd-activated listener (%d provided, using the first)", len(listeners))
		return listeners[0], nil
	}

	l, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("batchserver: listen on %s: %w", addr, err)
	}
	return l, nil
}
