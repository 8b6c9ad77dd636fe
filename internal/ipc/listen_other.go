//go:build !windows

package ipc

import (
	"net"
	"os"
)

// listen opens a unix socket control endpoint. The session itself is
// unsupported off Windows, but the endpoint keeps the daemon testable
// everywhere.
func listen(endpoint string) (net.Listener, error) {
	// A stale socket from a previous run would fail the bind.
	if err := os.Remove(endpoint); err != nil && !os.IsNotExist(err) {
		return nil, err
	}
	return net.Listen("unix", endpoint)
}
