//go:build windows

package ipc

import (
	"net"

	"github.com/Microsoft/go-winio"
)

// listen opens the named-pipe control endpoint. The security
// descriptor restricts the pipe to the owner and SYSTEM; the desktop
// handles belong to the interactive session and must not be driven by
// other users.
func listen(endpoint string) (net.Listener, error) {
	cfg := &winio.PipeConfig{
		SecurityDescriptor: "D:P(A;;GA;;;SY)(A;;GA;;;OW)",
		MessageMode:        false,
		InputBufferSize:    65536,
		OutputBufferSize:   65536,
	}
	return winio.ListenPipe(endpoint, cfg)
}
