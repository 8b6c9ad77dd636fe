//go:build windows

package client

import (
	"net"
	"time"

	"github.com/Microsoft/go-winio"
)

func dialEndpoint(endpoint string, timeout time.Duration) (net.Conn, error) {
	return winio.DialPipe(endpoint, &timeout)
}
