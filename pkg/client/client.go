// Package client is a Go client for the winvd control endpoint served
// by "winvd serve". One client holds one connection; calls are
// serialized request/response exchanges over it.
package client

import (
	"encoding/json"
	"fmt"
	"net"
	"strconv"
	"sync"
	"time"

	"github.com/winvd/winvd/internal/ipc"
	"github.com/winvd/winvd/internal/vdapi"
)

// DefaultTimeout bounds a single request/response exchange.
const DefaultTimeout = 30 * time.Second

// ServerError is a classified failure reported by the daemon.
type ServerError struct {
	Kind    ipc.ErrorKind
	Message string
	ID      string
}

func (e *ServerError) Error() string {
	return e.Message
}

// IsNotFound reports whether the daemon rejected an identifier.
func (e *ServerError) IsNotFound() bool {
	return e.Kind == ipc.ErrKindNotFound
}

type dialFunc func(endpoint string, timeout time.Duration) (net.Conn, error)

type Client struct {
	endpoint string
	timeout  time.Duration
	dial     dialFunc

	mu   sync.Mutex
	conn *ipc.Conn
	seq  uint64
}

type Option func(*Client)

// WithTimeout overrides the per-exchange deadline.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.timeout = d }
}

// NewClient builds a client for the endpoint. The connection is opened
// lazily on the first call.
func NewClient(endpoint string, opts ...Option) *Client {
	c := &Client{
		endpoint: endpoint,
		timeout:  DefaultTimeout,
		dial:     dialEndpoint,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Close drops the connection. The client may be reused; the next call
// reconnects.
func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.conn == nil {
		return nil
	}
	err := c.conn.Close()
	c.conn = nil
	return err
}

// ListDesktops returns every virtual desktop known to the daemon.
func (c *Client) ListDesktops() ([]vdapi.VirtualDesktop, error) {
	var resp ipc.DesktopsResponse
	if err := c.roundTrip(ipc.TypeListDesktops, nil, &resp); err != nil {
		return nil, err
	}
	return resp.Desktops, nil
}

// CurrentDesktop returns the active desktop; ok is false when the
// shell reports none.
func (c *Client) CurrentDesktop() (vdapi.VirtualDesktop, bool, error) {
	var resp ipc.DesktopResponse
	if err := c.roundTrip(ipc.TypeCurrentDesktop, nil, &resp); err != nil {
		return vdapi.VirtualDesktop{}, false, err
	}
	return resp.Desktop, resp.Present, nil
}

// SwitchDesktop activates the desktop with the given id.
func (c *Client) SwitchDesktop(id vdapi.DesktopID) error {
	return c.roundTrip(ipc.TypeSwitchDesktop, ipc.SwitchRequest{DesktopID: id.String()}, nil)
}

// SwitchNext activates the desktop to the right, wrapping around.
func (c *Client) SwitchNext() (bool, error) {
	var resp ipc.SwitchedResponse
	if err := c.roundTrip(ipc.TypeSwitchNext, nil, &resp); err != nil {
		return false, err
	}
	return resp.Switched, nil
}

// SwitchPrevious activates the desktop to the left, wrapping around.
func (c *Client) SwitchPrevious() (bool, error) {
	var resp ipc.SwitchedResponse
	if err := c.roundTrip(ipc.TypeSwitchPrev, nil, &resp); err != nil {
		return false, err
	}
	return resp.Switched, nil
}

// CreateDesktop makes a new desktop, optionally named.
func (c *Client) CreateDesktop(name string) (vdapi.VirtualDesktop, error) {
	var resp ipc.DesktopResponse
	if err := c.roundTrip(ipc.TypeCreateDesktop, ipc.CreateRequest{Name: name}, &resp); err != nil {
		return vdapi.VirtualDesktop{}, err
	}
	return resp.Desktop, nil
}

// RemoveDesktop deletes the desktop with the given id.
func (c *Client) RemoveDesktop(id vdapi.DesktopID) error {
	return c.roundTrip(ipc.TypeRemoveDesktop, ipc.RemoveRequest{DesktopID: id.String()}, nil)
}

// MoveWindow reassigns a top-level window to the desktop.
func (c *Client) MoveWindow(handle vdapi.WindowHandle, id vdapi.DesktopID) error {
	req := ipc.MoveWindowRequest{Handle: uint64(handle), DesktopID: id.String()}
	return c.roundTrip(ipc.TypeMoveWindow, req, nil)
}

// ListWindows returns window snapshots matching the filter. The zero
// filter lists everything.
func (c *Client) ListWindows(filter ipc.ListWindowsRequest) ([]vdapi.Window, error) {
	var resp ipc.WindowsResponse
	if err := c.roundTrip(ipc.TypeListWindows, filter, &resp); err != nil {
		return nil, err
	}
	return resp.Windows, nil
}

// Refresh forces the daemon to re-enumerate windows.
func (c *Client) Refresh() error {
	return c.roundTrip(ipc.TypeRefresh, nil, nil)
}

// Ping checks daemon liveness and returns its protocol and OS details.
func (c *Client) Ping() (*ipc.PingResponse, error) {
	var resp ipc.PingResponse
	if err := c.roundTrip(ipc.TypePing, nil, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// roundTrip sends one request and decodes the matching response into
// out (when non-nil). A transport failure drops the connection so the
// next call starts clean.
func (c *Client) roundTrip(msgType string, payload, out any) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	conn, err := c.connLocked()
	if err != nil {
		return err
	}

	c.seq++
	id := strconv.FormatUint(c.seq, 10)

	if err := conn.SetDeadline(time.Now().Add(c.timeout)); err != nil {
		return fmt.Errorf("client: set deadline: %w", err)
	}

	env := &ipc.Envelope{ID: id, Type: msgType}
	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("client: marshal request: %w", err)
		}
		env.Payload = raw
	}
	if err := conn.Send(env); err != nil {
		c.dropLocked()
		return fmt.Errorf("client: send request: %w", err)
	}

	resp, err := conn.Recv()
	if err != nil {
		c.dropLocked()
		return fmt.Errorf("client: read response: %w", err)
	}
	if resp.ID != id {
		c.dropLocked()
		return fmt.Errorf("client: response id %q does not match request %q", resp.ID, id)
	}
	if resp.Error != nil {
		return &ServerError{Kind: resp.Error.Kind, Message: resp.Error.Message, ID: resp.Error.ID}
	}
	if out != nil {
		if err := json.Unmarshal(resp.Payload, out); err != nil {
			return fmt.Errorf("client: decode response: %w", err)
		}
	}
	return nil
}

func (c *Client) connLocked() (*ipc.Conn, error) {
	if c.conn != nil {
		return c.conn, nil
	}
	raw, err := c.dial(c.endpoint, c.timeout)
	if err != nil {
		return nil, fmt.Errorf("client: connect to %s: %w", c.endpoint, err)
	}
	c.conn = ipc.NewConn(raw)
	return c.conn, nil
}

func (c *Client) dropLocked() {
	if c.conn != nil {
		c.conn.Close()
		c.conn = nil
	}
}
