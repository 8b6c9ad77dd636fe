package ipc

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"sync"

	"github.com/winvd/winvd/internal/logging"
	"github.com/winvd/winvd/internal/sta"
	"github.com/winvd/winvd/internal/vdapi"
)

var log = logging.L("ipc")

// desktopService is the desktop directory surface the server drives.
type desktopService interface {
	List() ([]vdapi.VirtualDesktop, error)
	Current() (vdapi.VirtualDesktop, bool, error)
	SwitchTo(vdapi.DesktopID) error
	SwitchNext() (bool, error)
	SwitchPrevious() (bool, error)
	Create(string) (vdapi.VirtualDesktop, error)
	Remove(vdapi.DesktopID) error
	MoveWindow(vdapi.WindowHandle, vdapi.DesktopID) error
}

// windowService is the window directory surface the server drives.
type windowService interface {
	ListAll() ([]vdapi.Window, error)
	ListForDesktop(vdapi.DesktopID) ([]vdapi.Window, error)
	ListByProcessID(uint32) ([]vdapi.Window, error)
	ListByProcessName(string) ([]vdapi.Window, error)
	ListVisible() ([]vdapi.Window, error)
	Refresh() error
}

// sessionInfo is what ping reports about the capability session.
type sessionInfo interface {
	BuildNumber() int
	NegotiatedInterface() string
}

// Server answers control requests against a session's directories.
// Desktop mutations are funneled through the dispatcher so they reach
// the capability handles on their apartment thread.
type Server struct {
	sess       sessionInfo
	desktops   desktopService
	windows    windowService
	dispatcher *sta.Dispatcher

	mu       sync.Mutex
	listener net.Listener
	wg       sync.WaitGroup
}

// NewServer wires a server over the given session and directories.
func NewServer(sess sessionInfo, desktops desktopService, windows windowService, dispatcher *sta.Dispatcher) *Server {
	return &Server{
		sess:       sess,
		desktops:   desktops,
		windows:    windows,
		dispatcher: dispatcher,
	}
}

// Serve accepts connections on the endpoint until ctx is cancelled.
func (s *Server) Serve(ctx context.Context, endpoint string) error {
	listener, err := listen(endpoint)
	if err != nil {
		return err
	}
	s.mu.Lock()
	s.listener = listener
	s.mu.Unlock()

	log.Info("control endpoint listening", "endpoint", endpoint)

	go func() {
		<-ctx.Done()
		listener.Close()
	}()

	for {
		conn, err := listener.Accept()
		if err != nil {
			if ctx.Err() != nil {
				s.wg.Wait()
				return nil
			}
			return err
		}
		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			s.handleConn(NewConn(conn))
		}()
	}
}

func (s *Server) handleConn(conn *Conn) {
	defer conn.Close()
	for {
		env, err := conn.Recv()
		if err != nil {
			return
		}
		s.handleRequest(conn, env)
	}
}

func (s *Server) handleRequest(conn *Conn, env *Envelope) {
	switch env.Type {
	case TypePing:
		conn.SendTyped(env.ID, TypePing, PingResponse{
			ProtocolVersion: ProtocolVersion,
			OSBuild:         s.sess.BuildNumber(),
			Interface:       s.sess.NegotiatedInterface(),
		})

	case TypeListDesktops:
		desks, err := s.listDesktops()
		if err != nil {
			conn.SendError(env.ID, env.Type, classify(err))
			return
		}
		conn.SendTyped(env.ID, env.Type, DesktopsResponse{Desktops: desks})

	case TypeCurrentDesktop:
		var resp DesktopResponse
		err := s.dispatcher.Do(func() error {
			cur, ok, err := s.desktops.Current()
			resp = DesktopResponse{Present: ok, Desktop: cur}
			return err
		})
		if err != nil {
			conn.SendError(env.ID, env.Type, classify(err))
			return
		}
		conn.SendTyped(env.ID, env.Type, resp)

	case TypeSwitchDesktop:
		id, ok := parseIDPayload(conn, env)
		if !ok {
			return
		}
		if err := s.dispatcher.Do(func() error { return s.desktops.SwitchTo(id) }); err != nil {
			conn.SendError(env.ID, env.Type, classify(err))
			return
		}
		conn.SendTyped(env.ID, env.Type, SwitchedResponse{Switched: true})

	case TypeSwitchNext, TypeSwitchPrev:
		var switched bool
		err := s.dispatcher.Do(func() error {
			var err error
			if env.Type == TypeSwitchNext {
				switched, err = s.desktops.SwitchNext()
			} else {
				switched, err = s.desktops.SwitchPrevious()
			}
			return err
		})
		if err != nil {
			conn.SendError(env.ID, env.Type, classify(err))
			return
		}
		conn.SendTyped(env.ID, env.Type, SwitchedResponse{Switched: switched})

	case TypeCreateDesktop:
		var req CreateRequest
		if env.Payload != nil {
			if err := json.Unmarshal(env.Payload, &req); err != nil {
				conn.SendError(env.ID, env.Type, badRequest(err))
				return
			}
		}
		var desk vdapi.VirtualDesktop
		err := s.dispatcher.Do(func() error {
			var err error
			desk, err = s.desktops.Create(req.Name)
			return err
		})
		if err != nil {
			conn.SendError(env.ID, env.Type, classify(err))
			return
		}
		conn.SendTyped(env.ID, env.Type, DesktopResponse{Present: true, Desktop: desk})

	case TypeRemoveDesktop:
		id, ok := parseIDPayload(conn, env)
		if !ok {
			return
		}
		if err := s.dispatcher.Do(func() error { return s.desktops.Remove(id) }); err != nil {
			conn.SendError(env.ID, env.Type, classify(err))
			return
		}
		conn.SendTyped(env.ID, env.Type, SwitchedResponse{Switched: true})

	case TypeMoveWindow:
		var req MoveWindowRequest
		if err := json.Unmarshal(env.Payload, &req); err != nil {
			conn.SendError(env.ID, env.Type, badRequest(err))
			return
		}
		id, err := vdapi.ParseDesktopID(req.DesktopID)
		if err != nil {
			conn.SendError(env.ID, env.Type, badRequest(err))
			return
		}
		err = s.dispatcher.Do(func() error {
			return s.desktops.MoveWindow(vdapi.WindowHandle(req.Handle), id)
		})
		if err != nil {
			conn.SendError(env.ID, env.Type, classify(err))
			return
		}
		conn.SendTyped(env.ID, env.Type, SwitchedResponse{Switched: true})

	case TypeListWindows:
		var req ListWindowsRequest
		if env.Payload != nil {
			if err := json.Unmarshal(env.Payload, &req); err != nil {
				conn.SendError(env.ID, env.Type, badRequest(err))
				return
			}
		}
		wins, err := s.listWindows(req)
		if err != nil {
			conn.SendError(env.ID, env.Type, classify(err))
			return
		}
		conn.SendTyped(env.ID, env.Type, WindowsResponse{Windows: wins})

	case TypeRefresh:
		if err := s.dispatcher.Do(s.windows.Refresh); err != nil {
			conn.SendError(env.ID, env.Type, classify(err))
			return
		}
		conn.SendTyped(env.ID, env.Type, SwitchedResponse{Switched: true})

	default:
		conn.SendError(env.ID, env.Type, &ErrorInfo{
			Kind:    ErrKindBadRequest,
			Message: "unknown request type " + env.Type,
		})
	}
}

func (s *Server) listDesktops() ([]vdapi.VirtualDesktop, error) {
	var desks []vdapi.VirtualDesktop
	err := s.dispatcher.Do(func() error {
		var err error
		desks, err = s.desktops.List()
		return err
	})
	return desks, err
}

func (s *Server) listWindows(req ListWindowsRequest) ([]vdapi.Window, error) {
	var wins []vdapi.Window
	err := s.dispatcher.Do(func() error {
		var err error
		switch {
		case req.DesktopID != "":
			var id vdapi.DesktopID
			id, err = vdapi.ParseDesktopID(req.DesktopID)
			if err != nil {
				return err
			}
			wins, err = s.windows.ListForDesktop(id)
		case req.ProcessID != 0:
			wins, err = s.windows.ListByProcessID(req.ProcessID)
		case req.ProcessName != "":
			wins, err = s.windows.ListByProcessName(req.ProcessName)
		case req.VisibleOnly:
			wins, err = s.windows.ListVisible()
		default:
			wins, err = s.windows.ListAll()
		}
		return err
	})
	return wins, err
}

func parseIDPayload(conn *Conn, env *Envelope) (vdapi.DesktopID, bool) {
	var req SwitchRequest
	if err := json.Unmarshal(env.Payload, &req); err != nil {
		conn.SendError(env.ID, env.Type, badRequest(err))
		return vdapi.DesktopID{}, false
	}
	id, err := vdapi.ParseDesktopID(req.DesktopID)
	if err != nil {
		conn.SendError(env.ID, env.Type, badRequest(err))
		return vdapi.DesktopID{}, false
	}
	return id, true
}

func badRequest(err error) *ErrorInfo {
	return &ErrorInfo{Kind: ErrKindBadRequest, Message: err.Error()}
}

// classify maps the vdapi error taxonomy onto wire error kinds.
func classify(err error) *ErrorInfo {
	var nf *vdapi.NotFoundError
	if errors.As(err, &nf) {
		return &ErrorInfo{Kind: ErrKindNotFound, Message: err.Error(), ID: nf.ID}
	}
	var inv *vdapi.InvalidOperationError
	if errors.As(err, &inv) {
		return &ErrorInfo{Kind: ErrKindInvalidOperation, Message: err.Error()}
	}
	if errors.Is(err, vdapi.ErrFeatureUnavailable) || errors.Is(err, vdapi.ErrUnsupported) {
		return &ErrorInfo{Kind: ErrKindUnavailable, Message: err.Error()}
	}
	return &ErrorInfo{Kind: ErrKindOperationFailed, Message: err.Error()}
}
