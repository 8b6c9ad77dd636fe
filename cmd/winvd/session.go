package main

import (
	"context"
	"time"

	"github.com/winvd/winvd/internal/sta"
	"github.com/winvd/winvd/internal/vdapi"
)

// shell bundles a capability session with the directories built on top of
// it. Every COM-touching call is routed through the dispatcher so the
// session only ever sees its own STA thread.
type shell struct {
	dispatcher *sta.Dispatcher
	session    *vdapi.Session
	desktops   *vdapi.DesktopDirectory
	windows    *vdapi.WindowDirectory
}

func openShell() (*shell, error) {
	d := sta.New(16)

	var sess *vdapi.Session
	err := d.Do(func() error {
		var err error
		sess, err = vdapi.NewSession()
		return err
	})
	if err != nil {
		d.Shutdown(context.Background())
		return nil, err
	}

	settle := vdapi.FixedSettler{Interval: time.Duration(cfg.SettleIntervalMS) * time.Millisecond}
	return &shell{
		dispatcher: d,
		session:    sess,
		desktops:   vdapi.NewDesktopDirectory(sess, vdapi.WithSettler(settle)),
		windows:    vdapi.NewWindowDirectory(sess, vdapi.WithCacheTTL(time.Duration(cfg.CacheTTLMS)*time.Millisecond)),
	}, nil
}

// do runs fn on the session's apartment thread and returns its error.
func (s *shell) do(fn func() error) error {
	return s.dispatcher.Do(fn)
}

func (s *shell) close() {
	_ = s.dispatcher.Do(func() error {
		return s.session.Close()
	})
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	s.dispatcher.Shutdown(ctx)
}
