package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/winvd/winvd/internal/export"
	"github.com/winvd/winvd/internal/ipc"
	"github.com/winvd/winvd/internal/vdapi"
)

var (
	createName    string
	windowDesktop string
	windowPID     uint32
	windowProcess string
	windowVisible bool
	exportOut     string
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List all virtual desktops",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withShell(func(sh *shell) error {
			var desktops []vdapi.VirtualDesktop
			err := sh.do(func() error {
				var err error
				desktops, err = sh.desktops.List()
				return err
			})
			if err != nil {
				return err
			}
			printDesktops(desktops)
			return nil
		})
	},
}

var currentCmd = &cobra.Command{
	Use:   "current",
	Short: "Show the active virtual desktop",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withShell(func(sh *shell) error {
			var (
				cur vdapi.VirtualDesktop
				ok  bool
			)
			err := sh.do(func() error {
				var err error
				cur, ok, err = sh.desktops.Current()
				return err
			})
			if err != nil {
				return err
			}
			if !ok {
				fmt.Println("no active desktop")
				return nil
			}
			printDesktops([]vdapi.VirtualDesktop{cur})
			return nil
		})
	},
}

var switchCmd = &cobra.Command{
	Use:   "switch <desktop-id>",
	Short: "Activate the desktop with the given id",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := vdapi.ParseDesktopID(args[0])
		if err != nil {
			return fmt.Errorf("invalid desktop id %q: %w", args[0], err)
		}
		return withShell(func(sh *shell) error {
			return sh.do(func() error {
				return sh.desktops.SwitchTo(id)
			})
		})
	},
}

var nextCmd = &cobra.Command{
	Use:   "next",
	Short: "Switch to the desktop on the right, wrapping around",
	RunE: func(cmd *cobra.Command, args []string) error {
		return switchAdjacent(func(sh *shell) (bool, error) {
			return sh.desktops.SwitchNext()
		})
	},
}

var prevCmd = &cobra.Command{
	Use:   "prev",
	Short: "Switch to the desktop on the left, wrapping around",
	RunE: func(cmd *cobra.Command, args []string) error {
		return switchAdjacent(func(sh *shell) (bool, error) {
			return sh.desktops.SwitchPrevious()
		})
	},
}

var createCmd = &cobra.Command{
	Use:   "create",
	Short: "Create a new virtual desktop",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withShell(func(sh *shell) error {
			var desk vdapi.VirtualDesktop
			err := sh.do(func() error {
				var err error
				desk, err = sh.desktops.Create(createName)
				return err
			})
			if err != nil {
				return err
			}
			fmt.Printf("created %s", desk.ID)
			if desk.Name != "" {
				fmt.Printf(" %q", desk.Name)
			}
			fmt.Println()
			return nil
		})
	},
}

var removeCmd = &cobra.Command{
	Use:   "remove <desktop-id>",
	Short: "Remove a virtual desktop, moving its windows to the active one",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := vdapi.ParseDesktopID(args[0])
		if err != nil {
			return fmt.Errorf("invalid desktop id %q: %w", args[0], err)
		}
		return withShell(func(sh *shell) error {
			return sh.do(func() error {
				return sh.desktops.Remove(id)
			})
		})
	},
}

var moveWindowCmd = &cobra.Command{
	Use:   "move-window <handle> <desktop-id>",
	Short: "Move a top-level window to another desktop",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		handle, err := parseHandle(args[0])
		if err != nil {
			return fmt.Errorf("invalid window handle %q: %w", args[0], err)
		}
		id, err := vdapi.ParseDesktopID(args[1])
		if err != nil {
			return fmt.Errorf("invalid desktop id %q: %w", args[1], err)
		}
		return withShell(func(sh *shell) error {
			return sh.do(func() error {
				return sh.desktops.MoveWindow(handle, id)
			})
		})
	},
}

var windowsCmd = &cobra.Command{
	Use:   "windows",
	Short: "List top-level application windows",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withShell(func(sh *shell) error {
			var wins []vdapi.Window
			err := sh.do(func() error {
				var err error
				wins, err = queryWindows(sh)
				return err
			})
			if err != nil {
				return err
			}
			printWindows(wins)
			return nil
		})
	},
}

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Write the desktop and window layout as YAML",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withShell(func(sh *shell) error {
			var (
				desktops []vdapi.VirtualDesktop
				wins     []vdapi.Window
				build    int
			)
			err := sh.do(func() error {
				var err error
				desktops, err = sh.desktops.List()
				if err != nil {
					return err
				}
				wins, err = sh.windows.ListAll()
				if err != nil {
					return err
				}
				build = sh.session.BuildNumber()
				return nil
			})
			if err != nil {
				return err
			}

			out := os.Stdout
			if exportOut != "" {
				f, err := os.Create(exportOut)
				if err != nil {
					return fmt.Errorf("create output file: %w", err)
				}
				defer f.Close()
				out = f
			}
			return export.Write(out, export.Snapshot(desktops, wins, build))
		})
	},
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve desktop operations over the local IPC endpoint",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withShell(func(sh *shell) error {
			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			srv := ipc.NewServer(sh.session, sh.desktops, sh.windows, sh.dispatcher)
			log.Info("serving", "endpoint", cfg.PipeName, "build", sh.session.BuildNumber(), "interface", sh.session.NegotiatedInterface())
			return srv.Serve(ctx, cfg.PipeName)
		})
	},
}

func init() {
	createCmd.Flags().StringVar(&createName, "name", "", "name for the new desktop")
	windowsCmd.Flags().StringVar(&windowDesktop, "desktop", "", "only windows on this desktop id")
	windowsCmd.Flags().Uint32Var(&windowPID, "pid", 0, "only windows owned by this process id")
	windowsCmd.Flags().StringVar(&windowProcess, "process", "", "only windows owned by this process name")
	windowsCmd.Flags().BoolVar(&windowVisible, "visible", false, "only visible windows")
	exportCmd.Flags().StringVar(&exportOut, "out", "", "write to this file instead of stdout")
}

// withShell opens the capability session, runs fn, and tears the
// session down afterwards.
func withShell(fn func(*shell) error) error {
	sh, err := openShell()
	if err != nil {
		return err
	}
	defer sh.close()
	return fn(sh)
}

func switchAdjacent(nav func(*shell) (bool, error)) error {
	return withShell(func(sh *shell) error {
		var switched bool
		err := sh.do(func() error {
			var err error
			switched, err = nav(sh)
			return err
		})
		if err != nil {
			return err
		}
		if !switched {
			fmt.Println("nothing to switch to")
		}
		return nil
	})
}

// queryWindows applies at most one filter flag; the flags are checked
// in a fixed precedence order.
func queryWindows(sh *shell) ([]vdapi.Window, error) {
	switch {
	case windowDesktop != "":
		id, err := vdapi.ParseDesktopID(windowDesktop)
		if err != nil {
			return nil, fmt.Errorf("invalid desktop id %q: %w", windowDesktop, err)
		}
		return sh.windows.ListForDesktop(id)
	case windowPID != 0:
		return sh.windows.ListByProcessID(windowPID)
	case windowProcess != "":
		return sh.windows.ListByProcessName(windowProcess)
	case windowVisible:
		return sh.windows.ListVisible()
	default:
		return sh.windows.ListAll()
	}
}

func parseHandle(s string) (vdapi.WindowHandle, error) {
	s = strings.TrimPrefix(strings.ToLower(s), "0x")
	v, err := strconv.ParseUint(s, 16, 64)
	if err != nil {
		return 0, err
	}
	return vdapi.WindowHandle(v), nil
}

func printDesktops(desktops []vdapi.VirtualDesktop) {
	tw := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "INDEX\tID\tNAME\tACTIVE")
	for _, d := range desktops {
		active := ""
		if d.IsActive {
			active = "*"
		}
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\n", d.Index, d.ID, d.Name, active)
	}
	tw.Flush()
}

func printWindows(wins []vdapi.Window) {
	tw := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "HANDLE\tPID\tPROCESS\tDESKTOP\tTITLE")
	for _, w := range wins {
		desktop := ""
		if !w.DesktopID.IsZero() {
			desktop = w.DesktopID.String()
		}
		fmt.Fprintf(tw, "0x%X\t%d\t%s\t%s\t%s\n", uintptr(w.Handle), w.ProcessID, w.ProcessName, desktop, w.Title)
	}
	tw.Flush()
}
