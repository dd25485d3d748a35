// pdp11 emulator.
package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/alecthomas/kong"
	"github.com/spf13/afero"
	"golang.org/x/sys/unix"
)

func main() {
	var cli struct {
		Run  runCmd  `cmd:"" default:"1" help:"help yourself to a PDP11"`
		Save saveCmd `cmd:"" help:"snapshot an already-running emulator"`
	}

	ctx := kong.Parse(&cli)
	err := ctx.Run(&kong.Context{})
	ctx.FatalIfErrorf(err)
}

type runCmd struct {
	StartAddr uint16 `name:"startaddr" default:"002002" help:"PC to start at when not loading a snapshot and not booting the RK05"`
	RK0       string `name:"rk0" type:"existingfile" help:"path to rk0 image"`
	Snapshot  string `name:"snapshot" type:"path" help:"resume from a previously saved snapshot instead of booting"`
	SaveExit  string `name:"save-on-exit" type:"path" help:"write a snapshot here on clean shutdown, or on a save command"`
	PidFile   string `name:"pidfile" type:"path" default:"pdp11.pid" help:"where to record this process's pid, for the save command to find"`
	Switches  uint16 `name:"switches" default:"0" help:"front panel switch register value"`
	NoBoot    bool   `name:"noboot" help:"skip the RK05 boot ROM; start at --startaddr with an otherwise empty machine"`
	Verbose   bool   `name:"verbose" short:"v" help:"disassemble every instruction to stderr as it executes"`
}

// saveCmd signals a running `run` instance to snapshot itself, by pid
// recorded in its --pidfile. The snapshot lands at that instance's
// --save-on-exit path.
type saveCmd struct {
	PidFile string `name:"pidfile" type:"existingfile" default:"pdp11.pid" help:"pidfile written by the running instance"`
}

func (s *saveCmd) Run(ctx *kong.Context) error {
	data, err := os.ReadFile(s.PidFile)
	if err != nil {
		return fmt.Errorf("save: read pidfile: %w", err)
	}
	pid, err := strconv.Atoi(strings.TrimSpace(string(data)))
	if err != nil {
		return fmt.Errorf("save: parse pidfile: %w", err)
	}
	if err := syscall.Kill(pid, syscall.SIGUSR1); err != nil {
		return fmt.Errorf("save: signal pid %d: %w", pid, err)
	}
	return nil
}

// byteWriter adapts an io.Writer to io.ByteWriter, which is what KL11's
// transmitter wants and os.File doesn't itself implement.
type byteWriter struct{ w io.Writer }

func (b byteWriter) WriteByte(c byte) error {
	_, err := b.w.Write([]byte{c})
	return err
}

func (r *runCmd) Run(ctx *kong.Context) error {
	fs := afero.NewOsFs()
	m := NewMachine(fs, byteWriter{os.Stdout})
	m.SetSwitches(r.Switches)
	m.SetVerbose(r.Verbose)

	if r.RK0 != "" {
		if err := m.MountRK(r.RK0); err != nil {
			return fmt.Errorf("mount rk0: %w", err)
		}
	}

	switch {
	case r.Snapshot != "":
		if err := m.LoadSnapshotFile(r.Snapshot); err != nil {
			return fmt.Errorf("load snapshot: %w", err)
		}
	case r.NoBoot:
		m.cpu.R[7] = r.StartAddr
	default:
		m.LoadBoot()
	}

	if r.PidFile != "" {
		if err := os.WriteFile(r.PidFile, []byte(strconv.Itoa(os.Getpid())), 0644); err != nil {
			return fmt.Errorf("write pidfile: %w", err)
		}
		defer os.Remove(r.PidFile)
	}

	restore, err := enterRawMode(os.Stdin.Fd())
	if err != nil {
		// Not a terminal (e.g. piped input in a test harness); run
		// without raw mode rather than failing outright.
		restore = func() {}
	}
	defer restore()

	runCtx, cancel := context.WithCancel(context.Background())
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt)
	defer signal.Stop(sigCh)

	snapSig := make(chan os.Signal, 1)
	signal.Notify(snapSig, syscall.SIGUSR1)
	defer signal.Stop(snapSig)

	keys := make(chan byte, 256)
	go readKeys(os.Stdin, keys)

	m.Start(runCtx)

	done := false
	for !done {
		select {
		case <-sigCh:
			done = true
		case <-snapSig:
			// load_snapshot/save_snapshot only happen while the CPU is
			// stopped, so pause it around the save and resume after.
			cancel()
			m.Stop()
			path := r.SaveExit
			if path == "" {
				path = "snapshot.bin"
			}
			if err := m.SaveSnapshotFile(path); err != nil {
				fmt.Fprintf(os.Stderr, "save snapshot: %v\n", err)
			}
			runCtx, cancel = context.WithCancel(context.Background())
			m.Start(runCtx)
		case b, ok := <-keys:
			switch {
			case !ok, b == 0x1d: // closed stdin, or Ctrl-] detaching like a real console
				done = true
			default:
				m.PostKey(b)
			}
		case <-time.After(50 * time.Millisecond):
			if m.Halted() {
				done = true
			}
		}
	}

	cancel()
	m.Stop()

	if err := m.FlushRK(); err != nil {
		fmt.Fprintf(os.Stderr, "flush rk0: %v\n", err)
	}
	if r.SaveExit != "" {
		if err := m.SaveSnapshotFile(r.SaveExit); err != nil {
			return fmt.Errorf("save snapshot: %w", err)
		}
	}
	if err := m.Err(); err != nil {
		return fmt.Errorf("machine stopped: %w", err)
	}
	return nil
}

func readKeys(f *os.File, out chan<- byte) {
	defer close(out)
	buf := make([]byte, 1)
	for {
		n, err := f.Read(buf)
		if n > 0 {
			out <- buf[0]
		}
		if err != nil {
			return
		}
	}
}

// enterRawMode puts fd into raw mode (no echo, no line buffering, no
// signal generation from ^C/^\ so they reach the guest as ordinary
// keystrokes) and returns a function that restores the prior settings.
func enterRawMode(fd uintptr) (func(), error) {
	old, err := tcget(fd)
	if err != nil {
		return nil, err
	}
	raw := *old
	raw.Iflag &^= unix.IXON | unix.ICRNL | unix.BRKINT | unix.ISTRIP
	raw.Oflag &^= unix.OPOST
	raw.Lflag &^= unix.ECHO | unix.ICANON | unix.ISIG | unix.IEXTEN
	raw.Cc[unix.VMIN] = 1
	raw.Cc[unix.VTIME] = 0
	if err := tcset(fd, &raw); err != nil {
		return nil, err
	}
	return func() { tcset(fd, old) }, nil
}
