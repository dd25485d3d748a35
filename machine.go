package main

import (
	"context"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/spf13/afero"
)

// waitPoll is how long Run sleeps between pending-interrupt checks while
// the CPU is WAITing, so a WAITing guest never busy-spins a host core
// (spec.md section 5).
const waitPoll = 300 * time.Microsecond

// clockPeriod is the KW11 line-frequency clock's 60Hz tick.
const clockPeriod = time.Second / 60

// Machine is the host-side control surface around a KB11: spec.md
// section 6's reset/start/stop/step/load_boot/load_snapshot/
// save_snapshot/post_key operations, plus the goroutines that drive the
// line clock and keyboard intake independently of the CPU goroutine.
type Machine struct {
	cpu *KB11
	fs  afero.Fs

	mu      sync.Mutex
	running bool
	cancel  context.CancelFunc
	done    chan struct{}
	err     error
}

// NewMachine builds a machine backed by fs, the filesystem abstraction
// disk images and snapshots are read from and written to (spec.md
// section 10's afero wiring).
func NewMachine(fs afero.Fs, out io.ByteWriter) *Machine {
	cpu := NewKB11()
	cpu.unibus.cons.out = out
	return &Machine{cpu: cpu, fs: fs}
}

// MountRK loads the RK05 backing image from path.
func (m *Machine) MountRK(path string) error {
	return m.cpu.unibus.rk11.Mount(m.fs, path)
}

// FlushRK persists the RK05 backing image back to its file.
func (m *Machine) FlushRK() error {
	return m.cpu.unibus.rk11.Flush()
}

func (m *Machine) Reset() {
	m.cpu.Reset()
}

// LoadBoot installs the boot ROM and positions the PC to run it.
func (m *Machine) LoadBoot() {
	m.cpu.LoadBoot()
}

// SetVerbose toggles per-instruction disassembly to stderr.
func (m *Machine) SetVerbose(v bool) {
	m.cpu.verbose = v
}

// SetSwitches sets the low byte of the console switch register, read by
// the guest at 0777570.
func (m *Machine) SetSwitches(v uint16) {
	m.cpu.unibus.switches = (m.cpu.unibus.switches &^ 0x00ff) | (v & 0x00ff)
}

// PostKey delivers one byte from the external terminal source to the
// console's receiver. Safe to call from any goroutine.
func (m *Machine) PostKey(b byte) {
	m.cpu.unibus.cons.PostKey(b)
}

// Step executes exactly one CPU step (interrupt service, WAIT no-op, or
// one instruction) without starting the background clock goroutine.
func (m *Machine) Step() {
	m.step()
}

// Halted reports whether the guest has executed HALT in kernel mode.
func (m *Machine) Halted() bool {
	return m.cpu.halted
}

// Err returns the host-level error that stopped the CPU goroutine, if
// any (spec.md section 7: a hostFault stops the CPU cleanly instead of
// crashing it). Cleared by the next successful Start.
func (m *Machine) Err() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.err
}

// SaveSnapshot returns the serialized guest state.
func (m *Machine) SaveSnapshot() ([]byte, error) {
	return m.cpu.SaveSnapshot()
}

// LoadSnapshot restores guest state previously returned by SaveSnapshot.
// It must only be called while the machine is stopped (spec.md section
// 5's "only while the CPU is stopped").
func (m *Machine) LoadSnapshot(data []byte) error {
	return m.cpu.LoadSnapshot(data)
}

// SaveSnapshotFile writes a snapshot to path on the machine's filesystem.
func (m *Machine) SaveSnapshotFile(path string) error {
	data, err := m.SaveSnapshot()
	if err != nil {
		return err
	}
	if err := afero.WriteFile(m.fs, path, data, 0644); err != nil {
		return fmt.Errorf("machine: write snapshot %s: %w", path, err)
	}
	return nil
}

// LoadSnapshotFile reads and restores a snapshot previously written by
// SaveSnapshotFile.
func (m *Machine) LoadSnapshotFile(path string) error {
	data, err := afero.ReadFile(m.fs, path)
	if err != nil {
		return fmt.Errorf("machine: read snapshot %s: %w", path, err)
	}
	return m.LoadSnapshot(data)
}

// Start runs the CPU and the 60Hz line clock concurrently until Stop is
// called or the guest halts. It returns immediately; callers wait on Wait.
func (m *Machine) Start(ctx context.Context) {
	m.mu.Lock()
	if m.running {
		m.mu.Unlock()
		return
	}
	runCtx, cancel := context.WithCancel(ctx)
	m.cancel = cancel
	m.done = make(chan struct{})
	m.running = true
	m.err = nil
	m.mu.Unlock()

	go m.runClock(runCtx)
	go m.runCPU(runCtx)
}

// Stop halts the goroutines started by Start and waits for them to exit.
func (m *Machine) Stop() {
	m.mu.Lock()
	if !m.running {
		m.mu.Unlock()
		return
	}
	cancel := m.cancel
	done := m.done
	m.running = false
	m.mu.Unlock()

	cancel()
	<-done
}

func (m *Machine) runClock(ctx context.Context) {
	ticker := time.NewTicker(clockPeriod)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.cpu.unibus.lineclock.tick()
		}
	}
}

func (m *Machine) runCPU(ctx context.Context) {
	defer close(m.done)
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}
		if m.cpu.halted {
			return
		}
		if !m.step() {
			return
		}
		if m.cpu.waiting {
			time.Sleep(waitPoll)
		}
	}
}

// step runs one CPU step, recovering a hostFault (e.g. an RK05 image
// too short for the transfer it was asked to do) instead of letting it
// crash the CPU goroutine: spec.md section 7's "host-level errors ...
// do not crash the CPU thread; they stop it cleanly." Returns false if
// the step failed and the machine should stop.
func (m *Machine) step() (ok bool) {
	defer func() {
		if r := recover(); r != nil {
			hf, isHostFault := r.(hostFault)
			if !isHostFault {
				panic(r)
			}
			m.mu.Lock()
			m.err = hf
			m.mu.Unlock()
			m.cpu.halted = true
			ok = false
		}
	}()
	m.cpu.Step()
	return true
}
