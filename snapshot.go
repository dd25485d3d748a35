package main

import (
	"bytes"
	"encoding/gob"
	"fmt"
)

// snapshotState is the full round-trippable guest state behind
// save_snapshot/load_snapshot (spec.md section 6): CPU registers, the
// MMU's page tables, all of core memory, every device's register file,
// and the pending-interrupt queue.
type snapshotState struct {
	R            [8]uint16
	PSW          uint16
	StackPointer [4]uint16
	Waiting      bool
	Halted       bool

	MMU                    [16]page
	MMUSR0, MMUSR1, MMUSR2 uint16

	Core [(128 - 4) << 10]uint16

	RKDS, RKER, RKCS, RKWC, RKBA     uint16
	RKDrive, RKCyl, RKSurface, RKSec uint16

	KLRCSR, KLXCSR uint16
	KLFifo         []byte

	KWCSR uint16

	Pending []pendingInterrupt
}

// SaveSnapshot serializes the full guest state. It does not flush the
// RK05 backing image to its file — that is Machine's job, since the image
// belongs to the host, not the snapshot.
func (kb *KB11) SaveSnapshot() ([]byte, error) {
	s := snapshotState{
		R:            kb.R,
		PSW:          kb.psw,
		StackPointer: kb.stackpointer,
		Waiting:      kb.waiting,
		Halted:       kb.halted,
		MMU:          kb.mmu.pages,
		MMUSR0:       kb.mmu.SR0,
		MMUSR1:       kb.mmu.SR1,
		MMUSR2:       kb.mmu.SR2,
		Core:         kb.unibus.core,
		RKDS:         kb.unibus.rk11.rkds,
		RKER:         kb.unibus.rk11.rker,
		RKCS:         kb.unibus.rk11.rkcs,
		RKWC:         kb.unibus.rk11.rkwc,
		RKBA:         kb.unibus.rk11.rkba,
		RKDrive:      kb.unibus.rk11.drive,
		RKCyl:        kb.unibus.rk11.cylinder,
		RKSurface:    kb.unibus.rk11.surface,
		RKSec:        kb.unibus.rk11.sector,
		KLRCSR:       kb.unibus.cons.rcsr,
		KLXCSR:       kb.unibus.cons.xcsr,
		KLFifo:       append([]byte(nil), kb.unibus.cons.fifo...),
		KWCSR:        kb.unibus.lineclock.csr,
		Pending:      kb.interrupts.snapshot(),
	}
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(&s); err != nil {
		return nil, fmt.Errorf("save snapshot: %w", err)
	}
	return buf.Bytes(), nil
}

// LoadSnapshot restores state previously produced by SaveSnapshot.
func (kb *KB11) LoadSnapshot(data []byte) error {
	var s snapshotState
	if err := gob.NewDecoder(bytes.NewReader(data)).Decode(&s); err != nil {
		return fmt.Errorf("load snapshot: %w", err)
	}

	kb.R = s.R
	kb.psw = s.PSW
	kb.stackpointer = s.StackPointer
	kb.waiting = s.Waiting
	kb.halted = s.Halted
	kb.mmu.pages = s.MMU
	kb.mmu.SR0, kb.mmu.SR1, kb.mmu.SR2 = s.MMUSR0, s.MMUSR1, s.MMUSR2
	kb.unibus.core = s.Core

	rk := &kb.unibus.rk11
	rk.rkds, rk.rker, rk.rkcs, rk.rkwc, rk.rkba = s.RKDS, s.RKER, s.RKCS, s.RKWC, s.RKBA
	rk.drive, rk.cylinder, rk.surface, rk.sector = s.RKDrive, s.RKCyl, s.RKSurface, s.RKSec

	kb.unibus.cons.rcsr, kb.unibus.cons.xcsr = s.KLRCSR, s.KLXCSR
	kb.unibus.cons.fifo = append([]byte(nil), s.KLFifo...)

	kb.unibus.lineclock.csr = s.KWCSR

	kb.interrupts.restore(s.Pending)
	return nil
}
