package main

import (
	"fmt"
	"os"
)

// Processor status word flag bits, matching the teacher's FLAGx constants.
const (
	FLAGC = 1 << 0
	FLAGV = 1 << 1
	FLAGZ = 1 << 2
	FLAGN = 1 << 3
	FLAGT = 1 << 4
)

// KB11 is the PDP-11/40 processor: spec.md section 4.1. unibus, mmu and
// interrupts are owned here and shared by value with the devices that
// need them, which hold pointers wired up by wire().
type KB11 struct {
	unibus     UNIBUS
	mmu        KT11
	interrupts interruptQueue

	R   [8]uint16 // R0-R7; R[7] mirrors pc during instruction decode
	pc  uint16    // the address of the instruction currently executing
	psw uint16

	stackpointer [4]uint16 // banked R6: kernel, super, illegal, user

	waiting    bool
	halted     bool
	rttInhibit bool

	verbose bool
}

// NewKB11 returns a fully wired, reset machine.
func NewKB11() *KB11 {
	kb := &KB11{}
	kb.wire()
	kb.Reset()
	return kb
}

// wire connects the shared MMU and interrupt queue into the UNIBUS and its
// devices. A bare `var cpu KB11` (as the original teacher's tests construct
// it) is still safe to use for register-only instructions, since those
// never dereference the unwired pointers.
func (kb *KB11) wire() {
	kb.unibus.mmu = &kb.mmu
	kb.unibus.interrupts = &kb.interrupts
	kb.unibus.rk11.interrupts = &kb.interrupts
	kb.unibus.rk11.unibus = &kb.unibus
	kb.unibus.cons.interrupts = &kb.interrupts
	kb.unibus.lineclock.interrupts = &kb.interrupts
}

// Reset puts the machine in its post-RESET-instruction/power-up state:
// spec.md section 4.1's "entire guest state... back to a well-defined
// starting point."
func (kb *KB11) Reset() {
	kb.R = [8]uint16{}
	kb.stackpointer = [4]uint16{}
	kb.psw = 0
	kb.waiting = false
	kb.halted = false
	kb.rttInhibit = false
	kb.unibus.reset()
	kb.mmu.reset()
	kb.interrupts.restore(nil)
}

// Load writes words into core memory starting at addr, bypassing the MMU
// and any trap machinery. It exists for test setup and for the loader that
// places BOOTROM in low memory.
func (kb *KB11) Load(addr uint16, words ...uint16) {
	for _, w := range words {
		kb.unibus.core[addr>>1] = w
		addr += 2
	}
}

func (kb *KB11) currentmode() uint16  { return kb.psw >> 14 }
func (kb *KB11) previousmode() uint16 { return (kb.psw >> 12) & 3 }
func (kb *KB11) priority() uint16     { return (kb.psw >> 5) & 7 }

func (kb *KB11) n() bool { return kb.psw&FLAGN != 0 }
func (kb *KB11) z() bool { return kb.psw&FLAGZ != 0 }
func (kb *KB11) v() bool { return kb.psw&FLAGV != 0 }
func (kb *KB11) c() bool { return kb.psw&FLAGC != 0 }
func (kb *KB11) t() bool { return kb.psw&FLAGT != 0 }

// writePSW commits a fully-formed PSW (mode bits included) and re-banks R6
// to the stack pointer belonging to the new current mode.
func (kb *KB11) writePSW(psw uint16) {
	kb.stackpointer[kb.currentmode()] = kb.R[6]
	kb.psw = psw
	kb.R[6] = kb.stackpointer[kb.currentmode()]
}

// switchmode enters newMode, preserving the outgoing mode as the PSW's
// "previous mode" field and leaving the CC/priority bits untouched.
func (kb *KB11) switchmode(newMode uint16) {
	psw := (kb.psw &^ 0170000) | (newMode << 14) | (kb.currentmode() << 12)
	kb.writePSW(psw)
}

// read16/write16 perform an MMU-checked CPU access: spec.md section 4.2.
func (kb *KB11) read16(va uint16) uint16 {
	if va&1 != 0 {
		panic(trapf(vecBus, "read from odd address %06o", va))
	}
	return kb.unibus.read16(kb.mmu.decode(false, va, kb.currentmode(), kb.pc))
}

func (kb *KB11) write16(va, v uint16) {
	if va&1 != 0 {
		panic(trapf(vecBus, "write to odd address %06o", va))
	}
	kb.unibus.write16(kb.mmu.decode(true, va, kb.currentmode(), kb.pc), v)
}

func (kb *KB11) read8(va uint16) uint8 {
	return kb.unibus.read8(kb.mmu.decode(false, va, kb.currentmode(), kb.pc))
}

func (kb *KB11) write8(va uint16, v uint8) {
	kb.unibus.write8(kb.mmu.decode(true, va, kb.currentmode(), kb.pc), v)
}

func (kb *KB11) fetch16() uint16 {
	v := kb.read16(kb.R[7])
	kb.R[7] += 2
	return v
}

func (kb *KB11) push(v uint16) {
	kb.R[6] -= 2
	kb.write16(kb.R[6], v)
}

func (kb *KB11) pop() uint16 {
	v := kb.read16(kb.R[6])
	kb.R[6] += 2
	return v
}

// trapat performs the common trap/interrupt entry sequence: push PSW then
// PC onto the (now-kernel) stack and load R7/PSW from the vector. A second
// trap raised while pushing is a double fault (a "red stack trap" in the
// original implementation's terms): it is not recursed into, it forces a
// direct write of the faulting PC/PSW to physical addresses 0/2 and
// re-vectors through the bus-error vector.
func (kb *KB11) trapat(vec uint16) {
	prevpsw := kb.psw
	prevpc := kb.R[7]

	faulted := func() (faulted bool) {
		defer func() {
			if r := recover(); r != nil {
				if _, ok := r.(trap); !ok {
					panic(r)
				}
				faulted = true
			}
		}()
		kb.switchmode(0)
		kb.push(prevpsw)
		kb.push(prevpc)
		return false
	}()

	if faulted {
		kb.unibus.core[0] = prevpc
		kb.unibus.core[1] = prevpsw
		vec = vecBus
	}

	kb.R[7] = kb.read16(vec)
	kb.writePSW(kb.read16(vec+2) | (kb.previousmode() << 12))
}

// Step advances the machine by one of: interrupt service, a quick no-op
// return while WAITing, or one instruction (spec.md section 4.1).
func (kb *KB11) Step() {
	if kb.halted {
		return
	}
	if p, ok := kb.interrupts.take(kb.priority()); ok {
		kb.waiting = false
		kb.trapat(p.Vec)
		return
	}
	if kb.waiting {
		return
	}
	kb.stepOnce()
}

// stepOnce executes one instruction, recovering a synchronous trap into
// trapat, and applies the post-instruction T-bit trace trap check.
func (kb *KB11) stepOnce() {
	defer func() {
		if r := recover(); r != nil {
			t, ok := r.(trap)
			if !ok {
				panic(r)
			}
			kb.trapat(t.vec)
		}
	}()

	if kb.verbose {
		fmt.Fprintf(os.Stderr, "%06o: ", kb.R[7])
		kb.disasm(kb.R[7])
		fmt.Fprintln(os.Stderr)
	}
	kb.step()

	if kb.rttInhibit {
		kb.rttInhibit = false
		return
	}
	if kb.t() {
		kb.trapat(vecDebug)
	}
}
