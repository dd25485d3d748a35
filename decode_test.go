package main

import (
	"testing"

	"github.com/matryer/is"
)

func TestDIVByZeroSetsVAndCAndLeavesRegisters(t *testing.T) {
	is := is.New(t)
	kb := NewKB11()
	kb.R[0], kb.R[1] = 0123, 0456
	kb.R[2] = 0 // divisor, register-direct

	kb.DIV(0, 2, 2) // dividend R0:R1, divisor R2 (register-direct)

	is.True(kb.v())
	is.True(kb.c())
	is.Equal(kb.R[0], uint16(0123))
	is.Equal(kb.R[1], uint16(0456))
}

func TestDIVNormal(t *testing.T) {
	is := is.New(t)
	kb := NewKB11()
	kb.R[0], kb.R[1] = 0, 100
	kb.R[2] = 7

	kb.DIV(0, 2, 2)

	is.Equal(kb.R[0], uint16(14)) // 100/7
	is.Equal(kb.R[1], uint16(2)) // 100%7
	is.True(!kb.v())
}

func TestASH6NegativeCountShiftsRight(t *testing.T) {
	is := is.New(t)
	count, right := ash6(0177) // -1 in the low 6 bits (077-relative two's complement)
	is.True(right)
	is.Equal(count, uint16(1))
}

func TestSOBBranchesWhileNonzero(t *testing.T) {
	is := is.New(t)
	kb := NewKB11()
	kb.R[1] = 3
	kb.R[7] = 0002010

	kb.SOB(1, 2) // SOB R1, back 2 words

	is.Equal(kb.R[1], uint16(2))
	is.Equal(kb.R[7], uint16(0002010-4))
}

func TestSOBStopsAtZero(t *testing.T) {
	is := is.New(t)
	kb := NewKB11()
	kb.R[1] = 1
	kb.R[7] = 0002010

	kb.SOB(1, 2)

	is.Equal(kb.R[1], uint16(0))
	is.Equal(kb.R[7], uint16(0002010)) // no branch once the register hits zero
}

func TestBranchSignedOffset(t *testing.T) {
	is := is.New(t)
	kb := NewKB11()
	kb.R[7] = 0002100

	kb.branch(0376) // -2 as a signed byte offset -> word offset -4

	is.Equal(kb.R[7], uint16(0002100-4))
}

func TestWAITOnlyTakesEffectInKernelMode(t *testing.T) {
	is := is.New(t)
	kb := NewKB11()
	kb.Load(0002000, 0000001) // WAIT
	kb.R[7] = 0002000
	kb.psw = 3 << 14 // user mode

	kb.step()
	is.True(!kb.waiting)

	kb.Load(0002000, 0000001)
	kb.R[7] = 0002000
	kb.psw = 0

	kb.step()
	is.True(kb.waiting)
}

func TestHALTTrapsInUserModeInsteadOfHalting(t *testing.T) {
	is := is.New(t)
	kb := NewKB11()
	kb.Load(0002000, 0000000) // HALT
	kb.R[7] = 0002000
	kb.psw = 3 << 14 // user mode

	expectTrap(t, vecBus, func() {
		kb.step()
	})
	is.True(!kb.halted)
}

func TestRTTInhibitsTraceTrapForOneInstruction(t *testing.T) {
	is := is.New(t)
	kb := NewKB11()
	// the PSW popped by RTT has the T-bit set, which would normally
	// trap at the next instruction boundary; RTT inhibits exactly that
	// one check.
	kb.R[6] = 0001000
	kb.push(FLAGT) // PSW to restore, with T set
	kb.push(0002100) // PC to restore

	kb.RTT()
	is.True(kb.rttInhibit)
	is.True(kb.t())

	// stepOnce must consume the inhibit flag rather than trapping to vecDebug.
	kb.Load(0002100, 0000240) // NOP (CLC and friends with no bits: CCC)
	kb.R[7] = 0002100
	kb.stepOnce()
	is.True(!kb.rttInhibit)
	is.Equal(kb.R[7], uint16(0002102))
}
