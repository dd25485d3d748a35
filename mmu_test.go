package main

import (
	"testing"

	"github.com/matryer/is"
)

func expectTrap(t *testing.T, vec uint16, f func()) {
	t.Helper()
	defer func() {
		r := recover()
		if r == nil {
			t.Fatalf("expected a trap to vector %03o, got none", vec)
		}
		tr, ok := r.(trap)
		if !ok {
			panic(r)
		}
		if tr.vec != vec {
			t.Fatalf("expected trap to vector %03o, got %03o (%s)", vec, tr.vec, tr.msg)
		}
	}()
	f()
}

func TestKT11DisabledPassthrough(t *testing.T) {
	is := is.New(t)
	var kt KT11

	is.Equal(kt.decode(false, 0001000, 0, 0), addr18(0001000))
	// above 0167777, disabled mode maps into the top of the 18-bit space.
	is.Equal(kt.decode(false, 0170000, 0, 0), addr18(0170000)+0600000)
}

func TestKT11WriteToReadOnlyPageAborts(t *testing.T) {
	var kt KT11
	kt.SR0 = 1           // enable relocation
	kt.pages[8].Pdr = 2  // readable only, not writable; ed=0 (downward, len covers everything)
	kt.pages[8].Pdr |= 0177 << 8

	expectTrap(t, vecMMUFault, func() {
		kt.decode(true, 0000000, 3, 0002110) // user-mode (mode 3) access through page 8
	})
	is := is.New(t)
	is.True(kt.SR0&(1<<13) != 0) // write-to-read-only bit set
	is.Equal(kt.SR2, uint16(0002110)) // SR2 latches the faulting instruction's PC, not the faulting address
}

func TestKT11PageLengthExceededAborts(t *testing.T) {
	var kt KT11
	kt.SR0 = 1
	kt.pages[0].Pdr = 6 // readable + writable, plf = 0: only block 0 is in range

	expectTrap(t, vecMMUFault, func() {
		kt.decode(false, 0000100, 0, 0) // block 1, beyond plf 0
	})
}

func TestKT11Roundtrip(t *testing.T) {
	is := is.New(t)
	var kt KT11
	kt.SR0 = 1
	kt.pages[0].Par = 0100
	kt.pages[0].Pdr = 6 | (0177 << 8)

	pa := kt.decode(false, 0001000, 0, 0)
	is.Equal(pa, addr18((8+0100)<<6)) // block 8, page base 0100, displacement 0
}
