package main

import (
	"testing"

	"github.com/matryer/is"
)

func TestSnapshotRoundTrip(t *testing.T) {
	is := is.New(t)
	kb := NewKB11()
	kb.R[0] = 0123456
	kb.R[7] = 0002000
	kb.psw = 0000240
	kb.unibus.core[0100] = 0042113
	kb.unibus.cons.PostKey('Z')
	kb.interrupts.post(vecClock, 6, devClock)

	data, err := kb.SaveSnapshot()
	is.NoErr(err)

	fresh := NewKB11()
	is.NoErr(fresh.LoadSnapshot(data))

	is.Equal(fresh.R[0], uint16(0123456))
	is.Equal(fresh.R[7], uint16(0002000))
	is.Equal(fresh.psw, uint16(0000240))
	is.Equal(fresh.unibus.core[0100], uint16(0042113))
	is.Equal(len(fresh.unibus.cons.fifo), 1)
	is.Equal(fresh.unibus.cons.fifo[0], byte('Z'))

	p, ok := fresh.interrupts.take(0)
	is.True(ok)
	is.Equal(p.Vec, uint16(vecClock))
}

func TestSnapshotPreservesMMUState(t *testing.T) {
	is := is.New(t)
	kb := NewKB11()
	kb.mmu.SR0 = 1
	kb.mmu.pages[3].Par = 0777
	kb.mmu.pages[3].Pdr = 6

	data, err := kb.SaveSnapshot()
	is.NoErr(err)

	fresh := NewKB11()
	is.NoErr(fresh.LoadSnapshot(data))

	is.Equal(fresh.mmu.pages[3].Par, uint16(0777))
	is.Equal(fresh.mmu.pages[3].Pdr, uint16(6))
	is.Equal(fresh.mmu.SR0, uint16(1))
}
