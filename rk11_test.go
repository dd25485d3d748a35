package main

import (
	"encoding/binary"
	"testing"

	"github.com/matryer/is"
	"github.com/spf13/afero"
)

func TestRK11MountPadsShortImage(t *testing.T) {
	is := is.New(t)
	fs := afero.NewMemMapFs()
	is.NoErr(afero.WriteFile(fs, "disk.img", []byte{1, 2, 3}, 0644))

	var rk RK11
	is.NoErr(rk.Mount(fs, "disk.img"))
	is.Equal(len(rk.image), rkImageBytes)
	is.Equal(rk.image[0], byte(1))
}

func TestRK11WriteThenReadRoundTrip(t *testing.T) {
	is := is.New(t)
	fs := afero.NewMemMapFs()
	is.NoErr(afero.WriteFile(fs, "disk.img", make([]byte, rkImageBytes), 0644))

	kb := NewKB11()
	is.NoErr(kb.unibus.rk11.Mount(fs, "disk.img"))

	// write one sector (256 words) from core starting at 0004000 to
	// cylinder 0, surface 0, sector 0.
	for i := 0; i < rkSectorWords; i++ {
		kb.unibus.core[(0004000>>1)+i] = uint16(0xBEEF + i)
	}
	sectorWords := int16(rkSectorWords)
	negSectorWords := uint16(-sectorWords)
	kb.unibus.write16(0777410, 0004000)         // RKBA
	kb.unibus.write16(0777406, negSectorWords)  // RKWC
	kb.unibus.write16(0777412, 0)               // RKDA: drive 0, cyl 0, sector 0
	kb.unibus.write16(0777404, (1<<1)|1)        // function=write, GO

	is.Equal(binary.LittleEndian.Uint16(kb.unibus.rk11.image[0:]), uint16(0xBEEF))
	is.True(kb.unibus.rk11.rkcs&(1<<7) != 0) // ready/done

	// now clear core and read the sector back.
	for i := 0; i < rkSectorWords; i++ {
		kb.unibus.core[(0004000>>1)+i] = 0
	}
	kb.unibus.write16(0777410, 0004000)
	kb.unibus.write16(0777406, negSectorWords)
	kb.unibus.write16(0777412, 0)
	kb.unibus.write16(0777404, (2<<1)|1) // function=read, GO

	is.Equal(kb.unibus.core[0004000>>1], uint16(0xBEEF))
}

func TestRK11SeekInvalidSetsNXC(t *testing.T) {
	is := is.New(t)
	var iq interruptQueue
	rk := RK11{interrupts: &iq}
	rk.reset()
	rk.cylinder = rkMaxCylinder + 1

	is.True(!rk.seekValid())
	is.True(rk.rker&rkNXC != 0)
	is.True(rk.rker&rkErr != 0)
}

func TestRK11PhysAddrUsesExtendedBits(t *testing.T) {
	is := is.New(t)
	rk := RK11{rkba: 0177776, rkcs: 1 << 4} // ext bit 0 set
	is.Equal(rk.physAddr(), addr18(1<<16)+addr18(0177776))
}
