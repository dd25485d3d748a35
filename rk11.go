package main

import (
	"encoding/binary"
	"fmt"

	"github.com/spf13/afero"
)

// RK05 error bits, RKER. Matches the teacher's rk11.go bit assignments,
// which in turn match the original implementation's rk05.py.
const (
	rkOVR = 1 << 14 // overrun: transfer ran past the last cylinder
	rkNXD = 1 << 7  // non-existent drive
	rkNXC = 1 << 6  // non-existent cylinder
	rkNXS = 1 << 5  // non-existent sector
	rkErr = 1 << 15 // composite "hard error" bit, set alongside any of the above
)

const (
	rkMaxCylinder = 0312 // 203 decimal, cylinders 0..0312
	rkMaxSector   = 013  // sectors 0..013 (12 per track)
	rkSectorBytes = 512
	rkSectorWords = rkSectorBytes / 2
	rkMaxSectors  = 4872 // spec.md section 6
	rkImageBytes  = rkMaxSectors * rkSectorBytes
)

// hostFault is a host-level failure (spec.md section 7): it is not a
// guest trap, it stops the CPU cleanly and is reported to the host
// control surface instead of being vectored into the guest.
type hostFault struct{ err error }

func (h hostFault) Error() string { return h.err.Error() }

// RK11 is the RK05 disk controller: spec.md section 4.3. A single
// backing image is modeled, matching spec.md section 3's "a byte array
// representing one disk image"; only drive 0 exists, any other
// requested drive reports NXD.
type RK11 struct {
	rkds, rker, rkcs, rkwc, rkba      uint16
	drive, cylinder, surface, sector uint16

	image []byte
	pos   int

	fs   afero.Fs
	path string

	unibus     *UNIBUS
	interrupts *interruptQueue
}

// Mount loads a disk image from fs at path, zero-extending it to the
// full RK05 extent the way the original implementation's RK05.__init__
// does, so any in-range cylinder/surface/sector is always backed by
// real (if zero) bytes.
func (rk *RK11) Mount(fs afero.Fs, path string) error {
	buf, err := afero.ReadFile(fs, path)
	if err != nil {
		return fmt.Errorf("rk11: mount %s: %w", path, err)
	}
	if len(buf) > rkImageBytes {
		buf = buf[:rkImageBytes]
	} else if len(buf) < rkImageBytes {
		padded := make([]byte, rkImageBytes)
		copy(padded, buf)
		buf = padded
	}
	rk.fs = fs
	rk.path = path
	rk.image = buf
	return nil
}

// Flush writes the in-memory image back to its backing file, the way a
// host "stop, then let the directory-sync collaborator touch the
// image" workflow (spec.md section 5) expects the controller's writes
// to eventually land.
func (rk *RK11) Flush() error {
	if rk.fs == nil {
		return nil
	}
	if err := afero.WriteFile(rk.fs, rk.path, rk.image, 0644); err != nil {
		return fmt.Errorf("rk11: flush %s: %w", rk.path, err)
	}
	return nil
}

func (rk *RK11) read16(a addr18) uint16 {
	switch a & 017 {
	case 000: // 777400 Drive Status
		return rk.rkds
	case 002: // 777402 Error Register
		return rk.rker
	case 004: // 777404 Control Status
		return rk.rkcs &^ 1 // go bit reads back as 0
	case 006: // 777406 Word Count
		return rk.rkwc
	case 010: // 777410 Bus Address
		return rk.rkba
	case 012: // 777412 Disk Address
		return (rk.drive << 13) | (rk.cylinder << 5) | (rk.surface << 4) | rk.sector
	default:
		panic(trapf(vecBus, "rk11: invalid read %06o", a))
	}
}

func (rk *RK11) write16(a addr18, v uint16) {
	switch a & 017 {
	case 004: // RKCS: bit 7 (ready) and bits 12-15 are read-only
		rk.rkcs = (v &^ 0xf080) | (rk.rkcs & 0xf080)
		rk.step()
	case 006:
		rk.rkwc = v
	case 010:
		rk.rkba = v
	case 012:
		rk.drive = v >> 13
		rk.cylinder = (v >> 5) & 0377
		rk.surface = (v >> 4) & 1
		rk.sector = v & 017
	default:
		panic(trapf(vecBus, "rk11: invalid write %06o: %06o", a, v))
	}
}

// step executes the function encoded in RKCS if the GO bit is set,
// matching spec.md section 4.3's function-code table.
func (rk *RK11) step() {
	if rk.rkcs&1 == 0 {
		return
	}
	switch (rk.rkcs >> 1) & 7 {
	case 0: // controller reset
		rk.reset()
	case 1: // write
		rk.transfer(true)
	case 2: // read
		rk.transfer(false)
	case 3, 5: // write-check, read-check: no-op per spec.md section 4.3
		rk.complete()
	case 4: // seek
		if rk.seekValid() {
			rk.seekTo()
			rk.complete()
		} else {
			rk.completeWithError()
		}
	case 6: // drive reset, falls through to complete as a seek
		rk.rker = 0
		if rk.seekValid() {
			rk.seekTo()
		}
		rk.complete()
	case 7: // write-lock: not modeled, completes as a no-op
		rk.complete()
	}
}

func (rk *RK11) seekValid() bool {
	if rk.drive != 0 {
		rk.rker |= rkErr | rkNXD
		return false
	}
	if rk.cylinder > rkMaxCylinder {
		rk.rker |= rkErr | rkNXC
		return false
	}
	if rk.sector > rkMaxSector {
		rk.rker |= rkErr | rkNXS
		return false
	}
	return true
}

func (rk *RK11) seekTo() {
	rk.pos = (((int(rk.cylinder) * 2) + int(rk.surface)) * 12 + int(rk.sector)) * rkSectorBytes
}

// physAddr resolves RKBA plus the high two bits of RKCS to an 18-bit
// physical target, per spec.md section 4.3.
func (rk *RK11) physAddr() addr18 {
	ext := addr18((rk.rkcs >> 4) & 3)
	return (ext << 16) | addr18(rk.rkba)
}

// transfer moves abs(RKWC) words between the backing image and
// physical memory, advancing RKBA/RKWC and the disk address as it goes.
func (rk *RK11) transfer(write bool) {
	if !rk.seekValid() {
		rk.completeWithError()
		return
	}
	rk.seekTo()
	rk.rkds &^= 1 << 6
	rk.rkcs &^= 1 << 7

	n := int(-int16(rk.rkwc))
	for i := 0; i < n; i++ {
		if rk.pos+2 > len(rk.image) {
			panic(hostFault{fmt.Errorf("rk11: image too short for offset %d", rk.pos)})
		}
		pa := rk.physAddr()
		if write {
			v := rk.unibus.read16(pa)
			binary.LittleEndian.PutUint16(rk.image[rk.pos:], v)
		} else {
			v := binary.LittleEndian.Uint16(rk.image[rk.pos:])
			rk.unibus.write16(pa, v)
		}
		rk.pos += 2
		rk.rkba += 2
		rk.rkwc++

		rk.sector++
		if rk.sector > rkMaxSector {
			rk.sector = 0
			rk.surface++
			if rk.surface > 1 {
				rk.surface = 0
				rk.cylinder++
				if rk.cylinder > rkMaxCylinder {
					rk.rker |= rkErr | rkOVR
					rk.complete()
					return
				}
			}
			rk.seekTo()
		}
	}
	rk.complete()
}

// complete marks the controller ready and, if enabled, raises the RK05
// completion interrupt (spec.md section 4.3: BR5, vector 0o220).
func (rk *RK11) complete() {
	rk.rkds |= 1 << 6
	rk.rkcs |= 1 << 7
	rk.rkcs &^= 1
	if rk.rkcs&(1<<6) != 0 {
		rk.interrupts.post(vecRK, 5, devRK)
	}
}

// completeWithError finishes the operation without a transfer, still
// raising the completion interrupt: spec.md section 4.3's "Out-of-range
// addresses set an error bit in RKER and still interrupt."
func (rk *RK11) completeWithError() {
	rk.complete()
}

func (rk *RK11) reset() {
	rk.rkds = 04700
	rk.rker = 0
	rk.rkcs = 0200
	rk.rkwc = 0
	rk.rkba = 0
	rk.drive = 0
	rk.cylinder = 0
	rk.surface = 0
	rk.sector = 0
	rk.interrupts.clear(devRK)
}
