package main

// addr18 is an 18-bit UNIBUS physical address.
type addr18 uint32

// page is one KT-11 page: a PAR/PDR pair. Field accessors follow the
// teacher's Page type (Par/Pdr split into addr/len/read/write/ed).
type page struct {
	Par, Pdr uint16
}

// addr is the page-frame base, an 18-bit byte address contribution
// still shifted left six bits by the caller (PAR<<6).
func (p *page) addr() addr18 { return addr18(p.Par & 07777) }

// plf is the page-length field, in 64-byte blocks.
func (p *page) plf() uint16 { return (p.Pdr >> 8) & 0177 }

func (p *page) readable() bool { return p.Pdr&2 == 2 }
func (p *page) writable() bool { return p.Pdr&6 == 6 }
func (p *page) ed() bool       { return p.Pdr&8 == 8 }
func (p *page) setWritten()    { p.Pdr |= 1 << 6 }

// KT11 is the PDP-11 KT-11 memory management unit. pages[0:8] are the
// kernel address space, pages[8:16] the user address space, matching
// spec.md section 3's "for each of {kernel, user}, eight PDR/PAR".
type KT11 struct {
	SR0, SR1, SR2 uint16
	pages         [16]page
}

// enabled reports whether relocation is active (SR0 bit 0).
func (kt *KT11) enabled() bool { return kt.SR0&1 == 1 }

// decode translates a 16-bit virtual address to an 18-bit physical
// address for the given mode (0=kernel, 3=user) and access (wr). It
// implements spec.md section 4.2's translation and abort rules; aborts
// are raised as a trap to vecMMUFault, recording the faulting
// condition, page, and mode in SR0 and the current instruction's PC
// (not the faulting address itself, matching the original
// implementation's `self.SR2 = self.curPC`) in SR2. The faulting access
// does not commit — decode panics before returning, so no caller-visible
// state changes that depend on the translated address.
func (kt *KT11) decode(wr bool, va uint16, mode uint16, pc uint16) addr18 {
	if !kt.enabled() {
		a := addr18(va)
		if a > 0167777 {
			return a + 0600000
		}
		return a
	}
	user := uint16(0)
	if mode > 0 {
		user = 8
	}
	i := (va >> 13) + user
	p := &kt.pages[i]
	if wr && !p.writable() {
		kt.SR0 = (1 << 13) | 1
		kt.SR0 |= (va >> 12) &^ 1
		if user != 0 {
			kt.SR0 |= (1 << 5) | (1 << 6)
		}
		kt.SR2 = pc
		panic(trapf(vecMMUFault, "write to read-only page %06o", va))
	}
	if !p.readable() {
		kt.SR0 = (1 << 15) | 1
		kt.SR0 |= (va >> 12) &^ 1
		if user != 0 {
			kt.SR0 |= (1 << 5) | (1 << 6)
		}
		kt.SR2 = pc
		panic(trapf(vecMMUFault, "read from no-access page %06o", va))
	}
	block := (va >> 6) & 0177
	disp := addr18(va & 077)
	if (p.ed() && block < p.plf()) || (!p.ed() && block > p.plf()) {
		kt.SR0 = (1 << 14) | 1
		kt.SR0 |= (va >> 12) &^ 1
		if user != 0 {
			kt.SR0 |= (1 << 5) | (1 << 6)
		}
		kt.SR2 = pc
		panic(trapf(vecMMUFault, "page length exceeded, address %06o (block %03o) beyond length %03o", va, block, p.plf()))
	}
	if wr {
		p.setWritten()
	}
	return ((addr18(block) + p.addr()) << 6) + disp
}

// read16 services an MMU register read reached through the I/O page.
func (kt *KT11) read16(a addr18) uint16 {
	i := (a & 017) >> 1
	switch a &^ 037 {
	case 0772300:
		return kt.pages[i].Pdr
	case 0772340:
		return kt.pages[i].Par
	case 0777600:
		return kt.pages[i+8].Pdr
	case 0777640:
		return kt.pages[i+8].Par
	default:
		panic(trapf(vecBus, "mmu: invalid read %06o", a))
	}
}

// write16 services an MMU register write reached through the I/O page.
func (kt *KT11) write16(a addr18, v uint16) {
	i := (a & 017) >> 1
	switch a &^ 037 {
	case 0772300:
		kt.pages[i].Pdr = v
	case 0772340:
		kt.pages[i].Par = v
	case 0777600:
		kt.pages[i+8].Pdr = v
	case 0777640:
		kt.pages[i+8].Par = v
	default:
		panic(trapf(vecBus, "mmu: invalid write %06o: %06o", a, v))
	}
}

func (kt *KT11) reset() {
	kt.SR0, kt.SR1, kt.SR2 = 0, 0, 0
	kt.pages = [16]page{}
}
