package main

// KW11 is the line-frequency clock: spec.md section 4.5. Bit 6 of its
// control/status register is the interrupt enable; bit 7 is the
// "monitor" flag, set every tick regardless of the enable bit.
type KW11 struct {
	csr uint16

	interrupts *interruptQueue
}

func (kw *KW11) write16(a addr18, v uint16) {
	switch a {
	case 0777546:
		kw.csr = v
		if kw.csr&(1<<6) == 0 {
			kw.interrupts.clear(devClock)
		}
	default:
		panic(trapf(vecBus, "kw11: write to invalid address %06o", a))
	}
}

func (kw *KW11) read16(a addr18) uint16 {
	switch a {
	case 0777546:
		return kw.csr
	default:
		panic(trapf(vecBus, "kw11: read from invalid address %06o", a))
	}
}

// tick is invoked by the host's 60Hz goroutine. It never touches CPU or
// memory state directly — only the interrupt queue, which is safe to
// call from any goroutine (spec.md section 5).
func (kw *KW11) tick() {
	kw.csr |= 1 << 7
	if kw.csr&(1<<6) != 0 {
		kw.interrupts.post(vecClock, 6, devClock)
	}
}

func (kw *KW11) reset() {
	kw.csr = 0
	kw.interrupts.clear(devClock)
}
