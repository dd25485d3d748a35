package main

// JMP loads R7 from the resolved operand's address; like JSR, a
// register-direct operand has no address and traps instead of the
// original implementation's silent no-op.
func (kb *KB11) JMP(d uint16) {
	da := kb.aget(d, 2)
	if da.reg {
		panic(trapf(vecInval, "JMP to a register operand"))
	}
	kb.R[7] = da.va
}

// MARK cleans up a C-style call frame: spec.md's "procedure call return"
// helper, ported from the original implementation without its puzzled
// "no return here?" comment — the fallthrough was a latent bug there,
// this trap dispatch ends the instruction properly.
func (kb *KB11) MARK(instr uint16) {
	kb.R[6] = kb.R[7] + (instr&077)<<1
	kb.R[7] = kb.R[5]
	kb.R[5] = kb.pop()
}

// MFPI pushes the value of a register or memory location as seen in the
// previous mode onto the current stack.
func (kb *KB11) MFPI(d uint16) {
	da := kb.aget(d, 2)
	var val uint16
	switch {
	case !da.reg && da.va == 0170006: // the previous mode's SP, by its own special address
		if kb.currentmode() == kb.previousmode() {
			val = kb.R[6]
		} else {
			val = kb.stackpointer[kb.previousmode()]
		}
	case da.reg:
		panic(trapf(vecInval, "MFPI on a register operand"))
	default:
		val = kb.unibus.read16(kb.mmu.decode(false, da.va, kb.previousmode(), kb.pc))
	}
	kb.push(val)
	kb.psw &^= FLAGN | FLAGZ | FLAGV
	kb.psw |= FLAGC
	if val == 0 {
		kb.psw |= FLAGZ
	}
	if val&0x8000 != 0 {
		kb.psw |= FLAGN
	}
}

// MTPI pops the current stack into a register or memory location as seen
// in the previous mode.
func (kb *KB11) MTPI(d uint16) {
	da := kb.aget(d, 2)
	val := kb.pop()
	switch {
	case !da.reg && da.va == 0170006:
		switch {
		case kb.currentmode() == kb.previousmode():
			kb.R[6] = val
		default:
			kb.stackpointer[kb.previousmode()] = val
		}
	case da.reg:
		panic(trapf(vecInval, "MTPI on a register operand"))
	default:
		kb.unibus.write16(kb.mmu.decode(true, da.va, kb.previousmode(), kb.pc), val)
	}
	kb.psw &^= FLAGN | FLAGZ | FLAGV
	kb.psw |= FLAGC
	if val == 0 {
		kb.psw |= FLAGZ
	}
	if val&0x8000 != 0 {
		kb.psw |= FLAGN
	}
}

func (kb *KB11) RTS(d uint16) {
	reg := d & 7
	kb.R[7] = kb.R[reg]
	kb.R[reg] = kb.pop()
}

// RTI returns from an interrupt or trap, restoring the full PSW
// unconditionally.
func (kb *KB11) RTI() {
	newpc := kb.pop()
	newpsw := kb.pop()
	kb.R[7] = newpc
	if kb.currentmode() > 0 {
		newpsw = (newpsw & 047) | (kb.psw & 0177730)
	}
	kb.writePSW(newpsw)
}

// RTT is identical to RTI except that it inhibits the T-bit trace trap
// for the one instruction boundary immediately following it (spec.md
// section 4.1's edge case); RTI carries no such inhibition.
func (kb *KB11) RTT() {
	kb.RTI()
	kb.rttInhibit = true
}

func (kb *KB11) RESET() {
	if kb.currentmode() != 0 {
		return
	}
	kb.unibus.reset()
}
