package main

// step fetches, decodes and executes exactly one instruction at R[7],
// advancing the PC past it. It is the direct port of the original
// implementation's step(): a flat cascade of opcode-field masks, each
// returning as soon as it recognizes the instruction. Unrecognized
// encodings fall through to a reserved-instruction trap.
func (kb *KB11) step() {
	kb.pc = kb.R[7]
	ia := kb.mmu.decode(false, kb.R[7], kb.currentmode(), kb.pc)
	kb.R[7] += 2
	instr := kb.unibus.read16(ia)

	d := instr & 077
	s := (instr & 07700) >> 6
	o := instr & 0xff
	l := 2
	if instr&0100000 != 0 {
		l = 1
	}

	// MOV / CMP / BIT / BIC / BIS
	switch instr & 0070000 {
	case 0010000:
		kb.MOV(s, d, l)
		return
	case 0020000:
		kb.CMP(s, d, l)
		return
	case 0030000:
		kb.BIT(s, d, l)
		return
	case 0040000:
		kb.BIC(s, d, l)
		return
	case 0050000:
		kb.BIS(s, d, l)
		return
	}

	// ADD / SUB
	switch instr & 0170000 {
	case 0060000:
		kb.ADD(instr)
		return
	case 0160000:
		kb.SUB(instr)
		return
	}

	// JSR / MUL / DIV / ASH / ASHC / XOR / SOB
	switch instr & 0177000 {
	case 0004000:
		kb.JSR(instr)
		return
	case 0070000:
		kb.MUL(s, d, l)
		return
	case 0071000:
		kb.DIV(s, d, l)
		return
	case 0072000:
		kb.ASH(s, d)
		return
	case 0073000:
		kb.ASHC(s, d)
		return
	case 0074000:
		kb.XOR(s, d)
		return
	case 0077000:
		kb.SOB(s, o)
		return
	}

	// CLR / COM / INC / DEC / NEG / ADC / SBC / TST / ROR / ROL / ASR / ASL / SXT
	switch instr & 0077700 {
	case 0005000:
		kb.CLR(d, l)
		return
	case 0005100:
		kb.COM(d, l)
		return
	case 0005200:
		kb.INC(d, l)
		return
	case 0005300:
		kb.DEC(d, l)
		return
	case 0005400:
		kb.NEG(d, l)
		return
	case 0005500:
		kb.ADC(d, l)
		return
	case 0005600:
		kb.SBC(d, l)
		return
	case 0005700:
		kb.TST(d, l)
		return
	case 0006000:
		kb.ROR(d, l)
		return
	case 0006100:
		kb.ROL(d, l)
		return
	case 0006200:
		kb.ASR(d, l)
		return
	case 0006300:
		kb.ASL(d, l)
		return
	case 0006700:
		kb.SXT(d, l)
		return
	}

	// JMP / SWAB / MARK / MFPI / MTPI
	switch instr & 0177700 {
	case 0000100:
		kb.JMP(d)
		return
	case 0000300:
		kb.SWAB(d, l)
		return
	case 0006400:
		kb.MARK(instr)
		return
	case 0006500:
		kb.MFPI(d)
		return
	case 0006600:
		kb.MTPI(d)
		return
	}

	// RTS
	if instr&0177770 == 0000200 {
		kb.RTS(d)
		return
	}

	// Branches
	switch instr & 0177400 {
	case 0000400:
		kb.branch(o)
		return
	case 0001000:
		if !kb.z() {
			kb.branch(o)
		}
		return
	case 0001400:
		if kb.z() {
			kb.branch(o)
		}
		return
	case 0002000:
		if kb.n() == kb.v() {
			kb.branch(o)
		}
		return
	case 0002400:
		if kb.n() != kb.v() {
			kb.branch(o)
		}
		return
	case 0003000:
		if kb.n() == kb.v() && !kb.z() {
			kb.branch(o)
		}
		return
	case 0003400:
		if kb.n() != kb.v() || kb.z() {
			kb.branch(o)
		}
		return
	case 0100000:
		if !kb.n() {
			kb.branch(o)
		}
		return
	case 0100400:
		if kb.n() {
			kb.branch(o)
		}
		return
	case 0101000:
		if !kb.c() && !kb.z() {
			kb.branch(o)
		}
		return
	case 0101400:
		if kb.c() || kb.z() {
			kb.branch(o)
		}
		return
	case 0102000:
		if !kb.v() {
			kb.branch(o)
		}
		return
	case 0102400:
		if kb.v() {
			kb.branch(o)
		}
		return
	case 0103000:
		if !kb.c() {
			kb.branch(o)
		}
		return
	case 0103400:
		if kb.c() {
			kb.branch(o)
		}
		return
	}

	// EMT / TRAP / BPT / IOT
	if instr&0177000 == 0104000 || instr == 3 || instr == 4 {
		var vec uint16
		switch {
		case instr&0177400 == 0104000:
			vec = vecEMT
		case instr&0177400 == 0104400:
			vec = vecTrap
		case instr == 3:
			vec = vecDebug
		default:
			vec = vecIOT
		}
		kb.trapat(vec)
		return
	}

	// Condition code operators: CLC/CLV/CLZ/CLN/CCC, SEC/SEV/SEZ/SEN/SCC,
	// and SPL (the priority-set form, a real PDP-11/40 opcode the original
	// implementation never models).
	if instr&0177740 == 0000240 {
		if instr&020 != 0 {
			kb.psw |= instr & 017
		} else {
			kb.psw &^= instr & 017
		}
		return
	}
	if instr&0177770 == 0000230 {
		kb.writePSW((kb.psw &^ 0000340) | ((instr & 7) << 5))
		return
	}

	switch instr {
	case 0000000: // HALT: kernel-mode-only; user mode traps instead of silently continuing.
		if kb.currentmode() != 0 {
			panic(trapf(vecBus, "HALT in user mode"))
		}
		kb.halted = true
		return
	case 0000001: // WAIT
		if kb.currentmode() == 0 {
			kb.waiting = true
		}
		return
	case 0000002: // RTI
		kb.RTI()
		return
	case 0000006: // RTT
		kb.RTT()
		return
	case 0000005: // RESET
		kb.RESET()
		return
	case 0000007: // MFPT: not implemented on an 11/40, reserved instruction
		break
	case 0170011: // SETD: not needed by Unix, silently accepted
		return
	}

	panic(trapf(vecInval, "reserved instruction %06o at %06o", instr, kb.pc))
}
