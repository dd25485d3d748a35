package main

// bootrom is the RK05 bootstrap, verbatim from the original
// implementation's BOOTROM table: it reads 256 words (sector count is
// fixed by the hardware, not a parameter) starting at the selected unit's
// first block into address 0 and transfers control there. The PDP-11/40
// has no boot ROM of its own; loading this at a fixed low-memory address
// and setting PC to its second word is how a real RK05 system started.
var bootrom = []uint16{
	0042113,         // "KD"
	0012706, 0002000, // MOV #boot_start, SP
	0012700, 0000000, // MOV #unit, R0
	0010003, // MOV R0, R3
	0000303, // SWAB R3
	0006303, // ASL R3
	0006303, // ASL R3
	0006303, // ASL R3
	0006303, // ASL R3
	0006303, // ASL R3
	0012701, 0177412, // MOV #RKDA, R1
	0010311, // MOV R3, (R1)
	0005041, // CLR -(R1)
	0012741, 0177000, // MOV #-256.*2, -(R1)
	0012741, 0000005, // MOV #READ+GO, -(R1)
	0005002, // CLR R2
	0005003, // CLR R3
	0012704, 0002020, // MOV #START+20, R4
	0005005, // CLR R5
	0105711, // TSTB (R1)
	0100376, // BPL .-2
	0105011, // CLRB (R1)
	0005007, // CLR PC
}

// bootAddr and bootPC are the byte addresses the boot ROM is loaded at
// and where execution resumes after loading it — the signature word at
// bootAddr is skipped.
const (
	bootAddr = 0002000
	bootPC   = 0002002
)

// LoadBoot places the boot ROM in low memory and positions the PC to
// start executing it, the host control surface's load_boot operation
// (spec.md section 6). unit selects the RK05 drive the ROM will read
// from; only unit 0 exists, so it is always patched in as 0.
func (kb *KB11) LoadBoot() {
	kb.Load(bootAddr, bootrom...)
	kb.unibus.core[(bootAddr+4)>>1] = 0 // MOV #unit, R0 — unit is always 0
	kb.R[7] = bootPC
	kb.psw = 0
	kb.waiting = false
	kb.halted = false
}
