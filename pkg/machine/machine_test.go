// Copyright (C) 2021  Antonio Lassandro

// This program is free software: you can redistribute it and/or modify it
// under the terms of the GNU General Public License as published by the Free
// Software Foundation, either version 3 of the License, or (at your option)
// any later version.

// This program is distributed in the hope that it will be useful, but WITHOUT
// ANY WARRANTY; without even the implied warranty of MERCHANTABILITY or
// FITNESS FOR A PARTICULAR PURPOSE.  See the GNU General Public License for
// more details.

// You should have received a copy of the GNU General Public License along
// with this program.  If not, see <http://www.gnu.org/licenses/>.

package machine

import "testing"

func instr(opcode uint16, md, ms AddrMode) uint16 {
	return opcode<<4 | uint16(md)<<2 | uint16(ms)
}

func newLoadedMachine(t *testing.T, words []uint16) *Machine {
	t.Helper()
	var mc Machine
	mc.Reset()
	if err := mc.LoadWords(words); err != nil {
		t.Fatalf("LoadWords: %v", err)
	}
	return &mc
}

func TestHaltImmediately(t *testing.T) {
	mc := newLoadedMachine(t, []uint16{instr(OP_HALT, ModeDirect, ModeDirect)})

	out := mc.Run()
	if !out.Halted || out.Trap != nil {
		t.Fatalf("expected clean halt, got %+v", out)
	}

	ip, _ := mc.State.readIP()
	if ip != 1 {
		t.Errorf("IP after halt: want 1, got %#04x", ip)
	}
}

func TestAddTwoLiterals(t *testing.T) {
	prog := []uint16{
		instr(OP_MOV, ModeDirect, ModeDirect), 0x010, 0x003,
		instr(OP_MOV, ModeDirect, ModeDirect), 0x011, 0x004,
		instr(OP_ADD, ModeDirect, ModeDirect), 0x010, 0x011,
		instr(OP_HALT, ModeDirect, ModeDirect),
	}
	mc := newLoadedMachine(t, prog)

	out := mc.Run()
	if !out.Halted {
		t.Fatalf("expected halt, got %+v", out)
	}

	v, _ := mc.State.read(0x10)
	if v != 7 {
		t.Errorf("cell 0x10: want 7, got %#04x", v)
	}

	f := mc.State.Flags
	if f.Zero || f.Sign || f.Carry || f.Overflow {
		t.Errorf("unexpected flags: %+v", f)
	}
}

func TestSignedOverflow(t *testing.T) {
	prog := []uint16{
		instr(OP_MOV, ModeDirect, ModeDirect), 0x020, 0x0FFF,
		instr(OP_MOV, ModeDirect, ModeDirect), 0x021, 0x0001,
		instr(OP_ADD, ModeDirect, ModeDirect), 0x020, 0x021,
		instr(OP_HALT, ModeDirect, ModeDirect),
	}
	mc := newLoadedMachine(t, prog)

	out := mc.Run()
	if !out.Halted {
		t.Fatalf("expected halt, got %+v", out)
	}

	v, _ := mc.State.read(0x20)
	if v != 0x1000 {
		t.Errorf("cell 0x20: want 0x1000, got %#04x", v)
	}

	f := mc.State.Flags
	if !f.Sign || !f.Overflow || f.Carry || f.Zero {
		t.Errorf("unexpected flags: %+v", f)
	}
}

func TestStackRoundTrip(t *testing.T) {
	prog := []uint16{
		instr(OP_PUSH, ModeDirect, ModeDirect), 0x100,
		instr(OP_PUSH, ModeDirect, ModeDirect), 0x200,
		instr(OP_POP, ModeDirect, ModeDirect), 0x30,
		instr(OP_POP, ModeDirect, ModeDirect), 0x31,
		instr(OP_HALT, ModeDirect, ModeDirect),
	}
	mc := newLoadedMachine(t, prog)

	out := mc.Run()
	if !out.Halted {
		t.Fatalf("expected halt, got %+v", out)
	}

	v30, _ := mc.State.read(0x30)
	v31, _ := mc.State.read(0x31)
	if v30 != 0x200 || v31 != 0x100 {
		t.Errorf("cell 0x30=%#04x cell 0x31=%#04x, want 0x200/0x100", v30, v31)
	}

	sp, _ := mc.State.readSP()
	if sp != InitialSP {
		t.Errorf("SP: want %#04x, got %#04x", InitialSP, sp)
	}
}

func TestConditionalBranchTaken(t *testing.T) {
	prog := []uint16{
		instr(OP_MOV, ModeDirect, ModeDirect), 0x60, 0x05, // 0-2
		instr(OP_MOV, ModeDirect, ModeDirect), 0x61, 0x05, // 3-5
		instr(OP_CMP, ModeDirect, ModeDirect), 0x60, 0x61, // 6-8
		instr(OP_JZ, ModeDirect, ModeDirect), 0x0F, // 9-10
		instr(OP_HALT, ModeDirect, ModeDirect), // 11, not reached
		0, 0, 0, // 12-14 padding up to 0x0F
		instr(OP_MOV, ModeDirect, ModeDirect), 0x50, 0xAB, // 0x0F-0x11
		instr(OP_HALT, ModeDirect, ModeDirect), // 0x12
	}

	mc := newLoadedMachine(t, prog)
	out := mc.Run()
	if !out.Halted {
		t.Fatalf("expected halt, got %+v", out)
	}

	v, _ := mc.State.read(0x50)
	if v != 0xAB {
		t.Errorf("cell 0x50: want 0xAB, got %#04x", v)
	}
}

func TestConditionalBranchNotTaken(t *testing.T) {
	prog := []uint16{
		instr(OP_MOV, ModeDirect, ModeDirect), 0x60, 0x05, // 0-2
		instr(OP_MOV, ModeDirect, ModeDirect), 0x61, 0x06, // 3-5
		instr(OP_CMP, ModeDirect, ModeDirect), 0x60, 0x61, // 6-8
		instr(OP_JZ, ModeDirect, ModeDirect), 0x0F, // 9-10
		instr(OP_HALT, ModeDirect, ModeDirect), // 11
		0, 0, 0, // 12-14
		instr(OP_MOV, ModeDirect, ModeDirect), 0x50, 0xAB, // 0x0F-0x11, not reached
		instr(OP_HALT, ModeDirect, ModeDirect), // 0x12
	}

	mc := newLoadedMachine(t, prog)
	out := mc.Run()
	if !out.Halted {
		t.Fatalf("expected halt, got %+v", out)
	}

	v, _ := mc.State.read(0x50)
	if v != 0 {
		t.Errorf("cell 0x50: want 0, got %#04x", v)
	}
}

func TestIndirectWrite(t *testing.T) {
	prog := []uint16{
		instr(OP_MOV, ModeIndirect, ModeDirect), 0x40, 0x77,
		instr(OP_HALT, ModeDirect, ModeDirect),
	}
	mc := newLoadedMachine(t, prog)
	mc.State.write(0x40, 0x80)

	out := mc.Run()
	if !out.Halted {
		t.Fatalf("expected halt, got %+v", out)
	}

	v, _ := mc.State.read(0x80)
	if v != 0x77 {
		t.Errorf("cell 0x80: want 0x77, got %#04x", v)
	}
	v40, _ := mc.State.read(0x40)
	if v40 != 0x80 {
		t.Errorf("cell 0x40 changed: got %#04x", v40)
	}
}

func TestSubSelfIsZero(t *testing.T) {
	prog := []uint16{
		instr(OP_MOV, ModeDirect, ModeDirect), 0x10, 0x2A,
		instr(OP_SUB, ModeDirect, ModeDirect), 0x10, 0x10,
		instr(OP_HALT, ModeDirect, ModeDirect),
	}
	mc := newLoadedMachine(t, prog)
	out := mc.Run()
	if !out.Halted {
		t.Fatalf("expected halt, got %+v", out)
	}

	v, _ := mc.State.read(0x10)
	f := mc.State.Flags
	if v != 0 || !f.Zero || f.Sign || f.Carry || f.Overflow {
		t.Errorf("SUB a,a: v=%#04x flags=%+v", v, f)
	}
}

func TestXorSelfIsZero(t *testing.T) {
	prog := []uint16{
		instr(OP_MOV, ModeDirect, ModeDirect), 0x10, 0x2A,
		instr(OP_XOR, ModeDirect, ModeDirect), 0x10, 0x10,
		instr(OP_HALT, ModeDirect, ModeDirect),
	}
	mc := newLoadedMachine(t, prog)
	out := mc.Run()
	if !out.Halted {
		t.Fatalf("expected halt, got %+v", out)
	}

	v, _ := mc.State.read(0x10)
	f := mc.State.Flags
	if v != 0 || !f.Zero || f.Carry || f.Overflow {
		t.Errorf("XOR a,a: v=%#04x flags=%+v", v, f)
	}
}

func TestNotNotIsIdentity(t *testing.T) {
	prog := []uint16{
		instr(OP_MOV, ModeDirect, ModeDirect), 0x10, 0x0ABC,
		instr(OP_NOT, ModeDirect, ModeDirect), 0x10,
		instr(OP_NOT, ModeDirect, ModeDirect), 0x10,
		instr(OP_HALT, ModeDirect, ModeDirect),
	}
	mc := newLoadedMachine(t, prog)
	out := mc.Run()
	if !out.Halted {
		t.Fatalf("expected halt, got %+v", out)
	}

	v, _ := mc.State.read(0x10)
	if v != 0x0ABC {
		t.Errorf("NOT(NOT(a)): want 0x0ABC, got %#04x", v)
	}
}

func TestShlShrRecoversOriginal(t *testing.T) {
	prog := []uint16{
		instr(OP_MOV, ModeDirect, ModeDirect), 0x10, 0x0123,
		instr(OP_SHL, ModeDirect, ModeDirect), 0x10,
		instr(OP_SHR, ModeDirect, ModeDirect), 0x10,
		instr(OP_HALT, ModeDirect, ModeDirect),
	}
	mc := newLoadedMachine(t, prog)
	out := mc.Run()
	if !out.Halted {
		t.Fatalf("expected halt, got %+v", out)
	}

	v, _ := mc.State.read(0x10)
	if v != 0x0123 {
		t.Errorf("SHL;SHR: want 0x0123, got %#04x", v)
	}
}

func TestInvalidOpcodeTraps(t *testing.T) {
	mc := newLoadedMachine(t, []uint16{instr(0x1FF, ModeDirect, ModeDirect)})
	out := mc.Run()
	if out.Trap == nil || out.Trap.Kind != TrapInvalidOpcode {
		t.Fatalf("expected InvalidOpcode trap, got %+v", out)
	}
}

func TestStackFaultOnOverflow(t *testing.T) {
	// Drive SP down into the reserved region by pushing repeatedly: a
	// PUSH/JMP loop at 0x100, with SP started at 0x10 so the stack wraps
	// past cell 0 before it can reach the loop's own cells.
	prog := make([]uint16, 0x100, 0x104)
	prog = append(prog,
		instr(OP_PUSH, ModeDirect, ModeDirect), 1,
		instr(OP_JMP, ModeDirect, ModeDirect), 0x100,
	)

	mc := newLoadedMachine(t, prog)
	mc.State.writeIP(0x100)
	mc.State.writeSP(0x10)
	out := mc.Run()
	if out.Trap == nil || out.Trap.Kind != TrapStackFault {
		t.Fatalf("expected StackFault trap, got %+v", out)
	}
}

func TestXchgSwapsCells(t *testing.T) {
	prog := []uint16{
		instr(OP_MOV, ModeDirect, ModeDirect), 0x10, 0x11,
		instr(OP_MOV, ModeDirect, ModeDirect), 0x11, 0x22,
		instr(OP_XCHG, ModeDirect, ModeDirect), 0x10, 0x11,
		instr(OP_HALT, ModeDirect, ModeDirect),
	}
	mc := newLoadedMachine(t, prog)
	out := mc.Run()
	if !out.Halted {
		t.Fatalf("expected halt, got %+v", out)
	}

	v10, _ := mc.State.read(0x10)
	v11, _ := mc.State.read(0x11)
	if v10 != 0x22 || v11 != 0x11 {
		t.Errorf("XCHG: cell 0x10=%#04x cell 0x11=%#04x, want 0x22/0x11", v10, v11)
	}
}

func TestRequestStopCancelsRun(t *testing.T) {
	prog := make([]uint16, 0, 2*0x2000)
	for i := 0; i < 0x2000; i++ {
		prog = append(prog, instr(OP_NOP, ModeDirect, ModeDirect))
	}
	mc := newLoadedMachine(t, prog)
	mc.RequestStop()

	out := mc.Run()
	if out.Trap == nil || out.Trap.Kind != TrapCancelled {
		t.Fatalf("expected Cancelled trap, got %+v", out)
	}
}
