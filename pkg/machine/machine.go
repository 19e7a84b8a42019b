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

// Outcome is the single tagged result the CPU loop reports: Halted is
// true only on a clean HALT, otherwise Trap names the fatal condition.
type Outcome struct {
	Halted bool
	Trap   *Trap
}

// IP reports the current instruction pointer, ignoring the (never
// fired, since AddrIP is always in range) read error.
func (mc *Machine) IP() uint16 {
	ip, _ := mc.State.readIP()
	return ip
}

// Reset zeroes the backing buffer, seats SP and IP at their initial
// values, and clears flags. Does not reallocate.
func (mc *Machine) Reset() {
	for i := range mc.State.Memory {
		mc.State.Memory[i] = 0
	}
	mc.State.Flags = Flags{}
	mc.stopRequested = false

	// ignore errors: InitialSP/InitialIP are always in range
	mc.State.write(AddrSP, InitialSP)
	mc.State.write(AddrIP, InitialIP)
}

// LoadWords packs words into cells 0..len(words)-1, leaving the rest of
// memory at whatever Reset last set. SP/IP keep their Reset values only
// when the image is shorter than AddrSP; a longer image overwrites them.
func (mc *Machine) LoadWords(words []uint16) error {
	if len(words) > CellCount {
		return &Trap{Kind: TrapAddressOutOfRange}
	}
	for i, w := range words {
		if err := mc.State.write(uint16(i), w); err != nil {
			return err
		}
	}
	return nil
}

// read/write wrap the packed-memory accessors with debugger hooks, the
// same pattern the teacher uses to intercept device cells.
func (mc *Machine) read(addr uint16) (uint16, error) {
	v, err := mc.State.read(addr)
	if err != nil {
		return 0, err
	}
	if mc.Debugger != nil {
		mc.Debugger.Read(addr, mc)
	}
	return v, nil
}

func (mc *Machine) write(addr uint16, value uint16) error {
	if err := mc.State.write(addr, value); err != nil {
		return err
	}
	if mc.Debugger != nil {
		mc.Debugger.Write(addr, mc)
	}
	return nil
}

// resolve applies mode's chain of dereferences to base and returns the
// resulting address. Direct performs none; Indirect/Double/Triple chase
// one/two/three pointers, each hop masked to 13 bits.
func (mc *Machine) resolve(mode AddrMode, base uint16) (uint16, error) {
	addr := base & CellMask

	switch mode {
	case ModeDirect:
		return addr, nil
	case ModeIndirect:
		return mc.read(addr)
	case ModeDoubleIndirect:
		a, err := mc.read(addr)
		if err != nil {
			return 0, err
		}
		return mc.read(a)
	case ModeTripleIndirect:
		a, err := mc.read(addr)
		if err != nil {
			return 0, err
		}
		b, err := mc.read(a)
		if err != nil {
			return 0, err
		}
		return mc.read(b)
	default:
		return 0, &Trap{Kind: TrapInvalidAddressingMode}
	}
}

// valueOf reads the R-value a generic (non-MOV/PUSH) value operand
// denotes: one memory read beyond resolve, even under Direct.
func (mc *Machine) valueOf(mode AddrMode, literal uint16) (uint16, error) {
	addr, err := mc.resolve(mode, literal)
	if err != nil {
		return 0, err
	}
	return mc.read(addr)
}

// immediateOf reads the value MOV's source and PUSH's operand denote:
// resolve's own output used directly, no trailing read.
func (mc *Machine) immediateOf(mode AddrMode, literal uint16) (uint16, error) {
	return mc.resolve(mode, literal)
}

func decode(word uint16) (opcode uint16, md, ms AddrMode) {
	opcode = (word >> 4) & 0x1FF
	md = AddrMode((word >> 2) & 0x3)
	ms = AddrMode(word & 0x3)
	return
}

func (mc *Machine) push(value uint16) error {
	sp, err := mc.State.readSP()
	if err != nil {
		return err
	}
	if err := mc.write(sp, value); err != nil {
		return err
	}
	next := (sp - 1) & CellMask
	if next == AddrSP || next == AddrIP {
		return &Trap{Kind: TrapStackFault}
	}
	return mc.State.writeSP(next)
}

func (mc *Machine) pop() (uint16, error) {
	sp, err := mc.State.readSP()
	if err != nil {
		return 0, err
	}
	next := (sp + 1) & CellMask
	if next == AddrSP || next == AddrIP {
		return 0, &Trap{Kind: TrapStackFault}
	}
	if err := mc.State.writeSP(next); err != nil {
		return 0, err
	}
	return mc.read(next)
}

// Step runs one fetch-decode-execute cycle.
func (mc *Machine) Step() (halted bool, trap *Trap) {
	if mc.stopRequested {
		return false, &Trap{Kind: TrapCancelled}
	}

	faultIP, err := mc.State.readIP()
	if err != nil {
		return false, asTrap(err, 0)
	}

	word, err := mc.read(faultIP)
	if err != nil {
		return false, asTrap(err, faultIP)
	}

	if err := mc.State.writeIP((faultIP + 1) & CellMask); err != nil {
		return false, asTrap(err, faultIP)
	}

	opcode, md, ms := decode(word)
	n, ok := arity(opcode)
	if !ok {
		return false, &Trap{Kind: TrapInvalidOpcode, IP: faultIP}
	}

	var op1, op2 uint16

	if n >= 1 {
		cur, err := mc.State.readIP()
		if err != nil {
			return false, asTrap(err, faultIP)
		}
		op1, err = mc.read(cur)
		if err != nil {
			return false, asTrap(err, faultIP)
		}
		if err := mc.State.writeIP((cur + 1) & CellMask); err != nil {
			return false, asTrap(err, faultIP)
		}
	}

	if n >= 2 {
		cur, err := mc.State.readIP()
		if err != nil {
			return false, asTrap(err, faultIP)
		}
		op2, err = mc.read(cur)
		if err != nil {
			return false, asTrap(err, faultIP)
		}
		if err := mc.State.writeIP((cur + 1) & CellMask); err != nil {
			return false, asTrap(err, faultIP)
		}
	}

	halted, err = mc.execute(opcode, md, ms, op1, op2)
	if err != nil {
		return false, asTrap(err, faultIP)
	}

	if mc.Debugger != nil {
		mc.Debugger.Step(mc)
	}

	return halted, nil
}

// Run drives the fetch-decode-execute loop to completion.
func (mc *Machine) Run() Outcome {
	for {
		halted, trap := mc.Step()
		if trap != nil {
			return Outcome{Trap: trap}
		}
		if halted {
			return Outcome{Halted: true}
		}
	}
}

func asTrap(err error, ip uint16) *Trap {
	if t, ok := err.(*Trap); ok {
		if t.IP == 0 {
			t.IP = ip
		}
		return t
	}
	return &Trap{Kind: TrapIOFault, IP: ip}
}
