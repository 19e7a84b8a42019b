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

func sign13(v uint16) bool { return v&SignBit != 0 }

func (fl *Flags) setAdd(raw uint32, a, b uint16) {
	r := uint16(raw) & CellMask
	fl.Zero = r == 0
	fl.Sign = r&SignBit != 0
	fl.Carry = raw > CellMask
	fl.Overflow = sign13(a) == sign13(b) && sign13(a) != sign13(r)
}

func (fl *Flags) setSub(a, b uint16) uint16 {
	r := uint16((int32(a) - int32(b) + 0x2000)) & CellMask
	fl.Zero = r == 0
	fl.Sign = r&SignBit != 0
	fl.Carry = a < b
	fl.Overflow = sign13(a) != sign13(b) && sign13(a) != sign13(r)
	return r
}

func (fl *Flags) setLogical(r uint16) {
	fl.Zero = r == 0
	fl.Sign = r&SignBit != 0
	fl.Carry = false
	fl.Overflow = false
}

// execute dispatches one decoded instruction. It returns halted=true
// only for HALT.
func (mc *Machine) execute(opcode uint16, md, ms AddrMode, op1, op2 uint16) (bool, error) {
	switch opcode {

	case OP_MOV:
		dst, err := mc.resolve(md, op1)
		if err != nil {
			return false, err
		}
		v, err := mc.immediateOf(ms, op2)
		if err != nil {
			return false, err
		}
		return false, mc.write(dst, v)

	case OP_XCHG:
		a, err := mc.resolve(md, op1)
		if err != nil {
			return false, err
		}
		b, err := mc.resolve(ms, op2)
		if err != nil {
			return false, err
		}
		va, err := mc.read(a)
		if err != nil {
			return false, err
		}
		vb, err := mc.read(b)
		if err != nil {
			return false, err
		}
		if err := mc.write(a, vb); err != nil {
			return false, err
		}
		return false, mc.write(b, va)

	case OP_ADD, OP_SUB, OP_AND, OP_OR, OP_XOR:
		dst, err := mc.resolve(md, op1)
		if err != nil {
			return false, err
		}
		a, err := mc.read(dst)
		if err != nil {
			return false, err
		}
		b, err := mc.valueOf(ms, op2)
		if err != nil {
			return false, err
		}

		var r uint16
		switch opcode {
		case OP_ADD:
			raw := uint32(a) + uint32(b)
			mc.State.Flags.setAdd(raw, a, b)
			r = uint16(raw) & CellMask
		case OP_SUB:
			r = mc.State.Flags.setSub(a, b)
		case OP_AND:
			r = a & b & CellMask
			mc.State.Flags.setLogical(r)
		case OP_OR:
			r = (a | b) & CellMask
			mc.State.Flags.setLogical(r)
		case OP_XOR:
			r = (a ^ b) & CellMask
			mc.State.Flags.setLogical(r)
		}
		return false, mc.write(dst, r)

	case OP_INC, OP_DEC:
		dst, err := mc.resolve(md, op1)
		if err != nil {
			return false, err
		}
		a, err := mc.read(dst)
		if err != nil {
			return false, err
		}
		var r uint16
		if opcode == OP_INC {
			raw := uint32(a) + 1
			mc.State.Flags.setAdd(raw, a, 1)
			r = uint16(raw) & CellMask
		} else {
			r = mc.State.Flags.setSub(a, 1)
		}
		return false, mc.write(dst, r)

	case OP_NOT:
		dst, err := mc.resolve(md, op1)
		if err != nil {
			return false, err
		}
		a, err := mc.read(dst)
		if err != nil {
			return false, err
		}
		r := (^a) & CellMask
		mc.State.Flags.setLogical(r)
		return false, mc.write(dst, r)

	case OP_ROL, OP_ROR, OP_SHL, OP_SHR:
		dst, err := mc.resolve(md, op1)
		if err != nil {
			return false, err
		}
		a, err := mc.read(dst)
		if err != nil {
			return false, err
		}

		var r uint16
		var carryOut bool
		carryIn := mc.State.Flags.Carry

		switch opcode {
		case OP_SHL:
			r = (a << 1) & CellMask
			carryOut = a&SignBit != 0
		case OP_SHR:
			r = a >> 1
			carryOut = a&1 != 0
		case OP_ROL:
			r = (a << 1) & CellMask
			if carryIn {
				r |= 1
			}
			carryOut = a&SignBit != 0
		case OP_ROR:
			r = a >> 1
			if carryIn {
				r |= SignBit
			}
			carryOut = a&1 != 0
		}

		mc.State.Flags.Zero = r == 0
		mc.State.Flags.Sign = r&SignBit != 0
		mc.State.Flags.Carry = carryOut
		mc.State.Flags.Overflow = false

		return false, mc.write(dst, r)

	case OP_CMP:
		a, err := mc.valueOf(md, op1)
		if err != nil {
			return false, err
		}
		b, err := mc.valueOf(ms, op2)
		if err != nil {
			return false, err
		}
		mc.State.Flags.setSub(a, b)
		return false, nil

	case OP_JMP:
		target, err := mc.resolve(md, op1)
		if err != nil {
			return false, err
		}
		return false, mc.State.writeIP(target)

	case OP_JZ, OP_JNZ, OP_JC, OP_JNC, OP_JS, OP_JNS, OP_JO, OP_JNO,
		OP_JL, OP_JG, OP_JLE, OP_JGE:
		if !mc.branchTaken(opcode) {
			return false, nil
		}
		target, err := mc.resolve(md, op1)
		if err != nil {
			return false, err
		}
		return false, mc.State.writeIP(target)

	case OP_CLC:
		mc.State.Flags.Carry = false
		return false, nil
	case OP_STC:
		mc.State.Flags.Carry = true
		return false, nil
	case OP_CMC:
		mc.State.Flags.Carry = !mc.State.Flags.Carry
		return false, nil

	case OP_PUSH:
		v, err := mc.immediateOf(md, op1)
		if err != nil {
			return false, err
		}
		return false, mc.push(v)

	case OP_POP:
		dst, err := mc.resolve(md, op1)
		if err != nil {
			return false, err
		}
		v, err := mc.pop()
		if err != nil {
			return false, err
		}
		return false, mc.write(dst, v)

	case OP_IN:
		dst, err := mc.resolve(md, op1)
		if err != nil {
			return false, err
		}
		if mc.IO == nil {
			return false, &Trap{Kind: TrapIOFault}
		}
		c, err := mc.IO.ReadChar()
		if err != nil {
			return false, &Trap{Kind: TrapIOFault}
		}
		return false, mc.write(dst, uint16(c))

	case OP_OUT:
		v, err := mc.valueOf(md, op1)
		if err != nil {
			return false, err
		}
		if mc.IO == nil {
			return false, &Trap{Kind: TrapIOFault}
		}
		if err := mc.IO.WriteChar(byte(v & 0xFF)); err != nil {
			return false, &Trap{Kind: TrapIOFault}
		}
		return false, nil

	case OP_IN_STR:
		dst, err := mc.resolve(md, op1)
		if err != nil {
			return false, err
		}
		if mc.IO == nil {
			return false, &Trap{Kind: TrapIOFault}
		}
		line, err := mc.IO.ReadLine()
		if err != nil {
			return false, &Trap{Kind: TrapIOFault}
		}
		addr := dst
		for _, c := range line {
			if err := mc.write(addr, uint16(c)); err != nil {
				return false, err
			}
			addr = (addr + 1) & CellMask
		}
		return false, mc.write(addr, 0)

	case OP_IN_HEX:
		dst, err := mc.resolve(md, op1)
		if err != nil {
			return false, err
		}
		if mc.IO == nil {
			return false, &Trap{Kind: TrapIOFault}
		}
		tokens, err := mc.IO.ReadHexTokens()
		if err != nil {
			return false, &Trap{Kind: TrapIOFault}
		}
		addr := dst
		for _, t := range tokens {
			if err := mc.write(addr, t&CellMask); err != nil {
				return false, err
			}
			addr = (addr + 1) & CellMask
		}
		return false, nil

	case OP_NOP:
		return false, nil

	case OP_HALT:
		return true, nil
	}

	return false, &Trap{Kind: TrapInvalidOpcode}
}

func (mc *Machine) branchTaken(opcode uint16) bool {
	f := mc.State.Flags
	switch opcode {
	case OP_JZ:
		return f.Zero
	case OP_JNZ:
		return !f.Zero
	case OP_JC:
		return f.Carry
	case OP_JNC:
		return !f.Carry
	case OP_JS:
		return f.Sign
	case OP_JNS:
		return !f.Sign
	case OP_JO:
		return f.Overflow
	case OP_JNO:
		return !f.Overflow
	case OP_JL:
		return f.Sign != f.Overflow
	case OP_JG:
		return !f.Zero && f.Sign == f.Overflow
	case OP_JLE:
		return f.Zero || f.Sign != f.Overflow
	case OP_JGE:
		return f.Sign == f.Overflow
	}
	return false
}
