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

const (
	CellCount  = 0x2000 // 8192 thirteen-bit cells
	CellMask   = 0x1FFF
	SignBit    = 0x1000
	BufferSize = 0x3404 // matches the source's over-allocation, bit-identical

	AddrSP = 0x1FFE
	AddrIP = 0x1FFF

	InitialSP = 0x1FFD
	InitialIP = 0x0000
)

const (
	OP_MOV  uint16 = 0x01
	OP_XCHG uint16 = 0x02

	OP_ADD uint16 = 0x03
	OP_SUB uint16 = 0x04
	OP_AND uint16 = 0x05
	OP_INC uint16 = 0x06
	OP_DEC uint16 = 0x07
	OP_OR  uint16 = 0x08
	OP_XOR uint16 = 0x09
	OP_NOT uint16 = 0x0A

	OP_ROL uint16 = 0x0B
	OP_ROR uint16 = 0x0C
	OP_SHL uint16 = 0x0D
	OP_SHR uint16 = 0x0E

	OP_CMP uint16 = 0x0F

	OP_JMP uint16 = 0x10
	OP_JZ  uint16 = 0x11
	OP_JNZ uint16 = 0x12
	OP_JC  uint16 = 0x13
	OP_JNC uint16 = 0x14
	OP_JS  uint16 = 0x15
	OP_JNS uint16 = 0x16
	OP_JO  uint16 = 0x17
	OP_JNO uint16 = 0x18
	OP_JL  uint16 = 0x19
	OP_JG  uint16 = 0x1A
	OP_JLE uint16 = 0x1B
	OP_JGE uint16 = 0x1C

	OP_CLC uint16 = 0x1F
	OP_STC uint16 = 0x20
	OP_CMC uint16 = 0x21

	OP_PUSH uint16 = 0x22
	OP_POP  uint16 = 0x23

	OP_IN     uint16 = 0x24
	OP_OUT    uint16 = 0x25
	OP_IN_STR uint16 = 0x26
	OP_IN_HEX uint16 = 0x27

	OP_NOP  uint16 = 0x28
	OP_HALT uint16 = 0x29
)

// arity reports how many operand words follow an instruction word, and
// whether the opcode is recognized at all.
func arity(opcode uint16) (int, bool) {
	switch opcode {
	case OP_NOP, OP_HALT, OP_CLC, OP_STC, OP_CMC:
		return 0, true
	case OP_INC, OP_DEC, OP_NOT, OP_ROL, OP_ROR, OP_SHL, OP_SHR,
		OP_JMP, OP_JZ, OP_JNZ, OP_JC, OP_JNC, OP_JS, OP_JNS, OP_JO, OP_JNO,
		OP_JL, OP_JG, OP_JLE, OP_JGE,
		OP_PUSH, OP_POP, OP_IN, OP_OUT, OP_IN_STR, OP_IN_HEX:
		return 1, true
	case OP_MOV, OP_XCHG, OP_ADD, OP_SUB, OP_AND, OP_OR, OP_XOR, OP_CMP:
		return 2, true
	default:
		return 0, false
	}
}
