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

package assembler

const (
	TOKEN_NONE TokenType = iota
	TOKEN_IDENT
	TOKEN_DIRECTIVE
	TOKEN_STRING
	TOKEN_LITERAL
	TOKEN_OPERAND
)

const (
	// LITERAL_WORD is the only literal width this ISA has: every
	// operand slot is a full 13-bit cell.
	LITERAL_WORD LiteralType = 13
)

const (
	INSTRUCTION_INVALID InstructionType = iota
	INSTRUCTION_MOV
	INSTRUCTION_XCHG
	INSTRUCTION_ADD
	INSTRUCTION_SUB
	INSTRUCTION_AND
	INSTRUCTION_INC
	INSTRUCTION_DEC
	INSTRUCTION_OR
	INSTRUCTION_XOR
	INSTRUCTION_NOT
	INSTRUCTION_ROL
	INSTRUCTION_ROR
	INSTRUCTION_SHL
	INSTRUCTION_SHR
	INSTRUCTION_CMP
	INSTRUCTION_JMP
	INSTRUCTION_JZ
	INSTRUCTION_JNZ
	INSTRUCTION_JC
	INSTRUCTION_JNC
	INSTRUCTION_JS
	INSTRUCTION_JNS
	INSTRUCTION_JO
	INSTRUCTION_JNO
	INSTRUCTION_JL
	INSTRUCTION_JG
	INSTRUCTION_JLE
	INSTRUCTION_JGE
	INSTRUCTION_CLC
	INSTRUCTION_STC
	INSTRUCTION_CMC
	INSTRUCTION_PUSH
	INSTRUCTION_POP
	INSTRUCTION_IN
	INSTRUCTION_OUT
	INSTRUCTION_IN_STR
	INSTRUCTION_IN_HEX
	INSTRUCTION_NOP
	INSTRUCTION_HALT
)

const (
	DIRECTIVE_INVALID DirectiveType = iota
	DIRECTIVE_ORG
	DIRECTIVE_WORD
	DIRECTIVE_STRING
	DIRECTIVE_END
)

// mnemonics maps every recognized instruction word to its InstructionType,
// mirroring the opcode table one-for-one.
var mnemonics = map[string]InstructionType{
	"MOV":    INSTRUCTION_MOV,
	"XCHG":   INSTRUCTION_XCHG,
	"ADD":    INSTRUCTION_ADD,
	"SUB":    INSTRUCTION_SUB,
	"AND":    INSTRUCTION_AND,
	"INC":    INSTRUCTION_INC,
	"DEC":    INSTRUCTION_DEC,
	"OR":     INSTRUCTION_OR,
	"XOR":    INSTRUCTION_XOR,
	"NOT":    INSTRUCTION_NOT,
	"ROL":    INSTRUCTION_ROL,
	"ROR":    INSTRUCTION_ROR,
	"SHL":    INSTRUCTION_SHL,
	"SHR":    INSTRUCTION_SHR,
	"CMP":    INSTRUCTION_CMP,
	"JMP":    INSTRUCTION_JMP,
	"JZ":     INSTRUCTION_JZ,
	"JNZ":    INSTRUCTION_JNZ,
	"JC":     INSTRUCTION_JC,
	"JNC":    INSTRUCTION_JNC,
	"JS":     INSTRUCTION_JS,
	"JNS":    INSTRUCTION_JNS,
	"JO":     INSTRUCTION_JO,
	"JNO":    INSTRUCTION_JNO,
	"JL":     INSTRUCTION_JL,
	"JG":     INSTRUCTION_JG,
	"JLE":    INSTRUCTION_JLE,
	"JGE":    INSTRUCTION_JGE,
	"CLC":    INSTRUCTION_CLC,
	"STC":    INSTRUCTION_STC,
	"CMC":    INSTRUCTION_CMC,
	"PUSH":   INSTRUCTION_PUSH,
	"POP":    INSTRUCTION_POP,
	"IN":     INSTRUCTION_IN,
	"OUT":    INSTRUCTION_OUT,
	"IN_STR": INSTRUCTION_IN_STR,
	"IN_HEX": INSTRUCTION_IN_HEX,
	"NOP":    INSTRUCTION_NOP,
	"HALT":   INSTRUCTION_HALT,
}

// directives maps a leading-dot directive word to its DirectiveType.
var directives = map[string]DirectiveType{
	"ORG":    DIRECTIVE_ORG,
	"WORD":   DIRECTIVE_WORD,
	"STRING": DIRECTIVE_STRING,
	"END":    DIRECTIVE_END,
}

// opcodeOf maps an InstructionType to the numeric opcode the encoder
// packs into bits 12-4 of the instruction word.
var opcodeOf = map[InstructionType]uint16{
	INSTRUCTION_MOV:    0x01,
	INSTRUCTION_XCHG:   0x02,
	INSTRUCTION_ADD:    0x03,
	INSTRUCTION_SUB:    0x04,
	INSTRUCTION_AND:    0x05,
	INSTRUCTION_INC:    0x06,
	INSTRUCTION_DEC:    0x07,
	INSTRUCTION_OR:     0x08,
	INSTRUCTION_XOR:    0x09,
	INSTRUCTION_NOT:    0x0A,
	INSTRUCTION_ROL:    0x0B,
	INSTRUCTION_ROR:    0x0C,
	INSTRUCTION_SHL:    0x0D,
	INSTRUCTION_SHR:    0x0E,
	INSTRUCTION_CMP:    0x0F,
	INSTRUCTION_JMP:    0x10,
	INSTRUCTION_JZ:     0x11,
	INSTRUCTION_JNZ:    0x12,
	INSTRUCTION_JC:     0x13,
	INSTRUCTION_JNC:    0x14,
	INSTRUCTION_JS:     0x15,
	INSTRUCTION_JNS:    0x16,
	INSTRUCTION_JO:     0x17,
	INSTRUCTION_JNO:    0x18,
	INSTRUCTION_JL:     0x19,
	INSTRUCTION_JG:     0x1A,
	INSTRUCTION_JLE:    0x1B,
	INSTRUCTION_JGE:    0x1C,
	INSTRUCTION_CLC:    0x1F,
	INSTRUCTION_STC:    0x20,
	INSTRUCTION_CMC:    0x21,
	INSTRUCTION_PUSH:   0x22,
	INSTRUCTION_POP:    0x23,
	INSTRUCTION_IN:     0x24,
	INSTRUCTION_OUT:    0x25,
	INSTRUCTION_IN_STR: 0x26,
	INSTRUCTION_IN_HEX: 0x27,
	INSTRUCTION_NOP:    0x28,
	INSTRUCTION_HALT:   0x29,
}

// operandCount reports how many operands an instruction takes: the
// same 0/1/2 split the core's arity table enforces at runtime.
func operandCount(it InstructionType) int {
	switch it {
	case INSTRUCTION_NOP, INSTRUCTION_HALT, INSTRUCTION_CLC, INSTRUCTION_STC, INSTRUCTION_CMC:
		return 0
	case INSTRUCTION_INC, INSTRUCTION_DEC, INSTRUCTION_NOT,
		INSTRUCTION_ROL, INSTRUCTION_ROR, INSTRUCTION_SHL, INSTRUCTION_SHR,
		INSTRUCTION_JMP, INSTRUCTION_JZ, INSTRUCTION_JNZ, INSTRUCTION_JC, INSTRUCTION_JNC,
		INSTRUCTION_JS, INSTRUCTION_JNS, INSTRUCTION_JO, INSTRUCTION_JNO,
		INSTRUCTION_JL, INSTRUCTION_JG, INSTRUCTION_JLE, INSTRUCTION_JGE,
		INSTRUCTION_PUSH, INSTRUCTION_POP, INSTRUCTION_IN, INSTRUCTION_OUT,
		INSTRUCTION_IN_STR, INSTRUCTION_IN_HEX:
		return 1
	case INSTRUCTION_MOV, INSTRUCTION_XCHG, INSTRUCTION_ADD, INSTRUCTION_SUB,
		INSTRUCTION_AND, INSTRUCTION_OR, INSTRUCTION_XOR, INSTRUCTION_CMP:
		return 2
	}
	return 0
}
