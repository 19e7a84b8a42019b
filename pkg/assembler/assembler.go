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

import (
	"bufio"
	"io"
	"strconv"
	"strings"
	"unicode"

	"github.com/corvid-re/packedvm/pkg/encoding"
	"github.com/corvid-re/packedvm/pkg/machine"
)

func parseDirective(ident string) DirectiveType {
	name := strings.ToUpper(strings.TrimPrefix(ident, "."))
	if d, ok := directives[name]; ok {
		return d
	}
	return DIRECTIVE_INVALID
}

func parseInstruction(ident string) InstructionType {
	if it, ok := mnemonics[strings.ToUpper(ident)]; ok {
		return it
	}
	return INSTRUCTION_INVALID
}

func parseLiteral(token *Token, bits LiteralType) (uint16, error) {
	if strings.ContainsAny(token.Value, "xX") {
		result, err := encoding.DecodeHex(token.Value)
		if err != nil {
			return 0, &InvalidLiteralError{token.Position}
		}
		if uint(bits) < 16 && result > machine.CellMask {
			return 0, &OversizedLiteralError{token.Position, machine.CellMask, result}
		}
		return result & machine.CellMask, nil
	}

	result, err := encoding.DecodeInt(token.Value)
	if err != nil {
		return 0, &InvalidLiteralError{token.Position}
	}
	return uint16(result) & machine.CellMask, nil
}

// parseOperand splits a raw operand token's text into its addressing-
// mode prefix ("", "#", "@", "@@", "@@@") and the literal/label that
// follows it.
func parseOperand(token *Token) (mode machine.AddrMode, rest string, err error) {
	v := token.Value

	switch {
	case strings.HasPrefix(v, "@@@"):
		return machine.ModeTripleIndirect, v[3:], nil
	case strings.HasPrefix(v, "@@"):
		return machine.ModeDoubleIndirect, v[2:], nil
	case strings.HasPrefix(v, "@"):
		return machine.ModeIndirect, v[1:], nil
	case strings.HasPrefix(v, "#"):
		return machine.ModeDirect, v[1:], nil
	default:
		return machine.ModeDirect, v, nil
	}
}

// AssembleSource lexes and assembles one source file into packed
// instruction words. symtable, if non-nil, is filled with a source-line
// map and the label table so a debugger can annotate addresses.
func AssembleSource(input io.ReadSeeker, symtable *SymTable) (result []uint16, errs []error) {
	type LabelRef struct {
		Label    string
		Addr     uint16
		Position Cursor
	}

	var labels = make(map[string]uint16)
	var labelRefs []LabelRef

	var program uint32 = 0

	var builder strings.Builder
	var scanner = bufio.NewScanner(input)

	var cursor = Cursor{Line: 1, Column: 0, Size: 0, Byte: 0}

	result = make([]uint16, machine.CellCount)
	errs = make([]error, 0)

	advance := func(lineLen int) {
		cursor.Line++
		cursor.Byte += int64(lineLen + 1)
		cursor.LineByte += int64(lineLen + 1)
	}

	for scanner.Scan() {
		var tokens = make([]Token, 0, 5)
		var tokenStart int = 0
		var tokenType TokenType = TOKEN_NONE

		lineErrs := len(errs)

		line := scanner.Text()
		builder.Grow(len(line))
		cursor.Size = int64(len(line))

		for column, char := range line {
			cursor.Column = column + 1

			var flush bool
			var skip bool

			if tokenType == TOKEN_NONE {
				tokenStart = cursor.Column
			}

			switch {
			case unicode.IsSpace(char):
				if tokenType == TOKEN_NONE {
					continue
				} else if tokenType != TOKEN_STRING {
					flush = true
				}

			case char == ';':
				if tokenType == TOKEN_NONE {
					skip = true
				} else if tokenType != TOKEN_STRING {
					flush = true
					skip = true
				}

			case char == '.':
				if tokenType == TOKEN_NONE {
					tokenType = TOKEN_DIRECTIVE
				} else if tokenType != TOKEN_STRING {
					errs = append(errs, &UnexpectedCharacterError{cursor, char})
				}

			case char == ',':
				if tokenType != TOKEN_STRING {
					flush = true
				}

			case char == 'x' || char == 'X':
				if tokenType == TOKEN_NONE {
					tokenType = TOKEN_LITERAL
				}

			case char == '#' || char == '@':
				if tokenType == TOKEN_NONE {
					tokenType = TOKEN_OPERAND
				} else if tokenType != TOKEN_STRING && tokenType != TOKEN_OPERAND {
					errs = append(errs, &UnexpectedCharacterError{cursor, char})
				}

			case char == '"':
				if tokenType == TOKEN_NONE {
					tokenType = TOKEN_STRING
				} else if tokenType == TOKEN_STRING {
					flush = true
				} else {
					errs = append(errs, &UnexpectedCharacterError{cursor, char})
				}

			case unicode.IsDigit(char):
				if tokenType == TOKEN_NONE {
					tokenType = TOKEN_LITERAL
				}

			case char == '-':
				if tokenType != TOKEN_LITERAL {
					errs = append(errs, &UnexpectedCharacterError{cursor, char})
				}

			case char == '_':
				if tokenType == TOKEN_NONE {
					tokenType = TOKEN_IDENT
				} else if tokenType != TOKEN_IDENT && tokenType != TOKEN_STRING && tokenType != TOKEN_OPERAND {
					errs = append(errs, &UnexpectedCharacterError{cursor, char})
				}

			case unicode.IsLetter(char):
				if char > unicode.MaxASCII {
					errs = append(errs, &OversizedCharacterError{cursor})
				}
				if tokenType == TOKEN_NONE {
					tokenType = TOKEN_IDENT
				} else if tokenType == TOKEN_OPERAND {
					// letters after '#'/'@' turn the token into a
					// prefixed label reference, still TOKEN_OPERAND
				}

			default:
				if char > unicode.MaxASCII {
					errs = append(errs, &OversizedCharacterError{cursor})
				}
				if tokenType != TOKEN_STRING {
					errs = append(errs, &UnexpectedCharacterError{cursor, char})
				}
			}

			if cursor.Column == len(line) {
				if tokenType == TOKEN_STRING {
					if char != '"' || tokenStart == cursor.Column {
						errs = append(errs, &InvalidStringError{cursor})
					}
				} else if char == ',' {
					errs = append(errs, &UnexpectedCharacterError{cursor, char})
				}
				flush = true
				builder.WriteRune(char)
			} else if flush && tokenType == TOKEN_STRING && char == '"' {
				builder.WriteRune(char)
			}

			if flush {
				if builder.Len() > 0 {
					var token Token
					token.Position = Cursor{
						Line:     cursor.Line,
						Column:   tokenStart,
						Byte:     cursor.Byte + int64(tokenStart-1),
						Size:     int64(builder.Len()),
						LineByte: cursor.Byte,
					}
					token.Type = tokenType
					token.Value = builder.String()
					tokens = append(tokens, token)
					builder.Reset()
				}
				flush = false
				tokenType = TOKEN_NONE
			} else if !skip {
				builder.WriteRune(char)
			}

			if skip {
				break
			}
		}

		if len(tokens) == 0 {
			advance(len(line))
			continue
		}
		if len(errs) > lineErrs {
			advance(len(line))
			continue
		}

		var label *Token
		var directive DirectiveType
		var instruction InstructionType
		var keyword *Token
		var operands []Token

		if instruction = parseInstruction(tokens[0].Value); instruction != INSTRUCTION_INVALID {
			keyword = &tokens[0]
			if len(tokens) > 1 {
				operands = tokens[1:]
			}
		} else if directive = parseDirective(tokens[0].Value); tokens[0].Type == TOKEN_DIRECTIVE && directive != DIRECTIVE_INVALID {
			keyword = &tokens[0]
			if len(tokens) > 1 {
				operands = tokens[1:]
			}
		} else {
			label = &tokens[0]
		}

		if label != nil {
			if _, exists := labels[label.Value]; !exists {
				labels[label.Value] = uint16(program)
			} else {
				errs = append(errs, &RedeclaredLabelError{label.Position, label.Value})
			}

			if len(tokens) == 1 {
				advance(len(line))
				continue
			}

			if instruction = parseInstruction(tokens[1].Value); instruction != INSTRUCTION_INVALID {
				keyword = &tokens[1]
				if len(tokens) > 2 {
					operands = tokens[2:]
				}
			} else if directive = parseDirective(tokens[1].Value); tokens[1].Type == TOKEN_DIRECTIVE && directive != DIRECTIVE_INVALID {
				keyword = &tokens[1]
				if len(tokens) > 2 {
					operands = tokens[2:]
				}
			}
		}

		if keyword == nil {
			errs = append(errs, &UnknownIdentifierError{tokens[0].Position, tokens[0].Value})
			advance(len(line))
			continue
		}

		if directive == DIRECTIVE_END {
			if count := len(operands); count != 0 {
				errs = append(errs, &InvalidNumArgumentsError{keyword.Position, 0, count})
			}
			break
		}

		switch directive {
		case DIRECTIVE_ORG:
			if count := len(operands); count != 1 {
				errs = append(errs, &InvalidNumArgumentsError{keyword.Position, 1, count})
				break
			}
			if operands[0].Type != TOKEN_LITERAL {
				errs = append(errs, &InvalidOperandError{operands[0].Position, []TokenType{TOKEN_LITERAL}, operands[0].Type})
				break
			}
			literal, err := parseLiteral(&operands[0], LITERAL_WORD)
			if err != nil {
				errs = append(errs, err)
			}
			program = uint32(literal)

		case DIRECTIVE_WORD:
			if count := len(operands); count != 1 {
				errs = append(errs, &InvalidNumArgumentsError{keyword.Position, 1, count})
				break
			}
			if operands[0].Type == TOKEN_LITERAL {
				literal, err := parseLiteral(&operands[0], LITERAL_WORD)
				if err != nil {
					errs = append(errs, err)
				}
				result[program] = literal
			} else if operands[0].Type == TOKEN_IDENT {
				addr, exists := labels[operands[0].Value]
				if exists {
					result[program] = addr
				} else {
					labelRefs = append(labelRefs, LabelRef{operands[0].Value, uint16(program), operands[0].Position})
				}
			} else {
				errs = append(errs, &InvalidOperandError{operands[0].Position, []TokenType{TOKEN_LITERAL, TOKEN_IDENT}, operands[0].Type})
			}
			program++

		case DIRECTIVE_STRING:
			if count := len(operands); count != 1 {
				errs = append(errs, &InvalidNumArgumentsError{keyword.Position, 1, count})
				break
			}
			if operands[0].Type != TOKEN_STRING {
				errs = append(errs, &InvalidOperandError{operands[0].Position, []TokenType{TOKEN_STRING}, operands[0].Type})
				break
			}
			s, err := strconv.Unquote(operands[0].Value)
			if err != nil {
				errs = append(errs, &InvalidStringError{operands[0].Position})
			}
			for _, c := range s {
				result[program] = uint16(c)
				program++
			}
			result[program] = 0
			program++
		}

		if instruction != INSTRUCTION_INVALID {
			instrAddr := uint16(program)

			opcode, ok := opcodeOf[instruction]
			if !ok {
				errs = append(errs, &UnknownIdentifierError{keyword.Position, keyword.Value})
				advance(len(line))
				continue
			}

			want := operandCount(instruction)
			if got := len(operands); got != want {
				errs = append(errs, &InvalidNumArgumentsError{keyword.Position, want, got})
				advance(len(line))
				continue
			}

			var modes [2]machine.AddrMode
			var literals [2]uint16

			for i := 0; i < want; i++ {
				op := operands[i]
				if op.Type != TOKEN_OPERAND && op.Type != TOKEN_LITERAL && op.Type != TOKEN_IDENT {
					errs = append(errs, &InvalidOperandError{op.Position, []TokenType{TOKEN_OPERAND}, op.Type})
					continue
				}

				mode, rest, _ := parseOperand(&op)
				modes[i] = mode

				restTok := Token{Type: TOKEN_LITERAL, Position: op.Position, Value: rest}
				if rest == "" {
					continue
				}
				if unicode.IsDigit(rune(rest[0])) {
					literal, err := parseLiteral(&restTok, LITERAL_WORD)
					if err != nil {
						errs = append(errs, err)
						continue
					}
					literals[i] = literal
				} else {
					addr, exists := labels[rest]
					if exists {
						literals[i] = addr
					} else {
						labelRefs = append(labelRefs, LabelRef{rest, uint16(program) + 1 + uint16(i), op.Position})
					}
				}
			}

			word := opcode << 4
			if want >= 1 {
				word |= uint16(modes[0]) << 2
			}
			if want >= 2 {
				word |= uint16(modes[1])
			}

			result[program] = word
			program++
			for i := 0; i < want; i++ {
				result[program] = literals[i]
				program++
			}

			if symtable != nil {
				symtable.Symbols[instrAddr] = cursor.LineByte
			}
		}

		if program >= machine.CellCount {
			errs = append(errs, &OversizedBinaryError{})
			return
		}

		advance(len(line))
	}

	for _, ref := range labelRefs {
		addr, exists := labels[ref.Label]
		if !exists {
			errs = append(errs, &UnknownLabelError{ref.Position, ref.Label})
			continue
		}
		result[ref.Addr] = addr
	}

	if symtable != nil {
		for label, addr := range labels {
			symtable.Labels[addr] = label
		}
	}

	return
}
