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

// read fetches the 13-bit cell at addr out of the packed byte buffer.
// Each cell occupies the 13 bits starting at global bit position
// 13*addr, LSB-first within each byte; it straddles two or three bytes
// depending on the bit offset within the first byte.
func (ms *MachineState) read(addr uint16) (uint16, error) {
	if addr > CellMask {
		return 0, &Trap{Kind: TrapAddressOutOfRange}
	}

	byteOffset := int(addr) * 13 / 8
	bitOffset := uint(int(addr) * 13 % 8)

	raw := uint32(ms.Memory[byteOffset]) |
		uint32(ms.Memory[byteOffset+1])<<8 |
		uint32(ms.Memory[byteOffset+2])<<16

	return uint16(raw>>bitOffset) & CellMask, nil
}

// write stores value&0x1FFF into the 13-bit cell at addr, leaving the
// surrounding bits of any byte it shares with neighbouring cells intact.
func (ms *MachineState) write(addr uint16, value uint16) error {
	if addr > CellMask {
		return &Trap{Kind: TrapAddressOutOfRange}
	}

	v := value & CellMask
	byteOffset := int(addr) * 13 / 8
	bitOffset := uint(int(addr) * 13 % 8)

	bitsInFirst := 8 - bitOffset
	if bitsInFirst > 13 {
		bitsInFirst = 13
	}
	firstMask := byte(1<<bitsInFirst - 1)

	ms.Memory[byteOffset] = (ms.Memory[byteOffset] &^ (firstMask << bitOffset)) |
		(byte(v)&firstMask)<<bitOffset

	remaining := uint(13) - bitsInFirst
	if remaining == 0 {
		return nil
	}

	bitsSecond := remaining
	if bitsSecond > 8 {
		bitsSecond = 8
	}
	secondMask := byte(1<<bitsSecond - 1)

	ms.Memory[byteOffset+1] = (ms.Memory[byteOffset+1] &^ secondMask) |
		byte(v>>bitsInFirst)&secondMask

	remaining -= bitsSecond
	if remaining == 0 {
		return nil
	}

	thirdMask := byte(1<<remaining - 1)
	ms.Memory[byteOffset+2] = (ms.Memory[byteOffset+2] &^ thirdMask) |
		byte(v>>(bitsInFirst+bitsSecond))&thirdMask

	return nil
}

// readSP/writeSP/readIP/writeIP give the executor and loop named access
// to the two reserved cells without re-deriving their addresses.
func (ms *MachineState) readSP() (uint16, error)  { return ms.read(AddrSP) }
func (ms *MachineState) writeSP(v uint16) error   { return ms.write(AddrSP, v) }
func (ms *MachineState) readIP() (uint16, error)  { return ms.read(AddrIP) }
func (ms *MachineState) writeIP(v uint16) error   { return ms.write(AddrIP, v) }

// Read exposes the packed-cell accessor to collaborators outside the
// package, such as a debugger rendering memory or the source view.
func (ms *MachineState) Read(addr uint16) (uint16, error) { return ms.read(addr) }
