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

import (
	"math/rand"
	"testing"
)

func TestReadWriteRoundTrip(t *testing.T) {
	var ms MachineState

	for _, addr := range []uint16{0x0000, 0x0001, 0x1000, 0x1234, 0x1FFD, 0x1FFE, 0x1FFF} {
		for _, v := range []uint16{0x0000, 0x0001, 0x1FFF, 0x1555, 0x0AAA} {
			if err := ms.write(addr, v); err != nil {
				t.Fatalf("write(%#04x, %#04x): %v", addr, v, err)
			}
			got, err := ms.read(addr)
			if err != nil {
				t.Fatalf("read(%#04x): %v", addr, err)
			}
			if got != v {
				t.Errorf("addr %#04x: wrote %#04x, read %#04x", addr, v, got)
			}
		}
	}
}

func TestWriteDoesNotDisturbNeighbours(t *testing.T) {
	var ms MachineState

	for addr := uint16(0); addr < 200; addr++ {
		if err := ms.write(addr, 0x1FFF); err != nil {
			t.Fatal(err)
		}
	}

	target := uint16(100)
	if err := ms.write(target, 0); err != nil {
		t.Fatal(err)
	}

	for _, neighbour := range []uint16{target - 1, target + 1} {
		v, err := ms.read(neighbour)
		if err != nil {
			t.Fatal(err)
		}
		if v != 0x1FFF {
			t.Errorf("neighbour %#04x disturbed: got %#04x", neighbour, v)
		}
	}
}

func TestRandomVectorRoundTrip(t *testing.T) {
	var ms MachineState
	rng := rand.New(rand.NewSource(1))

	vec := make([]uint16, CellCount)
	for i := range vec {
		vec[i] = uint16(rng.Intn(CellCount))
		if err := ms.write(uint16(i), vec[i]); err != nil {
			t.Fatal(err)
		}
	}

	for i, want := range vec {
		got, err := ms.read(uint16(i))
		if err != nil {
			t.Fatal(err)
		}
		if got != want {
			t.Errorf("cell %#04x: want %#04x, got %#04x", i, want, got)
		}
	}
}

func TestReadOutOfRange(t *testing.T) {
	var ms MachineState
	if _, err := ms.read(0x2000); err == nil {
		t.Fatal("expected AddressOutOfRange trap")
	}
}

func TestResolveAddressing(t *testing.T) {
	var mc Machine
	mc.Reset()

	mc.State.write(0x10, 0x20)
	mc.State.write(0x20, 0x30)
	mc.State.write(0x30, 0x40)

	cases := []struct {
		mode AddrMode
		want uint16
	}{
		{ModeDirect, 0x10},
		{ModeIndirect, 0x20},
		{ModeDoubleIndirect, 0x30},
		{ModeTripleIndirect, 0x40},
	}

	for _, c := range cases {
		got, err := mc.resolve(c.mode, 0x10)
		if err != nil {
			t.Fatalf("mode %v: %v", c.mode, err)
		}
		if got != c.want {
			t.Errorf("mode %v: want %#04x, got %#04x", c.mode, c.want, got)
		}
	}
}
