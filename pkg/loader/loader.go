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

// Package loader reads a program image off disk: a flat sequence of
// big-endian 16-bit words, each truncated to 13 bits on load the same
// way a cell write is.
package loader

import (
	"encoding/binary"
	"errors"
	"io"

	"github.com/spaolacci/murmur3"

	"github.com/corvid-re/packedvm/pkg/machine"
)

// ErrTooLarge means the image has more words than there are cells.
var ErrTooLarge = errors.New("loader: image exceeds cell count")

// Image is a decoded program plus a diagnostic checksum over its raw
// bytes, so two builds of "the same" binary can be told apart without
// a bit-for-bit diff.
type Image struct {
	Words    []uint16
	Checksum uint32
}

// Load reads every big-endian uint16 in r into an Image. It is not an
// error for the stream to end mid-word; a final lone byte is dropped.
func Load(r io.Reader) (*Image, error) {
	raw, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}

	n := len(raw) / 2
	if n > machine.CellCount {
		return nil, ErrTooLarge
	}

	words := make([]uint16, n)
	for i := 0; i < n; i++ {
		words[i] = binary.BigEndian.Uint16(raw[2*i:2*i+2]) & machine.CellMask
	}

	return &Image{
		Words:    words,
		Checksum: murmur3.Sum32(raw[:2*n]),
	}, nil
}

// LoadInto decodes r and installs the result directly into mc via
// LoadWords, returning the decoded Image for logging.
func LoadInto(mc *machine.Machine, r io.Reader) (*Image, error) {
	img, err := Load(r)
	if err != nil {
		return nil, err
	}
	if err := mc.LoadWords(img.Words); err != nil {
		return nil, err
	}
	return img, nil
}
