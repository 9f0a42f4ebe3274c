// {{{ Copyright (c) Paul R. Tagliamonte <paul@k3xec.com>, 2020
//
// Permission is hereby granted, free of charge, to any person obtaining a copy
// of this software and associated documentation files (the "Software"), to deal
// in the Software without restriction, including without limitation the rights
// to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
// copies of the Software, and to permit persons to whom the Software is
// furnished to do so, subject to the following conditions:
//
// The above copyright notice and this permission notice shall be included in
// all copies or substantial portions of the Software.
//
// THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
// IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
// FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
// AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
// LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
// OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN
// THE SOFTWARE. }}}

// Package word classifies the 10 useful bytes of a payload word by its
// tenth byte (index 9), the word ID. Classification by ID alone is
// ambiguous for some IDs; disambiguating by context is the job of
// package fsm, not this package — this package only knows the closed set
// of IDs and the barrel-lane layout.
package word

// Size is the number of useful bytes in a payload word. In data format 0
// each word is padded to 16 bytes on the wire; in data format 2 it is
// exactly Size bytes with no padding.
const Size = 10

// Padded is the on-wire size of a payload word in data format 0.
const Padded = 16

// Status word IDs. These are unambiguous by themselves; the FSM still
// consults state to decide whether e.g. 0xE8 is a fresh TDH or a
// continuation, but the numeric ID itself never collides between two of
// these five constants.
const (
	IDIhw  = 0xE0
	IDTdh  = 0xE8
	IDTdt  = 0xF0
	IDDdw0 = 0xE4
	IDCdw  = 0xF8
)

// Kind is the classification of a payload word after FSM disambiguation.
type Kind int

const (
	KindUnknown Kind = iota
	KindIHW
	KindIHWContinuation
	KindTDH
	KindTDHContinuation
	KindTDHAfterPacketDone
	KindTDT
	KindDDW0
	KindCDW
	KindDataWord
)

func (k Kind) String() string {
	switch k {
	case KindIHW:
		return "IHW"
	case KindIHWContinuation:
		return "IHW_continuation"
	case KindTDH:
		return "TDH"
	case KindTDHContinuation:
		return "TDH_continuation"
	case KindTDHAfterPacketDone:
		return "TDH_after_packet_done"
	case KindTDT:
		return "TDT"
	case KindDDW0:
		return "DDW0"
	case KindCDW:
		return "CDW"
	case KindDataWord:
		return "DataWord"
	default:
		return "Unknown"
	}
}

// idRange is an inclusive byte-ID range.
type idRange struct{ lo, hi byte }

func (r idRange) contains(id byte) bool { return id >= r.lo && id <= r.hi }

// dataWordRanges are the closed set of IDs belonging to a detector lane,
// grouped the way original_source's data_words/ib.rs and ob.rs group
// them: inner barrel (IL), then four outer-barrel connector ranges.
var dataWordRanges = []idRange{
	{0x20, 0x28}, // IL
	{0x40, 0x46}, // OL connector 0
	{0x48, 0x4E}, // OL connector 1
	{0x50, 0x56}, // OL connector 2
	{0x58, 0x5E}, // OL connector 3
}

// IsDataWordID reports whether id falls in one of the closed data-word
// ID ranges (inner/middle/outer barrel lanes).
func IsDataWordID(id byte) bool {
	for _, r := range dataWordRanges {
		if r.contains(id) {
			return true
		}
	}
	return false
}

// Barrel identifies which detector barrel a data-word ID belongs to.
type Barrel int

const (
	BarrelNone Barrel = iota
	BarrelInner
	BarrelOuter
)

// IDBarrel reports which barrel a data-word ID belongs to.
func IDBarrel(id byte) Barrel {
	if dataWordRanges[0].contains(id) {
		return BarrelInner
	}
	for _, r := range dataWordRanges[1:] {
		if r.contains(id) {
			return BarrelOuter
		}
	}
	return BarrelNone
}

// InnerLaneID returns the lane ID for an inner-barrel data-word ID: the
// low 5 bits of the ID directly.
func InnerLaneID(id byte) uint8 {
	return id & 0x1F
}

// outerConnectorBase is the first ID of each of the four outer-barrel
// connector ranges, in the same order as dataWordRanges[1:].
var outerConnectorBase = [4]byte{0x40, 0x48, 0x50, 0x58}

// OuterLaneID returns the lane ID and the input-number-connector for an
// outer-barrel data-word ID. A connector number greater than 6 is itself
// a sanity violation ([E73] in the FSM's sanity hooks), so this function
// returns whatever it computes without bounds-checking; the caller
// decides what to do with an out-of-range connector.
func OuterLaneID(id byte) (laneID uint8, connector uint8) {
	for i, base := range outerConnectorBase {
		if id >= base && id <= base+6 {
			return id - base, uint8(i)
		}
	}
	// Not actually in a known outer-barrel range; report the offset from
	// the first connector base and connector 0xFF, so the caller's
	// sanity check still flags something.
	return id - outerConnectorBase[0], 0xFF
}

// vim: foldmethod=marker
