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

// Package alpide is the optional detector-specific Readout-Frame
// Analyzer. It groups a readout frame's data words by lane, checking
// lane population, inner-barrel lane grouping and per-lane
// bunch-counter agreement, and tallies chip-trailer readout flags into
// a running AlpideStats.
package alpide

import (
	"fmt"
	"sort"

	"github.com/cern-alice/fastpasta-go/stats"
)

// Barrel identifies which of the three ITS barrels a frame belongs to,
// which in turn fixes the expected lane population.
type Barrel int

const (
	BarrelInner Barrel = iota
	BarrelMiddle
	BarrelOuter
)

func (b Barrel) expectedLaneCount() int {
	switch b {
	case BarrelInner:
		return 3
	case BarrelMiddle:
		return 8
	case BarrelOuter:
		return 14
	default:
		return 0
	}
}

// innerGroups are the only valid triples of lane IDs an inner-barrel
// frame may populate.
var innerGroups = [][3]uint8{{0, 1, 2}, {3, 4, 5}, {6, 7, 8}}

// Chip-trailer readout-flag bit positions within byte[1] of a data
// word, following the ALPIDE chip trailer bit assignment.
const (
	flagBusyViolation       = 1 << 0
	flagDataOverrun         = 1 << 1
	flagTransmissionInFatal = 1 << 2
	flagFlushedIncomplete   = 1 << 3
	flagStrobeExtended      = 1 << 4
	flagBusyTransition      = 1 << 5
	flagFatal               = flagTransmissionInFatal
)

// laneWord is one data word's contribution to the current frame.
type laneWord struct {
	lane    uint8
	bc      uint16
	flags   uint8
	isFatal bool
}

// LaneAnalyzer decodes a single 10-byte data word's chip-trailer
// payload for a known lane ID. Byte layout: byte[1] carries the
// chip-trailer flag bits; bytes[2:4] (little-endian, 12 bits) carry
// the lane's bunch counter.
type LaneAnalyzer struct{}

// Decode extracts the bunch counter and flag byte for lane from raw.
func (LaneAnalyzer) Decode(lane uint8, raw [10]byte) laneWord {
	flags := raw[1]
	bc := (uint16(raw[3])<<8 | uint16(raw[2])) & 0x0FFF
	return laneWord{lane: lane, bc: bc, flags: flags, isFatal: flags&flagFatal != 0}
}

// FrameAnalyzer accumulates the lane words of one readout frame
// (between a TDH and the TDT that carries packet_done) and, on
// Finalize, checks lane population and bunch-counter agreement and
// tallies chip-trailer flags.
type FrameAnalyzer struct {
	barrel     Barrel
	fatalLanes map[uint8]bool
	words      []laneWord
	dec        LaneAnalyzer
}

// NewFrameAnalyzer creates a FrameAnalyzer for the given barrel.
// fatalLanes, if non-nil, is the running set of lanes that have
// previously gone FATAL and are excluded from the expected lane count
// for the remainder of the run; it is mutated in place and should be
// reused across frames on the same link.
func NewFrameAnalyzer(barrel Barrel, fatalLanes map[uint8]bool) *FrameAnalyzer {
	if fatalLanes == nil {
		fatalLanes = map[uint8]bool{}
	}
	return &FrameAnalyzer{barrel: barrel, fatalLanes: fatalLanes}
}

// AddWord feeds one data word belonging to lane into the current
// frame.
func (f *FrameAnalyzer) AddWord(lane uint8, raw [10]byte) {
	f.words = append(f.words, f.dec.Decode(lane, raw))
}

// Reset clears the accumulated words, ready for the next frame. The
// fatal-lane set is not cleared; it persists for the life of the link.
func (f *FrameAnalyzer) Reset() {
	f.words = f.words[:0]
}

// Finalize checks the accumulated frame and returns the errors found
// plus the chip-trailer flag tally for the frame. It must be called
// once per frame, when the TDT carrying packet_done arrives.
func (f *FrameAnalyzer) Finalize() ([]error, stats.AlpideStats) {
	var errs []error
	var tally stats.AlpideStats

	seen := map[uint8]bool{}
	var activeBCs = map[uint16][]uint8{}

	for _, w := range f.words {
		if w.isFatal {
			f.fatalLanes[w.lane] = true
		}
		seen[w.lane] = true
		tallyFlags(&tally, w.flags)
		if !f.fatalLanes[w.lane] {
			activeBCs[w.bc] = append(activeBCs[w.bc], w.lane)
		}
	}

	expected := f.barrel.expectedLaneCount() - len(f.fatalLanes)
	if expected < 0 {
		expected = 0
	}
	liveLanes := 0
	for lane := range seen {
		if !f.fatalLanes[lane] {
			liveLanes++
		}
	}
	if liveLanes != expected {
		errs = append(errs, fmt.Errorf("lane count mismatch: expected %d, got %d", expected, liveLanes))
	}

	if f.barrel == BarrelInner {
		if err := checkInnerGrouping(seen, f.fatalLanes); err != nil {
			errs = append(errs, err)
		}
	}

	if len(activeBCs) > 1 {
		bcs := make([]uint16, 0, len(activeBCs))
		for bc := range activeBCs {
			bcs = append(bcs, bc)
		}
		sort.Slice(bcs, func(i, j int) bool { return bcs[i] < bcs[j] })
		for _, bc := range bcs {
			errs = append(errs, fmt.Errorf("Bunch counter: %d | Lanes: %v", bc, activeBCs[bc]))
		}
	}

	return errs, tally
}

func checkInnerGrouping(seen map[uint8]bool, fatal map[uint8]bool) error {
	live := map[uint8]bool{}
	for lane := range seen {
		if !fatal[lane] {
			live[lane] = true
		}
	}
	for _, g := range innerGroups {
		// Every lane in the group must be accounted for, either
		// present this frame or previously excused as fatal, and
		// every live lane must belong to this group.
		groupAccountsForAllLive := true
		for lane := range live {
			if lane != g[0] && lane != g[1] && lane != g[2] {
				groupAccountsForAllLive = false
				break
			}
		}
		if !groupAccountsForAllLive {
			continue
		}
		allAccounted := true
		for _, lane := range g {
			if !live[lane] && !fatal[lane] {
				allAccounted = false
				break
			}
		}
		if allAccounted {
			return nil
		}
	}
	return fmt.Errorf("inner-barrel lane IDs do not form a recognised group: %v", sortedLanes(live))
}

func sortedLanes(m map[uint8]bool) []uint8 {
	out := make([]uint8, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

func tallyFlags(a *stats.AlpideStats, flags uint8) {
	if flags&flagBusyViolation != 0 {
		a.BusyViolation++
	}
	if flags&flagDataOverrun != 0 {
		a.DataOverrun++
	}
	if flags&flagTransmissionInFatal != 0 {
		a.TransmissionInFatal++
	}
	if flags&flagFlushedIncomplete != 0 {
		a.FlushedIncomplete++
	}
	if flags&flagStrobeExtended != 0 {
		a.StrobeExtended++
	}
	if flags&flagBusyTransition != 0 {
		a.BusyTransitions++
	}
}

// vim: foldmethod=marker
