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

package stats

// AlpideStats tallies the chip-trailer readout-flag bits the optional
// detector-specific analyzer counts across a run.
type AlpideStats struct {
	BusyViolation        uint64 `json:"busy_violation" toml:"busy_violation"`
	DataOverrun          uint64 `json:"data_overrun" toml:"data_overrun"`
	TransmissionInFatal  uint64 `json:"transmission_in_fatal" toml:"transmission_in_fatal"`
	FlushedIncomplete    uint64 `json:"flushed_incomplete" toml:"flushed_incomplete"`
	StrobeExtended       uint64 `json:"strobe_extended" toml:"strobe_extended"`
	BusyTransitions      uint64 `json:"busy_transitions" toml:"busy_transitions"`
}

// Sum adds other's counters into a.
func (a *AlpideStats) Sum(other AlpideStats) {
	a.BusyViolation += other.BusyViolation
	a.DataOverrun += other.DataOverrun
	a.TransmissionInFatal += other.TransmissionInFatal
	a.FlushedIncomplete += other.FlushedIncomplete
	a.StrobeExtended += other.StrobeExtended
	a.BusyTransitions += other.BusyTransitions
}

// vim: foldmethod=marker
