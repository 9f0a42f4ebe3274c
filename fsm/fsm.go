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

// Package fsm is the per-link payload finite-state machine: it
// classifies each 80 bit payload word by its tenth byte, resolving the
// ambiguous IDs by tracking what came before, and fires the sanity
// checks of package validate at the right transitions. A single word is
// always processed to completion without yielding; the FSM is never
// re-entered concurrently for a given link.
package fsm

import (
	"encoding/binary"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/cern-alice/fastpasta-go/internal/diag"
	"github.com/cern-alice/fastpasta-go/rdh"
	"github.com/cern-alice/fastpasta-go/validate"
	"github.com/cern-alice/fastpasta-go/word"
)

// State is one node of the per-link payload FSM.
type State int

const (
	StateInitial State = iota
	StateAfterIHW
	StateAfterIHWCont
	StateAfterTDH
	StateInDataWords
	StateAfterTDTNotDone
	StateAfterTDTDone
	StateAfterTDHAfterPD
	StateAfterDDW0
)

func (s State) String() string {
	switch s {
	case StateInitial:
		return "Initial"
	case StateAfterIHW:
		return "AfterIHW"
	case StateAfterIHWCont:
		return "AfterIHW_cont"
	case StateAfterTDH:
		return "AfterTDH"
	case StateInDataWords:
		return "InDataWords"
	case StateAfterTDTNotDone:
		return "AfterTDT(packet_done=false)"
	case StateAfterTDTDone:
		return "AfterTDT(packet_done=true)"
	case StateAfterTDHAfterPD:
		return "AfterTDH_after_pd"
	case StateAfterDDW0:
		return "AfterDDW0"
	default:
		return "Unknown"
	}
}

// tdhInfo is a single captured TDH observation.
type tdhInfo struct {
	bc       uint16
	internal bool
}

// tdhBuffer tracks the two TDH pointers the periodic-TDH check needs:
// the immediately-prior TDH, and the most recent TDH that had its
// internal-trigger bit set.
type tdhBuffer struct {
	current                 *tdhInfo
	previous                *tdhInfo
	previousWithInternalSet *tdhInfo
}

func (b *tdhBuffer) replace(bc uint16, internal bool) {
	if b.current != nil {
		b.previous = b.current
		if b.current.internal {
			b.previousWithInternalSet = b.current
		}
	}
	b.current = &tdhInfo{bc: bc, internal: internal}
}

// activeLaneMask is the bitmask of lanes this IHW declared active,
// packed little-endian into the first 28 bits of the word.
func activeLaneMask(w [10]byte) uint32 {
	var buf [4]byte
	copy(buf[:], w[0:4])
	return binary.LittleEndian.Uint32(buf[:]) & 0x0FFFFFFF
}

// Event is one reportable outcome of feeding a word to the FSM: either
// nil (accepted cleanly) or an annotated sanity/running error.
type Event struct {
	Kind   word.Kind
	Errors []error

	// PacketDone is set on a KindTDT event whose packet_done flag was
	// 1, the only point at which a frame is actually finished; a TDT
	// with packet_done==0 continues onto another page via an
	// IHW-continuation and must not trigger a frame finalize.
	PacketDone bool
}

// FSM is the per-link payload finite state machine plus the small
// pieces of history its sanity hooks need: the current IHW active-lane
// mask and the TDH buffer. It does not reset across CDPs unless the
// previous RDH had stop_bit==1 and the new one starts a fresh
// heart-beat frame (pages_counter==0) — see Reset.
type FSM struct {
	state State

	checker validate.StatusWordSanityChecker
	tdh     tdhBuffer
	tracker *validate.CdpTracker

	activeLanes    uint32
	triggerPeriod  uint16
	periodEnabled  bool

	log *logrus.Logger
}

// New creates an FSM for one link. If period > 0, the periodic-TDH
// check (testable property 5) is enabled with that configured period.
func New(log *logrus.Logger, period uint16) *FSM {
	if log == nil {
		log = logrus.New()
	}
	return &FSM{
		log:           log,
		triggerPeriod: period,
		periodEnabled: period > 0,
	}
}

// Reset clears per-heart-beat-frame history: previous TDH pointers and
// the accumulated active-lane mask. Call this when an RDH with
// stop_bit==1 was just observed and the next RDH begins a new frame
// (pages_counter==0).
func (f *FSM) Reset() {
	f.state = StateInitial
	f.tdh = tdhBuffer{}
	f.activeLanes = 0
}

// BeginPayload starts tracking memory positions for a new CDP's
// payload, using tracker for CurrentWordMemPos.
func (f *FSM) BeginPayload(tracker *validate.CdpTracker) {
	f.tracker = tracker
}

// Feed classifies and sanity-checks one payload word, given the RDH
// context it was observed under (for the IHW/DDW0 cross-checks against
// stop_bit/pages_counter).
func (f *FSM) Feed(raw [10]byte, rdhCtx rdh.Rdh) Event {
	if f.tracker != nil {
		f.tracker.IncrWordCount()
	}

	id := raw[9]
	switch f.state {
	case StateInitial:
		return f.onInitial(raw, rdhCtx)
	case StateAfterIHW, StateAfterIHWCont:
		return f.onAfterIHW(raw)
	case StateAfterTDH, StateAfterTDHAfterPD:
		return f.onAfterTDH(raw)
	case StateInDataWords:
		return f.onInDataWords(raw)
	case StateAfterTDTNotDone:
		return f.onAfterTDTNotDone(raw)
	case StateAfterTDTDone:
		return f.onAfterTDTDone(raw, rdhCtx)
	case StateAfterDDW0:
		return Event{Kind: word.KindUnknown, Errors: []error{fmt.Errorf("word ID %#02X observed after terminal DDW0", id)}}
	default:
		return Event{Kind: word.KindUnknown, Errors: []error{fmt.Errorf("FSM in unknown state for word ID %#02X", id)}}
	}
}

func (f *FSM) errAt(err error, raw [10]byte) error {
	if f.tracker == nil {
		return err
	}
	return fmt.Errorf("%s", validate.FormatWordError(f.tracker.CurrentWordMemPos(), err, raw))
}

func (f *FSM) onInitial(raw [10]byte, rdhCtx rdh.Rdh) Event {
	if raw[9] != word.IDIhw {
		return Event{Kind: word.KindUnknown, Errors: []error{f.errAt(fmt.Errorf("expected IHW to start payload, got ID %#02X", raw[9]), raw)}}
	}
	return f.handleIHW(raw, rdhCtx, word.KindIHW)
}

func (f *FSM) handleIHW(raw [10]byte, rdhCtx rdh.Rdh, kind word.Kind) Event {
	var errs []error
	if err := f.checker.Ihw.SanityCheck(raw); err != nil {
		errs = append(errs, f.errAt(err, raw))
	}
	if err := validate.CheckIHWAtRDH(rdhCtx.StopBit); err != nil {
		errs = append(errs, f.errAt(err, raw))
	}
	f.activeLanes = activeLaneMask(raw)
	f.state = StateAfterIHW
	return Event{Kind: kind, Errors: errs}
}

func (f *FSM) onAfterIHW(raw [10]byte) Event {
	id := raw[9]
	if id != word.IDTdh {
		return Event{Kind: word.KindUnknown, Errors: []error{f.errAt(fmt.Errorf("expected TDH after IHW, got ID %#02X", id), raw)}}
	}
	return f.handleTDH(raw)
}

func (f *FSM) handleTDH(raw [10]byte) Event {
	var errs []error
	if err := f.checker.Tdh.SanityCheck(raw); err != nil {
		errs = append(errs, f.errAt(err, raw))
	}

	bc := validate.BC(raw)
	internal := validate.InternalTrigger(raw) != 0
	f.tdh.replace(bc, internal)

	if internal && f.periodEnabled && f.tdh.previousWithInternalSet != nil {
		detected, ok := validate.MatchTriggerInterval(bc, f.tdh.previousWithInternalSet.bc, f.triggerPeriod)
		if !ok {
			errs = append(errs, f.errAt(fmt.Errorf("trigger period mismatch: detected %d, configured %d", detected, f.triggerPeriod), raw))
		}
	}

	f.state = StateAfterTDH
	return Event{Kind: word.KindTDH, Errors: errs}
}

func (f *FSM) onAfterTDH(raw [10]byte) Event {
	id := raw[9]
	switch {
	case word.IsDataWordID(id):
		return f.handleDataWord(raw)
	case id == word.IDTdt:
		return f.handleTDT(raw)
	case id == word.IDTdh:
		// TDH continuation: same ID, stay in the TDH family.
		ev := f.handleTDH(raw)
		ev.Kind = word.KindTDHContinuation
		return ev
	default:
		return Event{Kind: word.KindUnknown, Errors: []error{f.errAt(fmt.Errorf("unexpected ID %#02X after TDH", id), raw)}}
	}
}

func (f *FSM) handleDataWord(raw [10]byte) Event {
	id := raw[9]
	var errs []error

	if f.tracker != nil {
		f.tracker.SetDataSeen()
	}

	switch word.IDBarrel(id) {
	case word.BarrelInner:
		lane := word.InnerLaneID(id)
		if err := validate.CheckIBLaneActive(lane, f.activeLanes); err != nil {
			errs = append(errs, f.errAt(err, raw))
		}
	case word.BarrelOuter:
		lane, connector := word.OuterLaneID(id)
		for _, err := range validate.CheckOBLaneActive(lane, connector, f.activeLanes) {
			errs = append(errs, f.errAt(err, raw))
		}
	default:
		errs = append(errs, f.errAt(validate.ErrInvalidDataWordID(id), raw))
	}

	f.state = StateInDataWords
	return Event{Kind: word.KindDataWord, Errors: errs}
}

func (f *FSM) onInDataWords(raw [10]byte) Event {
	id := raw[9]
	switch {
	case word.IsDataWordID(id):
		return f.handleDataWord(raw)
	case id == word.IDTdt:
		return f.handleTDT(raw)
	case id == word.IDCdw:
		if f.tracker != nil && !f.tracker.StartOfData() {
			diag.Ambiguity(f.log, "DW_or_TDT_CDW", "DataWord")
			return f.handleDataWord(raw)
		}
		return Event{Kind: word.KindCDW}
	case id == word.IDIhw:
		return f.handleIHW(raw, rdh.Rdh{}, word.KindIHWContinuation)
	default:
		return Event{Kind: word.KindUnknown, Errors: []error{f.errAt(fmt.Errorf("unexpected ID %#02X in data words", id), raw)}}
	}
}

func (f *FSM) handleTDT(raw [10]byte) Event {
	var errs []error
	if err := f.checker.Tdt.SanityCheck(raw); err != nil {
		errs = append(errs, f.errAt(err, raw))
	}
	done := validate.PacketDone(raw)
	if done {
		f.state = StateAfterTDTDone
	} else {
		f.state = StateAfterTDTNotDone
	}
	return Event{Kind: word.KindTDT, Errors: errs, PacketDone: done}
}

func (f *FSM) onAfterTDTNotDone(raw [10]byte) Event {
	if raw[9] != word.IDIhw {
		return Event{Kind: word.KindUnknown, Errors: []error{f.errAt(fmt.Errorf("expected IHW continuation after non-final TDT, got ID %#02X", raw[9]), raw)}}
	}
	return f.handleIHW(raw, rdh.Rdh{}, word.KindIHWContinuation)
}

func (f *FSM) onAfterTDTDone(raw [10]byte, rdhCtx rdh.Rdh) Event {
	id := raw[9]
	switch id {
	case word.IDTdh:
		diag.Ambiguity(f.log, "TDH_or_DDW0", "TDH")
		ev := f.handleTDH(raw)
		ev.Kind = word.KindTDHAfterPacketDone
		f.state = StateAfterTDHAfterPD
		return ev
	case word.IDDdw0:
		diag.Ambiguity(f.log, "DDW0_or_TDH_IHW", "DDW0")
		return f.handleDDW0(raw, rdhCtx)
	default:
		// A byte that is neither TDH nor DDW0 is a genuine protocol
		// violation; the ambiguity this state represents only exists
		// between those two word types.
		return Event{Kind: word.KindUnknown, Errors: []error{f.errAt(fmt.Errorf("expected TDH or DDW0 after packet-done TDT, got ID %#02X", id), raw)}}
	}
}

func (f *FSM) handleDDW0(raw [10]byte, rdhCtx rdh.Rdh) Event {
	var errs []error
	if err := f.checker.Ddw0.SanityCheck(raw); err != nil {
		errs = append(errs, f.errAt(err, raw))
	}
	for _, err := range validate.CheckDDW0AtRDH(rdhCtx.StopBit, rdhCtx.PagesCounter) {
		errs = append(errs, f.errAt(err, raw))
	}
	f.state = StateAfterDDW0
	return Event{Kind: word.KindDDW0, Errors: errs}
}

// State returns the FSM's current state, for tests and diagnostics.
func (f *FSM) State() State { return f.state }

// vim: foldmethod=marker
