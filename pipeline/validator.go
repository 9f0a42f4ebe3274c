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

// Package pipeline wires the Scanner/Chunker output to one Validator
// goroutine per observed link, and orchestrates the whole run's
// lifecycle (the Dispatcher and the Controller).
package pipeline

import (
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/cern-alice/fastpasta-go/cdp"
	"github.com/cern-alice/fastpasta-go/fsm"
	"github.com/cern-alice/fastpasta-go/stats"
	"github.com/cern-alice/fastpasta-go/validate"
	"github.com/cern-alice/fastpasta-go/validate/alpide"
	"github.com/cern-alice/fastpasta-go/word"
)

// ValidatorChannelDepth is the bounded channel depth of each per-link
// Validator's intake queue.
const ValidatorChannelDepth = 100

// AlpideConfig selects the optional detector-specific Readout-Frame
// Analyzer and the barrel a given link belongs to.
type AlpideConfig struct {
	Enabled bool
	Barrel  alpide.Barrel
}

// Validator owns all per-link state: the payload FSM, the RDH running
// checker, and (optionally) the readout-frame analyzer. It is never
// accessed from more than one goroutine.
type Validator struct {
	link uint8
	in   chan cdp.Triple

	fsm     *fsm.FSM
	running validate.RdhRunningChecker
	frame   *alpide.FrameAnalyzer
	fatal   map[uint8]bool

	// lastStop records whether the previous RDH on this link had
	// stop_bit==1.
	lastStop bool

	statsOut chan<- stats.Event
	log      *logrus.Logger
}

// NewValidator creates a Validator for one link. statsOut is the shared
// handle into the Stats Aggregator's intake channel; the Validator
// sends on it but never closes it (the Dispatcher owns that).
func NewValidator(link uint8, period uint16, alpideCfg AlpideConfig, statsOut chan<- stats.Event, log *logrus.Logger) *Validator {
	if log == nil {
		log = logrus.New()
	}
	v := &Validator{
		link:     link,
		in:       make(chan cdp.Triple, ValidatorChannelDepth),
		fsm:      fsm.New(log, period),
		statsOut: statsOut,
		log:      log,
	}
	if alpideCfg.Enabled {
		v.fatal = map[uint8]bool{}
		v.frame = alpide.NewFrameAnalyzer(alpideCfg.Barrel, v.fatal)
	}
	return v
}

// In returns the channel the Dispatcher feeds this link's Triples on.
func (v *Validator) In() chan<- cdp.Triple { return v.in }

// Run drains triples until In() is closed, feeding each one through
// the running checker and the payload FSM and forwarding every
// resulting error as a Stats Event. It returns once the channel is
// drained and closed, signalling the caller it may tear this
// Validator down.
func (v *Validator) Run() {
	for t := range v.in {
		v.checkOne(t)
	}
	if err := v.running.Finalize(); err != nil {
		v.emitError(err)
	}
}

func (v *Validator) checkOne(t cdp.Triple) {
	v.statsOut <- stats.FeeIDSeen(uint16(t.Rdh.FeeID))
	v.statsOut <- stats.LayerStaveSeen(t.Rdh.FeeID.Layer(), t.Rdh.FeeID.Stave())
	v.statsOut <- stats.PayloadSize(uint32(len(t.Payload)))
	v.statsOut <- stats.RDHSeen(1)
	v.statsOut <- stats.SystemID(t.Rdh.SystemID)
	v.statsOut <- stats.RdhVersion(t.Rdh.HeaderID)
	v.statsOut <- stats.DataFormat(t.Rdh.DataFormat)
	v.statsOut <- stats.RunTriggerType(t.Rdh.TriggerType)

	if t.Rdh.PagesCounter == 0 && v.lastStop {
		v.fsm.Reset()
	}
	v.lastStop = t.Rdh.StopBit == 1

	for _, err := range v.running.Check(t.Rdh) {
		v.emitError(err)
	}

	tracker := validate.NewCdpTracker(t.Rdh, t.MemPos)
	v.fsm.BeginPayload(tracker)

	words, err := t.Words()
	if err != nil {
		v.emitError(err)
		return
	}

	for _, raw := range words {
		ev := v.fsm.Feed(raw, t.Rdh)
		for _, werr := range ev.Errors {
			v.emitError(werr)
		}
		v.feedAlpide(ev, raw)
	}
}

func (v *Validator) feedAlpide(ev fsm.Event, raw [10]byte) {
	if v.frame == nil {
		return
	}
	if ev.Kind == word.KindDataWord {
		lane := laneIDFromWord(raw)
		v.frame.AddWord(lane, raw)
		return
	}
	if ev.Kind == word.KindTDT && ev.PacketDone {
		errs, tally := v.frame.Finalize()
		for _, err := range errs {
			v.emitError(err)
		}
		v.statsOut <- stats.AlpideStatsEvent(tally)
		v.frame.Reset()
	}
}

func laneIDFromWord(raw [10]byte) uint8 {
	id := raw[9]
	switch word.IDBarrel(id) {
	case word.BarrelInner:
		return word.InnerLaneID(id)
	case word.BarrelOuter:
		lane, _ := word.OuterLaneID(id)
		return lane
	default:
		return 0
	}
}

func (v *Validator) emitError(err error) {
	v.statsOut <- stats.Error(fmt.Sprintf("[link %d] %s", v.link, err))
}

// vim: foldmethod=marker
