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

import (
	"regexp"
	"sort"
	"sync/atomic"
)

// memPosRe extracts the leading "0x<hex>:" (or "0X<hex>:") memory-position
// prefix a FormatWordError-shaped message carries, optionally preceded
// by the Validator's "[link N] " prefix, for sort-by-position on
// finalize.
var memPosRe = regexp.MustCompile(`^(?:\[link \d+\] )?0[xX]([0-9A-Fa-f]+):`)

// feeIDRe extracts a "FEE_ID:<n>" or "FEEID:<n>" token from an error
// message, used to derive the set of staves implicated by errors.
var feeIDRe = regexp.MustCompile(`FEE.?ID:(\d+)`)

// Aggregator is the single consumer of the stats channel. It must run
// on one goroutine; its internal maps and slices are not safe for
// concurrent access.
type Aggregator struct {
	in chan Event

	maxTolerate int
	stop        *atomic.Bool

	links      map[uint8]bool
	feeIDs     map[uint16]bool
	layerStave map[LayerStave]bool

	rdhSeen     uint64
	rdhFiltered uint64
	payloadSize uint64

	errorsByCode map[string]int
	errorMsgs    []string
	fatal        string

	runTriggerType uint32
	systemID       uint8
	rdhVersion     uint8
	dataFormat     uint8
	alpide         AlpideStats
}

// statsChannelDepth is a generous stand-in for "unbounded": Go channels
// have no true unbounded variant, and stats Events are small and rare
// enough relative to payload words that this depth never fills in
// practice, unlike the genuinely back-pressured batch/validator/writer
// queues.
const statsChannelDepth = 4096

// NewAggregator creates an Aggregator with a deep intake channel (stats
// are small and loss is unacceptable) and the configured error ceiling.
// stop is set once error_count exceeds maxTolerate.
func NewAggregator(maxTolerate int, stop *atomic.Bool) *Aggregator {
	return &Aggregator{
		in:           make(chan Event, statsChannelDepth),
		maxTolerate:  maxTolerate,
		stop:         stop,
		links:        map[uint8]bool{},
		feeIDs:       map[uint16]bool{},
		layerStave:   map[LayerStave]bool{},
		errorsByCode: map[string]int{},
	}
}

// In returns the channel producers send Events on. Producers never
// close it; whoever owns the run closes it once, after every producer
// has finished, and the Aggregator treats that close as end of run.
func (a *Aggregator) In() chan<- Event { return a.in }

// ObserveLink records that a triple for link was dispatched, for the
// LinksObserved summary count.
func (a *Aggregator) ObserveLink(link uint8) { a.links[link] = true }

var errorCodeRe = regexp.MustCompile(`\[(E\d+)\]`)

func errorCode(msg string) string {
	if m := errorCodeRe.FindStringSubmatch(msg); m != nil {
		return m[1]
	}
	return "uncoded"
}

// Run drains events until In() is closed (every producer has
// finished). On each Error event, the error count is incremented; the
// stop flag is set the moment the count exceeds maxTolerate, so no
// further batches get dispatched.
func (a *Aggregator) Run() {
	for ev := range a.in {
		switch ev.Kind {
		case KindFatal:
			a.fatal = ev.Msg
			if a.stop != nil {
				a.stop.Store(true)
			}
		case KindError:
			a.errorMsgs = append(a.errorMsgs, ev.Msg)
			a.errorsByCode[errorCode(ev.Msg)]++
			if a.maxTolerate >= 0 && a.ErrorCount() > a.maxTolerate && a.stop != nil {
				a.stop.Store(true)
			}
		case KindRunTriggerType:
			a.runTriggerType = ev.U32
		case KindSystemID:
			a.systemID = ev.U8
		case KindRdhVersion:
			a.rdhVersion = ev.U8
		case KindDataFormat:
			a.dataFormat = ev.U8
		case KindLinksObserved:
			a.links[ev.U8] = true
		case KindFeeID:
			a.feeIDs[ev.FeeID] = true
		case KindRDHSeen:
			a.rdhSeen += uint64(ev.U16)
		case KindRDHFiltered:
			a.rdhFiltered += uint64(ev.U16)
		case KindPayloadSize:
			a.payloadSize += uint64(ev.PayloadSz)
		case KindLayerStaveSeen:
			a.layerStave[ev.LayerStave] = true
		case KindAlpideStats:
			if ev.Alpide != nil {
				a.alpide.Sum(*ev.Alpide)
			}
		}
	}
}

// ErrorCount returns the number of Error events seen so far.
func (a *Aggregator) ErrorCount() int { return len(a.errorMsgs) }

// Finalize assembles the end-of-run Report. It must only be called
// after In() has been closed and Run has returned, so that every
// producer's events are accounted for.
func (a *Aggregator) Finalize() Report {
	errs := append([]string(nil), a.errorMsgs...)
	sort.SliceStable(errs, func(i, j int) bool {
		return memPos(errs[i]) < memPos(errs[j])
	})

	staves := map[string]bool{}
	for _, msg := range errs {
		if m := feeIDRe.FindStringSubmatch(msg); m != nil {
			staves[m[1]] = true
		}
	}
	var staveList []string
	for s := range staves {
		staveList = append(staveList, s)
	}
	sort.Strings(staveList)

	links := sortedUint8Keys(a.links)
	fees := sortedUint16Keys(a.feeIDs)

	return Report{
		RDHSeen:          a.rdhSeen,
		RDHFiltered:      a.rdhFiltered,
		PayloadSize:      a.payloadSize,
		LinksObserved:    links,
		FeeIDsObserved:   fees,
		LayersStaves:     sortedLayerStaves(a.layerStave),
		ErrorCount:       len(errs),
		ErrorsByCode:     a.errorsByCode,
		Errors:           errs,
		ImplicatedStaves: staveList,
		Fatal:            a.fatal,
		RunTriggerType:   a.runTriggerType,
		SystemID:         a.systemID,
		RdhVersion:       a.rdhVersion,
		DataFormat:       a.dataFormat,
		Alpide:           a.alpide,
	}
}

func memPos(msg string) uint64 {
	m := memPosRe.FindStringSubmatch(msg)
	if m == nil {
		return 0
	}
	var v uint64
	for _, c := range m[1] {
		v <<= 4
		switch {
		case c >= '0' && c <= '9':
			v |= uint64(c - '0')
		case c >= 'a' && c <= 'f':
			v |= uint64(c-'a') + 10
		case c >= 'A' && c <= 'F':
			v |= uint64(c-'A') + 10
		}
	}
	return v
}

func sortedUint8Keys(m map[uint8]bool) []uint8 {
	out := make([]uint8, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

func sortedUint16Keys(m map[uint16]bool) []uint16 {
	out := make([]uint16, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

func sortedLayerStaves(m map[LayerStave]bool) []LayerStave {
	out := make([]LayerStave, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Layer != out[j].Layer {
			return out[i].Layer < out[j].Layer
		}
		return out[i].Stave < out[j].Stave
	})
	return out
}

// vim: foldmethod=marker
