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

// Package stats is the single consumer of every Event emitted by the
// rest of the pipeline: it deduplicates observed links/FEE-IDs/staves,
// counts RDHs and errors, enforces the configured error ceiling, and
// assembles the end-of-run report.
package stats

import "fmt"

// Kind discriminates the tagged union of Stats Events.
type Kind int

const (
	KindFatal Kind = iota
	KindError
	KindRunTriggerType
	KindSystemID
	KindRdhVersion
	KindDataFormat
	KindLinksObserved
	KindFeeID
	KindRDHSeen
	KindRDHFiltered
	KindPayloadSize
	KindLayerStaveSeen
	KindAlpideStats
)

// knownSystemIDs is the closed set of DAQ system IDs this tool
// recognizes; an ID outside this set is itself a reportable condition.
var knownSystemIDs = map[uint8]bool{
	3: true, 4: true, 5: true, 6: true, 7: true, 8: true, 10: true,
	15: true, 17: true, 18: true, 19: true,
	32: true, 33: true, 34: true, 35: true, 36: true, 37: true, 38: true, 39: true,
	255: true,
}

// ValidateSystemID reports an error if id is outside the closed set of
// known DAQ system IDs.
func ValidateSystemID(id uint8) error {
	if !knownSystemIDs[id] {
		return fmt.Errorf("unknown system_id: %d", id)
	}
	return nil
}

// LayerStave identifies one detector stave by its layer and stave
// number, as derived from a FEE-ID.
type LayerStave struct {
	Layer uint8
	Stave uint8
}

// Event is one reportable occurrence, tagged by Kind. Only the fields
// relevant to Kind are populated; this mirrors the original's tagged
// union more directly than a family of concrete event types would, and
// keeps the Aggregator's receive loop to one type switch.
type Event struct {
	Kind Kind

	Msg string // Fatal, Error

	U32 uint32 // RunTriggerType
	U16 uint16 // RDHSeen, RDHFiltered
	U8  uint8  // SystemID, RdhVersion, DataFormat, LinksObserved

	FeeID      uint16
	LayerStave LayerStave
	PayloadSz  uint32
	Alpide     *AlpideStats
}

// Fatal constructs a Kind=Fatal Event.
func Fatal(msg string) Event { return Event{Kind: KindFatal, Msg: msg} }

// Error constructs a Kind=Error Event.
func Error(msg string) Event { return Event{Kind: KindError, Msg: msg} }

// RunTriggerType constructs a Kind=RunTriggerType Event.
func RunTriggerType(v uint32) Event { return Event{Kind: KindRunTriggerType, U32: v} }

// SystemID constructs a Kind=SystemId Event.
func SystemID(v uint8) Event { return Event{Kind: KindSystemID, U8: v} }

// RdhVersion constructs a Kind=RdhVersion Event.
func RdhVersion(v uint8) Event { return Event{Kind: KindRdhVersion, U8: v} }

// DataFormat constructs a Kind=DataFormat Event.
func DataFormat(v uint8) Event { return Event{Kind: KindDataFormat, U8: v} }

// LinksObserved constructs a Kind=LinksObserved Event.
func LinksObserved(v uint8) Event { return Event{Kind: KindLinksObserved, U8: v} }

// FeeIDSeen constructs a Kind=FeeId Event.
func FeeIDSeen(v uint16) Event { return Event{Kind: KindFeeID, FeeID: v} }

// RDHSeen constructs a Kind=RDHSeen Event.
func RDHSeen(n uint16) Event { return Event{Kind: KindRDHSeen, U16: n} }

// RDHFiltered constructs a Kind=RDHFiltered Event.
func RDHFiltered(n uint16) Event { return Event{Kind: KindRDHFiltered, U16: n} }

// PayloadSize constructs a Kind=PayloadSize Event.
func PayloadSize(n uint32) Event { return Event{Kind: KindPayloadSize, PayloadSz: n} }

// LayerStaveSeen constructs a Kind=LayerStaveSeen Event.
func LayerStaveSeen(layer, stave uint8) Event {
	return Event{Kind: KindLayerStaveSeen, LayerStave: LayerStave{Layer: layer, Stave: stave}}
}

// AlpideStatsEvent constructs a Kind=AlpideStats Event.
func AlpideStatsEvent(a AlpideStats) Event {
	return Event{Kind: KindAlpideStats, Alpide: &a}
}

// vim: foldmethod=marker
