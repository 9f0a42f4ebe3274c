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

package validate

import (
	"fmt"

	"github.com/cern-alice/fastpasta-go/rdh"
)

// CdpTracker computes the absolute memory position of the GBT word
// currently under the FSM's microscope, so every sanity error can be
// annotated with the exact byte offset it came from.
type CdpTracker struct {
	payloadMemPos   uint64
	gbtWordCounter  uint32
	paddingBytes    uint32
	isStartOfData   bool
}

// NewCdpTracker starts a tracker for the CDP whose RDH begins at
// rdhMemPos. The payload immediately follows the 64 byte RDH.
func NewCdpTracker(r rdh.Rdh, rdhMemPos uint64) *CdpTracker {
	padding := uint32(0)
	if r.DataFormat == 0 {
		padding = 6
	}
	return &CdpTracker{
		payloadMemPos: rdhMemPos + rdh.Size,
		paddingBytes:  padding,
		isStartOfData: true,
	}
}

// StartOfData reports whether a CDW would still be valid here: true
// until the first data word of the payload has been seen.
func (t *CdpTracker) StartOfData() bool { return t.isStartOfData }

// SetDataSeen flips StartOfData to false. The FSM calls it on every
// data word of a payload; only the first call changes anything.
func (t *CdpTracker) SetDataSeen() { t.isStartOfData = false }

// IncrWordCount advances the tracker by one GBT word. Call once per word
// consumed from the payload, before querying CurrentWordMemPos for that
// word.
func (t *CdpTracker) IncrWordCount() { t.gbtWordCounter++ }

// CurrentWordMemPos returns the absolute byte offset of the word most
// recently counted by IncrWordCount.
func (t *CdpTracker) CurrentWordMemPos() uint64 {
	wordSize := uint64(10 + t.paddingBytes)
	index := uint64(t.gbtWordCounter - 1)
	return t.payloadMemPos + index*wordSize
}

// FormatWordError renders a sanity error the way the protocol's own
// diagnostics do: "<hex mem pos>: <message> <10 space separated 2 hex
// digit bytes>".
func FormatWordError(memPos uint64, err error, w [10]byte) string {
	return fmt.Sprintf("%#X: %s %02X %02X %02X %02X %02X %02X %02X %02X %02X %02X",
		memPos, err,
		w[0], w[1], w[2], w[3], w[4], w[5], w[6], w[7], w[8], w[9])
}

// RdhRunningChecker verifies invariants across the RDHs of a single
// link, in arrival order: monotonic packet_counter within a heart-beat
// frame, pages_counter==0 on the first page, stop_bit==0 on every
// non-terminal page and exactly one terminal page with stop_bit==1.
type RdhRunningChecker struct {
	havePrev      bool
	prevPacketCnt uint8
	sawTerminal   bool
}

// Check runs the running checks against the next RDH observed on this
// link, in order. Errors are non-fatal; the caller is expected to log
// them and keep processing the link.
func (c *RdhRunningChecker) Check(r rdh.Rdh) []error {
	var errs []error

	if r.PagesCounter == 0 {
		c.havePrev = false
		c.sawTerminal = false
	}

	if !c.havePrev {
		if r.PagesCounter != 0 {
			errs = append(errs, fmt.Errorf("[E120] first page of heart-beat frame has pages_counter %d, want 0", r.PagesCounter))
		}
	} else {
		want := c.prevPacketCnt + 1
		if r.PacketCounter != want {
			errs = append(errs, fmt.Errorf("[E121] packet_counter %d does not follow previous %d (mod 256)", r.PacketCounter, c.prevPacketCnt))
		}
		if c.sawTerminal {
			errs = append(errs, fmt.Errorf("[E122] RDH observed after a page with stop_bit 1 and no new heart-beat frame"))
		}
	}

	if r.StopBit == 1 {
		c.sawTerminal = true
	} else if r.StopBit != 0 {
		errs = append(errs, fmt.Errorf("[E123] stop_bit %d is neither 0 nor 1", r.StopBit))
	}

	c.havePrev = true
	c.prevPacketCnt = r.PacketCounter

	return errs
}

// Finalize reports the one running check that cannot be evaluated
// incrementally: whether the last heart-beat frame this link saw ever
// closed with a terminal stop_bit==1 page. Call it once, after the
// last RDH on this link has been fed to Check and the link's input is
// known to have ended; a nil return means either no frame was open or
// the open frame already saw its terminal page.
func (c *RdhRunningChecker) Finalize() error {
	if c.havePrev && !c.sawTerminal {
		return fmt.Errorf("[E124] input ended with a heart-beat frame open and missing stop: no page with stop_bit 1 was observed")
	}
	return nil
}

// vim: foldmethod=marker
