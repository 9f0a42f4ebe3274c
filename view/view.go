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

// Package view renders the three textual views the CLI's `view`
// subcommand exposes (rdh, its-readout-frames,
// its-readout-frames-data), pulling Triples one at a time from a
// cdp.Source the same way the rest of the pipeline streams input
// rather than buffering a whole run in memory.
package view

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/cern-alice/fastpasta-go/cdp"
	"github.com/cern-alice/fastpasta-go/rdh"
	"github.com/cern-alice/fastpasta-go/scan"
	"github.com/cern-alice/fastpasta-go/validate"
	"github.com/cern-alice/fastpasta-go/word"
)

// newTabWriter configures the column padding every view shares.
func newTabWriter(w io.Writer) *tabwriter.Writer {
	return tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
}

// eachTriple pulls from src until it is exhausted, calling fn with
// every Triple it sees. A clean end of input ends the view without an
// error; input truncated inside an RDH or payload is returned as an
// error.
func eachTriple(src cdp.Source, fn func(cdp.Triple) error) error {
	for {
		t, err := src.LoadNext()
		if err != nil {
			if errors.Is(err, io.EOF) || errors.Is(err, scan.ErrUnexpectedEOF) {
				return nil
			}
			return err
		}
		if err := fn(t); err != nil {
			return err
		}
	}
}

// RDH renders one line per RDH: its memory position, version, stop
// bit, stave, trigger type, link ID, and orbit_bc.
func RDH(w io.Writer, src cdp.Source) error {
	tw := newTabWriter(w)
	fmt.Fprintln(tw, "Mem pos\tVersion\tStop\tStave\tTrigger\tLink\tOrbit_BC")

	err := eachTriple(src, func(t cdp.Triple) error {
		fmt.Fprintf(tw, "%08X\tv%d\t%d\t%s\t%s\t#%d\t%d_%d\n",
			t.MemPos, t.Rdh.HeaderID, t.Rdh.StopBit, t.Rdh.FeeID,
			triggerTypeString(t.Rdh.TriggerType), t.Rdh.LinkID,
			t.Rdh.Orbit, t.Rdh.BC())
		return nil
	})
	if err != nil {
		return err
	}
	return tw.Flush()
}

// ITSReadoutFrames renders one line per RDH followed by one line per
// status word in its payload (IHW/TDH/TDT/DDW0/CDW); data words are
// not shown. Use ITSReadoutFramesData to also see data words and raw
// bytes.
func ITSReadoutFrames(w io.Writer, src cdp.Source) error {
	return renderFrames(w, src, false)
}

// ITSReadoutFramesData renders every word in the payload, including
// data words, each annotated with its raw 10 bytes.
func ITSReadoutFramesData(w io.Writer, src cdp.Source) error {
	return renderFrames(w, src, true)
}

func renderFrames(w io.Writer, src cdp.Source, showData bool) error {
	bw := bufio.NewWriter(w)
	tw := newTabWriter(bw)
	fmt.Fprintln(tw, "Mem pos\tWord\tDetail")

	err := eachTriple(src, func(t cdp.Triple) error {
		fmt.Fprintf(tw, "%08X\tRDH v%d\tstop=%d link=#%d %s\n",
			t.MemPos, t.Rdh.HeaderID, t.Rdh.StopBit, t.Rdh.LinkID, triggerTypeString(t.Rdh.TriggerType))

		stride := word.Size
		if t.Rdh.DataFormat == 0 {
			stride = word.Padded
		}
		words, err := t.Words()
		if err != nil {
			return err
		}
		for idx, raw := range words {
			memPos := t.MemPos + rdh.Size + uint64(idx*stride)
			renderWord(tw, memPos, raw, showData)
		}
		return nil
	})
	if err != nil {
		return err
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	return bw.Flush()
}

func renderWord(tw *tabwriter.Writer, memPos uint64, raw [10]byte, showData bool) {
	switch raw[9] {
	case word.IDIhw:
		fmt.Fprintf(tw, "%08X\tIHW\tactive_lanes=%#X\n", memPos, ihwActiveLanes(raw))
	case word.IDTdh:
		fmt.Fprintf(tw, "%08X\tTDH\ttrigger=%#X internal=%d bc=%d\n",
			memPos, validate.TriggerType(raw), validate.InternalTrigger(raw), validate.BC(raw))
	case word.IDTdt:
		fmt.Fprintf(tw, "%08X\tTDT\tpacket_done=%t\n", memPos, validate.PacketDone(raw))
	case word.IDDdw0:
		fmt.Fprintf(tw, "%08X\tDDW0\t\n", memPos)
	case word.IDCdw:
		fmt.Fprintf(tw, "%08X\tCDW\t\n", memPos)
	default:
		if showData {
			fmt.Fprintf(tw, "%08X\tDATA\t% X\n", memPos, raw)
		}
	}
}

func ihwActiveLanes(raw [10]byte) uint32 {
	return uint32(raw[0]) | uint32(raw[1])<<8 | uint32(raw[2])<<16
}

func triggerTypeString(t uint32) string {
	if t&rdh.PhysicsTriggerBit != 0 {
		return "PHYSICS"
	}
	return fmt.Sprintf("%#X", t)
}

// vim: foldmethod=marker
