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

// Package cdp holds the Triple and Batch types the Scanner produces and
// the Chunker that groups Triples into fixed-capacity Batches for the
// Dispatcher, the way stream.BufPipe2 groups samples into a bounded
// channel in the teacher.
package cdp

import (
	"fmt"

	"github.com/cern-alice/fastpasta-go/rdh"
	"github.com/cern-alice/fastpasta-go/word"
)

// ChunkCapacity is both the target Batch size and the channel depth the
// Chunker pushes batches onto. They share one value by design: batch
// capacity and channel depth match in the source protocol this chunker
// reproduces.
const ChunkCapacity = 100

// Triple is one decoded CDP: its RDH, its raw payload bytes, and the
// absolute byte offset of the RDH within the input stream. The Scanner
// produces Triples; a Batch owns them until the Dispatcher hands each
// one to its link's Validator.
type Triple struct {
	Rdh       rdh.Rdh
	Payload   []byte
	MemPos    uint64
}

// Batch is an ordered, fixed-capacity sequence of Triples produced by
// the Chunker and consumed exactly once by the Dispatcher.
type Batch struct {
	Triples []Triple
}

// Full reports whether the batch reached ChunkCapacity triples. A
// non-full batch returned by the Chunker always signals end of stream,
// whether the stream ended cleanly at EOF or was truncated mid-CDP —
// this conflation is the source protocol's own documented behaviour,
// preserved here rather than "fixed".
func (b Batch) Full() bool {
	return len(b.Triples) == ChunkCapacity
}

// Words splits t's payload into its 10-byte GBT words, stripping the 6
// bytes of padding each word carries on the wire when the RDH reports
// data_format == 0. Returns an error if the payload length is not a
// whole number of (possibly padded) words.
func (t Triple) Words() ([][10]byte, error) {
	stride := word.Size
	if t.Rdh.DataFormat == 0 {
		stride = word.Padded
	}
	if len(t.Payload)%stride != 0 {
		return nil, fmt.Errorf("cdp: payload length %d is not a multiple of word stride %d", len(t.Payload), stride)
	}
	n := len(t.Payload) / stride
	out := make([][10]byte, n)
	for i := 0; i < n; i++ {
		copy(out[i][:], t.Payload[i*stride:i*stride+word.Size])
	}
	return out, nil
}

// vim: foldmethod=marker
