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

// Package writer re-serializes the Triples the pipeline keeps (every
// CDP that survived the CLI filter) back to their original wire bytes,
// the way the teacher's sdr.Writer tees a sample stream out to a sink
// without altering it in flight.
package writer

import (
	"bufio"
	"fmt"
	"io"

	"github.com/cern-alice/fastpasta-go/cdp"
	"github.com/cern-alice/fastpasta-go/rdh"
)

// ChannelDepth is the bounded channel depth of the raw-output tap the
// Dispatcher feeds, matching the depth of the other per-stage queues.
const ChannelDepth = 100

// Writer consumes Triples from a channel and appends their re-encoded
// RDH and original payload bytes to dst, byte-for-byte, in the order
// received.
type Writer struct {
	dst *bufio.Writer
	in  <-chan cdp.Triple
}

// New wraps dst in a buffered writer and returns a Writer draining in.
func New(dst io.Writer, in <-chan cdp.Triple) *Writer {
	return &Writer{dst: bufio.NewWriter(dst), in: in}
}

// Run drains in until it is closed, flushing dst before returning. It
// stops at the first write error, draining and discarding the
// remainder of in so the upstream Dispatcher is never blocked waiting
// on a writer that gave up.
func (w *Writer) Run() error {
	var writeErr error
	for t := range w.in {
		if writeErr != nil {
			continue
		}
		if err := w.writeOne(t); err != nil {
			writeErr = fmt.Errorf("writer: %w", err)
		}
	}
	if writeErr != nil {
		return writeErr
	}
	return w.dst.Flush()
}

func (w *Writer) writeOne(t cdp.Triple) error {
	header := rdh.EncodeRDH(t.Rdh)
	if _, err := w.dst.Write(header[:]); err != nil {
		return err
	}
	_, err := w.dst.Write(t.Payload)
	return err
}

// vim: foldmethod=marker
