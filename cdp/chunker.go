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

package cdp

import (
	"sync/atomic"
)

// Source is the pull interface a Chunker reads Triples from — satisfied
// by *scan.Scanner, kept as a narrow interface here so this package
// does not import scan (scan already imports cdp for the Triple type).
type Source interface {
	LoadNext() (Triple, error)
}

// Chunker accumulates Triples pulled from a Source into fixed-capacity
// Batches and pushes them onto a bounded channel, the way
// stream.BufPipe2 batches samples onto a bounded channel in the teacher.
type Chunker struct {
	src    Source
	out    chan Batch
	stop   *atomic.Bool
}

// NewChunker creates a Chunker reading from src, publishing onto a
// channel of depth ChunkCapacity. stop is the process-wide cooperative
// cancellation flag, checked once per batch.
func NewChunker(src Source, stop *atomic.Bool) *Chunker {
	return &Chunker{
		src:  src,
		out:  make(chan Batch, ChunkCapacity),
		stop: stop,
	}
}

// Out returns the channel batches are published on. The channel is
// closed when Run returns.
func (c *Chunker) Out() <-chan Batch { return c.out }

// Run pulls triples until the source is exhausted, the stop flag is
// set, or gathering a batch fails, then closes Out(). It returns the
// terminal error from the Source, unwrapped — it is the caller's job to
// tell a clean EOF from a truncation error using errors.Is against the
// Source's own sentinel errors (package scan's ErrUnexpectedEOF /
// ErrInvalidData); Run itself does not need to distinguish them.
//
// On a short (non-full) batch, Run pushes that batch and closes Out()
// immediately: a short batch always means end of stream, whether the
// cause was a clean EOF or mid-CDP truncation. This conflates the two
// causes deliberately, preserving the source protocol's own documented
// behaviour rather than distinguishing them.
func (c *Chunker) Run() error {
	defer close(c.out)

	for {
		if c.stop != nil && c.stop.Load() {
			return nil
		}

		batch, err := c.gatherOne()
		if len(batch.Triples) > 0 {
			c.out <- batch
		}
		if !batch.Full() {
			return err
		}
	}
}

func (c *Chunker) gatherOne() (Batch, error) {
	var batch Batch
	for len(batch.Triples) < ChunkCapacity {
		t, err := c.src.LoadNext()
		if err != nil {
			return batch, err
		}
		batch.Triples = append(batch.Triples, t)
	}
	return batch, nil
}

// vim: foldmethod=marker
