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

package cdp_test

import (
	"errors"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cern-alice/fastpasta-go/cdp"
)

var errFakeEOF = errors.New("fake: eof")

type fakeSource struct {
	n   int
	max int
}

func (f *fakeSource) LoadNext() (cdp.Triple, error) {
	if f.n >= f.max {
		return cdp.Triple{}, errFakeEOF
	}
	f.n++
	return cdp.Triple{MemPos: uint64(f.n)}, nil
}

func TestChunkerSingleShortBatch(t *testing.T) {
	src := &fakeSource{max: 3}
	c := cdp.NewChunker(src, nil)

	done := make(chan error, 1)
	go func() { done <- c.Run() }()

	var batches []cdp.Batch
	for b := range c.Out() {
		batches = append(batches, b)
	}
	err := <-done

	require.Len(t, batches, 1)
	assert.Len(t, batches[0].Triples, 3)
	assert.False(t, batches[0].Full())
	assert.ErrorIs(t, err, errFakeEOF)
}

func TestChunkerMultipleFullBatches(t *testing.T) {
	src := &fakeSource{max: cdp.ChunkCapacity + 5}
	c := cdp.NewChunker(src, nil)

	done := make(chan error, 1)
	go func() { done <- c.Run() }()

	var batches []cdp.Batch
	for b := range c.Out() {
		batches = append(batches, b)
	}
	<-done

	require.Len(t, batches, 2)
	assert.True(t, batches[0].Full())
	assert.Len(t, batches[1].Triples, 5)
}

func TestChunkerHonoursStopFlag(t *testing.T) {
	src := &fakeSource{max: 1000}
	var stop atomic.Bool
	stop.Store(true)

	c := cdp.NewChunker(src, &stop)
	err := c.Run()
	assert.NoError(t, err)

	_, open := <-c.Out()
	assert.False(t, open)
}

// vim: foldmethod=marker
