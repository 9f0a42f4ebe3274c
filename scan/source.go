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

// Package scan is the pull-based Input Scanner: it turns a buffered
// byte source into a stream of cdp.Triple values, using package rdh's
// codec, and tracks the absolute memory position consumed so far.
package scan

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
)

// BufferSize is the Scanner's read buffer size, matching the reference
// reader's buffer.
const BufferSize = 50 * 1024

// ErrUnexpectedEOF is a normal termination: the stream ended cleanly on
// an RDH boundary.
var ErrUnexpectedEOF = errors.New("scan: unexpected EOF")

// ErrInvalidData indicates a malformed header or truncation mid-CDP.
// The Chunker treats this the same way it treats a clean EOF: close the
// current batch and stop.
var ErrInvalidData = errors.New("scan: invalid data")

// ErrStdinIsTerminal is returned by NewSourceFromStdin when stdin is a
// TTY: the tool refuses to block forever waiting for interactive input.
var ErrStdinIsTerminal = errors.New("scan: stdin is a terminal, refusing to read")

// Source is the capability a byte origin must provide: reading exactly
// N bytes, and either seeking forward (a real file) or reading-and-
// discarding N bytes (a non-seekable pipe). This is chosen once at
// start-up and never switched at runtime.
type Source interface {
	io.Reader
	// SeekRelative advances the source by n bytes without returning
	// them, preserving the Scanner's memory-position accounting even on
	// a non-seekable stream.
	SeekRelative(n int64) error
}

// fileSource wraps a *bufio.Reader over an *os.File. Even though the
// underlying file is seekable, this uses read-and-discard uniformly so
// byte-count accounting needs no special case between the two Source
// implementations.
type fileSource struct {
	r *bufio.Reader
}

func (f *fileSource) Read(p []byte) (int, error) { return f.r.Read(p) }

func (f *fileSource) SeekRelative(n int64) error {
	_, err := io.CopyN(io.Discard, f.r, n)
	return err
}

// NewSourceFromFile opens path and wraps it as a Source.
func NewSourceFromFile(path string) (Source, io.Closer, error) {
	fh, err := os.Open(path)
	if err != nil {
		return nil, nil, fmt.Errorf("scan: open %s: %w", path, err)
	}
	return &fileSource{r: bufio.NewReaderSize(fh, BufferSize)}, fh, nil
}

// NewSourceFromStdin wraps os.Stdin as a Source, refusing a TTY.
func NewSourceFromStdin() (Source, error) {
	fi, err := os.Stdin.Stat()
	if err != nil {
		return nil, fmt.Errorf("scan: stat stdin: %w", err)
	}
	if fi.Mode()&os.ModeCharDevice != 0 {
		return nil, ErrStdinIsTerminal
	}
	return &fileSource{r: bufio.NewReaderSize(os.Stdin, BufferSize)}, nil
}

// vim: foldmethod=marker
