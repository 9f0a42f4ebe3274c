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

package scan

import (
	"errors"
	"fmt"
	"io"

	"github.com/cern-alice/fastpasta-go/cdp"
	"github.com/cern-alice/fastpasta-go/rdh"
)

// Filter restricts the Scanner to CDPs matching a predicate over the
// RDH; non-matching CDPs are skipped via SeekRelative rather than read
// into memory.
type Filter func(rdh.Rdh) bool

// Scanner pulls one CDP at a time from a Source, tracking the absolute
// byte offset consumed so far.
type Scanner struct {
	src    Source
	memPos uint64

	haveFirst  bool
	headerID   uint8
	systemID   uint8

	filter   Filter
	filtered uint64
}

// New creates a Scanner over src. If filter is non-nil, LoadNext skips
// (via SeekRelative) any CDP whose RDH the filter rejects, without
// reading its payload into memory.
func New(src Source, filter Filter) *Scanner {
	return &Scanner{src: src, filter: filter}
}

// CurrentMemPos returns the cumulative number of bytes consumed so far,
// used to correlate errors with file position.
func (s *Scanner) CurrentMemPos() uint64 { return s.memPos }

// FilteredCount returns the number of CDPs skipped so far because they
// did not match the active filter.
func (s *Scanner) FilteredCount() uint64 { return s.filtered }

// LoadRDH reads exactly 64 bytes and decodes them. On the first RDH it
// records header_id/system_id as the run's baseline; on later RDHs it
// enforces that both stay stable.
func (s *Scanner) LoadRDH() (rdh.Rdh, error) {
	buf := make([]byte, rdh.Size)
	if _, err := io.ReadFull(s.src, buf); err != nil {
		if errors.Is(err, io.EOF) {
			return rdh.Rdh{}, ErrUnexpectedEOF
		}
		if errors.Is(err, io.ErrUnexpectedEOF) {
			return rdh.Rdh{}, fmt.Errorf("%w: truncated rdh", ErrInvalidData)
		}
		return rdh.Rdh{}, fmt.Errorf("scan: read rdh: %w", err)
	}
	s.memPos += uint64(rdh.Size)

	r, err := rdh.DecodeRDH(buf)
	if err != nil {
		return rdh.Rdh{}, fmt.Errorf("%w: %v", ErrInvalidData, err)
	}

	if !s.haveFirst {
		s.headerID = r.HeaderID
		s.systemID = r.SystemID
		s.haveFirst = true
	} else if r.HeaderID != s.headerID || r.SystemID != s.systemID {
		return rdh.Rdh{}, fmt.Errorf("%w: header_id/system_id changed mid-run", ErrInvalidData)
	}

	return r, nil
}

// LoadPayload reads exactly size bytes into a fresh buffer.
func (s *Scanner) LoadPayload(size uint16) ([]byte, error) {
	buf := make([]byte, size)
	if _, err := io.ReadFull(s.src, buf); err != nil {
		return nil, fmt.Errorf("%w: read payload: %v", ErrInvalidData, err)
	}
	s.memPos += uint64(size)
	return buf, nil
}

// LoadNext pulls the next CDP matching the active filter (if any),
// skipping non-matching CDPs by seeking over their payload rather than
// reading it.
func (s *Scanner) LoadNext() (cdp.Triple, error) {
	for {
		mem := s.memPos
		r, err := s.LoadRDH()
		if err != nil {
			return cdp.Triple{}, err
		}

		size := r.PayloadSize()
		if s.filter != nil && !s.filter(r) {
			if err := s.src.SeekRelative(int64(size)); err != nil {
				return cdp.Triple{}, fmt.Errorf("%w: seek past filtered payload: %v", ErrInvalidData, err)
			}
			s.memPos += uint64(size)
			s.filtered++
			continue
		}

		payload, err := s.LoadPayload(size)
		if err != nil {
			return cdp.Triple{}, err
		}

		return cdp.Triple{Rdh: r, Payload: payload, MemPos: mem}, nil
	}
}

// vim: foldmethod=marker
