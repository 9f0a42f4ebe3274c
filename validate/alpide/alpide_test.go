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

package alpide_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cern-alice/fastpasta-go/validate/alpide"
)

func dataWord(bc uint16, flags uint8) [10]byte {
	var w [10]byte
	w[1] = flags
	w[2] = byte(bc)
	w[3] = byte(bc >> 8)
	return w
}

func TestFrameAnalyzerHappyPathInner(t *testing.T) {
	f := alpide.NewFrameAnalyzer(alpide.BarrelInner, nil)
	f.AddWord(0, dataWord(100, 0))
	f.AddWord(1, dataWord(100, 0))
	f.AddWord(2, dataWord(100, 0))

	errs, tally := f.Finalize()
	assert.Empty(t, errs)
	assert.Zero(t, tally.BusyViolation)
}

func TestFrameAnalyzerDetectsBunchCounterMismatch(t *testing.T) {
	f := alpide.NewFrameAnalyzer(alpide.BarrelInner, nil)
	f.AddWord(0, dataWord(100, 0))
	f.AddWord(1, dataWord(100, 0))
	f.AddWord(2, dataWord(101, 0))

	errs, _ := f.Finalize()
	require.NotEmpty(t, errs)
	found := false
	for _, e := range errs {
		if e.Error() == "Bunch counter: 100 | Lanes: [0 1]" || e.Error() == "Bunch counter: 101 | Lanes: [2]" {
			found = true
		}
	}
	assert.True(t, found)
}

func TestFrameAnalyzerDetectsLaneCountMismatch(t *testing.T) {
	f := alpide.NewFrameAnalyzer(alpide.BarrelInner, nil)
	f.AddWord(0, dataWord(100, 0))
	f.AddWord(1, dataWord(100, 0))

	errs, _ := f.Finalize()
	require.NotEmpty(t, errs)
}

func TestFrameAnalyzerExcludesFatalLaneFromExpectedCount(t *testing.T) {
	fatal := map[uint8]bool{}
	f := alpide.NewFrameAnalyzer(alpide.BarrelInner, fatal)
	f.AddWord(0, dataWord(100, 0x04)) // transmission-in-fatal
	f.AddWord(1, dataWord(100, 0))
	f.AddWord(2, dataWord(100, 0))

	errs, tally := f.Finalize()
	assert.Empty(t, errs)
	assert.EqualValues(t, 1, tally.TransmissionInFatal)
	assert.True(t, fatal[0])

	// Next frame: lane 0 stays silent, no longer expected.
	f.Reset()
	f.AddWord(1, dataWord(200, 0))
	f.AddWord(2, dataWord(200, 0))
	errs, _ = f.Finalize()
	assert.Empty(t, errs)
}

func TestFrameAnalyzerTalliesAllFlags(t *testing.T) {
	f := alpide.NewFrameAnalyzer(alpide.BarrelMiddle, nil)
	f.AddWord(0, dataWord(1, 0x01|0x02|0x08|0x10|0x20))

	_, tally := f.Finalize()
	assert.EqualValues(t, 1, tally.BusyViolation)
	assert.EqualValues(t, 1, tally.DataOverrun)
	assert.EqualValues(t, 1, tally.FlushedIncomplete)
	assert.EqualValues(t, 1, tally.StrobeExtended)
	assert.EqualValues(t, 1, tally.BusyTransitions)
}

// vim: foldmethod=marker
