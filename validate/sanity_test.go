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

package validate_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cern-alice/fastpasta-go/rdh"
	"github.com/cern-alice/fastpasta-go/validate"
)

func tdhWord(bc uint16, triggerType uint16, internal uint8) [10]byte {
	var w [10]byte
	w[0] = byte(bc)
	w[1] = byte(bc >> 8)
	w[2] = byte(triggerType)
	w[3] = byte(triggerType >> 8)
	w[8] = internal & 0x1
	w[9] = 0xE8
	return w
}

func TestTdhValidatorRejectsWrongID(t *testing.T) {
	w := tdhWord(1, 1, 0)
	w[9] = 0xE4
	err := validate.TdhValidator{}.SanityCheck(w)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "ID is not 0xE8")
}

func TestTdhValidatorRejectsBothTriggerFieldsZero(t *testing.T) {
	w := tdhWord(1, 0, 0)
	err := validate.TdhValidator{}.SanityCheck(w)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "both 0")
}

func TestTdhValidatorAcceptsInternalTriggerOnly(t *testing.T) {
	w := tdhWord(1, 0, 1)
	assert.NoError(t, validate.TdhValidator{}.SanityCheck(w))
}

func TestMatchTriggerIntervalNoWrap(t *testing.T) {
	detected, ok := validate.MatchTriggerInterval(110, 10, 100)
	assert.EqualValues(t, 100, detected)
	assert.True(t, ok)
}

func TestMatchTriggerIntervalWraps(t *testing.T) {
	// previous near the max, current wrapped around to a small value.
	detected, ok := validate.MatchTriggerInterval(5, validate.MaxBC-4, 10)
	assert.EqualValues(t, 10, detected)
	assert.True(t, ok)
}

func TestDdw0ValidatorRequiresIndexZero(t *testing.T) {
	var w [10]byte
	w[9] = 0xE4
	w[0] = 1
	err := validate.Ddw0Validator{}.SanityCheck(w)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "index is not 0")
}

func TestCheckDDW0AtRDH(t *testing.T) {
	errs := validate.CheckDDW0AtRDH(0, 0)
	require.Len(t, errs, 2)
	assert.Contains(t, errs[0].Error(), "[E110]")
	assert.Contains(t, errs[1].Error(), "[E111]")
}

func TestCheckIHWAtRDH(t *testing.T) {
	assert.NoError(t, validate.CheckIHWAtRDH(0))
	err := validate.CheckIHWAtRDH(1)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "[E12]")
}

func TestCheckIBLaneActive(t *testing.T) {
	assert.NoError(t, validate.CheckIBLaneActive(2, 1<<2))
	err := validate.CheckIBLaneActive(2, 0)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "[E72]")
}

func TestCheckOBLaneActive(t *testing.T) {
	errs := validate.CheckOBLaneActive(2, 7, 0)
	require.Len(t, errs, 2)
	assert.Contains(t, errs[0].Error(), "[E71]")
	assert.Contains(t, errs[1].Error(), "[E73]")
}

func TestRdhRunningCheckerHappyPath(t *testing.T) {
	checker := &validate.RdhRunningChecker{}

	r0 := rdh.Rdh{PacketCounter: 0}
	r0.PagesCounter = 0
	r0.StopBit = 0
	assert.Empty(t, checker.Check(r0))

	r1 := rdh.Rdh{PacketCounter: 1}
	r1.PagesCounter = 1
	r1.StopBit = 1
	assert.Empty(t, checker.Check(r1))
}

func TestRdhRunningCheckerDetectsPacketCounterSkip(t *testing.T) {
	checker := &validate.RdhRunningChecker{}

	r0 := rdh.Rdh{PacketCounter: 0}
	checker.Check(r0)

	r1 := rdh.Rdh{PacketCounter: 5}
	r1.PagesCounter = 1
	errs := checker.Check(r1)
	require.NotEmpty(t, errs)
	assert.Contains(t, errs[0].Error(), "packet_counter")
}

func TestRdhRunningCheckerFinalizeFlagsOpenFrame(t *testing.T) {
	checker := &validate.RdhRunningChecker{}

	r0 := rdh.Rdh{PacketCounter: 0}
	r0.PagesCounter = 0
	r0.StopBit = 0
	assert.Empty(t, checker.Check(r0))

	err := checker.Finalize()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "[E124]")
	assert.Contains(t, err.Error(), "missing stop")
}

func TestRdhRunningCheckerFinalizeOKWhenTerminalSeen(t *testing.T) {
	checker := &validate.RdhRunningChecker{}

	r0 := rdh.Rdh{PacketCounter: 0}
	r0.PagesCounter = 0
	r0.StopBit = 1
	checker.Check(r0)

	assert.NoError(t, checker.Finalize())
}

func TestRdhRunningCheckerFinalizeOKWhenNoFrameSeen(t *testing.T) {
	checker := &validate.RdhRunningChecker{}
	assert.NoError(t, checker.Finalize())
}

func TestCdpTrackerMemPos(t *testing.T) {
	r := rdh.Rdh{}
	r.DataFormat = 2 // no padding

	tr := validate.NewCdpTracker(r, 0x1000)
	tr.IncrWordCount()
	assert.EqualValues(t, 0x1000+64, tr.CurrentWordMemPos())

	tr.IncrWordCount()
	assert.EqualValues(t, 0x1000+64+10, tr.CurrentWordMemPos())
}

func TestCdpTrackerPaddedWords(t *testing.T) {
	r := rdh.Rdh{}
	r.DataFormat = 0 // 6 bytes padding

	tr := validate.NewCdpTracker(r, 0)
	tr.IncrWordCount()
	tr.IncrWordCount()
	assert.EqualValues(t, 16, tr.CurrentWordMemPos())
}

// vim: foldmethod=marker
