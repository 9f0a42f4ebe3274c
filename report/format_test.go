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

package report

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/cern-alice/fastpasta-go/stats"
)

func TestFormatDataSizeScalesUnits(t *testing.T) {
	assert.Equal(t, "512 B", formatDataSize(512))
	assert.Equal(t, "2.00 KiB", formatDataSize(2048))
	assert.Equal(t, "1.00 MiB", formatDataSize(1048576+1))
	assert.Equal(t, "1.00 GiB", formatDataSize(1073741824+1))
}

func TestFormatLinksObservedSortsAndJoins(t *testing.T) {
	assert.Equal(t, "0, 1, 5", formatLinksObserved([]uint8{5, 0, 1}))
}

func TestFormatLayersAndStavesHighlightsErrored(t *testing.T) {
	seen := []stats.LayerStave{{Layer: 0, Stave: 1}, {Layer: 0, Stave: 2}}
	errored := map[stats.LayerStave]bool{{Layer: 0, Stave: 2}: true}
	out := formatLayersAndStaves(seen, errored)
	assert.Contains(t, out, "L0_1")
	assert.Contains(t, out, "L0_2")
}

func TestFormatLayersAndStavesEmpty(t *testing.T) {
	assert.Contains(t, formatLayersAndStaves(nil, nil), "none")
}

func TestFormatFeeIDsWrapsAtFiveLines(t *testing.T) {
	ids := make([]uint16, 0, 200)
	for i := uint16(0); i < 200; i++ {
		ids = append(ids, i)
	}
	out := formatFeeIDs(ids)
	assert.Contains(t, out, "more")
	assert.LessOrEqual(t, strings.Count(out, "\n"), 5)
}

func TestFormatErrorCodesGroupsFivePerLine(t *testing.T) {
	codes := []string{"E10", "E11", "E12", "E13", "E14", "E15"}
	out := formatErrorCodes(codes)
	lines := strings.Split(strings.TrimRight(out, "\n"), "\n")
	assert.Len(t, lines, 2)
}

// vim: foldmethod=marker
