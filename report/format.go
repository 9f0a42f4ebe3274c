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

// Package report renders a stats.Report as a colored ASCII summary
// table for terminal output, the human-facing complement to the
// machine-facing stats.Report.Marshal.
package report

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/fatih/color"

	"github.com/cern-alice/fastpasta-go/stats"
)

// maxLineWidth bounds the wrapped multi-value fields (FEE-IDs and
// layers/staves; links are not wrapped) the same way the original tool wraps its terminal
// columns.
const maxLineWidth = 60

// formatDataSize renders a byte count as a human-scaled size string.
func formatDataSize(sizeBytes uint64) string {
	switch {
	case sizeBytes <= 1024:
		return fmt.Sprintf("%d B", sizeBytes)
	case sizeBytes <= 1048576:
		return fmt.Sprintf("%.2f KiB", float64(sizeBytes)/1024)
	case sizeBytes <= 1073741824:
		return fmt.Sprintf("%.2f MiB", float64(sizeBytes)/1048576)
	default:
		return fmt.Sprintf("%.2f GiB", float64(sizeBytes)/1073741824)
	}
}

// formatLinksObserved renders a sorted, comma-joined link list.
func formatLinksObserved(links []uint8) string {
	sorted := append([]uint8(nil), links...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })
	parts := make([]string, len(sorted))
	for i, l := range sorted {
		parts[i] = strconv.Itoa(int(l))
	}
	return strings.Join(parts, ", ")
}

// formatLayersAndStaves renders every observed layer/stave pair as
// "L<layer>_<stave>", wrapping at maxLineWidth columns, and highlights
// in red any pair present in errored.
func formatLayersAndStaves(seen []stats.LayerStave, errored map[stats.LayerStave]bool) string {
	if len(seen) == 0 {
		return color.RedString("none")
	}
	sorted := append([]stats.LayerStave(nil), seen...)
	sort.Slice(sorted, func(i, j int) bool {
		if sorted[i].Layer != sorted[j].Layer {
			return sorted[i].Layer < sorted[j].Layer
		}
		return sorted[i].Stave < sorted[j].Stave
	})

	var b strings.Builder
	lineWidth := 0
	for _, ls := range sorted {
		plain := fmt.Sprintf("L%d_%d ", ls.Layer, ls.Stave)
		if lineWidth+len(plain) > maxLineWidth {
			b.WriteByte('\n')
			lineWidth = 0
		}
		lineWidth += len(plain)
		if errored[ls] {
			b.WriteString(color.RedString(plain))
		} else {
			b.WriteString(plain)
		}
	}
	return b.String()
}

// formatFeeIDs renders a sorted FEE-ID list, wrapped at maxLineWidth
// columns and capped at 5 lines (further IDs are summarized).
func formatFeeIDs(feeIDs []uint16) string {
	if len(feeIDs) == 0 {
		return color.RedString("none")
	}
	sorted := append([]uint16(nil), feeIDs...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })
	return formatNumsMaxLinesWidth(maxLineWidth, 5, sorted)
}

// formatErrorCodes renders a deterministically-ordered list of error
// codes, 5 per line.
func formatErrorCodes(codes []string) string {
	sorted := append([]string(nil), codes...)
	sort.Strings(sorted)
	var b strings.Builder
	for i, code := range sorted {
		if i > 0 && i%5 == 0 {
			b.WriteByte('\n')
		}
		fmt.Fprintf(&b, "%s ", code)
	}
	return b.String()
}

// formatNumsMaxLinesWidth wraps a sorted list of small integers at
// maxWidth columns, giving up and summarizing the remainder once
// maxLines has been emitted.
func formatNumsMaxLinesWidth(maxWidth int, maxLines int, nums []uint16) string {
	var b strings.Builder
	lineWidth := 0
	lineCount := 0
	for i, n := range nums {
		if maxLines > 0 && lineCount >= maxLines {
			fmt.Fprint(&b, color.YellowString("... %d more", len(nums)-i))
			break
		}
		plain := fmt.Sprintf("%d ", n)
		if lineWidth+len(plain) > maxWidth {
			b.WriteByte('\n')
			lineWidth = 0
			lineCount++
		}
		lineWidth += len(plain)
		b.WriteString(plain)
	}
	return b.String()
}

// vim: foldmethod=marker
