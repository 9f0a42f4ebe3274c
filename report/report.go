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
	"bytes"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/olekukonko/tablewriter"

	"github.com/cern-alice/fastpasta-go/rdh"
	"github.com/cern-alice/fastpasta-go/stats"
)

// Render assembles r as a multi-section ASCII table: a global-stats
// table followed by wrapped sub-sections for links, FEE-IDs,
// layers/staves, and (if any) errors. elapsed is the wall-clock
// processing time, shown in the footer the way the original tool
// stamps its super-table footer.
func Render(r stats.Report, elapsed time.Duration) string {
	var out bytes.Buffer

	fmt.Fprintln(&out, color.New(color.Bold, color.FgGreen).Sprint(strings.ToUpper("Report")))

	renderGlobalStats(&out, r)
	renderLinksAndStaves(&out, r)
	if r.ErrorCount > 0 {
		renderErrors(&out, r)
	}

	fmt.Fprintln(&out, color.New(color.Faint).Sprintf("Processed in %s", elapsed))
	return out.String()
}

func renderGlobalStats(out *bytes.Buffer, r stats.Report) {
	t := tablewriter.NewWriter(out)
	t.SetHeader([]string{"Global Stats", "Value"})
	t.SetAutoWrapText(false)
	t.SetAlignment(tablewriter.ALIGN_LEFT)

	rows := [][]string{
		{"RDHs seen", strconv.FormatUint(r.RDHSeen, 10)},
		{"RDHs filtered", strconv.FormatUint(r.RDHFiltered, 10)},
		{"Payload size", formatDataSize(r.PayloadSize)},
		{"System ID", strconv.Itoa(int(r.SystemID))},
		{"RDH version", strconv.Itoa(int(r.RdhVersion))},
		{"Data format", strconv.Itoa(int(r.DataFormat))},
		{"Run trigger type", fmt.Sprintf("0x%x", r.RunTriggerType)},
		{"Errors", colorCount(r.ErrorCount)},
	}
	if r.Fatal != "" {
		rows = append(rows, []string{"Fatal", color.RedString(r.Fatal)})
	}
	for _, row := range rows {
		t.Append(row)
	}
	t.Render()
}

func renderLinksAndStaves(out *bytes.Buffer, r stats.Report) {
	errored := erroredLayerStaves(r)

	t := tablewriter.NewWriter(out)
	t.SetHeader([]string{"Field", "Observed"})
	t.SetAutoWrapText(false)
	t.SetAlignment(tablewriter.ALIGN_LEFT)
	t.Append([]string{"Links", formatLinksObserved(r.LinksObserved)})
	t.Append([]string{"FEE-IDs", formatFeeIDs(r.FeeIDsObserved)})
	t.Append([]string{"Layers/Staves", formatLayersAndStaves(r.LayersStaves, errored)})
	t.Render()
}

func renderErrors(out *bytes.Buffer, r stats.Report) {
	codes := make([]string, 0, len(r.ErrorsByCode))
	for code := range r.ErrorsByCode {
		codes = append(codes, code)
	}

	t := tablewriter.NewWriter(out)
	t.SetHeader([]string{"Errors", ""})
	t.SetAutoWrapText(false)
	t.SetAlignment(tablewriter.ALIGN_LEFT)
	t.Append([]string{"Error codes", formatErrorCodes(codes)})
	t.Append([]string{"Implicated staves", strings.Join(r.ImplicatedStaves, ", ")})
	t.Render()
}

func colorCount(n int) string {
	s := strconv.Itoa(n)
	if n == 0 {
		return color.GreenString(s)
	}
	return color.RedString(s)
}

// erroredLayerStaves maps r.ImplicatedStaves (decimal FEE-ID strings,
// as extracted from error messages by the Aggregator) back to the
// layer/stave pair each FEE-ID decodes to.
func erroredLayerStaves(r stats.Report) map[stats.LayerStave]bool {
	out := map[stats.LayerStave]bool{}
	for _, s := range r.ImplicatedStaves {
		n, err := strconv.Atoi(s)
		if err != nil {
			continue
		}
		fee := rdh.FeeID(n)
		out[stats.LayerStave{Layer: fee.Layer(), Stave: fee.Stave()}] = true
	}
	return out
}

// vim: foldmethod=marker
