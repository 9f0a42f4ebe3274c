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

package stats

import (
	"bytes"
	"fmt"

	"github.com/BurntSushi/toml"
	jsoniter "github.com/json-iterator/go"
)

// Report is the final, assembled summary the Aggregator produces once
// its intake channel has been closed.
type Report struct {
	RDHSeen        uint64       `json:"rdh_seen" toml:"rdh_seen"`
	RDHFiltered    uint64       `json:"rdh_filtered" toml:"rdh_filtered"`
	PayloadSize    uint64       `json:"payload_size" toml:"payload_size"`
	LinksObserved  []uint8      `json:"links_observed" toml:"links_observed"`
	FeeIDsObserved []uint16     `json:"fee_ids_observed" toml:"fee_ids_observed"`
	LayersStaves   []LayerStave `json:"layers_staves" toml:"layers_staves"`

	ErrorCount       int            `json:"error_count" toml:"error_count"`
	ErrorsByCode     map[string]int `json:"errors_by_code" toml:"errors_by_code"`
	Errors           []string       `json:"errors" toml:"errors"`
	ImplicatedStaves []string       `json:"implicated_staves" toml:"implicated_staves"`
	Fatal            string         `json:"fatal,omitempty" toml:"fatal,omitempty"`

	RunTriggerType uint32      `json:"run_trigger_type" toml:"run_trigger_type"`
	SystemID       uint8       `json:"system_id" toml:"system_id"`
	RdhVersion     uint8       `json:"rdh_version" toml:"rdh_version"`
	DataFormat     uint8       `json:"data_format" toml:"data_format"`
	Alpide         AlpideStats `json:"alpide,omitempty" toml:"alpide,omitempty"`
}

var jsonAPI = jsoniter.ConfigCompatibleWithStandardLibrary

// Format selects the serialization the stats output is written in.
type Format int

const (
	FormatJSON Format = iota
	FormatTOML
)

// Marshal serializes the report in the requested format.
func (r Report) Marshal(f Format) ([]byte, error) {
	switch f {
	case FormatJSON:
		return jsonAPI.MarshalIndent(r, "", "  ")
	case FormatTOML:
		var buf bytes.Buffer
		if err := toml.NewEncoder(&buf).Encode(r); err != nil {
			return nil, fmt.Errorf("stats: encode toml: %w", err)
		}
		return buf.Bytes(), nil
	default:
		return nil, fmt.Errorf("stats: unknown format %d", f)
	}
}

// UnmarshalReport decodes a previously-written report in format f; the
// format is not detected from the content.
func UnmarshalReport(data []byte, f Format) (Report, error) {
	var r Report
	switch f {
	case FormatJSON:
		if err := jsonAPI.Unmarshal(data, &r); err != nil {
			return Report{}, fmt.Errorf("stats: decode json: %w", err)
		}
	case FormatTOML:
		if _, err := toml.Decode(string(data), &r); err != nil {
			return Report{}, fmt.Errorf("stats: decode toml: %w", err)
		}
	default:
		return Report{}, fmt.Errorf("stats: unknown format %d", f)
	}
	return r, nil
}

// Mismatch describes one field that differed during Reconcile.
type Mismatch struct {
	Field string
	Want  string
	Got   string
}

// Reconcile compares got against a stored reference report field by
// field, as required by --input-stats-file, returning every mismatch
// found (an empty slice means the reports agree).
func Reconcile(got, want Report) []Mismatch {
	var mismatches []Mismatch
	cmp := func(field string, a, b interface{}) {
		if fmt.Sprint(a) != fmt.Sprint(b) {
			mismatches = append(mismatches, Mismatch{Field: field, Want: fmt.Sprint(b), Got: fmt.Sprint(a)})
		}
	}

	cmp("rdh_seen", got.RDHSeen, want.RDHSeen)
	cmp("rdh_filtered", got.RDHFiltered, want.RDHFiltered)
	cmp("payload_size", got.PayloadSize, want.PayloadSize)
	cmp("error_count", got.ErrorCount, want.ErrorCount)
	cmp("run_trigger_type", got.RunTriggerType, want.RunTriggerType)
	cmp("system_id", got.SystemID, want.SystemID)
	cmp("rdh_version", got.RdhVersion, want.RdhVersion)
	cmp("data_format", got.DataFormat, want.DataFormat)
	cmp("links_observed", got.LinksObserved, want.LinksObserved)
	cmp("fee_ids_observed", got.FeeIDsObserved, want.FeeIDsObserved)
	cmp("layers_staves", got.LayersStaves, want.LayersStaves)
	cmp("errors_by_code", got.ErrorsByCode, want.ErrorsByCode)
	cmp("errors", got.Errors, want.Errors)
	cmp("implicated_staves", got.ImplicatedStaves, want.ImplicatedStaves)
	cmp("fatal", got.Fatal, want.Fatal)
	cmp("alpide", got.Alpide, want.Alpide)

	return mismatches
}

// vim: foldmethod=marker
