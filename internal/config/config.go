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

// Package config binds the tool's global flags to a Config struct and
// derives the runtime collaborators (a scan.Filter, a logrus.Logger)
// from it, the way the teacher keeps flag parsing and derived state
// together rather than scattering pflag.*Var calls through main.
package config

import (
	"fmt"
	"regexp"
	"strconv"

	"github.com/sirupsen/logrus"
	"github.com/spf13/pflag"

	"github.com/cern-alice/fastpasta-go/rdh"
	"github.com/cern-alice/fastpasta-go/scan"
	"github.com/cern-alice/fastpasta-go/stats"
)

// StatsOutputMode selects where the end-of-run stats report is
// written.
type StatsOutputMode string

const (
	StatsOutputNone   StatsOutputMode = "none"
	StatsOutputFile   StatsOutputMode = "file"
	StatsOutputStdout StatsOutputMode = "stdout"
)

// Config is every global flag's bound value, plus the derived fields
// computed once at parse time.
type Config struct {
	FilterLink     int32 // -1 means unset
	FilterFee      int32
	FilterITSStave string

	Verbosity         int
	MaxTolerateErrors int
	AnyErrorsExitCode int
	MuteErrors        bool
	ITSTriggerPeriod  uint16

	OutputPath string

	StatsOutputMode   StatsOutputMode
	StatsOutputFormat stats.Format
	StatsOutputPath   string
	InputStatsFile    string

	// statsModeFlag/statsFormatFlag back the string-typed
	// stats-output-mode/stats-output-format flags until Resolve
	// translates them into their enum fields above.
	statsModeFlag   *string
	statsFormatFlag *string
}

// New returns a Config with every flag at its documented default.
func New() *Config {
	return &Config{
		FilterLink:        -1,
		FilterFee:         -1,
		MaxTolerateErrors: -1,
		AnyErrorsExitCode: 0,
		ITSTriggerPeriod:  0,
		StatsOutputMode:   StatsOutputNone,
		StatsOutputFormat: stats.FormatJSON,
	}
}

// RegisterFlags binds fs to cfg's fields, matching the long-form names
// and shorthands the tool documents.
func RegisterFlags(fs *pflag.FlagSet, cfg *Config) {
	fs.Int32Var(&cfg.FilterLink, "filter-link", cfg.FilterLink, "keep only CDPs whose link_id matches N")
	fs.Int32Var(&cfg.FilterFee, "filter-fee", cfg.FilterFee, "keep only CDPs whose FEE-ID matches N")
	fs.StringVar(&cfg.FilterITSStave, "filter-its-stave", cfg.FilterITSStave, "keep only CDPs from stave Lx_y")

	fs.IntVarP(&cfg.Verbosity, "verbosity", "v", cfg.Verbosity, "log verbosity, 0..4")
	fs.IntVar(&cfg.MaxTolerateErrors, "max-tolerate-errors", cfg.MaxTolerateErrors, "stop after this many errors; negative means unlimited")
	fs.IntVar(&cfg.AnyErrorsExitCode, "any-errors-exit-code", cfg.AnyErrorsExitCode, "process exit code if any non-fatal errors were reported")
	fs.BoolVar(&cfg.MuteErrors, "mute-errors", cfg.MuteErrors, "suppress per-error log lines, still counted in the report")
	fs.Uint16Var(&cfg.ITSTriggerPeriod, "its-trigger-period", cfg.ITSTriggerPeriod, "enable the periodic-TDH bunch-crossing check with this period")

	fs.StringVarP(&cfg.OutputPath, "output", "o", cfg.OutputPath, "raw output file for kept CDPs")

	statsMode := string(cfg.StatsOutputMode)
	fs.StringVar(&statsMode, "stats-output-mode", statsMode, "stats output mode: none|file|stdout")
	statsFormat := "json"
	fs.StringVar(&statsFormat, "stats-output-format", statsFormat, "stats output format: json|toml")
	fs.StringVar(&cfg.StatsOutputPath, "stats-output-path", cfg.StatsOutputPath, "path for stats-output-mode=file")
	fs.StringVar(&cfg.InputStatsFile, "input-stats-file", cfg.InputStatsFile, "reconcile end-of-run stats against this stored reference")

	cfg.statsModeFlag = &statsMode
	cfg.statsFormatFlag = &statsFormat
}

// Resolve must be called once after fs.Parse has run. It maps the
// string-typed stats-output-mode/format flags onto their enum fields
// and validates --filter-its-stave's "Lx_y" syntax.
func (cfg *Config) Resolve() error {
	if cfg.statsModeFlag != nil {
		switch StatsOutputMode(*cfg.statsModeFlag) {
		case StatsOutputNone, StatsOutputFile, StatsOutputStdout:
			cfg.StatsOutputMode = StatsOutputMode(*cfg.statsModeFlag)
		default:
			return fmt.Errorf("config: unknown stats-output-mode %q", *cfg.statsModeFlag)
		}
	}
	if cfg.statsFormatFlag != nil {
		switch *cfg.statsFormatFlag {
		case "json":
			cfg.StatsOutputFormat = stats.FormatJSON
		case "toml":
			cfg.StatsOutputFormat = stats.FormatTOML
		default:
			return fmt.Errorf("config: unknown stats-output-format %q", *cfg.statsFormatFlag)
		}
	}
	if cfg.FilterITSStave != "" {
		if _, _, err := parseStave(cfg.FilterITSStave); err != nil {
			return err
		}
	}
	return nil
}

var staveRe = regexp.MustCompile(`^L(\d+)_(\d+)$`)

func parseStave(s string) (layer, stave uint8, err error) {
	m := staveRe.FindStringSubmatch(s)
	if m == nil {
		return 0, 0, fmt.Errorf("config: --filter-its-stave must look like Lx_y, got %q", s)
	}
	l, _ := strconv.Atoi(m[1])
	st, _ := strconv.Atoi(m[2])
	return uint8(l), uint8(st), nil
}

// Filter builds the scan.Filter implied by FilterLink/FilterFee/
// FilterITSStave, or nil if no filter flag was set.
func (cfg *Config) Filter() (scan.Filter, error) {
	var preds []scan.Filter

	if cfg.FilterLink >= 0 {
		want := uint8(cfg.FilterLink)
		preds = append(preds, func(r rdh.Rdh) bool { return r.LinkID == want })
	}
	if cfg.FilterFee >= 0 {
		want := rdh.FeeID(cfg.FilterFee)
		preds = append(preds, func(r rdh.Rdh) bool { return r.FeeID == want })
	}
	if cfg.FilterITSStave != "" {
		layer, stave, err := parseStave(cfg.FilterITSStave)
		if err != nil {
			return nil, err
		}
		preds = append(preds, func(r rdh.Rdh) bool {
			return r.FeeID.Layer() == layer && r.FeeID.Stave() == stave
		})
	}

	if len(preds) == 0 {
		return nil, nil
	}
	return func(r rdh.Rdh) bool {
		for _, p := range preds {
			if !p(r) {
				return false
			}
		}
		return true
	}, nil
}

// Logger builds a logrus.Logger at the level Verbosity implies: 0 is
// Warn (the tool's quietest useful level), 4 and above is Trace.
func (cfg *Config) Logger() *logrus.Logger {
	log := logrus.New()
	levels := []logrus.Level{
		logrus.WarnLevel,
		logrus.InfoLevel,
		logrus.DebugLevel,
		logrus.TraceLevel,
	}
	idx := cfg.Verbosity
	if idx < 0 {
		idx = 0
	}
	if idx >= len(levels) {
		idx = len(levels) - 1
	}
	log.SetLevel(levels[idx])
	return log
}

// vim: foldmethod=marker
