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

// Command fastpasta checks and inspects raw detector readout streams:
// `check` runs the validating pipeline to completion and prints a
// summary report, `view` streams one of the textual views over the
// input without validating it.
package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"regexp"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/cern-alice/fastpasta-go/cdp"
	"github.com/cern-alice/fastpasta-go/internal/config"
	"github.com/cern-alice/fastpasta-go/pipeline"
	"github.com/cern-alice/fastpasta-go/report"
	"github.com/cern-alice/fastpasta-go/scan"
	"github.com/cern-alice/fastpasta-go/stats"
	"github.com/cern-alice/fastpasta-go/validate/alpide"
	"github.com/cern-alice/fastpasta-go/view"
	"github.com/cern-alice/fastpasta-go/writer"
)

// exitCode is set by the command's RunE and read back in main, since
// cobra has no notion of a process exit code beyond "err or no err".
var exitCode int

func main() {
	root := newRootCmd()
	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		if exitCode == 0 {
			exitCode = 1
		}
	}
	os.Exit(exitCode)
}

func newRootCmd() *cobra.Command {
	cfg := config.New()

	root := &cobra.Command{
		Use:           "fastpasta",
		Short:         "validate and inspect ALICE ITS readout streams",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	config.RegisterFlags(root.PersistentFlags(), cfg)
	root.PersistentPreRunE = func(*cobra.Command, []string) error {
		return cfg.Resolve()
	}

	root.AddCommand(newCheckCmd(cfg))
	root.AddCommand(newViewCmd(cfg))
	return root
}

// openInput opens path, or stdin if path is empty, returning a
// scan.Source and a closer that is a no-op for stdin.
func openInput(path string) (scan.Source, io.Closer, error) {
	if path == "" {
		src, err := scan.NewSourceFromStdin()
		return src, io.NopCloser(nil), err
	}
	return scan.NewSourceFromFile(path)
}

func newCheckCmd(cfg *config.Config) *cobra.Command {
	var inputPath string

	cmd := &cobra.Command{
		Use:       "check {sanity|all} [its|its-stave]",
		Short:     "run the validating pipeline and print a summary report",
		Args:      cobra.RangeArgs(1, 2),
		ValidArgs: []string{"sanity", "all"},
		RunE: func(cmd *cobra.Command, args []string) error {
			mode := args[0]
			if mode != "sanity" && mode != "all" {
				return fmt.Errorf("check: unknown check %q, want sanity or all", mode)
			}

			alpideCfg := pipeline.AlpideConfig{}
			if len(args) == 2 {
				switch args[1] {
				case "its", "its-stave":
					alpideCfg.Enabled = true
					alpideCfg.Barrel = barrelFor(cfg)
				default:
					return fmt.Errorf("check: unknown detector %q, want its or its-stave", args[1])
				}
			}

			return runCheck(cmd.Context(), cfg, inputPath, alpideCfg)
		},
	}
	cmd.Flags().StringVarP(&inputPath, "input", "r", "", "input file; reads stdin if unset")
	return cmd
}

var staveLayerRe = regexp.MustCompile(`^L(\d+)_\d+$`)

// barrelFor picks the ALPIDE barrel a --filter-its-stave layer implies.
// Layers 0-2 are the inner barrel, 3-4 the middle barrel, 5-6 the outer
// barrel; with no stave filter set the inner barrel's stricter lane
// count is the safer default.
func barrelFor(cfg *config.Config) alpide.Barrel {
	m := staveLayerRe.FindStringSubmatch(cfg.FilterITSStave)
	if m == nil {
		return alpide.BarrelInner
	}
	layer, _ := strconv.Atoi(m[1])
	switch {
	case layer <= 2:
		return alpide.BarrelInner
	case layer <= 4:
		return alpide.BarrelMiddle
	default:
		return alpide.BarrelOuter
	}
}

func runCheck(ctx context.Context, cfg *config.Config, inputPath string, alpideCfg pipeline.AlpideConfig) error {
	start := time.Now()
	src, closer, err := openInput(inputPath)
	if err != nil {
		exitCode = 1
		return err
	}
	defer closer.Close()

	filter, err := cfg.Filter()
	if err != nil {
		exitCode = 1
		return err
	}

	pcfg := pipeline.Config{
		Source:        src,
		Filter:        filter,
		MaxTolerate:   cfg.MaxTolerateErrors,
		TriggerPeriod: cfg.ITSTriggerPeriod,
		Alpide:        alpideCfg,
		Log:           cfg.Logger(),
	}

	var wg doneFunc
	if cfg.OutputPath != "" {
		out, err := os.Create(cfg.OutputPath)
		if err != nil {
			exitCode = 1
			return err
		}
		defer out.Close()

		rawCh := make(chan cdp.Triple, writer.ChannelDepth)
		pcfg.RawWriter = rawCh
		w := writer.New(out, rawCh)
		writeErr := make(chan error, 1)
		go func() { writeErr <- w.Run() }()
		wg = func() error { return <-writeErr }
	}

	ctrl := pipeline.New(pcfg)
	r, runErr := ctrl.Run(ctx)
	if wg != nil {
		if werr := wg(); werr != nil && runErr == nil {
			runErr = werr
		}
	}

	if cfg.InputStatsFile != "" {
		if mismatches, rerr := reconcileAgainst(cfg.InputStatsFile, cfg.StatsOutputFormat, r); rerr != nil {
			runErr = rerr
		} else if len(mismatches) > 0 {
			for _, m := range mismatches {
				fmt.Fprintf(os.Stderr, "stats mismatch: %s: got %s, want %s\n", m.Field, m.Got, m.Want)
			}
			exitCode = 1
		}
	}

	if !cfg.MuteErrors {
		for _, e := range r.Errors {
			fmt.Fprintln(os.Stderr, e)
		}
	}

	fmt.Println(report.Render(r, time.Since(start)))

	if err := writeStatsOutput(cfg, r); err != nil {
		runErr = err
	}

	if runErr != nil || r.Fatal != "" {
		exitCode = 1
		if runErr != nil {
			return runErr
		}
		return fmt.Errorf("check: fatal: %s", r.Fatal)
	}
	if r.ErrorCount > 0 {
		exitCode = cfg.AnyErrorsExitCode
	}
	return nil
}

type doneFunc func() error

func reconcileAgainst(path string, format stats.Format, got stats.Report) ([]stats.Mismatch, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	want, err := stats.UnmarshalReport(data, format)
	if err != nil {
		return nil, err
	}
	return stats.Reconcile(got, want), nil
}

func writeStatsOutput(cfg *config.Config, r stats.Report) error {
	switch cfg.StatsOutputMode {
	case config.StatsOutputNone:
		return nil
	case config.StatsOutputStdout:
		data, err := r.Marshal(cfg.StatsOutputFormat)
		if err != nil {
			return err
		}
		_, err = os.Stdout.Write(data)
		return err
	case config.StatsOutputFile:
		data, err := r.Marshal(cfg.StatsOutputFormat)
		if err != nil {
			return err
		}
		return os.WriteFile(cfg.StatsOutputPath, data, 0o644)
	default:
		return fmt.Errorf("config: unknown stats-output-mode %q", cfg.StatsOutputMode)
	}
}

func newViewCmd(cfg *config.Config) *cobra.Command {
	var inputPath string

	cmd := &cobra.Command{
		Use:       "view {rdh|its-readout-frames|its-readout-frames-data}",
		Short:     "stream a textual view of the input without validating it",
		Args:      cobra.ExactArgs(1),
		ValidArgs: []string{"rdh", "its-readout-frames", "its-readout-frames-data"},
		RunE: func(cmd *cobra.Command, args []string) error {
			src, closer, err := openInput(inputPath)
			if err != nil {
				exitCode = 1
				return err
			}
			defer closer.Close()

			filter, err := cfg.Filter()
			if err != nil {
				exitCode = 1
				return err
			}
			scanner := scan.New(src, filter)

			var renderErr error
			switch args[0] {
			case "rdh":
				renderErr = view.RDH(os.Stdout, scanner)
			case "its-readout-frames":
				renderErr = view.ITSReadoutFrames(os.Stdout, scanner)
			case "its-readout-frames-data":
				renderErr = view.ITSReadoutFramesData(os.Stdout, scanner)
			default:
				return fmt.Errorf("view: unknown view %q", args[0])
			}
			if renderErr != nil {
				exitCode = 1
			}
			return renderErr
		},
	}
	cmd.Flags().StringVarP(&inputPath, "input", "r", "", "input file; reads stdin if unset")
	return cmd
}

// vim: foldmethod=marker
