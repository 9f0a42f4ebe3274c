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

package pipeline

import (
	"context"
	"errors"
	"os/signal"
	"sync/atomic"

	"github.com/sirupsen/logrus"
	"golang.org/x/sys/unix"

	"github.com/cern-alice/fastpasta-go/cdp"
	"github.com/cern-alice/fastpasta-go/scan"
	"github.com/cern-alice/fastpasta-go/stats"
)

// Config gathers everything the Controller needs to wire a run
// together. It is deliberately a plain struct rather than functional
// options, mirroring the teacher's sdr.ReadCloser construction style.
type Config struct {
	Source        scan.Source
	Filter        scan.Filter
	MaxTolerate   int
	TriggerPeriod uint16
	Alpide        AlpideConfig
	RawWriter     chan<- cdp.Triple
	Log           *logrus.Logger
}

// Controller owns the process-wide stop flag and the goroutine tree
// for one run: Scanner -> Chunker -> Dispatcher -> Validators ->
// Aggregator. It installs a signal handler for SIGINT/SIGTERM/SIGHUP
// that cooperatively sets the stop flag, the way the teacher's pipe.go
// ties a context.Context's cancellation to CloseWithError.
type Controller struct {
	cfg  Config
	stop atomic.Bool
	agg  *stats.Aggregator
}

// New creates a Controller for cfg. cfg.Source must be set; every other
// field takes a zero-value default (no filter, no trigger-period check,
// no Alpide analysis, no raw writer).
func New(cfg Config) *Controller {
	if cfg.Log == nil {
		cfg.Log = logrus.New()
	}
	c := &Controller{cfg: cfg}
	c.agg = stats.NewAggregator(cfg.MaxTolerate, &c.stop)
	return c
}

// Run drives one full pass over cfg.Source to completion or until the
// stop flag trips, and returns the assembled Report. It blocks until
// every stage has drained.
func (c *Controller) Run(ctx context.Context) (stats.Report, error) {
	ctx, cancel := signal.NotifyContext(ctx, unix.SIGINT, unix.SIGTERM, unix.SIGHUP)
	defer cancel()

	go func() {
		<-ctx.Done()
		c.stop.Store(true)
	}()

	scanner := scan.New(c.cfg.Source, c.cfg.Filter)
	chunker := cdp.NewChunker(scanner, &c.stop)

	aggDone := make(chan struct{})
	go func() {
		c.agg.Run()
		close(aggDone)
	}()

	// Batches still queued when the stop flag trips are dropped rather
	// than dispatched.
	batches := make(chan cdp.Batch)
	go func() {
		defer close(batches)
		for b := range chunker.Out() {
			if !c.stop.Load() {
				batches <- b
			}
		}
	}()

	dispatcher := NewDispatcher(batches, c.cfg.TriggerPeriod, c.cfg.Alpide, c.agg.In(), c.cfg.RawWriter, c.cfg.Log)

	chunkDone := make(chan error, 1)
	go func() { chunkDone <- chunker.Run() }()

	dispatcher.Run()
	c.agg.In() <- stats.RDHFiltered(uint16(scanner.FilteredCount()))
	close(c.agg.In())
	<-aggDone

	err := <-chunkDone
	if isCleanEOF(err) {
		err = nil
	}

	return c.agg.Finalize(), err
}

// isCleanEOF reports whether err is the Scanner's well-understood
// end-of-stream condition rather than a genuine I/O or protocol
// failure.
func isCleanEOF(err error) bool {
	return err == nil || errors.Is(err, scan.ErrUnexpectedEOF)
}

// vim: foldmethod=marker
