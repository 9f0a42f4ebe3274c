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
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/cern-alice/fastpasta-go/cdp"
	"github.com/cern-alice/fastpasta-go/stats"
)

// Dispatcher fans each Batch it receives out to one Validator per
// observed link_id, creating the Validator task lazily the first time
// a triple for that link is seen — the same lazy-start-on-first-use
// idiom the teacher's standby reader uses to defer starting an RX
// stream until the first Read call.
type Dispatcher struct {
	batches <-chan cdp.Batch

	period    uint16
	alpideCfg AlpideConfig
	statsOut  chan<- stats.Event
	writer    chan<- cdp.Triple
	log       *logrus.Logger

	validators map[uint8]*Validator
	wg         sync.WaitGroup
}

// NewDispatcher creates a Dispatcher reading batches from in. period
// configures the periodic-TDH check every Validator it spawns runs;
// alpideCfg configures the optional Readout-Frame Analyzer identically
// for every link (a run-wide setting, not a per-link one). writer, if
// non-nil, receives every kept triple (the Scanner already applied the
// CLI filter upstream, so everything reaching the Dispatcher is kept).
func NewDispatcher(in <-chan cdp.Batch, period uint16, alpideCfg AlpideConfig, statsOut chan<- stats.Event, writer chan<- cdp.Triple, log *logrus.Logger) *Dispatcher {
	if log == nil {
		log = logrus.New()
	}
	return &Dispatcher{
		batches:    in,
		period:     period,
		alpideCfg:  alpideCfg,
		statsOut:   statsOut,
		writer:     writer,
		log:        log,
		validators: map[uint8]*Validator{},
	}
}

// Run drains batches until the input channel closes, routing each
// triple to its link's Validator (and to the raw writer, if one is
// configured), then waits for every Validator to finish draining its
// own channel before returning. The caller is responsible for closing
// statsOut once Run returns, signalling the Stats Aggregator to
// finalize.
func (d *Dispatcher) Run() {
	for batch := range d.batches {
		for _, t := range batch.Triples {
			if d.writer != nil {
				d.writer <- t
			}
			v := d.validatorFor(t.Rdh.LinkID)
			v.In() <- t
		}
	}
	for _, v := range d.validators {
		close(v.in)
	}
	d.wg.Wait()
	if d.writer != nil {
		close(d.writer)
	}
}

func (d *Dispatcher) validatorFor(link uint8) *Validator {
	v, ok := d.validators[link]
	if ok {
		return v
	}
	d.statsOut <- stats.LinksObserved(link)
	v = NewValidator(link, d.period, d.alpideCfg, d.statsOut, d.log)
	d.validators[link] = v
	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		v.Run()
	}()
	return v
}

// vim: foldmethod=marker
