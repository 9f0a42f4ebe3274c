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

package config_test

import (
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cern-alice/fastpasta-go/internal/config"
	"github.com/cern-alice/fastpasta-go/rdh"
	"github.com/cern-alice/fastpasta-go/stats"
)

func parse(t *testing.T, args ...string) *config.Config {
	t.Helper()
	cfg := config.New()
	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	config.RegisterFlags(fs, cfg)
	require.NoError(t, fs.Parse(args))
	require.NoError(t, cfg.Resolve())
	return cfg
}

func TestDefaultsHaveNoFilterAndUnlimitedErrors(t *testing.T) {
	cfg := parse(t)
	f, err := cfg.Filter()
	require.NoError(t, err)
	assert.Nil(t, f)
	assert.Equal(t, -1, cfg.MaxTolerateErrors)
}

func TestFilterLinkBuildsPredicate(t *testing.T) {
	cfg := parse(t, "--filter-link=3")
	f, err := cfg.Filter()
	require.NoError(t, err)
	require.NotNil(t, f)
	assert.True(t, f(rdh.Rdh{LinkID: 3}))
	assert.False(t, f(rdh.Rdh{LinkID: 4}))
}

func TestFilterCombinesLinkAndFee(t *testing.T) {
	cfg := parse(t, "--filter-link=3", "--filter-fee=512")
	f, err := cfg.Filter()
	require.NoError(t, err)
	assert.True(t, f(rdh.Rdh{LinkID: 3, FeeID: 512}))
	assert.False(t, f(rdh.Rdh{LinkID: 3, FeeID: 1}))
}

func TestFilterITSStaveParsesLxY(t *testing.T) {
	cfg := parse(t, "--filter-its-stave=L1_4")
	f, err := cfg.Filter()
	require.NoError(t, err)
	require.NotNil(t, f)

	var fee rdh.FeeID
	for candidate := 0; candidate < 1<<16; candidate++ {
		fee = rdh.FeeID(candidate)
		if fee.Layer() == 1 && fee.Stave() == 4 {
			break
		}
	}
	assert.True(t, f(rdh.Rdh{FeeID: fee}))
}

func TestFilterITSStaveRejectsMalformed(t *testing.T) {
	cfg := config.New()
	cfg.FilterITSStave = "not-a-stave"
	assert.Error(t, cfg.Resolve())
}

func TestStatsOutputModeAndFormatResolve(t *testing.T) {
	cfg := parse(t, "--stats-output-mode=file", "--stats-output-format=toml")
	assert.Equal(t, config.StatsOutputFile, cfg.StatsOutputMode)
	assert.Equal(t, stats.FormatTOML, cfg.StatsOutputFormat)
}

func TestStatsOutputModeRejectsUnknown(t *testing.T) {
	_, err := parseErr(t, "--stats-output-mode=bogus")
	assert.Error(t, err)
}

func parseErr(t *testing.T, args ...string) (*config.Config, error) {
	t.Helper()
	cfg := config.New()
	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	config.RegisterFlags(fs, cfg)
	require.NoError(t, fs.Parse(args))
	return cfg, cfg.Resolve()
}

func TestLoggerLevelTracksVerbosity(t *testing.T) {
	cfg := config.New()
	cfg.Verbosity = 0
	assert.Equal(t, logrus.WarnLevel, cfg.Logger().GetLevel())

	cfg.Verbosity = 4
	assert.Equal(t, logrus.TraceLevel, cfg.Logger().GetLevel())

	cfg.Verbosity = 99
	assert.Equal(t, logrus.TraceLevel, cfg.Logger().GetLevel())
}

// vim: foldmethod=marker
