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

// Package diag carries diagnostics that name their own call site,
// the way a deprecation notice would, but for FSM word-ID ambiguities
// instead of API deprecations.
package diag

import (
	"runtime"

	"github.com/sirupsen/logrus"
)

// Ambiguity logs that a payload word ID was resolved by a default rule
// because it was valid for more than one word type in the current FSM
// state. name is one of the ambiguity names fixed by the protocol
// (TDH_or_DDW0, DW_or_TDT_CDW, DDW0_or_TDH_IHW); resolved is the word
// type the FSM defaulted to. It logs on every call.
func Ambiguity(log *logrus.Logger, name string, resolved string) {
	_, file, line, ok := runtime.Caller(1)
	if !ok {
		file = "<unknown>"
	}

	log.WithFields(logrus.Fields{
		"ambiguity": name,
		"resolved":  resolved,
		"site":      file,
		"line":      line,
	}).Warn("ambiguous payload word ID, defaulting")
}

// vim: foldmethod=marker
