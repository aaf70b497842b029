/*
 *  MIT License
 *
 *  Copyright (c) 2020 Nicolas JUHEL
 *
 *  Permission is hereby granted, free of charge, to any person obtaining a copy
 *  of this software and associated documentation files (the "Software"), to deal
 *  in the Software without restriction, including without limitation the rights
 *  to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
 *  copies of the Software, and to permit persons to whom the Software is
 *  furnished to do so, subject to the following conditions:
 *
 *  The above copyright notice and this permission notice shall be included in all
 *  copies or substantial portions of the Software.
 *
 *  THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
 *  IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
 *  FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
 *  AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
 *  LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
 *  OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN THE
 *  SOFTWARE.
 *
 */

package errors_test

import (
	"errors"
	"fmt"
	"testing"

	liberr "github.com/nabbar/uvhttp/errors"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

func TestErrors(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "Errors Suite")
}

const (
	testCodeA liberr.CodeError = iota + liberr.MinAvailable
	testCodeB
)

func init() {
	if liberr.ExistInMapMessage(testCodeA) {
		panic(fmt.Errorf("error code collision in errors test suite"))
	}
	liberr.RegisterIdFctMessage(testCodeA, func(code liberr.CodeError) string {
		switch code {
		case testCodeA:
			return "test code A"
		case testCodeB:
			return "test code B"
		default:
			return liberr.NullMessage
		}
	})
}

var _ = Describe("CodeError registration", func() {
	It("keeps every sub-package offset distinct", func() {
		offsets := []liberr.CodeError{
			liberr.MinPkgIPAddr,
			liberr.MinPkgHeader,
			liberr.MinPkgDNS,
			liberr.MinPkgConn,
			liberr.MinPkgPool,
			liberr.MinPkgSession,
			liberr.MinPkgRequest,
			liberr.MinPkgTLS,
		}

		seen := make(map[liberr.CodeError]bool, len(offsets))
		for _, o := range offsets {
			Expect(seen[o]).To(BeFalse(), "offset %d reused across packages", o)
			seen[o] = true
		}

		Expect(liberr.MinAvailable).To(BeNumerically(">", liberr.MinPkgTLS))
	})

	It("reports UnknownMessage for a code nobody registered", func() {
		Expect(liberr.CodeError(liberr.MinAvailable + 500).Message()).To(Equal(liberr.UnknownMessage))
	})

	It("resolves the message registered at the matching offset", func() {
		Expect(testCodeA.Message()).To(Equal("test code A"))
		Expect(testCodeB.Message()).To(Equal("test code B"))
	})

	It("flags a second registration at an already-claimed offset", func() {
		Expect(liberr.ExistInMapMessage(testCodeA)).To(BeTrue())
	})
})

var _ = Describe("Error construction and hierarchy", func() {
	It("builds an error carrying its registered code and message", func() {
		err := testCodeA.Error(nil)
		Expect(err.GetCode()).To(Equal(testCodeA))
		Expect(err.IsCode(testCodeA)).To(BeTrue())
		Expect(err.IsCode(testCodeB)).To(BeFalse())
		Expect(err.StringError()).To(Equal("test code A"))
	})

	It("wraps a parent error and finds its code via HasCode", func() {
		cause := errors.New("dial tcp 127.0.0.1:1: connect: connection refused")
		err := testCodeA.Error(cause)

		Expect(err.HasCode(testCodeA)).To(BeTrue())
		Expect(err.StringErrorSlice()).To(ConsistOf("test code A", ContainSubstring("refused")))
	})

	It("captures the call site in GetTrace", func() {
		err := testCodeA.Error(nil)
		Expect(err.GetTrace()).ToNot(BeEmpty())
		Expect(err.GetTrace()).To(ContainSubstring("errors_test.go"))
	})

	It("unwraps to the standard errors.Is/As chain", func() {
		cause := errors.New("boom")
		err := testCodeA.Error(cause)

		var target liberr.Error
		Expect(errors.As(err, &target)).To(BeTrue())
		Expect(errors.Is(err, err)).To(BeTrue())
	})
})

var _ = Describe("Return", func() {
	It("serializes code, message and parent trace to JSON", func() {
		cause := errors.New("lower level failure")
		err := testCodeA.Error(cause)

		ret := liberr.NewDefaultReturn()
		err.Return(ret)

		Expect(ret.Code).To(Equal(testCodeA.String()))
		Expect(ret.Message).To(Equal("test code A"))
		Expect(string(ret.JSON())).To(ContainSubstring(`"code":"` + testCodeA.String() + `"`))
		Expect(string(ret.JSON())).To(ContainSubstring("lower level failure"))
	})
})
