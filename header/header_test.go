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

package header_test

import (
	"testing"

	"github.com/nabbar/uvhttp/header"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

func TestHeader(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "Header Map Suite")
}

var _ = Describe("Map", func() {
	It("looks up case-insensitively", func() {
		m := header.New()
		m.Add("Content-Type", "text/plain")

		Expect(m.Get("content-type")).To(Equal("text/plain"))
		Expect(m.Get("CONTENT-TYPE")).To(Equal("text/plain"))
	})

	It("returns empty string for an unknown name instead of failing", func() {
		m := header.New()
		Expect(m.Get("X-Missing")).To(Equal(""))
	})

	It("preserves original casing on iteration", func() {
		m := header.New()
		m.Add("X-Request-Id", "abc")

		var seen string
		m.Each(func(name, value string) bool {
			seen = name
			return true
		})

		Expect(seen).To(Equal("X-Request-Id"))
	})

	It("Set overwrites prior values while Add appends", func() {
		m := header.New()
		m.Add("X-Tag", "one")
		m.Add("X-Tag", "two")
		Expect(m.Values("X-Tag")).To(Equal([]string{"one", "two"}))

		m.Set("X-Tag", "three")
		Expect(m.Values("X-Tag")).To(Equal([]string{"three"}))
	})

	It("Del removes the entry", func() {
		m := header.New()
		m.Add("X-Tag", "one")
		m.Del("X-Tag")

		Expect(m.Has("X-Tag")).To(BeFalse())
		Expect(m.Get("X-Tag")).To(Equal(""))
	})
})
