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

package ipaddr_test

import (
	"testing"

	"github.com/nabbar/uvhttp/ipaddr"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

func TestIPAddr(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "IPAddr Suite")
}

var _ = Describe("IsIP", func() {
	DescribeTable("boundary cases",
		func(s string, want bool) {
			Expect(ipaddr.IsIP(s)).To(Equal(want))
		},
		Entry("ipv4 loopback", "127.0.0.1", true),
		Entry("ipv6 loopback", "::1", true),
		Entry("hostname", "example", false),
		Entry("out-of-range octet", "256.0.0.0", false),
	)

	It("decodes bytes as ASCII before parsing", func() {
		Expect(ipaddr.IsIPBytes([]byte("127.0.0.1"))).To(BeTrue())
		Expect(ipaddr.IsIPBytes([]byte("example"))).To(BeFalse())
	})
})
