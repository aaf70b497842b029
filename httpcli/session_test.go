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

package httpcli_test

import (
	"context"
	"fmt"
	"net"
	"strings"

	"github.com/nabbar/uvhttp/dns"
	"github.com/nabbar/uvhttp/header"
	"github.com/nabbar/uvhttp/httpcli"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("Session", func() {
	It("issues a GET and reads a buffered 200 response", func() {
		srv, err := newEchoTestServer(0)
		Expect(err).ToNot(HaveOccurred())
		defer srv.Close()

		s := httpcli.New(2, dns.New())
		req, rerr := s.Get(context.Background(), "http://"+srv.Addr()+"/", nil)
		Expect(rerr).To(BeNil())

		resp := req.Response()
		Expect(resp.StatusCode).To(Equal(200))

		txt, terr := resp.Text()
		Expect(terr).To(BeNil())
		Expect(txt).To(Equal("ok"))
	})

	It("carries no body on a HEAD response", func() {
		srv, err := newEchoTestServer(0)
		Expect(err).ToNot(HaveOccurred())
		defer srv.Close()

		s := httpcli.New(1, dns.New())
		req, rerr := s.Head(context.Background(), "http://"+srv.Addr()+"/", nil)
		Expect(rerr).To(BeNil())
		Expect(req.Response().Content).To(BeEmpty())
	})

	It("reuses a single connection across repeated keep-alive requests", func() {
		srv, err := newEchoTestServer(0)
		Expect(err).ToNot(HaveOccurred())
		defer srv.Close()

		s := httpcli.New(1, dns.New())
		for i := 0; i < 5; i++ {
			_, rerr := s.Head(context.Background(), "http://"+srv.Addr()+"/", nil)
			Expect(rerr).To(BeNil())
		}

		Expect(s.Connections()).To(Equal(uint64(1)))
	})

	It("reconnects once the server signals Connection: close", func() {
		srv, err := newEchoTestServer(1)
		Expect(err).ToNot(HaveOccurred())
		defer srv.Close()

		s := httpcli.New(1, dns.New())
		for i := 0; i < 3; i++ {
			_, rerr := s.Head(context.Background(), "http://"+srv.Addr()+"/", nil)
			Expect(rerr).To(BeNil())
		}

		Expect(s.Connections()).To(Equal(uint64(3)))
	})

	It("echoes a POST body through the Host header and JSON round trip", func() {
		srv, err := newEchoTestServer(0)
		Expect(err).ToNot(HaveOccurred())
		defer srv.Close()

		s := httpcli.New(1, dns.New())
		req, rerr := s.Post(context.Background(), "http://"+srv.Addr()+"/echo", nil, []byte("hello"))
		Expect(rerr).To(BeNil())

		host, _, err := net.SplitHostPort(srv.Addr())
		Expect(err).ToNot(HaveOccurred())

		var payload struct {
			Data string `json:"data"`
			Host string `json:"host"`
		}
		Expect(req.Response().JSON(&payload)).To(BeNil())
		Expect(payload.Data).To(Equal("hello"))
		Expect(payload.Host).To(Equal(host))
	})

	It("aggregates connections() across two distinct origins", func() {
		srv1, err := newEchoTestServer(0)
		Expect(err).ToNot(HaveOccurred())
		defer srv1.Close()

		srv2, err := newEchoTestServer(0)
		Expect(err).ToNot(HaveOccurred())
		defer srv2.Close()

		s := httpcli.New(1, dns.New())
		_, err1 := s.Head(context.Background(), "http://"+srv1.Addr()+"/", nil)
		_, err2 := s.Head(context.Background(), "http://"+srv2.Addr()+"/", nil)
		Expect(err1).To(BeNil())
		Expect(err2).To(BeNil())

		Expect(s.Connections()).To(Equal(uint64(2)))
	})

	It("honors a pre-seeded resolver record for the Host header", func() {
		srv, err := newEchoTestServer(0)
		Expect(err).ToNot(HaveOccurred())
		defer srv.Close()

		host, portStr, err := net.SplitHostPort(srv.Addr())
		Expect(err).ToNot(HaveOccurred())

		var port int
		fmt.Sscanf(portStr, "%d", &port)

		r := dns.New()
		r.AddToCache("other-site", 80, host, 0, port, true)

		s := httpcli.New(1, r)
		h := header.New()
		req, rerr := s.Request(context.Background(), "POST", "http://other-site/echo", h, []byte("via-cache"), nil)
		Expect(rerr).To(BeNil())

		var payload struct {
			Data string `json:"data"`
			Host string `json:"host"`
		}
		Expect(req.Response().JSON(&payload)).To(BeNil())
		Expect(payload.Data).To(Equal("via-cache"))
		Expect(payload.Host).To(Equal("other-site"))
	})

	It("surfaces a connect failure and restores pool capacity on release", func() {
		ln, err := net.Listen("tcp", "127.0.0.1:0")
		Expect(err).ToNot(HaveOccurred())
		addr := ln.Addr().String()
		Expect(ln.Close()).To(Succeed())

		s := httpcli.New(1, dns.New())
		_, rerr := s.Get(context.Background(), "http://"+addr+"/", nil)
		Expect(rerr).ToNot(BeNil())
		// rerr.Error() only carries the code's own message; the dial
		// failure text lives on the parent chain.
		Expect(strings.Join(rerr.StringErrorSlice(), " ")).To(ContainSubstring("refused"))

		// Capacity must have been restored: a second attempt is not blocked
		// waiting on a leaked semaphore permit.
		_, rerr2 := s.Get(context.Background(), "http://"+addr+"/", nil)
		Expect(rerr2).ToNot(BeNil())
	})
})
