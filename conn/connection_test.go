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

package conn_test

import (
	"context"
	"net"
	"testing"

	"github.com/nabbar/uvhttp/conn"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"golang.org/x/sync/semaphore"
)

func TestConn(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "Connection Suite")
}

// echoServer accepts connections one at a time and echoes bytes back,
// closing a connection once closeAfter writes have been made if non-zero.
func echoServer(t GinkgoTInterface, closeAfter int) (addr string, stop func()) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	Expect(err).ToNot(HaveOccurred())

	go func() {
		writes := 0
		for {
			c, err := ln.Accept()
			if err != nil {
				return
			}

			buf := make([]byte, 1024)
			for {
				n, err := c.Read(buf)
				if n > 0 {
					_, _ = c.Write(buf[:n])
					writes++
				}
				if err != nil {
					break
				}
				if closeAfter > 0 && writes >= closeAfter {
					break
				}
			}
			_ = c.Close()
		}
	}()

	return ln.Addr().String(), func() { _ = ln.Close() }
}

var _ = Describe("Connection", func() {
	It("connects lazily on first send and tracks connect_count", func() {
		addr, stop := echoServer(GinkgoT(), 0)
		defer stop()

		host, port, err := net.SplitHostPort(addr)
		Expect(err).ToNot(HaveOccurred())

		sem := semaphore.NewWeighted(1)
		Expect(sem.Acquire(context.Background(), 1)).To(Succeed())

		c := conn.New(host, host, atoiPort(port), nil, sem)
		Expect(c.ConnectCount()).To(Equal(uint64(0)))

		c.Acquire()
		n, serr := c.Send(context.Background(), []byte("hello"))
		Expect(serr).To(BeNil())
		Expect(n).To(Equal(5))
		Expect(c.ConnectCount()).To(Equal(uint64(1)))
		Expect(c.State()).To(Equal(conn.InUseConnected))

		buf := make([]byte, 5)
		_, rerr := c.Read(context.Background(), buf)
		Expect(rerr).To(BeNil())
		Expect(buf).To(Equal([]byte("hello")))

		c.Release()
		Expect(c.InUse()).To(BeFalse())
	})

	It("transitions to in-use-disconnected on a zero-byte read", func() {
		addr, stop := echoServer(GinkgoT(), 1)
		defer stop()

		host, port, err := net.SplitHostPort(addr)
		Expect(err).ToNot(HaveOccurred())

		sem := semaphore.NewWeighted(1)
		Expect(sem.Acquire(context.Background(), 1)).To(Succeed())

		c := conn.New(host, host, atoiPort(port), nil, sem)
		c.Acquire()

		_, _ = c.Send(context.Background(), []byte("x"))
		buf := make([]byte, 16)
		_, _ = c.Read(context.Background(), buf)

		// Server closes after one write; the next read observes EOF.
		n, rerr := c.Read(context.Background(), buf)
		Expect(rerr).To(BeNil())
		Expect(n).To(Equal(0))
		Expect(c.State()).To(Equal(conn.InUseDisconnected))

		c.Release()
	})

	It("releases the semaphore exactly once per acquire", func() {
		sem := semaphore.NewWeighted(1)
		Expect(sem.Acquire(context.Background(), 1)).To(Succeed())

		c := conn.New("127.0.0.1", "127.0.0.1", 1, nil, sem)
		c.Acquire()
		c.Release()

		Expect(sem.TryAcquire(1)).To(BeTrue())
	})
})

func atoiPort(s string) int {
	n := 0
	for _, r := range s {
		n = n*10 + int(r-'0')
	}
	return n
}
