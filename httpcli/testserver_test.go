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
	"bufio"
	"fmt"
	"net"
	"strings"
)

// echoTestServer is a minimal HTTP/1.1 server used only to exercise the
// client's send/receive/keep-alive cycle; it understands just enough of the
// wire format to read a request and is not a general-purpose server.
type echoTestServer struct {
	ln net.Listener

	// closeAfter, when non-zero, closes the TCP connection after handling
	// this many requests on it (simulates a low keep-alive server).
	closeAfter int
}

func newEchoTestServer(closeAfter int) (*echoTestServer, error) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		return nil, err
	}

	s := &echoTestServer{ln: ln, closeAfter: closeAfter}
	go s.serve()
	return s, nil
}

func (s *echoTestServer) Addr() string {
	return s.ln.Addr().String()
}

func (s *echoTestServer) Close() {
	_ = s.ln.Close()
}

func (s *echoTestServer) serve() {
	for {
		c, err := s.ln.Accept()
		if err != nil {
			return
		}
		go s.handleConn(c)
	}
}

func (s *echoTestServer) handleConn(c net.Conn) {
	defer func() { _ = c.Close() }()

	r := bufio.NewReader(c)
	handled := 0

	for {
		method, path, host, contentLength, err := readRequestLine(r)
		if err != nil {
			return
		}

		var body []byte
		if contentLength > 0 {
			body = make([]byte, contentLength)
			if _, err := readFull(r, body); err != nil {
				return
			}
		}

		handled++

		closeNow := s.closeAfter > 0 && handled >= s.closeAfter

		var resp string
		switch {
		case path == "/echo":
			payload := fmt.Sprintf("{\"data\":\"%s\",\"host\":\"%s\"}", string(body), host)
			resp = fmt.Sprintf("HTTP/1.1 200 OK\r\nContent-Type: application/json\r\nContent-Length: %d\r\n\r\n%s", len(payload), payload)
		case method == "HEAD":
			resp = "HTTP/1.1 200 OK\r\nContent-Length: 0\r\n\r\n"
		default:
			resp = "HTTP/1.1 200 OK\r\nContent-Length: 2\r\n\r\nok"
		}

		if closeNow {
			resp = strings.Replace(resp, "HTTP/1.1 200 OK\r\n", "HTTP/1.1 200 OK\r\nConnection: close\r\n", 1)
		}

		if _, err := c.Write([]byte(resp)); err != nil {
			return
		}

		if closeNow {
			return
		}
	}
}

func readRequestLine(r *bufio.Reader) (method, path, host string, contentLength int, err error) {
	line, err := r.ReadString('\n')
	if err != nil {
		return "", "", "", 0, err
	}

	fields := strings.Fields(line)
	if len(fields) < 2 {
		return "", "", "", 0, fmt.Errorf("malformed request line %q", line)
	}
	method, path = fields[0], fields[1]

	for {
		hline, err := r.ReadString('\n')
		if err != nil {
			return "", "", "", 0, err
		}
		hline = strings.TrimRight(hline, "\r\n")
		if hline == "" {
			break
		}
		if idx := strings.IndexByte(hline, ':'); idx >= 0 {
			name := strings.TrimSpace(hline[:idx])
			value := strings.TrimSpace(hline[idx+1:])
			if strings.EqualFold(name, "Content-Length") {
				fmt.Sscanf(value, "%d", &contentLength)
			}
			if strings.EqualFold(name, "Host") {
				host = value
			}
		}
	}

	return method, path, host, contentLength, nil
}

func readFull(r *bufio.Reader, buf []byte) (int, error) {
	total := 0
	for total < len(buf) {
		n, err := r.Read(buf[total:])
		total += n
		if err != nil {
			return total, err
		}
	}
	return total, nil
}
