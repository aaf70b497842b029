/*
 * MIT License
 *
 * Copyright (c) 2020 Nicolas JUHEL
 *
 * Permission is hereby granted, free of charge, to any person obtaining a copy
 * of this software and associated documentation files (the "Software"), to deal
 * in the Software without restriction, including without limitation the rights
 * to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
 * copies of the Software, and to permit persons to whom the Software is
 * furnished to do so, subject to the following conditions:
 *
 * The above copyright notice and this permission notice shall be included in all
 * copies or substantial portions of the Software.
 *
 * THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
 * IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
 * FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
 * AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
 * LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
 * OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN THE
 * SOFTWARE.
 *
 *
 */

package httpcli

import (
	"bytes"
	"context"
	"strconv"
	"strings"

	"github.com/nabbar/uvhttp/conn"
	liberr "github.com/nabbar/uvhttp/errors"
	"github.com/nabbar/uvhttp/header"
	"github.com/nabbar/uvhttp/logger"
)

const userAgent = "uvhttp golang client"

// HTTPRequest is one request/response cycle bound to a Connection acquired
// from a Pool. Send writes the serialized request, reads the response to
// completion, and releases (or closes then releases) the Connection exactly
// once regardless of outcome.
type HTTPRequest struct {
	conn    *conn.Connection
	method  string
	host    string
	path    string
	headers *header.Map
	body    []byte

	resp *Response
}

func newHTTPRequest(c *conn.Connection, method, host, path string, headers *header.Map, body []byte) *HTTPRequest {
	if headers == nil {
		headers = header.New()
	}

	return &HTTPRequest{
		conn:    c,
		method:  strings.ToUpper(method),
		host:    host,
		path:    path,
		headers: headers,
		body:    body,
	}
}

// Response returns the completed Response, or nil before Send succeeds.
func (r *HTTPRequest) Response() *Response {
	return r.resp
}

func (r *HTTPRequest) serialize() []byte {
	hdr := header.New()
	hdr.Set("Host", r.host)
	hdr.Set("User-Agent", userAgent)

	r.headers.Each(func(name, value string) bool {
		hdr.Set(name, value)
		return true
	})

	if len(r.body) > 0 {
		hdr.Set("Content-Length", strconv.Itoa(len(r.body)))
	}

	var buf bytes.Buffer
	buf.WriteString(r.method)
	buf.WriteByte(' ')
	buf.WriteString(r.path)
	buf.WriteString(" HTTP/1.1\r\n")

	hdr.Each(func(name, value string) bool {
		buf.WriteString(name)
		buf.WriteString(": ")
		buf.WriteString(value)
		buf.WriteString("\r\n")
		return true
	})

	buf.WriteString("\r\n")
	buf.Write(r.body)
	return buf.Bytes()
}

// Send writes the request and reads the response to completion, following
// the receive-loop and keep-alive rules. The Connection is always released
// (closed first when required) before Send returns, on every path.
func (r *HTTPRequest) Send(ctx context.Context) liberr.Error {
	if _, err := r.conn.Send(ctx, r.serialize()); err != nil {
		r.conn.Close()
		r.conn.Release()
		r.logWarn("request write failed", err)
		return err
	}

	p := newParser(r.method)
	buf := make([]byte, 64*1024)

	for !(p.HeadersComplete && p.BodyDone) {
		n, err := r.conn.Read(ctx, buf)
		if err != nil {
			r.conn.Close()
			r.conn.Release()
			r.logWarn("response read failed", err)
			return err
		}

		if n == 0 {
			p.EOF()
			if p.HeadersComplete && p.BodyDone {
				break
			}
			if p.HasFramingHeader() {
				// Partial body accepted silently; status code still reported.
				break
			}
			r.conn.Close()
			r.conn.Release()
			r.logWarn("peer closed before response was complete", ErrorProtocolEOF.Error(nil))
			return ErrorProtocolEOF.Error(nil)
		}

		if perr := p.Feed(buf[:n]); perr != nil {
			r.conn.Close()
			r.conn.Release()
			r.logWarn("malformed response bytes", perr)
			return perr
		}
	}

	r.resp = newResponse(p)
	r.releaseConn()
	return nil
}

func (r *HTTPRequest) releaseConn() {
	if strings.EqualFold(r.resp.Headers.Get("Connection"), "close") {
		r.conn.Close()
		logger.GetDefault().Entry(logger.DebugLevel, "connection closed by keep-alive policy").
			FieldAdd("host", r.host).FieldAdd("method", r.method).Log()
	}
	r.conn.Release()
}

// logWarn reports a request failure at Warning level. It runs only on failure
// paths; the one log call on a successful request is releaseConn's Debug line
// when the response carries Connection: close.
func (r *HTTPRequest) logWarn(msg string, err error) {
	logger.GetDefault().Entry(logger.WarnLevel, msg).
		FieldAdd("host", r.host).
		FieldAdd("method", r.method).
		ErrorAdd(true, err).
		Log()
}
