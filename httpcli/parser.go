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
	"strconv"
	"strings"

	liberr "github.com/nabbar/uvhttp/errors"
	"github.com/nabbar/uvhttp/header"
)

type parserState uint8

const (
	stateStatusLine parserState = iota
	stateHeaderLine
	stateChunkSize
	stateChunkData
	stateChunkCRLF
	stateChunkTrailer
	stateBodyFixed
	stateBodyUntilClose
	stateDone
)

// parser is a callback-free state struct driving an incremental HTTP/1.1
// response parse: each Feed call advances it as far as the buffered bytes
// allow, rather than dispatching through a trait/interface on a hot path.
type parser struct {
	state  parserState
	buf    []byte
	method string

	StatusCode      int
	Headers         *header.Map
	HeadersComplete bool
	BodyDone        bool
	Body            []byte

	hasFraming bool

	contentLength int64
	remaining     int64
	chunked       bool
}

// newParser builds a parser for a response to a request of the given
// method. HEAD responses carry no body by contract.
func newParser(method string) *parser {
	return &parser{
		method:   strings.ToUpper(method),
		Headers:  header.New(),
		BodyDone: strings.ToUpper(method) == "HEAD",
	}
}

// HasFramingHeader reports whether the response carried Content-Length,
// Transfer-Encoding, or Content-Encoding, once headers are complete.
func (p *parser) HasFramingHeader() bool {
	return p.hasFraming
}

// Feed appends newly-read bytes and advances the parser as far as possible.
func (p *parser) Feed(data []byte) liberr.Error {
	if len(data) > 0 {
		p.buf = append(p.buf, data...)
	}

	for {
		switch p.state {
		case stateStatusLine:
			line, ok := takeLine(&p.buf)
			if !ok {
				return nil
			}
			if err := p.parseStatusLine(line); err != nil {
				return err
			}
			p.state = stateHeaderLine

		case stateHeaderLine:
			line, ok := takeLine(&p.buf)
			if !ok {
				return nil
			}
			if len(line) == 0 {
				p.onHeadersComplete()
				continue
			}
			name, value, err := parseHeaderLine(line)
			if err != nil {
				return err
			}
			p.Headers.Add(name, value)

		case stateChunkSize:
			line, ok := takeLine(&p.buf)
			if !ok {
				return nil
			}
			size, err := parseChunkSize(line)
			if err != nil {
				return err
			}
			if size == 0 {
				p.state = stateChunkTrailer
				continue
			}
			p.remaining = size
			p.state = stateChunkData

		case stateChunkData:
			if p.remaining > 0 {
				n := int64(len(p.buf))
				if n > p.remaining {
					n = p.remaining
				}
				p.Body = append(p.Body, p.buf[:n]...)
				p.buf = p.buf[n:]
				p.remaining -= n
				if p.remaining > 0 {
					return nil
				}
			}
			p.state = stateChunkCRLF

		case stateChunkCRLF:
			if _, ok := takeLine(&p.buf); !ok {
				return nil
			}
			p.state = stateChunkSize

		case stateChunkTrailer:
			line, ok := takeLine(&p.buf)
			if !ok {
				return nil
			}
			if len(line) == 0 {
				p.BodyDone = true
				p.state = stateDone
			}

		case stateBodyFixed:
			n := int64(len(p.buf))
			if n > p.remaining {
				n = p.remaining
			}
			p.Body = append(p.Body, p.buf[:n]...)
			p.buf = p.buf[n:]
			p.remaining -= n
			if p.remaining <= 0 {
				p.BodyDone = true
				p.state = stateDone
			} else {
				return nil
			}

		case stateBodyUntilClose:
			p.Body = append(p.Body, p.buf...)
			p.buf = p.buf[:0]
			return nil

		case stateDone:
			return nil
		}
	}
}

// EOF tells the parser the stream closed. For the until-close framing mode
// this is normal completion; for any other incomplete mode the caller
// decides (via HasFramingHeader) whether to surface ErrorProtocolEOF.
func (p *parser) EOF() {
	if p.state == stateBodyUntilClose {
		p.BodyDone = true
		p.state = stateDone
	}
}

func (p *parser) onHeadersComplete() {
	p.HeadersComplete = true

	cl := p.Headers.Get("Content-Length")
	te := p.Headers.Get("Transfer-Encoding")
	ce := p.Headers.Get("Content-Encoding")
	p.hasFraming = cl != "" || te != "" || ce != ""

	switch {
	case p.BodyDone:
		p.state = stateDone

	case strings.Contains(strings.ToLower(te), "chunked"):
		p.chunked = true
		p.state = stateChunkSize

	case cl != "":
		n, err := strconv.ParseInt(strings.TrimSpace(cl), 10, 64)
		if err != nil || n <= 0 {
			p.BodyDone = true
			p.state = stateDone
			return
		}
		p.contentLength = n
		p.remaining = n
		p.state = stateBodyFixed

	default:
		p.state = stateBodyUntilClose
	}
}

func (p *parser) parseStatusLine(line []byte) liberr.Error {
	parts := bytes.SplitN(line, []byte(" "), 3)
	if len(parts) < 2 {
		return ErrorParseFailed.Error(nil)
	}

	code, err := strconv.Atoi(string(parts[1]))
	if err != nil {
		return ErrorParseFailed.Error(err)
	}

	p.StatusCode = code
	return nil
}

func parseHeaderLine(line []byte) (name, value string, err liberr.Error) {
	idx := bytes.IndexByte(line, ':')
	if idx < 0 {
		return "", "", ErrorParseFailed.Error(nil)
	}

	name = string(bytes.TrimSpace(line[:idx]))
	value = string(bytes.TrimSpace(line[idx+1:]))
	return name, value, nil
}

func parseChunkSize(line []byte) (int64, liberr.Error) {
	if idx := bytes.IndexByte(line, ';'); idx >= 0 {
		line = line[:idx]
	}
	n, err := strconv.ParseInt(string(bytes.TrimSpace(line)), 16, 64)
	if err != nil {
		return 0, ErrorParseFailed.Error(err)
	}
	return n, nil
}

// takeLine extracts the next CRLF-terminated line from buf, consuming it
// (including the CRLF) on success.
func takeLine(buf *[]byte) ([]byte, bool) {
	idx := bytes.Index(*buf, []byte("\r\n"))
	if idx < 0 {
		return nil, false
	}
	line := (*buf)[:idx]
	*buf = (*buf)[idx+2:]
	return line, true
}
