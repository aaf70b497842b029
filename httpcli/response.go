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
	"encoding/json"
	"io"
	"strings"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zlib"

	liberr "github.com/nabbar/uvhttp/errors"
	"github.com/nabbar/uvhttp/header"
)

// Response is the read-only result of a completed HTTPRequest.
type Response struct {
	StatusCode int
	Headers    *header.Map
	Content    []byte
}

func newResponse(p *parser) *Response {
	return &Response{
		StatusCode: p.StatusCode,
		Headers:    p.Headers,
		Content:    p.Body,
	}
}

// Gzipped reports whether Content-Encoding or Transfer-Encoding names gzip
// or deflate.
func (r *Response) Gzipped() bool {
	enc := strings.ToLower(r.Headers.Get("Content-Encoding") + "," + r.Headers.Get("Transfer-Encoding"))
	return strings.Contains(enc, "gzip") || strings.Contains(enc, "deflate")
}

// Text decodes Content as UTF-8, decompressing first when Gzipped reports
// true.
func (r *Response) Text() (string, liberr.Error) {
	if !r.Gzipped() {
		return string(r.Content), nil
	}

	enc := strings.ToLower(r.Headers.Get("Content-Encoding") + r.Headers.Get("Transfer-Encoding"))

	var (
		out []byte
		err error
	)

	if strings.Contains(enc, "gzip") {
		out, err = decodeGzip(r.Content)
	} else {
		out, err = decodeDeflate(r.Content)
	}

	if err != nil {
		return "", ErrorParseFailed.Error(err)
	}

	return string(out), nil
}

// JSON decodes Text into v, following the same Gzipped-aware path.
func (r *Response) JSON(v interface{}) liberr.Error {
	txt, err := r.Text()
	if err != nil {
		return err
	}

	if jerr := json.Unmarshal([]byte(txt), v); jerr != nil {
		return ErrorParseFailed.Error(jerr)
	}

	return nil
}

func decodeGzip(data []byte) ([]byte, error) {
	zr, err := gzip.NewReader(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	defer func() { _ = zr.Close() }()
	return io.ReadAll(zr)
}

func decodeDeflate(data []byte) ([]byte, error) {
	zr, err := zlib.NewReader(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	defer func() { _ = zr.Close() }()
	return io.ReadAll(zr)
}
