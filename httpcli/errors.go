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
	"fmt"

	liberr "github.com/nabbar/uvhttp/errors"
)

const (
	ErrorParamInvalid liberr.CodeError = iota + liberr.MinPkgRequest // a request parameter (method, url) is malformed
	ErrorParseFailed                                                 // the response bytes could not be parsed as HTTP/1.1
	ErrorProtocolEOF                                                 // the peer closed before a framed response was complete
)

func init() {
	if liberr.ExistInMapMessage(ErrorParamInvalid) {
		panic(fmt.Errorf("error code collision with package httpcli"))
	}
	liberr.RegisterIdFctMessage(ErrorParamInvalid, getMessage)
}

func getMessage(code liberr.CodeError) (message string) {
	switch code {
	case ErrorParamInvalid:
		return "request parameter is malformed"
	case ErrorParseFailed:
		return "malformed http response"
	case ErrorProtocolEOF:
		return "peer closed before response was complete"
	}

	return liberr.NullMessage
}
