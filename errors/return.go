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

package errors

import "encoding/json"

// Return is a small serializable projection of an Error, useful for callers
// that want to surface an error code/message pair without depending on the
// Error interface itself (e.g. across an RPC boundary).
type Return interface {
	SetError(code int, msg string, file string, line int)
	AddParent(code int, msg string, file string, line int)
	JSON() []byte
}

// DefaultReturn is the reference implementation of Return.
type DefaultReturn struct {
	Code    string
	Message string
	err     []error
}

func (d *DefaultReturn) SetError(code int, msg string, file string, line int) {
	d.Code = ParseCodeError(int64(code)).String()
	d.Message = msg

	if file != "" {
		d.err = append(d.err, &ers{c: uint16(code), e: msg, t: getFrameAt(file, line)})
	}
}

func (d *DefaultReturn) AddParent(code int, msg string, file string, line int) {
	d.err = append(d.err, &ers{c: uint16(code), e: msg, t: getFrameAt(file, line)})
}

func (d *DefaultReturn) JSON() []byte {
	var msg = make([]string, 0, len(d.err))

	for _, e := range d.err {
		msg = append(msg, e.Error())
	}

	p, _ := json.Marshal(struct {
		Code    string   `json:"code"`
		Message string   `json:"message"`
		Parent  []string `json:"parent,omitempty"`
	}{
		Code:    d.Code,
		Message: d.Message,
		Parent:  msg,
	})

	return p
}
