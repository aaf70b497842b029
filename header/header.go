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

// Package header implements a case-insensitive HTTP header map that
// preserves the original wire casing on iteration.
package header

import "strings"

type entry struct {
	name   string
	values []string
}

// Map stores header entries keyed by their uppercased name, while keeping
// the original casing for iteration and serialization.
type Map struct {
	order []string // uppercased keys, insertion order
	data  map[string]*entry
}

func New() *Map {
	return &Map{data: make(map[string]*entry)}
}

// Add inserts a value under name, appending to any existing values and
// keeping the casing of the first occurrence for iteration.
func (m *Map) Add(name, value string) *Map {
	if m.data == nil {
		m.data = make(map[string]*entry)
	}

	k := strings.ToUpper(name)

	if e, ok := m.data[k]; ok {
		e.values = append(e.values, value)
		return m
	}

	m.data[k] = &entry{name: name, values: []string{value}}
	m.order = append(m.order, k)
	return m
}

// Set replaces any existing values under name with a single value.
func (m *Map) Set(name, value string) *Map {
	if m.data == nil {
		m.data = make(map[string]*entry)
	}

	k := strings.ToUpper(name)

	if e, ok := m.data[k]; ok {
		e.name = name
		e.values = []string{value}
		return m
	}

	m.data[k] = &entry{name: name, values: []string{value}}
	m.order = append(m.order, k)
	return m
}

// Get returns the first value for name, or "" if absent. Lookup never fails.
func (m *Map) Get(name string) string {
	if m == nil || m.data == nil {
		return ""
	}

	if e, ok := m.data[strings.ToUpper(name)]; ok && len(e.values) > 0 {
		return e.values[0]
	}

	return ""
}

// Values returns all values recorded for name, in insertion order.
func (m *Map) Values(name string) []string {
	if m == nil || m.data == nil {
		return nil
	}

	if e, ok := m.data[strings.ToUpper(name)]; ok {
		return e.values
	}

	return nil
}

// Has reports whether name is currently present (false after Del).
func (m *Map) Has(name string) bool {
	if m == nil || m.data == nil {
		return false
	}

	_, ok := m.data[strings.ToUpper(name)]
	return ok
}

// Del removes name entirely.
func (m *Map) Del(name string) {
	if m == nil || m.data == nil {
		return
	}

	k := strings.ToUpper(name)
	if _, ok := m.data[k]; !ok {
		return
	}

	delete(m.data, k)

	for i, o := range m.order {
		if o == k {
			m.order = append(m.order[:i], m.order[i+1:]...)
			break
		}
	}
}

// Each iterates entries in insertion order, calling fn once per recorded
// value with the originally-cased name. Stops early if fn returns false.
func (m *Map) Each(fn func(name, value string) bool) {
	if m == nil {
		return
	}

	for _, k := range m.order {
		e := m.data[k]
		for _, v := range e.values {
			if !fn(e.name, v) {
				return
			}
		}
	}
}

// Clone returns a deep, independent copy.
func (m *Map) Clone() *Map {
	c := New()

	if m == nil {
		return c
	}

	m.Each(func(name, value string) bool {
		c.Add(name, value)
		return true
	})

	return c
}
