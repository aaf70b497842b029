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

// Package pool implements a per-origin, fixed-capacity set of Connections.
// The capacity semaphore is the canonical signal of available slots; the
// Connection list is its materialization, grown lazily up to capacity and
// then reused by scanning for an idle entry.
package pool

import (
	"context"
	"crypto/tls"
	"sync"

	"golang.org/x/sync/semaphore"

	"github.com/nabbar/uvhttp/conn"
	"github.com/nabbar/uvhttp/dns"
	liberr "github.com/nabbar/uvhttp/errors"
	"github.com/nabbar/uvhttp/ipaddr"
)

// Pool owns the Connection list for one address key (scheme:host:port).
type Pool struct {
	mu sync.Mutex

	host     string
	port     int
	tlsCfg   *tls.Config
	resolver *dns.Resolver

	capacity int64
	sem      *semaphore.Weighted
	conns    []*conn.Connection
}

// New builds a Pool bound to host/port with capacity concurrent Connections.
// tlsCfg is non-nil for an https origin; resolver is shared across the
// owning Session's pools.
func New(host string, port int, tlsCfg *tls.Config, resolver *dns.Resolver, capacity int64) *Pool {
	return &Pool{
		host:     host,
		port:     port,
		tlsCfg:   tlsCfg,
		resolver: resolver,
		capacity: capacity,
		sem:      semaphore.NewWeighted(capacity),
	}
}

// Connect suspends until capacity is available and returns a Connection
// already marked in-use, belonging to this Pool.
func (p *Pool) Connect(ctx context.Context) (*conn.Connection, liberr.Error) {
	if err := p.sem.Acquire(ctx, 1); err != nil {
		return nil, ErrorResolveFailed.Error(err)
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if int64(len(p.conns)) < p.capacity {
		c, err := p.newConnLocked(ctx)
		if err != nil {
			p.sem.Release(1)
			return nil, err
		}
		c.Acquire()
		p.conns = append(p.conns, c)
		return c, nil
	}

	for _, c := range p.conns {
		if !c.InUse() {
			c.Acquire()
			return c, nil
		}
	}

	// Unreachable under the stated invariant: a permit was obtained, so at
	// least one Connection must be idle.
	p.sem.Release(1)
	return nil, ErrorResolveFailed.Error(nil)
}

func (p *Pool) newConnLocked(ctx context.Context) (*conn.Connection, liberr.Error) {
	ip := p.host
	port := p.port

	if !ipaddr.IsIP(p.host) && p.resolver != nil {
		resolvedIP, resolvedPort, _, err := p.resolver.Resolve(ctx, p.host, p.port)
		if err != nil {
			return nil, err
		}
		ip = resolvedIP
		port = resolvedPort
	}

	return conn.New(p.host, ip, port, p.tlsCfg, p.sem), nil
}

// Stats returns the cumulative connect_count across every Connection ever
// created by this Pool, a reuse-efficiency measure.
func (p *Pool) Stats() uint64 {
	p.mu.Lock()
	defer p.mu.Unlock()

	var total uint64
	for _, c := range p.conns {
		total += c.ConnectCount()
	}
	return total
}

// Len reports the number of Connections created so far (never exceeds
// capacity).
func (p *Pool) Len() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.conns)
}
