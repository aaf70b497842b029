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

// Package conn implements a single pooled TCP/TLS connection with the
// idle/in-use x disconnected/connected state machine described by the
// owning Pool: created unconnected, dialed lazily on first read/write,
// and reconnected transparently after an EOF or close.
package conn

import (
	"context"
	"crypto/tls"
	"errors"
	"io"
	"net"
	"strconv"
	"sync"

	"golang.org/x/sync/semaphore"

	liberr "github.com/nabbar/uvhttp/errors"
)

// State is one of the four states a Connection can be in.
type State uint8

const (
	IdleDisconnected State = iota
	IdleConnected
	InUseDisconnected
	InUseConnected
)

// Dialer abstracts the network dial so tests can substitute an in-memory
// transport without touching the real network stack.
type Dialer func(ctx context.Context, network, addr string) (net.Conn, error)

// Connection owns one established TCP/TLS byte stream for a single origin.
// Invariant: a Connection is held by at most one HTTPRequest at any time,
// enforced by the owning Pool handing it out only while in-use is false.
type Connection struct {
	mu sync.Mutex

	host       string
	ip         string
	port       int
	tlsCfg     *tls.Config
	serverName string

	inUse        bool
	connected    bool
	connectCount uint64

	stream net.Conn
	dial   Dialer
	sem    *semaphore.Weighted
}

// New builds a Connection bound to the resolved ip/port, with host kept for
// the Host header and tlsCfg set when the origin is https. sem is the
// owning Pool's capacity semaphore, released exactly once by Release.
func New(host, ip string, port int, tlsCfg *tls.Config, sem *semaphore.Weighted) *Connection {
	return &Connection{
		host:   host,
		ip:     ip,
		port:   port,
		tlsCfg: tlsCfg,
		dial:   (&net.Dialer{}).DialContext,
		sem:    sem,
	}
}

// SetDialer overrides the network dialer, for tests.
func (c *Connection) SetDialer(d Dialer) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.dial = d
}

// Acquire marks the Connection in-use. The caller must already hold a
// permit on the owning Pool's capacity semaphore.
func (c *Connection) Acquire() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.inUse = true
}

// InUse reports the current in-use flag.
func (c *Connection) InUse() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.inUse
}

// State reports the current connection state.
func (c *Connection) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state()
}

func (c *Connection) state() State {
	switch {
	case c.inUse && c.connected:
		return InUseConnected
	case c.inUse && !c.connected:
		return InUseDisconnected
	case !c.inUse && c.connected:
		return IdleConnected
	default:
		return IdleDisconnected
	}
}

// ConnectCount returns the cumulative number of dials made by this
// Connection, a reuse-efficiency proxy.
func (c *Connection) ConnectCount() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.connectCount
}

func (c *Connection) connectLocked(ctx context.Context) liberr.Error {
	addr := net.JoinHostPort(c.ip, strconv.Itoa(c.port))

	raw, err := c.dial(ctx, "tcp", addr)
	if err != nil {
		return ErrorConnectFailed.Error(err)
	}

	if c.tlsCfg != nil {
		cfg := c.tlsCfg.Clone()
		if cfg.ServerName == "" {
			cfg.ServerName = c.serverName
			if cfg.ServerName == "" {
				cfg.ServerName = c.host
			}
		}

		tlsConn := tls.Client(raw, cfg)
		if err = tlsConn.HandshakeContext(ctx); err != nil {
			_ = raw.Close()
			return ErrorConnectFailed.Error(err)
		}
		c.stream = tlsConn
	} else {
		c.stream = raw
	}

	c.connected = true
	c.connectCount++
	return nil
}

// SetServerName sets the SNI/verification name used for TLS handshakes,
// when it differs from the Host header (e.g. a pre-seeded cache record).
// It applies only when the Connection's tls.Config has an empty ServerName;
// a ServerName already set on that config takes precedence.
func (c *Connection) SetServerName(name string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.serverName = name
}

// Send writes data to the stream, connecting first if necessary. Writes
// never auto-retry; a broken connection surfaces on the next Read.
func (c *Connection) Send(ctx context.Context, data []byte) (int, liberr.Error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.connected {
		if err := c.connectLocked(ctx); err != nil {
			return 0, err
		}
	}

	n, err := c.stream.Write(data)
	if err != nil {
		return n, ErrorTransportFailed.Error(err)
	}
	return n, nil
}

// Read reads up to len(buf) bytes, connecting first if necessary. A
// zero-byte read signals EOF: the stream is closed and the Connection
// transitions to in-use-disconnected.
func (c *Connection) Read(ctx context.Context, buf []byte) (int, liberr.Error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.connected {
		if err := c.connectLocked(ctx); err != nil {
			return 0, err
		}
	}

	n, err := c.stream.Read(buf)
	if n == 0 || err != nil {
		c.closeLocked()
	}
	if err != nil && n == 0 {
		// A real I/O error (not plain EOF) is a transport failure; a plain
		// EOF is reported as a zero-length read with no error so the
		// receive loop can apply framing-header EOF semantics.
		if !errors.Is(err, io.EOF) {
			return 0, ErrorTransportFailed.Error(err)
		}
	}

	return n, nil
}

func (c *Connection) closeLocked() {
	if c.stream != nil {
		_ = c.stream.Close()
		c.stream = nil
	}
	c.connected = false
}

// Close tears down the stream without changing the in-use flag.
func (c *Connection) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closeLocked()
}

// Release clears in-use and signals the owning Pool's capacity semaphore.
// Must be called exactly once per Acquire, regardless of connected state.
func (c *Connection) Release() {
	c.mu.Lock()
	c.inUse = false
	c.mu.Unlock()

	if c.sem != nil {
		c.sem.Release(1)
	}
}
