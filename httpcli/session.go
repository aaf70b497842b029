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

// Package httpcli implements the multi-origin HTTP/1.1 client: a Session
// routes requests to per-origin Pools, each handing out pooled Connections
// to HTTPRequests that serialize, send, and incrementally parse the
// response.
package httpcli

import (
	"context"
	"crypto/tls"
	"net/url"
	"strconv"
	"strings"
	"sync"

	"github.com/nabbar/uvhttp/dns"
	liberr "github.com/nabbar/uvhttp/errors"
	"github.com/nabbar/uvhttp/header"
	"github.com/nabbar/uvhttp/logger"
	"github.com/nabbar/uvhttp/pool"
	"github.com/nabbar/uvhttp/tlsconfig"
)

// Session owns the address-key-to-Pool mapping, a shared Resolver, and the
// default TLS context factory. The mapping is monotonic: Pools are created
// on first use and never evicted for the Session's lifetime.
type Session struct {
	mu sync.Mutex

	capacity   int64
	resolver   *dns.Resolver
	defaultTLS *tlsconfig.Config
	pools      map[string]*pool.Pool
}

// New builds a Session with perPoolCapacity concurrent Connections per
// origin. A nil resolver builds a default one from the system configuration.
func New(perPoolCapacity int64, resolver *dns.Resolver) *Session {
	if resolver == nil {
		resolver = dns.New()
	}

	return &Session{
		capacity:   perPoolCapacity,
		resolver:   resolver,
		defaultTLS: tlsconfig.New(),
		pools:      make(map[string]*pool.Pool),
	}
}

func (s *Session) poolFor(scheme, host string, port int, tlsCfg *tls.Config) *pool.Pool {
	addr := scheme + ":" + host + ":" + strconv.Itoa(port)

	s.mu.Lock()
	defer s.mu.Unlock()

	if p, ok := s.pools[addr]; ok {
		return p
	}

	p := pool.New(host, port, tlsCfg, s.resolver, s.capacity)
	s.pools[addr] = p
	return p
}

// parsedURL holds the pieces of a request URL relevant to addressing.
type parsedURL struct {
	scheme string
	host   string
	port   int
	useTLS bool
	path   string
}

func parseRequestURL(rawURL string) (parsedURL, liberr.Error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return parsedURL{}, ErrorParamInvalid.Error(err)
	}

	scheme := strings.ToLower(u.Scheme)
	useTLS := scheme == "https"

	port := 80
	if useTLS {
		port = 443
	}
	if p := u.Port(); p != "" {
		n, perr := strconv.Atoi(p)
		if perr != nil {
			return parsedURL{}, ErrorParamInvalid.Error(perr)
		}
		port = n
	}

	path := u.Path
	if path == "" {
		path = "/"
	}
	if u.RawQuery != "" {
		path += "?" + u.RawQuery
	}

	return parsedURL{
		scheme: scheme,
		host:   u.Hostname(),
		port:   port,
		useTLS: useTLS,
		path:   path,
	}, nil
}

// Request parses url, selects or creates the Pool for its address key,
// acquires a Connection, sends method/headers/body, and returns the
// completed HTTPRequest (its Response is available via Response()). A nil
// tlsCfg uses the Session's default TLS context for https origins; it is
// ignored entirely for http origins, which are never upgraded.
func (s *Session) Request(ctx context.Context, method, rawURL string, headers *header.Map, body []byte, tlsCfg *tls.Config) (*HTTPRequest, liberr.Error) {
	pu, err := parseRequestURL(rawURL)
	if err != nil {
		return nil, err
	}

	var cfg *tls.Config
	if pu.useTLS {
		cfg = tlsCfg
		if cfg == nil {
			tlsCfgBuilt, tlsErr := s.defaultTLS.TLS(pu.host)
			if tlsErr != nil {
				return nil, ErrorParamInvalid.Error(tlsErr)
			}
			cfg = tlsCfgBuilt
		}
	}

	p := s.poolFor(pu.scheme, pu.host, pu.port, cfg)

	c, cerr := p.Connect(ctx)
	if cerr != nil {
		logger.GetDefault().Entry(logger.WarnLevel, "connection pool acquisition failed").
			FieldAdd("host", pu.host).FieldAdd("port", pu.port).ErrorAdd(true, cerr).Log()
		return nil, cerr
	}

	req := newHTTPRequest(c, method, pu.host, pu.path, headers, body)
	if err := req.Send(ctx); err != nil {
		return nil, err
	}

	return req, nil
}

// Head, Get, Post, Put, Delete are thin wrappers that fix the method.
func (s *Session) Head(ctx context.Context, rawURL string, headers *header.Map) (*HTTPRequest, liberr.Error) {
	return s.Request(ctx, "HEAD", rawURL, headers, nil, nil)
}

func (s *Session) Get(ctx context.Context, rawURL string, headers *header.Map) (*HTTPRequest, liberr.Error) {
	return s.Request(ctx, "GET", rawURL, headers, nil, nil)
}

func (s *Session) Post(ctx context.Context, rawURL string, headers *header.Map, body []byte) (*HTTPRequest, liberr.Error) {
	return s.Request(ctx, "POST", rawURL, headers, body, nil)
}

func (s *Session) Put(ctx context.Context, rawURL string, headers *header.Map, body []byte) (*HTTPRequest, liberr.Error) {
	return s.Request(ctx, "PUT", rawURL, headers, body, nil)
}

func (s *Session) Delete(ctx context.Context, rawURL string, headers *header.Map) (*HTTPRequest, liberr.Error) {
	return s.Request(ctx, "DELETE", rawURL, headers, nil, nil)
}

// Connections returns the aggregate connect_count across every Pool this
// Session has created, a cumulative measure of how often keep-alive failed.
func (s *Session) Connections() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()

	var total uint64
	for _, p := range s.pools {
		total += p.Stats()
	}
	return total
}
