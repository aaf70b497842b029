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

// Package dns implements a TTL-bounded, multi-record caching resolver with
// transparent fallback to network resolution, keyed by (name, requested
// port) so that the same host can hold independent record sets for distinct
// ports (e.g. 80 vs 443).
package dns

import (
	"context"
	"math/rand"
	"net"
	"sync"
	"time"

	"github.com/miekg/dns"

	liberr "github.com/nabbar/uvhttp/errors"
	"github.com/nabbar/uvhttp/ipaddr"
)

const farFuture = 100 * 365 * 24 * time.Hour

// Record is one resolved address with its expiry.
type Record struct {
	IP     string
	Port   int
	Expiry time.Time
}

func (r Record) expired(now time.Time) bool {
	return !r.Expiry.After(now)
}

type cacheKey struct {
	name string
	port int
}

// Resolver is a caching DNS resolver. The zero value is not usable; use New.
type Resolver struct {
	mu         sync.Mutex
	cache      map[cacheKey][]Record
	preferV6   bool
	client     *dns.Client
	servers    []string
	serversSet bool
}

// Option configures a Resolver at construction time.
type Option func(*Resolver)

// WithIPv6 controls whether AAAA is tried before A. Defaults to true.
func WithIPv6(preferV6 bool) Option {
	return func(r *Resolver) { r.preferV6 = preferV6 }
}

// WithServers overrides the nameservers to query, each as "host:port".
func WithServers(servers ...string) Option {
	return func(r *Resolver) {
		r.servers = servers
		r.serversSet = true
	}
}

// New builds a Resolver. With no WithServers option it reads the system
// resolver configuration (/etc/resolv.conf).
func New(opts ...Option) *Resolver {
	r := &Resolver{
		cache:    make(map[cacheKey][]Record),
		preferV6: true,
		client:   &dns.Client{Timeout: 5 * time.Second},
	}

	for _, o := range opts {
		o(r)
	}

	if !r.serversSet {
		if cfg, err := dns.ClientConfigFromFile("/etc/resolv.conf"); err == nil && cfg != nil {
			for _, s := range cfg.Servers {
				r.servers = append(r.servers, net.JoinHostPort(s, cfg.Port))
			}
		}
	}

	return r
}

// AddToCache stores a record for (name, requestedPort). overwrite=true
// replaces the entry; overwrite=false appends to it. ttl<=0 means the
// record never expires.
func (r *Resolver) AddToCache(name string, requestedPort int, ip string, ttl time.Duration, recordPort int, overwrite bool) {
	var expiry time.Time
	if ttl > 0 {
		expiry = time.Now().Add(ttl)
	} else {
		expiry = time.Now().Add(farFuture)
	}

	k := cacheKey{name: name, port: requestedPort}
	rec := Record{IP: ip, Port: recordPort, Expiry: expiry}

	r.mu.Lock()
	defer r.mu.Unlock()

	if overwrite {
		r.cache[k] = []Record{rec}
	} else {
		r.cache[k] = append(r.cache[k], rec)
	}
}

// FetchFromCache prunes expired records for (name, requestedPort) and
// returns one live record chosen uniformly at random, or ok=false if none
// remain.
func (r *Resolver) FetchFromCache(name string, requestedPort int) (rec Record, ok bool) {
	k := cacheKey{name: name, port: requestedPort}
	now := time.Now()

	r.mu.Lock()
	defer r.mu.Unlock()

	list, found := r.cache[k]
	if !found {
		return Record{}, false
	}

	live := list[:0]
	for _, v := range list {
		if !v.expired(now) {
			live = append(live, v)
		}
	}
	r.cache[k] = live

	if len(live) == 0 {
		return Record{}, false
	}

	return live[rand.Intn(len(live))], true
}

// Resolve returns (ip, port, ttl) for name at requestedPort, consulting the
// cache before falling back to the network. ttl is the remaining lifetime
// of the record used (far-future for literal addresses and non-expiring
// entries).
func (r *Resolver) Resolve(ctx context.Context, name string, requestedPort int) (string, int, time.Duration, liberr.Error) {
	if ipaddr.IsIP(name) {
		return name, requestedPort, farFuture, nil
	}

	if rec, ok := r.FetchFromCache(name, requestedPort); ok {
		return rec.IP, rec.Port, time.Until(rec.Expiry), nil
	}

	var qtypes []uint16
	if r.preferV6 {
		qtypes = []uint16{dns.TypeAAAA, dns.TypeA}
	} else {
		qtypes = []uint16{dns.TypeA}
	}

	for _, qtype := range qtypes {
		if r.query(ctx, name, requestedPort, qtype) {
			break
		}
	}

	if rec, ok := r.FetchFromCache(name, requestedPort); ok {
		return rec.IP, rec.Port, time.Until(rec.Expiry), nil
	}

	return "", 0, 0, ErrorDNSResolutionFailed.Error(nil)
}

// query issues a single query of qtype against the configured servers and
// inserts any answers into the cache. It reports whether any answer was
// cached, matching the source's "stop querying further types on success"
// rule.
func (r *Resolver) query(ctx context.Context, name string, requestedPort int, qtype uint16) bool {
	if len(r.servers) == 0 {
		return false
	}

	msg := new(dns.Msg)
	msg.SetQuestion(dns.Fqdn(name), qtype)
	msg.RecursionDesired = true

	var answered bool

	for _, server := range r.servers {
		resp, _, err := r.client.ExchangeContext(ctx, msg, server)
		if err != nil || resp == nil || len(resp.Answer) == 0 {
			continue
		}

		for _, a := range resp.Answer {
			var (
				ip  string
				ttl = time.Duration(a.Header().Ttl) * time.Second
			)

			switch rr := a.(type) {
			case *dns.A:
				ip = rr.A.String()
			case *dns.AAAA:
				ip = rr.AAAA.String()
			default:
				continue
			}

			r.AddToCache(name, requestedPort, ip, ttl, requestedPort, false)
			answered = true
		}

		if answered {
			return true
		}
	}

	return false
}
