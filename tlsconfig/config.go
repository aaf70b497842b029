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

// Package tlsconfig builds the crypto/tls.Config handed to a Connection when
// a Session request targets https. Full certificate/CA/cipher management is
// out of scope for this core; this package only exposes the minimal construction surface the core depends on.
package tlsconfig

import (
	"crypto/tls"
	"crypto/x509"
	"os"
)

// Config is a small builder around crypto/tls.Config, in the style of the
// wider certificates.Config factory: zero value is a sane default, setters
// return the receiver is avoided (explicit field access keeps this a plain
// value type safe to copy per Connection).
type Config struct {
	RootCAFiles        []string
	Certificates       []tls.Certificate
	MinVersion         uint16
	MaxVersion         uint16
	InsecureSkipVerify bool
}

// New returns a Config with the library's conservative defaults: TLS 1.2
// minimum, no maximum cap, verification enabled.
func New() *Config {
	return &Config{
		MinVersion: tls.VersionTLS12,
	}
}

// TLS renders the Config into a *tls.Config bound to the given server name
// (used for SNI and certificate verification).
func (c *Config) TLS(serverName string) (*tls.Config, error) {
	if c == nil {
		return &tls.Config{ServerName: serverName, MinVersion: tls.VersionTLS12}, nil
	}

	cfg := &tls.Config{
		ServerName:         serverName,
		MinVersion:         c.MinVersion,
		MaxVersion:         c.MaxVersion,
		InsecureSkipVerify: c.InsecureSkipVerify,
		Certificates:       c.Certificates,
	}

	if len(c.RootCAFiles) > 0 {
		pool := x509.NewCertPool()
		for _, f := range c.RootCAFiles {
			pem, err := os.ReadFile(f)
			if err != nil {
				return nil, err
			}
			pool.AppendCertsFromPEM(pem)
		}
		cfg.RootCAs = pool
	}

	return cfg, nil
}
