// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package proxy acquires an egress path for search requests: a working
// proxy from a free pool, a local Tor SOCKS5 relay, or a direct connection.
// The result is an explicit Session whose HTTP client every search call uses.
package proxy

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"time"

	xproxy "golang.org/x/net/proxy"
	"golang.org/x/sync/errgroup"

	"github.com/pdiddy/scholar-harvest/pkg/types"
)

// ErrNoProxy is returned when no egress path could be established.
var ErrNoProxy = errors.New("no working proxy")

// Default settings applied by NewInitializer when the config leaves them zero.
const (
	DefaultListURL          = "https://www.sslproxies.org/"
	DefaultCheckURL         = "https://scholar.google.com/robots.txt"
	DefaultTorAddr          = "127.0.0.1:9050"
	DefaultProbeTimeout     = 8 * time.Second
	DefaultProbeLimit       = 40
	DefaultProbeConcurrency = 8
)

// Kind identifies how a session reaches the network.
type Kind string

const (
	KindFree   Kind = "free"
	KindTor    Kind = "tor"
	KindDirect Kind = "direct"
)

// Session is an established egress path. Client routes through it.
type Session struct {
	Kind   Kind
	Addr   string
	Client *http.Client
}

// String describes the session for logs.
func (s *Session) String() string {
	if s == nil {
		return "none"
	}
	if s.Addr == "" {
		return string(s.Kind)
	}
	return fmt.Sprintf("%s(%s)", s.Kind, s.Addr)
}

// Initializer hands out sessions. Proxies already handed out by an
// Initializer are not offered again, so a retry gets a fresh proxy.
type Initializer struct {
	cfg    types.ProxyConfig
	logger *slog.Logger

	// listClient fetches the proxy list directly.
	listClient *http.Client
	used       map[string]bool
}

// NewInitializer returns an Initializer with defaults filled in.
func NewInitializer(cfg types.ProxyConfig, logger *slog.Logger) *Initializer {
	if cfg.Mode == "" {
		cfg.Mode = types.ProxyFree
	}
	if cfg.ListURL == "" {
		cfg.ListURL = DefaultListURL
	}
	if cfg.CheckURL == "" {
		cfg.CheckURL = DefaultCheckURL
	}
	if cfg.TorAddr == "" {
		cfg.TorAddr = DefaultTorAddr
	}
	if cfg.ProbeTimeout <= 0 {
		cfg.ProbeTimeout = DefaultProbeTimeout
	}
	if cfg.ProbeLimit <= 0 {
		cfg.ProbeLimit = DefaultProbeLimit
	}
	if cfg.ProbeConcurrency <= 0 {
		cfg.ProbeConcurrency = DefaultProbeConcurrency
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Initializer{
		cfg:        cfg,
		logger:     logger,
		listClient: &http.Client{Timeout: cfg.ProbeTimeout * 2},
		used:       make(map[string]bool),
	}
}

// Setup establishes a session according to the configured mode. In free
// mode the pool is tried first and the Tor relay second. It does not retry;
// the caller decides what a failure means.
func (in *Initializer) Setup(ctx context.Context) (*Session, error) {
	switch in.cfg.Mode {
	case types.ProxyNone:
		return in.session(KindDirect, "", http.DefaultTransport.(*http.Transport).Clone()), nil

	case types.ProxyTor:
		return in.setupTor(ctx)

	case types.ProxyFree:
		in.logger.Info("setting up free proxy", "list", in.cfg.ListURL)
		s, err := in.setupFree(ctx)
		if err == nil {
			in.logger.Info("proxy setup successful", "session", s.String())
			return s, nil
		}
		if in.cfg.DisableTor {
			return nil, err
		}
		in.logger.Warn("free proxy setup failed, trying Tor", "error", err, "tor", in.cfg.TorAddr)
		return in.setupTor(ctx)

	default:
		return nil, fmt.Errorf("unknown proxy mode %q", in.cfg.Mode)
	}
}

func (in *Initializer) setupFree(ctx context.Context) (*Session, error) {
	candidates, err := FetchCandidates(ctx, in.listClient, in.cfg.ListURL, in.cfg.UserAgent)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNoProxy, err)
	}

	fresh := candidates[:0:0]
	for _, c := range candidates {
		if !in.used[c] {
			fresh = append(fresh, c)
		}
	}
	if len(fresh) > in.cfg.ProbeLimit {
		fresh = fresh[:in.cfg.ProbeLimit]
	}
	in.logger.Debug("probing proxy candidates", "listed", len(candidates), "probing", len(fresh))

	addr, err := in.firstWorking(ctx, fresh)
	if err != nil {
		return nil, err
	}
	in.used[addr] = true
	return in.session(KindFree, addr, httpProxyTransport(addr)), nil
}

// firstWorking probes candidates in bounded concurrent batches and returns
// the earliest one in list order that passes the check.
func (in *Initializer) firstWorking(ctx context.Context, candidates []string) (string, error) {
	step := in.cfg.ProbeConcurrency
	for start := 0; start < len(candidates); start += step {
		batch := candidates[start:min(start+step, len(candidates))]
		ok := make([]bool, len(batch))

		var g errgroup.Group
		for i, addr := range batch {
			g.Go(func() error {
				ok[i] = in.probe(ctx, httpProxyTransport(addr)) == nil
				return nil
			})
		}
		_ = g.Wait()

		for i, addr := range batch {
			if ok[i] {
				return addr, nil
			}
		}
		if err := ctx.Err(); err != nil {
			return "", err
		}
	}
	return "", fmt.Errorf("%w: none of %d candidates passed the check", ErrNoProxy, len(candidates))
}

func (in *Initializer) setupTor(ctx context.Context) (*Session, error) {
	tr, err := socksTransport(in.cfg.TorAddr)
	if err != nil {
		return nil, fmt.Errorf("%w: tor: %v", ErrNoProxy, err)
	}
	if err := in.probe(ctx, tr); err != nil {
		return nil, fmt.Errorf("%w: tor relay %s: %v", ErrNoProxy, in.cfg.TorAddr, err)
	}
	s := in.session(KindTor, in.cfg.TorAddr, tr)
	in.logger.Info("proxy setup successful", "session", s.String())
	return s, nil
}

// probe fetches the check URL through tr and requires a 2xx answer.
func (in *Initializer) probe(ctx context.Context, tr http.RoundTripper) error {
	ctx, cancel := context.WithTimeout(ctx, in.cfg.ProbeTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, in.cfg.CheckURL, nil)
	if err != nil {
		return err
	}
	if in.cfg.UserAgent != "" {
		req.Header.Set("User-Agent", in.cfg.UserAgent)
	}
	resp, err := (&http.Client{Transport: tr}).Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("check returned HTTP %d", resp.StatusCode)
	}
	return nil
}

func (in *Initializer) session(kind Kind, addr string, tr http.RoundTripper) *Session {
	jar, _ := cookiejar.New(nil)
	return &Session{
		Kind: kind,
		Addr: addr,
		Client: &http.Client{
			Transport: tr,
			Timeout:   in.cfg.Timeout,
			Jar:       jar,
		},
	}
}

func httpProxyTransport(addr string) *http.Transport {
	tr := http.DefaultTransport.(*http.Transport).Clone()
	tr.Proxy = http.ProxyURL(&url.URL{Scheme: "http", Host: addr})
	return tr
}

func socksTransport(addr string) (*http.Transport, error) {
	d, err := xproxy.SOCKS5("tcp", addr, nil, xproxy.Direct)
	if err != nil {
		return nil, err
	}
	cd, ok := d.(xproxy.ContextDialer)
	if !ok {
		return nil, fmt.Errorf("SOCKS5 dialer for %s does not support contexts", addr)
	}
	tr := http.DefaultTransport.(*http.Transport).Clone()
	tr.Proxy = nil
	tr.DialContext = cd.DialContext
	return tr, nil
}
