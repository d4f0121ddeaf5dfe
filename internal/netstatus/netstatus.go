// Package netstatus tracks whether the spendsync server is reachable and
// turns offline-to-online transitions into restored signals.
package netstatus

import (
	"context"
	"fmt"
	"net"
	"net/url"
	"sync"
	"sync/atomic"
	"time"

	"spendsync/internal/log"
)

// Prober answers whether the server can be reached right now.
type Prober interface {
	Online(ctx context.Context) bool
}

// ProberFunc adapts a function to Prober.
type ProberFunc func(ctx context.Context) bool

func (f ProberFunc) Online(ctx context.Context) bool { return f(ctx) }

// Fixed always reports the same state.
type Fixed bool

func (f Fixed) Online(context.Context) bool { return bool(f) }

// DialProber considers the server online when a TCP connection to Addr
// can be opened within Timeout.
type DialProber struct {
	Addr    string
	Timeout time.Duration
}

// NewDialProber derives host:port from an API base URL.
func NewDialProber(baseURL string, timeout time.Duration) (*DialProber, error) {
	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("parse api url: %w", err)
	}
	if u.Host == "" {
		return nil, fmt.Errorf("api url %q has no host", baseURL)
	}
	host := u.Host
	if u.Port() == "" {
		port := "80"
		if u.Scheme == "https" {
			port = "443"
		}
		host = net.JoinHostPort(u.Hostname(), port)
	}
	return &DialProber{Addr: host, Timeout: timeout}, nil
}

func (p *DialProber) Online(ctx context.Context) bool {
	d := net.Dialer{Timeout: p.Timeout}
	conn, err := d.DialContext(ctx, "tcp", p.Addr)
	if err != nil {
		return false
	}
	_ = conn.Close()
	return true
}

// Watcher polls a Prober and emits on Restored every time the state moves
// from offline to online. The state starts offline, so a server that is
// already up produces one signal on the first poll.
type Watcher struct {
	prober   Prober
	interval time.Duration
	timeout  time.Duration
	logger   *log.Logger

	online   atomic.Bool
	probed   atomic.Bool
	restored chan struct{}

	mu        sync.Mutex
	listeners []func(online bool)
}

func NewWatcher(prober Prober, interval time.Duration, logger *log.Logger) *Watcher {
	return &Watcher{
		prober:   prober,
		interval: interval,
		timeout:  3 * time.Second,
		logger:   logger.WithComponent(log.ComponentNetwork),
		restored: make(chan struct{}, 1),
	}
}

// Restored delivers one value per offline-to-online transition. Signals
// that arrive while a previous one is unread are coalesced.
func (w *Watcher) Restored() <-chan struct{} {
	return w.restored
}

// OnChange registers fn to run on every state change.
func (w *Watcher) OnChange(fn func(online bool)) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.listeners = append(w.listeners, fn)
}

// Online returns the last observed state, probing once if the watcher has
// not run yet.
func (w *Watcher) Online(ctx context.Context) bool {
	if !w.probed.Load() {
		return w.Check(ctx)
	}
	return w.online.Load()
}

// Check probes once and updates the state.
func (w *Watcher) Check(ctx context.Context) bool {
	pctx, cancel := context.WithTimeout(ctx, w.timeout)
	now := w.prober.Online(pctx)
	cancel()

	w.probed.Store(true)
	was := w.online.Swap(now)
	if was == now {
		return now
	}

	if now {
		w.logger.InfoContext(ctx, "Server reachable")
		select {
		case w.restored <- struct{}{}:
		default:
		}
	} else {
		w.logger.WarnContext(ctx, "Server unreachable")
	}

	w.mu.Lock()
	listeners := append([]func(bool){}, w.listeners...)
	w.mu.Unlock()
	for _, fn := range listeners {
		fn(now)
	}
	return now
}

// Run polls until ctx is done.
func (w *Watcher) Run(ctx context.Context) {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	w.Check(ctx)
	for {
		select {
		case <-ticker.C:
			w.Check(ctx)
		case <-ctx.Done():
			return
		}
	}
}
