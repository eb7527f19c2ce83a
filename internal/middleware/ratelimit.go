// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package middleware

import (
	"math"
	"net"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"
)

// sweepInterval is how often idle clients are dropped from the limiter.
const sweepInterval = 5 * time.Minute

// window holds the request times of one client inside the sliding window,
// oldest first.
type window struct {
	mu   sync.Mutex
	hits []time.Time
}

// trim drops hits at or before cutoff and reports how many remain.
func (w *window) trim(cutoff time.Time) int {
	keep := w.hits[:0]
	for _, at := range w.hits {
		if at.After(cutoff) {
			keep = append(keep, at)
		}
	}
	w.hits = keep
	return len(keep)
}

// RateLimiter limits requests per client using a sliding window. Clients
// are authenticated users when the request carries an Identity, otherwise
// the remote IP.
type RateLimiter struct {
	mu      sync.RWMutex
	clients map[string]*window
	limit   int
	period  time.Duration
	now     func() time.Time
	stopCh  chan struct{}
}

// NewRateLimiter allows limit requests per client in any span of period.
// Idle clients are swept in the background until Stop is called.
func NewRateLimiter(limit int, period time.Duration) *RateLimiter {
	rl := &RateLimiter{
		clients: make(map[string]*window),
		limit:   limit,
		period:  period,
		now:     time.Now,
		stopCh:  make(chan struct{}),
	}
	go rl.sweepLoop()
	return rl
}

// Stop ends the background sweep.
func (rl *RateLimiter) Stop() {
	close(rl.stopCh)
}

func (rl *RateLimiter) sweepLoop() {
	ticker := time.NewTicker(sweepInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			rl.sweep()
		case <-rl.stopCh:
			return
		}
	}
}

func (rl *RateLimiter) windowFor(key string) *window {
	rl.mu.RLock()
	w, ok := rl.clients[key]
	rl.mu.RUnlock()
	if ok {
		return w
	}

	rl.mu.Lock()
	defer rl.mu.Unlock()
	if w, ok = rl.clients[key]; !ok {
		w = &window{}
		rl.clients[key] = w
	}
	return w
}

// take records a request for key. When key is already at the limit the
// request is not recorded, ok is false, and retryAfter is the time until
// the oldest hit leaves the window.
func (rl *RateLimiter) take(key string) (ok bool, retryAfter time.Duration) {
	now := rl.now()
	cutoff := now.Add(-rl.period)

	w := rl.windowFor(key)
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.trim(cutoff) >= rl.limit {
		return false, w.hits[0].Sub(cutoff)
	}
	w.hits = append(w.hits, now)
	return true, 0
}

// sweep forgets clients with no hit inside the current window.
func (rl *RateLimiter) sweep() {
	cutoff := rl.now().Add(-rl.period)

	rl.mu.Lock()
	defer rl.mu.Unlock()
	for key, w := range rl.clients {
		w.mu.Lock()
		idle := w.trim(cutoff) == 0
		w.mu.Unlock()
		if idle {
			delete(rl.clients, key)
		}
	}
}

// Middleware rejects callers over their limit with 429 and a Retry-After
// header in whole seconds.
func (rl *RateLimiter) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ok, wait := rl.take(clientKey(r))
		if !ok {
			w.Header().Set("Retry-After", strconv.Itoa(int(math.Ceil(wait.Seconds()))))
			writeError(w, http.StatusTooManyRequests, "Too Many Attempts.")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// clientKey identifies the caller for rate limiting.
func clientKey(r *http.Request) string {
	if id, ok := IdentityFromCtx(r.Context()); ok {
		return "user:" + strconv.FormatInt(id.UserID, 10)
	}
	return "ip:" + clientIP(r)
}

// clientIP prefers the proxy headers over the socket address. Only the
// leftmost X-Forwarded-For entry is used.
func clientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		first, _, _ := strings.Cut(xff, ",")
		return strings.TrimSpace(first)
	}
	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		return strings.TrimSpace(xri)
	}
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	return r.RemoteAddr
}
