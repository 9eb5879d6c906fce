package middleware

import (
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/dxsocial/backend/internal/apperr"
	"github.com/sirupsen/logrus"
)

// IPRateLimiter is a per-IP sliding window limiter.
type IPRateLimiter struct {
	mu       sync.Mutex
	requests map[string][]time.Time
	limit    int
	window   time.Duration
	message  string
	now      func() time.Time
	proxies  []*net.IPNet
}

func NewIPRateLimiter(limit int, window time.Duration, message string) *IPRateLimiter {
	return &IPRateLimiter{
		requests: make(map[string][]time.Time),
		limit:    limit,
		window:   window,
		message:  message,
		now:      time.Now,
	}
}

// Allow records a hit for ip and reports whether it is within the limit.
func (rl *IPRateLimiter) Allow(ip string) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	cutoff := now.Add(-rl.window)

	requests := rl.requests[ip]
	i := 0
	for ; i < len(requests); i++ {
		if requests[i].After(cutoff) {
			break
		}
	}
	requests = requests[i:]

	if len(requests) >= rl.limit {
		rl.requests[ip] = requests
		return false
	}

	rl.requests[ip] = append(requests, now)
	return true
}

// Sweep drops IPs with no hits inside the window.
func (rl *IPRateLimiter) Sweep() {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	cutoff := rl.now().Add(-rl.window)
	for ip, requests := range rl.requests {
		if len(requests) == 0 || !requests[len(requests)-1].After(cutoff) {
			delete(rl.requests, ip)
		}
	}
}

// TrustProxies sets the peers whose X-Forwarded-For header is believed.
func (rl *IPRateLimiter) TrustProxies(proxies []*net.IPNet) {
	rl.proxies = proxies
}

// Middleware answers 429 once the caller's IP exceeds the limit.
func (rl *IPRateLimiter) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !rl.Allow(ClientIP(r, rl.proxies)) {
			apperr.WriteError(w, http.StatusTooManyRequests, rl.message)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// Limit wraps a single handler func, for per-route limits.
func (rl *IPRateLimiter) Limit(next http.HandlerFunc) http.HandlerFunc {
	return rl.Middleware(next).ServeHTTP
}

// Limiters groups the global and per-route limiters.
type Limiters struct {
	Global  *IPRateLimiter
	Post    *IPRateLimiter
	Comment *IPRateLimiter
	Mint    *IPRateLimiter
}

// NewLimiters builds the limiters. trustedProxies are IPs or CIDRs of reverse
// proxies in front of the server; without them only the socket peer counts.
func NewLimiters(globalMax int, trustedProxies ...string) *Limiters {
	l := &Limiters{
		Global:  NewIPRateLimiter(globalMax, 15*time.Minute, "Too many requests, please try again later"),
		Post:    NewIPRateLimiter(5, 5*time.Minute, "Too many posts created, please try again later"),
		Comment: NewIPRateLimiter(10, 2*time.Minute, "Too many comments, please try again later"),
		Mint:    NewIPRateLimiter(10, time.Hour, "Too many NFT minting requests, please try again later"),
	}
	proxies := ParseProxies(trustedProxies)
	for _, rl := range l.all() {
		rl.TrustProxies(proxies)
	}
	return l
}

func (l *Limiters) all() []*IPRateLimiter {
	return []*IPRateLimiter{l.Global, l.Post, l.Comment, l.Mint}
}

func (l *Limiters) Sweep() {
	for _, rl := range l.all() {
		rl.Sweep()
	}
}

// ParseProxies reads IPs and CIDRs. Invalid entries are logged and skipped.
func ParseProxies(entries []string) []*net.IPNet {
	var nets []*net.IPNet
	for _, e := range entries {
		e = strings.TrimSpace(e)
		if e == "" {
			continue
		}
		if !strings.Contains(e, "/") {
			ip := net.ParseIP(e)
			if ip == nil {
				logrus.WithField("proxy", e).Warn("Ignoring invalid trusted proxy")
				continue
			}
			bits := 128
			if ip.To4() != nil {
				ip, bits = ip.To4(), 32
			}
			nets = append(nets, &net.IPNet{IP: ip, Mask: net.CIDRMask(bits, bits)})
			continue
		}
		_, n, err := net.ParseCIDR(e)
		if err != nil {
			logrus.WithField("proxy", e).Warn("Ignoring invalid trusted proxy")
			continue
		}
		nets = append(nets, n)
	}
	return nets
}

func trusted(ip net.IP, proxies []*net.IPNet) bool {
	for _, n := range proxies {
		if n.Contains(ip) {
			return true
		}
	}
	return false
}

// ClientIP is the socket peer, unless the peer is a trusted proxy. Then
// X-Forwarded-For is walked from the right and the first untrusted hop wins.
func ClientIP(r *http.Request, proxies []*net.IPNet) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		host = r.RemoteAddr
	}
	peer := net.ParseIP(host)
	if peer == nil || !trusted(peer, proxies) {
		return host
	}

	hops := strings.Split(r.Header.Get("X-Forwarded-For"), ",")
	for i := len(hops) - 1; i >= 0; i-- {
		hop := strings.TrimSpace(hops[i])
		ip := net.ParseIP(hop)
		if ip == nil {
			break
		}
		if !trusted(ip, proxies) {
			return hop
		}
	}
	return host
}
