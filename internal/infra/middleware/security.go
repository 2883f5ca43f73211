package middleware

import (
	"net"
	"net/http"
	"strings"
)

// SecurityHeaders adds OWASP-recommended security headers to all responses.
func SecurityHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h := w.Header()
		h.Set("X-Frame-Options", "DENY")
		h.Set("X-Content-Type-Options", "nosniff")
		// The relay only ever returns JSON or plain text.
		h.Set("Content-Security-Policy", "default-src 'none'; frame-ancestors 'none'")
		h.Set("Referrer-Policy", "no-referrer")

		if r.TLS != nil {
			h.Set("Strict-Transport-Security", "max-age=31536000; includeSubDomains")
		}

		next.ServeHTTP(w, r)
	})
}

// ClientIP returns the caller's address for logging.
//
// X-Forwarded-For and X-Real-IP are only honored when the TCP peer matches one
// of trustedProxies (IPs or CIDRs); otherwise the peer address is returned so
// that a client cannot put an arbitrary address into the access log.
func ClientIP(r *http.Request, trustedProxies []string) string {
	peer := r.RemoteAddr
	if host, _, err := net.SplitHostPort(peer); err == nil {
		peer = host
	}

	if !isTrusted(peer, trustedProxies) {
		return peer
	}

	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		first, _, _ := strings.Cut(xff, ",")
		return strings.TrimSpace(first)
	}
	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		return strings.TrimSpace(xri)
	}
	return peer
}

func isTrusted(peer string, trustedProxies []string) bool {
	if len(trustedProxies) == 0 {
		return false
	}
	ip := net.ParseIP(peer)
	for _, p := range trustedProxies {
		if p == peer {
			return true
		}
		if _, cidr, err := net.ParseCIDR(p); err == nil && ip != nil && cidr.Contains(ip) {
			return true
		}
	}
	return false
}
