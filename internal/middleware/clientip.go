package middleware

import (
	"net"
	"net/http"
	"strings"
)

// ClientIP extracts the client IP address from an HTTP request.
// It checks X-Forwarded-For, X-Real-IP, and RemoteAddr in that order,
// stripping the port where present. The same address is used for rate
// limiting, audit records, and the remoteip field of verification calls,
// so all three see one consistent identity per caller.
func ClientIP(r *http.Request) string {
	// Check X-Forwarded-For header first (for proxied requests)
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		// Use the first IP in the chain, trimming whitespace per RFC 7239
		var firstIP string
		if idx := strings.Index(xff, ","); idx != -1 {
			firstIP = strings.TrimSpace(xff[:idx])
		} else {
			firstIP = strings.TrimSpace(xff)
		}
		if firstIP != "" {
			return stripPort(firstIP)
		}
	}

	// Check X-Real-IP header
	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		return stripPort(strings.TrimSpace(xri))
	}

	// Fall back to RemoteAddr
	return stripPort(r.RemoteAddr)
}

// stripPort removes the port from a host:port address, handling both IPv4
// and IPv6 forms. Addresses without a port pass through unchanged.
func stripPort(addr string) string {
	host, _, err := net.SplitHostPort(addr)
	if err != nil {
		return addr
	}
	return host
}
