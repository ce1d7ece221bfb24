package auth

import (
	"net"
	"net/http"
	"strings"
)

// ResolveClientIP returns the real client IP for the request.
//
// When trustProxy is true, forwarded headers are consulted in precedence
// order: X-Forwarded-For (first hop), X-Real-IP, CF-Connecting-IP, then
// X-Forwarded ("for=" token). Each candidate must be a well-formed IP
// (optionally with a port suffix, or bracketed IPv6); invalid candidates
// are skipped. The direct socket peer address is the final fallback.
func ResolveClientIP(r *http.Request, trustProxy bool) string {
	if trustProxy {
		if forwarded := r.Header.Get("X-Forwarded-For"); forwarded != "" {
			// First hop in the chain is the original client.
			first := strings.TrimSpace(strings.Split(forwarded, ",")[0])
			if ip := normalizeIP(first); ip != "" {
				return ip
			}
		}

		if realIP := strings.TrimSpace(r.Header.Get("X-Real-IP")); realIP != "" {
			if ip := normalizeIP(realIP); ip != "" {
				return ip
			}
		}

		if cfIP := strings.TrimSpace(r.Header.Get("CF-Connecting-IP")); cfIP != "" {
			if ip := normalizeIP(cfIP); ip != "" {
				return ip
			}
		}

		if forwarded := r.Header.Get("X-Forwarded"); forwarded != "" {
			// Format: "for=ip;proto=https" with semicolon-separated parts.
			for _, part := range strings.Split(forwarded, ";") {
				part = strings.TrimSpace(part)
				if value, ok := strings.CutPrefix(part, "for="); ok {
					if ip := normalizeIP(strings.TrimSpace(value)); ip != "" {
						return ip
					}
				}
			}
		}
	}

	// Direct socket peer address.
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	return r.RemoteAddr
}

// normalizeIP validates a candidate address, stripping any port suffix
// or IPv6 brackets. Returns empty string if the candidate is not a
// well-formed IP.
func normalizeIP(candidate string) string {
	if candidate == "" {
		return ""
	}
	if ip := net.ParseIP(candidate); ip != nil {
		return ip.String()
	}
	// "1.2.3.4:8080" or "[::1]:8080"
	if host, _, err := net.SplitHostPort(candidate); err == nil {
		if ip := net.ParseIP(host); ip != nil {
			return ip.String()
		}
	}
	return ""
}
