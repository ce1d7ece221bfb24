package auth

import (
	"log/slog"
	"net"
	"strings"
)

// IPFilter checks client addresses against a configured CIDR allow-list.
// An empty filter allows every address.
type IPFilter struct {
	networks []*net.IPNet
	logger   *slog.Logger
}

// NewIPFilter parses whitelist entries into an IPFilter.
// Entries are single IPs or CIDR blocks; invalid entries are logged and
// skipped (config validation normally rejects them first).
func NewIPFilter(entries []string, logger *slog.Logger) *IPFilter {
	if logger == nil {
		logger = slog.Default()
	}

	f := &IPFilter{logger: logger}
	for _, entry := range entries {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}
		// Single IPs become host-length CIDR blocks.
		if !strings.Contains(entry, "/") {
			if strings.Contains(entry, ":") {
				entry += "/128"
			} else {
				entry += "/32"
			}
		}
		_, network, err := net.ParseCIDR(entry)
		if err != nil {
			logger.Warn("invalid IP whitelist entry, skipping", "entry", entry, "error", err)
			continue
		}
		f.networks = append(f.networks, network)
	}
	return f
}

// Empty returns true if no whitelist is configured.
func (f *IPFilter) Empty() bool {
	return len(f.networks) == 0
}

// Allowed returns true if the address passes the whitelist.
// With no whitelist configured, every address passes. Addresses that do
// not parse are rejected and logged.
func (f *IPFilter) Allowed(ip string) bool {
	if f.Empty() {
		return true
	}

	addr := net.ParseIP(ip)
	if addr == nil {
		f.logger.Warn("invalid client IP address", "ip", ip)
		return false
	}

	for _, network := range f.networks {
		if network.Contains(addr) {
			return true
		}
	}
	return false
}
