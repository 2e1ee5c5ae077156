// Package fingerprint computes a best-effort client tag for audit records.
// It is an abuse-analysis breadcrumb, not an identity mechanism.
package fingerprint

import (
	"strings"

	"github.com/spaolacci/murmur3"
)

// Client hashes the request origin (IP + user agent) into a stable 64-bit
// tag stored alongside earning-action records.
func Client(ip, userAgent string) uint64 {
	ip = strings.TrimSpace(ip)
	if i := strings.LastIndexByte(ip, ':'); i >= 0 && strings.Count(ip, ":") == 1 {
		// Strip the port from host:port remote addresses
		ip = ip[:i]
	}
	return murmur3.Sum64([]byte(ip + "|" + userAgent))
}
