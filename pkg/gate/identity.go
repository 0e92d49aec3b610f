package gate

import (
	"net"
	"net/http"
	"strings"
)

const (
	forwardedForHeader = "X-Forwarded-For"
	realIPHeader       = "X-Real-IP"
)

// ClientIdentity resolves the canonical client address for a request.
// Precedence: the first comma-separated element of X-Forwarded-For, then
// X-Real-IP, then the transport remote address. It never fails; malformed
// header values degrade to the transport address.
//
// Both headers are attacker-controllable unless the deployment terminates
// behind a trusted proxy that strips or overwrites them. That trust model
// is deliberate and documented; the gate honors the headers as presented.
func ClientIdentity(r *http.Request) string {
	if xff := r.Header.Get(forwardedForHeader); xff != "" {
		first, _, _ := strings.Cut(xff, ",")
		if first = strings.TrimSpace(first); first != "" {
			return first
		}
	}

	if rip := strings.TrimSpace(r.Header.Get(realIPHeader)); rip != "" {
		return rip
	}

	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
