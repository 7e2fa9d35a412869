package middleware

import (
	"net"
	"strings"

	"github.com/gin-gonic/gin"
)

// RealIP stores the client IP under "real_ip".
//
// Forwarding headers are honored only when the socket peer is one of the
// trusted proxies (IPs or CIDRs). From a trusted peer the sources are, in order:
// CF-Connecting-IP, the right-most X-Forwarded-For entry that is not itself a
// trusted proxy, X-Real-IP. Anything else gets the peer address.
func RealIP(trustedProxies ...string) gin.HandlerFunc {
	trusted := parseNets(trustedProxies)
	return func(c *gin.Context) {
		c.Set("real_ip", clientIP(c, trusted))
		c.Next()
	}
}

func clientIP(c *gin.Context, trusted []*net.IPNet) string {
	peer := net.ParseIP(c.RemoteIP())
	if peer == nil {
		return c.ClientIP()
	}
	if !inNets(peer, trusted) {
		return peer.String()
	}

	if ip := net.ParseIP(strings.TrimSpace(c.GetHeader("CF-Connecting-IP"))); ip != nil {
		return ip.String()
	}
	if xff := c.GetHeader("X-Forwarded-For"); xff != "" {
		hops := strings.Split(xff, ",")
		for i := len(hops) - 1; i >= 0; i-- {
			ip := net.ParseIP(strings.TrimSpace(hops[i]))
			if ip == nil {
				break
			}
			if !inNets(ip, trusted) {
				return ip.String()
			}
		}
	}
	if ip := net.ParseIP(strings.TrimSpace(c.GetHeader("X-Real-IP"))); ip != nil {
		return ip.String()
	}
	return peer.String()
}

// parseNets accepts plain IPs as single-host networks. Invalid entries are skipped.
func parseNets(entries []string) []*net.IPNet {
	nets := make([]*net.IPNet, 0, len(entries))
	for _, e := range entries {
		e = strings.TrimSpace(e)
		if e == "" {
			continue
		}
		if !strings.Contains(e, "/") {
			ip := net.ParseIP(e)
			if ip == nil {
				continue
			}
			bits := 128
			if ip.To4() != nil {
				ip, bits = ip.To4(), 32
			}
			nets = append(nets, &net.IPNet{IP: ip, Mask: net.CIDRMask(bits, bits)})
			continue
		}
		if _, n, err := net.ParseCIDR(e); err == nil {
			nets = append(nets, n)
		}
	}
	return nets
}

func inNets(ip net.IP, nets []*net.IPNet) bool {
	for _, n := range nets {
		if n.Contains(ip) {
			return true
		}
	}
	return false
}
