package v1

import (
	"net"
	"net/netip"
	"strings"

	"github.com/gofiber/fiber/v2"
)

// getClientIP extracts the requester's public IP. The address is used once
// for country enrichment and never stored, so a best-effort answer is fine;
// unresolvable requests fall back to loopback.
func getClientIP(c *fiber.Ctx) string {
	if ip := selectPreferredIP(strings.Split(c.Get("X-Forwarded-For"), ",")); ip != "" {
		return ip
	}

	for _, header := range []string{
		"X-Real-IP",
		"CF-Connecting-IP",
		"True-Client-IP",
	} {
		if value := c.Get(header); value != "" {
			if ip := selectPreferredIP([]string{value}); ip != "" {
				return ip
			}
		}
	}

	remoteAddr := c.Context().RemoteAddr().String()
	if host, _, err := net.SplitHostPort(remoteAddr); err == nil {
		if parsed := net.ParseIP(host); parsed != nil && !isPrivateIP(parsed) {
			return host
		}
	}

	if ip := c.IP(); ip != "" && ip != "0.0.0.0" && ip != "::" {
		if parsed := net.ParseIP(strings.TrimSpace(ip)); parsed != nil && !isPrivateIP(parsed) {
			return ip
		}
	}

	return "127.0.0.1"
}

// selectPreferredIP picks the first public IPv4 from the candidates,
// falling back to the first public IPv6.
func selectPreferredIP(values []string) string {
	var ipv6Fallback string

	for _, raw := range values {
		clean, parsed := normalizeIP(raw)
		if parsed == nil || isPrivateIP(parsed) {
			continue
		}
		if parsed.To4() != nil {
			return clean
		}
		if ipv6Fallback == "" {
			ipv6Fallback = clean
		}
	}

	return ipv6Fallback
}

func normalizeIP(raw string) (string, net.IP) {
	clean := strings.TrimSpace(raw)
	clean = strings.Trim(clean, "\"")
	if clean == "" {
		return "", nil
	}

	// Drop zone identifiers such as fe80::1%eth0.
	if percent := strings.Index(clean, "%"); percent != -1 {
		clean = clean[:percent]
	}

	if addrPort, err := netip.ParseAddrPort(clean); err == nil {
		addr := addrPort.Addr()
		if addr.Is4In6() {
			addr = addr.Unmap()
		}
		ipStr := addr.String()
		return ipStr, net.ParseIP(ipStr)
	}

	trimmed := strings.TrimSuffix(strings.TrimPrefix(clean, "["), "]")
	if addr, err := netip.ParseAddr(trimmed); err == nil {
		if addr.Is4In6() {
			addr = addr.Unmap()
		}
		ipStr := addr.String()
		return ipStr, net.ParseIP(ipStr)
	}

	if host, _, err := net.SplitHostPort(clean); err == nil {
		return normalizeIP(host)
	}

	return "", nil
}

var privateIPBlocks = []*net.IPNet{
	parseCIDR("10.0.0.0/8"),
	parseCIDR("172.16.0.0/12"),
	parseCIDR("192.168.0.0/16"),
	parseCIDR("fc00::/7"),
	parseCIDR("fe80::/10"),
	parseCIDR("::1/128"),
	parseCIDR("127.0.0.0/8"),
}

func isPrivateIP(ip net.IP) bool {
	if ip == nil {
		return false
	}
	for _, block := range privateIPBlocks {
		if block != nil && block.Contains(ip) {
			return true
		}
	}
	return false
}

func parseCIDR(s string) *net.IPNet {
	_, block, _ := net.ParseCIDR(s)
	return block
}
