package pipeline

import (
	"net"
	"net/http"
	"net/netip"
	"strings"
)

// ClientKeyFunc extrai uma chave do cliente a partir da requisição.
type ClientKeyFunc func(r *http.Request) string

// DefaultClientKey prefere o header configurado, depois o primeiro IP do
// X-Forwarded-For (se confiável) e por fim o host de RemoteAddr.
func DefaultClientKey(keyHeader string, trustXFF bool) ClientKeyFunc {
	return func(r *http.Request) string {
		if keyHeader != "" {
			if v := strings.TrimSpace(r.Header.Get(keyHeader)); v != "" {
				return v
			}
		}

		if trustXFF {
			// primeiro IP do X-Forwarded-For = cliente original
			if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
				first, _, _ := strings.Cut(xff, ",")
				if ip := strings.TrimSpace(first); ip != "" {
					return ip
				}
			}
		}

		return remoteHost(r)
	}
}

// PeerAddress devolve o endereço de rede do par. O X-Forwarded-For só é
// lido quando o par está em trusted (IPs ou CIDRs); nesse caso vale o
// primeiro endereço não confiável, da direita para a esquerda. Headers
// enviados diretamente pelo cliente são ignorados.
func PeerAddress(trusted []string) ClientKeyFunc {
	prefixes := parseTrusted(trusted)
	isTrusted := func(s string) bool {
		addr, err := netip.ParseAddr(s)
		if err != nil {
			return false
		}
		addr = addr.Unmap()
		for _, p := range prefixes {
			if p.Contains(addr) {
				return true
			}
		}
		return false
	}

	return func(r *http.Request) string {
		peer := remoteHost(r)
		if len(prefixes) == 0 || !isTrusted(peer) {
			return peer
		}
		hops := strings.Split(r.Header.Get("X-Forwarded-For"), ",")
		for i := len(hops) - 1; i >= 0; i-- {
			hop := strings.TrimSpace(hops[i])
			if hop == "" {
				continue
			}
			if !isTrusted(hop) {
				return hop
			}
		}
		return peer
	}
}

func parseTrusted(trusted []string) []netip.Prefix {
	var out []netip.Prefix
	for _, t := range trusted {
		t = strings.TrimSpace(t)
		if t == "" {
			continue
		}
		if p, err := netip.ParsePrefix(t); err == nil {
			out = append(out, p.Masked())
			continue
		}
		if a, err := netip.ParseAddr(t); err == nil {
			a = a.Unmap()
			out = append(out, netip.PrefixFrom(a, a.BitLen()))
		}
	}
	return out
}

func remoteHost(r *http.Request) string {
	host, _, err := net.SplitHostPort(strings.TrimSpace(r.RemoteAddr))
	if err == nil && host != "" {
		return host
	}
	if r.RemoteAddr != "" {
		return r.RemoteAddr
	}
	return "unknown"
}
