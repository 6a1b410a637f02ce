package tenant

import (
	"net"
	"strings"
)

// DomainResolver decides, before any routing, whether a hostname is the
// platform host itself or belongs to a tenant site.
type DomainResolver struct {
	platformHost  string
	devHostPrefix string
}

type Resolution struct {
	IsPlatformHost bool
	Hostname       string
}

func NewDomainResolver(platformHost, devHostPrefix string) *DomainResolver {
	return &DomainResolver{
		platformHost:  strings.ToLower(platformHost),
		devHostPrefix: strings.ToLower(devHostPrefix),
	}
}

// Resolve is pure and never fails: malformed hostnames fall through as
// non-platform and are left for the resolution service to reject.
func (r *DomainResolver) Resolve(hostname string) Resolution {
	host := Normalize(hostname)
	isPlatform := host == r.platformHost ||
		(r.devHostPrefix != "" && strings.HasPrefix(host, r.devHostPrefix))
	return Resolution{IsPlatformHost: isPlatform, Hostname: host}
}

// Normalize lowercases a raw Host header and strips any port. Input is
// transport-supplied and never trusted.
func Normalize(hostname string) string {
	host := strings.ToLower(strings.TrimSpace(hostname))
	if h, _, err := net.SplitHostPort(host); err == nil {
		return h
	}
	return host
}
