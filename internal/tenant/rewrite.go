package tenant

import (
	"strings"

	"crownbidder/internal/domain"
)

// Rewriter maps a logical request path on a tenant host to the effective
// internal route. Pass-through prefixes (the auth namespaces by default) are
// configuration: a bidder must be able to authenticate against a tenant
// without landing in public content.
type Rewriter struct {
	tenantPrefix string
	passThrough  []string
}

func NewRewriter(tenantPrefix string, passThrough []string) *Rewriter {
	if tenantPrefix == "" {
		tenantPrefix = "/tenant"
	}
	return &Rewriter{
		tenantPrefix: tenantPrefix,
		passThrough:  passThrough,
	}
}

// Rewrite requires a resolved tenant; callers handle not-found before this
// point. Unrecognized paths default to tenant scoping rather than platform
// scoping.
func (rw *Rewriter) Rewrite(t *domain.Tenant, requestedPath string) string {
	if requestedPath == "" || requestedPath == "/" {
		return rw.tenantPrefix
	}

	for _, prefix := range rw.passThrough {
		if requestedPath == prefix || strings.HasPrefix(requestedPath, prefix+"/") {
			return requestedPath
		}
	}

	if strings.HasPrefix(requestedPath, rw.tenantPrefix+"/") || requestedPath == rw.tenantPrefix {
		return requestedPath
	}

	return rw.tenantPrefix + requestedPath
}
