package middleware

import (
	"errors"
	"net/http"

	"crownbidder/internal/domain"
	"crownbidder/internal/tenant"
	"crownbidder/pkg/logger"

	"github.com/labstack/echo/v4"
)

const (
	HeaderTenantID     = "X-Tenant-ID"
	HeaderTenantName   = "X-Tenant-Name"
	HeaderTenantDomain = "X-Tenant-Domain"

	// ContextKeyTenant holds the resolved *domain.Tenant on the echo context.
	ContextKeyTenant = "tenant"
)

// TenantResolution resolves the request hostname to a tenant before routing
// and rewrites the path into the tenant namespace. Register with e.Pre so
// the rewrite happens before the router matches.
func TenantResolution(resolver *tenant.DomainResolver, client domain.TenantResolver,
	rewriter *tenant.Rewriter, platformHost string, log logger.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			res := resolver.Resolve(c.Request().Host)
			if res.IsPlatformHost {
				return next(c)
			}

			tn, err := client.ResolveTenant(c.Request().Context(), res.Hostname)
			switch {
			case errors.Is(err, domain.ErrTenantNotFound):
				log.Info("No tenant for hostname, redirecting to platform",
					"hostname", res.Hostname)
				return c.Redirect(http.StatusFound, "https://"+platformHost+"/")
			case errors.Is(err, domain.ErrResolutionUnavailable):
				log.Error("Tenant resolution unavailable", "hostname", res.Hostname, "error", err)
				return echo.NewHTTPError(http.StatusServiceUnavailable, "site resolution unavailable")
			case err != nil:
				log.Error("Tenant resolution failed", "hostname", res.Hostname, "error", err)
				return echo.NewHTTPError(http.StatusInternalServerError, "site resolution failed")
			}

			c.Response().Header().Set(HeaderTenantID, tn.ID)
			c.Response().Header().Set(HeaderTenantName, tn.Name)
			c.Response().Header().Set(HeaderTenantDomain, tn.CustomDomain)
			c.Set(ContextKeyTenant, tn)

			req := c.Request()
			effective := rewriter.Rewrite(tn, req.URL.Path)
			if effective != req.URL.Path {
				log.Debug("Rewrote tenant path", "tenant_id", tn.ID,
					"from", req.URL.Path, "to", effective)
				req.URL.Path = effective
			}

			return next(c)
		}
	}
}
