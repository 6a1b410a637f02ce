package tenant

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestResolve_PlatformHost(t *testing.T) {
	r := NewDomainResolver("crownbidder.com", "localhost")

	res := r.Resolve("crownbidder.com")
	assert.True(t, res.IsPlatformHost)
	assert.Equal(t, "crownbidder.com", res.Hostname)
}

func TestResolve_TenantSubdomain(t *testing.T) {
	r := NewDomainResolver("crownbidder.com", "localhost")

	res := r.Resolve("crown.crownbidder.com")
	assert.False(t, res.IsPlatformHost)
}

func TestResolve_CaseAndPortNormalization(t *testing.T) {
	r := NewDomainResolver("crownbidder.com", "localhost")

	assert.True(t, r.Resolve("CrownBidder.COM").IsPlatformHost)
	assert.True(t, r.Resolve("crownbidder.com:8080").IsPlatformHost)
	assert.True(t, r.Resolve("localhost:3000").IsPlatformHost)
}

func TestResolve_MalformedIsNonPlatform(t *testing.T) {
	r := NewDomainResolver("crownbidder.com", "localhost")

	for _, host := range []string{"", "   ", "not a hostname", "::::"} {
		assert.False(t, r.Resolve(host).IsPlatformHost, "host %q", host)
	}
}

func TestResolve_Deterministic(t *testing.T) {
	r := NewDomainResolver("crownbidder.com", "localhost")

	first := r.Resolve("crown.crownbidder.com")
	for i := 0; i < 10; i++ {
		assert.Equal(t, first, r.Resolve("crown.crownbidder.com"))
	}
}
